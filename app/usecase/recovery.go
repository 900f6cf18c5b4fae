package usecase

import (
	"context"

	"session-hub/app/cachekeys"
	"session-hub/app/domain"
	"session-hub/app/port"
)

// Recover runs the corruption recovery sequence: revoke the session, wipe
// the cache, reset state, then tell observers to route to sign-in. Every
// step is best-effort; a failing or panicking step never stops the ones
// after it, because a partially recovered client is still better than a
// wedged one.
func (c *Coordinator) Recover(ctx context.Context, cause error) {
	c.logger.Error("session corruption detected, recovering", "cause", cause)
	c.metrics.Recovery()

	c.mu.Lock()
	c.signOutExpected = true
	corrupted := c.identity.Clone()
	c.mu.Unlock()

	steps := []struct {
		name string
		run  func()
	}{
		{"provider sign-out", func() {
			c.provider.SignOut(ctx, port.SignOutLocal)
		}},
		{"cache purge", func() {
			// Scoped to the corrupted identity when it is known; with no
			// identity there is no scope, so everything goes.
			if corrupted != nil {
				c.cache.InvalidateMatching(ctx, cachekeys.UserScope(corrupted.ID))
			} else {
				c.cache.Clear(ctx)
			}
		}},
		{"state reset", func() {
			c.mu.Lock()
			c.clearLocked()
			c.mu.Unlock()
		}},
	}
	for _, step := range steps {
		c.runRecoveryStep(step.name, step.run)
	}

	// ReasonRecovery is the navigation signal: observers route the UI to
	// the sign-in screen when they see it.
	c.publish(domain.IdentityEvent{Reason: domain.ReasonRecovery})
	c.logger.Info("recovery sequence completed")
}

func (c *Coordinator) runRecoveryStep(name string, run func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("recovery step panicked, continuing", "step", name, "panic", r)
		}
	}()
	run()
}
