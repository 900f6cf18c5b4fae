// Package cachekeys is the single source of truth for cache key shapes.
// Every cached entity keyed by user id must be reachable through one of the
// constructors here; no other code path may invent key strings.
package cachekeys

import "strings"

// Namespace is the closed enumeration of cache namespaces.
type Namespace string

const (
	NamespaceAuth          Namespace = "auth"
	NamespaceProfile       Namespace = "profile"
	NamespaceOrders        Namespace = "orders"
	NamespaceMessages      Namespace = "messages"
	NamespaceNotifications Namespace = "notifications"
)

const separator = ":"

// Key is a canonical cache key. Construct keys only through the functions in
// this package.
type Key string

func join(ns Namespace, parts ...string) Key {
	elems := append([]string{string(ns)}, parts...)
	return Key(strings.Join(elems, separator))
}

// Namespace returns the key's namespace segment.
func (k Key) Namespace() Namespace {
	s := string(k)
	if i := strings.Index(s, separator); i >= 0 {
		return Namespace(s[:i])
	}
	return Namespace(s)
}

// Auth-global entries. These are never scoped to a user: a new user's auth
// state must not inherit the old user's cached entries, so the scoped purge
// removes the whole namespace.

func AuthUser() Key    { return join(NamespaceAuth, "user") }
func AuthSession() Key { return join(NamespaceAuth, "session") }

// Per-user entries.

func Profile(userID string) Key { return join(NamespaceProfile, userID) }

func Orders(userID string) Key     { return join(NamespaceOrders, userID) }
func OrderStats(userID string) Key { return join(NamespaceOrders, "stats", userID) }

func Messages(userID string) Key             { return join(NamespaceMessages, userID) }
func MessagesUnread(userID string) Key       { return join(NamespaceMessages, "unread", userID) }
func MessagesConversation(userID string) Key { return join(NamespaceMessages, "conversation", userID) }

func NotificationSettings(userID string) Key {
	return join(NamespaceNotifications, "settings", userID)
}
func NotificationPreferences(userID string) Key {
	return join(NamespaceNotifications, "preferences", userID)
}
func NotificationHistory(userID string) Key {
	return join(NamespaceNotifications, "history", userID)
}

// userScopedKeys lists every per-user key shape. New per-user entities are
// added here and the scoped purge covers them automatically.
func userScopedKeys(userID string) []Key {
	return []Key{
		Profile(userID),
		Orders(userID),
		OrderStats(userID),
		Messages(userID),
		MessagesUnread(userID),
		MessagesConversation(userID),
		NotificationSettings(userID),
		NotificationPreferences(userID),
		NotificationHistory(userID),
	}
}

// UserScope returns the predicate selecting every cache entry that must be
// purged when the given user's identity ends: all auth-namespace entries
// regardless of owner, plus every entry scoped to this user and nothing
// scoped to anyone else.
func UserScope(userID string) func(Key) bool {
	scoped := make(map[Key]struct{})
	for _, k := range userScopedKeys(userID) {
		scoped[k] = struct{}{}
	}
	return func(k Key) bool {
		if k.Namespace() == NamespaceAuth {
			return true
		}
		_, ok := scoped[k]
		return ok
	}
}
