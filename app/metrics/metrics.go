package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the session lifecycle counters. A nil *Metrics is valid and
// records nothing, so wiring stays optional in tests.
type Metrics struct {
	signIns       prometheus.Counter
	signUps       prometheus.Counter
	signOuts      prometheus.Counter
	refreshes     prometheus.Counter
	guestSessions prometheus.Counter
	recoveries    prometheus.Counter
	authFailures  *prometheus.CounterVec
}

// New registers the session-hub collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		signIns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sessionhub",
			Name:      "sign_ins_total",
			Help:      "Successful sign-ins.",
		}),
		signUps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sessionhub",
			Name:      "sign_ups_total",
			Help:      "Successful registrations.",
		}),
		signOuts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sessionhub",
			Name:      "sign_outs_total",
			Help:      "Completed sign-outs, including forced timeouts.",
		}),
		refreshes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sessionhub",
			Name:      "token_refreshes_total",
			Help:      "Successful session refreshes.",
		}),
		guestSessions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sessionhub",
			Name:      "guest_sessions_total",
			Help:      "Guest sessions started.",
		}),
		recoveries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sessionhub",
			Name:      "recoveries_total",
			Help:      "Corruption recovery sequences executed.",
		}),
		authFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessionhub",
			Name:      "auth_failures_total",
			Help:      "Failed provider operations by error kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) SignIn() {
	if m != nil {
		m.signIns.Inc()
	}
}

func (m *Metrics) SignUp() {
	if m != nil {
		m.signUps.Inc()
	}
}

func (m *Metrics) SignOut() {
	if m != nil {
		m.signOuts.Inc()
	}
}

func (m *Metrics) Refresh() {
	if m != nil {
		m.refreshes.Inc()
	}
}

func (m *Metrics) GuestSession() {
	if m != nil {
		m.guestSessions.Inc()
	}
}

func (m *Metrics) Recovery() {
	if m != nil {
		m.recoveries.Inc()
	}
}

func (m *Metrics) AuthFailure(kind string) {
	if m != nil {
		m.authFailures.WithLabelValues(kind).Inc()
	}
}
