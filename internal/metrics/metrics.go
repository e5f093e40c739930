package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Signups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ratehub_signups_total",
		Help: "Accounts created through the public signup flow.",
	})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratehub_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	RatingsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ratehub_ratings_submitted_total",
		Help: "Accepted rating submissions (creates and updates).",
	})

	AuthRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratehub_auth_rejections_total",
		Help: "Requests rejected by the auth middleware, by reason.",
	}, []string{"reason"})

	AuditDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ratehub_audit_dropped_total",
		Help: "Audit events dropped because the queue was full.",
	})
)
