package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flashai_registrations_total",
		Help: "Total number of successful user registrations.",
	})

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashai_logins_total",
			Help: "Total number of login attempts by status.",
		},
		[]string{"status"},
	)

	refreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flashai_token_refreshes_total",
		Help: "Total number of successful token refreshes.",
	})

	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashai_generations_total",
			Help: "Total number of flashcard generation requests by result code.",
		},
		[]string{"code"},
	)
)
