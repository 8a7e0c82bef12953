package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esilogis_intervention_transitions_total",
			Help: "Intervention status transitions applied, by source and target status",
		},
		[]string{"from", "to"},
	)

	assignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esilogis_assignments_total",
			Help: "Technician assignment attempts by outcome (created, existing, failed)",
		},
		[]string{"result"},
	)
)
