package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	catalogLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hrm",
		Subsystem: "objective_catalog",
		Name:      "loads_total",
		Help:      "Objective catalog fetch attempts by result.",
	}, []string{"result"})

	kpiSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hrm",
		Subsystem: "kpi",
		Name:      "saves_total",
		Help:      "KPI allocation saves by result.",
	}, []string{"result"})
)
