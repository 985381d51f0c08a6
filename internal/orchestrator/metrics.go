package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deploymentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "farmctl_deployments_total",
		Help: "Deployment runs started.",
	})

	resourcesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmctl_resources_created_total",
		Help: "Resources created, by kind.",
	}, []string{"kind"})

	resourceFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmctl_resource_failures_total",
		Help: "Per-resource failures, by fault kind.",
	}, []string{"fault"})
)
