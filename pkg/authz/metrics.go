package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var decisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "authz",
	Name:      "decisions_total",
	Help:      "Authorization decisions broken down by object, mode and result.",
}, []string{"object", "mode", "result"})

func recordDecision(req Request, mode Mode, allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	decisions.With(prometheus.Labels{
		"object": req.Object,
		"mode":   string(mode),
		"result": result,
	}).Inc()
}
