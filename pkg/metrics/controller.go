package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Controller exposes a Prometheus gatherer over HTTP.
type Controller struct {
	path     string
	gatherer prometheus.Gatherer
}

// NewController serves the default registry when gatherer is nil.
func NewController(path string, gatherer prometheus.Gatherer) *Controller {
	if path == "" {
		path = "/debug/prometheus"
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Controller{path: path, gatherer: gatherer}
}

func (c *Controller) Key() string {
	return c.path
}

func (c *Controller) Register(r *mux.Router) {
	r.Handle(c.path, promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}
