package handler

import (
	"net/http"

	"github.com/bewie03/bubblemap/pkg/httpkit"
	"github.com/bewie03/bubblemap/web/api"
)

const (
	HealthRoute  = http.MethodGet + " " + "/healthz"
	MetricsRoute = http.MethodGet + " " + "/metrics"
)

// System serves health and metrics endpoints
type System struct {
	version string
	metrics http.Handler
}

func NewSystem(version string, metrics http.Handler) *System {
	return &System{
		version: version,
		metrics: metrics,
	}
}

func (s *System) AddRoutes(m *http.ServeMux) {
	m.Handle(HealthRoute, httpkit.HandlerFunc(s.Health))
	if s.metrics != nil {
		m.Handle(MetricsRoute, s.metrics)
	}
}

func (s *System) Health(_ http.ResponseWriter, _ *http.Request) http.HandlerFunc {
	return httpkit.JSON(api.HealthResponse{Status: "ok", Version: s.version})
}
