package endpoints

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opsdeck/opsdeck/pkg/monitor"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/middleware"
)

// RegisterMonitoringEndpoints adds the live event websocket and the
// Prometheus scrape endpoint.
func RegisterMonitoringEndpoints(s *server.Server) {
	auth := middleware.NewTokenAuthenticator(s.Issuer, s.Config.TrustedProxies)

	ws := s.Router.PathPrefix("/ws").Subrouter()
	ws.Use(auth.Middleware)
	ws.HandleFunc("/monitoring", handleMonitoringSocket(s.Hub)).Methods("GET")

	// Scrapes come from inside the ops network and carry no panel token.
	s.Router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

func handleMonitoringSocket(hub *monitor.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = monitor.ServeWS(hub, w, r)
	}
}
