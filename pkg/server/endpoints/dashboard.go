package endpoints

import (
	"net/http"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/middleware"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

const dashboardRecentOperations = 10

// DashboardResponse is the single payload the panel landing page polls
type DashboardResponse struct {
	Counts           *store.DashboardCounts `json:"counts"`
	RecentOperations []model.OperationLog   `json:"recent_operations"`
	OfflineServers   []model.Server         `json:"offline_servers"`
}

// RegisterDashboardEndpoints registers the overview endpoint
func RegisterDashboardEndpoints(s *server.Server) {
	dashboardStore := s.DashboardStore
	serversStore := s.ServersStore
	auth := middleware.NewTokenAuthenticator(s.Issuer, s.Config.TrustedProxies)

	router := s.Router.PathPrefix("/api/dashboard").Subrouter()
	router.Use(auth.Middleware)

	router.HandleFunc("", handleDashboard(dashboardStore, serversStore)).Methods("GET")
}

func handleDashboard(dashboardStore store.DashboardStore, serversStore store.ServersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := dashboardStore.Counts()
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		recent, err := dashboardStore.RecentOperations(dashboardRecentOperations)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		servers, err := serversStore.ListServers("", 0, 0)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		offline := make([]model.Server, 0)
		for _, srv := range servers {
			if srv.Status == model.StatusOffline {
				offline = append(offline, srv)
			}
		}

		respondWithJSON(w, http.StatusOK, DashboardResponse{
			Counts:           counts,
			RecentOperations: recent,
			OfflineServers:   offline,
		})
	}
}
