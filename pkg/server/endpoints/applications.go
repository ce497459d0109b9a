package endpoints

import (
	"errors"
	"net/http"

	"github.com/opsdeck/opsdeck/pkg/audit"
	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/middleware"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// ApplicationRequest represents the create/update application request body
type ApplicationRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=128"`
	SiteID     *uint  `json:"site_id"`
	ServerID   *uint  `json:"server_id"`
	Kind       string `json:"kind"`
	Version    string `json:"version"`
	Port       int    `json:"port" validate:"omitempty,min=1,max=65535"`
	HealthPath string `json:"health_path"`
	Status     string `json:"status"`
	Notes      string `json:"notes"`
}

// RegisterApplicationsEndpoints registers application endpoints
func RegisterApplicationsEndpoints(s *server.Server) {
	applicationsStore := s.ApplicationsStore
	sitesStore := s.SitesStore
	serversStore := s.ServersStore
	cfg := s.Config
	auth := middleware.NewTokenAuthenticator(s.Issuer, cfg.TrustedProxies)

	router := s.Router.PathPrefix("/api/applications").Subrouter()
	router.Use(auth.Middleware)

	router.HandleFunc("", handleListApplications(applicationsStore, cfg)).Methods("GET")
	router.HandleFunc("", middleware.RequireOperator(handleCreateApplication(applicationsStore, sitesStore, serversStore))).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}", handleGetApplication(applicationsStore)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", middleware.RequireOperator(handleUpdateApplication(applicationsStore, sitesStore, serversStore))).Methods("PUT")
	router.HandleFunc("/{id:[0-9]+}", middleware.RequireOperator(handleDeleteApplication(applicationsStore))).Methods("DELETE")
}

func checkApplicationRefs(w http.ResponseWriter, req *ApplicationRequest, sitesStore store.SitesStore, serversStore store.ServersStore) bool {
	if req.SiteID != nil {
		if _, err := sitesStore.GetSite(*req.SiteID); err != nil {
			if errors.Is(err, store.ErrSiteNotFound) {
				respondWithError(w, http.StatusBadRequest, "Referenced site does not exist")
				return false
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return false
		}
	}
	if req.ServerID != nil {
		if _, err := serversStore.GetServer(*req.ServerID); err != nil {
			if errors.Is(err, store.ErrServerNotFound) {
				respondWithError(w, http.StatusBadRequest, "Referenced server does not exist")
				return false
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return false
		}
	}
	return true
}

func handleListApplications(applicationsStore store.ApplicationsStore, cfg *config.OpsdeckConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search, limit, offset := listParams(r, cfg)
		siteID := queryUint(r, "site_id")
		serverID := queryUint(r, "server_id")

		if wantsCount(r) {
			count, err := applicationsStore.CountApplications(search, siteID, serverID)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			respondWithJSON(w, http.StatusOK, map[string]int64{"count": count})
			return
		}

		apps, err := applicationsStore.ListApplications(search, siteID, serverID, limit, offset)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, apps)
	}
}

func handleCreateApplication(applicationsStore store.ApplicationsStore, sitesStore store.SitesStore, serversStore store.ServersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		var req ApplicationRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if !checkApplicationRefs(w, &req, sitesStore, serversStore) {
			return
		}

		app := &model.Application{
			Name:       req.Name,
			SiteID:     req.SiteID,
			ServerID:   req.ServerID,
			Kind:       req.Kind,
			Version:    req.Version,
			Port:       req.Port,
			HealthPath: req.HealthPath,
			Status:     req.Status,
			Notes:      req.Notes,
		}

		if err := applicationsStore.CreateApplication(app); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionCreate,
			Kind: "application", ResourceID: idString(app.ID), Name: app.Name, Success: true,
		})
		respondWithJSON(w, http.StatusCreated, app)
	}
}

func handleGetApplication(applicationsStore store.ApplicationsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		app, err := applicationsStore.GetApplication(id)
		if err != nil {
			if errors.Is(err, store.ErrApplicationNotFound) {
				respondWithError(w, http.StatusNotFound, "Application not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, app)
	}
}

func handleUpdateApplication(applicationsStore store.ApplicationsStore, sitesStore store.SitesStore, serversStore store.ServersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		var req ApplicationRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if !checkApplicationRefs(w, &req, sitesStore, serversStore) {
			return
		}

		app, err := applicationsStore.GetApplication(id)
		if err != nil {
			if errors.Is(err, store.ErrApplicationNotFound) {
				respondWithError(w, http.StatusNotFound, "Application not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		app.Name = req.Name
		app.SiteID = req.SiteID
		app.ServerID = req.ServerID
		app.Kind = req.Kind
		app.Version = req.Version
		app.Port = req.Port
		app.HealthPath = req.HealthPath
		app.Status = req.Status
		app.Notes = req.Notes

		if err := applicationsStore.UpdateApplication(app); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionUpdate,
			Kind: "application", ResourceID: idString(app.ID), Name: app.Name, Success: true,
		})
		respondWithJSON(w, http.StatusOK, app)
	}
}

func handleDeleteApplication(applicationsStore store.ApplicationsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := applicationsStore.DeleteApplication(id); err != nil {
			if errors.Is(err, store.ErrApplicationNotFound) {
				respondWithError(w, http.StatusNotFound, "Application not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionDelete,
			Kind: "application", ResourceID: idString(id), Success: true,
		})
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
