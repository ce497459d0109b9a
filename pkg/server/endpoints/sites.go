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

// SiteGroupRequest represents the create/update site group request body
type SiteGroupRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=128"`
	Description string `json:"description"`
}

// SiteRequest represents the create/update business site request body.
// Interval and timeout values of zero fall back to the global defaults.
type SiteRequest struct {
	Name                 string `json:"name" validate:"required,min=1,max=128"`
	URL                  string `json:"url" validate:"required,url"`
	GroupID              *uint  `json:"group_id"`
	CheckIntervalSeconds int    `json:"check_interval_seconds" validate:"omitempty,min=10"`
	TimeoutSeconds       int    `json:"timeout_seconds" validate:"omitempty,min=1,max=120"`
	ExpectedStatus       int    `json:"expected_status" validate:"omitempty,min=100,max=599"`
	Keyword              string `json:"keyword"`
	Enabled              *bool  `json:"enabled"`
}

// SiteAvailabilityResponse carries the recent check samples for a site
// along with the score computed over the rolling window.
type SiteAvailabilityResponse struct {
	SiteID  uint                     `json:"site_id"`
	Status  string                   `json:"status"`
	Score   float64                  `json:"score"`
	Window  int                      `json:"window"`
	Samples []model.SiteAvailability `json:"samples"`
}

// RegisterSitesEndpoints registers business site and site group endpoints
func RegisterSitesEndpoints(s *server.Server) {
	sitesStore := s.SitesStore
	metricsStore := s.MetricsStore
	cfg := s.Config
	auth := middleware.NewTokenAuthenticator(s.Issuer, cfg.TrustedProxies)

	groups := s.Router.PathPrefix("/api/site-groups").Subrouter()
	groups.Use(auth.Middleware)
	groups.HandleFunc("", handleListSiteGroups(sitesStore)).Methods("GET")
	groups.HandleFunc("", middleware.RequireOperator(handleCreateSiteGroup(sitesStore))).Methods("POST")
	groups.HandleFunc("/{id:[0-9]+}", middleware.RequireOperator(handleUpdateSiteGroup(sitesStore))).Methods("PUT")
	groups.HandleFunc("/{id:[0-9]+}", middleware.RequireOperator(handleDeleteSiteGroup(sitesStore))).Methods("DELETE")

	sites := s.Router.PathPrefix("/api/sites").Subrouter()
	sites.Use(auth.Middleware)
	sites.HandleFunc("", handleListSites(sitesStore, cfg)).Methods("GET")
	sites.HandleFunc("", middleware.RequireOperator(handleCreateSite(sitesStore))).Methods("POST")
	sites.HandleFunc("/{id:[0-9]+}", handleGetSite(sitesStore)).Methods("GET")
	sites.HandleFunc("/{id:[0-9]+}", middleware.RequireOperator(handleUpdateSite(sitesStore))).Methods("PUT")
	sites.HandleFunc("/{id:[0-9]+}", middleware.RequireOperator(handleDeleteSite(sitesStore))).Methods("DELETE")
	sites.HandleFunc("/{id:[0-9]+}/availability", handleSiteAvailability(sitesStore, metricsStore, cfg)).Methods("GET")
}

func checkSiteGroup(w http.ResponseWriter, groupID *uint, sitesStore store.SitesStore) bool {
	if groupID == nil {
		return true
	}
	if _, err := sitesStore.GetGroup(*groupID); err != nil {
		if errors.Is(err, store.ErrSiteGroupNotFound) {
			respondWithError(w, http.StatusBadRequest, "Referenced site group does not exist")
			return false
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return false
	}
	return true
}

func handleListSiteGroups(sitesStore store.SitesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups, err := sitesStore.ListGroups()
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, groups)
	}
}

func handleCreateSiteGroup(sitesStore store.SitesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		var req SiteGroupRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		group := &model.SiteGroup{Name: req.Name, Description: req.Description}
		if err := sitesStore.CreateGroup(group); err != nil {
			if errors.Is(err, store.ErrSiteGroupNameTaken) {
				respondWithError(w, http.StatusConflict, "Site group name already taken")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionCreate,
			Kind: "site_group", ResourceID: idString(group.ID), Name: group.Name, Success: true,
		})
		respondWithJSON(w, http.StatusCreated, group)
	}
}

func handleUpdateSiteGroup(sitesStore store.SitesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		var req SiteGroupRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		group, err := sitesStore.GetGroup(id)
		if err != nil {
			if errors.Is(err, store.ErrSiteGroupNotFound) {
				respondWithError(w, http.StatusNotFound, "Site group not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		group.Name = req.Name
		group.Description = req.Description

		if err := sitesStore.UpdateGroup(group); err != nil {
			if errors.Is(err, store.ErrSiteGroupNameTaken) {
				respondWithError(w, http.StatusConflict, "Site group name already taken")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionUpdate,
			Kind: "site_group", ResourceID: idString(group.ID), Name: group.Name, Success: true,
		})
		respondWithJSON(w, http.StatusOK, group)
	}
}

func handleDeleteSiteGroup(sitesStore store.SitesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := sitesStore.DeleteGroup(id); err != nil {
			if errors.Is(err, store.ErrSiteGroupNotFound) {
				respondWithError(w, http.StatusNotFound, "Site group not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionDelete,
			Kind: "site_group", ResourceID: idString(id), Success: true,
		})
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleListSites(sitesStore store.SitesStore, cfg *config.OpsdeckConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search, limit, offset := listParams(r, cfg)
		groupID := queryUint(r, "group_id")

		if wantsCount(r) {
			count, err := sitesStore.CountSites(search, groupID)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			respondWithJSON(w, http.StatusOK, map[string]int64{"count": count})
			return
		}

		sites, err := sitesStore.ListSites(search, groupID, limit, offset)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, sites)
	}
}

func handleCreateSite(sitesStore store.SitesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		var req SiteRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if !checkSiteGroup(w, req.GroupID, sitesStore) {
			return
		}

		enabled := true
		if req.Enabled != nil {
			enabled = *req.Enabled
		}
		site := &model.BusinessSite{
			Name:                 req.Name,
			URL:                  req.URL,
			GroupID:              req.GroupID,
			CheckIntervalSeconds: req.CheckIntervalSeconds,
			TimeoutSeconds:       req.TimeoutSeconds,
			ExpectedStatus:       req.ExpectedStatus,
			Keyword:              req.Keyword,
			Enabled:              enabled,
		}

		if err := sitesStore.CreateSite(site); err != nil {
			if errors.Is(err, store.ErrSiteNameTaken) {
				audit.Log(audit.ResourceEvent{
					Username: actor, ClientIP: clientIP, Operation: model.ActionCreate,
					Kind: "site", Name: req.Name, Success: false, ErrorMessage: "name taken",
				})
				respondWithError(w, http.StatusConflict, "Site name already taken")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionCreate,
			Kind: "site", ResourceID: idString(site.ID), Name: site.Name, Success: true,
		})
		respondWithJSON(w, http.StatusCreated, site)
	}
}

func handleGetSite(sitesStore store.SitesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		site, err := sitesStore.GetSite(id)
		if err != nil {
			if errors.Is(err, store.ErrSiteNotFound) {
				respondWithError(w, http.StatusNotFound, "Site not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, site)
	}
}

func handleUpdateSite(sitesStore store.SitesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		var req SiteRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if !checkSiteGroup(w, req.GroupID, sitesStore) {
			return
		}

		site, err := sitesStore.GetSite(id)
		if err != nil {
			if errors.Is(err, store.ErrSiteNotFound) {
				respondWithError(w, http.StatusNotFound, "Site not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		site.Name = req.Name
		site.URL = req.URL
		site.GroupID = req.GroupID
		site.CheckIntervalSeconds = req.CheckIntervalSeconds
		site.TimeoutSeconds = req.TimeoutSeconds
		if req.ExpectedStatus != 0 {
			site.ExpectedStatus = req.ExpectedStatus
		}
		site.Keyword = req.Keyword
		if req.Enabled != nil {
			site.Enabled = *req.Enabled
		}

		if err := sitesStore.UpdateSite(site); err != nil {
			if errors.Is(err, store.ErrSiteNameTaken) {
				respondWithError(w, http.StatusConflict, "Site name already taken")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionUpdate,
			Kind: "site", ResourceID: idString(site.ID), Name: site.Name, Success: true,
		})
		respondWithJSON(w, http.StatusOK, site)
	}
}

func handleDeleteSite(sitesStore store.SitesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := sitesStore.DeleteSite(id); err != nil {
			if errors.Is(err, store.ErrSiteNotFound) {
				respondWithError(w, http.StatusNotFound, "Site not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionDelete,
			Kind: "site", ResourceID: idString(id), Success: true,
		})
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleSiteAvailability(sitesStore store.SitesStore, metricsStore store.MetricsStore, cfg *config.OpsdeckConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		site, err := sitesStore.GetSite(id)
		if err != nil {
			if errors.Is(err, store.ErrSiteNotFound) {
				respondWithError(w, http.StatusNotFound, "Site not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		since, until, err := timeRange(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		_, limit, _ := listParams(r, cfg)

		samples, err := metricsStore.SiteAvailability(id, since, until, limit)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		score, total, err := metricsStore.SiteSuccessRate(id, cfg.SiteAvailabilityWindow)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondWithJSON(w, http.StatusOK, SiteAvailabilityResponse{
			SiteID:  site.ID,
			Status:  site.Status,
			Score:   score,
			Window:  total,
			Samples: samples,
		})
	}
}
