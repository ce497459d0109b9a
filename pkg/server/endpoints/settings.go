package endpoints

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/opsdeck/opsdeck/pkg/audit"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/middleware"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// SettingRequest represents the upsert setting request body
type SettingRequest struct {
	Value string `json:"value" validate:"max=4096"`
}

// RegisterSettingsEndpoints registers panel setting endpoints. Reads are
// open to any authenticated role; writes are admin-only.
func RegisterSettingsEndpoints(s *server.Server) {
	settingsStore := s.SettingsStore
	auth := middleware.NewTokenAuthenticator(s.Issuer, s.Config.TrustedProxies)

	router := s.Router.PathPrefix("/api/settings").Subrouter()
	router.Use(auth.Middleware)

	router.HandleFunc("", handleListSettings(settingsStore)).Methods("GET")
	router.HandleFunc("/{name}", handleGetSetting(settingsStore)).Methods("GET")
	router.HandleFunc("/{name}", middleware.RequireAdmin(handlePutSetting(settingsStore))).Methods("PUT")
}

func handleListSettings(settingsStore store.SettingsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := settingsStore.ListSettings()
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, settings)
	}
}

func handleGetSetting(settingsStore store.SettingsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]

		setting, err := settingsStore.GetSetting(name)
		if err != nil {
			if errors.Is(err, store.ErrSettingNotFound) {
				respondWithError(w, http.StatusNotFound, "Setting not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, setting)
	}
}

func handlePutSetting(settingsStore store.SettingsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)
		name := mux.Vars(r)["name"]

		var req SettingRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		setting, err := settingsStore.PutSetting(name, req.Value)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionUpdate,
			Kind: "setting", ResourceID: name, Name: name, Success: true,
		})
		respondWithJSON(w, http.StatusOK, setting)
	}
}
