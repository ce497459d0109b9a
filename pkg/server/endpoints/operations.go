package endpoints

import (
	"net/http"

	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/middleware"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// RegisterOperationsEndpoints registers the operation trail read endpoint.
// The trail is append-only; rows are written by the audit store.
func RegisterOperationsEndpoints(s *server.Server) {
	operationsStore := s.OperationsStore
	cfg := s.Config
	auth := middleware.NewTokenAuthenticator(s.Issuer, cfg.TrustedProxies)

	router := s.Router.PathPrefix("/api/operations").Subrouter()
	router.Use(auth.Middleware)

	router.HandleFunc("", handleListOperations(operationsStore, cfg)).Methods("GET")
}

func handleListOperations(operationsStore store.OperationsStore, cfg *config.OpsdeckConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, limit, offset := listParams(r, cfg)

		since, until, err := timeRange(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		q := store.OperationsQuery{
			Username: r.URL.Query().Get("username"),
			Action:   r.URL.Query().Get("action"),
			Kind:     r.URL.Query().Get("kind"),
			Limit:    limit,
			Offset:   offset,
		}
		if !since.IsZero() {
			q.From = &since
		}
		if !until.IsZero() {
			q.To = &until
		}

		if wantsCount(r) {
			count, err := operationsStore.CountOperations(q)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			respondWithJSON(w, http.StatusOK, map[string]int64{"count": count})
			return
		}

		entries, err := operationsStore.ListOperations(q)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, entries)
	}
}
