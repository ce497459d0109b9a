package endpoints

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/opsdeck/opsdeck/pkg/audit"
	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/middleware"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// CredentialRequest represents the create/update credential request body.
// Secret is write-only: it never appears in any response, and an empty
// Secret on update keeps the stored value.
type CredentialRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=128"`
	Kind        string `json:"kind" validate:"required,oneof=password ssh_key"`
	Username    string `json:"username"`
	Secret      string `json:"secret"`
	Description string `json:"description"`
}

// CredentialValueResponse carries a revealed secret value
type CredentialValueResponse struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Secret string `json:"secret"`
}

// RegisterCredentialsEndpoints registers credential endpoints. Every route
// requires at least operator; revealing a value is admin-only and audited.
func RegisterCredentialsEndpoints(s *server.Server) {
	credentialsStore := s.CredentialsStore
	cfg := s.Config
	auth := middleware.NewTokenAuthenticator(s.Issuer, cfg.TrustedProxies)

	router := s.Router.PathPrefix("/api/credentials").Subrouter()
	router.Use(auth.Middleware)

	router.HandleFunc("", middleware.RequireOperator(handleListCredentials(credentialsStore, cfg))).Methods("GET")
	router.HandleFunc("", middleware.RequireOperator(handleCreateCredential(credentialsStore))).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}", middleware.RequireOperator(handleGetCredential(credentialsStore))).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", middleware.RequireOperator(handleUpdateCredential(credentialsStore))).Methods("PUT")
	router.HandleFunc("/{id:[0-9]+}", middleware.RequireOperator(handleDeleteCredential(credentialsStore))).Methods("DELETE")
	router.HandleFunc("/{id:[0-9]+}/value", middleware.RequireAdmin(handleRevealCredential(credentialsStore))).Methods("GET")
}

func handleListCredentials(credentialsStore store.CredentialsStore, cfg *config.OpsdeckConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search, limit, offset := listParams(r, cfg)

		if wantsCount(r) {
			count, err := credentialsStore.CountCredentials(search)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			respondWithJSON(w, http.StatusOK, map[string]int64{"count": count})
			return
		}

		creds, err := credentialsStore.ListCredentials(search, limit, offset)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, creds)
	}
}

func handleCreateCredential(credentialsStore store.CredentialsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		var req CredentialRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Secret == "" {
			respondWithError(w, http.StatusBadRequest, "Secret value is required")
			return
		}

		cred := &model.Credential{
			UID:         uuid.New().String(),
			Name:        req.Name,
			Kind:        req.Kind,
			Username:    req.Username,
			Secret:      []byte(req.Secret),
			Description: req.Description,
		}

		if err := credentialsStore.CreateCredential(cred); err != nil {
			if errors.Is(err, store.ErrCredentialNameTaken) {
				audit.Log(audit.ResourceEvent{
					Username: actor, ClientIP: clientIP, Operation: model.ActionCreate,
					Kind: "credential", Name: req.Name, Success: false, ErrorMessage: "name taken",
				})
				respondWithError(w, http.StatusConflict, "Credential name already taken")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionCreate,
			Kind: "credential", ResourceID: idString(cred.ID), Name: cred.Name, Success: true,
		})
		respondWithJSON(w, http.StatusCreated, cred)
	}
}

func handleGetCredential(credentialsStore store.CredentialsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		cred, err := credentialsStore.GetCredential(id)
		if err != nil {
			if errors.Is(err, store.ErrCredentialNotFound) {
				respondWithError(w, http.StatusNotFound, "Credential not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, cred)
	}
}

func handleUpdateCredential(credentialsStore store.CredentialsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		var req CredentialRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		cred, err := credentialsStore.GetCredential(id)
		if err != nil {
			if errors.Is(err, store.ErrCredentialNotFound) {
				respondWithError(w, http.StatusNotFound, "Credential not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		cred.Name = req.Name
		cred.Kind = req.Kind
		cred.Username = req.Username
		cred.Secret = []byte(req.Secret)
		cred.Description = req.Description

		if err := credentialsStore.UpdateCredential(cred); err != nil {
			if errors.Is(err, store.ErrCredentialNameTaken) {
				respondWithError(w, http.StatusConflict, "Credential name already taken")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionUpdate,
			Kind: "credential", ResourceID: idString(cred.ID), Name: cred.Name, Success: true,
		})
		respondWithJSON(w, http.StatusOK, cred)
	}
}

func handleDeleteCredential(credentialsStore store.CredentialsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := credentialsStore.DeleteCredential(id); err != nil {
			switch {
			case errors.Is(err, store.ErrCredentialNotFound):
				respondWithError(w, http.StatusNotFound, "Credential not found")
			case errors.Is(err, store.ErrCredentialInUse):
				audit.Log(audit.ResourceEvent{
					Username: actor, ClientIP: clientIP, Operation: model.ActionDelete,
					Kind: "credential", ResourceID: idString(id), Success: false, ErrorMessage: "still referenced",
				})
				respondWithError(w, http.StatusConflict, "Credential is still referenced by servers, devices or databases")
			default:
				respondWithError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionDelete,
			Kind: "credential", ResourceID: idString(id), Success: true,
		})
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleRevealCredential(credentialsStore store.CredentialsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		cred, err := credentialsStore.GetCredential(id)
		if err != nil {
			if errors.Is(err, store.ErrCredentialNotFound) {
				audit.Log(audit.RevealEvent{
					Username: actor, ClientIP: clientIP, CredentialID: idString(id),
					Success: false, ErrorMessage: "not found",
				})
				respondWithError(w, http.StatusNotFound, "Credential not found")
				return
			}
			audit.Log(audit.RevealEvent{
				Username: actor, ClientIP: clientIP, CredentialID: idString(id),
				Success: false, ErrorMessage: err.Error(),
			})
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.RevealEvent{
			Username: actor, ClientIP: clientIP, CredentialID: idString(cred.ID),
			Name: cred.Name, Success: true,
		})
		respondWithJSON(w, http.StatusOK, CredentialValueResponse{
			ID:     cred.ID,
			Name:   cred.Name,
			Kind:   cred.Kind,
			Secret: string(cred.Secret),
		})
	}
}
