package endpoints

import (
	"errors"
	"net/http"

	"github.com/opsdeck/opsdeck/pkg/audit"
	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/identity"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/middleware"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// UserCreateRequest represents the create-user request body
type UserCreateRequest struct {
	Username    string `json:"username" validate:"required,min=2,max=64"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email" validate:"omitempty,email"`
	Role        string `json:"role" validate:"required,oneof=admin operator viewer"`
}

// UserUpdateRequest represents the update-user request body
type UserUpdateRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email" validate:"omitempty,email"`
	Role        string `json:"role" validate:"required,oneof=admin operator viewer"`
	Active      *bool  `json:"active"`
}

// UserPasswordResetRequest represents the admin password-reset request body
type UserPasswordResetRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// RegisterUsersEndpoints registers user management endpoints. All of them
// are admin-only.
func RegisterUsersEndpoints(s *server.Server) {
	usersStore := s.UsersStore
	cfg := s.Config
	auth := middleware.NewTokenAuthenticator(s.Issuer, cfg.TrustedProxies)

	router := s.Router.PathPrefix("/api/users").Subrouter()
	router.Use(auth.Middleware)

	router.HandleFunc("", middleware.RequireAdmin(handleListUsers(usersStore, cfg))).Methods("GET")
	router.HandleFunc("", middleware.RequireAdmin(handleCreateUser(usersStore))).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}", middleware.RequireAdmin(handleGetUser(usersStore))).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", middleware.RequireAdmin(handleUpdateUser(usersStore))).Methods("PUT")
	router.HandleFunc("/{id:[0-9]+}", middleware.RequireAdmin(handleDeleteUser(usersStore))).Methods("DELETE")
	router.HandleFunc("/{id:[0-9]+}/password", middleware.RequireAdmin(handleResetUserPassword(usersStore))).Methods("PUT")
}

func handleListUsers(usersStore store.UsersStore, cfg *config.OpsdeckConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search, limit, offset := listParams(r, cfg)

		if wantsCount(r) {
			count, err := usersStore.CountUsers(search)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			respondWithJSON(w, http.StatusOK, map[string]int64{"count": count})
			return
		}

		users, err := usersStore.ListUsers(search, limit, offset)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, users)
	}
}

func handleCreateUser(usersStore store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		var req UserCreateRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		user := &model.User{
			Username:    req.Username,
			DisplayName: req.DisplayName,
			Email:       req.Email,
			Role:        req.Role,
			Active:      true,
		}
		if err := user.SetPassword(req.Password); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if err := usersStore.CreateUser(user); err != nil {
			if errors.Is(err, store.ErrUsernameTaken) {
				audit.Log(audit.ResourceEvent{
					Username: actor, ClientIP: clientIP, Operation: model.ActionCreate,
					Kind: "user", Name: req.Username, Success: false, ErrorMessage: "username taken",
				})
				respondWithError(w, http.StatusConflict, "Username already taken")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionCreate,
			Kind: "user", ResourceID: idString(user.ID), Name: user.Username, Success: true,
		})
		respondWithJSON(w, http.StatusCreated, user)
	}
}

func handleGetUser(usersStore store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		user, err := usersStore.GetUser(id)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				respondWithError(w, http.StatusNotFound, "User not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, user)
	}
}

func handleUpdateUser(usersStore store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		var req UserUpdateRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		user, err := usersStore.GetUser(id)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				respondWithError(w, http.StatusNotFound, "User not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		user.DisplayName = req.DisplayName
		user.Email = req.Email
		user.Role = req.Role
		if req.Active != nil {
			user.Active = *req.Active
		}

		if err := usersStore.UpdateUser(user); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionUpdate,
			Kind: "user", ResourceID: idString(user.ID), Name: user.Username, Success: true,
		})
		respondWithJSON(w, http.StatusOK, user)
	}
}

func handleDeleteUser(usersStore store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		if actingID, ok := identity.Get(r.Context()); ok && actingID.UserID == id {
			respondWithError(w, http.StatusConflict, "Cannot delete your own account")
			return
		}

		if err := usersStore.DeleteUser(id); err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				audit.Log(audit.ResourceEvent{
					Username: actor, ClientIP: clientIP, Operation: model.ActionDelete,
					Kind: "user", ResourceID: idString(id), Success: false, ErrorMessage: "not found",
				})
				respondWithError(w, http.StatusNotFound, "User not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionDelete,
			Kind: "user", ResourceID: idString(id), Success: true,
		})
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleResetUserPassword(usersStore store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		var req UserPasswordResetRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		user, err := usersStore.GetUser(id)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				respondWithError(w, http.StatusNotFound, "User not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if err := user.SetPassword(req.NewPassword); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := usersStore.UpdateUser(user); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.PasswordEvent{
			Username:       actor,
			TargetUsername: user.Username,
			ClientIP:       clientIP,
			Success:        true,
		})
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "password reset"})
	}
}
