package endpoints

import (
	"errors"
	"net/http"
	"time"

	"github.com/opsdeck/opsdeck/pkg/audit"
	"github.com/opsdeck/opsdeck/pkg/identity"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/middleware"
	"github.com/opsdeck/opsdeck/pkg/server/store"
	"github.com/opsdeck/opsdeck/pkg/token"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// WhoamiResponse represents the response from /api/auth/whoami
type WhoamiResponse struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	ClientIP string `json:"client_ip"`
	TokenIAT int64  `json:"token_iat,omitempty"`
	TokenEXP int64  `json:"token_exp,omitempty"`
}

// PasswordChangeRequest represents the change-own-password request body
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// RegisterAuthEndpoints registers login, whoami and password endpoints
func RegisterAuthEndpoints(s *server.Server) {
	usersStore := s.UsersStore
	auth := middleware.NewTokenAuthenticator(s.Issuer, s.Config.TrustedProxies)

	// POST /api/auth/login - no auth required
	s.Router.HandleFunc("/api/auth/login",
		handleLogin(usersStore, s.Issuer, s.Config.TrustedProxies)).Methods("POST")

	authRouter := s.Router.PathPrefix("/api/auth").Subrouter()
	authRouter.Use(auth.Middleware)

	authRouter.HandleFunc("/whoami", handleWhoami()).Methods("GET")
	authRouter.HandleFunc("/password", handlePasswordChange(usersStore)).Methods("PUT")
}

func handleLogin(usersStore store.UsersStore, issuer *token.Issuer, trustedProxies []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		clientIP := ""
		if ip := middleware.ClientIP(r, trustedProxies); ip != nil {
			clientIP = ip.String()
		}

		fail := func(reason string) {
			audit.Log(audit.LoginEvent{
				Username:     req.Username,
				ClientIP:     clientIP,
				Success:      false,
				ErrorMessage: reason,
			})
			respondWithError(w, http.StatusUnauthorized, "Invalid username or password")
		}

		user, err := usersStore.GetUserByUsername(req.Username)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				fail("unknown user")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if !user.Active {
			fail("account disabled")
			return
		}

		if !user.CheckPassword(req.Password) {
			fail("wrong password")
			return
		}

		signed, expiresAt, err := issuer.Issue(user.ID, user.Username, user.Role)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		_ = usersStore.TouchLastLogin(user.ID, time.Now())

		audit.Log(audit.LoginEvent{
			Username: user.Username,
			ClientIP: clientIP,
			Success:  true,
		})

		respondWithJSON(w, http.StatusOK, LoginResponse{
			Token:     signed,
			ExpiresAt: expiresAt,
			User:      user,
		})
	}
}

func handleWhoami() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Unable to determine identity")
			return
		}

		resp := WhoamiResponse{
			UserID:   id.UserID,
			Username: id.Username,
			Role:     id.Role,
			ClientIP: id.ClientIP(),
		}
		if !id.IssuedAt.IsZero() {
			resp.TokenIAT = id.IssuedAt.Unix()
		}
		if !id.ExpiresAt.IsZero() {
			resp.TokenEXP = id.ExpiresAt.Unix()
		}

		respondWithJSON(w, http.StatusOK, resp)
	}
}

func handlePasswordChange(usersStore store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Unable to determine identity")
			return
		}

		var req PasswordChangeRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		user, err := usersStore.GetUser(id.UserID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if !user.CheckPassword(req.CurrentPassword) {
			audit.Log(audit.PasswordEvent{
				Username:       id.Username,
				TargetUsername: id.Username,
				ClientIP:       id.ClientIP(),
				Success:        false,
				ErrorMessage:   "wrong current password",
			})
			respondWithError(w, http.StatusForbidden, "Current password is incorrect")
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
			Username:       id.Username,
			TargetUsername: id.Username,
			ClientIP:       id.ClientIP(),
			Success:        true,
		})

		respondWithJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
	}
}
