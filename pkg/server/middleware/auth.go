package middleware

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/opsdeck/opsdeck/pkg/identity"
	"github.com/opsdeck/opsdeck/pkg/token"
)

// TokenAuthenticator is middleware that validates session tokens
type TokenAuthenticator struct {
	Issuer         *token.Issuer
	TrustedProxies []string
}

// NewTokenAuthenticator creates a new session token authenticator middleware
func NewTokenAuthenticator(issuer *token.Issuer, trustedProxies []string) *TokenAuthenticator {
	return &TokenAuthenticator{Issuer: issuer, TrustedProxies: trustedProxies}
}

func respondError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	respondError(w, http.StatusUnauthorized, message)
}

// bearerToken extracts the session token from the Authorization header or,
// for WebSocket endpoints where browsers cannot set headers, from the token
// query parameter.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// ClientIP resolves the client address for a request. X-Forwarded-For is
// only honored when the direct peer is a trusted proxy.
func ClientIP(r *http.Request, trustedProxies []string) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer := net.ParseIP(host)

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" || peer == nil || !trustedProxy(peer, trustedProxies) {
		return peer
	}

	// Leftmost entry is the originating client
	first := strings.TrimSpace(strings.Split(xff, ",")[0])
	if ip := net.ParseIP(first); ip != nil {
		return ip
	}
	return peer
}

func trustedProxy(ip net.IP, cidrs []string) bool {
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// Middleware returns an HTTP middleware that validates session tokens and
// stores the resulting identity in the request context.
func (a *TokenAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerToken(r)
		if tokenStr == "" {
			respondUnauthorized(w, "Authorization missing")
			return
		}

		claims, err := a.Issuer.Parse(tokenStr)
		if err != nil {
			if errors.Is(err, token.ErrExpired) {
				respondUnauthorized(w, "Token expired")
				return
			}
			respondUnauthorized(w, "Malformed authorization token")
			return
		}

		id := identity.FromClaims(claims).WithRemoteIP(ClientIP(r, a.TrustedProxies))
		r = r.WithContext(identity.Set(r.Context(), id))

		next.ServeHTTP(w, r)
	})
}

// RequireRole wraps a handler and rejects identities whose role is not in
// roles.
func RequireRole(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondUnauthorized(w, "Authorization missing")
			return
		}
		for _, role := range roles {
			if id.Role == role {
				next(w, r)
				return
			}
		}
		respondError(w, http.StatusForbidden, "Insufficient role")
	}
}

// RequireAdmin admits only the admin role.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return RequireRole(next, identity.RoleAdmin)
}

// RequireOperator admits the admin and operator roles.
func RequireOperator(next http.HandlerFunc) http.HandlerFunc {
	return RequireRole(next, identity.RoleAdmin, identity.RoleOperator)
}
