package identity

import (
	"context"
	"net"
	"time"

	"github.com/opsdeck/opsdeck/pkg/token"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Identity.
	Key ContextKey = "identity"
)

// Roles, from most to least privileged. Admins manage users, credentials
// and settings; operators manage inventory and run terminals and backups;
// viewers read.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleOperator, RoleViewer:
		return true
	}
	return false
}

// Identity represents the authenticated identity for a request.
// It combines token claims with request-specific context.
type Identity struct {
	// Token claims
	UserID    uint
	Username  string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time

	// Request context
	RemoteIP net.IP // Client IP address

	// The underlying parsed claims
	Claims *token.Claims
}

// FromClaims creates an Identity from parsed session token claims.
func FromClaims(claims *token.Claims) *Identity {
	id := &Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		Claims:   claims,
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id
}

// WithRemoteIP sets the remote IP address.
func (i *Identity) WithRemoteIP(ip net.IP) *Identity {
	i.RemoteIP = ip
	return i
}

// IsAdmin returns true for the admin role.
func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanOperate returns true for roles allowed to change inventory and run
// terminals and backup jobs.
func (i *Identity) CanOperate() bool {
	return i.Role == RoleAdmin || i.Role == RoleOperator
}

// ClientIP returns the remote IP as a string, or "" when unset.
func (i *Identity) ClientIP() string {
	if i.RemoteIP == nil {
		return ""
	}
	return i.RemoteIP.String()
}

// Get retrieves Identity from context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok
}

// Set stores Identity in context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}
