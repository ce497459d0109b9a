package identity

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck/pkg/token"
)

func TestValidRole(t *testing.T) {
	tests := []struct {
		role     string
		expected bool
	}{
		{RoleAdmin, true},
		{RoleOperator, true},
		{RoleViewer, true},
		{"root", false},
		{"", false},
		{"Admin", false},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidRole(tt.role))
		})
	}
}

func TestFromClaims(t *testing.T) {
	issuedAt := time.Now().Truncate(time.Second)
	expiresAt := issuedAt.Add(time.Hour)

	claims := &token.Claims{
		UserID:   7,
		Username: "alice",
		Role:     RoleOperator,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	id := FromClaims(claims)
	assert.Equal(t, uint(7), id.UserID)
	assert.Equal(t, "alice", id.Username)
	assert.Equal(t, RoleOperator, id.Role)
	assert.Equal(t, issuedAt, id.IssuedAt)
	assert.Equal(t, expiresAt, id.ExpiresAt)
	assert.Equal(t, claims, id.Claims)
}

func TestFromClaims_NoTimestamps(t *testing.T) {
	id := FromClaims(&token.Claims{UserID: 1, Username: "bob", Role: RoleViewer})
	assert.True(t, id.IssuedAt.IsZero())
	assert.True(t, id.ExpiresAt.IsZero())
}

func TestIdentity_RoleChecks(t *testing.T) {
	tests := []struct {
		role       string
		isAdmin    bool
		canOperate bool
	}{
		{RoleAdmin, true, true},
		{RoleOperator, false, true},
		{RoleViewer, false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			id := &Identity{Role: tt.role}
			assert.Equal(t, tt.isAdmin, id.IsAdmin())
			assert.Equal(t, tt.canOperate, id.CanOperate())
		})
	}
}

func TestIdentity_ClientIP(t *testing.T) {
	id := &Identity{}
	assert.Equal(t, "", id.ClientIP())

	ip := net.ParseIP("192.168.1.100")
	id.WithRemoteIP(ip)
	assert.Equal(t, "192.168.1.100", id.ClientIP())
}

func TestContextGetSet(t *testing.T) {
	ctx := context.Background()

	// Initially no identity
	id, ok := Get(ctx)
	assert.False(t, ok)
	assert.Nil(t, id)

	// Set identity
	expected := &Identity{
		UserID:   3,
		Username: "alice",
		Role:     RoleAdmin,
	}
	ctx = Set(ctx, expected)

	// Get identity
	id, ok = Get(ctx)
	assert.True(t, ok)
	require.NotNil(t, id)
	assert.Equal(t, expected.UserID, id.UserID)
	assert.Equal(t, expected.Username, id.Username)
	assert.Equal(t, expected.Role, id.Role)
}
