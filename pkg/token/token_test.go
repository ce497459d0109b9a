package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)

	signed, expiresAt, err := issuer.Issue(42, "alice", "operator")
	require.NoError(t, err)
	require.NotEmpty(t, signed)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := issuer.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "operator", claims.Role)
	assert.Equal(t, "opsdeck", claims.Issuer)
}

func TestParse_Expired(t *testing.T) {
	issuer := NewIssuer(testSecret, -time.Minute)

	signed, _, err := issuer.Issue(1, "bob", "viewer")
	require.NoError(t, err)

	_, err = issuer.Parse(signed)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestParse_WrongSecret(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)
	other := NewIssuer([]byte("ffffffffffffffffffffffffffffffff"), time.Hour)

	signed, _, err := issuer.Issue(1, "bob", "viewer")
	require.NoError(t, err)

	_, err = other.Parse(signed)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParse_Garbage(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)

	_, err := issuer.Parse("not.a.token")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParse_RejectsUnsignedAlg(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)

	// alg=none must never be accepted even with a "valid" payload
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID:   1,
		Username: "mallory",
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestLoadSecret(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		t.Setenv(SecretEnv, "")
		_, err := LoadSecret()
		assert.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		t.Setenv(SecretEnv, "short")
		_, err := LoadSecret()
		assert.Error(t, err)
	})

	t.Run("ok", func(t *testing.T) {
		t.Setenv(SecretEnv, string(testSecret))
		secret, err := LoadSecret()
		require.NoError(t, err)
		assert.Equal(t, testSecret, secret)
	})
}
