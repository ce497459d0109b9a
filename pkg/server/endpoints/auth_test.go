package endpoints

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
	"github.com/opsdeck/opsdeck/pkg/token"
)

func testIssuer() *token.Issuer {
	return token.NewIssuer([]byte(testTokenSecret), time.Hour)
}

func TestHandleLogin(t *testing.T) {
	issuer := testIssuer()

	alice := &model.User{ID: 7, Username: "alice", Role: "admin", Active: true}
	if err := alice.SetPassword("sup3r-secret-pw"); err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	t.Run("successful login", func(t *testing.T) {
		usersStore := NewMockUsersStore()
		usersStore.On("GetUserByUsername", "alice").Return(alice, nil)
		usersStore.On("TouchLastLogin", uint(7), mock.AnythingOfType("time.Time")).Return(nil)

		handler := handleLogin(usersStore, issuer, nil)

		req := httptest.NewRequest("POST", "/api/auth/login",
			strings.NewReader(`{"username": "alice", "password": "sup3r-secret-pw"}`))
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		signed, _ := body["token"].(string)
		assert.NotEmpty(t, signed)
		assert.NotEmpty(t, body["expires_at"])

		// The token must verify against the same issuer
		claims, err := issuer.Parse(signed)
		assert.NoError(t, err)
		assert.Equal(t, uint(7), claims.UserID)
		assert.Equal(t, "alice", claims.Username)
		assert.Equal(t, "admin", claims.Role)

		// The embedded user must not leak the hash
		assert.NotContains(t, w.Body.String(), "password_hash")
		assert.NotContains(t, w.Body.String(), alice.PasswordHash)

		usersStore.AssertCalled(t, "TouchLastLogin", uint(7), mock.AnythingOfType("time.Time"))
	})

	t.Run("wrong password", func(t *testing.T) {
		usersStore := NewMockUsersStore()
		usersStore.On("GetUserByUsername", "alice").Return(alice, nil)

		handler := handleLogin(usersStore, issuer, nil)

		req := httptest.NewRequest("POST", "/api/auth/login",
			strings.NewReader(`{"username": "alice", "password": "wrong"}`))
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid username or password")
		usersStore.AssertNotCalled(t, "TouchLastLogin", mock.Anything, mock.Anything)
	})

	t.Run("unknown user gets the same error", func(t *testing.T) {
		usersStore := NewMockUsersStore()
		usersStore.On("GetUserByUsername", "mallory").Return(nil, store.ErrUserNotFound)

		handler := handleLogin(usersStore, issuer, nil)

		req := httptest.NewRequest("POST", "/api/auth/login",
			strings.NewReader(`{"username": "mallory", "password": "whatever"}`))
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid username or password")
	})

	t.Run("disabled account gets the same error", func(t *testing.T) {
		bob := &model.User{ID: 8, Username: "bob", Role: "operator", Active: false}
		if err := bob.SetPassword("bobs-password-1"); err != nil {
			t.Fatalf("failed to hash password: %v", err)
		}

		usersStore := NewMockUsersStore()
		usersStore.On("GetUserByUsername", "bob").Return(bob, nil)

		handler := handleLogin(usersStore, issuer, nil)

		req := httptest.NewRequest("POST", "/api/auth/login",
			strings.NewReader(`{"username": "bob", "password": "bobs-password-1"}`))
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid username or password")
	})

	t.Run("malformed body", func(t *testing.T) {
		usersStore := NewMockUsersStore()

		handler := handleLogin(usersStore, issuer, nil)

		req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(`{not json`))
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		usersStore.AssertNotCalled(t, "GetUserByUsername", mock.Anything)
	})

	t.Run("missing password fails validation", func(t *testing.T) {
		usersStore := NewMockUsersStore()

		handler := handleLogin(usersStore, issuer, nil)

		req := httptest.NewRequest("POST", "/api/auth/login",
			strings.NewReader(`{"username": "alice"}`))
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "validation failed")
		usersStore.AssertNotCalled(t, "GetUserByUsername", mock.Anything)
	})
}

func TestHandleWhoami(t *testing.T) {
	t.Run("returns the authenticated identity", func(t *testing.T) {
		handler := handleWhoami()

		req := requestWithIdentity("GET", "/api/auth/whoami", "", testIdentity(3, "opal", "operator"))
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp WhoamiResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, uint(3), resp.UserID)
		assert.Equal(t, "opal", resp.Username)
		assert.Equal(t, "operator", resp.Role)
		assert.Equal(t, "127.0.0.1", resp.ClientIP)
	})

	t.Run("rejects requests without an identity", func(t *testing.T) {
		handler := handleWhoami()

		req := requestWithIdentity("GET", "/api/auth/whoami", "", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandlePasswordChange(t *testing.T) {
	t.Run("changes the password with the correct current one", func(t *testing.T) {
		user := &model.User{ID: 3, Username: "opal", Role: "operator", Active: true}
		if err := user.SetPassword("old-password-1"); err != nil {
			t.Fatalf("failed to hash password: %v", err)
		}
		oldHash := user.PasswordHash

		usersStore := NewMockUsersStore()
		usersStore.On("GetUser", uint(3)).Return(user, nil)
		usersStore.On("UpdateUser", mock.AnythingOfType("*model.User")).Return(nil)

		handler := handlePasswordChange(usersStore)

		req := requestWithIdentity("PUT", "/api/auth/password",
			`{"current_password": "old-password-1", "new_password": "new-password-1"}`,
			testIdentity(3, "opal", "operator"))
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEqual(t, oldHash, user.PasswordHash)
		assert.True(t, user.CheckPassword("new-password-1"))
		usersStore.AssertCalled(t, "UpdateUser", user)
	})

	t.Run("rejects a wrong current password", func(t *testing.T) {
		user := &model.User{ID: 3, Username: "opal", Role: "operator", Active: true}
		if err := user.SetPassword("old-password-1"); err != nil {
			t.Fatalf("failed to hash password: %v", err)
		}

		usersStore := NewMockUsersStore()
		usersStore.On("GetUser", uint(3)).Return(user, nil)

		handler := handlePasswordChange(usersStore)

		req := requestWithIdentity("PUT", "/api/auth/password",
			`{"current_password": "not-it", "new_password": "new-password-1"}`,
			testIdentity(3, "opal", "operator"))
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "Current password is incorrect")
		usersStore.AssertNotCalled(t, "UpdateUser", mock.Anything)
	})

	t.Run("rejects a short new password", func(t *testing.T) {
		usersStore := NewMockUsersStore()

		handler := handlePasswordChange(usersStore)

		req := requestWithIdentity("PUT", "/api/auth/password",
			`{"current_password": "old-password-1", "new_password": "short"}`,
			testIdentity(3, "opal", "operator"))
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "validation failed")
		usersStore.AssertNotCalled(t, "GetUser", mock.Anything)
	})
}

// Integration test - requires database
func TestAuthEndpoints(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	dataKey := make([]byte, 32)
	for i := range dataKey {
		dataKey[i] = byte(i)
	}

	testServer, err := NewTestServer(dbURL, dataKey)
	if err != nil {
		t.Fatalf("failed to create test server: %v", err)
	}

	// Cleanup before and after
	CleanupTestData(testServer.DB, "endpttest-")
	defer CleanupTestData(testServer.DB, "endpttest-")

	admin, err := SetupTestUser(testServer.DB, "endpttest-admin", "admin-password-1", "admin")
	if err != nil {
		t.Fatalf("failed to setup test user: %v", err)
	}

	RegisterAuthEndpoints(testServer)

	t.Run("successful login", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/auth/login",
			strings.NewReader(`{"username": "endpttest-admin", "password": "admin-password-1"}`))
		w := httptest.NewRecorder()

		testServer.Router.ServeHTTP(w, req)

		resp := w.Result()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, string(body))
		}

		var result LoginResponse
		body, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(body, &result); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if result.Token == "" {
			t.Error("expected a session token")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/auth/login",
			strings.NewReader(`{"username": "endpttest-admin", "password": "nope"}`))
		w := httptest.NewRecorder()

		testServer.Router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", w.Code)
		}
	})

	t.Run("whoami with a valid token", func(t *testing.T) {
		authToken, err := GenerateTestToken(testServer, admin)
		if err != nil {
			t.Fatalf("failed to generate auth token: %v", err)
		}

		req := httptest.NewRequest("GET", "/api/auth/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+authToken)
		w := httptest.NewRecorder()

		testServer.Router.ServeHTTP(w, req)

		resp := w.Result()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, string(body))
		}

		var result WhoamiResponse
		body, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(body, &result); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if result.Username != "endpttest-admin" {
			t.Errorf("expected username 'endpttest-admin', got %q", result.Username)
		}
		if result.Role != "admin" {
			t.Errorf("expected role 'admin', got %q", result.Role)
		}
	})

	t.Run("whoami without a token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/auth/whoami", nil)
		w := httptest.NewRecorder()

		testServer.Router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", w.Code)
		}
	})

	t.Run("whoami with an invalid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/auth/whoami", nil)
		req.Header.Set("Authorization", "Bearer not-a-real-token")
		w := httptest.NewRecorder()

		testServer.Router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", w.Code)
		}
	})
}
