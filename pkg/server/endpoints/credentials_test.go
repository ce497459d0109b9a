package endpoints

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/opsdeck/opsdeck/pkg/identity"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

func TestHandleCreateCredential(t *testing.T) {
	t.Run("creates a credential without echoing the secret", func(t *testing.T) {
		credentialsStore := NewMockCredentialsStore()
		credentialsStore.On("CreateCredential", mock.AnythingOfType("*model.Credential")).
			Run(func(args mock.Arguments) {
				args.Get(0).(*model.Credential).ID = 11
			}).
			Return(nil)

		handler := handleCreateCredential(credentialsStore)

		req := requestWithIdentity("POST", "/api/credentials",
			`{"name": "db-root", "kind": "password", "username": "postgres", "secret": "tr1ple-s3cret"}`,
			testIdentity(3, "opal", identity.RoleOperator))
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(11), body["id"])
		assert.Equal(t, "db-root", body["name"])
		assert.NotContains(t, w.Body.String(), "tr1ple-s3cret")
	})

	t.Run("a fresh uid is minted per credential", func(t *testing.T) {
		var uids []string
		credentialsStore := NewMockCredentialsStore()
		credentialsStore.On("CreateCredential", mock.AnythingOfType("*model.Credential")).
			Run(func(args mock.Arguments) {
				uids = append(uids, args.Get(0).(*model.Credential).UID)
			}).
			Return(nil)

		handler := handleCreateCredential(credentialsStore)

		for _, name := range []string{"first", "second"} {
			req := requestWithIdentity("POST", "/api/credentials",
				`{"name": "`+name+`", "kind": "password", "secret": "s3cret"}`,
				testIdentity(3, "opal", identity.RoleOperator))
			w := httptest.NewRecorder()
			handler(w, req)
			assert.Equal(t, http.StatusCreated, w.Code)
		}

		assert.Len(t, uids, 2)
		assert.NotEmpty(t, uids[0])
		assert.NotEqual(t, uids[0], uids[1])
	})

	t.Run("missing secret is rejected", func(t *testing.T) {
		credentialsStore := NewMockCredentialsStore()

		handler := handleCreateCredential(credentialsStore)

		req := requestWithIdentity("POST", "/api/credentials",
			`{"name": "db-root", "kind": "password"}`,
			testIdentity(3, "opal", identity.RoleOperator))
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Secret value is required")
		credentialsStore.AssertNotCalled(t, "CreateCredential", mock.Anything)
	})

	t.Run("unsupported kind fails validation", func(t *testing.T) {
		credentialsStore := NewMockCredentialsStore()

		handler := handleCreateCredential(credentialsStore)

		req := requestWithIdentity("POST", "/api/credentials",
			`{"name": "db-root", "kind": "api_token", "secret": "s3cret"}`,
			testIdentity(3, "opal", identity.RoleOperator))
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "validation failed")
		assert.Contains(t, w.Body.String(), "kind")
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		credentialsStore := NewMockCredentialsStore()
		credentialsStore.On("CreateCredential", mock.AnythingOfType("*model.Credential")).
			Return(store.ErrCredentialNameTaken)

		handler := handleCreateCredential(credentialsStore)

		req := requestWithIdentity("POST", "/api/credentials",
			`{"name": "db-root", "kind": "password", "secret": "s3cret"}`,
			testIdentity(3, "opal", identity.RoleOperator))
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "Credential name already taken")
	})
}

func TestHandleGetCredential(t *testing.T) {
	t.Run("returns the credential metadata", func(t *testing.T) {
		credentialsStore := NewMockCredentialsStore()
		credentialsStore.On("GetCredential", uint(11)).Return(&model.Credential{
			ID: 11, UID: "b4f9ad51-0a5f-4d52-9f1b-6d1a20c2b7aa", Name: "db-root",
			Kind: model.CredentialPassword, Username: "postgres", Secret: []byte("tr1ple-s3cret"),
		}, nil)

		handler := handleGetCredential(credentialsStore)

		req := requestWithIdentity("GET", "/api/credentials/11", "", testIdentity(3, "opal", identity.RoleOperator))
		req = withMuxVars(req, map[string]string{"id": "11"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "db-root")
		// Secret bytes are json:"-" so metadata reads never leak the value
		assert.NotContains(t, w.Body.String(), "tr1ple-s3cret")
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		credentialsStore := NewMockCredentialsStore()
		credentialsStore.On("GetCredential", uint(999)).Return(nil, store.ErrCredentialNotFound)

		handler := handleGetCredential(credentialsStore)

		req := requestWithIdentity("GET", "/api/credentials/999", "", testIdentity(3, "opal", identity.RoleOperator))
		req = withMuxVars(req, map[string]string{"id": "999"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Credential not found")
	})
}

func TestHandleRevealCredential(t *testing.T) {
	t.Run("returns the decrypted value", func(t *testing.T) {
		credentialsStore := NewMockCredentialsStore()
		credentialsStore.On("GetCredential", uint(11)).Return(&model.Credential{
			ID: 11, UID: "b4f9ad51-0a5f-4d52-9f1b-6d1a20c2b7aa", Name: "db-root",
			Kind: model.CredentialPassword, Secret: []byte("tr1ple-s3cret"),
		}, nil)

		handler := handleRevealCredential(credentialsStore)

		req := requestWithIdentity("GET", "/api/credentials/11/value", "", testIdentity(1, "root", identity.RoleAdmin))
		req = withMuxVars(req, map[string]string{"id": "11"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "tr1ple-s3cret", body["secret"])
		assert.Equal(t, "db-root", body["name"])
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		credentialsStore := NewMockCredentialsStore()
		credentialsStore.On("GetCredential", uint(999)).Return(nil, store.ErrCredentialNotFound)

		handler := handleRevealCredential(credentialsStore)

		req := requestWithIdentity("GET", "/api/credentials/999/value", "", testIdentity(1, "root", identity.RoleAdmin))
		req = withMuxVars(req, map[string]string{"id": "999"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleDeleteCredential(t *testing.T) {
	t.Run("deletes an unreferenced credential", func(t *testing.T) {
		credentialsStore := NewMockCredentialsStore()
		credentialsStore.On("DeleteCredential", uint(11)).Return(nil)

		handler := handleDeleteCredential(credentialsStore)

		req := requestWithIdentity("DELETE", "/api/credentials/11", "", testIdentity(3, "opal", identity.RoleOperator))
		req = withMuxVars(req, map[string]string{"id": "11"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "deleted", body["status"])
	})

	t.Run("a referenced credential cannot be deleted", func(t *testing.T) {
		credentialsStore := NewMockCredentialsStore()
		credentialsStore.On("DeleteCredential", uint(11)).Return(store.ErrCredentialInUse)

		handler := handleDeleteCredential(credentialsStore)

		req := requestWithIdentity("DELETE", "/api/credentials/11", "", testIdentity(3, "opal", identity.RoleOperator))
		req = withMuxVars(req, map[string]string{"id": "11"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "still referenced")
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		credentialsStore := NewMockCredentialsStore()
		credentialsStore.On("DeleteCredential", uint(999)).Return(store.ErrCredentialNotFound)

		handler := handleDeleteCredential(credentialsStore)

		req := requestWithIdentity("DELETE", "/api/credentials/999", "", testIdentity(3, "opal", identity.RoleOperator))
		req = withMuxVars(req, map[string]string{"id": "999"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
