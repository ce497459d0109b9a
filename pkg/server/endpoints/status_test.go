package endpoints

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleLanding(t *testing.T) {
	t.Run("returns HTML landing page", func(t *testing.T) {
		handler := handleLanding()

		req := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "Your Opsdeck server is running!")
	})

	t.Run("returns JSON when Accept header is application/json", func(t *testing.T) {
		handler := handleLanding()

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		assert.Contains(t, w.Body.String(), "version")
	})
}

func TestHandleApiStatus(t *testing.T) {
	t.Run("healthy database", func(t *testing.T) {
		healthStore := NewMockHealthStore()
		healthStore.On("CheckConnectivity").Return(nil)

		handler := handleApiStatus(healthStore)

		req := httptest.NewRequest("GET", "/api/status", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "ok", body["database"])
		assert.NotEmpty(t, body["version"])
	})

	t.Run("degraded when the database is unreachable", func(t *testing.T) {
		healthStore := NewMockHealthStore()
		healthStore.On("CheckConnectivity").Return(errors.New("connection refused"))

		handler := handleApiStatus(healthStore)

		req := httptest.NewRequest("GET", "/api/status", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "degraded", body["status"])
		assert.Equal(t, "error", body["database"])
	})

	t.Run("version comes from the environment override", func(t *testing.T) {
		t.Setenv("OPSDECK_VERSION_DISPLAY", "9.9.9-test")

		healthStore := NewMockHealthStore()
		healthStore.On("CheckConnectivity").Return(nil)

		handler := handleApiStatus(healthStore)

		req := httptest.NewRequest("GET", "/api/status", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		body := decodeBody(t, w)
		assert.Equal(t, "9.9.9-test", body["version"])
	})
}
