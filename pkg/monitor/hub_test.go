package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = ServeWS(hub, w, r)
	}))
	defer ts.Close()

	first := dialHub(t, ts)
	defer first.Close()
	second := dialHub(t, ts)
	defer second.Close()

	// Registration completes once the hub loop picks the clients up.
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(Event{Type: EventHeartbeat, Payload: map[string]interface{}{"server_id": float64(1)}})

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

		var event Event
		require.NoError(t, conn.ReadJSON(&event))
		assert.Equal(t, EventHeartbeat, event.Type)

		payload, ok := event.Payload.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(1), payload["server_id"])
	}
}

func TestHubSurvivesClientDisconnect(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = ServeWS(hub, w, r)
	}))
	defer ts.Close()

	gone := dialHub(t, ts)
	stays := dialHub(t, ts)
	defer stays.Close()

	time.Sleep(50 * time.Millisecond)
	_ = gone.Close()
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(Event{Type: EventSiteStatus})

	require.NoError(t, stays.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event Event
	require.NoError(t, stays.ReadJSON(&event))
	assert.Equal(t, EventSiteStatus, event.Type)
}
