package endpoints

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// StatusResponse represents the response from /api/status
type StatusResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// RegisterStatusEndpoints registers the status and landing endpoints.
// Neither requires authentication; they are what load balancers and
// humans poke first.
func RegisterStatusEndpoints(s *server.Server) {
	healthStore := s.HealthStore

	s.Router.HandleFunc("/", handleLanding()).Methods("GET")
	s.Router.HandleFunc("/api/status", handleApiStatus(healthStore)).Methods("GET")
}

func panelVersion() string {
	version := os.Getenv("OPSDECK_VERSION_DISPLAY")
	if version == "" {
		version = "0.1.0"
	}
	return version
}

func handleLanding() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := panelVersion()

		// Check if JSON is requested via Accept header or format query param
		accept := r.Header.Get("Accept")
		format := r.URL.Query().Get("format")
		if format == "json" || strings.Contains(accept, "application/json") {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"version": version})
			return
		}

		html := `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width">
    <title>Opsdeck</title>
  </head>
  <body>
    <main>
      <h1>Opsdeck</h1>
      <p>Your Opsdeck server is running!</p>
      <dl>
        <dt>Details:</dt>
        <dd>Version ` + version + `</dd>
        <dt>More Info:</dt>
        <dd><a href="/api/status">API status</a></dd>
      </dl>
      <p>The panel API lives under <code>/api</code> and expects a bearer
      token from <code>POST /api/auth/login</code>.</p>
    </main>
  </body>
</html>
`

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}
}

func handleApiStatus(healthStore store.HealthStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			Status:   "ok",
			Version:  panelVersion(),
			Database: "ok",
		}

		code := http.StatusOK
		if err := healthStore.CheckConnectivity(); err != nil {
			resp.Status = "degraded"
			resp.Database = "error"
			code = http.StatusServiceUnavailable
		}

		respondWithJSON(w, code, resp)
	}
}
