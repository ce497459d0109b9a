package endpoints

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/opsdeck/opsdeck/pkg/audit"
	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/monitor"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/middleware"
	"github.com/opsdeck/opsdeck/pkg/server/store"
	"github.com/opsdeck/opsdeck/pkg/terminal"
)

// The panel fronts its own CORS; the websocket accepts any origin.
var terminalUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// RegisterTerminalEndpoints adds the interactive SSH terminal websocket
// and the administrative session routes.
func RegisterTerminalEndpoints(s *server.Server) {
	cfg := s.Config
	auth := middleware.NewTokenAuthenticator(s.Issuer, cfg.TrustedProxies)
	dialer := terminal.NewDialer(s.ServersStore, s.CredentialsStore)

	api := s.Router.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware)

	api.HandleFunc("/servers/{id:[0-9]+}/ssh/terminal",
		middleware.RequireOperator(handleTerminal(dialer, s.Sessions, s.ServersStore, cfg))).Methods("GET")

	api.HandleFunc("/terminal/sessions",
		middleware.RequireAdmin(handleListTerminalSessions(s.Sessions))).Methods("GET")
	api.HandleFunc("/terminal/sessions/{id}",
		middleware.RequireAdmin(handleCloseTerminalSession(s.Sessions))).Methods("DELETE")
}

func handleTerminal(dialer *terminal.Dialer, sessions *terminal.Registry, serversStore store.ServersStore, cfg *config.OpsdeckConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid server ID")
			return
		}
		username, clientIP := requestIdentity(r)

		srv, err := serversStore.GetServer(id)
		if err != nil {
			if errors.Is(err, store.ErrServerNotFound) {
				respondWithError(w, http.StatusNotFound, "Server not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if srv.Status == model.StatusOffline {
			respondWithError(w, http.StatusServiceUnavailable, "Server is offline")
			return
		}
		if srv.CredentialID == nil {
			respondWithError(w, http.StatusConflict, "Server has no SSH credential assigned")
			return
		}

		cols, _ := strconv.Atoi(r.URL.Query().Get("cols"))
		rows, _ := strconv.Atoi(r.URL.Query().Get("rows"))

		// Refusals are done; from here on errors travel over the socket.
		ws, err := terminalUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		failed := func(err error) {
			audit.Log(audit.TerminalEvent{
				Username:     username,
				ClientIP:     clientIP,
				ServerID:     idString(srv.ID),
				ServerName:   srv.Name,
				Success:      false,
				ErrorMessage: err.Error(),
			})
			_ = ws.WriteJSON(terminal.Message{Type: terminal.MessageError, Message: err.Error()})
			_ = ws.Close()
		}

		client, cleanup, err := dialer.Connect(srv)
		if err != nil {
			failed(err)
			return
		}

		sess, err := terminal.Open(ws, client, cleanup, srv, username, clientIP, cols, rows)
		if err != nil {
			cleanup()
			failed(err)
			return
		}

		sessions.Add(sess)
		monitor.TerminalSessions.Inc()
		audit.Log(audit.TerminalEvent{
			Username:   username,
			ClientIP:   clientIP,
			ServerID:   idString(srv.ID),
			ServerName: srv.Name,
			SessionID:  sess.ID,
			Success:    true,
		})

		sess.Run(cfg.TerminalIdleTimeout())

		sessions.Remove(sess.ID)
		monitor.TerminalSessions.Dec()
		audit.Log(audit.TerminalEvent{
			Username:   username,
			ClientIP:   clientIP,
			ServerID:   idString(srv.ID),
			ServerName: srv.Name,
			SessionID:  sess.ID,
			Closed:     true,
			Duration:   time.Since(sess.StartedAt),
			Success:    true,
		})
	}
}

func handleListTerminalSessions(sessions *terminal.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, sessions.List())
	}
}

// handleCloseTerminalSession force-closes a session. The goroutine that
// opened it observes the close and writes the audit trail, so none is
// written here.
func handleCloseTerminalSession(sessions *terminal.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if !sessions.Close(id) {
			respondWithError(w, http.StatusNotFound, "Terminal session not found")
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "closed"})
	}
}
