package endpoints

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/opsdeck/opsdeck/pkg/audit"
	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/middleware"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

const pingTimeout = 5 * time.Second

// ServerRequest represents the create/update server request body
type ServerRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=128"`
	Host         string `json:"host" validate:"required"`
	Port         int    `json:"port" validate:"omitempty,min=1,max=65535"`
	SSHUser      string `json:"ssh_user"`
	CredentialID *uint  `json:"credential_id"`
	JumpHostID   *uint  `json:"jump_host_id"`
	OS           string `json:"os"`
	Arch         string `json:"arch"`
	Tags         string `json:"tags"`
	Notes        string `json:"notes"`
}

// PingResponse represents a connectivity probe result
type PingResponse struct {
	Reachable bool    `json:"reachable"`
	LatencyMs float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

// RegisterServersEndpoints registers server inventory endpoints
func RegisterServersEndpoints(s *server.Server) {
	serversStore := s.ServersStore
	credentialsStore := s.CredentialsStore
	metricsStore := s.MetricsStore
	cfg := s.Config
	auth := middleware.NewTokenAuthenticator(s.Issuer, cfg.TrustedProxies)

	router := s.Router.PathPrefix("/api/servers").Subrouter()
	router.Use(auth.Middleware)

	router.HandleFunc("", handleListServers(serversStore, cfg)).Methods("GET")
	router.HandleFunc("", middleware.RequireOperator(handleCreateServer(serversStore, credentialsStore))).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}", handleGetServer(serversStore)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", middleware.RequireOperator(handleUpdateServer(serversStore, credentialsStore))).Methods("PUT")
	router.HandleFunc("/{id:[0-9]+}", middleware.RequireOperator(handleDeleteServer(serversStore))).Methods("DELETE")
	router.HandleFunc("/{id:[0-9]+}/ping", middleware.RequireOperator(handlePingServer(serversStore))).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/agent-key", middleware.RequireAdmin(handleResetAgentKey(serversStore))).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/metrics", handleServerMetrics(serversStore, metricsStore, cfg)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}/metrics/latest", handleLatestServerMetric(serversStore, metricsStore)).Methods("GET")
}

// checkServerRefs validates the credential and jump host references on a
// server request. Returns false with the response already written on
// failure. A server cannot be its own jump host; deeper cycles are caught
// when the terminal resolves the chain.
func checkServerRefs(w http.ResponseWriter, req *ServerRequest, selfID uint, serversStore store.ServersStore, credentialsStore store.CredentialsStore) bool {
	if req.CredentialID != nil {
		if _, err := credentialsStore.GetCredential(*req.CredentialID); err != nil {
			if errors.Is(err, store.ErrCredentialNotFound) {
				respondWithError(w, http.StatusBadRequest, "Referenced credential does not exist")
				return false
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return false
		}
	}
	if req.JumpHostID != nil {
		if selfID != 0 && *req.JumpHostID == selfID {
			respondWithError(w, http.StatusBadRequest, "A server cannot be its own jump host")
			return false
		}
		if _, err := serversStore.GetServer(*req.JumpHostID); err != nil {
			if errors.Is(err, store.ErrServerNotFound) {
				respondWithError(w, http.StatusBadRequest, "Referenced jump host does not exist")
				return false
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return false
		}
	}
	return true
}

func handleListServers(serversStore store.ServersStore, cfg *config.OpsdeckConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search, limit, offset := listParams(r, cfg)

		if wantsCount(r) {
			count, err := serversStore.CountServers(search)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			respondWithJSON(w, http.StatusOK, map[string]int64{"count": count})
			return
		}

		servers, err := serversStore.ListServers(search, limit, offset)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, servers)
	}
}

func handleCreateServer(serversStore store.ServersStore, credentialsStore store.CredentialsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		var req ServerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if !checkServerRefs(w, &req, 0, serversStore, credentialsStore) {
			return
		}

		srv := &model.Server{
			Name:         req.Name,
			Host:         req.Host,
			Port:         req.Port,
			SSHUser:      req.SSHUser,
			CredentialID: req.CredentialID,
			JumpHostID:   req.JumpHostID,
			OS:           req.OS,
			Arch:         req.Arch,
			Tags:         req.Tags,
			Notes:        req.Notes,
		}

		if err := serversStore.CreateServer(srv); err != nil {
			if errors.Is(err, store.ErrServerNameTaken) {
				audit.Log(audit.ResourceEvent{
					Username: actor, ClientIP: clientIP, Operation: model.ActionCreate,
					Kind: "server", Name: req.Name, Success: false, ErrorMessage: "name taken",
				})
				respondWithError(w, http.StatusConflict, "Server name already taken")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionCreate,
			Kind: "server", ResourceID: idString(srv.ID), Name: srv.Name, Success: true,
		})
		respondWithJSON(w, http.StatusCreated, srv)
	}
}

func handleGetServer(serversStore store.ServersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		srv, err := serversStore.GetServer(id)
		if err != nil {
			if errors.Is(err, store.ErrServerNotFound) {
				respondWithError(w, http.StatusNotFound, "Server not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, srv)
	}
}

func handleUpdateServer(serversStore store.ServersStore, credentialsStore store.CredentialsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		var req ServerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if !checkServerRefs(w, &req, id, serversStore, credentialsStore) {
			return
		}

		srv, err := serversStore.GetServer(id)
		if err != nil {
			if errors.Is(err, store.ErrServerNotFound) {
				respondWithError(w, http.StatusNotFound, "Server not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		srv.Name = req.Name
		srv.Host = req.Host
		if req.Port != 0 {
			srv.Port = req.Port
		}
		srv.SSHUser = req.SSHUser
		srv.CredentialID = req.CredentialID
		srv.JumpHostID = req.JumpHostID
		srv.OS = req.OS
		srv.Arch = req.Arch
		srv.Tags = req.Tags
		srv.Notes = req.Notes

		if err := serversStore.UpdateServer(srv); err != nil {
			if errors.Is(err, store.ErrServerNameTaken) {
				respondWithError(w, http.StatusConflict, "Server name already taken")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionUpdate,
			Kind: "server", ResourceID: idString(srv.ID), Name: srv.Name, Success: true,
		})
		respondWithJSON(w, http.StatusOK, srv)
	}
}

func handleDeleteServer(serversStore store.ServersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := serversStore.DeleteServer(id); err != nil {
			if errors.Is(err, store.ErrServerNotFound) {
				audit.Log(audit.ResourceEvent{
					Username: actor, ClientIP: clientIP, Operation: model.ActionDelete,
					Kind: "server", ResourceID: idString(id), Success: false, ErrorMessage: "not found",
				})
				respondWithError(w, http.StatusNotFound, "Server not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionDelete,
			Kind: "server", ResourceID: idString(id), Success: true,
		})
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// tcpPing dials addr and reports reachability plus dial latency.
func tcpPing(addr string) PingResponse {
	start := time.Now()
	conn, err := net.DialTimeout("tcp", addr, pingTimeout)
	latency := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		return PingResponse{Reachable: false, LatencyMs: latency, Error: err.Error()}
	}
	_ = conn.Close()
	return PingResponse{Reachable: true, LatencyMs: latency}
}

func handlePingServer(serversStore store.ServersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		srv, err := serversStore.GetServer(id)
		if err != nil {
			if errors.Is(err, store.ErrServerNotFound) {
				respondWithError(w, http.StatusNotFound, "Server not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		addr := net.JoinHostPort(srv.Host, strconv.Itoa(srv.Port))
		respondWithJSON(w, http.StatusOK, tcpPing(addr))
	}
}

func handleResetAgentKey(serversStore store.ServersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		key, err := serversStore.ResetAgentKey(id)
		if err != nil {
			if errors.Is(err, store.ErrServerNotFound) {
				respondWithError(w, http.StatusNotFound, "Server not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionUpdate,
			Kind: "server", ResourceID: idString(id), Name: "agent key rotated", Success: true,
		})
		respondWithJSON(w, http.StatusOK, map[string]string{"agent_key": key})
	}
}

func handleServerMetrics(serversStore store.ServersStore, metricsStore store.MetricsStore, cfg *config.OpsdeckConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		if _, err := serversStore.GetServer(id); err != nil {
			if errors.Is(err, store.ErrServerNotFound) {
				respondWithError(w, http.StatusNotFound, "Server not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		since, until, err := timeRange(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		_, limit, _ := listParams(r, cfg)

		samples, err := metricsStore.ServerMetrics(id, since, until, limit)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, samples)
	}
}

func handleLatestServerMetric(serversStore store.ServersStore, metricsStore store.MetricsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		if _, err := serversStore.GetServer(id); err != nil {
			if errors.Is(err, store.ErrServerNotFound) {
				respondWithError(w, http.StatusNotFound, "Server not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		sample, err := metricsStore.LatestServerMetric(id)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if sample == nil {
			respondWithError(w, http.StatusNotFound, "Server has not reported any metrics")
			return
		}
		respondWithJSON(w, http.StatusOK, sample)
	}
}
