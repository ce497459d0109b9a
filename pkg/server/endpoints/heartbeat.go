package endpoints

import (
	"errors"
	"net/http"
	"time"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/monitor"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// HeartbeatRequest is the sample an agent posts. The shape mirrors what
// gopsutil reports on the agent side; usage values are percentages.
type HeartbeatRequest struct {
	Hostname      string  `json:"hostname"`
	OS            string  `json:"os"`
	Arch          string  `json:"arch"`
	CPUUsage      float64 `json:"cpu_usage" validate:"min=0,max=100"`
	MemoryUsage   float64 `json:"memory_usage" validate:"min=0,max=100"`
	MemoryTotal   uint64  `json:"memory_total"`
	DiskUsage     float64 `json:"disk_usage" validate:"min=0,max=100"`
	DiskTotal     uint64  `json:"disk_total"`
	NetInBytes    uint64  `json:"net_in_bytes"`
	NetOutBytes   uint64  `json:"net_out_bytes"`
	Load1         float64 `json:"load1"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
}

// RegisterHeartbeatEndpoints registers the agent ingest endpoint. Agents
// authenticate with their per-server key, not a user token, so the route
// sits outside the token middleware.
func RegisterHeartbeatEndpoints(s *server.Server) {
	serversStore := s.ServersStore
	metricsStore := s.MetricsStore
	hub := s.Hub

	s.Router.HandleFunc("/api/agent/heartbeat", handleHeartbeat(serversStore, metricsStore, hub)).Methods("POST")
}

func handleHeartbeat(serversStore store.ServersStore, metricsStore store.MetricsStore, hub *monitor.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Agent-Key")
		if key == "" {
			respondWithError(w, http.StatusUnauthorized, "Agent key missing")
			return
		}

		srv, err := serversStore.GetServerByAgentKey(key)
		if err != nil {
			if errors.Is(err, store.ErrServerNotFound) {
				respondWithError(w, http.StatusUnauthorized, "Unknown agent key")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		var req HeartbeatRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		now := time.Now().UTC()
		sample := &model.ServerMetric{
			ServerID:      srv.ID,
			Time:          now,
			CPUUsage:      req.CPUUsage,
			MemoryUsage:   req.MemoryUsage,
			MemoryTotal:   req.MemoryTotal,
			DiskUsage:     req.DiskUsage,
			DiskTotal:     req.DiskTotal,
			NetInBytes:    req.NetInBytes,
			NetOutBytes:   req.NetOutBytes,
			Load1:         req.Load1,
			UptimeSeconds: req.UptimeSeconds,
		}
		if err := metricsStore.InsertServerMetric(sample); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		// Facts like OS and arch rarely change; only rewrite the row when
		// they did.
		if (req.OS != "" && req.OS != srv.OS) || (req.Arch != "" && req.Arch != srv.Arch) {
			if req.OS != "" {
				srv.OS = req.OS
			}
			if req.Arch != "" {
				srv.Arch = req.Arch
			}
			srv.Status = model.StatusOnline
			srv.LastSeenAt = &now
			if err := serversStore.UpdateServer(srv); err != nil {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
		} else if err := serversStore.SetServerStatus(srv.ID, model.StatusOnline, &now); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		hub.Broadcast(monitor.Event{
			Type: monitor.EventHeartbeat,
			Payload: map[string]interface{}{
				"server_id":    srv.ID,
				"server_name":  srv.Name,
				"status":       model.StatusOnline,
				"cpu_usage":    req.CPUUsage,
				"memory_usage": req.MemoryUsage,
				"disk_usage":   req.DiskUsage,
				"load1":        req.Load1,
				"time":         now,
			},
		})
		monitor.HeartbeatsReceived.Inc()

		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
