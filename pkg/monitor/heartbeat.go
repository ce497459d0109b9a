package monitor

import (
	"context"
	"time"

	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// offlineSweepInterval is how often stale agents are looked for.
const offlineSweepInterval = 30 * time.Second

// HeartbeatWatcher flips servers to offline when their agent has been
// silent longer than the configured threshold.
type HeartbeatWatcher struct {
	servers   store.ServersStore
	dashboard store.DashboardStore
	hub       *Hub
	cfg       *config.OpsdeckConfig

	now func() time.Time
}

// NewHeartbeatWatcher creates a watcher. Run drives it.
func NewHeartbeatWatcher(servers store.ServersStore, dashboard store.DashboardStore, hub *Hub, cfg *config.OpsdeckConfig) *HeartbeatWatcher {
	return &HeartbeatWatcher{
		servers:   servers,
		dashboard: dashboard,
		hub:       hub,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run sweeps for stale agents until ctx is cancelled.
func (w *HeartbeatWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(offlineSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep marks overdue servers offline and pushes one event per flip.
func (w *HeartbeatWatcher) sweep() {
	cutoff := w.now().UTC().Add(-w.cfg.HeartbeatOfflineAfter())

	flipped, err := w.servers.MarkServersOffline(cutoff)
	if err != nil {
		return
	}

	for _, srv := range flipped {
		w.hub.Broadcast(Event{
			Type: EventHeartbeat,
			Payload: map[string]interface{}{
				"server_id":   srv.ID,
				"server_name": srv.Name,
				"status":      model.StatusOffline,
			},
		})
	}

	if counts, err := w.dashboard.Counts(); err == nil {
		ServersOnline.Set(float64(counts.ServersOnline))
	}
}
