package monitor

import (
	"context"
	"database/sql"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/lib/pq"

	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// probeTimeout bounds one reachability probe.
const probeTimeout = 5 * time.Second

// tcpProbe dials addr and reports reachability plus latency.
func tcpProbe(addr string) (bool, float64) {
	start := time.Now()
	conn, err := net.DialTimeout("tcp", addr, probeTimeout)
	latency := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		return false, latency
	}
	_ = conn.Close()
	return true, latency
}

// DeviceChecker probes network devices over TCP on the global check
// interval and records reachability samples.
type DeviceChecker struct {
	devices store.DevicesStore
	metrics store.MetricsStore
	hub     *Hub
	cfg     *config.OpsdeckConfig

	now func() time.Time
}

// NewDeviceChecker creates a checker. Run drives it.
func NewDeviceChecker(devices store.DevicesStore, metrics store.MetricsStore, hub *Hub, cfg *config.OpsdeckConfig) *DeviceChecker {
	return &DeviceChecker{
		devices: devices,
		metrics: metrics,
		hub:     hub,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Run probes all devices once per interval until ctx is cancelled.
func (c *DeviceChecker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.SiteCheckInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *DeviceChecker) sweep() {
	devices, err := c.devices.AllDevices()
	if err != nil {
		return
	}
	for i := range devices {
		c.probe(&devices[i])
	}
}

func (c *DeviceChecker) probe(device *model.NetworkDevice) {
	addr := net.JoinHostPort(device.Address, strconv.Itoa(device.ProbePort))
	reachable, latency := tcpProbe(addr)

	now := c.now().UTC()
	_ = c.metrics.InsertDeviceMetric(&model.DeviceMetric{
		DeviceID:  device.ID,
		Time:      now,
		Reachable: reachable,
		LatencyMs: latency,
	})
	ChecksTotal.WithLabelValues("device", checkResult(reachable)).Inc()

	status := model.StatusOffline
	var seenAt *time.Time
	if reachable {
		status = model.StatusOnline
		seenAt = &now
	}
	if err := c.devices.SetDeviceStatus(device.ID, status, seenAt); err != nil {
		return
	}

	if status != device.Status {
		c.hub.Broadcast(Event{
			Type: EventDeviceStatus,
			Payload: map[string]interface{}{
				"device_id":   device.ID,
				"device_name": device.Name,
				"from":        device.Status,
				"to":          status,
			},
		})
	}
}

// DatabaseChecker probes managed databases on the global check interval.
// Every engine gets a TCP reachability sample; postgres databases with a
// stored credential additionally report connection count and size.
type DatabaseChecker struct {
	databases   store.DatabasesStore
	credentials store.CredentialsStore
	metrics     store.MetricsStore
	hub         *Hub
	cfg         *config.OpsdeckConfig

	now func() time.Time
}

// NewDatabaseChecker creates a checker. Run drives it.
func NewDatabaseChecker(databases store.DatabasesStore, credentials store.CredentialsStore, metrics store.MetricsStore, hub *Hub, cfg *config.OpsdeckConfig) *DatabaseChecker {
	return &DatabaseChecker{
		databases:   databases,
		credentials: credentials,
		metrics:     metrics,
		hub:         hub,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Run probes all databases once per interval until ctx is cancelled.
func (c *DatabaseChecker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.SiteCheckInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *DatabaseChecker) sweep() {
	databases, err := c.databases.AllDatabases()
	if err != nil {
		return
	}
	for i := range databases {
		c.probe(&databases[i])
	}
}

func (c *DatabaseChecker) probe(database *model.Database) {
	addr := net.JoinHostPort(database.Host, strconv.Itoa(database.Port))
	reachable, latency := tcpProbe(addr)

	sample := &model.DatabaseMetric{
		DatabaseID: database.ID,
		Time:       c.now().UTC(),
		Reachable:  reachable,
		LatencyMs:  latency,
	}
	if reachable && database.Engine == model.EnginePostgres && database.CredentialID != nil {
		c.collectPostgresStats(database, sample)
	}
	_ = c.metrics.InsertDatabaseMetric(sample)
	ChecksTotal.WithLabelValues("database", checkResult(reachable)).Inc()

	status := model.StatusOffline
	var seenAt *time.Time
	if reachable {
		status = model.StatusOnline
		now := sample.Time
		seenAt = &now
	}
	if err := c.databases.SetDatabaseStatus(database.ID, status, seenAt); err != nil {
		return
	}

	if status != database.Status {
		c.hub.Broadcast(Event{
			Type: EventDatabaseStatus,
			Payload: map[string]interface{}{
				"database_id":   database.ID,
				"database_name": database.Name,
				"from":          database.Status,
				"to":            status,
			},
		})
	}
}

// collectPostgresStats fills connection and size figures over a short
// lived connection. Failures leave the sample's zero values in place.
func (c *DatabaseChecker) collectPostgresStats(database *model.Database, sample *model.DatabaseMetric) {
	cred, err := c.credentials.GetCredential(*database.CredentialID)
	if err != nil {
		return
	}

	path := "/postgres"
	if database.DBName != "" {
		path = "/" + database.DBName
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(database.Host, strconv.Itoa(database.Port)),
		Path:   path,
	}
	if database.Username != "" {
		u.User = url.UserPassword(database.Username, string(cred.Secret))
	}
	q := u.Query()
	q.Set("sslmode", "disable")
	q.Set("connect_timeout", "5")
	u.RawQuery = q.Encode()

	conn, err := sql.Open("postgres", u.String())
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	var connections int
	if err := conn.QueryRowContext(ctx,
		"SELECT numbackends FROM pg_stat_database WHERE datname = current_database()",
	).Scan(&connections); err == nil {
		sample.Connections = connections
	}

	var size int64
	if err := conn.QueryRowContext(ctx,
		"SELECT pg_database_size(current_database())",
	).Scan(&size); err == nil {
		sample.SizeBytes = size
	}
}
