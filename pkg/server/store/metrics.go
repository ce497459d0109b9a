package store

import (
	"time"

	"github.com/opsdeck/opsdeck/pkg/model"
)

// MetricsStore abstracts the time-series tables. Inserts are append-only;
// series queries return samples between from and to, newest first, capped
// by limit.
type MetricsStore interface {
	// InsertServerMetric appends one heartbeat sample.
	InsertServerMetric(m *model.ServerMetric) error

	// ServerMetrics returns samples for a server.
	ServerMetrics(serverID uint, from, to time.Time, limit int) ([]model.ServerMetric, error)

	// LatestServerMetric returns the newest sample for a server, or nil
	// when none exist.
	LatestServerMetric(serverID uint) (*model.ServerMetric, error)

	// InsertDeviceMetric appends one reachability probe result.
	InsertDeviceMetric(m *model.DeviceMetric) error

	// DeviceMetrics returns samples for a device.
	DeviceMetrics(deviceID uint, from, to time.Time, limit int) ([]model.DeviceMetric, error)

	// InsertSiteAvailability appends one health check result.
	InsertSiteAvailability(m *model.SiteAvailability) error

	// SiteAvailability returns check results for a site.
	SiteAvailability(siteID uint, from, to time.Time, limit int) ([]model.SiteAvailability, error)

	// SiteSuccessRate returns the success percentage and sample count over
	// the site's most recent window checks.
	SiteSuccessRate(siteID uint, window int) (float64, int, error)

	// InsertDatabaseMetric appends one database probe result.
	InsertDatabaseMetric(m *model.DatabaseMetric) error

	// DatabaseMetrics returns samples for a database.
	DatabaseMetrics(databaseID uint, from, to time.Time, limit int) ([]model.DatabaseMetric, error)
}
