package gorm

import (
	"time"

	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// Ensure MetricsStore implements store.MetricsStore
var _ store.MetricsStore = (*MetricsStore)(nil)

// MetricsStore implements store.MetricsStore using GORM. The hypertables
// have no surrogate primary key, so everything goes through explicit
// table-scoped queries rather than First/Save.
type MetricsStore struct {
	db *gorm.DB
}

// NewMetricsStore creates a new MetricsStore
func NewMetricsStore(db *gorm.DB) *MetricsStore {
	return &MetricsStore{db: db}
}

func seriesScope(tx *gorm.DB, ownerColumn string, ownerID uint, from, to time.Time, limit int) *gorm.DB {
	tx = tx.Where(ownerColumn+" = ?", ownerID)
	if !from.IsZero() {
		tx = tx.Where("time >= ?", from)
	}
	if !to.IsZero() {
		tx = tx.Where("time < ?", to)
	}
	tx = tx.Order("time DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	return tx
}

// InsertServerMetric appends one heartbeat sample.
func (s *MetricsStore) InsertServerMetric(m *model.ServerMetric) error {
	return s.db.Create(m).Error
}

// ServerMetrics returns samples for a server, newest first.
func (s *MetricsStore) ServerMetrics(serverID uint, from, to time.Time, limit int) ([]model.ServerMetric, error) {
	var samples []model.ServerMetric
	tx := seriesScope(s.db.Model(&model.ServerMetric{}), "server_id", serverID, from, to, limit)
	err := tx.Find(&samples).Error
	return samples, err
}

// LatestServerMetric returns the newest sample for a server, or nil when the
// server has never reported.
func (s *MetricsStore) LatestServerMetric(serverID uint) (*model.ServerMetric, error) {
	var samples []model.ServerMetric
	err := s.db.Model(&model.ServerMetric{}).
		Where("server_id = ?", serverID).
		Order("time DESC").
		Limit(1).
		Find(&samples).Error
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, nil
	}
	return &samples[0], nil
}

// InsertDeviceMetric appends one reachability probe result.
func (s *MetricsStore) InsertDeviceMetric(m *model.DeviceMetric) error {
	return s.db.Create(m).Error
}

// DeviceMetrics returns samples for a device, newest first.
func (s *MetricsStore) DeviceMetrics(deviceID uint, from, to time.Time, limit int) ([]model.DeviceMetric, error) {
	var samples []model.DeviceMetric
	tx := seriesScope(s.db.Model(&model.DeviceMetric{}), "device_id", deviceID, from, to, limit)
	err := tx.Find(&samples).Error
	return samples, err
}

// InsertSiteAvailability appends one health check result.
func (s *MetricsStore) InsertSiteAvailability(m *model.SiteAvailability) error {
	return s.db.Create(m).Error
}

// SiteAvailability returns check results for a site, newest first.
func (s *MetricsStore) SiteAvailability(siteID uint, from, to time.Time, limit int) ([]model.SiteAvailability, error) {
	var samples []model.SiteAvailability
	tx := seriesScope(s.db.Model(&model.SiteAvailability{}), "site_id", siteID, from, to, limit)
	err := tx.Find(&samples).Error
	return samples, err
}

// SiteSuccessRate computes the success percentage over the site's most
// recent window checks. With no samples the rate is 100 so a fresh site
// doesn't come up flagged as down.
func (s *MetricsStore) SiteSuccessRate(siteID uint, window int) (float64, int, error) {
	if window <= 0 {
		window = 100
	}

	var result struct {
		Ups   int
		Total int
	}
	err := s.db.Raw(
		`SELECT COUNT(*) FILTER (WHERE up) AS ups, COUNT(*) AS total
		 FROM (
		   SELECT up FROM site_availability
		   WHERE site_id = ?
		   ORDER BY time DESC
		   LIMIT ?
		 ) recent`,
		siteID, window,
	).Scan(&result).Error
	if err != nil {
		return 0, 0, err
	}
	if result.Total == 0 {
		return 100, 0, nil
	}
	return float64(result.Ups) * 100 / float64(result.Total), result.Total, nil
}

// InsertDatabaseMetric appends one database probe result.
func (s *MetricsStore) InsertDatabaseMetric(m *model.DatabaseMetric) error {
	return s.db.Create(m).Error
}

// DatabaseMetrics returns samples for a database, newest first.
func (s *MetricsStore) DatabaseMetrics(databaseID uint, from, to time.Time, limit int) ([]model.DatabaseMetric, error) {
	var samples []model.DatabaseMetric
	tx := seriesScope(s.db.Model(&model.DatabaseMetric{}), "database_id", databaseID, from, to, limit)
	err := tx.Find(&samples).Error
	return samples, err
}
