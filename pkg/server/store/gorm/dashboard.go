package gorm

import (
	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// Ensure DashboardStore implements store.DashboardStore
var _ store.DashboardStore = (*DashboardStore)(nil)

// DashboardStore implements store.DashboardStore using GORM
type DashboardStore struct {
	db *gorm.DB
}

// NewDashboardStore creates a new DashboardStore
func NewDashboardStore(db *gorm.DB) *DashboardStore {
	return &DashboardStore{db: db}
}

func (s *DashboardStore) count(m interface{}, query interface{}, args ...interface{}) (int64, error) {
	tx := s.db.Model(m)
	if query != nil {
		tx = tx.Where(query, args...)
	}
	var count int64
	err := tx.Count(&count).Error
	return count, err
}

// Counts returns resource totals and health tallies for the overview page.
func (s *DashboardStore) Counts() (*store.DashboardCounts, error) {
	counts := &store.DashboardCounts{}

	tally := []struct {
		dst   *int64
		model interface{}
		query interface{}
		args  []interface{}
	}{
		{&counts.Servers, &model.Server{}, nil, nil},
		{&counts.ServersOnline, &model.Server{}, "status = ?", []interface{}{model.StatusOnline}},
		{&counts.Devices, &model.NetworkDevice{}, nil, nil},
		{&counts.DevicesOnline, &model.NetworkDevice{}, "status = ?", []interface{}{model.StatusOnline}},
		{&counts.Databases, &model.Database{}, nil, nil},
		{&counts.DatabasesOnline, &model.Database{}, "status = ?", []interface{}{model.StatusOnline}},
		{&counts.Sites, &model.BusinessSite{}, nil, nil},
		{&counts.SitesUp, &model.BusinessSite{}, "status = ?", []interface{}{model.SiteStatusUp}},
		{&counts.SitesDegraded, &model.BusinessSite{}, "status = ?", []interface{}{model.SiteStatusDegraded}},
		{&counts.SitesDown, &model.BusinessSite{}, "status = ?", []interface{}{model.SiteStatusDown}},
		{&counts.Applications, &model.Application{}, nil, nil},
		{&counts.Users, &model.User{}, nil, nil},
		{&counts.BackupsRunning, &model.Backup{}, "state IN ?", []interface{}{
			[]model.BackupState{model.BackupStatePending, model.BackupStateRunning},
		}},
		{&counts.CredentialsTotal, &model.Credential{}, nil, nil},
	}

	for _, t := range tally {
		n, err := s.count(t.model, t.query, t.args...)
		if err != nil {
			return nil, err
		}
		*t.dst = n
	}

	return counts, nil
}

// RecentOperations returns the newest trail entries.
func (s *DashboardStore) RecentOperations(limit int) ([]model.OperationLog, error) {
	if limit <= 0 {
		limit = 10
	}
	var logs []model.OperationLog
	err := s.db.Model(&model.OperationLog{}).
		Order("time DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
