package store

import "github.com/opsdeck/opsdeck/pkg/model"

// DashboardCounts is the overview block on the panel landing page.
type DashboardCounts struct {
	Servers          int64 `json:"servers"`
	ServersOnline    int64 `json:"servers_online"`
	Devices          int64 `json:"devices"`
	DevicesOnline    int64 `json:"devices_online"`
	Databases        int64 `json:"databases"`
	DatabasesOnline  int64 `json:"databases_online"`
	Sites            int64 `json:"sites"`
	SitesUp          int64 `json:"sites_up"`
	SitesDegraded    int64 `json:"sites_degraded"`
	SitesDown        int64 `json:"sites_down"`
	Applications     int64 `json:"applications"`
	Users            int64 `json:"users"`
	BackupsRunning   int64 `json:"backups_running"`
	CredentialsTotal int64 `json:"credentials"`
}

// DashboardStore aggregates overview queries
type DashboardStore interface {
	// Counts returns resource totals and health tallies.
	Counts() (*DashboardCounts, error)

	// RecentOperations returns the newest trail entries.
	RecentOperations(limit int) ([]model.OperationLog, error)
}
