package model

// Reachability states for servers, network devices and managed databases.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusUnknown = "unknown"
)

// Health states for business sites.
const (
	SiteStatusUp       = "up"
	SiteStatusDegraded = "degraded"
	SiteStatusDown     = "down"
	SiteStatusUnknown  = "unknown"
)
