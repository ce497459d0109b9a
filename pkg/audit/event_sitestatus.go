package audit

import "fmt"

// SiteStatusEvent records a business site changing status, as observed
// by the background availability checker. There is no acting user, so
// the auth block carries the monitor itself.
type SiteStatusEvent struct {
	SiteID    string
	SiteName  string
	OldStatus string
	NewStatus string
	Score     float64
}

func (e SiteStatusEvent) MessageID() string {
	return "site_status"
}

func (e SiteStatusEvent) Message() string {
	subject := fmt.Sprintf("site %s", e.SiteID)
	if e.SiteName != "" {
		subject = fmt.Sprintf("site %s (%s)", e.SiteName, e.SiteID)
	}
	return fmt.Sprintf("%s changed from %s to %s (score %.1f)", subject, e.OldStatus, e.NewStatus, e.Score)
}

func (e SiteStatusEvent) Severity() Severity {
	switch e.NewStatus {
	case "down":
		return SeverityError
	case "degraded":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

func (e SiteStatusEvent) Facility() int {
	return FacilityDaemon
}

func (e SiteStatusEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDAuth: {
			"user": "monitor",
		},
		SDIDSubject: {
			"kind": "site",
			"id":   e.SiteID,
		},
		SDIDAction: {
			"operation": "site_status",
			"result":    "success",
			"from":      e.OldStatus,
			"to":        e.NewStatus,
			"score":     fmt.Sprintf("%.1f", e.Score),
		},
	}
	if e.SiteName != "" {
		sd[SDIDSubject]["name"] = e.SiteName
	}
	return sd
}
