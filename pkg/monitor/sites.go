package monitor

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/opsdeck/opsdeck/pkg/audit"
	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// tickResolution is how often the checker looks for due sites. Each site
// still honors its own interval.
const tickResolution = 5 * time.Second

// keywordScanLimit caps how much of a response body is read when a site
// defines a keyword match.
const keywordScanLimit = 512 * 1024

// slowFraction of the check timeout marks a passing check as degraded.
const slowFraction = 0.8

// upThreshold is the availability score at or above which a site with a
// passing last check counts as up.
const upThreshold = 99.0

// SiteChecker probes enabled business sites on their configured intervals
// and maintains their status and availability score.
type SiteChecker struct {
	sites   store.SitesStore
	metrics store.MetricsStore
	hub     *Hub
	cfg     *config.OpsdeckConfig

	client  *http.Client
	now     func() time.Time
	lastRun map[uint]time.Time
}

// NewSiteChecker creates a checker. Run drives it.
func NewSiteChecker(sites store.SitesStore, metrics store.MetricsStore, hub *Hub, cfg *config.OpsdeckConfig) *SiteChecker {
	return &SiteChecker{
		sites:   sites,
		metrics: metrics,
		hub:     hub,
		cfg:     cfg,
		client: &http.Client{
			// Per-check deadlines come from the request context.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		now:     time.Now,
		lastRun: make(map[uint]time.Time),
	}
}

// Run probes due sites until ctx is cancelled.
func (c *SiteChecker) Run(ctx context.Context) {
	ticker := time.NewTicker(tickResolution)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

// sweep checks every enabled site whose interval has elapsed.
func (c *SiteChecker) sweep(ctx context.Context) {
	sites, err := c.sites.EnabledSites()
	if err != nil {
		return
	}

	now := c.now()
	for i := range sites {
		site := sites[i]
		interval := time.Duration(site.CheckIntervalSeconds) * time.Second
		if interval <= 0 {
			interval = c.cfg.SiteCheckInterval()
		}
		if last, ok := c.lastRun[site.ID]; ok && now.Sub(last) < interval {
			continue
		}
		c.lastRun[site.ID] = now
		c.check(ctx, &site)
	}
}

// probe runs one HTTP check and reports whether it passed, the status
// code seen and the elapsed time.
func (c *SiteChecker) probe(ctx context.Context, site *model.BusinessSite, timeout time.Duration) (ok bool, statusCode int, elapsed time.Duration, checkErr string) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, site.URL, nil)
	if err != nil {
		return false, 0, 0, err.Error()
	}
	req.Header.Set("User-Agent", "opsdeck-monitor/1.0")

	start := c.now()
	resp, err := c.client.Do(req)
	elapsed = c.now().Sub(start)
	if err != nil {
		return false, 0, elapsed, err.Error()
	}
	defer resp.Body.Close()

	statusCode = resp.StatusCode
	if statusCode != site.ExpectedStatus {
		return false, statusCode, elapsed, "unexpected status " + strconv.Itoa(statusCode)
	}

	if site.Keyword != "" {
		body, err := io.ReadAll(io.LimitReader(resp.Body, keywordScanLimit))
		if err != nil {
			return false, statusCode, elapsed, err.Error()
		}
		if !bytes.Contains(body, []byte(site.Keyword)) {
			return false, statusCode, elapsed, "keyword not found"
		}
	}
	return true, statusCode, elapsed, ""
}

// check probes one site, records the sample and applies any status change.
func (c *SiteChecker) check(ctx context.Context, site *model.BusinessSite) {
	timeout := time.Duration(site.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = c.cfg.SiteCheckTimeout()
	}

	ok, statusCode, elapsed, checkErr := c.probe(ctx, site, timeout)

	checkedAt := c.now().UTC()
	_ = c.metrics.InsertSiteAvailability(&model.SiteAvailability{
		SiteID:         site.ID,
		Time:           checkedAt,
		Up:             ok,
		StatusCode:     statusCode,
		ResponseTimeMs: float64(elapsed.Microseconds()) / 1000,
		CheckError:     checkErr,
	})

	ChecksTotal.WithLabelValues("site", checkResult(ok)).Inc()
	SiteResponseSeconds.Observe(elapsed.Seconds())

	score, _, err := c.metrics.SiteSuccessRate(site.ID, c.cfg.SiteAvailabilityWindow)
	if err != nil {
		score = site.AvailabilityScore
	}

	newStatus := deriveSiteStatus(ok, score, elapsed, timeout)
	if err := c.sites.SetSiteCheckState(site.ID, newStatus, score, checkedAt); err != nil {
		return
	}

	up := 0.0
	if ok {
		up = 1.0
	}
	SiteUp.WithLabelValues(site.Name).Set(up)

	if newStatus != site.Status {
		audit.Log(audit.SiteStatusEvent{
			SiteID:    strconv.FormatUint(uint64(site.ID), 10),
			SiteName:  site.Name,
			OldStatus: site.Status,
			NewStatus: newStatus,
			Score:     score,
		})
		c.hub.Broadcast(Event{
			Type: EventSiteStatus,
			Payload: map[string]interface{}{
				"site_id":   site.ID,
				"site_name": site.Name,
				"from":      site.Status,
				"to":        newStatus,
				"score":     score,
			},
		})
	}
}

// deriveSiteStatus folds one check outcome and the rolling score into a
// site status. A failing check is always down; a passing one is degraded
// while the score is below threshold or the response crawled close to the
// timeout.
func deriveSiteStatus(ok bool, score float64, elapsed, timeout time.Duration) string {
	if !ok {
		return model.SiteStatusDown
	}
	if score < upThreshold {
		return model.SiteStatusDegraded
	}
	if timeout > 0 && elapsed > time.Duration(slowFraction*float64(timeout)) {
		return model.SiteStatusDegraded
	}
	return model.SiteStatusUp
}
