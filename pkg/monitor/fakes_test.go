package monitor

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/opsdeck/opsdeck/pkg/audit"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

func TestMain(m *testing.M) {
	audit.SetEnabled(false)
	os.Exit(m.Run())
}

// The fakes embed the store interfaces and override only what the
// checkers touch; calling anything else panics, which is exactly what a
// test wants.

type siteState struct {
	id     uint
	status string
	score  float64
}

type fakeSitesStore struct {
	store.SitesStore

	mu      sync.Mutex
	enabled []model.BusinessSite
	states  []siteState
}

func (f *fakeSitesStore) EnabledSites() ([]model.BusinessSite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled, nil
}

func (f *fakeSitesStore) SetSiteCheckState(id uint, status string, score float64, checkedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, siteState{id: id, status: status, score: score})
	return nil
}

func (f *fakeSitesStore) lastState() (siteState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) == 0 {
		return siteState{}, false
	}
	return f.states[len(f.states)-1], true
}

type fakeMetricsStore struct {
	store.MetricsStore

	mu            sync.Mutex
	samples       []model.SiteAvailability
	deviceSamples []model.DeviceMetric
	score         float64
	total         int
}

func (f *fakeMetricsStore) InsertSiteAvailability(m *model.SiteAvailability) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, *m)
	return nil
}

func (f *fakeMetricsStore) SiteSuccessRate(siteID uint, window int) (float64, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.score, f.total, nil
}

func (f *fakeMetricsStore) InsertDeviceMetric(m *model.DeviceMetric) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deviceSamples = append(f.deviceSamples, *m)
	return nil
}

func (f *fakeMetricsStore) lastSample() (model.SiteAvailability, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.samples) == 0 {
		return model.SiteAvailability{}, false
	}
	return f.samples[len(f.samples)-1], true
}

func (f *fakeMetricsStore) lastDeviceSample() (model.DeviceMetric, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.deviceSamples) == 0 {
		return model.DeviceMetric{}, false
	}
	return f.deviceSamples[len(f.deviceSamples)-1], true
}

type fakeServersStore struct {
	store.ServersStore

	mu      sync.Mutex
	flipped []model.Server
	cutoffs []time.Time
}

func (f *fakeServersStore) MarkServersOffline(cutoff time.Time) ([]model.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.flipped, nil
}

type fakeDashboardStore struct {
	store.DashboardStore

	counts store.DashboardCounts
}

func (f *fakeDashboardStore) Counts() (*store.DashboardCounts, error) {
	c := f.counts
	return &c, nil
}

type deviceState struct {
	id     uint
	status string
	seen   bool
}

type fakeDevicesStore struct {
	store.DevicesStore

	mu      sync.Mutex
	devices []model.NetworkDevice
	states  []deviceState
}

func (f *fakeDevicesStore) AllDevices() ([]model.NetworkDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.devices, nil
}

func (f *fakeDevicesStore) SetDeviceStatus(id uint, status string, seenAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, deviceState{id: id, status: status, seen: seenAt != nil})
	return nil
}

func (f *fakeDevicesStore) lastState() (deviceState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) == 0 {
		return deviceState{}, false
	}
	return f.states[len(f.states)-1], true
}
