package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cucumber/godog"

	"github.com/opsdeck/opsdeck/pkg/server/endpoints"
)

// registerAgentSteps registers the heartbeat ingest steps. Agents
// authenticate with a per-server key rather than a session token.
func (s *StepsContext) registerAgentSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the agent for "([^"]*)" posts a heartbeat$`, s.theAgentPostsAHeartbeat)
	sc.Step(`^the agent for "([^"]*)" posts a heartbeat with CPU usage ([0-9.]+)$`, s.theAgentPostsAHeartbeatWithCPUUsage)
	sc.Step(`^an agent posts a heartbeat with key "([^"]*)"$`, s.anAgentPostsAHeartbeatWithKey)
	sc.Step(`^an agent posts a heartbeat without a key$`, s.anAgentPostsAHeartbeatWithoutAKey)
	sc.Step(`^the server "([^"]*)" should be online$`, s.theServerShouldBeOnline)
	sc.Step(`^a metric sample for "([^"]*)" should be recorded$`, s.aMetricSampleShouldBeRecorded)
	sc.Step(`^the latest metric for "([^"]*)" should show CPU usage ([0-9.]+)$`, s.theLatestMetricShouldShowCPUUsage)
}

// agentSample is a plausible host sample, the shape an agent would post
func agentSample() endpoints.HeartbeatRequest {
	return endpoints.HeartbeatRequest{
		Hostname:      "agent-under-test",
		OS:            "Ubuntu 22.04",
		Arch:          "amd64",
		CPUUsage:      12.5,
		MemoryUsage:   41.0,
		MemoryTotal:   16 << 30,
		DiskUsage:     63.2,
		DiskTotal:     512 << 30,
		NetInBytes:    123456,
		NetOutBytes:   654321,
		Load1:         0.42,
		UptimeSeconds: 86400,
	}
}

func (s *StepsContext) postHeartbeat(key string, sample endpoints.HeartbeatRequest) error {
	body, err := json.Marshal(sample)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", s.apiURL("/api/agent/heartbeat"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-Agent-Key", key)
	}
	return s.send(req)
}

func (s *StepsContext) theAgentPostsAHeartbeat(serverName string) error {
	key, ok := s.agentKeys[serverName]
	if !ok {
		return fmt.Errorf("no agent key recorded for server %q", serverName)
	}
	return s.postHeartbeat(key, agentSample())
}

func (s *StepsContext) theAgentPostsAHeartbeatWithCPUUsage(serverName string, cpuUsage float64) error {
	key, ok := s.agentKeys[serverName]
	if !ok {
		return fmt.Errorf("no agent key recorded for server %q", serverName)
	}

	sample := agentSample()
	sample.CPUUsage = cpuUsage
	return s.postHeartbeat(key, sample)
}

func (s *StepsContext) anAgentPostsAHeartbeatWithKey(key string) error {
	return s.postHeartbeat(key, agentSample())
}

func (s *StepsContext) anAgentPostsAHeartbeatWithoutAKey() error {
	return s.postHeartbeat("", agentSample())
}

func (s *StepsContext) theServerShouldBeOnline(serverName string) error {
	var row struct {
		Status     string
		LastSeenAt *time.Time
	}
	if err := s.tc.DB.Raw(`SELECT status, last_seen_at FROM servers WHERE name = ?`, serverName).Scan(&row).Error; err != nil {
		return err
	}

	if row.Status != "online" {
		return fmt.Errorf("expected server %q to be online, got status %q", serverName, row.Status)
	}
	if row.LastSeenAt == nil {
		return fmt.Errorf("server %q has no last_seen_at after heartbeat", serverName)
	}
	return nil
}

func (s *StepsContext) aMetricSampleShouldBeRecorded(serverName string) error {
	id, err := s.serverID(serverName)
	if err != nil {
		return err
	}

	var count int64
	if err := s.tc.DB.Raw(`SELECT COUNT(*) FROM server_metrics WHERE server_id = ?`, id).Scan(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("no metric samples recorded for server %q", serverName)
	}
	return nil
}

func (s *StepsContext) theLatestMetricShouldShowCPUUsage(serverName string, cpuUsage float64) error {
	id, err := s.serverID(serverName)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("GET", s.apiURL(fmt.Sprintf("/api/servers/%d/metrics/latest", id)), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.authToken)
	if err := s.send(req); err != nil {
		return err
	}

	if s.response.StatusCode != http.StatusOK {
		return fmt.Errorf("latest metric request failed with status %d: %s", s.response.StatusCode, string(s.responseBody))
	}

	var metric struct {
		CPUUsage float64 `json:"cpu_usage"`
	}
	if err := json.Unmarshal(s.responseBody, &metric); err != nil {
		return fmt.Errorf("failed to parse metric response: %w", err)
	}
	if metric.CPUUsage != cpuUsage {
		return fmt.Errorf("expected CPU usage %v, got %v", cpuUsage, metric.CPUUsage)
	}
	return nil
}
