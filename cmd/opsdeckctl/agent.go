package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	gopsnet "github.com/shirou/gopsutil/v4/net"
	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck/pkg/server/endpoints"
)

// agentKeyEnv supplies the agent key when the --key flag is not set.
const agentKeyEnv = "OPSDECK_AGENT_KEY"

const diskRoot = "/"

// agentCmd represents the agent command
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the host metrics agent",
	Long: `Run the host metrics agent.

The agent samples CPU, memory, disk, network and load figures from the local
host and posts them to the panel's heartbeat endpoint at a fixed interval. It
authenticates with the server's agent key, shown on the server detail page
and minted when the server row is created.

Example:
  opsdeckctl agent --server https://opsdeck.internal --key 4f6c0deab3f6... --interval 30s`,
	Run: func(cmd *cobra.Command, args []string) {
		serverURL, _ := cmd.Flags().GetString("server")
		key, _ := cmd.Flags().GetString("key")
		interval, _ := cmd.Flags().GetDuration("interval")

		if key == "" {
			key = os.Getenv(agentKeyEnv)
		}
		if serverURL == "" || key == "" {
			fmt.Fprintf(os.Stderr, "error: --server and --key (or %s) are required\n", agentKeyEnv)
			os.Exit(1)
		}

		runAgent(serverURL, key, interval)
	},
}

func init() {
	rootCmd.AddCommand(agentCmd)
	agentCmd.Flags().StringP("server", "s", "", "Base URL of the panel, e.g. https://opsdeck.internal")
	agentCmd.Flags().StringP("key", "k", "", "Agent key of the server this host is registered as")
	agentCmd.Flags().DurationP("interval", "i", 30*time.Second, "Time between heartbeats")
}

func runAgent(serverURL, key string, interval time.Duration) {
	client := &http.Client{Timeout: 10 * time.Second}

	// Handle signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fmt.Printf("Posting heartbeats to %s every %s\n", serverURL, interval)

	for {
		sample := sampleHost()
		if err := postHeartbeat(client, serverURL, key, sample); err != nil {
			fmt.Fprintf(os.Stderr, "[%s] Heartbeat failed: %v\n", time.Now().Format(time.RFC3339), err)
		}

		select {
		case <-ticker.C:
		case <-sigChan:
			fmt.Println("\nShutting down...")
			return
		}
	}
}

// sampleHost collects one heartbeat sample. Probes that fail leave their
// fields zero rather than aborting the sample; a partial heartbeat still
// marks the host online.
func sampleHost() endpoints.HeartbeatRequest {
	req := endpoints.HeartbeatRequest{Arch: runtime.GOARCH}

	if info, err := host.Info(); err == nil {
		req.Hostname = info.Hostname
		req.OS = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
		if req.OS == "" {
			req.OS = info.OS
		}
		req.UptimeSeconds = info.Uptime
	}

	// Percent blocks for the sample window between its two CPU snapshots.
	if percents, err := cpu.Percent(time.Second, false); err == nil && len(percents) > 0 {
		req.CPUUsage = percents[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		req.MemoryUsage = vm.UsedPercent
		req.MemoryTotal = vm.Total
	}

	if usage, err := disk.Usage(diskRoot); err == nil {
		req.DiskUsage = usage.UsedPercent
		req.DiskTotal = usage.Total
	}

	// Counters are cumulative since boot; the panel derives rates.
	if counters, err := gopsnet.IOCounters(false); err == nil && len(counters) > 0 {
		req.NetInBytes = counters[0].BytesRecv
		req.NetOutBytes = counters[0].BytesSent
	}

	if avg, err := load.Avg(); err == nil {
		req.Load1 = avg.Load1
	}

	return req
}

func postHeartbeat(client *http.Client, serverURL, key string, sample endpoints.HeartbeatRequest) error {
	body, err := json.Marshal(sample)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(serverURL, "/")+"/api/agent/heartbeat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Agent-Key", key)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
