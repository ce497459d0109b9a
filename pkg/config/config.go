package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/opsdeck/config"
	ConfigFileName    = "opsdeck.yml"
)

// OpsdeckConfig holds all panel configuration settings
type OpsdeckConfig struct {
	// TrustedProxies is a list of CIDR ranges for trusted proxies
	TrustedProxies []string `yaml:"trusted_proxies" json:"trusted_proxies"`

	// APIListLimitMax is the maximum number of results for listing requests
	APIListLimitMax int `yaml:"api_list_limit_max" json:"api_list_limit_max"`

	// TokenTTLMinutes is the lifetime of issued session tokens in minutes
	TokenTTLMinutes int `yaml:"token_ttl_minutes" json:"token_ttl_minutes"`

	// SiteCheckIntervalSeconds is the default probe interval for business sites
	SiteCheckIntervalSeconds int `yaml:"site_check_interval_seconds" json:"site_check_interval_seconds"`

	// SiteCheckTimeoutSeconds is the default probe timeout for business sites
	SiteCheckTimeoutSeconds int `yaml:"site_check_timeout_seconds" json:"site_check_timeout_seconds"`

	// SiteAvailabilityWindow is the number of recent checks scored for availability
	SiteAvailabilityWindow int `yaml:"site_availability_window" json:"site_availability_window"`

	// HeartbeatOfflineSeconds marks a server offline when its agent has been
	// silent for this long
	HeartbeatOfflineSeconds int `yaml:"heartbeat_offline_seconds" json:"heartbeat_offline_seconds"`

	// TerminalIdleTimeoutMinutes closes SSH terminal sessions idle this long
	TerminalIdleTimeoutMinutes int `yaml:"terminal_idle_timeout_minutes" json:"terminal_idle_timeout_minutes"`

	// BackupDir is the directory where database dump artifacts are written
	BackupDir string `yaml:"backup_dir" json:"backup_dir"`

	// BackupConcurrency caps the number of backup or restore jobs running at once
	BackupConcurrency int `yaml:"backup_concurrency" json:"backup_concurrency"`

	// AllowOrigins is a list of allowed CORS origins; empty allows any origin
	AllowOrigins []string `yaml:"allow_origins" json:"allow_origins"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *OpsdeckConfig
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *OpsdeckConfig {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	// Load config
	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			// Return defaults on error
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

// newDefault returns a config with default values
func newDefault() *OpsdeckConfig {
	return &OpsdeckConfig{
		TrustedProxies:             []string{},
		APIListLimitMax:            500,
		TokenTTLMinutes:            720,
		SiteCheckIntervalSeconds:   60,
		SiteCheckTimeoutSeconds:    10,
		SiteAvailabilityWindow:     100,
		HeartbeatOfflineSeconds:    120,
		TerminalIdleTimeoutMinutes: 30,
		BackupDir:                  "/var/lib/opsdeck/backups",
		BackupConcurrency:          2,
		AllowOrigins:               []string{},
		sources:                    make(map[string]string),
	}
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over file values
func Load() (*OpsdeckConfig, error) {
	// Development convenience: pick up a .env file when present
	_ = godotenv.Load()

	config := newDefault()

	// Initialize all sources as "default"
	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	// Determine config file path
	configPath := os.Getenv("OPSDECK_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	// Try to load from config file
	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var fileConfig OpsdeckConfig
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&fileConfig)
	}

	// Override with environment variables
	config.applyEnvConfig()

	return config, nil
}

func attributeNames() []string {
	return []string{
		"trusted_proxies", "api_list_limit_max", "token_ttl_minutes",
		"site_check_interval_seconds", "site_check_timeout_seconds",
		"site_availability_window", "heartbeat_offline_seconds",
		"terminal_idle_timeout_minutes", "backup_dir", "backup_concurrency",
		"allow_origins",
	}
}

func (c *OpsdeckConfig) applyFileConfig(file *OpsdeckConfig) {
	if len(file.TrustedProxies) > 0 {
		c.TrustedProxies = file.TrustedProxies
		c.sources["trusted_proxies"] = "file"
	}
	if file.APIListLimitMax != 0 {
		c.APIListLimitMax = file.APIListLimitMax
		c.sources["api_list_limit_max"] = "file"
	}
	if file.TokenTTLMinutes != 0 {
		c.TokenTTLMinutes = file.TokenTTLMinutes
		c.sources["token_ttl_minutes"] = "file"
	}
	if file.SiteCheckIntervalSeconds != 0 {
		c.SiteCheckIntervalSeconds = file.SiteCheckIntervalSeconds
		c.sources["site_check_interval_seconds"] = "file"
	}
	if file.SiteCheckTimeoutSeconds != 0 {
		c.SiteCheckTimeoutSeconds = file.SiteCheckTimeoutSeconds
		c.sources["site_check_timeout_seconds"] = "file"
	}
	if file.SiteAvailabilityWindow != 0 {
		c.SiteAvailabilityWindow = file.SiteAvailabilityWindow
		c.sources["site_availability_window"] = "file"
	}
	if file.HeartbeatOfflineSeconds != 0 {
		c.HeartbeatOfflineSeconds = file.HeartbeatOfflineSeconds
		c.sources["heartbeat_offline_seconds"] = "file"
	}
	if file.TerminalIdleTimeoutMinutes != 0 {
		c.TerminalIdleTimeoutMinutes = file.TerminalIdleTimeoutMinutes
		c.sources["terminal_idle_timeout_minutes"] = "file"
	}
	if file.BackupDir != "" {
		c.BackupDir = file.BackupDir
		c.sources["backup_dir"] = "file"
	}
	if file.BackupConcurrency != 0 {
		c.BackupConcurrency = file.BackupConcurrency
		c.sources["backup_concurrency"] = "file"
	}
	if len(file.AllowOrigins) > 0 {
		c.AllowOrigins = file.AllowOrigins
		c.sources["allow_origins"] = "file"
	}
}

func (c *OpsdeckConfig) applyEnvConfig() {
	if val := os.Getenv("OPSDECK_TRUSTED_PROXIES"); val != "" {
		c.TrustedProxies = splitAndTrim(val)
		c.sources["trusted_proxies"] = "environment"
	}
	if val := os.Getenv("OPSDECK_API_LIST_LIMIT_MAX"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.APIListLimitMax = i
			c.sources["api_list_limit_max"] = "environment"
		}
	}
	if val := os.Getenv("OPSDECK_TOKEN_TTL_MINUTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.TokenTTLMinutes = i
			c.sources["token_ttl_minutes"] = "environment"
		}
	}
	if val := os.Getenv("OPSDECK_SITE_CHECK_INTERVAL_SECONDS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.SiteCheckIntervalSeconds = i
			c.sources["site_check_interval_seconds"] = "environment"
		}
	}
	if val := os.Getenv("OPSDECK_SITE_CHECK_TIMEOUT_SECONDS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.SiteCheckTimeoutSeconds = i
			c.sources["site_check_timeout_seconds"] = "environment"
		}
	}
	if val := os.Getenv("OPSDECK_SITE_AVAILABILITY_WINDOW"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.SiteAvailabilityWindow = i
			c.sources["site_availability_window"] = "environment"
		}
	}
	if val := os.Getenv("OPSDECK_HEARTBEAT_OFFLINE_SECONDS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.HeartbeatOfflineSeconds = i
			c.sources["heartbeat_offline_seconds"] = "environment"
		}
	}
	if val := os.Getenv("OPSDECK_TERMINAL_IDLE_TIMEOUT_MINUTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.TerminalIdleTimeoutMinutes = i
			c.sources["terminal_idle_timeout_minutes"] = "environment"
		}
	}
	if val := os.Getenv("OPSDECK_BACKUP_DIR"); val != "" {
		c.BackupDir = val
		c.sources["backup_dir"] = "environment"
	}
	if val := os.Getenv("OPSDECK_BACKUP_CONCURRENCY"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.BackupConcurrency = i
			c.sources["backup_concurrency"] = "environment"
		}
	}
	if val := os.Getenv("OPSDECK_ALLOW_ORIGINS"); val != "" {
		c.AllowOrigins = splitAndTrim(val)
		c.sources["allow_origins"] = "environment"
	}
}

// ConfigFilePath returns the path to the config file
func (c *OpsdeckConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *OpsdeckConfig) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// TokenTTL returns the session token lifetime as a duration
func (c *OpsdeckConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// SiteCheckInterval returns the default site probe interval as a duration
func (c *OpsdeckConfig) SiteCheckInterval() time.Duration {
	return time.Duration(c.SiteCheckIntervalSeconds) * time.Second
}

// SiteCheckTimeout returns the default site probe timeout as a duration
func (c *OpsdeckConfig) SiteCheckTimeout() time.Duration {
	return time.Duration(c.SiteCheckTimeoutSeconds) * time.Second
}

// HeartbeatOfflineAfter returns the agent silence threshold as a duration
func (c *OpsdeckConfig) HeartbeatOfflineAfter() time.Duration {
	return time.Duration(c.HeartbeatOfflineSeconds) * time.Second
}

// TerminalIdleTimeout returns the terminal idle limit as a duration
func (c *OpsdeckConfig) TerminalIdleTimeout() time.Duration {
	return time.Duration(c.TerminalIdleTimeoutMinutes) * time.Minute
}

// IsTrustedProxy checks if an IP is from a trusted proxy
func (c *OpsdeckConfig) IsTrustedProxy(ip string) bool {
	if len(c.TrustedProxies) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, cidr := range c.TrustedProxies {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			// Try as plain IP
			if net.ParseIP(cidr) != nil && cidr == ip {
				return true
			}
			continue
		}
		if network.Contains(parsedIP) {
			return true
		}
	}
	return false
}

// IsAllowedOrigin checks an Origin header value against allow_origins.
// An empty allow list accepts any origin.
func (c *OpsdeckConfig) IsAllowedOrigin(origin string) bool {
	if len(c.AllowOrigins) == 0 {
		return true
	}
	for _, allowed := range c.AllowOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// Validate validates the configuration
func (c *OpsdeckConfig) Validate() error {
	// Validate trusted proxies are valid CIDR ranges
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			if net.ParseIP(cidr) == nil {
				return fmt.Errorf("invalid trusted_proxies value: %s", cidr)
			}
		}
	}

	if c.APIListLimitMax < 1 {
		return fmt.Errorf("api_list_limit_max must be positive, got %d", c.APIListLimitMax)
	}
	if c.TokenTTLMinutes < 1 {
		return fmt.Errorf("token_ttl_minutes must be positive, got %d", c.TokenTTLMinutes)
	}
	if c.SiteCheckIntervalSeconds < 1 {
		return fmt.Errorf("site_check_interval_seconds must be positive, got %d", c.SiteCheckIntervalSeconds)
	}
	if c.SiteCheckTimeoutSeconds < 1 {
		return fmt.Errorf("site_check_timeout_seconds must be positive, got %d", c.SiteCheckTimeoutSeconds)
	}
	if c.SiteCheckTimeoutSeconds >= c.SiteCheckIntervalSeconds {
		return fmt.Errorf("site_check_timeout_seconds (%d) must be below site_check_interval_seconds (%d)",
			c.SiteCheckTimeoutSeconds, c.SiteCheckIntervalSeconds)
	}
	if c.SiteAvailabilityWindow < 1 {
		return fmt.Errorf("site_availability_window must be positive, got %d", c.SiteAvailabilityWindow)
	}
	if c.HeartbeatOfflineSeconds < 1 {
		return fmt.Errorf("heartbeat_offline_seconds must be positive, got %d", c.HeartbeatOfflineSeconds)
	}
	if c.BackupConcurrency < 1 {
		return fmt.Errorf("backup_concurrency must be positive, got %d", c.BackupConcurrency)
	}

	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *OpsdeckConfig) Attributes() []Attribute {
	return []Attribute{
		{Name: "trusted_proxies", Value: strings.Join(c.TrustedProxies, ","), Source: c.Source("trusted_proxies")},
		{Name: "api_list_limit_max", Value: strconv.Itoa(c.APIListLimitMax), Source: c.Source("api_list_limit_max")},
		{Name: "token_ttl_minutes", Value: strconv.Itoa(c.TokenTTLMinutes), Source: c.Source("token_ttl_minutes")},
		{Name: "site_check_interval_seconds", Value: strconv.Itoa(c.SiteCheckIntervalSeconds), Source: c.Source("site_check_interval_seconds")},
		{Name: "site_check_timeout_seconds", Value: strconv.Itoa(c.SiteCheckTimeoutSeconds), Source: c.Source("site_check_timeout_seconds")},
		{Name: "site_availability_window", Value: strconv.Itoa(c.SiteAvailabilityWindow), Source: c.Source("site_availability_window")},
		{Name: "heartbeat_offline_seconds", Value: strconv.Itoa(c.HeartbeatOfflineSeconds), Source: c.Source("heartbeat_offline_seconds")},
		{Name: "terminal_idle_timeout_minutes", Value: strconv.Itoa(c.TerminalIdleTimeoutMinutes), Source: c.Source("terminal_idle_timeout_minutes")},
		{Name: "backup_dir", Value: c.BackupDir, Source: c.Source("backup_dir")},
		{Name: "backup_concurrency", Value: strconv.Itoa(c.BackupConcurrency), Source: c.Source("backup_concurrency")},
		{Name: "allow_origins", Value: strings.Join(c.AllowOrigins, ","), Source: c.Source("allow_origins")},
	}
}

// FormatText returns a text representation of the configuration
func (c *OpsdeckConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *OpsdeckConfig) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
