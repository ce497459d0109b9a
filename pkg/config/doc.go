// Package config provides configuration management for the opsdeck server.
//
// This package handles loading and validating server configuration from
// environment variables and a configuration file.
//
// # Configuration Sources
//
// Configuration is loaded from, in order of increasing precedence:
//
//   - Built-in defaults
//   - $OPSDECK_CONFIG_PATH/opsdeck.yml (default /etc/opsdeck/config)
//   - Environment variables (OPSDECK_* prefix)
//
// A .env file in the working directory is loaded first when present, which
// keeps development credentials out of shell profiles.
//
// # Key Configuration Options
//
//   - OPSDECK_TRUSTED_PROXIES: CIDRs allowed to set X-Forwarded-For
//   - OPSDECK_TOKEN_TTL_MINUTES: session token lifetime
//   - OPSDECK_SITE_CHECK_INTERVAL_SECONDS: default site probe interval
//   - OPSDECK_HEARTBEAT_OFFLINE_SECONDS: agent silence before offline
//   - OPSDECK_BACKUP_DIR: where database dumps land
//
// Each attribute remembers whether its value came from the default, the
// file or the environment; `opsdeckctl configuration show` prints the
// resolved table.
package config
