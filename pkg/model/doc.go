// Package model defines the database models for opsdeck.
//
// This package contains GORM models that map to the panel's PostgreSQL
// schema. The schema is created by the migrations under db/migrations.
//
// # Core Models
//
//   - User: panel operator accounts with bcrypt password hashes
//   - Server: SSH-reachable hosts, optionally behind a jump host
//   - NetworkDevice: switches, routers, firewalls and access points
//   - Database: managed database instances tied to servers
//   - SiteGroup / BusinessSite: monitored HTTP endpoints
//   - Application: deployed services tied to sites and servers
//   - Credential: encrypted passwords and SSH keys
//   - Backup / Restore: database dump jobs and their artifacts
//   - OperationLog: the operation trail (written by the audit store)
//   - Setting: named panel settings
//
// # Metric Models
//
// ServerMetric, DeviceMetric, SiteAvailability and DatabaseMetric are
// append-only samples stored in TimescaleDB hypertables keyed by
// (time, owner id).
//
// # Credential Encryption
//
// Credential secrets are encrypted in a BeforeSave hook and decrypted in
// AfterFind, using the vault cipher carried in the gorm session context.
// Sessions without a cipher fail loudly on encrypted columns.
package model
