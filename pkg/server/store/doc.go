// Package store provides storage abstractions for the opsdeck server.
//
// This package defines interfaces for database operations, allowing the
// server endpoints to be decoupled from the specific database implementation.
// This enables easier testing with mocks and potential support for different
// storage backends.
//
// # Available Stores
//
//   - UsersStore: panel accounts
//   - ServersStore, DevicesStore, DatabasesStore: managed infrastructure
//   - SitesStore: business sites and their groups
//   - ApplicationsStore: deployed services
//   - CredentialsStore: encrypted secrets
//   - BackupsStore: backup and restore jobs
//   - OperationsStore: the operation trail (read side)
//   - SettingsStore: named panel settings
//   - MetricsStore: time-series samples
//   - HealthStore, DashboardStore: liveness and overview queries
//
// # Usage
//
//	srv, err := servers.GetServer(17)
//	if err != nil {
//	    if errors.Is(err, store.ErrServerNotFound) {
//	        // Handle not found
//	    }
//	}
package store
