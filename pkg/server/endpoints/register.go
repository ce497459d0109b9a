package endpoints

import (
	"github.com/opsdeck/opsdeck/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterStatusEndpoints(srv)
	RegisterAuthEndpoints(srv)
	RegisterUsersEndpoints(srv)

	RegisterServersEndpoints(srv)
	RegisterDevicesEndpoints(srv)
	RegisterDatabasesEndpoints(srv)
	RegisterSitesEndpoints(srv)
	RegisterApplicationsEndpoints(srv)
	RegisterCredentialsEndpoints(srv)
	RegisterBackupsEndpoints(srv)

	RegisterDashboardEndpoints(srv)
	RegisterOperationsEndpoints(srv)
	RegisterSettingsEndpoints(srv)

	RegisterHeartbeatEndpoints(srv)
	RegisterTerminalEndpoints(srv)
	RegisterMonitoringEndpoints(srv)
}
