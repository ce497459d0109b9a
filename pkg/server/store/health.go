package store

// HealthStore answers the database probe behind /api/status. A failure
// flips the status payload to degraded and the response to 503.
type HealthStore interface {
	CheckConnectivity() error
}
