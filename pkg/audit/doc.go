// Package audit provides the operation trail for opsdeck.
//
// Every security-relevant action is emitted twice: as an RFC5424 syslog
// line on stdout, and as a row in the operation_logs table so the API
// can serve the trail back to the panel.
//
// # Event Types
//
// The package defines event types for the operations worth recording:
//
//   - Login attempts (success/failure)
//   - Password changes and resets
//   - Resource create/update/delete
//   - Credential reveals
//   - Terminal sessions (open/close)
//   - Backup and restore runs
//   - Site status transitions from the monitor
//
// # Usage
//
//	audit.Log(audit.LoginEvent{
//		Username: user.Username,
//		ClientIP: ip,
//		Success:  true,
//	})
//
// Logging is enabled by default and can be switched off with
// OPSDECK_AUDIT_ENABLED=false. Row persistence is optional: without a
// wired store (or DATABASE_URL) events still go to stdout.
package audit
