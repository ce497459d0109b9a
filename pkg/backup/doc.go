// Package backup runs database dump and restore jobs.
//
// Jobs are queued by the API and drained by a fixed pool of workers.
// Postgres databases are dumped with pg_dump, locally or on the
// database's managed server over SSH, and artifacts land in the backup
// directory as gzip-compressed SQL. Every state transition is
// persisted, published on the monitor hub and, on completion, written
// to the audit trail.
package backup
