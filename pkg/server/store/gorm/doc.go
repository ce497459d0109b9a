// Package gorm implements the store interfaces from pkg/server/store on
// top of GORM: fleet servers and their metric history, users, encrypted
// credentials, sites, network devices, databases with their backup and
// restore jobs, applications, settings, the dashboard rollup, and the
// operation trail reads.
package gorm
