// Package model defines the domain entities shared across the job board:
// jobs, users, sessions, queued notifications, and the foundation catalog
// (foundations, members, projects) maintained by the syncer.
package model
