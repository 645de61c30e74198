// Package jobs contains background workers that run on wall-clock schedules,
// independent of request traffic.
package jobs
