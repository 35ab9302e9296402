// Package storage persists finalized task executions for audit.
//
// The scheduler's own history stays in-memory and bounded; this store is a
// host-side sink fed from manager hooks, so operators can inspect what ran
// across restarts. Disabled by default.
package storage
