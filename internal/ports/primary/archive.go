// Package primary defines the inbound ports of the engine: the service
// interfaces an HTTP layer or CLI drives, and their request/response
// shapes. Results are plain data; no transport framing lives here.
package primary

import (
	"context"
	"time"

	"github.com/example/archon/internal/core/archive"
)

// ArchiveRequest configures a booking archival run. Zero values fall
// back to the configured defaults.
type ArchiveRequest struct {
	RetentionMonths int
	BatchSize       int
	ColdTableSuffix string
}

// ArchiveService migrates aged records out of the hot tables into cold
// storage.
type ArchiveService interface {
	// ArchiveOldBookings migrates bookings in terminal states older
	// than the retention window, together with their flights, hotels,
	// vehicles and settlements. The result always carries the progress
	// made, even when Err is set.
	ArchiveOldBookings(ctx context.Context, req ArchiveRequest) archive.Result

	// ArchiveOldMessages migrates soft-deleted messages older than the
	// retention window.
	ArchiveOldMessages(ctx context.Context, retentionMonths int) archive.Result

	// ArchiveAuditLogs moves audit logs older than the retention window
	// into a per-month cold table named from the cutoff month.
	ArchiveAuditLogs(ctx context.Context, retentionMonths int) archive.Result

	// GetArchiveStatistics reports hot/cold row counts and age bounds
	// per archivable entity.
	GetArchiveStatistics(ctx context.Context) (archive.Stats, error)
}

// HealthStatus reports store reachability. A failed check populates Err
// instead of raising.
type HealthStatus struct {
	Healthy         bool   `json:"isHealthy"`
	ConnectionCount int    `json:"connectionCount,omitempty"`
	LatencyMs       int64  `json:"latencyMs,omitempty"`
	Err             string `json:"error,omitempty"`
}

// IntegrityIssue describes one violated data-integrity expectation.
type IntegrityIssue struct {
	Table string `json:"table"`
	Issue string `json:"issue"`
	Count int64  `json:"count"`
}

// IntegrityReport aggregates integrity findings. Valid is true when no
// issues were found.
type IntegrityReport struct {
	Valid  bool             `json:"isValid"`
	Issues []IntegrityIssue `json:"issues"`
}

// MaintenanceService bundles the recurring cleanup operations.
type MaintenanceService interface {
	// CleanupExpiredCache deletes cache rows whose per-row TTL elapsed,
	// expired idempotency keys, and delivered outbox messages older
	// than a day. Returns counts by dataset.
	CleanupExpiredCache(ctx context.Context) (map[string]int64, error)

	// CleanupOldData runs the retention sweep: one age-threshold delete
	// per policy, all inside a single transaction. A nil policy map
	// applies the configured defaults.
	CleanupOldData(ctx context.Context, policies map[string]time.Duration) (map[string]int64, error)

	// CheckDatabaseHealth measures store latency and connection count.
	CheckDatabaseHealth(ctx context.Context) HealthStatus

	// ValidateDataIntegrity checks for orphaned child rows, negative
	// amounts and inverted date ranges. Read-only.
	ValidateDataIntegrity(ctx context.Context) (IntegrityReport, error)

	// EnsureMonthlyPartition idempotently provisions the partition of
	// table covering the given month. Failure is reported as false,
	// never as an error.
	EnsureMonthlyPartition(ctx context.Context, table string, year int, month time.Month) bool
}
