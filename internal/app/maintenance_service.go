package app

import (
	"context"
	"fmt"
	"time"

	"github.com/example/archon/internal/core/partition"
	"github.com/example/archon/internal/core/retention"
	"github.com/example/archon/internal/core/txn"
	"github.com/example/archon/internal/logger"
	"github.com/example/archon/internal/ports/primary"
)

// defaultPolicies binds the well-known dataset names to their tables
// and default age thresholds. Expired idempotency keys (ttl elapsed)
// are handled separately by CleanupExpiredCache; the sweep policy here
// removes keys past their overall lifetime regardless of ttl.
var defaultPolicies = retention.Policies{
	"auditLog":          {Table: "audit_logs", AgeColumn: "created_at", MaxAge: 90 * 24 * time.Hour},
	"externalCallLog":   {Table: "external_call_logs", AgeColumn: "occurred_at", MaxAge: 30 * 24 * time.Hour},
	"idempotencyKey":    {Table: "idempotency_keys", AgeColumn: "created_at", MaxAge: 7 * 24 * time.Hour},
	"messageRead":       {Table: "message_reads", AgeColumn: "created_at", MaxAge: 30 * 24 * time.Hour},
	"flightStatusCache": {Table: "flight_status_cache", AgeColumn: "fetched_at", MaxAge: 24 * time.Hour},
	"fxRateCache":       {Table: "fx_rate_cache", AgeColumn: "fetched_at", MaxAge: 7 * 24 * time.Hour},
}

// deliveredOutboxGrace keeps delivered outbox messages around for a day
// before cleanup removes them.
const deliveredOutboxGrace = 24 * time.Hour

// MaintenanceServiceImpl implements primary.MaintenanceService.
type MaintenanceServiceImpl struct {
	coord *txn.Coordinator
	prov  *partition.Provisioner
	log   logger.Logger
	now   func() time.Time
}

// NewMaintenanceService creates a MaintenanceService with injected
// dependencies.
func NewMaintenanceService(coord *txn.Coordinator, prov *partition.Provisioner, log logger.Logger) *MaintenanceServiceImpl {
	return &MaintenanceServiceImpl{coord: coord, prov: prov, log: log, now: time.Now}
}

// CleanupExpiredCache deletes rows whose per-row TTL elapsed, expired
// idempotency keys, and delivered outbox messages past the grace
// period. The deletes are independent; each count is reported under its
// dataset name.
func (s *MaintenanceServiceImpl) CleanupExpiredCache(ctx context.Context) (map[string]int64, error) {
	d := s.coord.Dialect()
	db := s.coord.DB()
	results := make(map[string]int64)

	for name, table := range map[string]string{
		"fxRateCache":       "fx_rate_cache",
		"flightStatusCache": "flight_status_cache",
	} {
		res, err := db.ExecContext(ctx, d.ExpireCacheRows(table))
		if err != nil {
			return nil, fmt.Errorf("failed to expire %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s count: %w", table, err)
		}
		results[name] = n
	}

	res, err := db.ExecContext(ctx, d.DeleteOlderThan("idempotency_keys", "ttl"), s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to expire idempotency keys: %w", err)
	}
	if results["idempotencyKey"], err = res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to read idempotency count: %w", err)
	}

	res, err = db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM outbox WHERE delivered_at IS NOT NULL AND delivered_at < %s", d.Placeholder(1)),
		s.now().Add(-deliveredOutboxGrace))
	if err != nil {
		return nil, fmt.Errorf("failed to clean delivered outbox: %w", err)
	}
	if results["outbox"], err = res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to read outbox count: %w", err)
	}

	return results, nil
}

// CleanupOldData runs the retention sweep inside one transaction. The
// caller's thresholds override the defaults per dataset name; unknown
// names are rejected rather than silently skipped.
func (s *MaintenanceServiceImpl) CleanupOldData(ctx context.Context, overrides map[string]time.Duration) (map[string]int64, error) {
	policies := make(retention.Policies, len(defaultPolicies))
	if overrides == nil {
		for name, p := range defaultPolicies {
			policies[name] = p
		}
	} else {
		for name, maxAge := range overrides {
			p, ok := defaultPolicies[name]
			if !ok {
				return nil, fmt.Errorf("unknown retention dataset %q", name)
			}
			p.MaxAge = maxAge
			policies[name] = p
		}
	}

	counts, err := retention.Sweep(ctx, s.coord, policies, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to run retention sweep: %w", err)
	}
	return counts, nil
}

// CheckDatabaseHealth probes the store with a trivial query and reports
// latency and connection count. Failures populate the result, never an
// error.
func (s *MaintenanceServiceImpl) CheckDatabaseHealth(ctx context.Context) primary.HealthStatus {
	start := s.now()

	var one int
	if err := s.coord.DB().QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return primary.HealthStatus{Healthy: false, Err: err.Error()}
	}

	status := primary.HealthStatus{
		Healthy:   true,
		LatencyMs: time.Since(start).Milliseconds(),
	}

	if count, ok, err := s.coord.Dialect().ConnectionCount(ctx, s.coord.DB()); err != nil {
		s.log.Warn("failed to read connection count", logger.Err(err))
	} else if ok {
		status.ConnectionCount = count
	} else {
		status.ConnectionCount = s.coord.DB().Stats().OpenConnections
	}
	return status
}

// integrityChecks are dialect-neutral probes for constraint drift.
var integrityChecks = []struct {
	table string
	issue string
	query string
}{
	{
		table: "message_reads",
		issue: "orphaned records without parent message",
		query: "SELECT COUNT(*) FROM message_reads r LEFT JOIN messages m ON r.message_id = m.id WHERE m.id IS NULL",
	},
	{
		table: "settlements",
		issue: "orphaned records without parent booking",
		query: "SELECT COUNT(*) FROM settlements s LEFT JOIN bookings b ON s.booking_id = b.id WHERE b.id IS NULL",
	},
	{
		table: "bookings",
		issue: "negative amounts detected",
		query: "SELECT COUNT(*) FROM bookings WHERE total_price < 0",
	},
	{
		table: "settlements",
		issue: "negative amounts detected",
		query: "SELECT COUNT(*) FROM settlements WHERE amount < 0",
	},
	{
		table: "bookings",
		issue: "invalid date ranges (start >= end)",
		query: "SELECT COUNT(*) FROM bookings WHERE start_date >= end_date",
	},
}

// ValidateDataIntegrity runs the read-only integrity probes.
func (s *MaintenanceServiceImpl) ValidateDataIntegrity(ctx context.Context) (primary.IntegrityReport, error) {
	report := primary.IntegrityReport{Valid: true}
	for _, check := range integrityChecks {
		var count int64
		if err := s.coord.DB().QueryRowContext(ctx, check.query).Scan(&count); err != nil {
			return primary.IntegrityReport{}, fmt.Errorf("failed integrity check on %s: %w", check.table, err)
		}
		if count > 0 {
			report.Valid = false
			report.Issues = append(report.Issues, primary.IntegrityIssue{
				Table: check.table,
				Issue: check.issue,
				Count: count,
			})
		}
	}
	return report, nil
}

// EnsureMonthlyPartition provisions the partition of table covering the
// given month, indexing its created_at column.
func (s *MaintenanceServiceImpl) EnsureMonthlyPartition(ctx context.Context, table string, year int, month time.Month) bool {
	return s.prov.Ensure(ctx, partition.Descriptor{Parent: table, Year: year, Month: month}, "created_at")
}
