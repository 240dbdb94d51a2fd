package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCleanupExpiredCacheHonorsPerRowTTL(t *testing.T) {
	a := newTestApp(t)
	now := time.Now().UTC()

	// One rate expired an hour ago, one has most of its TTL left.
	_, err := a.db.Exec(
		"INSERT INTO fx_rate_cache (id, base_currency, quote_currency, rate, fetched_at, ttl_sec) VALUES "+
			"('FX-1', 'USD', 'EUR', 0.92, ?, 3600), ('FX-2', 'USD', 'GBP', 0.79, ?, 3600)",
		now.Add(-2*time.Hour), now.Add(-time.Minute))
	require.NoError(t, err)
	_, err = a.db.Exec(
		"INSERT INTO flight_status_cache (id, flight_no, status, fetched_at, ttl_sec) VALUES ('FS-1', 'XX100', 'DELAYED', ?, 300)",
		now.Add(-time.Hour))
	require.NoError(t, err)

	counts, err := a.maintenance.CleanupExpiredCache(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), counts["fxRateCache"])
	require.Equal(t, int64(1), counts["flightStatusCache"])

	var id string
	require.NoError(t, a.db.QueryRow("SELECT id FROM fx_rate_cache").Scan(&id))
	require.Equal(t, "FX-2", id)
}

func TestCleanupExpiredCacheRemovesExpiredIdempotencyKeys(t *testing.T) {
	a := newTestApp(t)
	now := time.Now().UTC()

	_, err := a.db.Exec(
		"INSERT INTO idempotency_keys (key, response, ttl) VALUES ('gone', '{}', ?), ('kept', '{}', ?)",
		now.Add(-time.Minute), now.Add(time.Hour))
	require.NoError(t, err)

	counts, err := a.maintenance.CleanupExpiredCache(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), counts["idempotencyKey"])
	require.Equal(t, 1, a.count(t, "idempotency_keys"))
}

func TestCleanupExpiredCacheKeepsUndeliveredOutbox(t *testing.T) {
	a := newTestApp(t)
	now := time.Now().UTC()

	_, err := a.db.Exec(
		"INSERT INTO outbox (id, topic, payload, delivered_at) VALUES "+
			"('OB-OLD', 'booking.confirmed', '{}', ?), "+ // past grace
			"('OB-FRESH', 'booking.confirmed', '{}', ?), "+ // inside grace
			"('OB-PENDING', 'booking.confirmed', '{}', NULL)", // never delivered
		now.Add(-48*time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)

	counts, err := a.maintenance.CleanupExpiredCache(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), counts["outbox"])
	require.Equal(t, 2, a.count(t, "outbox"))
}

func TestCleanupOldDataAppliesDefaults(t *testing.T) {
	a := newTestApp(t)
	now := time.Now().UTC()

	_, err := a.db.Exec(
		"INSERT INTO audit_logs (id, actor, action, created_at) VALUES ('AL-OLD', 'svc', 'write', ?), ('AL-NEW', 'svc', 'write', ?)",
		now.AddDate(0, 0, -120), now)
	require.NoError(t, err)
	_, err = a.db.Exec(
		"INSERT INTO message_reads (id, message_id, reader, created_at) VALUES ('MR-OLD', 'MSG-1', 'bob', ?)",
		now.AddDate(0, 0, -45))
	require.NoError(t, err)

	counts, err := a.maintenance.CleanupOldData(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts["auditLog"])
	require.Equal(t, int64(1), counts["messageRead"])
	require.Equal(t, 1, a.count(t, "audit_logs"))
}

func TestCleanupOldDataHonorsOverrides(t *testing.T) {
	a := newTestApp(t)
	now := time.Now().UTC()

	_, err := a.db.Exec(
		"INSERT INTO audit_logs (id, actor, action, created_at) VALUES ('AL-1', 'svc', 'write', ?)",
		now.AddDate(0, 0, -10))
	require.NoError(t, err)

	// Only the named dataset is swept, with the tightened threshold.
	counts, err := a.maintenance.CleanupOldData(context.Background(), map[string]time.Duration{
		"auditLog": 7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), counts["auditLog"])
	require.Len(t, counts, 1)
}

func TestCleanupOldDataRejectsUnknownDataset(t *testing.T) {
	a := newTestApp(t)

	_, err := a.maintenance.CleanupOldData(context.Background(), map[string]time.Duration{
		"noSuchDataset": time.Hour,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "noSuchDataset")
}

func TestCheckDatabaseHealthReportsHealthy(t *testing.T) {
	a := newTestApp(t)

	status := a.maintenance.CheckDatabaseHealth(context.Background())
	require.True(t, status.Healthy)
	require.Empty(t, status.Err)
	require.GreaterOrEqual(t, status.LatencyMs, int64(0))
	require.GreaterOrEqual(t, status.ConnectionCount, 1)
}

func TestCheckDatabaseHealthReportsFailureAsData(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.db.Close())

	status := a.maintenance.CheckDatabaseHealth(context.Background())
	require.False(t, status.Healthy)
	require.NotEmpty(t, status.Err)
}

func TestValidateDataIntegrityCleanStore(t *testing.T) {
	a := newTestApp(t)
	now := time.Now().UTC()
	seedBooking(t, a, "BK-OK", "CONFIRMED", now)

	report, err := a.maintenance.ValidateDataIntegrity(context.Background())
	require.NoError(t, err)
	require.True(t, report.Valid)
	require.Empty(t, report.Issues)
}

func TestValidateDataIntegrityFlagsViolations(t *testing.T) {
	a := newTestApp(t)
	now := time.Now().UTC()

	// Orphaned read, negative price, inverted dates.
	_, err := a.db.Exec(
		"INSERT INTO message_reads (id, message_id, reader) VALUES ('MR-1', 'MSG-MISSING', 'bob')")
	require.NoError(t, err)
	_, err = a.db.Exec(
		"INSERT INTO bookings (id, status, customer_name, total_price, start_date, end_date) VALUES ('BK-BAD', 'PENDING', 'X', -10, ?, ?)",
		now, now.AddDate(0, 0, -1))
	require.NoError(t, err)

	report, err := a.maintenance.ValidateDataIntegrity(context.Background())
	require.NoError(t, err)
	require.False(t, report.Valid)
	require.Len(t, report.Issues, 3)
}

func TestEnsureMonthlyPartitionFalseWithoutNativeSupport(t *testing.T) {
	a := newTestApp(t)

	ok := a.maintenance.EnsureMonthlyPartition(context.Background(), "audit_logs_archive", 2026, time.August)
	require.False(t, ok)
}
