// Package app implements the primary ports by composing the engine
// packages. Services are constructed with injected dependencies and
// hold no state of their own.
package app

import (
	"context"
	"time"

	"github.com/example/archon/internal/config"
	"github.com/example/archon/internal/core/archive"
	"github.com/example/archon/internal/core/partition"
	"github.com/example/archon/internal/ports/primary"
)

// Booking archival covers the parent table and every dependent child
// table; children are copied and deleted alongside their parents.
var bookingSpec = archive.Spec{
	Entity:         "bookings",
	Table:          "bookings",
	IDColumn:       "id",
	AgingColumn:    "end_date",
	StateColumn:    "status",
	TerminalStates: []string{"CONFIRMED", "CANCELLED"},
	Children: []archive.Child{
		{Table: "booking_flights", ParentKey: "booking_id"},
		{Table: "booking_hotels", ParentKey: "booking_id"},
		{Table: "booking_vehicles", ParentKey: "booking_id"},
		{Table: "settlements", ParentKey: "booking_id"},
	},
}

// Only soft-deleted messages are archivable; live conversation history
// stays hot regardless of age.
var messageSpec = archive.Spec{
	Entity:      "messages",
	Table:       "messages",
	IDColumn:    "id",
	AgingColumn: "created_at",
	ExtraWhere:  "is_deleted = TRUE",
}

var auditSpec = archive.Spec{
	Entity:      "audit_logs",
	Table:       "audit_logs",
	IDColumn:    "id",
	AgingColumn: "created_at",
}

// ArchiveServiceImpl implements primary.ArchiveService.
type ArchiveServiceImpl struct {
	engine   *archive.Engine
	defaults config.ArchiveDefaults
	now      func() time.Time
}

// NewArchiveService creates an ArchiveService with injected defaults.
func NewArchiveService(engine *archive.Engine, defaults config.ArchiveDefaults) *ArchiveServiceImpl {
	return &ArchiveServiceImpl{engine: engine, defaults: defaults, now: time.Now}
}

// retentionFromMonths converts a calendar-month retention into the
// duration between now and the cutoff.
func (s *ArchiveServiceImpl) retentionFromMonths(months int) time.Duration {
	now := s.now()
	return now.Sub(now.AddDate(0, -months, 0))
}

// ArchiveOldBookings migrates terminal bookings older than the
// retention window, batch by batch.
func (s *ArchiveServiceImpl) ArchiveOldBookings(ctx context.Context, req primary.ArchiveRequest) archive.Result {
	months := req.RetentionMonths
	if months <= 0 {
		months = s.defaults.BookingRetentionMonths
	}
	batch := req.BatchSize
	if batch <= 0 {
		batch = s.defaults.BatchSize
	}
	suffix := req.ColdTableSuffix
	if suffix == "" {
		suffix = s.defaults.ColdTableSuffix
	}

	return s.engine.Run(ctx, bookingSpec, archive.Config{
		RetentionPeriod: s.retentionFromMonths(months),
		BatchSize:       batch,
		ColdTableSuffix: suffix,
	})
}

// ArchiveOldMessages migrates soft-deleted messages older than the
// retention window.
func (s *ArchiveServiceImpl) ArchiveOldMessages(ctx context.Context, retentionMonths int) archive.Result {
	if retentionMonths <= 0 {
		retentionMonths = s.defaults.MessageRetentionMonths
	}
	return s.engine.Run(ctx, messageSpec, archive.Config{
		RetentionPeriod: s.retentionFromMonths(retentionMonths),
		BatchSize:       s.defaults.BatchSize,
		ColdTableSuffix: s.defaults.ColdTableSuffix,
	})
}

// ArchiveAuditLogs moves aged audit logs into a per-month cold table
// named from the cutoff month. The moved and deleted counts come from
// the migration statement's result.
func (s *ArchiveServiceImpl) ArchiveAuditLogs(ctx context.Context, retentionMonths int) archive.Result {
	if retentionMonths <= 0 {
		retentionMonths = s.defaults.AuditRetentionMonths
	}
	cutoff := s.now().AddDate(0, -retentionMonths, 0)
	cold := partition.Descriptor{
		Parent: auditSpec.Table + s.defaults.ColdTableSuffix,
		Year:   cutoff.Year(),
		Month:  cutoff.Month(),
	}.Name()

	return s.engine.RunMove(ctx, auditSpec, cold, archive.Config{
		RetentionPeriod: s.retentionFromMonths(retentionMonths),
	})
}

// GetArchiveStatistics reports hot/cold counts per archivable entity.
func (s *ArchiveServiceImpl) GetArchiveStatistics(ctx context.Context) (archive.Stats, error) {
	suffix := s.defaults.ColdTableSuffix
	return s.engine.Statistics(ctx, []archive.StatEntry{
		{Name: "bookings", Table: "bookings", ColdTable: "bookings" + suffix, TimeColumn: "created_at"},
		{Name: "messages", Table: "messages", ColdTable: "messages" + suffix, TimeColumn: "created_at"},
		{Name: "audit_logs", Table: "audit_logs", ColdTable: "audit_logs" + suffix, TimeColumn: "created_at"},
	})
}
