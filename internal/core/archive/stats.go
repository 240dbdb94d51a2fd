package archive

import (
	"context"
	"fmt"
	"time"
)

// timeLayouts are the textual timestamp shapes SQLite hands back for
// aggregate columns, which carry no declared type.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02",
}

// asTime normalizes a scanned aggregate value: drivers with typed
// results hand back time.Time, SQLite hands back text.
func asTime(v any) *time.Time {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return &t
	case []byte:
		return parseTime(string(t))
	case string:
		return parseTime(t)
	default:
		return nil
	}
}

func parseTime(s string) *time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// TableStats summarizes one hot/cold table pair.
type TableStats struct {
	Name         string     `json:"name"`
	MainCount    int64      `json:"mainCount"`
	ArchiveCount int64      `json:"archiveCount"`
	Oldest       *time.Time `json:"oldestRecord,omitempty"`
	Newest       *time.Time `json:"newestRecord,omitempty"`
}

// Stats aggregates archive statistics across entities.
type Stats struct {
	Tables        []TableStats `json:"tables"`
	TotalMain     int64        `json:"totalMainRecords"`
	TotalArchived int64        `json:"totalArchivedRecords"`
}

// StatEntry names one hot table, its cold counterpart, and the
// timestamp column used for the oldest/newest bounds.
type StatEntry struct {
	Name       string
	Table      string
	ColdTable  string
	TimeColumn string
}

// Statistics reports row counts for each entry's hot and cold tables
// plus the age bounds of the hot rows. A cold table that has never been
// provisioned counts as zero.
func (e *Engine) Statistics(ctx context.Context, entries []StatEntry) (Stats, error) {
	d := e.coord.Dialect()
	db := e.coord.DB()

	var stats Stats
	for _, entry := range entries {
		ts := TableStats{Name: entry.Name}

		row := db.QueryRowContext(ctx, fmt.Sprintf(
			"SELECT COUNT(*), MIN(%s), MAX(%s) FROM %s", entry.TimeColumn, entry.TimeColumn, entry.Table))
		var oldest, newest any
		if err := row.Scan(&ts.MainCount, &oldest, &newest); err != nil {
			return Stats{}, fmt.Errorf("failed to count %s: %w", entry.Table, err)
		}
		ts.Oldest = asTime(oldest)
		ts.Newest = asTime(newest)

		exists, err := d.TableExists(ctx, db, entry.ColdTable)
		if err != nil {
			return Stats{}, fmt.Errorf("failed to check %s: %w", entry.ColdTable, err)
		}
		if exists {
			row := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", entry.ColdTable))
			if err := row.Scan(&ts.ArchiveCount); err != nil {
				return Stats{}, fmt.Errorf("failed to count %s: %w", entry.ColdTable, err)
			}
		}

		stats.Tables = append(stats.Tables, ts)
		stats.TotalMain += ts.MainCount
		stats.TotalArchived += ts.ArchiveCount
	}
	return stats, nil
}
