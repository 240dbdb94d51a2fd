package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/archon/internal/core/archive"
	"github.com/example/archon/internal/ports/primary"
	"github.com/example/archon/internal/wire"
)

// ArchiveCmd returns the archive command group.
func ArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Migrate aged records into cold storage",
		Long: `Archive moves aged records out of the hot tables into their cold
counterparts in crash-safe, resumable batches. A failed run keeps the
progress already committed; re-running picks up the remaining rows.`,
	}
	cmd.AddCommand(archiveBookingsCmd())
	cmd.AddCommand(archiveMessagesCmd())
	cmd.AddCommand(archiveAuditCmd())
	return cmd
}

func archiveBookingsCmd() *cobra.Command {
	var retentionMonths, batchSize int
	var suffix string

	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "Archive terminal bookings older than the retention window",
		RunE: withApp(func(a *wire.App, cmd *cobra.Command, args []string) error {
			res := a.Archive.ArchiveOldBookings(cmd.Context(), primary.ArchiveRequest{
				RetentionMonths: retentionMonths,
				BatchSize:       batchSize,
				ColdTableSuffix: suffix,
			})
			return printArchiveResult(res)
		}),
	}
	cmd.Flags().IntVar(&retentionMonths, "retention-months", 0, "retention window in months (0 = configured default)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "rows per transaction (0 = configured default)")
	cmd.Flags().StringVar(&suffix, "suffix", "", "cold table suffix (empty = configured default)")
	return cmd
}

func archiveMessagesCmd() *cobra.Command {
	var retentionMonths int

	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Archive soft-deleted messages older than the retention window",
		RunE: withApp(func(a *wire.App, cmd *cobra.Command, args []string) error {
			return printArchiveResult(a.Archive.ArchiveOldMessages(cmd.Context(), retentionMonths))
		}),
	}
	cmd.Flags().IntVar(&retentionMonths, "retention-months", 0, "retention window in months (0 = configured default)")
	return cmd
}

func archiveAuditCmd() *cobra.Command {
	var retentionMonths int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Move aged audit logs into a per-month cold table",
		RunE: withApp(func(a *wire.App, cmd *cobra.Command, args []string) error {
			return printArchiveResult(a.Archive.ArchiveAuditLogs(cmd.Context(), retentionMonths))
		}),
	}
	cmd.Flags().IntVar(&retentionMonths, "retention-months", 0, "retention window in months (0 = configured default)")
	return cmd
}

// printArchiveResult reports the run, including partial progress when
// the run failed mid-way.
func printArchiveResult(res archive.Result) error {
	fmt.Printf("%s  migrated: %d  deleted: %d  took: %s\n",
		color.New(color.FgCyan).Sprint(res.Entity), res.MigratedCount, res.DeletedCount, res.Duration)
	if res.Err != "" {
		fmt.Printf("%s %s (progress above is already committed)\n",
			color.New(color.FgRed).Sprint("archival stopped:"), res.Err)
		return errors.New(res.Err)
	}
	return nil
}
