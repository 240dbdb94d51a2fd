package cli

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/archon/internal/config"
	"github.com/example/archon/internal/wire"
)

// CleanupCmd returns the cleanup command: expired cache rows, expired
// idempotency keys, delivered outbox messages.
func CleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired cache entries, idempotency keys and delivered outbox rows",
		RunE: withApp(func(a *wire.App, cmd *cobra.Command, args []string) error {
			counts, err := a.Maintenance.CleanupExpiredCache(cmd.Context())
			if err != nil {
				return err
			}
			printCounts(counts)
			return nil
		}),
	}
}

// SweepCmd returns the retention sweep command.
func SweepCmd() *cobra.Command {
	var policyFile string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the retention sweep (all policies in one transaction)",
		Long: `Sweep deletes aged rows for every retention policy inside a single
transaction: either every policy's delete commits, or none does.

Without --policies the configured defaults apply. A policy file maps
dataset names to retention days:

  policies:
    auditLog: 90
    externalCallLog: 30`,
		RunE: withApp(func(a *wire.App, cmd *cobra.Command, args []string) error {
			var overrides map[string]time.Duration
			if policyFile != "" {
				var err error
				if overrides, err = config.LoadPolicies(policyFile); err != nil {
					return err
				}
			}
			counts, err := a.Maintenance.CleanupOldData(cmd.Context(), overrides)
			if err != nil {
				return err
			}
			printCounts(counts)
			return nil
		}),
	}
	cmd.Flags().StringVar(&policyFile, "policies", "", "YAML retention policy file")
	return cmd
}

// PartitionCmd returns the partition command group.
func PartitionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partition",
		Short: "Manage monthly partitions",
	}
	cmd.AddCommand(partitionEnsureCmd())
	return cmd
}

func partitionEnsureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure <table> <year> <month>",
		Short: "Idempotently create a monthly partition and its index",
		Args:  cobra.ExactArgs(3),
		RunE: withApp(func(a *wire.App, cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[1])
			}
			month, err := strconv.Atoi(args[2])
			if err != nil || month < 1 || month > 12 {
				return fmt.Errorf("invalid month %q", args[2])
			}

			if a.Maintenance.EnsureMonthlyPartition(cmd.Context(), args[0], year, time.Month(month)) {
				fmt.Printf("%s partition ensured\n", color.New(color.FgGreen).Sprint("✓"))
				return nil
			}
			return fmt.Errorf("failed to ensure partition (see log for cause)")
		}),
	}
}

// StatsCmd returns the archive statistics command.
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show hot/cold row counts per archivable entity",
		RunE: withApp(func(a *wire.App, cmd *cobra.Command, args []string) error {
			stats, err := a.Archive.GetArchiveStatistics(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println()
			fmt.Printf("%-14s %10s %10s  %-20s %-20s\n", "Entity", "Hot", "Cold", "Oldest", "Newest")
			fmt.Println("────────────────────────────────────────────────────────────────────────────")
			for _, t := range stats.Tables {
				oldest, newest := "-", "-"
				if t.Oldest != nil {
					oldest = t.Oldest.Format(time.DateTime)
				}
				if t.Newest != nil {
					newest = t.Newest.Format(time.DateTime)
				}
				fmt.Printf("%-14s %10d %10d  %-20s %-20s\n",
					color.New(color.FgCyan).Sprint(t.Name), t.MainCount, t.ArchiveCount, oldest, newest)
			}
			fmt.Println()
			fmt.Printf("total hot: %d  total cold: %d\n", stats.TotalMain, stats.TotalArchived)
			return nil
		}),
	}
}

// HealthCmd returns the store health-check command.
func HealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check store connectivity and latency",
		RunE: withApp(func(a *wire.App, cmd *cobra.Command, args []string) error {
			status := a.Maintenance.CheckDatabaseHealth(cmd.Context())
			if !status.Healthy {
				fmt.Printf("%s store unreachable: %s\n", color.New(color.FgRed).Sprint("✗"), status.Err)
				return fmt.Errorf("store unhealthy")
			}
			fmt.Printf("%s store healthy  latency: %dms  connections: %d\n",
				color.New(color.FgGreen).Sprint("✓"), status.LatencyMs, status.ConnectionCount)
			return nil
		}),
	}
}

// IntegrityCmd returns the data-integrity validation command.
func IntegrityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "integrity",
		Short: "Validate data-integrity constraints (read-only)",
		RunE: withApp(func(a *wire.App, cmd *cobra.Command, args []string) error {
			report, err := a.Maintenance.ValidateDataIntegrity(cmd.Context())
			if err != nil {
				return err
			}
			if report.Valid {
				fmt.Printf("%s no integrity issues found\n", color.New(color.FgGreen).Sprint("✓"))
				return nil
			}
			for _, issue := range report.Issues {
				fmt.Printf("%s %s: %s (%d rows)\n",
					color.New(color.FgYellow).Sprint("⚠"), issue.Table, issue.Issue, issue.Count)
			}
			return fmt.Errorf("%d integrity issues found", len(report.Issues))
		}),
	}
}

func printCounts(counts map[string]int64) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-20s %d\n", name, counts[name])
	}
}
