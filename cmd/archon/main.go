package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/archon/internal/cli"
	"github.com/example/archon/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "archon",
		Short:   "archon - transactional lifecycle and archival engine",
		Version: version.String(),
		Long: `archon migrates aged records out of hot tables into cold storage and
runs the recurring retention maintenance for the booking store: batch
archival, policy sweeps, cache expiry, partition provisioning.`,
	}

	rootCmd.AddCommand(cli.ArchiveCmd())
	rootCmd.AddCommand(cli.CleanupCmd())
	rootCmd.AddCommand(cli.SweepCmd())
	rootCmd.AddCommand(cli.PartitionCmd())
	rootCmd.AddCommand(cli.StatsCmd())
	rootCmd.AddCommand(cli.HealthCmd())
	rootCmd.AddCommand(cli.IntegrityCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
