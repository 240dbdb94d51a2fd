// Package cli contains the cobra commands for the archon binary.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/archon/internal/config"
	"github.com/example/archon/internal/wire"
)

// withApp loads configuration from the working directory, builds the
// application graph, runs fn, and tears the store handle down again.
func withApp(fn func(a *wire.App, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg, err := config.Load(cwd)
		if err != nil {
			return err
		}
		a, err := wire.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(a, cmd, args)
	}
}
