// Package cli provides the hubsearch command line interface.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hubsearch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driving"
	"github.com/custodia-labs/hubsearch/internal/logger"
)

// Command annotations controlling service wiring.
const (
	annotationServices = "services"
	servicesNone       = "none"
	servicesQuery      = "query"
)

var (
	// version is set at build time with -ldflags.
	version = "dev"

	configPath string
	verbose    bool

	cfg               *file.Config
	searchService     driving.SearchService
	syncOrchestrator  driving.SyncOrchestrator
	checkpointService driving.CheckpointService
	schedulerStore    driven.SchedulerStore
	closers           []func() error

	// loadServices wires the services a command needs. Tests replace it.
	loadServices = wireFromConfig
)

var rootCmd = &cobra.Command{
	Use:   "hubsearch",
	Short: "Search index sync and federated query engine",
	Long: `hubsearch keeps a search cluster in step with the hub's relational
database and forum store, and answers federated full-text queries across
members, teams, projects, events and forum content.

Example usage:
  hubsearch sync                   # Run one incremental sync pass
  hubsearch search "ipfs"          # Search every category
  hubsearch daemon                 # Sync on the configured interval`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if cmd.Annotations[annotationServices] == servicesNone {
			return nil
		}
		return loadServices(cmd)
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return closeServices()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", file.DefaultPath, "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		// PersistentPostRunE does not run when RunE fails.
		err = errors.Join(err, closeServices())
	}
	return err
}

// closeServices releases wired resources in reverse order.
func closeServices() error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	closers = nil
	if err := logger.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// currentConfig returns the loaded config, or defaults when none was loaded.
func currentConfig() *file.Config {
	if cfg != nil {
		return cfg
	}
	return file.DefaultConfig()
}
