package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/hubsearch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/hubsearch/internal/core/services"
	"github.com/custodia-labs/hubsearch/internal/logger"
)

var daemonWatch bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the sync on a schedule",
	Long: `Runs the index sync every [scheduler] interval until interrupted.
Runs never overlap. Task state and recent results are kept in the
checkpoint store when it is SQLite.

With --watch (the default) the config file is watched and a changed
interval takes effect without a restart.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonWatch, "watch", true, "reload the schedule when the config file changes")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if syncOrchestrator == nil || schedulerStore == nil {
		return errors.New("sync service not configured")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	settings := currentConfig().SchedulerSettings()
	scheduler := services.NewScheduler(settings, schedulerStore, syncOrchestrator)

	if daemonWatch {
		err := watchConfig(ctx, configPath, func() {
			c, err := file.Load(configPath)
			if err != nil {
				logger.Warn("Config reload ignored: %v", err)
				return
			}
			if err := scheduler.Reconfigure(ctx, c.SchedulerSettings()); err != nil {
				logger.Warn("Reconfigure scheduler: %v", err)
				return
			}
			logger.Info("Schedule reloaded: every %s", c.Scheduler.Interval)
		})
		if err != nil {
			logger.Warn("Config watch disabled: %v", err)
		}
	}

	if !settings.Enabled {
		cmd.Println("Scheduler is disabled in the config; waiting for it to be enabled.")
	} else {
		cmd.Printf("Syncing every %s. Press Ctrl+C to stop.\n", currentConfig().Scheduler.Interval)
	}

	err := scheduler.Start(ctx)
	if stopErr := scheduler.Stop(); stopErr != nil {
		logger.Warn("Stop scheduler: %v", stopErr)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watchConfig calls reload after the file at path is written or replaced.
// The parent directory is watched so that saves by rename are seen.
// Watching stops when ctx is done.
func watchConfig(ctx context.Context, path string, reload func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Config watcher: %v", err)
			}
		}
	}()
	return nil
}
