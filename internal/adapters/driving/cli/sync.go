package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
)

var syncJSON bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one incremental sync pass",
	Long: `Extracts records changed since each stream's checkpoint from the
relational database and the forum store, indexes them, applies deletions
and advances the checkpoints.

Exits non-zero only when no stream completed its extraction and indexing.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "output the run report as JSON")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	report, err := syncOrchestrator.Run(cmd.Context())
	if report != nil {
		if syncJSON {
			if jerr := writeJSON(cmd.OutOrStdout(), report); jerr != nil {
				return jerr
			}
		} else {
			printSyncReport(cmd.OutOrStdout(), report)
		}
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}

func printSyncReport(w io.Writer, r *domain.SyncReport) {
	fmt.Fprintf(w, "Run %s (%s)\n", r.RunID, r.Duration().Round(time.Millisecond))
	for _, stream := range domain.Streams() {
		sr, ok := r.Streams[stream]
		if !ok {
			fmt.Fprintf(w, "  %-10s  disabled\n", stream)
			continue
		}
		state := "incomplete"
		if sr.Completed {
			state = "complete"
		}
		fmt.Fprintf(w, "  %-10s  %s: extracted %d, skipped %d, indexed %d, failed %d, deleted %d\n",
			stream, state, sr.Extracted, sr.Skipped, sr.Indexed, sr.IndexFailed, sr.Deleted)

		checkpoint := "unchanged"
		if sr.Advanced {
			checkpoint = "advanced"
		}
		fmt.Fprintf(w, "  %-10s  checkpoint %s %s\n", "", checkpoint, domain.FormatWatermark(sr.Watermark))
		for _, e := range sr.Failed {
			fmt.Fprintf(w, "  %-10s  failed: %s\n", "", e)
		}
		if sr.Error != "" {
			fmt.Fprintf(w, "  %-10s  error: %s\n", "", sr.Error)
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
