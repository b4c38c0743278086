package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect and move stream checkpoints",
	Long: `Each source stream (relational, forum) keeps a watermark: the latest
change time that has been fully indexed. The next sync reads only records
changed after it.`,
	Annotations: map[string]string{annotationServices: servicesQuery},
}

var checkpointGetCmd = &cobra.Command{
	Use:         "get [stream]",
	Short:       "Print a stream's watermark",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{annotationServices: servicesQuery},
	RunE:        runCheckpointGet,
}

var checkpointSetCmd = &cobra.Command{
	Use:   "set [stream] [watermark]",
	Short: "Overwrite a stream's watermark",
	Long: `Overwrites a stream's watermark with an ISO-8601 timestamp such as
2024-03-01T12:00:00Z. Moving it backwards re-indexes everything
changed since.`,
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{annotationServices: servicesQuery},
	RunE:        runCheckpointSet,
}

var checkpointResetCmd = &cobra.Command{
	Use:         "reset [stream]",
	Short:       "Reset a stream to the epoch, forcing a full backfill",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationServices: servicesQuery},
	RunE:        runCheckpointReset,
}

func init() {
	checkpointCmd.AddCommand(checkpointGetCmd)
	checkpointCmd.AddCommand(checkpointSetCmd)
	checkpointCmd.AddCommand(checkpointResetCmd)
	rootCmd.AddCommand(checkpointCmd)
}

func runCheckpointGet(cmd *cobra.Command, args []string) error {
	if checkpointService == nil {
		return errors.New("checkpoint service not configured")
	}

	streams := domain.Streams()
	if len(args) == 1 {
		stream, err := domain.ParseStream(args[0])
		if err != nil {
			return err
		}
		streams = []domain.Stream{stream}
	}

	for _, stream := range streams {
		wm, err := checkpointService.Current(cmd.Context(), stream)
		if err != nil {
			return fmt.Errorf("reading %s checkpoint: %w", stream, err)
		}
		cmd.Printf("%-10s  %s\n", stream, domain.FormatWatermark(wm))
	}
	return nil
}

func runCheckpointSet(cmd *cobra.Command, args []string) error {
	if checkpointService == nil {
		return errors.New("checkpoint service not configured")
	}

	stream, err := domain.ParseStream(args[0])
	if err != nil {
		return err
	}
	wm, err := domain.ParseWatermark(args[1])
	if err != nil {
		return err
	}

	if err := checkpointService.Set(cmd.Context(), stream, wm); err != nil {
		return fmt.Errorf("setting %s checkpoint: %w", stream, err)
	}
	cmd.Printf("Checkpoint %s set to %s\n", stream, domain.FormatWatermark(wm))
	return nil
}

func runCheckpointReset(cmd *cobra.Command, args []string) error {
	if checkpointService == nil {
		return errors.New("checkpoint service not configured")
	}

	stream, err := domain.ParseStream(args[0])
	if err != nil {
		return err
	}

	if err := checkpointService.Reset(cmd.Context(), stream); err != nil {
		return fmt.Errorf("resetting %s checkpoint: %w", stream, err)
	}
	cmd.Printf("Checkpoint %s reset to %s\n", stream, domain.FormatWatermark(domain.DefaultEpoch))
	return nil
}
