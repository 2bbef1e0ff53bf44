package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vqhuy/casevoice-console/internal/bus"
	"github.com/vqhuy/casevoice-console/internal/store"
	"github.com/vqhuy/casevoice-console/internal/watch"
)

var (
	watchDir      string
	watchCaseID   string
	watchPatterns []string
	watchFollow   bool
	watchProcess  bool
	watchSettle   time.Duration
)

// watchCmd uploads audio dropped into a local folder to a case.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Upload audio files from a folder as they appear",
	Long: `Watch a local folder and upload matching audio files to a case.

Files are uploaded once they stop growing, so recordings still being copied
in are never sent half-written. With --follow the command keeps running and
picks up new files until interrupted; without it, existing files are
uploaded in one pass and the command exits.

Examples:
  # One-shot upload of everything already in the folder
  casevoice watch --case-id 42 --dir ./recordings

  # Keep watching for new recordings, transcribe as they arrive
  casevoice watch --case-id 42 --dir /mnt/recorder --follow`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchDir, "dir", "", "Directory to watch (required)")
	watchCmd.Flags().StringVar(&watchCaseID, "case-id", "", "Case to upload into (required)")
	watchCmd.Flags().StringSliceVar(&watchPatterns, "patterns", nil, "Filename patterns to match (default from config)")
	watchCmd.Flags().BoolVar(&watchFollow, "follow", false, "Keep watching for new files until interrupted")
	watchCmd.Flags().BoolVar(&watchProcess, "process", true, "Start transcription after each upload")
	watchCmd.Flags().DurationVar(&watchSettle, "settle", 2*time.Second, "How long a file must stay unchanged before upload")
	watchCmd.MarkFlagRequired("dir")
	watchCmd.MarkFlagRequired("case-id")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()
	logger := log.New(os.Stderr, "[watch] ", log.LstdFlags)

	client := newAPIClient()

	// Local store records ingest activity; watch still works without it.
	var local *store.Store
	if st, err := store.NewStore(resolvePathRelativeToBase(getWorkingDir(), config.Database.Path)); err == nil {
		local = st
		defer local.Close()
	} else {
		logger.Printf("Local store unavailable, activity will not be recorded: %v", err)
	}

	eventBus := bus.NewBus(config.Redis.URL, log.New(os.Stderr, "[bus] ", log.LstdFlags))
	defer eventBus.Close()

	patterns := watchPatterns
	if len(patterns) == 0 {
		patterns = config.Watch.Patterns
	}
	model := ""
	if watchProcess {
		model = config.Model.Name
	}

	w, err := watch.New(client, eventBus, local, watch.Options{
		Dir:         watchDir,
		CaseID:      watchCaseID,
		Patterns:    patterns,
		ModelName:   model,
		Watch:       watchFollow,
		Logger:      logger,
		SettleDelay: watchSettle,
	})
	if err != nil {
		return fmt.Errorf("failed to configure watcher: %w", err)
	}

	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch error: %w", err)
	}
	return nil
}
