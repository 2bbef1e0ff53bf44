package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	uploadCaseID  string
	uploadProcess bool
)

// uploadCmd uploads one or more audio files to a case from the command line.
var uploadCmd = &cobra.Command{
	Use:   "upload <file> [file...]",
	Short: "Upload audio files to a case",
	Long: `Upload audio files to a case without starting the TUI.

All files upload concurrently. The batch is all-or-nothing: processing only
starts when every upload succeeded, so a partial failure never leaves half a
batch transcribing.

Examples:
  # Upload and start transcription
  casevoice upload --case-id 42 call1.wav call2.wav

  # Upload only, process later from the TUI
  casevoice upload --case-id 42 --process=false interview.mp3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVar(&uploadCaseID, "case-id", "", "Case to upload into (required)")
	uploadCmd.Flags().BoolVar(&uploadProcess, "process", true, "Start transcription after upload")
	uploadCmd.MarkFlagRequired("case-id")
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()
	client := newAPIClient()

	model := ""
	if uploadProcess {
		model = config.Model.Name
	}
	results, failed := client.UploadBatch(ctx, uploadCaseID, model, args)

	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("FAILED  %s: %v\n", r.Path, r.Err)
		} else {
			fmt.Printf("ok      %s (task %s)\n", r.Path, r.Response.TaskID)
		}
		if r.ProcessErr != nil {
			fmt.Printf("WARNING process %s: %v\n", r.Response.TaskID, r.ProcessErr)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d upload(s) failed; nothing was processed", len(failed), len(args))
	}

	if !uploadProcess {
		fmt.Printf("Uploaded %d file(s).\n", len(args))
		return nil
	}
	fmt.Printf("Uploaded %d file(s), processing started with model %s.\n", len(args), config.Model.Name)
	return nil
}
