package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// transcriptCmd prints one uploaded file's transcript to stdout.
var transcriptCmd = &cobra.Command{
	Use:   "transcript <file-id>",
	Short: "Print an uploaded file's transcript",
	Long: `Fetch and print the transcript of an uploaded audio file.

Output goes to stdout, so it can be piped or redirected:

  casevoice transcript 17 > call17.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscript,
}

func init() {
	rootCmd.AddCommand(transcriptCmd)
}

func runTranscript(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client := newAPIClient()

	text, err := client.FileTranscript(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to fetch transcript: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no transcript available for file %s", args[0])
	}
	fmt.Println(text)
	return nil
}
