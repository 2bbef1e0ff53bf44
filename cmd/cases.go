package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/vqhuy/casevoice-console/internal/api"
)

var (
	caseTitle       string
	caseDescription string
)

// casesCmd groups headless case operations for terminals where the TUI
// cannot run.
var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "List and create cases from the command line",
	Long: `Work with cases without starting the TUI.

Examples:
  # List all cases
  casevoice cases list

  # Create a case
  casevoice cases create --title "Warehouse break-in" --description "North site"`,
}

var casesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all cases",
	RunE:  runCasesList,
}

var casesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new case",
	RunE:  runCasesCreate,
}

func init() {
	rootCmd.AddCommand(casesCmd)
	casesCmd.AddCommand(casesListCmd)
	casesCmd.AddCommand(casesCreateCmd)

	casesCreateCmd.Flags().StringVar(&caseTitle, "title", "", "Case title (required)")
	casesCreateCmd.Flags().StringVar(&caseDescription, "description", "", "Case description")
	casesCreateCmd.MarkFlagRequired("title")
}

// newAPIClient builds a backend client from the resolved configuration.
// Headless commands log quietly; errors surface through command results.
func newAPIClient() *api.Client {
	config := GetConfig()
	logger := log.New(io.Discard, "", 0)
	if config.Log.Level == "debug" {
		logger = log.New(os.Stderr, "[api] ", log.LstdFlags)
	}
	return api.NewClient(config.API.BaseURL, config.API.Timeout, logger)
}

func runCasesList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client := newAPIClient()

	cases, err := client.ListCases(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cases: %w", err)
	}
	if len(cases) == 0 {
		fmt.Println("No cases found.")
		return nil
	}

	rows := make([][]string, 0, len(cases))
	for _, c := range cases {
		rows = append(rows, []string{
			c.ID.String(),
			c.CaseCode,
			c.Title,
			c.CreatedBy,
			c.CreatedAt,
		})
	}
	fmt.Println(renderTable(
		[]string{"ID", "Code", "Title", "Created By", "Created At"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	))
	fmt.Printf("%d case(s)\n", len(cases))
	return nil
}

func runCasesCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client := newAPIClient()

	created, err := client.CreateCase(ctx, caseTitle, caseDescription)
	if err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}

	fmt.Printf("Created case %s", created.ID)
	if created.CaseCode != "" {
		fmt.Printf(" (%s)", created.CaseCode)
	}
	fmt.Printf(": %s\n", created.Title)
	return nil
}
