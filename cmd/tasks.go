package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vqhuy/casevoice-console/internal/analysis"
	"github.com/vqhuy/casevoice-console/internal/api"
)

var (
	tasksCaseID     string
	tasksDate       string
	showTranscript  bool
	showRawAnalysis bool
)

// tasksCmd groups headless task operations.
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List and inspect transcription tasks",
	Long: `Work with transcription tasks without starting the TUI.

Examples:
  # List today's tasks
  casevoice tasks list

  # List tasks for one case
  casevoice tasks list --case-id 42

  # Show one task's summary and analysis
  casevoice tasks show <task-id>`,
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered by case or date",
	RunE:  runTasksList,
}

var tasksShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task's transcript, summary, and context analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksShow,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksShowCmd)

	tasksListCmd.Flags().StringVar(&tasksCaseID, "case-id", "", "Only tasks belonging to this case")
	tasksListCmd.Flags().StringVar(&tasksDate, "date", "", "Only tasks for this date (YYYY-MM-DD)")
	tasksShowCmd.Flags().BoolVar(&showTranscript, "transcript", false, "Include the full transcript")
	tasksShowCmd.Flags().BoolVar(&showRawAnalysis, "raw", false, "Print the raw context analysis payload")
}

func runTasksList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client := newAPIClient()

	tasks, err := client.ListTasks(ctx, tasksDate, tasksCaseID)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}

	rows := make([][]string, 0, len(tasks))
	inFlight := 0
	for _, t := range tasks {
		if api.InFlight(t.Status) {
			inFlight++
		}
		rows = append(rows, []string{
			t.ID.String(),
			t.CaseID.String(),
			t.Filename,
			t.Status,
			t.CreatedAt,
		})
	}
	fmt.Println(renderTable(
		[]string{"Task", "Case", "Filename", "Status", "Created At"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft},
	))
	fmt.Printf("%d task(s), %d in flight\n", len(tasks), inFlight)
	return nil
}

func runTasksShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client := newAPIClient()

	task, err := client.GetTask(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to fetch task: %w", err)
	}

	fmt.Printf("Task:     %s\n", task.ID)
	fmt.Printf("Case:     %s\n", task.CaseID)
	fmt.Printf("Filename: %s\n", task.Filename)
	fmt.Printf("Status:   %s\n", task.Status)
	if task.CreatedAt != "" {
		fmt.Printf("Created:  %s\n", task.CreatedAt)
	}
	if task.UpdatedAt != "" {
		fmt.Printf("Updated:  %s\n", task.UpdatedAt)
	}

	if summary := analysis.SummaryText(task); summary != "" {
		fmt.Printf("\nSummary:\n%s\n", summary)
	}

	if showTranscript {
		if transcript := analysis.TranscriptText(task); transcript != "" {
			fmt.Printf("\nTranscript:\n%s\n", transcript)
		}
	}

	if task.Result != nil && len(task.Result.ContextAnalysis) > 0 {
		if showRawAnalysis {
			fmt.Printf("\nContext analysis (raw):\n%s\n", string(task.Result.ContextAnalysis))
			return nil
		}
		report := analysis.Normalize(analysis.Decode(task.Result.ContextAnalysis))
		printReport(report)
	}
	return nil
}

// printReport renders the normalized context analysis as plain sections.
func printReport(r *analysis.Report) {
	if r == nil {
		return
	}
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Printf("\n%s:\n", title)
		for _, item := range items {
			fmt.Printf("  - %s\n", item)
		}
	}

	o := r.Overview
	fmt.Println("\nOverview:")
	fmt.Printf("  Title:     %s\n", o.Title)
	fmt.Printf("  Time:      %s\n", o.Time)
	fmt.Printf("  Location:  %s\n", o.Location)
	fmt.Printf("  Status:    %s\n", o.Status)
	fmt.Printf("  Topic:     %s\n", o.Topic)
	if r.Sentiment != "" {
		fmt.Printf("  Sentiment: %s\n", r.Sentiment)
	}

	section("Key points", r.KeyPoints)
	section("Actions", r.Actions)
	section("Decisions", r.Decisions)
	section("Offers", r.Offers)
	section("Risks", r.Risks)
	section("Insights", r.Insights)

	if len(r.Entities) > 0 {
		fmt.Println("\nEntities:")
		for _, e := range r.Entities {
			line := "  - " + analysis.EntityLabel(e)
			if e.Type != "" {
				line += " (" + e.Type + ")"
			}
			fmt.Println(line)
		}
	}
	if len(r.Relationships) > 0 {
		fmt.Println("\nRelationships:")
		for _, rel := range r.Relationships {
			label := rel.Label
			if label == "" {
				label = rel.Type
			}
			fmt.Printf("  - %s -> %s: %s\n", rel.Source, rel.Target, label)
		}
	}
	if len(r.Events) > 0 {
		fmt.Println("\nTimeline:")
		for _, ev := range r.Events {
			line := "  - "
			if ev.Time != "" {
				line += ev.Time + "  "
			}
			line += ev.Description
			fmt.Println(strings.TrimRight(line, " "))
		}
	}

	sensitive := analysis.CollectSensitive(r)
	if len(sensitive) > 0 {
		section("Sensitive", sensitive)
	}
}
