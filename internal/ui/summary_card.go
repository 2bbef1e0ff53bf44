package ui

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/vqhuy/casevoice-console/internal/analysis"
	"github.com/vqhuy/casevoice-console/internal/api"
	"github.com/vqhuy/casevoice-console/internal/store"
)

// Analysis sub-tabs inside the Summary tab.
const (
	analysisReport = iota
	analysisEntities
	analysisGraph
	analysisTabCount
)

var analysisTitles = [analysisTabCount]string{"Report", "Entities", "Graph"}

// analysisGuard serializes auto-analysis per task: at most one request in
// flight, and a failed request parks the task until the operator retries
// with 'a'. Without the parking a failing backend would be re-queried on
// every redraw.
type analysisGuard struct {
	inflight sync.Map
	failed   sync.Map
}

// start claims the in-flight slot for taskID. It refuses parked tasks.
func (g *analysisGuard) start(taskID string) bool {
	if _, parked := g.failed.Load(taskID); parked {
		return false
	}
	_, loaded := g.inflight.LoadOrStore(taskID, true)
	return !loaded
}

// fail parks the task with its error and releases the in-flight slot.
func (g *analysisGuard) fail(taskID string, err error) {
	g.failed.Store(taskID, err)
	g.inflight.Delete(taskID)
}

// done releases the task entirely, clearing any parked failure.
func (g *analysisGuard) done(taskID string) {
	g.failed.Delete(taskID)
	g.inflight.Delete(taskID)
}

// failure returns the parked error for taskID, or nil.
func (g *analysisGuard) failure(taskID string) error {
	if v, ok := g.failed.Load(taskID); ok {
		return v.(error)
	}
	return nil
}

// analyzing guards one auto-analysis per task.
var analyzing analysisGuard

// summaryTask picks the task whose summary the tab shows: the table
// selection when valid, otherwise the newest completed task.
func (ui *UI) summaryTask() *api.Task {
	if t := ui.selectedTask(); t != nil {
		return t
	}
	tasks := ui.state.Tasks(ui.selectedCaseID)
	var best *api.Task
	for i := range tasks {
		if tasks[i].Status != api.StatusCompleted {
			continue
		}
		if best == nil || tasks[i].CreatedAt > best.CreatedAt {
			best = &tasks[i]
		}
	}
	return best
}

// renderSummaryTab draws the summary text plus the structured analysis.
func (ui *UI) renderSummaryTab() {
	if ui.selectedCaseID == "" {
		ui.summary.SetText(fmt.Sprintf("[%s]Select a case[-]", ui.theme.TagMuted))
		return
	}
	t := ui.summaryTask()
	if t == nil {
		ui.summary.SetText(fmt.Sprintf("[%s]No completed tasks yet[-]", ui.theme.TagMuted))
		return
	}

	summaryText := analysis.SummaryText(t)
	report := ui.reportFor(t)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s::b]%s[-:-:-]  [%s]task %s[-]\n\n",
		ui.theme.TagAccent, tview.Escape(t.Filename), ui.theme.TagMuted, t.ID)

	if summaryText == "" {
		fmt.Fprintf(&b, "[%s]No summary yet[-]\n", ui.theme.TagMuted)
	} else if report != nil {
		b.WriteString(analysis.Highlight(summaryText, analysis.KeywordTerms(report), ui.theme.TagHighlight))
		b.WriteString("\n")
	} else {
		b.WriteString(tview.Escape(summaryText))
		b.WriteString("\n")
	}

	if report == nil {
		if summaryText != "" {
			if err := analyzing.failure(t.ID.String()); err != nil {
				fmt.Fprintf(&b, "\n[%s]Analysis failed: %v[-]\n[%s]Press a to retry.[-]\n",
					ui.theme.TagError, err, ui.theme.TagMuted)
			} else {
				fmt.Fprintf(&b, "\n[%s]Analyzing...[-]\n", ui.theme.TagWarning)
				ui.autoAnalyze(t, summaryText)
			}
		}
		ui.summary.SetText(b.String())
		ui.summary.SetInputCapture(ui.summaryInputCapture())
		return
	}

	b.WriteString("\n")
	for i, title := range analysisTitles {
		if i == ui.analysisTab {
			fmt.Fprintf(&b, "[%s::b][%s][-:-:-] ", ui.theme.TagAccent, title)
		} else {
			fmt.Fprintf(&b, "[%s][%s][-] ", ui.theme.TagMuted, title)
		}
	}
	fmt.Fprintf(&b, " [%s]([/]): switch  a: re-analyze  x: reveal sensitive[-]\n\n", ui.theme.TagMuted)

	switch ui.analysisTab {
	case analysisReport:
		ui.writeReport(&b, report)
	case analysisEntities:
		ui.writeEntities(&b, report)
	case analysisGraph:
		ui.writeGraph(&b, report)
	}

	ui.writeSensitive(&b, report)

	ui.summary.SetText(b.String())
	ui.summary.SetInputCapture(ui.summaryInputCapture())
}

func (ui *UI) summaryInputCapture() func(*tcell.EventKey) *tcell.EventKey {
	return func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case '[':
			ui.analysisTab = (ui.analysisTab + analysisTabCount - 1) % analysisTabCount
			ui.renderSummaryTab()
			return nil
		case ']':
			ui.analysisTab = (ui.analysisTab + 1) % analysisTabCount
			ui.renderSummaryTab()
			return nil
		case 'x':
			ui.revealSensitive = !ui.revealSensitive
			ui.renderSummaryTab()
			return nil
		case 'a':
			ui.confirmReanalyze()
			return nil
		}
		return event
	}
}

// reportFor decodes a task's context analysis into a report, or nil.
func (ui *UI) reportFor(t *api.Task) *analysis.Report {
	if t.Result == nil || len(t.Result.ContextAnalysis) == 0 {
		return nil
	}
	return analysis.Normalize(analysis.Decode(t.Result.ContextAnalysis))
}

// autoAnalyze requests a context analysis for a task that has a summary but
// no analysis yet. At most one request per task is in flight; a failure
// parks the task, surfaces the error and drops back to the report view.
func (ui *UI) autoAnalyze(t *api.Task, summaryText string) {
	taskID := t.ID.String()
	if !analyzing.start(taskID) {
		return
	}
	go func() {
		raw, err := ui.client.AnalyzeSummary(ui.ctx, summaryText, taskID)
		if err == nil && len(raw) == 0 {
			err = errors.New("empty analysis response")
		}
		if err != nil {
			ui.logger.Printf("analyze task %s failed: %v", taskID, err)
			analyzing.fail(taskID, err)
			ui.app.QueueUpdateDraw(func() {
				ui.analysisTab = analysisReport
				ui.setStatus("[%s]Analysis of %s failed: %v[-]",
					ui.theme.TagError, tview.Escape(t.Filename), err)
				ui.renderActiveTab()
			})
			return
		}
		analyzing.done(taskID)
		patched := *t
		if patched.Result == nil {
			patched.Result = &api.TaskResult{}
		} else {
			resultCopy := *t.Result
			patched.Result = &resultCopy
		}
		patched.Result.ContextAnalysis = raw
		ui.state.PatchTask(patched)
		if ui.local != nil {
			_ = ui.local.LogAction(ui.ctx, ui.selectedCaseID, store.ActionAnalyze, ui.opts.Actor, map[string]interface{}{
				"task_id": taskID,
			})
		}
		ui.app.QueueUpdateDraw(func() {
			ui.renderActiveTab()
		})
	}()
}

// confirmReanalyze asks before discarding the current analysis.
func (ui *UI) confirmReanalyze() {
	t := ui.summaryTask()
	if t == nil {
		return
	}
	summaryText := analysis.SummaryText(t)
	if summaryText == "" {
		ui.setStatus("[%s]No summary to analyze[-]", ui.theme.TagWarning)
		return
	}
	modal := tview.NewModal().
		SetText("Re-run the context analysis? The current analysis will be replaced.").
		AddButtons([]string{"Re-analyze", "Cancel"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			ui.closeDialog()
			if buttonIndex == 0 {
				analyzing.done(t.ID.String())
				cleared := *t
				if cleared.Result != nil {
					resultCopy := *t.Result
					resultCopy.ContextAnalysis = nil
					cleared.Result = &resultCopy
					ui.state.PatchTask(cleared)
				}
				ui.autoAnalyze(&cleared, summaryText)
				ui.renderSummaryTab()
			}
		})
	ui.openDialog(modal, 50, 10)
}

func (ui *UI) writeReport(b *strings.Builder, r *analysis.Report) {
	ov := r.Overview
	fmt.Fprintf(b, "[%s::b]Overview[-:-:-]\n", ui.theme.TagAccent)
	fmt.Fprintf(b, "  Topic:    %s\n", tview.Escape(ov.Topic))
	fmt.Fprintf(b, "  Time:     %s\n", tview.Escape(ov.Time))
	fmt.Fprintf(b, "  Location: %s\n", tview.Escape(ov.Location))
	fmt.Fprintf(b, "  Status:   %s\n", tview.Escape(ov.Status))
	if r.Sentiment != "" {
		fmt.Fprintf(b, "  Sentiment: %s\n", tview.Escape(r.Sentiment))
	}

	writeList := func(title string, items []string, tag string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(b, "\n[%s::b]%s[-:-:-]\n", tag, title)
		for _, item := range items {
			fmt.Fprintf(b, "  - %s\n", tview.Escape(item))
		}
	}
	writeList("Key Points", r.KeyPoints, ui.theme.TagAccent)
	writeList("Actions", r.Actions, ui.theme.TagAccent)
	writeList("Decisions", r.Decisions, ui.theme.TagAccent)
	writeList("Offers", r.Offers, ui.theme.TagAccent)
	writeList("Risks", r.Risks, ui.theme.TagWarning)
	writeList("Insights", r.Insights, ui.theme.TagAccent)
	writeList("Hidden Relationships", r.HiddenRelationships, ui.theme.TagWarning)

	if len(r.Events) > 0 {
		fmt.Fprintf(b, "\n[%s::b]Timeline[-:-:-]\n", ui.theme.TagAccent)
		for _, ev := range r.Events {
			when := ev.Time
			if when == "" {
				when = "--:--"
			}
			fmt.Fprintf(b, "  %s  %s\n", tview.Escape(when), tview.Escape(ev.Description))
		}
	}
	if r.SlangDetected != "" {
		fmt.Fprintf(b, "\n[%s::b]Slang Detected[-:-:-]\n  %s\n", ui.theme.TagWarning, tview.Escape(r.SlangDetected))
	}
	if r.Notes != "" {
		fmt.Fprintf(b, "\n[%s::b]Notes[-:-:-]\n  %s\n", ui.theme.TagMuted, tview.Escape(r.Notes))
	}
}

func (ui *UI) writeEntities(b *strings.Builder, r *analysis.Report) {
	if len(r.Entities) == 0 {
		fmt.Fprintf(b, "[%s]No entities extracted[-]\n", ui.theme.TagMuted)
		return
	}
	fmt.Fprintf(b, "[%s::b]Entities (%d)[-:-:-]\n", ui.theme.TagAccent, len(r.Entities))
	for _, e := range r.Entities {
		name := analysis.EntityLabel(e)
		line := fmt.Sprintf("  [%s]%s[-]", ui.theme.TagTextPrimary, tview.Escape(name))
		if e.Type != "" {
			line += fmt.Sprintf(" [%s](%s)[-]", ui.theme.TagMuted, tview.Escape(e.Type))
		}
		if e.Role != "" {
			line += fmt.Sprintf(" [%s]%s[-]", ui.theme.TagMuted, tview.Escape(e.Role))
		}
		if e.Sensitive {
			if ui.revealSensitive {
				line += fmt.Sprintf(" [%s]SENSITIVE[-]", ui.theme.TagSensitive)
			} else {
				line += fmt.Sprintf(" [%s]hidden[-]", ui.theme.TagMuted)
				b.WriteString(line + "\n")
				continue
			}
		}
		b.WriteString(line + "\n")
		if e.Context != "" {
			fmt.Fprintf(b, "    [%s]%s[-]\n", ui.theme.TagMuted, tview.Escape(e.Context))
		}
	}

	if len(r.Relationships) > 0 {
		fmt.Fprintf(b, "\n[%s::b]Relationships[-:-:-]\n", ui.theme.TagAccent)
		for _, rel := range r.Relationships {
			label := rel.Label
			if label == "" {
				label = rel.Type
			}
			if rel.Source != "" || rel.Target != "" {
				fmt.Fprintf(b, "  %s -[%s]%s[-]-> %s\n",
					tview.Escape(rel.Source), ui.theme.TagAccent, tview.Escape(label), tview.Escape(rel.Target))
			} else {
				fmt.Fprintf(b, "  %s\n", tview.Escape(label))
			}
		}
	}
}

// writeGraph renders the entity graph as text rows: nodes with their laid-out
// positions and the surviving edges.
func (ui *UI) writeGraph(b *strings.Builder, r *analysis.Report) {
	g := analysis.BuildGraph(r)
	if len(g.Nodes) == 0 {
		fmt.Fprintf(b, "[%s]No graph data[-]\n", ui.theme.TagMuted)
		return
	}
	fmt.Fprintf(b, "[%s::b]Entity Graph[-:-:-]\n", ui.theme.TagAccent)
	for _, n := range g.Nodes {
		fmt.Fprintf(b, "  (%4d,%4d)  [%s]%s[-]  [%s]%s[-]\n",
			n.X, n.Y, ui.theme.TagTextPrimary, tview.Escape(n.Label),
			ui.theme.TagMuted, tview.Escape(n.Tooltip))
	}
	if len(g.Edges) > 0 {
		b.WriteString("\n")
		for _, e := range g.Edges {
			fmt.Fprintf(b, "  %s --%s--> %s\n",
				tview.Escape(e.Source), tview.Escape(e.Label), tview.Escape(e.Target))
		}
	}
}

// writeSensitive appends the sensitive-information block, masked until the
// operator reveals it.
func (ui *UI) writeSensitive(b *strings.Builder, r *analysis.Report) {
	items := analysis.CollectSensitive(r)
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n[%s::b]Sensitive Information (%d)[-:-:-]\n", ui.theme.TagSensitive, len(items))
	if !ui.revealSensitive {
		fmt.Fprintf(b, "  [%s]Hidden. Press x to reveal.[-]\n", ui.theme.TagMuted)
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "  [%s]- %s[-]\n", ui.theme.TagSensitive, tview.Escape(item))
	}
}
