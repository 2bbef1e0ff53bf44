package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/vqhuy/casevoice-console/internal/analysis"
	"github.com/vqhuy/casevoice-console/internal/api"
	"github.com/vqhuy/casevoice-console/internal/store"
)

// renderTasks rebuilds the tasks table for the selected case.
func (ui *UI) renderTasks() {
	ui.tasksTable.Clear()
	headers := []string{"Sel", "Task", "Filename", "Status", "Age"}
	for col, header := range headers {
		ui.tasksTable.SetCell(0, col, tview.NewTableCell(header).
			SetTextColor(ui.theme.TableHeader).
			SetBackgroundColor(ui.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false))
	}
	if ui.selectedCaseID == "" {
		ui.tasksTable.SetCell(1, 0, tview.NewTableCell("Select a case").
			SetTextColor(ui.theme.TableRowMuted))
		return
	}

	tasks := ui.state.Tasks(ui.selectedCaseID)
	if len(tasks) == 0 {
		ui.tasksTable.SetCell(1, 0, tview.NewTableCell("No tasks").
			SetTextColor(ui.theme.TableRowMuted))
		return
	}
	now := time.Now()
	for i, t := range tasks {
		row := i + 1
		mark := " "
		if ui.selectedTaskIDs[t.ID.String()] {
			mark = "*"
		}
		ui.tasksTable.SetCell(row, 0, tview.NewTableCell(mark).
			SetTextColor(ui.theme.Accent))
		ui.tasksTable.SetCell(row, 1, tview.NewTableCell(t.ID.String()).
			SetTextColor(ui.theme.TableRowMuted))
		ui.tasksTable.SetCell(row, 2, tview.NewTableCell(tview.Escape(t.Filename)).
			SetTextColor(ui.theme.TableRow))
		ui.tasksTable.SetCell(row, 3, tview.NewTableCell(t.Status).
			SetTextColor(hex(ui.theme.statusTag(t.Status))))
		ui.tasksTable.SetCell(row, 4, tview.NewTableCell(formatAge(t.CreatedAt, now)).
			SetTextColor(ui.theme.TableRowMuted))
	}
	ui.tasksTable.SetTitle(fmt.Sprintf(" Tasks (%d, %d selected) ", len(tasks), len(ui.selectedTaskIDs)))
}

func (ui *UI) selectedTask() *api.Task {
	row, _ := ui.tasksTable.GetSelection()
	tasks := ui.state.Tasks(ui.selectedCaseID)
	if row < 1 || row-1 >= len(tasks) {
		return nil
	}
	t := tasks[row-1]
	return &t
}

func (ui *UI) setupTaskHandlers() {
	ui.tasksTable.SetSelectedFunc(func(row, col int) {
		ui.switchTab(tabSummary)
	})
	ui.tasksTable.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case ' ':
			ui.toggleTaskSelection()
			return nil
		case 's':
			ui.summarizeSelected()
			return nil
		case 'S':
			ui.summarizeCase()
			return nil
		case 'c':
			ui.showContextPromptForm()
			return nil
		case 'R':
			ui.resummarizeSelected()
			return nil
		case 'v':
			ui.showSavedSummaries()
			return nil
		case 'd':
			if t := ui.selectedTask(); t != nil {
				ui.downloadTaskResult(t)
			}
			return nil
		}
		return event
	})
}

// downloadTaskResult writes the task's result payload to
// result_{taskID}.json in the download directory.
func (ui *UI) downloadTaskResult(t *api.Task) {
	taskID := t.ID.String()
	destDir := ui.opts.DownloadDir
	if destDir == "" {
		destDir = "."
	}
	task := *t
	caseID := ui.selectedCaseID
	go func() {
		var payload interface{} = task
		if task.Result != nil {
			payload = task.Result
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err == nil {
			if err = os.MkdirAll(destDir, 0755); err == nil {
				dest := filepath.Join(destDir, fmt.Sprintf("result_%s.json", taskID))
				if err = os.WriteFile(dest, data, 0644); err == nil {
					if ui.local != nil {
						_ = ui.local.LogAction(ui.ctx, caseID, store.ActionDownload, ui.opts.Actor, map[string]interface{}{
							"task_id": taskID,
							"dest":    dest,
						})
					}
					ui.app.QueueUpdateDraw(func() {
						ui.setStatus("[%s]Saved %s[-]", ui.theme.TagSuccess, tview.Escape(dest))
					})
					return
				}
			}
		}
		ui.app.QueueUpdateDraw(func() {
			ui.setStatus("[%s]Result download failed: %v[-]", ui.theme.TagError, err)
		})
	}()
}

func (ui *UI) toggleTaskSelection() {
	t := ui.selectedTask()
	if t == nil {
		return
	}
	id := t.ID.String()
	if ui.selectedTaskIDs[id] {
		delete(ui.selectedTaskIDs, id)
	} else {
		ui.selectedTaskIDs[id] = true
	}
	ui.renderTasks()
}

// summarizeSelected combines the transcripts of the marked completed tasks
// into one summary and offers to save it locally.
func (ui *UI) summarizeSelected() {
	if len(ui.selectedTaskIDs) == 0 {
		ui.setStatus("[%s]No tasks selected. Use Space to select tasks first.[-]", ui.theme.TagWarning)
		return
	}
	tasks := ui.state.Tasks(ui.selectedCaseID)
	var transcripts []string
	var taskIDs []string
	for _, t := range tasks {
		if !ui.selectedTaskIDs[t.ID.String()] {
			continue
		}
		text := analysis.TranscriptText(&t)
		if text == "" {
			continue
		}
		transcripts = append(transcripts, text)
		taskIDs = append(taskIDs, t.ID.String())
	}
	if len(transcripts) == 0 {
		ui.setStatus("[%s]Selected tasks have no transcripts yet[-]", ui.theme.TagWarning)
		return
	}

	ui.setStatus("[%s]Summarizing %d transcript(s)...[-]", ui.theme.TagWarning, len(transcripts))
	caseID := ui.selectedCaseID
	go func() {
		summary, err := ui.client.SummarizeMulti(ui.ctx, transcripts, ui.opts.ModelName)
		if err != nil {
			ui.app.QueueUpdateDraw(func() {
				ui.setStatus("[%s]Summarize failed: %v[-]", ui.theme.TagError, err)
			})
			return
		}
		if ui.local != nil {
			_ = ui.local.LogAction(ui.ctx, caseID, store.ActionSummarize, ui.opts.Actor, map[string]interface{}{
				"task_count": len(taskIDs),
				"model":      ui.opts.ModelName,
			})
		}
		ui.app.QueueUpdateDraw(func() {
			ui.showCombinedSummary(summary, taskIDs)
		})
	}()
}

// summarizeCase asks the backend to summarize every completed transcript in
// the case.
func (ui *UI) summarizeCase() {
	if ui.selectedCaseID == "" {
		return
	}
	ui.setStatus("[%s]Summarizing case...[-]", ui.theme.TagWarning)
	caseID := ui.selectedCaseID
	go func() {
		summary, err := ui.client.SummarizeCase(ui.ctx, caseID, ui.opts.ModelName)
		if err != nil {
			ui.app.QueueUpdateDraw(func() {
				ui.setStatus("[%s]Case summary failed: %v[-]", ui.theme.TagError, err)
			})
			return
		}
		if ui.local != nil {
			_ = ui.local.LogAction(ui.ctx, caseID, store.ActionSummarize, ui.opts.Actor, map[string]interface{}{
				"scope": "case",
				"model": ui.opts.ModelName,
			})
		}
		ui.app.QueueUpdateDraw(func() {
			ui.showCombinedSummary(summary, nil)
		})
	}()
}

// showCombinedSummary displays a fresh combined summary in the details pane
// with a save prompt.
func (ui *UI) showCombinedSummary(summary string, taskIDs []string) {
	ui.detail.SetText(fmt.Sprintf("[%s::b]Combined Summary[-:-:-]\n\n%s\n\n[%s]Press y to save locally[-]",
		ui.theme.TagAccent, tview.Escape(summary), ui.theme.TagMuted))
	ui.setStatus("[%s]Summary ready[-]", ui.theme.TagSuccess)

	prev := ui.tasksTable.GetInputCapture()
	ui.tasksTable.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'y' {
			ui.tasksTable.SetInputCapture(prev)
			ui.saveSummary(summary, taskIDs)
			return nil
		}
		ui.tasksTable.SetInputCapture(prev)
		if prev != nil {
			return prev(event)
		}
		return event
	})
}

func (ui *UI) saveSummary(summary string, taskIDs []string) {
	if ui.local == nil {
		ui.setStatus("[%s]Local store disabled; summary not saved[-]", ui.theme.TagWarning)
		return
	}
	caseID := ui.selectedCaseID
	go func() {
		title := fmt.Sprintf("Summary of %d task(s)", len(taskIDs))
		if len(taskIDs) == 0 {
			title = "Case summary"
		}
		_, err := ui.local.SaveSummary(ui.ctx, store.SavedSummary{
			CaseID:    caseID,
			Title:     title,
			Content:   summary,
			ModelName: ui.opts.ModelName,
			TaskIDs:   taskIDs,
		})
		if err == nil {
			_ = ui.local.LogAction(ui.ctx, caseID, store.ActionSaveSummary, ui.opts.Actor, nil)
		}
		ui.app.QueueUpdateDraw(func() {
			if err != nil {
				ui.setStatus("[%s]Save failed: %v[-]", ui.theme.TagError, err)
				return
			}
			ui.setStatus("[%s]Summary saved[-]", ui.theme.TagSuccess)
		})
	}()
}

// showSavedSummaries lists locally saved summaries in the details pane.
func (ui *UI) showSavedSummaries() {
	if ui.local == nil {
		ui.setStatus("[%s]Local store disabled[-]", ui.theme.TagWarning)
		return
	}
	caseID := ui.selectedCaseID
	go func() {
		summaries, err := ui.local.ListSummaries(ui.ctx, caseID)
		ui.app.QueueUpdateDraw(func() {
			if err != nil {
				ui.setStatus("[%s]Load saved summaries failed: %v[-]", ui.theme.TagError, err)
				return
			}
			if len(summaries) == 0 {
				ui.detail.SetText(fmt.Sprintf("[%s]No saved summaries for this case[-]", ui.theme.TagMuted))
				return
			}
			var b strings.Builder
			fmt.Fprintf(&b, "[%s::b]Saved Summaries (%d)[-:-:-]\n", ui.theme.TagAccent, len(summaries))
			for _, s := range summaries {
				fmt.Fprintf(&b, "\n[%s]%s[-]  [%s]%s[-]\n%s\n",
					ui.theme.TagHighlight, tview.Escape(s.Title),
					ui.theme.TagMuted, s.CreatedAt.Local().Format("2006-01-02 15:04"),
					tview.Escape(s.Content))
			}
			ui.detail.SetText(b.String())
		})
	}()
}

// showContextPromptForm edits the selected task's user context prompt, which
// steers later resummarize runs.
func (ui *UI) showContextPromptForm() {
	t := ui.selectedTask()
	if t == nil {
		return
	}
	current := ""
	if t.Result != nil {
		current = t.Result.UserContextPrompt
	}
	taskID := t.ID.String()
	taskCopy := *t

	form := tview.NewForm()
	form.AddInputField("Context prompt", current, 50, nil, nil)
	form.AddButton("Save", func() {
		prompt := form.GetFormItemByLabel("Context prompt").(*tview.InputField).GetText()
		ui.closeDialog()
		go func() {
			err := ui.client.UpdateTaskContext(ui.ctx, taskID, prompt)
			if err == nil {
				// Land the prompt locally right away; the next poll confirms it.
				patched := taskCopy
				if patched.Result == nil {
					patched.Result = &api.TaskResult{}
				} else {
					resultCopy := *taskCopy.Result
					patched.Result = &resultCopy
				}
				patched.Result.UserContextPrompt = prompt
				ui.state.PatchTask(patched)
				if ui.local != nil {
					_ = ui.local.LogAction(ui.ctx, ui.selectedCaseID, store.ActionUpdatePrompt, ui.opts.Actor, map[string]interface{}{
						"task_id": taskID,
					})
				}
			}
			ui.app.QueueUpdateDraw(func() {
				if err != nil {
					ui.setStatus("[%s]Save context failed: %v[-]", ui.theme.TagError, err)
					return
				}
				ui.renderActiveTab()
				ui.setStatus("[%s]Context saved. Press R to resummarize.[-]", ui.theme.TagSuccess)
			})
		}()
	})
	form.AddButton("Cancel", func() { ui.closeDialog() })
	form.SetBorder(true).SetTitle(" Task Context ").SetTitleAlign(tview.AlignLeft)
	ui.openDialog(form, 62, 7)
}

// resummarizeSelected regenerates the selected task's summary using its
// saved context prompt.
func (ui *UI) resummarizeSelected() {
	t := ui.selectedTask()
	if t == nil {
		return
	}
	taskID := t.ID.String()
	caseID := ui.selectedCaseID
	ui.setStatus("[%s]Resummarizing task %s...[-]", ui.theme.TagWarning, taskID)
	go func() {
		summary, err := ui.client.ResummarizeTask(ui.ctx, taskID)
		if err != nil {
			ui.app.QueueUpdateDraw(func() {
				ui.setStatus("[%s]Resummarize failed: %v[-]", ui.theme.TagError, err)
			})
			return
		}
		if ui.local != nil {
			_ = ui.local.LogAction(ui.ctx, caseID, store.ActionResummarize, ui.opts.Actor, map[string]interface{}{
				"task_id": taskID,
			})
		}
		// Refetch so the task result carries the new summary.
		if task, err := ui.client.GetTask(ui.ctx, taskID); err == nil {
			ui.state.PatchTask(*task)
		}
		ui.app.QueueUpdateDraw(func() {
			ui.renderActiveTab()
			ui.detail.SetText(fmt.Sprintf("[%s::b]New Summary[-:-:-]\n\n%s",
				ui.theme.TagAccent, tview.Escape(summary)))
			ui.setStatus("[%s]Summary regenerated[-]", ui.theme.TagSuccess)
		})
	}()
}
