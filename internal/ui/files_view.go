package ui

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/vqhuy/casevoice-console/internal/analysis"
	"github.com/vqhuy/casevoice-console/internal/api"
	"github.com/vqhuy/casevoice-console/internal/bus"
	"github.com/vqhuy/casevoice-console/internal/store"
)

// renderFiles rebuilds the files table for the selected case.
func (ui *UI) renderFiles() {
	ui.filesTable.Clear()
	headers := []string{"Filename", "Status", "Task", "URL"}
	for col, header := range headers {
		ui.filesTable.SetCell(0, col, tview.NewTableCell(header).
			SetTextColor(ui.theme.TableHeader).
			SetBackgroundColor(ui.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false))
	}
	if ui.selectedCaseID == "" {
		ui.filesTable.SetCell(1, 0, tview.NewTableCell("Select a case").
			SetTextColor(ui.theme.TableRowMuted))
		return
	}

	files := ui.state.Files(ui.selectedCaseID)
	if len(files) == 0 {
		ui.filesTable.SetCell(1, 0, tview.NewTableCell("No files uploaded").
			SetTextColor(ui.theme.TableRowMuted))
		return
	}
	for i, f := range files {
		row := i + 1
		ui.filesTable.SetCell(row, 0, tview.NewTableCell(tview.Escape(f.Filename)).
			SetTextColor(ui.theme.TableRow))
		ui.filesTable.SetCell(row, 1, tview.NewTableCell(f.Status).
			SetTextColor(hex(ui.theme.statusTag(f.Status))))
		ui.filesTable.SetCell(row, 2, tview.NewTableCell(f.TaskID.String()).
			SetTextColor(ui.theme.TableRowMuted))
		ui.filesTable.SetCell(row, 3, tview.NewTableCell(tview.Escape(f.URL)).
			SetTextColor(ui.theme.TableRowMuted))
	}
	ui.filesTable.SetTitle(fmt.Sprintf(" Files (%d) ", len(files)))
}

func (ui *UI) selectedFile() *api.AudioFile {
	row, _ := ui.filesTable.GetSelection()
	files := ui.state.Files(ui.selectedCaseID)
	if row < 1 || row-1 >= len(files) {
		return nil
	}
	f := files[row-1]
	return &f
}

func (ui *UI) setupFileHandlers() {
	ui.filesTable.SetSelectedFunc(func(row, col int) {
		ui.showFileTranscript()
	})
	ui.filesTable.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'p':
			if f := ui.selectedFile(); f != nil {
				ui.playFile(f)
			}
			return nil
		case 'd':
			if f := ui.selectedFile(); f != nil {
				ui.downloadFile(f)
			}
			return nil
		case 't':
			ui.showFileTranscript()
			return nil
		case 'P':
			if f := ui.selectedFile(); f != nil {
				ui.processFile(f)
			}
			return nil
		}
		return event
	})
}

// processFile starts transcription for an uploaded file. The status flips to
// processing immediately; the burst poll corrects it if the backend disagrees.
func (ui *UI) processFile(f *api.AudioFile) {
	taskID := f.TaskID.String()
	if taskID == "" {
		ui.setStatus("[%s]File has no task to process[-]", ui.theme.TagWarning)
		return
	}
	caseID := ui.selectedCaseID
	ui.state.PatchFileStatus(caseID, f.ID.String(), api.StatusProcessing)
	ui.renderFiles()
	ui.setStatus("[%s]Processing %s...[-]", ui.theme.TagWarning, tview.Escape(f.Filename))
	go func() {
		task, err := ui.client.ProcessTask(ui.ctx, taskID, ui.opts.ModelName)
		if err != nil {
			ui.app.QueueUpdateDraw(func() {
				ui.setStatus("[%s]Process failed: %v[-]", ui.theme.TagError, err)
			})
			return
		}
		// The response payload is authoritative for the new status.
		if task != nil && task.Status != "" {
			ui.state.PatchFileStatus(caseID, f.ID.String(), task.Status)
			ui.app.QueueUpdateDraw(func() {
				ui.renderFiles()
			})
		}
		if ui.local != nil {
			_ = ui.local.LogAction(ui.ctx, caseID, store.ActionProcess, ui.opts.Actor, map[string]interface{}{
				"task_id": taskID,
			})
		}
		if ui.poller != nil {
			ui.poller.TriggerBurst(ui.ctx, caseID)
		}
	}()
}

// showFileTranscript fetches and displays the selected file's transcript in
// the details pane.
func (ui *UI) showFileTranscript() {
	f := ui.selectedFile()
	if f == nil {
		return
	}
	ui.detail.SetText(fmt.Sprintf("[%s]Loading transcript for %s...[-]", ui.theme.TagWarning, tview.Escape(f.Filename)))
	fileID := f.ID.String()
	go func() {
		text, err := ui.client.FileTranscript(ui.ctx, fileID)
		ui.app.QueueUpdateDraw(func() {
			if err != nil {
				ui.detail.SetText(fmt.Sprintf("[%s]Transcript unavailable: %v[-]", ui.theme.TagError, err))
				return
			}
			if strings.TrimSpace(text) == "" {
				ui.detail.SetText(fmt.Sprintf("[%s]No transcript yet[-]", ui.theme.TagMuted))
				return
			}
			ui.detail.SetText(tview.Escape(text))
		})
	}()
}

// playFile hands the audio URL to the configured external player, or shows
// it for manual playback when no player is configured.
func (ui *UI) playFile(f *api.AudioFile) {
	url := f.URL
	if url == "" {
		url = ui.client.PublicAudioURL(f.Filename)
	}
	player := ui.opts.PlayerCommand
	if player == "" {
		ui.detail.SetText(fmt.Sprintf("[%s]Playback URL[-]\n\n%s", ui.theme.TagAccent, tview.Escape(url)))
		ui.setStatus("[%s]Playback URL shown in details[-]", ui.theme.TagSuccess)
		return
	}
	// One playback at a time: starting a new file stops the previous player.
	if ui.playerCmd != nil && ui.playerCmd.Process != nil {
		_ = ui.playerCmd.Process.Kill()
	}
	cmd := exec.CommandContext(ui.ctx, player, url)
	if err := cmd.Start(); err != nil {
		ui.setStatus("[%s]Player failed: %v[-]", ui.theme.TagError, err)
		return
	}
	ui.playerCmd = cmd
	go func() { _ = cmd.Wait() }()
	ui.setStatus("[%s]Playing %s with %s[-]", ui.theme.TagSuccess, tview.Escape(f.Filename), player)
}

func (ui *UI) downloadFile(f *api.AudioFile) {
	url := f.URL
	if url == "" {
		url = ui.client.PublicAudioURL(f.Filename)
	}
	destDir := ui.opts.DownloadDir
	if destDir == "" {
		destDir = "."
	}
	ui.setStatus("[%s]Downloading %s...[-]", ui.theme.TagWarning, tview.Escape(f.Filename))
	go func() {
		dest, err := ui.client.DownloadFile(ui.ctx, url, destDir)
		if err == nil && ui.local != nil {
			_ = ui.local.LogAction(ui.ctx, ui.selectedCaseID, store.ActionDownload, ui.opts.Actor, map[string]interface{}{
				"filename": f.Filename,
				"dest":     dest,
			})
		}
		ui.app.QueueUpdateDraw(func() {
			if err != nil {
				ui.setStatus("[%s]Download failed: %v[-]", ui.theme.TagError, err)
				return
			}
			ui.setStatus("[%s]Saved %s[-]", ui.theme.TagSuccess, tview.Escape(dest))
		})
	}()
}

// showUploadForm opens the multi-file upload modal. Paths are separated by
// commas; the batch either fully succeeds or is reported as failed.
func (ui *UI) showUploadForm() {
	form := tview.NewForm()
	form.AddInputField("Paths", "", 50, nil, nil)
	form.AddCheckbox("Process after upload", true, nil)
	form.AddButton("Upload", func() {
		raw := form.GetFormItemByLabel("Paths").(*tview.InputField).GetText()
		process := form.GetFormItemByLabel("Process after upload").(*tview.Checkbox).IsChecked()
		paths := []string{}
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		if len(paths) == 0 {
			ui.setStatus("[%s]No paths given[-]", ui.theme.TagError)
			return
		}
		ui.closeDialog()
		ui.setStatus("[%s]Uploading %d file(s)...[-]", ui.theme.TagWarning, len(paths))
		go ui.uploadBatch(paths, process)
	})
	form.AddButton("Cancel", func() { ui.closeDialog() })
	form.SetBorder(true).SetTitle(" Upload Audio ").SetTitleAlign(tview.AlignLeft)
	ui.openDialog(form, 62, 9)
}

// uploadBatch uploads all paths concurrently through the client's
// all-or-nothing batch: processing is only triggered when every upload
// succeeded, so a partial failure never leaves half a batch transcribing.
func (ui *UI) uploadBatch(paths []string, process bool) {
	caseID := ui.selectedCaseID

	model := ""
	if process {
		model = ui.opts.ModelName
	}
	results, failed := ui.client.UploadBatch(ui.ctx, caseID, model, paths)
	if len(failed) > 0 {
		ui.app.QueueUpdateDraw(func() {
			ui.setStatus("[%s]Upload failed for %d of %d file(s); nothing was processed[-]",
				ui.theme.TagError, len(failed), len(paths))
		})
		return
	}

	for _, r := range results {
		taskID := r.Response.TaskID.String()
		if ui.local != nil {
			_ = ui.local.LogAction(ui.ctx, caseID, store.ActionUpload, ui.opts.Actor, map[string]interface{}{
				"path":    r.Path,
				"task_id": taskID,
			})
		}
		status := r.Response.Status
		if r.Processed != nil && r.Processed.Status != "" {
			status = r.Processed.Status
		}
		if ui.bus != nil {
			_ = ui.bus.PublishTaskUpdate(ui.ctx, bus.TaskUpdateMessage{
				TaskID: taskID, CaseID: caseID, Status: status,
			})
		}
	}

	ui.app.QueueUpdateDraw(func() {
		ui.setStatus("[%s]Uploaded %d file(s)[-]", ui.theme.TagSuccess, len(paths))
	})

	// Short burst keeps the view fresh while the backend settles the tasks.
	if ui.poller != nil {
		go ui.poller.TriggerBurst(ui.ctx, caseID)
	}
	go ui.loadCase(caseID)
}

// renderTranscript shows the newest completed task's transcript for the case.
func (ui *UI) renderTranscript() {
	if ui.selectedCaseID == "" {
		ui.transcript.SetText(fmt.Sprintf("[%s]Select a case[-]", ui.theme.TagMuted))
		return
	}
	tasks := ui.state.Tasks(ui.selectedCaseID)
	var parts []string
	for _, t := range tasks {
		text := analysis.TranscriptText(&t)
		if text == "" {
			continue
		}
		header := fmt.Sprintf("[%s::b]%s[-:-:-]  [%s]%s[-]",
			ui.theme.TagAccent, tview.Escape(t.Filename),
			ui.theme.TagMuted, formatAge(t.CreatedAt, time.Now()))
		parts = append(parts, header+"\n"+tview.Escape(text))
	}
	if len(parts) == 0 {
		ui.transcript.SetText(fmt.Sprintf("[%s]No transcripts yet[-]", ui.theme.TagMuted))
		return
	}
	ui.transcript.SetText(strings.Join(parts, "\n\n"))
}
