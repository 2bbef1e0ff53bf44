// Package ui is the terminal front end: a case sidebar on the left and a
// tabbed work area (files, transcript, summary, tasks) on the right, kept
// fresh by the pollers and the optional Redis task stream.
package ui

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/vqhuy/casevoice-console/internal/api"
	"github.com/vqhuy/casevoice-console/internal/bus"
	"github.com/vqhuy/casevoice-console/internal/poller"
	"github.com/vqhuy/casevoice-console/internal/state"
	"github.com/vqhuy/casevoice-console/internal/store"
)

// Tab indexes for the main panel.
const (
	tabFiles = iota
	tabTranscript
	tabSummary
	tabTasks
	tabCount
)

var tabTitles = [tabCount]string{"Files", "Transcript", "Summary", "Tasks"}

// Options carries the runtime configuration the UI needs.
type Options struct {
	ModelName   string
	Theme       string
	DownloadDir string
	// PlayerCommand, when set, is launched with the audio URL as its single
	// argument. When empty the URL is shown for manual playback.
	PlayerCommand string
	Actor         string
}

// UI represents the terminal user interface.
type UI struct {
	app    *tview.Application
	client *api.Client
	state  *state.Store
	local  *store.Store
	bus    bus.Bus
	poller *poller.Poller
	logger *log.Logger
	opts   Options

	// Layout components
	layout     *tview.Flex
	appTitle   *tview.TextView
	searchBox  *tview.InputField
	sidebar    *tview.List
	mainPanel  *tview.Flex
	tabBar     *tview.TextView
	filesTable *tview.Table
	transcript *tview.TextView
	summary    *tview.TextView
	tasksTable *tview.Table
	detail     *tview.TextView
	statusBar  *tview.TextView

	// State
	visibleCases    []state.CaseActivity
	selectedCaseID  string
	selectedTaskIDs map[string]bool
	activeTab       int
	searchQuery     string
	revealSensitive bool
	analysisTab     int
	loadingCase     int32

	// Theme state
	theme        Theme
	themeName    string
	hasTrueColor bool

	// Runtime
	running   bool
	lastFocus tview.Primitive
	playerCmd *exec.Cmd

	ctx    context.Context
	cancel context.CancelFunc
}

// NewUI creates the terminal user interface. local and b may be nil.
func NewUI(ctx context.Context, client *api.Client, st *state.Store, local *store.Store, b bus.Bus, logger *log.Logger, opts Options) *UI {
	if logger == nil {
		logger = log.New(log.Writer(), "[UI] ", log.LstdFlags)
	}
	if opts.Actor == "" {
		opts.Actor = "console"
	}

	uiCtx, cancel := context.WithCancel(ctx)

	ui := &UI{
		app:             tview.NewApplication(),
		client:          client,
		state:           st,
		local:           local,
		bus:             b,
		logger:          logger,
		opts:            opts,
		ctx:             uiCtx,
		cancel:          cancel,
		hasTrueColor:    detectTrueColor(),
		selectedTaskIDs: make(map[string]bool),
	}

	ui.theme, ui.themeName = themeByName(opts.Theme)

	ui.setupLayout()
	ui.setupKeybindings()
	ui.applyTheme()

	return ui
}

// SetPoller wires the refresh loops in after construction; the poller needs
// the UI's redraw hook and the UI needs the poller's active-case setter.
func (ui *UI) SetPoller(p *poller.Poller) {
	ui.poller = p
	p.OnUpdate = func() {
		ui.app.QueueUpdateDraw(func() {
			ui.renderCases()
			ui.renderActiveTab()
		})
	}
}

// Start runs the TUI and blocks until it exits.
func (ui *UI) Start(ctx context.Context) error {
	ui.logger.Println("Starting TUI application")

	go func() {
		ui.refreshCases()
	}()

	// Consume the task stream when Redis is available; a stream hit patches
	// the task and schedules a redraw without waiting for the next poll.
	if ui.bus != nil {
		go func() {
			_ = ui.bus.ReadTaskUpdates(ui.ctx, "console", "console-1", func(ctx context.Context, update bus.TaskUpdateMessage) error {
				ui.onTaskUpdate(update)
				return nil
			})
		}()
	}

	go func() {
		select {
		case <-ctx.Done():
			ui.logger.Println("External context cancelled, stopping TUI")
		case <-ui.ctx.Done():
			ui.logger.Println("UI context cancelled, stopping TUI")
		}
		ui.cancel()
		ui.app.Stop()
	}()

	ui.running = true
	err := ui.app.Run()
	ui.running = false
	return err
}

// Stop stops the TUI application.
func (ui *UI) Stop() {
	ui.logger.Println("Stopping TUI application")
	ui.running = false
	ui.cancel()
	ui.app.Stop()
}

// setupLayout creates the main layout.
func (ui *UI) setupLayout() {
	ui.appTitle = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.appTitle.SetBorder(false)

	ui.searchBox = tview.NewInputField().
		SetLabel(" / ").
		SetFieldWidth(0)
	ui.searchBox.SetChangedFunc(func(text string) {
		ui.searchQuery = text
		ui.renderCases()
	})
	ui.searchBox.SetDoneFunc(func(key tcell.Key) {
		ui.app.SetFocus(ui.sidebar)
	})

	ui.sidebar = tview.NewList()
	ui.sidebar.SetTitle(" Cases ")
	ui.sidebar.SetBorder(true)
	ui.sidebar.SetTitleAlign(tview.AlignLeft)
	ui.sidebar.ShowSecondaryText(true)
	ui.sidebar.SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		ui.onCaseSelect(index)
	})

	ui.tabBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)

	ui.filesTable = tview.NewTable()
	ui.filesTable.SetTitle(" Files ")
	ui.filesTable.SetBorder(true)
	ui.filesTable.SetTitleAlign(tview.AlignLeft)
	ui.filesTable.SetSelectable(true, false)
	ui.filesTable.SetFixed(1, 0)

	ui.transcript = tview.NewTextView()
	ui.transcript.SetTitle(" Transcript ")
	ui.transcript.SetBorder(true)
	ui.transcript.SetTitleAlign(tview.AlignLeft)
	ui.transcript.SetDynamicColors(true)
	ui.transcript.SetWordWrap(true)
	ui.transcript.SetScrollable(true)

	ui.summary = tview.NewTextView()
	ui.summary.SetTitle(" Summary ")
	ui.summary.SetBorder(true)
	ui.summary.SetTitleAlign(tview.AlignLeft)
	ui.summary.SetDynamicColors(true)
	ui.summary.SetWordWrap(true)
	ui.summary.SetScrollable(true)

	ui.tasksTable = tview.NewTable()
	ui.tasksTable.SetTitle(" Tasks ")
	ui.tasksTable.SetBorder(true)
	ui.tasksTable.SetTitleAlign(tview.AlignLeft)
	ui.tasksTable.SetSelectable(true, false)
	ui.tasksTable.SetFixed(1, 0)

	ui.detail = tview.NewTextView()
	ui.detail.SetTitle(" Details ")
	ui.detail.SetBorder(true)
	ui.detail.SetTitleAlign(tview.AlignLeft)
	ui.detail.SetDynamicColors(true)
	ui.detail.SetWordWrap(true)
	ui.detail.SetScrollable(true)

	ui.statusBar = tview.NewTextView()
	ui.statusBar.SetDynamicColors(true)

	ui.mainPanel = tview.NewFlex().SetDirection(tview.FlexRow)
	ui.rebuildMainPanel()

	leftCol := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.appTitle, 2, 0, false).
		AddItem(ui.searchBox, 1, 0, false).
		AddItem(ui.sidebar, 0, 1, true)

	ui.layout = tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(leftCol, 40, 0, true).
		AddItem(ui.mainPanel, 0, 1, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.layout, 0, 1, true).
		AddItem(ui.statusBar, 1, 0, false)

	ui.app.SetRoot(root, true)

	ui.setupFileHandlers()
	ui.setupTaskHandlers()

	ui.app.SetFocus(ui.sidebar)
}

// rebuildMainPanel swaps the tab content in the right-hand column.
func (ui *UI) rebuildMainPanel() {
	ui.mainPanel.Clear()
	ui.mainPanel.AddItem(ui.tabBar, 1, 0, false)
	switch ui.activeTab {
	case tabFiles:
		ui.mainPanel.AddItem(ui.filesTable, 0, 2, true)
		ui.mainPanel.AddItem(ui.detail, 0, 1, false)
	case tabTranscript:
		ui.mainPanel.AddItem(ui.transcript, 0, 1, true)
	case tabSummary:
		ui.mainPanel.AddItem(ui.summary, 0, 1, true)
	case tabTasks:
		ui.mainPanel.AddItem(ui.tasksTable, 0, 2, true)
		ui.mainPanel.AddItem(ui.detail, 0, 1, false)
	}
	ui.renderTabBar()
}

func (ui *UI) renderTabBar() {
	var b strings.Builder
	for i, title := range tabTitles {
		if i == ui.activeTab {
			fmt.Fprintf(&b, " [%s::b]%d %s[-:-:-] ", ui.theme.TagAccent, i+1, title)
		} else {
			fmt.Fprintf(&b, " [%s]%d %s[-] ", ui.theme.TagMuted, i+1, title)
		}
	}
	ui.tabBar.SetText(b.String())
}

func (ui *UI) switchTab(tab int) {
	if tab < 0 || tab >= tabCount {
		return
	}
	ui.activeTab = tab
	ui.rebuildMainPanel()
	ui.renderActiveTab()
	switch tab {
	case tabFiles:
		ui.app.SetFocus(ui.filesTable)
	case tabTranscript:
		ui.app.SetFocus(ui.transcript)
	case tabSummary:
		ui.app.SetFocus(ui.summary)
	case tabTasks:
		ui.app.SetFocus(ui.tasksTable)
	}
}

// renderActiveTab redraws whichever tab is visible from current state.
func (ui *UI) renderActiveTab() {
	switch ui.activeTab {
	case tabFiles:
		ui.renderFiles()
	case tabTranscript:
		ui.renderTranscript()
	case tabSummary:
		ui.renderSummaryTab()
	case tabTasks:
		ui.renderTasks()
	}
}

// setupKeybindings sets up global keybindings.
func (ui *UI) setupKeybindings() {
	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if ui.isDialogActive() {
			return event
		}
		if ui.app.GetFocus() == ui.searchBox {
			return event
		}

		switch event.Key() {
		case tcell.KeyTab:
			ui.switchTab((ui.activeTab + 1) % tabCount)
			return nil
		case tcell.KeyBacktab:
			ui.switchTab((ui.activeTab + tabCount - 1) % tabCount)
			return nil
		case tcell.KeyEsc:
			ui.setStatus("")
			return nil
		}

		switch event.Rune() {
		case 'q':
			ui.Stop()
			return nil
		case '/':
			ui.app.SetFocus(ui.searchBox)
			return nil
		case 'n':
			ui.showCreateCaseForm()
			return nil
		case 'r':
			go ui.refreshCases()
			ui.setStatus("[%s]Refreshing...[-]", ui.theme.TagWarning)
			return nil
		case 'u':
			if ui.selectedCaseID != "" {
				ui.showUploadForm()
			}
			return nil
		case 'T':
			ui.cycleTheme()
			return nil
		case '1', '2', '3', '4':
			ui.switchTab(int(event.Rune() - '1'))
			return nil
		case 'h':
			ui.app.SetFocus(ui.sidebar)
			return nil
		case 'l':
			ui.switchTab(ui.activeTab)
			return nil
		}
		return event
	})
}

// isDialogActive reports whether a modal/form owns the screen.
func (ui *UI) isDialogActive() bool {
	switch ui.app.GetFocus().(type) {
	case *tview.InputField, *tview.Button, *tview.Checkbox, *tview.DropDown, *tview.TextArea:
		return ui.app.GetFocus() != ui.searchBox
	}
	return false
}

// refreshCases reloads the case list from the backend.
func (ui *UI) refreshCases() {
	seq := ui.state.NextSeq()
	cases, err := ui.client.ListCases(ui.ctx)
	if err != nil {
		ui.logger.Printf("Failed to load cases: %v", err)
		ui.app.QueueUpdateDraw(func() {
			ui.setStatus("[%s]Error loading cases: %v[-]", ui.theme.TagError, err)
		})
		return
	}
	applied := ui.state.SetCases(cases, seq)
	// Fetch tasks per case so activity ordering has data to work with.
	for _, c := range cases {
		caseID := c.ID.String()
		taskSeq := ui.state.NextSeq()
		tasks, err := ui.client.ListTasks(ui.ctx, "", caseID)
		if err != nil {
			ui.logger.Printf("Failed to load tasks for case %s: %v", caseID, err)
			continue
		}
		ui.state.MergeTasksForCase(caseID, tasks, taskSeq)
	}
	if applied {
		ui.app.QueueUpdateDraw(func() {
			ui.renderCases()
			ui.setStatus("[%s]Loaded %d cases[-]", ui.theme.TagSuccess, len(cases))
		})
	}
}

// renderCases rebuilds the sidebar from state, newest activity first.
func (ui *UI) renderCases() {
	ordered := ui.state.CasesByActivity()
	query := strings.ToLower(strings.TrimSpace(ui.searchQuery))
	visible := ordered[:0:0]
	for _, ca := range ordered {
		if query != "" &&
			!strings.Contains(strings.ToLower(ca.Case.CaseCode), query) &&
			!strings.Contains(strings.ToLower(ca.Case.Title), query) {
			continue
		}
		visible = append(visible, ca)
	}
	ui.visibleCases = visible

	current := ui.sidebar.GetCurrentItem()
	ui.sidebar.Clear()
	for _, ca := range visible {
		main := fmt.Sprintf("[%s]%s[-] %s", ui.theme.TagAccent, ca.Case.CaseCode, tview.Escape(ca.Case.Title))
		secondary := "no activity"
		if !ca.LastTask.IsZero() {
			secondary = "last task " + ca.LastTask.Local().Format("2006-01-02 15:04")
		}
		if pending := ui.pendingCount(ca.Case.ID.String()); pending > 0 {
			secondary = fmt.Sprintf("%s | %d in flight", secondary, pending)
		}
		ui.sidebar.AddItem(main, secondary, 0, nil)
	}
	if current >= 0 && current < ui.sidebar.GetItemCount() {
		ui.sidebar.SetCurrentItem(current)
	}
	ui.sidebar.SetTitle(fmt.Sprintf(" Cases (%d) ", len(visible)))

	// First load lands on the first case instead of an empty view.
	if ui.selectedCaseID == "" && len(visible) > 0 {
		ui.sidebar.SetCurrentItem(0)
		ui.onCaseSelect(0)
	}
}

func (ui *UI) pendingCount(caseID string) int {
	n := 0
	for _, t := range ui.state.Tasks(caseID) {
		if api.InFlight(t.Status) {
			n++
		}
	}
	return n
}

// onCaseSelect opens a case: loads its files and tasks, points the pollers
// at it.
func (ui *UI) onCaseSelect(index int) {
	if index < 0 || index >= len(ui.visibleCases) {
		return
	}
	c := ui.visibleCases[index].Case
	ui.selectedCaseID = c.ID.String()
	ui.selectedTaskIDs = make(map[string]bool)
	ui.revealSensitive = false
	if ui.poller != nil {
		ui.poller.SetActiveCase(ui.selectedCaseID)
	}
	ui.setStatus("[%s]Loading case %s...[-]", ui.theme.TagWarning, c.CaseCode)
	go ui.loadCase(ui.selectedCaseID)
	ui.switchTab(tabFiles)
}

// loadCase fetches one case's files and tasks.
func (ui *UI) loadCase(caseID string) {
	if !atomic.CompareAndSwapInt32(&ui.loadingCase, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&ui.loadingCase, 0)

	fileSeq := ui.state.NextSeq()
	files, err := ui.client.ListCaseFiles(ui.ctx, caseID)
	if err != nil {
		ui.logger.Printf("Failed to load files for case %s: %v", caseID, err)
	} else {
		ui.state.ReplaceFiles(caseID, files, fileSeq)
	}

	taskSeq := ui.state.NextSeq()
	tasks, err := ui.client.ListTasks(ui.ctx, "", caseID)
	if err != nil {
		ui.logger.Printf("Failed to load tasks for case %s: %v", caseID, err)
	} else {
		ui.state.MergeTasksForCase(caseID, tasks, taskSeq)
	}

	ui.app.QueueUpdateDraw(func() {
		ui.renderCases()
		ui.renderActiveTab()
		ui.setStatus("[%s]Case loaded[-]", ui.theme.TagSuccess)
	})
}

// onTaskUpdate handles one message from the Redis task stream.
func (ui *UI) onTaskUpdate(update bus.TaskUpdateMessage) {
	if update.TaskID == "" {
		return
	}
	task, err := ui.client.GetTask(ui.ctx, update.TaskID)
	if err != nil {
		ui.logger.Printf("Stream update for task %s: fetch failed: %v", update.TaskID, err)
		return
	}
	if ui.state.PatchTask(*task) {
		ui.app.QueueUpdateDraw(func() {
			ui.renderCases()
			ui.renderActiveTab()
		})
	}
}

// showCreateCaseForm opens the new-case modal.
func (ui *UI) showCreateCaseForm() {
	form := tview.NewForm()
	form.AddInputField("Title", "", 40, nil, nil)
	form.AddInputField("Description", "", 40, nil, nil)
	form.AddButton("Create", func() {
		title := form.GetFormItemByLabel("Title").(*tview.InputField).GetText()
		desc := form.GetFormItemByLabel("Description").(*tview.InputField).GetText()
		if strings.TrimSpace(title) == "" {
			ui.setStatus("[%s]Title is required[-]", ui.theme.TagError)
			return
		}
		ui.closeDialog()
		go func() {
			created, err := ui.client.CreateCase(ui.ctx, title, desc)
			if err != nil {
				ui.app.QueueUpdateDraw(func() {
					ui.setStatus("[%s]Create case failed: %v[-]", ui.theme.TagError, err)
				})
				return
			}
			ui.state.PrependCase(*created)
			if ui.local != nil {
				_ = ui.local.LogAction(ui.ctx, created.ID.String(), store.ActionCreateCase, ui.opts.Actor, map[string]interface{}{
					"title": created.Title,
				})
			}
			ui.app.QueueUpdateDraw(func() {
				ui.renderCases()
				for i, ca := range ui.visibleCases {
					if ca.Case.ID == created.ID {
						ui.sidebar.SetCurrentItem(i)
						ui.onCaseSelect(i)
						break
					}
				}
				ui.setStatus("[%s]Created case %s[-]", ui.theme.TagSuccess, created.CaseCode)
			})
		}()
	})
	form.AddButton("Cancel", func() { ui.closeDialog() })
	form.SetBorder(true).SetTitle(" New Case ").SetTitleAlign(tview.AlignLeft)
	ui.openDialog(form, 50, 9)
}

// openDialog centers p over the layout and remembers prior focus.
func (ui *UI) openDialog(p tview.Primitive, width, height int) {
	ui.lastFocus = ui.app.GetFocus()
	modal := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 0, true).
			AddItem(nil, 0, 1, false), width, 0, true).
		AddItem(nil, 0, 1, false)

	pages := tview.NewPages().
		AddPage("main", ui.rootLayout(), true, true).
		AddPage("dialog", modal, true, true)
	ui.app.SetRoot(pages, true)
	ui.app.SetFocus(p)
}

func (ui *UI) closeDialog() {
	ui.app.SetRoot(ui.rootLayout(), true)
	if ui.lastFocus != nil {
		ui.app.SetFocus(ui.lastFocus)
	} else {
		ui.app.SetFocus(ui.sidebar)
	}
}

func (ui *UI) rootLayout() tview.Primitive {
	return tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.layout, 0, 1, true).
		AddItem(ui.statusBar, 1, 0, false)
}

// setStatus writes to the status bar. Safe only from the UI goroutine.
func (ui *UI) setStatus(format string, args ...interface{}) {
	if format == "" {
		ui.statusBar.SetText(ui.defaultStatus())
		return
	}
	ui.statusBar.SetText(fmt.Sprintf(format, args...) + "  " + ui.defaultStatus())
}

func (ui *UI) defaultStatus() string {
	return fmt.Sprintf("[%s]q[-]:quit [%s]n[-]:new case [%s]u[-]:upload [%s]/[-]:search [%s]1-4[-]:tabs [%s]T[-]:theme",
		ui.theme.TagAccent, ui.theme.TagAccent, ui.theme.TagAccent, ui.theme.TagAccent, ui.theme.TagAccent, ui.theme.TagAccent)
}

// cycleTheme rotates through the palettes.
func (ui *UI) cycleTheme() {
	ui.themeName = nextThemeName(ui.themeName)
	ui.theme, _ = themeByName(ui.themeName)
	ui.applyTheme()
	ui.setStatus("[%s]Theme: %s[-]", ui.theme.TagAccent, ui.themeName)
}

// applyTheme pushes the palette onto every widget.
func (ui *UI) applyTheme() {
	t := ui.theme

	ui.appTitle.SetBackgroundColor(t.Surface)
	ui.appTitle.SetText(fmt.Sprintf(" [%s::b]CaseVoice Console[-:-:-]", t.TagAccent))

	ui.searchBox.SetFieldBackgroundColor(t.Surface)
	ui.searchBox.SetFieldTextColor(t.TextPrimary)
	ui.searchBox.SetLabelColor(t.Accent)

	ui.sidebar.SetBackgroundColor(t.Bg)
	ui.sidebar.SetMainTextColor(t.TextPrimary)
	ui.sidebar.SetSecondaryTextColor(t.TextMuted)
	ui.sidebar.SetSelectedTextColor(t.SelectionFg)
	ui.sidebar.SetSelectedBackgroundColor(t.SelectionBg)
	ui.sidebar.SetBorderColor(t.Border)
	ui.sidebar.SetTitleColor(t.Header)

	for _, table := range []*tview.Table{ui.filesTable, ui.tasksTable} {
		table.SetBackgroundColor(t.Bg)
		table.SetBorderColor(t.Border)
		table.SetTitleColor(t.Header)
		table.SetSelectedStyle(tcell.StyleDefault.Background(t.SelectionBg).Foreground(t.SelectionFg))
	}
	for _, tv := range []*tview.TextView{ui.transcript, ui.summary, ui.detail, ui.tabBar, ui.statusBar} {
		tv.SetBackgroundColor(t.Bg)
		tv.SetTextColor(t.TextPrimary)
		tv.SetBorderColor(t.Border)
		tv.SetTitleColor(t.Header)
	}

	ui.renderTabBar()
	ui.setStatus("")
	ui.renderCases()
	ui.renderActiveTab()
}

// formatAge renders a timestamp as a short relative age for table rows.
func formatAge(raw string, now time.Time) string {
	if raw == "" {
		return "-"
	}
	var ts time.Time
	var err error
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		ts, err = time.Parse(layout, raw)
		if err == nil {
			break
		}
	}
	if err != nil {
		return raw
	}
	d := now.Sub(ts)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
