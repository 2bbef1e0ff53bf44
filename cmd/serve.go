package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/vqhuy/casevoice-console/internal/api"
	"github.com/vqhuy/casevoice-console/internal/bus"
	"github.com/vqhuy/casevoice-console/internal/poller"
	"github.com/vqhuy/casevoice-console/internal/state"
	"github.com/vqhuy/casevoice-console/internal/store"
	"github.com/vqhuy/casevoice-console/internal/ui"
)

var (
	forceTUI     bool
	pollInterval time.Duration
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the interactive console",
	Long: `Start the CaseVoice console which includes:

1. Terminal User Interface (TUI) for case and task management
2. Background polling of file statuses and in-flight tasks
3. Redis Streams consumer for live task updates (when configured)
4. Local SQLite store for saved summaries and activity history

The serve command runs until interrupted (Ctrl+C) or the TUI is quit.

Examples:
  # Start against the default backend
  casevoice serve

  # Point at a remote backend with live updates
  casevoice serve --api-url http://transcriber:8000 --redis redis://localhost:6379

  # Force TUI mode even in unsupported terminals
  casevoice serve --force-tui`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&forceTUI, "force-tui", false, "Force TUI mode even in unsupported terminals")
	serveCmd.Flags().DurationVar(&pollInterval, "poll-interval", 3*time.Second, "Interval for background file and task polling")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()

	// Silent TUI mode: logs go to file, errors still visible on terminal
	var logger *log.Logger
	logFile := setupFileLogger()
	if logFile != nil {
		logger = log.New(io.MultiWriter(logFile, &errorFilterWriter{os.Stderr}), "[serve] ", log.LstdFlags)
		defer logFile.Close()
	} else {
		logger = log.New(os.Stderr, "[serve] ", log.LstdFlags)
	}

	logger.Println("Starting CaseVoice console")
	logger.Printf("Terminal info: %s", getTerminalInfo())

	if !forceTUI && !canInitializeTUI() {
		if needsPseudoTTY() {
			logger.Println("No TTY available, using script command for pseudo-TTY...")
			return runWithPseudoTTY(args)
		}
		fmt.Fprintln(os.Stderr, "TUI cannot be initialized in this terminal environment.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "For full TUI experience, use:")
		fmt.Fprintln(os.Stderr, "  1. Native terminal (gnome-terminal, iTerm2, etc.)")
		fmt.Fprintln(os.Stderr, "  2. SSH with proper TERM settings")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Headless alternatives:")
		fmt.Fprintln(os.Stderr, "  casevoice cases list")
		fmt.Fprintln(os.Stderr, "  casevoice tasks list --case-id <id>")
		return fmt.Errorf("no usable terminal")
	}

	// Initialize local store
	logger.Println("Initializing local database...")
	baseDir := getWorkingDir()
	resolvedDBPath := resolvePathRelativeToBase(baseDir, config.Database.Path)
	logger.Printf("Using database at %s", resolvedDBPath)
	local, err := store.NewStore(resolvedDBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer local.Close()

	// Initialize bus (Redis or Null). Bus logs go to the file logger only so
	// the TUI screen stays clean.
	logger.Println("Connecting to event bus...")
	busLogger := log.New(io.Discard, "", 0)
	if logFile != nil {
		busLogger = log.New(logFile, "[bus] ", log.LstdFlags)
	}
	eventBus := bus.NewBus(config.Redis.URL, busLogger)
	defer eventBus.Close()

	// Backend API client
	logger.Printf("Using backend at %s", config.API.BaseURL)
	client := api.NewClient(config.API.BaseURL, config.API.Timeout, logger)

	// Shared in-memory view state plus the poller that keeps it fresh
	view := state.New()
	p := poller.New(client, view, logger, poller.Options{
		FileInterval: pollInterval,
		TaskInterval: pollInterval,
	})

	console := ui.NewUI(ctx, client, view, local, eventBus, logger, ui.Options{
		ModelName:     config.Model.Name,
		Theme:         config.UI.Theme,
		DownloadDir:   resolvePathRelativeToBase(baseDir, config.Download.Dir),
		PlayerCommand: config.Player.Command,
	})
	console.SetPoller(p)

	go p.Run(ctx)
	go runBusMaintenance(ctx, eventBus, busLogger)

	logger.Println("Starting TUI...")
	if err := console.Start(ctx); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Println("CaseVoice console stopped")
	return nil
}

// busStreamMaxLen bounds the task-updates stream so an always-on backend
// cannot grow Redis memory without limit.
const busStreamMaxLen = 10000

// runBusMaintenance keeps an eye on the event bus for the lifetime of the
// console: periodic health checks, occasional stats, and an hourly stream
// trim. Everything goes to the bus logger so the TUI screen stays clean.
func runBusMaintenance(ctx context.Context, eventBus bus.Bus, logger *log.Logger) {
	health := time.NewTicker(30 * time.Second)
	stats := time.NewTicker(5 * time.Minute)
	trim := time.NewTicker(time.Hour)
	defer health.Stop()
	defer stats.Stop()
	defer trim.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-health.C:
			if err := eventBus.HealthCheck(ctx); err != nil {
				logger.Printf("Bus health check failed: %v", err)
			}
		case <-stats.C:
			if s, err := eventBus.GetStats(ctx); err == nil {
				logger.Printf("Bus stats: %v", s)
			}
		case <-trim.C:
			if err := eventBus.CleanupOldMessages(ctx, busStreamMaxLen); err != nil {
				logger.Printf("Bus stream trim failed: %v", err)
			}
		}
	}
}

// canInitializeTUI tests if tcell can actually be initialized
func canInitializeTUI() bool {
	screen, err := tcell.NewScreen()
	if err != nil {
		return false
	}

	err = screen.Init()
	if err != nil {
		return false
	}

	// Clean up immediately
	screen.Fini()
	return true
}

// getTerminalInfo returns detailed terminal information
func getTerminalInfo() string {
	var info []string

	term := os.Getenv("TERM")
	if term == "" {
		info = append(info, "TERM=<not set>")
	} else {
		info = append(info, fmt.Sprintf("TERM=%s", term))
	}

	termProgram := os.Getenv("TERM_PROGRAM")
	if termProgram != "" {
		info = append(info, fmt.Sprintf("TERM_PROGRAM=%s", termProgram))
	}

	if width, height := getTerminalSize(); width > 0 && height > 0 {
		info = append(info, fmt.Sprintf("Size=%dx%d", width, height))
	}

	if isTerminal() {
		info = append(info, "TTY=yes")
	} else {
		info = append(info, "TTY=no")
	}

	if supportsColors() {
		info = append(info, "Colors=yes")
	} else {
		info = append(info, "Colors=no")
	}

	return strings.Join(info, ", ")
}

// getExecutableDir returns the directory of the running executable.
// Falls back to current directory on error.
func getExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// getWorkingDir returns the current working directory.
// Falls back to executable directory if os.Getwd fails.
func getWorkingDir() string {
	if wd, err := os.Getwd(); err == nil && wd != "" {
		return wd
	}
	return getExecutableDir()
}

// resolvePathRelativeToBase resolves a possibly relative path against a base directory.
// Absolute paths are returned unchanged.
func resolvePathRelativeToBase(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	// Normalize leading "./" for consistent joining
	p = strings.TrimPrefix(p, "./")
	return filepath.Join(base, p)
}

// isTerminal checks if stdout is a terminal
func isTerminal() bool {
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		return (fileInfo.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// supportsColors checks if terminal supports colors
func supportsColors() bool {
	term := strings.ToLower(os.Getenv("TERM"))

	// Check for color support indicators
	colorTerms := []string{"color", "256", "truecolor", "24bit"}
	for _, colorTerm := range colorTerms {
		if strings.Contains(term, colorTerm) {
			return true
		}
	}

	// Check COLORTERM environment variable
	if colorTerm := os.Getenv("COLORTERM"); colorTerm != "" {
		return true
	}

	// Known color-supporting terminals
	supportedTerms := []string{"xterm", "screen", "tmux", "linux", "ansi"}
	for _, supported := range supportedTerms {
		if strings.Contains(term, supported) {
			return true
		}
	}

	return false
}

// needsPseudoTTY checks if we need to use script command for pseudo-TTY
func needsPseudoTTY() bool {
	// Try to actually open /dev/tty (not just check if it exists)
	if file, err := os.OpenFile("/dev/tty", os.O_RDWR, 0); err == nil {
		file.Close()
		return false
	}
	return true
}

// runWithPseudoTTY re-executes the serve command using script for pseudo-TTY
func runWithPseudoTTY(args []string) error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	cmdArgs := []string{"serve"}
	cmdArgs = append(cmdArgs, args...)

	hasForceTUI := false
	for _, arg := range args {
		if arg == "--force-tui" {
			hasForceTUI = true
			break
		}
	}
	if !hasForceTUI {
		cmdArgs = append(cmdArgs, "--force-tui")
	}

	quotedExecutable := fmt.Sprintf(`"%s"`, executable)
	quotedArgs := make([]string, len(cmdArgs))
	for i, arg := range cmdArgs {
		quotedArgs[i] = fmt.Sprintf(`"%s"`, arg)
	}

	fullCmd := fmt.Sprintf("TERM=%s %s %s",
		os.Getenv("TERM"),
		quotedExecutable,
		strings.Join(quotedArgs, " "))

	// Use script command to create pseudo-TTY
	scriptCmd := exec.Command("script", "-qec", fullCmd, "/dev/null")
	scriptCmd.Stdin = os.Stdin
	scriptCmd.Stdout = os.Stdout
	scriptCmd.Stderr = os.Stderr
	scriptCmd.Env = os.Environ()

	return scriptCmd.Run()
}

// setupFileLogger creates a log file for TUI mode
func setupFileLogger() *os.File {
	baseDir := getWorkingDir()
	logDir := filepath.Join(baseDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		// If we can't create logs directory, we'll fall back to stderr
		return nil
	}

	logPath := filepath.Join(logDir, "casevoice-serve.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// If we can't create the log file, we'll fall back to stderr
		return nil
	}

	return logFile
}

// errorFilterWriter only writes error messages to the underlying writer
type errorFilterWriter struct {
	writer io.Writer
}

func (w *errorFilterWriter) Write(p []byte) (n int, err error) {
	// Only write if the log message contains error indicators
	lc := strings.ToLower(string(p))

	if strings.Contains(lc, "error") ||
		strings.Contains(lc, "failed") ||
		strings.Contains(lc, "panic") {
		return w.writer.Write(p)
	}
	// Suppress non-error logs in TUI mode
	return len(p), nil
}
