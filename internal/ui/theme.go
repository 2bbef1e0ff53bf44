package ui

import (
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Theme defines UI color tokens used across widgets and text tags.
type Theme struct {
	Bg          tcell.Color
	Surface     tcell.Color
	Border      tcell.Color
	FocusBorder tcell.Color
	SelectionBg tcell.Color
	SelectionFg tcell.Color
	TextPrimary tcell.Color
	TextMuted   tcell.Color
	Accent      tcell.Color
	Success     tcell.Color
	Warning     tcell.Color
	Error       tcell.Color
	Header      tcell.Color

	TableHeader   tcell.Color
	TableHeaderBg tcell.Color
	TableRow      tcell.Color
	TableRowMuted tcell.Color

	// Task status colors (widgets)
	StatusPending    tcell.Color
	StatusProcessing tcell.Color
	StatusCompleted  tcell.Color
	StatusFailed     tcell.Color

	// Text tag colors (for tview dynamic color markup)
	TagTextPrimary      string
	TagMuted            string
	TagAccent           string
	TagSuccess          string
	TagWarning          string
	TagError            string
	TagHighlight        string
	TagStatusPending    string
	TagStatusProcessing string
	TagStatusCompleted  string
	TagStatusFailed     string
	TagSensitive        string
}

func hex(s string) tcell.Color { return tcell.GetColor(s) }

func themeDark() Theme {
	return Theme{
		Bg:          hex("#0e1116"),
		Surface:     hex("#12161e"),
		Border:      hex("#2b3240"),
		FocusBorder: hex("#4aa8ff"),
		SelectionBg: hex("#2b3240"),
		SelectionFg: hex("#cfd8e3"),
		TextPrimary: hex("#e6edf3"),
		TextMuted:   hex("#8a939f"),
		Accent:      hex("#2dd4bf"),
		Success:     hex("#22c55e"),
		Warning:     hex("#f59e0b"),
		Error:       hex("#ef4444"),
		Header:      hex("#eab308"),

		TableHeader:   hex("#eab308"),
		TableHeaderBg: hex("#1a2332"),
		TableRow:      hex("#e6edf3"),
		TableRowMuted: hex("#94a3b8"),

		StatusPending:    hex("#ffd75f"),
		StatusProcessing: hex("#87afff"),
		StatusCompleted:  hex("#87ffaf"),
		StatusFailed:     hex("#ff5f5f"),

		TagTextPrimary:      "#e6edf3",
		TagMuted:            "#8a939f",
		TagAccent:           "#2dd4bf",
		TagSuccess:          "#22c55e",
		TagWarning:          "#f59e0b",
		TagError:            "#ef4444",
		TagHighlight:        "#eab308",
		TagStatusPending:    "#ffd75f",
		TagStatusProcessing: "#87afff",
		TagStatusCompleted:  "#87ffaf",
		TagStatusFailed:     "#ff5f5f",
		TagSensitive:        "#ff8787",
	}
}

func themeLight() Theme {
	return Theme{
		Bg:          hex("#f6f8fa"),
		Surface:     hex("#ffffff"),
		Border:      hex("#d0d7de"),
		FocusBorder: hex("#1f6feb"),
		SelectionBg: hex("#e2e8f0"),
		SelectionFg: hex("#111827"),
		TextPrimary: hex("#111827"),
		TextMuted:   hex("#6b7280"),
		Accent:      hex("#2563eb"),
		Success:     hex("#15803d"),
		Warning:     hex("#b45309"),
		Error:       hex("#b91c1c"),
		Header:      hex("#1f2937"),

		TableHeader:   hex("#1f2937"),
		TableHeaderBg: hex("#e5e7eb"),
		TableRow:      hex("#111827"),
		TableRowMuted: hex("#6b7280"),

		StatusPending:    hex("#ca8a04"),
		StatusProcessing: hex("#2563eb"),
		StatusCompleted:  hex("#16a34a"),
		StatusFailed:     hex("#dc2626"),

		TagTextPrimary:      "#111827",
		TagMuted:            "#6b7280",
		TagAccent:           "#2563eb",
		TagSuccess:          "#15803d",
		TagWarning:          "#b45309",
		TagError:            "#b91c1c",
		TagHighlight:        "#b45309",
		TagStatusPending:    "#ca8a04",
		TagStatusProcessing: "#2563eb",
		TagStatusCompleted:  "#16a34a",
		TagStatusFailed:     "#dc2626",
		TagSensitive:        "#b91c1c",
	}
}

func themeHighContrast() Theme {
	return Theme{
		Bg:          hex("#000000"),
		Surface:     hex("#000000"),
		Border:      hex("#ffffff"),
		FocusBorder: hex("#ffff00"),
		SelectionBg: hex("#ffffff"),
		SelectionFg: hex("#000000"),
		TextPrimary: hex("#ffffff"),
		TextMuted:   hex("#cccccc"),
		Accent:      hex("#00ffff"),
		Success:     hex("#00ff00"),
		Warning:     hex("#ffff00"),
		Error:       hex("#ff0000"),
		Header:      hex("#ffffff"),

		TableHeader:   hex("#ffffff"),
		TableHeaderBg: hex("#000000"),
		TableRow:      hex("#ffffff"),
		TableRowMuted: hex("#cccccc"),

		StatusPending:    hex("#ffff00"),
		StatusProcessing: hex("#00aaff"),
		StatusCompleted:  hex("#00ff00"),
		StatusFailed:     hex("#ff0000"),

		TagTextPrimary:      "#ffffff",
		TagMuted:            "#cccccc",
		TagAccent:           "#00ffff",
		TagSuccess:          "#00ff00",
		TagWarning:          "#ffff00",
		TagError:            "#ff0000",
		TagHighlight:        "#ffff00",
		TagStatusPending:    "#ffff00",
		TagStatusProcessing: "#00aaff",
		TagStatusCompleted:  "#00ff00",
		TagStatusFailed:     "#ff0000",
		TagSensitive:        "#ff0000",
	}
}

func themeColorblindSafe() Theme {
	return Theme{
		Bg:          hex("#0e1116"),
		Surface:     hex("#12161e"),
		Border:      hex("#2b3240"),
		FocusBorder: hex("#4aa8ff"),
		SelectionBg: hex("#2b3240"),
		SelectionFg: hex("#e6edf3"),
		TextPrimary: hex("#e6edf3"),
		TextMuted:   hex("#8a939f"),
		Accent:      hex("#80b1d3"),
		Success:     hex("#5ab4ac"),
		Warning:     hex("#fdb863"),
		Error:       hex("#d7191c"),
		Header:      hex("#fee08b"),

		TableHeader:   hex("#fee08b"),
		TableHeaderBg: hex("#232a38"),
		TableRow:      hex("#e6edf3"),
		TableRowMuted: hex("#94a3b8"),

		StatusPending:    hex("#fee08b"),
		StatusProcessing: hex("#91bfdb"),
		StatusCompleted:  hex("#5ab4ac"),
		StatusFailed:     hex("#d73027"),

		TagTextPrimary:      "#e6edf3",
		TagMuted:            "#8a939f",
		TagAccent:           "#80b1d3",
		TagSuccess:          "#5ab4ac",
		TagWarning:          "#fdb863",
		TagError:            "#d7191c",
		TagHighlight:        "#fee08b",
		TagStatusPending:    "#fee08b",
		TagStatusProcessing: "#91bfdb",
		TagStatusCompleted:  "#5ab4ac",
		TagStatusFailed:     "#d73027",
		TagSensitive:        "#d73027",
	}
}

func themeByName(name string) (Theme, string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "light":
		return themeLight(), "light"
	case "high-contrast", "highcontrast":
		return themeHighContrast(), "high-contrast"
	case "colorblind", "colorblind-safe":
		return themeColorblindSafe(), "colorblind"
	default:
		return themeDark(), "dark"
	}
}

var themeOrder = []string{"dark", "light", "high-contrast", "colorblind"}

func nextThemeName(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

func detectTrueColor() bool {
	// Best-effort detection without initializing a screen.
	ct := strings.ToLower(os.Getenv("COLORTERM"))
	if strings.Contains(ct, "truecolor") || strings.Contains(ct, "24bit") {
		return true
	}
	term := strings.ToLower(os.Getenv("TERM"))
	if strings.Contains(term, "truecolor") || strings.Contains(term, "24bit") || strings.Contains(term, "256color") {
		return true
	}
	return false
}

// statusTag maps a task/file status to the theme's markup color.
func (t Theme) statusTag(status string) string {
	switch status {
	case "pending":
		return t.TagStatusPending
	case "processing":
		return t.TagStatusProcessing
	case "completed":
		return t.TagStatusCompleted
	case "failed":
		return t.TagStatusFailed
	default:
		return t.TagMuted
	}
}
