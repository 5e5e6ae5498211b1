package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Width(16)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// Summary is the outcome of one run.
type Summary struct {
	RunID        string        `json:"runId"`
	Documents    int           `json:"documents"`
	References   int           `json:"references"`
	Resolved     int           `json:"resolved"`
	Unresolved   int           `json:"unresolved"`
	CrashReports int           `json:"crashReports"`
	Written      []string      `json:"written"`
	Skipped      []string      `json:"skipped"`
	Duration     time.Duration `json:"duration"`
}

// FormatSummary renders s for a terminal.
func FormatSummary(s Summary) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("crashmap run " + s.RunID))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", 40))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	row("Crash logs", fmt.Sprintf("%d", s.Documents))
	row("Crash reports", fmt.Sprintf("%d", s.CrashReports))
	row("References", fmt.Sprintf("%d", s.References))
	row("  resolved", successStyle.Render(fmt.Sprintf("%d", s.Resolved)))
	if s.Unresolved > 0 {
		row("  unresolved", warningStyle.Render(fmt.Sprintf("%d", s.Unresolved)))
	} else {
		row("  unresolved", fmt.Sprintf("%d", s.Unresolved))
	}
	row("Files written", fmt.Sprintf("%d", len(s.Written)))

	if len(s.Skipped) > 0 {
		b.WriteString(warningStyle.Render(fmt.Sprintf("Skipped %d crash logs without a destination:", len(s.Skipped))))
		b.WriteString("\n")
		for _, path := range s.Skipped {
			b.WriteString("   " + path + "\n")
		}
	}

	b.WriteString(statusStyle.Render(fmt.Sprintf("done in %v", s.Duration.Round(time.Millisecond))))
	b.WriteString("\n")
	return b.String()
}

func PrintSummary(w io.Writer, s Summary) error {
	_, err := io.WriteString(w, FormatSummary(s))
	return err
}
