// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"taskboard/internal/engine"
	"taskboard/internal/service"
)

const (
	// SectionSeparator is the separator line for board sections.
	SectionSeparator = "------------"
)

// FormatTask formats a task line.
// Format: "{REF:>4}  {TITLE}\n" (4-wide right-aligned reference, two spaces, title)
func FormatTask(w io.Writer, ref string, task service.Task) {
	fmt.Fprintf(w, "%4s  %s\n", ref, normalizeTitle(task.Title))
}

// FormatSectionHeader formats a partition header with its task count.
func FormatSectionHeader(w io.Writer, status service.Status, count int) {
	fmt.Fprintln(w, SectionSeparator)
	fmt.Fprintf(w, "%s (%d)\n", status.Label(), count)
	fmt.Fprintln(w, SectionSeparator)
}

// FormatBoard prints the three partitions of v in board order.
// letter gives the reference letter used to number each partition.
func FormatBoard(w io.Writer, v engine.View, letter func(service.Status) rune) {
	for _, s := range service.Statuses {
		tasks := v.Partition(s)
		FormatSectionHeader(w, s, len(tasks))
		for i, task := range tasks {
			FormatTask(w, fmt.Sprintf("%c%d", letter(s), i+1), task)
		}
	}
}

// FormatStats prints the one-line board summary.
func FormatStats(w io.Writer, s engine.Stats) {
	fmt.Fprintf(w, "%d %s: %d todo, %d in progress, %d done (%d%% complete)\n",
		s.Total, plural(s.Total, "task", "tasks"), s.Todo, s.InProgress, s.Done, s.CompletionRate)
}

// FormatTaskDetail prints one task with its description and status.
func FormatTaskDetail(w io.Writer, task service.Task) {
	fmt.Fprintln(w, normalizeTitle(task.Title))
	fmt.Fprintf(w, "  status: %s\n", task.Status.Label())
	if desc := strings.TrimSpace(task.Description); desc != "" {
		fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(desc, "\n", "\n  "))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
