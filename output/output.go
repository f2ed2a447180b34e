package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sagarc03/runstore"
)

const timeLayout = "2006-01-02 15:04:05"

// Formatter formats catalog results for output.
type Formatter interface {
	FormatExperiments(w io.Writer, experiments []runstore.Experiment) error
	FormatExperiment(w io.Writer, e runstore.Experiment) error
	FormatTags(w io.Writer, tags []runstore.Tag) error
	FormatTag(w io.Writer, t runstore.Tag) error
	FormatRuns(w io.Writer, runs []runstore.Run) error
	FormatError(w io.Writer, err error) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatExperiments formats experiments as a table.
func (f *HumanFormatter) FormatExperiments(w io.Writer, experiments []runstore.Experiment) error {
	if len(experiments) == 0 {
		_, _ = fmt.Fprintln(w, "No experiments found")
		return nil
	}

	maxNameLen := columnWidth("NAME", 40, len(experiments), func(i int) string { return experiments[i].Name })

	_, _ = fmt.Fprintf(w, "%-*s  %-8s  %-19s  %s\n", maxNameLen, "NAME", "ARCHIVED", "CREATED", "DESCRIPTION")
	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s\n", strings.Repeat("-", maxNameLen), strings.Repeat("-", 8), strings.Repeat("-", 19), strings.Repeat("-", 11))

	for i := range experiments {
		e := &experiments[i]
		_, _ = fmt.Fprintf(w, "%-*s  %-8s  %-19s  %s\n",
			maxNameLen,
			truncate(e.Name, maxNameLen),
			yesNo(e.IsArchived),
			e.CreatedAt.Format(timeLayout),
			e.Description,
		)
	}

	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "\n%d experiment(s)\n", len(experiments))
	}
	return nil
}

// FormatExperiment formats a single experiment.
func (f *HumanFormatter) FormatExperiment(w io.Writer, e runstore.Experiment) error {
	if f.Quiet {
		_, _ = fmt.Fprintln(w, e.ID)
		return nil
	}
	_, _ = fmt.Fprintf(w, "Created experiment %s (%s)\n", e.Name, e.ID)
	return nil
}

// FormatTags formats tags as a table.
func (f *HumanFormatter) FormatTags(w io.Writer, tags []runstore.Tag) error {
	if len(tags) == 0 {
		_, _ = fmt.Fprintln(w, "No tags found")
		return nil
	}

	maxNameLen := columnWidth("NAME", 30, len(tags), func(i int) string { return tags[i].Name })

	_, _ = fmt.Fprintf(w, "%-36s  %-*s  %-7s  %s\n", "ID", maxNameLen, "NAME", "COLOR", "DESCRIPTION")
	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s\n", strings.Repeat("-", 36), strings.Repeat("-", maxNameLen), strings.Repeat("-", 7), strings.Repeat("-", 11))

	for i := range tags {
		t := &tags[i]
		_, _ = fmt.Fprintf(w, "%-36s  %-*s  %-7s  %s\n",
			t.ID,
			maxNameLen,
			truncate(t.Name, maxNameLen),
			t.Color,
			t.Description,
		)
	}

	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "\n%d tag(s)\n", len(tags))
	}
	return nil
}

// FormatTag formats a single tag.
func (f *HumanFormatter) FormatTag(w io.Writer, t runstore.Tag) error {
	if f.Quiet {
		_, _ = fmt.Fprintln(w, t.ID)
		return nil
	}
	_, _ = fmt.Fprintf(w, "Created tag %s (%s)\n", t.Name, t.ID)
	return nil
}

// FormatRuns formats runs as a table.
func (f *HumanFormatter) FormatRuns(w io.Writer, runs []runstore.Run) error {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "No runs found")
		return nil
	}

	maxNameLen := columnWidth("NAME", 40, len(runs), func(i int) string { return runs[i].Name })

	_, _ = fmt.Fprintf(w, "%-24s  %-*s  %-8s  %s\n", "HASH", maxNameLen, "NAME", "ARCHIVED", "UPDATED")
	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s\n", strings.Repeat("-", 24), strings.Repeat("-", maxNameLen), strings.Repeat("-", 8), strings.Repeat("-", 19))

	for i := range runs {
		r := &runs[i]
		_, _ = fmt.Fprintf(w, "%-24s  %-*s  %-8s  %s\n",
			truncate(r.Hash, 24),
			maxNameLen,
			truncate(r.Name, maxNameLen),
			yesNo(r.IsArchived),
			r.UpdatedAt.Format(timeLayout),
		)
	}

	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "\n%d run(s)\n", len(runs))
	}
	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatExperiments formats experiments as JSON.
func (f *JSONFormatter) FormatExperiments(w io.Writer, experiments []runstore.Experiment) error {
	return writeJSON(w, list(experiments))
}

// FormatExperiment formats a single experiment as JSON.
func (f *JSONFormatter) FormatExperiment(w io.Writer, e runstore.Experiment) error {
	return writeJSON(w, e)
}

// FormatTags formats tags as JSON.
func (f *JSONFormatter) FormatTags(w io.Writer, tags []runstore.Tag) error {
	return writeJSON(w, list(tags))
}

// FormatTag formats a single tag as JSON.
func (f *JSONFormatter) FormatTag(w io.Writer, t runstore.Tag) error {
	return writeJSON(w, t)
}

// FormatRuns formats runs as JSON.
func (f *JSONFormatter) FormatRuns(w io.Writer, runs []runstore.Run) error {
	return writeJSON(w, list(runs))
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}
	return writeJSON(w, output)
}

type items[T any] struct {
	Items []T `json:"items"`
}

func list[T any](v []T) items[T] {
	if v == nil {
		v = []T{}
	}
	return items[T]{Items: v}
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// columnWidth returns the width of a column holding n values, at least the
// header width and at most limit.
func columnWidth(header string, limit, n int, value func(int) string) int {
	width := len(header)
	for i := range n {
		if l := len(value(i)); l > width {
			width = l
		}
	}
	return min(width, limit)
}

func truncate(s string, width int) string {
	if len(s) > width {
		return s[:width-3] + "..."
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
