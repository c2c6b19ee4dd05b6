package upatch

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	header  lipgloss.Style
	created lipgloss.Style
	success lipgloss.Style
	deleted lipgloss.Style
	errors  lipgloss.Style
	warning lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		created: r.NewStyle().Foreground(lipgloss.Color("81")),
		success: r.NewStyle().Foreground(lipgloss.Color("78")),
		deleted: r.NewStyle().Foreground(lipgloss.Color("204")),
		errors:  r.NewStyle().Foreground(lipgloss.Color("197")),
		warning: r.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

// Reporter writes the messages a user of the command sees: one line per
// file touched on out, hunk failures and warnings on errOut.
type Reporter struct {
	out    io.Writer
	errOut io.Writer
	silent bool
	style  styles
}

func NewReporter(out, errOut io.Writer, silent bool) *Reporter {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	return &Reporter{out: out, errOut: errOut, silent: silent, style: newStyles(errOut)}
}

func (r *Reporter) file(verb, name string) {
	if r.silent {
		return
	}
	fmt.Fprintf(r.out, "%s %s\n", verb, name)
}

func (r *Reporter) Patching(name string) { r.file("patching", name) }
func (r *Reporter) Creating(name string) { r.file("creating", name) }
func (r *Reporter) Removing(name string) { r.file("removing", name) }

// HunkFailed reports a hunk that was not applied, followed by its body so
// it can be applied by hand. h is nil when the hunk header itself was bad.
func (r *Reporter) HunkFailed(num int, h *Hunk, reason string) {
	var msg string
	if h != nil {
		msg = fmt.Sprintf("Hunk %d FAILED %d/%d.", num, h.OldStart, h.NewStart)
	} else {
		msg = fmt.Sprintf("Hunk %d FAILED.", num)
	}
	if reason != "" {
		msg += " " + reason
	}
	fmt.Fprintln(r.errOut, r.style.errors.Render(msg))
	if h == nil {
		return
	}
	for _, l := range h.Lines {
		fmt.Fprintln(r.errOut, l.String())
	}
}

func (r *Reporter) PossiblyReversed(num, line int) {
	fmt.Fprintln(r.errOut, r.style.warning.Render(fmt.Sprintf("Possibly reversed hunk %d at %d", num, line)))
}

// SummaryOf groups a run's files by what happened to them.
func SummaryOf(res Result) Summary {
	var s Summary
	for _, f := range res.Files {
		switch {
		case f.Failed():
			s.Failed = append(s.Failed, f.Path)
		case f.Action == ActionCreate:
			s.Created = append(s.Created, f.Path)
		case f.Action == ActionDelete:
			s.Deleted = append(s.Deleted, f.Path)
		default:
			s.Modified = append(s.Modified, f.Path)
		}
	}
	s.FailedHunks = res.FailedHunks
	switch {
	case len(res.Files) == 0:
		s.Message = "Nothing to do"
	case res.DryRun:
		s.Message = "Dry run"
	}
	return s
}

func FormatSummary(s Summary, w io.Writer) string {
	st := newStyles(w)
	var b strings.Builder
	if s.Message != "" {
		b.WriteString(st.header.Render(s.Message) + "\n\n")
	}

	renderList := func(title string, style lipgloss.Style, list []string) {
		if len(list) == 0 {
			return
		}
		b.WriteString(style.Render(title) + "\n")
		for _, f := range list {
			b.WriteString(fmt.Sprintf("  %s\n", f))
		}
	}

	renderList("Created:", st.created, s.Created)
	renderList("Modified:", st.success, s.Modified)
	renderList("Deleted:", st.deleted, s.Deleted)
	renderList("Failed:", st.errors, s.Failed)
	if s.FailedHunks > 0 {
		b.WriteString(st.errors.Render(fmt.Sprintf("%d hunk(s) failed", s.FailedHunks)) + "\n")
	}

	return b.String()
}
