package upatch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var hunkHeaderPattern = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Hunk is one change region of a unified diff. Lines are kept in patch
// order; the remaining counters say how many old/new side lines are still
// owed before the hunk is complete.
type Hunk struct {
	OldStart, OldLen int
	NewStart, NewLen int
	Lines            []HunkLine

	oldLeft, newLeft int
}

// ParseHunkHeader parses "@@ -a[,b] +c[,d] @@". A missing length means 1.
func ParseHunkHeader(line string) (*Hunk, error) {
	m := hunkHeaderPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("malformed hunk header %q", line)
	}

	num := func(s string, def int) (int, error) {
		if s == "" {
			return def, nil
		}
		return strconv.Atoi(s)
	}

	var vals [4]int
	var err error
	for i, def := range []int{0, 1, 0, 1} {
		if vals[i], err = num(m[i+1], def); err != nil {
			return nil, fmt.Errorf("malformed hunk header %q: %w", line, err)
		}
	}

	h := &Hunk{OldStart: vals[0], OldLen: vals[1], NewStart: vals[2], NewLen: vals[3]}
	h.oldLeft, h.newLeft = h.OldLen, h.NewLen
	return h, nil
}

func isBodyLine(line string) bool {
	return line != "" && (line[0] == ' ' || line[0] == '+' || line[0] == '-')
}

// AddLine appends a raw body line and reports whether it was accepted. A
// line the header has no room left for is rejected.
func (h *Hunk) AddLine(line string) bool {
	if !isBodyLine(line) {
		return false
	}
	kind := LineKind(line[0])
	oldLeft, newLeft := h.oldLeft, h.newLeft
	if kind != Add {
		oldLeft--
	}
	if kind != Remove {
		newLeft--
	}
	if oldLeft < 0 || newLeft < 0 {
		return false
	}
	h.oldLeft, h.newLeft = oldLeft, newLeft
	h.Lines = append(h.Lines, HunkLine{Kind: kind, Text: line[1:]})
	return true
}

// Complete reports whether both declared counts have been consumed.
func (h *Hunk) Complete() bool { return h.oldLeft == 0 && h.newLeft == 0 }

// LeadingContext is the number of context lines before the first change.
func (h *Hunk) LeadingContext() int {
	n := 0
	for _, l := range h.Lines {
		if l.Kind != Context {
			break
		}
		n++
	}
	return n
}

// TrailingContext is the number of context lines after the last change.
func (h *Hunk) TrailingContext() int {
	trail := 0
	for _, l := range h.Lines {
		if l.Kind == Context {
			trail++
		} else {
			trail = 0
		}
	}
	return trail
}

func (h *Hunk) OldSum() int { return h.OldStart + h.OldLen }
func (h *Hunk) NewSum() int { return h.NewStart + h.NewLen }

func (h *Hunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldLen, h.NewStart, h.NewLen)
}

func (h *Hunk) String() string {
	var b strings.Builder
	b.WriteString(h.Header())
	b.WriteByte('\n')
	for _, l := range h.Lines {
		b.WriteString(l.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// direction maps the hunk's removal and insertion tags for one apply
// direction.
type direction struct {
	reverse bool
}

func (d direction) removal() LineKind {
	if d.reverse {
		return Add
	}
	return Remove
}

func (d direction) insertion() LineKind {
	if d.reverse {
		return Remove
	}
	return Add
}
