package upatch

import (
	"errors"
	"io"
	"log/slog"
)

// matchCursor is the state of one search for a hunk in the target.
type matchCursor struct {
	pos     int      // next hunk line to match
	pending []string // target lines read but not yet written out
	check   int      // next pending line to compare
	fuzz    int
	maxFuzz int
}

type scanOutcome int

const (
	needInput scanOutcome = iota
	matched
	mismatched
)

type applyOptions struct {
	reverse bool
	fuzz    int // negative derives the budget from the hunk's context
	compare LineComparator
}

type hunkOutcome struct {
	applied bool
	// input line that equals a line the hunk would insert; only reported
	// when the hunk ran off the end of the file
	reversedAt int
}

// hunkApplier locates one hunk in the session's remaining input and writes
// the patched region to the session's output. The hunk's header line
// numbers are ignored: its context and removed lines act as a pattern that
// is searched for in a single forward pass. Input lines that cannot start
// a match are passed through unchanged.
type hunkApplier struct {
	h       *Hunk
	dir     direction
	compare LineComparator
	sess    *FileSession
	log     *slog.Logger

	context    int
	trail      int
	matchEOF   bool
	reversedAt int
	cur        matchCursor
}

func newHunkApplier(h *Hunk, sess *FileSession, opts applyOptions, log *slog.Logger) *hunkApplier {
	a := &hunkApplier{
		h:       h,
		dir:     direction{reverse: opts.reverse},
		compare: opts.compare,
		sess:    sess,
		log:     log,
	}
	if a.compare == nil {
		a.compare = ExactCompare
	}

	// A hunk with fewer trailing than leading context lines was cut short
	// by the end of the file and must match there.
	a.context = h.LeadingContext()
	a.trail = h.TrailingContext()
	a.matchEOF = a.trail == 0 || a.trail < a.context

	anchors := 0
	for _, l := range h.Lines {
		if (l.Kind == Context || l.Kind == a.dir.removal()) && nonTrivial(l.Text) {
			anchors++
		}
		log.Debug("HUNK", "line", l.String())
	}
	switch {
	case anchors < 2:
		a.cur.maxFuzz = 0
	case opts.fuzz >= 0:
		a.cur.maxFuzz = opts.fuzz
	case a.context > 0:
		a.cur.maxFuzz = a.context - 1
	}
	log.Debug("MATCHEOF", "matcheof", a.matchEOF, "context", a.context, "trail", a.trail, "fuzz", a.cur.maxFuzz)
	return a
}

func (a *hunkApplier) apply() (hunkOutcome, error) {
	for {
		line, err := a.sess.readLine()
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			return hunkOutcome{}, err
		}

		a.skipInsertions(line, !eof)

		if eof {
			a.log.Debug("INEOF", "line", a.sess.LineNum, "out", a.sess.OutNum)
			if a.cur.pos == len(a.h.Lines) && a.matchEOF {
				return a.emit()
			}
			return a.fail(a.reversedAt)
		}

		a.log.Debug("IN", "line", a.sess.LineNum, "text", line)
		a.cur.pending = append(a.cur.pending, line)

		outcome, err := a.scan()
		if err != nil {
			return hunkOutcome{}, err
		}
		switch outcome {
		case matched:
			return a.emit()
		case mismatched:
			return a.fail(0)
		}
	}
}

// skipInsertions moves the cursor past lines the hunk adds, since those do
// not occur in the input. An input line equal to one of them hints that
// the patch was already applied or is reversed.
func (a *hunkApplier) skipInsertions(line string, haveLine bool) {
	lines := a.h.Lines
	for a.cur.pos < len(lines) && lines[a.cur.pos].Kind == a.dir.insertion() {
		if haveLine && a.reversedAt == 0 && a.compare(line, lines[a.cur.pos].Text) {
			a.reversedAt = a.sess.LineNum
		}
		a.cur.pos++
	}
}

// nextExpected returns the index of the first line at or after pos that
// must be found in the input, or -1.
func (a *hunkApplier) nextExpected(pos int) int {
	for i := pos; i < len(a.h.Lines); i++ {
		if a.h.Lines[i].Kind != a.dir.insertion() {
			return i
		}
	}
	return -1
}

// scan compares pending input against the hunk until it needs more input,
// has matched every line, or cannot match at all.
func (a *hunkApplier) scan() (scanOutcome, error) {
	c := &a.cur
	lines := a.h.Lines
	for {
		got := c.pending[c.check]
		idx := a.nextExpected(c.pos)

		if idx < 0 || !a.compare(got, lines[idx].Text) {
			if idx >= 0 && lines[idx].Kind == Context && c.fuzz < c.maxFuzz {
				c.fuzz++
				a.log.Debug("FUZZED", "line", a.sess.LineNum, "hunk", lines[idx].String())
			} else {
				if idx >= 0 {
					a.log.Debug("NOT", "want", lines[idx].String(), "got", got)
				}

				// Without leading context the hunk is anchored at the
				// start of the file and cannot slide.
				if a.context == 0 || a.trail > a.context {
					return mismatched, nil
				}

				// Give up on this start position: pass the oldest line
				// through and retry from the next one.
				if err := a.sess.writeLine(c.pending[0]); err != nil {
					return mismatched, err
				}
				c.pending = c.pending[1:]
				c.pos, c.check, c.fuzz = 0, 0, 0
				if len(c.pending) == 0 {
					return needInput, nil
				}
				continue
			}
		} else {
			a.log.Debug("MAYBE", "hunk", lines[idx].String())
		}

		c.pos = idx + 1
		if a.nextExpected(c.pos) < 0 && !a.matchEOF {
			return matched, nil
		}
		c.check++
		if c.check == len(c.pending) {
			return needInput, nil
		}
	}
}

// emit writes the matched region in its patched form, then any pending
// input past the match.
func (a *hunkApplier) emit() (hunkOutcome, error) {
	c := &a.cur
	removal := a.dir.removal()
	for _, l := range a.h.Lines {
		switch l.Kind {
		case Context, removal:
			got := c.pending[0]
			c.pending = c.pending[1:]
			if l.Kind == Context {
				if err := a.sess.writeLine(got); err != nil {
					return hunkOutcome{}, err
				}
			}
		default:
			if err := a.sess.writeLine(l.Text); err != nil {
				return hunkOutcome{}, err
			}
		}
	}
	if err := a.flush(); err != nil {
		return hunkOutcome{}, err
	}
	return hunkOutcome{applied: true}, nil
}

func (a *hunkApplier) fail(reversedAt int) (hunkOutcome, error) {
	if err := a.flush(); err != nil {
		return hunkOutcome{}, err
	}
	return hunkOutcome{reversedAt: reversedAt}, nil
}

func (a *hunkApplier) flush() error {
	for _, line := range a.cur.pending {
		if err := a.sess.writeLine(line); err != nil {
			return err
		}
	}
	a.cur.pending = nil
	return nil
}
