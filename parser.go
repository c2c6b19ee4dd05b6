package upatch

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type parserState int

const (
	statePreamble parserState = iota
	stateOldHeader
	stateNewHeader
	stateHunk
)

func (s parserState) String() string {
	switch s {
	case statePreamble:
		return "preamble"
	case stateOldHeader:
		return "old-header"
	case stateNewHeader:
		return "new-header"
	}
	return "hunk"
}

// Patcher reads a unified diff line by line and applies each hunk to its
// target as soon as the hunk is complete. Only one target file is open at
// a time.
type Patcher struct {
	cfg      *Config
	resolver *PathResolver
	fm       *FileManager
	report   *Reporter
	log      *slog.Logger
	opts     applyOptions

	state   parserState
	oldName string
	newName string
	hunk    *Hunk
	session *FileSession
	result  Result
}

func NewPatcher(cfg *Config, resolver *PathResolver, fm *FileManager, report *Reporter, log *slog.Logger) *Patcher {
	compare := ExactCompare
	if cfg.Loose {
		compare = LooseCompare
	}
	return &Patcher{
		cfg:      cfg,
		resolver: resolver,
		fm:       fm,
		report:   report,
		log:      log,
		opts:     applyOptions{reverse: cfg.Reverse, fuzz: cfg.Fuzz, compare: compare},
		result:   Result{DryRun: cfg.DryRun},
	}
}

// Run consumes the whole patch. Hunks that cannot be placed are counted in
// the result; the returned error is reserved for conditions that stop the
// run, such as a target that cannot be opened or replaced.
func (p *Patcher) Run(src *LineSource) (Result, error) {
	for {
		line, err := src.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.abort()
			return p.result, err
		}
		if err := p.feed(line); err != nil {
			p.abort()
			return p.result, err
		}
	}

	if p.state == stateHunk {
		if err := p.failHunk("patch ends inside a hunk"); err != nil {
			p.abort()
			return p.result, err
		}
	}
	if err := p.finishSession(); err != nil {
		p.abort()
		return p.result, err
	}
	return p.result, nil
}

func (p *Patcher) feed(line string) error {
	if p.state == stateHunk {
		if p.hunk.AddLine(line) {
			if p.hunk.Complete() {
				return p.endHunk()
			}
			return nil
		}
		// "\ No newline at end of file"
		if strings.HasPrefix(line, `\`) {
			return nil
		}
		if err := p.failHunk(fmt.Sprintf("unexpected line %q", line)); err != nil {
			return err
		}
	}

	switch {
	case strings.HasPrefix(line, "--- "):
		if err := p.finishSession(); err != nil {
			return err
		}
		p.oldName = ParseHeaderName(line[4:])
		p.newName = ""
		p.state = stateOldHeader
	case strings.HasPrefix(line, "+++ "):
		if err := p.finishSession(); err != nil {
			return err
		}
		// A "+++ " with no "--- " right before it has no old side.
		if p.state != stateOldHeader {
			p.log.Debug("new file header without old header", "state", p.state, "line", line)
			p.oldName = ""
		}
		p.newName = ParseHeaderName(line[4:])
		p.state = stateNewHeader
	case p.state == stateNewHeader && strings.HasPrefix(line, "@@ -"):
		return p.startHunk(line)
	}
	return nil
}

func (p *Patcher) startHunk(line string) error {
	h, err := ParseHunkHeader(line)
	if err != nil {
		p.log.Debug("bad hunk header", "line", line, "err", err)
		if p.session == nil {
			t := p.placeholderTarget()
			p.session = &FileSession{OldName: p.oldName, NewName: p.newName, Target: t}
			p.result.Files = append(p.result.Files, FileResult{Path: t.Path, Action: t.Mode.action()})
		}
		p.session.HunkNum++
		return p.recordFailure(nil, err.Error(), 0)
	}

	if p.session == nil {
		if err := p.openSession(h); err != nil {
			return err
		}
	}
	p.session.HunkNum++
	p.hunk = h
	p.state = stateHunk
	if h.Complete() {
		return p.endHunk()
	}
	return nil
}

// placeholderTarget names the file of a pair whose first hunk header could
// not be parsed, so its failure is reported against the resolved path.
func (p *Patcher) placeholderTarget() Target {
	if t, err := p.resolver.Target(p.oldName, p.newName, &Hunk{OldLen: 1, NewLen: 1}, p.cfg.Reverse); err == nil {
		return t
	}
	return Target{Name: p.newName, Path: p.newName}
}

func (p *Patcher) openSession(h *Hunk) error {
	t, err := p.resolver.Target(p.oldName, p.newName, h, p.cfg.Reverse)
	if err != nil {
		return err
	}

	switch t.Mode {
	case modeDelete:
		p.report.Removing(t.Name)
	case modeCreate:
		p.report.Creating(t.Name)
	default:
		p.report.Patching(t.Name)
	}

	s, err := openSession(p.fm, p.oldName, p.newName, t, p.cfg.DryRun)
	if err != nil {
		return err
	}
	if t.Mode == modeDelete && !p.cfg.DryRun {
		if err := p.fm.Remove(t.Path); err != nil {
			return err
		}
	}

	p.session = s
	p.result.Files = append(p.result.Files, FileResult{Path: t.Path, Action: t.Mode.action()})
	return nil
}

func (p *Patcher) currentFile() *FileResult {
	return &p.result.Files[len(p.result.Files)-1]
}

func (p *Patcher) endHunk() error {
	h := p.hunk
	p.hunk = nil
	p.state = stateNewHeader
	p.currentFile().Hunks++

	if p.session.Discarding() {
		return nil
	}

	out, err := newHunkApplier(h, p.session, p.opts, p.log).apply()
	if err != nil {
		return err
	}
	if out.applied {
		p.log.Debug("hunk applied", "hunk", p.session.HunkNum, "line", p.session.LineNum, "out", p.session.OutNum)
		return nil
	}
	return p.recordFailure(h, "", out.reversedAt)
}

// failHunk drops a hunk that could not be assembled. Parsing carries on
// with the current file pair, whose remaining hunks are discarded.
func (p *Patcher) failHunk(reason string) error {
	h := p.hunk
	p.hunk = nil
	p.state = stateNewHeader
	p.currentFile().Hunks++

	if p.session.Discarding() {
		return nil
	}
	return p.recordFailure(h, reason, 0)
}

func (p *Patcher) recordFailure(h *Hunk, reason string, reversedAt int) error {
	s := p.session
	if reversedAt > 0 && !p.cfg.Silent {
		p.report.PossiblyReversed(s.HunkNum, reversedAt)
	}
	p.report.HunkFailed(s.HunkNum, h, reason)

	p.result.FailedHunks++
	p.currentFile().FailedHunks++
	if s.Failed {
		return nil
	}
	if err := s.abandon(); err != nil {
		return fmt.Errorf("discard changes to %s: %w", s.Target.Name, err)
	}
	return nil
}

func (p *Patcher) finishSession() error {
	s := p.session
	p.session = nil
	if s == nil {
		return nil
	}
	return s.finish()
}

// abort releases the open session without touching its target.
func (p *Patcher) abort() {
	if p.session != nil {
		p.session.discard()
		p.session = nil
	}
}
