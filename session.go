package upatch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileSession is the target file currently being patched. It reads the
// original through a forward-only LineSource and writes the patched result
// to a temporary file beside it, which replaces the original only when
// every hunk applied.
type FileSession struct {
	OldName string
	NewName string
	Target  Target

	LineNum int // lines consumed from the original
	OutNum  int // lines written to the output
	HunkNum int
	Failed  bool

	fm       *FileManager
	dryRun   bool
	in       *LineSource
	out      *bufio.Writer
	outFile  *os.File
	tempPath string
	created  bool
}

func openSession(fm *FileManager, oldName, newName string, t Target, dryRun bool) (*FileSession, error) {
	s := &FileSession{OldName: oldName, NewName: newName, Target: t, fm: fm, dryRun: dryRun}

	switch {
	case t.Mode == modeDelete:
		return s, nil
	case t.Mode == modeCreate && dryRun:
		s.in = NewLineSource(strings.NewReader(""), WithName(t.Name))
	case t.Mode == modeCreate:
		f, err := fm.Create(t.Path)
		if err != nil {
			return nil, err
		}
		s.created = true
		s.in = NewLineSource(f, WithName(t.Name))
	default:
		f, err := os.Open(t.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", t.Name, err)
		}
		s.in = NewLineSource(f, WithName(t.Name))
	}

	if dryRun {
		s.out = bufio.NewWriter(io.Discard)
		return s, nil
	}
	if err := s.openTemp(); err != nil {
		s.discard()
		return nil, err
	}
	return s, nil
}

// openTemp creates the output file in the target's directory, so the final
// rename never crosses file systems, with the target's permissions.
func (s *FileSession) openTemp() error {
	fi, err := os.Stat(s.Target.Path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", s.Target.Name, err)
	}
	dir, base := filepath.Split(s.Target.Path)
	f, err := os.CreateTemp(dir, "."+base+".*.upatch")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", s.Target.Name, err)
	}
	s.outFile, s.tempPath = f, f.Name()
	if err := f.Chmod(fi.Mode().Perm()); err != nil {
		return fmt.Errorf("copy permissions to %s: %w", s.tempPath, err)
	}
	s.out = bufio.NewWriter(f)
	return nil
}

// Discarding reports whether hunks for this file are parsed but not applied.
func (s *FileSession) Discarding() bool {
	return s.Failed || s.Target.Mode == modeDelete
}

func (s *FileSession) readLine() (string, error) {
	line, err := s.in.ReadLine()
	if err == nil {
		s.LineNum++
	}
	return line, err
}

func (s *FileSession) writeLine(text string) error {
	s.OutNum++
	if _, err := s.out.WriteString(text); err != nil {
		return fmt.Errorf("write %s: %w", s.Target.Name, err)
	}
	if err := s.out.WriteByte('\n'); err != nil {
		return fmt.Errorf("write %s: %w", s.Target.Name, err)
	}
	return nil
}

// finish copies whatever of the original was not read and moves the
// result into place. Sessions that failed or delete their file have
// nothing left to do.
func (s *FileSession) finish() error {
	if s.Discarding() {
		return nil
	}
	defer s.discard()

	if s.dryRun {
		return nil
	}
	if _, err := io.Copy(s.out, s.in.Rest()); err != nil {
		return fmt.Errorf("copy %s: %w", s.Target.Name, err)
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", s.Target.Name, err)
	}
	if err := s.outFile.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.tempPath, err)
	}
	s.outFile = nil
	if err := s.in.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.Target.Name, err)
	}

	if err := s.fm.Replace(s.tempPath, s.Target.Path, s.Target.Mode.action()); err != nil {
		return err
	}
	s.tempPath = ""
	s.created = false
	return nil
}

// abandon drops all output for this file. The original is left as it was
// and a file the session created is removed again.
func (s *FileSession) abandon() error {
	s.Failed = true
	return s.discard()
}

// discard releases the handles and removes whatever the session still owns
// on disk.
func (s *FileSession) discard() error {
	var errs []error
	if s.outFile != nil {
		errs = append(errs, s.outFile.Close())
		s.outFile = nil
	}
	if s.in != nil {
		errs = append(errs, s.in.Close())
	}
	if s.tempPath != "" {
		errs = append(errs, os.Remove(s.tempPath))
		s.tempPath = ""
	}
	if s.created {
		errs = append(errs, os.Remove(s.Target.Path))
		s.created = false
	}
	return errors.Join(errs...)
}
