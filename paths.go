package upatch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DevNull is the sentinel name meaning "this side of the diff does not exist".
var DevNull = os.DevNull

// StripAll strips every directory component from header names.
const StripAll = -1

// ParseHeaderName extracts the file name from the text after "--- " or
// "+++ ". Metadata after a tab is dropped; a timestamp whose year is 1970 or
// earlier marks a side that does not exist. A carriage return left by a
// CRLF patch is not part of the name.
func ParseHeaderName(field string) string {
	name, meta, ok := strings.Cut(strings.TrimSuffix(field, "\r"), "\t")
	if ok && preEpoch(meta) {
		return DevNull
	}
	return name
}

func preEpoch(meta string) bool {
	meta = strings.TrimLeft(meta, " \t")
	end := 0
	for end < len(meta) && meta[end] >= '0' && meta[end] <= '9' {
		end++
	}
	if end == 0 {
		return false
	}
	year, err := strconv.Atoi(meta[:end])
	return err == nil && year <= 1970
}

// StripPath removes n leading slash-separated segments from name.
// Consecutive slashes count as one separator. StripAll keeps only the last
// segment.
func StripPath(name string, n int) string {
	rest := name
	for i, k := 0, 0; k < len(name); {
		if n >= 0 && i == n {
			break
		}
		c := name[k]
		k++
		if c != '/' {
			continue
		}
		for k < len(name) && name[k] == '/' {
			k++
		}
		rest = name[k:]
		i++
	}
	return rest
}

type sessionMode int

const (
	modePatch sessionMode = iota
	modeCreate
	modeDelete
)

func (m sessionMode) action() FileAction {
	switch m {
	case modeCreate:
		return ActionCreate
	case modeDelete:
		return ActionDelete
	}
	return ActionModify
}

// Target is a resolved patch target.
type Target struct {
	Name string // as shown to the user, after stripping
	Path string // absolute
	Mode sessionMode
}

var errNoTargetName = errors.New("patch names no usable file")

type PathResolver struct {
	wd       string
	strip    int
	override string
}

// NewPathResolver resolves relative names against dir (the process working
// directory when empty). A non-empty override replaces every name found in
// the patch and is never stripped.
func NewPathResolver(dir string, strip int, override string) (*PathResolver, error) {
	wd := dir
	if wd == "" {
		var err error
		if wd, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
	}
	abs, err := filepath.Abs(wd)
	if err != nil {
		return nil, fmt.Errorf("could not resolve directory %s: %w", wd, err)
	}
	return &PathResolver{wd: abs, strip: strip, override: override}, nil
}

func (r *PathResolver) Dir() string { return r.wd }

func (r *PathResolver) Resolve(relativePath string) string {
	if filepath.IsAbs(relativePath) {
		return filepath.Clean(relativePath)
	}
	return filepath.Join(r.wd, relativePath)
}

// Target picks the file a hunk applies to from the header names of its file
// pair and decides whether that file is patched, created or deleted.
func (r *PathResolver) Target(oldName, newName string, h *Hunk, reverse bool) (Target, error) {
	used, other, source := newName, oldName, oldName
	usedSum, sourceSum := h.NewSum(), h.OldSum()
	if reverse {
		used, other, source = oldName, newName, newName
		usedSum, sourceSum = h.OldSum(), h.NewSum()
	}

	mode := modePatch
	name := used
	if used == DevNull || usedSum == 0 {
		name = other
		mode = modeDelete
	}

	strip := r.strip
	if r.override != "" {
		name = r.override
		strip = 0
	}
	if name == "" || name == DevNull {
		return Target{}, fmt.Errorf("%w: --- %q +++ %q", errNoTargetName, oldName, newName)
	}

	name = StripPath(name, strip)
	if name == "" {
		return Target{}, fmt.Errorf("%w: nothing left of %q after stripping", errNoTargetName, used)
	}

	t := Target{Name: name, Path: r.Resolve(name), Mode: mode}
	if mode == modePatch && (source == DevNull || sourceSum == 0) {
		if _, err := os.Stat(t.Path); errors.Is(err, os.ErrNotExist) {
			t.Mode = modeCreate
		}
	}
	return t, nil
}
