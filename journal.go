package upatch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	journalDirName  = ".upatch"
	journalFileName = "history"
	BlobsDir        = "blobs"
	entrySeparator  = "\n===\n"
	opSeparator     = "\n---\n"
	none            = "-"
)

// Operation records one file change made by a run.
type Operation struct {
	Timestamp      int64
	Action         FileAction
	Path           string
	OldContentHash string
	ContentHash    string
}

type HistoryEntry struct {
	Operations []Operation
}

type history struct {
	Entries      []HistoryEntry
	CurrentIndex int
}

// Journal keeps the history of patch runs under a state directory so that
// a run can be undone and redone.
type Journal struct {
	path     string
	state    *history
	StateDir string
}

func JournalDir(root string) string { return filepath.Join(root, journalDirName) }

func OpenJournal(root string) (*Journal, error) {
	dir := JournalDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	j := &Journal{path: filepath.Join(dir, journalFileName), StateDir: dir}
	j.state = &history{CurrentIndex: -1}
	if err := j.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load journal: %w", err)
	}
	return j, nil
}

func (j *Journal) load() error {
	data, err := os.ReadFile(j.path)
	if err != nil {
		return err
	}

	blocks := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), entrySeparator)
	idx, err := strconv.Atoi(strings.TrimSpace(blocks[0]))
	if err != nil {
		return fmt.Errorf("bad journal index %q: %w", blocks[0], err)
	}
	j.state = &history{CurrentIndex: idx}

	val := func(s string) string {
		s = strings.TrimSpace(s)
		if s == none {
			return ""
		}
		return s
	}

	for _, b := range blocks[1:] {
		var entry HistoryEntry
		for _, opBlock := range strings.Split(strings.TrimSpace(b), opSeparator) {
			lines := strings.Split(strings.TrimSpace(opBlock), "\n")
			if len(lines) < 5 {
				continue
			}
			ts, _ := strconv.ParseInt(strings.TrimSpace(lines[0]), 10, 64)
			entry.Operations = append(entry.Operations, Operation{
				Timestamp:      ts,
				Action:         FileAction(val(lines[1])),
				Path:           val(lines[2]),
				OldContentHash: val(lines[3]),
				ContentHash:    val(lines[4]),
			})
		}
		j.state.Entries = append(j.state.Entries, entry)
	}
	if j.state.CurrentIndex >= len(j.state.Entries) {
		j.state.CurrentIndex = len(j.state.Entries) - 1
	}
	return nil
}

func (j *Journal) save() error {
	placeholder := func(s string) string {
		if s == "" {
			return none
		}
		return s
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d", j.state.CurrentIndex)
	for _, e := range j.state.Entries {
		b.WriteString(entrySeparator)
		for i, op := range e.Operations {
			fmt.Fprintf(&b, "%d\n%s\n%s\n%s\n%s", op.Timestamp, placeholder(string(op.Action)), placeholder(op.Path), placeholder(op.OldContentHash), placeholder(op.ContentHash))
			if i < len(e.Operations)-1 {
				b.WriteString(opSeparator)
			}
		}
	}
	return os.WriteFile(j.path, []byte(b.String()), 0644)
}

// Sync drops history entries that no longer describe the files on disk,
// walking back from the current one.
func (j *Journal) Sync() error {
	if j.state.CurrentIndex < 0 {
		return nil
	}

	for i := j.state.CurrentIndex; i >= 0; i-- {
		if j.matchState(i) {
			if i < j.state.CurrentIndex {
				j.state.Entries = j.state.Entries[:i+1]
				j.state.CurrentIndex = i
				return j.save()
			}
			return nil
		}
	}

	j.state.Entries = nil
	j.state.CurrentIndex = -1
	return j.save()
}

func (j *Journal) matchState(idx int) bool {
	if idx < 0 || idx >= len(j.state.Entries) {
		return false
	}

	for _, op := range j.state.Entries[idx].Operations {
		currentHash, err := GetFileSHA256(op.Path)
		if op.Action == ActionDelete {
			if err == nil {
				return false
			}
			continue
		}
		if err != nil || currentHash != op.ContentHash {
			return false
		}
	}
	return true
}

// Write appends ops as the newest entry, discarding any redo tail. Call
// Sync before the files are touched, not after.
func (j *Journal) Write(ops []Operation) error {
	if len(ops) == 0 {
		return nil
	}
	if j.state.CurrentIndex < len(j.state.Entries)-1 {
		j.state.Entries = j.state.Entries[:j.state.CurrentIndex+1]
	}
	sorted := append([]Operation(nil), ops...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Path < sorted[b].Path })
	j.state.Entries = append(j.state.Entries, HistoryEntry{Operations: sorted})
	j.state.CurrentIndex++
	return j.save()
}

func (j *Journal) OperationsToUndo() ([]Operation, error) {
	if j.state.CurrentIndex < 0 {
		return nil, nil
	}
	ops := j.state.Entries[j.state.CurrentIndex].Operations
	j.state.CurrentIndex--
	return ops, j.save()
}

func (j *Journal) OperationsToRedo() ([]Operation, error) {
	if j.state.CurrentIndex+1 >= len(j.state.Entries) {
		return nil, nil
	}
	j.state.CurrentIndex++
	return j.state.Entries[j.state.CurrentIndex].Operations, j.save()
}

func (j *Journal) Entries() []HistoryEntry { return j.state.Entries }
