package upatch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileManager performs every change a run makes to the file system and,
// when a journal is attached, records it for undo.
type FileManager struct {
	journal *Journal
	ops     []Operation
}

func NewFileManager(j *Journal) *FileManager {
	return &FileManager{journal: j}
}

// Create makes an empty file, and its parent directories, for a session
// that creates path. The caller owns the returned handle.
func (m *FileManager) Create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("error creating directory '%s': %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}

// Replace renames tempPath over dest in one step.
func (m *FileManager) Replace(tempPath, dest string, action FileAction) error {
	var oldHash, newHash string
	if m.journal != nil {
		var err error
		if action != ActionCreate {
			if oldHash, err = storeFileBlob(m.journal.StateDir, dest); err != nil {
				return err
			}
		}
		if newHash, err = storeFileBlob(m.journal.StateDir, tempPath); err != nil {
			return err
		}
	}

	if err := os.Rename(tempPath, dest); err != nil {
		return fmt.Errorf("replace %s: %w", dest, err)
	}
	m.record(action, dest, oldHash, newHash)
	return nil
}

// Remove deletes path for a session that removes the file.
func (m *FileManager) Remove(path string) error {
	var oldHash string
	if m.journal != nil {
		var err error
		if oldHash, err = storeFileBlob(m.journal.StateDir, path); err != nil {
			return err
		}
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	m.record(ActionDelete, path, oldHash, "")
	return nil
}

func (m *FileManager) record(action FileAction, path, oldHash, newHash string) {
	if m.journal == nil {
		return
	}
	m.ops = append(m.ops, Operation{
		Timestamp:      time.Now().UTC().Unix(),
		Action:         action,
		Path:           path,
		OldContentHash: oldHash,
		ContentHash:    newHash,
	})
}

// Commit writes the changes recorded so far as one journal entry.
func (m *FileManager) Commit() error {
	if m.journal == nil || len(m.ops) == 0 {
		return nil
	}
	err := m.journal.Write(m.ops)
	m.ops = nil
	return err
}

func (m *FileManager) Undo(ops []Operation) Summary {
	var s Summary
	for _, op := range ops {
		if !m.undoFile(op) {
			s.Failed = append(s.Failed, op.Path)
			continue
		}

		switch op.Action {
		case ActionCreate:
			s.Deleted = append(s.Deleted, op.Path)
		case ActionDelete:
			s.Created = append(s.Created, op.Path)
		case ActionModify:
			s.Modified = append(s.Modified, op.Path)
		}
	}
	return s
}

func (m *FileManager) undoFile(op Operation) bool {
	actualHash, err := GetFileSHA256(op.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false
	}
	if actualHash != op.ContentHash {
		return false
	}

	if op.Action == ActionCreate {
		return os.Remove(op.Path) == nil
	}

	content, err := ReadBlob(m.journal.StateDir, op.OldContentHash)
	if err != nil {
		return false
	}
	return writeFilePreservingMode(op.Path, content) == nil
}

func (m *FileManager) Redo(ops []Operation) Summary {
	var s Summary
	for _, op := range ops {
		if !m.redoFile(op) {
			s.Failed = append(s.Failed, op.Path)
			continue
		}

		switch op.Action {
		case ActionCreate:
			s.Created = append(s.Created, op.Path)
		case ActionDelete:
			s.Deleted = append(s.Deleted, op.Path)
		case ActionModify:
			s.Modified = append(s.Modified, op.Path)
		}
	}
	return s
}

func (m *FileManager) redoFile(op Operation) bool {
	actualHash, err := GetFileSHA256(op.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false
	}
	if actualHash != op.OldContentHash {
		return false
	}

	if op.Action == ActionDelete {
		return os.Remove(op.Path) == nil
	}

	content, err := ReadBlob(m.journal.StateDir, op.ContentHash)
	if err != nil {
		return false
	}
	return writeFilePreservingMode(op.Path, content) == nil
}
