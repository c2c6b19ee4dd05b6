package upatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeaderName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		field string
		want  string
	}{
		{"a/main.go", "a/main.go"},
		{"a/main.go\t2024-03-01 10:00:00.000000000 +0100", "a/main.go"},
		{"file with spaces.txt\t2001-01-01", "file with spaces.txt"},
		{"old.txt\t1970-01-01 00:00:00.000000000 +0000", DevNull},
		{"old.txt\t1969-12-31 23:59:59 -0100", DevNull},
		{"old.txt\tThu Jan  1 00:00:00 1970", "old.txt"},
		{"/dev/null", "/dev/null"},
		{"a/crlf.txt\r", "a/crlf.txt"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseHeaderName(tt.field), tt.field)
	}
}

func TestStripPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		strip int
		want  string
	}{
		{"a/b/c.txt", 0, "a/b/c.txt"},
		{"a/b/c.txt", 1, "b/c.txt"},
		{"a/b/c.txt", 2, "c.txt"},
		{"a/b/c.txt", 5, "c.txt"},
		{"a/b/c.txt", StripAll, "c.txt"},
		{"a//b///c.txt", 1, "b///c.txt"},
		{"a//b///c.txt", 2, "c.txt"},
		{"/usr/src/x.c", 1, "usr/src/x.c"},
		{"plain", StripAll, "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripPath(tt.name, tt.strip), "%s -p%d", tt.name, tt.strip)
	}
}

func mustHunk(t *testing.T, header string) *Hunk {
	t.Helper()
	h, err := ParseHunkHeader(header)
	require.NoError(t, err)
	return h
}

func TestPathResolver_Target(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "main.go"), []byte("package main\n"), 0o644))

	modify := mustHunk(t, "@@ -1,3 +1,3 @@")
	create := mustHunk(t, "@@ -0,0 +1,2 @@")
	remove := mustHunk(t, "@@ -1,2 +0,0 @@")

	t.Run("strips and resolves against dir", func(t *testing.T) {
		t.Parallel()

		r, err := NewPathResolver(dir, 1, "")
		require.NoError(t, err)
		tg, err := r.Target("a/src/main.go", "b/src/main.go", modify, false)
		require.NoError(t, err)
		assert.Equal(t, "src/main.go", tg.Name)
		assert.Equal(t, filepath.Join(dir, "src", "main.go"), tg.Path)
		assert.Equal(t, modePatch, tg.Mode)
	})

	t.Run("default strip keeps the base name", func(t *testing.T) {
		t.Parallel()

		r, err := NewPathResolver(dir, StripAll, "")
		require.NoError(t, err)
		tg, err := r.Target("a/src/main.go", "b/src/main.go", modify, false)
		require.NoError(t, err)
		assert.Equal(t, "main.go", tg.Name)
	})

	t.Run("creates when the old side is null and the file is missing", func(t *testing.T) {
		t.Parallel()

		r, err := NewPathResolver(dir, 1, "")
		require.NoError(t, err)
		tg, err := r.Target(DevNull, "b/new/file.txt", create, false)
		require.NoError(t, err)
		assert.Equal(t, modeCreate, tg.Mode)
		assert.Equal(t, "new/file.txt", tg.Name)
	})

	t.Run("patches an existing file even with a null old side", func(t *testing.T) {
		t.Parallel()

		r, err := NewPathResolver(dir, 1, "")
		require.NoError(t, err)
		tg, err := r.Target(DevNull, "b/src/main.go", create, false)
		require.NoError(t, err)
		assert.Equal(t, modePatch, tg.Mode)
	})

	t.Run("deletes when the new side is null", func(t *testing.T) {
		t.Parallel()

		r, err := NewPathResolver(dir, 1, "")
		require.NoError(t, err)
		tg, err := r.Target("a/src/main.go", DevNull, remove, false)
		require.NoError(t, err)
		assert.Equal(t, modeDelete, tg.Mode)
		assert.Equal(t, "src/main.go", tg.Name)
	})

	t.Run("deletes when the new range is empty", func(t *testing.T) {
		t.Parallel()

		r, err := NewPathResolver(dir, 1, "")
		require.NoError(t, err)
		tg, err := r.Target("a/src/main.go", "b/src/main.go", remove, false)
		require.NoError(t, err)
		assert.Equal(t, modeDelete, tg.Mode)
	})

	t.Run("reverse swaps the sides", func(t *testing.T) {
		t.Parallel()

		r, err := NewPathResolver(dir, 1, "")
		require.NoError(t, err)

		tg, err := r.Target(DevNull, "b/src/main.go", create, true)
		require.NoError(t, err)
		assert.Equal(t, modeDelete, tg.Mode)
		assert.Equal(t, "src/main.go", tg.Name)

		tg, err = r.Target("a/gone.txt", DevNull, remove, true)
		require.NoError(t, err)
		assert.Equal(t, modeCreate, tg.Mode)
		assert.Equal(t, "gone.txt", tg.Name)
	})

	t.Run("override replaces every name and is not stripped", func(t *testing.T) {
		t.Parallel()

		r, err := NewPathResolver(dir, StripAll, "src/main.go")
		require.NoError(t, err)
		tg, err := r.Target("a/other.go", "b/other.go", modify, false)
		require.NoError(t, err)
		assert.Equal(t, "src/main.go", tg.Name)
		assert.Equal(t, filepath.Join(dir, "src", "main.go"), tg.Path)
	})

	t.Run("rejects a pair with no usable name", func(t *testing.T) {
		t.Parallel()

		r, err := NewPathResolver(dir, StripAll, "")
		require.NoError(t, err)
		_, err = r.Target(DevNull, DevNull, modify, false)
		assert.ErrorIs(t, err, errNoTargetName)

		_, err = r.Target("a/dir/", "b/dir/", modify, false)
		assert.ErrorIs(t, err, errNoTargetName)
	})
}
