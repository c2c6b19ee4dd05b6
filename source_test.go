package upatch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeStdin(t *testing.T, content string) *os.File {
	t.Helper()
	path := writeFile(t, t.TempDir(), "stdin", content)
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestSourceProvider_Open(t *testing.T) {
	t.Parallel()

	clip := func(s string) func() (string, error) {
		return func() (string, error) { return s, nil }
	}

	t.Run("named file", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, t.TempDir(), "p.diff", "from file\n")
		sp := &SourceProvider{Stdin: fakeStdin(t, "from stdin\n"), ReadClipboard: clip("from clipboard\n")}

		src, err := sp.Open(&Config{Input: path})
		require.NoError(t, err)
		defer src.Close()
		assert.Equal(t, path, src.Name())
		assert.Equal(t, []string{"from file"}, readAllLines(t, src))
	})

	t.Run("stdin when it is not a terminal", func(t *testing.T) {
		t.Parallel()

		sp := &SourceProvider{Stdin: fakeStdin(t, "from stdin\x00x\n"), ReadClipboard: clip("from clipboard\n")}

		src, err := sp.Open(&Config{Input: "-"})
		require.NoError(t, err)
		assert.Equal(t, "stdin", src.Name())
		assert.Equal(t, []string{"from stdin x"}, readAllLines(t, src))
	})

	t.Run("clipboard on request", func(t *testing.T) {
		t.Parallel()

		sp := &SourceProvider{Stdin: fakeStdin(t, "from stdin\n"), ReadClipboard: clip("from clipboard\n")}

		src, err := sp.Open(&Config{Clipboard: true})
		require.NoError(t, err)
		assert.Equal(t, "clipboard", src.Name())
		assert.Equal(t, []string{"from clipboard"}, readAllLines(t, src))
	})

	t.Run("clipboard error", func(t *testing.T) {
		t.Parallel()

		sp := &SourceProvider{
			Stdin:         fakeStdin(t, ""),
			ReadClipboard: func() (string, error) { return "", errors.New("no clipboard utility") },
		}

		_, err := sp.Open(&Config{Clipboard: true})
		assert.ErrorContains(t, err, "read clipboard")
	})

	t.Run("markdown", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, t.TempDir(), "answer.md", markdownPatch)
		sp := &SourceProvider{Stdin: fakeStdin(t, ""), ReadClipboard: clip("")}

		src, err := sp.Open(&Config{Input: path, Markdown: true})
		require.NoError(t, err)
		lines := readAllLines(t, src)
		require.Len(t, lines, 12)
		assert.Equal(t, "--- a/f.txt", lines[0])
		assert.Equal(t, "+y", lines[11])
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		sp := &SourceProvider{Stdin: fakeStdin(t, ""), ReadClipboard: clip("")}

		_, err := sp.Open(&Config{Input: filepath.Join(t.TempDir(), "nope.diff")})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
