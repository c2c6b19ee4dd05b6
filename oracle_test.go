package upatch

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aymanbagabas/go-udiff"
	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line number %d", i+1)
	}
	return lines
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n") + "\n"
}

// gitApply applies patch to old with go-gitdiff, which places hunks by
// their line numbers.
func gitApply(t *testing.T, patch, old string) string {
	t.Helper()
	files, _, err := gitdiff.Parse(strings.NewReader(patch))
	require.NoError(t, err)
	require.Len(t, files, 1)

	var out bytes.Buffer
	require.NoError(t, gitdiff.Apply(&out, strings.NewReader(old), files[0]))
	return out.String()
}

func TestApply_AgreesWithLineNumberApplier(t *testing.T) {
	t.Parallel()

	base := numberedLines(40)
	edit := func(f func([]string) []string) string {
		return joinLines(f(append([]string(nil), base...)))
	}

	tests := []struct {
		name string
		new  string
	}{
		{"change in the middle", edit(func(l []string) []string {
			l[19] = "changed twenty"
			return l
		})},
		{"two distant hunks", edit(func(l []string) []string {
			l[4] = "changed five"
			l[34] = "changed thirty-five"
			return l
		})},
		{"insert at start", edit(func(l []string) []string {
			return append([]string{"new first", "new second"}, l...)
		})},
		{"append at end", edit(func(l []string) []string {
			return append(l, "new last")
		})},
		{"delete a block", edit(func(l []string) []string {
			return append(l[:10], l[15:]...)
		})},
		{"replace the last line", edit(func(l []string) []string {
			l[39] = "final line"
			return l
		})},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			old := joinLines(base)
			patch := udiff.Unified("a/f.txt", "b/f.txt", old, tt.new)
			require.NotEmpty(t, patch)
			require.Equal(t, tt.new, gitApply(t, patch, old))

			dir := t.TempDir()
			path := writeFile(t, dir, "f.txt", old)

			run := runPatch(t, dir, patch)
			require.NoError(t, run.err)
			assert.Equal(t, ExitOK, run.res.ExitCode(), run.stderr)
			assert.Equal(t, tt.new, readFile(t, path))

			run = runPatch(t, dir, patch, func(c *Config) { c.Reverse = true })
			require.NoError(t, run.err)
			assert.Equal(t, ExitOK, run.res.ExitCode(), run.stderr)
			assert.Equal(t, old, readFile(t, path))
		})
	}
}

func TestApply_AfterUnrelatedEdits(t *testing.T) {
	t.Parallel()

	base := numberedLines(30)
	old := joinLines(base)
	changed := append([]string(nil), base...)
	changed[24] = "changed twenty-five"
	patch := udiff.Unified("a/f.txt", "b/f.txt", old, joinLines(changed))

	drifted := append([]string{"inserted since", "the diff was made"}, base...)
	dir := t.TempDir()
	path := writeFile(t, dir, "f.txt", joinLines(drifted))

	run := runPatch(t, dir, patch)

	require.NoError(t, run.err)
	assert.Equal(t, ExitOK, run.res.ExitCode())
	want := append([]string{"inserted since", "the diff was made"}, changed...)
	assert.Equal(t, joinLines(want), readFile(t, path))
}

func TestApply_DatedHeaders(t *testing.T) {
	t.Parallel()

	const epoch = "1970-01-01 00:00:00.000000000 +0000"
	const later = "2024-06-01 09:30:00.000000000 +0200"
	body := []string{"first\n", "second\n"}

	t.Run("creates from an epoch-dated old side", func(t *testing.T) {
		t.Parallel()

		patch, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        []string{},
			B:        body,
			FromFile: "made.txt",
			FromDate: epoch,
			ToFile:   "made.txt",
			ToDate:   later,
			Context:  3,
		})
		require.NoError(t, err)

		dir := t.TempDir()
		run := runPatch(t, dir, patch)

		require.NoError(t, run.err)
		assert.Equal(t, "creating made.txt\n", run.stdout)
		assert.Equal(t, "first\nsecond\n", readFile(t, filepath.Join(dir, "made.txt")))
	})

	t.Run("deletes to an epoch-dated new side", func(t *testing.T) {
		t.Parallel()

		patch, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        body,
			B:        []string{},
			FromFile: "gone.txt",
			FromDate: later,
			ToFile:   "gone.txt",
			ToDate:   epoch,
			Context:  3,
		})
		require.NoError(t, err)

		dir := t.TempDir()
		path := writeFile(t, dir, "gone.txt", "first\nsecond\n")
		run := runPatch(t, dir, patch)

		require.NoError(t, run.err)
		assert.Equal(t, "removing gone.txt\n", run.stdout)
		assert.NoFileExists(t, path)
	})
}
