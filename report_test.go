package upatch

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer
	r := NewReporter(&out, &errOut, false)

	h, err := ParseHunkHeader("@@ -3,2 +4,2 @@")
	require.NoError(t, err)
	require.True(t, h.AddLine("-old"))
	require.True(t, h.AddLine("+new"))

	r.Patching("a.txt")
	r.Creating("b.txt")
	r.Removing("c.txt")
	r.PossiblyReversed(2, 7)
	r.HunkFailed(2, h, "")
	r.HunkFailed(3, nil, "malformed hunk header")

	assert.Equal(t, "patching a.txt\ncreating b.txt\nremoving c.txt\n", out.String())
	assert.Equal(t, "Possibly reversed hunk 2 at 7\n"+
		"Hunk 2 FAILED 3/4.\n-old\n+new\n"+
		"Hunk 3 FAILED. malformed hunk header\n", errOut.String())
}

func TestReporter_Silent(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer
	r := NewReporter(&out, &errOut, true)

	r.Patching("a.txt")
	r.HunkFailed(1, nil, "")

	assert.Empty(t, out.String())
	assert.Equal(t, "Hunk 1 FAILED.\n", errOut.String())
}

func TestSummaryOf(t *testing.T) {
	t.Parallel()

	s := SummaryOf(Result{
		Files: []FileResult{
			{Path: "m", Action: ActionModify, Hunks: 2},
			{Path: "c", Action: ActionCreate, Hunks: 1},
			{Path: "d", Action: ActionDelete, Hunks: 1},
			{Path: "f", Action: ActionModify, Hunks: 2, FailedHunks: 1},
		},
		FailedHunks: 1,
	})

	assert.Equal(t, []string{"m"}, s.Modified)
	assert.Equal(t, []string{"c"}, s.Created)
	assert.Equal(t, []string{"d"}, s.Deleted)
	assert.Equal(t, []string{"f"}, s.Failed)
	assert.Equal(t, ExitHunksFailed, s.ExitCode())
	assert.Empty(t, s.Message)

	assert.Equal(t, "Nothing to do", SummaryOf(Result{}).Message)
	assert.Equal(t, "Dry run", SummaryOf(Result{Files: []FileResult{{Path: "m"}}, DryRun: true}).Message)
}

func TestFormatSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	got := FormatSummary(Summary{
		Modified:    []string{"a.go"},
		Failed:      []string{"b.go"},
		FailedHunks: 2,
		Message:     "Dry run",
	}, &buf)

	assert.Equal(t, "Dry run\n\nModified:\n  a.go\nFailed:\n  b.go\n2 hunk(s) failed\n", got)
}
