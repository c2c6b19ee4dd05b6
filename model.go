package upatch

type LineKind byte

const (
	Context LineKind = ' '
	Remove  LineKind = '-'
	Add     LineKind = '+'
)

func (k LineKind) String() string {
	switch k {
	case Context:
		return "context"
	case Remove:
		return "remove"
	case Add:
		return "add"
	}
	return "unknown"
}

// HunkLine is one body line of a hunk with its prefix stripped.
type HunkLine struct {
	Kind LineKind
	Text string
}

func (l HunkLine) String() string { return string(rune(l.Kind)) + l.Text }

type FileAction string

const (
	ActionModify FileAction = "modify"
	ActionCreate FileAction = "create"
	ActionDelete FileAction = "delete"
)

// FileResult describes what a run did to one target.
type FileResult struct {
	Path        string
	Action      FileAction
	Hunks       int
	FailedHunks int
}

func (r FileResult) Failed() bool { return r.FailedHunks > 0 }

type Result struct {
	Files       []FileResult
	FailedHunks int
	DryRun      bool
}

// ExitCode is 0 when every hunk applied and 1 otherwise.
func (r Result) ExitCode() int {
	if r.FailedHunks > 0 {
		return ExitHunksFailed
	}
	return ExitOK
}

const (
	ExitOK          = 0
	ExitHunksFailed = 1
	ExitFatal       = 2
)

type Summary struct {
	Created     []string
	Modified    []string
	Deleted     []string
	Failed      []string
	FailedHunks int
	Message     string
}

func (s Summary) ExitCode() int {
	if s.FailedHunks > 0 || len(s.Failed) > 0 {
		return ExitHunksFailed
	}
	return ExitOK
}
