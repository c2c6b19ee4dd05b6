package upatch

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime/debug"
)

type App struct {
	cfg            *Config
	pathResolver   *PathResolver
	sourceProvider *SourceProvider
	fileManager    *FileManager
	journal        *Journal
	reporter       *Reporter
	log            *slog.Logger
}

type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string { return e.Err.Error() }
func (e *DetailedError) Unwrap() error { return e.Err }

func NewApp(cfg *Config) (*App, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	pr, err := NewPathResolver(cfg.Dir, cfg.Strip, cfg.TargetFile)
	if err != nil {
		return nil, err
	}

	var j *Journal
	if cfg.Journal || cfg.Undo || cfg.Redo {
		if j, err = OpenJournal(pr.Dir()); err != nil {
			return nil, err
		}
	}

	return &App{
		cfg:            cfg,
		pathResolver:   pr,
		sourceProvider: NewSourceProvider(),
		fileManager:    NewFileManager(j),
		journal:        j,
		reporter:       NewReporter(cfg.Stdout, cfg.Stderr, cfg.Silent),
		log:            newLogger(cfg.Stderr, cfg.Debug),
	}, nil
}

// Execute runs what the configuration asks for: an undo, a redo, or
// applying the configured patch source.
func (a *App) Execute() (summary Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{Err: fmt.Errorf("panic: %v", r), Stack: debug.Stack()}
		}
	}()

	switch {
	case a.cfg.Undo:
		return a.undoLastOperation()
	case a.cfg.Redo:
		return a.redoLastOperation()
	default:
		return a.processSource()
	}
}

func (a *App) processSource() (Summary, error) {
	src, err := a.sourceProvider.Open(a.cfg)
	if err != nil {
		return Summary{}, err
	}
	defer src.Close()

	res, err := a.apply(src)
	if err != nil {
		return Summary{}, err
	}
	s := SummaryOf(res)
	a.relativizeSummaryPaths(&s)
	return s, nil
}

// ApplyPatch applies the unified diff read from r.
func (a *App) ApplyPatch(r io.Reader) (Result, error) {
	return a.apply(NewLineSource(r, WithNULAsSpace()))
}

func (a *App) apply(src *LineSource) (Result, error) {
	if a.journal != nil {
		if err := a.journal.Sync(); err != nil {
			return Result{}, fmt.Errorf("sync journal: %w", err)
		}
	}

	p := NewPatcher(a.cfg, a.pathResolver, a.fileManager, a.reporter, a.log)
	res, err := p.Run(src)
	if cerr := a.fileManager.Commit(); cerr != nil && err == nil {
		err = fmt.Errorf("write journal: %w", cerr)
	}
	if err != nil {
		a.log.Error("patch aborted", "source", src.Name(), "err", err)
	}
	return res, err
}

func (a *App) undoLastOperation() (Summary, error) {
	ops, err := a.journal.OperationsToUndo()
	if err != nil {
		return Summary{}, err
	}
	if len(ops) == 0 {
		return Summary{Message: "No undo"}, nil
	}
	s := a.fileManager.Undo(ops)
	s.Message = "Undone"
	a.relativizeSummaryPaths(&s)
	return s, nil
}

func (a *App) redoLastOperation() (Summary, error) {
	ops, err := a.journal.OperationsToRedo()
	if err != nil {
		return Summary{}, err
	}
	if len(ops) == 0 {
		return Summary{Message: "No redo"}, nil
	}
	s := a.fileManager.Redo(ops)
	s.Message = "Redone"
	a.relativizeSummaryPaths(&s)
	return s, nil
}

func (a *App) relativizeSummaryPaths(s *Summary) {
	relList := func(paths []string) []string {
		var res []string
		for _, p := range paths {
			if r, err := filepath.Rel(a.pathResolver.Dir(), p); err == nil {
				p = r
			}
			res = append(res, p)
		}
		return res
	}
	s.Created = relList(s.Created)
	s.Modified = relList(s.Modified)
	s.Deleted = relList(s.Deleted)
	s.Failed = relList(s.Failed)
}
