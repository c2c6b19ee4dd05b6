package upatch

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Config is everything a run of the patcher can be told.
type Config struct {
	Dir        string // resolve target names against this directory
	Input      string // patch file, "" or "-" for stdin
	TargetFile string // overrides every file named in the patch
	Strip      int    // leading path segments to drop, StripAll by default
	Fuzz       int    // context mismatches tolerated; negative derives it per hunk
	Reverse    bool
	Loose      bool
	Silent     bool
	DryRun     bool
	Debug      bool
	Markdown   bool
	Clipboard  bool
	Journal    bool
	Undo       bool
	Redo       bool

	Stdout io.Writer
	Stderr io.Writer
}

func DefaultConfig() Config {
	return Config{Strip: StripAll, Fuzz: -1, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (c *Config) validate() error {
	if c.Undo && c.Redo {
		return errors.New("--undo and --redo are mutually exclusive")
	}
	if c.Strip < StripAll {
		return fmt.Errorf("invalid strip count %d", c.Strip)
	}
	return nil
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

var envFlags = []struct{ env, flag string }{
	{"UPATCH_STRIP", "strip"},
	{"UPATCH_FUZZ", "fuzz"},
	{"UPATCH_LOOSE", "loose"},
	{"UPATCH_SILENT", "silent"},
	{"UPATCH_JOURNAL", "journal"},
}

// applyEnvDefaults fills flags the user did not pass from UPATCH_*
// variables, after loading an optional .env file.
func applyEnvDefaults(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil {
		// A missing .env file is fine.
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}

	for _, ef := range envFlags {
		v, ok := os.LookupEnv(ef.env)
		if !ok || cmd.Flags().Changed(ef.flag) {
			continue
		}
		if err := cmd.Flags().Set(ef.flag, v); err != nil {
			return fmt.Errorf("%s: %w", ef.env, err)
		}
	}
	return nil
}
