package upatch

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type CLIConfig struct {
	Dir        string
	Input      string
	Strip      int
	Fuzz       int
	Reverse    bool
	Loose      bool
	Silent     bool
	Unified    bool
	DryRun     bool
	Debug      bool
	Summary    bool
	Markdown   bool
	Clipboard  bool
	Journal    bool
	Undo       bool
	Redo       bool
	Completion string
}

func (c *CLIConfig) toConfig(args []string, stdout, stderr io.Writer) *Config {
	cfg := &Config{
		Dir:       c.Dir,
		Input:     c.Input,
		Strip:     c.Strip,
		Fuzz:      c.Fuzz,
		Reverse:   c.Reverse,
		Loose:     c.Loose,
		Silent:    c.Silent,
		DryRun:    c.DryRun,
		Debug:     c.Debug,
		Markdown:  c.Markdown,
		Clipboard: c.Clipboard,
		Journal:   c.Journal,
		Undo:      c.Undo,
		Redo:      c.Redo,
		Stdout:    stdout,
		Stderr:    stderr,
	}
	if len(args) > 0 {
		cfg.TargetFile = args[0]
	}
	if len(args) > 1 && cfg.Input == "" {
		cfg.Input = args[1]
	}
	return cfg
}

func newRootCmd(stdout, stderr io.Writer, exitCode *int) *cobra.Command {
	cfg := &CLIConfig{}

	cmd := &cobra.Command{
		Use:   "upatch [flags] [FILE [PATCHFILE]]",
		Short: "Apply a unified diff, locating each hunk by its context.",
		Long: `Apply a unified diff to one or more files.

Hunks are found by their context lines rather than their line numbers, so a
patch still applies to files that drifted since it was made. A file is only
changed when every hunk for it applies; failed hunks are printed to stderr
and the exit status is 1. A side named /dev/null, or dated 1970 or earlier,
creates or deletes the file.

If FILE is given it replaces every file named in the patch.

Example: git diff | upatch -p1 -d ../other-checkout`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Completion != "" {
				return handleCompletion(cmd, cfg.Completion, stdout)
			}
			if err := applyEnvDefaults(cmd); err != nil {
				return err
			}

			app, err := NewApp(cfg.toConfig(args, stdout, stderr))
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			summary, err := app.Execute()
			if err != nil {
				return err
			}
			if cfg.Summary || cfg.Undo || cfg.Redo {
				fmt.Fprint(stdout, FormatSummary(summary, stdout))
			}
			*exitCode = summary.ExitCode()
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfg.Dir, "dir", "d", "", "Modify files in `DIR`")
	f.StringVarP(&cfg.Input, "input", "i", "", "Read the patch from `FILE` (default stdin)")
	f.IntVarP(&cfg.Strip, "strip", "p", StripAll, "Strip `N` leading path segments from file names (default: all directories)")
	f.IntVarP(&cfg.Fuzz, "fuzz", "F", -1, "Allow `N` mismatched context lines (default: leading context minus one)")
	f.BoolVarP(&cfg.Reverse, "reverse", "R", false, "Apply the patch in reverse")
	f.BoolVarP(&cfg.Loose, "loose", "l", false, "Ignore whitespace when matching lines")
	f.BoolVarP(&cfg.Silent, "silent", "s", false, "Only print errors")
	f.BoolVarP(&cfg.Unified, "unified", "u", false, "Ignored (only unified diffs are read)")
	f.BoolVar(&cfg.DryRun, "dry-run", false, "Check that the patch applies without changing any file")
	f.BoolVarP(&cfg.Debug, "debug", "x", false, "Trace hunk matching on stderr")
	f.BoolVar(&cfg.Summary, "summary", false, "Print a summary of the files changed")
	f.BoolVar(&cfg.Markdown, "markdown", false, "Read the patch from the diff blocks of a Markdown document")
	f.BoolVar(&cfg.Clipboard, "clipboard", false, "Read the patch from the clipboard")
	f.BoolVarP(&cfg.Journal, "journal", "j", false, "Record the run so it can be undone")
	f.BoolVar(&cfg.Undo, "undo", false, "Undo the last recorded run")
	f.BoolVar(&cfg.Redo, "redo", false, "Redo the last undone run")
	f.StringVar(&cfg.Completion, "completion", "", "Generate completion script")

	cmd.MarkFlagsMutuallyExclusive("undo", "redo")
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	return cmd
}

func handleCompletion(cmd *cobra.Command, shell string, w io.Writer) error {
	switch shell {
	case "bash":
		return cmd.Root().GenBashCompletion(w)
	case "zsh":
		return cmd.Root().GenZshCompletion(w)
	case "fish":
		return cmd.Root().GenFishCompletion(w, true)
	case "powershell":
		return cmd.Root().GenPowerShellCompletionWithDesc(w)
	default:
		return fmt.Errorf("unsupported shell for completion: %s", shell)
	}
}

// Run executes the command line in args and returns the process exit
// status: 0 when every hunk applied, 1 when some failed, 2 on errors that
// stopped the run.
func Run(args []string, stdout, stderr io.Writer) int {
	code := ExitOK
	cmd := newRootCmd(stdout, stderr, &code)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitFatal
	}
	return code
}

func Execute() int {
	return Run(os.Args[1:], os.Stdout, os.Stderr)
}
