package upatch

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-isatty"
)

// SourceProvider finds the patch text for a run: a named file, the
// clipboard, or standard input.
type SourceProvider struct {
	Stdin         *os.File
	ReadClipboard func() (string, error)
}

func NewSourceProvider() *SourceProvider {
	return &SourceProvider{Stdin: os.Stdin, ReadClipboard: clipboard.ReadAll}
}

func (sp *SourceProvider) stdinIsTerminal() bool {
	fd := sp.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Open returns the patch as a LineSource. Markdown input is reduced to the
// contents of its diff blocks first.
func (sp *SourceProvider) Open(cfg *Config) (*LineSource, error) {
	var (
		r    io.Reader
		name string
	)

	switch {
	case cfg.Input != "" && cfg.Input != "-":
		f, err := os.Open(cfg.Input)
		if err != nil {
			return nil, fmt.Errorf("open patch: %w", err)
		}
		r, name = f, cfg.Input
	case cfg.Clipboard || (cfg.Input == "" && sp.stdinIsTerminal()):
		c, err := sp.ReadClipboard()
		if err != nil {
			return nil, fmt.Errorf("read clipboard: %w", err)
		}
		r, name = strings.NewReader(c), "clipboard"
	default:
		r, name = sp.Stdin, "stdin"
	}

	if cfg.Markdown {
		data, err := io.ReadAll(r)
		if c, ok := r.(io.Closer); ok && r != io.Reader(sp.Stdin) {
			c.Close()
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		text, err := ExtractPatchText(data)
		if err != nil {
			return nil, fmt.Errorf("parse markdown %s: %w", name, err)
		}
		r = strings.NewReader(text)
	}

	return NewLineSource(r, WithName(name), WithNULAsSpace()), nil
}
