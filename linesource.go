package upatch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// LineSource reads text one line at a time, forward only. The returned
// text never includes the trailing newline.
type LineSource struct {
	r          *bufio.Reader
	closer     io.Closer
	name       string
	nulToSpace bool
	lines      int
}

type LineSourceOption func(*LineSource)

// WithNULAsSpace rewrites every NUL byte of a line to a space.
func WithNULAsSpace() LineSourceOption {
	return func(s *LineSource) { s.nulToSpace = true }
}

func WithName(name string) LineSourceOption {
	return func(s *LineSource) { s.name = name }
}

func NewLineSource(r io.Reader, opts ...LineSourceOption) *LineSource {
	s := &LineSource{r: bufio.NewReader(r), name: "-"}
	if c, ok := r.(io.Closer); ok && r != os.Stdin {
		s.closer = c
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// OpenLineSource opens path, or stdin when path is "" or "-".
func OpenLineSource(path string, opts ...LineSourceOption) (*LineSource, error) {
	if path == "" || path == "-" {
		return NewLineSource(os.Stdin, opts...), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewLineSource(f, append([]LineSourceOption{WithName(path)}, opts...)...), nil
}

// ReadLine returns the next line, or io.EOF once input is exhausted. A final
// line without a newline is still returned.
func (s *LineSource) ReadLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", fmt.Errorf("read %s: %w", s.name, err)
	}
	s.lines++
	line = strings.TrimSuffix(line, "\n")
	if s.nulToSpace {
		line = strings.ReplaceAll(line, "\x00", " ")
	}
	return line, nil
}

// Lines is the number of lines returned so far.
func (s *LineSource) Lines() int { return s.lines }

// Rest is the unread remainder of the input, byte for byte.
func (s *LineSource) Rest() io.Reader { return s.r }

func (s *LineSource) Name() string { return s.name }

func (s *LineSource) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
