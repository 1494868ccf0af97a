package tactile

import (
	"fmt"
	"strings"
)

// Status accumulates the human-readable log of the current operation and
// mirrors it to a display after every change.
type Status struct {
	buf  strings.Builder
	sink func(string)
}

func newStatus(sink func(string)) *Status {
	return &Status{sink: sink}
}

// Reset starts a new log.
func (s *Status) Reset() {
	s.buf.Reset()
	s.flush()
}

// Printf appends formatted text as is.
func (s *Status) Printf(format string, args ...interface{}) {
	fmt.Fprintf(&s.buf, format, args...)
	s.flush()
}

// Println appends one line.
func (s *Status) Println(line string) {
	s.buf.WriteString(line)
	s.buf.WriteByte('\n')
	s.flush()
}

func (s *Status) Text() string {
	return s.buf.String()
}

func (s *Status) flush() {
	if s.sink != nil {
		s.sink(s.buf.String())
	}
}
