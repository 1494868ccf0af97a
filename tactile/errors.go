package tactile

import (
	"fmt"
)

// ParseError reports a sensor table that could not be imported. Line is
// 1-based and zero when the error is not tied to a single line.
type ParseError struct {
	File   string
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := e.Reason
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// PathError reports an attachment path that does not resolve to a prim.
type PathError struct {
	Op   string
	Path string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: could not find parent path %s", e.Op, e.Path)
}
