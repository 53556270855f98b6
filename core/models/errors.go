package models

import (
	"fmt"
	"strings"
)

// IoError reports a file that could not be read.
type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// ParseError reports malformed source. Messages are already formatted as
// "file:line:col: text".
type ParseError struct {
	Path     string
	Messages []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %s", e.Path, strings.Join(e.Messages, "; "))
}

// TransformError reports a failure to lower a module to CommonJS.
type TransformError struct {
	Path     string
	Messages []string
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("failed to transform %s: %s", e.Path, strings.Join(e.Messages, "; "))
}

// ResolveError reports a specifier that could not be mapped to a file.
type ResolveError struct {
	Specifier string
	FromPath  string // the importing file
	FromDir   string // the directory resolution ran against
	Err       error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("failed to resolve module %q from %q (imported by %s): %v",
		e.Specifier, e.FromDir, e.FromPath, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }
