package vm

import "strings"

// CompileError wraps the compiler's accumulated diagnostics. interpret()
// returns this (never panics) when hadError is set.
type CompileError struct {
	Err error
}

func (e *CompileError) Error() string { return e.Err.Error() }
func (e *CompileError) Unwrap() error { return e.Err }

// RuntimeError carries a runtime diagnostic plus a newest-first,
// frame-by-frame stack trace, formatted the way the error reporter
// writes it to the diagnostic stream.
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, line := range e.Trace {
		b.WriteByte('\n')
		b.WriteString(line)
	}
	return b.String()
}
