// Package vmerr wraps conditions the interpreter treats as fatal:
// allocation failure and invariant violations that, per the error
// handling design, abort the process rather than unwind as an ordinary
// RuntimeError.
package vmerr

import "github.com/pkg/errors"

// Fatal returns an error carrying msg and a stack trace, marking a
// condition on which the caller aborts the process rather than attempt
// recovery. Used for conditions
// that should never happen if the rest of the VM is implemented
// correctly: a corrupted intrusive object list, an out-of-range constant
// index slipping past the compiler, and the like.
func Fatal(msg string) error {
	return errors.New("ember: fatal: " + msg)
}

// Wrap attaches msg and a stack trace to an underlying error, for
// escalating a lower-level failure (e.g. a CBOR decode error while
// loading a cached chunk) to the fatal path.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, "ember: fatal: "+msg)
}
