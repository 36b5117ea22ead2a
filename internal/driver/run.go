package driver

import (
	"fmt"
	"os"

	"github.com/chazu/ember/internal/vm"
)

// These exit codes mirror the sysexits.h conventions the teacher's own
// CLIs report through os.Exit: success, usage error, a bad input file, an
// internal/software error, and an unreadable input file.
const (
	ExitOK          = 0
	ExitUsage       = 64
	ExitDataErr     = 65
	ExitSoftware    = 70
	ExitUnavailable = 74
)

// RunFile reads path and interprets it against machine, returning the
// process exit code the caller should use: 65 for a compile error, 70
// for a runtime error, 0 on success.
func RunFile(path string, diag *os.File, machine *vm.VM) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(diag, "ember: cannot read %s: %v\n", path, err)
		return ExitUnavailable
	}

	result, err := machine.Interpret(string(source))
	if err != nil {
		fmt.Fprintln(diag, err)
		switch err.(type) {
		case *vm.CompileError:
			return ExitDataErr
		default:
			return ExitSoftware
		}
	}
	_ = result
	return ExitOK
}
