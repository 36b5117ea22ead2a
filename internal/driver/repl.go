// Package driver implements the interactive read-eval-print loop and the
// batch file-running mode shared by cmd/ember.
package driver

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/ember/internal/vm"
)

// REPL reads lines from in, feeding each non-blank line to a
// single persistent VM so that variables and function/class definitions
// from one line remain visible to the next. "exit" or "quit" alone on a
// line ends the loop, mirroring the sentinel the teacher's own REPL
// recognizes.
func REPL(in io.Reader, out, diag io.Writer, machine *vm.VM) {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "ember REPL (type 'exit' or 'quit' to leave)")

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "exit" || trimmed == "quit" {
			break
		}
		if trimmed == "" {
			continue
		}

		result, err := machine.Interpret(line)
		if err != nil {
			fmt.Fprintln(diag, err)
			continue
		}
		_ = result
	}
	fmt.Fprintln(out)
}
