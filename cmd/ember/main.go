// ember is the command-line entry point: with no arguments it starts an
// interactive REPL, with one positional argument it compiles and runs
// that file.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/ember/internal/bytecode"
	"github.com/chazu/ember/internal/config"
	"github.com/chazu/ember/internal/driver"
	"github.com/chazu/ember/internal/vm"
)

func main() {
	configDir := flag.String("config", "", "directory to search for .ember.toml (defaults to the script's directory, or cwd for the REPL)")
	traceBytecode := flag.Bool("trace", false, "disassemble each compiled chunk to stderr before running it")
	traceExec := flag.Bool("trace-exec", false, "log every executed instruction to stderr")
	gcStress := flag.Bool("gc-stress", false, "collect garbage on every allocation")
	gcLog := flag.Bool("gc-log", false, "log garbage collection activity to stderr")
	dumpBytecode := flag.String("dump-bytecode", "", "compile the script and write its canonical-CBOR chunk to this path instead of running it")
	loadBytecode := flag.String("load-bytecode", "", "skip compilation and run a chunk previously written by -dump-bytecode")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ember [options] [script]\n\n")
		fmt.Fprintf(os.Stderr, "With no script, starts an interactive REPL.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	searchDir := *configDir
	if searchDir == "" {
		if flag.NArg() == 1 {
			searchDir = filepath.Dir(flag.Arg(0))
		} else {
			searchDir, _ = os.Getwd()
		}
	}
	cfg, err := config.FindAndLoad(searchDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ember: %v\n", err)
		os.Exit(driver.ExitDataErr)
	}
	if *traceBytecode {
		cfg.Debug.TraceBytecode = true
	}
	if *traceExec {
		cfg.Debug.TraceExecution = true
	}
	if *gcStress {
		cfg.GC.Stress = true
	}
	if *gcLog {
		cfg.GC.Log = true
	}

	machine := vm.New(cfg, os.Stdout, os.Stderr)

	if *loadBytecode != "" {
		data, err := os.ReadFile(*loadBytecode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ember: %v\n", err)
			os.Exit(driver.ExitUnavailable)
		}
		fn, err := bytecode.UnmarshalFunction(data, machine.InternFunc())
		if err != nil {
			fmt.Fprintf(os.Stderr, "ember: %v\n", err)
			os.Exit(driver.ExitDataErr)
		}
		if _, err := machine.RunFunction(fn); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(driver.ExitSoftware)
		}
		os.Exit(driver.ExitOK)
	}

	args := flag.Args()

	if *dumpBytecode != "" {
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, "ember: -dump-bytecode requires exactly one script argument")
			os.Exit(driver.ExitUsage)
		}
		source, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "ember: %v\n", err)
			os.Exit(driver.ExitUnavailable)
		}
		fn, err := machine.Compile(string(source))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(driver.ExitDataErr)
		}
		data, err := bytecode.MarshalFunction(fn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ember: %v\n", err)
			os.Exit(driver.ExitSoftware)
		}
		if err := os.WriteFile(*dumpBytecode, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "ember: %v\n", err)
			os.Exit(driver.ExitUnavailable)
		}
		os.Exit(driver.ExitOK)
	}

	switch len(args) {
	case 0:
		driver.REPL(os.Stdin, os.Stdout, os.Stderr, machine)
	case 1:
		os.Exit(driver.RunFile(args[0], os.Stderr, machine))
	default:
		flag.Usage()
		os.Exit(driver.ExitUsage)
	}
}
