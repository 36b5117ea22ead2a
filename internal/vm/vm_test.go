package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/chazu/ember/internal/config"
)

func newTestVM() (*VM, *bytes.Buffer, *bytes.Buffer) {
	var out, diag bytes.Buffer
	return New(config.Default(), &out, &diag), &out, &diag
}

func run(t *testing.T, source string) string {
	t.Helper()
	machine, out, diag := newTestVM()
	if _, err := machine.Interpret(source); err != nil {
		t.Fatalf("interpret %q: %v\ndiag: %s", source, err, diag.String())
	}
	return out.String()
}

func TestArithmeticPrecedence(t *testing.T) {
	got := run(t, "print 1 + 2 * 3;")
	if got != "7\n" {
		t.Fatalf("got %q, want %q", got, "7\n")
	}
}

func TestClosureCapturesLocalAfterScopeEnds(t *testing.T) {
	src := `fun make() { var x = 0; fun inc() { x = x + 1; return x; } return inc; }
	var c = make(); print c(); print c(); print c();`
	got := run(t, src)
	if got != "1\n2\n3\n" {
		t.Fatalf("got %q, want %q", got, "1\n2\n3\n")
	}
}

func TestClassInitializerAndMethod(t *testing.T) {
	src := `class Greeter { init(n) { this.n = n; } hi() { print "hi " + this.n; } }
	Greeter("world").hi();`
	got := run(t, src)
	if got != "hi world\n" {
		t.Fatalf("got %q, want %q", got, "hi world\n")
	}
}

func TestSingleInheritanceWithSuper(t *testing.T) {
	src := `class A { greet() { print "A"; } }
	class B < A { greet() { super.greet(); print "B"; } }
	B().greet();`
	got := run(t, src)
	if got != "A\nB\n" {
		t.Fatalf("got %q, want %q", got, "A\nB\n")
	}
}

func TestForLoopWithIncrementAndCondition(t *testing.T) {
	src := `var s = 0; for (var i = 1; i <= 4; i = i + 1) s = s + i; print s;`
	got := run(t, src)
	if got != "10\n" {
		t.Fatalf("got %q, want %q", got, "10\n")
	}
}

func TestStringInterningObservableByIdentity(t *testing.T) {
	got := run(t, `print "ab" + "cd" == "abcd";`)
	if got != "true\n" {
		t.Fatalf("got %q, want %q", got, "true\n")
	}
}

func TestResetThenSameProgramProducesSameOutput(t *testing.T) {
	machine, out, _ := newTestVM()
	src := "print 1 + 2 * 3;"
	if _, err := machine.Interpret(src); err != nil {
		t.Fatal(err)
	}
	first := out.String()

	machine.Reset()
	out.Reset()
	if _, err := machine.Interpret(src); err != nil {
		t.Fatal(err)
	}
	second := out.String()

	if first != second {
		t.Fatalf("reset run diverged: %q vs %q", first, second)
	}
}

func TestBreakAndContinueInLoops(t *testing.T) {
	src := `var sum = 0;
	for (var i = 0; i < 10; i = i + 1) {
		if (i == 5) break;
		if (i == 2) continue;
		sum = sum + i;
	}
	print sum;`
	got := run(t, src)
	if got != "8\n" {
		t.Fatalf("got %q, want %q", got, "8\n")
	}
}

func TestArrayLiteralIndexAndNatives(t *testing.T) {
	src := `var a = [1, 2, 3];
	print a[1];
	a[1] = 9;
	print a[1];
	print len(a);
	append(a, 4);
	print len(a);`
	got := run(t, src)
	want := "2\n9\n3\n4\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestUndefinedVariableIsRuntimeError(t *testing.T) {
	machine, _, _ := newTestVM()
	_, err := machine.Interpret("print nope;")
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	if !strings.Contains(err.Error(), "Undefined variable") {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := err.(*RuntimeError); !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
}

func TestCompileErrorReturnsCompileError(t *testing.T) {
	machine, _, _ := newTestVM()
	_, err := machine.Interpret("print 1 +;")
	if err == nil {
		t.Fatal("expected a compile error")
	}
	if _, ok := err.(*CompileError); !ok {
		t.Fatalf("expected *CompileError, got %T", err)
	}
}

func TestStackOverflowAtConfiguredFrameDepth(t *testing.T) {
	cfg := config.Default()
	cfg.MaxFrames = 4
	var out, diag bytes.Buffer
	machine := New(cfg, &out, &diag)

	_, err := machine.Interpret(`fun recurse(n) { return recurse(n + 1); } print recurse(0);`)
	if err == nil {
		t.Fatal("expected stack overflow error")
	}
	if !strings.Contains(err.Error(), "Stack overflow") {
		t.Fatalf("expected stack overflow, got: %v", err)
	}
}
