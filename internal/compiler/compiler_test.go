package compiler_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/chazu/ember/internal/compiler"
	"github.com/chazu/ember/internal/config"
	"github.com/chazu/ember/internal/vm"
)

func compileSource(source string) (string, error) {
	var diag bytes.Buffer
	machine := vm.New(config.Default(), &bytes.Buffer{}, &diag)
	_, err := compiler.Compile(source, machine, &diag)
	return diag.String(), err
}

func TestCompilesValidProgram(t *testing.T) {
	if _, err := compileSource(`var x = 1; print x + 1;`); err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
}

func TestSyntaxErrorReported(t *testing.T) {
	diag, err := compileSource(`print 1 +;`)
	if err == nil {
		t.Fatal("expected a compile error")
	}
	if !strings.Contains(diag, "Error") {
		t.Fatalf("diagnostic output missing Error: %q", diag)
	}
}

func Test255LocalsCompile256Errors(t *testing.T) {
	var b strings.Builder
	b.WriteString("fun f() {\n")
	for i := 0; i < 255; i++ {
		b.WriteString("var a")
		b.WriteString(itoa(i))
		b.WriteString(" = 0;\n")
	}
	b.WriteString("}\n")
	if _, err := compileSource(b.String()); err != nil {
		t.Fatalf("255 locals should compile, got: %v", err)
	}

	b.Reset()
	b.WriteString("fun f() {\n")
	for i := 0; i < 256; i++ {
		b.WriteString("var a")
		b.WriteString(itoa(i))
		b.WriteString(" = 0;\n")
	}
	b.WriteString("}\n")
	if _, err := compileSource(b.String()); err == nil {
		t.Fatal("256 locals should be a compile error")
	}
}

func Test255ArgumentsCompile256Errors(t *testing.T) {
	params := make([]string, 255)
	for i := range params {
		params[i] = "p" + itoa(i)
	}
	src := "fun f(" + strings.Join(params, ",") + ") {}\n"
	if _, err := compileSource(src); err != nil {
		t.Fatalf("255 params should compile, got: %v", err)
	}

	params = append(params, "p255")
	src = "fun f(" + strings.Join(params, ",") + ") {}\n"
	if _, err := compileSource(src); err == nil {
		t.Fatal("256 params should be a compile error")
	}
}

func Test4096ByteStringCompiles4097Errors(t *testing.T) {
	ok := strings.Repeat("a", 4096)
	if _, err := compileSource(`print "` + ok + `";`); err != nil {
		t.Fatalf("4096-byte string should compile, got: %v", err)
	}

	tooLong := strings.Repeat("a", 4097)
	if _, err := compileSource(`print "` + tooLong + `";`); err == nil {
		t.Fatal("4097-byte string should be a compile error")
	}
}

func TestBreakOutsideLoopErrors(t *testing.T) {
	if _, err := compileSource(`break;`); err == nil {
		t.Fatal("break outside a loop should be a compile error")
	}
}

func TestReturnOutsideFunctionErrors(t *testing.T) {
	if _, err := compileSource(`return 1;`); err == nil {
		t.Fatal("return at top level should be a compile error")
	}
}

func TestInvalidAssignmentTargetReportsExactMessage(t *testing.T) {
	cases := []string{`1 + 2 = 3;`, `foo() = 1;`}
	for _, src := range cases {
		diag, err := compileSource(src)
		if err == nil {
			t.Fatalf("%q: expected a compile error", src)
		}
		if !strings.Contains(diag, "Invalid assignment target.") {
			t.Fatalf("%q: diagnostic = %q, want it to contain %q", src, diag, "Invalid assignment target.")
		}
	}
}

func TestReadingUninitializedLocalInItsOwnInitializerErrors(t *testing.T) {
	src := `{ var a = a; }`
	if _, err := compileSource(src); err == nil {
		t.Fatal("reading a local in its own initializer should be a compile error")
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
