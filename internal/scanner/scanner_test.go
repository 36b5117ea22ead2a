package scanner

import "testing"

func collect(source string) []Token {
	s := New(source)
	var toks []Token
	for {
		tok := s.Next()
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks
		}
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := collect("var x = foo;")
	want := []TokenType{Var, Identifier, Equal, Identifier, Semicolon, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestTwoCharOperators(t *testing.T) {
	toks := collect("<= >= == != < > = !")
	want := []TokenType{LessEqual, GreaterEqual, EqualEqual, BangEqual, Less, Greater, Equal, Bang, EOF}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestStringLiteral(t *testing.T) {
	toks := collect(`"hello world"`)
	if toks[0].Type != String {
		t.Fatalf("got %v, want String", toks[0].Type)
	}
	if toks[0].Lexeme != `"hello world"` {
		t.Fatalf("lexeme = %q", toks[0].Lexeme)
	}
}

func TestUnterminatedString(t *testing.T) {
	toks := collect(`"never closed`)
	if toks[0].Type != Error {
		t.Fatalf("got %v, want Error", toks[0].Type)
	}
}

func TestNumberLiteral(t *testing.T) {
	toks := collect("3.14 42")
	if toks[0].Type != Number || toks[0].Lexeme != "3.14" {
		t.Fatalf("got %+v", toks[0])
	}
	if toks[1].Type != Number || toks[1].Lexeme != "42" {
		t.Fatalf("got %+v", toks[1])
	}
}

func TestLineCounting(t *testing.T) {
	toks := collect("var x;\nvar y;\n")
	if toks[0].Line != 1 {
		t.Fatalf("first token on line %d, want 1", toks[0].Line)
	}
	// var y
	var found bool
	for _, tok := range toks {
		if tok.Type == Identifier && tok.Lexeme == "y" {
			found = true
			if tok.Line != 2 {
				t.Fatalf("y on line %d, want 2", tok.Line)
			}
		}
	}
	if !found {
		t.Fatal("identifier y not scanned")
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	toks := collect("var x; // a trailing comment\nvar y;")
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	for _, tok := range toks {
		if tok.Type == Error {
			t.Fatalf("unexpected error token scanning a line comment: %+v", tok)
		}
	}
	want := []TokenType{Var, Identifier, Semicolon, Var, Identifier, Semicolon, EOF}
	if len(types) != len(want) {
		t.Fatalf("got %v, want %v", types, want)
	}
	for i, w := range want {
		if types[i] != w {
			t.Errorf("token %d: got %v, want %v", i, types[i], w)
		}
	}
}

func TestBracketsAndBreakContinue(t *testing.T) {
	toks := collect("a[0] = 1; break; continue;")
	want := []TokenType{
		Identifier, LeftBracket, Number, RightBracket, Equal, Number, Semicolon,
		Break, Semicolon, Continue, Semicolon, EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestEOFRepeatsAtEnd(t *testing.T) {
	s := New("")
	first := s.Next()
	second := s.Next()
	if first.Type != EOF || second.Type != EOF {
		t.Fatalf("expected EOF repeated, got %v then %v", first.Type, second.Type)
	}
}
