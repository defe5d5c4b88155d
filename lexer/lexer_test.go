package lexer

import (
	"testing"

	"github.com/launix-de/formula-compiler/token"
)

func kinds(t *testing.T, l *Lexer) []token.Kind {
	t.Helper()
	var ks []token.Kind
	for {
		tok := l.NextToken()
		ks = append(ks, tok.Kind)
		if tok.Kind == token.EndOfInput {
			return ks
		}
	}
}

func TestBasicOperators(t *testing.T) {
	l := New("1+2*3-4/5^6", Options{})
	got := kinds(t, l)
	want := []token.Kind{
		token.Integer, token.Plus, token.Integer, token.Star, token.Integer,
		token.Minus, token.Integer, token.Slash, token.Integer, token.Caret,
		token.Integer, token.EndOfInput,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLegacyModeKeepsKeywordsAsIdentifiers(t *testing.T) {
	l := New("init true", Options{RecognizeExtensions: false})
	first := l.NextToken()
	if first.Kind != token.Identifier || first.Text != "init" {
		t.Fatalf("first = %+v, want Identifier(init)", first)
	}
	second := l.NextToken()
	if second.Kind != token.Identifier || second.Text != "true" {
		t.Fatalf("second = %+v, want Identifier(true)", second)
	}
}

func TestExtensionModeRecognizesSectionsAndKeywords(t *testing.T) {
	l := New("init true pixel flip", Options{RecognizeExtensions: true})
	if tok := l.NextToken(); tok.Kind != token.SectInit {
		t.Fatalf("got %s, want SectInit", tok.Kind)
	}
	if tok := l.NextToken(); tok.Kind != token.True {
		t.Fatalf("got %s, want True", tok.Kind)
	}
	if tok := l.NextToken(); tok.Kind != token.BuiltinVar {
		t.Fatalf("got %s, want BuiltinVar", tok.Kind)
	}
	if tok := l.NextToken(); tok.Kind != token.BuiltinFunc {
		t.Fatalf("got %s, want BuiltinFunc", tok.Kind)
	}
}

// TestFullWidthFoldingRecognizesSectionName feeds a full-width spelling
// of "init" (U+FF49 U+FF4E U+FF49 U+FF54, as a legacy library file
// translated from a platform that stores identifiers in full-width form
// might), which must width-fold down to ASCII before the section-name
// lookup can match it at all.
func TestFullWidthFoldingRecognizesSectionName(t *testing.T) {
	fullWidth := "ｉｎｉｔ" // "init" in full-width Latin
	l := New(fullWidth+" 1", Options{RecognizeExtensions: true})
	tok := l.NextToken()
	if tok.Kind != token.SectInit {
		t.Fatalf("full-width %q lexed as %s, want SectInit", fullWidth, tok.Kind)
	}
}

// TestCaseFoldedKeywordRecognized exercises foldKeyword's cases.Fold
// fallback directly: an upper-case spelling of a keyword still lexes as
// that keyword, with the token's Text preserving the original spelling.
func TestCaseFoldedKeywordRecognized(t *testing.T) {
	l := New("TRUE", Options{RecognizeExtensions: true})
	tok := l.NextToken()
	if tok.Kind != token.True {
		t.Fatalf("TRUE lexed as %s, want True", tok.Kind)
	}
	if tok.Text != "TRUE" {
		t.Fatalf("Text = %q, want original spelling TRUE", tok.Text)
	}
}

func TestPushBackReplaysInOrder(t *testing.T) {
	l := New("1 2 3", Options{})
	a := l.NextToken()
	b := l.NextToken()
	l.PutToken(a)
	l.PutToken(b)
	if got := l.NextToken(); got.Number != a.Number {
		t.Fatalf("replay 1 = %v, want %v", got, a)
	}
	if got := l.NextToken(); got.Number != b.Number {
		t.Fatalf("replay 2 = %v, want %v", got, b)
	}
	if got := l.NextToken(); got.Number != 3 {
		t.Fatalf("next after replay = %v, want 3", got)
	}
}

func TestStringLiteralOnlyInExtensionMode(t *testing.T) {
	if tok := New(`"hi"`, Options{RecognizeExtensions: true}).NextToken(); tok.Kind != token.String || tok.Text != "hi" {
		t.Fatalf("extension mode: got %+v, want String(hi)", tok)
	}
	if tok := New(`"hi"`, Options{RecognizeExtensions: false}).NextToken(); tok.Kind == token.String {
		t.Fatalf("legacy mode unexpectedly recognised a string literal: %+v", tok)
	}
}
