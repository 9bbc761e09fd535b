// Copyright (c) 2025 The Dust Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.
package lang

import (
	"strings"
	"testing"
)

func expectTokens(t *testing.T, source string, expected []Token) {
	t.Helper()
	tokens, err := Tokenize([]byte(source))
	if err != nil {
		t.Fatalf("lex %q: %v", source, err)
	}
	if len(tokens) != len(expected) {
		t.Fatalf("lex %q: got %d tokens, want %d\n%v", source, len(tokens), len(expected), tokens)
	}
	for i, token := range tokens {
		if token != expected[i] {
			t.Fatalf("lex %q: token %d is %v, want %v", source, i, token, expected[i])
		}
	}
}

func TestLexArithmetic(t *testing.T) {
	expectTokens(t, "1 + 2", []Token{
		{LIT_INT, NewSpan(0, 1)},
		{TK_PLUS, NewSpan(2, 3)},
		{LIT_INT, NewSpan(4, 5)},
		{TK_EOF, NewSpan(5, 5)},
	})
}

func TestLexAddAndMultiply(t *testing.T) {
	expectTokens(t, "1 + 2 * 3", []Token{
		{LIT_INT, NewSpan(0, 1)},
		{TK_PLUS, NewSpan(2, 3)},
		{LIT_INT, NewSpan(4, 5)},
		{TK_TIMES, NewSpan(6, 7)},
		{LIT_INT, NewSpan(8, 9)},
		{TK_EOF, NewSpan(9, 9)},
	})
}

func TestLexLetStatement(t *testing.T) {
	expectTokens(t, "let mut abc: int = 42;", []Token{
		{KW_LET, NewSpan(0, 3)},
		{KW_MUT, NewSpan(4, 7)},
		{TK_IDENT, NewSpan(8, 11)},
		{TK_COLON, NewSpan(11, 12)},
		{KW_INT, NewSpan(13, 16)},
		{TK_ASSIGN, NewSpan(17, 18)},
		{LIT_INT, NewSpan(19, 21)},
		{TK_SEMICOLON, NewSpan(21, 22)},
		{TK_EOF, NewSpan(22, 22)},
	})
}

func TestLexLiterals(t *testing.T) {
	expectTokens(t, `true false 0xA9 'x' 3.14 "hi"`, []Token{
		{LIT_TRUE, NewSpan(0, 4)},
		{LIT_FALSE, NewSpan(5, 10)},
		{LIT_BYTE, NewSpan(11, 15)},
		{LIT_CHAR, NewSpan(16, 19)},
		{LIT_FLOAT, NewSpan(20, 24)},
		{LIT_STR, NewSpan(25, 29)},
		{TK_EOF, NewSpan(29, 29)},
	})
}

func TestLexCompoundOperators(t *testing.T) {
	expectTokens(t, "+= -= *= /= %= == != <= >= && || -> :: ..", []Token{
		{TK_PLUS_AGN, NewSpan(0, 2)},
		{TK_MINUS_AGN, NewSpan(3, 5)},
		{TK_TIMES_AGN, NewSpan(6, 8)},
		{TK_DIV_AGN, NewSpan(9, 11)},
		{TK_MOD_AGN, NewSpan(12, 14)},
		{TK_EQ, NewSpan(15, 17)},
		{TK_NE, NewSpan(18, 20)},
		{TK_LE, NewSpan(21, 23)},
		{TK_GE, NewSpan(24, 26)},
		{TK_LOGAND, NewSpan(27, 29)},
		{TK_LOGOR, NewSpan(30, 32)},
		{TK_ARROW, NewSpan(33, 35)},
		{TK_DOUBLE_COLON, NewSpan(36, 38)},
		{TK_DOUBLE_DOT, NewSpan(39, 41)},
		{TK_EOF, NewSpan(41, 41)},
	})
}

func TestLexComments(t *testing.T) {
	source := "// plain\n/// outer\n//! inner\n/* block */ /** outer */ /*! inner */ 1"
	tokens, err := Tokenize([]byte(source))
	if err != nil {
		t.Fatal(err)
	}
	kinds := []TokenKind{
		CMT_LINE, CMT_OUTER_LINE_DOC, CMT_INNER_LINE_DOC,
		CMT_BLOCK, CMT_OUTER_BLOCK_DOC, CMT_INNER_BLOCK_DOC,
		LIT_INT, TK_EOF,
	}
	if len(tokens) != len(kinds) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(kinds), tokens)
	}
	for i, kind := range kinds {
		if tokens[i].Kind != kind {
			t.Fatalf("token %d is %v, want %v", i, tokens[i].Kind, kind)
		}
	}
}

func TestLexFloatExponent(t *testing.T) {
	expectTokens(t, "1.5e+10 2.0E3", []Token{
		{LIT_FLOAT, NewSpan(0, 7)},
		{LIT_FLOAT, NewSpan(8, 13)},
		{TK_EOF, NewSpan(13, 13)},
	})
}

func TestLexDotSelectsFloat(t *testing.T) {
	// Without a fractional digit the dot is a separate token.
	expectTokens(t, "3.", []Token{
		{LIT_INT, NewSpan(0, 1)},
		{TK_DOT, NewSpan(1, 2)},
		{TK_EOF, NewSpan(2, 2)},
	})
}

func expectLexError(t *testing.T, source string, kind LexErrorKind) {
	t.Helper()
	_, err := Tokenize([]byte(source))
	if err == nil {
		t.Fatalf("lex %q: expected an error", source)
	}
	lexError, ok := err.(*LexError)
	if !ok {
		t.Fatalf("lex %q: unexpected error type %T", source, err)
	}
	if lexError.Kind != kind {
		t.Fatalf("lex %q: error kind is %v, want %v", source, lexError.Kind, kind)
	}
}

func TestLexErrors(t *testing.T) {
	expectLexError(t, "let a = $", InvalidCharacter)
	expectLexError(t, `"unterminated`, UnterminatedString)
	expectLexError(t, "'a", UnterminatedCharacter)
	expectLexError(t, "'ab'", UnterminatedCharacter)
	expectLexError(t, "0xF", MalformedByte)
	expectLexError(t, "0xFFF", MalformedByte)
	expectLexError(t, "1.0e+", MalformedFloat)
	expectLexError(t, "99999999999999999999999", MalformedInteger)
	expectLexError(t, "1 & 2", InvalidCharacter)
	expectLexError(t, "1 | 2", InvalidCharacter)
}

func TestLexErrorRecovery(t *testing.T) {
	// A failed lex leaves the cursor past the offending byte.
	lexer := NewLexer([]byte("$ 1"))
	if _, err := lexer.NextToken(); err == nil {
		t.Fatal("expected an error")
	}
	token, err := lexer.NextToken()
	if err != nil {
		t.Fatal(err)
	}
	if token.Kind != LIT_INT {
		t.Fatalf("got %v after recovery, want integer", token.Kind)
	}
}

func TestLexIsEof(t *testing.T) {
	lexer := NewLexer([]byte("1"))
	if lexer.IsEof() {
		t.Fatal("fresh lexer reports eof")
	}
	lexer.NextToken()
	if lexer.IsEof() {
		t.Fatal("eof before the EOF token was emitted")
	}
	lexer.NextToken()
	if !lexer.IsEof() {
		t.Fatal("eof not reported after the EOF token")
	}
}

// Lexing the token texts re-joined by single spaces must produce the same
// kind stream.
func TestLexRoundTrip(t *testing.T) {
	source := `let mut total = 0 while total < 10 { total += 1 } "done" + 'x'`
	tokens, err := Tokenize([]byte(source))
	if err != nil {
		t.Fatal(err)
	}
	var words []string
	for _, token := range tokens {
		if token.Kind == TK_EOF {
			break
		}
		words = append(words, token.Span.Text([]byte(source)))
	}
	relexed, err := Tokenize([]byte(strings.Join(words, " ")))
	if err != nil {
		t.Fatal(err)
	}
	if len(relexed) != len(tokens) {
		t.Fatalf("round trip token count %d, want %d", len(relexed), len(tokens))
	}
	for i := range tokens {
		if relexed[i].Kind != tokens[i].Kind {
			t.Fatalf("round trip token %d is %v, want %v", i, relexed[i].Kind, tokens[i].Kind)
		}
	}
}

func TestDecodeString(t *testing.T) {
	if got := DecodeString(`"a\nb\t\"c\""`); got != "a\nb\t\"c\"" {
		t.Fatalf("got %q", got)
	}
	if got := DecodeString(`"plain"`); got != "plain" {
		t.Fatalf("got %q", got)
	}
}

func TestDecodeCharacter(t *testing.T) {
	if got := DecodeCharacter(`'\n'`); got != '\n' {
		t.Fatalf("got %q", got)
	}
	if got := DecodeCharacter(`'q'`); got != 'q' {
		t.Fatalf("got %q", got)
	}
}
