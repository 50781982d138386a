package lexer

import (
	"strings"
	"testing"
)

type tokenExpectation struct {
	typ    TokenType
	text   string
	line   int
	column int
}

// assertTokens tokenizes input and compares the stream to expected,
// position included.
func assertTokens(t *testing.T, input string, expected []tokenExpectation) {
	t.Helper()
	tokens, err := NewFromString(input).Tokenize()
	if err != nil {
		t.Fatalf("Tokenize(%q) failed: %v", input, err)
	}
	if len(tokens) != len(expected) {
		t.Fatalf("Tokenize(%q) = %d tokens, want %d: %v", input, len(tokens), len(expected), tokens)
	}
	for i, want := range expected {
		got := tokens[i]
		if got.Type != want.typ || got.Text != want.text {
			t.Errorf("token %d = %s %q, want %s %q", i, got.Type, got.Text, want.typ, want.text)
		}
		if want.line != 0 && (got.Pos.Line != want.line || got.Pos.Column != want.column) {
			t.Errorf("token %d at %d:%d, want %d:%d", i, got.Pos.Line, got.Pos.Column, want.line, want.column)
		}
	}
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []tokenExpectation
	}{
		{
			name:  "fn header start",
			input: "fn greet",
			expected: []tokenExpectation{
				{FN, "fn", 1, 1},
				{WORD, "greet", 1, 4},
				{EOF, "", 1, 9},
			},
		},
		{
			name:  "control keywords",
			input: "if else while for until return break",
			expected: []tokenExpectation{
				{IF, "if", 1, 1},
				{ELSE, "else", 1, 4},
				{WHILE, "while", 1, 9},
				{FOR, "for", 1, 15},
				{UNTIL, "until", 1, 19},
				{RETURN, "return", 1, 25},
				{BREAK, "break", 1, 32},
				{EOF, "", 1, 37},
			},
		},
		{
			name:  "mut and bool literals",
			input: "mut true false",
			expected: []tokenExpectation{
				{MUT, "mut", 1, 1},
				{TRUE, "true", 1, 5},
				{FALSE, "false", 1, 10},
				{EOF, "", 1, 15},
			},
		},
		{
			name:  "keyword prefix stays a word",
			input: "iffy formal",
			expected: []tokenExpectation{
				{WORD, "iffy", 1, 1},
				{WORD, "formal", 1, 6},
				{EOF, "", 1, 12},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTokens(t, tt.input, tt.expected)
		})
	}
}

func TestVariablesAndFlags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []tokenExpectation
	}{
		{
			name:  "variable binding",
			input: "$count: Int = 3",
			expected: []tokenExpectation{
				{VARIABLE, "count", 0, 0},
				{COLON, ":", 0, 0},
				{WORD, "Int", 0, 0},
				{EQUALS, "=", 0, 0},
				{INT, "3", 0, 0},
				{EOF, "", 0, 0},
			},
		},
		{
			name:  "flag token loses its dash",
			input: "ls -a",
			expected: []tokenExpectation{
				{WORD, "ls", 0, 0},
				{FLAG, "a", 0, 0},
				{EOF, "", 0, 0},
			},
		},
		{
			name:  "multi letter flag",
			input: "rm -recursive",
			expected: []tokenExpectation{
				{WORD, "rm", 0, 0},
				{FLAG, "recursive", 0, 0},
				{EOF, "", 0, 0},
			},
		},
		{
			name:  "negative number is not a flag",
			input: "add -5 2",
			expected: []tokenExpectation{
				{WORD, "add", 0, 0},
				{INT, "-5", 0, 0},
				{INT, "2", 0, 0},
				{EOF, "", 0, 0},
			},
		},
		{
			name:  "dashed word",
			input: "parse-int",
			expected: []tokenExpectation{
				{WORD, "parse-int", 0, 0},
				{EOF, "", 0, 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTokens(t, tt.input, tt.expected)
		})
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []tokenExpectation
	}{
		{
			name:  "simple string",
			input: `echo "hello world"`,
			expected: []tokenExpectation{
				{WORD, "echo", 0, 0},
				{STRING, "hello world", 0, 0},
				{EOF, "", 0, 0},
			},
		},
		{
			name:  "escapes resolve",
			input: `"a\nb\"c\\d"`,
			expected: []tokenExpectation{
				{STRING, "a\nb\"c\\d", 0, 0},
				{EOF, "", 0, 0},
			},
		},
		{
			name:  "raw newline allowed inside string",
			input: "\"two\nlines\"",
			expected: []tokenExpectation{
				{STRING, "two\nlines", 0, 0},
				{EOF, "", 0, 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTokens(t, tt.input, tt.expected)
		})
	}
}

func TestStringErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"unterminated", `"no close`, "UnterminatedString"},
		{"bad escape", `"a\tb"`, "invalid escape sequence"},
		{"quote glued to word", `foo"bar"`, "unescaped quote"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFromString(tt.input).Tokenize()
			if err == nil {
				t.Fatalf("Tokenize(%q) succeeded, want error containing %q", tt.input, tt.wantMsg)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestCommentsAndSeparators(t *testing.T) {
	input := "echo hi # trailing comment\n# full line\necho bye"
	assertTokens(t, input, []tokenExpectation{
		{WORD, "echo", 1, 1},
		{WORD, "hi", 1, 6},
		{NEWLINE, "\n", 1, 27},
		{NEWLINE, "\n", 2, 12},
		{WORD, "echo", 3, 1},
		{WORD, "bye", 3, 6},
		{EOF, "", 3, 9},
	})
}

func TestPunctuation(t *testing.T) {
	assertTokens(t, "!(a: Int) ?(b: Int) *(c: Int) { } | ; [ ] , =", []tokenExpectation{
		{BANG, "!", 0, 0},
		{LPAREN, "(", 0, 0},
		{WORD, "a", 0, 0},
		{COLON, ":", 0, 0},
		{WORD, "Int", 0, 0},
		{RPAREN, ")", 0, 0},
		{QUESTION, "?", 0, 0},
		{LPAREN, "(", 0, 0},
		{WORD, "b", 0, 0},
		{COLON, ":", 0, 0},
		{WORD, "Int", 0, 0},
		{RPAREN, ")", 0, 0},
		{STAR, "*", 0, 0},
		{LPAREN, "(", 0, 0},
		{WORD, "c", 0, 0},
		{COLON, ":", 0, 0},
		{WORD, "Int", 0, 0},
		{RPAREN, ")", 0, 0},
		{LBRACE, "{", 0, 0},
		{RBRACE, "}", 0, 0},
		{PIPE, "|", 0, 0},
		{SEMICOLON, ";", 0, 0},
		{LBRACKET, "[", 0, 0},
		{RBRACKET, "]", 0, 0},
		{COMMA, ",", 0, 0},
		{EQUALS, "=", 0, 0},
		{EOF, "", 0, 0},
	})
}

func TestVariableNameErrors(t *testing.T) {
	for _, input := range []string{"$1abc", "$ x", "$"} {
		if _, err := NewFromString(input).Tokenize(); err == nil {
			t.Errorf("Tokenize(%q) succeeded, want variable name error", input)
		}
	}
}
