package lexer

import (
	"fmt"

	"github.com/kh-lang/kh/core/ast"
)

// TokenType classifies KH lexemes.
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Statement separators
	NEWLINE   // \n
	SEMICOLON // ;

	// Keywords
	FN     // fn
	IF     // if
	ELSE   // else
	WHILE  // while
	FOR    // for
	UNTIL  // until
	RETURN // return
	BREAK  // break
	MUT    // mut
	TRUE   // true
	FALSE  // false

	// Punctuation
	LPAREN   // (
	RPAREN   // )
	LBRACE   // {
	RBRACE   // }
	LBRACKET // [
	RBRACKET // ]
	COLON    // :
	COMMA    // ,
	EQUALS   // =
	PIPE     // |
	BANG     // ! (required parameter group)
	QUESTION // ? (optional parameter group)
	STAR     // * (variadic parameter group)

	// Values
	WORD     // bare word: command names, type names, unquoted arguments
	VARIABLE // $name (Text holds the name without the sigil)
	FLAG     // -name (Text holds the name without the dash)
	INT      // 42, -3
	STRING   // double-quoted, Text holds the unescaped content
)

var tokenNames = [...]string{
	EOF:       "EOF",
	ILLEGAL:   "ILLEGAL",
	NEWLINE:   "NEWLINE",
	SEMICOLON: "SEMICOLON",
	FN:        "FN",
	IF:        "IF",
	ELSE:      "ELSE",
	WHILE:     "WHILE",
	FOR:       "FOR",
	UNTIL:     "UNTIL",
	RETURN:    "RETURN",
	BREAK:     "BREAK",
	MUT:       "MUT",
	TRUE:      "TRUE",
	FALSE:     "FALSE",
	LPAREN:    "LPAREN",
	RPAREN:    "RPAREN",
	LBRACE:    "LBRACE",
	RBRACE:    "RBRACE",
	LBRACKET:  "LBRACKET",
	RBRACKET:  "RBRACKET",
	COLON:     "COLON",
	COMMA:     "COMMA",
	EQUALS:    "EQUALS",
	PIPE:      "PIPE",
	BANG:      "BANG",
	QUESTION:  "QUESTION",
	STAR:      "STAR",
	WORD:      "WORD",
	VARIABLE:  "VARIABLE",
	FLAG:      "FLAG",
	INT:       "INT",
	STRING:    "STRING",
}

func (t TokenType) String() string {
	if t < 0 || int(t) >= len(tokenNames) {
		return fmt.Sprintf("TokenType(%d)", int(t))
	}
	return tokenNames[t]
}

var keywords = map[string]TokenType{
	"fn":     FN,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"for":    FOR,
	"until":  UNTIL,
	"return": RETURN,
	"break":  BREAK,
	"mut":    MUT,
	"true":   TRUE,
	"false":  FALSE,
}

// Token is one classified lexeme with its source position.
type Token struct {
	Type TokenType
	Text string // raw text; for VARIABLE/FLAG the sigil is stripped, for STRING escapes are resolved
	Pos  ast.Position
}

func (t Token) String() string {
	switch t.Type {
	case EOF, NEWLINE:
		return t.Type.String()
	default:
		return fmt.Sprintf("%s(%q)", t.Type, t.Text)
	}
}

// Error is a lexical error. It aborts loading of the file it occurred in.
type Error struct {
	Pos ast.Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("SyntaxError: %s at %s", e.Msg, e.Pos)
}
