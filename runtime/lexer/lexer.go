// Package lexer turns KH source text into a flat token stream.
//
// Tokenization is whitespace-splitting except inside double-quoted strings,
// which honor the `\"`, `\n`, and `\\` escapes. `#` starts a comment unless
// quoted. A token starting `-[A-Za-z]` is a flag, `-[0-9]` a negative
// number; any other run of word characters is a generic WORD left for the
// parser to type.
package lexer

import (
	"log/slog"
	"os"

	"github.com/kh-lang/kh/core/ast"
)

// ASCII character lookup tables for fast classification
var (
	isSpace    [128]bool      // horizontal whitespace, not newline
	isDigit    [128]bool      // 0-9
	isLetter   [128]bool      // A-Za-z_
	isNamePart [128]bool      // identifier-ish: flags, function names
	isWordPart [128]bool      // anything that can sit inside a bare word
	singleChar [128]TokenType // single-character punctuation
	singleRepr [128]string    // pre-allocated single-char strings
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isSpace[i] = ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f'
		isDigit[i] = '0' <= ch && ch <= '9'
		isLetter[i] = ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
		isNamePart[i] = isLetter[i] || isDigit[i] || ch == '-'
		singleChar[i] = ILLEGAL
		singleRepr[i] = string(ch)

		// Word characters: printable, not whitespace, not punctuation the
		// lexer claims for itself.
		if ch > ' ' && ch < 127 {
			isWordPart[i] = true
		}
	}
	for _, ch := range []byte{'(', ')', '{', '}', '[', ']', ':', ',', '=', '|', ';', '#', '"', '$', '!', '?', '*'} {
		isWordPart[ch] = false
	}

	singleChar['('] = LPAREN
	singleChar[')'] = RPAREN
	singleChar['{'] = LBRACE
	singleChar['}'] = RBRACE
	singleChar['['] = LBRACKET
	singleChar[']'] = RBRACKET
	singleChar[':'] = COLON
	singleChar[','] = COMMA
	singleChar['='] = EQUALS
	singleChar['|'] = PIPE
	singleChar[';'] = SEMICOLON
	singleChar['!'] = BANG
	singleChar['?'] = QUESTION
	singleChar['*'] = STAR
}

// Lexer walks one source file byte by byte. Tokenization assumes ASCII for
// structural characters; bytes >= 128 are carried through inside words and
// strings untouched.
type Lexer struct {
	input  string
	pos    int  // current position in input
	ch     byte // current byte, 0 at EOF
	line   int
	column int

	logger *slog.Logger
}

// NewFromString creates a Lexer over source text.
func NewFromString(input string) *Lexer {
	logLevel := slog.LevelInfo
	if os.Getenv("KH_DEBUG_LEXER") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Strip timestamp and level for cleaner debug output
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))

	l := &Lexer{
		input:  input,
		pos:    -1,
		line:   1,
		column: 0,
		logger: logger,
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	if l.pos >= len(l.input) {
		l.ch = 0
		return
	}
	l.ch = l.input[l.pos]
}

func (l *Lexer) peekChar() byte {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) position() ast.Position {
	return ast.Position{Line: l.line, Column: l.column, Offset: l.pos}
}

// Tokenize consumes the whole input and returns the token stream, always
// terminated by an EOF token. The first lexical error aborts the file.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		l.logger.Debug("token", "type", tok.Type.String(), "text", tok.Text, "pos", tok.Pos.String())
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) next() (Token, error) {
	for l.ch != 0 && l.ch < 128 && isSpace[l.ch] {
		l.readChar()
	}

	pos := l.position()

	switch {
	case l.ch == 0:
		return Token{Type: EOF, Pos: pos}, nil

	case l.ch == '\n':
		l.readChar()
		return Token{Type: NEWLINE, Text: "\n", Pos: pos}, nil

	case l.ch == '#':
		// Comment runs to end of line; the newline itself is the next token.
		for l.ch != 0 && l.ch != '\n' {
			l.readChar()
		}
		return l.next()

	case l.ch == '"':
		return l.readString(pos)

	case l.ch == '$':
		return l.readVariable(pos)

	case l.ch == '-':
		return l.readDashed(pos)

	case l.ch < 128 && singleChar[l.ch] != ILLEGAL:
		typ := singleChar[l.ch]
		text := singleRepr[l.ch]
		l.readChar()
		return Token{Type: typ, Text: text, Pos: pos}, nil

	case l.ch >= 128 || isWordPart[l.ch]:
		return l.readWord(pos)

	default:
		ch := l.ch
		l.readChar()
		return Token{}, &Error{Pos: pos, Msg: "unexpected character " + singleRepr[ch]}
	}
}

// readString consumes a double-quoted string, resolving the three legal
// escapes. Newlines are allowed inside strings.
func (l *Lexer) readString(pos ast.Position) (Token, error) {
	l.readChar() // consume opening quote
	var out []byte
	for {
		switch l.ch {
		case 0:
			return Token{}, &Error{Pos: pos, Msg: "UnterminatedString: missing closing quote"}
		case '"':
			l.readChar()
			return Token{Type: STRING, Text: string(out), Pos: pos}, nil
		case '\\':
			escPos := l.position()
			l.readChar()
			switch l.ch {
			case '"':
				out = append(out, '"')
			case 'n':
				out = append(out, '\n')
			case '\\':
				out = append(out, '\\')
			default:
				return Token{}, &Error{Pos: escPos, Msg: "invalid escape sequence in string"}
			}
			l.readChar()
		default:
			out = append(out, l.ch)
			l.readChar()
		}
	}
}

// readVariable consumes `$name`.
func (l *Lexer) readVariable(pos ast.Position) (Token, error) {
	l.readChar() // consume $
	if l.ch >= 128 || !isLetter[l.ch] {
		return Token{}, &Error{Pos: pos, Msg: "variable name must start with a letter"}
	}
	start := l.pos
	for l.ch != 0 && l.ch < 128 && (isLetter[l.ch] || isDigit[l.ch]) {
		l.readChar()
	}
	return Token{Type: VARIABLE, Text: l.input[start:l.pos], Pos: pos}, nil
}

// readDashed consumes a token starting with '-': a flag for -[A-Za-z], a
// negative number for -[0-9], otherwise a plain word.
func (l *Lexer) readDashed(pos ast.Position) (Token, error) {
	next := l.peekChar()
	switch {
	case next < 128 && isLetter[next] && next != '_':
		l.readChar() // consume dash
		start := l.pos
		for l.ch != 0 && l.ch < 128 && isNamePart[l.ch] {
			l.readChar()
		}
		return Token{Type: FLAG, Text: l.input[start:l.pos], Pos: pos}, nil
	default:
		return l.readWord(pos)
	}
}

// readWord consumes a maximal run of word characters, then classifies it as
// a keyword, an integer literal, or a generic WORD.
func (l *Lexer) readWord(pos ast.Position) (Token, error) {
	start := l.pos
	if l.ch == '-' {
		l.readChar()
	}
	for l.ch != 0 && (l.ch >= 128 || isWordPart[l.ch]) {
		l.readChar()
	}
	if l.ch == '"' {
		return Token{}, &Error{Pos: l.position(), Msg: "unescaped quote inside unquoted word"}
	}
	text := l.input[start:l.pos]
	if typ, ok := keywords[text]; ok {
		return Token{Type: typ, Text: text, Pos: pos}, nil
	}
	if isIntLiteral(text) {
		return Token{Type: INT, Text: text, Pos: pos}, nil
	}
	return Token{Type: WORD, Text: text, Pos: pos}, nil
}

func isIntLiteral(s string) bool {
	if s == "" {
		return false
	}
	digits := s
	if s[0] == '-' {
		digits = s[1:]
	}
	if digits == "" {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if !isDigit[digits[i]] {
			return false
		}
	}
	return true
}
