package parser

import (
	"fmt"
	"strings"

	"github.com/kh-lang/kh/core/ast"
)

// SyntaxError is a grammar-level error with its source position. It is fatal
// for the file being parsed but must not crash the process.
type SyntaxError struct {
	File string
	Pos  ast.Position
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("SyntaxError: %s at %s", e.Msg, e.Pos)
	}
	return fmt.Sprintf("SyntaxError: %s at %s:%s", e.Msg, e.File, e.Pos)
}

// ErrorList collects every syntax error found in one file so a single parse
// reports them all.
type ErrorList []*SyntaxError

func (l ErrorList) Error() string {
	parts := make([]string, len(l))
	for i, e := range l {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "\n")
}

// Err returns nil when the list is empty.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}
