// Package ast defines the syntax tree for KH source files.
//
// A file parses to one Program: its function definitions plus the top-level
// command sequence (the global scope). Statements are command-context
// constructs; expressions are value-context constructs. A Call appears in
// both worlds unchanged - it always yields a stdout delta and a typed value,
// and the evaluation entry point decides which to propagate.
package ast

import (
	"fmt"
	"strings"

	"github.com/kh-lang/kh/core/types"
)

// Position is a source location, 1-based line and column.
type Position struct {
	Line   int
	Column int
	Offset int // byte offset in source
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Node is any syntax tree node.
type Node interface {
	Pos() Position
	String() string
}

// Program is the parse result for one .kh file.
type Program struct {
	File      string // source path, "" for anonymous input
	Functions []*FunctionDef
	Global    *Block // top-level command sequence
}

func (p *Program) Pos() Position {
	if len(p.Functions) > 0 {
		return p.Functions[0].Pos()
	}
	if p.Global != nil && len(p.Global.Stmts) > 0 {
		return p.Global.Stmts[0].Pos()
	}
	return Position{Line: 1, Column: 1}
}

func (p *Program) String() string {
	var parts []string
	for _, f := range p.Functions {
		parts = append(parts, f.String())
	}
	if p.Global != nil && len(p.Global.Stmts) > 0 {
		parts = append(parts, p.Global.String())
	}
	return strings.Join(parts, "\n")
}

// FunctionDef is a `fn` definition: resolved signature plus body.
type FunctionDef struct {
	Name     string
	Sig      *types.Signature
	Body     *Block
	Position Position
}

func (f *FunctionDef) Pos() Position { return f.Position }
func (f *FunctionDef) String() string {
	return fmt.Sprintf("%s { %s }", f.Sig, f.Body)
}

// Block is a brace-delimited command-context statement sequence.
type Block struct {
	Stmts    []Stmt
	Position Position
}

func (b *Block) Pos() Position { return b.Position }
func (b *Block) String() string {
	parts := make([]string, len(b.Stmts))
	for i, s := range b.Stmts {
		parts[i] = s.String()
	}
	return strings.Join(parts, "; ")
}

// Stmt is a command-context statement.
type Stmt interface {
	Node
	stmtNode()
}

// Decl declares and initializes a block-local variable: `$x: T = expr`.
type Decl struct {
	Name     string
	Type     types.Type
	Value    Expr
	Position Position
}

// Assign reassigns an existing variable: `$x = expr`.
type Assign struct {
	Name     string
	Value    Expr
	Position Position
}

// Pipeline is one or more calls joined by `|`. A single stage is a plain
// call statement. Each stage's stdout becomes the next stage's stdin; every
// stage's typed value is discarded in command context.
type Pipeline struct {
	Stages   []*Call
	Position Position
}

// If is `if EXPR { } [else { }]`. Else is nil when absent.
type If struct {
	Cond     Expr
	Then     *Block
	Else     *Block
	Position Position
}

// FlagBlock is `if -name { }`: body runs iff the caller supplied the flag,
// with the flag's parameters bound inside the block only.
type FlagBlock struct {
	Flag     string
	Body     *Block
	Position Position
}

// While is `while EXPR { }`.
type While struct {
	Cond     Expr
	Body     *Block
	Position Position
}

// ForRange is `for $i = A until B { }`, iterating i over [A, B) and
// rebinding a fresh $i each pass.
type ForRange struct {
	Var      string
	From     Expr
	To       Expr
	Body     *Block
	Position Position
}

// Return is `return [expr]`, unwinding to the function boundary.
type Return struct {
	Value    Expr // nil for bare return
	Position Position
}

// Break unwinds exactly one enclosing loop.
type Break struct {
	Position Position
}

func (s *Decl) stmtNode()      {}
func (s *Assign) stmtNode()    {}
func (s *Pipeline) stmtNode()  {}
func (s *If) stmtNode()        {}
func (s *FlagBlock) stmtNode() {}
func (s *While) stmtNode()     {}
func (s *ForRange) stmtNode()  {}
func (s *Return) stmtNode()    {}
func (s *Break) stmtNode()     {}

func (s *Decl) Pos() Position      { return s.Position }
func (s *Assign) Pos() Position    { return s.Position }
func (s *Pipeline) Pos() Position  { return s.Position }
func (s *If) Pos() Position        { return s.Position }
func (s *FlagBlock) Pos() Position { return s.Position }
func (s *While) Pos() Position     { return s.Position }
func (s *ForRange) Pos() Position  { return s.Position }
func (s *Return) Pos() Position    { return s.Position }
func (s *Break) Pos() Position     { return s.Position }

func (s *Decl) String() string {
	return fmt.Sprintf("$%s: %s = %s", s.Name, s.Type, s.Value)
}
func (s *Assign) String() string { return fmt.Sprintf("$%s = %s", s.Name, s.Value) }
func (s *Pipeline) String() string {
	parts := make([]string, len(s.Stages))
	for i, c := range s.Stages {
		parts[i] = c.String()
	}
	return strings.Join(parts, " | ")
}
func (s *If) String() string {
	if s.Else != nil {
		return fmt.Sprintf("if %s { %s } else { %s }", s.Cond, s.Then, s.Else)
	}
	return fmt.Sprintf("if %s { %s }", s.Cond, s.Then)
}
func (s *FlagBlock) String() string { return fmt.Sprintf("if -%s { %s }", s.Flag, s.Body) }
func (s *While) String() string     { return fmt.Sprintf("while %s { %s }", s.Cond, s.Body) }
func (s *ForRange) String() string {
	return fmt.Sprintf("for $%s = %s until %s { %s }", s.Var, s.From, s.To, s.Body)
}
func (s *Return) String() string {
	if s.Value == nil {
		return "return"
	}
	return fmt.Sprintf("return %s", s.Value)
}
func (s *Break) String() string { return "break" }

// Expr is an expression-context node.
type Expr interface {
	Node
	exprNode()
}

// Literal is a source literal carrying its parsed value. Bare words in
// command context become String literals; their final type is settled when
// they bind to a parameter (round-tripping through the codec if needed).
type Literal struct {
	Value    types.Value
	Bare     bool // true for unquoted words, false for quoted/numeric/bool literals
	Position Position
}

// VarRef reads `$name`.
type VarRef struct {
	Name     string
	Position Position
}

// PassMode is the analyzer's verdict for one call argument edge.
type PassMode int

const (
	PassValue     PassMode = iota // immutable slot, bind a fresh cell
	PassReference                 // mutable slot, alias the caller's cell
	PassClone                     // mutable slot, clone to defeat aliasing
)

func (m PassMode) String() string {
	switch m {
	case PassValue:
		return "value"
	case PassReference:
		return "reference"
	case PassClone:
		return "clone"
	}
	return fmt.Sprintf("PassMode(%d)", int(m))
}

// Arg is one positional argument edge of a call. Mode is written by the
// analyzer before evaluation; the evaluator only reads it.
type Arg struct {
	Expr Expr
	Mode PassMode
}

// FlagArg is a call-site flag with its own arguments: `-times 3`.
type FlagArg struct {
	Name     string
	Args     []Arg
	Position Position
}

// Call applies a named function. Context-agnostic: it always produces both a
// stdout delta and a typed value.
type Call struct {
	Name     string
	Args     []Arg
	Flags    []FlagArg
	Position Position
}

func (e *Literal) exprNode() {}
func (e *VarRef) exprNode()  {}
func (e *Call) exprNode()    {}

func (e *Literal) Pos() Position { return e.Position }
func (e *VarRef) Pos() Position  { return e.Position }
func (e *Call) Pos() Position    { return e.Position }

func (e *Literal) String() string {
	if e.Value.Type().Kind == types.String && !e.Bare {
		return fmt.Sprintf("%q", e.Value.Text())
	}
	return types.Format(e.Value)
}
func (e *VarRef) String() string { return "$" + e.Name }
func (e *Call) String() string {
	var b strings.Builder
	b.WriteString(e.Name)
	for _, a := range e.Args {
		b.WriteByte(' ')
		b.WriteString(a.Expr.String())
	}
	for _, f := range e.Flags {
		b.WriteString(" -")
		b.WriteString(f.Name)
		for _, a := range f.Args {
			b.WriteByte(' ')
			b.WriteString(a.Expr.String())
		}
	}
	return b.String()
}
