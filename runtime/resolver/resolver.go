// Package resolver builds the process-wide signature table and checks every
// call site against it.
//
// The table is assembled once during the load phase - builtins first, then
// every .kh file on the search path in order - and is read-only afterwards.
// Duplicate names are not an error: the last-loaded definition wins and a
// NameCollisionWarning is logged.
package resolver

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/kh-lang/kh/core/ast"
	"github.com/kh-lang/kh/core/types"
)

// Table maps function names to signatures and, for user functions, their
// definitions. Immutable after Finalize.
type Table struct {
	sigs   map[string]*types.Signature
	fns    map[string]*ast.FunctionDef
	logger *slog.Logger
}

// NewTable starts a table from the externally supplied builtin signatures.
func NewTable(builtins []*types.Signature) *Table {
	t := &Table{
		sigs:   make(map[string]*types.Signature, len(builtins)),
		fns:    make(map[string]*ast.FunctionDef),
		logger: slog.Default(),
	}
	for _, sig := range builtins {
		t.sigs[sig.Name] = sig
	}
	return t
}

// SetLogger overrides the collision-warning logger.
func (t *Table) SetLogger(logger *slog.Logger) { t.logger = logger }

// Declare adds one scanned signature. A name already present is a
// NameCollisionWarning: logged, non-fatal, last-loaded-wins.
func (t *Table) Declare(sig *types.Signature) {
	if prev, ok := t.sigs[sig.Name]; ok {
		t.logger.Warn("NameCollisionWarning: duplicate function name",
			"name", sig.Name,
			"kept", sig.Origin,
			"shadowed", prev.Origin)
	}
	t.sigs[sig.Name] = sig
}

// Define attaches a parsed function body to its declared signature.
// Definitions follow the same last-loaded-wins rule as declarations, keyed
// by the origin recorded on the winning signature.
func (t *Table) Define(fn *ast.FunctionDef) {
	sig, ok := t.sigs[fn.Name]
	if !ok || sig.Origin != fn.Sig.Origin {
		return // shadowed by a later-loaded file
	}
	t.fns[fn.Name] = fn
}

// Lookup implements parser.Signatures.
func (t *Table) Lookup(name string) (*types.Signature, bool) {
	sig, ok := t.sigs[name]
	return sig, ok
}

// Function returns the definition behind a user function name, false for
// builtins and unknown names.
func (t *Table) Function(name string) (*ast.FunctionDef, bool) {
	fn, ok := t.fns[name]
	return fn, ok
}

// Names returns all known function names, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.sigs))
	for name := range t.sigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Suggest returns the closest known name to target, or "" when nothing
// ranks.
func (t *Table) Suggest(target string) string {
	return suggest(target, t.Names())
}

func suggest(target string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}
	return ""
}

// --- call-site checks ---

// CheckError is a resolution-time error at a call site. Per the error
// taxonomy these surface as SyntaxErrors with a position.
type CheckError struct {
	File string
	Pos  ast.Position
	Msg  string
}

func (e *CheckError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("SyntaxError: %s at %s", e.Msg, e.Pos)
	}
	return fmt.Sprintf("SyntaxError: %s at %s:%s", e.Msg, e.File, e.Pos)
}

// Check validates every call site in the program against the table:
// unknown names, unknown flags (with a fuzzy suggestion when one is close),
// and required-slot arity. Surplus positional arguments are deliberately
// NOT an error - they are discarded at bind time. It also enforces the
// return contract: a non-Unit function must contain a return statement or
// end in a final expression.
func (t *Table) Check(prog *ast.Program) error {
	c := &checker{table: t, file: prog.File}
	for _, fn := range prog.Functions {
		c.checkFunction(fn)
	}
	c.checkBlock(prog.Global)
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs[0]
}

type checker struct {
	table *Table
	file  string
	errs  []*CheckError
}

func (c *checker) errorf(pos ast.Position, format string, args ...interface{}) {
	c.errs = append(c.errs, &CheckError{File: c.file, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (c *checker) checkFunction(fn *ast.FunctionDef) {
	c.checkBlock(fn.Body)

	if fn.Sig.Return.Kind == types.Unit {
		return
	}
	if hasReturn(fn.Body) {
		return
	}
	if finalCall(fn.Body) != nil {
		return
	}
	c.errorf(fn.Pos(), "fn %s returns %s but has neither a return statement nor a final expression",
		fn.Name, fn.Sig.Return)
}

// finalCall returns the body's trailing single-stage pipeline, if any: the
// function's final expression.
func finalCall(body *ast.Block) *ast.Call {
	if len(body.Stmts) == 0 {
		return nil
	}
	last, ok := body.Stmts[len(body.Stmts)-1].(*ast.Pipeline)
	if !ok || len(last.Stages) != 1 {
		return nil
	}
	return last.Stages[0]
}

func hasReturn(block *ast.Block) bool {
	for _, stmt := range block.Stmts {
		switch s := stmt.(type) {
		case *ast.Return:
			return true
		case *ast.If:
			if hasReturn(s.Then) || (s.Else != nil && hasReturn(s.Else)) {
				return true
			}
		case *ast.FlagBlock:
			if hasReturn(s.Body) {
				return true
			}
		case *ast.While:
			if hasReturn(s.Body) {
				return true
			}
		case *ast.ForRange:
			if hasReturn(s.Body) {
				return true
			}
		}
	}
	return false
}

func (c *checker) checkBlock(block *ast.Block) {
	if block == nil {
		return
	}
	for _, stmt := range block.Stmts {
		c.checkStmt(stmt)
	}
}

func (c *checker) checkStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.Decl:
		c.checkExpr(s.Value)
	case *ast.Assign:
		c.checkExpr(s.Value)
	case *ast.Pipeline:
		for _, stage := range s.Stages {
			c.checkCall(stage)
		}
	case *ast.If:
		c.checkExpr(s.Cond)
		c.checkBlock(s.Then)
		c.checkBlock(s.Else)
	case *ast.FlagBlock:
		c.checkBlock(s.Body)
	case *ast.While:
		c.checkExpr(s.Cond)
		c.checkBlock(s.Body)
	case *ast.ForRange:
		c.checkExpr(s.From)
		c.checkExpr(s.To)
		c.checkBlock(s.Body)
	case *ast.Return:
		if s.Value != nil {
			c.checkExpr(s.Value)
		}
	case *ast.Break:
	}
}

func (c *checker) checkExpr(expr ast.Expr) {
	if call, ok := expr.(*ast.Call); ok {
		c.checkCall(call)
	}
}

func (c *checker) checkCall(call *ast.Call) {
	sig, ok := c.table.Lookup(call.Name)
	if !ok {
		msg := fmt.Sprintf("unknown function %q", call.Name)
		if hint := c.table.Suggest(call.Name); hint != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", hint)
		}
		c.errorf(call.Position, "%s", msg)
		return
	}

	required, _, _ := types.Arity(sig.Params)
	if len(call.Args) < required {
		c.errorf(call.Position, "fn %s requires %d argument(s), got %d",
			call.Name, required, len(call.Args))
	}

	for _, flagArg := range call.Flags {
		flag, ok := sig.Flag(flagArg.Name)
		if !ok {
			msg := fmt.Sprintf("UnknownFlag: fn %s has no flag -%s", call.Name, flagArg.Name)
			var names []string
			for _, f := range sig.Flags {
				names = append(names, f.Name)
			}
			if hint := suggest(flagArg.Name, names); hint != "" {
				msg += fmt.Sprintf(" (did you mean -%s?)", hint)
			}
			c.errorf(flagArg.Position, "%s", msg)
			continue
		}
		flagRequired, _, _ := types.Arity(flag.Params)
		if len(flagArg.Args) < flagRequired {
			c.errorf(flagArg.Position, "flag -%s requires %d argument(s), got %d",
				flagArg.Name, flagRequired, len(flagArg.Args))
		}
	}

	for _, arg := range call.Args {
		c.checkExpr(arg.Expr)
	}
	for _, flagArg := range call.Flags {
		for _, arg := range flagArg.Args {
			c.checkExpr(arg.Expr)
		}
	}
}
