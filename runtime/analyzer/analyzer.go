// Package analyzer decides, statically, how each call argument reaches a
// mutable parameter: by true reference or by clone.
//
// The rule is conservative and purely syntactic. A variable bound by direct
// assignment from another variable (`$b = $a`) is potentially aliased;
// passing it into a mutable slot would let the callee mutate two visible
// names at once, so the analyzer inserts a clone instead. Variables bound
// from literals or computed results pass by reference. The pass runs once
// per function body before evaluation and writes its verdict on each Call
// argument edge; the evaluator only reads the tag.
package analyzer

import (
	"github.com/kh-lang/kh/core/ast"
	"github.com/kh-lang/kh/core/types"
)

// Signatures is the mutability oracle: the resolver's table satisfies it.
type Signatures interface {
	Lookup(name string) (*types.Signature, bool)
}

// Annotate tags every call argument in the program. Unknown callees and
// surplus arguments keep the PassValue default.
func Annotate(prog *ast.Program, sigs Signatures) {
	for _, fn := range prog.Functions {
		a := &pass{sigs: sigs, aliased: map[string]bool{}}
		a.block(fn.Body)
	}
	a := &pass{sigs: sigs, aliased: map[string]bool{}}
	a.block(prog.Global)
}

type pass struct {
	sigs    Signatures
	aliased map[string]bool
}

func (a *pass) block(block *ast.Block) {
	if block == nil {
		return
	}
	for _, stmt := range block.Stmts {
		a.stmt(stmt)
	}
}

func (a *pass) stmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.Decl:
		a.expr(s.Value)
		if _, isVar := s.Value.(*ast.VarRef); isVar {
			a.aliased[s.Name] = true
		}
	case *ast.Assign:
		a.expr(s.Value)
		if _, isVar := s.Value.(*ast.VarRef); isVar {
			a.aliased[s.Name] = true
		}
	case *ast.Pipeline:
		for _, stage := range s.Stages {
			a.call(stage)
		}
	case *ast.If:
		a.expr(s.Cond)
		a.block(s.Then)
		a.block(s.Else)
	case *ast.FlagBlock:
		a.block(s.Body)
	case *ast.While:
		a.expr(s.Cond)
		a.block(s.Body)
	case *ast.ForRange:
		a.expr(s.From)
		a.expr(s.To)
		a.block(s.Body)
	case *ast.Return:
		if s.Value != nil {
			a.expr(s.Value)
		}
	case *ast.Break:
	}
}

func (a *pass) expr(expr ast.Expr) {
	if call, ok := expr.(*ast.Call); ok {
		a.call(call)
	}
}

func (a *pass) call(call *ast.Call) {
	sig, ok := a.sigs.Lookup(call.Name)
	if ok {
		a.tagArgs(call.Args, sig.Params)
		for i := range call.Flags {
			if flag, ok := sig.Flag(call.Flags[i].Name); ok {
				a.tagArgs(call.Flags[i].Args, flag.Params)
			}
		}
	}
	for _, arg := range call.Args {
		a.expr(arg.Expr)
	}
	for _, flagArg := range call.Flags {
		for _, arg := range flagArg.Args {
			a.expr(arg.Expr)
		}
	}
}

func (a *pass) tagArgs(args []ast.Arg, params []types.Parameter) {
	for i := range args {
		param := paramForIndex(params, i)
		if param == nil || !param.Mutable {
			continue
		}
		ref, isVar := args[i].Expr.(*ast.VarRef)
		if !isVar {
			continue
		}
		if a.aliased[ref.Name] {
			args[i].Mode = ast.PassClone
		} else {
			args[i].Mode = ast.PassReference
		}
	}
}

// paramForIndex maps the i-th positional argument to its parameter slot:
// required then optional then the variadic tail. Surplus arguments map to
// nothing and are discarded at bind time.
func paramForIndex(params []types.Parameter, i int) *types.Parameter {
	if i < 0 {
		return nil
	}
	positional := 0
	for p := range params {
		if params[p].Binding == types.Variadic {
			continue
		}
		if positional == i {
			return &params[p]
		}
		positional++
	}
	for p := range params {
		if params[p].Binding == types.Variadic {
			return &params[p]
		}
	}
	return nil
}
