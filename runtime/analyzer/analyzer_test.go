package analyzer

import (
	"testing"

	"github.com/kh-lang/kh/core/ast"
	"github.com/kh-lang/kh/core/types"
)

type sigTable map[string]*types.Signature

func (t sigTable) Lookup(name string) (*types.Signature, bool) {
	sig, ok := t[name]
	return sig, ok
}

var pushSig = &types.Signature{
	Name: "push",
	Params: []types.Parameter{
		{Name: "xs", Type: types.ListOf(types.StringType), Binding: types.Required, Mutable: true},
		{Name: "x", Type: types.StringType, Binding: types.Required},
	},
	Return: types.UnitType,
	Origin: "builtin",
}

func callPush(target string) *ast.Pipeline {
	return &ast.Pipeline{Stages: []*ast.Call{{
		Name: "push",
		Args: []ast.Arg{
			{Expr: &ast.VarRef{Name: target}},
			{Expr: &ast.Literal{Value: types.Str("item")}},
		},
	}}}
}

func TestMutableArgPassesByReference(t *testing.T) {
	prog := &ast.Program{Global: &ast.Block{Stmts: []ast.Stmt{
		&ast.Decl{Name: "xs", Type: types.ListOf(types.StringType), Value: &ast.Literal{Value: types.ListOfValues(types.StringType)}},
		callPush("xs"),
	}}}
	Annotate(prog, sigTable{"push": pushSig})

	call := prog.Global.Stmts[1].(*ast.Pipeline).Stages[0]
	if call.Args[0].Mode != ast.PassReference {
		t.Errorf("unaliased variable into mutable slot: mode %v, want PassReference", call.Args[0].Mode)
	}
	if call.Args[1].Mode != ast.PassValue {
		t.Errorf("immutable slot: mode %v, want PassValue", call.Args[1].Mode)
	}
}

func TestAliasedVariableIsCloned(t *testing.T) {
	prog := &ast.Program{Global: &ast.Block{Stmts: []ast.Stmt{
		&ast.Decl{Name: "xs", Type: types.ListOf(types.StringType), Value: &ast.Literal{Value: types.ListOfValues(types.StringType)}},
		&ast.Decl{Name: "ys", Type: types.ListOf(types.StringType), Value: &ast.VarRef{Name: "xs"}},
		callPush("ys"),
		callPush("xs"),
	}}}
	Annotate(prog, sigTable{"push": pushSig})

	pushYs := prog.Global.Stmts[2].(*ast.Pipeline).Stages[0]
	if pushYs.Args[0].Mode != ast.PassClone {
		t.Errorf("variable bound from another variable: mode %v, want PassClone", pushYs.Args[0].Mode)
	}

	// Only the copy is tainted; the source variable still passes by
	// reference.
	pushXs := prog.Global.Stmts[3].(*ast.Pipeline).Stages[0]
	if pushXs.Args[0].Mode != ast.PassReference {
		t.Errorf("alias source: mode %v, want PassReference", pushXs.Args[0].Mode)
	}
}

func TestReassignmentAliases(t *testing.T) {
	prog := &ast.Program{Global: &ast.Block{Stmts: []ast.Stmt{
		&ast.Decl{Name: "xs", Type: types.ListOf(types.StringType), Value: &ast.Literal{Value: types.ListOfValues(types.StringType)}},
		&ast.Decl{Name: "ys", Type: types.ListOf(types.StringType), Value: &ast.Literal{Value: types.ListOfValues(types.StringType)}},
		&ast.Assign{Name: "ys", Value: &ast.VarRef{Name: "xs"}},
		callPush("ys"),
	}}}
	Annotate(prog, sigTable{"push": pushSig})

	call := prog.Global.Stmts[3].(*ast.Pipeline).Stages[0]
	if call.Args[0].Mode != ast.PassClone {
		t.Errorf("reassigned alias: mode %v, want PassClone", call.Args[0].Mode)
	}
}

func TestNonVariableArgsKeepValueMode(t *testing.T) {
	prog := &ast.Program{Global: &ast.Block{Stmts: []ast.Stmt{
		&ast.Pipeline{Stages: []*ast.Call{{
			Name: "push",
			Args: []ast.Arg{
				{Expr: &ast.Literal{Value: types.ListOfValues(types.StringType)}},
				{Expr: &ast.Literal{Value: types.Str("item")}},
			},
		}}},
	}}}
	Annotate(prog, sigTable{"push": pushSig})

	call := prog.Global.Stmts[0].(*ast.Pipeline).Stages[0]
	if call.Args[0].Mode != ast.PassValue {
		t.Errorf("literal into mutable slot: mode %v, want PassValue", call.Args[0].Mode)
	}
}

func TestUnknownCalleeLeavesDefaults(t *testing.T) {
	prog := &ast.Program{Global: &ast.Block{Stmts: []ast.Stmt{
		callPush("xs"),
	}}}
	Annotate(prog, sigTable{})

	call := prog.Global.Stmts[0].(*ast.Pipeline).Stages[0]
	if call.Args[0].Mode != ast.PassValue {
		t.Errorf("unknown callee: mode %v, want PassValue", call.Args[0].Mode)
	}
}

func TestFunctionBodiesGetFreshAliasSets(t *testing.T) {
	fn := &ast.FunctionDef{
		Name: "worker",
		Sig:  &types.Signature{Name: "worker", Return: types.UnitType},
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.Decl{Name: "xs", Type: types.ListOf(types.StringType), Value: &ast.VarRef{Name: "src"}},
		}},
	}
	prog := &ast.Program{
		Functions: []*ast.FunctionDef{fn},
		Global: &ast.Block{Stmts: []ast.Stmt{
			&ast.Decl{Name: "xs", Type: types.ListOf(types.StringType), Value: &ast.Literal{Value: types.ListOfValues(types.StringType)}},
			callPush("xs"),
		}},
	}
	Annotate(prog, sigTable{"push": pushSig})

	// The alias mark on xs inside worker must not leak into the global
	// scope's xs.
	call := prog.Global.Stmts[1].(*ast.Pipeline).Stages[0]
	if call.Args[0].Mode != ast.PassReference {
		t.Errorf("global xs: mode %v, want PassReference", call.Args[0].Mode)
	}
}
