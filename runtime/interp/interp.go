// Package interp is the KH tree-walking evaluator.
//
// Execution is dual-context over one AST: execStmt runs command-context
// statements (stdout-oriented, values discarded) and evalExpr runs
// expression-context trees (value-oriented). A Call is context-agnostic -
// it always yields both a stdout delta and a typed value - and each entry
// point propagates the half it cares about. Stdout accumulation is
// unconditional: nested calls in expressions still write into the caller's
// buffer.
//
// The evaluator is single-threaded and has no suspension points; every
// builtin blocks until it returns its (stdout, value) pair. All
// reference/clone decisions were made statically by the analyzer - the
// evaluator only reads the tags.
package interp

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kh-lang/kh/core/ast"
	"github.com/kh-lang/kh/core/invariant"
	"github.com/kh-lang/kh/core/types"
	"github.com/kh-lang/kh/runtime/resolver"
)

// Interp executes programs against a resolved table and a native builtin
// table. Both tables are read-only for the lifetime of the run.
type Interp struct {
	table   *resolver.Table
	natives map[string]Native
	logger  *slog.Logger
}

// New creates an interpreter. The natives map is the externally supplied
// builtin behavior table; its keys must match the builtin signatures the
// table was built with.
func New(table *resolver.Table, natives map[string]Native) *Interp {
	invariant.NotNil(table, "table")

	logLevel := slog.LevelInfo
	if os.Getenv("KH_DEBUG_INTERP") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))

	return &Interp{table: table, natives: natives, logger: logger}
}

// RunScript executes the program's global scope and returns its stdout. A
// runtime failure aborts execution; stdout produced before the failure is
// still returned.
func (in *Interp) RunScript(prog *ast.Program) (string, error) {
	fr := newFrame("", "")
	_, err := in.runBlock(fr, prog.Global, false)
	return fr.stdout.String(), err
}

// --- statements (command context) ---

// runBlock executes a statement sequence in a fresh child scope. fnTop
// marks a function body's outermost block, where the trailing single-stage
// pipeline is captured as the candidate final expression.
func (in *Interp) runBlock(fr *frame, block *ast.Block, fnTop bool) (control, error) {
	if block == nil {
		return ctrlNone, nil
	}
	prev := fr.scope
	fr.scope = newScope(prev)
	defer func() { fr.scope = prev }()

	for i, stmt := range block.Stmts {
		captureFinal := fnTop && i == len(block.Stmts)-1
		ctrl, err := in.execStmt(fr, stmt, captureFinal)
		if err != nil {
			return ctrlNone, err
		}
		if ctrl != ctrlNone {
			return ctrl, nil
		}
	}
	return ctrlNone, nil
}

func (in *Interp) execStmt(fr *frame, stmt ast.Stmt, captureFinal bool) (control, error) {
	switch s := stmt.(type) {
	case *ast.Decl:
		v, err := in.evalExpr(fr, s.Value)
		if err != nil {
			return ctrlNone, err
		}
		bound, err := in.adapt(v, s.Type, s.Position)
		if err != nil {
			return ctrlNone, err
		}
		if err := fr.scope.declare(s.Name, &cell{typ: s.Type, val: bound}); err != nil {
			return ctrlNone, &RuntimeError{Pos: s.Position, Msg: err.Error()}
		}
		return ctrlNone, nil

	case *ast.Assign:
		v, err := in.evalExpr(fr, s.Value)
		if err != nil {
			return ctrlNone, err
		}
		c, ok := fr.scope.lookup(s.Name)
		if !ok {
			return ctrlNone, &RuntimeError{Pos: s.Position, Msg: fmt.Sprintf("undefined variable $%s", s.Name)}
		}
		bound, err := in.adapt(v, c.typ, s.Position)
		if err != nil {
			return ctrlNone, err
		}
		c.val = bound
		return ctrlNone, nil

	case *ast.Pipeline:
		return ctrlNone, in.execPipeline(fr, s, captureFinal)

	case *ast.If:
		cond, err := in.evalBool(fr, s.Cond)
		if err != nil {
			return ctrlNone, err
		}
		if cond {
			return in.runBlock(fr, s.Then, false)
		}
		return in.runBlock(fr, s.Else, false)

	case *ast.FlagBlock:
		cells, supplied := fr.flags[s.Flag]
		if !supplied {
			return ctrlNone, nil
		}
		// The flag's parameters live in a scope wrapping the block and die
		// with it.
		prev := fr.scope
		flagScope := newScope(prev)
		for name, c := range cells {
			flagScope.vars[name] = c
		}
		fr.scope = flagScope
		ctrl, err := in.runBlock(fr, s.Body, false)
		fr.scope = prev
		return ctrl, err

	case *ast.While:
		for {
			cond, err := in.evalBool(fr, s.Cond)
			if err != nil {
				return ctrlNone, err
			}
			if !cond {
				return ctrlNone, nil
			}
			ctrl, err := in.runBlock(fr, s.Body, false)
			if err != nil {
				return ctrlNone, err
			}
			if ctrl == ctrlBreak {
				return ctrlNone, nil
			}
			if ctrl == ctrlReturn {
				return ctrlReturn, nil
			}
		}

	case *ast.ForRange:
		from, err := in.evalInt(fr, s.From)
		if err != nil {
			return ctrlNone, err
		}
		to, err := in.evalInt(fr, s.To)
		if err != nil {
			return ctrlNone, err
		}
		for i := from; i < to; i++ {
			// Rebind a fresh $i each iteration; the cell is not shared
			// across passes and is invisible after the loop.
			prev := fr.scope
			iter := newScope(prev)
			iter.vars[s.Var] = &cell{typ: types.IntType, val: types.IntOf(i)}
			fr.scope = iter
			ctrl, err := in.runBlock(fr, s.Body, false)
			fr.scope = prev
			if err != nil {
				return ctrlNone, err
			}
			if ctrl == ctrlBreak {
				return ctrlNone, nil
			}
			if ctrl == ctrlReturn {
				return ctrlReturn, nil
			}
		}
		return ctrlNone, nil

	case *ast.Return:
		ret := types.UnitValue
		if s.Value != nil {
			v, err := in.evalExpr(fr, s.Value)
			if err != nil {
				return ctrlNone, err
			}
			ret = v
		}
		fr.ret = &ret
		return ctrlReturn, nil

	case *ast.Break:
		return ctrlBreak, nil

	default:
		return ctrlNone, &RuntimeError{Pos: stmt.Pos(), Msg: fmt.Sprintf("unsupported statement %T", stmt)}
	}
}

// execPipeline threads stdout to stdin left to right. Intermediate stage
// output is consumed by the next stage; only the last stage's output
// reaches the enclosing frame's buffer. Every stage's typed value is
// discarded, except that a single-stage pipeline at a function body's end
// is the final expression.
func (in *Interp) execPipeline(fr *frame, pl *ast.Pipeline, captureFinal bool) error {
	stdin := fr.stdin
	for i, stage := range pl.Stages {
		out, val, err := in.execCall(fr, stage, stdin)
		if err != nil {
			return err
		}
		if i == len(pl.Stages)-1 {
			fr.stdout.WriteString(out)
			if captureFinal && len(pl.Stages) == 1 {
				fr.lastValue = val
				fr.hasLastValue = true
			}
		} else {
			stdin = out
		}
	}
	return nil
}

// --- expressions (value context) ---

func (in *Interp) evalExpr(fr *frame, expr ast.Expr) (types.Value, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return e.Value, nil
	case *ast.VarRef:
		c, ok := fr.scope.lookup(e.Name)
		if !ok {
			return types.Value{}, &RuntimeError{Pos: e.Position, Msg: fmt.Sprintf("undefined variable $%s", e.Name)}
		}
		return c.val, nil
	case *ast.Call:
		out, val, err := in.execCall(fr, e, fr.stdin)
		// Stdout accumulation is unconditional, even in expression context.
		fr.stdout.WriteString(out)
		return val, err
	default:
		return types.Value{}, &RuntimeError{Pos: expr.Pos(), Msg: fmt.Sprintf("unsupported expression %T", expr)}
	}
}

func (in *Interp) evalBool(fr *frame, expr ast.Expr) (bool, error) {
	v, err := in.evalExpr(fr, expr)
	if err != nil {
		return false, err
	}
	b, err := in.adapt(v, types.BoolType, expr.Pos())
	if err != nil {
		return false, err
	}
	return b.Bool(), nil
}

func (in *Interp) evalInt(fr *frame, expr ast.Expr) (int64, error) {
	v, err := in.evalExpr(fr, expr)
	if err != nil {
		return 0, err
	}
	n, err := in.adapt(v, types.IntType, expr.Pos())
	if err != nil {
		return 0, err
	}
	return n.Int(), nil
}

// adapt interpolates a value into the type a context expects: identical
// types pass through, anything else round-trips through the codec. A parse
// failure is a RuntimeTypeError.
func (in *Interp) adapt(v types.Value, target types.Type, pos ast.Position) (types.Value, error) {
	out, err := types.Interpolate(v, target)
	if err != nil {
		return types.Value{}, &RuntimeError{Pos: pos, Msg: fmt.Sprintf("interpolating %s into %s", v.Type(), target), Cause: err}
	}
	return out, nil
}

// --- calls ---

// argSlot is one evaluated call argument, carrying the caller's cell when
// the analyzer decided on reference passing.
type argSlot struct {
	val  types.Value
	cell *cell // non-nil only for PassReference
}

func (in *Interp) execCall(fr *frame, call *ast.Call, stdin string) (string, types.Value, error) {
	sig, ok := in.table.Lookup(call.Name)
	if !ok {
		return "", types.Value{}, &RuntimeError{Pos: call.Position, Msg: fmt.Sprintf("unknown function %q", call.Name)}
	}
	in.logger.Debug("call", "fn", call.Name, "args", len(call.Args))

	args, err := in.evalArgs(fr, call.Args)
	if err != nil {
		return "", types.Value{}, err
	}
	bound, err := in.bindParams(sig.Params, args, call.Position)
	if err != nil {
		return "", types.Value{}, err
	}

	flagCells := make(map[string]map[string]*cell, len(call.Flags))
	for _, flagArg := range call.Flags {
		flag, ok := sig.Flag(flagArg.Name)
		if !ok {
			return "", types.Value{}, &RuntimeError{Pos: flagArg.Position, Msg: fmt.Sprintf("UnknownFlag: -%s", flagArg.Name)}
		}
		flagArgs, err := in.evalArgs(fr, flagArg.Args)
		if err != nil {
			return "", types.Value{}, err
		}
		cells, err := in.bindParams(flag.Params, flagArgs, flagArg.Position)
		if err != nil {
			return "", types.Value{}, err
		}
		flagCells[flagArg.Name] = cells
	}

	if native, ok := in.natives[call.Name]; ok {
		inv := &Invocation{
			Name:  call.Name,
			Stdin: stdin,
			Pos:   call.Position,
			Sigs:  in.table,
			args:  bound,
			flags: flagCells,
		}
		val, err := native(inv)
		if err != nil {
			if _, isRuntime := err.(*RuntimeError); !isRuntime {
				err = &RuntimeError{Pos: call.Position, Msg: call.Name, Cause: err}
			}
			return inv.out.String(), types.Value{}, err
		}
		return inv.out.String(), val, nil
	}

	fnDef, ok := in.table.Function(call.Name)
	if !ok {
		return "", types.Value{}, &RuntimeError{Pos: call.Position, Msg: fmt.Sprintf("function %q has a signature but no definition", call.Name)}
	}
	return in.callFunction(fnDef, bound, flagCells, stdin, call.Position)
}

func (in *Interp) callFunction(fn *ast.FunctionDef, bound map[string]*cell, flagCells map[string]map[string]*cell, stdin string, pos ast.Position) (string, types.Value, error) {
	nf := newFrame(fn.Name, stdin)
	nf.flags = flagCells
	for name, c := range bound {
		nf.scope.vars[name] = c
	}

	_, err := in.runBlock(nf, fn.Body, true)
	if err != nil {
		return nf.stdout.String(), types.Value{}, err
	}

	// Fill the return slot: explicit return, else the final expression,
	// else Unit for Unit functions. The impossible fourth case was rejected
	// statically.
	var result types.Value
	switch {
	case nf.ret != nil:
		result = *nf.ret
	case fn.Sig.Return.Kind == types.Unit:
		result = types.UnitValue
	case nf.hasLastValue:
		result = nf.lastValue
	default:
		return nf.stdout.String(), types.Value{}, &RuntimeError{
			Pos: pos,
			Msg: fmt.Sprintf("fn %s finished without producing a %s", fn.Name, fn.Sig.Return),
		}
	}

	if fn.Sig.Return.Kind == types.Unit {
		return nf.stdout.String(), types.UnitValue, nil
	}
	result, err = in.adapt(result, fn.Sig.Return, pos)
	if err != nil {
		return nf.stdout.String(), types.Value{}, err
	}
	return nf.stdout.String(), result, nil
}

func (in *Interp) evalArgs(fr *frame, args []ast.Arg) ([]argSlot, error) {
	slots := make([]argSlot, 0, len(args))
	for _, arg := range args {
		switch arg.Mode {
		case ast.PassReference:
			ref, ok := arg.Expr.(*ast.VarRef)
			invariant.Invariant(ok, "reference-tagged argument must be a variable reference")
			c, found := fr.scope.lookup(ref.Name)
			if !found {
				return nil, &RuntimeError{Pos: ref.Position, Msg: fmt.Sprintf("undefined variable $%s", ref.Name)}
			}
			slots = append(slots, argSlot{val: c.val, cell: c})
		case ast.PassClone:
			v, err := in.evalExpr(fr, arg.Expr)
			if err != nil {
				return nil, err
			}
			slots = append(slots, argSlot{val: v.Clone()})
		default:
			v, err := in.evalExpr(fr, arg.Expr)
			if err != nil {
				return nil, err
			}
			slots = append(slots, argSlot{val: v})
		}
	}
	return slots, nil
}

// bindParams materializes parameter cells from evaluated arguments:
// required slots first, then optional, then the variadic tail as a List.
// Unsupplied optionals stay unbound; surplus arguments were evaluated for
// their stdout but are silently discarded.
func (in *Interp) bindParams(params []types.Parameter, args []argSlot, pos ast.Position) (map[string]*cell, error) {
	bound := make(map[string]*cell, len(params))
	ai := 0

	for i := range params {
		p := &params[i]
		if p.Binding == types.Variadic {
			continue
		}
		if ai >= len(args) {
			if p.Binding == types.Required {
				return nil, &RuntimeError{Pos: pos, Msg: fmt.Sprintf("missing required argument %s", p.Name)}
			}
			continue // optional left unbound
		}
		c, err := in.bindOne(p, args[ai], pos)
		if err != nil {
			return nil, err
		}
		bound[p.Name] = c
		ai++
	}

	for i := range params {
		p := &params[i]
		if p.Binding != types.Variadic {
			continue
		}
		elem := p.Type
		rest := make([]types.Value, 0, len(args)-ai)
		for ; ai < len(args); ai++ {
			v, err := in.adapt(args[ai].val, elem, pos)
			if err != nil {
				return nil, err
			}
			rest = append(rest, v)
		}
		list := types.ListOfValues(elem, rest...)
		bound[p.Name] = &cell{typ: list.Type(), val: list}
	}

	for i := range params {
		p := &params[i]
		invariant.Postcondition(p.Binding == types.Optional || bound[p.Name] != nil,
			"parameter %s must be bound", p.Name)
	}
	return bound, nil
}

// bindOne materializes one parameter cell. A reference-tagged argument of
// the exact parameter type aliases the caller's cell so mutation is
// observed; everything else gets a fresh cell with an adapted copy.
func (in *Interp) bindOne(p *types.Parameter, arg argSlot, pos ast.Position) (*cell, error) {
	if p.Mutable && arg.cell != nil && arg.cell.typ.Equal(p.Type) {
		return arg.cell, nil
	}
	v, err := in.adapt(arg.val, p.Type, pos)
	if err != nil {
		return nil, err
	}
	return &cell{typ: p.Type, val: v.Clone()}, nil
}
