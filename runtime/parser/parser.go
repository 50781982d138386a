// Package parser builds KH syntax trees from token streams.
//
// Parsing happens in two passes because expression parsing is arity-driven:
// juxtaposition application (`mul $x 2`) can only be delimited when the
// callee's parameter count is known. Pass one (ScanSignatures) reads every
// loaded file's `fn` headers without touching bodies; the resolver merges
// those into the signature table; pass two (Parse) then parses bodies and
// the global scope against the full table.
package parser

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/kh-lang/kh/core/ast"
	"github.com/kh-lang/kh/core/invariant"
	"github.com/kh-lang/kh/core/types"
	"github.com/kh-lang/kh/runtime/lexer"
)

// Signatures is the arity oracle pass two parses against. The resolver's
// table satisfies it.
type Signatures interface {
	Lookup(name string) (*types.Signature, bool)
}

// Parser walks one file's token stream.
type Parser struct {
	file   string
	tokens []lexer.Token
	pos    int

	sigs   Signatures
	errors ErrorList

	// currentSig is the signature of the function whose body is being
	// parsed; flag blocks are only legal when it declares the flag.
	currentSig *types.Signature
	loopDepth  int

	logger *slog.Logger
}

func newParser(file string, tokens []lexer.Token, sigs Signatures) *Parser {
	invariant.Precondition(len(tokens) > 0 && tokens[len(tokens)-1].Type == lexer.EOF,
		"token stream must be EOF-terminated")

	logLevel := slog.LevelInfo
	if os.Getenv("KH_DEBUG_PARSER") != "" {
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

	return &Parser{file: file, tokens: tokens, sigs: sigs, logger: logger}
}

// ScanSignatures is pass one: it collects the signature of every `fn`
// definition in the file, skipping bodies, and enforces the parameter
// ordering rule on each list.
func ScanSignatures(file string, tokens []lexer.Token) ([]*types.Signature, error) {
	p := newParser(file, tokens, nil)
	var sigs []*types.Signature

	for !p.atEnd() {
		if p.current().Type != lexer.FN {
			p.advance()
			continue
		}
		sig, err := p.parseHeader()
		if err != nil {
			p.record(err)
			p.synchronize()
			continue
		}
		if err := p.skipBody(); err != nil {
			p.record(err)
			p.synchronize()
			continue
		}
		sigs = append(sigs, sig)
	}
	return sigs, p.errors.Err()
}

// Parse is pass two: the full file against a complete signature table.
func Parse(file string, tokens []lexer.Token, sigs Signatures) (*ast.Program, error) {
	p := newParser(file, tokens, sigs)
	prog := &ast.Program{
		File:   file,
		Global: &ast.Block{},
	}

	for {
		p.skipSeparators()
		if p.atEnd() {
			break
		}
		if p.current().Type == lexer.FN {
			fn, err := p.parseFunctionDef()
			if err != nil {
				p.record(err)
				p.synchronize()
				continue
			}
			prog.Functions = append(prog.Functions, fn)
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			p.record(err)
			p.synchronize()
			continue
		}
		prog.Global.Stmts = append(prog.Global.Stmts, stmt)
	}
	return prog, p.errors.Err()
}

// --- token cursor ---

func (p *Parser) current() lexer.Token { return p.tokens[p.pos] }

func (p *Parser) peek() lexer.Token {
	if p.pos+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) advance() lexer.Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) atEnd() bool { return p.current().Type == lexer.EOF }

func (p *Parser) expect(t lexer.TokenType, what string) (lexer.Token, error) {
	if p.current().Type != t {
		return lexer.Token{}, p.errorf("expected %s, got %s", what, p.current())
	}
	return p.advance(), nil
}

func (p *Parser) errorf(format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{File: p.file, Pos: p.current().Pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) errorAt(pos ast.Position, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{File: p.file, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) record(err error) {
	if se, ok := err.(*SyntaxError); ok {
		p.errors = append(p.errors, se)
		return
	}
	p.errors = append(p.errors, p.errorf("%s", err))
}

// synchronize skips to the next statement boundary after an error.
func (p *Parser) synchronize() {
	for !p.atEnd() {
		switch p.current().Type {
		case lexer.NEWLINE, lexer.SEMICOLON:
			p.advance()
			return
		case lexer.RBRACE:
			return
		}
		p.advance()
	}
}

func (p *Parser) skipSeparators() {
	for p.current().Type == lexer.NEWLINE || p.current().Type == lexer.SEMICOLON {
		p.advance()
	}
}

// --- function headers ---

// parseHeader consumes `fn NAME group* flag* [: Type]`, leaving the cursor
// at the body's opening brace.
func (p *Parser) parseHeader() (*types.Signature, error) {
	if _, err := p.expect(lexer.FN, "fn"); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.WORD, "function name")
	if err != nil {
		return nil, err
	}

	sig := &types.Signature{
		Name:   nameTok.Text,
		Return: types.UnitType,
		Origin: p.file,
	}

	sig.Params, err = p.parseParamGroups()
	if err != nil {
		return nil, err
	}

	for p.current().Type == lexer.FLAG {
		flagTok := p.advance()
		params, err := p.parseParamGroups()
		if err != nil {
			return nil, err
		}
		if _, dup := sig.Flag(flagTok.Text); dup {
			return nil, p.errorAt(flagTok.Pos, "duplicate flag -%s", flagTok.Text)
		}
		sig.Flags = append(sig.Flags, types.Flag{Name: flagTok.Text, Params: params})
	}

	if p.current().Type == lexer.COLON {
		p.advance()
		sig.Return, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}

	if err := sig.Validate(); err != nil {
		return nil, p.errorAt(nameTok.Pos, "%s", err)
	}
	p.logger.Debug("parsed header", "fn", sig.Name, "sig", sig.String())
	return sig, nil
}

// parseParamGroups reads zero or more `!(...)`, `?(...)`, `*(...)` groups
// (a bare `(...)` is required). Ordering across groups is validated by the
// caller through Signature.Validate.
func (p *Parser) parseParamGroups() ([]types.Parameter, error) {
	var params []types.Parameter
	for {
		binding := types.Required
		switch p.current().Type {
		case lexer.BANG:
			if p.peek().Type != lexer.LPAREN {
				return nil, p.errorf("expected ( after !")
			}
			p.advance()
		case lexer.QUESTION:
			if p.peek().Type != lexer.LPAREN {
				return nil, p.errorf("expected ( after ?")
			}
			binding = types.Optional
			p.advance()
		case lexer.STAR:
			if p.peek().Type != lexer.LPAREN {
				return nil, p.errorf("expected ( after *")
			}
			binding = types.Variadic
			p.advance()
		case lexer.LPAREN:
			// bare group is required
		default:
			return params, nil
		}

		p.advance() // consume (
		for {
			mutable := false
			if p.current().Type == lexer.MUT {
				mutable = true
				p.advance()
			}
			nameTok, err := p.expect(lexer.WORD, "parameter name")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.COLON, ":"); err != nil {
				return nil, err
			}
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			params = append(params, types.Parameter{
				Name:    nameTok.Text,
				Type:    typ,
				Binding: binding,
				Mutable: mutable,
			})
			if p.current().Type != lexer.COMMA {
				break
			}
			p.advance()
		}
		if _, err := p.expect(lexer.RPAREN, ")"); err != nil {
			return nil, err
		}
	}
}

// parseType reads a type expression: a primitive name or List[T],
// Option[T], Tuple[T, ...].
func (p *Parser) parseType() (types.Type, error) {
	nameTok, err := p.expect(lexer.WORD, "type name")
	if err != nil {
		return types.Type{}, err
	}

	switch nameTok.Text {
	case "List", "Option", "Tuple":
		if _, err := p.expect(lexer.LBRACKET, "["); err != nil {
			return types.Type{}, err
		}
		var elems []types.Type
		for {
			elem, err := p.parseType()
			if err != nil {
				return types.Type{}, err
			}
			elems = append(elems, elem)
			if p.current().Type != lexer.COMMA {
				break
			}
			p.advance()
		}
		if _, err := p.expect(lexer.RBRACKET, "]"); err != nil {
			return types.Type{}, err
		}
		switch nameTok.Text {
		case "List":
			if len(elems) != 1 {
				return types.Type{}, p.errorAt(nameTok.Pos, "List takes exactly one type argument")
			}
			return types.ListOf(elems[0]), nil
		case "Option":
			if len(elems) != 1 {
				return types.Type{}, p.errorAt(nameTok.Pos, "Option takes exactly one type argument")
			}
			return types.OptionOf(elems[0]), nil
		default:
			return types.TupleOf(elems...), nil
		}
	default:
		typ, ok := types.PrimitiveByName(nameTok.Text)
		if !ok {
			return types.Type{}, p.errorAt(nameTok.Pos, "unknown type %q", nameTok.Text)
		}
		return typ, nil
	}
}

// skipBody consumes a balanced { ... } without interpreting it (pass one).
func (p *Parser) skipBody() error {
	if _, err := p.expect(lexer.LBRACE, "{"); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		if p.atEnd() {
			return p.errorf("unterminated function body")
		}
		switch p.advance().Type {
		case lexer.LBRACE:
			depth++
		case lexer.RBRACE:
			depth--
		}
	}
	return nil
}

// --- function definitions and statements (pass two) ---

func (p *Parser) parseFunctionDef() (*ast.FunctionDef, error) {
	pos := p.current().Pos
	sig, err := p.parseHeader()
	if err != nil {
		return nil, err
	}

	prev := p.currentSig
	p.currentSig = sig
	body, err := p.parseBlock()
	p.currentSig = prev
	if err != nil {
		return nil, err
	}

	return &ast.FunctionDef{Name: sig.Name, Sig: sig, Body: body, Position: pos}, nil
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	open, err := p.expect(lexer.LBRACE, "{")
	if err != nil {
		return nil, err
	}
	block := &ast.Block{Position: open.Pos}

	for {
		p.skipSeparators()
		if p.current().Type == lexer.RBRACE {
			p.advance()
			return block, nil
		}
		if p.atEnd() {
			return nil, p.errorAt(open.Pos, "unterminated block")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)

		switch p.current().Type {
		case lexer.NEWLINE, lexer.SEMICOLON, lexer.RBRACE:
		default:
			return nil, p.errorf("expected end of statement, got %s", p.current())
		}
	}
}

func (p *Parser) parseStatement() (ast.Stmt, error) {
	tok := p.current()
	p.logger.Debug("→ parseStatement", "token", tok.String())

	switch tok.Type {
	case lexer.VARIABLE:
		return p.parseBinding()
	case lexer.IF:
		return p.parseIf()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.FOR:
		return p.parseFor()
	case lexer.RETURN:
		return p.parseReturn()
	case lexer.BREAK:
		if p.loopDepth == 0 {
			return nil, p.errorf("break outside of loop")
		}
		p.advance()
		return &ast.Break{Position: tok.Pos}, nil
	case lexer.ELSE:
		return nil, p.errorf("else without preceding if")
	case lexer.WORD:
		// `continue` is not part of the language; reject it explicitly
		// rather than letting it resolve as a call.
		if tok.Text == "continue" {
			return nil, p.errorf("continue is not supported")
		}
		return p.parsePipeline()
	default:
		return nil, p.errorf("unexpected token %s at start of statement", tok)
	}
}

// parseBinding handles `$x: T = expr` (declaration) and `$x = expr`
// (reassignment).
func (p *Parser) parseBinding() (ast.Stmt, error) {
	nameTok := p.advance()
	switch p.current().Type {
	case lexer.COLON:
		p.advance()
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EQUALS, "="); err != nil {
			return nil, err
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.Decl{Name: nameTok.Text, Type: typ, Value: value, Position: nameTok.Pos}, nil
	case lexer.EQUALS:
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.Assign{Name: nameTok.Text, Value: value, Position: nameTok.Pos}, nil
	default:
		return nil, p.errorf("expected : or = after $%s", nameTok.Text)
	}
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	ifTok := p.advance()

	// `if -flag { ... }` activates a flag scope instead of testing a Bool.
	if p.current().Type == lexer.FLAG {
		flagTok := p.advance()
		if p.currentSig == nil {
			return nil, p.errorAt(flagTok.Pos, "flag block -%s outside of a function body", flagTok.Text)
		}
		if _, ok := p.currentSig.Flag(flagTok.Text); !ok {
			return nil, p.errorAt(flagTok.Pos, "fn %s does not declare flag -%s", p.currentSig.Name, flagTok.Text)
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.FlagBlock{Flag: flagTok.Text, Body: body, Position: ifTok.Pos}, nil
	}

	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	stmt := &ast.If{Cond: cond, Then: then, Position: ifTok.Pos}
	if p.current().Type == lexer.ELSE {
		p.advance()
		if p.current().Type == lexer.IF {
			return nil, p.errorf("else if is not supported; nest the if inside the else block")
		}
		stmt.Else, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	whileTok := p.advance()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.loopDepth++
	body, err := p.parseBlock()
	p.loopDepth--
	if err != nil {
		return nil, err
	}
	return &ast.While{Cond: cond, Body: body, Position: whileTok.Pos}, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	forTok := p.advance()
	nameTok, err := p.expect(lexer.VARIABLE, "loop variable")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.EQUALS, "="); err != nil {
		return nil, err
	}
	from, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.UNTIL, "until"); err != nil {
		return nil, err
	}
	to, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.loopDepth++
	body, err := p.parseBlock()
	p.loopDepth--
	if err != nil {
		return nil, err
	}
	return &ast.ForRange{Var: nameTok.Text, From: from, To: to, Body: body, Position: forTok.Pos}, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	retTok := p.advance()
	stmt := &ast.Return{Position: retTok.Pos}
	if p.startsExpression(p.current()) {
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Value = value
	}
	return stmt, nil
}

// --- command context ---

// parsePipeline parses `call (| call)*`.
func (p *Parser) parsePipeline() (ast.Stmt, error) {
	pos := p.current().Pos
	first, err := p.parseCommandCall()
	if err != nil {
		return nil, err
	}
	pipeline := &ast.Pipeline{Stages: []*ast.Call{first}, Position: pos}
	for p.current().Type == lexer.PIPE {
		p.advance()
		p.skipSeparators() // allow `a |\n  b`
		stage, err := p.parseCommandCall()
		if err != nil {
			return nil, err
		}
		pipeline.Stages = append(pipeline.Stages, stage)
	}
	return pipeline, nil
}

// parseCommandCall parses a command-context call: the head word, then bare
// arguments and flags until a statement terminator. Argument words are
// string literals here (the Bash personality); nesting needs parentheses.
func (p *Parser) parseCommandCall() (*ast.Call, error) {
	nameTok, err := p.expect(lexer.WORD, "command name")
	if err != nil {
		return nil, err
	}
	call := &ast.Call{Name: nameTok.Text, Position: nameTok.Pos}
	sig, _ := p.lookup(nameTok.Text)

	for {
		tok := p.current()
		switch {
		case tok.Type == lexer.FLAG:
			flagArg, err := p.parseFlagArg(sig)
			if err != nil {
				return nil, err
			}
			call.Flags = append(call.Flags, *flagArg)
		case p.startsExpression(tok):
			arg, err := p.parseCommandArg()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, ast.Arg{Expr: arg})
		default:
			return call, nil
		}
	}
}

// parseCommandArg parses one command-context argument: a literal, a
// variable, or a parenthesized expression.
func (p *Parser) parseCommandArg() (ast.Expr, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.WORD:
		p.advance()
		return &ast.Literal{Value: types.Str(tok.Text), Bare: true, Position: tok.Pos}, nil
	default:
		return p.parsePrimary()
	}
}

// parseFlagArg parses `-name arg*` at a call site. When the callee's
// signature (and therefore the flag's own parameter list) is known, the
// flag absorbs its required parameters and then fills optional/variadic
// slots until the next flag or terminator; when unknown, it absorbs
// greedily and the resolver reports the real problem.
func (p *Parser) parseFlagArg(sig *types.Signature) (*ast.FlagArg, error) {
	flagTok := p.advance()
	flagArg := &ast.FlagArg{Name: flagTok.Text, Position: flagTok.Pos}

	var required int
	var bounded bool
	var max int
	if sig != nil {
		if f, ok := sig.Flag(flagTok.Text); ok {
			var optional int
			var variadic bool
			required, optional, variadic = types.Arity(f.Params)
			bounded = !variadic
			max = required + optional
		}
	}

	for i := 0; ; i++ {
		tok := p.current()
		if tok.Type == lexer.FLAG || !p.startsExpression(tok) {
			break
		}
		if bounded && i >= max {
			break
		}
		arg, err := p.parseCommandArg()
		if err != nil {
			return nil, err
		}
		flagArg.Args = append(flagArg.Args, ast.Arg{Expr: arg})
	}

	if len(flagArg.Args) < required {
		return nil, p.errorAt(flagTok.Pos, "flag -%s requires %d argument(s), got %d",
			flagTok.Text, required, len(flagArg.Args))
	}
	return flagArg, nil
}

// --- expression context ---

// parseExpression parses a value-context expression. A word naming a known
// function becomes a call; at this spine level the call may also fill its
// optional and variadic slots and take flags.
func (p *Parser) parseExpression() (ast.Expr, error) {
	tok := p.current()
	if tok.Type == lexer.WORD {
		if sig, ok := p.lookup(tok.Text); ok {
			p.advance()
			return p.parseExprCall(tok, sig, true)
		}
	}
	return p.parsePrimary()
}

// parseExprCall parses juxtaposition application against a known arity.
// Nested (non-spine) calls consume exactly their required parameters;
// optional and variadic slots can only be filled at the spine or inside
// parentheses, which is what makes arity-driven parsing deterministic.
func (p *Parser) parseExprCall(nameTok lexer.Token, sig *types.Signature, spine bool) (ast.Expr, error) {
	call := &ast.Call{Name: nameTok.Text, Position: nameTok.Pos}
	required, _, _ := types.Arity(sig.Params)

	for i := 0; i < required; i++ {
		if !p.startsExpression(p.current()) {
			return nil, p.errorAt(nameTok.Pos, "fn %s requires %d argument(s), got %d",
				sig.Name, required, i)
		}
		arg, err := p.parseExprArg()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, ast.Arg{Expr: arg})
	}

	if spine {
		for {
			tok := p.current()
			switch {
			case tok.Type == lexer.FLAG:
				flagArg, err := p.parseFlagArg(sig)
				if err != nil {
					return nil, err
				}
				call.Flags = append(call.Flags, *flagArg)
			case p.startsExpression(tok):
				arg, err := p.parseExprArg()
				if err != nil {
					return nil, err
				}
				call.Args = append(call.Args, ast.Arg{Expr: arg})
			default:
				return call, nil
			}
		}
	}
	return call, nil
}

// parseExprArg parses one argument in expression context: a primary, or a
// nested call of a known function consuming its required arity.
func (p *Parser) parseExprArg() (ast.Expr, error) {
	tok := p.current()
	if tok.Type == lexer.WORD {
		if sig, ok := p.lookup(tok.Text); ok {
			p.advance()
			return p.parseExprCall(tok, sig, false)
		}
		// Unknown words are bare string literals, as in command context.
		p.advance()
		return &ast.Literal{Value: types.Str(tok.Text), Bare: true, Position: tok.Pos}, nil
	}
	return p.parsePrimary()
}

// parsePrimary parses literals, variables, and parenthesized expressions.
func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.INT:
		p.advance()
		n, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return nil, p.errorAt(tok.Pos, "integer literal %s out of range", tok.Text)
		}
		return &ast.Literal{Value: types.IntOf(n), Position: tok.Pos}, nil
	case lexer.STRING:
		p.advance()
		return &ast.Literal{Value: types.Str(tok.Text), Position: tok.Pos}, nil
	case lexer.TRUE:
		p.advance()
		return &ast.Literal{Value: types.BoolOf(true), Position: tok.Pos}, nil
	case lexer.FALSE:
		p.advance()
		return &ast.Literal{Value: types.BoolOf(false), Position: tok.Pos}, nil
	case lexer.VARIABLE:
		p.advance()
		return &ast.VarRef{Name: tok.Text, Position: tok.Pos}, nil
	case lexer.WORD:
		p.advance()
		return &ast.Literal{Value: types.Str(tok.Text), Bare: true, Position: tok.Pos}, nil
	case lexer.LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN, ")"); err != nil {
			return nil, err
		}
		return expr, nil
	default:
		return nil, p.errorf("expected expression, got %s", tok)
	}
}

func (p *Parser) startsExpression(tok lexer.Token) bool {
	switch tok.Type {
	case lexer.INT, lexer.STRING, lexer.TRUE, lexer.FALSE, lexer.VARIABLE, lexer.WORD, lexer.LPAREN:
		return true
	}
	return false
}

func (p *Parser) lookup(name string) (*types.Signature, bool) {
	if p.sigs == nil {
		return nil, false
	}
	return p.sigs.Lookup(name)
}
