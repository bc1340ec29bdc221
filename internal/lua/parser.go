package lua

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports a malformed token sequence. Parsing stops at the first
// error; no partial AST is returned.
type ParseError struct {
	Pos      Pos
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: expected %s, found %s", e.Pos, e.Expected, e.Found)
}

// Parser is a recursive-descent parser with one token of lookahead. Scope
// resolution happens inline: every identifier expression is bound to a
// Declaration (or left global) at the point it is parsed.
type Parser struct {
	dialect Dialect
	tokens  []Token
	pos     int

	scope      *Scope
	nextDeclID int
}

// NewParser creates a parser for the given dialect.
func NewParser(dialect Dialect) *Parser {
	return &Parser{dialect: dialect}
}

// Parse consumes a token stream (as produced by Lexer.Tokenize) and returns
// the chunk with all variable references resolved.
func (p *Parser) Parse(tokens []Token) (*Chunk, error) {
	p.tokens = tokens
	p.pos = 0
	p.nextDeclID = 1
	p.scope = &Scope{Function: true}

	chunk := &Chunk{Dialect: p.dialect}
	body, err := p.parseBlockInto(p.scope)
	if err != nil {
		return nil, err
	}
	if !p.at(TokenEOF, "") {
		return nil, p.errExpected("end of input")
	}
	chunk.Body = body
	chunk.NextDeclID = p.nextDeclID
	return chunk, nil
}

// ParseSource is a convenience wrapper that lexes and parses in one call.
func ParseSource(src string, dialect Dialect) (*Chunk, error) {
	tokens, err := NewLexer(dialect).Tokenize(src)
	if err != nil {
		return nil, err
	}
	return NewParser(dialect).Parse(tokens)
}

// --- token helpers ---

func (p *Parser) cur() Token { return p.tokens[p.pos] }

func (p *Parser) peekAt(ahead int) Token {
	if p.pos+ahead < len(p.tokens) {
		return p.tokens[p.pos+ahead]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) next() Token {
	t := p.tokens[p.pos]
	if t.Type != TokenEOF {
		p.pos++
	}
	return t
}

// at reports whether the current token matches. Empty value matches any
// token of the type.
func (p *Parser) at(typ TokenType, value string) bool {
	t := p.cur()
	return t.Type == typ && (value == "" || t.Value == value)
}

func (p *Parser) accept(typ TokenType, value string) bool {
	if p.at(typ, value) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(typ TokenType, value string) (Token, error) {
	if !p.at(typ, value) {
		want := value
		if want == "" {
			want = typ.String()
		}
		return Token{}, p.errExpected("'" + want + "'")
	}
	return p.next(), nil
}

func (p *Parser) errExpected(expected string) error {
	t := p.cur()
	found := t.Value
	if t.Type == TokenEOF {
		found = "end of input"
	} else {
		found = "'" + found + "'"
	}
	return &ParseError{Pos: t.Pos, Expected: expected, Found: found}
}

func (p *Parser) newDecl(name string, kind DeclKind, pos Pos) *Declaration {
	d := &Declaration{Name: name, ID: p.nextDeclID, Kind: kind, Pos: pos}
	p.nextDeclID++
	return d
}

// --- blocks and statements ---

func blockEnds(t Token) bool {
	if t.Type == TokenEOF {
		return true
	}
	if t.Type != TokenKeyword {
		return false
	}
	switch t.Value {
	case "end", "else", "elseif", "until":
		return true
	}
	return false
}

// parseBlock parses a block in a fresh child scope.
func (p *Parser) parseBlock() (*Block, error) {
	return p.parseBlockInto(NewScope(p.scope))
}

// parseBlockInto parses statements until a block terminator using the given
// scope as the block's own scope.
func (p *Parser) parseBlockInto(scope *Scope) (*Block, error) {
	block := &Block{Pos: p.cur().Pos, Scope: scope}
	prev := p.scope
	p.scope = scope
	defer func() { p.scope = prev }()

	for !blockEnds(p.cur()) {
		if p.accept(TokenSymbol, ";") {
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
		// return ends the block (an optional ';' may follow).
		if _, isReturn := stmt.(*ReturnStmt); isReturn {
			p.accept(TokenSymbol, ";")
			break
		}
	}
	return block, nil
}

func (p *Parser) parseStatement() (Stmt, error) {
	t := p.cur()
	if t.Type == TokenKeyword {
		switch t.Value {
		case "local":
			return p.parseLocal()
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "repeat":
			return p.parseRepeat()
		case "for":
			return p.parseFor()
		case "function":
			return p.parseFunctionDecl()
		case "do":
			p.next()
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenKeyword, "end"); err != nil {
				return nil, err
			}
			return &DoStmt{Pos: t.Pos, Body: body}, nil
		case "return":
			return p.parseReturn()
		case "break":
			p.next()
			return &BreakStmt{Pos: t.Pos}, nil
		case "continue":
			p.next()
			return &ContinueStmt{Pos: t.Pos}, nil
		}
		return nil, p.errExpected("statement")
	}
	if t.Is(TokenOperator, "::") {
		p.next()
		name, err := p.expect(TokenIdent, "")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenOperator, "::"); err != nil {
			return nil, err
		}
		return &LabelStmt{Pos: t.Pos, Name: name.Value}, nil
	}
	// `goto` is not reserved; recognize it by shape.
	if t.Type == TokenIdent && t.Value == "goto" && p.peekAt(1).Type == TokenIdent {
		p.next()
		name := p.next()
		return &GotoStmt{Pos: t.Pos, Label: name.Value}, nil
	}
	return p.parseExprOrAssign()
}

func (p *Parser) parseLocal() (Stmt, error) {
	start := p.next() // local
	if p.at(TokenKeyword, "function") {
		p.next()
		name, err := p.expect(TokenIdent, "")
		if err != nil {
			return nil, err
		}
		// The name is visible inside the body so recursion resolves.
		decl := p.newDecl(name.Value, DeclLocal, name.Pos)
		p.scope.Declare(decl)
		fn, err := p.parseFunctionBody(name.Pos, false)
		if err != nil {
			return nil, err
		}
		return &FunctionDeclStmt{Pos: start.Pos, IsLocal: true, Decl: decl, Func: fn}, nil
	}

	var names []Token
	for {
		name, err := p.expect(TokenIdent, "")
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		p.skipTypeAnnotation()
		if !p.accept(TokenSymbol, ",") {
			break
		}
	}
	stmt := &LocalStmt{Pos: start.Pos}
	if p.accept(TokenOperator, "=") {
		exprs, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		stmt.Exprs = exprs
	}
	// Initializers are resolved before the new names are declared, so
	// `local x = x` sees the outer x.
	for _, name := range names {
		decl := p.newDecl(name.Value, DeclLocal, name.Pos)
		p.scope.Declare(decl)
		stmt.Decls = append(stmt.Decls, decl)
	}
	return stmt, nil
}

func (p *Parser) parseIf() (Stmt, error) {
	start := p.next() // if
	stmt := &IfStmt{Pos: start.Pos}
	for {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenKeyword, "then"); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Clauses = append(stmt.Clauses, IfClause{Cond: cond, Body: body})
		if p.accept(TokenKeyword, "elseif") {
			continue
		}
		break
	}
	if p.accept(TokenKeyword, "else") {
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Else = body
	}
	if _, err := p.expect(TokenKeyword, "end"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	start := p.next() // while
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenKeyword, "do"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenKeyword, "end"); err != nil {
		return nil, err
	}
	return &WhileStmt{Pos: start.Pos, Cond: cond, Body: body}, nil
}

func (p *Parser) parseRepeat() (Stmt, error) {
	start := p.next() // repeat
	// The until condition can see the body's locals, so parse it inside the
	// body's scope.
	scope := NewScope(p.scope)
	body, err := p.parseBlockInto(scope)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenKeyword, "until"); err != nil {
		return nil, err
	}
	prev := p.scope
	p.scope = scope
	cond, err := p.parseExpr()
	p.scope = prev
	if err != nil {
		return nil, err
	}
	return &RepeatStmt{Pos: start.Pos, Body: body, Cond: cond}, nil
}

func (p *Parser) parseFor() (Stmt, error) {
	start := p.next() // for
	first, err := p.expect(TokenIdent, "")
	if err != nil {
		return nil, err
	}
	p.skipTypeAnnotation()

	if p.accept(TokenOperator, "=") {
		// Numeric for: bounds resolve in the enclosing scope.
		startExpr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenSymbol, ","); err != nil {
			return nil, err
		}
		stopExpr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		var stepExpr Expr
		if p.accept(TokenSymbol, ",") {
			stepExpr, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(TokenKeyword, "do"); err != nil {
			return nil, err
		}
		scope := NewScope(p.scope)
		decl := p.newDecl(first.Value, DeclLocal, first.Pos)
		scope.Declare(decl)
		body, err := p.parseBlockInto(scope)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenKeyword, "end"); err != nil {
			return nil, err
		}
		return &NumericForStmt{
			Pos: start.Pos, Var: decl,
			Start: startExpr, Stop: stopExpr, Step: stepExpr, Body: body,
		}, nil
	}

	names := []Token{first}
	for p.accept(TokenSymbol, ",") {
		name, err := p.expect(TokenIdent, "")
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		p.skipTypeAnnotation()
	}
	if _, err := p.expect(TokenKeyword, "in"); err != nil {
		return nil, err
	}
	exprs, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenKeyword, "do"); err != nil {
		return nil, err
	}
	scope := NewScope(p.scope)
	stmt := &GenericForStmt{Pos: start.Pos, Exprs: exprs}
	for _, name := range names {
		decl := p.newDecl(name.Value, DeclLocal, name.Pos)
		scope.Declare(decl)
		stmt.Vars = append(stmt.Vars, decl)
	}
	body, err := p.parseBlockInto(scope)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenKeyword, "end"); err != nil {
		return nil, err
	}
	stmt.Body = body
	return stmt, nil
}

func (p *Parser) parseFunctionDecl() (Stmt, error) {
	start := p.next() // function
	name, err := p.expect(TokenIdent, "")
	if err != nil {
		return nil, err
	}
	var target Expr
	if decl := p.scope.Lookup(name.Value); decl != nil {
		target = &VariableRef{Pos: name.Pos, Name: name.Value, Decl: decl}
	} else {
		target = &VariableRef{Pos: name.Pos, Name: name.Value}
	}
	isMethod := false
	for {
		if p.accept(TokenSymbol, ".") {
			field, err := p.expect(TokenIdent, "")
			if err != nil {
				return nil, err
			}
			target = &IndexExpr{Pos: field.Pos, Obj: target, Key: Str(field.Value), Dot: true}
			continue
		}
		if p.accept(TokenSymbol, ":") {
			field, err := p.expect(TokenIdent, "")
			if err != nil {
				return nil, err
			}
			target = &IndexExpr{Pos: field.Pos, Obj: target, Key: Str(field.Value), Dot: true}
			isMethod = true
		}
		break
	}
	fn, err := p.parseFunctionBody(start.Pos, isMethod)
	if err != nil {
		return nil, err
	}
	return &FunctionDeclStmt{Pos: start.Pos, Target: target, IsMethod: isMethod, Func: fn}, nil
}

// parseFunctionBody parses `( params ) block end`. When isMethod is set an
// implicit `self` parameter is declared first.
func (p *Parser) parseFunctionBody(pos Pos, isMethod bool) (*FunctionExpr, error) {
	if _, err := p.expect(TokenSymbol, "("); err != nil {
		return nil, err
	}
	scope := NewScope(p.scope)
	scope.Function = true
	fn := &FunctionExpr{Pos: pos}
	if isMethod {
		self := p.newDecl("self", DeclParam, pos)
		scope.Declare(self)
		fn.Params = append(fn.Params, self)
		fn.ImplicitSelf = true
	}
	for !p.at(TokenSymbol, ")") {
		if p.accept(TokenOperator, "...") {
			fn.IsVararg = true
			p.skipTypeAnnotation()
			break
		}
		name, err := p.expect(TokenIdent, "")
		if err != nil {
			return nil, err
		}
		p.skipTypeAnnotation()
		decl := p.newDecl(name.Value, DeclParam, name.Pos)
		scope.Declare(decl)
		fn.Params = append(fn.Params, decl)
		if !p.accept(TokenSymbol, ",") {
			break
		}
	}
	if _, err := p.expect(TokenSymbol, ")"); err != nil {
		return nil, err
	}
	p.skipReturnTypeAnnotation()
	body, err := p.parseBlockInto(scope)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenKeyword, "end"); err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

func (p *Parser) parseReturn() (Stmt, error) {
	start := p.next() // return
	stmt := &ReturnStmt{Pos: start.Pos}
	if blockEnds(p.cur()) || p.at(TokenSymbol, ";") {
		return stmt, nil
	}
	exprs, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	stmt.Exprs = exprs
	return stmt, nil
}

// Luau compound assignment operators mapped to the binary operator applied.
var compoundOps = map[string]string{
	"+=": "+", "-=": "-", "*=": "*", "/=": "/",
	"%=": "%", "^=": "^", "..=": "..",
}

func (p *Parser) parseExprOrAssign() (Stmt, error) {
	start := p.cur()
	first, err := p.parseSuffixedExpr()
	if err != nil {
		return nil, err
	}

	if p.dialect == Luau && p.cur().Type == TokenOperator {
		if op, ok := compoundOps[p.cur().Value]; ok {
			if !isAssignable(first) {
				return nil, p.errExpected("assignable expression")
			}
			p.next()
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return &AssignStmt{Pos: start.Pos, Targets: []Expr{first}, Exprs: []Expr{value}, Op: op}, nil
		}
	}

	if p.at(TokenSymbol, ",") || p.at(TokenOperator, "=") {
		targets := []Expr{first}
		for p.accept(TokenSymbol, ",") {
			target, err := p.parseSuffixedExpr()
			if err != nil {
				return nil, err
			}
			targets = append(targets, target)
		}
		for _, target := range targets {
			if !isAssignable(target) {
				return nil, &ParseError{Pos: target.Position(), Expected: "assignable expression", Found: "expression"}
			}
		}
		if _, err := p.expect(TokenOperator, "="); err != nil {
			return nil, err
		}
		exprs, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Pos: start.Pos, Targets: targets, Exprs: exprs}, nil
	}

	switch first.(type) {
	case *CallExpr, *MethodCallExpr:
		return &ExprStmt{Pos: start.Pos, Call: first}, nil
	}
	return nil, &ParseError{Pos: start.Pos, Expected: "statement", Found: "'" + start.Value + "'"}
}

func isAssignable(e Expr) bool {
	switch e.(type) {
	case *VariableRef, *IndexExpr:
		return true
	}
	return false
}

// --- expressions ---

func (p *Parser) parseExprList() ([]Expr, error) {
	var exprs []Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
		if !p.accept(TokenSymbol, ",") {
			break
		}
	}
	return exprs, nil
}

// Binary operator precedence; pairs are (left, right) binding powers so that
// right-associative operators (`..`, `^`) use a lower right power.
var binaryPrec = map[string][2]int{
	"or":  {1, 1},
	"and": {2, 2},
	"<":   {3, 3}, ">": {3, 3}, "<=": {3, 3}, ">=": {3, 3}, "~=": {3, 3}, "==": {3, 3},
	"..": {5, 4},
	"+":  {6, 6}, "-": {6, 6},
	"*": {7, 7}, "/": {7, 7}, "%": {7, 7}, "//": {7, 7},
	"^": {10, 9},
}

const unaryPrec = 8

func (p *Parser) parseExpr() (Expr, error) {
	return p.parseBinaryExpr(0)
}

func (p *Parser) parseBinaryExpr(limit int) (Expr, error) {
	left, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		var op string
		if t.Type == TokenOperator {
			op = t.Value
		} else if t.Type == TokenKeyword && (t.Value == "and" || t.Value == "or") {
			op = t.Value
		} else {
			break
		}
		prec, ok := binaryPrec[op]
		if !ok || prec[0] <= limit {
			break
		}
		p.next()
		right, err := p.parseBinaryExpr(prec[1])
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Pos: t.Pos, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnaryExpr() (Expr, error) {
	t := p.cur()
	if t.Is(TokenOperator, "-") || t.Is(TokenOperator, "#") || t.IsKeyword("not") {
		p.next()
		operand, err := p.parseBinaryExpr(unaryPrec)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Pos: t.Pos, Op: t.Value, Operand: operand}, nil
	}
	return p.parseSuffixedExpr()
}

func (p *Parser) parsePrimaryExpr() (Expr, error) {
	t := p.cur()
	switch {
	case t.Type == TokenNumber:
		p.next()
		num, err := parseNumber(t.Value)
		if err != nil {
			return nil, &ParseError{Pos: t.Pos, Expected: "number", Found: "'" + t.Value + "'"}
		}
		return &Literal{Pos: t.Pos, Kind: LiteralNumber, Num: num, Raw: t.Value}, nil
	case t.Type == TokenString:
		p.next()
		return &Literal{Pos: t.Pos, Kind: LiteralString, Str: t.Value}, nil
	case t.IsKeyword("nil"):
		p.next()
		return &Literal{Pos: t.Pos, Kind: LiteralNil}, nil
	case t.IsKeyword("true"), t.IsKeyword("false"):
		p.next()
		return &Literal{Pos: t.Pos, Kind: LiteralBool, Bool: t.Value == "true"}, nil
	case t.IsKeyword("function"):
		p.next()
		return p.parseFunctionBody(t.Pos, false)
	case t.Is(TokenOperator, "..."):
		p.next()
		return &VarargExpr{Pos: t.Pos}, nil
	case t.Is(TokenSymbol, "{"):
		return p.parseTable()
	case t.Is(TokenSymbol, "("):
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenSymbol, ")"); err != nil {
			return nil, err
		}
		return e, nil
	case t.Type == TokenIdent:
		p.next()
		return &VariableRef{Pos: t.Pos, Name: t.Value, Decl: p.scope.Lookup(t.Value)}, nil
	}
	return nil, p.errExpected("expression")
}

func (p *Parser) parseSuffixedExpr() (Expr, error) {
	e, err := p.parsePrimaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		switch {
		case t.Is(TokenSymbol, "."):
			p.next()
			name, err := p.expect(TokenIdent, "")
			if err != nil {
				return nil, err
			}
			e = &IndexExpr{Pos: t.Pos, Obj: e, Key: Str(name.Value), Dot: true}
		case t.Is(TokenSymbol, "["):
			p.next()
			key, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenSymbol, "]"); err != nil {
				return nil, err
			}
			e = &IndexExpr{Pos: t.Pos, Obj: e, Key: key}
		case t.Is(TokenSymbol, ":") && p.peekAt(1).Type == TokenIdent:
			p.next()
			name := p.next()
			args, ok, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, p.errExpected("method call arguments")
			}
			e = &MethodCallExpr{Pos: t.Pos, Recv: e, Method: name.Value, Args: args}
		default:
			args, ok, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			if !ok {
				return e, nil
			}
			e = &CallExpr{Pos: t.Pos, Fn: e, Args: args}
		}
	}
}

// parseCallArgs parses `(...)`, a string literal, or a table constructor as
// call arguments. The second return is false when the cursor is not on any
// argument form.
func (p *Parser) parseCallArgs() ([]Expr, bool, error) {
	t := p.cur()
	switch {
	case t.Is(TokenSymbol, "("):
		p.next()
		var args []Expr
		if !p.at(TokenSymbol, ")") {
			var err error
			args, err = p.parseExprList()
			if err != nil {
				return nil, false, err
			}
		}
		if _, err := p.expect(TokenSymbol, ")"); err != nil {
			return nil, false, err
		}
		return args, true, nil
	case t.Type == TokenString:
		p.next()
		return []Expr{&Literal{Pos: t.Pos, Kind: LiteralString, Str: t.Value}}, true, nil
	case t.Is(TokenSymbol, "{"):
		table, err := p.parseTable()
		if err != nil {
			return nil, false, err
		}
		return []Expr{table}, true, nil
	}
	return nil, false, nil
}

func (p *Parser) parseTable() (Expr, error) {
	start, err := p.expect(TokenSymbol, "{")
	if err != nil {
		return nil, err
	}
	table := &TableExpr{Pos: start.Pos}
	for !p.at(TokenSymbol, "}") {
		var field TableField
		switch {
		case p.at(TokenSymbol, "["):
			p.next()
			key, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenSymbol, "]"); err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenOperator, "="); err != nil {
				return nil, err
			}
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			field = TableField{Key: key, Value: value}
		case p.cur().Type == TokenIdent && p.peekAt(1).Is(TokenOperator, "="):
			name := p.next()
			p.next() // =
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			field = TableField{Key: Str(name.Value), NameKey: true, Value: value}
		default:
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			field = TableField{Value: value}
		}
		table.Fields = append(table.Fields, field)
		if !p.accept(TokenSymbol, ",") && !p.accept(TokenSymbol, ";") {
			break
		}
	}
	if _, err := p.expect(TokenSymbol, "}"); err != nil {
		return nil, err
	}
	return table, nil
}

// --- Luau type annotations ---

// skipTypeAnnotation discards `: T` after a name. Annotations are not part
// of the obfuscation model; they are consumed and dropped. Only Luau input
// carries them.
func (p *Parser) skipTypeAnnotation() {
	if p.dialect != Luau || !p.at(TokenSymbol, ":") {
		return
	}
	// Don't confuse a method call `:name(` for an annotation.
	if p.peekAt(1).Type == TokenIdent && p.peekAt(2).Is(TokenSymbol, "(") {
		return
	}
	p.next()
	p.skipTypeTokens()
}

func (p *Parser) skipReturnTypeAnnotation() {
	if p.dialect != Luau || !p.at(TokenSymbol, ":") {
		return
	}
	p.next()
	p.skipTypeTokens()
}

// skipTypeTokens consumes a type expression: a type atom optionally followed
// by `->` and a result type. Union/intersection/optional sugar is not lexed
// by this dialect subset and therefore cannot appear here.
func (p *Parser) skipTypeTokens() {
	p.skipTypeAtom()
	// Function types: (T) -> R
	if p.at(TokenOperator, "-") && p.peekAt(1).Is(TokenOperator, ">") {
		p.next()
		p.next()
		p.skipTypeTokens()
	}
}

// skipTypeAtom consumes one type atom: `Name`, `Name.Name`, `Name<...>`,
// `{...}`, `(...)`, or the literal types nil/true/false/string.
func (p *Parser) skipTypeAtom() {
	t := p.cur()
	switch {
	case t.Is(TokenSymbol, "("):
		p.skipBalanced("(", ")")
	case t.Is(TokenSymbol, "{"):
		p.skipBalanced("{", "}")
	case t.Type == TokenString || t.IsKeyword("nil") || t.IsKeyword("true") || t.IsKeyword("false"):
		p.next()
	case t.Type == TokenIdent:
		p.next()
		for p.at(TokenSymbol, ".") && p.peekAt(1).Type == TokenIdent {
			p.next()
			p.next()
		}
		if p.at(TokenOperator, "<") {
			p.skipBalanced("<", ">")
		}
	}
}

// skipBalanced consumes from an opening token through its matching closer.
func (p *Parser) skipBalanced(open, close string) {
	depth := 0
	for {
		t := p.cur()
		if t.Type == TokenEOF {
			return
		}
		if t.Value == open && (t.Type == TokenSymbol || t.Type == TokenOperator) {
			depth++
		} else if t.Value == close && (t.Type == TokenSymbol || t.Type == TokenOperator) {
			depth--
			if depth == 0 {
				p.next()
				return
			}
		}
		p.next()
	}
}

// parseNumber evaluates a numeric literal's value.
func parseNumber(text string) (float64, error) {
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		n, err := strconv.ParseUint(text[2:], 16, 64)
		if err != nil {
			return 0, err
		}
		return float64(n), nil
	}
	return strconv.ParseFloat(text, 64)
}
