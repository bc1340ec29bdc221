package lua

import (
	"fmt"
	"strconv"
	"strings"
)

// PrintMode selects the output style.
type PrintMode int

const (
	// Compact emits the fewest separators that keep the token stream
	// unambiguous; statements are joined with semicolons.
	Compact PrintMode = iota
	// Pretty emits one statement per line with indentation. Purely
	// cosmetic; the token stream is identical to Compact's.
	Pretty
)

// Printer serializes an AST back to source text. The output re-tokenizes and
// re-parses to a structurally equivalent tree.
type Printer struct {
	mode   PrintMode
	sb     strings.Builder
	indent int
}

// NewPrinter creates a printer with the given mode.
func NewPrinter(mode PrintMode) *Printer {
	return &Printer{mode: mode}
}

// Print renders the chunk.
func (p *Printer) Print(chunk *Chunk) string {
	p.sb.Reset()
	p.printBlockBody(chunk.Body)
	return p.sb.String()
}

// PrintChunk is a convenience wrapper.
func PrintChunk(chunk *Chunk, mode PrintMode) string {
	return NewPrinter(mode).Print(chunk)
}

// --- low-level emission ---

// write appends text, inserting a space when the previous and next character
// would otherwise merge into a different token (identifier glue, `--`
// becoming a comment, `..` swallowing a neighbouring dot or digit).
func (p *Printer) write(text string) {
	if text == "" {
		return
	}
	out := p.sb.String()
	if out != "" {
		last := out[len(out)-1]
		first := text[0]
		if needsGap(last, first) {
			p.sb.WriteByte(' ')
		}
	}
	p.sb.WriteString(text)
}

func needsGap(last, first byte) bool {
	switch {
	case isIdentPart(last) && isIdentPart(first):
		return true
	case last == '-' && first == '-':
		return true
	case isDigit(last) && first == '.':
		return true
	case last == '.' && first == '.':
		return true
	}
	return false
}

// space writes a cosmetic space in pretty mode only.
func (p *Printer) space() {
	if p.mode == Pretty {
		p.sb.WriteByte(' ')
	}
}

func (p *Printer) newStmt(first bool) {
	if first {
		return
	}
	if p.mode == Pretty {
		p.sb.WriteByte('\n')
		p.sb.WriteString(strings.Repeat("    ", p.indent))
	} else {
		p.sb.WriteByte(';')
	}
}

func (p *Printer) openBlock() {
	if p.mode == Pretty {
		p.indent++
		p.sb.WriteByte('\n')
		p.sb.WriteString(strings.Repeat("    ", p.indent))
	}
}

func (p *Printer) closeBlock() {
	if p.mode == Pretty {
		p.indent--
		p.sb.WriteByte('\n')
		p.sb.WriteString(strings.Repeat("    ", p.indent))
	}
}

// --- statements ---

func (p *Printer) printBlockBody(b *Block) {
	for i, s := range b.Stmts {
		p.newStmt(i == 0)
		p.printStmt(s)
	}
}

// printNestedBlock prints a block that sits between keywords (then/do/etc).
func (p *Printer) printNestedBlock(b *Block) {
	if len(b.Stmts) == 0 {
		return
	}
	p.openBlock()
	for i, s := range b.Stmts {
		p.newStmt(i == 0)
		p.printStmt(s)
	}
	p.closeBlock()
}

func (p *Printer) printStmt(s Stmt) {
	switch n := s.(type) {
	case *LocalStmt:
		p.write("local")
		for i, d := range n.Decls {
			if i > 0 {
				p.write(",")
				p.space()
			}
			p.write(d.Name)
		}
		if len(n.Exprs) > 0 {
			p.space()
			p.write("=")
			p.space()
			p.printExprList(n.Exprs)
		}
	case *AssignStmt:
		for i, t := range n.Targets {
			if i > 0 {
				p.write(",")
				p.space()
			}
			p.printExpr(t, 0)
		}
		p.space()
		if n.Op != "" {
			p.write(n.Op + "=")
		} else {
			p.write("=")
		}
		p.space()
		p.printExprList(n.Exprs)
	case *IfStmt:
		for i, cl := range n.Clauses {
			if i == 0 {
				p.write("if")
			} else {
				p.write("elseif")
			}
			p.printExpr(cl.Cond, 0)
			p.write("then")
			p.printNestedBlock(cl.Body)
		}
		if n.Else != nil {
			p.write("else")
			p.printNestedBlock(n.Else)
		}
		p.write("end")
	case *WhileStmt:
		p.write("while")
		p.printExpr(n.Cond, 0)
		p.write("do")
		p.printNestedBlock(n.Body)
		p.write("end")
	case *RepeatStmt:
		p.write("repeat")
		p.printNestedBlock(n.Body)
		p.write("until")
		p.printExpr(n.Cond, 0)
	case *NumericForStmt:
		p.write("for")
		p.write(n.Var.Name)
		p.space()
		p.write("=")
		p.space()
		p.printExpr(n.Start, 0)
		p.write(",")
		p.space()
		p.printExpr(n.Stop, 0)
		if n.Step != nil {
			p.write(",")
			p.space()
			p.printExpr(n.Step, 0)
		}
		p.write("do")
		p.printNestedBlock(n.Body)
		p.write("end")
	case *GenericForStmt:
		p.write("for")
		for i, d := range n.Vars {
			if i > 0 {
				p.write(",")
				p.space()
			}
			p.write(d.Name)
		}
		p.write("in")
		p.printExprList(n.Exprs)
		p.write("do")
		p.printNestedBlock(n.Body)
		p.write("end")
	case *FunctionDeclStmt:
		if n.IsLocal {
			p.write("local")
			p.write("function")
			p.write(n.Decl.Name)
		} else {
			p.write("function")
			p.printFunctionTarget(n.Target, n.IsMethod)
		}
		p.printParamsAndBody(n.Func)
	case *ReturnStmt:
		p.write("return")
		if len(n.Exprs) > 0 {
			p.printExprList(n.Exprs)
		}
	case *BreakStmt:
		p.write("break")
	case *ContinueStmt:
		p.write("continue")
	case *GotoStmt:
		p.write("goto")
		p.write(n.Label)
	case *LabelStmt:
		p.write("::" + n.Name + "::")
	case *DoStmt:
		p.write("do")
		p.printNestedBlock(n.Body)
		p.write("end")
	case *ExprStmt:
		p.printExpr(n.Call, 0)
	}
}

// printFunctionTarget renders `a.b.c` / `a.b:c` declaration heads. The
// parser stores the method name as the last dotted index with IsMethod set
// on the statement.
func (p *Printer) printFunctionTarget(target Expr, isMethod bool) {
	if isMethod {
		idx, ok := target.(*IndexExpr)
		if ok {
			p.printFunctionTarget(idx.Obj, false)
			p.write(":")
			p.write(idx.Key.(*Literal).Str)
			return
		}
	}
	switch t := target.(type) {
	case *VariableRef:
		p.write(t.Name)
	case *IndexExpr:
		p.printFunctionTarget(t.Obj, false)
		p.write(".")
		p.write(t.Key.(*Literal).Str)
	}
}

// printParamsAndBody prints the parameter list and body of fn; an implicit
// method receiver is skipped because the `:` sugar implies it.
func (p *Printer) printParamsAndBody(fn *FunctionExpr) {
	p.write("(")
	params := fn.Params
	if fn.ImplicitSelf && len(params) > 0 {
		params = params[1:]
	}
	for i, d := range params {
		if i > 0 {
			p.write(",")
			p.space()
		}
		p.write(d.Name)
	}
	if fn.IsVararg {
		if len(params) > 0 {
			p.write(",")
			p.space()
		}
		p.write("...")
	}
	p.write(")")
	p.printNestedBlock(fn.Body)
	p.write("end")
}

// --- expressions ---

func (p *Printer) printExprList(exprs []Expr) {
	for i, e := range exprs {
		if i > 0 {
			p.write(",")
			p.space()
		}
		p.printExpr(e, 0)
	}
}

// Expression precedence for parenthesization, mirroring the parser's table.
const atomPrec = 11

func exprPrec(e Expr) int {
	switch n := e.(type) {
	case *BinaryExpr:
		return binaryPrec[n.Op][0]
	case *UnaryExpr:
		return unaryPrec
	case *Literal:
		// A negative number renders with a leading minus and binds exactly
		// like unary minus: bare as the base of ^ it would misparse.
		if n.Kind == LiteralNumber && n.Num < 0 {
			return unaryPrec
		}
		return atomPrec
	default:
		return atomPrec
	}
}

func rightAssoc(op string) bool { return op == ".." || op == "^" }

// printExpr renders e, wrapping it in parentheses when its top-level
// operator binds more loosely than min.
func (p *Printer) printExpr(e Expr, min int) {
	if exprPrec(e) < min {
		p.write("(")
		p.printExpr(e, 0)
		p.write(")")
		return
	}
	switch n := e.(type) {
	case *Literal:
		p.printLiteral(n)
	case *VariableRef:
		p.write(n.Name)
	case *BinaryExpr:
		prec := binaryPrec[n.Op][0]
		leftMin, rightMin := prec, prec+1
		if rightAssoc(n.Op) {
			leftMin, rightMin = prec+1, prec
		}
		p.printExpr(n.Left, leftMin)
		p.space()
		p.write(n.Op)
		p.space()
		p.printExpr(n.Right, rightMin)
	case *UnaryExpr:
		p.write(n.Op)
		p.printExpr(n.Operand, unaryPrec)
	case *CallExpr:
		p.printPrefixExpr(n.Fn)
		p.write("(")
		p.printExprList(n.Args)
		p.write(")")
	case *MethodCallExpr:
		p.printPrefixExpr(n.Recv)
		p.write(":")
		p.write(n.Method)
		p.write("(")
		p.printExprList(n.Args)
		p.write(")")
	case *IndexExpr:
		p.printPrefixExpr(n.Obj)
		if key, ok := n.Key.(*Literal); ok && n.Dot && key.Kind == LiteralString && IsValidIdent(key.Str, Lua51) {
			p.write(".")
			p.write(key.Str)
		} else {
			p.write("[")
			p.printExpr(n.Key, 0)
			p.write("]")
		}
	case *TableExpr:
		p.write("{")
		for i, f := range n.Fields {
			if i > 0 {
				p.write(",")
				p.space()
			}
			switch {
			case f.Key == nil:
				p.printExpr(f.Value, 0)
			case f.NameKey:
				p.write(f.Key.(*Literal).Str)
				p.space()
				p.write("=")
				p.space()
				p.printExpr(f.Value, 0)
			default:
				p.write("[")
				p.printExpr(f.Key, 0)
				p.write("]")
				p.space()
				p.write("=")
				p.space()
				p.printExpr(f.Value, 0)
			}
		}
		p.write("}")
	case *FunctionExpr:
		p.write("function")
		p.printParamsAndBody(n)
	case *VarargExpr:
		p.write("...")
	}
}

// printPrefixExpr prints the object position of a call or index, which the
// grammar restricts to names, index chains, calls, and parenthesized
// expressions. Anything else gets wrapped.
func (p *Printer) printPrefixExpr(e Expr) {
	switch e.(type) {
	case *VariableRef, *IndexExpr, *CallExpr, *MethodCallExpr:
		p.printExpr(e, 0)
	default:
		p.write("(")
		p.printExpr(e, 0)
		p.write(")")
	}
}

func (p *Printer) printLiteral(n *Literal) {
	switch n.Kind {
	case LiteralNil:
		p.write("nil")
	case LiteralBool:
		if n.Bool {
			p.write("true")
		} else {
			p.write("false")
		}
	case LiteralNumber:
		if n.Raw != "" {
			p.write(n.Raw)
		} else {
			p.write(FormatNumber(n.Num))
		}
	case LiteralString:
		p.write(QuoteString(n.Str))
	}
}

// FormatNumber renders a numeric value as a Lua literal.
func FormatNumber(v float64) string {
	if v == float64(int64(v)) && v >= -1e15 && v <= 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// QuoteString renders s as a double-quoted Lua string literal, escaping
// control and non-printable bytes numerically.
func QuoteString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if c < 32 || c > 126 {
				// Three digits so a following digit can't extend the escape.
				sb.WriteString(fmt.Sprintf("\\%03d", c))
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
