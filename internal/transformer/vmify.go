package transformer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/whit3rabbit/luamixer/internal/lua"
)

// Vmify compiles the chunk's statements into a closed instruction set (a
// constants table plus {op,a,b,c} records) executed by an injected Lua
// interpreter loop over an explicit register array. Locals map 1:1 to
// register slots keyed by their Declaration, so variable accesses keep the
// original scope semantics; locals from the injected prologue (string
// decoders and the like) are seeded into registers before the loop starts.
//
// The instruction set is deliberately closed: function definitions, generic
// for, goto/label and varargs are outside it, and so is any call whose extra
// results would be observable (a call filling multiple assignment targets, or
// spread into an argument list, table constructor or multi-value return) —
// registers hold exactly one value each. A chunk using any of those is
// returned unchanged, logged as skipped.
type vmify struct{}

func newVmify(opts map[string]any) (Step, error) {
	return &vmify{}, nil
}

func (*vmify) Name() string { return "Vmify" }

// Flattened dispatch loops compile to long jump chains; flattening after the
// VM would instead mangle the interpreter itself.
func (*vmify) RunsAfter() []string { return []string{"ControlFlowFlattening"} }

// Opcodes. Values are baked into emitted instruction records.
const (
	opLoadK     = 1  // R[a] = K[b]
	opLoadNil   = 2  // R[a] = nil
	opLoadBool  = 3  // R[a] = (b == 1)
	opMove      = 4  // R[a] = R[b]
	opGetGlobal = 5  // R[a] = _G[K[b]]
	opSetGlobal = 6  // _G[K[a]] = R[b]
	opAdd       = 7  // R[a] = R[b] + R[c]
	opSub       = 8
	opMul       = 9
	opDiv       = 10
	opMod       = 11
	opPow       = 12
	opConcat    = 13
	opIDiv      = 14
	opEq        = 15 // R[a] = (R[b] == R[c])
	opLt        = 16
	opLe        = 17
	opNot       = 18
	opUnm       = 19
	opLen       = 20
	opJmp       = 21 // pc = a
	opJmpIf     = 22 // if R[a] then pc = b
	opJmpNot    = 23 // if not R[a] then pc = b
	opCall      = 24 // R[a] = R[a](R[a+1] ... R[a+b])
	opRet       = 25 // return R[a] ... R[a+b-1]; b == 0 returns nothing
	opGetTable  = 26 // R[a] = R[b][R[c]]
	opSetTable  = 27 // R[a][R[b]] = R[c]
	opNewTable  = 28 // R[a] = {}
	opTailCall  = 29 // return R[a](R[a+1] ... R[a+b])
	opForPrep   = 30 // R[a] -= R[a+2]; pc = b
	opForLoop   = 31 // R[a] += R[a+2]; jump to b while the loop continues
)

// errUnsupported aborts compilation; the step then leaves the chunk alone.
var errUnsupported = errors.New("unsupported construct")

func (s *vmify) Apply(chunk *lua.Chunk, ctx *Context) (*lua.Chunk, error) {
	prologue := 0
	for prologue < len(chunk.Body.Stmts) && ctx.IsSynthetic(chunk.Body.Stmts[prologue]) {
		prologue++
	}
	region := chunk.Body.Stmts[prologue:]
	if len(region) == 0 {
		return chunk, nil
	}
	if reason := s.unsupported(region); reason != "" {
		ctx.Logf("Vmify: skipped, chunk uses %s", reason)
		return chunk, nil
	}

	c := newVMCompiler(ctx)
	c.scanRegion(region)
	for _, st := range region {
		if err := c.stmt(st); err != nil {
			if errors.Is(err, errUnsupported) {
				ctx.Logf("Vmify: skipped, %v", err)
				return chunk, nil
			}
			return nil, err
		}
	}
	c.emit(opRet, 0, 0, 0)

	helper, err := ctx.ModuleFromSource(c.interpreterSource())
	if err != nil {
		return nil, &InvariantError{Step: s.Name(), Msg: err.Error()}
	}
	c.bindOuterSeeds(helper)

	for _, d := range helper.Body.Scope.Decls {
		chunk.Body.Scope.Declare(d)
	}
	newStmts := make([]lua.Stmt, 0, prologue+len(helper.Body.Stmts))
	newStmts = append(newStmts, chunk.Body.Stmts[:prologue]...)
	for _, st := range helper.Body.Stmts {
		ctx.MarkSynthetic(st)
		newStmts = append(newStmts, st)
	}
	chunk.Body.Stmts = newStmts
	ctx.MarkApplied(s.Name())
	ctx.Logf("Vmify: compiled %d statements to %d instructions, %d constants",
		len(region), len(c.code), len(c.consts))
	return chunk, nil
}

// unsupported scans for constructs outside the instruction set.
func (s *vmify) unsupported(region []lua.Stmt) string {
	reason := ""
	for _, st := range region {
		lua.Inspect(st, func(n lua.Node) bool {
			if reason != "" {
				return false
			}
			switch node := n.(type) {
			case *lua.FunctionDeclStmt, *lua.FunctionExpr:
				reason = "function definitions"
			case *lua.GenericForStmt:
				reason = "generic for"
			case *lua.GotoStmt, *lua.LabelStmt:
				reason = "goto/label"
			case *lua.VarargExpr:
				reason = "varargs"
			case *lua.LocalStmt:
				if len(node.Decls) > len(node.Exprs) && lastExprIsCall(node.Exprs) {
					reason = "multi-value calls"
				}
			case *lua.AssignStmt:
				if node.Op == "" && len(node.Targets) > len(node.Exprs) && lastExprIsCall(node.Exprs) {
					reason = "multi-value calls"
				}
			case *lua.ReturnStmt:
				// A single tail call compiles to opTailCall and keeps every
				// result; any other trailing call would be truncated.
				if len(node.Exprs) > 1 && lastExprIsCall(node.Exprs) {
					reason = "multi-value calls"
				}
			case *lua.CallExpr:
				if lastExprIsCall(node.Args) {
					reason = "multi-value calls"
				}
			case *lua.MethodCallExpr:
				if lastExprIsCall(node.Args) {
					reason = "multi-value calls"
				}
			case *lua.TableExpr:
				if len(node.Fields) > 0 {
					last := node.Fields[len(node.Fields)-1]
					if last.Key == nil && isCallExpr(last.Value) {
						reason = "multi-value calls"
					}
				}
			}
			return reason == ""
		})
	}
	return reason
}

func isCallExpr(e lua.Expr) bool {
	switch e.(type) {
	case *lua.CallExpr, *lua.MethodCallExpr:
		return true
	}
	return false
}

func lastExprIsCall(exprs []lua.Expr) bool {
	return len(exprs) > 0 && isCallExpr(exprs[len(exprs)-1])
}

type vmIns struct {
	op, a, b, c int
}

type vmCompiler struct {
	ctx    *Context
	code   []vmIns
	consts []ConstValue
	cindex map[ConstValue]int

	regs      map[*lua.Declaration]int
	outer     []*lua.Declaration // prologue locals seeded into registers
	outerSet  map[*lua.Declaration]bool
	tempBase int
	tempTop  int
	breakTo  [][]int // per-loop instruction indexes to patch to the exit
	contTo   [][]int // per-loop indexes to patch to the continue target
}

func newVMCompiler(ctx *Context) *vmCompiler {
	return &vmCompiler{
		ctx:      ctx,
		cindex:   make(map[ConstValue]int),
		regs:     make(map[*lua.Declaration]int),
		outerSet: make(map[*lua.Declaration]bool),
	}
}

// scanRegion assigns a register to every declaration in the region and to
// every reference that escapes it (prologue locals). Temporaries start above
// the last fixed register.
func (c *vmCompiler) scanRegion(region []lua.Stmt) {
	next := 1
	assign := func(d *lua.Declaration) {
		if _, ok := c.regs[d]; !ok {
			c.regs[d] = next
			next++
		}
	}
	for _, st := range region {
		lua.Inspect(st, func(n lua.Node) bool {
			switch node := n.(type) {
			case *lua.LocalStmt:
				for _, d := range node.Decls {
					assign(d)
				}
			case *lua.NumericForStmt:
				assign(node.Var)
			}
			return true
		})
	}
	declared := make(map[*lua.Declaration]bool, len(c.regs))
	for d := range c.regs {
		declared[d] = true
	}
	for _, st := range region {
		lua.Inspect(st, func(n lua.Node) bool {
			if ref, ok := n.(*lua.VariableRef); ok && ref.Decl != nil && !declared[ref.Decl] {
				if !c.outerSet[ref.Decl] {
					c.outerSet[ref.Decl] = true
					c.outer = append(c.outer, ref.Decl)
					c.regs[ref.Decl] = next
					next++
				}
			}
			return true
		})
	}
	c.tempBase = next
	c.tempTop = next
}

func (c *vmCompiler) emit(op, a, b, cc int) int {
	c.code = append(c.code, vmIns{op: op, a: a, b: b, c: cc})
	return len(c.code) - 1
}

// konst interns v and returns its 1-based index into the emitted K table.
func (c *vmCompiler) konst(v ConstValue) int {
	if i, ok := c.cindex[v]; ok {
		return i
	}
	c.consts = append(c.consts, v)
	i := len(c.consts)
	c.cindex[v] = i
	return i
}

func (c *vmCompiler) temp() int {
	r := c.tempTop
	c.tempTop++
	return r
}

// here is the pc of the next instruction to be emitted (1-based).
func (c *vmCompiler) here() int { return len(c.code) + 1 }

func (c *vmCompiler) patch(idx, target int) {
	if c.code[idx].op == opJmp {
		c.code[idx].a = target
		return
	}
	c.code[idx].b = target
}

// --- statements ---

func (c *vmCompiler) stmt(st lua.Stmt) error {
	mark := c.tempTop
	defer func() { c.tempTop = mark }()

	switch n := st.(type) {
	case *lua.LocalStmt:
		return c.localStmt(n)
	case *lua.AssignStmt:
		return c.assignStmt(n)
	case *lua.IfStmt:
		return c.ifStmt(n)
	case *lua.WhileStmt:
		return c.whileStmt(n)
	case *lua.RepeatStmt:
		return c.repeatStmt(n)
	case *lua.NumericForStmt:
		return c.numericForStmt(n)
	case *lua.DoStmt:
		return c.block(n.Body)
	case *lua.ExprStmt:
		_, err := c.callInto(n.Call, -1)
		return err
	case *lua.ReturnStmt:
		return c.returnStmt(n)
	case *lua.BreakStmt:
		if len(c.breakTo) == 0 {
			return fmt.Errorf("%w: break outside loop", errUnsupported)
		}
		idx := c.emit(opJmp, 0, 0, 0)
		c.breakTo[len(c.breakTo)-1] = append(c.breakTo[len(c.breakTo)-1], idx)
		return nil
	case *lua.ContinueStmt:
		if len(c.contTo) == 0 {
			return fmt.Errorf("%w: continue outside loop", errUnsupported)
		}
		idx := c.emit(opJmp, 0, 0, 0)
		c.contTo[len(c.contTo)-1] = append(c.contTo[len(c.contTo)-1], idx)
		return nil
	}
	return fmt.Errorf("%w: %T", errUnsupported, st)
}

func (c *vmCompiler) block(b *lua.Block) error {
	for _, st := range b.Stmts {
		if err := c.stmt(st); err != nil {
			return err
		}
	}
	return nil
}

func (c *vmCompiler) localStmt(n *lua.LocalStmt) error {
	// Values first, left to right, then the declarations take them. Extra
	// values are still evaluated for their side effects.
	temps := make([]int, len(n.Exprs))
	for i, e := range n.Exprs {
		t := c.temp()
		if err := c.expr(e, t); err != nil {
			return err
		}
		temps[i] = t
	}
	for i, d := range n.Decls {
		reg := c.regs[d]
		if i < len(temps) {
			c.emit(opMove, reg, temps[i], 0)
		} else {
			c.emit(opLoadNil, reg, 0, 0)
		}
	}
	return nil
}

func (c *vmCompiler) assignStmt(n *lua.AssignStmt) error {
	if n.Op != "" {
		return c.compoundAssign(n)
	}
	// Pre-evaluate index targets so stores see the values the source
	// expressions had before the assignment.
	type target struct {
		kind     int // 0 local, 1 global, 2 index
		reg      int
		name     string
		obj, key int
	}
	targets := make([]target, len(n.Targets))
	for i, t := range n.Targets {
		switch tn := t.(type) {
		case *lua.VariableRef:
			if tn.Decl == nil {
				targets[i] = target{kind: 1, name: tn.Name}
				continue
			}
			reg, ok := c.regs[tn.Decl]
			if !ok {
				return fmt.Errorf("%w: assignment to captured local %q", errUnsupported, tn.Name)
			}
			if c.outerSet[tn.Decl] {
				return fmt.Errorf("%w: assignment to outer local %q", errUnsupported, tn.Name)
			}
			targets[i] = target{kind: 0, reg: reg}
		case *lua.IndexExpr:
			obj, key := c.temp(), c.temp()
			if err := c.expr(tn.Obj, obj); err != nil {
				return err
			}
			if err := c.expr(tn.Key, key); err != nil {
				return err
			}
			targets[i] = target{kind: 2, obj: obj, key: key}
		default:
			return fmt.Errorf("%w: assignment target %T", errUnsupported, t)
		}
	}
	values := make([]int, len(n.Targets))
	for i := range values {
		values[i] = c.temp()
	}
	for i, e := range n.Exprs {
		if i < len(values) {
			if err := c.expr(e, values[i]); err != nil {
				return err
			}
		} else {
			t := c.temp()
			if err := c.expr(e, t); err != nil {
				return err
			}
		}
	}
	for i := len(n.Exprs); i < len(values); i++ {
		c.emit(opLoadNil, values[i], 0, 0)
	}
	for i, t := range targets {
		switch t.kind {
		case 0:
			c.emit(opMove, t.reg, values[i], 0)
		case 1:
			c.emit(opSetGlobal, c.konst(ConstValue{Kind: lua.LiteralString, Str: t.name}), values[i], 0)
		case 2:
			c.emit(opSetTable, t.obj, t.key, values[i])
		}
	}
	return nil
}

func (c *vmCompiler) compoundAssign(n *lua.AssignStmt) error {
	op, ok := map[string]int{
		"+": opAdd, "-": opSub, "*": opMul, "/": opDiv,
		"%": opMod, "^": opPow, "..": opConcat, "//": opIDiv,
	}[n.Op]
	if !ok {
		return fmt.Errorf("%w: compound operator %q", errUnsupported, n.Op)
	}
	operand := c.temp()
	if err := c.expr(n.Exprs[0], operand); err != nil {
		return err
	}
	switch t := n.Targets[0].(type) {
	case *lua.VariableRef:
		if t.Decl == nil {
			cur := c.temp()
			k := c.konst(ConstValue{Kind: lua.LiteralString, Str: t.Name})
			c.emit(opGetGlobal, cur, k, 0)
			c.emit(op, cur, cur, operand)
			c.emit(opSetGlobal, k, cur, 0)
			return nil
		}
		reg, ok := c.regs[t.Decl]
		if !ok || c.outerSet[t.Decl] {
			return fmt.Errorf("%w: compound assignment to %q", errUnsupported, t.Name)
		}
		c.emit(op, reg, reg, operand)
		return nil
	case *lua.IndexExpr:
		obj, key, cur := c.temp(), c.temp(), c.temp()
		if err := c.expr(t.Obj, obj); err != nil {
			return err
		}
		if err := c.expr(t.Key, key); err != nil {
			return err
		}
		c.emit(opGetTable, cur, obj, key)
		c.emit(op, cur, cur, operand)
		c.emit(opSetTable, obj, key, cur)
		return nil
	}
	return fmt.Errorf("%w: compound assignment target %T", errUnsupported, n.Targets[0])
}

func (c *vmCompiler) ifStmt(n *lua.IfStmt) error {
	var ends []int
	for _, clause := range n.Clauses {
		cond := c.temp()
		if err := c.expr(clause.Cond, cond); err != nil {
			return err
		}
		skip := c.emit(opJmpNot, cond, 0, 0)
		if err := c.block(clause.Body); err != nil {
			return err
		}
		ends = append(ends, c.emit(opJmp, 0, 0, 0))
		c.patch(skip, c.here())
	}
	if n.Else != nil {
		if err := c.block(n.Else); err != nil {
			return err
		}
	}
	for _, idx := range ends {
		c.patch(idx, c.here())
	}
	return nil
}

func (c *vmCompiler) whileStmt(n *lua.WhileStmt) error {
	top := c.here()
	cond := c.temp()
	if err := c.expr(n.Cond, cond); err != nil {
		return err
	}
	exit := c.emit(opJmpNot, cond, 0, 0)
	c.pushLoop()
	if err := c.block(n.Body); err != nil {
		return err
	}
	c.emit(opJmp, top, 0, 0)
	breaks, conts := c.popLoop()
	c.patch(exit, c.here())
	for _, idx := range breaks {
		c.patch(idx, c.here())
	}
	for _, idx := range conts {
		c.patch(idx, top)
	}
	return nil
}

func (c *vmCompiler) repeatStmt(n *lua.RepeatStmt) error {
	top := c.here()
	c.pushLoop()
	if err := c.block(n.Body); err != nil {
		return err
	}
	condAt := c.here()
	cond := c.temp()
	if err := c.expr(n.Cond, cond); err != nil {
		return err
	}
	c.emit(opJmpNot, cond, top, 0)
	breaks, conts := c.popLoop()
	for _, idx := range breaks {
		c.patch(idx, c.here())
	}
	for _, idx := range conts {
		c.patch(idx, condAt)
	}
	return nil
}

func (c *vmCompiler) numericForStmt(n *lua.NumericForStmt) error {
	base := c.temp()
	limit := c.temp()
	step := c.temp()
	if limit != base+1 || step != base+2 {
		return &InvariantError{Step: "Vmify", Msg: "for-loop control registers not contiguous"}
	}
	if err := c.expr(n.Start, base); err != nil {
		return err
	}
	if err := c.expr(n.Stop, limit); err != nil {
		return err
	}
	if n.Step != nil {
		if err := c.expr(n.Step, step); err != nil {
			return err
		}
	} else {
		c.emit(opLoadK, step, c.konst(ConstValue{Kind: lua.LiteralNumber, Num: 1}), 0)
	}
	prep := c.emit(opForPrep, base, 0, 0)
	body := c.here()
	// The loop variable is a per-iteration copy; writes to it do not affect
	// the control registers.
	c.emit(opMove, c.regs[n.Var], base, 0)
	c.pushLoop()
	if err := c.block(n.Body); err != nil {
		return err
	}
	loopAt := c.here()
	c.emit(opForLoop, base, body, 0)
	c.patch(prep, loopAt)
	breaks, conts := c.popLoop()
	for _, idx := range breaks {
		c.patch(idx, c.here())
	}
	for _, idx := range conts {
		c.patch(idx, loopAt)
	}
	return nil
}

func (c *vmCompiler) returnStmt(n *lua.ReturnStmt) error {
	if len(n.Exprs) == 1 {
		// Tail position keeps multiple return values intact.
		if call, ok := n.Exprs[0].(*lua.CallExpr); ok {
			base, nargs, err := c.callFrame(call.Fn, call.Args)
			if err != nil {
				return err
			}
			c.emit(opTailCall, base, nargs, 0)
			return nil
		}
		if call, ok := n.Exprs[0].(*lua.MethodCallExpr); ok {
			base, nargs, err := c.methodFrame(call)
			if err != nil {
				return err
			}
			c.emit(opTailCall, base, nargs, 0)
			return nil
		}
	}
	if len(n.Exprs) == 0 {
		c.emit(opRet, 0, 0, 0)
		return nil
	}
	base := -1
	for i, e := range n.Exprs {
		t := c.temp()
		if i == 0 {
			base = t
		}
		if err := c.expr(e, t); err != nil {
			return err
		}
	}
	c.emit(opRet, base, len(n.Exprs), 0)
	return nil
}

func (c *vmCompiler) pushLoop() {
	c.breakTo = append(c.breakTo, nil)
	c.contTo = append(c.contTo, nil)
}

func (c *vmCompiler) popLoop() (breaks, conts []int) {
	breaks = c.breakTo[len(c.breakTo)-1]
	conts = c.contTo[len(c.contTo)-1]
	c.breakTo = c.breakTo[:len(c.breakTo)-1]
	c.contTo = c.contTo[:len(c.contTo)-1]
	return breaks, conts
}

// --- expressions ---

func (c *vmCompiler) expr(e lua.Expr, dst int) error {
	mark := c.tempTop
	defer func() { c.tempTop = mark }()

	switch n := e.(type) {
	case *lua.Literal:
		switch n.Kind {
		case lua.LiteralNil:
			c.emit(opLoadNil, dst, 0, 0)
		case lua.LiteralBool:
			b := 0
			if n.Bool {
				b = 1
			}
			c.emit(opLoadBool, dst, b, 0)
		default:
			c.emit(opLoadK, dst, c.konst(ConstKey(n)), 0)
		}
		return nil
	case *lua.VariableRef:
		if n.Decl == nil {
			c.emit(opGetGlobal, dst, c.konst(ConstValue{Kind: lua.LiteralString, Str: n.Name}), 0)
			return nil
		}
		reg, ok := c.regs[n.Decl]
		if !ok {
			return &InvariantError{Step: "Vmify", Pos: n.Pos, Msg: fmt.Sprintf("unresolved local %q", n.Name)}
		}
		if reg != dst {
			c.emit(opMove, dst, reg, 0)
		}
		return nil
	case *lua.BinaryExpr:
		return c.binaryExpr(n, dst)
	case *lua.UnaryExpr:
		t := c.temp()
		if err := c.expr(n.Operand, t); err != nil {
			return err
		}
		switch n.Op {
		case "not":
			c.emit(opNot, dst, t, 0)
		case "-":
			c.emit(opUnm, dst, t, 0)
		case "#":
			c.emit(opLen, dst, t, 0)
		default:
			return fmt.Errorf("%w: unary %q", errUnsupported, n.Op)
		}
		return nil
	case *lua.CallExpr, *lua.MethodCallExpr:
		_, err := c.callInto(e, dst)
		return err
	case *lua.IndexExpr:
		obj, key := c.temp(), c.temp()
		if err := c.expr(n.Obj, obj); err != nil {
			return err
		}
		if err := c.expr(n.Key, key); err != nil {
			return err
		}
		c.emit(opGetTable, dst, obj, key)
		return nil
	case *lua.TableExpr:
		return c.tableExpr(n, dst)
	}
	return fmt.Errorf("%w: %T", errUnsupported, e)
}

func (c *vmCompiler) binaryExpr(n *lua.BinaryExpr, dst int) error {
	switch n.Op {
	case "and":
		if err := c.expr(n.Left, dst); err != nil {
			return err
		}
		skip := c.emit(opJmpNot, dst, 0, 0)
		if err := c.expr(n.Right, dst); err != nil {
			return err
		}
		c.patch(skip, c.here())
		return nil
	case "or":
		if err := c.expr(n.Left, dst); err != nil {
			return err
		}
		skip := c.emit(opJmpIf, dst, 0, 0)
		if err := c.expr(n.Right, dst); err != nil {
			return err
		}
		c.patch(skip, c.here())
		return nil
	}

	left, right := c.temp(), c.temp()
	if err := c.expr(n.Left, left); err != nil {
		return err
	}
	if err := c.expr(n.Right, right); err != nil {
		return err
	}
	switch n.Op {
	case "+":
		c.emit(opAdd, dst, left, right)
	case "-":
		c.emit(opSub, dst, left, right)
	case "*":
		c.emit(opMul, dst, left, right)
	case "/":
		c.emit(opDiv, dst, left, right)
	case "%":
		c.emit(opMod, dst, left, right)
	case "^":
		c.emit(opPow, dst, left, right)
	case "..":
		c.emit(opConcat, dst, left, right)
	case "//":
		c.emit(opIDiv, dst, left, right)
	case "==":
		c.emit(opEq, dst, left, right)
	case "~=":
		c.emit(opEq, dst, left, right)
		c.emit(opNot, dst, dst, 0)
	case "<":
		c.emit(opLt, dst, left, right)
	case ">":
		c.emit(opLt, dst, right, left)
	case "<=":
		c.emit(opLe, dst, left, right)
	case ">=":
		c.emit(opLe, dst, right, left)
	default:
		return fmt.Errorf("%w: operator %q", errUnsupported, n.Op)
	}
	return nil
}

// callFrame lays out fn and args in consecutive registers and returns the
// frame base and argument count.
func (c *vmCompiler) callFrame(fn lua.Expr, args []lua.Expr) (base, nargs int, err error) {
	base = c.temp()
	if err := c.expr(fn, base); err != nil {
		return 0, 0, err
	}
	for _, a := range args {
		t := c.temp()
		if err := c.expr(a, t); err != nil {
			return 0, 0, err
		}
		nargs++
	}
	return base, nargs, nil
}

func (c *vmCompiler) methodFrame(n *lua.MethodCallExpr) (base, nargs int, err error) {
	recv := c.temp()
	if err := c.expr(n.Recv, recv); err != nil {
		return 0, 0, err
	}
	key := c.temp()
	c.emit(opLoadK, key, c.konst(ConstValue{Kind: lua.LiteralString, Str: n.Method}), 0)
	// The frame must stay contiguous: fn slot, then receiver, then arguments.
	base = c.temp()
	c.emit(opGetTable, base, recv, key)
	first := c.temp()
	c.emit(opMove, first, recv, 0)
	nargs = 1
	for _, a := range n.Args {
		t := c.temp()
		if err := c.expr(a, t); err != nil {
			return 0, 0, err
		}
		nargs++
	}
	return base, nargs, nil
}

// callInto compiles a call or method call. dst < 0 discards the result.
func (c *vmCompiler) callInto(e lua.Expr, dst int) (int, error) {
	mark := c.tempTop
	defer func() { c.tempTop = mark }()

	var base, nargs int
	var err error
	switch n := e.(type) {
	case *lua.CallExpr:
		base, nargs, err = c.callFrame(n.Fn, n.Args)
	case *lua.MethodCallExpr:
		base, nargs, err = c.methodFrame(n)
	default:
		return 0, fmt.Errorf("%w: statement expression %T", errUnsupported, e)
	}
	if err != nil {
		return 0, err
	}
	c.emit(opCall, base, nargs, 0)
	if dst >= 0 && dst != base {
		c.emit(opMove, dst, base, 0)
	}
	return base, nil
}

func (c *vmCompiler) tableExpr(n *lua.TableExpr, dst int) error {
	c.emit(opNewTable, dst, 0, 0)
	arrayIndex := 1
	for _, f := range n.Fields {
		key, value := c.temp(), c.temp()
		if f.Key != nil {
			if err := c.expr(f.Key, key); err != nil {
				return err
			}
		} else {
			c.emit(opLoadK, key, c.konst(ConstValue{Kind: lua.LiteralNumber, Num: float64(arrayIndex)}), 0)
			arrayIndex++
		}
		if err := c.expr(f.Value, value); err != nil {
			return err
		}
		c.emit(opSetTable, dst, key, value)
	}
	return nil
}

// --- code generation ---

// The interpreter executed by the obfuscated program. Placeholders: constants
// table, instruction table, outer-register seeds.
const vmTemplate = `local K = {%s}
local C = {%s}
local R = {}
local U = unpack or table.unpack
%slocal pc = 1
while true do
	local I = C[pc]
	pc = pc + 1
	local o = I[1]
	if o == 1 then R[I[2]] = K[I[3]]
	elseif o == 2 then R[I[2]] = nil
	elseif o == 3 then R[I[2]] = I[3] == 1
	elseif o == 4 then R[I[2]] = R[I[3]]
	elseif o == 5 then R[I[2]] = _G[K[I[3]]]
	elseif o == 6 then _G[K[I[2]]] = R[I[3]]
	elseif o == 7 then R[I[2]] = R[I[3]] + R[I[4]]
	elseif o == 8 then R[I[2]] = R[I[3]] - R[I[4]]
	elseif o == 9 then R[I[2]] = R[I[3]] * R[I[4]]
	elseif o == 10 then R[I[2]] = R[I[3]] / R[I[4]]
	elseif o == 11 then R[I[2]] = R[I[3]] %% R[I[4]]
	elseif o == 12 then R[I[2]] = R[I[3]] ^ R[I[4]]
	elseif o == 13 then R[I[2]] = R[I[3]] .. R[I[4]]
	elseif o == 14 then R[I[2]] = math.floor(R[I[3]] / R[I[4]])
	elseif o == 15 then R[I[2]] = R[I[3]] == R[I[4]]
	elseif o == 16 then R[I[2]] = R[I[3]] < R[I[4]]
	elseif o == 17 then R[I[2]] = R[I[3]] <= R[I[4]]
	elseif o == 18 then R[I[2]] = not R[I[3]]
	elseif o == 19 then R[I[2]] = -R[I[3]]
	elseif o == 20 then R[I[2]] = #R[I[3]]
	elseif o == 21 then pc = I[2]
	elseif o == 22 then if R[I[2]] then pc = I[3] end
	elseif o == 23 then if not R[I[2]] then pc = I[3] end
	elseif o == 24 then R[I[2]] = R[I[2]](U(R, I[2] + 1, I[2] + I[3]))
	elseif o == 25 then
		if I[3] == 0 then return end
		return U(R, I[2], I[2] + I[3] - 1)
	elseif o == 26 then R[I[2]] = R[I[3]][R[I[4]]]
	elseif o == 27 then R[I[2]][R[I[3]]] = R[I[4]]
	elseif o == 28 then R[I[2]] = {}
	elseif o == 29 then return R[I[2]](U(R, I[2] + 1, I[2] + I[3]))
	elseif o == 30 then
		R[I[2]] = R[I[2]] - R[I[2] + 2]
		pc = I[3]
	elseif o == 31 then
		R[I[2]] = R[I[2]] + R[I[2] + 2]
		local st = R[I[2] + 2]
		if (st > 0 and R[I[2]] <= R[I[2] + 1]) or (st < 0 and R[I[2]] >= R[I[2] + 1]) then pc = I[3] end
	end
end`

// Placeholder names are rebound to the real prologue declarations after the
// generated source is parsed.
func outerSeedPlaceholder(i int) string { return fmt.Sprintf("__vmouter%d", i) }

func (c *vmCompiler) interpreterSource() string {
	var ks []string
	for _, v := range c.consts {
		switch v.Kind {
		case lua.LiteralNumber:
			ks = append(ks, lua.FormatNumber(v.Num))
		case lua.LiteralString:
			ks = append(ks, lua.QuoteString(v.Str))
		case lua.LiteralBool:
			if v.Bool {
				ks = append(ks, "true")
			} else {
				ks = append(ks, "false")
			}
		}
	}
	var cs []string
	for _, ins := range c.code {
		if ins.op == opForPrep || ins.op == opForLoop {
			// a carries the register, the jump target sits in slot 3.
			cs = append(cs, fmt.Sprintf("{%d,%d,%d}", ins.op, ins.a, ins.b))
			continue
		}
		cs = append(cs, fmt.Sprintf("{%d,%d,%d,%d}", ins.op, ins.a, ins.b, ins.c))
	}
	var seeds strings.Builder
	for i, d := range c.outer {
		fmt.Fprintf(&seeds, "R[%d] = %s\n", c.regs[d], outerSeedPlaceholder(i))
	}
	return fmt.Sprintf(vmTemplate, strings.Join(ks, ","), strings.Join(cs, ","), seeds.String())
}

// bindOuterSeeds rewires the placeholder globals in the parsed interpreter to
// the prologue declarations they seed from.
func (c *vmCompiler) bindOuterSeeds(helper *lua.Chunk) {
	byName := make(map[string]*lua.Declaration, len(c.outer))
	for i, d := range c.outer {
		byName[outerSeedPlaceholder(i)] = d
	}
	lua.Inspect(helper, func(n lua.Node) bool {
		if ref, ok := n.(*lua.VariableRef); ok && ref.Decl == nil {
			if d, ok := byName[ref.Name]; ok {
				ref.Decl = d
				ref.Name = d.Name
			}
		}
		return true
	})
}
