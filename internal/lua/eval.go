package lua

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// This file implements a small reference interpreter for the dialect subset
// the obfuscator emits. It exists to verify that obfuscation preserved
// behavior: the `verify` command (and the behavior tests) run the original
// and the obfuscated chunk side by side and compare their output. It is not
// a complete Lua implementation and does not try to be fast.

// Value is a runtime value: nil, bool, float64, string, *LuaTable,
// *LuaFunction, or GoFunction.
type Value interface{}

// LuaTable is a table value. Keys are normalized Values.
type LuaTable struct {
	hash map[Value]Value
}

// NewTable creates an empty table.
func NewTable() *LuaTable {
	return &LuaTable{hash: make(map[Value]Value)}
}

// Get reads a key; missing keys yield nil.
func (t *LuaTable) Get(key Value) Value {
	if key == nil {
		return nil
	}
	return t.hash[key]
}

// Set writes a key. Assigning nil removes the entry.
func (t *LuaTable) Set(key, value Value) {
	if key == nil {
		return
	}
	if value == nil {
		delete(t.hash, key)
		return
	}
	t.hash[key] = value
}

// Len implements the border semantics of `#` for sequence-style tables.
func (t *LuaTable) Len() int {
	n := 0
	for {
		if _, ok := t.hash[float64(n+1)]; !ok {
			return n
		}
		n++
	}
}

// LuaFunction is a closure over its defining environment.
type LuaFunction struct {
	fn  *FunctionExpr
	env *frame
}

// GoFunction is a builtin.
type GoFunction func(args []Value) ([]Value, error)

// RuntimeError is a raised Lua error (the `error` builtin or an operation
// on the wrong type).
type RuntimeError struct {
	Msg string
}

func (e *RuntimeError) Error() string { return "runtime error: " + e.Msg }

// frame maps declarations to shared slots so closures capture locals by
// reference. Lookups walk the parent chain. Function-entry frames (and the
// chunk's root frame) also carry the varargs visible to `...`.
type frame struct {
	parent     *frame
	slots      map[*Declaration]*Value
	varargs    []Value
	hasVarargs bool
}

func newFrame(parent *frame) *frame {
	return &frame{parent: parent, slots: make(map[*Declaration]*Value)}
}

func (f *frame) define(d *Declaration, v Value) {
	slot := v
	f.slots[d] = &slot
}

// varargValues resolves `...` against the nearest enclosing function frame.
func (f *frame) varargValues() ([]Value, bool) {
	for cur := f; cur != nil; cur = cur.parent {
		if cur.hasVarargs {
			return cur.varargs, true
		}
	}
	return nil, false
}

func (f *frame) lookup(d *Declaration) *Value {
	for cur := f; cur != nil; cur = cur.parent {
		if slot, ok := cur.slots[d]; ok {
			return slot
		}
	}
	return nil
}

// control signals carried through statement execution.
type ctrlKind int

const (
	ctrlNone ctrlKind = iota
	ctrlBreak
	ctrlContinue
	ctrlReturn
)

type ctrl struct {
	kind   ctrlKind
	values []Value
}

// Interp executes chunks. Output from print goes to Out. Globals live in a
// real table so emitted code can reach them through _G.
type Interp struct {
	Globals *LuaTable
	Out     strings.Builder
	// Step budget so runaway loops in broken transforms fail tests
	// instead of hanging them.
	MaxSteps int
	steps    int
}

// NewInterp creates an interpreter with the builtin library installed.
func NewInterp() *Interp {
	in := &Interp{Globals: NewTable(), MaxSteps: 20_000_000}
	in.installBuiltins()
	return in
}

// Run executes a chunk and returns its return values, if any.
func (in *Interp) Run(chunk *Chunk) ([]Value, error) {
	root := newFrame(nil)
	root.hasVarargs = true // chunks are vararg functions
	c, err := in.execBlock(chunk.Body, root)
	if err != nil {
		return nil, err
	}
	if c.kind == ctrlReturn {
		return c.values, nil
	}
	return nil, nil
}

// RunSource parses and executes source text, returning captured output.
func RunSource(src string, dialect Dialect) (string, error) {
	chunk, err := ParseSource(src, dialect)
	if err != nil {
		return "", err
	}
	in := NewInterp()
	if _, err := in.Run(chunk); err != nil {
		return "", err
	}
	return in.Out.String(), nil
}

func (in *Interp) tick() error {
	in.steps++
	if in.steps > in.MaxSteps {
		return &RuntimeError{Msg: "step budget exhausted"}
	}
	return nil
}

// --- statements ---

func (in *Interp) execBlock(b *Block, env *frame) (ctrl, error) {
	for _, s := range b.Stmts {
		c, err := in.execStmt(s, env)
		if err != nil {
			return ctrl{}, err
		}
		if c.kind != ctrlNone {
			return c, nil
		}
	}
	return ctrl{}, nil
}

func (in *Interp) execStmt(s Stmt, env *frame) (ctrl, error) {
	if err := in.tick(); err != nil {
		return ctrl{}, err
	}
	switch n := s.(type) {
	case *LocalStmt:
		values, err := in.evalExprList(n.Exprs, env, len(n.Decls))
		if err != nil {
			return ctrl{}, err
		}
		for i, d := range n.Decls {
			env.define(d, values[i])
		}
	case *AssignStmt:
		return ctrl{}, in.execAssign(n, env)
	case *IfStmt:
		for _, cl := range n.Clauses {
			cond, err := in.eval(cl.Cond, env)
			if err != nil {
				return ctrl{}, err
			}
			if truthy(cond) {
				return in.execBlock(cl.Body, newFrame(env))
			}
		}
		if n.Else != nil {
			return in.execBlock(n.Else, newFrame(env))
		}
	case *WhileStmt:
		for {
			if err := in.tick(); err != nil {
				return ctrl{}, err
			}
			cond, err := in.eval(n.Cond, env)
			if err != nil {
				return ctrl{}, err
			}
			if !truthy(cond) {
				break
			}
			c, err := in.execBlock(n.Body, newFrame(env))
			if err != nil {
				return ctrl{}, err
			}
			if c.kind == ctrlBreak {
				break
			}
			if c.kind == ctrlReturn {
				return c, nil
			}
		}
	case *RepeatStmt:
		for {
			if err := in.tick(); err != nil {
				return ctrl{}, err
			}
			body := newFrame(env)
			c, err := in.execBlock(n.Body, body)
			if err != nil {
				return ctrl{}, err
			}
			if c.kind == ctrlBreak {
				break
			}
			if c.kind == ctrlReturn {
				return c, nil
			}
			// The until condition sees the body's locals.
			cond, err := in.eval(n.Cond, body)
			if err != nil {
				return ctrl{}, err
			}
			if truthy(cond) {
				break
			}
		}
	case *NumericForStmt:
		return in.execNumericFor(n, env)
	case *GenericForStmt:
		return in.execGenericFor(n, env)
	case *FunctionDeclStmt:
		fn := &LuaFunction{fn: n.Func, env: env}
		if n.IsLocal {
			env.define(n.Decl, fn)
			return ctrl{}, nil
		}
		return ctrl{}, in.assignTo(n.Target, fn, env)
	case *ReturnStmt:
		values, err := in.evalExprList(n.Exprs, env, -1)
		if err != nil {
			return ctrl{}, err
		}
		return ctrl{kind: ctrlReturn, values: values}, nil
	case *BreakStmt:
		return ctrl{kind: ctrlBreak}, nil
	case *ContinueStmt:
		return ctrl{kind: ctrlContinue}, nil
	case *GotoStmt:
		return ctrl{}, &RuntimeError{Msg: "goto is not supported by the reference evaluator"}
	case *LabelStmt:
		// Ignored; reachable labels without goto are inert.
	case *DoStmt:
		return in.execBlock(n.Body, newFrame(env))
	case *ExprStmt:
		_, err := in.evalMulti(n.Call, env)
		return ctrl{}, err
	}
	return ctrl{}, nil
}

func (in *Interp) execAssign(n *AssignStmt, env *frame) error {
	if n.Op != "" {
		// Compound assignment: single target, single value.
		current, err := in.eval(n.Targets[0], env)
		if err != nil {
			return err
		}
		operand, err := in.eval(n.Exprs[0], env)
		if err != nil {
			return err
		}
		result, err := in.binop(n.Op, current, operand)
		if err != nil {
			return err
		}
		return in.assignTo(n.Targets[0], result, env)
	}
	values, err := in.evalExprList(n.Exprs, env, len(n.Targets))
	if err != nil {
		return err
	}
	for i, t := range n.Targets {
		if err := in.assignTo(t, values[i], env); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interp) assignTo(target Expr, v Value, env *frame) error {
	switch t := target.(type) {
	case *VariableRef:
		if t.Decl == nil {
			in.Globals.Set(t.Name, v)
			return nil
		}
		slot := env.lookup(t.Decl)
		if slot == nil {
			return &RuntimeError{Msg: fmt.Sprintf("unbound local %q", t.Name)}
		}
		*slot = v
		return nil
	case *IndexExpr:
		obj, err := in.eval(t.Obj, env)
		if err != nil {
			return err
		}
		key, err := in.eval(t.Key, env)
		if err != nil {
			return err
		}
		table, ok := obj.(*LuaTable)
		if !ok {
			return &RuntimeError{Msg: "attempt to index a non-table value"}
		}
		table.Set(key, v)
		return nil
	}
	return &RuntimeError{Msg: "invalid assignment target"}
}

func (in *Interp) execNumericFor(n *NumericForStmt, env *frame) (ctrl, error) {
	start, err := in.evalNumber(n.Start, env)
	if err != nil {
		return ctrl{}, err
	}
	stop, err := in.evalNumber(n.Stop, env)
	if err != nil {
		return ctrl{}, err
	}
	step := 1.0
	if n.Step != nil {
		step, err = in.evalNumber(n.Step, env)
		if err != nil {
			return ctrl{}, err
		}
	}
	if step == 0 {
		return ctrl{}, &RuntimeError{Msg: "'for' step is zero"}
	}
	for i := start; (step > 0 && i <= stop) || (step < 0 && i >= stop); i += step {
		if err := in.tick(); err != nil {
			return ctrl{}, err
		}
		body := newFrame(env)
		body.define(n.Var, i)
		c, err := in.execBlock(n.Body, body)
		if err != nil {
			return ctrl{}, err
		}
		if c.kind == ctrlBreak {
			break
		}
		if c.kind == ctrlReturn {
			return c, nil
		}
	}
	return ctrl{}, nil
}

func (in *Interp) execGenericFor(n *GenericForStmt, env *frame) (ctrl, error) {
	init, err := in.evalExprList(n.Exprs, env, 3)
	if err != nil {
		return ctrl{}, err
	}
	iter, state, control := init[0], init[1], init[2]
	for {
		if err := in.tick(); err != nil {
			return ctrl{}, err
		}
		rets, err := in.call(iter, []Value{state, control})
		if err != nil {
			return ctrl{}, err
		}
		if len(rets) == 0 || rets[0] == nil {
			break
		}
		control = rets[0]
		body := newFrame(env)
		for i, d := range n.Vars {
			if i < len(rets) {
				body.define(d, rets[i])
			} else {
				body.define(d, nil)
			}
		}
		c, err := in.execBlock(n.Body, body)
		if err != nil {
			return ctrl{}, err
		}
		if c.kind == ctrlBreak {
			break
		}
		if c.kind == ctrlReturn {
			return c, nil
		}
	}
	return ctrl{}, nil
}

// --- expressions ---

// evalExprList evaluates an expression list with Lua's multi-value
// adjustment. want < 0 keeps every value from a trailing multi-value
// expression; otherwise the result is padded/truncated to want values.
func (in *Interp) evalExprList(exprs []Expr, env *frame, want int) ([]Value, error) {
	var values []Value
	for i, e := range exprs {
		if i == len(exprs)-1 {
			multi, err := in.evalMulti(e, env)
			if err != nil {
				return nil, err
			}
			values = append(values, multi...)
		} else {
			v, err := in.eval(e, env)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
	}
	if want >= 0 {
		for len(values) < want {
			values = append(values, nil)
		}
		values = values[:want]
	}
	return values, nil
}

// evalMulti evaluates an expression keeping every result when it is a call.
func (in *Interp) evalMulti(e Expr, env *frame) ([]Value, error) {
	switch n := e.(type) {
	case *CallExpr:
		fn, err := in.eval(n.Fn, env)
		if err != nil {
			return nil, err
		}
		args, err := in.evalExprList(n.Args, env, -1)
		if err != nil {
			return nil, err
		}
		return in.call(fn, args)
	case *MethodCallExpr:
		recv, err := in.eval(n.Recv, env)
		if err != nil {
			return nil, err
		}
		method, err := in.index(recv, n.Method)
		if err != nil {
			return nil, err
		}
		args, err := in.evalExprList(n.Args, env, -1)
		if err != nil {
			return nil, err
		}
		return in.call(method, append([]Value{recv}, args...))
	case *VarargExpr:
		vs, ok := env.varargValues()
		if !ok {
			return nil, &RuntimeError{Msg: "cannot use '...' outside a vararg function"}
		}
		return append([]Value(nil), vs...), nil
	}
	v, err := in.eval(e, env)
	if err != nil {
		return nil, err
	}
	return []Value{v}, nil
}

func (in *Interp) eval(e Expr, env *frame) (Value, error) {
	if err := in.tick(); err != nil {
		return nil, err
	}
	switch n := e.(type) {
	case *Literal:
		switch n.Kind {
		case LiteralNil:
			return nil, nil
		case LiteralBool:
			return n.Bool, nil
		case LiteralNumber:
			return n.Num, nil
		case LiteralString:
			return n.Str, nil
		}
	case *VariableRef:
		if n.Decl == nil {
			return in.Globals.Get(n.Name), nil
		}
		slot := env.lookup(n.Decl)
		if slot == nil {
			return nil, &RuntimeError{Msg: fmt.Sprintf("unbound local %q", n.Name)}
		}
		return *slot, nil
	case *BinaryExpr:
		if n.Op == "and" || n.Op == "or" {
			left, err := in.eval(n.Left, env)
			if err != nil {
				return nil, err
			}
			if n.Op == "and" && !truthy(left) {
				return left, nil
			}
			if n.Op == "or" && truthy(left) {
				return left, nil
			}
			return in.eval(n.Right, env)
		}
		left, err := in.eval(n.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := in.eval(n.Right, env)
		if err != nil {
			return nil, err
		}
		return in.binop(n.Op, left, right)
	case *UnaryExpr:
		v, err := in.eval(n.Operand, env)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case "-":
			num, ok := toNumber(v)
			if !ok {
				return nil, &RuntimeError{Msg: "attempt to negate a non-number"}
			}
			return -num, nil
		case "not":
			return !truthy(v), nil
		case "#":
			switch val := v.(type) {
			case string:
				return float64(len(val)), nil
			case *LuaTable:
				return float64(val.Len()), nil
			}
			return nil, &RuntimeError{Msg: "attempt to get length of a non-sequence"}
		}
	case *CallExpr, *MethodCallExpr:
		rets, err := in.evalMulti(e, env)
		if err != nil {
			return nil, err
		}
		if len(rets) == 0 {
			return nil, nil
		}
		return rets[0], nil
	case *IndexExpr:
		obj, err := in.eval(n.Obj, env)
		if err != nil {
			return nil, err
		}
		key, err := in.eval(n.Key, env)
		if err != nil {
			return nil, err
		}
		return in.index(obj, key)
	case *TableExpr:
		table := NewTable()
		arrayIndex := 1
		for i, f := range n.Fields {
			if f.Key != nil {
				key, err := in.eval(f.Key, env)
				if err != nil {
					return nil, err
				}
				value, err := in.eval(f.Value, env)
				if err != nil {
					return nil, err
				}
				table.Set(key, value)
				continue
			}
			if i == len(n.Fields)-1 {
				// Trailing array entry spreads multi-value results.
				multi, err := in.evalMulti(f.Value, env)
				if err != nil {
					return nil, err
				}
				for _, v := range multi {
					table.Set(float64(arrayIndex), v)
					arrayIndex++
				}
				continue
			}
			value, err := in.eval(f.Value, env)
			if err != nil {
				return nil, err
			}
			table.Set(float64(arrayIndex), value)
			arrayIndex++
		}
		return table, nil
	case *FunctionExpr:
		return &LuaFunction{fn: n, env: env}, nil
	case *VarargExpr:
		vs, ok := env.varargValues()
		if !ok {
			return nil, &RuntimeError{Msg: "cannot use '...' outside a vararg function"}
		}
		if len(vs) > 0 {
			return vs[0], nil
		}
		return nil, nil
	}
	return nil, &RuntimeError{Msg: fmt.Sprintf("cannot evaluate %T", e)}
}

func (in *Interp) evalNumber(e Expr, env *frame) (float64, error) {
	v, err := in.eval(e, env)
	if err != nil {
		return 0, err
	}
	num, ok := toNumber(v)
	if !ok {
		return 0, &RuntimeError{Msg: "value is not a number"}
	}
	return num, nil
}

func (in *Interp) index(obj, key Value) (Value, error) {
	switch o := obj.(type) {
	case *LuaTable:
		return o.Get(key), nil
	case string:
		// Just enough of the string library surface for method sugar.
		if name, ok := key.(string); ok {
			if lib, ok := in.Globals.Get("string").(*LuaTable); ok {
				return lib.Get(name), nil
			}
		}
	}
	return nil, &RuntimeError{Msg: "attempt to index a non-table value"}
}

func (in *Interp) call(fn Value, args []Value) ([]Value, error) {
	if err := in.tick(); err != nil {
		return nil, err
	}
	switch f := fn.(type) {
	case GoFunction:
		return f(args)
	case *LuaFunction:
		env := newFrame(f.env)
		for i, param := range f.fn.Params {
			if i < len(args) {
				env.define(param, args[i])
			} else {
				env.define(param, nil)
			}
		}
		// Every function entry is a vararg boundary; non-vararg functions
		// just see an empty `...` and drop extra arguments.
		env.hasVarargs = true
		if f.fn.IsVararg && len(args) > len(f.fn.Params) {
			env.varargs = args[len(f.fn.Params):]
		}
		c, err := in.execBlock(f.fn.Body, env)
		if err != nil {
			return nil, err
		}
		if c.kind == ctrlReturn {
			return c.values, nil
		}
		return nil, nil
	}
	return nil, &RuntimeError{Msg: "attempt to call a non-function value"}
}

func (in *Interp) binop(op string, left, right Value) (Value, error) {
	switch op {
	case "+", "-", "*", "/", "%", "^", "//":
		a, okA := toNumber(left)
		b, okB := toNumber(right)
		if !okA || !okB {
			return nil, &RuntimeError{Msg: "attempt to perform arithmetic on a non-number"}
		}
		switch op {
		case "+":
			return a + b, nil
		case "-":
			return a - b, nil
		case "*":
			return a * b, nil
		case "/":
			return a / b, nil
		case "%":
			return a - math.Floor(a/b)*b, nil
		case "^":
			return math.Pow(a, b), nil
		case "//":
			return math.Floor(a / b), nil
		}
	case "..":
		as, okA := toConcatString(left)
		bs, okB := toConcatString(right)
		if !okA || !okB {
			return nil, &RuntimeError{Msg: "attempt to concatenate a non-string"}
		}
		return as + bs, nil
	case "==":
		return valuesEqual(left, right), nil
	case "~=":
		return !valuesEqual(left, right), nil
	case "<", "<=", ">", ">=":
		if a, ok := toNumberStrict(left); ok {
			b, ok := toNumberStrict(right)
			if !ok {
				return nil, &RuntimeError{Msg: "attempt to compare number with non-number"}
			}
			switch op {
			case "<":
				return a < b, nil
			case "<=":
				return a <= b, nil
			case ">":
				return a > b, nil
			case ">=":
				return a >= b, nil
			}
		}
		if a, ok := left.(string); ok {
			b, ok := right.(string)
			if !ok {
				return nil, &RuntimeError{Msg: "attempt to compare string with non-string"}
			}
			switch op {
			case "<":
				return a < b, nil
			case "<=":
				return a <= b, nil
			case ">":
				return a > b, nil
			case ">=":
				return a >= b, nil
			}
		}
		return nil, &RuntimeError{Msg: "attempt to compare incompatible values"}
	}
	return nil, &RuntimeError{Msg: fmt.Sprintf("unsupported operator %q", op)}
}

// --- coercions and equality ---

func truthy(v Value) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

func toNumber(v Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		parsed, err := parseNumber(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// toNumberStrict does not coerce strings (comparison semantics).
func toNumberStrict(v Value) (float64, bool) {
	n, ok := v.(float64)
	return n, ok
}

func toConcatString(v Value) (string, bool) {
	switch n := v.(type) {
	case string:
		return n, true
	case float64:
		return FormatNumber(n), true
	}
	return "", false
}

func valuesEqual(a, b Value) bool {
	if a == nil && b == nil {
		return true
	}
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	// Tables and functions compare by identity.
	return a == b
}

// ToString renders a value the way Lua's tostring does for the supported
// types (tables and functions get a stable placeholder, not an address).
func ToString(v Value) string {
	switch n := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(n)
	case float64:
		return FormatNumber(n)
	case string:
		return n
	case *LuaTable:
		return "table"
	default:
		return "function"
	}
}

// --- builtins ---

func (in *Interp) installBuiltins() {
	in.Globals.Set("print", GoFunction(func(args []Value) ([]Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = ToString(a)
		}
		in.Out.WriteString(strings.Join(parts, "\t"))
		in.Out.WriteByte('\n')
		return nil, nil
	}))
	in.Globals.Set("tostring", GoFunction(func(args []Value) ([]Value, error) {
		if len(args) == 0 {
			return []Value{"nil"}, nil
		}
		return []Value{ToString(args[0])}, nil
	}))
	in.Globals.Set("tonumber", GoFunction(func(args []Value) ([]Value, error) {
		if len(args) == 0 {
			return []Value{nil}, nil
		}
		if n, ok := toNumber(args[0]); ok {
			return []Value{n}, nil
		}
		return []Value{nil}, nil
	}))
	in.Globals.Set("error", GoFunction(func(args []Value) ([]Value, error) {
		msg := "error"
		if len(args) > 0 {
			msg = ToString(args[0])
		}
		return nil, &RuntimeError{Msg: msg}
	}))
	in.Globals.Set("assert", GoFunction(func(args []Value) ([]Value, error) {
		if len(args) == 0 || !truthy(args[0]) {
			msg := "assertion failed!"
			if len(args) > 1 {
				msg = ToString(args[1])
			}
			return nil, &RuntimeError{Msg: msg}
		}
		return args, nil
	}))
	in.Globals.Set("type", GoFunction(func(args []Value) ([]Value, error) {
		if len(args) == 0 || args[0] == nil {
			return []Value{"nil"}, nil
		}
		switch args[0].(type) {
		case bool:
			return []Value{"boolean"}, nil
		case float64:
			return []Value{"number"}, nil
		case string:
			return []Value{"string"}, nil
		case *LuaTable:
			return []Value{"table"}, nil
		}
		return []Value{"function"}, nil
	}))
	in.Globals.Set("_G", in.Globals)
	unpackFn := GoFunction(func(args []Value) ([]Value, error) {
		table, ok := argTable(args, 0)
		if !ok {
			return nil, &RuntimeError{Msg: "bad argument to 'unpack'"}
		}
		from, to := 1, table.Len()
		if len(args) > 1 {
			if n, ok := toNumber(args[1]); ok {
				from = int(n)
			}
		}
		if len(args) > 2 {
			if n, ok := toNumber(args[2]); ok {
				to = int(n)
			}
		}
		var out []Value
		for i := from; i <= to; i++ {
			out = append(out, table.Get(float64(i)))
		}
		return out, nil
	})
	in.Globals.Set("unpack", unpackFn)
	in.Globals.Set("pairs", GoFunction(func(args []Value) ([]Value, error) {
		table, ok := argTable(args, 0)
		if !ok {
			return nil, &RuntimeError{Msg: "bad argument to 'pairs'"}
		}
		keys := sortedKeys(table)
		i := 0
		iter := GoFunction(func([]Value) ([]Value, error) {
			if i >= len(keys) {
				return []Value{nil}, nil
			}
			k := keys[i]
			i++
			return []Value{k, table.Get(k)}, nil
		})
		return []Value{iter, table, nil}, nil
	}))
	in.Globals.Set("ipairs", GoFunction(func(args []Value) ([]Value, error) {
		table, ok := argTable(args, 0)
		if !ok {
			return nil, &RuntimeError{Msg: "bad argument to 'ipairs'"}
		}
		i := 0
		iter := GoFunction(func([]Value) ([]Value, error) {
			i++
			v := table.Get(float64(i))
			if v == nil {
				return []Value{nil}, nil
			}
			return []Value{float64(i), v}, nil
		})
		return []Value{iter, table, float64(0)}, nil
	}))

	stringLib := NewTable()
	stringLib.Set("char", GoFunction(func(args []Value) ([]Value, error) {
		var sb strings.Builder
		for _, a := range args {
			n, ok := toNumber(a)
			if !ok || n < 0 || n > 255 {
				return nil, &RuntimeError{Msg: "bad argument to 'string.char'"}
			}
			sb.WriteByte(byte(int(n)))
		}
		return []Value{sb.String()}, nil
	}))
	stringLib.Set("byte", GoFunction(func(args []Value) ([]Value, error) {
		s, ok := argString(args, 0)
		if !ok {
			return nil, &RuntimeError{Msg: "bad argument to 'string.byte'"}
		}
		i := 1
		if len(args) > 1 {
			if n, ok := toNumber(args[1]); ok {
				i = int(n)
			}
		}
		if i < 1 || i > len(s) {
			return []Value{nil}, nil
		}
		return []Value{float64(s[i-1])}, nil
	}))
	stringLib.Set("len", GoFunction(func(args []Value) ([]Value, error) {
		s, ok := argString(args, 0)
		if !ok {
			return nil, &RuntimeError{Msg: "bad argument to 'string.len'"}
		}
		return []Value{float64(len(s))}, nil
	}))
	stringLib.Set("sub", GoFunction(func(args []Value) ([]Value, error) {
		s, ok := argString(args, 0)
		if !ok {
			return nil, &RuntimeError{Msg: "bad argument to 'string.sub'"}
		}
		from, to := 1, len(s)
		if len(args) > 1 {
			if n, ok := toNumber(args[1]); ok {
				from = int(n)
			}
		}
		if len(args) > 2 {
			if n, ok := toNumber(args[2]); ok {
				to = int(n)
			}
		}
		if from < 0 {
			from = len(s) + from + 1
		}
		if to < 0 {
			to = len(s) + to + 1
		}
		if from < 1 {
			from = 1
		}
		if to > len(s) {
			to = len(s)
		}
		if from > to {
			return []Value{""}, nil
		}
		return []Value{s[from-1 : to]}, nil
	}))
	stringLib.Set("rep", GoFunction(func(args []Value) ([]Value, error) {
		s, ok := argString(args, 0)
		if !ok {
			return nil, &RuntimeError{Msg: "bad argument to 'string.rep'"}
		}
		n := 0.0
		if len(args) > 1 {
			n, _ = toNumber(args[1])
		}
		if n < 0 {
			n = 0
		}
		return []Value{strings.Repeat(s, int(n))}, nil
	}))
	in.Globals.Set("string", stringLib)

	tableLib := NewTable()
	tableLib.Set("concat", GoFunction(func(args []Value) ([]Value, error) {
		table, ok := argTable(args, 0)
		if !ok {
			return nil, &RuntimeError{Msg: "bad argument to 'table.concat'"}
		}
		sep := ""
		if len(args) > 1 {
			if s, ok := args[1].(string); ok {
				sep = s
			}
		}
		var parts []string
		for i := 1; ; i++ {
			v := table.Get(float64(i))
			if v == nil {
				break
			}
			s, ok := toConcatString(v)
			if !ok {
				return nil, &RuntimeError{Msg: "invalid value in 'table.concat'"}
			}
			parts = append(parts, s)
		}
		return []Value{strings.Join(parts, sep)}, nil
	}))
	tableLib.Set("insert", GoFunction(func(args []Value) ([]Value, error) {
		table, ok := argTable(args, 0)
		if !ok || len(args) < 2 {
			return nil, &RuntimeError{Msg: "bad argument to 'table.insert'"}
		}
		table.Set(float64(table.Len()+1), args[1])
		return nil, nil
	}))
	tableLib.Set("remove", GoFunction(func(args []Value) ([]Value, error) {
		table, ok := argTable(args, 0)
		if !ok {
			return nil, &RuntimeError{Msg: "bad argument to 'table.remove'"}
		}
		n := table.Len()
		if n == 0 {
			return []Value{nil}, nil
		}
		v := table.Get(float64(n))
		table.Set(float64(n), nil)
		return []Value{v}, nil
	}))
	tableLib.Set("unpack", unpackFn)
	in.Globals.Set("table", tableLib)

	mathLib := NewTable()
	mathLib.Set("floor", GoFunction(func(args []Value) ([]Value, error) {
		n, ok := toNumber(argOr(args, 0))
		if !ok {
			return nil, &RuntimeError{Msg: "bad argument to 'math.floor'"}
		}
		return []Value{math.Floor(n)}, nil
	}))
	mathLib.Set("ceil", GoFunction(func(args []Value) ([]Value, error) {
		n, ok := toNumber(argOr(args, 0))
		if !ok {
			return nil, &RuntimeError{Msg: "bad argument to 'math.ceil'"}
		}
		return []Value{math.Ceil(n)}, nil
	}))
	mathLib.Set("abs", GoFunction(func(args []Value) ([]Value, error) {
		n, ok := toNumber(argOr(args, 0))
		if !ok {
			return nil, &RuntimeError{Msg: "bad argument to 'math.abs'"}
		}
		return []Value{math.Abs(n)}, nil
	}))
	mathLib.Set("max", GoFunction(func(args []Value) ([]Value, error) {
		if len(args) == 0 {
			return nil, &RuntimeError{Msg: "bad argument to 'math.max'"}
		}
		best := math.Inf(-1)
		for _, a := range args {
			n, ok := toNumber(a)
			if !ok {
				return nil, &RuntimeError{Msg: "bad argument to 'math.max'"}
			}
			best = math.Max(best, n)
		}
		return []Value{best}, nil
	}))
	mathLib.Set("huge", math.Inf(1))
	in.Globals.Set("math", mathLib)
}

func argOr(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func argString(args []Value, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok
}

func argTable(args []Value, i int) (*LuaTable, bool) {
	if i >= len(args) {
		return nil, false
	}
	t, ok := args[i].(*LuaTable)
	return t, ok
}

// sortedKeys returns a table's keys in a deterministic order so pairs-based
// iteration is reproducible across runs.
func sortedKeys(t *LuaTable) []Value {
	var nums []float64
	var strs []string
	var rest []Value
	for k := range t.hash {
		switch key := k.(type) {
		case float64:
			nums = append(nums, key)
		case string:
			strs = append(strs, key)
		default:
			rest = append(rest, k)
		}
	}
	sort.Float64s(nums)
	sort.Strings(strs)
	keys := make([]Value, 0, len(nums)+len(strs)+len(rest))
	for _, n := range nums {
		keys = append(keys, n)
	}
	for _, s := range strs {
		keys = append(keys, s)
	}
	keys = append(keys, rest...)
	return keys
}
