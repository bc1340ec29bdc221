package transformer

import (
	"github.com/whit3rabbit/luamixer/internal/lua"
)

// ControlFlowFlattening rewrites function bodies (and the chunk body) into a
// dispatch loop driven by a shuffled integer state variable. Flattening works
// at whole-statement granularity: each original statement becomes one
// dispatch case, so loops and conditionals stay intact inside their case and
// any `break` they contain still binds to its own loop. A `return` inside a
// case returns from the enclosing function, which is the same logical target
// as before flattening.
//
// Top-level locals are hoisted into a predeclaration ahead of the loop; their
// Declaration objects are reused, so every reference stays bound. Blocks with
// top-level goto/label are skipped: the label's target offset would not
// survive the statement shuffle.
type controlFlowFlattening struct {
	minStatements int
}

func newControlFlowFlattening(opts map[string]any) (Step, error) {
	minStatements, err := optInt(opts, "MinStatements", 2)
	if err != nil {
		return nil, err
	}
	if minStatements < 2 {
		minStatements = 2
	}
	return &controlFlowFlattening{minStatements: minStatements}, nil
}

func (*controlFlowFlattening) Name() string        { return "ControlFlowFlattening" }
func (*controlFlowFlattening) RunsAfter() []string { return nil }

func (s *controlFlowFlattening) Apply(chunk *lua.Chunk, ctx *Context) (*lua.Chunk, error) {
	flattened := 0
	lua.Inspect(chunk, func(n lua.Node) bool {
		if ctx.IsSynthetic(n) {
			return false
		}
		if fn, ok := n.(*lua.FunctionExpr); ok {
			if s.flattenBlock(fn.Body, ctx) {
				flattened++
			}
		}
		return true
	})
	if s.flattenBlock(chunk.Body, ctx) {
		flattened++
	}
	ctx.MarkApplied(s.Name())
	ctx.Logf("ControlFlowFlattening: flattened %d blocks", flattened)
	return chunk, nil
}

func (s *controlFlowFlattening) flattenBlock(block *lua.Block, ctx *Context) bool {
	if len(block.Stmts) < s.minStatements {
		return false
	}
	for _, st := range block.Stmts {
		switch st.(type) {
		case *lua.GotoStmt, *lua.LabelStmt:
			return false
		}
	}

	// Injected support code sits at the front of the block; keep it there so
	// later steps still recognize it.
	prologue := 0
	for prologue < len(block.Stmts) && ctx.IsSynthetic(block.Stmts[prologue]) {
		prologue++
	}
	stmts := block.Stmts[prologue:]
	if len(stmts) < s.minStatements {
		return false
	}

	// Hoist local declarations so every case can reach them; initializers
	// become plain assignments executed in their original order.
	var hoisted []*lua.Declaration
	cases := make([]lua.Stmt, 0, len(stmts))
	for _, st := range stmts {
		switch n := st.(type) {
		case *lua.LocalStmt:
			hoisted = append(hoisted, n.Decls...)
			if len(n.Exprs) == 0 {
				// Fresh locals are nil anyway; the case becomes a no-op and
				// is dropped.
				continue
			}
			targets := make([]lua.Expr, len(n.Decls))
			for i, d := range n.Decls {
				targets[i] = lua.Ref(d.Name, d)
			}
			cases = append(cases, &lua.AssignStmt{Pos: n.Pos, Targets: targets, Exprs: n.Exprs})
		case *lua.FunctionDeclStmt:
			if n.IsLocal {
				hoisted = append(hoisted, n.Decl)
				cases = append(cases, &lua.AssignStmt{
					Pos:     n.Pos,
					Targets: []lua.Expr{lua.Ref(n.Decl.Name, n.Decl)},
					Exprs:   []lua.Expr{n.Func},
				})
				continue
			}
			cases = append(cases, n)
		default:
			cases = append(cases, st)
		}
	}
	if len(cases) < 2 {
		return false
	}

	// One distinct random key per case plus an exit key, assigned in
	// shuffled order so the source order of cases reveals nothing.
	keys := s.distinctKeys(len(cases)+1, ctx)
	exitKey := keys[len(cases)]

	stateName := ctx.GenName()
	stateDecl := ctx.NewDecl(stateName, lua.DeclLocal, block.Scope)
	stateRef := func() *lua.VariableRef { return lua.Ref(stateName, stateDecl) }

	order := ctx.Rand.Perm(len(cases))
	clauses := make([]lua.IfClause, 0, len(cases))
	for _, idx := range order {
		next := exitKey
		if idx+1 < len(cases) {
			next = keys[idx+1]
		}
		caseStmts := []lua.Stmt{cases[idx]}
		if _, isReturn := cases[idx].(*lua.ReturnStmt); !isReturn {
			// A return exits the function on its own; anything after it in a
			// block would not even parse.
			caseStmts = append(caseStmts, &lua.AssignStmt{
				Targets: []lua.Expr{stateRef()},
				Exprs:   []lua.Expr{lua.Number(float64(next))},
			})
		}
		caseBlock := &lua.Block{
			Scope: lua.NewScope(block.Scope),
			Stmts: caseStmts,
		}
		clauses = append(clauses, lua.IfClause{
			Cond: &lua.BinaryExpr{Op: "==", Left: stateRef(), Right: lua.Number(float64(keys[idx]))},
			Body: caseBlock,
		})
	}

	loop := &lua.WhileStmt{
		Cond: &lua.BinaryExpr{Op: "~=", Left: stateRef(), Right: lua.Number(float64(exitKey))},
		Body: &lua.Block{
			Scope: lua.NewScope(block.Scope),
			Stmts: []lua.Stmt{&lua.IfStmt{Clauses: clauses}},
		},
	}

	newStmts := make([]lua.Stmt, 0, prologue+3)
	newStmts = append(newStmts, block.Stmts[:prologue]...)
	if len(hoisted) > 0 {
		newStmts = append(newStmts, &lua.LocalStmt{Decls: hoisted})
	}
	newStmts = append(newStmts,
		&lua.LocalStmt{
			Decls: []*lua.Declaration{stateDecl},
			Exprs: []lua.Expr{lua.Number(float64(keys[0]))},
		},
		loop,
	)
	block.Stmts = newStmts
	return true
}

// distinctKeys draws n distinct non-negative ints below a bound wide enough
// to make the dispatch constants look arbitrary.
func (s *controlFlowFlattening) distinctKeys(n int, ctx *Context) []int {
	seen := make(map[int]bool, n)
	keys := make([]int, 0, n)
	for len(keys) < n {
		k := ctx.Rand.Intn(1 << 24)
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}
