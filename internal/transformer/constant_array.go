package transformer

import (
	"github.com/whit3rabbit/luamixer/internal/lua"
)

// ConstantArray moves repeated literal constants into one generated array at
// the top of the chunk and rewrites every moved site to an indexed lookup.
// The array is initialized before any statement runs, so every read resolves
// to the original value.
type constantArray struct {
	threshold   int
	stringsOnly bool
}

func newConstantArray(opts map[string]any) (Step, error) {
	// The original tool shipped with this option misspelled; accept both so
	// existing configs keep working.
	threshold, err := optInt(opts, "Threshold", -1)
	if err != nil {
		return nil, err
	}
	if threshold < 0 {
		threshold, err = optInt(opts, "Treshold", 2)
		if err != nil {
			return nil, err
		}
	}
	if threshold < 1 {
		threshold = 1
	}
	stringsOnly, err := optBool(opts, "StringsOnly", true)
	if err != nil {
		return nil, err
	}
	return &constantArray{threshold: threshold, stringsOnly: stringsOnly}, nil
}

func (*constantArray) Name() string        { return "ConstantArray" }
func (*constantArray) RunsAfter() []string { return nil }

func (s *constantArray) Apply(chunk *lua.Chunk, ctx *Context) (*lua.Chunk, error) {
	excluded := excludedLiterals(chunk, ctx)

	// First pass: count eligible occurrences per value.
	counts := make(map[ConstValue]int)
	lua.Inspect(chunk, func(n lua.Node) bool {
		lit, ok := n.(*lua.Literal)
		if !ok {
			return true
		}
		if excluded[lit] || !s.eligible(lit) {
			return true
		}
		counts[ConstKey(lit)]++
		return true
	})

	name := ctx.GenName()
	decl := ctx.NewDecl(name, lua.DeclLocal, nil)

	// Second pass: intern qualifying values and rewrite their sites.
	moved := 0
	lua.RewriteExprs(chunk, func(e lua.Expr) lua.Expr {
		lit, ok := e.(*lua.Literal)
		if !ok || excluded[lit] || !s.eligible(lit) {
			return e
		}
		key := ConstKey(lit)
		if counts[key] < s.threshold {
			return e
		}
		idx := ctx.PoolAdd(key)
		moved++
		return &lua.IndexExpr{
			Pos: lit.Pos,
			Obj: lua.Ref(name, decl),
			Key: lua.Number(float64(idx + 1)),
		}
	})

	pool := ctx.Pool()
	if len(pool) == 0 {
		return chunk, nil
	}

	fields := make([]lua.TableField, len(pool))
	for i, v := range pool {
		fields[i] = lua.TableField{Value: v.Expr()}
	}
	arrayStmt := &lua.LocalStmt{
		Decls: []*lua.Declaration{decl},
		Exprs: []lua.Expr{&lua.TableExpr{Fields: fields}},
	}
	chunk.Body.Scope.Declare(decl)
	chunk.Body.Stmts = append([]lua.Stmt{arrayStmt}, chunk.Body.Stmts...)
	ctx.MarkSynthetic(arrayStmt)
	ctx.MarkApplied(s.Name())
	ctx.Logf("ConstantArray: moved %d literal sites into a %d-entry pool", moved, len(pool))
	return chunk, nil
}

func (s *constantArray) eligible(lit *lua.Literal) bool {
	switch lit.Kind {
	case lua.LiteralString:
		return true
	case lua.LiteralNumber, lua.LiteralBool:
		return !s.stringsOnly
	}
	return false
}

// excludedLiterals collects literal nodes that must never be rewritten to a
// pool lookup: `.name` index sugar, `name =` table keys, and anything inside
// injected support code.
func excludedLiterals(chunk *lua.Chunk, ctx *Context) map[*lua.Literal]bool {
	excluded := make(map[*lua.Literal]bool)
	markAll := func(root lua.Node) {
		lua.Inspect(root, func(n lua.Node) bool {
			if lit, ok := n.(*lua.Literal); ok {
				excluded[lit] = true
			}
			return true
		})
	}
	lua.Inspect(chunk, func(n lua.Node) bool {
		if ctx.IsSynthetic(n) {
			markAll(n)
			return false
		}
		switch node := n.(type) {
		case *lua.IndexExpr:
			if node.Dot {
				if lit, ok := node.Key.(*lua.Literal); ok {
					excluded[lit] = true
				}
			}
		case *lua.TableExpr:
			for _, f := range node.Fields {
				if f.NameKey {
					if lit, ok := f.Key.(*lua.Literal); ok {
						excluded[lit] = true
					}
				}
			}
		}
		return true
	})
	return excluded
}
