package transformer

import (
	"github.com/whit3rabbit/luamixer/internal/lua"
)

// WrapInFunction moves the chunk body into an immediately invoked vararg
// function: `return (function(...) <body> end)(...)`. Top-level varargs keep
// working because the wrapper forwards them, and global reads/writes are
// untouched; only the local scoping boundary changes.
type wrapInFunction struct{}

func newWrapInFunction(opts map[string]any) (Step, error) {
	return &wrapInFunction{}, nil
}

func (*wrapInFunction) Name() string        { return "WrapInFunction" }
func (*wrapInFunction) RunsAfter() []string { return nil }

func (s *wrapInFunction) Apply(chunk *lua.Chunk, ctx *Context) (*lua.Chunk, error) {
	inner := chunk.Body
	outerScope := lua.NewScope(nil)
	inner.Scope.Parent = outerScope
	inner.Scope.Function = true

	fn := &lua.FunctionExpr{
		Pos:      inner.Pos,
		IsVararg: true,
		Body:     inner,
	}
	call := &lua.CallExpr{
		Fn:   fn,
		Args: []lua.Expr{&lua.VarargExpr{}},
	}
	chunk.Body = &lua.Block{
		Pos:   inner.Pos,
		Scope: outerScope,
		Stmts: []lua.Stmt{&lua.ReturnStmt{Exprs: []lua.Expr{call}}},
	}
	ctx.MarkApplied(s.Name())
	return chunk, nil
}
