package obfuscator

import (
	"github.com/whit3rabbit/luamixer/internal/lua"
	"github.com/whit3rabbit/luamixer/internal/scrambler"
)

// renamer replaces every local declaration name in the chunk with a generated
// identifier. Globals keep their names: the obfuscated output must still call
// the host's environment (print, game, require) by the names the host knows.
type renamer struct {
	scr *scrambler.Scrambler
}

// Rename renames all locals in place. It reserves every global name the
// source references first, so a generated name can never shadow a global the
// program still needs.
func (r *renamer) Rename(chunk *lua.Chunk) {
	lua.Inspect(chunk, func(n lua.Node) bool {
		if ref, ok := n.(*lua.VariableRef); ok && ref.Decl == nil {
			r.scr.Reserve(ref.Name)
		}
		return true
	})

	// Declarations are renamed in pre-order traversal order, which is stable
	// across runs for the same input, keeping output deterministic per seed.
	seen := make(map[*lua.Declaration]bool)
	rename := func(d *lua.Declaration) {
		if d == nil || seen[d] {
			return
		}
		seen[d] = true
		d.Name = r.scr.Rename(d.Name)
	}
	lua.Inspect(chunk, func(n lua.Node) bool {
		switch node := n.(type) {
		case *lua.LocalStmt:
			for _, d := range node.Decls {
				rename(d)
			}
		case *lua.NumericForStmt:
			rename(node.Var)
		case *lua.GenericForStmt:
			for _, d := range node.Vars {
				rename(d)
			}
		case *lua.FunctionDeclStmt:
			rename(node.Decl)
		case *lua.FunctionExpr:
			params := node.Params
			if node.ImplicitSelf && len(params) > 0 {
				// The sugared `self` parameter is never printed, so its name
				// must stay `self` for the body's references to resolve.
				seen[params[0]] = true
				params = params[1:]
			}
			for _, d := range params {
				rename(d)
			}
		}
		return true
	})

	// References always print their declaration's current name.
	lua.Inspect(chunk, func(n lua.Node) bool {
		if ref, ok := n.(*lua.VariableRef); ok && ref.Decl != nil {
			ref.Name = ref.Decl.Name
		}
		return true
	})
}
