package transformer

import (
	"fmt"
	"strings"

	"github.com/whit3rabbit/luamixer/internal/lua"
)

// EncryptStrings replaces string literals with calls to an injected decoder.
// Encoding shifts each byte by a per-string key plus its position; the
// emitted Lua undoes the shift at runtime, so decode(encode(s)) == s for
// every string including "" and strings with quotes or newlines.
type encryptStrings struct {
	minLength int
}

func newEncryptStrings(opts map[string]any) (Step, error) {
	minLength, err := optInt(opts, "MinLength", 0)
	if err != nil {
		return nil, err
	}
	return &encryptStrings{minLength: minLength}, nil
}

func (*encryptStrings) Name() string        { return "EncryptStrings" }
func (*encryptStrings) RunsAfter() []string { return nil }

// decoderSource is the runtime decoder. %s is the generated function name.
const decoderSource = `local function %s(t, k)
	local r = {}
	for i = 1, #t do
		r[i] = string.char((t[i] - k - (i - 1)) %% 256)
	end
	return table.concat(r)
end`

func (s *encryptStrings) Apply(chunk *lua.Chunk, ctx *Context) (*lua.Chunk, error) {
	excluded := excludedLiterals(chunk, ctx)

	// Find eligible sites first so a chunk without strings stays untouched.
	eligible := make(map[*lua.Literal]bool)
	lua.Inspect(chunk, func(n lua.Node) bool {
		lit, ok := n.(*lua.Literal)
		if !ok {
			return true
		}
		if lit.Kind != lua.LiteralString || excluded[lit] || len(lit.Str) < s.minLength {
			return true
		}
		if ctx.Marked(lit, s.Name()) {
			return true
		}
		eligible[lit] = true
		return true
	})
	if len(eligible) == 0 {
		return chunk, nil
	}

	decoderName := ctx.GenName()
	helper, err := ctx.ModuleFromSource(fmt.Sprintf(decoderSource, decoderName))
	if err != nil {
		return nil, &InvariantError{Step: s.Name(), Msg: err.Error()}
	}
	decoderStmt, ok := helper.Body.Stmts[0].(*lua.FunctionDeclStmt)
	if !ok || decoderStmt.Decl == nil {
		return nil, &InvariantError{Step: s.Name(), Msg: "decoder did not parse to a local function"}
	}
	decoderDecl := decoderStmt.Decl

	count := 0
	lua.RewriteExprs(chunk, func(e lua.Expr) lua.Expr {
		lit, ok := e.(*lua.Literal)
		if !ok || !eligible[lit] {
			return e
		}
		key := ctx.Rand.Intn(256)
		fields := make([]lua.TableField, len(lit.Str))
		for i := 0; i < len(lit.Str); i++ {
			b := (int(lit.Str[i]) + key + i) % 256
			enc := lua.Number(float64(b))
			ctx.Mark(enc, s.Name())
			fields[i] = lua.TableField{Value: enc}
		}
		keyLit := lua.Number(float64(key))
		ctx.Mark(keyLit, s.Name())
		call := &lua.CallExpr{
			Pos: lit.Pos,
			Fn:  lua.Ref(decoderName, decoderDecl),
			Args: []lua.Expr{
				&lua.TableExpr{Fields: fields},
				keyLit,
			},
		}
		count++
		return call
	})

	// Splice the decoder in front of the chunk and fold its declaration into
	// the chunk scope so the renamer sees it.
	decoderStmt.Func.Body.Scope.Parent = chunk.Body.Scope
	chunk.Body.Scope.Declare(decoderDecl)
	chunk.Body.Stmts = append([]lua.Stmt{decoderStmt}, chunk.Body.Stmts...)
	ctx.MarkSynthetic(decoderStmt)
	ctx.Mark(decoderStmt, s.Name())
	ctx.MarkApplied(s.Name())
	ctx.Logf("EncryptStrings: encrypted %d string literals", count)
	return chunk, nil
}

// decodeShifted is the Go-side inverse used by tests.
func decodeShifted(bytes []int, key int) string {
	var sb strings.Builder
	for i, b := range bytes {
		sb.WriteByte(byte(((b-key-i)%256 + 256) % 256))
	}
	return sb.String()
}
