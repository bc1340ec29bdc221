package transformer

import (
	"fmt"

	"github.com/whit3rabbit/luamixer/internal/lua"
)

// AntiTamper injects a marker string plus a runtime check that recomputes
// the marker's position-weighted checksum and calls error on mismatch. The
// guard is self-contained: it checksums only its own marker, so it carries no
// ordering constraint against the restructuring steps, never fires on
// unmodified output, and trips deterministically when the marker bytes are
// edited.
type antiTamper struct{}

func newAntiTamper(opts map[string]any) (Step, error) {
	return &antiTamper{}, nil
}

func (*antiTamper) Name() string        { return "AntiTamper" }
func (*antiTamper) RunsAfter() []string { return nil }

const tamperModulus = 1 << 24

const guardSource = `local %[1]s = %[2]s
local %[3]s = 0
for %[4]s = 1, #%[1]s do
	%[3]s = (%[3]s + string.byte(%[1]s, %[4]s) * %[4]s) %% %[5]d
end
if %[3]s ~= %[6]d then
	error("integrity check failed")
end`

func (s *antiTamper) Apply(chunk *lua.Chunk, ctx *Context) (*lua.Chunk, error) {
	marker := s.marker(ctx)
	guard, err := ctx.ModuleFromSource(fmt.Sprintf(guardSource,
		ctx.GenName(), lua.QuoteString(marker), ctx.GenName(), ctx.GenName(),
		tamperModulus, Checksum(marker)))
	if err != nil {
		return nil, &InvariantError{Step: s.Name(), Msg: err.Error()}
	}
	for _, d := range guard.Body.Scope.Decls {
		chunk.Body.Scope.Declare(d)
	}
	stmts := make([]lua.Stmt, 0, len(guard.Body.Stmts)+len(chunk.Body.Stmts))
	for _, st := range guard.Body.Stmts {
		ctx.MarkSynthetic(st)
		stmts = append(stmts, st)
	}
	chunk.Body.Stmts = append(stmts, chunk.Body.Stmts...)
	ctx.MarkApplied(s.Name())
	return chunk, nil
}

// marker draws a printable random string long enough that casual edits are
// very likely to land inside it.
func (s *antiTamper) marker(ctx *Context) string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	n := 24 + ctx.Rand.Intn(9)
	b := make([]byte, n)
	for i := range b {
		b[i] = chars[ctx.Rand.Intn(len(chars))]
	}
	return string(b)
}

// Checksum is the position-weighted byte sum the guard recomputes at runtime.
func Checksum(s string) int {
	sum := 0
	for i := 0; i < len(s); i++ {
		sum = (sum + int(s[i])*(i+1)) % tamperModulus
	}
	return sum
}
