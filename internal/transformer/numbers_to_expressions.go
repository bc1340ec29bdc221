package transformer

import (
	"math"

	"github.com/whit3rabbit/luamixer/internal/lua"
)

// NumbersToExpressions replaces integral literals with randomly chosen
// side-effect-free arithmetic that evaluates to exactly the original value.
// Only values representable exactly as floats are touched, so the rewritten
// expression is observably equal under the dialect's numeric rules.
type numbersToExpressions struct{}

func newNumbersToExpressions(opts map[string]any) (Step, error) {
	return &numbersToExpressions{}, nil
}

func (*numbersToExpressions) Name() string        { return "NumbersToExpressions" }
func (*numbersToExpressions) RunsAfter() []string { return nil }

const n2eLimit = 1 << 31

func (s *numbersToExpressions) Apply(chunk *lua.Chunk, ctx *Context) (*lua.Chunk, error) {
	excluded := excludedLiterals(chunk, ctx)

	count := 0
	lua.RewriteExprs(chunk, func(e lua.Expr) lua.Expr {
		lit, ok := e.(*lua.Literal)
		if !ok || lit.Kind != lua.LiteralNumber || excluded[lit] {
			return e
		}
		if ctx.Marked(lit, s.Name()) {
			return e
		}
		n := lit.Num
		if n != math.Trunc(n) || math.Abs(n) <= 3 || math.Abs(n) >= n2eLimit {
			return e
		}
		count++
		return s.rewrite(int64(n), lit.Pos, ctx)
	})
	ctx.MarkApplied(s.Name())
	if count > 0 {
		ctx.Logf("NumbersToExpressions: rewrote %d numeric literals", count)
	}
	return chunk, nil
}

func (s *numbersToExpressions) rewrite(n int64, pos lua.Pos, ctx *Context) lua.Expr {
	num := func(v int64) *lua.Literal {
		l := lua.Number(float64(v))
		l.Pos = pos
		ctx.Mark(l, s.Name())
		return l
	}
	switch ctx.Rand.Intn(3) {
	case 0:
		// n == a + b
		a := ctx.Rand.Int63n(n2eLimit)
		return &lua.BinaryExpr{Pos: pos, Op: "+", Left: num(a), Right: num(n - a)}
	case 1:
		// n == a - b
		b := ctx.Rand.Int63n(n2eLimit)
		return &lua.BinaryExpr{Pos: pos, Op: "-", Left: num(n + b), Right: num(b)}
	default:
		// n == a * b + c
		b := int64(2 + ctx.Rand.Intn(8))
		a := n / b
		c := n - a*b
		return &lua.BinaryExpr{
			Pos:   pos,
			Op:    "+",
			Left:  &lua.BinaryExpr{Pos: pos, Op: "*", Left: num(a), Right: num(b)},
			Right: num(c),
		}
	}
}
