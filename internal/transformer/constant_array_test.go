package transformer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whit3rabbit/luamixer/internal/lua"
)

func TestConstantArrayDedup(t *testing.T) {
	src := `print("dup", "dup", "dup")
print("dup", "dup")
print("once")`
	out := applySteps(t, src, 7, mustStep(t, "ConstantArray", nil))
	requireSameBehavior(t, src, out)

	// Five sites collapse into one pool entry; the single-use string stays.
	assert.Equal(t, 1, strings.Count(out, `"dup"`), "output: %s", out)
	assert.Contains(t, out, `"once"`)
}

func TestConstantArrayThreshold(t *testing.T) {
	src := `print("a", "a", "b", "b", "b")`
	out := applySteps(t, src, 7, mustStep(t, "ConstantArray", map[string]any{"Threshold": 3}))
	requireSameBehavior(t, src, out)
	assert.Equal(t, 2, strings.Count(out, `"a"`), "below threshold stays inline")
	assert.Equal(t, 1, strings.Count(out, `"b"`))
}

func TestConstantArrayMisspelledThresholdOption(t *testing.T) {
	// The original tool shipped the option as "Treshold"; both spellings work.
	src := `print("a", "a", "b", "b", "b")`
	out := applySteps(t, src, 7, mustStep(t, "ConstantArray", map[string]any{"Treshold": 3}))
	requireSameBehavior(t, src, out)
	assert.Equal(t, 2, strings.Count(out, `"a"`))
}

func TestConstantArrayStringsOnlyDefault(t *testing.T) {
	src := `print(99, 99, 99)`
	out := applySteps(t, src, 7, mustStep(t, "ConstantArray", nil))
	// Numbers stay inline under the default StringsOnly.
	assert.Equal(t, 3, strings.Count(out, "99"), "output: %s", out)

	out = applySteps(t, src, 7, mustStep(t, "ConstantArray", map[string]any{"StringsOnly": false}))
	requireSameBehavior(t, src, out)
	assert.Equal(t, 1, strings.Count(out, "99"), "output: %s", out)
}

func TestConstantArraySkipsTableKeySugar(t *testing.T) {
	src := `local t = {key = 1, key2 = 2}
print(t.key, t.key, t.key2)`
	out := applySteps(t, src, 7, mustStep(t, "ConstantArray", nil))
	requireSameBehavior(t, src, out)
	// The `.key` sugar and `key =` constructor names are not string literal
	// sites; nothing moves, so the chunk comes through unchanged.
	assert.Equal(t, "local t={key=1,key2=2};print(t.key,t.key,t.key2)", out)
}

func TestConstantArrayUntouchedWithoutLiterals(t *testing.T) {
	src := `local a = 1 print(a)`
	out := applySteps(t, src, 7, mustStep(t, "ConstantArray", nil))
	assert.Equal(t, "local a=1;print(a)", out)
}

func TestConstantArrayPoolIsFirstStatement(t *testing.T) {
	src := `print("x", "x")`
	chunk, err := lua.ParseSource(src, lua.Lua51)
	require.NoError(t, err)
	ctx := NewContext(lua.Lua51, 7, chunk.NextDeclID)
	chunk, err = mustStep(t, "ConstantArray", nil).Apply(chunk, ctx)
	require.NoError(t, err)

	first, ok := chunk.Body.Stmts[0].(*lua.LocalStmt)
	require.True(t, ok)
	assert.True(t, ctx.IsSynthetic(first), "pool must be marked as injected code")
}
