package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whit3rabbit/luamixer/internal/lua"
)

// applySteps parses src, runs the given steps with a fixed seed, and returns
// the printed result.
func applySteps(t *testing.T, src string, seed int64, steps ...Step) string {
	t.Helper()
	chunk, err := lua.ParseSource(src, lua.Lua51)
	require.NoError(t, err)
	ctx := NewContext(lua.Lua51, seed, chunk.NextDeclID)
	for _, step := range steps {
		chunk, err = step.Apply(chunk, ctx)
		require.NoError(t, err, "step %s", step.Name())
	}
	return lua.PrintChunk(chunk, lua.Compact)
}

// requireSameBehavior asserts that the transformed program prints exactly
// what the original does.
func requireSameBehavior(t *testing.T, src, transformed string) {
	t.Helper()
	want, err := lua.RunSource(src, lua.Lua51)
	require.NoError(t, err, "original program failed")
	got, err := lua.RunSource(transformed, lua.Lua51)
	require.NoError(t, err, "transformed program failed:\n%s", transformed)
	assert.Equal(t, want, got, "transformed:\n%s", transformed)
}

func mustStep(t *testing.T, name string, opts map[string]any) Step {
	t.Helper()
	step, err := NewStep(name, opts)
	require.NoError(t, err)
	return step
}

func TestNewStepUnknownName(t *testing.T) {
	_, err := NewStep("Nonexistent", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown step")
}

func TestKnownSteps(t *testing.T) {
	names := KnownSteps()
	assert.Equal(t, []string{
		"AntiTamper", "ConstantArray", "ControlFlowFlattening",
		"EncryptStrings", "NumbersToExpressions", "Vmify", "WrapInFunction",
	}, names)
}

func TestStepOptionTypeErrors(t *testing.T) {
	_, err := NewStep("ConstantArray", map[string]any{"Threshold": "lots"})
	require.Error(t, err)

	_, err = NewStep("ConstantArray", map[string]any{"StringsOnly": 1})
	require.Error(t, err)

	// yaml hands ints through as int; viper may produce float64.
	_, err = NewStep("ConstantArray", map[string]any{"Threshold": 3.0})
	require.NoError(t, err)

	_, err = NewStep("ConstantArray", map[string]any{"Threshold": 3.5})
	require.Error(t, err)
}

func TestVmifyOrderingConstraint(t *testing.T) {
	step := mustStep(t, "Vmify", nil)
	assert.Equal(t, []string{"ControlFlowFlattening"}, step.RunsAfter())
}

func TestContextPoolInterning(t *testing.T) {
	ctx := NewContext(lua.Lua51, 1, 0)
	a := ctx.PoolAdd(ConstValue{Kind: lua.LiteralString, Str: "x"})
	b := ctx.PoolAdd(ConstValue{Kind: lua.LiteralString, Str: "x"})
	c := ctx.PoolAdd(ConstValue{Kind: lua.LiteralNumber, Num: 1})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, ctx.Pool(), 2)
}

func TestContextDeclIDsContinueParser(t *testing.T) {
	chunk, err := lua.ParseSource("local a local b", lua.Lua51)
	require.NoError(t, err)
	ctx := NewContext(lua.Lua51, 1, chunk.NextDeclID)
	d := ctx.NewDecl("x", lua.DeclLocal, nil)
	assert.GreaterOrEqual(t, d.ID, chunk.NextDeclID)
}

func TestModuleFromSourceRenumbers(t *testing.T) {
	ctx := NewContext(lua.Lua51, 1, 100)
	helper, err := ctx.ModuleFromSource("local function f(a) return a end")
	require.NoError(t, err)
	lua.Inspect(helper, func(n lua.Node) bool {
		switch node := n.(type) {
		case *lua.FunctionDeclStmt:
			assert.GreaterOrEqual(t, node.Decl.ID, 100)
		case *lua.FunctionExpr:
			for _, p := range node.Params {
				assert.GreaterOrEqual(t, p.ID, 100)
			}
		}
		return true
	})
}
