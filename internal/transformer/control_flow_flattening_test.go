package transformer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestControlFlowFlatteningPreservesBehavior(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"straight line", `local a = 1
local b = 2
local c = a + b
print(c)`},
		{"with conditional", `local x = 10
if x > 5 then print("big") else print("small") end
print("after")`},
		{"with loop", `local sum = 0
for i = 1, 5 do sum = sum + i end
print(sum)`},
		{"early return in function", `local function pick(n)
	if n > 0 then return "pos" end
	return "neg"
end
print(pick(1))
print(pick(-1))`},
		{"break stays in its loop", `for i = 1, 10 do
	if i == 5 then break end
	print(i)
end
print("done")`},
		{"local function hoisting", `local function double(n) return n * 2 end
local v = double(21)
print(v)`},
		{"shadowed names", `local x = 1
do
	local x = 2
	print(x)
end
print(x)`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for seed := int64(1); seed <= 3; seed++ {
				out := applySteps(t, tc.src, seed, mustStep(t, "ControlFlowFlattening", nil))
				requireSameBehavior(t, tc.src, out)
			}
		})
	}
}

func TestControlFlowFlatteningProducesDispatchLoop(t *testing.T) {
	src := `local a = 1
local b = 2
print(a + b)`
	out := applySteps(t, src, 5, mustStep(t, "ControlFlowFlattening", nil))
	assert.Contains(t, out, "while", "dispatch loop expected: %s", out)
	assert.Contains(t, out, "~=", "exit key comparison expected")
	assert.Contains(t, out, "elseif", "shuffled cases expected")
}

func TestControlFlowFlatteningSeedChangesKeys(t *testing.T) {
	src := `local a = 1
local b = 2
print(a + b)`
	step := mustStep(t, "ControlFlowFlattening", nil)
	first := applySteps(t, src, 1, step)
	second := applySteps(t, src, 2, mustStep(t, "ControlFlowFlattening", nil))
	assert.NotEqual(t, first, second)
}

func TestControlFlowFlatteningSkipsSmallBlocks(t *testing.T) {
	src := `print("only")`
	out := applySteps(t, src, 1, mustStep(t, "ControlFlowFlattening", nil))
	assert.Equal(t, `print("only")`, out)
}

func TestControlFlowFlatteningMinStatementsOption(t *testing.T) {
	src := `local a = 1
local b = 2
print(a + b)`
	out := applySteps(t, src, 1, mustStep(t, "ControlFlowFlattening", map[string]any{"MinStatements": 10}))
	assert.Equal(t, "local a=1;local b=2;print(a+b)", out)
}

func TestControlFlowFlatteningSkipsGoto(t *testing.T) {
	src := `do
goto skip
print("dead")
::skip::
print("alive")
end
print("x")
print("y")`
	out := applySteps(t, src, 1, mustStep(t, "ControlFlowFlattening", nil))
	// The inner block keeps its goto; only statement granularity changes.
	assert.Contains(t, out, "goto skip")
	assert.Contains(t, out, "::skip::")
}

func TestControlFlowFlatteningFlattensFunctionBodies(t *testing.T) {
	src := `local function work()
	local a = 1
	local b = 2
	return a + b
end
print(work())`
	out := applySteps(t, src, 4, mustStep(t, "ControlFlowFlattening", nil))
	requireSameBehavior(t, src, out)
	assert.GreaterOrEqual(t, strings.Count(out, "while"), 1)
}
