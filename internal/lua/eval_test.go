package lua

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string) string {
	t.Helper()
	out, err := RunSource(src, Lua51)
	require.NoError(t, err, "source:\n%s", src)
	return out
}

func TestEvalBasics(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"print number", `print(42)`, "42\n"},
		{"arithmetic", `print(1 + 2 * 3, 10 / 4, 7 % 3, 2 ^ 10)`, "7\t2.5\t1\t1024\n"},
		{"concat", `print("a" .. "b" .. 1)`, "ab1\n"},
		{"comparison", `print(1 < 2, "a" < "b", 1 == 1.0, nil == false)`, "true\ttrue\ttrue\tfalse\n"},
		{"logic", `print(nil and 1, nil or 2, false or "x")`, "nil\t2\tx\n"},
		{"unary", `print(-5, not nil, #"hello")`, "-5\ttrue\t5\n"},
		{"locals", `local x = 1 local y = x + 1 print(x, y)`, "1\t2\n"},
		{"globals", `g = 10 print(g, _G.g)`, "10\t10\n"},
		{"multiple assign", `local a, b = 1, 2 a, b = b, a print(a, b)`, "2\t1\n"},
		{"string escapes", `print("tab\tend")`, "tab\tend\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, run(t, tc.src))
		})
	}
}

func TestEvalControlFlow(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"if else", `if 1 > 2 then print("a") else print("b") end`, "b\n"},
		{"elseif", `local x = 2 if x == 1 then print("one") elseif x == 2 then print("two") end`, "two\n"},
		{"while", `local i = 0 while i < 3 do i = i + 1 print(i) end`, "1\n2\n3\n"},
		{"repeat", `local i = 3 repeat print(i) i = i - 1 until i == 0`, "3\n2\n1\n"},
		{"numeric for", `for i = 1, 3 do print(i) end`, "1\n2\n3\n"},
		{"for step", `for i = 10, 1, -4 do print(i) end`, "10\n6\n2\n"},
		{"break", `for i = 1, 10 do if i == 5 then break end print(i) end`, "1\n2\n3\n4\n"},
		{"nested break", `for i = 1, 2 do for j = 1, 10 do if j == 2 then break end print(i, j) end end`, "1\t1\n2\t1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, run(t, tc.src))
		})
	}
}

func TestEvalFunctions(t *testing.T) {
	assert.Equal(t, "55\n", run(t, `
local function fib(n)
	if n < 2 then return n end
	return fib(n - 1) + fib(n - 2)
end
print(fib(10))`))

	// Closures capture locals by reference.
	assert.Equal(t, "1\n2\n3\n", run(t, `
local function counter()
	local n = 0
	return function() n = n + 1 return n end
end
local next = counter()
print(next())
print(next())
print(next())`))

	// Multiple returns spread in tail position, truncate elsewhere.
	assert.Equal(t, "1\t2\t3\n1\tx\n", run(t, `
local function three() return 1, 2, 3 end
print(three())
print(three(), "x")`))

	// Varargs forward through ...
	assert.Equal(t, "a\tb\tc\n", run(t, `
local function fwd(...) print(...) end
fwd("a", "b", "c")`))
}

func TestEvalTables(t *testing.T) {
	assert.Equal(t, "1\t2\t3\n", run(t, `local t = {1, 2, 3} print(t[1], t[2], t[3])`))
	assert.Equal(t, "v\t10\n", run(t, `local t = {key = "v", [5 + 5] = 10} print(t.key, t[10])`))
	assert.Equal(t, "3\n0\n", run(t, `print(#{1, 2, 3}) print(#{})`))
	assert.Equal(t, "a,b,c\n", run(t, `print(table.concat({"a", "b", "c"}, ","))`))
	assert.Equal(t, "1\t2\n", run(t, `print(unpack({1, 2}))`))
	assert.Equal(t, "x\n", run(t, `
local t = {}
table.insert(t, "x")
print(t[1])`))
	assert.Equal(t, "1\ta\n2\tb\n", run(t, `for i, v in ipairs({"a", "b"}) do print(i, v) end`))
}

func TestEvalMethodCalls(t *testing.T) {
	assert.Equal(t, "7\n", run(t, `
local obj = {base = 4}
function obj:add(n) return self.base + n end
print(obj:add(3))`))
}

func TestEvalStringLibrary(t *testing.T) {
	assert.Equal(t, "A\n", run(t, `print(string.char(65))`))
	assert.Equal(t, "65\n", run(t, `print(string.byte("A"))`))
	assert.Equal(t, "ell\n", run(t, `print(string.sub("hello", 2, 4))`))
	assert.Equal(t, "lo\n", run(t, `print(string.sub("hello", -2))`))
	assert.Equal(t, "ababab\n", run(t, `print(string.rep("ab", 3))`))
	assert.Equal(t, "5\n", run(t, `print(string.len("hello"))`))
}

func TestEvalRuntimeErrors(t *testing.T) {
	_, err := RunSource(`error("boom")`, Lua51)
	require.Error(t, err)
	var rtErr *RuntimeError
	require.ErrorAs(t, err, &rtErr)
	assert.Contains(t, rtErr.Msg, "boom")

	_, err = RunSource(`local x = nil + 1`, Lua51)
	require.Error(t, err)

	_, err = RunSource(`assert(false, "nope")`, Lua51)
	require.Error(t, err)
}

func TestEvalStepBudget(t *testing.T) {
	chunk, err := ParseSource(`while true do end`, Lua51)
	require.NoError(t, err)
	in := NewInterp()
	in.MaxSteps = 10_000
	_, err = in.Run(chunk)
	require.Error(t, err)
}

func TestEvalLuauConstructs(t *testing.T) {
	out, err := RunSource(`local x = 1 x += 2 print(x)`, Luau)
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = RunSource(`for i = 1, 5 do if i % 2 == 0 then continue end print(i) end`, Luau)
	require.NoError(t, err)
	assert.Equal(t, "1\n3\n5\n", out)

	out, err = RunSource(`print(7 // 2)`, Luau)
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}
