package obfuscator

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whit3rabbit/luamixer/internal/config"
	"github.com/whit3rabbit/luamixer/internal/lua"
)

func TestMain(m *testing.M) {
	config.Testing = true
	os.Exit(m.Run())
}

func runLua(t *testing.T, src string) string {
	t.Helper()
	out, err := lua.RunSource(src, lua.Lua51)
	require.NoError(t, err, "source:\n%s", src)
	return out
}

const sampleProgram = `local greeting = "hello"
local count = 0
for i = 1, 3 do
	count = count + i
end
local function describe(n)
	if n > 5 then
		return "big"
	end
	return "small"
end
local t = {val = 42}
print(greeting, count, describe(count), t.val)`

func TestPipelinePresetsPreserveBehavior(t *testing.T) {
	want := runLua(t, sampleProgram)
	for _, name := range config.PresetNames() {
		t.Run(name, func(t *testing.T) {
			cfg, err := config.GetPreset(name)
			require.NoError(t, err)
			cfg.Seed = 42
			p, err := NewPipeline(cfg)
			require.NoError(t, err)
			out, err := p.Obfuscate(sampleProgram)
			require.NoError(t, err)
			assert.Equal(t, want, runLua(t, out))
		})
	}
}

func TestPipelineRenamesLocals(t *testing.T) {
	cfg, err := config.GetPreset("Minify")
	require.NoError(t, err)
	cfg.Seed = 7
	p, err := NewPipeline(cfg)
	require.NoError(t, err)

	out, err := p.Obfuscate(`local secretName = 1
print(secretName)`)
	require.NoError(t, err)
	assert.NotContains(t, out, "secretName")
	assert.Contains(t, out, "print", "globals keep their names")
	assert.Equal(t, "1", runLua(t, out))

	mapping := p.Mapping()
	require.Len(t, mapping, 1)
	assert.Equal(t, "secretName", mapping[0].Original)
	assert.NotEqual(t, "secretName", mapping[0].Generated)
}

func TestPipelineMappingKeepsShadowedLocals(t *testing.T) {
	cfg, err := config.GetPreset("Minify")
	require.NoError(t, err)
	cfg.Seed = 7
	p, err := NewPipeline(cfg)
	require.NoError(t, err)

	src := `local x = 1
do
	local x = 2
	print(x)
end
print(x)`
	out, err := p.Obfuscate(src)
	require.NoError(t, err)
	assert.Equal(t, runLua(t, src), runLua(t, out))

	mapping := p.Mapping()
	require.Len(t, mapping, 2, "both declarations of x must be reported")
	assert.Equal(t, "x", mapping[0].Original)
	assert.Equal(t, "x", mapping[1].Original)
	assert.NotEqual(t, mapping[0].Generated, mapping[1].Generated)
}

func TestPipelineKeepsMethodSelf(t *testing.T) {
	src := `local obj = {v = 5}
function obj:get() return self.v end
print(obj:get())`
	cfg, err := config.GetPreset("Minify")
	require.NoError(t, err)
	cfg.Seed = 7
	p, err := NewPipeline(cfg)
	require.NoError(t, err)

	out, err := p.Obfuscate(src)
	require.NoError(t, err)
	assert.Contains(t, out, "self.v", "the implicit self parameter is never renamed")
	assert.Equal(t, runLua(t, src), runLua(t, out))
}

func TestPipelineDeterministicForSeed(t *testing.T) {
	build := func() string {
		cfg := config.DefaultConfig()
		cfg.Seed = 1234
		p, err := NewPipeline(cfg)
		require.NoError(t, err)
		out, err := p.Obfuscate(sampleProgram)
		require.NoError(t, err)
		return out
	}
	assert.Equal(t, build(), build())
}

func TestPipelineZeroSeedIsReproducible(t *testing.T) {
	cfg := config.DefaultConfig()
	p, err := NewPipeline(cfg)
	require.NoError(t, err)
	first, err := p.Obfuscate(sampleProgram)
	require.NoError(t, err)
	used := p.Seed()
	require.NotZero(t, used, "the clock-derived seed must be recorded")

	cfg2 := config.DefaultConfig()
	cfg2.Seed = used
	p2, err := NewPipeline(cfg2)
	require.NoError(t, err)
	second, err := p2.Obfuscate(sampleProgram)
	require.NoError(t, err)
	assert.Equal(t, first, second, "feeding the reported seed back reproduces the run")
	assert.Equal(t, used, p2.Seed())
}

func TestPipelinePrettyPrint(t *testing.T) {
	cfg, err := config.GetPreset("Minify")
	require.NoError(t, err)
	cfg.Seed = 7
	cfg.PrettyPrint = true
	p, err := NewPipeline(cfg)
	require.NoError(t, err)

	out, err := p.Obfuscate("local a = 1\nprint(a)")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "\n"), "pretty output is line-structured: %q", out)
}

func TestNewPipelineNilConfigUsesDefaults(t *testing.T) {
	p, err := NewPipeline(nil)
	require.NoError(t, err)
	out, err := p.Obfuscate(`print("ok")`)
	require.NoError(t, err)
	assert.Equal(t, "ok", runLua(t, out))
}

func TestNewPipelineConfigErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		field  string
		msg    string
	}{
		{"bad dialect", func(c *config.Config) { c.LuaVersion = "Lua52" }, "lua_version", "Lua52"},
		{"bad style", func(c *config.Config) { c.NameGenerator = "leet" }, "name_generator", "leet"},
		{"bad prefix", func(c *config.Config) { c.VarNamePrefix = "1bad" }, "var_name_prefix", "1bad"},
		{"unknown step", func(c *config.Config) {
			c.Steps = []config.StepConfig{{Name: "Nope"}}
		}, "steps", "Nope"},
		{"duplicate step", func(c *config.Config) {
			c.Steps = []config.StepConfig{{Name: "WrapInFunction"}, {Name: "WrapInFunction"}}
		}, "steps", "listed twice"},
		{"ordering violation", func(c *config.Config) {
			c.Steps = []config.StepConfig{{Name: "Vmify"}, {Name: "ControlFlowFlattening"}}
		}, "steps", "must run after"},
		{"bad option value", func(c *config.Config) {
			c.Steps = []config.StepConfig{{Name: "ConstantArray", Options: map[string]any{"Threshold": "many"}}}
		}, "steps", "Threshold"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := config.GetPreset("Minify")
			require.NoError(t, err)
			tc.mutate(cfg)
			_, err = NewPipeline(cfg)
			require.Error(t, err)
			var cfgErr *config.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
			assert.Contains(t, cfgErr.Msg, tc.msg)
		})
	}
}

func TestPipelineSurfacesParseErrors(t *testing.T) {
	p, err := NewPipeline(nil)
	require.NoError(t, err)
	_, err = p.Obfuscate("local = 3")
	require.Error(t, err)
	var parseErr *lua.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestPipelineLuauSource(t *testing.T) {
	src := `local n = 0
for i = 1, 5 do
	if i == 4 then continue end
	n += i
end
print(n)`
	cfg, err := config.GetPreset("Strong")
	require.NoError(t, err)
	cfg.LuaVersion = "Luau"
	cfg.Seed = 9
	p, err := NewPipeline(cfg)
	require.NoError(t, err)
	out, err := p.Obfuscate(src)
	require.NoError(t, err)

	want, err := lua.RunSource(src, lua.Luau)
	require.NoError(t, err)
	got, err := lua.RunSource(out, lua.Luau)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
