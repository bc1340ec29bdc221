package scrambler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whit3rabbit/luamixer/internal/lua"
)

func TestMangledSequence(t *testing.T) {
	s, err := New(StyleMangled, "", 1, lua.Lua51)
	require.NoError(t, err)

	got := []string{s.Next(), s.Next(), s.Next(), s.Next()}
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
}

func TestMangledSkipsKeywordsAndBuiltins(t *testing.T) {
	s, err := New(StyleMangled, "", 1, lua.Lua51)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 5000; i++ {
		name := s.Next()
		assert.False(t, lua.Keywords(lua.Lua51)[name], "issued keyword %q", name)
		assert.False(t, builtinGlobals[name], "issued builtin %q", name)
		assert.False(t, seen[name], "issued duplicate %q", name)
		assert.True(t, lua.IsValidIdent(name, lua.Lua51))
		seen[name] = true
	}
}

func TestMangledIsDeterministic(t *testing.T) {
	a, err := New(StyleMangled, "", 7, lua.Lua51)
	require.NoError(t, err)
	b, err := New(StyleMangled, "", 99, lua.Lua51)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		assert.Equal(t, a.Next(), b.Next(), "mangled style must not depend on the seed")
	}
}

func TestConfuseAlphabet(t *testing.T) {
	s, err := New(StyleConfuse, "", 42, lua.Lua51)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		name := s.Next()
		assert.GreaterOrEqual(t, len(name), confuseMinLength)
		for j := 0; j < len(name); j++ {
			assert.Contains(t, confuseAllChars, string(name[j]),
				"name %q uses a character outside the homoglyph alphabet", name)
		}
		// Leading digits would not lex as identifiers.
		assert.NotContains(t, "0123456789", string(name[0]))
	}
}

func TestConfuseSeedChangesOrder(t *testing.T) {
	a, err := New(StyleConfuse, "", 1, lua.Lua51)
	require.NoError(t, err)
	b, err := New(StyleConfuse, "", 2, lua.Lua51)
	require.NoError(t, err)

	different := false
	for i := 0; i < 50; i++ {
		if a.Next() != b.Next() {
			different = true
			break
		}
	}
	assert.True(t, different, "different seeds should shuffle the alphabet differently")
}

func TestConfuseSameSeedSameSequence(t *testing.T) {
	a, err := New(StyleConfuse, "", 1234, lua.Luau)
	require.NoError(t, err)
	b, err := New(StyleConfuse, "", 1234, lua.Luau)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestPrefixIsApplied(t *testing.T) {
	s, err := New(StyleMangled, "ob_", 1, lua.Lua51)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		assert.True(t, strings.HasPrefix(s.Next(), "ob_"))
	}
}

func TestInvalidPrefixRejected(t *testing.T) {
	_, err := New(StyleMangled, "1bad", 1, lua.Lua51)
	assert.Error(t, err)
}

func TestReserveBlocksName(t *testing.T) {
	s, err := New(StyleMangled, "", 1, lua.Lua51)
	require.NoError(t, err)
	s.Reserve("a")
	s.Reserve("b")

	name := s.Next()
	assert.NotEqual(t, "a", name)
	assert.NotEqual(t, "b", name)
}

func TestParseStyle(t *testing.T) {
	st, err := ParseStyle("Confuse")
	require.NoError(t, err)
	assert.Equal(t, StyleConfuse, st)

	_, err = ParseStyle("fancy")
	assert.Error(t, err)
}

func TestMappingKeepsShadowedNames(t *testing.T) {
	s, err := New(StyleMangled, "", 1, lua.Lua51)
	require.NoError(t, err)

	first := s.Rename("x")
	second := s.Rename("x")
	require.NotEqual(t, first, second)

	entries := s.Mapping()
	require.Len(t, entries, 2, "each rename of a shadowed name keeps its own entry")
	assert.Equal(t, "x", entries[0].Original)
	assert.Equal(t, "x", entries[1].Original)
	assert.ElementsMatch(t, []string{first, second},
		[]string{entries[0].Generated, entries[1].Generated})
}

func TestMappingReport(t *testing.T) {
	s, err := New(StyleMangled, "", 1, lua.Lua51)
	require.NoError(t, err)

	s.Rename("count")
	s.Rename("acc")

	entries := s.Mapping()
	require.Len(t, entries, 2)
	assert.Equal(t, "acc", entries[0].Original)
	assert.Equal(t, "count", entries[1].Original)
	assert.NotEqual(t, entries[0].Generated, entries[1].Generated)
}
