package lua

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ignorePos compares token streams structurally without their positions.
var ignorePos = cmpopts.IgnoreFields(Token{}, "Pos")

func tokenize(t *testing.T, src string, dialect Dialect) []Token {
	t.Helper()
	tokens, err := NewLexer(dialect).Tokenize(src)
	require.NoError(t, err)
	return tokens
}

func TestTokenizeBasic(t *testing.T) {
	tokens := tokenize(t, "local x = 42", Lua51)
	want := []Token{
		{Type: TokenKeyword, Value: "local"},
		{Type: TokenIdent, Value: "x"},
		{Type: TokenOperator, Value: "="},
		{Type: TokenNumber, Value: "42"},
		{Type: TokenEOF},
	}
	if diff := cmp.Diff(want, tokens, ignorePos); diff != "" {
		t.Errorf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizePositions(t *testing.T) {
	tokens := tokenize(t, "local x\nx = 1", Lua51)
	require.Len(t, tokens, 6)
	assert.Equal(t, Pos{Line: 1, Column: 1}, tokens[0].Pos)
	assert.Equal(t, Pos{Line: 1, Column: 7}, tokens[1].Pos)
	assert.Equal(t, Pos{Line: 2, Column: 1}, tokens[2].Pos)
	assert.Equal(t, Pos{Line: 2, Column: 5}, tokens[4].Pos)
}

func TestStringEscapes(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{`"hello"`, "hello"},
		{`'single'`, "single"},
		{`"tab\there"`, "tab\there"},
		{`"line\nbreak"`, "line\nbreak"},
		{`"quote\""`, `quote"`},
		{`"back\\slash"`, `back\slash`},
		{`"\65\66\67"`, "ABC"},
		{`"\0"`, "\x00"},
		{`"\000after"`, "\x00after"},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			tokens := tokenize(t, tc.src, Lua51)
			require.Len(t, tokens, 2)
			assert.Equal(t, TokenString, tokens[0].Type)
			assert.Equal(t, tc.want, tokens[0].Value)
		})
	}
}

func TestLongStrings(t *testing.T) {
	tokens := tokenize(t, "[[hello\nworld]]", Lua51)
	require.Len(t, tokens, 2)
	assert.Equal(t, "hello\nworld", tokens[0].Value)

	// A newline right after the opener is not content.
	tokens = tokenize(t, "[[\nfirst]]", Lua51)
	assert.Equal(t, "first", tokens[0].Value)

	// Leveled brackets can contain plain ]] closers.
	tokens = tokenize(t, "[==[a]]b]==]", Lua51)
	assert.Equal(t, "a]]b", tokens[0].Value)
}

func TestCommentsSkipped(t *testing.T) {
	tokens := tokenize(t, "x = 1 -- trailing comment\ny = 2", Lua51)
	var values []string
	for _, tok := range tokens[:len(tokens)-1] {
		values = append(values, tok.Value)
	}
	assert.Equal(t, []string{"x", "=", "1", "y", "=", "2"}, values)

	tokens = tokenize(t, "a --[[ long\ncomment ]] b", Lua51)
	require.Len(t, tokens, 3)
	assert.Equal(t, "a", tokens[0].Value)
	assert.Equal(t, "b", tokens[1].Value)
}

func TestNumberFormats(t *testing.T) {
	for _, src := range []string{"0", "42", "3.14", "1e10", "2.5e-3", "0xFF", "0x10", ".5"} {
		t.Run(src, func(t *testing.T) {
			tokens := tokenize(t, src, Lua51)
			require.Len(t, tokens, 2)
			assert.Equal(t, TokenNumber, tokens[0].Type)
			assert.Equal(t, src, tokens[0].Value)
		})
	}
}

func TestNumberBeforeConcat(t *testing.T) {
	tokens := tokenize(t, "1..2", Lua51)
	require.Len(t, tokens, 4)
	assert.Equal(t, "1", tokens[0].Value)
	assert.True(t, tokens[1].Is(TokenOperator, ".."))
	assert.Equal(t, "2", tokens[2].Value)
}

func TestLuauOperators(t *testing.T) {
	tokens := tokenize(t, "x += 1", Luau)
	require.Len(t, tokens, 4)
	assert.True(t, tokens[1].Is(TokenOperator, "+="))

	// In plain Lua 5.1 the same input splits into two operators.
	tokens = tokenize(t, "x += 1", Lua51)
	require.Len(t, tokens, 5)
	assert.True(t, tokens[1].Is(TokenOperator, "+"))
	assert.True(t, tokens[2].Is(TokenOperator, "="))
}

func TestLuauContinueKeyword(t *testing.T) {
	tokens := tokenize(t, "continue", Luau)
	assert.Equal(t, TokenKeyword, tokens[0].Type)

	tokens = tokenize(t, "continue", Lua51)
	assert.Equal(t, TokenIdent, tokens[0].Type)
}

func TestLexErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"unterminated string", `"abc`},
		{"newline in string", "\"ab\nc\""},
		{"invalid escape", `"\q"`},
		{"decimal escape too large", `"\300"`},
		{"unterminated long bracket", "[[never closed"},
		{"stray character", "local $x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLexer(Lua51).Tokenize(tc.src)
			require.Error(t, err)
			var lexErr *LexError
			assert.ErrorAs(t, err, &lexErr)
		})
	}
}
