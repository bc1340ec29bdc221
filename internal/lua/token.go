// Package lua implements the Lua/Luau language frontend and backend used by
// the obfuscator: lexer, AST, recursive-descent parser with inline scope
// resolution, and the printer that turns a transformed tree back into source.
package lua

import "fmt"

// Dialect selects which grammar the lexer and parser accept.
type Dialect int

const (
	// Lua51 is plain Lua 5.1.
	Lua51 Dialect = iota
	// Luau adds compound assignment, integer division, `continue`, and
	// (skipped) type annotations.
	Luau
)

func (d Dialect) String() string {
	if d == Luau {
		return "Luau"
	}
	return "Lua51"
}

// ParseDialect maps the config-level dialect names onto a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch name {
	case "Lua51", "lua51", "Lua", "lua":
		return Lua51, nil
	case "Luau", "luau", "LuaU":
		return Luau, nil
	}
	return Lua51, fmt.Errorf("unknown lua dialect %q", name)
}

// TokenType classifies a lexed token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenKeyword
	TokenIdent
	TokenNumber
	TokenString
	TokenOperator
	TokenSymbol
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "eof"
	case TokenKeyword:
		return "keyword"
	case TokenIdent:
		return "identifier"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenOperator:
		return "operator"
	case TokenSymbol:
		return "symbol"
	}
	return "unknown"
}

// Pos is a line/column source position, both 1-based.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is one lexed token. For TokenString, Value holds the decoded string
// content (escapes resolved); for everything else it holds the literal text.
type Token struct {
	Type  TokenType
	Value string
	Pos   Pos
}

// Is reports whether the token has the given type and literal value.
func (t Token) Is(typ TokenType, value string) bool {
	return t.Type == typ && t.Value == value
}

// IsKeyword reports whether the token is the given keyword.
func (t Token) IsKeyword(kw string) bool {
	return t.Type == TokenKeyword && t.Value == kw
}

var lua51Keywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "if": true,
	"in": true, "local": true, "nil": true, "not": true, "or": true,
	"repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,
}

var luauKeywords = map[string]bool{
	"continue": true,
}

// Keywords returns the reserved word set for the dialect. Callers must not
// mutate the result.
func Keywords(d Dialect) map[string]bool {
	if d != Luau {
		return lua51Keywords
	}
	merged := make(map[string]bool, len(lua51Keywords)+len(luauKeywords))
	for k := range lua51Keywords {
		merged[k] = true
	}
	for k := range luauKeywords {
		merged[k] = true
	}
	return merged
}

// IsValidIdent reports whether name is a legal identifier (and not a
// reserved word) in the dialect.
func IsValidIdent(name string, d Dialect) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return !Keywords(d)[name]
}
