package scrambler

import "github.com/whit3rabbit/luamixer/internal/lua"

// Style selects the shape of generated identifiers.
type Style string

const (
	// StyleMangled produces the shortest names first: a, b, ..., z, aa, ab.
	StyleMangled Style = "mangled"
	// StyleConfuse produces visually ambiguous names over the homoglyph
	// alphabet lI1O0, in a per-seed shuffled order.
	StyleConfuse Style = "confuse"
)

// AllStyles lists every valid generator style.
var AllStyles = []Style{StyleMangled, StyleConfuse}

// Builtin globals that obfuscated output may reference. Generated names must
// never collide with these even when the input program never mentions them,
// because transformation steps inject calls to them.
var builtinGlobals = map[string]bool{
	"assert": true, "collectgarbage": true, "error": true, "getmetatable": true,
	"ipairs": true, "load": true, "loadstring": true, "next": true,
	"pairs": true, "pcall": true, "print": true, "rawequal": true,
	"rawget": true, "rawset": true, "require": true, "select": true,
	"setmetatable": true, "tonumber": true, "tostring": true, "type": true,
	"unpack": true, "xpcall": true, "_G": true, "_VERSION": true,
	"string": true, "table": true, "math": true, "os": true, "io": true,
	"coroutine": true, "debug": true, "bit32": true, "utf8": true,
	// Luau additions.
	"typeof": true, "rawlen": true, "buffer": true, "vector": true,
	"self": true,
}

// isReserved reports whether a candidate name may never be issued: keywords
// of the target dialect and the builtin global namespace.
func isReserved(name string, dialect lua.Dialect) bool {
	return lua.Keywords(dialect)[name] || builtinGlobals[name]
}
