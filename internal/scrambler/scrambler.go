// Package scrambler generates replacement identifiers for the renamer. All
// generation is deterministic for a given seed, so the same input and config
// always produce the same output.
package scrambler

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/whit3rabbit/luamixer/internal/lua"
)

const (
	mangledFirstChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	mangledAllChars   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	confuseFirstChars = "lIO"
	confuseAllChars   = "lI1O0"
	confuseMinLength  = 6

	maxRegenAttempts = 10000
)

// Scrambler issues unique identifiers in a configured style. It is not safe
// for concurrent use; the pipeline runs renaming single-threaded.
type Scrambler struct {
	style   Style
	prefix  string
	dialect lua.Dialect

	firstChars string
	allChars   string
	minLength  int

	counter  int
	issued   map[string]bool
	reserved map[string]bool
	mapping  []MappingEntry // one entry per rename, for the mapping report
}

// New creates a scrambler. seed drives the confuse style's alphabet shuffle;
// the mangled style is seed-independent by construction. prefix is prepended
// to every generated name (it must itself be a valid identifier prefix).
func New(style Style, prefix string, seed int64, dialect lua.Dialect) (*Scrambler, error) {
	s := &Scrambler{
		style:    style,
		prefix:   prefix,
		dialect:  dialect,
		issued:   make(map[string]bool),
		reserved: make(map[string]bool),
	}
	switch style {
	case StyleMangled:
		s.firstChars = mangledFirstChars
		s.allChars = mangledAllChars
		s.minLength = 1
	case StyleConfuse:
		rng := rand.New(rand.NewSource(seed))
		s.firstChars = shuffleChars(confuseFirstChars, rng)
		s.allChars = shuffleChars(confuseAllChars, rng)
		s.minLength = confuseMinLength
	default:
		return nil, fmt.Errorf("unknown name generator style %q", style)
	}
	if prefix != "" && !lua.IsValidIdent(prefix, dialect) {
		return nil, fmt.Errorf("variable name prefix %q is not a valid identifier", prefix)
	}
	return s, nil
}

// ParseStyle converts a config string to a Style.
func ParseStyle(name string) (Style, error) {
	for _, st := range AllStyles {
		if string(st) == strings.ToLower(strings.TrimSpace(name)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid name generator %q (want one of: mangled, confuse)", name)
}

// Reserve marks a name the generator must never issue. The renamer reserves
// every global name the source references before renaming starts.
func (s *Scrambler) Reserve(name string) {
	s.reserved[name] = true
}

// Next returns a fresh identifier that collides with no keyword, builtin,
// reserved name, or previously issued name.
func (s *Scrambler) Next() string {
	for attempt := 0; attempt < maxRegenAttempts; attempt++ {
		name := s.prefix + s.encode(s.counter)
		s.counter++
		if isReserved(name, s.dialect) || s.reserved[name] || s.issued[name] {
			continue
		}
		s.issued[name] = true
		return name
	}
	// Unreachable in practice: the name space grows without bound.
	panic("scrambler: exhausted name generation attempts")
}

// Rename issues a fresh replacement for original and records the pair for the
// mapping report. Every call records its own entry: shadowed declarations
// sharing a source name stay distinguishable in the report.
func (s *Scrambler) Rename(original string) string {
	name := s.Next()
	s.mapping = append(s.mapping, MappingEntry{Original: original, Generated: name})
	return name
}

// Mapping returns the original/generated pairs issued so far, sorted by
// original name, then by generated name for entries that share one.
func (s *Scrambler) Mapping() []MappingEntry {
	entries := make([]MappingEntry, len(s.mapping))
	copy(entries, s.mapping)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Original != entries[j].Original {
			return entries[i].Original < entries[j].Original
		}
		return entries[i].Generated < entries[j].Generated
	})
	return entries
}

// MappingEntry is one renamed identifier.
type MappingEntry struct {
	Original  string
	Generated string
}

// encode turns a counter value into an identifier of at least minLength
// characters. The first character comes from firstChars, the rest from
// allChars, so counting covers the whole name space shortest-first.
func (s *Scrambler) encode(n int) string {
	var sb strings.Builder
	length := s.minLength
	// Names of a given length form a block of size |first| * |all|^(len-1);
	// skip whole blocks until n indexes into the current one.
	for {
		block := len(s.firstChars)
		for i := 1; i < length; i++ {
			block *= len(s.allChars)
		}
		if n < block {
			break
		}
		n -= block
		length++
	}
	tail := make([]byte, length-1)
	for i := length - 2; i >= 0; i-- {
		tail[i] = s.allChars[n%len(s.allChars)]
		n /= len(s.allChars)
	}
	sb.WriteByte(s.firstChars[n%len(s.firstChars)])
	sb.Write(tail)
	return sb.String()
}

func shuffleChars(chars string, rng *rand.Rand) string {
	b := []byte(chars)
	rng.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })
	return string(b)
}
