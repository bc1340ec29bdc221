package lua

import (
	"fmt"
	"strings"
)

// LexError reports a malformed token or an unterminated string/comment.
// Lexing is all-or-nothing: the first error aborts the whole scan.
type LexError struct {
	Pos  Pos
	Char byte
	Msg  string
}

func (e *LexError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("lex error at %s: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("lex error at %s: unexpected character %q", e.Pos, string(e.Char))
}

// Lexer scans Lua/Luau source into a token slice.
type Lexer struct {
	dialect  Dialect
	keywords map[string]bool

	src  string
	pos  int
	line int
	col  int
}

// NewLexer creates a lexer for the given dialect.
func NewLexer(dialect Dialect) *Lexer {
	return &Lexer{
		dialect:  dialect,
		keywords: Keywords(dialect),
	}
}

// Multi-character operators, longest first so that the scan is greedy.
// Compound assignment and `//` are only accepted for Luau (checked in scan).
var multiCharOps = []string{
	"...", "..=", "==", "~=", "<=", ">=", "//", "..", "::",
	"+=", "-=", "*=", "/=", "%=", "^=",
}

var luauOnlyOps = map[string]bool{
	"//": true, "+=": true, "-=": true, "*=": true,
	"/=": true, "%=": true, "^=": true, "..=": true,
}

const singleCharOps = "+-*/%^#=<>"
const symbolChars = "(){}[];,.:"

// Tokenize scans the whole source and returns the token stream, ending with
// a TokenEOF token. The first malformed construct aborts with a *LexError.
func (l *Lexer) Tokenize(src string) ([]Token, error) {
	l.src = src
	l.pos = 0
	l.line = 1
	l.col = 1

	var tokens []Token
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			l.advance(1)
		case c == '\n':
			l.newline()
		case c == '-' && l.peek(1) == '-':
			if err := l.scanComment(); err != nil {
				return nil, err
			}
		case c == '[' && (l.peek(1) == '[' || l.peek(1) == '='):
			tok, ok, err := l.scanLongString()
			if err != nil {
				return nil, err
			}
			if ok {
				tokens = append(tokens, tok)
			} else {
				// A lone '[' that did not open a long bracket.
				tokens = append(tokens, l.emit(TokenSymbol, "["))
				l.advance(1)
			}
		case c == '"' || c == '\'':
			tok, err := l.scanString()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case isDigit(c) || (c == '.' && isDigit(l.peek(1))):
			tokens = append(tokens, l.scanNumber())
		case isIdentStart(c):
			tokens = append(tokens, l.scanIdent())
		default:
			tok, ok, err := l.scanOperator()
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, &LexError{Pos: l.here(), Char: c}
			}
			tokens = append(tokens, tok)
		}
	}
	tokens = append(tokens, Token{Type: TokenEOF, Pos: l.here()})
	return tokens, nil
}

func (l *Lexer) here() Pos {
	return Pos{Line: l.line, Column: l.col}
}

func (l *Lexer) emit(typ TokenType, value string) Token {
	return Token{Type: typ, Value: value, Pos: l.here()}
}

func (l *Lexer) peek(ahead int) byte {
	if l.pos+ahead < len(l.src) {
		return l.src[l.pos+ahead]
	}
	return 0
}

// advance moves past n bytes that are known to contain no newline.
func (l *Lexer) advance(n int) {
	l.pos += n
	l.col += n
}

func (l *Lexer) newline() {
	l.pos++
	l.line++
	l.col = 1
}

// advanceOver moves past a chunk of already-scanned text, tracking newlines.
func (l *Lexer) advanceOver(text string) {
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			l.newline()
		} else {
			l.pos++
			l.col++
		}
	}
}

func (l *Lexer) scanComment() error {
	start := l.here()
	l.advance(2) // --
	if l.pos < len(l.src) && l.src[l.pos] == '[' {
		if _, ok, err := l.scanLongString(); err != nil {
			return &LexError{Pos: start, Msg: "unterminated long comment"}
		} else if ok {
			return nil
		}
	}
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.advance(1)
	}
	return nil
}

// scanLongString consumes a [=*[ ... ]=*] bracket at the cursor. The second
// return is false when the cursor is not actually on a long bracket opener,
// in which case nothing is consumed.
func (l *Lexer) scanLongString() (Token, bool, error) {
	start := l.here()
	i := l.pos + 1
	level := 0
	for i < len(l.src) && l.src[i] == '=' {
		level++
		i++
	}
	if i >= len(l.src) || l.src[i] != '[' {
		return Token{}, false, nil
	}
	i++
	// A newline immediately after the opener is not part of the content.
	if i < len(l.src) && l.src[i] == '\n' {
		i++
	}
	closer := "]" + strings.Repeat("=", level) + "]"
	end := strings.Index(l.src[i:], closer)
	if end < 0 {
		return Token{}, false, &LexError{Pos: start, Msg: "unterminated long bracket"}
	}
	value := l.src[i : i+end]
	tok := Token{Type: TokenString, Value: value, Pos: start}
	l.advanceOver(l.src[l.pos : i+end+len(closer)])
	return tok, true, nil
}

func (l *Lexer) scanString() (Token, error) {
	start := l.here()
	quote := l.src[l.pos]
	l.advance(1)
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) || l.src[l.pos] == '\n' {
			return Token{}, &LexError{Pos: start, Msg: "unterminated string"}
		}
		c := l.src[l.pos]
		if c == quote {
			l.advance(1)
			return Token{Type: TokenString, Value: sb.String(), Pos: start}, nil
		}
		if c != '\\' {
			sb.WriteByte(c)
			l.advance(1)
			continue
		}
		// Escape sequence.
		l.advance(1)
		if l.pos >= len(l.src) {
			return Token{}, &LexError{Pos: start, Msg: "unterminated string"}
		}
		e := l.src[l.pos]
		switch e {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'a':
			sb.WriteByte(7)
		case 'b':
			sb.WriteByte(8)
		case 'f':
			sb.WriteByte(12)
		case 'v':
			sb.WriteByte(11)
		case '\\', '"', '\'':
			sb.WriteByte(e)
		case '\n':
			sb.WriteByte('\n')
			l.newline()
			continue
		default:
			if !isDigit(e) {
				return Token{}, &LexError{Pos: l.here(), Msg: fmt.Sprintf("invalid escape sequence '\\%c'", e)}
			}
			// \ddd with up to three decimal digits.
			n := 0
			digits := 0
			for digits < 3 && l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				n = n*10 + int(l.src[l.pos]-'0')
				l.advance(1)
				digits++
			}
			if n > 255 {
				return Token{}, &LexError{Pos: l.here(), Msg: "decimal escape too large"}
			}
			sb.WriteByte(byte(n))
			continue
		}
		l.advance(1)
	}
}

func (l *Lexer) scanNumber() Token {
	start := l.here()
	i := l.pos
	if l.src[i] == '0' && i+1 < len(l.src) && (l.src[i+1] == 'x' || l.src[i+1] == 'X') {
		i += 2
		for i < len(l.src) && isHexDigit(l.src[i]) {
			i++
		}
	} else {
		for i < len(l.src) && (isDigit(l.src[i]) || l.src[i] == '.') {
			// Stop before a concat operator following an integer part.
			if l.src[i] == '.' && i+1 < len(l.src) && l.src[i+1] == '.' {
				break
			}
			i++
		}
		if i < len(l.src) && (l.src[i] == 'e' || l.src[i] == 'E') {
			i++
			if i < len(l.src) && (l.src[i] == '+' || l.src[i] == '-') {
				i++
			}
			for i < len(l.src) && isDigit(l.src[i]) {
				i++
			}
		}
	}
	value := l.src[l.pos:i]
	l.advance(i - l.pos)
	return Token{Type: TokenNumber, Value: value, Pos: start}
}

func (l *Lexer) scanIdent() Token {
	start := l.here()
	i := l.pos
	for i < len(l.src) && isIdentPart(l.src[i]) {
		i++
	}
	value := l.src[l.pos:i]
	l.advance(i - l.pos)
	typ := TokenIdent
	if l.keywords[value] {
		typ = TokenKeyword
	}
	return Token{Type: typ, Value: value, Pos: start}
}

func (l *Lexer) scanOperator() (Token, bool, error) {
	for _, op := range multiCharOps {
		if !strings.HasPrefix(l.src[l.pos:], op) {
			continue
		}
		if luauOnlyOps[op] && l.dialect != Luau {
			continue
		}
		tok := l.emit(TokenOperator, op)
		l.advance(len(op))
		return tok, true, nil
	}
	c := l.src[l.pos]
	if strings.IndexByte(singleCharOps, c) >= 0 {
		tok := l.emit(TokenOperator, string(c))
		l.advance(1)
		return tok, true, nil
	}
	if strings.IndexByte(symbolChars, c) >= 0 {
		tok := l.emit(TokenSymbol, string(c))
		l.advance(1)
		return tok, true, nil
	}
	return Token{}, false, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
