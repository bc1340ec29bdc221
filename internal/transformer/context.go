// Package transformer contains the obfuscation steps and the shared pipeline
// state they communicate through.
package transformer

import (
	"fmt"
	"math/rand"

	"github.com/whit3rabbit/luamixer/internal/lua"
)

// ConstValue is a comparable key for constant pool entries.
type ConstValue struct {
	Kind lua.LiteralKind
	Bool bool
	Num  float64
	Str  string
}

// ConstKey derives the pool key for a literal.
func ConstKey(lit *lua.Literal) ConstValue {
	return ConstValue{Kind: lit.Kind, Bool: lit.Bool, Num: lit.Num, Str: lit.Str}
}

// Expr rebuilds the literal expression for a pool entry.
func (v ConstValue) Expr() lua.Expr {
	switch v.Kind {
	case lua.LiteralBool:
		return lua.Bool(v.Bool)
	case lua.LiteralNumber:
		return lua.Number(v.Num)
	case lua.LiteralString:
		return lua.Str(v.Str)
	}
	return lua.Nil()
}

// Context is the mutable state shared by the steps of one pipeline run. It is
// created after parsing and discarded after printing; nothing in it survives
// a run.
type Context struct {
	Dialect lua.Dialect
	Rand    *rand.Rand

	// Logf receives step diagnostics; the pipeline wires it to the
	// configured logger. Never nil.
	Logf func(format string, args ...any)

	nextDeclID int
	nameSerial int
	applied    map[string]bool
	pool       []ConstValue
	poolIndex  map[ConstValue]int
	marks      map[lua.Node]map[string]bool
	synthetic  map[lua.Node]bool
}

// NewContext creates the context for one run. nextDeclID continues the
// parser's declaration numbering so ids stay unique pipeline-wide.
func NewContext(dialect lua.Dialect, seed int64, nextDeclID int) *Context {
	return &Context{
		Dialect:    dialect,
		Rand:       rand.New(rand.NewSource(seed)),
		Logf:       func(string, ...any) {},
		nextDeclID: nextDeclID,
		applied:    make(map[string]bool),
		poolIndex:  make(map[ConstValue]int),
		marks:      make(map[lua.Node]map[string]bool),
		synthetic:  make(map[lua.Node]bool),
	}
}

// NewDecl creates a declaration with a fresh pipeline-unique id and registers
// it in scope.
func (c *Context) NewDecl(name string, kind lua.DeclKind, scope *lua.Scope) *lua.Declaration {
	d := &lua.Declaration{Name: name, ID: c.nextDeclID, Kind: kind}
	c.nextDeclID++
	if scope != nil {
		scope.Declare(d)
	}
	return d
}

// GenName returns an identifier unique within this run for injected helpers.
// The renamer replaces it like any other local name, so the shape only needs
// to avoid colliding with source identifiers, which the leading underscores
// plus run-serial make effectively certain.
func (c *Context) GenName() string {
	c.nameSerial++
	return fmt.Sprintf("__lx%d", c.nameSerial)
}

// MarkApplied records that a step ran; Applied reports it.
func (c *Context) MarkApplied(step string) { c.applied[step] = true }

// Applied reports whether a step already ran in this pipeline.
func (c *Context) Applied(step string) bool { return c.applied[step] }

// PoolAdd interns a literal value and returns its zero-based pool index.
// Duplicate values share one entry.
func (c *Context) PoolAdd(v ConstValue) int {
	if i, ok := c.poolIndex[v]; ok {
		return i
	}
	i := len(c.pool)
	c.pool = append(c.pool, v)
	c.poolIndex[v] = i
	return i
}

// PoolLookup returns the index of v if it has been interned.
func (c *Context) PoolLookup(v ConstValue) (int, bool) {
	i, ok := c.poolIndex[v]
	return i, ok
}

// Pool returns the interned values in insertion order.
func (c *Context) Pool() []ConstValue { return c.pool }

// Mark tags a node as processed by a step; Marked reports the tag. Steps use
// this to skip code they (or an earlier run) already transformed.
func (c *Context) Mark(n lua.Node, step string) {
	m := c.marks[n]
	if m == nil {
		m = make(map[string]bool)
		c.marks[n] = m
	}
	m[step] = true
}

// Marked reports whether n carries the given step's tag.
func (c *Context) Marked(n lua.Node, step string) bool {
	return c.marks[n][step]
}

// MarkSynthetic tags injected runtime support code (decoders, interpreter
// loops, guards). Later steps leave these subtrees alone: transforming a
// decoder with the decoder would corrupt the output.
func (c *Context) MarkSynthetic(n lua.Node) { c.synthetic[n] = true }

// IsSynthetic reports whether n roots injected support code.
func (c *Context) IsSynthetic(n lua.Node) bool { return c.synthetic[n] }

// ModuleFromSource parses generated helper source through the pipeline's own
// frontend and renumbers its declarations into this run's id space. Steps use
// it to inject runtime support code without hand-building AST.
func (c *Context) ModuleFromSource(src string) (*lua.Chunk, error) {
	chunk, err := lua.ParseSource(src, c.Dialect)
	if err != nil {
		return nil, fmt.Errorf("parsing generated code: %w", err)
	}
	lua.Inspect(chunk, func(n lua.Node) bool {
		switch node := n.(type) {
		case *lua.LocalStmt:
			c.renumber(node.Decls)
		case *lua.NumericForStmt:
			c.renumber([]*lua.Declaration{node.Var})
		case *lua.GenericForStmt:
			c.renumber(node.Vars)
		case *lua.FunctionDeclStmt:
			if node.Decl != nil {
				c.renumber([]*lua.Declaration{node.Decl})
			}
		case *lua.FunctionExpr:
			c.renumber(node.Params)
		}
		return true
	})
	return chunk, nil
}

func (c *Context) renumber(decls []*lua.Declaration) {
	for _, d := range decls {
		d.ID = c.nextDeclID
		c.nextDeclID++
	}
}

// NextDeclID exposes the id cursor so the pipeline can stamp it back onto the
// chunk between steps.
func (c *Context) NextDeclID() int { return c.nextDeclID }
