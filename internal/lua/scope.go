package lua

// DeclKind classifies what introduced a declaration.
type DeclKind int

const (
	DeclLocal DeclKind = iota
	DeclParam
)

func (k DeclKind) String() string {
	if k == DeclParam {
		return "parameter"
	}
	return "local"
}

// Declaration is one local variable, loop variable, parameter, or local
// function name. ID is unique across the pipeline run and stays stable when
// the renamer rewrites Name.
type Declaration struct {
	Name string
	ID   int
	Kind DeclKind
	Pos  Pos
}

// Scope is a node in the lexical scope tree. It owns the declarations
// introduced directly within it, in source order; resolution walks the
// declaration list backwards (later locals shadow earlier ones with the same
// name) and then the parent chain. A scope is owned by the Block or
// FunctionExpr it annotates.
type Scope struct {
	Parent *Scope
	Decls  []*Declaration
	// Function marks the scope introduced by a function body, the boundary
	// at which resolved references become upvalue captures.
	Function bool
}

// NewScope creates a child scope of parent.
func NewScope(parent *Scope) *Scope {
	return &Scope{Parent: parent}
}

// Declare appends d to the scope.
func (s *Scope) Declare(d *Declaration) {
	s.Decls = append(s.Decls, d)
}

// Lookup resolves name against this scope and its ancestors. It returns nil
// when the name binds to the global namespace.
func (s *Scope) Lookup(name string) *Declaration {
	for sc := s; sc != nil; sc = sc.Parent {
		for i := len(sc.Decls) - 1; i >= 0; i-- {
			if sc.Decls[i].Name == name {
				return sc.Decls[i]
			}
		}
	}
	return nil
}

// LookupLocal resolves name in this scope only.
func (s *Scope) LookupLocal(name string) *Declaration {
	for i := len(s.Decls) - 1; i >= 0; i-- {
		if s.Decls[i].Name == name {
			return s.Decls[i]
		}
	}
	return nil
}

// Remove deletes d from the scope's declaration list. It is used by steps
// that hoist declarations into an enclosing scope; callers are responsible
// for re-declaring d elsewhere so no reference dangles.
func (s *Scope) Remove(d *Declaration) bool {
	for i, cur := range s.Decls {
		if cur == d {
			s.Decls = append(s.Decls[:i], s.Decls[i+1:]...)
			return true
		}
	}
	return false
}
