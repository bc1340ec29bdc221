package lua

// Node is implemented by every AST node. Nodes are always handled by pointer,
// so a Node value is usable directly as a map key for per-node annotations.
type Node interface {
	Position() Pos
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Chunk is the root of a parsed file. Its Scope is the outermost local scope;
// NextDeclID is the first declaration id not yet issued, so later passes can
// keep ids unique across the whole pipeline run.
type Chunk struct {
	Body       *Block
	Dialect    Dialect
	NextDeclID int
}

func (c *Chunk) Position() Pos { return c.Body.Pos }

// Block owns an ordered statement list and the scope its locals live in.
type Block struct {
	Pos   Pos
	Stmts []Stmt
	Scope *Scope
}

func (b *Block) Position() Pos { return b.Pos }

// --- Statements ---

// LocalStmt is `local a, b = e1, e2`. One Declaration per name.
type LocalStmt struct {
	Pos   Pos
	Decls []*Declaration
	Exprs []Expr
}

// AssignStmt is `t1, t2 = e1, e2`, or a Luau compound assignment when Op is
// a non-empty operator such as "+" (printed as `t += e`). Compound forms have
// exactly one target and one value.
type AssignStmt struct {
	Pos     Pos
	Targets []Expr
	Exprs   []Expr
	Op      string
}

// IfClause is one `if`/`elseif` arm.
type IfClause struct {
	Cond Expr
	Body *Block
}

// IfStmt is an if/elseif/else chain. Else is nil when absent.
type IfStmt struct {
	Pos     Pos
	Clauses []IfClause
	Else    *Block
}

type WhileStmt struct {
	Pos  Pos
	Cond Expr
	Body *Block
}

// RepeatStmt is `repeat body until cond`; the condition can see the body's
// locals, so Cond is resolved inside Body's scope.
type RepeatStmt struct {
	Pos  Pos
	Body *Block
	Cond Expr
}

type NumericForStmt struct {
	Pos   Pos
	Var   *Declaration
	Start Expr
	Stop  Expr
	Step  Expr // nil means the default step of 1
	Body  *Block
}

type GenericForStmt struct {
	Pos   Pos
	Vars  []*Declaration
	Exprs []Expr
	Body  *Block
}

// FunctionDeclStmt covers `function a.b:c() end` and `local function f() end`.
// For the local form Decl is set and Target is nil; otherwise Target is a
// VariableRef or IndexExpr chain and IsMethod marks the `:name` sugar.
type FunctionDeclStmt struct {
	Pos      Pos
	IsLocal  bool
	Decl     *Declaration
	Target   Expr
	IsMethod bool
	Func     *FunctionExpr
}

type ReturnStmt struct {
	Pos   Pos
	Exprs []Expr
}

type BreakStmt struct {
	Pos Pos
}

// ContinueStmt is Luau-only.
type ContinueStmt struct {
	Pos Pos
}

type GotoStmt struct {
	Pos   Pos
	Label string
}

type LabelStmt struct {
	Pos  Pos
	Name string
}

type DoStmt struct {
	Pos  Pos
	Body *Block
}

// ExprStmt is a call used as a statement.
type ExprStmt struct {
	Pos  Pos
	Call Expr
}

func (s *LocalStmt) Position() Pos        { return s.Pos }
func (s *AssignStmt) Position() Pos       { return s.Pos }
func (s *IfStmt) Position() Pos           { return s.Pos }
func (s *WhileStmt) Position() Pos        { return s.Pos }
func (s *RepeatStmt) Position() Pos       { return s.Pos }
func (s *NumericForStmt) Position() Pos   { return s.Pos }
func (s *GenericForStmt) Position() Pos   { return s.Pos }
func (s *FunctionDeclStmt) Position() Pos { return s.Pos }
func (s *ReturnStmt) Position() Pos       { return s.Pos }
func (s *BreakStmt) Position() Pos        { return s.Pos }
func (s *ContinueStmt) Position() Pos     { return s.Pos }
func (s *GotoStmt) Position() Pos         { return s.Pos }
func (s *LabelStmt) Position() Pos        { return s.Pos }
func (s *DoStmt) Position() Pos           { return s.Pos }
func (s *ExprStmt) Position() Pos         { return s.Pos }

func (*LocalStmt) stmtNode()        {}
func (*AssignStmt) stmtNode()       {}
func (*IfStmt) stmtNode()           {}
func (*WhileStmt) stmtNode()        {}
func (*RepeatStmt) stmtNode()       {}
func (*NumericForStmt) stmtNode()   {}
func (*GenericForStmt) stmtNode()   {}
func (*FunctionDeclStmt) stmtNode() {}
func (*ReturnStmt) stmtNode()       {}
func (*BreakStmt) stmtNode()        {}
func (*ContinueStmt) stmtNode()     {}
func (*GotoStmt) stmtNode()         {}
func (*LabelStmt) stmtNode()        {}
func (*DoStmt) stmtNode()           {}
func (*ExprStmt) stmtNode()         {}

// --- Expressions ---

// LiteralKind distinguishes the literal variants.
type LiteralKind int

const (
	LiteralNil LiteralKind = iota
	LiteralBool
	LiteralNumber
	LiteralString
)

// Literal is a nil/true/false/number/string constant. For numbers Raw keeps
// the original source spelling when the node came from the parser; the
// printer falls back to formatting Num when Raw is empty.
type Literal struct {
	Pos  Pos
	Kind LiteralKind
	Bool bool
	Num  float64
	Raw  string
	Str  string
}

// VariableRef is a name use. Decl is the resolved Declaration, or nil when
// the name binds to the global namespace.
type VariableRef struct {
	Pos  Pos
	Name string
	Decl *Declaration
}

type BinaryExpr struct {
	Pos   Pos
	Op    string
	Left  Expr
	Right Expr
}

type UnaryExpr struct {
	Pos     Pos
	Op      string
	Operand Expr
}

type CallExpr struct {
	Pos  Pos
	Fn   Expr
	Args []Expr
}

// MethodCallExpr is `recv:name(args)`.
type MethodCallExpr struct {
	Pos    Pos
	Recv   Expr
	Method string
	Args   []Expr
}

// IndexExpr is `obj[key]`; Dot records that the source used `.name` sugar so
// the printer can reproduce it.
type IndexExpr struct {
	Pos Pos
	Obj Expr
	Key Expr
	Dot bool
}

// TableField is one entry of a table constructor. Key is nil for array-style
// entries; NameKey records `name = v` sugar for printing.
type TableField struct {
	Key     Expr
	NameKey bool
	Value   Expr
}

type TableExpr struct {
	Pos    Pos
	Fields []TableField
}

// FunctionExpr is a function literal; function statements share it as their
// body. Params hold one Declaration per named parameter ("self" included for
// method declarations).
type FunctionExpr struct {
	Pos      Pos
	Params   []*Declaration
	IsVararg bool
	Body     *Block
	// ImplicitSelf is set when the leading `self` parameter came from
	// method declaration sugar and must not be printed.
	ImplicitSelf bool
}

type VarargExpr struct {
	Pos Pos
}

func (e *Literal) Position() Pos        { return e.Pos }
func (e *VariableRef) Position() Pos    { return e.Pos }
func (e *BinaryExpr) Position() Pos     { return e.Pos }
func (e *UnaryExpr) Position() Pos      { return e.Pos }
func (e *CallExpr) Position() Pos       { return e.Pos }
func (e *MethodCallExpr) Position() Pos { return e.Pos }
func (e *IndexExpr) Position() Pos      { return e.Pos }
func (e *TableExpr) Position() Pos      { return e.Pos }
func (e *FunctionExpr) Position() Pos   { return e.Pos }
func (e *VarargExpr) Position() Pos     { return e.Pos }

func (*Literal) exprNode()        {}
func (*VariableRef) exprNode()    {}
func (*BinaryExpr) exprNode()     {}
func (*UnaryExpr) exprNode()      {}
func (*CallExpr) exprNode()       {}
func (*MethodCallExpr) exprNode() {}
func (*IndexExpr) exprNode()      {}
func (*TableExpr) exprNode()      {}
func (*FunctionExpr) exprNode()   {}
func (*VarargExpr) exprNode()     {}

// Convenience constructors used heavily by the transformation steps.

// Nil returns a nil literal.
func Nil() *Literal { return &Literal{Kind: LiteralNil} }

// Bool returns a boolean literal.
func Bool(v bool) *Literal { return &Literal{Kind: LiteralBool, Bool: v} }

// Number returns a number literal.
func Number(v float64) *Literal { return &Literal{Kind: LiteralNumber, Num: v} }

// Str returns a string literal.
func Str(v string) *Literal { return &Literal{Kind: LiteralString, Str: v} }

// Ref returns a reference bound to decl (nil for a global name).
func Ref(name string, decl *Declaration) *VariableRef {
	return &VariableRef{Name: name, Decl: decl}
}

// Global returns an unbound (global) name reference.
func Global(name string) *VariableRef { return &VariableRef{Name: name} }

// DotIndex returns `obj.name`.
func DotIndex(obj Expr, name string) *IndexExpr {
	return &IndexExpr{Obj: obj, Key: Str(name), Dot: true}
}
