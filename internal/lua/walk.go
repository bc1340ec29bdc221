package lua

// Inspect walks the tree rooted at node in depth-first pre-order, calling fn
// for every node. If fn returns false the children of that node are skipped.
func Inspect(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *Chunk:
		Inspect(n.Body, fn)
	case *Block:
		for _, s := range n.Stmts {
			Inspect(s, fn)
		}
	case *LocalStmt:
		for _, e := range n.Exprs {
			Inspect(e, fn)
		}
	case *AssignStmt:
		for _, t := range n.Targets {
			Inspect(t, fn)
		}
		for _, e := range n.Exprs {
			Inspect(e, fn)
		}
	case *IfStmt:
		for _, cl := range n.Clauses {
			Inspect(cl.Cond, fn)
			Inspect(cl.Body, fn)
		}
		if n.Else != nil {
			Inspect(n.Else, fn)
		}
	case *WhileStmt:
		Inspect(n.Cond, fn)
		Inspect(n.Body, fn)
	case *RepeatStmt:
		Inspect(n.Body, fn)
		Inspect(n.Cond, fn)
	case *NumericForStmt:
		Inspect(n.Start, fn)
		Inspect(n.Stop, fn)
		if n.Step != nil {
			Inspect(n.Step, fn)
		}
		Inspect(n.Body, fn)
	case *GenericForStmt:
		for _, e := range n.Exprs {
			Inspect(e, fn)
		}
		Inspect(n.Body, fn)
	case *FunctionDeclStmt:
		if n.Target != nil {
			Inspect(n.Target, fn)
		}
		Inspect(n.Func, fn)
	case *ReturnStmt:
		for _, e := range n.Exprs {
			Inspect(e, fn)
		}
	case *DoStmt:
		Inspect(n.Body, fn)
	case *ExprStmt:
		Inspect(n.Call, fn)
	case *BinaryExpr:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)
	case *UnaryExpr:
		Inspect(n.Operand, fn)
	case *CallExpr:
		Inspect(n.Fn, fn)
		for _, a := range n.Args {
			Inspect(a, fn)
		}
	case *MethodCallExpr:
		Inspect(n.Recv, fn)
		for _, a := range n.Args {
			Inspect(a, fn)
		}
	case *IndexExpr:
		Inspect(n.Obj, fn)
		Inspect(n.Key, fn)
	case *TableExpr:
		for _, f := range n.Fields {
			if f.Key != nil {
				Inspect(f.Key, fn)
			}
			Inspect(f.Value, fn)
		}
	case *FunctionExpr:
		Inspect(n.Body, fn)
	case *BreakStmt, *ContinueStmt, *GotoStmt, *LabelStmt,
		*Literal, *VariableRef, *VarargExpr:
		// Leaves.
	}
}

// RewriteExprs walks the tree and calls fn on every expression, replacing it
// with the returned value. Children are rewritten before their parents so a
// replacement sees its already-rewritten operands. fn must return a non-nil
// expression.
func RewriteExprs(node Node, fn func(Expr) Expr) {
	rw := func(e Expr) Expr {
		if e == nil {
			return nil
		}
		RewriteExprs(e, fn)
		return fn(e)
	}
	switch n := node.(type) {
	case *Chunk:
		RewriteExprs(n.Body, fn)
	case *Block:
		for _, s := range n.Stmts {
			RewriteExprs(s, fn)
		}
	case *LocalStmt:
		for i := range n.Exprs {
			n.Exprs[i] = rw(n.Exprs[i])
		}
	case *AssignStmt:
		for i := range n.Targets {
			n.Targets[i] = rw(n.Targets[i])
		}
		for i := range n.Exprs {
			n.Exprs[i] = rw(n.Exprs[i])
		}
	case *IfStmt:
		for i := range n.Clauses {
			n.Clauses[i].Cond = rw(n.Clauses[i].Cond)
			RewriteExprs(n.Clauses[i].Body, fn)
		}
		if n.Else != nil {
			RewriteExprs(n.Else, fn)
		}
	case *WhileStmt:
		n.Cond = rw(n.Cond)
		RewriteExprs(n.Body, fn)
	case *RepeatStmt:
		RewriteExprs(n.Body, fn)
		n.Cond = rw(n.Cond)
	case *NumericForStmt:
		n.Start = rw(n.Start)
		n.Stop = rw(n.Stop)
		if n.Step != nil {
			n.Step = rw(n.Step)
		}
		RewriteExprs(n.Body, fn)
	case *GenericForStmt:
		for i := range n.Exprs {
			n.Exprs[i] = rw(n.Exprs[i])
		}
		RewriteExprs(n.Body, fn)
	case *FunctionDeclStmt:
		if n.Target != nil {
			n.Target = rw(n.Target)
		}
		RewriteExprs(n.Func.Body, fn)
	case *ReturnStmt:
		for i := range n.Exprs {
			n.Exprs[i] = rw(n.Exprs[i])
		}
	case *DoStmt:
		RewriteExprs(n.Body, fn)
	case *ExprStmt:
		n.Call = rw(n.Call)
	case *BinaryExpr:
		n.Left = rw(n.Left)
		n.Right = rw(n.Right)
	case *UnaryExpr:
		n.Operand = rw(n.Operand)
	case *CallExpr:
		n.Fn = rw(n.Fn)
		for i := range n.Args {
			n.Args[i] = rw(n.Args[i])
		}
	case *MethodCallExpr:
		n.Recv = rw(n.Recv)
		for i := range n.Args {
			n.Args[i] = rw(n.Args[i])
		}
	case *IndexExpr:
		n.Obj = rw(n.Obj)
		n.Key = rw(n.Key)
	case *TableExpr:
		for i := range n.Fields {
			if n.Fields[i].Key != nil {
				n.Fields[i].Key = rw(n.Fields[i].Key)
			}
			n.Fields[i].Value = rw(n.Fields[i].Value)
		}
	case *FunctionExpr:
		RewriteExprs(n.Body, fn)
	}
}
