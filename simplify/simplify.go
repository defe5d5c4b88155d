// Package simplify implements constant folding, grounded on
// original_source/libs/Simplifier.cpp. That file's snapshot leaves
// visit(AssignmentNode)/visit(FunctionCallNode)/visit(IfStatementNode) as
// empty no-ops and simplifies UnaryOpNode without first recursing into
// its operand — both are incompleteness in the retrieved source, not
// behaviour spec.md asks us to reproduce ("All other nodes are rebuilt
// as-is" and "The simplifier is idempotent" require every node kind to
// recurse correctly). This package implements the complete, correct
// recursive rebuild the original's comment implies but its body doesn't
// deliver.
package simplify

import "github.com/launix-de/formula-compiler/ast"

// Simplifier is a Visitor that rebuilds a minimally folded tree.
type Simplifier struct{}

// Node simplifies node and returns the rebuilt tree.
func Node(node ast.Node) ast.Node {
	if node == nil {
		return nil
	}
	var s Simplifier
	return node.Accept(&s).(ast.Node)
}

func (s *Simplifier) VisitLiteral(n *ast.Literal) any {
	return ast.Node(&ast.Literal{Value: n.Value})
}

func (s *Simplifier) VisitIdentifier(n *ast.Identifier) any {
	return ast.Node(&ast.Identifier{Name: n.Name})
}

func (s *Simplifier) VisitUnaryOp(n *ast.UnaryOp) any {
	operand := n.Operand.Accept(s).(ast.Node)
	if lit, ok := operand.(*ast.Literal); ok {
		switch n.Op {
		case '+':
			return ast.Node(lit)
		case '-':
			return ast.Node(&ast.Literal{Value: lit.Value.Neg()})
		case '|':
			return ast.Node(&ast.Literal{Value: lit.Value.AbsSquared()})
		}
	}
	return ast.Node(&ast.UnaryOp{Op: n.Op, Operand: operand})
}

func (s *Simplifier) VisitBinaryOp(n *ast.BinaryOp) any {
	left := n.Left.Accept(s).(ast.Node)
	right := n.Right.Accept(s).(ast.Node)

	leftLit, leftOK := left.(*ast.Literal)
	rightLit, rightOK := right.(*ast.Literal)
	if leftOK && rightOK {
		// Fold only the arithmetic operators, matching
		// original_source/libs/Simplifier.cpp's visit(BinaryOpNode):
		// relational, logical and power operators are left for the
		// evaluator since folding them would need to reproduce
		// short-circuit/relational/pow semantics here too.
		switch n.Op {
		case ast.OpAdd:
			return ast.Node(&ast.Literal{Value: leftLit.Value.Add(rightLit.Value)})
		case ast.OpSub:
			return ast.Node(&ast.Literal{Value: leftLit.Value.Sub(rightLit.Value)})
		case ast.OpMul:
			return ast.Node(&ast.Literal{Value: leftLit.Value.Mul(rightLit.Value)})
		case ast.OpDiv:
			return ast.Node(&ast.Literal{Value: leftLit.Value.Div(rightLit.Value)})
		}
	}
	return ast.Node(&ast.BinaryOp{Op: n.Op, Left: left, Right: right})
}

func (s *Simplifier) VisitFunctionCall(n *ast.FunctionCall) any {
	arg := n.Arg.Accept(s).(ast.Node)
	return ast.Node(&ast.FunctionCall{Name: n.Name, Arg: arg})
}

func (s *Simplifier) VisitAssignment(n *ast.Assignment) any {
	value := n.Value.Accept(s).(ast.Node)
	return ast.Node(&ast.Assignment{Target: n.Target, Value: value})
}

func (s *Simplifier) VisitIf(n *ast.If) any {
	cond := n.Cond.Accept(s).(ast.Node)
	var then, els ast.Node
	if n.Then != nil {
		then = n.Then.Accept(s).(ast.Node)
	}
	if n.Else != nil {
		els = n.Else.Accept(s).(ast.Node)
	}
	return ast.Node(&ast.If{Cond: cond, Then: then, Else: els})
}

func (s *Simplifier) VisitStatementSeq(n *ast.StatementSeq) any {
	simplified := make([]ast.Node, 0, len(n.Statements))
	for _, stmt := range n.Statements {
		simplified = append(simplified, stmt.Accept(s).(ast.Node))
	}

	// Collapse a run of consecutive pure-literal statements to only the
	// last: earlier pure literals are dead (their value is discarded by
	// StatementSeq's "last wins" semantics and they have no side
	// effect).
	collapsed := make([]ast.Node, 0, len(simplified))
	for _, stmt := range simplified {
		if _, isLit := stmt.(*ast.Literal); isLit {
			if len(collapsed) > 0 {
				if _, prevIsLit := collapsed[len(collapsed)-1].(*ast.Literal); prevIsLit {
					collapsed[len(collapsed)-1] = stmt
					continue
				}
			}
		}
		collapsed = append(collapsed, stmt)
	}

	if len(collapsed) == 1 {
		return collapsed[0]
	}
	return ast.Node(&ast.StatementSeq{Statements: collapsed})
}

func (s *Simplifier) VisitSetting(n *ast.Setting) any {
	value := n.Value
	if value.Expr != nil {
		value.Expr = value.Expr.Accept(s).(ast.Node)
	}
	return ast.Node(&ast.Setting{Key: n.Key, Value: value})
}

func (s *Simplifier) VisitParamBlock(n *ast.ParamBlock) any {
	entries := make([]ast.ParamBlockEntry, len(n.Entries))
	for i, e := range n.Entries {
		if e.Value.Expr != nil {
			e.Value.Expr = e.Value.Expr.Accept(s).(ast.Node)
		}
		entries[i] = e
	}
	return ast.Node(&ast.ParamBlock{Type: n.Type, Name: n.Name, Entries: entries})
}
