package basic

import (
	"fmt"
	"strings"
)

type Position struct {
	Line   int
	Column int
}

func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Node is implemented by the closed set of syntax tree nodes below. Adding a
// node means adding a method to Visitor, so every evaluator must handle it.
type Node interface {
	Pos() Position
	String() string
	Accept(v Visitor) (Value, error)
}

type Visitor interface {
	VisitNumberLiteral(n *NumberLiteral) (Value, error)
	VisitVariableAccess(n *VariableAccess) (Value, error)
	VisitVariableAssign(n *VariableAssign) (Value, error)
	VisitBinaryOp(n *BinaryOp) (Value, error)
	VisitUnaryOp(n *UnaryOp) (Value, error)
	VisitStatementList(n *StatementList) (Value, error)
	VisitIf(n *IfExpression) (Value, error)
	VisitSwitch(n *SwitchExpression) (Value, error)
	VisitWhile(n *WhileExpression) (Value, error)
}

type NumberLiteral struct {
	Token Token
	Value Number
	pos   Position
}

func NewNumberLiteral(tok Token, value Number) *NumberLiteral {
	return &NumberLiteral{Token: tok, Value: value, pos: Position{tok.Line, tok.Column}}
}

func (n *NumberLiteral) Pos() Position                   { return n.pos }
func (n *NumberLiteral) String() string                  { return n.Value.String() }
func (n *NumberLiteral) Accept(v Visitor) (Value, error) { return v.VisitNumberLiteral(n) }

type VariableAccess struct {
	Name Token
	pos  Position
}

func NewVariableAccess(name Token) *VariableAccess {
	return &VariableAccess{Name: name, pos: Position{name.Line, name.Column}}
}

func (n *VariableAccess) Pos() Position                   { return n.pos }
func (n *VariableAccess) String() string                  { return n.Name.Literal }
func (n *VariableAccess) Accept(v Visitor) (Value, error) { return v.VisitVariableAccess(n) }

type VariableAssign struct {
	Name  Token
	Value Node
	pos   Position
}

func NewVariableAssign(name Token, value Node) *VariableAssign {
	return &VariableAssign{Name: name, Value: value, pos: Position{name.Line, name.Column}}
}

func (n *VariableAssign) Pos() Position { return n.pos }
func (n *VariableAssign) String() string {
	return fmt.Sprintf("(%s = %s)", n.Name.Literal, n.Value.String())
}
func (n *VariableAssign) Accept(v Visitor) (Value, error) { return v.VisitVariableAssign(n) }

// BinaryOp takes its line from the left operand and its column from the right
// operand.
type BinaryOp struct {
	Left  Node
	Op    Token
	Right Node
	pos   Position
}

func NewBinaryOp(left Node, op Token, right Node) *BinaryOp {
	return &BinaryOp{
		Left:  left,
		Op:    op,
		Right: right,
		pos:   Position{Line: left.Pos().Line, Column: right.Pos().Column},
	}
}

func (n *BinaryOp) Pos() Position { return n.pos }
func (n *BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", n.Left.String(), n.Op.Literal, n.Right.String())
}
func (n *BinaryOp) Accept(v Visitor) (Value, error) { return v.VisitBinaryOp(n) }

type UnaryOp struct {
	Op      Token
	Operand Node
	pos     Position
}

func NewUnaryOp(op Token, operand Node) *UnaryOp {
	return &UnaryOp{Op: op, Operand: operand, pos: operand.Pos()}
}

func (n *UnaryOp) Pos() Position { return n.pos }
func (n *UnaryOp) String() string {
	if n.Op.Type == KEYWORD {
		return fmt.Sprintf("(%s %s)", n.Op.Literal, n.Operand.String())
	}
	return fmt.Sprintf("(%s%s)", n.Op.Literal, n.Operand.String())
}
func (n *UnaryOp) Accept(v Visitor) (Value, error) { return v.VisitUnaryOp(n) }

// StatementList has no position of its own.
type StatementList struct {
	Statements []Node
}

func (n *StatementList) Pos() Position { return Position{} }
func (n *StatementList) String() string {
	parts := make([]string, len(n.Statements))
	for i, s := range n.Statements {
		parts[i] = s.String()
	}
	return strings.Join(parts, "\n")
}
func (n *StatementList) Accept(v Visitor) (Value, error) { return v.VisitStatementList(n) }

type Case struct {
	Condition Node
	Body      Node
}

type IfExpression struct {
	Cases []Case
	Else  Node
	pos   Position
}

func NewIfExpression(keyword Token, cases []Case, elseCase Node) *IfExpression {
	return &IfExpression{Cases: cases, Else: elseCase, pos: Position{keyword.Line, keyword.Column}}
}

func (n *IfExpression) Pos() Position { return n.pos }
func (n *IfExpression) String() string {
	var out strings.Builder
	for i, c := range n.Cases {
		if i == 0 {
			out.WriteString("if (")
		} else {
			out.WriteString(" elif (")
		}
		fmt.Fprintf(&out, "%s) then %s", c.Condition.String(), c.Body.String())
	}
	if n.Else != nil {
		fmt.Fprintf(&out, " else %s", n.Else.String())
	}
	out.WriteString(" endif")
	return out.String()
}
func (n *IfExpression) Accept(v Visitor) (Value, error) { return v.VisitIf(n) }

type SwitchExpression struct {
	Subject Node
	Cases   []Case
	Default Node
	pos     Position
}

func NewSwitchExpression(keyword Token, subject Node, cases []Case, defaultCase Node) *SwitchExpression {
	return &SwitchExpression{Subject: subject, Cases: cases, Default: defaultCase, pos: Position{keyword.Line, keyword.Column}}
}

func (n *SwitchExpression) Pos() Position { return n.pos }
func (n *SwitchExpression) String() string {
	var out strings.Builder
	fmt.Fprintf(&out, "switch %s", n.Subject.String())
	for _, c := range n.Cases {
		fmt.Fprintf(&out, " case %s : %s", c.Condition.String(), c.Body.String())
	}
	if n.Default != nil {
		fmt.Fprintf(&out, " default : %s", n.Default.String())
	}
	out.WriteString(" endswitch")
	return out.String()
}
func (n *SwitchExpression) Accept(v Visitor) (Value, error) { return v.VisitSwitch(n) }

type WhileExpression struct {
	Condition Node
	Body      []Node
	pos       Position
}

func NewWhileExpression(keyword Token, condition Node, body []Node) *WhileExpression {
	return &WhileExpression{Condition: condition, Body: body, pos: Position{keyword.Line, keyword.Column}}
}

func (n *WhileExpression) Pos() Position { return n.pos }
func (n *WhileExpression) String() string {
	var out strings.Builder
	fmt.Fprintf(&out, "while (%s) then", n.Condition.String())
	for _, s := range n.Body {
		out.WriteString(" ")
		out.WriteString(s.String())
	}
	out.WriteString(" endwhile")
	return out.String()
}
func (n *WhileExpression) Accept(v Visitor) (Value, error) { return v.VisitWhile(n) }
