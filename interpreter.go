// Package basic lexes, parses and evaluates programs in a small numeric
// expression language with if, switch and while expressions.
package basic

import (
	"context"
	"fmt"
)

// Interpreter evaluates syntax trees against an Environment. It is not safe
// for concurrent use; every run owns its own Interpreter and Environment.
type Interpreter struct {
	ctx context.Context
	env *Environment
	cfg RuntimeConfig
}

func NewInterpreter(ctx context.Context, env *Environment) *Interpreter {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Interpreter{ctx: ctx, env: env, cfg: effectiveRuntimeConfig(ctx)}
}

// Evaluate walks node in env. The result is a Number, a List for statement
// lists, or nil when no operation was performed.
func Evaluate(node Node, env *Environment) (Value, error) {
	return NewInterpreter(context.Background(), env).Evaluate(node)
}

func (in *Interpreter) Evaluate(node Node) (Value, error) {
	if node == nil {
		return nil, nil
	}
	return node.Accept(in)
}

func (in *Interpreter) Environment() *Environment { return in.env }

// number evaluates node and requires a numeric result.
func (in *Interpreter) number(node Node, what string) (Number, error) {
	v, err := in.Evaluate(node)
	if err != nil {
		return Number{}, err
	}
	n, ok := v.(Number)
	if !ok {
		if v == nil {
			return Number{}, runtimeErrorf(node.Pos(), "%s has no value", what)
		}
		return Number{}, runtimeErrorf(node.Pos(), "%s is not a number", what)
	}
	return n, nil
}

func (in *Interpreter) VisitNumberLiteral(n *NumberLiteral) (Value, error) {
	return n.Value.WithPos(n.Pos()), nil
}

func (in *Interpreter) VisitVariableAccess(n *VariableAccess) (Value, error) {
	v, ok := in.env.Get(n.Name.Literal)
	if !ok {
		return nil, runtimeErrorf(n.Pos(), "Undefined variable '%s'", n.Name.Literal)
	}
	return v, nil
}

func (in *Interpreter) VisitVariableAssign(n *VariableAssign) (Value, error) {
	v, err := in.Evaluate(n.Value)
	if err != nil {
		return nil, err
	}
	num, ok := v.(Number)
	if !ok {
		return nil, runtimeErrorf(n.Pos(), "Undefined variable '%s'", n.Name.Literal)
	}
	in.env.Set(n.Name.Literal, num)
	return num, nil
}

// VisitBinaryOp requires a numeric left operand. A right operand with no
// value makes the whole operation null.
func (in *Interpreter) VisitBinaryOp(n *BinaryOp) (Value, error) {
	left, err := in.number(n.Left, "left operand")
	if err != nil {
		return nil, err
	}
	rv, err := in.Evaluate(n.Right)
	if err != nil {
		return nil, err
	}
	if rv == nil {
		return nil, nil
	}
	right, ok := rv.(Number)
	if !ok {
		return nil, runtimeErrorf(n.Right.Pos(), "right operand is not a number")
	}
	switch n.Op.Type {
	case PLUS:
		return left.Add(right), nil
	case MINUS:
		return left.Sub(right), nil
	case MUL:
		return left.Mul(right), nil
	case DIV, MOD:
		if right.IsZero() {
			pos := right.Pos
			if !pos.IsValid() {
				pos = n.Right.Pos()
			}
			return nil, runtimeErrorf(pos, "Division by zero")
		}
		if n.Op.Type == DIV {
			return left.Div(right), nil
		}
		return left.Mod(right), nil
	case POW:
		return left.Pow(right), nil
	case EQ:
		return Bool(left.Compare(right) == 0), nil
	case NOT_EQ:
		return Bool(left.Compare(right) != 0), nil
	case GT:
		return Bool(left.Compare(right) == 1), nil
	case GTE:
		c := left.Compare(right)
		return Bool(c == 1 || c == 0), nil
	case LT:
		return Bool(left.Compare(right) == -1), nil
	case LTE:
		c := left.Compare(right)
		return Bool(c == -1 || c == 0), nil
	case KEYWORD:
		switch n.Op.Literal {
		case "and":
			return Bool(left.IsTrue() && right.IsTrue()), nil
		case "or":
			return Bool(left.IsTrue() || right.IsTrue()), nil
		}
	}
	return nil, nil
}

// VisitUnaryOp negates for '-'. 'not' maps zero to one and leaves any other
// operand unchanged.
func (in *Interpreter) VisitUnaryOp(n *UnaryOp) (Value, error) {
	operand, err := in.number(n.Operand, "operand")
	if err != nil {
		return nil, err
	}
	switch {
	case n.Op.Type == MINUS:
		return operand.Mul(Int(-1).WithPos(n.Pos())), nil
	case n.Op.Type == PLUS:
		return operand, nil
	case n.Op.IsKeyword("not"):
		if operand.IsZero() {
			return Int(1), nil
		}
		return operand, nil
	}
	return nil, nil
}

func (in *Interpreter) VisitStatementList(n *StatementList) (Value, error) {
	results := make(List, 0, len(n.Statements))
	for _, stmt := range n.Statements {
		v, err := in.Evaluate(stmt)
		if err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	return results, nil
}

func (in *Interpreter) VisitIf(n *IfExpression) (Value, error) {
	for _, c := range n.Cases {
		cond, err := in.number(c.Condition, "if condition")
		if err != nil {
			return nil, err
		}
		if cond.IsTrue() {
			return in.Evaluate(c.Body)
		}
	}
	if n.Else != nil {
		return in.Evaluate(n.Else)
	}
	return nil, nil
}

// VisitSwitch evaluates the subject once and each case value in order until
// one is numerically equal to it. A case value with no result never matches.
func (in *Interpreter) VisitSwitch(n *SwitchExpression) (Value, error) {
	subject, err := in.Evaluate(n.Subject)
	if err != nil {
		return nil, err
	}
	subjectNum, subjectOK := subject.(Number)
	for _, c := range n.Cases {
		v, err := in.Evaluate(c.Condition)
		if err != nil {
			return nil, err
		}
		if num, ok := v.(Number); ok && subjectOK && num.Equal(subjectNum) {
			return in.Evaluate(c.Body)
		}
	}
	if n.Default != nil {
		return in.Evaluate(n.Default)
	}
	return nil, nil
}

// VisitWhile re-evaluates the condition before every iteration. The result is
// the value of the last body statement of the last iteration, or nil when the
// body never ran.
func (in *Interpreter) VisitWhile(n *WhileExpression) (Value, error) {
	var last Value
	for iterations := 0; ; iterations++ {
		if err := in.ctx.Err(); err != nil {
			return nil, wrapContextErr(err, n.Pos())
		}
		cond, err := in.number(n.Condition, "while condition")
		if err != nil {
			return nil, err
		}
		if !cond.IsTrue() {
			return last, nil
		}
		if in.cfg.MaxLoopIterations > 0 && iterations >= in.cfg.MaxLoopIterations {
			return nil, &Error{
				Code:    ErrCodeLimit,
				Message: fmt.Sprintf("while loop exceeded %d iterations", in.cfg.MaxLoopIterations),
				Line:    n.Pos().Line,
				Column:  n.Pos().Column,
			}
		}
		last = nil
		for _, stmt := range n.Body {
			if last, err = in.Evaluate(stmt); err != nil {
				return nil, err
			}
		}
	}
}

var _ Visitor = (*Interpreter)(nil)
