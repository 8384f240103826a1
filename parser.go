package basic

import (
	"context"
	"fmt"
)

// Parser is a recursive-descent parser over a token sequence with one token of
// lookahead and no backtracking.
type Parser struct {
	tokens   []Token
	pos      int
	curToken Token
	depth    int
	maxDepth int
}

func NewParser(tokens []Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != EOF {
		line, column := 1, 1
		if len(tokens) > 0 {
			last := tokens[len(tokens)-1]
			line, column = last.Line, last.Column+1
		}
		tokens = append(tokens, Token{Type: EOF, Line: line, Column: column})
	}
	p := &Parser{tokens: tokens, maxDepth: GetRuntimeConfig().MaxExpressionDepth}
	p.curToken = tokens[0]
	return p
}

// Parse lexes and parses source into a statement list.
func Parse(ctx context.Context, source string) (*StatementList, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}
	p := NewParser(tokens)
	p.maxDepth = effectiveRuntimeConfig(ctx).MaxExpressionDepth
	return p.ParseProgram()
}

// ParseProgram collects statements until the end of input.
func (p *Parser) ParseProgram() (*StatementList, error) {
	program := &StatementList{}
	for p.curToken.Type != EOF {
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		program.Statements = append(program.Statements, stmt)
	}
	return program, nil
}

func (p *Parser) nextToken() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.curToken = p.tokens[p.pos]
}

func (p *Parser) peekToken() Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) enter() error {
	p.depth++
	if p.maxDepth > 0 && p.depth > p.maxDepth {
		return &Error{
			Code:    ErrCodeLimit,
			Message: fmt.Sprintf("expression nesting exceeds %d levels", p.maxDepth),
			Line:    p.curToken.Line,
			Column:  p.curToken.Column,
		}
	}
	return nil
}

func (p *Parser) leave() { p.depth-- }

func (p *Parser) expectType(t TokenType, display string) (Token, error) {
	tok := p.curToken
	if tok.Type != t {
		return tok, syntaxErrorf(tok, "Expected %s, got %s", display, tok)
	}
	p.nextToken()
	return tok, nil
}

func (p *Parser) expectKeyword(kw string) (Token, error) {
	tok := p.curToken
	if !tok.IsKeyword(kw) {
		return tok, syntaxErrorf(tok, "Expected '%s', got %s", kw, tok)
	}
	p.nextToken()
	return tok, nil
}

func (p *Parser) statement() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	switch {
	case p.curToken.IsKeyword("exit"):
		return nil, p.parseExit()
	case p.curToken.IsKeyword("var"):
		p.nextToken()
		name, err := p.expectType(IDENT, "identifier")
		if err != nil {
			return nil, err
		}
		if _, err := p.expectType(ASSIGN, "'='"); err != nil {
			return nil, err
		}
		return p.parseAssignValue(name)
	case p.curToken.Type == IDENT && p.peekToken().Type == ASSIGN:
		name := p.curToken
		p.nextToken()
		p.nextToken()
		return p.parseAssignValue(name)
	}
	return p.orExpr()
}

func (p *Parser) parseAssignValue(name Token) (Node, error) {
	value, err := p.statement()
	if err != nil {
		return nil, err
	}
	return NewVariableAssign(name, value), nil
}

// parseExit consumes exit() and reports it as an error so the run stops
// before anything else is evaluated.
func (p *Parser) parseExit() error {
	kw := p.curToken
	p.nextToken()
	if _, err := p.expectType(LPAREN, "'('"); err != nil {
		return err
	}
	if _, err := p.expectType(RPAREN, "')'"); err != nil {
		return err
	}
	return &Error{Code: ErrCodeExit, Message: "Exiting...", Line: kw.Line, Column: kw.Column}
}

// binaryOp parses a left-associative chain of operand separated by operators
// accepted by match.
func (p *Parser) binaryOp(operand func() (Node, error), match func(Token) bool) (Node, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for match(p.curToken) {
		op := p.curToken
		p.nextToken()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = NewBinaryOp(left, op, right)
	}
	return left, nil
}

func (p *Parser) orExpr() (Node, error) {
	return p.binaryOp(p.compExpr, func(t Token) bool {
		return t.IsKeyword("and") || t.IsKeyword("or")
	})
}

func (p *Parser) compExpr() (Node, error) {
	if p.curToken.IsKeyword("not") {
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		op := p.curToken
		p.nextToken()
		operand, err := p.compExpr()
		if err != nil {
			return nil, err
		}
		return NewUnaryOp(op, operand), nil
	}
	return p.binaryOp(p.arithExpr, func(t Token) bool {
		switch t.Type {
		case EQ, NOT_EQ, GT, GTE, LT, LTE:
			return true
		}
		return false
	})
}

func (p *Parser) arithExpr() (Node, error) {
	return p.binaryOp(p.term, func(t Token) bool {
		return t.Type == PLUS || t.Type == MINUS || t.Type == MOD
	})
}

func (p *Parser) term() (Node, error) {
	return p.binaryOp(p.factor, func(t Token) bool {
		return t.Type == MUL || t.Type == DIV
	})
}

func (p *Parser) factor() (Node, error) {
	if p.curToken.Type != PLUS && p.curToken.Type != MINUS {
		return p.power()
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	op := p.curToken
	p.nextToken()
	operand, err := p.factor()
	if err != nil {
		return nil, err
	}
	return NewUnaryOp(op, operand), nil
}

// power is right-associative: the right-hand side of '^' is a factor.
func (p *Parser) power() (Node, error) {
	node, err := p.atom()
	if err != nil {
		return nil, err
	}
	for p.curToken.Type == POW {
		op := p.curToken
		p.nextToken()
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		node = NewBinaryOp(node, op, right)
	}
	return node, nil
}

func (p *Parser) atom() (Node, error) {
	tok := p.curToken
	switch {
	case tok.Type == INT:
		p.nextToken()
		return parseIntegerLiteral(tok)
	case tok.Type == FLOAT:
		p.nextToken()
		return parseFloatLiteral(tok)
	case tok.Type == IDENT:
		p.nextToken()
		return NewVariableAccess(tok), nil
	case tok.Type == LPAREN:
		return p.parenExpr()
	case tok.IsKeyword("if"):
		return p.ifExpr()
	case tok.IsKeyword("switch"):
		return p.switchExpr()
	case tok.IsKeyword("while"):
		return p.whileExpr()
	}
	return nil, syntaxErrorf(tok, "Expected int, float, identifier, '(', 'if', 'switch', 'while' or unary operator, got %s", tok)
}

// parseIntegerLiteral falls back to a float for literals that overflow int64.
func parseIntegerLiteral(tok Token) (Node, error) {
	if v, err := tok.IntValue(); err == nil {
		return NewNumberLiteral(tok, Int(v)), nil
	}
	return parseFloatLiteral(tok)
}

func parseFloatLiteral(tok Token) (Node, error) {
	v, err := tok.FloatValue()
	if err != nil {
		return nil, syntaxErrorf(tok, "invalid number %q", tok.Literal)
	}
	return NewNumberLiteral(tok, Float(v)), nil
}

func (p *Parser) parenExpr() (Node, error) {
	if _, err := p.expectType(LPAREN, "'('"); err != nil {
		return nil, err
	}
	node, err := p.statement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectType(RPAREN, "')'"); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) conditionalCase() (Case, error) {
	condition, err := p.parenExpr()
	if err != nil {
		return Case{}, err
	}
	if _, err := p.expectKeyword("then"); err != nil {
		return Case{}, err
	}
	body, err := p.statement()
	if err != nil {
		return Case{}, err
	}
	return Case{Condition: condition, Body: body}, nil
}

func (p *Parser) ifExpr() (Node, error) {
	kw, err := p.expectKeyword("if")
	if err != nil {
		return nil, err
	}
	first, err := p.conditionalCase()
	if err != nil {
		return nil, err
	}
	cases := []Case{first}
	for p.curToken.IsKeyword("elif") {
		p.nextToken()
		c, err := p.conditionalCase()
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	var elseCase Node
	if p.curToken.IsKeyword("else") {
		p.nextToken()
		if elseCase, err = p.statement(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expectKeyword("endif"); err != nil {
		return nil, err
	}
	return NewIfExpression(kw, cases, elseCase), nil
}

func (p *Parser) switchExpr() (Node, error) {
	kw, err := p.expectKeyword("switch")
	if err != nil {
		return nil, err
	}
	subject, err := p.statement()
	if err != nil {
		return nil, err
	}
	var cases []Case
	for p.curToken.IsKeyword("case") {
		p.nextToken()
		value, err := p.statement()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectType(COLON, "':'"); err != nil {
			return nil, err
		}
		body, err := p.statement()
		if err != nil {
			return nil, err
		}
		cases = append(cases, Case{Condition: value, Body: body})
	}
	var defaultCase Node
	if p.curToken.IsKeyword("default") {
		p.nextToken()
		if _, err := p.expectType(COLON, "':'"); err != nil {
			return nil, err
		}
		if defaultCase, err = p.statement(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expectKeyword("endswitch"); err != nil {
		return nil, err
	}
	return NewSwitchExpression(kw, subject, cases, defaultCase), nil
}

func (p *Parser) whileExpr() (Node, error) {
	kw, err := p.expectKeyword("while")
	if err != nil {
		return nil, err
	}
	condition, err := p.parenExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("then"); err != nil {
		return nil, err
	}
	var body []Node
	for !p.curToken.IsKeyword("endwhile") && p.curToken.Type != EOF {
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
	if _, err := p.expectKeyword("endwhile"); err != nil {
		return nil, err
	}
	return NewWhileExpression(kw, condition, body), nil
}
