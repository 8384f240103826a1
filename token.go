package basic

import (
	"fmt"
	"strconv"
)

type TokenType string

const (
	EOF TokenType = "EOF"

	INT     TokenType = "INT"
	FLOAT   TokenType = "FLOAT"
	STRING  TokenType = "STRING"
	IDENT   TokenType = "IDENTIFIER"
	KEYWORD TokenType = "KEYWORD"

	PLUS  TokenType = "PLUS"
	MINUS TokenType = "MINUS"
	MUL   TokenType = "MUL"
	DIV   TokenType = "DIV"
	POW   TokenType = "POW"
	MOD   TokenType = "MOD"

	ASSIGN TokenType = "EQ"
	EQ     TokenType = "=="
	NOT_EQ TokenType = "!="
	GT     TokenType = ">"
	GTE    TokenType = ">="
	LT     TokenType = "<"
	LTE    TokenType = "<="

	LPAREN    TokenType = "LPAREN"
	RPAREN    TokenType = "RPAREN"
	LBRACE    TokenType = "LBRACE"
	RBRACE    TokenType = "RBRACE"
	COMMA     TokenType = "COMMA"
	SEMICOLON TokenType = "SEMICOLON"
	COLON     TokenType = "COLON"
)

// keywords is the fixed lowercase keyword set. Some entries are reserved and
// never accepted by the grammar.
var keywords = map[string]struct{}{
	"var": {}, "exit": {}, "div": {}, "mod": {},
	"and": {}, "or": {}, "not": {}, "xor": {},
	"if": {}, "then": {}, "else": {}, "elif": {}, "endif": {}, "end": {},
	"for": {}, "while": {}, "endwhile": {},
	"switch": {}, "case": {}, "default": {}, "endswitch": {},
	"break": {}, "continue": {},
}

// Token is a lexical unit. Line and Column are 1-based and point at the last
// character of the lexeme.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

func lookupKeyword(ident string) TokenType {
	if _, ok := keywords[ident]; !ok {
		return IDENT
	}
	switch ident {
	case "div":
		return DIV
	case "mod":
		return MOD
	}
	return KEYWORD
}

// Is reports whether the token has the given type and, for keywords and
// identifiers, the given literal.
func (t Token) Is(typ TokenType, literal string) bool {
	return t.Type == typ && t.Literal == literal
}

// IsKeyword reports whether the token is the keyword kw.
func (t Token) IsKeyword(kw string) bool {
	return t.Is(KEYWORD, kw)
}

func (t Token) IntValue() (int64, error) {
	return strconv.ParseInt(t.Literal, 10, 64)
}

func (t Token) FloatValue() (float64, error) {
	return strconv.ParseFloat(t.Literal, 64)
}

func (t Token) String() string {
	switch t.Type {
	case EOF:
		return "EOF"
	case STRING:
		return fmt.Sprintf("%s:%q", t.Type, t.Literal)
	}
	return fmt.Sprintf("%s:%s", t.Type, t.Literal)
}
