package basic

import (
	"strings"
	"unicode"
)

const eofRune rune = -1

type Lexer struct {
	input []rune
	pos   int
	ch    rune
	// line and column locate ch; endLine and endColumn locate the last
	// consumed character.
	line      int
	column    int
	endLine   int
	endColumn int
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: []rune(input), line: 1, column: 1, endLine: 1}
	l.ch = l.at(0)
	return l
}

// Tokenize scans source into a token sequence terminated by exactly one EOF
// token.
func Tokenize(source string) ([]Token, error) {
	return NewLexer(source).Tokens()
}

func (l *Lexer) at(pos int) rune {
	if pos >= len(l.input) {
		return eofRune
	}
	return l.input[pos]
}

func (l *Lexer) readChar() {
	if l.ch == eofRune {
		return
	}
	l.endLine, l.endColumn = l.line, l.column
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	l.column++
	l.pos++
	l.ch = l.at(l.pos)
}

func (l *Lexer) token(typ TokenType, literal string) Token {
	return Token{Type: typ, Literal: literal, Line: l.endLine, Column: l.endColumn}
}

// Tokens scans the remaining input.
func (l *Lexer) Tokens() ([]Token, error) {
	var tokens []Token
	for l.ch != eofRune {
		if unicode.IsSpace(l.ch) {
			l.readChar()
			continue
		}
		tok, ok, err := l.next()
		if err != nil {
			return nil, err
		}
		if ok {
			tokens = append(tokens, tok)
		}
	}
	tokens = append(tokens, Token{Type: EOF, Line: l.line, Column: l.column})
	return tokens, nil
}

// next scans one lexeme starting at a non-space character. ok is false when
// the lexeme produced no token.
func (l *Lexer) next() (Token, bool, error) {
	switch {
	case isDigit(l.ch):
		return l.readNumber(), true, nil
	case unicode.IsLetter(l.ch) || l.ch == '_':
		return l.readIdentifier(), true, nil
	}
	switch l.ch {
	case '!':
		line, column := l.line, l.column
		l.readChar()
		if l.ch != '=' {
			return Token{}, false, lexErrorf(line, column, "Expected '=' after '!'")
		}
		l.readChar()
		return l.token(NOT_EQ, "!="), true, nil
	case '=':
		return l.readTwoChar(ASSIGN, EQ), true, nil
	case '<':
		return l.readTwoChar(LT, LTE), true, nil
	case '>':
		return l.readTwoChar(GT, GTE), true, nil
	case '"':
		tok, ok := l.readString()
		return tok, ok, nil
	}
	if typ, ok := singleChar[l.ch]; ok {
		ch := l.ch
		l.readChar()
		return l.token(typ, string(ch)), true, nil
	}
	return Token{}, false, lexErrorf(l.line, l.column, "Invalid character '%c'", l.ch)
}

var singleChar = map[rune]TokenType{
	'+': PLUS,
	'-': MINUS,
	'*': MUL,
	'/': DIV,
	'^': POW,
	'%': MOD,
	'(': LPAREN,
	')': RPAREN,
	'{': LBRACE,
	'}': RBRACE,
	',': COMMA,
	';': SEMICOLON,
	':': COLON,
}

// readTwoChar consumes the current character and, when it is followed by
// '=', the '=' as well.
func (l *Lexer) readTwoChar(single, withEq TokenType) Token {
	ch := l.ch
	l.readChar()
	if l.ch == '=' {
		l.readChar()
		return l.token(withEq, string(ch)+"=")
	}
	return l.token(single, string(ch))
}

func (l *Lexer) readNumber() Token {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch != '.' {
		return l.token(INT, string(l.input[start:l.pos]))
	}
	l.readChar()
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.token(FLOAT, string(l.input[start:l.pos]))
}

func (l *Lexer) readIdentifier() Token {
	start := l.pos
	for isIdentifierChar(l.ch) {
		l.readChar()
	}
	ident := strings.ToLower(string(l.input[start:l.pos]))
	return l.token(lookupKeyword(ident), ident)
}

// readString has no escape processing. An unterminated string yields no
// token.
func (l *Lexer) readString() (Token, bool) {
	l.readChar()
	start := l.pos
	for l.ch != eofRune && l.ch != '"' {
		l.readChar()
	}
	if l.ch == eofRune {
		return Token{}, false
	}
	literal := string(l.input[start:l.pos])
	l.readChar()
	return l.token(STRING, literal), true
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func isIdentifierChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}
