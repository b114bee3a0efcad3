package tabql

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokQuotedIdent
	tokString
	tokNumber
	tokStar
	tokComma
	tokLParen
	tokRParen
	tokOp // = != <> < <= > >=
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

type lexer struct {
	input  []rune
	pos    int
	tokens []token
}

// lex tokenizes a query. Identifiers may be double-quoted and contain any
// Unicode characters; string literals use single quotes with '' escaping.
// A number immediately followed by % keeps its numeric value, models tend
// to copy percent signs out of column headers into literals.
func lex(input string) ([]token, error) {
	l := &lexer{input: []rune(input)}
	for {
		l.skipSpace()
		if l.pos >= len(l.input) {
			l.emit(token{kind: tokEOF})
			return l.tokens, nil
		}
		r := l.input[l.pos]
		switch {
		case r == '"':
			if err := l.lexQuotedIdent(); err != nil {
				return nil, err
			}
		case r == '\'':
			if err := l.lexString(); err != nil {
				return nil, err
			}
		case r >= '0' && r <= '9' || r == '.' && l.peekDigit(1):
			l.lexNumber(false)
		case r == '-' && l.peekDigit(1):
			l.lexNumber(true)
		case r == '*':
			l.pos++
			l.emit(token{kind: tokStar, text: "*"})
		case r == ',':
			l.pos++
			l.emit(token{kind: tokComma, text: ","})
		case r == '(':
			l.pos++
			l.emit(token{kind: tokLParen, text: "("})
		case r == ')':
			l.pos++
			l.emit(token{kind: tokRParen, text: ")"})
		case r == ';':
			// Trailing semicolons are tolerated.
			l.pos++
		case r == '=':
			l.pos++
			l.emit(token{kind: tokOp, text: "="})
		case r == '!':
			if l.peekIs(1, '=') {
				l.pos += 2
				l.emit(token{kind: tokOp, text: "!="})
			} else {
				return nil, &ParseError{Msg: "unexpected character '!'"}
			}
		case r == '<':
			switch {
			case l.peekIs(1, '='):
				l.pos += 2
				l.emit(token{kind: tokOp, text: "<="})
			case l.peekIs(1, '>'):
				l.pos += 2
				l.emit(token{kind: tokOp, text: "!="})
			default:
				l.pos++
				l.emit(token{kind: tokOp, text: "<"})
			}
		case r == '>':
			if l.peekIs(1, '=') {
				l.pos += 2
				l.emit(token{kind: tokOp, text: ">="})
			} else {
				l.pos++
				l.emit(token{kind: tokOp, text: ">"})
			}
		case isIdentStart(r):
			l.lexIdent()
		default:
			return nil, &ParseError{Msg: fmt.Sprintf("unexpected character %q", string(r))}
		}
	}
}

func (l *lexer) emit(t token) { l.tokens = append(l.tokens, t) }

func (l *lexer) skipSpace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *lexer) peekIs(offset int, r rune) bool {
	return l.pos+offset < len(l.input) && l.input[l.pos+offset] == r
}

func (l *lexer) peekDigit(offset int) bool {
	return l.pos+offset < len(l.input) && l.input[l.pos+offset] >= '0' && l.input[l.pos+offset] <= '9'
}

func (l *lexer) lexQuotedIdent() error {
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		r := l.input[l.pos]
		if r == '"' {
			if l.peekIs(1, '"') {
				sb.WriteRune('"')
				l.pos += 2
				continue
			}
			l.pos++
			l.emit(token{kind: tokQuotedIdent, text: sb.String()})
			return nil
		}
		sb.WriteRune(r)
		l.pos++
	}
	return &ParseError{Msg: "unterminated quoted identifier"}
}

func (l *lexer) lexString() error {
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		r := l.input[l.pos]
		if r == '\'' {
			if l.peekIs(1, '\'') {
				sb.WriteRune('\'')
				l.pos += 2
				continue
			}
			l.pos++
			l.emit(token{kind: tokString, text: sb.String()})
			return nil
		}
		sb.WriteRune(r)
		l.pos++
	}
	return &ParseError{Msg: "unterminated string literal"}
}

func (l *lexer) lexNumber(negative bool) {
	start := l.pos
	if negative {
		l.pos++
	}
	for l.pos < len(l.input) {
		r := l.input[l.pos]
		if (r >= '0' && r <= '9') || r == '.' {
			l.pos++
			continue
		}
		break
	}
	text := string(l.input[start:l.pos])
	// Strip a trailing percent sign glued to the number.
	if l.pos < len(l.input) && l.input[l.pos] == '%' {
		l.pos++
	}
	f, _ := strconv.ParseFloat(text, 64)
	l.emit(token{kind: tokNumber, text: text, num: f})
}

func (l *lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	l.emit(token{kind: tokIdent, text: string(l.input[start:l.pos])})
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
