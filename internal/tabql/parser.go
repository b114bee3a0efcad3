package tabql

import (
	"fmt"
	"strings"
)

type parser struct {
	tokens []token
	pos    int
}

// Parse turns a query string into a Statement.
func Parse(input string) (*Statement, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}

	stmt, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	if !p.at(tokEOF) {
		return nil, &ParseError{Msg: fmt.Sprintf("unexpected input after statement: %q", p.cur().text)}
	}
	return stmt, nil
}

func (p *parser) cur() token  { return p.tokens[p.pos] }
func (p *parser) next() token { t := p.tokens[p.pos]; p.pos++; return t }

func (p *parser) at(kind tokenKind) bool { return p.cur().kind == kind }

// atKeyword matches an unquoted identifier case-insensitively.
func (p *parser) atKeyword(kw string) bool {
	return p.cur().kind == tokIdent && strings.EqualFold(p.cur().text, kw)
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.atKeyword(kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return &ParseError{Msg: fmt.Sprintf("expected %s near %q", kw, p.cur().text)}
	}
	return nil
}

func (p *parser) parseSelect() (*Statement, error) {
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}

	stmt := &Statement{Limit: -1}

	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		stmt.Items = append(stmt.Items, item)
		if !p.at(tokComma) {
			break
		}
		p.next()
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	from, err := p.parseIdent("table name")
	if err != nil {
		return nil, err
	}
	stmt.From = from

	if p.acceptKeyword("WHERE") {
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		stmt.Where = expr
	}

	if p.acceptKeyword("ORDER") {
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			col, err := p.parseIdent("order by column")
			if err != nil {
				return nil, err
			}
			item := OrderItem{Column: col}
			if p.acceptKeyword("DESC") {
				item.Desc = true
			} else {
				p.acceptKeyword("ASC")
			}
			stmt.OrderBy = append(stmt.OrderBy, item)
			if !p.at(tokComma) {
				break
			}
			p.next()
		}
	}

	if p.acceptKeyword("LIMIT") {
		if !p.at(tokNumber) {
			return nil, &ParseError{Msg: "LIMIT requires a number"}
		}
		stmt.Limit = int(p.next().num)
	}

	return stmt, nil
}

func (p *parser) parseSelectItem() (SelectItem, error) {
	if p.at(tokStar) {
		p.next()
		return SelectItem{Star: true}, nil
	}

	if p.cur().kind == tokIdent {
		if agg := aggFromName(p.cur().text); agg != AggNone && p.tokens[p.pos+1].kind == tokLParen {
			p.next() // function name
			p.next() // (
			item := SelectItem{Agg: agg}
			if p.at(tokStar) {
				p.next()
				item.Star = true
				if agg != AggCount {
					return SelectItem{}, &ParseError{Msg: fmt.Sprintf("%s(*) is not supported", agg)}
				}
			} else {
				col, err := p.parseIdent("aggregate argument")
				if err != nil {
					return SelectItem{}, err
				}
				item.Column = col
			}
			if !p.at(tokRParen) {
				return SelectItem{}, &ParseError{Msg: "expected ) after aggregate argument"}
			}
			p.next()
			return item, nil
		}
	}

	col, err := p.parseIdent("column name")
	if err != nil {
		return SelectItem{}, err
	}
	return SelectItem{Column: col}, nil
}

func aggFromName(name string) AggFunc {
	switch strings.ToUpper(name) {
	case "COUNT":
		return AggCount
	case "MAX":
		return AggMax
	case "MIN":
		return AggMin
	case "AVG":
		return AggAvg
	case "SUM":
		return AggSum
	default:
		return AggNone
	}
}

func (p *parser) parseIdent(what string) (string, error) {
	switch p.cur().kind {
	case tokIdent, tokQuotedIdent:
		return p.next().text, nil
	default:
		return "", &ParseError{Msg: fmt.Sprintf("expected %s near %q", what, p.cur().text)}
	}
}

// --- WHERE grammar: or := and (OR and)* ; and := unary (AND unary)* ---

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("AND") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.acceptKeyword("NOT") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Inner: inner}, nil
	}

	if p.at(tokLParen) {
		p.next()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.at(tokRParen) {
			return nil, &ParseError{Msg: "expected closing parenthesis"}
		}
		p.next()
		return expr, nil
	}

	return p.parsePredicate()
}

func (p *parser) parsePredicate() (Expr, error) {
	col, err := p.parseIdent("column name")
	if err != nil {
		return nil, err
	}

	switch {
	case p.atKeyword("IS"):
		p.next()
		negate := p.acceptKeyword("NOT")
		if err := p.expectKeyword("NULL"); err != nil {
			return nil, err
		}
		return &IsNullExpr{Column: col, Negate: negate}, nil

	case p.atKeyword("NOT"):
		p.next()
		fold := p.atKeyword("ILIKE")
		if !fold && !p.atKeyword("LIKE") {
			return nil, &ParseError{Msg: "expected LIKE after NOT"}
		}
		p.next()
		pattern, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		return &LikeExpr{Column: col, Pattern: pattern, FoldCase: fold, Negate: true}, nil

	case p.atKeyword("LIKE"), p.atKeyword("ILIKE"):
		fold := p.atKeyword("ILIKE")
		p.next()
		pattern, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		return &LikeExpr{Column: col, Pattern: pattern, FoldCase: fold}, nil

	case p.at(tokOp):
		op := p.next().text
		switch p.cur().kind {
		case tokNumber:
			return &Comparison{Column: col, Op: op, Value: p.next().num}, nil
		case tokString:
			return &Comparison{Column: col, Op: op, Value: p.next().text}, nil
		case tokQuotedIdent:
			// Tolerate double-quoted literals, a common model slip.
			return &Comparison{Column: col, Op: op, Value: p.next().text}, nil
		default:
			return nil, &ParseError{Msg: fmt.Sprintf("expected literal after %s", op)}
		}

	default:
		return nil, &ParseError{Msg: fmt.Sprintf("expected predicate near %q", p.cur().text)}
	}
}

func (p *parser) parseStringLiteral() (string, error) {
	switch p.cur().kind {
	case tokString, tokQuotedIdent:
		return p.next().text, nil
	default:
		return "", &ParseError{Msg: "expected string literal"}
	}
}
