package rtl

import (
	"fmt"

	"github.com/pkg/errors"
)

// ParseError reports a syntactic problem in RTL source text.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("rtl: at offset %d: %s", e.Pos, e.Message)
}

// Parser builds an AST from a token stream using precedence climbing for
// expressions, grounded on the teacher's debugger ExprParser.
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a parser over the given RTL source text.
func NewParser(src string) *Parser {
	return &Parser{tokens: NewLexer(src).TokenizeAll()}
}

func (p *Parser) cur() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *Parser) expect(tt TokenType) (Token, error) {
	t := p.cur()
	if t.Type != tt {
		return t, &ParseError{Pos: t.Pos, Message: fmt.Sprintf("expected %s, found %s %q", tt, t.Type, t.Value)}
	}
	return p.advance(), nil
}

// ParseBlock parses a brace-free top-level statement sequence (the body of
// an instruction's `behavior { ... }` clause, with the outer braces already
// stripped by the DSL parser).
func (p *Parser) ParseBlock() (*Block, error) {
	b := &Block{}
	for p.cur().Type != TokEOF && p.cur().Type != TokRBrace {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, s)
	}
	return b, nil
}

func (p *Parser) parseBracedBlock() (*Block, error) {
	if _, err := p.expect(TokLBrace); err != nil {
		return nil, err
	}
	b, err := p.ParseBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return b, nil
}

func (p *Parser) parseStmt() (Stmt, error) {
	t := p.cur()
	switch {
	case t.Type == TokIdent && t.Value == "if":
		return p.parseIf()
	case t.Type == TokIdent && t.Value == "for":
		return p.parseFor()
	default:
		a, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokSemicolon); err != nil {
			return nil, err
		}
		return a, nil
	}
}

func (p *Parser) parseIf() (Stmt, error) {
	p.advance() // "if"
	if _, err := p.expect(TokLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	then, err := p.parseBracedBlock()
	if err != nil {
		return nil, err
	}
	stmt := If{Cond: cond, Then: then}
	if p.cur().Type == TokIdent && p.cur().Value == "else" {
		p.advance()
		els, err := p.parseBracedBlock()
		if err != nil {
			return nil, err
		}
		stmt.Else = els
	}
	return stmt, nil
}

func (p *Parser) parseFor() (Stmt, error) {
	p.advance() // "for"
	if _, err := p.expect(TokLParen); err != nil {
		return nil, err
	}
	var init *Assign
	if p.cur().Type != TokSemicolon {
		a, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		init = &a
	}
	if _, err := p.expect(TokSemicolon); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemicolon); err != nil {
		return nil, err
	}
	var step *Assign
	if p.cur().Type != TokRParen {
		a, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		step = &a
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	body, err := p.parseBracedBlock()
	if err != nil {
		return nil, err
	}
	return For{Init: init, Cond: cond, Step: step, Body: body}, nil
}

func (p *Parser) parseAssign() (Assign, error) {
	lv, err := p.parseExpr(0)
	if err != nil {
		return Assign{}, err
	}
	if _, err := p.expect(TokAssign); err != nil {
		return Assign{}, err
	}
	val, err := p.parseExpr(0)
	if err != nil {
		return Assign{}, err
	}
	if !isLValue(lv) {
		return Assign{}, &ParseError{Message: "left side of assignment is not an lvalue"}
	}
	return Assign{LValue: lv, Value: val}, nil
}

func isLValue(e Expr) bool {
	switch e.(type) {
	case Ident, Index, FieldAccess, LaneIndex:
		return true
	default:
		return false
	}
}

// precedence table, lowest to highest; ternary and bitfield bind outside it.
func binPrecedence(op string) int {
	switch op {
	case "|":
		return 1
	case "^":
		return 2
	case "&":
		return 3
	case "==", "!=", "<", ">", "<=", ">=":
		return 4
	case "<<", ">>":
		return 5
	case "+", "-":
		return 6
	case "*", "/", "%":
		return 7
	default:
		return -1
	}
}

func (p *Parser) parseExpr(minPrec int) (Expr, error) {
	left, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		if t.Type != TokOperator {
			break
		}
		prec := binPrecedence(t.Value)
		if prec < 0 || prec < minPrec {
			break
		}
		p.advance()
		right, err := p.parseExprAt(prec + 1)
		if err != nil {
			return nil, err
		}
		left = Binary{Op: t.Value, Left: left, Right: right}
	}
	return left, nil
}

// parseExprAt parses operands for the binary-operator loop without
// re-entering the ternary wrapper (ternary only applies at top level of a
// full expression, matching `c ? a : b` precedence below every operator).
func (p *Parser) parseExprAt(minPrec int) (Expr, error) {
	left, err := p.parseUnaryAndPostfix()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		if t.Type != TokOperator {
			break
		}
		prec := binPrecedence(t.Value)
		if prec < 0 || prec < minPrec {
			break
		}
		p.advance()
		right, err := p.parseExprAt(prec + 1)
		if err != nil {
			return nil, err
		}
		left = Binary{Op: t.Value, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseTernary() (Expr, error) {
	cond, err := p.parseExprAt(0)
	if err != nil {
		return nil, err
	}
	if p.cur().Type == TokQuestion {
		p.advance()
		then, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokColon); err != nil {
			return nil, err
		}
		els, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		return Ternary{Cond: cond, Then: then, Else: els}, nil
	}
	return cond, nil
}

func (p *Parser) parseUnaryAndPostfix() (Expr, error) {
	t := p.cur()
	if t.Type == TokOperator && (t.Value == "~" || t.Value == "-" || t.Value == "!") {
		p.advance()
		x, err := p.parseUnaryAndPostfix()
		if err != nil {
			return nil, err
		}
		return Unary{Op: t.Value, X: x}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Type {
		case TokDot:
			p.advance()
			name, err := p.expect(TokIdent)
			if err != nil {
				return nil, err
			}
			base = FieldAccess{Base: base, Field: name.Value}
		case TokLBracket:
			p.advance()
			first, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if p.cur().Type == TokColon {
				p.advance()
				second, err := p.parseExpr(0)
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(TokRBracket); err != nil {
					return nil, err
				}
				base = Bitfield{Base: base, MSB: first, LSB: second}
				continue
			}
			if _, err := p.expect(TokRBracket); err != nil {
				return nil, err
			}
			if p.cur().Type == TokLBracket {
				p.advance()
				lane, err := p.parseExpr(0)
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(TokRBracket); err != nil {
					return nil, err
				}
				ident, ok := base.(Ident)
				if !ok {
					return nil, &ParseError{Message: "lane index requires a vector register name"}
				}
				base = LaneIndex{Base: ident.Name, Elem: first, Lane: lane}
				continue
			}
			ident, ok := base.(Ident)
			if !ok {
				return nil, &ParseError{Message: "indexing requires a register file or MEM name"}
			}
			base = Index{Base: ident.Name, Index: first}
		default:
			return base, nil
		}
	}
}

func (p *Parser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch t.Type {
	case TokNumber:
		p.advance()
		v, err := parseLiteral(t.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "rtl: invalid numeric literal %q", t.Value)
		}
		return Number{Value: v}, nil
	case TokLParen:
		p.advance()
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return e, nil
	case TokIdent:
		p.advance()
		if p.cur().Type == TokLParen {
			p.advance()
			var args []Expr
			if p.cur().Type != TokRParen {
				for {
					a, err := p.parseExpr(0)
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if p.cur().Type == TokComma {
						p.advance()
						continue
					}
					break
				}
			}
			if _, err := p.expect(TokRParen); err != nil {
				return nil, err
			}
			return Call{Name: t.Value, Args: args}, nil
		}
		return Ident{Name: t.Value}, nil
	default:
		return nil, &ParseError{Pos: t.Pos, Message: fmt.Sprintf("unexpected token %s %q", t.Type, t.Value)}
	}
}

// ParseLiteral exposes integer-literal parsing (decimal/0x/0b) for callers
// outside the parser (e.g. the DSL front end's constant literals).
func ParseLiteral(s string) (uint64, error) { return parseLiteral(s) }
