package parser

import (
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/token"
)

func (p *Parser) parseTypeExpr() ast.TypeExpr {
	switch p.cur().Type {
	case token.BORROW, token.BORROW_MUT:
		mutable := p.cur().Type == token.BORROW_MUT
		start := p.advance().Span
		lifetime := ""
		if p.at(token.LIFETIME) {
			lifetime = p.advance().Lexeme
		}
		referent := p.parseTypeExpr()
		return &ast.ReferenceType{Lifetime: lifetime, Mutable: mutable, Referent: referent, Span: diag.Merge(start, referent.GetSpan())}
	case token.LPAREN:
		start := p.advance().Span
		var params []ast.TypeExpr
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			params = append(params, p.parseTypeExpr())
			if p.at(token.COMMA) {
				p.advance()
			}
		}
		p.expect(token.RPAREN, "function type parameters")
		p.expect(token.ARROW, "function type")
		result := p.parseTypeExpr()
		return &ast.FunctionType{Params: params, Result: result, Span: diag.Merge(start, result.GetSpan())}
	default:
		name := p.expect(token.IDENT, "type")
		t := &ast.NamedType{Name: name.Lexeme, Span: name.Span}
		if p.at(token.LT) {
			p.advance()
			for !p.at(token.GT) && !p.at(token.EOF) {
				t.Args = append(t.Args, p.parseTypeExpr())
				if p.at(token.COMMA) {
					p.advance()
				}
			}
			end := p.expect(token.GT, "generic type arguments").Span
			t.Span = diag.Merge(t.Span, end)
		}
		return t
	}
}
