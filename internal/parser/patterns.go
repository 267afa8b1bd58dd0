package parser

import (
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/token"
)

func (p *Parser) parsePattern() ast.Pattern {
	t := p.cur()
	switch t.Type {
	case token.IDENT:
		if t.Lexeme == "_" {
			p.advance()
			return &ast.WildcardPattern{Span: t.Span}
		}
		name := p.parseIdentifier()
		if p.at(token.LPAREN) {
			p.advance()
			var subs []ast.Pattern
			for !p.at(token.RPAREN) && !p.at(token.EOF) {
				subs = append(subs, p.parsePattern())
				if p.at(token.COMMA) {
					p.advance()
				}
			}
			end := p.expect(token.RPAREN, "variant pattern").Span
			return &ast.VariantPattern{CaseName: name, SubPats: subs, Span: diag.Merge(name.Span, end)}
		}
		if p.at(token.LBRACE) {
			return p.parseRecordPattern(name)
		}
		// Lowercase bare identifier binds; capitalized bare identifier is a
		// nullary variant case (by the same capitalization convention the
		// parser uses for record literals).
		if looksLikeRecordLiteral(name.Name) {
			return &ast.VariantPattern{CaseName: name, Span: name.Span}
		}
		return &ast.BindingPattern{Name: name, Span: name.Span}
	case token.NUMBER:
		p.advance()
		return &ast.LiteralPattern{Value: &ast.NumberLit{Value: t.Literal.(float64), Span: t.Span}, Span: t.Span}
	case token.TEXT:
		p.advance()
		return &ast.LiteralPattern{Value: &ast.TextLit{Value: t.Literal.(string), Span: t.Span}, Span: t.Span}
	case token.TRUE, token.FALSE:
		p.advance()
		return &ast.LiteralPattern{Value: &ast.TruthLit{Value: t.Type == token.TRUE, Span: t.Span}, Span: t.Span}
	default:
		p.errorf(diag.ExpectedXGotY, t.Span, "expected pattern, got %q", t.Lexeme)
		p.advance()
		return &ast.WildcardPattern{Span: t.Span}
	}
}

func (p *Parser) parseRecordPattern(typeName *ast.Identifier) ast.Pattern {
	start := p.expect(token.LBRACE, "record pattern").Span
	var fields []*ast.RecordFieldPattern
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		fname := p.parseIdentifier()
		p.expect(token.COLON, "record pattern field")
		sub := p.parsePattern()
		fields = append(fields, &ast.RecordFieldPattern{Name: fname, SubPat: sub})
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	end := p.expect(token.RBRACE, "record pattern").Span
	return &ast.RecordPattern{TypeName: typeName, Fields: fields, Span: diag.Merge(start, end)}
}
