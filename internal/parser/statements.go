package parser

import (
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/token"
)

func (p *Parser) parseModuleHeader() *ast.ModuleDef {
	start := p.cur().Span
	p.advance() // 'module'
	name := p.parseIdentifier()
	m := &ast.ModuleDef{Name: name}
	if p.at(token.LPAREN) {
		p.advance()
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			m.Exports = append(m.Exports, p.expect(token.IDENT, "export list").Lexeme)
			if p.at(token.COMMA) {
				p.advance()
			}
		}
		p.expect(token.RPAREN, "export list")
	}
	m.Span = diag.Merge(start, p.cur().Span)
	return m
}

func (p *Parser) parseImport() *ast.ImportDirective {
	start := p.cur().Span
	p.advance() // 'import'
	pathTok := p.expect(token.TEXT, "import")
	imp := &ast.ImportDirective{Path: pathTok.Lexeme}
	if p.at(token.LPAREN) {
		p.advance()
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			imp.Items = append(imp.Items, p.expect(token.IDENT, "import item list").Lexeme)
			if p.at(token.COMMA) {
				p.advance()
			}
		}
		p.expect(token.RPAREN, "import item list")
	}
	if p.at(token.ARROW) {
		p.advance()
		imp.Alias = p.expect(token.IDENT, "import alias").Lexeme
	}
	imp.Span = diag.Merge(start, p.cur().Span)
	return imp
}

// parseStmt parses one top-level-or-block statement, with parser-error
// recovery to the next statement boundary.
func (p *Parser) parseStmt() ast.Stmt {
	startErrs := len(p.Errors)
	stmt := p.parseStmtInner()
	if len(p.Errors) > startErrs {
		p.synchronize()
	}
	return stmt
}

func (p *Parser) parseStmtInner() ast.Stmt {
	switch p.cur().Type {
	case token.LET, token.LET_MUT:
		return p.parseBinding()
	case token.FUNCTION:
		return p.parseFunctionDef()
	case token.RECORD:
		return p.parseRecordDef()
	case token.VARIANT:
		return p.parseVariantDef()
	case token.INTERFACE:
		return p.parseInterfaceDef()
	case token.IMPL:
		return p.parseInterfaceImpl()
	case token.BREAK:
		sp := p.advance().Span
		return &ast.Break{Span: sp}
	case token.CONTINUE:
		sp := p.advance().Span
		return &ast.Continue{Span: sp}
	default:
		expr := p.parseExpr()
		if p.at(token.WALRUS) {
			p.advance()
			value := p.parseExpr()
			return &ast.Assignment{Target: expr, Value: value, Span: diag.Merge(expr.GetSpan(), value.GetSpan())}
		}
		return &ast.ExprStmt{X: expr, Span: expr.GetSpan()}
	}
}

func (p *Parser) parseBinding() ast.Stmt {
	start := p.cur().Span
	mutable := p.cur().Type == token.LET_MUT
	p.advance()
	name := p.parseIdentifier()
	b := &ast.Binding{Name: name, Mutable: mutable}
	if p.at(token.COLON) {
		p.advance()
		b.TypeAnnotation = p.parseTypeExpr()
	}
	p.expect(token.ASSIGN, "let binding")
	b.Value = p.parseExpr()
	b.Span = diag.Merge(start, b.Value.GetSpan())
	return b
}

func (p *Parser) parseBlock() *ast.Block {
	start := p.expect(token.LBRACE, "block").Span
	blk := &ast.Block{}
	p.skipNewlines()
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		stmt := p.parseStmt()
		if stmt != nil {
			blk.Stmts = append(blk.Stmts, stmt)
		}
		p.skipNewlines()
	}
	end := p.cur().Span
	if p.at(token.RBRACE) {
		end = p.advance().Span
	} else {
		p.errorf(diag.MissingBlockEnd, p.cur().Span, "missing closing brace for block")
	}
	blk.Span = diag.Merge(start, end)
	return blk
}

func (p *Parser) parseIdentifier() *ast.Identifier {
	t := p.expect(token.IDENT, "identifier")
	return &ast.Identifier{Name: t.Lexeme, Span: t.Span}
}
