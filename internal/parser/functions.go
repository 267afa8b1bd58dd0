package parser

import (
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/token"
)

func (p *Parser) parseGenericParams() []string {
	if !p.at(token.LT) {
		return nil
	}
	p.advance()
	var names []string
	for !p.at(token.GT) && !p.at(token.EOF) {
		names = append(names, p.expect(token.IDENT, "generic parameter list").Lexeme)
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.GT, "generic parameter list")
	return names
}

func (p *Parser) parseLifetimeParams() []string {
	var names []string
	for p.at(token.LIFETIME) {
		names = append(names, p.advance().Lexeme)
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	return names
}

func (p *Parser) parseParamList() []*ast.Param {
	p.expect(token.LPAREN, "parameter list")
	var params []*ast.Param
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		start := p.cur().Span
		mode := ast.Owned
		lifetime := ""
		switch p.cur().Type {
		case token.BORROW:
			mode = ast.Borrowed
			p.advance()
		case token.BORROW_MUT:
			mode = ast.BorrowedMut
			p.advance()
		}
		if mode != ast.Owned && p.at(token.LIFETIME) {
			lifetime = p.advance().Lexeme
		}
		variadic := false
		if p.at(token.DOT) && p.peek().Type == token.DOT {
			p.advance()
			p.advance()
			if p.at(token.DOT) {
				p.advance()
			}
			variadic = true
		}
		name := p.parseIdentifier()
		var typ ast.TypeExpr
		if p.at(token.COLON) {
			p.advance()
			typ = p.parseTypeExpr()
		}
		params = append(params, &ast.Param{
			Name: name, Type: typ, Mode: mode, Lifetime: lifetime, Variadic: variadic,
			Span: diag.Merge(start, name.Span),
		})
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RPAREN, "parameter list")
	return params
}

// parseFunctionDef parses `function name<T>('a)(params) -> RetType { body }`,
// and also anonymous lambdas of the same shape with Name left nil.
func (p *Parser) parseFunctionDef() ast.Node {
	start := p.advance().Span // 'function'
	var name *ast.Identifier
	if p.at(token.IDENT) {
		name = p.parseIdentifier()
	}
	typeParams := p.parseGenericParams()
	lifetimes := p.parseLifetimeParams()
	params := p.parseParamList()
	var ret ast.TypeExpr
	if p.at(token.ARROW) {
		p.advance()
		ret = p.parseTypeExpr()
	}
	var body *ast.Block
	if p.at(token.COLON) {
		body = p.parseExprAsBlockAfterColon()
	} else {
		body = p.parseBlock()
	}
	return &ast.FunctionDef{
		Name: name, TypeParams: typeParams, Lifetimes: lifetimes,
		Params: params, ReturnType: ret, Body: body,
		Span: diag.Merge(start, body.Span),
	}
}

func (p *Parser) parseRecordDef() ast.Stmt {
	start := p.advance().Span // 'record'
	name := p.parseIdentifier()
	typeParams := p.parseGenericParams()
	p.expect(token.LBRACE, "record definition")
	p.skipNewlines()
	var fields []*ast.FieldDef
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		fname := p.parseIdentifier()
		p.expect(token.COLON, "record field")
		ftype := p.parseTypeExpr()
		fields = append(fields, &ast.FieldDef{Name: fname, Type: ftype, Span: diag.Merge(fname.Span, ftype.GetSpan())})
		if p.at(token.COMMA) {
			p.advance()
		}
		p.skipNewlines()
	}
	end := p.expect(token.RBRACE, "record definition").Span
	return &ast.RecordDef{Name: name, TypeParams: typeParams, Fields: fields, Span: diag.Merge(start, end)}
}

func (p *Parser) parseVariantDef() ast.Stmt {
	start := p.advance().Span // 'variant'
	name := p.parseIdentifier()
	typeParams := p.parseGenericParams()
	p.expect(token.ASSIGN, "variant definition")
	var cases []*ast.VariantCase
	for {
		cname := p.parseIdentifier()
		var payloads []ast.TypeExpr
		if p.at(token.LPAREN) {
			p.advance()
			for !p.at(token.RPAREN) && !p.at(token.EOF) {
				payloads = append(payloads, p.parseTypeExpr())
				if p.at(token.COMMA) {
					p.advance()
				}
			}
			p.expect(token.RPAREN, "variant case payload")
		}
		cases = append(cases, &ast.VariantCase{Name: cname, Payloads: payloads, Span: cname.Span})
		if p.at(token.PIPE) {
			p.advance()
			continue
		}
		break
	}
	end := cases[len(cases)-1].Span
	return &ast.VariantDef{Name: name, TypeParams: typeParams, Cases: cases, Span: diag.Merge(start, end)}
}

func (p *Parser) parseInterfaceDef() ast.Stmt {
	start := p.advance().Span // 'interface'
	name := p.parseIdentifier()
	p.expect(token.LBRACE, "interface definition")
	p.skipNewlines()
	var methods []*ast.MethodSig
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		mname := p.parseIdentifier()
		params := p.parseParamList()
		var ret ast.TypeExpr
		if p.at(token.ARROW) {
			p.advance()
			ret = p.parseTypeExpr()
		}
		methods = append(methods, &ast.MethodSig{Name: mname, Params: params, ReturnType: ret, Span: mname.Span})
		p.skipNewlines()
	}
	end := p.expect(token.RBRACE, "interface definition").Span
	return &ast.InterfaceDef{Name: name, Methods: methods, Span: diag.Merge(start, end)}
}

func (p *Parser) parseInterfaceImpl() ast.Stmt {
	start := p.advance().Span // 'impl'
	iname := p.parseIdentifier()
	var typeArgs []ast.TypeExpr
	if p.at(token.LT) {
		p.advance()
		for !p.at(token.GT) && !p.at(token.EOF) {
			typeArgs = append(typeArgs, p.parseTypeExpr())
			if p.at(token.COMMA) {
				p.advance()
			}
		}
		p.expect(token.GT, "impl type arguments")
	}
	p.expect(token.FOR, "impl target type")
	target := p.parseTypeExpr()
	p.expect(token.LBRACE, "impl body")
	p.skipNewlines()
	var methods []*ast.MethodImpl
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		fn := p.parseFunctionDef().(*ast.FunctionDef)
		methods = append(methods, &ast.MethodImpl{Name: fn.Name, Fn: fn, Span: fn.Span})
		p.skipNewlines()
	}
	end := p.expect(token.RBRACE, "impl body").Span
	return &ast.InterfaceImpl{
		InterfaceName: iname, TypeArgs: typeArgs, Target: target, Methods: methods,
		Span: diag.Merge(start, end),
	}
}
