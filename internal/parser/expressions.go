package parser

import (
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/token"
)

func (p *Parser) parseExpr() ast.Expr {
	return p.parseBinary(precPipeline)
}

func (p *Parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseUnary()
	for {
		opTok := p.cur()
		prec, ok := binaryPrec[opTok.Type]
		if !ok || prec < minPrec {
			return left
		}
		p.advance()
		right := p.parseBinary(prec + 1)
		span := diag.Merge(left.GetSpan(), right.GetSpan())
		if opTok.Type == token.PIPE_GT {
			left = &ast.PipelineExpr{Left: left, Right: right, Span: span}
		} else {
			left = &ast.BinaryExpr{Op: opTok.Lexeme, Left: left, Right: right, Span: span}
		}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.cur().Type {
	case token.BANG, token.MINUS, token.NOT:
		opTok := p.advance()
		val := p.parseUnary()
		return &ast.UnaryExpr{Op: opTok.Lexeme, Value: val, Span: diag.Merge(opTok.Span, val.GetSpan())}
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	for {
		switch p.cur().Type {
		case token.LPAREN:
			expr = p.finishCall(expr)
		case token.DOT:
			p.advance()
			field := p.parseIdentifier()
			expr = &ast.FieldAccess{Receiver: expr, Field: field, Span: diag.Merge(expr.GetSpan(), field.Span)}
		case token.LBRACKET:
			p.advance()
			idx := p.parseExpr()
			end := p.expect(token.RBRACKET, "index access").Span
			expr = &ast.IndexAccess{Receiver: expr, Index: idx, Span: diag.Merge(expr.GetSpan(), end)}
		case token.QUESTION:
			q := p.advance()
			expr = &ast.TryExpr{Value: expr, Span: diag.Merge(expr.GetSpan(), q.Span)}
		default:
			return expr
		}
	}
}

func (p *Parser) finishCall(callee ast.Expr) ast.Expr {
	p.advance() // (
	var args []ast.Expr
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		args = append(args, p.parseExpr())
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	end := p.expect(token.RPAREN, "call arguments").Span
	return &ast.Call{Callee: callee, Args: args, Span: diag.Merge(callee.GetSpan(), end)}
}

func (p *Parser) parsePrimary() ast.Expr {
	t := p.cur()
	switch t.Type {
	case token.NUMBER:
		p.advance()
		return &ast.NumberLit{Value: t.Literal.(float64), Span: t.Span}
	case token.TEXT:
		p.advance()
		return &ast.TextLit{Value: t.Literal.(string), Span: t.Span}
	case token.TRUE, token.FALSE:
		p.advance()
		return &ast.TruthLit{Value: t.Type == token.TRUE, Span: t.Span}
	case token.NOTHING:
		p.advance()
		return &ast.NothingLit{Span: t.Span}
	case token.LPAREN:
		p.advance()
		inner := p.parseExpr()
		p.expect(token.RPAREN, "parenthesized expression")
		return inner
	case token.LBRACKET:
		return p.parseListLiteral()
	case token.IF:
		return p.parseConditional()
	case token.FOR:
		return p.parseBoundedLoop()
	case token.WHILE:
		return p.parseUnboundedLoop()
	case token.MATCH:
		return p.parseMatch()
	case token.FUNCTION:
		return p.parseFunctionDef().(ast.Expr)
	case token.LBRACE:
		return p.parseBlock()
	case token.IDENT:
		return p.parseIdentOrCallLike()
	case token.BORROW, token.BORROW_MUT:
		mode := ast.Borrowed
		if t.Type == token.BORROW_MUT {
			mode = ast.BorrowedMut
		}
		start := p.advance().Span
		val := p.parseUnary()
		return &ast.BorrowExpr{Mode: mode, Value: val, Span: diag.Merge(start, val.GetSpan())}
	default:
		p.errorf(diag.ExpectedXGotY, t.Span, "expected expression, got %q", t.Lexeme)
		p.advance()
		return &ast.NothingLit{Span: t.Span}
	}
}

func (p *Parser) parseIdentOrCallLike() ast.Expr {
	first := p.parseIdentifier()

	if p.at(token.DOT) && p.peek().Type == token.IDENT {
		// Could be a qualified identifier (Module.member) when first looks
		// like a capitalized module alias; the parser returns first so that
		// parsePostfix builds a FieldAccess. No later pass turns it into a
		// QualifiedIdentifier.
		return first
	}

	if p.at(token.LBRACE) && looksLikeRecordLiteral(first.Name) {
		return p.parseRecordLiteralBody(first)
	}

	return first
}

// looksLikeRecordLiteral uses the language's naming convention (types are
// capitalized) to decide whether `Name {` opens a record literal rather
// than `Name` followed by an unrelated block. This mirrors how the lexer
// itself leans on surface conventions (keyword forms for comparisons)
// instead of deeper lookahead.
func looksLikeRecordLiteral(name string) bool {
	return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
}

func (p *Parser) parseRecordLiteralBody(typeName *ast.Identifier) ast.Expr {
	start := p.expect(token.LBRACE, "record literal").Span
	var fields []*ast.FieldInit
	p.skipNewlines()
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		name := p.parseIdentifier()
		p.expect(token.COLON, "record literal field")
		val := p.parseExpr()
		fields = append(fields, &ast.FieldInit{Name: name, Value: val})
		if p.at(token.COMMA) {
			p.advance()
			p.skipNewlines()
		}
	}
	end := p.expect(token.RBRACE, "record literal").Span
	return &ast.RecordLiteral{TypeName: typeName, Fields: fields, Span: diag.Merge(start, end)}
}

func (p *Parser) parseListLiteral() ast.Expr {
	start := p.advance().Span // [
	var elems []ast.Expr
	for !p.at(token.RBRACKET) && !p.at(token.EOF) {
		elems = append(elems, p.parseExpr())
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	end := p.expect(token.RBRACKET, "list literal").Span
	return &ast.Call{
		Callee: &ast.Identifier{Name: "__list__", Span: start},
		Args:   elems,
		Span:   diag.Merge(start, end),
	}
}

func (p *Parser) parseConditional() ast.Expr {
	start := p.advance().Span // if
	cond := p.parseExpr()
	p.expect(token.THEN, "if expression")
	thenBlk := p.parseExprAsBlock()
	c := &ast.Conditional{Cond: cond, Then: thenBlk}
	end := thenBlk.Span
	if p.at(token.ELSE) {
		p.advance()
		if p.at(token.IF) {
			c.Else = p.parseConditional()
		} else {
			c.Else = p.parseExprAsBlock()
		}
		end = c.Else.GetSpan()
	}
	c.Span = diag.Merge(start, end)
	return c
}

// parseExprAsBlock allows `then <expr>` / `else <expr>` without braces by
// wrapping a single expression as a one-statement block, while still
// accepting an explicit `{ ... }` block.
func (p *Parser) parseExprAsBlock() *ast.Block {
	if p.at(token.LBRACE) {
		return p.parseBlock()
	}
	e := p.parseExpr()
	return &ast.Block{Stmts: []ast.Stmt{&ast.ExprStmt{X: e, Span: e.GetSpan()}}, Span: e.GetSpan()}
}

func (p *Parser) parseBoundedLoop() ast.Expr {
	start := p.advance().Span // for
	v := p.parseIdentifier()
	p.expect(token.IN, "for loop")
	iterable := p.parseExpr()
	body := p.parseExprAsBlockAfterColon()
	return &ast.BoundedLoop{Var: v, Iterable: iterable, Body: body, Span: diag.Merge(start, body.Span)}
}

func (p *Parser) parseUnboundedLoop() ast.Expr {
	start := p.advance().Span // while
	cond := p.parseExpr()
	body := p.parseExprAsBlockAfterColon()
	return &ast.UnboundedLoop{Cond: cond, Body: body, Span: diag.Merge(start, body.Span)}
}

// parseExprAsBlockAfterColon supports both `while cond: stmt; stmt` (colon
// introduces an implicit block of semicolon/newline-separated statements)
// and an explicit `{ ... }` block.
func (p *Parser) parseExprAsBlockAfterColon() *ast.Block {
	if p.at(token.LBRACE) {
		return p.parseBlock()
	}
	start := p.expect(token.COLON, "loop body").Span
	var stmts []ast.Stmt
	for {
		stmt := p.parseStmt()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		if p.at(token.SEMI) {
			p.advance()
			continue
		}
		break
	}
	end := start
	if len(stmts) > 0 {
		end = stmts[len(stmts)-1].GetSpan()
	}
	return &ast.Block{Stmts: stmts, Span: diag.Merge(start, end)}
}

func (p *Parser) parseMatch() ast.Expr {
	start := p.advance().Span // match
	scrutinee := p.parseExpr()
	p.expect(token.COLON, "match expression")
	p.skipNewlines()
	m := &ast.MatchExpr{Scrutinee: scrutinee}
	for !p.at(token.EOF) {
		if p.at(token.RBRACE) || p.at(token.NEWLINE) && p.peek().Type != token.IDENT {
			break
		}
		pat := p.parsePattern()
		p.expect(token.FAT_ARROW, "match arm")
		body := p.parseExpr()
		m.Arms = append(m.Arms, &ast.MatchArm{Pattern: pat, Body: body, Span: diag.Merge(pat.GetSpan(), body.GetSpan())})
		if p.at(token.SEMI) {
			p.advance()
			continue
		}
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	end := start
	if len(m.Arms) > 0 {
		end = m.Arms[len(m.Arms)-1].Span
	}
	m.Span = diag.Merge(start, end)
	return m
}
