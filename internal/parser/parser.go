// Package parser implements a recursive-descent, precedence-climbing
// parser producing internal/ast trees from an internal/lexer token stream.
package parser

import (
	"fmt"

	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/lexer"
	"github.com/veylang/veyl/internal/token"
)

// precedence levels, low to high.
const (
	_ int = iota
	precPipeline
	precOr
	precAnd
	precEquality
	precOrdering
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
)

var binaryPrec = map[token.Type]int{
	token.PIPE_GT:   precPipeline,
	token.PIPE_PIPE: precOr,
	token.AMP_AMP:   precAnd,
	token.EQ:        precEquality,
	token.NEQ:       precEquality,
	token.LT:        precOrdering,
	token.GT:        precOrdering,
	token.LE:        precOrdering,
	token.GE:        precOrdering,
	token.PLUS:      precAdditive,
	token.MINUS:     precAdditive,
	token.STAR:      precMultiplicative,
	token.SLASH:     precMultiplicative,
	token.PERCENT:   precMultiplicative,
}

// Parser consumes a token slice (the whole file is lexed eagerly; Veyl
// programs are small enough this never matters in practice).
type Parser struct {
	toks []token.Token
	pos  int

	Errors []diag.Diagnostic
}

// New lexes src completely and returns a Parser positioned at the first token.
func New(src string) *Parser {
	toks, lexErrs := lexer.Tokens(src)
	p := &Parser{toks: toks}
	p.Errors = append(p.Errors, lexErrs...)
	return p
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// skipNewlines consumes statement-separator newlines, which are
// insignificant between most grammar productions.
func (p *Parser) skipNewlines() {
	for p.cur().Type == token.NEWLINE || p.cur().Type == token.SEMI {
		p.advance()
	}
}

func (p *Parser) at(t token.Type) bool { return p.cur().Type == t }

func (p *Parser) expect(t token.Type, context string) token.Token {
	if p.cur().Type != t {
		p.errorf(diag.ExpectedXGotY, p.cur().Span,
			"expected %s in %s, got %q", tokenName(t), context, p.cur().Lexeme)
		return p.cur()
	}
	return p.advance()
}

func (p *Parser) errorf(tag diag.Tag, span diag.Span, format string, args ...any) {
	p.Errors = append(p.Errors, diag.New(tag, span, fmt.Sprintf(format, args...)))
}

// synchronize implements error recovery: consume tokens up to the next
// statement terminator or block end, so later diagnostics stay useful.
func (p *Parser) synchronize() {
	for !p.at(token.EOF) {
		if p.at(token.NEWLINE) || p.at(token.SEMI) {
			p.advance()
			return
		}
		if p.at(token.RBRACE) {
			return
		}
		p.advance()
	}
}

func tokenName(t token.Type) string {
	return fmt.Sprintf("token(%d)", t)
}

// ParseProgram parses an entire file into a *ast.Program.
func ParseProgram(src, filename string) (*ast.Program, []diag.Diagnostic) {
	p := New(src)
	prog := &ast.Program{File: filename}
	p.skipNewlines()

	if p.at(token.MODULE) {
		prog.Module = p.parseModuleHeader()
		p.skipNewlines()
	}

	for !p.at(token.EOF) {
		if p.at(token.IMPORT) {
			prog.Imports = append(prog.Imports, p.parseImport())
			p.skipNewlines()
			continue
		}
		break
	}

	for !p.at(token.EOF) {
		p.skipNewlines()
		if p.at(token.EOF) {
			break
		}
		stmt := p.parseStmt()
		if stmt != nil {
			prog.Stmts = append(prog.Stmts, stmt)
		}
		p.skipNewlines()
	}

	if len(p.toks) > 0 {
		prog.Span = diag.Merge(p.toks[0].Span, p.toks[len(p.toks)-1].Span)
	}
	return prog, p.Errors
}
