// Package lexer turns Veyl source text into a token stream.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/token"
	"golang.org/x/text/unicode/norm"
)

// Lexer scans a single source file into tokens on demand.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           rune
	line         int
	column       int

	Errors []diag.Diagnostic
}

// New constructs a Lexer over input.
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		l.column++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) span(startByte, startLine, startCol int) diag.Span {
	return diag.Span{StartByte: startByte, EndByte: l.position, Line: startLine, Column: startCol}
}

func (l *Lexer) skipWhitespaceExceptNewline() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// NextToken returns the next token in the stream, advancing position.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceExceptNewline()
	if l.ch == '#' {
		l.skipComment()
		l.skipWhitespaceExceptNewline()
	}

	startByte, startLine, startCol := l.position, l.line, l.column

	mk := func(t token.Type, lexeme string) token.Token {
		return token.Token{Type: t, Lexeme: lexeme, Literal: lexeme, Span: l.span(startByte, startLine, startCol)}
	}

	var tok token.Token
	switch l.ch {
	case 0:
		tok = mk(token.EOF, "")
	case '\n':
		tok = mk(token.NEWLINE, "\n")
	case '\'':
		return l.readLifetime(startByte, startLine, startCol)
	case '"':
		return l.readText(startByte, startLine, startCol)
	case '(':
		tok = mk(token.LPAREN, "(")
	case ')':
		tok = mk(token.RPAREN, ")")
	case '{':
		tok = mk(token.LBRACE, "{")
	case '}':
		tok = mk(token.RBRACE, "}")
	case '[':
		tok = mk(token.LBRACKET, "[")
	case ']':
		tok = mk(token.RBRACKET, "]")
	case ',':
		tok = mk(token.COMMA, ",")
	case '.':
		tok = mk(token.DOT, ".")
	case ':':
		if l.peekChar() == '=' {
			l.readChar()
			tok = mk(token.WALRUS, ":=")
		} else {
			tok = mk(token.COLON, ":")
		}
	case ';':
		tok = mk(token.SEMI, ";")
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = mk(token.PIPE_PIPE, "||")
		} else if l.peekChar() == '>' {
			l.readChar()
			tok = mk(token.PIPE_GT, "|>")
		} else {
			tok = mk(token.PIPE, "|")
		}
	case '?':
		tok = mk(token.QUESTION, "?")
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = mk(token.LE, "<=")
		} else if l.peekChar() == '-' {
			l.readChar()
			tok = mk(token.BACKARROW, "<-")
		} else {
			tok = mk(token.LT, "<")
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = mk(token.GE, ">=")
		} else {
			tok = mk(token.GT, ">")
		}
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = mk(token.EQ, "==")
		} else if l.peekChar() == '>' {
			l.readChar()
			tok = mk(token.FAT_ARROW, "=>")
		} else {
			tok = mk(token.ASSIGN, "=")
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = mk(token.NEQ, "!=")
		} else {
			tok = mk(token.BANG, "!")
		}
	case '+':
		tok = mk(token.PLUS, "+")
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			tok = mk(token.ARROW, "->")
		} else {
			tok = mk(token.MINUS, "-")
		}
	case '*':
		tok = mk(token.STAR, "*")
	case '/':
		tok = mk(token.SLASH, "/")
	case '%':
		tok = mk(token.PERCENT, "%")
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok = mk(token.AMP_AMP, "&&")
		} else {
			tok = l.illegal(startByte, startLine, startCol)
		}
	default:
		switch {
		case unicode.IsLetter(l.ch) || l.ch == '_':
			return l.readIdentifier(startByte, startLine, startCol)
		case unicode.IsDigit(l.ch):
			return l.readNumber(startByte, startLine, startCol)
		default:
			tok = l.illegal(startByte, startLine, startCol)
		}
	}
	l.readChar()
	return tok
}

func (l *Lexer) illegal(startByte, startLine, startCol int) token.Token {
	sp := l.span(startByte, startLine, startCol)
	l.Errors = append(l.Errors, diag.New(diag.UnexpectedCharacter, sp,
		fmt.Sprintf("unexpected character %q", l.ch)))
	return token.Token{Type: token.ILLEGAL, Lexeme: string(l.ch), Span: sp}
}

func (l *Lexer) readIdentifier(startByte, startLine, startCol int) token.Token {
	var b strings.Builder
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' {
		b.WriteRune(l.ch)
		l.readChar()
	}
	// Allow "let-mut"/"at-most"/"at-least"/"borrow-mut" style hyphenated
	// keywords: if the raw identifier is a keyword prefix followed by a
	// hyphen and another word, fold them into one lexeme.
	name := norm.NFC.String(b.String())
	for l.ch == '-' {
		switch name {
		case "let", "borrow", "at", "is":
			save := l.position
			l.readChar()
			if !(unicode.IsLetter(l.ch) || l.ch == '_') {
				l.position = save
				goto done
			}
			var suffix strings.Builder
			for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' {
				suffix.WriteRune(l.ch)
				l.readChar()
			}
			name = name + "-" + suffix.String()
		default:
			goto done
		}
	}
done:
	sp := l.span(startByte, startLine, startCol)
	return token.Token{Type: token.LookupIdent(name), Lexeme: name, Literal: name, Span: sp}
}

func (l *Lexer) readNumber(startByte, startLine, startCol int) token.Token {
	var b strings.Builder
	for unicode.IsDigit(l.ch) {
		b.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch == '.' && unicode.IsDigit(l.peekChar()) {
		b.WriteRune(l.ch)
		l.readChar()
		for unicode.IsDigit(l.ch) {
			b.WriteRune(l.ch)
			l.readChar()
		}
	}
	lexeme := b.String()
	sp := l.span(startByte, startLine, startCol)
	val, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		l.Errors = append(l.Errors, diag.New(diag.UnexpectedCharacter, sp, "invalid numeric literal "+lexeme))
	}
	return token.Token{Type: token.NUMBER, Lexeme: lexeme, Literal: val, Span: sp}
}

func (l *Lexer) readLifetime(startByte, startLine, startCol int) token.Token {
	l.readChar() // consume leading '
	var b strings.Builder
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' {
		b.WriteRune(l.ch)
		l.readChar()
	}
	sp := l.span(startByte, startLine, startCol)
	return token.Token{Type: token.LIFETIME, Lexeme: b.String(), Literal: b.String(), Span: sp}
}

func (l *Lexer) readText(startByte, startLine, startCol int) token.Token {
	l.readChar() // consume opening quote
	var b strings.Builder
	terminated := false
	for {
		if l.ch == 0 {
			break
		}
		if l.ch == '"' {
			terminated = true
			l.readChar()
			break
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case 0:
				// unterminated, fallthrough below
			default:
				sp := l.span(l.position, l.line, l.column)
				l.Errors = append(l.Errors, diag.New(diag.InvalidEscape, sp,
					fmt.Sprintf("invalid escape sequence \\%c", l.ch)))
				b.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		b.WriteRune(l.ch)
		l.readChar()
	}
	sp := l.span(startByte, startLine, startCol)
	if !terminated {
		l.Errors = append(l.Errors, diag.New(diag.UnterminatedText, sp, "unterminated text literal"))
	}
	content := norm.NFC.String(b.String())
	return token.Token{Type: token.TEXT, Lexeme: content, Literal: content, Span: sp}
}

// Tokens lexes the entire input and returns the token slice (always
// terminated by an EOF token), plus any lexical diagnostics.
func Tokens(input string) ([]token.Token, []diag.Diagnostic) {
	l := New(input)
	var toks []token.Token
	for {
		t := l.NextToken()
		toks = append(toks, t)
		if t.Type == token.EOF {
			break
		}
	}
	return toks, l.Errors
}
