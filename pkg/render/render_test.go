package render_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/pkg/render"
)

func TestDiagnosticQuotesAndUnderlinesPrimarySpan(t *testing.T) {
	src := "let x = 1 + \n"
	d := diag.New(diag.ExpectedXGotY, diag.Span{StartByte: 12, EndByte: 13, Line: 1, Column: 13}, "expected expression, got newline").
		WithHint("add a right-hand operand")

	out := render.Diagnostic(d, "sample.veyl", src)

	assert.Contains(t, out, "error: expected expression, got newline")
	assert.Contains(t, out, "sample.veyl:1:13")
	assert.Contains(t, out, "let x = 1 +")
	assert.Contains(t, out, "EXPECTED-X-GOT-Y")
	assert.Contains(t, out, "help: add a right-hand operand")
}

func TestDiagnosticRendersLabelsAndSeverity(t *testing.T) {
	src := "record Point { x: Number }\n"
	d := diag.Diagnostic{
		Tag:      diag.DuplicateDefinition,
		Primary:  diag.Span{StartByte: 0, EndByte: 6, Line: 1, Column: 1},
		Message:  "Point already defined",
		Severity: diag.Warning,
	}.WithLabel(diag.Span{StartByte: 14, EndByte: 18, Line: 1, Column: 15}, "first defined here")

	out := render.Diagnostic(d, "sample.veyl", src)

	assert.Contains(t, out, "warning: Point already defined")
	assert.Contains(t, out, "first defined here")
}

func TestDiagnosticsJoinsMultipleEntries(t *testing.T) {
	src := "x\ny\n"
	ds := []diag.Diagnostic{
		diag.New(diag.Undefined, diag.Span{StartByte: 0, EndByte: 1, Line: 1, Column: 1}, "undefined name x"),
		diag.New(diag.Undefined, diag.Span{StartByte: 2, EndByte: 3, Line: 2, Column: 1}, "undefined name y"),
	}

	out := render.Diagnostics(ds, "sample.veyl", src)

	assert.Contains(t, out, "undefined name x")
	assert.Contains(t, out, "undefined name y")
}
