// Package render turns a diag.Diagnostic into the multi-line text a
// terminal or editor shows a user: the primary span quoted and
// underlined, labelled secondary spans, the tag, and a hint when one is
// available. It is a non-core utility — nothing in the compilation
// pipeline depends on it, and a host embedding veyl is free to render
// diagnostics its own way instead.
package render

import (
	"fmt"
	"strings"

	"github.com/veylang/veyl/internal/diag"
)

// Diagnostic renders d against src, the full text of the file it was
// raised against.
func Diagnostic(d diag.Diagnostic, filename, src string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", severityWord(d.Severity), d.Message)
	fmt.Fprintf(&b, "  --> %s:%d:%d\n", filename, d.Primary.Line, d.Primary.Column)
	writeSpan(&b, src, d.Primary, "")
	for _, l := range d.Labels {
		writeSpan(&b, src, l.Span, l.Message)
	}
	fmt.Fprintf(&b, "  = %s\n", d.Tag)
	if d.Hint != "" {
		fmt.Fprintf(&b, "  help: %s\n", d.Hint)
	}
	return b.String()
}

// Diagnostics renders a batch, one after another, separated by a blank line.
func Diagnostics(ds []diag.Diagnostic, filename, src string) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = Diagnostic(d, filename, src)
	}
	return strings.Join(parts, "\n")
}

func severityWord(s diag.Severity) string {
	switch s {
	case diag.Warning:
		return "warning"
	case diag.Note:
		return "note"
	default:
		return "error"
	}
}

// writeSpan quotes the source line the span starts on and underlines the
// span's extent on that line. label, when non-empty, is appended after
// the underline (used for secondary spans).
func writeSpan(b *strings.Builder, src string, span diag.Span, label string) {
	line := lineAt(src, span.Line)
	fmt.Fprintf(b, "%6d | %s\n", span.Line, line)

	width := span.EndByte - span.StartByte
	if width < 1 {
		width = 1
	}
	col := span.Column
	if col < 1 {
		col = 1
	}
	gutter := strings.Repeat(" ", col-1)
	underline := strings.Repeat("^", width)
	b.WriteString("       | ")
	b.WriteString(gutter)
	b.WriteString(underline)
	if label != "" {
		b.WriteByte(' ')
		b.WriteString(label)
	}
	b.WriteByte('\n')
}

// lineAt returns the 1-indexed line n of src, or "" if src has fewer lines.
func lineAt(src string, n int) string {
	if n < 1 {
		return ""
	}
	lines := strings.Split(src, "\n")
	if n-1 >= len(lines) {
		return ""
	}
	return lines[n-1]
}
