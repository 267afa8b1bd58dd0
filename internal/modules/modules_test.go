package modules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/modules"
	"github.com/veylang/veyl/internal/parser"
)

// memSource is a fixed in-memory module tree keyed by canonical path, the
// minimal implementation of modules.Source a test needs.
type memSource map[string]string

func (m memSource) Read(canonicalPath string) (string, bool) {
	text, ok := m[canonicalPath]
	return text, ok
}

func parse(file, text string) (*ast.Program, []diag.Diagnostic) {
	return parser.ParseProgram(text, file)
}

func TestLoadRejectsImportCycle(t *testing.T) {
	src := memSource{
		"/a": `module A (x)
import "./b" (y)

let x = 1
`,
		"/b": `module B (y)
import "./a" (x)

let y = 2
`,
	}

	r := modules.NewResolver(src, parse, "")
	_, errs := r.Load("a")

	var cycle *diag.Diagnostic
	for i := range errs {
		if errs[i].Tag == diag.CircularDependency {
			cycle = &errs[i]
		}
	}
	if assert.NotNil(t, cycle, "expected a CIRCULAR-DEPENDENCY diagnostic, got %+v", errs) {
		assert.Contains(t, cycle.Message, "/a")
		assert.Contains(t, cycle.Message, "/b")
	}
}

func TestLoadAcceptsAcyclicImport(t *testing.T) {
	src := memSource{
		"/a": `module A (x)
import "./b" (y)

let x = 1
`,
		"/b": `module B (y)

let y = 2
`,
	}

	r := modules.NewResolver(src, parse, "")
	resolved, errs := r.Load("a")

	assert.Empty(t, errs)
	assert.Contains(t, resolved.Order, "/a")
	assert.Contains(t, resolved.Order, "/b")
	assert.True(t, resolved.Exports["/b"]["y"])
}
