// Package backend lets a host pick between the tree-walking evaluator and
// the bytecode VM behind one interface, since both ultimately accept a
// checked program and a native-function table and produce the same
// evaluator.Value result type.
package backend

import (
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/evaluator"
	"github.com/veylang/veyl/internal/symbols"
)

// Backend executes a checked, already-monomorphized program.
type Backend interface {
	Run(prog *ast.Program, registry *symbols.TypeRegistry, natives map[string]*evaluator.Native) (evaluator.Value, *evaluator.RuntimeError)
	Name() string
}
