package backend

import (
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/evaluator"
	"github.com/veylang/veyl/internal/symbols"
)

// TreeWalk runs a program through the recursive-descent evaluator.
type TreeWalk struct{}

func NewTreeWalk() *TreeWalk { return &TreeWalk{} }

func (b *TreeWalk) Run(prog *ast.Program, registry *symbols.TypeRegistry, natives map[string]*evaluator.Native) (evaluator.Value, *evaluator.RuntimeError) {
	if natives == nil {
		natives = evaluator.DefaultNatives()
	}
	ev := evaluator.New(registry, natives)
	return ev.Eval(prog)
}

func (b *TreeWalk) Name() string { return "tree-walk" }
