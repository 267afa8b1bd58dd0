package backend

import (
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/evaluator"
	"github.com/veylang/veyl/internal/symbols"
	"github.com/veylang/veyl/internal/vm"
)

// VMBackend compiles a program to bytecode and runs it on the register VM.
// The caller is expected to have already run internal/mono over prog,
// since the VM (unlike the evaluator) has no runtime type-argument
// erasure to fall back on.
type VMBackend struct {
	CompileErrors []diag.Diagnostic
}

func NewVM() *VMBackend { return &VMBackend{} }

func (b *VMBackend) Run(prog *ast.Program, registry *symbols.TypeRegistry, natives map[string]*evaluator.Native) (evaluator.Value, *evaluator.RuntimeError) {
	chunk, errs := vm.Compile(prog, registry)
	b.CompileErrors = errs
	if len(errs) > 0 {
		return nil, &evaluator.RuntimeError{Tag: errs[0].Tag, Span: errs[0].Primary, Message: errs[0].Message}
	}
	if natives == nil {
		natives = evaluator.DefaultNatives()
	}
	machine := vm.New(chunk, natives)
	return machine.Run()
}

func (b *VMBackend) Name() string { return "vm" }
