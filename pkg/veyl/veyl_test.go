package veyl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veylang/veyl/internal/evaluator"
	"github.com/veylang/veyl/pkg/veyl"
)

// run parses, checks, and tree-walks src, failing the test on any static
// or runtime error so individual scenario tests stay focused on the
// expected value.
func run(t *testing.T, src string) evaluator.Value {
	t.Helper()
	prog, errs := veyl.Parse(src, "scenario.veyl")
	require.Empty(t, errs)

	checked, errs := veyl.Check(prog)
	require.Empty(t, errs)

	val, rerr := veyl.Evaluate(checked, nil)
	require.Nil(t, rerr)
	return val
}

func TestFactorialViaRecursion(t *testing.T) {
	val := run(t, `
function factorial(n) {
    if n <= 1 then { 1 } else { n * factorial(n - 1) }
}
factorial(5)
`)
	assert.Equal(t, "120", val.Inspect())
}

func TestWhileLoopFibonacci(t *testing.T) {
	val := run(t, `
function fib(n) {
    let-mut a = 0
    let-mut b = 1
    let-mut i = 0
    while i < n {
        let t = a + b
        a := b
        b := t
        i := i + 1
    }
    a
}
fib(10)
`)
	assert.Equal(t, "55", val.Inspect())
}

func TestPatternMatchOnVariant(t *testing.T) {
	val := run(t, `
function safe_div(a, b) {
    if b == 0 then { Mishap("divide by zero") } else { Triumph(a / b) }
}
match safe_div(10, 2): Triumph(v) => v; Mishap(_) => 0
`)
	assert.Equal(t, "5", val.Inspect())
}

func TestTryPropagationFailure(t *testing.T) {
	prog, errs := veyl.Parse(`
function read_then_parse(p) {
    let s = read_file(p)?
    let n = parse_number(s)?
    Triumph(n)
}
read_then_parse("x")
`, "scenario.veyl")
	require.Empty(t, errs)

	checked, errs := veyl.Check(prog)
	require.Empty(t, errs)

	natives := evaluator.DefaultNatives()
	natives["read_file"] = &evaluator.Native{Name: "read_file", Fn: func(args []evaluator.Value) (evaluator.Value, *evaluator.RuntimeError) {
		return evaluator.Variant{Owner: "Outcome", CaseName: "Mishap", Payload: []evaluator.Value{evaluator.Text("not found")}}, nil
	}}

	val, rerr := veyl.Evaluate(checked, natives)
	require.Nil(t, rerr)
	assert.Equal(t, "Mishap(not found)", val.Inspect())
}

func TestTryPropagationSuccess(t *testing.T) {
	prog, errs := veyl.Parse(`
function read_then_parse(p) {
    let s = read_file(p)?
    let n = parse_number(s)?
    Triumph(n)
}
read_then_parse("x")
`, "scenario.veyl")
	require.Empty(t, errs)

	checked, errs := veyl.Check(prog)
	require.Empty(t, errs)

	natives := evaluator.DefaultNatives()
	natives["read_file"] = &evaluator.Native{Name: "read_file", Fn: func(args []evaluator.Value) (evaluator.Value, *evaluator.RuntimeError) {
		return evaluator.Variant{Owner: "Outcome", CaseName: "Triumph", Payload: []evaluator.Value{evaluator.Text("7")}}, nil
	}}

	val, rerr := veyl.Evaluate(checked, natives)
	require.Nil(t, rerr)
	assert.Equal(t, "Triumph(7)", val.Inspect())
}

func TestBorrowCheckRejectsUseAfterMove(t *testing.T) {
	prog, errs := veyl.Parse(`
let data = [1, 2, 3]
let moved = data
length(data)
`, "scenario.veyl")
	require.Empty(t, errs)

	_, checkErrs := veyl.Check(prog)
	require.NotEmpty(t, checkErrs)

	var found bool
	for _, e := range checkErrs {
		if e.Tag == "USE-AFTER-MOVE" {
			found = true
		}
	}
	assert.True(t, found, "expected a USE-AFTER-MOVE diagnostic, got %+v", checkErrs)
}

func TestBorrowCheckAcceptsSharedBorrowThenRead(t *testing.T) {
	prog, errs := veyl.Parse(`
let data = [1, 2, 3]
function peek(borrow xs) {
    0
}
peek(borrow data)
length(data)
`, "scenario.veyl")
	require.Empty(t, errs)

	_, checkErrs := veyl.Check(prog)
	assert.Empty(t, checkErrs)
}

func TestExhaustivenessFailureListsMissingCase(t *testing.T) {
	prog, errs := veyl.Parse(`
variant Color = Red | Green | Blue
function name(c) {
    match c: Red => "r"; Green => "g"
}
`, "scenario.veyl")
	require.Empty(t, errs)

	_, checkErrs := veyl.Check(prog)
	require.NotEmpty(t, checkErrs)

	var found bool
	for _, e := range checkErrs {
		if e.Tag == "INCOMPLETE-MATCH" {
			found = true
			assert.Contains(t, e.Message, "Blue")
		}
	}
	assert.True(t, found, "expected an INCOMPLETE-MATCH diagnostic, got %+v", checkErrs)
}

func TestMonomorphizationCount(t *testing.T) {
	prog, errs := veyl.Parse(`
function id<T>(x) {
    x
}
id(1)
id("a")
id(2)
`, "scenario.veyl")
	require.Empty(t, errs)

	checked, checkErrs := veyl.Check(prog)
	require.Empty(t, checkErrs)

	mono := veyl.Monomorphize(checked)
	assert.Len(t, mono.Monomorphized.Specialized, 2)
}

func TestInterpreterVMParityOnCollatz(t *testing.T) {
	src := `
function collatzSteps(n) {
    let-mut steps = 0
    let-mut x = n
    while x != 1 {
        if x % 2 == 0 then {
            x := x / 2
        } else {
            x := 3 * x + 1
        }
        steps := steps + 1
    }
    steps
}
collatzSteps(27)
`
	prog, errs := veyl.Parse(src, "scenario.veyl")
	require.Empty(t, errs)

	checked, checkErrs := veyl.Check(prog)
	require.Empty(t, checkErrs)

	treeVal, rerr := veyl.Evaluate(checked, nil)
	require.Nil(t, rerr)
	assert.Equal(t, "111", treeVal.Inspect())

	chunk, compileErrs := veyl.Compile(checked)
	require.Empty(t, compileErrs)

	vmVal, vmErr := veyl.Run(chunk, nil)
	require.Nil(t, vmErr)
	assert.Equal(t, treeVal.Inspect(), vmVal.Inspect())
}
