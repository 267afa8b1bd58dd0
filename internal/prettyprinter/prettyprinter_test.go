package prettyprinter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veylang/veyl/internal/parser"
	"github.com/veylang/veyl/internal/prettyprinter"
)

// roundTrip parses src, prints the result, reparses the printed text, and
// prints that second AST too. The two printed forms must agree: that is
// the round-trip property spec.md §8 asks for (equivalent modulo
// whitespace and comments), expressed as a fixed point of print-then-parse.
func roundTrip(t *testing.T, src string) string {
	t.Helper()
	prog, errs := parser.ParseProgram(src, "roundtrip.veyl")
	require.Empty(t, errs, "source failed to parse: %s", src)

	printed := prettyprinter.Print(prog)

	reparsed, errs2 := parser.ParseProgram(printed, "roundtrip.veyl")
	require.Empty(t, errs2, "printed source failed to reparse:\n%s", printed)

	printedAgain := prettyprinter.Print(reparsed)
	assert.Equal(t, printed, printedAgain, "printing is not a fixed point for:\n%s", src)
	return printed
}

func TestRoundTripLetMut(t *testing.T) {
	printed := roundTrip(t, `let-mut total = 0`)
	assert.Contains(t, printed, "let-mut total = 0")
}

func TestRoundTripLetImmutable(t *testing.T) {
	printed := roundTrip(t, `let total = 0`)
	assert.Contains(t, printed, "let total = 0")
	assert.NotContains(t, printed, "let-mut")
}

func TestRoundTripConditional(t *testing.T) {
	printed := roundTrip(t, `function classify(n) { if n <= 0 then { 0 } else { 1 } }`)
	assert.Contains(t, printed, " then ")
}

func TestRoundTripWhileLoop(t *testing.T) {
	roundTrip(t, `
function fib(n) {
    let-mut a = 0
    let-mut b = 1
    while n > 0 {
        let-mut tmp = a
        a := b
        b := tmp + b
        n := n - 1
    }
    a
}
`)
}

func TestRoundTripForLoop(t *testing.T) {
	roundTrip(t, `
function total(xs) {
    let-mut sum = 0
    for x in xs {
        sum := sum + x
        continue
    }
    sum
}
`)
}

func TestRoundTripListLiteral(t *testing.T) {
	printed := roundTrip(t, `let xs = [1, 2, 3]`)
	assert.Contains(t, printed, "[1, 2, 3]")
	assert.NotContains(t, printed, "__list__")
}

func TestRoundTripRecordAndVariant(t *testing.T) {
	roundTrip(t, `
record Point { x: Number, y: Number }
variant Shape = Circle(Number) | Square(Number) | Empty

function area(s) {
    match s: Circle(r) => r; Square(side) => side; Empty => 0
}
`)
}

func TestRoundTripRecordLiteralAndMatch(t *testing.T) {
	printed := roundTrip(t, `
record Point { x: Number, y: Number }

function originDistance(p) {
    match p: Point { x: zero, y: zero } => 0; _ => 1
}

let p = Point { x: 0, y: 0 }
`)
	assert.Contains(t, printed, "Point { x: 0, y: 0 }")
}

func TestRoundTripFunctionWithBorrowParam(t *testing.T) {
	roundTrip(t, `function describe(borrow v) { v }`)
	roundTrip(t, `function mutate(borrow-mut v) { v }`)
}

func TestRoundTripModuleHeaderAndImport(t *testing.T) {
	printed := roundTrip(t, `module geometry (area, perimeter)
import "shapes" (Circle, Square) -> shapes

function area() { 0 }
`)
	assert.Contains(t, printed, "module geometry (area, perimeter)")
	assert.Contains(t, printed, `import "shapes" (Circle, Square) -> shapes`)
}

func TestRoundTripInterfaceAndImpl(t *testing.T) {
	roundTrip(t, `
interface Describable {
    describe(self) -> Text
}

record Box { width: Number }

impl Describable for Box {
    function describe(self) { "a box" }
}
`)
}

func TestRoundTripTryAndPipeline(t *testing.T) {
	roundTrip(t, `
function run(x) {
    let y = x |> double
    y?
}
`)
}
