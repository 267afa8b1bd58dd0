// Package prettyprinter renders an *ast.Program back to source text. It
// exists for the round-trip property (spec.md §8): printing a parsed
// program and re-parsing it must yield an equivalent AST, modulo
// whitespace and comments (comments are not retained in the AST at all).
package prettyprinter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/veylang/veyl/internal/ast"
)

// Print renders prog as Veyl source text.
func Print(prog *ast.Program) string {
	var b strings.Builder
	if prog.Module != nil {
		b.WriteString("module ")
		b.WriteString(prog.Module.Name.Name)
		if len(prog.Module.Exports) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(prog.Module.Exports, ", "))
		}
		b.WriteString("\n\n")
	}
	for _, imp := range prog.Imports {
		printImport(&b, imp)
	}
	if len(prog.Imports) > 0 {
		b.WriteByte('\n')
	}
	for i, s := range prog.Stmts {
		if i > 0 {
			b.WriteByte('\n')
		}
		printStmt(&b, s, 0)
	}
	return b.String()
}

func printImport(b *strings.Builder, imp *ast.ImportDirective) {
	b.WriteString("import ")
	b.WriteString(strconv.Quote(imp.Path))
	if len(imp.Items) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(imp.Items, ", "))
	}
	if imp.Alias != "" {
		fmt.Fprintf(b, " -> %s", imp.Alias)
	}
	b.WriteByte('\n')
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("    ", depth))
}

func printStmt(b *strings.Builder, s ast.Stmt, depth int) {
	indent(b, depth)
	switch n := s.(type) {
	case *ast.Binding:
		if n.Mutable {
			b.WriteString("let-mut ")
		} else {
			b.WriteString("let ")
		}
		if n.Name != nil {
			b.WriteString(n.Name.Name)
		} else {
			printPattern(b, n.Pattern)
		}
		if n.TypeAnnotation != nil {
			b.WriteString(": ")
			b.WriteString(n.TypeAnnotation.String())
		}
		b.WriteString(" = ")
		printExpr(b, n.Value, depth)
	case *ast.Assignment:
		printExpr(b, n.Target, depth)
		b.WriteString(" := ")
		printExpr(b, n.Value, depth)
	case *ast.ExprStmt:
		printExpr(b, n.X, depth)
	case *ast.FunctionDef:
		printFunctionDef(b, n, depth)
	case *ast.RecordDef:
		printRecordDef(b, n)
	case *ast.VariantDef:
		printVariantDef(b, n)
	case *ast.InterfaceDef:
		printInterfaceDef(b, n)
	case *ast.InterfaceImpl:
		printInterfaceImpl(b, n, depth)
	case *ast.Break:
		b.WriteString("break")
	case *ast.Continue:
		b.WriteString("continue")
	default:
		if e, ok := s.(ast.Expr); ok {
			printExpr(b, e, depth)
			return
		}
		b.WriteString("<?>")
	}
}

func printFunctionDef(b *strings.Builder, f *ast.FunctionDef, depth int) {
	b.WriteString("function ")
	if f.Name != nil {
		b.WriteString(f.Name.Name)
	}
	if len(f.TypeParams) > 0 {
		fmt.Fprintf(b, "<%s>", strings.Join(f.TypeParams, ", "))
	}
	if len(f.Lifetimes) > 0 {
		b.WriteString(strings.Join(f.Lifetimes, ", "))
	}
	b.WriteByte('(')
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.Mode != ast.Owned {
			b.WriteString(p.Mode.String())
			b.WriteByte(' ')
			if p.Lifetime != "" {
				b.WriteString(p.Lifetime)
				b.WriteByte(' ')
			}
		}
		if p.Variadic {
			b.WriteString("...")
		}
		b.WriteString(p.Name.Name)
		if p.Type != nil {
			b.WriteString(": ")
			b.WriteString(p.Type.String())
		}
	}
	b.WriteByte(')')
	if f.ReturnType != nil {
		b.WriteString(" -> ")
		b.WriteString(f.ReturnType.String())
	}
	b.WriteString(" ")
	printBlock(b, f.Body, depth)
}

func printRecordDef(b *strings.Builder, r *ast.RecordDef) {
	b.WriteString("record ")
	b.WriteString(r.Name.Name)
	if len(r.TypeParams) > 0 {
		fmt.Fprintf(b, "<%s>", strings.Join(r.TypeParams, ", "))
	}
	b.WriteString(" { ")
	for i, f := range r.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s: %s", f.Name.Name, f.Type.String())
	}
	b.WriteString(" }")
}

// printVariantDef renders `variant Name<T> = Case1(T1, T2) | Case2 |
// Case3`. Unlike records and interfaces, variant cases are not
// brace-delimited: the grammar separates them with a leading `=` and
// pipes between cases.
func printVariantDef(b *strings.Builder, v *ast.VariantDef) {
	b.WriteString("variant ")
	b.WriteString(v.Name.Name)
	if len(v.TypeParams) > 0 {
		fmt.Fprintf(b, "<%s>", strings.Join(v.TypeParams, ", "))
	}
	b.WriteString(" = ")
	for i, c := range v.Cases {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(c.Name.Name)
		if len(c.Payloads) > 0 {
			parts := make([]string, len(c.Payloads))
			for j, p := range c.Payloads {
				parts[j] = p.String()
			}
			fmt.Fprintf(b, "(%s)", strings.Join(parts, ", "))
		}
	}
}

func printInterfaceDef(b *strings.Builder, i *ast.InterfaceDef) {
	fmt.Fprintf(b, "interface %s {\n", i.Name.Name)
	for _, m := range i.Methods {
		b.WriteString("    ")
		b.WriteString(m.Name.Name)
		b.WriteByte('(')
		first := true
		if m.Receiver != nil {
			b.WriteString(m.Receiver.Mode.String())
			b.WriteByte(' ')
			b.WriteString(m.Receiver.Name.Name)
			first = false
		}
		for _, p := range m.Params {
			if !first {
				b.WriteString(", ")
			}
			first = false
			b.WriteString(p.Name.Name)
			if p.Type != nil {
				b.WriteString(": ")
				b.WriteString(p.Type.String())
			}
		}
		b.WriteByte(')')
		if m.ReturnType != nil {
			fmt.Fprintf(b, " -> %s", m.ReturnType.String())
		}
		b.WriteByte('\n')
	}
	b.WriteString("}")
}

func printInterfaceImpl(b *strings.Builder, i *ast.InterfaceImpl, depth int) {
	fmt.Fprintf(b, "impl %s", i.InterfaceName.Name)
	if len(i.TypeArgs) > 0 {
		parts := make([]string, len(i.TypeArgs))
		for j, t := range i.TypeArgs {
			parts[j] = t.String()
		}
		fmt.Fprintf(b, "<%s>", strings.Join(parts, ", "))
	}
	fmt.Fprintf(b, " for %s {\n", i.Target.String())
	for _, m := range i.Methods {
		indent(b, depth+1)
		printFunctionDef(b, m.Fn, depth+1)
		b.WriteByte('\n')
	}
	indent(b, depth)
	b.WriteString("}")
}

func printBlock(b *strings.Builder, blk *ast.Block, depth int) {
	b.WriteString("{\n")
	for _, s := range blk.Stmts {
		printStmt(b, s, depth+1)
		b.WriteByte('\n')
	}
	indent(b, depth)
	b.WriteString("}")
}

func printPattern(b *strings.Builder, p ast.Pattern) {
	switch n := p.(type) {
	case *ast.WildcardPattern:
		b.WriteString("_")
	case *ast.BindingPattern:
		b.WriteString(n.Name.Name)
	case *ast.LiteralPattern:
		b.WriteString(n.Value.String())
	case *ast.VariantPattern:
		b.WriteString(n.CaseName.Name)
		if len(n.SubPats) > 0 {
			b.WriteByte('(')
			for i, sp := range n.SubPats {
				if i > 0 {
					b.WriteString(", ")
				}
				printPattern(b, sp)
			}
			b.WriteByte(')')
		}
	case *ast.RecordPattern:
		if n.TypeName != nil {
			b.WriteString(n.TypeName.Name)
		}
		b.WriteString(" { ")
		for i, f := range n.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s: ", f.Name.Name)
			printPattern(b, f.SubPat)
		}
		b.WriteString(" }")
	}
}

// printExprAsBlock renders a block the way `then`/`else`/loop bodies
// expect: an explicit brace block. parseExprAsBlock(AfterColon) also
// accepts a bare expression, but a brace block always reparses to the
// same Block node, so this is the only form the printer needs.
func printExprAsBlock(b *strings.Builder, blk *ast.Block, depth int) {
	printBlock(b, blk, depth)
}

func printExpr(b *strings.Builder, e ast.Expr, depth int) {
	switch n := e.(type) {
	case *ast.NumberLit:
		b.WriteString(strconv.FormatFloat(n.Value, 'g', -1, 64))
	case *ast.TextLit:
		b.WriteString(strconv.Quote(n.Value))
	case *ast.TruthLit:
		b.WriteString(strconv.FormatBool(n.Value))
	case *ast.NothingLit:
		b.WriteString("nothing")
	case *ast.Identifier:
		b.WriteString(n.Name)
	case *ast.QualifiedIdentifier:
		fmt.Fprintf(b, "%s.%s", n.Module.Name, n.Member.Name)
	case *ast.Block:
		printBlock(b, n, depth)
	case *ast.Conditional:
		b.WriteString("if ")
		printExpr(b, n.Cond, depth)
		b.WriteString(" then ")
		printExprAsBlock(b, n.Then, depth)
		switch elseNode := n.Else.(type) {
		case *ast.Block:
			b.WriteString(" else ")
			printExprAsBlock(b, elseNode, depth)
		case *ast.Conditional:
			b.WriteString(" else ")
			printExpr(b, elseNode, depth)
		}
	case *ast.BoundedLoop:
		fmt.Fprintf(b, "for %s in ", n.Var.Name)
		printExpr(b, n.Iterable, depth)
		b.WriteString(" ")
		printExprAsBlock(b, n.Body, depth)
	case *ast.UnboundedLoop:
		b.WriteString("while ")
		printExpr(b, n.Cond, depth)
		b.WriteString(" ")
		printExprAsBlock(b, n.Body, depth)
	case *ast.Break:
		b.WriteString("break")
	case *ast.Continue:
		b.WriteString("continue")
	case *ast.BinaryExpr:
		b.WriteByte('(')
		printExpr(b, n.Left, depth)
		fmt.Fprintf(b, " %s ", n.Op)
		printExpr(b, n.Right, depth)
		b.WriteByte(')')
	case *ast.UnaryExpr:
		b.WriteString(n.Op)
		if n.Op == "not" {
			b.WriteByte(' ')
		}
		printExpr(b, n.Value, depth)
	case *ast.PipelineExpr:
		printExpr(b, n.Left, depth)
		b.WriteString(" |> ")
		printExpr(b, n.Right, depth)
	case *ast.BorrowExpr:
		b.WriteString(n.Mode.String())
		b.WriteByte(' ')
		printExpr(b, n.Value, depth)
	case *ast.TryExpr:
		printExpr(b, n.Value, depth)
		b.WriteByte('?')
	case *ast.Call:
		if id, ok := n.Callee.(*ast.Identifier); ok && id.Name == "__list__" {
			b.WriteByte('[')
			for i, a := range n.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				printExpr(b, a, depth)
			}
			b.WriteByte(']')
			return
		}
		printExpr(b, n.Callee, depth)
		if len(n.TypeArgs) > 0 {
			parts := make([]string, len(n.TypeArgs))
			for i, t := range n.TypeArgs {
				parts[i] = t.String()
			}
			fmt.Fprintf(b, "<%s>", strings.Join(parts, ", "))
		}
		b.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			printExpr(b, a, depth)
		}
		b.WriteByte(')')
	case *ast.FunctionDef:
		printFunctionDef(b, n, depth)
	case *ast.RecordLiteral:
		fmt.Fprintf(b, "%s { ", n.TypeName.Name)
		for i, f := range n.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s: ", f.Name.Name)
			printExpr(b, f.Value, depth)
		}
		b.WriteString(" }")
	case *ast.VariantConstructorApp:
		b.WriteString(n.CaseName.Name)
		b.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			printExpr(b, a, depth)
		}
		b.WriteByte(')')
	case *ast.FieldAccess:
		printExpr(b, n.Receiver, depth)
		b.WriteByte('.')
		b.WriteString(n.Field.Name)
	case *ast.IndexAccess:
		printExpr(b, n.Receiver, depth)
		b.WriteByte('[')
		printExpr(b, n.Index, depth)
		b.WriteByte(']')
	case *ast.MatchExpr:
		// Match arms are semicolon-separated with no closing delimiter
		// (parseMatch stops at the first arm with no trailing `;`/`,`),
		// so the printed form must not add a separator after the last
		// arm or a newline inside the arm list.
		b.WriteString("match ")
		printExpr(b, n.Scrutinee, depth)
		b.WriteString(": ")
		for i, arm := range n.Arms {
			if i > 0 {
				b.WriteString("; ")
			}
			printPattern(b, arm.Pattern)
			b.WriteString(" => ")
			printExpr(b, arm.Body, depth)
		}
	case *ast.Assignment:
		printExpr(b, n.Target, depth)
		b.WriteString(" := ")
		printExpr(b, n.Value, depth)
	default:
		b.WriteString("<?>")
	}
}
