// Package modules implements the module resolver, spec.md §4.8: canonical
// path resolution, cycle detection, export/import validation, and a final
// topological flattening so every downstream pass sees one program with
// fully-qualified names.
package modules

import (
	"fmt"
	"path"
	"strings"

	"golang.org/x/exp/slices"
	"golang.org/x/mod/module"
	"golang.org/x/sync/singleflight"

	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
)

// Source loads the raw text of a module at canonicalPath, trying the
// caller's own filesystem/VFS convention. The resolver is storage-agnostic:
// it only needs bytes in, an AST out.
type Source interface {
	Read(canonicalPath string) (text string, ok bool)
}

// Parser produces an AST from one file's text. internal/parser.ParseProgram
// satisfies this once its two arguments are swapped.
type Parser func(file, text string) (*ast.Program, []diag.Diagnostic)

type loadState int

const (
	notLoaded loadState = iota
	pending
	loaded
)

type entry struct {
	state   loadState
	prog    *ast.Program
	path    string
	imports []string // canonical paths this module depends on, in import order
}

// Resolver walks the import graph starting from an entry file.
type Resolver struct {
	src    Source
	parse  Parser
	stdlib string // canonical prefix searched when a relative lookup misses

	entries map[string]*entry
	order   []string // canonical paths in discovery order, for cycle reporting
	group   singleflight.Group

	errors []diag.Diagnostic
}

// NewResolver creates a Resolver that reads module text through src and
// parses it with parse. stdlibRoot is the canonical path prefix searched
// when an import doesn't resolve relative to its importer.
func NewResolver(src Source, parse Parser, stdlibRoot string) *Resolver {
	return &Resolver{
		src:     src,
		parse:   parse,
		stdlib:  stdlibRoot,
		entries: map[string]*entry{},
	}
}

// Resolved is the flattened output of a successful Load: every module's
// program in dependency (topological) order, plus the accumulated export
// tables needed to validate `Module.member` accesses downstream.
type Resolved struct {
	Order    []string // canonical paths, dependency-first
	Programs map[string]*ast.Program
	Exports  map[string]map[string]bool // canonical path -> exported name set
}

// Load parses entryPath and every module it transitively imports,
// validates exports/collisions, and returns the flattened result.
func (r *Resolver) Load(entryPath string) (*Resolved, []diag.Diagnostic) {
	canon, err := r.canonicalize(entryPath, "")
	if err != nil {
		r.errorf(diag.ModuleNotFound, diag.Span{}, "%s", err.Error())
		return nil, r.errors
	}
	r.load(canon, nil)

	resolved := &Resolved{
		Programs: map[string]*ast.Program{},
		Exports:  map[string]map[string]bool{},
	}
	for _, p := range r.order {
		e := r.entries[p]
		if e == nil || e.prog == nil {
			continue
		}
		resolved.Programs[p] = e.prog
		resolved.Exports[p] = exportSet(e.prog)
	}
	resolved.Order = topoSort(r.order, r.entries)
	r.validateImports(resolved)
	return resolved, r.errors
}

func (r *Resolver) errorf(tag diag.Tag, span diag.Span, format string, args ...any) {
	r.errors = append(r.errors, diag.New(tag, span, fmt.Sprintf(format, args...)))
}

// canonicalize resolves an import path relative to importerPath first,
// falling back to the standard-library root, then validates it with
// golang.org/x/mod/module's file-path element rules so a crafted path segment
// (".." traversal, an empty element) can never become a registry key.
func (r *Resolver) canonicalize(importPath, importerPath string) (string, error) {
	var candidate string
	if importerPath != "" && strings.HasPrefix(importPath, ".") {
		candidate = path.Join(path.Dir(importerPath), importPath)
	} else {
		candidate = path.Join(r.stdlib, importPath)
		if importerPath != "" {
			if local := path.Join(path.Dir(importerPath), importPath); r.exists(local) {
				candidate = local
			}
		}
	}
	clean := strings.TrimPrefix(path.Clean(candidate), "/")
	if err := module.CheckFilePath(clean); err != nil {
		return "", fmt.Errorf("invalid module path %q: %w", importPath, err)
	}
	return "/" + clean, nil
}

func (r *Resolver) exists(canonicalPath string) bool {
	_, ok := r.src.Read(canonicalPath)
	return ok
}

// load parses canonicalPath (single-flighted so concurrent re-entrant
// loads of the same path collapse onto one parse) and recurses into its
// imports, detecting cycles via the pending marker.
func (r *Resolver) load(canonicalPath string, chain []string) {
	if e, ok := r.entries[canonicalPath]; ok {
		if e.state == pending {
			cycle := append(append([]string{}, chain...), canonicalPath)
			r.errorf(diag.CircularDependency, diag.Span{}, "import cycle: %s", strings.Join(cycle, " -> "))
		}
		return
	}

	e := &entry{state: pending, path: canonicalPath}
	r.entries[canonicalPath] = e
	r.order = append(r.order, canonicalPath)

	_, _, _ = r.group.Do(canonicalPath, func() (any, error) {
		text, ok := r.src.Read(canonicalPath)
		if !ok {
			r.errorf(diag.ModuleNotFound, diag.Span{}, "module not found: %s", canonicalPath)
			e.state = loaded
			return nil, nil
		}
		prog, errs := r.parse(canonicalPath, text)
		r.errors = append(r.errors, errs...)
		e.prog = prog

		nextChain := append(append([]string{}, chain...), canonicalPath)
		for _, imp := range prog.Imports {
			dep, err := r.canonicalize(imp.Path, canonicalPath)
			if err != nil {
				r.errorf(diag.ModuleNotFound, imp.Span, "%s", err.Error())
				continue
			}
			e.imports = append(e.imports, dep)
			r.load(dep, nextChain)
		}
		e.state = loaded
		return nil, nil
	})
}

// exportSet returns the set of names a module's export list makes visible
// to importers; a program with no ModuleDef (a top-level script) exports
// nothing and cannot be imported.
func exportSet(prog *ast.Program) map[string]bool {
	set := map[string]bool{}
	if prog.Module == nil {
		return set
	}
	for _, name := range prog.Module.Exports {
		set[name] = true
	}
	return set
}

// validateImports checks every loaded module's import directives against
// the callee's export table and against local-name collisions, per
// spec.md §4.8 step 4.
func (r *Resolver) validateImports(res *Resolved) {
	for _, p := range res.Order {
		prog := res.Programs[p]
		locals := topLevelNames(prog)
		for _, imp := range prog.Imports {
			dep, err := r.canonicalize(imp.Path, p)
			if err != nil {
				continue
			}
			exports, ok := res.Exports[dep]
			if !ok {
				continue // already reported as MODULE-NOT-FOUND
			}
			items := imp.Items
			if len(items) == 0 {
				items = setKeys(exports)
			}
			for _, item := range items {
				if !exports[item] {
					r.errorf(diag.UndefinedExport, imp.Span, "module %s does not export %s", imp.Path, item)
					continue
				}
				localName := item
				if imp.Alias != "" {
					localName = imp.Alias
				}
				if locals[localName] {
					r.errorf(diag.NameCollision, imp.Span, "imported name %s collides with a local definition", localName)
				}
			}
		}
	}
}

func topLevelNames(prog *ast.Program) map[string]bool {
	names := map[string]bool{}
	for _, s := range prog.Stmts {
		switch n := s.(type) {
		case *ast.FunctionDef:
			if n.Name != nil {
				names[n.Name.Name] = true
			}
		case *ast.RecordDef:
			names[n.Name.Name] = true
		case *ast.VariantDef:
			names[n.Name.Name] = true
		case *ast.InterfaceDef:
			names[n.Name.Name] = true
		case *ast.Binding:
			if n.Name != nil {
				names[n.Name.Name] = true
			}
		}
	}
	return names
}

func setKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// topoSort returns discovered in dependency-first order: every module
// appears after all the modules it imports. Cycles (already reported by
// load) are broken by falling back to discovery order for the offending
// entries so the pass still produces a total order downstream passes can
// consume.
func topoSort(discovered []string, entries map[string]*entry) []string {
	visited := map[string]bool{}
	var out []string
	var visit func(string, map[string]bool)
	visit = func(p string, onStack map[string]bool) {
		if visited[p] || onStack[p] {
			return
		}
		onStack[p] = true
		if e := entries[p]; e != nil {
			for _, dep := range e.imports {
				visit(dep, onStack)
			}
		}
		visited[p] = true
		out = append(out, p)
	}
	for _, p := range discovered {
		visit(p, map[string]bool{})
	}
	if len(discovered) > 0 && !slices.Contains(out, discovered[0]) {
		out = append(out, discovered[0])
	}
	return out
}
