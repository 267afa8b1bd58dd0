package evaluator

import (
	"os"
	"strconv"

	"github.com/veylang/veyl/internal/diag"
)

// triumph/mishap build the two Outcome cases natives use to report
// success or failure without raising a RuntimeError directly, matching
// the Outcome<T, E> prelude registered by internal/analyzer's builtins.
func triumph(v Value) Value {
	return Variant{Owner: "Outcome", CaseName: "Triumph", Payload: []Value{v}}
}

func mishap(msg string) Value {
	return Variant{Owner: "Outcome", CaseName: "Mishap", Payload: []Value{Text(msg)}}
}

// DefaultNatives returns the native-function table mirroring
// internal/analyzer's registered prelude (add, length, read_file,
// parse_number). A host embedding the evaluator is free to extend or
// replace this table before calling New.
func DefaultNatives() map[string]*Native {
	return map[string]*Native{
		// __list__ backs list-literal syntax: the parser desugars `[e1,
		// e2]` into a call to this name (internal/parser/expressions.go),
		// and the tree-walker short-circuits it before reaching this
		// table (internal/evaluator/eval.go's evalCall). The VM compiler
		// has no such AST-level shortcut once it lowers to OpNativeCall,
		// so it needs this entry to exist.
		"__list__": {Name: "__list__", Fn: func(args []Value) (Value, *RuntimeError) {
			return NewSequence(append([]Value{}, args...)), nil
		}},
		"add": {Name: "add", Fn: func(args []Value) (Value, *RuntimeError) {
			if len(args) != 2 {
				return nil, arityError("add", 2, len(args))
			}
			a, ok1 := args[0].(Number)
			b, ok2 := args[1].(Number)
			if !ok1 || !ok2 {
				return nil, &RuntimeError{Tag: diag.Mismatch, Message: "add expects two Numbers"}
			}
			return a + b, nil
		}},
		"length": {Name: "length", Fn: func(args []Value) (Value, *RuntimeError) {
			if len(args) != 1 {
				return nil, arityError("length", 1, len(args))
			}
			seq, ok := derefSequence(args[0])
			if !ok {
				return nil, &RuntimeError{Tag: diag.Mismatch, Message: "length expects a Sequence"}
			}
			return Number(len(*seq.Slots)), nil
		}},
		"read_file": {Name: "read_file", Fn: func(args []Value) (Value, *RuntimeError) {
			if len(args) != 1 {
				return nil, arityError("read_file", 1, len(args))
			}
			path, ok := args[0].(Text)
			if !ok {
				return nil, &RuntimeError{Tag: diag.Mismatch, Message: "read_file expects a Text path"}
			}
			data, err := os.ReadFile(string(path))
			if err != nil {
				return mishap(err.Error()), nil
			}
			return triumph(Text(data)), nil
		}},
		"parse_number": {Name: "parse_number", Fn: func(args []Value) (Value, *RuntimeError) {
			if len(args) != 1 {
				return nil, arityError("parse_number", 1, len(args))
			}
			text, ok := args[0].(Text)
			if !ok {
				return nil, &RuntimeError{Tag: diag.Mismatch, Message: "parse_number expects a Text value"}
			}
			n, err := strconv.ParseFloat(string(text), 64)
			if err != nil {
				return mishap("not a number: " + string(text)), nil
			}
			return triumph(Number(n)), nil
		}},
	}
}

func arityError(name string, want, got int) *RuntimeError {
	return &RuntimeError{
		Tag:     diag.ArityMismatchRT,
		Message: name + " expects " + strconv.Itoa(want) + " argument(s), got " + strconv.Itoa(got),
	}
}
