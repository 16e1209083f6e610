// Package expr evaluates CEL predicate expressions against record
// attributes. Scopes defined from expressions compile once and are cached;
// evaluation sees two variables: `record` (the attribute map) and `args`
// (the scope's invocation arguments).
package expr

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"
)

// Engine handles compilation and evaluation of CEL predicates.
type Engine struct {
	env      *cel.Env
	prgCache sync.Map // map[string]cel.Program
}

// NewEngine creates an Engine with the record/args environment.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Declarations(
			decls.NewVar("record", decls.NewMapType(decls.String, decls.Dyn)),
			decls.NewVar("args", decls.NewListType(decls.Dyn)),
		),
	)
	if err != nil {
		return nil, err
	}
	return &Engine{env: env}, nil
}

// Compile checks an expression against the environment without evaluating
// it, caching the program for later Eval calls.
func (e *Engine) Compile(expression string) error {
	_, err := e.program(expression)
	return err
}

// Eval evaluates a predicate for one record. The expression must produce a
// boolean.
func (e *Engine) Eval(expression string, record map[string]any, args []any) (bool, error) {
	prg, err := e.program(expression)
	if err != nil {
		return false, err
	}

	if args == nil {
		args = []any{}
	}
	out, _, err := prg.Eval(map[string]any{
		"record": record,
		"args":   args,
	})
	if err != nil {
		return false, fmt.Errorf("eval error: %s", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("predicate must return boolean, got %T", out.Value())
	}
	return result, nil
}

func (e *Engine) program(expression string) (cel.Program, error) {
	if val, ok := e.prgCache.Load(expression); ok {
		return val.(cel.Program), nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %s", issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program construction error: %s", err)
	}
	e.prgCache.Store(expression, prg)
	return prg, nil
}
