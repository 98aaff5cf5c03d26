package export

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/Sternrassler/riksdag-client/pkg/models"
)

// CompilationError is returned for an expression that cannot be compiled.
type CompilationError struct {
	Expression string
	Reason     string
	Err        error
}

func (e *CompilationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("compile %q: %s: %v", e.Expression, e.Reason, e.Err)
	}
	return fmt.Sprintf("compile %q: %s", e.Expression, e.Reason)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// Predicate is a compiled boolean expression over the exported view of an
// entity (see models.ToMap). It is safe for concurrent use.
type Predicate struct {
	expression string
	program    *vm.Program
}

// CompilePredicate compiles an expr-lang expression such as
//
//	kind == "mot" && containsFold(title, "klimat")
//
// Field names are the keys of models.ToMap; fields an entity does not have
// evaluate to nil. Besides the expr builtins, containsFold(s, substr) and
// hasAuthor(name) are available.
func CompilePredicate(expression string) (*Predicate, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{Expression: expression, Reason: "empty expression"}
	}

	program, err := expr.Compile(expression,
		expr.Env(helpers()),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	return &Predicate{expression: expression, program: program}, nil
}

// Match evaluates the predicate against e.
func (p *Predicate) Match(e models.Entity) (bool, error) {
	fields := models.ToMap(e)
	env := helpers()
	for k, v := range fields {
		env[k] = v
	}
	env["hasAuthor"] = hasAuthorFunc(fields)

	out, err := expr.Run(p.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate %q on %s: %w", p.expression, models.Key(e), err)
	}
	return out.(bool), nil
}

// Filter returns the entities matching p, in order. The first evaluation
// error stops the filter.
func (p *Predicate) Filter(entities []models.Entity) ([]models.Entity, error) {
	out := make([]models.Entity, 0, len(entities))
	for _, e := range entities {
		ok, err := p.Match(e)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Expression returns the source of the predicate.
func (p *Predicate) Expression() string {
	return p.expression
}

func helpers() map[string]any {
	return map[string]any{
		"containsFold": func(s, substr string) bool {
			return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
		},
		"hasAuthor": func(string) bool { return false },
	}
}

func hasAuthorFunc(fields map[string]any) func(string) bool {
	authors, _ := fields["authors"].([]map[string]any)
	return func(name string) bool {
		for _, a := range authors {
			if n, ok := a["name"].(string); ok && strings.EqualFold(n, name) {
				return true
			}
		}
		return false
	}
}
