package source

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
)

// ErrInvalidFilter is returned when a filter expression fails to compile or
// does not evaluate to a boolean.
var ErrInvalidFilter = errors.New("invalid source filter")

// Filter is a compiled CEL predicate over descriptors.
//
// The expression sees these variables:
//   - name (string): the descriptor name
//   - namespace (string): the shape namespace
//   - shape (string): the shape name
//   - behaviors (list<string>): the enabled behaviors
//   - tags (map<string, string>): Tags.Extra
//   - original_name (string): Tags.OriginalName
//
// Filters are safe for concurrent use once compiled.
type Filter struct {
	expr string
	prg  cel.Program
}

// CompileFilter compiles expr. An empty expression yields a nil filter, which
// accepts every descriptor.
func CompileFilter(expr string) (*Filter, error) {
	if expr == "" {
		return nil, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("namespace", cel.StringType),
		cel.Variable("shape", cel.StringType),
		cel.Variable("behaviors", cel.ListType(cel.StringType)),
		cel.Variable("tags", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("original_name", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter environment: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: expression must return bool, got %s", ErrInvalidFilter, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	return &Filter{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Match evaluates the filter against d. A nil filter matches everything.
func (f *Filter) Match(d *Descriptor) (bool, error) {
	if f == nil {
		return true, nil
	}

	var namespace, shape string
	if d.Shape != nil {
		namespace = d.Shape.Namespace
		shape = d.Shape.Name
	}
	tags := d.Tags.Extra
	if tags == nil {
		tags = map[string]string{}
	}

	out, _, err := f.prg.Eval(map[string]any{
		"name":          d.Name,
		"namespace":     namespace,
		"shape":         shape,
		"behaviors":     d.Behaviors.Enabled(),
		"tags":          tags,
		"original_name": d.Tags.OriginalName,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate filter %q for source %q: %w", f.expr, d.Name, err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: non-bool result %v", ErrInvalidFilter, out.Value())
	}
	return matched, nil
}
