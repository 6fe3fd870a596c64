package suggestions

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Variables visible to rule conditions. List values hold lower-cased names.
const (
	varAssetType       = "assetType"
	varTechnologies    = "technologies"
	varFunctionalities = "functionalities"
	varBehaviors       = "behaviors"
	varTags            = "tags"
)

type conditionEnv struct {
	env *cel.Env
}

type condition struct {
	source  string
	program cel.Program
}

func newConditionEnv() (*conditionEnv, error) {
	env, err := cel.NewEnv(
		cel.Variable(varAssetType, cel.StringType),
		cel.Variable(varTechnologies, cel.ListType(cel.StringType)),
		cel.Variable(varFunctionalities, cel.ListType(cel.StringType)),
		cel.Variable(varBehaviors, cel.ListType(cel.StringType)),
		cel.Variable(varTags, cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, err
	}
	return &conditionEnv{env: env}, nil
}

func (e *conditionEnv) compile(source string) (*condition, error) {
	ast, iss := e.env.Compile(source)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("condition must evaluate to bool, got %s", ast.OutputType())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, err
	}
	return &condition{source: source, program: prg}, nil
}

func (c *condition) eval(vars map[string]any) (bool, error) {
	out, _, err := c.program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", c.source, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("evaluate %q: non-bool result %v", c.source, out.Value())
	}
	return matched, nil
}

func conditionVars(c *Context) map[string]any {
	return map[string]any{
		varAssetType:       normalizeKey(c.AssetType),
		varTechnologies:    attributeNames(c.Technologies),
		varFunctionalities: attributeNames(c.Functionalities),
		varBehaviors:       attributeNames(c.Behaviors),
		varTags:            normalizedStrings(c.Tags),
	}
}

func attributeNames(attrs []Attribute) []string {
	out := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if key := normalizeKey(a.Name); key != "" {
			out = append(out, key)
		}
	}
	return out
}

func normalizedStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if key := normalizeKey(v); key != "" {
			out = append(out, key)
		}
	}
	return out
}
