// package opa evaluates rego verdict policies with the v1 sdk
package opa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

// ErrNoResult is returned when the query is undefined for the given input.
var ErrNoResult = errors.New("policy produced no result")

// PreparedPolicy holds a compiled module and query ready for evaluation
type PreparedPolicy struct {
	query rego.PreparedEvalQuery
}

// PreparePolicy compiles a module with rego v1 semantics. Compile once and
// reuse the result across evaluations.
func PreparePolicy(ctx context.Context, module string, query string) (*PreparedPolicy, error) {
	r := rego.New(
		rego.Query(query),
		rego.Module("policy.rego", module),
		rego.SetRegoVersion(ast.RegoV1),
	)

	pq, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare policy: %w", err)
	}

	return &PreparedPolicy{query: pq}, nil
}

// Evaluate runs the prepared query against input and decodes the first
// expression value into T.
func Evaluate[T any](ctx context.Context, pp *PreparedPolicy, input any) (*T, error) {
	rs, err := pp.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, ErrNoResult
	}

	bs, err := json.Marshal(rs[0].Expressions[0].Value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy result: %w", err)
	}

	var out T
	if err := json.Unmarshal(bs, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal policy result: %w", err)
	}

	return &out, nil
}

func ReadPolicy(path string) (string, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read policy file: %w", err)
	}

	return string(p), nil
}
