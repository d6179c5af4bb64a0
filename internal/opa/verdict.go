package opa

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cruxstack/disposable-email-checker-go/internal/types"
)

// VerdictQuery is the rule a verdict policy must define.
const VerdictQuery = "data.disposable_email_policy.result"

// VerdictInput is the document exposed to the policy as input.
type VerdictInput struct {
	Address types.Address       `json:"address"`
	Remote  []types.ProbeResult `json:"remote"`
	Local   []types.CheckResult `json:"local"`
	Tally   types.Tally         `json:"tally"`
	Verdict types.Verdict       `json:"verdict"`
}

// VerdictOutput is the shape of the policy result.
type VerdictOutput struct {
	Verdict types.Verdict `json:"verdict"`
	Reason  string        `json:"reason,omitempty"`
}

// VerdictPolicy overrides the majority verdict with a rego rule.
type VerdictPolicy struct {
	prepared *PreparedPolicy
}

func NewVerdictPolicy(ctx context.Context, module string) (*VerdictPolicy, error) {
	pp, err := PreparePolicy(ctx, module, VerdictQuery)
	if err != nil {
		return nil, err
	}
	return &VerdictPolicy{prepared: pp}, nil
}

func LoadVerdictPolicy(ctx context.Context, path string) (*VerdictPolicy, error) {
	module, err := ReadPolicy(path)
	if err != nil {
		return nil, err
	}
	return NewVerdictPolicy(ctx, module)
}

// Decide evaluates the policy. It returns ErrNoResult when the policy leaves
// the result undefined and an error for any verdict outside the known three.
func (p *VerdictPolicy) Decide(ctx context.Context, in VerdictInput) (*VerdictOutput, error) {
	doc, err := toDocument(in)
	if err != nil {
		return nil, err
	}

	out, err := Evaluate[VerdictOutput](ctx, p.prepared, doc)
	if err != nil {
		return nil, err
	}

	switch out.Verdict {
	case types.VerdictDisposable, types.VerdictNotDisposable, types.VerdictUnknown:
		return out, nil
	case "":
		return nil, ErrNoResult
	default:
		return nil, fmt.Errorf("policy returned unknown verdict %q", out.Verdict)
	}
}

// toDocument flattens the input through its JSON form so the policy sees the
// same field names as the report.
func toDocument(in VerdictInput) (map[string]any, error) {
	bs, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy input: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(bs, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal policy input: %w", err)
	}
	return doc, nil
}
