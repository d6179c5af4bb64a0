package verifier

import (
	"encoding/json"
	"fmt"

	"github.com/cruxstack/disposable-email-checker-go/internal/types"
)

const maxSummaryLen = 200

// Rule maps one response field to a verdict. Interpret reports false when the
// value does not have the shape the rule expects, in which case the next rule
// is tried.
type Rule struct {
	Field     string
	Interpret func(v any) (types.Verdict, bool)
}

// DefaultRules returns the field precedence shared by the public services:
// disposable, valid, status, deliverable.
func DefaultRules() []Rule {
	return []Rule{
		{Field: "disposable", Interpret: boolRule(false)},
		{Field: "valid", Interpret: boolRule(true)},
		{Field: "status", Interpret: func(v any) (types.Verdict, bool) {
			s, ok := v.(string)
			if !ok {
				return "", false
			}
			return types.VerdictFromBool(s == "invalid"), true
		}},
		{Field: "deliverable", Interpret: boolRule(true)},
	}
}

// boolRule interprets a boolean field; negate marks fields where false means
// disposable.
func boolRule(negate bool) func(any) (types.Verdict, bool) {
	return func(v any) (types.Verdict, bool) {
		b, ok := v.(bool)
		if !ok {
			return "", false
		}
		if negate {
			b = !b
		}
		return types.VerdictFromBool(b), true
	}
}

// Normalize applies rules in order to resp; the first matching field decides.
// With no match the verdict is unknown and the detail summarizes resp.
func Normalize(resp Response, rules []Rule) (types.Verdict, string) {
	for _, r := range rules {
		raw, ok := resp[r.Field]
		if !ok {
			continue
		}
		verdict, ok := r.Interpret(raw)
		if !ok {
			continue
		}
		return verdict, fmt.Sprintf("%s=%v", r.Field, raw)
	}

	return types.VerdictUnknown, "unrecognized response: " + summarize(resp)
}

func summarize(resp Response) string {
	bs, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprintf("%v", resp)
	}
	s := string(bs)
	if len(s) > maxSummaryLen {
		s = s[:maxSummaryLen] + "..."
	}
	return s
}
