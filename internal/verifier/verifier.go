package verifier

import (
	"context"
	"time"

	"github.com/cruxstack/disposable-email-checker-go/internal/types"
)

// Response is a decoded JSON object returned by a validation service.
type Response map[string]any

// EmailVerifier fetches a raw verdict for an address from one remote service.
// Implementations return an error for transport, status and decoding failures;
// normalization happens in Verify.
type EmailVerifier interface {
	Name() string
	VerifyEmail(ctx context.Context, addr types.Address) (Response, error)
}

// Verify runs v once and normalizes its response with rules. It never fails:
// errors become unknown results carrying the error.
func Verify(ctx context.Context, v EmailVerifier, addr types.Address, rules []Rule) types.ProbeResult {
	start := time.Now()

	resp, err := v.VerifyEmail(ctx, addr)
	if err != nil {
		return types.ProbeResult{
			Source:   v.Name(),
			Verdict:  types.VerdictUnknown,
			Detail:   "Error: " + err.Error(),
			Duration: time.Since(start),
			Err:      err,
		}
	}

	verdict, detail := Normalize(resp, rules)
	return types.ProbeResult{
		Source:   v.Name(),
		Verdict:  verdict,
		Detail:   detail,
		Duration: time.Since(start),
	}
}

// ProbeSet is the ordered list of remote verifiers consulted for every address.
type ProbeSet struct {
	Verifiers []EmailVerifier
	Rules     []Rule
}

func NewProbeSet(verifiers []EmailVerifier) *ProbeSet {
	return &ProbeSet{
		Verifiers: verifiers,
		Rules:     DefaultRules(),
	}
}

func (s *ProbeSet) Len() int {
	return len(s.Verifiers)
}

func (s *ProbeSet) Source(i int) string {
	return s.Verifiers[i].Name()
}

// Probe runs the i-th verifier of the set.
func (s *ProbeSet) Probe(ctx context.Context, i int, addr types.Address) types.ProbeResult {
	return Verify(ctx, s.Verifiers[i], addr, s.Rules)
}
