package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidAddress = errors.New("invalid email address")

// Address is an email address split into its local part and domain. The
// domain is lower-cased; Raw keeps the address as it was entered.
type Address struct {
	Raw    string `json:"raw"`
	Local  string `json:"local"`
	Domain string `json:"domain"`
}

func (a Address) String() string {
	return a.Raw
}

// ParseAddress requires exactly one "@" with a non-empty local part and domain.
func ParseAddress(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Address{}, fmt.Errorf("%w: empty input", ErrInvalidAddress)
	}

	if n := strings.Count(raw, "@"); n != 1 {
		return Address{}, fmt.Errorf("%w: expected exactly one '@', found %d in %q", ErrInvalidAddress, n, raw)
	}

	local, domain, _ := strings.Cut(raw, "@")
	if local == "" {
		return Address{}, fmt.Errorf("%w: missing local part in %q", ErrInvalidAddress, raw)
	}
	if domain == "" {
		return Address{}, fmt.Errorf("%w: missing domain in %q", ErrInvalidAddress, raw)
	}

	return Address{
		Raw:    raw,
		Local:  local,
		Domain: strings.ToLower(domain),
	}, nil
}

type Verdict string

const (
	VerdictDisposable    Verdict = "disposable"
	VerdictNotDisposable Verdict = "not_disposable"
	VerdictUnknown       Verdict = "unknown"
)

func VerdictFromBool(disposable bool) Verdict {
	if disposable {
		return VerdictDisposable
	}
	return VerdictNotDisposable
}

// String returns the human readable label used by the CLI.
func (v Verdict) String() string {
	switch v {
	case VerdictDisposable:
		return "Disposable"
	case VerdictNotDisposable:
		return "Not Disposable"
	default:
		return "Unknown"
	}
}

// ProbeResult is the normalized outcome of one remote probe.
type ProbeResult struct {
	Source   string        `json:"source"`
	Verdict  Verdict       `json:"verdict"`
	Detail   string        `json:"detail"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

func (r ProbeResult) MarshalJSON() ([]byte, error) {
	type alias ProbeResult
	out := struct {
		alias
		Error string `json:"error,omitempty"`
	}{alias: alias(r)}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// CheckResult is the pass/fail outcome of one local heuristic check.
type CheckResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (r CheckResult) MarshalJSON() ([]byte, error) {
	type alias CheckResult
	out := struct {
		alias
		Error string `json:"error,omitempty"`
	}{alias: alias(r)}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// Signal converts a check into a vote: a passing check counts as not
// disposable and a failing one as disposable.
func (r CheckResult) Signal() ProbeResult {
	return ProbeResult{
		Source:  r.Name,
		Verdict: VerdictFromBool(!r.Passed),
		Detail:  r.Message,
		Err:     r.Err,
	}
}

type Tally struct {
	Disposable    int `json:"disposable"`
	NotDisposable int `json:"notDisposable"`
	Unknown       int `json:"unknown"`
}

// Verdict is a strict majority vote; ties, including zero votes, are unknown.
func (t Tally) Verdict() Verdict {
	switch {
	case t.Disposable > t.NotDisposable:
		return VerdictDisposable
	case t.NotDisposable > t.Disposable:
		return VerdictNotDisposable
	default:
		return VerdictUnknown
	}
}

type Report struct {
	ID            string        `json:"id"`
	Address       Address       `json:"address"`
	Remote        []ProbeResult `json:"remote"`
	Local         []CheckResult `json:"local"`
	Tally         Tally         `json:"tally"`
	Verdict       Verdict       `json:"verdict"`
	VerdictSource string        `json:"verdictSource"`
}
