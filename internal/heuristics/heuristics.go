// Package heuristics implements the local checks run against an address
// without third-party validation APIs.
package heuristics

import (
	"context"
	"slices"
	"time"

	"github.com/cruxstack/disposable-email-checker-go/internal/config"
	"github.com/cruxstack/disposable-email-checker-go/internal/types"
)

const (
	NameFormat             = "Email Format & Numeric Check"
	NameForbiddenSubdomain = "Forbidden Subdomain Check"
	NameForbiddenWord      = "Forbidden Word Check"
	NameDNS                = "DNS Records Check"
	NameDomainAge          = "Domain Age Check"
	NameCertificate        = "SSL Certificate Check"
)

// Check is one local heuristic. Run never fails; errors are reported as a
// failing result.
type Check interface {
	Name() string
	Run(ctx context.Context, addr types.Address) types.CheckResult
}

// Lists holds the denylists consulted by the forbidden pattern checks.
type Lists struct {
	ForbiddenSubdomains []string
	ForbiddenWords      []string
}

type Options struct {
	Resolver   Resolver
	Registry   Registry
	TLSTimeout time.Duration
	Now        func() time.Time
}

// Set is the ordered list of local checks.
type Set struct {
	Checks []Check
}

// New builds the default check order: format, forbidden subdomain, forbidden
// word, DNS, domain age, certificate. The lists are copied.
func New(lists Lists, opts Options) *Set {
	return &Set{
		Checks: []Check{
			&FormatCheck{},
			&ForbiddenSubdomainCheck{Subdomains: slices.Clone(lists.ForbiddenSubdomains)},
			&ForbiddenWordCheck{Words: slices.Clone(lists.ForbiddenWords)},
			&DNSCheck{Resolver: opts.Resolver},
			&AgeCheck{Registry: opts.Registry, Now: opts.Now},
			&CertificateCheck{Timeout: opts.TLSTimeout},
		},
	}
}

func NewFromConfig(cfg *config.Config) *Set {
	return New(Lists{
		ForbiddenSubdomains: cfg.AppForbiddenSubdomains,
		ForbiddenWords:      cfg.AppForbiddenWords,
	}, Options{
		Resolver:   NewDNSResolver(cfg.AppCheckTimeout),
		Registry:   NewWhoisRegistry(cfg.AppCheckTimeout),
		TLSTimeout: cfg.AppTLSTimeout,
	})
}

func (s *Set) Len() int {
	return len(s.Checks)
}

func (s *Set) Source(i int) string {
	return s.Checks[i].Name()
}

// Run executes the i-th check.
func (s *Set) Run(ctx context.Context, i int, addr types.Address) types.CheckResult {
	return s.Checks[i].Run(ctx, addr)
}

func pass(name, msg string) types.CheckResult {
	return types.CheckResult{Name: name, Passed: true, Message: msg}
}

func fail(name, msg string, err error) types.CheckResult {
	return types.CheckResult{Name: name, Passed: false, Message: msg, Err: err}
}
