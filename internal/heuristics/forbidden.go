package heuristics

import (
	"context"
	"strings"

	"github.com/cruxstack/disposable-email-checker-go/internal/types"
)

// ForbiddenSubdomainCheck fails when the domain contains a denylisted
// subdomain marker such as ".stu.".
type ForbiddenSubdomainCheck struct {
	Subdomains []string
}

func (c *ForbiddenSubdomainCheck) Name() string {
	return NameForbiddenSubdomain
}

func (c *ForbiddenSubdomainCheck) Run(ctx context.Context, addr types.Address) types.CheckResult {
	if hit, ok := containsAny(addr.Domain, c.Subdomains); ok {
		return fail(NameForbiddenSubdomain, "Forbidden subdomain found: "+hit, nil)
	}
	return pass(NameForbiddenSubdomain, "No forbidden subdomains")
}

// ForbiddenWordCheck fails when the domain contains a denylisted word.
type ForbiddenWordCheck struct {
	Words []string
}

func (c *ForbiddenWordCheck) Name() string {
	return NameForbiddenWord
}

func (c *ForbiddenWordCheck) Run(ctx context.Context, addr types.Address) types.CheckResult {
	if hit, ok := containsAny(addr.Domain, c.Words); ok {
		return fail(NameForbiddenWord, "Forbidden word found: "+hit, nil)
	}
	return pass(NameForbiddenWord, "No forbidden words")
}

func containsAny(domain string, needles []string) (string, bool) {
	domain = strings.ToLower(domain)
	for _, n := range needles {
		if n != "" && strings.Contains(domain, strings.ToLower(n)) {
			return n, true
		}
	}
	return "", false
}
