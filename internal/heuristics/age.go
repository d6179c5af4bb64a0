package heuristics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cruxstack/disposable-email-checker-go/internal/types"
	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"golang.org/x/net/publicsuffix"
)

const MinDomainAge = 365 * 24 * time.Hour

var ErrNoCreationDate = errors.New("no creation date in whois record")

// whoisDateLayouts covers the creation date formats seen across registries.
var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"02-Jan-2006 15:04:05 MST",
	"2006.01.02",
	"2006.01.02 15:04:05",
	"2006/01/02",
	"02.01.2006",
	"January 2 2006",
	"Mon Jan 2 15:04:05 MST 2006",
	"20060102",
}

// Registry looks up when a domain was registered.
type Registry interface {
	CreationDate(ctx context.Context, domain string) (time.Time, error)
}

// WhoisRegistry queries WHOIS for the registrable part of a domain.
type WhoisRegistry struct {
	Client *whois.Client
}

func NewWhoisRegistry(timeout time.Duration) *WhoisRegistry {
	client := whois.NewClient()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &WhoisRegistry{Client: client}
}

func (r *WhoisRegistry) CreationDate(ctx context.Context, domain string) (time.Time, error) {
	apex, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		apex = domain
	}

	type lookup struct {
		raw string
		err error
	}
	ch := make(chan lookup, 1)
	go func() {
		raw, err := r.Client.Whois(apex)
		ch <- lookup{raw: raw, err: err}
	}()

	var res lookup
	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	case res = <-ch:
	}
	if res.err != nil {
		return time.Time{}, fmt.Errorf("whois %s: %w", apex, res.err)
	}

	info, err := whoisparser.Parse(res.raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("whois %s: %w", apex, err)
	}
	if info.Domain == nil || strings.TrimSpace(info.Domain.CreatedDate) == "" {
		return time.Time{}, fmt.Errorf("whois %s: %w", apex, ErrNoCreationDate)
	}

	return ParseWhoisDate(info.Domain.CreatedDate)
}

// ParseWhoisDate parses a registry creation date in any of the known layouts.
func ParseWhoisDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range whoisDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized whois date %q", s)
}

// AgeCheck passes when the domain was registered at least MinDomainAge ago.
type AgeCheck struct {
	Registry Registry
	Now      func() time.Time
}

func (c *AgeCheck) Name() string {
	return NameDomainAge
}

func (c *AgeCheck) Run(ctx context.Context, addr types.Address) types.CheckResult {
	if c.Registry == nil {
		return fail(NameDomainAge, "WHOIS lookup failed: no registry configured", errors.New("no registry configured"))
	}

	created, err := c.Registry.CreationDate(ctx, addr.Domain)
	if err != nil {
		return fail(NameDomainAge, "WHOIS lookup failed: "+err.Error(), err)
	}
	if created.IsZero() {
		return fail(NameDomainAge, "WHOIS lookup failed: "+ErrNoCreationDate.Error(), ErrNoCreationDate)
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	if now().Sub(created) < MinDomainAge {
		return fail(NameDomainAge, fmt.Sprintf("Domain is younger than 1 year (created %s)", created.Format("2006-01-02")), nil)
	}

	return pass(NameDomainAge, fmt.Sprintf("Domain is older than 1 year (created %s)", created.Format("2006-01-02")))
}
