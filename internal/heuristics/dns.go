package heuristics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cruxstack/disposable-email-checker-go/internal/types"
	"github.com/miekg/dns"
)

const resolvConfPath = "/etc/resolv.conf"

var ErrNoRecords = errors.New("no A or AAAA records")

// Resolver resolves a host name to its addresses.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DNSResolver queries A and AAAA records from the first nameserver in
// resolv.conf. Without a nameserver it defers to the system resolver.
type DNSResolver struct {
	Client     *dns.Client
	Nameserver string
}

func NewDNSResolver(timeout time.Duration) *DNSResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	r := &DNSResolver{
		Client: &dns.Client{
			Net:     "udp",
			Timeout: timeout,
		},
	}

	if conf, err := dns.ClientConfigFromFile(resolvConfPath); err == nil && len(conf.Servers) > 0 {
		r.Nameserver = net.JoinHostPort(conf.Servers[0], conf.Port)
	} else {
		slog.Debug("no nameserver from resolv.conf, using system resolver", "error", err)
	}

	return r
}

func (r *DNSResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	if r.Nameserver == "" {
		return net.DefaultResolver.LookupHost(ctx, host)
	}

	var (
		addrs   []string
		lastErr error
	)
	for _, qt := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(host), qt)

		resp, _, err := r.Client.ExchangeContext(ctx, msg, r.Nameserver)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Rcode == dns.RcodeNameError {
			return nil, fmt.Errorf("lookup %s: %s", host, dns.RcodeToString[resp.Rcode])
		}
		if resp.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("lookup %s: %s", host, dns.RcodeToString[resp.Rcode])
			continue
		}

		for _, ans := range resp.Answer {
			switch rr := ans.(type) {
			case *dns.A:
				addrs = append(addrs, rr.A.String())
			case *dns.AAAA:
				addrs = append(addrs, rr.AAAA.String())
			}
		}
	}

	if len(addrs) > 0 {
		return addrs, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("lookup %s: %w", host, ErrNoRecords)
}

// DNSCheck passes when the domain resolves to at least one address.
type DNSCheck struct {
	Resolver Resolver
}

func (c *DNSCheck) Name() string {
	return NameDNS
}

func (c *DNSCheck) Run(ctx context.Context, addr types.Address) types.CheckResult {
	resolver := c.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	addrs, err := resolver.LookupHost(ctx, addr.Domain)
	if err != nil {
		return fail(NameDNS, "No DNS records found: "+err.Error(), err)
	}
	if len(addrs) == 0 {
		return fail(NameDNS, "No DNS records found", ErrNoRecords)
	}

	return pass(NameDNS, fmt.Sprintf("DNS records found (%d)", len(addrs)))
}
