package heuristics

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cruxstack/disposable-email-checker-go/internal/types"
)

const defaultTLSPort = "443"

// TLSDialFunc performs a handshake with host and returns the negotiated state.
type TLSDialFunc func(ctx context.Context, host, port string) (tls.ConnectionState, error)

// CertificateCheck tries a TLS handshake with the domain and then its www
// host, passing on the first handshake that negotiates a cipher suite.
type CertificateCheck struct {
	Port    string
	Timeout time.Duration
	Config  *tls.Config
	Dial    TLSDialFunc
}

func (c *CertificateCheck) Name() string {
	return NameCertificate
}

func (c *CertificateCheck) Run(ctx context.Context, addr types.Address) types.CheckResult {
	port := c.Port
	if port == "" {
		port = defaultTLSPort
	}
	dial := c.Dial
	if dial == nil {
		dial = c.dialTLS
	}

	var errs []error
	for _, host := range []string{addr.Domain, "www." + addr.Domain} {
		state, err := dial(ctx, host, port)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", host, err))
			continue
		}
		if state.CipherSuite == 0 {
			errs = append(errs, fmt.Errorf("%s: no cipher negotiated", host))
			continue
		}
		return pass(NameCertificate, "SSL certificate found for https://"+host)
	}

	return fail(NameCertificate, "No SSL certificate found", errors.Join(errs...))
}

func (c *CertificateCheck) dialTLS(ctx context.Context, host, port string) (tls.ConnectionState, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cfg := &tls.Config{}
	if c.Config != nil {
		cfg = c.Config.Clone()
	}
	cfg.ServerName = host

	d := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config:    cfg,
	}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return tls.ConnectionState{}, err
	}
	defer conn.Close()

	return conn.(*tls.Conn).ConnectionState(), nil
}
