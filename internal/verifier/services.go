package verifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/cruxstack/disposable-email-checker-go/internal/config"
)

// DefaultServices are the public disposable-address services, in vote order.
func DefaultServices() []Service {
	return []Service{
		{Name: "kickbox", URLTemplate: "https://open.kickbox.com/v1/disposable/{email}"},
		{Name: "mailcheck", URLTemplate: "https://api.mailcheck.ai/email/{email}"},
		{Name: "isitarealemail", URLTemplate: "https://isitarealemail.com/api/email/validate?email={email}"},
		{Name: "disify", URLTemplate: "https://checkmail.disify.com/api/email/{email}"},
		{Name: "validator.pizza", URLTemplate: "https://www.validator.pizza/email/{email}"},
	}
}

// ParseServices reads "name=template" entries. Templates may themselves contain
// "=" so only the first one separates the name.
func ParseServices(entries []string) ([]Service, error) {
	services := make([]Service, 0, len(entries))
	for _, e := range entries {
		name, tmpl, ok := strings.Cut(strings.TrimSpace(e), "=")
		name, tmpl = strings.TrimSpace(name), strings.TrimSpace(tmpl)
		if !ok || name == "" || tmpl == "" {
			return nil, fmt.Errorf("invalid remote service %q (want name=url-template)", e)
		}
		if !strings.Contains(tmpl, EmailPlaceholder) {
			return nil, fmt.Errorf("remote service %s: url template has no %s placeholder", name, EmailPlaceholder)
		}
		services = append(services, Service{Name: name, URLTemplate: tmpl})
	}
	return services, nil
}

// NewProbeSetFromConfig builds the remote probe set: the configured (or default)
// services followed by the SendGrid verifier when an API key is present.
func NewProbeSetFromConfig(cfg *config.Config) (*ProbeSet, error) {
	services := DefaultServices()
	if len(cfg.AppRemoteServices) > 0 {
		parsed, err := ParseServices(cfg.AppRemoteServices)
		if err != nil {
			return nil, err
		}
		services = parsed
	}

	verifiers := make([]EmailVerifier, 0, len(services)+1)
	for _, svc := range services {
		verifiers = append(verifiers, NewHTTPVerifier(svc, httpTimeout(cfg.AppProbeTimeout)))
	}

	if cfg.SendGridEmailVerificationApiKey != "" {
		sg, err := NewSendGridVerifier(cfg)
		if err != nil {
			return nil, err
		}
		verifiers = append(verifiers, sg)
	}

	return NewProbeSet(verifiers), nil
}

func httpTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultHTTPTimeout
	}
	return d
}
