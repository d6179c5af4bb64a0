package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cruxstack/disposable-email-checker-go/internal/types"
)

const (
	EmailPlaceholder = "{email}"

	defaultHTTPTimeout = 8 * time.Second
	maxBodyBytes       = 1 << 20
)

// Service names a public validation endpoint. URLTemplate must contain
// EmailPlaceholder exactly once.
type Service struct {
	Name        string
	URLTemplate string
}

// BuildURL substitutes the escaped address into the template. Path segments use
// path escaping and query values use query escaping.
func (s Service) BuildURL(email string) (string, error) {
	idx := strings.Index(s.URLTemplate, EmailPlaceholder)
	if idx < 0 {
		return "", fmt.Errorf("url template for %s has no %s placeholder", s.Name, EmailPlaceholder)
	}

	escaped := url.PathEscape(email)
	if q := strings.Index(s.URLTemplate, "?"); q >= 0 && q < idx {
		escaped = url.QueryEscape(email)
	}

	return s.URLTemplate[:idx] + escaped + s.URLTemplate[idx+len(EmailPlaceholder):], nil
}

// HTTPEmailVerifier queries a Service with a single GET request.
type HTTPEmailVerifier struct {
	Service Service
	Client  *http.Client
}

func NewHTTPVerifier(svc Service, timeout time.Duration) *HTTPEmailVerifier {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPEmailVerifier{
		Service: svc,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (v *HTTPEmailVerifier) Name() string {
	return v.Service.Name
}

func (v *HTTPEmailVerifier) VerifyEmail(ctx context.Context, addr types.Address) (Response, error) {
	target, err := v.Service.BuildURL(addr.Raw)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", v.Service.Name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", v.Service.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", v.Service.Name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: unexpected status %d: %s", v.Service.Name, resp.StatusCode, truncate(string(body)))
	}

	return decodeResponse(v.Service.Name, body)
}

func (v *HTTPEmailVerifier) client() *http.Client {
	if v.Client != nil {
		return v.Client
	}
	return http.DefaultClient
}

func decodeResponse(name string, body []byte) (Response, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", name, err)
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, errors.New(name + ": response is not a JSON object")
	}

	return Response(obj), nil
}

func truncate(s string) string {
	if len(s) > maxSummaryLen {
		return s[:maxSummaryLen] + "..."
	}
	return s
}
