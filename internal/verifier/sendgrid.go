package verifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cruxstack/disposable-email-checker-go/internal/config"
	"github.com/cruxstack/disposable-email-checker-go/internal/types"
	"github.com/sendgrid/sendgrid-go"
)

type SendGridEmailAddressValidationDomainChecks struct {
	HasValidAddressSyntax        bool `json:"has_valid_address_syntax"`
	HasMXOrARecord               bool `json:"has_mx_or_a_record"`
	IsSuspectedDisposableAddress bool `json:"is_suspected_disposable_address"`
}

type SendGridEmailAddressValidationChecks struct {
	Domain SendGridEmailAddressValidationDomainChecks `json:"domain"`
}

type SendGridEmailAddressValidationResult struct {
	Email   string                               `json:"email"`
	Verdict string                               `json:"verdict"`
	Score   float32                              `json:"score"`
	Checks  SendGridEmailAddressValidationChecks `json:"checks"`
}

type SendGridEmailAddressValidationResponse struct {
	Result SendGridEmailAddressValidationResult `json:"result"`
}

// SendGridEmailVerifier asks the SendGrid validation API whether the domain is
// a suspected disposable provider.
type SendGridEmailVerifier struct {
	APIHost string
	APIKey  string
}

func NewSendGridVerifier(cfg *config.Config) (*SendGridEmailVerifier, error) {
	if cfg.SendGridEmailVerificationApiKey == "" {
		return nil, fmt.Errorf("sendgrid verifier requires an api key")
	}
	return &SendGridEmailVerifier{
		APIHost: cfg.SendGridApiHost,
		APIKey:  cfg.SendGridEmailVerificationApiKey,
	}, nil
}

func (v *SendGridEmailVerifier) Name() string {
	return "sendgrid"
}

func (v *SendGridEmailVerifier) VerifyEmail(ctx context.Context, addr types.Address) (Response, error) {
	body, err := json.Marshal(map[string]string{"email": addr.Raw, "source": "disposable-check"})
	if err != nil {
		return nil, fmt.Errorf("sendgrid marshal error: %w", err)
	}

	request := sendgrid.GetRequest(v.APIKey, "/v3/validations/email", v.APIHost)
	request.Method = "POST"
	request.Body = body

	response, err := sendgrid.API(request)
	if err != nil {
		return nil, fmt.Errorf("sendgrid api error: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("sendgrid api error: status=%d body=%s", response.StatusCode, truncate(response.Body))
	}

	var payload SendGridEmailAddressValidationResponse
	if err := json.Unmarshal([]byte(response.Body), &payload); err != nil {
		return nil, fmt.Errorf("sendgrid unmarshal error: %w", err)
	}

	return Response{
		"disposable": payload.Result.Checks.Domain.IsSuspectedDisposableAddress,
		"verdict":    payload.Result.Verdict,
		"score":      payload.Result.Score,
	}, nil
}
