package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/cruxstack/disposable-email-checker-go/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAddress(t *testing.T, raw string) types.Address {
	t.Helper()
	addr, err := types.ParseAddress(raw)
	require.NoError(t, err)
	return addr
}

type requestRecord struct {
	mu          sync.Mutex
	method      string
	path        string
	escapedPath string
	query       url.Values
}

func (r *requestRecord) snapshot() (method, path, escapedPath string, query url.Values) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.method, r.path, r.escapedPath, r.query
}

// jsonServer serves body with status for every request and records the last request.
func jsonServer(t *testing.T, status int, body string) (*httptest.Server, *requestRecord) {
	t.Helper()
	rec := &requestRecord{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.escapedPath = r.URL.EscapedPath()
		rec.query = r.URL.Query()
		rec.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, rec
}

func TestNormalize_RulePrecedence(t *testing.T) {
	testCases := []struct {
		name     string
		resp     Response
		expected types.Verdict
	}{
		{"disposable true", Response{"disposable": true}, types.VerdictDisposable},
		{"disposable false", Response{"disposable": false}, types.VerdictNotDisposable},
		{"valid true", Response{"valid": true}, types.VerdictNotDisposable},
		{"valid false", Response{"valid": false}, types.VerdictDisposable},
		{"status invalid", Response{"status": "invalid"}, types.VerdictDisposable},
		{"status valid", Response{"status": "valid"}, types.VerdictNotDisposable},
		{"deliverable true", Response{"deliverable": true}, types.VerdictNotDisposable},
		{"deliverable false", Response{"deliverable": false}, types.VerdictDisposable},
		{"disposable wins over valid", Response{"valid": false, "disposable": false}, types.VerdictNotDisposable},
		{"valid wins over status", Response{"status": "invalid", "valid": true}, types.VerdictNotDisposable},
		{"non bool disposable falls through", Response{"disposable": "yes", "valid": false}, types.VerdictDisposable},
		{"no known field", Response{"domain": "example.com", "mx": true}, types.VerdictUnknown},
		{"empty response", Response{}, types.VerdictUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			verdict, detail := Normalize(tc.resp, DefaultRules())
			assert.Equal(t, tc.expected, verdict)
			assert.NotEmpty(t, detail)
		})
	}
}

func TestNormalize_UnknownDetailIsTruncated(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}

	verdict, detail := Normalize(Response{"blob": string(long)}, DefaultRules())
	assert.Equal(t, types.VerdictUnknown, verdict)
	assert.Contains(t, detail, "unrecognized response")
	assert.Less(t, len(detail), 300)
}

func TestServiceBuildURL(t *testing.T) {
	testCases := []struct {
		name     string
		tmpl     string
		email    string
		expected string
	}{
		{
			name:     "path placeholder",
			tmpl:     "https://api.example.com/email/{email}",
			email:    "user@example.com",
			expected: "https://api.example.com/email/user@example.com",
		},
		{
			name:     "path placeholder escapes separators",
			tmpl:     "https://api.example.com/email/{email}",
			email:    "a b/c?d@example.com",
			expected: "https://api.example.com/email/a%20b%2Fc%3Fd@example.com",
		},
		{
			name:     "query placeholder",
			tmpl:     "https://api.example.com/validate?email={email}",
			email:    "user+tag@example.com",
			expected: "https://api.example.com/validate?email=user%2Btag%40example.com",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Service{Name: "test", URLTemplate: tc.tmpl}.BuildURL(tc.email)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}

	_, err := Service{Name: "broken", URLTemplate: "https://api.example.com/email"}.BuildURL("a@b.com")
	assert.Error(t, err)
}

func TestHTTPVerifier_PathRequest(t *testing.T) {
	server, last := jsonServer(t, http.StatusOK, `{"disposable": true}`)

	v := NewHTTPVerifier(Service{Name: "kickbox", URLTemplate: server.URL + "/v1/disposable/{email}"}, time.Second)
	resp, err := v.VerifyEmail(context.Background(), mustAddress(t, "a b@example.com"))
	require.NoError(t, err)

	method, _, escapedPath, _ := last.snapshot()
	assert.Equal(t, http.MethodGet, method)
	assert.Equal(t, "/v1/disposable/a%20b@example.com", escapedPath)
	assert.Equal(t, true, resp["disposable"])
}

func TestHTTPVerifier_QueryRequest(t *testing.T) {
	server, last := jsonServer(t, http.StatusOK, `{"status": "valid"}`)

	v := NewHTTPVerifier(Service{Name: "isitarealemail", URLTemplate: server.URL + "/api/email/validate?email={email}"}, time.Second)
	_, err := v.VerifyEmail(context.Background(), mustAddress(t, "user+tag@example.com"))
	require.NoError(t, err)

	_, path, _, query := last.snapshot()
	assert.Equal(t, "/api/email/validate", path)
	assert.Equal(t, "user+tag@example.com", query.Get("email"))
}

func TestHTTPVerifier_Failures(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"rate limited", http.StatusTooManyRequests, `{"disposable": true}`},
		{"not json", http.StatusOK, `<html>maintenance</html>`},
		{"json array", http.StatusOK, `[true]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server, _ := jsonServer(t, tc.status, tc.body)
			v := NewHTTPVerifier(Service{Name: "svc", URLTemplate: server.URL + "/{email}"}, time.Second)

			result := Verify(context.Background(), v, mustAddress(t, "user@example.com"), DefaultRules())
			assert.Equal(t, types.VerdictUnknown, result.Verdict)
			assert.Error(t, result.Err)
			assert.Contains(t, result.Detail, "Error:")
			assert.Equal(t, "svc", result.Source)
		})
	}
}

func TestHTTPVerifier_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	v := NewHTTPVerifier(Service{Name: "gone", URLTemplate: base + "/{email}"}, time.Second)
	result := Verify(context.Background(), v, mustAddress(t, "user@example.com"), DefaultRules())

	assert.Equal(t, types.VerdictUnknown, result.Verdict)
	assert.Error(t, result.Err)
}

func TestHTTPVerifier_SlowEndpointTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	v := NewHTTPVerifier(Service{Name: "slow", URLTemplate: server.URL + "/{email}"}, 100*time.Millisecond)

	start := time.Now()
	result := Verify(context.Background(), v, mustAddress(t, "user@example.com"), DefaultRules())

	assert.Equal(t, types.VerdictUnknown, result.Verdict)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestProbeSet_MixedResponses(t *testing.T) {
	bodies := []string{
		`{"disposable": true}`,
		`{"valid": true}`,
		`{"status": "invalid"}`,
		`{"deliverable": true}`,
	}

	verifiers := make([]EmailVerifier, 0, len(bodies)+1)
	for i, body := range bodies {
		server, _ := jsonServer(t, http.StatusOK, body)
		verifiers = append(verifiers, NewHTTPVerifier(Service{Name: string(rune('a' + i)), URLTemplate: server.URL + "/{email}"}, time.Second))
	}
	verifiers = append(verifiers, &failingVerifier{err: errors.New("connection refused")})

	set := NewProbeSet(verifiers)
	addr := mustAddress(t, "user@example.com")

	expected := []types.Verdict{
		types.VerdictDisposable,
		types.VerdictNotDisposable,
		types.VerdictDisposable,
		types.VerdictNotDisposable,
		types.VerdictUnknown,
	}
	require.Equal(t, len(expected), set.Len())
	for i, want := range expected {
		got := set.Probe(context.Background(), i, addr)
		assert.Equal(t, want, got.Verdict, "probe %d (%s)", i, got.Source)
	}
}

func TestParseServices(t *testing.T) {
	services, err := ParseServices([]string{
		"kickbox=http://localhost:1/v1/disposable/{email}",
		" local = http://localhost:2/check?email={email}&x=1 ",
	})
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "kickbox", services[0].Name)
	assert.Equal(t, "local", services[1].Name)
	assert.Equal(t, "http://localhost:2/check?email={email}&x=1", services[1].URLTemplate)

	_, err = ParseServices([]string{"missing-template"})
	assert.Error(t, err)

	_, err = ParseServices([]string{"nope=http://localhost/check"})
	assert.Error(t, err)
}

func TestDefaultServices(t *testing.T) {
	services := DefaultServices()
	require.Len(t, services, 5)
	for _, svc := range services {
		_, err := svc.BuildURL("user@example.com")
		assert.NoError(t, err, svc.Name)
	}
}

func TestSendGridVerifier_DisposableCheck(t *testing.T) {
	testCases := []struct {
		name       string
		disposable bool
		expected   types.Verdict
	}{
		{"suspected disposable", true, types.VerdictDisposable},
		{"regular domain", false, types.VerdictNotDisposable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v3/validations/email", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)

				var reqBody struct {
					Email string `json:"email"`
				}
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
				assert.Equal(t, "user@example.com", reqBody.Email)

				resp := SendGridEmailAddressValidationResponse{}
				resp.Result.Email = reqBody.Email
				resp.Result.Verdict = "Valid"
				resp.Result.Checks.Domain.IsSuspectedDisposableAddress = tc.disposable

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(resp)
			}))
			defer server.Close()

			v := &SendGridEmailVerifier{APIHost: server.URL, APIKey: "test-api-key"}
			result := Verify(context.Background(), v, mustAddress(t, "user@example.com"), DefaultRules())

			assert.NoError(t, result.Err)
			assert.Equal(t, "sendgrid", result.Source)
			assert.Equal(t, tc.expected, result.Verdict)
		})
	}
}

func TestSendGridVerifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"unauthorized"}]}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	v := &SendGridEmailVerifier{APIHost: server.URL, APIKey: "bad-key"}
	result := Verify(context.Background(), v, mustAddress(t, "user@example.com"), DefaultRules())

	assert.Equal(t, types.VerdictUnknown, result.Verdict)
	assert.Error(t, result.Err)
}

type failingVerifier struct {
	err error
}

func (f *failingVerifier) Name() string {
	return "failing"
}

func (f *failingVerifier) VerifyEmail(ctx context.Context, addr types.Address) (Response, error) {
	return nil, f.err
}
