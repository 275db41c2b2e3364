package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	jwtx "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

const (
	TokenPath   = "/services/oauth2/token"
	AccessToken = "jhjhdjashdjashdjashdjashdjasdhsjadhasjdhj"
	InstanceURL = "https://my-org.salesforce.com"
	IdentityURL = "https://login.salesforce.com/id/00Dxx0000000000/005xx000000000"

	// Username the provider rejects with invalid_grant.
	RejectedUsername = "user-error"
)

// TokenRequest is what the provider received.
type TokenRequest struct {
	Form   url.Values
	Header http.Header
}

// Provider mimics the provider token endpoint. Unknown paths answer with the
// router's plain-text 404.
type Provider struct {
	Server *httptest.Server

	verify func(assertion string) (username string, err error)

	calls atomic.Int64
	mu    sync.Mutex
	last  TokenRequest
}

// NewProvider starts a provider that reads "sub" from assertions without
// checking signatures.
func NewProvider(t *testing.T) *Provider {
	t.Helper()
	return NewVerifyingProvider(t, UnverifiedSubject)
}

// NewVerifyingProvider starts a provider that validates assertions with verify.
// A verify error yields invalid_grant.
func NewVerifyingProvider(t *testing.T, verify func(assertion string) (username string, err error)) *Provider {
	t.Helper()
	p := &Provider{verify: verify}

	r := mux.NewRouter()
	r.HandleFunc(TokenPath, p.token).Methods(http.MethodPost)
	r.HandleFunc("/html404", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<html><body>Not Found</body></html>"))
	})

	p.Server = httptest.NewServer(r)
	t.Cleanup(p.Server.Close)
	return p
}

// URL returns the absolute URL of path on the provider.
func (p *Provider) URL(path string) string { return p.Server.URL + path }

func (p *Provider) TokenURL() string { return p.URL(TokenPath) }

// Calls counts requests that reached the token handler.
func (p *Provider) Calls() int64 { return p.calls.Load() }

func (p *Provider) Last() TokenRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Provider) token(w http.ResponseWriter, r *http.Request) {
	p.calls.Add(1)
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request", "error_description": err.Error()})
		return
	}
	p.mu.Lock()
	p.last = TokenRequest{Form: r.PostForm, Header: r.Header.Clone()}
	p.mu.Unlock()

	if r.PostForm.Get("grant_type") != "urn:ietf:params:oauth:grant-type:jwt-bearer" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type", "error_description": "grant type not supported"})
		return
	}

	username, err := p.verify(r.PostForm.Get("assertion"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": err.Error()})
		return
	}
	if username == RejectedUsername {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "an error description"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": AccessToken,
		"instance_url": InstanceURL,
		"id":           IdentityURL,
		"token_type":   "Bearer",
		"scope":        "api",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// UnverifiedSubject reads "sub" from an assertion without checking its signature.
func UnverifiedSubject(assertion string) (string, error) {
	claims := jwtx.MapClaims{}
	if _, _, err := jwtx.NewParser().ParseUnverified(assertion, claims); err != nil {
		return "", err
	}
	return claims.GetSubject()
}
