package tokenexchange

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

	"github.com/axent-pl/jwtbearer/assertion"
	"github.com/axent-pl/jwtbearer/common"
	"github.com/axent-pl/jwtbearer/common/logx"
)

const (
	DefaultAPIVersion = "v50.0"
	UserAgentProduct  = "jwtbearer-go"

	// RedirectURI is sent with client credentials. It is always the production
	// login domain, also when the assertion targets the sandbox audience.
	RedirectURI = assertion.AudienceProduction

	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 1 << 20
)

// Client performs the JWT-bearer token exchange. It holds no per-exchange state
// and is safe for concurrent use.
type Client struct {
	httpClient    *http.Client
	ownsTransport bool
	apiVersion    string
}

type Option func(*Client)

// WithHTTPClient sets the transport. When callerOwns is false the client takes
// ownership and Close releases its idle connections.
func WithHTTPClient(hc *http.Client, callerOwns bool) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		c.httpClient = hc
		c.ownsTransport = !callerOwns
	}
}

// WithAPIVersion sets the version advertised in the User-Agent header.
func WithAPIVersion(v string) Option {
	return func(c *Client) {
		if v != "" {
			c.apiVersion = v
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		apiVersion:    DefaultAPIVersion,
		ownsTransport: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout:   defaultTimeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
		c.ownsTransport = true
	}
	return c
}

func (c *Client) UserAgent() string {
	return UserAgentProduct + "/" + c.apiVersion
}

// Close releases idle connections of an owned transport. A caller-owned
// transport is left untouched.
func (c *Client) Close() error {
	if c.ownsTransport {
		c.httpClient.CloseIdleConnections()
	}
	return nil
}

// NewRequest builds the form-encoded token request. With creds nil only
// grant_type and assertion are sent.
func (c *Client) NewRequest(ctx context.Context, signed assertion.SignedAssertion, tokenEndpoint string, creds *ClientCredentials) (*http.Request, error) {
	if signed == "" {
		return nil, fmt.Errorf("%w: assertion is required", common.ErrInvalidInput)
	}
	if err := validateEndpoint(tokenEndpoint); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", assertion.GrantTypeJWTBearer)
	if creds != nil {
		if err := creds.validate(); err != nil {
			return nil, err
		}
		creds.encode(form, RedirectURI)
	}
	form.Set("assertion", string(signed))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: could not build token request: %w", common.ErrInvalidInput, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent())
	return req, nil
}

// Exchange posts the assertion to tokenEndpoint once and classifies the answer.
//
// Transport failures and unparseable error bodies yield *AuthFailure with status 500.
// Provider errors yield *AuthFailure with the HTTP status and "<error>: <error_description>".
// An unparseable success body yields an error matching common.ErrMalformedResponse.
func (c *Client) Exchange(ctx context.Context, signed assertion.SignedAssertion, tokenEndpoint string, creds *ClientCredentials) (TokenResult, error) {
	req, err := c.NewRequest(ctx, signed, tokenEndpoint, creds)
	if err != nil {
		logx.L().Debug("could not build token request", "context", ctx, "error", err)
		return TokenResult{}, err
	}
	logx.L().Debug("token request built", "context", ctx, "state", StateBuilt, "endpoint", tokenEndpoint, "client_credentials", creds != nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TokenResult{}, transportFailure(ctx, err)
	}
	defer resp.Body.Close()
	logx.L().Debug("token request sent", "context", ctx, "state", StateSent, "status", resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return TokenResult{}, transportFailure(ctx, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		var result TokenResult
		if err := json.Unmarshal(body, &result); err != nil {
			logx.L().Debug("could not decode token response", "context", ctx, "state", StateFailedHTTP, "error", err)
			return TokenResult{}, fmt.Errorf("%w: %w", common.ErrMalformedResponse, err)
		}
		logx.L().Debug("token exchange succeeded", "context", ctx, "state", StateSucceeded, "instance_url", result.InstanceURL)
		return result, nil
	}

	return TokenResult{}, providerFailure(ctx, resp.StatusCode, body)
}

func transportFailure(ctx context.Context, err error) *AuthFailure {
	logx.L().Debug("token request failed", "context", ctx, "state", StateFailedTransport, "error", err)
	return &AuthFailure{
		StatusCode: http.StatusInternalServerError,
		Reason:     err.Error(),
		State:      StateFailedTransport,
		Err:        fmt.Errorf("%w: %w", common.ErrTransport, err),
	}
}

var errMissingErrorField = errors.New("error response has no error field")

// A body that does not decode, or decodes without an error code, is reported
// as an internal error whatever the original status was.
func providerFailure(ctx context.Context, status int, body []byte) *AuthFailure {
	var errResp errorResponse
	err := json.Unmarshal(body, &errResp)
	if err == nil && errResp.Error == "" {
		err = errMissingErrorField
	}
	if err != nil {
		logx.L().Debug("could not decode token error response", "context", ctx, "state", StateFailedHTTP, "status", status, "error", err)
		return &AuthFailure{
			StatusCode: http.StatusInternalServerError,
			Reason:     err.Error(),
			State:      StateFailedHTTP,
			Err:        fmt.Errorf("%w: %w", common.ErrMalformedResponse, err),
		}
	}
	logx.L().Debug("token request rejected", "context", ctx, "state", StateFailedHTTP, "status", status, "error", errResp.Error)
	return &AuthFailure{
		StatusCode: status,
		Reason:     errResp.reason(),
		State:      StateFailedHTTP,
		Err:        common.ErrProvider,
	}
}

func validateEndpoint(tokenEndpoint string) error {
	if tokenEndpoint == "" {
		return fmt.Errorf("%w: token endpoint is required", common.ErrInvalidInput)
	}
	u, err := url.Parse(tokenEndpoint)
	if err != nil {
		return fmt.Errorf("%w: invalid token endpoint: %w", common.ErrInvalidInput, err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("%w: token endpoint must be an absolute http(s) URL", common.ErrInvalidInput)
	}
	return nil
}
