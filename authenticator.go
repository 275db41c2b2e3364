// Package jwtbearer obtains OAuth access tokens with the JWT-bearer grant:
// it signs an assertion with a private key and exchanges it at the token endpoint.
package jwtbearer

import (
	"context"
	"net/http"
	"time"

	"github.com/axent-pl/jwtbearer/assertion"
	"github.com/axent-pl/jwtbearer/common/logx"
	"github.com/axent-pl/jwtbearer/tokenexchange"
)

// Request describes one authentication attempt.
type Request struct {
	ClientID      string
	Username      string
	PrivateKey    string // PEM, header and footer optional
	Passphrase    string // empty for cleartext keys
	TokenEndpoint string // e.g. https://test.salesforce.com/services/oauth2/token

	// ClientSecret switches to the client-credential form of the exchange
	// (client_id, client_secret and redirect_uri are added).
	ClientSecret string
}

// Result is the outcome of one successful attempt.
type Result struct {
	AccessToken string
	InstanceURL string
	ID          string
	TokenType   string
	Scope       string

	// JWT is the assertion that was exchanged, for diagnostics only.
	JWT assertion.SignedAssertion
}

type Authenticator struct {
	production bool
	builder    *assertion.Builder
	client     *tokenexchange.Client
}

type Option func(*options)

type options struct {
	production bool
	validity   time.Duration
	now        func() time.Time
	exchange   []tokenexchange.Option
}

// WithProduction selects the production (true, default) or sandbox audience.
func WithProduction(production bool) Option {
	return func(o *options) { o.production = production }
}

func WithAPIVersion(v string) Option {
	return func(o *options) { o.exchange = append(o.exchange, tokenexchange.WithAPIVersion(v)) }
}

// WithHTTPClient shares a transport. When callerOwns is false Close releases it.
func WithHTTPClient(hc *http.Client, callerOwns bool) Option {
	return func(o *options) { o.exchange = append(o.exchange, tokenexchange.WithHTTPClient(hc, callerOwns)) }
}

// WithValidity overrides the assertion lifetime.
func WithValidity(d time.Duration) Option {
	return func(o *options) { o.validity = d }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func New(opts ...Option) *Authenticator {
	o := options{production: true}
	for _, opt := range opts {
		opt(&o)
	}
	return &Authenticator{
		production: o.production,
		builder:    &assertion.Builder{Validity: o.validity, Now: o.now},
		client:     tokenexchange.NewClient(o.exchange...),
	}
}

func (a *Authenticator) Audience() string { return assertion.AudienceFor(a.production) }

// Authenticate builds the assertion and exchanges it once. Key problems are
// reported before any request is sent.
func (a *Authenticator) Authenticate(ctx context.Context, r Request) (Result, error) {
	signed, err := a.builder.Build(ctx, assertion.BuildParams{
		ClientID: r.ClientID,
		Username: r.Username,
		Audience: a.Audience(),
		Key:      assertion.NewPrivateKey(r.PrivateKey, r.Passphrase),
	})
	if err != nil {
		return Result{}, err
	}

	var creds *tokenexchange.ClientCredentials
	if r.ClientSecret != "" {
		creds = &tokenexchange.ClientCredentials{ClientID: r.ClientID, ClientSecret: r.ClientSecret}
	}

	token, err := a.client.Exchange(ctx, signed, r.TokenEndpoint, creds)
	if err != nil {
		logx.L().Debug("authentication failed", "context", ctx, "username", r.Username, "client_secret", logx.Present(r.ClientSecret), "error", err)
		return Result{}, err
	}

	return Result{
		AccessToken: token.AccessToken,
		InstanceURL: token.InstanceURL,
		ID:          token.ID,
		TokenType:   token.TokenType,
		Scope:       token.Scope,
		JWT:         signed,
	}, nil
}

// JWTPrivateKey authenticates with a passphrase-protected key, sending the assertion only.
func (a *Authenticator) JWTPrivateKey(ctx context.Context, clientID, privateKey, passphrase, username, tokenEndpoint string) (Result, error) {
	return a.Authenticate(ctx, Request{
		ClientID:      clientID,
		Username:      username,
		PrivateKey:    privateKey,
		Passphrase:    passphrase,
		TokenEndpoint: tokenEndpoint,
	})
}

// JWTPrivateKeyByClientID is JWTPrivateKey plus client credentials. The
// passphrase doubles as the client secret.
func (a *Authenticator) JWTPrivateKeyByClientID(ctx context.Context, clientID, privateKey, clientSecret, username, tokenEndpoint string) (Result, error) {
	return a.Authenticate(ctx, Request{
		ClientID:      clientID,
		Username:      username,
		PrivateKey:    privateKey,
		Passphrase:    clientSecret,
		TokenEndpoint: tokenEndpoint,
		ClientSecret:  clientSecret,
	})
}

// JWTUnencryptedPrivateKey authenticates with a cleartext key.
func (a *Authenticator) JWTUnencryptedPrivateKey(ctx context.Context, clientID, privateKey, username, tokenEndpoint string) (Result, error) {
	return a.Authenticate(ctx, Request{
		ClientID:      clientID,
		Username:      username,
		PrivateKey:    privateKey,
		TokenEndpoint: tokenEndpoint,
	})
}

// Close releases the transport when it is owned by the authenticator.
func (a *Authenticator) Close() error {
	return a.client.Close()
}
