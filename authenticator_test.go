package jwtbearer_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/axent-pl/jwtbearer"
	"github.com/axent-pl/jwtbearer/assertion"
	"github.com/axent-pl/jwtbearer/common"
	"github.com/axent-pl/jwtbearer/common/sig"
	"github.com/axent-pl/jwtbearer/internal/testutil"
	"github.com/axent-pl/jwtbearer/tokenexchange"
	jwtx "github.com/golang-jwt/jwt/v5"
)

// verifyFor checks signature, expiry and audience before handing back "sub".
func verifyFor(audience string) func(string) (string, error) {
	return func(signed string) (string, error) {
		claims := jwtx.MapClaims{}
		_, err := jwtx.ParseWithClaims(signed, claims, func(_ *jwtx.Token) (any, error) {
			return &testutil.RSAKey().PublicKey, nil
		}, jwtx.WithAudience(audience), jwtx.WithExpirationRequired(), jwtx.WithValidMethods([]string{"RS256"}))
		if err != nil {
			return "", err
		}
		return claims.GetSubject()
	}
}

func TestAuthenticator_Authenticate(t *testing.T) {
	rsaKey := testutil.RSAKey()

	tests := []struct {
		name       string
		production bool
		request    func(p *testutil.Provider) jwtbearer.Request
		wantErrIs  error
		wantStatus int
		wantCalls  int64
	}{
		{
			name:       "cleartext key",
			production: true,
			request: func(p *testutil.Provider) jwtbearer.Request {
				return jwtbearer.Request{
					ClientID:      "3MVG9-client",
					Username:      "user@example.com",
					PrivateKey:    testutil.PKCS1PEM(rsaKey),
					TokenEndpoint: p.TokenURL(),
				}
			},
			wantCalls: 1,
		},
		{
			name:       "encrypted key",
			production: true,
			request: func(p *testutil.Provider) jwtbearer.Request {
				return jwtbearer.Request{
					ClientID:      "3MVG9-client",
					Username:      "user@example.com",
					PrivateKey:    testutil.EncryptedPKCS8PEM(t, rsaKey, testutil.Passphrase),
					Passphrase:    testutil.Passphrase,
					TokenEndpoint: p.TokenURL(),
				}
			},
			wantCalls: 1,
		},
		{
			name:       "sandbox audience",
			production: false,
			request: func(p *testutil.Provider) jwtbearer.Request {
				return jwtbearer.Request{
					ClientID:      "3MVG9-client",
					Username:      "user@example.com.test",
					PrivateKey:    testutil.PKCS1PEM(rsaKey),
					TokenEndpoint: p.TokenURL(),
				}
			},
			wantCalls: 1,
		},
		{
			name:       "wrong passphrase never reaches the provider",
			production: true,
			request: func(p *testutil.Provider) jwtbearer.Request {
				return jwtbearer.Request{
					ClientID:      "3MVG9-client",
					Username:      "user@example.com",
					PrivateKey:    testutil.EncryptedPKCS8PEM(t, rsaKey, testutil.Passphrase),
					Passphrase:    "wrong",
					TokenEndpoint: p.TokenURL(),
				}
			},
			wantErrIs: common.ErrKey,
		},
		{
			name:       "rejected user",
			production: true,
			request: func(p *testutil.Provider) jwtbearer.Request {
				return jwtbearer.Request{
					ClientID:      "3MVG9-client",
					Username:      testutil.RejectedUsername,
					PrivateKey:    testutil.PKCS1PEM(rsaKey),
					TokenEndpoint: p.TokenURL(),
				}
			},
			wantErrIs:  common.ErrProvider,
			wantStatus: http.StatusBadRequest,
			wantCalls:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := testutil.NewVerifyingProvider(t, verifyFor(assertion.AudienceFor(tt.production)))
			auth := jwtbearer.New(jwtbearer.WithProduction(tt.production))
			defer auth.Close()

			got, gotErr := auth.Authenticate(context.Background(), tt.request(provider))
			if provider.Calls() != tt.wantCalls {
				t.Errorf("want %d provider calls, got %d", tt.wantCalls, provider.Calls())
			}
			if gotErr != nil {
				if tt.wantErrIs == nil {
					t.Fatalf("Authenticate() failed: %v", gotErr)
				}
				if !errors.Is(gotErr, tt.wantErrIs) {
					t.Fatalf("want error matching %v, got %v", tt.wantErrIs, gotErr)
				}
				if tt.wantStatus != 0 {
					var failure *tokenexchange.AuthFailure
					if !errors.As(gotErr, &failure) {
						t.Fatalf("want *AuthFailure, got %T", gotErr)
					}
					if failure.StatusCode != tt.wantStatus {
						t.Errorf("want status %d, got %d", tt.wantStatus, failure.StatusCode)
					}
				}
				return
			}
			if tt.wantErrIs != nil {
				t.Fatal("Authenticate() succeeded unexpectedly")
			}
			if got.AccessToken != testutil.AccessToken {
				t.Errorf("unexpected access token: %s", got.AccessToken)
			}
			if got.InstanceURL != testutil.InstanceURL {
				t.Errorf("unexpected instance url: %s", got.InstanceURL)
			}
			if got.ID != testutil.IdentityURL {
				t.Errorf("unexpected identity url: %s", got.ID)
			}
			if string(got.JWT) != provider.Last().Form.Get("assertion") {
				t.Error("result JWT differs from the exchanged assertion")
			}
		})
	}
}

func TestAuthenticator_KeyErrorType(t *testing.T) {
	provider := testutil.NewProvider(t)
	auth := jwtbearer.New()

	_, err := auth.JWTPrivateKey(context.Background(), "3MVG9-client",
		testutil.LegacyEncryptedPEM(t, testutil.RSAKey(), testutil.Passphrase), "wrong",
		"user@example.com", provider.TokenURL())
	var keyErr *sig.KeyError
	if !errors.As(err, &keyErr) {
		t.Fatalf("want *sig.KeyError, got %T: %v", err, err)
	}
	var failure *tokenexchange.AuthFailure
	if errors.As(err, &failure) {
		t.Fatal("key error reported as AuthFailure")
	}
	if provider.Calls() != 0 {
		t.Fatalf("provider was called %d times", provider.Calls())
	}
}

func TestAuthenticator_JWTPrivateKeyByClientID(t *testing.T) {
	provider := testutil.NewVerifyingProvider(t, verifyFor("https://test.salesforce.com"))
	auth := jwtbearer.New(jwtbearer.WithProduction(false))

	_, err := auth.JWTPrivateKeyByClientID(context.Background(), "3MVG9-client",
		testutil.EncryptedPKCS8PEM(t, testutil.RSAKey(), testutil.Passphrase), testutil.Passphrase,
		"user@example.com", provider.TokenURL())
	if err != nil {
		t.Fatalf("JWTPrivateKeyByClientID() failed: %v", err)
	}

	form := provider.Last().Form
	if got := form.Get("client_id"); got != "3MVG9-client" {
		t.Errorf("unexpected client_id: %s", got)
	}
	if got := form.Get("client_secret"); got != testutil.Passphrase {
		t.Errorf("unexpected client_secret: %s", got)
	}
	if got := form.Get("redirect_uri"); got != "https://login.salesforce.com" {
		t.Errorf("unexpected redirect_uri: %s", got)
	}
}

func TestAuthenticator_JWTUnencryptedPrivateKey(t *testing.T) {
	provider := testutil.NewProvider(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	cleartext := jwtbearer.New(jwtbearer.WithClock(clock))
	got, err := cleartext.JWTUnencryptedPrivateKey(context.Background(), "3MVG9-client",
		testutil.PKCS1PEM(testutil.RSAKey()), "user@example.com", provider.TokenURL())
	if err != nil {
		t.Fatalf("JWTUnencryptedPrivateKey() failed: %v", err)
	}
	if form := provider.Last().Form; form.Has("client_id") || form.Has("client_secret") || form.Has("redirect_uri") {
		t.Errorf("unexpected client credentials in form: %v", form)
	}

	encrypted := jwtbearer.New(jwtbearer.WithClock(clock))
	other, err := encrypted.JWTPrivateKey(context.Background(), "3MVG9-client",
		testutil.EncryptedPKCS8PEM(t, testutil.RSAKey(), testutil.Passphrase), testutil.Passphrase,
		"user@example.com", provider.TokenURL())
	if err != nil {
		t.Fatalf("JWTPrivateKey() failed: %v", err)
	}
	if got.JWT != other.JWT {
		t.Error("cleartext and encrypted keys produced different assertions")
	}
}

func TestAuthenticator_Audience(t *testing.T) {
	if got := jwtbearer.New().Audience(); got != "https://login.salesforce.com" {
		t.Errorf("default audience: got %s", got)
	}
	if got := jwtbearer.New(jwtbearer.WithProduction(false)).Audience(); got != "https://test.salesforce.com" {
		t.Errorf("sandbox audience: got %s", got)
	}
}

func TestAuthenticator_Concurrent(t *testing.T) {
	provider := testutil.NewProvider(t)
	auth := jwtbearer.New()
	defer auth.Close()
	key := testutil.PKCS1PEM(testutil.RSAKey())

	const attempts = 16
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			username := fmt.Sprintf("user-%d@example.com", i)
			got, err := auth.JWTUnencryptedPrivateKey(context.Background(), "3MVG9-client", key, username, provider.TokenURL())
			if err != nil {
				t.Errorf("attempt %d failed: %v", i, err)
				return
			}
			if got.AccessToken != testutil.AccessToken {
				t.Errorf("attempt %d: unexpected access token: %s", i, got.AccessToken)
			}
			sub, err := testutil.UnverifiedSubject(string(got.JWT))
			if err != nil {
				t.Errorf("attempt %d: unreadable assertion: %v", i, err)
				return
			}
			if sub != username {
				t.Errorf("attempt %d: assertion carries subject %s", i, sub)
			}
		}(i)
	}
	wg.Wait()

	if provider.Calls() != attempts {
		t.Fatalf("want %d provider calls, got %d", attempts, provider.Calls())
	}
}
