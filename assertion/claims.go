package assertion

import (
	"log/slog"
	"time"

	"github.com/axent-pl/jwtbearer/common/logx"
	jwtx "github.com/golang-jwt/jwt/v5"
)

// ClaimSet is the complete payload of a bearer assertion. No other claims are emitted.
type ClaimSet struct {
	Issuer    string    // client id (consumer key)
	Subject   string    // username
	Audience  string    // login domain
	ExpiresAt time.Time // issue time + validity
}

func (c ClaimSet) MapClaims() jwtx.MapClaims {
	return jwtx.MapClaims{
		"iss": c.Issuer,
		"sub": c.Subject,
		"aud": c.Audience,
		"exp": c.ExpiresAt.Unix(),
	}
}

// SignedAssertion is a compact serialized JWT bound to one token exchange.
type SignedAssertion string

func (a SignedAssertion) LogValue() slog.Value { return logx.Redacted(a).LogValue() }
