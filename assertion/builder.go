package assertion

import (
	"context"
	"fmt"
	"time"

	"github.com/axent-pl/jwtbearer/common"
	"github.com/axent-pl/jwtbearer/common/logx"
	"github.com/axent-pl/jwtbearer/common/sig"
	jwtx "github.com/golang-jwt/jwt/v5"
)

// RFC 7523 authorization grant type.
const GrantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"

const DefaultValidity = 3 * time.Minute

type BuildParams struct {
	// OAuth2 client id (consumer key), becomes "iss"
	ClientID string

	// Provider username, becomes "sub"
	Username string

	// One of AudienceProduction or AudienceSandbox, becomes "aud"
	Audience string

	// Signing key material
	Key PrivateKey
}

func (BuildParams) Kind() common.Kind { return common.JWTBearer }

// Builder signs bearer assertions. The zero value is ready to use.
type Builder struct {
	// Validity is added to the current time to form "exp". Zero means DefaultValidity.
	Validity time.Duration

	// Now is the clock; nil means time.Now. Read once per build.
	Now func() time.Time

	// Alg overrides the algorithm derived from the key type (RS256 for RSA keys).
	Alg sig.SigAlg
}

var _ common.Issuer = (*Builder)(nil)

func (*Builder) Kind() common.Kind { return common.JWTBearer }

// Build validates the claims, decodes the key and returns the signed assertion.
// Key problems surface as *sig.KeyError.
func (b *Builder) Build(ctx context.Context, p BuildParams) (SignedAssertion, error) {
	claims, err := b.ClaimSet(p)
	if err != nil {
		logx.L().Debug("could not build assertion claims", "context", ctx, "error", err)
		return "", err
	}

	key, err := p.Key.signatureKey(b.Alg)
	if err != nil {
		logx.L().Debug("could not decode assertion signing key", "context", ctx, "error", err)
		return "", err
	}
	defer key.Zero()

	signed, err := b.Sign(claims, key)
	if err != nil {
		logx.L().Debug("could not sign assertion", "context", ctx, "error", err)
		return "", err
	}
	return signed, nil
}

func (b *Builder) ClaimSet(p BuildParams) (ClaimSet, error) {
	if p.ClientID == "" {
		return ClaimSet{}, fmt.Errorf("%w: client id is required", common.ErrInvalidInput)
	}
	if p.Username == "" {
		return ClaimSet{}, fmt.Errorf("%w: username is required", common.ErrInvalidInput)
	}
	if err := validateAudience(p.Audience); err != nil {
		return ClaimSet{}, err
	}
	if p.Key.IsZero() {
		return ClaimSet{}, &sig.KeyError{Reason: "empty key material"}
	}

	return ClaimSet{
		Issuer:    p.ClientID,
		Subject:   p.Username,
		Audience:  p.Audience,
		ExpiresAt: b.now().Add(b.validity()),
	}, nil
}

func (b *Builder) Sign(claims ClaimSet, key *sig.SignatureKey) (SignedAssertion, error) {
	signingMethod, err := key.Alg.ToGoJWT()
	if err != nil {
		return "", &sig.KeyError{Reason: "could not sign assertion", Err: err}
	}

	token := jwtx.NewWithClaims(signingMethod, claims.MapClaims())
	if key.Kid != "" {
		token.Header["kid"] = key.Kid
	}

	tokenString, err := token.SignedString(key.Key)
	if err != nil {
		return "", &sig.KeyError{Reason: "could not sign assertion", Err: err}
	}
	return SignedAssertion(tokenString), nil
}

// Issue builds an assertion for principal. An empty BuildParams.Username is taken
// from the principal subject.
func (b *Builder) Issue(ctx context.Context, principal common.Principal, issueParams common.IssueParams) ([]common.Artifact, error) {
	p, ok := issueParams.(BuildParams)
	if !ok {
		logx.L().Debug("could not cast IssueParams to BuildParams", "context", ctx)
		return nil, common.ErrInternal
	}
	if p.Username == "" {
		p.Username = string(principal.Subject)
	}

	signed, err := b.Build(ctx, p)
	if err != nil {
		return nil, err
	}

	return []common.Artifact{
		{
			Kind:      common.ArtifactClientAssertion,
			MediaType: "application/jwt",
			Bytes:     []byte(signed),
		},
		{
			Kind:      common.ArtifactGrantType,
			MediaType: "text/plain",
			Bytes:     []byte(GrantTypeJWTBearer),
		},
	}, nil
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now().UTC()
	}
	return time.Now().UTC()
}

func (b *Builder) validity() time.Duration {
	if b.Validity > 0 {
		return b.Validity
	}
	return DefaultValidity
}
