package tokenexchange

import (
	"fmt"
	"net/url"

	"github.com/axent-pl/jwtbearer/common"
)

// ClientCredentials are sent as form fields next to the assertion
// (client_secret_post).
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

func (c ClientCredentials) validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: missing client_id", common.ErrInvalidInput)
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("%w: missing client_secret", common.ErrInvalidInput)
	}
	return nil
}

func (c ClientCredentials) encode(form url.Values, redirectURI string) {
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("redirect_uri", redirectURI)
}
