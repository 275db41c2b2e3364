package assertion

import (
	"fmt"

	"github.com/axent-pl/jwtbearer/common"
)

const (
	AudienceProduction = "https://login.salesforce.com"
	AudienceSandbox    = "https://test.salesforce.com"
)

// AudienceFor selects the login domain; the token endpoint URL plays no part in it.
func AudienceFor(production bool) string {
	if production {
		return AudienceProduction
	}
	return AudienceSandbox
}

func validateAudience(aud string) error {
	switch aud {
	case AudienceProduction, AudienceSandbox:
		return nil
	default:
		return fmt.Errorf("%w: unknown audience %q", common.ErrInvalidInput, aud)
	}
}
