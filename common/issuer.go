package common

import (
	"context"
)

type IssueParams interface {
	Kind() Kind
}

// Issuer produces signed artifacts (assertions, grant type markers) for a principal.
// Implementations must not retain the artifacts they return.
type Issuer interface {
	Kind() Kind
	Issue(ctx context.Context, principal Principal, issueParams IssueParams) ([]Artifact, error)
}
