package common

type SubjectID string

// Principal is the identity an assertion is issued for.
// For the JWT-bearer grant the subject is the provider username.
type Principal struct {
	Subject    SubjectID
	Attributes map[string]any
}
