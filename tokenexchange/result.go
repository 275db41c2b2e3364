package tokenexchange

import "fmt"

// State of a single exchange. Built -> Sent -> one terminal state.
type State string

const (
	StateBuilt           State = "built"
	StateSent            State = "sent"
	StateSucceeded       State = "succeeded"
	StateFailedHTTP      State = "failed_http"
	StateFailedTransport State = "failed_transport"
)

// TokenResult is the successful token endpoint response.
type TokenResult struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	ID          string `json:"id"`
	TokenType   string `json:"token_type,omitempty"`
	Scope       string `json:"scope,omitempty"`
	IssuedAt    string `json:"issued_at,omitempty"`
	Signature   string `json:"signature,omitempty"`
}

// #nosec G101
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e errorResponse) reason() string {
	return fmt.Sprintf("%s: %s", e.Error, e.ErrorDescription)
}

// AuthFailure is the classified outcome of a failed exchange.
//
// Err matches common.ErrTransport, common.ErrProvider or common.ErrMalformedResponse.
type AuthFailure struct {
	StatusCode int
	Reason     string
	State      State
	Err        error
}

func (e *AuthFailure) Error() string { return e.Reason }

func (e *AuthFailure) Unwrap() error { return e.Err }
