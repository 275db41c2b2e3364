package common

import "errors"

var ErrInvalidInput = errors.New("bad input")
var ErrInternal = errors.New("internal error")

// Key material could not be decoded, decrypted or used for signing.
var ErrKey = errors.New("invalid private key")

// The token endpoint could not be reached or its response could not be read.
var ErrTransport = errors.New("transport failure")

// The token endpoint answered with an OAuth error body.
var ErrProvider = errors.New("provider rejected request")

// The token endpoint answered with a body that is not the expected JSON.
var ErrMalformedResponse = errors.New("malformed response")
