// Package auth gates relay requests on a shared bearer secret.
package auth

import (
	"context"
	"crypto/subtle"

	"github.com/telhawk-systems/hecrelay/internal/pipeline"
)

// Scheme is the only accepted Authorization scheme. Matching is exact.
const Scheme = "Bearer "

// Authenticator compares Authorization headers with the configured credential.
type Authenticator struct {
	expected []byte
}

// NewAuthenticator returns an Authenticator expecting "Bearer <credential>".
// An empty credential rejects every request.
func NewAuthenticator(credential string) *Authenticator {
	if credential == "" {
		return &Authenticator{}
	}
	return &Authenticator{expected: []byte(Scheme + credential)}
}

// Authenticate returns nil when headerValue is exactly "Bearer <credential>"
// and pipeline.ErrUnauthorized otherwise. The comparison is constant time.
func (a *Authenticator) Authenticate(headerValue string) error {
	if len(a.expected) == 0 {
		return pipeline.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(headerValue), a.expected) != 1 {
		return pipeline.ErrUnauthorized
	}
	return nil
}

// Stage is the pipeline form of Authenticate. It only reads headers.
func (a *Authenticator) Stage(_ context.Context, req pipeline.Request) (pipeline.Request, error) {
	if err := a.Authenticate(req.Header.Get("Authorization")); err != nil {
		return req, err
	}
	return req, nil
}
