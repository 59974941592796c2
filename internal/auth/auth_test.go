package auth

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/hecrelay/internal/pipeline"
)

func TestAuthenticator_Authenticate(t *testing.T) {
	a := NewAuthenticator("s3cret")

	tests := []struct {
		name    string
		header  string
		allowed bool
	}{
		{"exact match", "Bearer s3cret", true},
		{"splunk scheme", "Splunk s3cret", false},
		{"lowercase scheme", "bearer s3cret", false},
		{"uppercase scheme", "BEARER s3cret", false},
		{"double space", "Bearer  s3cret", false},
		{"leading space", " Bearer s3cret", false},
		{"scheme only", "Bearer ", false},
		{"missing header", "", false},
		{"wrong token", "Bearer nope", false},
		{"prefix of token", "Bearer s3cre", false},
		{"token with suffix", "Bearer s3cret2", false},
		{"case differs", "Bearer S3CRET", false},
		{"trailing space", "Bearer s3cret ", false},
		{"raw token without scheme", "s3cret", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Authenticate(tt.header)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, pipeline.ErrUnauthorized)
			}
		})
	}
}

func TestAuthenticator_EmptyCredentialRejectsAll(t *testing.T) {
	a := NewAuthenticator("")
	assert.ErrorIs(t, a.Authenticate("Bearer "), pipeline.ErrUnauthorized)
	assert.ErrorIs(t, a.Authenticate("Bearer anything"), pipeline.ErrUnauthorized)
}

func TestAuthenticator_Stage(t *testing.T) {
	a := NewAuthenticator("s3cret")

	header := http.Header{}
	header.Set("Authorization", "Bearer s3cret")
	req := pipeline.Request{Method: http.MethodPost, Header: header}

	out, err := a.Stage(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req, out)

	_, err = a.Stage(context.Background(), pipeline.Request{Header: http.Header{}})
	assert.ErrorIs(t, err, pipeline.ErrUnauthorized)
}
