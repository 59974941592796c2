package pipeline

import (
	"context"
	"io"
	"net/http"
)

// Request is the value passed between stages. Stages never modify the value
// they receive; a stage that changes the body or headers returns a new one.
type Request struct {
	Method string
	Header http.Header
	Body   io.Reader
}

// FromHTTP builds the pipeline view of r. The header is cloned so later
// stages cannot reach back into r.
func FromHTTP(r *http.Request) Request {
	return Request{
		Method: r.Method,
		Header: r.Header.Clone(),
		Body:   r.Body,
	}
}

// WithBody returns a copy of req reading from body.
func (req Request) WithBody(body io.Reader) Request {
	req.Body = body
	return req
}

// WithoutHeader returns a copy of req with key removed from a fresh header.
func (req Request) WithoutHeader(key string) Request {
	req.Header = req.Header.Clone()
	req.Header.Del(key)
	return req
}

// Stage transforms a request or rejects it with an error wrapping an *Error.
type Stage func(ctx context.Context, req Request) (Request, error)

// Pipeline runs stages in order and stops at the first rejection.
type Pipeline struct {
	stages []Stage
}

// New returns a Pipeline running stages in the given order.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Run feeds req through every stage.
func (p *Pipeline) Run(ctx context.Context, req Request) (Request, error) {
	for _, stage := range p.stages {
		next, err := stage(ctx, req)
		if err != nil {
			return req, err
		}
		req = next
	}
	return req, nil
}

// Len reports the number of stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// RequireMethod rejects requests whose method is not method.
func RequireMethod(method string) Stage {
	return func(_ context.Context, req Request) (Request, error) {
		if req.Method != method {
			return req, ErrMethodNotAllowed
		}
		return req, nil
	}
}

// LimitBody caps the number of body bytes later stages may read. Reading
// past the cap fails with ErrBodyTooLarge.
func LimitBody(max int64) Stage {
	return func(_ context.Context, req Request) (Request, error) {
		return req.WithBody(&limitedReader{r: req.Body, remaining: max}), nil
	}
}

type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.r == nil {
		return 0, io.EOF
	}
	if l.remaining < 0 {
		return 0, ErrBodyTooLarge
	}
	// Allow one byte past the limit so an exact-size body is not rejected.
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrBodyTooLarge
	}
	return n, err
}
