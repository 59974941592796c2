package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/telhawk-systems/hecrelay/common/httputil"
	"github.com/telhawk-systems/hecrelay/internal/models"
)

// RelayClient posts event batches to a relay.
type RelayClient struct {
	baseURL string
	client  *http.Client
}

// NewRelayClient returns a client for the relay at baseURL.
func NewRelayClient(baseURL string) *RelayClient {
	return &RelayClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// StatusError is a non-200 relay response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("relay returned status %d: %s", e.StatusCode, e.Message)
}

// SendBatch marshals batch and posts it, gzip-compressed when compress is set.
// batch is anything that marshals to a JSON array of events.
func (c *RelayClient) SendBatch(ctx context.Context, token string, batch any, compress bool) (*models.BatchResponse, error) {
	body, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}
	return c.Post(ctx, token, body, compress)
}

// Post sends an already encoded JSON body.
func (c *RelayClient) Post(ctx context.Context, token string, body []byte, compress bool) (*models.BatchResponse, error) {
	if compress {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return nil, fmt.Errorf("compress batch: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("compress batch: %w", err)
		}
		body = buf.Bytes()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if compress {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errBody httputil.ErrorBody
		_ = json.Unmarshal(data, &errBody)
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errBody.Error}
	}

	var result models.BatchResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}
