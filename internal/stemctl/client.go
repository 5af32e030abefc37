// Package stemctl is the operator client for a running stemd daemon:
// a thin HTTP client plus the cobra command tree wrapping it.
package stemctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stemd/pkg/types"
)

const defaultServer = "http://127.0.0.1:8000"

// Client talks to one stemd daemon.
type Client struct {
	base string
	hc   *http.Client
}

// NewClient builds a client for the given base URL. Empty means the
// default loopback address.
func NewClient(server string, timeout time.Duration) *Client {
	base := strings.TrimRight(strings.TrimSpace(server), "/")
	if base == "" {
		base = defaultServer
	}
	return &Client{base: base, hc: &http.Client{Timeout: timeout}}
}

// APIError is a non-2xx response decoded from the daemon's error payload.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Code) }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr types.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return &APIError{Code: resp.StatusCode, Message: apiErr.Error}
		}
		return &APIError{Code: resp.StatusCode, Message: resp.Status}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Health(ctx context.Context) (types.HealthResponse, error) {
	var out types.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *Client) Status(ctx context.Context) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.do(ctx, http.MethodGet, "/status", nil, &out)
	return out, err
}

func (c *Client) LoadModel(ctx context.Context, name string) (types.ModelActionResponse, error) {
	var out types.ModelActionResponse
	err := c.do(ctx, http.MethodPost, "/models/load/"+url.PathEscape(name), nil, &out)
	return out, err
}

func (c *Client) UnloadModel(ctx context.Context, name string) (types.ModelActionResponse, error) {
	var out types.ModelActionResponse
	err := c.do(ctx, http.MethodPost, "/models/unload/"+url.PathEscape(name), nil, &out)
	return out, err
}

func (c *Client) Submit(ctx context.Context, req types.SeparationRequest) (types.SubmitResponse, error) {
	var out types.SubmitResponse
	err := c.do(ctx, http.MethodPost, "/process/separate", req, &out)
	return out, err
}

func (c *Client) Job(ctx context.Context, id string) (types.JobRecord, error) {
	var out types.JobRecord
	err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) Cancel(ctx context.Context, id string) (types.CancelResponse, error) {
	var out types.CancelResponse
	err := c.do(ctx, http.MethodPost, "/jobs/"+url.PathEscape(id)+"/cancel", nil, &out)
	return out, err
}

// WaitForJob polls the job until it reaches a terminal status. The last
// seen record is returned alongside the context error on cancellation.
func (c *Client) WaitForJob(ctx context.Context, id string, interval time.Duration) (types.JobRecord, error) {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		rec, err := c.Job(ctx, id)
		if err != nil {
			return types.JobRecord{}, err
		}
		if rec.Status.Terminal() {
			return rec, nil
		}
		select {
		case <-ctx.Done():
			return rec, ctx.Err()
		case <-t.C:
		}
	}
}
