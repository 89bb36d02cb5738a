package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/branchtrace/lbrd/internal/engine"
)

// Client communicates with the daemon over a Unix socket.
type Client struct {
	sockPath   string
	httpClient *http.Client
}

// NewClient creates a daemon client connected to the given socket path.
func NewClient(sockPath string) *Client {
	return &Client{
		sockPath: sockPath,
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
					return net.Dial("unix", sockPath)
				},
			},
		},
	}
}

// Health returns the daemon's health status.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.do(ctx, http.MethodGet, "/v1/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Enable starts tracing pid with the given selection filter (0 = default).
func (c *Client) Enable(ctx context.Context, pid uint32, filter uint64) error {
	return c.do(ctx, http.MethodPost, "/v1/traces", EnableRequest{Pid: pid, Filter: filter}, nil)
}

// Disable stops tracing pid and its traced descendants.
func (c *Client) Disable(ctx context.Context, pid uint32) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/v1/traces/%d", pid), nil, nil)
}

// SetFilter updates pid's selection filter.
func (c *Client) SetFilter(ctx context.Context, pid uint32, filter uint64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/v1/traces/%d/filter", pid), FilterRequest{Filter: filter}, nil)
}

// Dump retrieves a decoded snapshot of pid's branch history.
func (c *Client) Dump(ctx context.Context, pid uint32) (*engine.Snapshot, error) {
	var snap engine.Snapshot
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/traces/%d/dump", pid), nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// List returns the currently traced pids.
func (c *Client) List(ctx context.Context) ([]TraceInfo, error) {
	var infos []TraceInfo
	if err := c.do(ctx, http.MethodGet, "/v1/traces", nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// Dispatch sends a raw wire-protocol command.
func (c *Client) Dispatch(ctx context.Context, req engine.Request) (*engine.Response, error) {
	var resp engine.Response
	if err := c.do(ctx, http.MethodPost, "/v1/dispatch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon to exit.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/shutdown", nil, nil)
}

// do performs one request against the daemon, decoding a JSON body into
// out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, "http://lbrd"+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding daemon response: %w", err)
		}
	}
	return nil
}
