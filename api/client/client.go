package client

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

	"github.com/abcfe/abcfe-metadata/metadata"
)

// Largest response body read from the store
const maxResponseBytes = 4 << 20

// Client is the HTTP metadata store client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// StatusError is a non-2xx answer from the store
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Unwrap maps 404 onto metadata.ErrNotFound
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return metadata.ErrNotFound
	}
	return nil
}

// New creates a store client for baseURL, e.g. "https://api.example.com"
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewWithHTTPClient lets tests and callers bring their own transport
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Get fetches the payload stored at address
func (c *Client) Get(ctx context.Context, address string) (*metadata.RemotePayload, error) {
	var payload metadata.RemotePayload
	if err := c.do(ctx, http.MethodGet, metadataPath(address), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Put writes body as the new state of address
func (c *Client) Put(ctx context.Context, address string, body *metadata.RemotePayload) (*metadata.Ack, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	var ack metadata.Ack
	if err := c.do(ctx, http.MethodPut, metadataPath(address), data, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// MagicHash returns the hex magic hash of the state stored at address
func (c *Client) MagicHash(ctx context.Context, address string) (string, error) {
	var ack metadata.Ack
	if err := c.do(ctx, http.MethodGet, metadataPath(address)+"/magic", nil, &ack); err != nil {
		return "", err
	}
	return ack.MagicHash, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(data)),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func metadataPath(address string) string {
	return "/metadata/" + url.PathEscape(address)
}

var _ metadata.NetworkClient = (*Client)(nil)
