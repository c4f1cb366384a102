// Package client talks to the gateway's HTTP surface and to presigned
// storage URLs on behalf of a customer or banker.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dkyc/internal/kyc/handler"
	"dkyc/pkg/platform/httputil"
)

// DefaultTimeout covers a submit that waits for the ledger to mine.
const DefaultTimeout = 5 * time.Minute

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

// Client calls the gateway endpoints.
type Client struct {
	baseURL string
	client  HTTPDoer
}

// APIError is a non-2xx gateway answer decoded from the error envelope.
type APIError struct {
	Status      int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("gateway returned %d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("gateway returned %d %s: %s", e.Status, e.Code, e.Description)
}

// New creates a gateway client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("client: base url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("client: invalid base url: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{baseURL: base, client: doer}, nil
}

// UploadURL requests a presigned upload target.
func (c *Client) UploadURL(ctx context.Context, filename, contentType string) (*handler.UploadURLResponse, error) {
	var out handler.UploadURLResponse
	err := c.call(ctx, http.MethodPost, "/upload-url", handler.UploadURLRequest{
		Filename:    filename,
		ContentType: contentType,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadURL requests a presigned read of key.
func (c *Client) DownloadURL(ctx context.Context, key string) (*handler.DownloadURLResponse, error) {
	var out handler.DownloadURLResponse
	if err := c.call(ctx, http.MethodPost, "/download-url", handler.DownloadURLRequest{Key: key}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit creates a record and returns once the ledger has mined it.
func (c *Client) Submit(ctx context.Context, req handler.WriteRequest) (*handler.WriteResponse, error) {
	var out handler.WriteResponse
	if err := c.call(ctx, http.MethodPost, "/submit-dkyc", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces a record and returns once the ledger has mined it.
func (c *Client) Update(ctx context.Context, req handler.WriteRequest) (*handler.WriteResponse, error) {
	var out handler.WriteResponse
	if err := c.call(ctx, http.MethodPut, "/update-dkyc", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get reads a customer's record.
func (c *Client) Get(ctx context.Context, customerID string) (*handler.KYCResponse, error) {
	var out handler.KYCResponse
	path := "/get-dkyc?" + url.Values{"customerId": {customerID}}.Encode()
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PutObject uploads body to a presigned upload URL. contentType must match
// the value the URL was signed with.
func (c *Client) PutObject(ctx context.Context, uploadURL, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("client: build upload request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("client: upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("client: upload rejected with %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// GetObject fetches the object behind a presigned download URL.
func (c *Client) GetObject(ctx context.Context, downloadURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return 0, fmt.Errorf("client: build download request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("client: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("client: download failed with %d", resp.StatusCode)
	}
	return io.Copy(w, resp.Body)
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope httputil.ErrorResponse
		if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
			apiErr.Code = envelope.Error
			apiErr.Description = envelope.Description
		} else {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}
