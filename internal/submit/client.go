// Package submit talks to the feature submission server.
//
// Three endpoints are used:
//
//	POST /{recording-id}/low-level   feature document, any 2xx is success
//	POST /datasetitem/               feature document, 200 + {"itemuuid": ...}
//	POST /api/v1/datasets            dataset manifest
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxBodyBytes bounds how much of a response body is kept for reporting.
const maxBodyBytes = 1 << 20

// HTTPError is returned for responses outside the accepted status range.
type HTTPError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, body)
}

// Client submits documents to one host over plain HTTP.
type Client struct {
	Host string

	HTTPClient *http.Client
}

// NewClient creates a Client for host ("name" or "name:port").
func NewClient(host string) *Client {
	return &Client{Host: host}
}

// SubmitFeatures posts a recording's feature document.
func (c *Client) SubmitFeatures(ctx context.Context, recordingID string, doc []byte) error {
	resp, err := c.post(ctx, "/"+recordingID+"/low-level", doc)
	if err != nil {
		return fmt.Errorf("submit features: %w", err)
	}
	if resp.Status < 200 || resp.Status > 299 {
		return fmt.Errorf("submit features: %w", resp.httpError())
	}
	return nil
}

type itemResponse struct {
	ItemUUID string `json:"itemuuid"`
}

// SubmitItem posts a dataset item and returns the identifier the server
// assigned to it. Anything but a 200 with a parseable, non-empty itemuuid is
// an error.
func (c *Client) SubmitItem(ctx context.Context, doc []byte) (string, error) {
	resp, err := c.post(ctx, "/datasetitem/", doc)
	if err != nil {
		return "", fmt.Errorf("submit item: %w", err)
	}
	if resp.Status != http.StatusOK {
		return "", fmt.Errorf("submit item: %w", resp.httpError())
	}

	var item itemResponse
	if err := json.Unmarshal(resp.Body, &item); err != nil {
		return "", fmt.Errorf("submit item: decode response: %w", err)
	}
	if item.ItemUUID == "" {
		return "", fmt.Errorf("submit item: response has no itemuuid")
	}
	return item.ItemUUID, nil
}

// DatasetResponse is the server's answer to a manifest submission.
type DatasetResponse struct {
	Status int `json:"status"`
	// Body is the decoded JSON response, or the raw text when it is not JSON.
	Body any `json:"body,omitempty"`
}

// SubmitDataset posts a dataset manifest. The response is returned whenever
// the server answered; a non-2xx status additionally yields an *HTTPError.
func (c *Client) SubmitDataset(ctx context.Context, m *Manifest) (*DatasetResponse, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("submit dataset: %w", err)
	}

	resp, err := c.post(ctx, "/api/v1/datasets", payload)
	if err != nil {
		return nil, fmt.Errorf("submit dataset: %w", err)
	}

	out := &DatasetResponse{Status: resp.Status}
	var decoded any
	if err := json.Unmarshal(resp.Body, &decoded); err == nil {
		out.Body = decoded
	} else if len(resp.Body) > 0 {
		out.Body = string(resp.Body)
	}

	if resp.Status < 200 || resp.Status > 299 {
		return out, fmt.Errorf("submit dataset: %w", resp.httpError())
	}
	return out, nil
}

type response struct {
	Method string
	URL    string
	Status int
	Body   []byte
}

func (r *response) httpError() *HTTPError {
	return &HTTPError{Method: r.Method, URL: r.URL, Status: r.Status, Body: string(r.Body)}
}

func (c *Client) endpoint(path string) string {
	u := url.URL{Scheme: "http", Host: c.Host, Path: path}
	return u.String()
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*response, error) {
	target := c.endpoint(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &response{Method: http.MethodPost, URL: target, Status: resp.StatusCode, Body: data}, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
