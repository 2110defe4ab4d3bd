// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mpapi queries the Materials Project REST API.
//
// The client speaks the legacy query endpoint: a POST to {endpoint}/query
// with form fields "criteria" and "properties", both JSON encoded, and the
// API key in the X-API-KEY header. The response envelope carries the
// matching documents under "response".
package mpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/mp-export/internal/httputil"
	"github.com/pdiddy/mp-export/pkg/types"
)

// DefaultEndpoint is the legacy REST base URL.
const DefaultEndpoint = "https://legacy.materialsproject.org/rest/v2"

// Query is a criteria filter plus the property names to return.
type Query struct {
	Criteria   map[string]any
	Properties []string
}

// Encode returns the JSON form of the criteria and property list. The
// encoding is deterministic (map keys sorted), so it doubles as a cache key.
func (q Query) Encode() (criteria, properties string, err error) {
	c, err := json.Marshal(q.Criteria)
	if err != nil {
		return "", "", fmt.Errorf("encoding criteria: %w", err)
	}
	p, err := json.Marshal(q.Properties)
	if err != nil {
		return "", "", fmt.Errorf("encoding properties: %w", err)
	}
	return string(c), string(p), nil
}

// Client queries a Materials Project endpoint.
type Client struct {
	HTTP     *http.Client
	Endpoint string
	APIKey   string

	UserAgent  string
	MaxRetries int

	// Log receives retry notices. Nil discards.
	Log io.Writer
}

// NewClient builds a client from cfg, filling in the default endpoint.
func NewClient(cfg types.QueryConfig, log io.Writer) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		HTTP:       &http.Client{Timeout: cfg.Timeout},
		Endpoint:   endpoint,
		APIKey:     cfg.APIKey,
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
		Log:        log,
	}
}

// Query runs q and decodes the matching records.
func (c *Client) Query(ctx context.Context, q Query) ([]types.Record, error) {
	body, err := c.QueryRaw(ctx, q)
	if err != nil {
		return nil, err
	}
	return DecodeResponse(bytes.NewReader(body))
}

// QueryRaw runs q and returns the response body after checking the HTTP
// status and the envelope's valid_response flag.
func (c *Client) QueryRaw(ctx context.Context, q Query) ([]byte, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("no Materials Project API key configured")
	}
	criteria, properties, err := q.Encode()
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"criteria":   {criteria},
		"properties": {properties},
	}
	reqURL := strings.TrimRight(c.Endpoint, "/") + "/query"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-API-KEY", c.APIKey)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, httputil.RetryPolicy{MaxRetries: c.MaxRetries, Log: c.Log})
	if err != nil {
		return nil, fmt.Errorf("Materials Project API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading Materials Project response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if msg := envelopeError(body); msg != "" {
			return nil, fmt.Errorf("Materials Project API returned HTTP %d: %s", resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("Materials Project API returned HTTP %d", resp.StatusCode)
	}

	if _, err := DecodeResponse(bytes.NewReader(body)); err != nil {
		return nil, err
	}
	return body, nil
}

// DecodeResponse parses a query response envelope. Numbers are kept as
// json.Number so values can be written back out exactly as received. A
// bare JSON array of records is accepted too, for saved responses.
func DecodeResponse(r io.Reader) ([]types.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var recs []types.Record
		if err := decodeNumbers(trimmed, &recs); err != nil {
			return nil, fmt.Errorf("parsing record list: %w", err)
		}
		return recs, nil
	}

	var env envelope
	if err := decodeNumbers(trimmed, &env); err != nil {
		return nil, fmt.Errorf("parsing Materials Project response: %w", err)
	}
	if env.Valid != nil && !*env.Valid {
		msg := env.Error
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("Materials Project API error: %s", msg)
	}
	return env.Response, nil
}

type envelope struct {
	Valid     *bool          `json:"valid_response"`
	Error     string         `json:"error"`
	Response  []types.Record `json:"response"`
	CreatedAt string         `json:"created_at"`
}

func envelopeError(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Error
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
