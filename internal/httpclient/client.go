// Package httpclient is the JSON transport shared by the auth and mock-test
// service clients. It attaches the bearer token and a request id, enforces
// a per-request timeout, unwraps the response envelope and normalizes every
// failure into an *apierr.Error.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vanhoc/mocktest/internal/apierr"
	"github.com/vanhoc/mocktest/internal/response"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// TokenSource yields the bearer token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client performs JSON requests against one service base URL.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client. Its Timeout is kept.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client. tokens may be nil for clients that only make public calls.
func New(baseURL string, timeout time.Duration, tokens TokenSource, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		log:     log.With().Str("component", "http_client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an authenticated GET and decodes the envelope data into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out, true)
}

// Post performs an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out, true)
}

// PostPublic performs a POST without a bearer token.
func (c *Client) PostPublic(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out, false)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, authenticated bool) error {
	var token string
	if authenticated {
		if c.tokens == nil {
			return apierr.New(apierr.KindAuthRequired, "no credentials configured")
		}
		t, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		token = t
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return apierr.Wrap(apierr.KindValidation, "encode request body", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apierr.Wrap(apierr.KindValidation, "build request", err)
	}
	reqID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(response.HeaderRequestID, reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.log.With().
		Str("method", method).
		Str("path", path).
		Str("request_id", reqID).
		Logger()

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			log.Debug().Err(err).Msg("Request cancelled")
			return apierr.Wrap(apierr.KindNetworkFailure, "request cancelled", ctx.Err())
		}
		log.Warn().Err(err).Msg("Request failed")
		return apierr.Wrap(apierr.KindNetworkFailure, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Warn().Err(err).Msg("Read response body failed")
		return apierr.Wrap(apierr.KindNetworkFailure, "read response", err)
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("Request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp.StatusCode, raw)
		log.Warn().
			Int("status", resp.StatusCode).
			Str("code", apiErr.Code).
			Msg("Request rejected")
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := decodeData(raw, out); err != nil {
		log.Error().Err(err).Msg("Decode response failed")
		return apierr.Wrap(apierr.KindServerError, "decode response", err)
	}
	return nil
}

// errEmptyData is returned for a success envelope without a payload.
var errEmptyData = errors.New("response envelope has no data")

// decodeData unwraps the envelope when present. Only a body that is not an
// envelope is decoded as the payload itself.
func decodeData(raw []byte, out interface{}) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err == nil {
		data, hasData := fields["data"]
		_, hasMeta := fields["metadata"]
		if hasData || hasMeta {
			if len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
				return errEmptyData
			}
			return json.Unmarshal(data, out)
		}
	}
	return json.Unmarshal(raw, out)
}

func decodeError(status int, raw []byte) *apierr.Error {
	apiErr := &apierr.Error{
		Kind:   apierr.KindForStatus(status),
		Status: status,
	}

	var env response.Envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil {
		apiErr.Code = string(env.Error.Code)
		apiErr.Message = env.Error.Message
		apiErr.Fields = env.Error.Fields
		return apiErr
	}

	apiErr.Message = http.StatusText(status)
	if len(raw) > 0 {
		apiErr.Err = errors.New(strings.TrimSpace(truncate(string(raw), 200)))
	}
	return apiErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
