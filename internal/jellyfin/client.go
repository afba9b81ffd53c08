// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package jellyfin is the authenticated HTTP layer for the Jellyfin REST API.
package jellyfin

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

	xglog "github.com/ManuGH/jellyplay/internal/log"
	"github.com/rs/zerolog"
)

const maxErrorBody = 512

// Client issues authenticated requests for one Session.
type Client struct {
	session Session
	http    *http.Client
	logger  zerolog.Logger
}

// New creates a client. httpClient must not be nil; use httpx.NewClient.
func New(session Session, httpClient *http.Client) *Client {
	return &Client{
		session: session,
		http:    httpClient,
		logger:  xglog.WithComponent("jellyfin"),
	}
}

// Session returns the session this client speaks for.
func (c *Client) Session() Session { return c.session }

// WithSession returns a client sharing the transport but bound to s.
func (c *Client) WithSession(s Session) *Client {
	return &Client{session: s, http: c.http, logger: c.logger}
}

// BuildAuthenticatedRequest builds a request against endpoint (a server
// relative path such as "/Items/42/PlaybackInfo"). body, when non-nil, is
// JSON encoded. Fails with ErrNotAuthenticated without an active session.
func (c *Client) BuildAuthenticatedRequest(ctx context.Context, method, endpoint string, params url.Values, body any) (*http.Request, error) {
	if !c.session.Authenticated() {
		return nil, newError(method+" "+endpoint, ErrNotAuthenticated, 0, "", nil)
	}
	return c.buildRequest(ctx, method, endpoint, params, body)
}

func (c *Client) buildRequest(ctx context.Context, method, endpoint string, params url.Values, body any) (*http.Request, error) {
	op := method + " " + endpoint
	if !strings.HasPrefix(endpoint, "/") {
		return nil, newError(op, ErrInvalidURL, 0, "", fmt.Errorf("endpoint %q is not server-relative", endpoint))
	}
	u, err := url.Parse(c.session.ServerURL() + endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		if err == nil {
			err = fmt.Errorf("base url %q is not absolute", c.session.BaseURL)
		}
		return nil, newError(op, ErrInvalidURL, 0, "", err)
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, newError(op, ErrInvalidURL, 0, "", fmt.Errorf("encode body: %w", err))
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, newError(op, ErrInvalidURL, 0, "", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.session.AuthorizationHeader())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do executes req and decodes a JSON response into out (nil discards the body).
func (c *Client) Do(req *http.Request, out any) error {
	op := req.Method + " " + req.URL.Path

	res, err := c.http.Do(req)
	if err != nil {
		return newError(op, ErrNetwork, 0, "", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		c.logger.Debug().
			Str(xglog.FieldEvent, "jellyfin.http_error").
			Str("operation", op).
			Int(xglog.FieldStatus, res.StatusCode).
			Msg("server returned non-2xx")
		return newError(op, ErrServer, res.StatusCode, strings.TrimSpace(string(snippet)), nil)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) {
			return newError(op, ErrNetwork, 0, "", err)
		}
		return newError(op, ErrDecoding, res.StatusCode, "", err)
	}
	return nil
}

// PostJSON is BuildAuthenticatedRequest + Do for the common POST case.
func (c *Client) PostJSON(ctx context.Context, endpoint string, params url.Values, body, out any) error {
	req, err := c.BuildAuthenticatedRequest(ctx, http.MethodPost, endpoint, params, body)
	if err != nil {
		return err
	}
	return c.Do(req, out)
}
