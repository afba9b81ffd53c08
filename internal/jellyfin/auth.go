// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jellyfin

import (
	"context"
	"fmt"
	"net/http"

	xglog "github.com/ManuGH/jellyplay/internal/log"
)

type authenticateByNameRequest struct {
	Username string `json:"Username"`
	Pw       string `json:"Pw"`
}

type authenticationResult struct {
	AccessToken string `json:"AccessToken"`
	User        struct {
		ID   string `json:"Id"`
		Name string `json:"Name"`
	} `json:"User"`
}

// AuthenticateByName logs in with username/password and returns a client
// bound to the resulting session.
func (c *Client) AuthenticateByName(ctx context.Context, username, password string) (*Client, error) {
	const endpoint = "/Users/AuthenticateByName"
	anon := c.session
	anon.AccessToken = ""

	req, err := c.WithSession(anon).buildRequest(ctx, http.MethodPost, endpoint, nil,
		authenticateByNameRequest{Username: username, Pw: password})
	if err != nil {
		return nil, err
	}

	var res authenticationResult
	if err := c.Do(req, &res); err != nil {
		return nil, err
	}
	if res.AccessToken == "" || res.User.ID == "" {
		return nil, newError("POST "+endpoint, ErrDecoding, 0, "", fmt.Errorf("response lacks token or user id"))
	}

	next := c.session
	next.AccessToken = res.AccessToken
	next.UserID = res.User.ID

	c.logger.Info().
		Str(xglog.FieldEvent, "jellyfin.authenticated").
		Str("user", res.User.Name).
		Msg("authenticated against server")
	return c.WithSession(next), nil
}
