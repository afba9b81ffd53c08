// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jellyfin

import (
	"context"
	"net/http"
)

// PublicSystemInfo is the unauthenticated server identity.
type PublicSystemInfo struct {
	ServerName string `json:"ServerName"`
	Version    string `json:"Version"`
	ID         string `json:"Id"`
}

// Ping fetches /System/Info/Public and returns the server version. It needs
// no token, so it also works before login.
func (c *Client) Ping(ctx context.Context) (string, error) {
	req, err := c.buildRequest(ctx, http.MethodGet, "/System/Info/Public", nil, nil)
	if err != nil {
		return "", err
	}
	var info PublicSystemInfo
	if err := c.Do(req, &info); err != nil {
		return "", err
	}
	return info.Version, nil
}
