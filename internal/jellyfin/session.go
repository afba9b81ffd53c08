// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jellyfin

import (
	"fmt"
	"strings"
)

// Session is the authenticated-client context: where the server lives, who
// we are, and the token proving it. A Session without a token is valid but
// unauthenticated.
type Session struct {
	BaseURL     string
	AccessToken string
	UserID      string

	DeviceID   string
	DeviceName string
	ClientName string
	Version    string
}

// Authenticated reports whether requests can be issued on behalf of a user.
func (s Session) Authenticated() bool {
	return s.BaseURL != "" && s.AccessToken != ""
}

// ServerURL returns the base URL without a trailing slash.
func (s Session) ServerURL() string {
	return strings.TrimRight(s.BaseURL, "/")
}

// AuthorizationHeader renders the MediaBrowser authorization scheme. The
// token part is omitted when no token is held (used for the login call).
func (s Session) AuthorizationHeader() string {
	var b strings.Builder
	fmt.Fprintf(&b, `MediaBrowser Client="%s", Device="%s", DeviceId="%s", Version="%s"`,
		quoteSafe(s.ClientName), quoteSafe(s.DeviceName), quoteSafe(s.DeviceID), quoteSafe(s.Version))
	if s.AccessToken != "" {
		fmt.Fprintf(&b, `, Token="%s"`, quoteSafe(s.AccessToken))
	}
	return b.String()
}

func quoteSafe(v string) string {
	return strings.NewReplacer(`"`, "", "\n", "", "\r", "").Replace(v)
}
