// SPDX-License-Identifier: MIT

package urlutil

import (
	"net/url"
	"strings"
)

const redacted = "REDACTED"

// secretParams are query keys that carry credentials in Jellyfin URLs.
var secretParams = map[string]struct{}{
	"api_key":              {},
	"apikey":               {},
	"token":                {},
	"x-emby-token":         {},
	"accesstoken":          {},
	"access_token":         {},
	"x-mediabrowser-token": {},
}

// SanitizeURL removes user info and masks credential query parameters from a
// URL string for safe logging. Non-secret parameters are kept so that stream
// URLs stay debuggable.
func SanitizeURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	if parsedURL.RawQuery == "" {
		return parsedURL.String()
	}
	q, err := url.ParseQuery(parsedURL.RawQuery)
	if err != nil {
		parsedURL.RawQuery = ""
		return parsedURL.String()
	}
	for key := range q {
		if IsSecretParam(key) {
			q.Set(key, redacted)
		}
	}
	parsedURL.RawQuery = q.Encode()
	return parsedURL.String()
}

// IsSecretParam reports whether a query key carries a credential.
func IsSecretParam(key string) bool {
	_, ok := secretParams[strings.ToLower(key)]
	return ok
}
