package auth

import "strings"

// HeaderAuthorization is the canonical bearer transport header.
const HeaderAuthorization = "Authorization"

// DefaultAuthScheme is the scheme expected in the Authorization header.
const DefaultAuthScheme = "Bearer"

// BearerFromHeader extracts the raw token from an Authorization header
// value. The transport layer calls this before the guard is invoked; a
// missing or malformed header never reaches token verification.
func BearerFromHeader(header string, authScheme ...string) (string, error) {
	scheme := DefaultAuthScheme
	if len(authScheme) > 0 && strings.TrimSpace(authScheme[0]) != "" {
		scheme = strings.TrimSpace(authScheme[0])
	}

	l := len(scheme)
	if len(header) > l+1 && strings.EqualFold(header[:l], scheme) {
		token := strings.TrimSpace(header[l:])
		if token != "" {
			return token, nil
		}
	}

	return "", ErrMissingBearerToken
}
