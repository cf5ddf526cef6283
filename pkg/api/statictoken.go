package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
)

// StaticTokenValidator is the reference TokenValidator (spec §6 leaves
// token issuance/validation out of scope as an injected port): it accepts
// a fixed set of bearer tokens configured at startup, each mapped to a
// Principal. Operators who need OIDC/JWT validation swap this out for
// their own TokenValidator without touching pkg/api's routing.
type StaticTokenValidator struct {
	principals map[string]Principal
}

// NewStaticTokenValidator builds a validator from "token:subject[:admin]"
// entries, the items of the comma-separated API_TOKENS setting.
func NewStaticTokenValidator(entries []string) *StaticTokenValidator {
	principals := make(map[string]Principal, len(entries))
	for _, entry := range entries {
		parts := strings.Split(entry, ":")
		if len(parts) < 2 {
			continue
		}
		token := strings.TrimSpace(parts[0])
		subject := strings.TrimSpace(parts[1])
		admin := len(parts) >= 3 && strings.EqualFold(strings.TrimSpace(parts[2]), "admin")
		if token == "" || subject == "" {
			continue
		}
		principals[token] = Principal{Subject: subject, Admin: admin}
	}
	return &StaticTokenValidator{principals: principals}
}

var errInvalidToken = errors.New("invalid bearer token")

// Validate matches token in constant time against every configured token,
// so a failed lookup doesn't leak timing information about which prefix
// of a valid token it shares.
func (v *StaticTokenValidator) Validate(ctx context.Context, token string) (Principal, error) {
	for candidate, principal := range v.principals {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			return principal, nil
		}
	}
	return Principal{}, errInvalidToken
}
