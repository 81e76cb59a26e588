package auth

import (
	"context"
	"fmt"
	"strings"
)

// StaticVerifier checks credentials against a fixed token table. Intended
// for development setups and tests; production deployments use JWTVerifier.
type StaticVerifier struct {
	tokens map[string]Identity
}

// NewStaticVerifier creates a verifier over a token -> identity table.
func NewStaticVerifier(tokens map[string]Identity) *StaticVerifier {
	if tokens == nil {
		tokens = map[string]Identity{}
	}
	return &StaticVerifier{tokens: tokens}
}

// Verify implements Verifier.
func (v *StaticVerifier) Verify(_ context.Context, credential string) (*Identity, error) {
	identity, ok := v.tokens[credential]
	if !ok {
		return nil, ErrInvalidCredential
	}
	id := identity
	return &id, nil
}

// ParseStaticTokens parses a "token:subject,token:subject" config string
// into a token table. Whitespace around entries is ignored.
func ParseStaticTokens(raw string) (map[string]Identity, error) {
	tokens := map[string]Identity{}
	if strings.TrimSpace(raw) == "" {
		return tokens, nil
	}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("auth: malformed static token entry %q (want token:subject)", entry)
		}
		tokens[parts[0]] = Identity{Subject: parts[1]}
	}
	return tokens, nil
}
