// Package auth resolves the caller namespace that scopes stored Outlook accounts.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/viant/mcp-protocol/authorization"
)

// DefaultNamespace scopes accounts of unauthenticated callers.
const DefaultNamespace = "default"

// IdentityClaims are tried in order; Entra ID tokens often carry
// preferred_username or upn instead of email.
var IdentityClaims = []string{"email", "preferred_username", "upn", "sub"}

// Service derives the caller namespace from the bearer token the MCP auth
// middleware places in context.
type Service struct {
	// Fallback is returned when no token is present or no identity claim is found.
	Fallback string
	// Claims lists identity claims in priority order.
	Claims []string
	// Parse turns a token into claims. The token was already verified by the
	// middleware, so the default parser skips signature checks.
	Parse func(token string) (jwt.MapClaims, error)
}

// New returns a Service using IdentityClaims and an unverified parser.
func New() *Service {
	return &Service{Fallback: DefaultNamespace, Claims: IdentityClaims, Parse: parseUnverified}
}

func parseUnverified(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	return claims, err
}

// Namespace returns the caller identity, or the fallback namespace.
func (s *Service) Namespace(ctx context.Context) (string, error) {
	if s == nil {
		return DefaultNamespace, nil
	}
	token, err := bearer(ctx)
	if err != nil || token == "" {
		return s.Fallback, err
	}
	if s.Parse == nil {
		return s.Fallback, nil
	}
	claims, err := s.Parse(token)
	if err != nil {
		return s.Fallback, nil
	}
	if id := s.identity(claims); id != "" {
		return id, nil
	}
	return s.Fallback, nil
}

func (s *Service) identity(claims jwt.MapClaims) string {
	for _, name := range s.Claims {
		if v, _ := claims[name].(string); v != "" {
			return v
		}
	}
	return ""
}

func bearer(ctx context.Context) (string, error) {
	switch v := ctx.Value(authorization.TokenKey).(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case *authorization.Token:
		return v.Token, nil
	default:
		return "", fmt.Errorf("unsupported token type %T", v)
	}
}
