package middleware

import (
	"strings"

	"github.com/dimitrije/vesting-api/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
)

const PrincipalKey = "principal"

// Auth resolves the calling principal from a bearer token. The token may also
// arrive as ?access_token=, which EventSource clients use; a header wins.
func Auth(jwtService *services.JWTService) drift.HandlerFunc {
	return func(c *drift.Context) {
		token := c.QueryParam("access_token")

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				c.Unauthorized("invalid authorization header format")
				return
			}
			token = parts[1]
		}
		if token == "" {
			c.Unauthorized("missing authorization header")
			return
		}

		claims, err := jwtService.ValidateAccessToken(token)
		if err != nil {
			c.Unauthorized("invalid or expired token")
			return
		}

		c.Set(PrincipalKey, claims.Principal)

		c.Next()
	}
}

func GetPrincipal(c *drift.Context) string {
	if p, ok := c.Get(PrincipalKey); ok {
		if s, ok := p.(string); ok {
			return s
		}
	}
	return ""
}

// DevOnly hides a route group unless enabled.
func DevOnly(enabled bool) drift.HandlerFunc {
	return func(c *drift.Context) {
		if !enabled {
			c.NotFound("not found")
			return
		}
		c.Next()
	}
}
