package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"scorta/pkg/response"
)

// UserField is the gin context key carrying the authenticated user id.
const UserField = "user_id"

// UserID returns the authenticated user id, or "" when the request is
// anonymous (optional-auth routes).
func UserID(c *gin.Context) string {
	v, ok := c.Get(UserField)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func parseToken(c *gin.Context, secret string) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", false
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

// AuthRequired rejects requests without a valid bearer token.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, ok := parseToken(c, secret)
		if !ok {
			response.Unauthorized(c, "invalid or missing token")
			return
		}
		c.Set(UserField, sub)
		c.Next()
	}
}

// OptionalAuth sets the user id when a valid token is present and lets the
// request through either way. The SOS trigger path uses this: without a user
// it degrades to demo mode instead of failing.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sub, ok := parseToken(c, secret); ok {
			c.Set(UserField, sub)
		}
		c.Next()
	}
}

// IssueToken mints a token for a user id. Exposed for tests and tooling; the
// production identity provider normally issues these.
func IssueToken(secret, userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": userID})
	return token.SignedString([]byte(secret))
}
