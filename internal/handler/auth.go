package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// contextUserKey is where the auth middleware stores the resolved identity.
const contextUserKey = "userID"

// Claims is the token payload issued by the identity service. Only the
// subject identity matters to the chat service.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// ParseToken verifies an externally-issued identity token and returns the
// identity it carries.
func ParseToken(tokenString, secret string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

// AuthMiddleware resolves the Bearer token into an identity and attaches it
// to the request context. Requests without a valid token never reach a
// handler.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		userID, err := ParseToken(strings.TrimPrefix(header, prefix), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(contextUserKey, userID)
		c.Next()
	}
}

// CurrentUser returns the identity attached by AuthMiddleware.
func CurrentUser(c *gin.Context) string {
	return c.GetString(contextUserKey)
}
