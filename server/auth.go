package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userIDKey = "user_id"

// JWTAuth verifies HS256 bearer tokens issued by the identity service
// and stores the subject claim as the request's user identity. Paths
// in skipPaths bypass verification. Token issuance is not this
// service's concern.
func JWTAuth(secret string, skipPaths []string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range skipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		token := bearerToken(c)
		if token == "" {
			// Websocket clients cannot set headers from browsers, so the
			// live endpoint also accepts ?token=.
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization required",
			})
			return
		}

		parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return key, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			return
		}

		sub, err := parsed.Claims.GetSubject()
		if err != nil || sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Token missing subject",
			})
			return
		}

		c.Set(userIDKey, sub)
		c.Next()
	}
}

// HeaderIdentity is the development fallback when auth is disabled:
// the user identity comes from the X-User-Id header, defaulting to
// "anonymous".
func HeaderIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-User-Id")
		if id == "" {
			id = "anonymous"
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// currentUser returns the authenticated user id for the request.
func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}
