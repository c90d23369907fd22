package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func authEngine() (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	var seenUser string
	engine := gin.New()
	engine.Use(JWTAuth(testSecret, []string{"/health"}))
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/whoami", func(c *gin.Context) {
		seenUser = currentUser(c)
		c.Status(http.StatusOK)
	})
	return engine, &seenUser
}

func TestJWTAuthValidToken(t *testing.T) {
	engine, seenUser := authEngine()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "alice", jwt.SigningMethodHS256))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if *seenUser != "alice" {
		t.Errorf("expected user alice, got %q", *seenUser)
	}
}

func TestJWTAuthQueryToken(t *testing.T) {
	engine, seenUser := authEngine()

	token := signToken(t, testSecret, "bob", jwt.SigningMethodHS256)
	req := httptest.NewRequest(http.MethodGet, "/whoami?token="+token, nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if *seenUser != "bob" {
		t.Errorf("expected user bob, got %q", *seenUser)
	}
}

func TestJWTAuthMissingToken(t *testing.T) {
	engine, _ := authEngine()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestJWTAuthWrongSecret(t *testing.T) {
	engine, _ := authEngine()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", "alice", jwt.SigningMethodHS256))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong secret, got %d", rec.Code)
	}
}

func TestJWTAuthSkipPaths(t *testing.T) {
	engine, _ := authEngine()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on skipped path, got %d", rec.Code)
	}
}

func TestHeaderIdentityFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var seenUser string
	engine := gin.New()
	engine.Use(HeaderIdentity())
	engine.GET("/whoami", func(c *gin.Context) {
		seenUser = currentUser(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-Id", "carol")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if seenUser != "carol" {
		t.Errorf("expected carol, got %q", seenUser)
	}

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if seenUser != "anonymous" {
		t.Errorf("expected anonymous without header, got %q", seenUser)
	}
}
