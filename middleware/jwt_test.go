package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func sign(t *testing.T, key []byte, username, hash string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Username:         username,
		UserHash:         hash,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	})
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestJWT(t *testing.T) {
	key := []byte("test-key")
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("username").(string))
	}, JWT(key))

	good := sign(t, key, "admin", UserHashFromUsername("admin", key), time.Now().Add(time.Hour))
	cases := []struct {
		name   string
		header string
		status int
	}{
		{"bare token", good, http.StatusOK},
		{"bearer token", "Bearer " + good, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong key", sign(t, []byte("other"), "admin", UserHashFromUsername("admin", key), time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", sign(t, key, "admin", UserHashFromUsername("admin", key), time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"forged hash", sign(t, key, "admin", "nope", time.Now().Add(time.Hour)), http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
			if tc.status == http.StatusOK && rec.Body.String() != "admin" {
				t.Fatalf("username = %q", rec.Body.String())
			}
		})
	}
}

func TestUserHashNormalizes(t *testing.T) {
	key := []byte("k")
	if UserHashFromUsername(" Admin ", key) != UserHashFromUsername("admin", key) {
		t.Fatalf("hash depends on case or spacing")
	}
}
