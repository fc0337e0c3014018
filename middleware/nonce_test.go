package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNonce(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		nonce, err := GenerateNonce()
		require.NoError(t, err)
		assert.Len(t, nonce, 22) // 16 bytes, raw base64url
		assert.False(t, seen[nonce])
		seen[nonce] = true
	}
}

func TestPreviewCSP(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/documents/d1/preview", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var templateNonce string
	handler := PreviewCSP()(func(c echo.Context) error {
		templateNonce = GetNonce(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))

	nonce, _ := c.Get(string(NonceKey)).(string)
	require.NotEmpty(t, nonce)
	assert.Equal(t, nonce, templateNonce)

	directives := map[string]string{}
	for _, d := range strings.Split(rec.Header().Get("Content-Security-Policy"), "; ") {
		name, value, _ := strings.Cut(d, " ")
		directives[name] = value
	}
	assert.Equal(t, "'none'", directives["default-src"])
	assert.Equal(t, "'nonce-"+nonce+"'", directives["style-src"])
	assert.Equal(t, "data:", directives["img-src"])
	assert.Equal(t, "'self'", directives["frame-ancestors"])
	assert.NotContains(t, directives, "script-src")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
}

func TestGetNonce(t *testing.T) {
	assert.Equal(t, "test-nonce", GetNonce(WithNonce(context.Background(), "test-nonce")))
	assert.Equal(t, "", GetNonce(context.Background()))
}
