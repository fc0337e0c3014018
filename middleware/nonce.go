package middleware

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const NonceKey contextKey = "csp_nonce"

// GenerateNonce creates a random nonce string
func GenerateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// previewPolicy allows only the nonce-tagged stylesheet, inline data:
// images (barcodes) and fonts. Previews load no scripts.
func previewPolicy(nonce string) string {
	return strings.Join([]string{
		"default-src 'none'",
		"style-src 'nonce-" + nonce + "'",
		"img-src data:",
		"font-src 'self' data:",
		"base-uri 'none'",
		"form-action 'none'",
		"frame-ancestors 'self'",
	}, "; ")
}

// PreviewCSP tags each preview response with a fresh nonce and a policy
// that trusts only it. The nonce reaches templates through the request context.
func PreviewCSP() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			nonce, err := GenerateNonce()
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate nonce")
			}

			c.Set(string(NonceKey), nonce)
			c.SetRequest(c.Request().WithContext(WithNonce(c.Request().Context(), nonce)))

			h := c.Response().Header()
			h.Set("Content-Security-Policy", previewPolicy(nonce))
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "no-referrer")
			return next(c)
		}
	}
}

// WithNonce returns a copy of ctx carrying nonce
func WithNonce(ctx context.Context, nonce string) context.Context {
	return context.WithValue(ctx, NonceKey, nonce)
}

// GetNonce retrieves the nonce from the context
func GetNonce(ctx context.Context) string {
	if val, ok := ctx.Value(NonceKey).(string); ok {
		return val
	}
	return ""
}
