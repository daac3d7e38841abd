package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	t.Run("generates an id when none supplied", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		var seen string
		handler := RequestID()(func(c echo.Context) error {
			seen = GetRequestID(c)
			return c.NoContent(http.StatusOK)
		})
		require.NoError(t, handler(c))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(XRequestID))
	})

	t.Run("propagates the caller's id", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(XRequestID, "req-42")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := RequestID()(func(c echo.Context) error {
			assert.Equal(t, "req-42", GetRequestID(c))
			assert.Equal(t, "req-42", GetRequestIDFromContext(c.Request().Context()))
			return c.NoContent(http.StatusOK)
		})
		require.NoError(t, handler(c))

		assert.Equal(t, "req-42", rec.Header().Get(XRequestID))
	})
}
