package middleware

import "github.com/labstack/echo/v4"

// Skipper decides per-request whether a middleware should stand aside.
type Skipper func(c echo.Context) bool

// DefaultSkipper never skips.
func DefaultSkipper(echo.Context) bool {
	return false
}
