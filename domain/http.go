package domain

import (
	"net/url"

	"github.com/labstack/echo/v4"
)

type ctxKey string

// RequestPathCtxKey carries the matched route path through the request
// context for instrumentation.
const RequestPathCtxKey ctxKey = "request_path"

// ParseURLPath returns the matched route pattern for metric labels,
// falling back to the raw URL path for unmatched requests.
func ParseURLPath(c echo.Context) (string, error) {
	if path := c.Path(); path != "" {
		return path, nil
	}

	parsed, err := url.Parse(c.Request().RequestURI)
	if err != nil {
		return "", err
	}
	return parsed.Path, nil
}
