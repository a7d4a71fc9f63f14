package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// SameOrigin returns an Echo middleware that rejects browser requests issued
// by other sites. Requests without an Origin or Sec-Fetch-Site header (curl,
// server-side callers, same-origin navigations) pass. allowedOrigins lists
// scheme://host[:port] origins accepted in addition to the proxy's own.
func SameOrigin(allowCrossOrigin bool, allowedOrigins []string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.ToLower(strings.TrimSuffix(o, "/"))] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if allowCrossOrigin {
			return next
		}
		return func(c echo.Context) error {
			req := c.Request()
			origin := req.Header.Get(echo.HeaderOrigin)

			if origin != "" && allowed[strings.ToLower(origin)] {
				return next(c)
			}
			if req.Header.Get("Sec-Fetch-Site") == "cross-site" {
				return reject(c)
			}
			if origin != "" && !sameHost(origin, req.Host) {
				return reject(c)
			}
			return next(c)
		}
	}
}

func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, host)
}

func reject(c echo.Context) error {
	return c.JSON(http.StatusForbidden, map[string]string{"error": "Cross-origin request rejected"})
}
