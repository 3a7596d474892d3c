package middleware

import (
	"time"

	applogger "FinCorr/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one line per request. 5xx responses log at error level.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l == nil {
				return next(c)
			}
			req := c.Request()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("route", c.Path()),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote_ip", c.RealIP()),
				applogger.Int("status", status),
				applogger.Int("bytes", int(c.Response().Size)),
				applogger.Duration("duration_ms", time.Since(start)),
			}
			if status >= 500 {
				l.Error("http request", fields...)
			} else {
				l.Info("http request", fields...)
			}
			return nil
		}
	}
}
