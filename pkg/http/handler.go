package http

import "github.com/labstack/echo/v4"

// Handler mounts a group of API routes on the server's echo instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// RouteFunc adapts a plain function to Handler.
type RouteFunc func(e *echo.Echo)

func (f RouteFunc) RegisterRoutes(e *echo.Echo) { f(e) }
