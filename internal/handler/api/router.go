package api

import (
	"github.com/labstack/echo/v4"

	xhttp "FlipSight/pkg/http"
)

// Router composes the concern-specific handlers into the single Handler
// the HTTP server takes.
type Router struct {
	handlers []xhttp.Handler
}

func NewRouter(handlers ...xhttp.Handler) *Router {
	return &Router{handlers: handlers}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
}
