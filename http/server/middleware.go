package server

import (
	"cmp"
	"slices"

	"github.com/gofiber/fiber/v2"
)

// Middleware is a fiber handler installed ahead of every route.
// Higher Priority runs first. Equal priorities keep registration order.
type Middleware struct {
	Priority int
	Handler  fiber.Handler
}

func applyMiddlewares(app *fiber.App, middlewares []Middleware) {
	ordered := slices.Clone(middlewares)
	slices.SortStableFunc(ordered, func(a, b Middleware) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	for _, mw := range ordered {
		if mw.Handler != nil {
			app.Use(mw.Handler)
		}
	}
}
