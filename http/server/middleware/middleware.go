// Package middleware holds the Fiber middlewares of the admin HTTP server.
//
// Each middleware declares a priority; higher values run earlier:
//
//   - Recovery (1000): turns panics into errors
//   - Tracing (900): opens a server span and injects request meta
//   - Logger (500): logs every request with its outcome
//   - ErrorHandler (400): writes errx errors as JSON responses
//   - Timeout (300): bounds the request context of the route handler
//
// Usage:
//
//	srv := server.NewHTTPServer(cfg, []server.Middleware{
//		middleware.NewRecoveryMW(log),
//		middleware.NewTracingMW(),
//		middleware.NewTimeoutMW(cfg.HandleTimeout),
//		middleware.NewLoggerMW(log),
//		middleware.NewErrorHandlerMW(cfg.HideErrorDetails),
//	})
package middleware
