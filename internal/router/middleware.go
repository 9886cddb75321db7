package router

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"schoolregistry/internal/auth"
	"schoolregistry/internal/handler"
	"schoolregistry/internal/model"
	"schoolregistry/internal/service"
)

// RequireSession resolves the presented token and stores the user on the
// context. Requests without a valid session are rejected with 401.
func RequireSession(authService service.AuthService, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := handler.SessionToken(c, cookieName)
			user, err := authService.ResolveUser(c.Request().Context(), token)
			if err != nil {
				return handler.ErrorHTTP(err)
			}
			c.Set(handler.ContextUserKey, user)
			return next(c)
		}
	}
}

// RequireRole admits only users holding one of roles. It must run after
// RequireSession.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := auth.RequireRole(handler.CurrentUser(c), roles...); err != nil {
				return handler.ErrorHTTP(err)
			}
			return next(c)
		}
	}
}

// RequestLogger writes one slog record per request.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			switch {
			case v.Status >= 500:
				logger.Error("request", append(attrs, "error", v.Error)...)
			case v.Error != nil:
				logger.Info("request", append(attrs, "error", v.Error)...)
			default:
				logger.Info("request", attrs...)
			}
			return nil
		},
	})
}
