package router

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"schoolregistry/internal/auth"
	"schoolregistry/internal/config"
	"schoolregistry/internal/handler"
	"schoolregistry/internal/service"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger *slog.Logger,
	authService service.AuthService,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	schoolHandler *handler.SchoolHandler,
) {
	e.Use(middleware.RequestID())
	e.Use(RequestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType,
			echo.HeaderAccept, echo.HeaderAuthorization,
		},
	}))

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)

	// Session and role checks are per route so unknown paths stay 404.
	session := RequireSession(authService, cfg.SessionCookieName)
	editor := RequireRole(auth.AdminOrStaff...)
	admin := RequireRole(auth.AdminOnly...)

	api.GET("/auth/me", authHandler.Me, session)
	api.PATCH("/auth/update_password", authHandler.UpdatePassword, session)
	api.POST("/auth/logout_all", authHandler.LogoutAll, session)

	schools := api.Group("/schools")
	schools.GET("", schoolHandler.ListSchools, session)
	schools.GET("/:id", schoolHandler.GetSchool, session)
	schools.POST("", schoolHandler.CreateSchool, session, editor)
	schools.PUT("/:id", schoolHandler.UpdateSchool, session, editor)
	schools.PATCH("/:id/status", schoolHandler.UpdateSchoolStatus, session, editor)
	schools.DELETE("/:id", schoolHandler.DeleteSchool, session, editor)

	users := api.Group("/users")
	users.GET("", userHandler.ListUsers, session, admin)
	users.POST("", userHandler.CreateUser, session, admin)
	users.POST("/add", userHandler.CreateUser, session, admin)
	users.GET("/:id", userHandler.GetUser, session, admin)
	users.PATCH("/:id", userHandler.UpdateUser, session, admin)
	users.DELETE("/:id", userHandler.DeleteUser, session, admin)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
