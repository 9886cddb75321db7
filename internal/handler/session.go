package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"schoolregistry/internal/errors"
	"schoolregistry/internal/model"
)

// ContextUserKey is where the session middleware stores the resolved user.
const ContextUserKey = "user"

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name     string
	Secure   bool
	Lifetime time.Duration
}

// SessionToken returns the token presented with the request: the session
// cookie, or else an "Authorization: Bearer" header.
func SessionToken(c echo.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// CurrentUser returns the user resolved for this request, or nil.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(ContextUserKey).(*model.User)
	return user
}

func (cfg CookieConfig) set(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     cfg.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cfg.Lifetime / time.Second),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (cfg CookieConfig) clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ErrorHTTP converts a domain error into the standard error response. The
// cause is kept as the internal error so the request logger records it.
func ErrorHTTP(err error) *echo.HTTPError {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).WithInternal(err)
}

func badRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: msg,
		Code:  "BAD_REQUEST",
	})
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid id",
			Code:  "INVALID_UUID",
		})
	}
	return id, nil
}
