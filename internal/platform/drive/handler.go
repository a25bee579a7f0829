package drive

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes the drive link over HTTP.
type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/drive/status", h.GetStatus)
	g.GET("/drive/auth-url", h.GetAuthURL)
	g.GET("/drive/callback", h.HandleCallback)
	g.DELETE("/drive/link", h.Unlink)
}

func (h *Handler) GetStatus(c echo.Context) error {
	st, err := h.client.Status(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read drive status")
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) GetAuthURL(c echo.Context) error {
	u, err := h.client.AuthURL(c.QueryParam("state"))
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return echo.NewHTTPError(http.StatusConflict, authErr.Reason)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build auth url")
	}
	return c.JSON(http.StatusOK, map[string]string{"auth_url": u})
}

func (h *Handler) HandleCallback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing code parameter")
	}
	if err := h.client.Exchange(c.Request().Context(), code); err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return echo.NewHTTPError(http.StatusBadGateway, authErr.Reason)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "token exchange failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "linked"})
}

func (h *Handler) Unlink(c echo.Context) error {
	if err := h.client.Unlink(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to unlink drive")
	}
	return c.NoContent(http.StatusNoContent)
}
