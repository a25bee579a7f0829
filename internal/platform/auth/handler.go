package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes the PIN endpoints.
type Handler struct {
	pins *PINService
}

func NewHandler(pins *PINService) *Handler {
	return &Handler{pins: pins}
}

// RegisterRoutes mounts the PIN endpoints. These are public: setting the PIN
// first-run and verifying it are what produce a session in the first place.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/auth/pin", h.PINStatus)
	e.POST("/auth/pin", h.SetPIN)
	e.POST("/auth/pin/verify", h.VerifyPIN)
}

type pinRequest struct {
	PIN string `json:"pin"`
}

func (h *Handler) PINStatus(c echo.Context) error {
	set, err := h.pins.IsSet(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to check pin status")
	}
	return c.JSON(http.StatusOK, map[string]bool{"pin_set": set})
}

func (h *Handler) SetPIN(c echo.Context) error {
	var req pinRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.pins.SetPIN(c.Request().Context(), req.PIN); err != nil {
		if errors.Is(err, ErrPINInvalid) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to set pin")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "pin set"})
}

func (h *Handler) VerifyPIN(c echo.Context) error {
	var req pinRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	token, err := h.pins.VerifyPIN(c.Request().Context(), req.PIN)
	if err != nil {
		switch {
		case errors.Is(err, ErrPINNotSet):
			return echo.NewHTTPError(http.StatusConflict, "pin not set")
		case errors.Is(err, ErrPINMismatch):
			return echo.NewHTTPError(http.StatusUnauthorized, "incorrect pin")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to verify pin")
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}
