package storage

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/disk"
)

// Handler exposes storage stats and backup operations over HTTP.
type Handler struct {
	guard *Guard
}

func NewHandler(guard *Guard) *Handler {
	return &Handler{guard: guard}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/storage/stats", h.GetStats)
	g.POST("/storage/backup", h.TriggerBackup)
	g.GET("/storage/backups", h.ListBackups)
}

// hostDisk describes the disk holding the database host's root filesystem.
type hostDisk struct {
	TotalBytes int64   `json:"total_bytes"`
	FreeBytes  int64   `json:"free_bytes"`
	UsedPct    float64 `json:"used_pct"`
}

type statsResponse struct {
	Snapshot
	HostDisk *hostDisk `json:"host_disk,omitempty"`
}

func (h *Handler) GetStats(c echo.Context) error {
	snap, err := h.guard.Evaluate(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to evaluate storage")
	}

	resp := statsResponse{Snapshot: snap}
	// Host disk usage is informational; omit it if the probe fails.
	if usage, err := disk.UsageWithContext(c.Request().Context(), "/"); err == nil {
		resp.HostDisk = &hostDisk{
			TotalBytes: int64(usage.Total),
			FreeBytes:  int64(usage.Free),
			UsedPct:    round2(usage.UsedPercent),
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) TriggerBackup(c echo.Context) error {
	res, err := h.guard.Backup(c.Request().Context())
	switch res.Outcome {
	case OutcomeSucceeded:
		return c.JSON(http.StatusOK, res)
	case OutcomeSkippedNoLink:
		return c.JSON(http.StatusConflict, res)
	default:
		_ = err // detail already carried in the result
		return c.JSON(http.StatusBadGateway, res)
	}
}

func (h *Handler) ListBackups(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	events, err := h.guard.History(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list backups")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"backups": events,
		"count":   len(events),
	})
}
