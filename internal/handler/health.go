package handler

import (
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"music-proxy-go/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves the health and status endpoints.
type HealthHandler struct {
	cfg       *config.Config
	version   Version
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, startTime: time.Now()}
}

// Health returns a liveness payload for probes and player startup checks.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.startTime).Round(time.Second).String(),
		"port":      h.cfg.Server.Port,
	})
}

// Status returns proxy diagnostics: version, configured upstreams, and
// best-effort process and host memory readings.
func (h *HealthHandler) Status(c echo.Context) error {
	payload := map[string]any{
		"status":       "ok",
		"version":      string(h.version),
		"uptime":       time.Since(h.startTime).Round(time.Second).String(),
		"api_base_url": h.cfg.API.BaseURL,
		"audio_domain": h.cfg.Audio.AllowedDomain,
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		payload["host_memory"] = map[string]any{
			"total_bytes":     vm.Total,
			"available_bytes": vm.Available,
			"used_percent":    vm.UsedPercent,
		}
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			payload["process_memory"] = map[string]any{
				"rss_bytes": mi.RSS,
				"vms_bytes": mi.VMS,
			}
		}
	}

	return c.JSON(http.StatusOK, payload)
}
