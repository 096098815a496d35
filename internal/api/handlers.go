// Package api exposes an InterfaceManager over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/shazow/wifiap/wifi"
	"github.com/shazow/wifiap/wifi/manager"
)

// ToggleRequest is the body of PUT /api/v1/wifi and PUT /api/v1/ap.
type ToggleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// Handler serves the HTTP API. Requests are serialized since the manager
// isn't safe for concurrent use.
type Handler struct {
	mu      sync.Mutex
	manager manager.InterfaceManager
	ssid    string
	logger  *slog.Logger
}

// NewHandler creates a Handler. ssid is shown on the captive portal page.
func NewHandler(m manager.InterfaceManager, ssid string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{manager: m, ssid: ssid, logger: logger}
}

// RegisterRoutes registers the API routes and the portal page.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.Portal)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", h.GetStatus)
		v1.GET("/networks", h.GetNetworks)
		v1.PUT("/wifi", h.SetWiFi)
		v1.PUT("/ap", h.SetAP)
		v1.POST("/wifi/disconnect", h.Disconnect)
		v1.POST("/dhcp/start", h.StartDHCP)
		v1.POST("/dhcp/stop", h.StopDHCP)
	}
}

func (h *Handler) status() manager.Status {
	return manager.Snapshot(h.manager)
}

// GetStatus handles GET /api/v1/status
func (h *Handler) GetStatus(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.JSON(http.StatusOK, h.status())
}

// GetNetworks handles GET /api/v1/networks. It blocks until the scan
// reports or times out.
func (h *Handler) GetNetworks(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	networks, err := h.manager.AvailableNetworks(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	wifi.SortNetworks(networks)
	c.JSON(http.StatusOK, networks)
}

// SetWiFi handles PUT /api/v1/wifi
func (h *Handler) SetWiFi(c *gin.Context) {
	h.toggle(c, h.manager.EnableWiFi, h.manager.DisableWiFi)
}

// SetAP handles PUT /api/v1/ap
func (h *Handler) SetAP(c *gin.Context) {
	h.toggle(c, h.manager.EnableAP, h.manager.DisableAP)
}

func (h *Handler) toggle(c *gin.Context, enable, disable func() error) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	fn := disable
	if *req.Enabled {
		fn = enable
	}
	if err := fn(); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.status())
}

// Disconnect handles POST /api/v1/wifi/disconnect
func (h *Handler) Disconnect(c *gin.Context) {
	h.do(c, h.manager.DisconnectWiFi)
}

// StartDHCP handles POST /api/v1/dhcp/start
func (h *Handler) StartDHCP(c *gin.Context) {
	h.do(c, h.manager.StartDHCP)
}

// StopDHCP handles POST /api/v1/dhcp/stop
func (h *Handler) StopDHCP(c *gin.Context) {
	h.do(c, h.manager.StopDHCP)
}

func (h *Handler) do(c *gin.Context, fn func() error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := fn(); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.status())
}

// Portal serves the page clients of the access point are redirected to.
func (h *Handler) Portal(c *gin.Context) {
	h.mu.Lock()
	st := h.status()
	h.mu.Unlock()

	online := "offline"
	if st.WiFiIPAddress != "" {
		online = "online"
	}
	page := fmt.Sprintf(portalPage, html.EscapeString(h.ssid), html.EscapeString(h.ssid), online)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

const portalPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body>
<h1>%s</h1>
<p>Uplink is %s.</p>
</body>
</html>
`

func (h *Handler) fail(c *gin.Context, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.Request.URL.Path, "err", err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, wifi.ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, wifi.ErrNoScanAdapter), errors.Is(err, wifi.ErrNotAvailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}
