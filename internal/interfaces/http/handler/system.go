package handler

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/infrastructure/config"
	"github.com/stockitup/backend/internal/interfaces/http/dto"
	"github.com/stockitup/backend/internal/interfaces/http/middleware"
)

//go:embed assets/sw.js
var serviceWorker []byte

// FaviconPath is where /favicon.ico permanently redirects to
const FaviconPath = "/static/img/favicon.ico"

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves the landing page, health check, PWA assets and the
// not-found and server-error answers.
type SystemHandler struct {
	BaseHandler
	db      Pinger
	pwa     config.PWAConfig
	appName string
	version string
	debug   bool
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db Pinger, cfg *config.Config, version string) *SystemHandler {
	return &SystemHandler{
		db:      db,
		pwa:     cfg.PWA,
		appName: cfg.App.Name,
		version: version,
		debug:   cfg.App.Debug,
	}
}

// HomeData is the landing page payload
type HomeData struct {
	Name          string            `json:"name"`
	Version       string            `json:"version,omitempty"`
	Authenticated bool              `json:"authenticated"`
	Email         string            `json:"email,omitempty"`
	Links         map[string]string `json:"links"`
}

// Home answers the landing page
func (h *SystemHandler) Home(c *gin.Context) {
	data := HomeData{
		Name:    h.appName,
		Version: h.version,
		Links: map[string]string{
			"dashboard":  "/dashboard/",
			"onboarding": "/welkom/",
			"products":   "/products/",
			"orders":     "/orders/",
			"channels":   "/channels/",
			"analytics":  "/prestaties/",
			"login":      "/accounts/login/",
		},
	}
	if claims := currentClaims(c); claims != nil {
		data.Authenticated = true
		data.Email = claims.Email
	}
	h.Success(c, data)
}

// Health reports liveness, failing when the database does not answer
func (h *SystemHandler) Health(c *gin.Context) {
	data := HealthData{Status: "healthy", Database: "ok", Version: h.version}
	if err := h.db.Ping(c.Request.Context()); err != nil {
		data.Status = "unhealthy"
		data.Database = err.Error()
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: data})
		return
	}
	h.Success(c, data)
}

// Manifest serves the web app manifest
func (h *SystemHandler) Manifest(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=86400")
	c.Header("Content-Type", "application/manifest+json")
	c.JSON(http.StatusOK, h.pwa)
}

// ServiceWorker serves the service worker script from the site root
func (h *SystemHandler) ServiceWorker(c *gin.Context) {
	c.Header("Service-Worker-Allowed", "/")
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", serviceWorker)
}

// Favicon permanently redirects to the static favicon
func (h *SystemHandler) Favicon(c *gin.Context) {
	c.Redirect(http.StatusMovedPermanently, FaviconPath)
}

// NotFound answers unknown paths and unsupported methods
func (h *SystemHandler) NotFound(c *gin.Context) {
	resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeNotFound, "The requested page could not be found", middleware.GetRequestID(c))
	resp.Error.Path = c.Request.URL.Path
	c.JSON(http.StatusNotFound, resp)
}

// ServerError answers a recovered panic. The panic text is only shown in debug mode.
func (h *SystemHandler) ServerError(c *gin.Context, recovered any) {
	message := "An unexpected error occurred"
	if h.debug {
		message = fmt.Sprint(recovered)
	}
	resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeInternal, message, middleware.GetRequestID(c))
	resp.Error.Path = c.Request.URL.Path
	c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
}
