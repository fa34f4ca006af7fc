package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/domain/integration"
	"github.com/stockitup/backend/internal/infrastructure/config"
	"github.com/stockitup/backend/internal/interfaces/http/dto"
)

// marketplaceParam reads the :marketplace path segment. Unknown codes are
// rejected by the channel service.
func marketplaceParam(c *gin.Context) integration.MarketplaceCode {
	return integration.MarketplaceCode(c.Param("marketplace"))
}

// queryInt reads an integer query parameter, falling back to def when absent or malformed
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// wantsJSON reports whether the client asked for a JSON answer instead of a redirect
func wantsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}

// Paging holds the list page size defaults
type Paging struct {
	Default int
	Max     int
}

// NewPaging builds the paging defaults from the HTTP configuration
func NewPaging(cfg config.HTTPConfig) Paging {
	return Paging{Default: cfg.PageSize, Max: cfg.MaxPageSize}
}

func (p Paging) apply(page, pageSize int) (int, int) {
	req := dto.PageRequest{Page: page, PageSize: pageSize}.Normalize(p.Default, p.Max)
	return req.Page, req.PageSize
}
