package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/application/integration"
	"github.com/stockitup/backend/internal/infrastructure/logger"
	"github.com/stockitup/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// channelsPage is where the OAuth callback sends the browser back to
const channelsPage = "/channels/"

// ChannelHandler handles marketplace connections, OAuth and synchronisation
type ChannelHandler struct {
	BaseHandler
	channels *integration.ChannelService
}

// NewChannelHandler creates a new ChannelHandler
func NewChannelHandler(channels *integration.ChannelService) *ChannelHandler {
	return &ChannelHandler{channels: channels}
}

// List returns every marketplace with its connection state
//
// @Summary      List marketplaces
// @Tags         channels
// @Produce      json
// @Success      200 {object} dto.Response{data=[]integration.ChannelResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /channels/ [get]
func (h *ChannelHandler) List(c *gin.Context) {
	channels, err := h.channels.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, channels)
}

// Get returns one marketplace
//
// @Summary      Get a marketplace connection
// @Tags         channels
// @Produce      json
// @Param        marketplace path string true "Marketplace" Enums(bol_com, amazon_eu, ebay)
// @Success      200 {object} dto.Response{data=integration.ChannelResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /channels/{marketplace}/ [get]
// @Router       /sellers/{marketplace}/ [get]
func (h *ChannelHandler) Get(c *gin.Context) {
	channel, err := h.channels.Get(c.Request.Context(), marketplaceParam(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, channel)
}

// Status summarises connections and the last synchronisation
//
// @Summary      Synchronisation status
// @Tags         channels
// @Produce      json
// @Success      200 {object} dto.Response{data=integration.SyncStatus}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /channels/status/ [get]
func (h *ChannelHandler) Status(c *gin.Context) {
	status, err := h.channels.Status(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// Connect starts the OAuth flow and sends the browser to the marketplace consent page.
// Clients asking for JSON receive the URL instead of a redirect.
//
// @Summary      Start the marketplace OAuth flow
// @Tags         channels
// @Produce      json
// @Param        marketplace path string true "Marketplace" Enums(bol_com, amazon_eu, ebay)
// @Success      200 {object} dto.Response{data=RedirectData}
// @Success      302
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /channels/{marketplace}/connect/ [get]
func (h *ChannelHandler) Connect(c *gin.Context) {
	authorizeURL, err := h.channels.StartOAuth(c.Request.Context(), marketplaceParam(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if wantsJSON(c) {
		h.Success(c, RedirectData{Location: authorizeURL})
		return
	}
	c.Redirect(http.StatusFound, authorizeURL)
}

// Callback completes the OAuth flow with the state and code the marketplace sent back
//
// @Summary      Complete the marketplace OAuth flow
// @Tags         channels
// @Produce      json
// @Param        marketplace path string true "Marketplace" Enums(bol_com, amazon_eu, ebay)
// @Param        state query string true "State issued by connect"
// @Param        code query string false "Authorization code"
// @Param        spapi_oauth_code query string false "Amazon authorization code"
// @Param        error query string false "Set when consent was refused"
// @Success      200 {object} dto.Response{data=integration.ChannelResponse}
// @Success      302
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /channels/{marketplace}/callback/ [get]
// @Router       /sellers/{marketplace}/callback/ [get]
func (h *ChannelHandler) Callback(c *gin.Context) {
	code := marketplaceParam(c)
	if denied := c.Query("error"); denied != "" {
		logger.GetGinLogger(c).Warn("Marketplace consent refused",
			zap.String("marketplace", string(code)),
			zap.String("error", denied),
			zap.String("description", c.Query("error_description")),
		)
		h.Error(c, http.StatusBadRequest, dto.ErrCodeMarketplaceAuth, "Authorization was not granted: "+denied)
		return
	}

	authCode := c.Query("code")
	if authCode == "" {
		// Amazon SP-API names the code differently
		authCode = c.Query("spapi_oauth_code")
	}
	if authCode == "" {
		h.BadRequest(c, "Missing authorization code")
		return
	}

	channel, err := h.channels.CompleteOAuth(c.Request.Context(), code, c.Query("state"), authCode)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if wantsJSON(c) {
		h.Success(c, channel)
		return
	}
	c.Redirect(http.StatusFound, channelsPage+"?connected="+url.QueryEscape(string(code)))
}

// Disconnect forgets the marketplace tokens
//
// @Summary      Disconnect a marketplace
// @Tags         channels
// @Produce      json
// @Param        marketplace path string true "Marketplace" Enums(bol_com, amazon_eu, ebay)
// @Success      200 {object} dto.Response{data=MessageData}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /channels/{marketplace}/disconnect/ [post]
// @Router       /channels/{marketplace}/ [delete]
func (h *ChannelHandler) Disconnect(c *gin.Context) {
	code := marketplaceParam(c)
	if err := h.channels.Disconnect(c.Request.Context(), code); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: code.DisplayName() + " disconnected"})
}

// Sync synchronises one marketplace now
//
// @Summary      Synchronise one marketplace
// @Tags         channels
// @Produce      json
// @Param        marketplace path string true "Marketplace" Enums(bol_com, amazon_eu, ebay)
// @Param        only query string false "Limit the run to one direction" Enums(orders, stock)
// @Success      200 {object} dto.Response{data=integration.SyncResult}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /channels/{marketplace}/sync/ [post]
func (h *ChannelHandler) Sync(c *gin.Context) {
	result, err := h.channels.Sync(c.Request.Context(), marketplaceParam(c), syncOptions(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SyncAll synchronises every connected marketplace. Per-marketplace failures
// are reported in the results rather than failing the request.
//
// @Summary      Synchronise every connected marketplace
// @Tags         channels
// @Produce      json
// @Param        only query string false "Limit the run to one direction" Enums(orders, stock)
// @Success      200 {object} dto.Response{data=[]integration.SyncResult}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /channels/sync/ [post]
func (h *ChannelHandler) SyncAll(c *gin.Context) {
	results, err := h.channels.Run(c.Request.Context(), syncOptions(c))
	if err != nil {
		logger.GetGinLogger(c).Warn("Sync finished with errors", zap.Error(err))
	}
	if results == nil {
		results = []integration.SyncResult{}
	}
	h.Success(c, results)
}

// syncOptions reads the optional orders/stock switches; both default to on
func syncOptions(c *gin.Context) integration.SyncOptions {
	opts := integration.FullSync
	switch c.Query("only") {
	case "orders":
		opts.Stock = false
	case "stock":
		opts.Orders = false
	}
	return opts
}
