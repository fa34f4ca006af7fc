package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/application/analytics"
)

// defaultTopProducts is the number of products ranked when no limit is given
const defaultTopProducts = 10

// AnalyticsHandler handles the performance ("prestaties") routes
type AnalyticsHandler struct {
	BaseHandler
	analytics *analytics.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(svc *analytics.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: svc}
}

func (h *AnalyticsHandler) period(c *gin.Context) (analytics.PeriodRequest, bool) {
	var req analytics.PeriodRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return req, false
	}
	if req.Days == 0 {
		req.Days = analytics.DefaultDays
	}
	if req.Limit == 0 {
		req.Limit = defaultTopProducts
	}
	return req, true
}

// Overview returns order count, revenue and average order value per currency
//
// @Summary      Order totals of a period
// @Tags         analytics
// @Produce      json
// @Param        days query int false "Period in days" default(30) minimum(1) maximum(365)
// @Success      200 {object} dto.Response{data=analytics.Overview}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /analytics/ [get]
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	req, ok := h.period(c)
	if !ok {
		return
	}
	overview, err := h.analytics.Overview(c.Request.Context(), req.Days)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, overview)
}

// Revenue returns the revenue per channel
//
// @Summary      Revenue per channel
// @Tags         analytics
// @Produce      json
// @Param        days query int false "Period in days" default(30) minimum(1) maximum(365)
// @Success      200 {object} dto.Response{data=[]analytics.ChannelRevenue}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /analytics/revenue/ [get]
func (h *AnalyticsHandler) Revenue(c *gin.Context) {
	req, ok := h.period(c)
	if !ok {
		return
	}
	revenue, err := h.analytics.RevenueByChannel(c.Request.Context(), req.Days)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, revenue)
}

// Status returns the number of orders in each status
//
// @Summary      Orders per status
// @Tags         analytics
// @Produce      json
// @Success      200 {object} dto.Response{data=[]analytics.StatusCount}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /analytics/status/ [get]
func (h *AnalyticsHandler) Status(c *gin.Context) {
	counts, err := h.analytics.OrdersByStatus(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, counts)
}

// TopProducts ranks products by quantity sold
//
// @Summary      Best selling products
// @Tags         analytics
// @Produce      json
// @Param        days query int false "Period in days" default(30) minimum(1) maximum(365)
// @Param        limit query int false "Number of products" default(10) minimum(1) maximum(100)
// @Success      200 {object} dto.Response{data=[]analytics.TopProduct}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /analytics/top-products/ [get]
func (h *AnalyticsHandler) TopProducts(c *gin.Context) {
	req, ok := h.period(c)
	if !ok {
		return
	}
	top, err := h.analytics.TopProducts(c.Request.Context(), req.Days, req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, top)
}

// Trend returns one point per day of the period
//
// @Summary      Daily order trend
// @Tags         analytics
// @Produce      json
// @Param        days query int false "Period in days" default(30) minimum(1) maximum(365)
// @Success      200 {object} dto.Response{data=[]analytics.TrendPoint}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /analytics/trend/ [get]
func (h *AnalyticsHandler) Trend(c *gin.Context) {
	req, ok := h.period(c)
	if !ok {
		return
	}
	trend, err := h.analytics.DailyTrend(c.Request.Context(), req.Days)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, trend)
}
