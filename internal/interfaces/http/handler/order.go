package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/application/trade"
	domaintrade "github.com/stockitup/backend/internal/domain/trade"
)

// OrderHandler handles the order routes
type OrderHandler struct {
	BaseHandler
	orders *trade.OrderService
	paging Paging
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders *trade.OrderService, paging Paging) *OrderHandler {
	return &OrderHandler{orders: orders, paging: paging}
}

// List returns a page of orders.
// Query: status, channel, q, order_by, order_dir, page, page_size.
//
// @Summary      List orders
// @Tags         orders
// @Produce      json
// @Param        status query string false "Order status" Enums(new, processing, shipped, delivered, cancelled)
// @Param        channel query string false "Sales channel"
// @Param        q query string false "Search in reference and customer"
// @Param        order_by query string false "Sort field" Enums(created_at, updated_at, reference, channel, status, total)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]trade.OrderResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/ [get]
func (h *OrderHandler) List(c *gin.Context) {
	var filter trade.OrderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	filter.Page, filter.PageSize = h.paging.apply(filter.Page, filter.PageSize)

	page, err := h.orders.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Create enters a manual order
//
// @Summary      Enter an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body trade.CreateOrderRequest true "Order"
// @Success      201 {object} dto.Response{data=trade.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/ [post]
func (h *OrderHandler) Create(c *gin.Context) {
	var req trade.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	order, err := h.orders.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// Batches groups the open orders for picking
//
// @Summary      Group open orders into picking batches
// @Tags         orders
// @Produce      json
// @Success      200 {object} dto.Response{data=[]domaintrade.Batch}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/batches/ [get]
func (h *OrderHandler) Batches(c *gin.Context) {
	batches, err := h.orders.Batches(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batches)
}

// Get returns one order with its items
//
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=trade.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/ [get]
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// UpdateStatus moves the order to the requested status
//
// @Summary      Change the order status
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body trade.UpdateStatusRequest true "New status"
// @Success      200 {object} dto.Response{data=trade.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/ [put]
// @Router       /orders/{id}/ [patch]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req trade.UpdateStatusRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Cancel cancels an order. Orders are never removed, so DELETE on the API cancels.
//
// @Summary      Cancel an order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=trade.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/ [delete]
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), id, trade.UpdateStatusRequest{
		Status: string(domaintrade.OrderStatusCancelled),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Label renders the PDF shipping label
//
// @Summary      Shipping label
// @Tags         orders
// @Produce      application/pdf
// @Param        id path string true "Order ID" format(uuid)
// @Param        inline query string false "Show in the browser instead of downloading"
// @Success      200 {file} binary
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/label/ [get]
func (h *OrderHandler) Label(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var buf bytes.Buffer
	filename, err := h.orders.RenderLabel(c.Request.Context(), id, &buf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	disposition := "attachment"
	if c.Query("inline") != "" {
		disposition = "inline"
	}
	c.Header("Content-Disposition", disposition+"; filename="+strconv.Quote(filename))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
