package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/application/partner"
	domainpartner "github.com/stockitup/backend/internal/domain/partner"
)

// FulfillerHandler handles the fulfiller routes
type FulfillerHandler struct {
	BaseHandler
	onboarding *partner.OnboardingService
}

// NewFulfillerHandler creates a new FulfillerHandler
func NewFulfillerHandler(onboarding *partner.OnboardingService) *FulfillerHandler {
	return &FulfillerHandler{onboarding: onboarding}
}

// List returns every fulfiller
func (h *FulfillerHandler) List(c *gin.Context) {
	fulfillers, err := h.onboarding.Fulfillers(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, fulfillers)
}

// Get returns one fulfiller
func (h *FulfillerHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	fulfiller, err := h.onboarding.Fulfiller(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, fulfiller)
}

// Create adds a fulfiller
func (h *FulfillerHandler) Create(c *gin.Context) {
	var req partner.FulfillerRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.ID = ""
	fulfiller, err := h.onboarding.SaveFulfiller(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, fulfiller)
}

// Update changes the fulfiller named in the path
func (h *FulfillerHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req partner.FulfillerRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.ID = id.String()
	fulfiller, err := h.onboarding.SaveFulfiller(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, fulfiller)
}

// Delete removes a fulfiller
func (h *FulfillerHandler) Delete(c *gin.Context) {
	if err := h.onboarding.Delete(c.Request.Context(), domainpartner.StepFulfillers, c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: "Fulfiller deleted"})
}

// WarehouseHandler handles the warehouse routes
type WarehouseHandler struct {
	BaseHandler
	onboarding *partner.OnboardingService
}

// NewWarehouseHandler creates a new WarehouseHandler
func NewWarehouseHandler(onboarding *partner.OnboardingService) *WarehouseHandler {
	return &WarehouseHandler{onboarding: onboarding}
}

// List returns every warehouse
func (h *WarehouseHandler) List(c *gin.Context) {
	warehouses, err := h.onboarding.Warehouses(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, warehouses)
}

// Get returns one warehouse
func (h *WarehouseHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	warehouse, err := h.onboarding.Warehouse(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, warehouse)
}

// Create adds a warehouse
func (h *WarehouseHandler) Create(c *gin.Context) {
	var req partner.WarehouseRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.ID = ""
	warehouse, err := h.onboarding.SaveWarehouse(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, warehouse)
}

// Update changes the warehouse named in the path
func (h *WarehouseHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req partner.WarehouseRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.ID = id.String()
	warehouse, err := h.onboarding.SaveWarehouse(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, warehouse)
}

// Delete removes a warehouse
func (h *WarehouseHandler) Delete(c *gin.Context) {
	if err := h.onboarding.Delete(c.Request.Context(), domainpartner.StepWarehouses, c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: "Warehouse deleted"})
}
