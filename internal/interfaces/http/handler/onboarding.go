package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/application/partner"
	domainpartner "github.com/stockitup/backend/internal/domain/partner"
	"github.com/stockitup/backend/internal/infrastructure/logger"
	"github.com/stockitup/backend/internal/interfaces/http/dto"
	"github.com/stockitup/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// OnboardingHandler serves the welcome flow. Its answers use the
// {status, message} envelope the welcome pages read.
type OnboardingHandler struct {
	onboarding *partner.OnboardingService
}

// NewOnboardingHandler creates a new OnboardingHandler
func NewOnboardingHandler(onboarding *partner.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{onboarding: onboarding}
}

// Overview returns the progress and every record of the welcome flow
func (h *OnboardingHandler) Overview(c *gin.Context) {
	overview, err := h.onboarding.Overview(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OnboardingResponse{Status: dto.StatusSuccess, Data: overview})
}

// Page returns the records of one step with the progress shown on its page
func (h *OnboardingHandler) Page(c *gin.Context) {
	step, ok := h.step(c)
	if !ok {
		return
	}
	page, err := h.onboarding.Page(c.Request.Context(), step)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OnboardingResponse{Status: dto.StatusSuccess, Data: page})
}

// Create stores the posted form of one step. A non-empty id field updates
// the existing record instead.
func (h *OnboardingHandler) Create(c *gin.Context) {
	step, ok := h.step(c)
	if !ok {
		return
	}
	save := map[domainpartner.OnboardingStep]func(*gin.Context) (string, string, error){
		domainpartner.StepAddresses:  h.saveAddress,
		domainpartner.StepSellers:    h.saveSeller,
		domainpartner.StepFulfillers: h.saveFulfiller,
		domainpartner.StepWarehouses: h.saveWarehouse,
	}[step]

	id, message, err := save(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	progress, err := h.onboarding.Progress(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OnboardingResponse{Status: dto.StatusSuccess, Message: message, ID: id, Data: progress})
}

func (h *OnboardingHandler) saveAddress(c *gin.Context) (string, string, error) {
	var req partner.AddressRequest
	if err := c.ShouldBind(&req); err != nil {
		return "", "", invalidBody{err}
	}
	addr, err := h.onboarding.SaveAddress(c.Request.Context(), req)
	if err != nil {
		return "", "", err
	}
	return addr.ID.String(), "Adres opgeslagen", nil
}

func (h *OnboardingHandler) saveSeller(c *gin.Context) (string, string, error) {
	var req partner.SellerRequest
	if err := c.ShouldBind(&req); err != nil {
		return "", "", invalidBody{err}
	}
	seller, err := h.onboarding.SaveSeller(c.Request.Context(), req)
	if err != nil {
		return "", "", err
	}
	return seller.ID.String(), "Verkoper opgeslagen", nil
}

func (h *OnboardingHandler) saveFulfiller(c *gin.Context) (string, string, error) {
	var req partner.FulfillerRequest
	if err := c.ShouldBind(&req); err != nil {
		return "", "", invalidBody{err}
	}
	fulfiller, err := h.onboarding.SaveFulfiller(c.Request.Context(), req)
	if err != nil {
		return "", "", err
	}
	return fulfiller.ID.String(), "Fulfiller opgeslagen", nil
}

func (h *OnboardingHandler) saveWarehouse(c *gin.Context) (string, string, error) {
	var req partner.WarehouseRequest
	if err := c.ShouldBind(&req); err != nil {
		return "", "", invalidBody{err}
	}
	warehouse, err := h.onboarding.SaveWarehouse(c.Request.Context(), req)
	if err != nil {
		return "", "", err
	}
	return warehouse.ID.String(), "Magazijn opgeslagen", nil
}

// Delete removes one record of a step; the body is {"id": "<uuid>"}
func (h *OnboardingHandler) Delete(c *gin.Context) {
	step, ok := h.step(c)
	if !ok {
		return
	}
	var req partner.DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, invalidBody{err})
		return
	}
	if err := h.onboarding.Delete(c.Request.Context(), step, req.ID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OnboardingResponse{Status: dto.StatusSuccess, Message: "Verwijderd", ID: req.ID})
}

func (h *OnboardingHandler) step(c *gin.Context) (domainpartner.OnboardingStep, bool) {
	step, ok := domainpartner.ParseOnboardingStep(c.Param("step"))
	if !ok {
		c.JSON(http.StatusNotFound, dto.OnboardingResponse{Status: dto.StatusError, Message: "Onbekende stap: " + c.Param("step")})
		return "", false
	}
	return step, true
}

// invalidBody marks a request that could not be bound
type invalidBody struct{ error }

func (e invalidBody) Unwrap() error { return e.error }

// fail answers an error in the welcome envelope. Unexpected errors are logged
// and reported without detail.
func (h *OnboardingHandler) fail(c *gin.Context, err error) {
	var bad invalidBody
	if errors.As(err, &bad) {
		message := "Ongeldige invoer"
		if details := middleware.ValidationDetails(bad.error); len(details) > 0 {
			parts := make([]string, 0, len(details))
			for _, d := range details {
				parts = append(parts, d.Field+": "+d.Message)
			}
			message = strings.Join(parts, "; ")
		}
		c.JSON(http.StatusBadRequest, dto.OnboardingResponse{Status: dto.StatusError, Message: message})
		return
	}

	code, message, known := dto.ResolveError(err)
	if !known {
		logger.GetGinLogger(c).Error("Onboarding request failed", zap.Error(err))
	}
	c.JSON(dto.GetHTTPStatus(code), dto.OnboardingResponse{Status: dto.StatusError, Message: message})
}
