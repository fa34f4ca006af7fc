package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/application/catalog"
	"github.com/stockitup/backend/internal/interfaces/http/dto"
)

// productSearchLimit caps the quick search results
const productSearchLimit = 20

// ProductHandler handles product, inventory and search routes
type ProductHandler struct {
	BaseHandler
	products *catalog.ProductService
	paging   Paging
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products *catalog.ProductService, paging Paging) *ProductHandler {
	return &ProductHandler{products: products, paging: paging}
}

// List returns a page of products.
// Query: q, low_stock, order_by, order_dir, page, page_size.
//
// @Summary      List products
// @Tags         products
// @Produce      json
// @Param        q query string false "Search in SKU, name and EAN"
// @Param        low_stock query bool false "Only products at or below their threshold"
// @Param        order_by query string false "Sort field" Enums(created_at, updated_at, sku, name, price, stock_quantity)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]catalog.ProductResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products/ [get]
func (h *ProductHandler) List(c *gin.Context) {
	var filter catalog.ProductListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	filter.Page, filter.PageSize = h.paging.apply(filter.Page, filter.PageSize)

	page, err := h.products.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Search returns the products whose SKU, name or EAN contains q
//
// @Summary      Search products
// @Tags         products
// @Produce      json
// @Param        q query string true "Part of the SKU, name or EAN"
// @Param        limit query int false "Maximum results" default(20)
// @Success      200 {object} dto.Response{data=[]catalog.ProductResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products/search/ [get]
func (h *ProductHandler) Search(c *gin.Context) {
	limit := queryInt(c, "limit", productSearchLimit)
	if limit < 1 || limit > productSearchLimit {
		limit = productSearchLimit
	}
	products, err := h.products.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, products)
}

// Duplicates returns the product pairs that look like the same item
//
// @Summary      Find duplicate products
// @Tags         products
// @Produce      json
// @Success      200 {object} dto.Response{data=[]catalog.DuplicateResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products/duplicates/ [get]
func (h *ProductHandler) Duplicates(c *gin.Context) {
	pairs, err := h.products.FindDuplicates(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, pairs)
}

// Create adds a product from a form post or a JSON body
//
// @Summary      Create a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request body catalog.CreateProductRequest true "Product"
// @Success      201 {object} dto.Response{data=catalog.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products/ [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req catalog.CreateProductRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}
	product, err := h.products.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// Get returns one product
//
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response{data=catalog.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products/{id}/ [get]
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	product, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Update changes the fields present in the request
//
// @Summary      Update a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalog.UpdateProductRequest true "Fields to change"
// @Success      200 {object} dto.Response{data=catalog.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products/{id}/ [put]
// @Router       /products/{id}/ [patch]
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req catalog.UpdateProductRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}
	product, err := h.products.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Delete removes a product from a page form
func (h *ProductHandler) Delete(c *gin.Context) {
	if h.delete(c) {
		h.Success(c, MessageData{Message: "Product deleted"})
	}
}

// Destroy removes a product through the REST API
//
// @Summary      Delete a product
// @Tags         products
// @Param        id path string true "Product ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products/{id}/ [delete]
func (h *ProductHandler) Destroy(c *gin.Context) {
	if h.delete(c) {
		h.NoContent(c)
	}
}

func (h *ProductHandler) delete(c *gin.Context) bool {
	id, ok := h.parseID(c, "id")
	if !ok {
		return false
	}
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return false
	}
	return true
}

// AdjustStock changes the stock level by a signed delta
//
// @Summary      Adjust the stock level
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalog.AdjustStockRequest true "Signed change"
// @Success      200 {object} dto.Response{data=catalog.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products/{id}/stock/ [post]
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req catalog.AdjustStockRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}
	product, err := h.products.AdjustStock(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// UploadImage stores the multipart "image" file as the product picture
//
// @Summary      Upload the product image
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        image formData file true "Image file"
// @Success      200 {object} dto.Response{data=catalog.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products/{id}/image/ [post]
func (h *ProductHandler) UploadImage(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	file, ok := h.formFile(c, "image", "An image file is required in the \"image\" field")
	if !ok {
		return
	}
	defer file.Close()

	product, err := h.products.UploadImage(c.Request.Context(), id, file)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Import creates or updates products from an uploaded CSV file in the "file" field
//
// @Summary      Import products from CSV
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "CSV with sku, name, price and stock columns"
// @Success      200 {object} dto.Response{data=csvimport.Report}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products/import/ [post]
func (h *ProductHandler) Import(c *gin.Context) {
	file, ok := h.formFile(c, "file", "A CSV file is required in the \"file\" field")
	if !ok {
		return
	}
	defer file.Close()

	report, err := h.products.ImportCSV(c.Request.Context(), file)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

func (h *ProductHandler) formFile(c *gin.Context, field, missing string) (multipart.File, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.ErrorWithCode(c, dto.ErrCodeRequestTooLarge, "Request body too large")
			return nil, false
		}
		h.BadRequest(c, missing)
		return nil, false
	}
	file, err := header.Open()
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return file, true
}
