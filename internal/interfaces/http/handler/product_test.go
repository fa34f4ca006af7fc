package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/application/catalog"
	"github.com/stockitup/backend/internal/infrastructure/csvimport"
	"github.com/stockitup/backend/internal/interfaces/http/dto"
	"github.com/stockitup/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productRouter(app *testApp) (*gin.Engine, *ProductHandler) {
	h := NewProductHandler(app.products, app.paging())
	r := app.engine()
	r.GET("/products/", h.List)
	r.POST("/products/", h.Create)
	r.GET("/products/search/", h.Search)
	r.GET("/products/duplicates/", h.Duplicates)
	r.GET("/products/:id/", h.Get)
	r.PATCH("/products/:id/", h.Update)
	r.POST("/products/:id/delete/", h.Delete)
	r.DELETE("/products/:id/", h.Destroy)
	r.POST("/products/:id/stock/", h.AdjustStock)
	r.POST("/products/:id/image/", h.UploadImage)
	r.POST("/products/import/", h.Import)
	return r, h
}

func TestProductHandler_Create(t *testing.T) {
	app := newTestApp(t)
	r, _ := productRouter(app)

	t.Run("json body", func(t *testing.T) {
		w := app.request(r, http.MethodPost, "/products/", map[string]any{
			"sku":            "MUG-001",
			"name":           "Koffiemok",
			"price":          "12.50",
			"stock_quantity": 8,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var p catalog.ProductResponse
		decodeData(t, w, &p)
		assert.Equal(t, "MUG-001", p.SKU)
		assert.Equal(t, "12.5", p.Price.String())
		assert.Equal(t, 8, p.StockQuantity)
	})

	t.Run("form post", func(t *testing.T) {
		form := url.Values{"sku": {"MUG-002"}, "name": {"Theemok"}, "stock_quantity": {"3"}}
		req := httptest.NewRequest(http.MethodPost, "/products/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Authorization", "Bearer "+app.token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("duplicate sku conflicts", func(t *testing.T) {
		w := app.request(r, http.MethodPost, "/products/", map[string]any{"sku": "MUG-001", "name": "Again"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeAlreadyExists, decodeResponse(t, w).Error.Code)
	})

	t.Run("missing name", func(t *testing.T) {
		w := app.request(r, http.MethodPost, "/products/", map[string]any{"sku": "MUG-003"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.NotEmpty(t, resp.Error.Details)
		assert.Equal(t, "name", resp.Error.Details[0].Field)
	})

	t.Run("bad ean checksum", func(t *testing.T) {
		w := app.request(r, http.MethodPost, "/products/", map[string]any{"sku": "MUG-004", "name": "Mok", "ean": "8712345678901"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProductHandler_List(t *testing.T) {
	app := newTestApp(t)
	r, _ := productRouter(app)
	app.createProduct(t, "A-1", 20, 5)
	app.createProduct(t, "A-2", 2, 5)
	app.createProduct(t, "B-1", 0, 5)

	t.Run("paginated", func(t *testing.T) {
		w := app.request(r, http.MethodGet, "/products/?page_size=2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(3), resp.Meta.Total)
		assert.Equal(t, 2, resp.Meta.PageSize)
		assert.Equal(t, 2, resp.Meta.TotalPages)
	})

	t.Run("low stock only", func(t *testing.T) {
		w := app.request(r, http.MethodGet, "/products/?low_stock=true", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var items []catalog.ProductResponse
		decodeData(t, w, &items)
		require.Len(t, items, 2)
		for _, p := range items {
			assert.True(t, p.IsLowStock)
		}
	})

	t.Run("page size capped", func(t *testing.T) {
		w := app.request(r, http.MethodGet, "/products/?page_size=5000", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, app.cfg.HTTP.MaxPageSize, decodeResponse(t, w).Meta.PageSize)
	})

	t.Run("search", func(t *testing.T) {
		w := app.request(r, http.MethodGet, "/products/search/?q=A-", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var items []catalog.ProductResponse
		decodeData(t, w, &items)
		assert.Len(t, items, 2)
	})
}

func TestProductHandler_GetUpdateDelete(t *testing.T) {
	app := newTestApp(t)
	r, _ := productRouter(app)
	p := app.createProduct(t, "LAMP-1", 4, 2)
	path := "/products/" + p.ID.String() + "/"

	w := app.request(r, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.request(r, http.MethodGet, "/products/not-a-uuid/", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.request(r, http.MethodPatch, path, map[string]any{"name": "Bureaulamp"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated catalog.ProductResponse
	decodeData(t, w, &updated)
	assert.Equal(t, "Bureaulamp", updated.Name)
	assert.Equal(t, "LAMP-1", updated.SKU)

	w = app.request(r, http.MethodPost, path+"stock/", map[string]any{"delta": -3, "reason": "stocktake"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var adjusted catalog.ProductResponse
	decodeData(t, w, &adjusted)
	assert.Equal(t, 1, adjusted.StockQuantity)
	assert.True(t, adjusted.IsLowStock)

	w = app.request(r, http.MethodPost, path+"stock/", map[string]any{"delta": -5})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeInsufficientStock, decodeResponse(t, w).Error.Code)

	w = app.request(r, http.MethodPost, path+"delete/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Product deleted")

	w = app.request(r, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.request(r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductHandler_Destroy(t *testing.T) {
	app := newTestApp(t)
	r, _ := productRouter(app)
	p := app.createProduct(t, "CHAIR-1", 1, 0)

	w := app.request(r, http.MethodDelete, "/products/"+p.ID.String()+"/", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func imageUpload(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "photo.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestProductHandler_UploadImage(t *testing.T) {
	app := newTestApp(t)
	r, _ := productRouter(app)
	p := app.createProduct(t, "VASE-1", 1, 0)
	path := "/products/" + p.ID.String() + "/image/"

	send := func(body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+app.token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("png is stored", func(t *testing.T) {
		png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
		body, ct := imageUpload(t, "image", png)
		w := send(body, ct)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var updated catalog.ProductResponse
		decodeData(t, w, &updated)
		assert.True(t, strings.HasPrefix(updated.ImageURL, app.cfg.Storage.MediaURL+"products/VASE-1/"), updated.ImageURL)
		assert.True(t, strings.HasSuffix(updated.ImageURL, ".png"))
	})

	t.Run("text file rejected", func(t *testing.T) {
		body, ct := imageUpload(t, "image", []byte("just some text"))
		w := send(body, ct)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("missing field", func(t *testing.T) {
		body, ct := imageUpload(t, "photo", []byte("\x89PNG\r\n\x1a\n"))
		w := send(body, ct)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("body over the limit", func(t *testing.T) {
		limited := gin.New()
		limited.Use(middleware.BodyLimit(64))
		limited.POST("/products/:id/image/", NewProductHandler(app.products, app.paging()).UploadImage)

		body, ct := imageUpload(t, "image", bytes.Repeat([]byte{0x89}, 1024))
		req := httptest.NewRequest(http.MethodPost, path, body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		limited.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestProductHandler_Import(t *testing.T) {
	app := newTestApp(t)
	r, _ := productRouter(app)
	app.createProduct(t, "MUG-001", 10, 2)

	send := func(field, content string) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile(field, "producten.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/products/import/", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+app.token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("creates and updates by sku", func(t *testing.T) {
		w := send("file", "sku;naam;voorraad\nMUG-001;Koffiemok;6\nTEA-1;Theedoek;3\n")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var report csvimport.Report
		decodeData(t, w, &report)
		assert.Equal(t, 2, report.Rows)
		assert.Equal(t, 1, report.Created)
		assert.Equal(t, 1, report.Updated)
		assert.Empty(t, report.Errors)

		levels, err := app.products.StockLevels(t.Context())
		require.NoError(t, err)
		stock := map[string]int{}
		for _, l := range levels {
			stock[l.SKU] = l.Quantity
		}
		assert.Equal(t, map[string]int{"MUG-001": 6, "TEA-1": 3}, stock)
	})

	t.Run("unreadable file", func(t *testing.T) {
		w := send("file", "name\nMok\n")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidImport, decodeResponse(t, w).Error.Code)
	})

	t.Run("missing upload", func(t *testing.T) {
		w := send("csv", "sku\nA-1\n")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
