package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stockitup/backend/internal/domain/catalog"
	"github.com/stockitup/backend/internal/domain/integration"
	"github.com/stockitup/backend/internal/domain/shared"
	"github.com/stockitup/backend/internal/infrastructure/config"
	"github.com/stockitup/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// ErrImageTooLarge and ErrImageType are returned by UploadImage for rejected files
var (
	ErrImageTooLarge = shared.NewDomainError("FILE_TOO_LARGE", "Uploaded file is too large")
	ErrImageType     = shared.NewDomainError("UNSUPPORTED_MEDIA_TYPE", "Only JPEG, PNG, WebP and GIF images are accepted")
)

const defaultSearchLimit = 20

// ProductService handles product-related business operations
type ProductService struct {
	productRepo catalog.ProductRepository
	events      shared.EventPublisher
	images      storage.ObjectStorage
	rules       catalog.ValidationRules
	threshold   float64
	maxUpload   int64
	logger      *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	events shared.EventPublisher,
	images storage.ObjectStorage,
	business config.BusinessConfig,
	logger *zap.Logger,
) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		productRepo: productRepo,
		events:      events,
		images:      images,
		rules:       catalog.ValidationRules{EAN: business.EANValidation, SKU: business.SKUValidation},
		threshold:   business.DuplicateDetectionThreshold,
		maxUpload:   business.MaxUploadSize,
		logger:      logger.Named("catalog"),
	}
}

// List returns a page of products matching the filter
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) (*shared.Paginated[ProductResponse], error) {
	f := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Search:   filter.Search,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Filters:  map[string]any{},
	}
	if filter.LowStock {
		f.Filters["low_stock"] = true
	}
	products, total, err := s.productRepo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(s.toResponses(ctx, products), total, filter.Page, filter.PageSize)
	return &page, nil
}

// Search returns at most limit products whose SKU, name or EAN contains query
func (s *ProductService) Search(ctx context.Context, query string, limit int) ([]ProductResponse, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	products, _, err := s.productRepo.FindAll(ctx, shared.Filter{Page: 1, PageSize: limit, Search: query})
	if err != nil {
		return nil, err
	}
	return s.toResponses(ctx, products), nil
}

// GetByID returns a product by ID
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(ctx, product)
	return &resp, nil
}

// Create creates a new product
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	product, err := catalog.NewProduct(req.input(), s.rules)
	if err != nil {
		return nil, err
	}
	exists, err := s.productRepo.ExistsBySKU(ctx, product.SKU)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code, "Product with this SKU already exists")
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.logger.Info("Product created", zap.String("sku", product.SKU))

	resp := s.toResponse(ctx, product)
	return &resp, nil
}

// Update updates a product's editable fields
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previousSKU := product.SKU
	if err := product.Update(req.merge(product), s.rules); err != nil {
		return nil, err
	}
	if product.SKU != previousSKU {
		exists, err := s.productRepo.ExistsBySKU(ctx, product.SKU)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code, "Product with this SKU already exists")
		}
	}
	if err := s.productRepo.SaveWithLock(ctx, product); err != nil {
		return nil, err
	}
	resp := s.toResponse(ctx, product)
	return &resp, nil
}

// Delete removes a product and its image
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}
	if product.ImageKey != "" && s.images != nil {
		if err := s.images.Delete(ctx, product.ImageKey); err != nil {
			s.logger.Warn("Failed to delete product image", zap.String("key", product.ImageKey), zap.Error(err))
		}
	}
	s.logger.Info("Product deleted", zap.String("sku", product.SKU))
	return nil
}

// maxStockAttempts bounds how often a stock change is retried after losing a
// version race. Every lost race means another writer succeeded.
const maxStockAttempts = 32

// AdjustStock changes a product's stock by delta and publishes inventory.updated.
// inventory.low follows when the change takes the product to or below its threshold.
func (s *ProductService) AdjustStock(ctx context.Context, id uuid.UUID, req AdjustStockRequest) (*ProductResponse, error) {
	product, err := s.changeStock(ctx,
		func(ctx context.Context) (*catalog.Product, error) { return s.productRepo.FindByID(ctx, id) },
		func(p *catalog.Product) (int, error) { return req.Delta, p.AdjustStock(req.Delta) },
	)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Stock adjusted",
		zap.String("sku", product.SKU),
		zap.Int("delta", req.Delta),
		zap.Int("quantity", product.StockQuantity),
		zap.String("reason", req.Reason),
	)
	resp := s.toResponse(ctx, product)
	return &resp, nil
}

// ConsumeStock takes up to quantity units of sku out of stock for an order line
// and returns how many were taken. Stock never drops below zero.
// Unknown SKUs are not an error: marketplaces may sell items not kept in stock here.
func (s *ProductService) ConsumeStock(ctx context.Context, sku string, quantity int) (int, error) {
	var taken int
	_, err := s.changeStock(ctx,
		func(ctx context.Context) (*catalog.Product, error) { return s.productRepo.FindBySKU(ctx, sku) },
		func(p *catalog.Product) (int, error) {
			taken = min(quantity, p.StockQuantity)
			if taken <= 0 {
				taken = 0
				return 0, nil
			}
			return -taken, p.AdjustStock(-taken)
		},
	)
	if errors.Is(err, shared.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return taken, nil
}

// RestoreStock puts quantity units of sku back into stock, e.g. after a cancellation
func (s *ProductService) RestoreStock(ctx context.Context, sku string, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	_, err := s.changeStock(ctx,
		func(ctx context.Context) (*catalog.Product, error) { return s.productRepo.FindBySKU(ctx, sku) },
		func(p *catalog.Product) (int, error) { return quantity, p.AdjustStock(quantity) },
	)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	return err
}

// changeStock loads a product, applies change and saves it with a version check.
// When another writer saved the product first, the product is reloaded and the
// change applied again. change returns the stock delta; zero skips the save.
func (s *ProductService) changeStock(
	ctx context.Context,
	load func(context.Context) (*catalog.Product, error),
	change func(*catalog.Product) (int, error),
) (*catalog.Product, error) {
	for attempt := 1; ; attempt++ {
		product, err := load(ctx)
		if err != nil {
			return nil, err
		}
		wasLow := product.IsLowStock()
		delta, err := change(product)
		if err != nil {
			return nil, err
		}
		if delta == 0 {
			return product, nil
		}
		err = s.productRepo.SaveWithLock(ctx, product)
		if err == nil {
			s.publishStockEvents(ctx, product, delta, wasLow)
			return product, nil
		}
		if !errors.Is(err, shared.ErrConcurrentUpdate) || attempt == maxStockAttempts {
			return nil, err
		}
		s.logger.Debug("Stock changed concurrently, retrying", zap.String("sku", product.SKU), zap.Int("attempt", attempt))
	}
}

func (s *ProductService) publishStockEvents(ctx context.Context, product *catalog.Product, delta int, wasLow bool) {
	if s.events == nil {
		return
	}
	events := []shared.DomainEvent{catalog.NewStockChangedEvent(product, delta)}
	if product.IsLowStock() && !wasLow {
		events = append(events, catalog.NewLowStockEvent(product))
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish stock events", zap.String("sku", product.SKU), zap.Error(err))
	}
}

// LowStock returns every product at or below its threshold
func (s *ProductService) LowStock(ctx context.Context) ([]ProductResponse, error) {
	products, err := s.productRepo.FindLowStock(ctx)
	if err != nil {
		return nil, err
	}
	return s.toResponses(ctx, products), nil
}

// StockLevels returns the stock level of every product for a marketplace push
func (s *ProductService) StockLevels(ctx context.Context) ([]integration.StockUpdate, error) {
	products, err := s.productRepo.FindAllUnpaged(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(products, func(p catalog.Product, _ int) integration.StockUpdate {
		return integration.StockUpdate{SKU: p.SKU, EAN: p.EAN, Quantity: p.StockQuantity}
	}), nil
}

// FindDuplicates returns product pairs whose similarity reaches the configured threshold
func (s *ProductService) FindDuplicates(ctx context.Context) ([]DuplicateResponse, error) {
	products, err := s.productRepo.FindAllUnpaged(ctx)
	if err != nil {
		return nil, err
	}
	byID := lo.SliceToMap(products, func(p catalog.Product) (uuid.UUID, *catalog.Product) {
		return p.ID, &p
	})
	pairs := catalog.DetectDuplicates(products, s.threshold)
	result := make([]DuplicateResponse, 0, len(pairs))
	for _, pair := range pairs {
		result = append(result, DuplicateResponse{
			First:      ToProductResponse(byID[pair.First]),
			Second:     ToProductResponse(byID[pair.Second]),
			Similarity: pair.Score,
			Reason:     pair.Reason,
		})
	}
	return result, nil
}

// UploadImage stores a new product image and replaces the previous one
func (s *ProductService) UploadImage(ctx context.Context, id uuid.UUID, r io.Reader) (*ProductResponse, error) {
	if s.images == nil {
		return nil, shared.NewDomainError(shared.ErrUnavailable.Code, "Media storage is not configured")
	}
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	img, err := storage.ReadImage(r, s.maxUpload)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrFileTooLarge):
			return nil, shared.NewDomainError(ErrImageTooLarge.Code, err.Error())
		case errors.Is(err, storage.ErrUnsupportedType):
			return nil, shared.NewDomainError(ErrImageType.Code, err.Error())
		}
		return nil, err
	}

	key := storage.ProductImageKey(product.SKU, img.Extension)
	if err := s.images.Put(ctx, key, img.Data, img.ContentType); err != nil {
		return nil, fmt.Errorf("failed to store product image: %w", err)
	}
	previous := product.ImageKey
	product.SetImage(key)
	if err := s.productRepo.SaveWithLock(ctx, product); err != nil {
		_ = s.images.Delete(ctx, key)
		return nil, err
	}
	if previous != "" {
		if err := s.images.Delete(ctx, previous); err != nil {
			s.logger.Warn("Failed to delete previous product image", zap.String("key", previous), zap.Error(err))
		}
	}

	resp := s.toResponse(ctx, product)
	return &resp, nil
}

// Count returns the number of products
func (s *ProductService) Count(ctx context.Context) (int64, error) {
	return s.productRepo.Count(ctx)
}

func (s *ProductService) toResponse(ctx context.Context, p *catalog.Product) ProductResponse {
	resp := ToProductResponse(p)
	if p.ImageKey != "" && s.images != nil {
		url, err := s.images.URL(ctx, p.ImageKey)
		if err != nil {
			s.logger.Warn("Failed to resolve product image URL", zap.String("key", p.ImageKey), zap.Error(err))
		}
		resp.ImageURL = url
	}
	return resp
}

func (s *ProductService) toResponses(ctx context.Context, products []catalog.Product) []ProductResponse {
	result := make([]ProductResponse, 0, len(products))
	for i := range products {
		result = append(result, s.toResponse(ctx, &products[i]))
	}
	return result
}
