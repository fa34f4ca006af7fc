package partner

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/domain/partner"
	"github.com/stockitup/backend/internal/domain/shared"
	"go.uber.org/zap"
)

func invalidID(field string) error {
	return shared.InvalidInput("invalid " + field)
}

// OnboardingService manages the records created in the welcome flow:
// addresses, sellers, fulfillers and warehouses.
type OnboardingService struct {
	addresses  partner.AddressRepository
	sellers    partner.SellerRepository
	fulfillers partner.FulfillerRepository
	warehouses partner.WarehouseRepository
	logger     *zap.Logger
}

// NewOnboardingService creates a new OnboardingService
func NewOnboardingService(
	addresses partner.AddressRepository,
	sellers partner.SellerRepository,
	fulfillers partner.FulfillerRepository,
	warehouses partner.WarehouseRepository,
	logger *zap.Logger,
) *OnboardingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OnboardingService{
		addresses:  addresses,
		sellers:    sellers,
		fulfillers: fulfillers,
		warehouses: warehouses,
		logger:     logger.Named("onboarding"),
	}
}

// Progress computes how far the welcome flow is
func (s *OnboardingService) Progress(ctx context.Context) (partner.Progress, error) {
	counts := make(map[partner.OnboardingStep]int64, len(partner.OnboardingSteps))
	counters := map[partner.OnboardingStep]func(context.Context) (int64, error){
		partner.StepAddresses:  s.addresses.Count,
		partner.StepSellers:    s.sellers.Count,
		partner.StepFulfillers: s.fulfillers.Count,
		partner.StepWarehouses: s.warehouses.Count,
	}
	for step, count := range counters {
		n, err := count(ctx)
		if err != nil {
			return partner.Progress{}, err
		}
		counts[step] = n
	}
	return partner.ComputeProgress(counts), nil
}

// Overview returns the progress and every record of the welcome flow
func (s *OnboardingService) Overview(ctx context.Context) (*OnboardingOverview, error) {
	progress, err := s.Progress(ctx)
	if err != nil {
		return nil, err
	}
	overview := &OnboardingOverview{Progress: progress}
	if overview.Addresses, err = s.addresses.FindAll(ctx); err != nil {
		return nil, err
	}
	if overview.Sellers, err = s.sellers.FindAll(ctx); err != nil {
		return nil, err
	}
	if overview.Fulfillers, err = s.fulfillers.FindAll(ctx); err != nil {
		return nil, err
	}
	if overview.Warehouses, err = s.warehouses.FindAll(ctx); err != nil {
		return nil, err
	}
	return overview, nil
}

// Page returns the records and progress of one step
func (s *OnboardingService) Page(ctx context.Context, step partner.OnboardingStep) (*OnboardingPage, error) {
	progress, err := s.Progress(ctx)
	if err != nil {
		return nil, err
	}
	page := &OnboardingPage{Step: step, Percent: partner.StepPercent(step), Progress: progress}
	switch step {
	case partner.StepAddresses:
		page.Records, err = s.addresses.FindAll(ctx)
	case partner.StepSellers:
		page.Records, err = s.sellers.FindAll(ctx)
	case partner.StepFulfillers:
		page.Records, err = s.fulfillers.FindAll(ctx)
	case partner.StepWarehouses:
		page.Records, err = s.warehouses.FindAll(ctx)
	default:
		return nil, shared.NotFound("onboarding step")
	}
	if err != nil {
		return nil, err
	}
	if step != partner.StepAddresses {
		if page.Addresses, err = s.addresses.FindAll(ctx); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// SaveAddress creates an address, or updates it when the request carries an ID
func (s *OnboardingService) SaveAddress(ctx context.Context, req AddressRequest) (*partner.Address, error) {
	id, err := parseOptionalID("address id", req.ID)
	if err != nil {
		return nil, err
	}
	var addr *partner.Address
	if id == nil {
		addr, err = partner.NewAddress(req.input())
	} else {
		if addr, err = s.addresses.FindByID(ctx, *id); err == nil {
			err = addr.Update(req.input())
		}
	}
	if err != nil {
		return nil, err
	}
	if err := s.addresses.Save(ctx, addr); err != nil {
		return nil, err
	}
	s.logger.Info("Address saved", zap.String("id", addr.ID.String()))
	return addr, nil
}

// SaveSeller creates or updates a seller
func (s *OnboardingService) SaveSeller(ctx context.Context, req SellerRequest) (*partner.Seller, error) {
	id, err := parseOptionalID("seller id", req.ID)
	if err != nil {
		return nil, err
	}
	addressID, err := s.existingAddress(ctx, req.AddressID)
	if err != nil {
		return nil, err
	}
	var seller *partner.Seller
	if id == nil {
		seller, err = partner.NewSeller(req.Name, addressID)
	} else {
		if seller, err = s.sellers.FindByID(ctx, *id); err == nil {
			err = seller.Update(req.Name, addressID)
		}
	}
	if err != nil {
		return nil, err
	}
	if err := s.sellers.Save(ctx, seller); err != nil {
		return nil, err
	}
	s.logger.Info("Seller saved", zap.String("id", seller.ID.String()))
	return seller, nil
}

// SaveFulfiller creates or updates a fulfiller
func (s *OnboardingService) SaveFulfiller(ctx context.Context, req FulfillerRequest) (*partner.Fulfiller, error) {
	id, err := parseOptionalID("fulfiller id", req.ID)
	if err != nil {
		return nil, err
	}
	var fulfiller *partner.Fulfiller
	if id == nil {
		fulfiller, err = partner.NewFulfiller(req.Name, req.Email, req.Phone)
	} else {
		if fulfiller, err = s.fulfillers.FindByID(ctx, *id); err == nil {
			err = fulfiller.Update(req.Name, req.Email, req.Phone)
		}
	}
	if err != nil {
		return nil, err
	}
	if err := s.fulfillers.Save(ctx, fulfiller); err != nil {
		return nil, err
	}
	s.logger.Info("Fulfiller saved", zap.String("id", fulfiller.ID.String()))
	return fulfiller, nil
}

// SaveWarehouse creates or updates a warehouse
func (s *OnboardingService) SaveWarehouse(ctx context.Context, req WarehouseRequest) (*partner.Warehouse, error) {
	id, err := parseOptionalID("warehouse id", req.ID)
	if err != nil {
		return nil, err
	}
	addressID, err := s.existingAddress(ctx, req.AddressID)
	if err != nil {
		return nil, err
	}
	fulfillerID, err := parseOptionalID("fulfiller", req.FulfillerID)
	if err != nil {
		return nil, err
	}
	if fulfillerID != nil {
		if _, err := s.fulfillers.FindByID(ctx, *fulfillerID); err != nil {
			return nil, referenceError(err, "fulfiller")
		}
	}

	var warehouse *partner.Warehouse
	if id == nil {
		warehouse, err = partner.NewWarehouse(req.Name, addressID, fulfillerID)
	} else {
		if warehouse, err = s.warehouses.FindByID(ctx, *id); err == nil {
			err = warehouse.Update(req.Name, addressID, fulfillerID)
		}
	}
	if err != nil {
		return nil, err
	}
	if err := s.warehouses.Save(ctx, warehouse); err != nil {
		return nil, err
	}
	s.logger.Info("Warehouse saved", zap.String("id", warehouse.ID.String()))
	return warehouse, nil
}

func (s *OnboardingService) existingAddress(ctx context.Context, raw string) (*uuid.UUID, error) {
	id, err := parseOptionalID("address", raw)
	if err != nil || id == nil {
		return nil, err
	}
	if _, err := s.addresses.FindByID(ctx, *id); err != nil {
		return nil, referenceError(err, "address")
	}
	return id, nil
}

// referenceError turns a missing referenced record into invalid input
func referenceError(err error, field string) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.InvalidInput(field + " does not exist")
	}
	return err
}

// Delete removes one record of the welcome flow
func (s *OnboardingService) Delete(ctx context.Context, step partner.OnboardingStep, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return invalidID("id")
	}
	switch step {
	case partner.StepAddresses:
		err = s.addresses.Delete(ctx, id)
	case partner.StepSellers:
		err = s.sellers.Delete(ctx, id)
	case partner.StepFulfillers:
		err = s.fulfillers.Delete(ctx, id)
	case partner.StepWarehouses:
		err = s.warehouses.Delete(ctx, id)
	default:
		return shared.InvalidInput("unknown onboarding step " + string(step))
	}
	if err != nil {
		return err
	}
	s.logger.Info("Onboarding record deleted", zap.String("step", string(step)), zap.String("id", rawID))
	return nil
}

// Fulfillers lists every fulfiller
func (s *OnboardingService) Fulfillers(ctx context.Context) ([]partner.Fulfiller, error) {
	return s.fulfillers.FindAll(ctx)
}

// Fulfiller returns one fulfiller
func (s *OnboardingService) Fulfiller(ctx context.Context, id uuid.UUID) (*partner.Fulfiller, error) {
	return s.fulfillers.FindByID(ctx, id)
}

// Warehouses lists every warehouse
func (s *OnboardingService) Warehouses(ctx context.Context) ([]partner.Warehouse, error) {
	return s.warehouses.FindAll(ctx)
}

// Warehouse returns one warehouse
func (s *OnboardingService) Warehouse(ctx context.Context, id uuid.UUID) (*partner.Warehouse, error) {
	return s.warehouses.FindByID(ctx, id)
}

// Sellers lists every seller
func (s *OnboardingService) Sellers(ctx context.Context) ([]partner.Seller, error) {
	return s.sellers.FindAll(ctx)
}

// Seller returns one seller
func (s *OnboardingService) Seller(ctx context.Context, id uuid.UUID) (*partner.Seller, error) {
	return s.sellers.FindByID(ctx, id)
}
