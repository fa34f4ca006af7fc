package partner

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/domain/partner"
	"github.com/stockitup/backend/internal/domain/shared"
	"github.com/stockitup/backend/internal/infrastructure/config"
	"github.com/stockitup/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *OnboardingService {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Engine: "sqlite3", Name: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })

	return NewOnboardingService(
		persistence.NewGormAddressRepository(db.DB),
		persistence.NewGormSellerRepository(db.DB),
		persistence.NewGormFulfillerRepository(db.DB),
		persistence.NewGormWarehouseRepository(db.DB),
		nil,
	)
}

func validAddress() AddressRequest {
	return AddressRequest{
		Name:        "Hoofdkantoor",
		Street:      "Damstraat",
		HouseNumber: "1",
		ZipCode:     "1012 jm",
		City:        "Amsterdam",
	}
}

func TestOnboardingService_Progress(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	progress, err := svc.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, partner.StepAddresses, progress.CurrentStep)
	assert.Equal(t, 25, progress.Percent)
	assert.False(t, progress.Completed)

	addr, err := svc.SaveAddress(ctx, validAddress())
	require.NoError(t, err)
	progress, err = svc.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, partner.StepSellers, progress.CurrentStep)
	assert.Equal(t, 50, progress.Percent)

	_, err = svc.SaveSeller(ctx, SellerRequest{Name: "Stock It Up BV", AddressID: addr.ID.String()})
	require.NoError(t, err)
	f, err := svc.SaveFulfiller(ctx, FulfillerRequest{Name: "Magazijn Noord", Email: "noord@example.com"})
	require.NoError(t, err)

	progress, err = svc.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, partner.StepWarehouses, progress.CurrentStep)
	assert.Equal(t, 97, progress.Percent)

	_, err = svc.SaveWarehouse(ctx, WarehouseRequest{Name: "Noord", AddressID: addr.ID.String(), FulfillerID: f.ID.String()})
	require.NoError(t, err)

	overview, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.True(t, overview.Progress.Completed)
	assert.Equal(t, 100, overview.Progress.Percent)
	assert.Len(t, overview.Addresses, 1)
	assert.Len(t, overview.Sellers, 1)
	assert.Len(t, overview.Fulfillers, 1)
	assert.Len(t, overview.Warehouses, 1)
	assert.Equal(t, "1012JM", overview.Addresses[0].ZipCode)
}

func TestOnboardingService_Page(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	page, err := svc.Page(ctx, partner.StepAddresses)
	require.NoError(t, err)
	assert.Equal(t, 25, page.Percent)
	assert.Empty(t, page.Records)

	addr, err := svc.SaveAddress(ctx, validAddress())
	require.NoError(t, err)
	_, err = svc.SaveSeller(ctx, SellerRequest{Name: "Stock It Up BV", AddressID: addr.ID.String()})
	require.NoError(t, err)

	page, err = svc.Page(ctx, partner.StepSellers)
	require.NoError(t, err)
	assert.Equal(t, partner.StepSellers, page.Step)
	assert.Equal(t, 50, page.Percent)
	assert.Equal(t, partner.StepFulfillers, page.Progress.CurrentStep)
	sellers, ok := page.Records.([]partner.Seller)
	require.True(t, ok)
	require.Len(t, sellers, 1)
	assert.Equal(t, "Stock It Up BV", sellers[0].Name)
	assert.Len(t, page.Addresses, 1)

	page, err = svc.Page(ctx, partner.StepWarehouses)
	require.NoError(t, err)
	assert.Equal(t, 97, page.Percent)

	_, err = svc.Page(ctx, partner.OnboardingStep("klanten"))
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOnboardingService_SaveUpdatesExisting(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	f, err := svc.SaveFulfiller(ctx, FulfillerRequest{Name: "Old name"})
	require.NoError(t, err)

	updated, err := svc.SaveFulfiller(ctx, FulfillerRequest{ID: f.ID.String(), Name: "New name", Phone: "020-1234567"})
	require.NoError(t, err)
	assert.Equal(t, f.ID, updated.ID)

	all, err := svc.Fulfillers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "New name", all[0].Name)
	assert.Equal(t, "020-1234567", all[0].Phone)

	_, err = svc.SaveFulfiller(ctx, FulfillerRequest{ID: uuid.NewString(), Name: "Ghost"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOnboardingService_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	t.Run("address requires city", func(t *testing.T) {
		req := validAddress()
		req.City = ""
		_, err := svc.SaveAddress(ctx, req)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := svc.SaveSeller(ctx, SellerRequest{ID: "nope", Name: "x"})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("seller references missing address", func(t *testing.T) {
		_, err := svc.SaveSeller(ctx, SellerRequest{Name: "x", AddressID: uuid.NewString()})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("warehouse references missing fulfiller", func(t *testing.T) {
		_, err := svc.SaveWarehouse(ctx, WarehouseRequest{Name: "x", FulfillerID: uuid.NewString()})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestOnboardingService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	addr, err := svc.SaveAddress(ctx, validAddress())
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, partner.StepAddresses, "bad"), shared.ErrInvalidInput)
	assert.ErrorIs(t, svc.Delete(ctx, partner.OnboardingStep("payments"), addr.ID.String()), shared.ErrInvalidInput)

	require.NoError(t, svc.Delete(ctx, partner.StepAddresses, addr.ID.String()))
	assert.ErrorIs(t, svc.Delete(ctx, partner.StepAddresses, addr.ID.String()), shared.ErrNotFound)

	progress, err := svc.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, partner.StepAddresses, progress.CurrentStep)
}
