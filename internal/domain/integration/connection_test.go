package integration

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChannelConnection(t *testing.T) {
	_, err := NewChannelConnection("etsy")
	assert.ErrorIs(t, err, ErrUnknownMarketplace)

	c, err := NewChannelConnection(MarketplaceBolCom)
	require.NoError(t, err)
	assert.Equal(t, ConnectionPending, c.Status)
	assert.False(t, c.IsActive())
}

func TestChannelConnection_Lifecycle(t *testing.T) {
	c, err := NewChannelConnection(MarketplaceEBay)
	require.NoError(t, err)

	now := time.Now()
	c.Connect(&OAuthToken{AccessToken: "a1", RefreshToken: "r1", ExpiresAt: now.Add(time.Hour), SellerName: "Shop BV"})
	assert.Equal(t, ConnectionActive, c.Status)
	assert.Equal(t, "Shop BV", c.SellerName)
	assert.False(t, c.TokenExpired(now, time.Minute))
	assert.True(t, c.TokenExpired(now.Add(59*time.Minute+30*time.Second), time.Minute))

	c.RefreshWith(&OAuthToken{AccessToken: "a2", ExpiresAt: now.Add(2 * time.Hour)})
	assert.Equal(t, "a2", c.AccessToken)
	assert.Equal(t, "r1", c.RefreshToken, "refresh token kept when not rotated")

	c.MarkFailed(now, errors.New("503 from upstream"))
	assert.Equal(t, ConnectionError, c.Status)
	assert.True(t, c.IsActive())

	c.MarkSynced(now, nil, 3)
	c.MarkSynced(now, nil, 2)
	assert.Equal(t, 5, c.OrdersImported)
	assert.Empty(t, c.LastError)

	c.Disconnect()
	assert.Equal(t, ConnectionDisconnected, c.Status)
	assert.Empty(t, c.AccessToken)
	assert.False(t, c.IsActive())
}

func TestChannelConnection_OrderWatermark(t *testing.T) {
	c, err := NewChannelConnection(MarketplaceBolCom)
	require.NoError(t, err)
	assert.True(t, c.OrdersSince().IsZero(), "a new connection pulls everything")

	first := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c.MarkSynced(first, &first, 2)
	assert.Equal(t, first, c.OrdersSince())

	failedAt := first.Add(15 * time.Minute)
	c.MarkFailed(failedAt, errors.New("bol.com 503"))
	assert.Equal(t, first, c.OrdersSince(), "a failed attempt keeps the watermark")
	assert.Equal(t, first, *c.LastSyncAt)
	assert.Equal(t, failedAt, *c.LastAttemptAt)

	stockOnly := first.Add(30 * time.Minute)
	c.MarkSynced(stockOnly, nil, 0)
	assert.Equal(t, first, c.OrdersSince(), "a sync without an order pull keeps the watermark")
	assert.Equal(t, stockOnly, *c.LastSyncAt)

	earlier := first.Add(-time.Hour)
	c.MarkSynced(stockOnly, &earlier, 0)
	assert.Equal(t, first, c.OrdersSince(), "the watermark never moves backwards")

	legacy, _ := NewChannelConnection(MarketplaceEBay)
	legacy.LastSyncAt = &first
	assert.Equal(t, first, legacy.OrdersSince())
}

func TestMarketplaceCode(t *testing.T) {
	assert.True(t, MarketplaceAmazonEU.IsValid())
	assert.False(t, MarketplaceCode("etsy").IsValid())
	assert.Equal(t, "bol.com", MarketplaceBolCom.DisplayName())
	assert.Len(t, AllMarketplaces, 3)
}

func TestNewSyncEvent(t *testing.T) {
	c, _ := NewChannelConnection(MarketplaceBolCom)

	ok := NewSyncEvent(c, 4, 10, nil)
	assert.Equal(t, EventTypeSyncCompleted, ok.EventType())

	failed := NewSyncEvent(c, 0, 0, errors.New("boom"))
	assert.Equal(t, EventTypeSyncFailed, failed.EventType())
	assert.Equal(t, "boom", failed.Error)
}
