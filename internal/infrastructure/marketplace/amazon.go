package marketplace

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockitup/backend/internal/domain/integration"
	"github.com/stockitup/backend/internal/infrastructure/config"
)

// AmazonNLMarketplaceID is the Selling Partner marketplace id of amazon.nl
const AmazonNLMarketplaceID = "A1805IZSGTT6HS"

// AmazonClient talks to the Selling Partner API in the EU region
type AmazonClient struct {
	*baseClient
	marketplaceID string
}

// NewAmazonClient creates an Amazon EU client
func NewAmazonClient(cfg config.MarketplaceConfig, opts ...Option) *AmazonClient {
	return &AmazonClient{
		baseClient:    newBaseClient(integration.MarketplaceAmazonEU, cfg, opts...),
		marketplaceID: AmazonNLMarketplaceID,
	}
}

// AuthorizeURL implements integration.Marketplace using the Seller Central consent flow
func (c *AmazonClient) AuthorizeURL(state, redirectURI string) (string, error) {
	return c.authorizeURL(url.Values{
		"application_id": {c.cfg.ClientID},
		"redirect_uri":   {redirectURI},
		"state":          {state},
		"version":        {"beta"},
	})
}

// ExchangeCode implements integration.Marketplace; Amazon calls the code spapi_oauth_code
func (c *AmazonClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*integration.OAuthToken, error) {
	return c.exchangeCode(ctx, code, redirectURI)
}

type amazonMoney struct {
	CurrencyCode string `json:"CurrencyCode"`
	Amount       string `json:"Amount"`
}

type amazonOrdersResponse struct {
	Payload struct {
		Orders []struct {
			AmazonOrderID string      `json:"AmazonOrderId"`
			PurchaseDate  string      `json:"PurchaseDate"`
			OrderTotal    amazonMoney `json:"OrderTotal"`
			BuyerInfo     struct {
				BuyerEmail string `json:"BuyerEmail"`
				BuyerName  string `json:"BuyerName"`
			} `json:"BuyerInfo"`
			ShippingAddress struct {
				Name         string `json:"Name"`
				AddressLine1 string `json:"AddressLine1"`
				AddressLine2 string `json:"AddressLine2"`
				PostalCode   string `json:"PostalCode"`
				City         string `json:"City"`
				CountryCode  string `json:"CountryCode"`
			} `json:"ShippingAddress"`
		} `json:"Orders"`
		NextToken string `json:"NextToken"`
	} `json:"payload"`
}

type amazonOrderItemsResponse struct {
	Payload struct {
		OrderItems []struct {
			SellerSKU       string      `json:"SellerSKU"`
			Title           string      `json:"Title"`
			QuantityOrdered int         `json:"QuantityOrdered"`
			ItemPrice       amazonMoney `json:"ItemPrice"`
		} `json:"OrderItems"`
	} `json:"payload"`
}

// PullOrders implements integration.Marketplace
func (c *AmazonClient) PullOrders(ctx context.Context, accessToken string, since time.Time) ([]integration.MarketplaceOrder, error) {
	if since.IsZero() {
		since = c.now().Add(-7 * 24 * time.Hour)
	}
	query := url.Values{
		"MarketplaceIds": {c.marketplaceID},
		"CreatedAfter":   {since.UTC().Format(time.RFC3339)},
	}

	var orders []integration.MarketplaceOrder
	for {
		req, err := c.newAPIRequest(ctx, http.MethodGet, "/orders/v0/orders", query, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("x-amz-access-token", accessToken)

		var resp amazonOrdersResponse
		if err := c.do(req, &resp); err != nil {
			return nil, err
		}
		for _, o := range resp.Payload.Orders {
			items, err := c.orderItems(ctx, accessToken, o.AmazonOrderID)
			if err != nil {
				return nil, err
			}
			addr := o.ShippingAddress
			name := o.BuyerInfo.BuyerName
			if name == "" {
				name = addr.Name
			}
			orders = append(orders, integration.MarketplaceOrder{
				ExternalID:    o.AmazonOrderID,
				CustomerName:  name,
				CustomerEmail: o.BuyerInfo.BuyerEmail,
				ShippingAddress: joinNonEmpty(", ",
					addr.AddressLine1, addr.AddressLine2,
					joinNonEmpty(" ", addr.PostalCode, addr.City),
					addr.CountryCode,
				),
				Currency: o.OrderTotal.CurrencyCode,
				Items:    items,
				PlacedAt: parseTime(o.PurchaseDate),
			})
		}
		if resp.Payload.NextToken == "" {
			break
		}
		query = url.Values{
			"MarketplaceIds": {c.marketplaceID},
			"NextToken":      {resp.Payload.NextToken},
		}
	}
	return orders, nil
}

func (c *AmazonClient) orderItems(ctx context.Context, accessToken, orderID string) ([]integration.MarketplaceOrderItem, error) {
	req, err := c.newAPIRequest(ctx, http.MethodGet, "/orders/v0/orders/"+url.PathEscape(orderID)+"/orderItems", nil, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-amz-access-token", accessToken)

	var resp amazonOrderItemsResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	items := make([]integration.MarketplaceOrderItem, 0, len(resp.Payload.OrderItems))
	for _, it := range resp.Payload.OrderItems {
		price := ParseDecimal(it.ItemPrice.Amount)
		// ItemPrice is the line total
		if it.QuantityOrdered > 1 {
			price = price.DivRound(decimal.NewFromInt(int64(it.QuantityOrdered)), 2)
		}
		items = append(items, integration.MarketplaceOrderItem{
			SKU:       it.SellerSKU,
			Name:      it.Title,
			Quantity:  it.QuantityOrdered,
			UnitPrice: price,
		})
	}
	return items, nil
}

type amazonListingPatch struct {
	ProductType string `json:"productType"`
	Patches     []struct {
		Op    string `json:"op"`
		Path  string `json:"path"`
		Value []any  `json:"value"`
	} `json:"patches"`
}

func newAvailabilityPatch(quantity int) amazonListingPatch {
	p := amazonListingPatch{ProductType: "PRODUCT"}
	p.Patches = append(p.Patches, struct {
		Op    string `json:"op"`
		Path  string `json:"path"`
		Value []any  `json:"value"`
	}{
		Op:   "replace",
		Path: "/attributes/fulfillment_availability",
		Value: []any{map[string]any{
			"fulfillment_channel_code": "DEFAULT",
			"quantity":                 quantity,
		}},
	})
	return p
}

// PushStock implements integration.Marketplace through the Listings Items API
func (c *AmazonClient) PushStock(ctx context.Context, accessToken string, updates []integration.StockUpdate) (*integration.StockPushResult, error) {
	result := &integration.StockPushResult{}
	for _, u := range updates {
		req, err := c.newAPIRequest(ctx, http.MethodPatch,
			"/listings/2021-08-01/items/me/"+url.PathEscape(u.SKU),
			url.Values{"marketplaceIds": {c.marketplaceID}},
			newAvailabilityPatch(u.Quantity))
		if err != nil {
			return nil, err
		}
		req.Header.Set("x-amz-access-token", accessToken)
		if err := c.do(req, nil); err != nil {
			if isFatal(err) {
				return result, err
			}
			result.Failed = append(result.Failed, integration.SyncFailure{Item: u.SKU, Message: err.Error()})
			continue
		}
		result.Updated++
	}
	return result, nil
}

var _ integration.Marketplace = (*AmazonClient)(nil)
