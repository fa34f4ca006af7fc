package marketplace

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockitup/backend/internal/domain/integration"
	"github.com/stockitup/backend/internal/infrastructure/config"
)

const bolAcceptHeader = "application/vnd.retailer.v10+json"

// BolClient talks to the bol.com Retailer API
type BolClient struct {
	*baseClient
}

// NewBolClient creates a bol.com client
func NewBolClient(cfg config.MarketplaceConfig, opts ...Option) *BolClient {
	return &BolClient{baseClient: newBaseClient(integration.MarketplaceBolCom, cfg, opts...)}
}

// AuthorizeURL implements integration.Marketplace
func (c *BolClient) AuthorizeURL(state, redirectURI string) (string, error) {
	return c.authorizeURL(url.Values{
		"client_id":     {c.cfg.ClientID},
		"response_type": {"code"},
		"redirect_uri":  {redirectURI},
		"state":         {state},
	})
}

// ExchangeCode implements integration.Marketplace
func (c *BolClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*integration.OAuthToken, error) {
	return c.exchangeCode(ctx, code, redirectURI)
}

type bolOrdersResponse struct {
	Orders []bolOrder `json:"orders"`
}

type bolOrder struct {
	OrderID             string `json:"orderId"`
	OrderPlacedDateTime string `json:"orderPlacedDateTime"`
	ShipmentDetails     struct {
		FirstName   string `json:"firstName"`
		Surname     string `json:"surname"`
		Email       string `json:"email"`
		StreetName  string `json:"streetName"`
		HouseNumber string `json:"houseNumber"`
		ZipCode     string `json:"zipCode"`
		City        string `json:"city"`
		CountryCode string `json:"countryCode"`
	} `json:"shipmentDetails"`
	OrderItems []struct {
		EAN   string `json:"ean"`
		Offer struct {
			Reference string `json:"reference"`
		} `json:"offer"`
		Product struct {
			Title string `json:"title"`
		} `json:"product"`
		Quantity  int     `json:"quantity"`
		UnitPrice float64 `json:"unitPrice"`
	} `json:"orderItems"`
}

// PullOrders implements integration.Marketplace. bol.com only reports open orders,
// so since only filters what was already returned.
func (c *BolClient) PullOrders(ctx context.Context, accessToken string, since time.Time) ([]integration.MarketplaceOrder, error) {
	var orders []integration.MarketplaceOrder
	for page := 1; ; page++ {
		req, err := c.newAPIRequest(ctx, http.MethodGet, "/orders", url.Values{
			"status":            {"OPEN"},
			"fulfilment-method": {"FBR"},
			"page":              {strconv.Itoa(page)},
		}, nil)
		if err != nil {
			return nil, err
		}
		c.authorize(req, accessToken)

		var resp bolOrdersResponse
		if err := c.do(req, &resp); err != nil {
			return nil, err
		}
		if len(resp.Orders) == 0 {
			break
		}
		for _, o := range resp.Orders {
			placed := parseTime(o.OrderPlacedDateTime)
			if !since.IsZero() && !placed.IsZero() && placed.Before(since) {
				continue
			}
			orders = append(orders, c.convert(o, placed))
		}
		// bol.com pages hold 50 orders
		if len(resp.Orders) < 50 {
			break
		}
	}
	return orders, nil
}

func (c *BolClient) convert(o bolOrder, placed time.Time) integration.MarketplaceOrder {
	sd := o.ShipmentDetails
	order := integration.MarketplaceOrder{
		ExternalID:    o.OrderID,
		CustomerName:  joinNonEmpty(" ", sd.FirstName, sd.Surname),
		CustomerEmail: sd.Email,
		ShippingAddress: joinNonEmpty(", ",
			joinNonEmpty(" ", sd.StreetName, sd.HouseNumber),
			joinNonEmpty(" ", sd.ZipCode, sd.City),
			sd.CountryCode,
		),
		Currency: "EUR",
		PlacedAt: placed,
	}
	for _, item := range o.OrderItems {
		sku := item.Offer.Reference
		if sku == "" {
			sku = item.EAN
		}
		order.Items = append(order.Items, integration.MarketplaceOrderItem{
			SKU:       sku,
			EAN:       item.EAN,
			Name:      item.Product.Title,
			Quantity:  item.Quantity,
			UnitPrice: decimal.NewFromFloat(item.UnitPrice).Round(2),
		})
	}
	return order
}

type bolStockRequest struct {
	Amount            int  `json:"amount"`
	ManagedByRetailer bool `json:"managedByRetailer"`
}

// PushStock implements integration.Marketplace; offers are addressed by their reference (our SKU)
func (c *BolClient) PushStock(ctx context.Context, accessToken string, updates []integration.StockUpdate) (*integration.StockPushResult, error) {
	result := &integration.StockPushResult{}
	for _, u := range updates {
		req, err := c.newAPIRequest(ctx, http.MethodPut, "/offers/"+url.PathEscape(u.SKU)+"/stock", nil,
			bolStockRequest{Amount: u.Quantity, ManagedByRetailer: true})
		if err != nil {
			return nil, err
		}
		c.authorize(req, accessToken)
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

func (c *BolClient) authorize(req *http.Request, accessToken string) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", bolAcceptHeader)
	if req.Body != nil {
		req.Header.Set("Content-Type", bolAcceptHeader)
	}
}

var _ integration.Marketplace = (*BolClient)(nil)
