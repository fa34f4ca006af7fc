package marketplace

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stockitup/backend/internal/domain/integration"
	"github.com/stockitup/backend/internal/infrastructure/config"
)

const (
	ebayScopes = "https://api.ebay.com/oauth/api_scope/sell.fulfillment https://api.ebay.com/oauth/api_scope/sell.inventory"
	// bulk_update_price_quantity accepts at most 25 offers per call
	ebayBulkLimit = 25
	ebayPageSize  = 50
)

// EBayClient talks to the eBay Sell APIs
type EBayClient struct {
	*baseClient
}

// NewEBayClient creates an eBay client
func NewEBayClient(cfg config.MarketplaceConfig, opts ...Option) *EBayClient {
	return &EBayClient{baseClient: newBaseClient(integration.MarketplaceEBay, cfg, opts...)}
}

// AuthorizeURL implements integration.Marketplace. eBay expects its RuName as redirect_uri.
func (c *EBayClient) AuthorizeURL(state, redirectURI string) (string, error) {
	return c.authorizeURL(url.Values{
		"client_id":     {c.cfg.ClientID},
		"response_type": {"code"},
		"redirect_uri":  {redirectURI},
		"scope":         {ebayScopes},
		"state":         {state},
	})
}

// ExchangeCode implements integration.Marketplace
func (c *EBayClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*integration.OAuthToken, error) {
	return c.exchangeCode(ctx, code, redirectURI)
}

type ebayAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type ebayOrdersResponse struct {
	Orders []struct {
		OrderID      string `json:"orderId"`
		CreationDate string `json:"creationDate"`
		Buyer        struct {
			Username string `json:"username"`
		} `json:"buyer"`
		PricingSummary struct {
			Total ebayAmount `json:"total"`
		} `json:"pricingSummary"`
		FulfillmentStartInstructions []struct {
			ShippingStep struct {
				ShipTo struct {
					FullName       string `json:"fullName"`
					Email          string `json:"email"`
					ContactAddress struct {
						AddressLine1 string `json:"addressLine1"`
						AddressLine2 string `json:"addressLine2"`
						City         string `json:"city"`
						PostalCode   string `json:"postalCode"`
						CountryCode  string `json:"countryCode"`
					} `json:"contactAddress"`
				} `json:"shipTo"`
			} `json:"shippingStep"`
		} `json:"fulfillmentStartInstructions"`
		LineItems []struct {
			SKU          string     `json:"sku"`
			Title        string     `json:"title"`
			Quantity     int        `json:"quantity"`
			LineItemCost ebayAmount `json:"lineItemCost"`
		} `json:"lineItems"`
	} `json:"orders"`
	Total  int `json:"total"`
	Offset int `json:"offset"`
}

// PullOrders implements integration.Marketplace
func (c *EBayClient) PullOrders(ctx context.Context, accessToken string, since time.Time) ([]integration.MarketplaceOrder, error) {
	if since.IsZero() {
		since = c.now().Add(-7 * 24 * time.Hour)
	}
	filter := "creationdate:[" + since.UTC().Format("2006-01-02T15:04:05.000Z") + "..]"

	var orders []integration.MarketplaceOrder
	for offset := 0; ; offset += ebayPageSize {
		req, err := c.newAPIRequest(ctx, http.MethodGet, "/sell/fulfillment/v1/order", url.Values{
			"filter": {filter},
			"limit":  {strconv.Itoa(ebayPageSize)},
			"offset": {strconv.Itoa(offset)},
		}, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)

		var resp ebayOrdersResponse
		if err := c.do(req, &resp); err != nil {
			return nil, err
		}
		for _, o := range resp.Orders {
			order := integration.MarketplaceOrder{
				ExternalID:   o.OrderID,
				CustomerName: o.Buyer.Username,
				Currency:     o.PricingSummary.Total.Currency,
				PlacedAt:     parseTime(o.CreationDate),
			}
			if len(o.FulfillmentStartInstructions) > 0 {
				to := o.FulfillmentStartInstructions[0].ShippingStep.ShipTo
				addr := to.ContactAddress
				if to.FullName != "" {
					order.CustomerName = to.FullName
				}
				order.CustomerEmail = to.Email
				order.ShippingAddress = joinNonEmpty(", ",
					addr.AddressLine1, addr.AddressLine2,
					joinNonEmpty(" ", addr.PostalCode, addr.City),
					addr.CountryCode,
				)
			}
			for _, li := range o.LineItems {
				price := ParseDecimal(li.LineItemCost.Value)
				if li.Quantity > 1 {
					price = price.DivRound(decimal.NewFromInt(int64(li.Quantity)), 2)
				}
				order.Items = append(order.Items, integration.MarketplaceOrderItem{
					SKU:       li.SKU,
					Name:      li.Title,
					Quantity:  li.Quantity,
					UnitPrice: price,
				})
			}
			orders = append(orders, order)
		}
		if len(resp.Orders) < ebayPageSize || offset+ebayPageSize >= resp.Total {
			break
		}
	}
	return orders, nil
}

type ebayBulkRequest struct {
	Requests []ebayQuantityRequest `json:"requests"`
}

type ebayQuantityRequest struct {
	SKU                        string `json:"sku"`
	ShipToLocationAvailability struct {
		Quantity int `json:"quantity"`
	} `json:"shipToLocationAvailability"`
}

type ebayError struct {
	Message string `json:"message"`
}

type ebayBulkResponse struct {
	Responses []struct {
		SKU        string      `json:"sku"`
		StatusCode int         `json:"statusCode"`
		Errors     []ebayError `json:"errors"`
	} `json:"responses"`
}

// PushStock implements integration.Marketplace in batches of 25 offers
func (c *EBayClient) PushStock(ctx context.Context, accessToken string, updates []integration.StockUpdate) (*integration.StockPushResult, error) {
	result := &integration.StockPushResult{}
	for _, batch := range lo.Chunk(updates, ebayBulkLimit) {
		body := ebayBulkRequest{}
		for _, u := range batch {
			r := ebayQuantityRequest{SKU: u.SKU}
			r.ShipToLocationAvailability.Quantity = u.Quantity
			body.Requests = append(body.Requests, r)
		}

		req, err := c.newAPIRequest(ctx, http.MethodPost, "/sell/inventory/v1/bulk_update_price_quantity", nil, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)

		var resp ebayBulkResponse
		if err := c.do(req, &resp); err != nil {
			if isFatal(err) {
				return result, err
			}
			for _, u := range batch {
				result.Failed = append(result.Failed, integration.SyncFailure{Item: u.SKU, Message: err.Error()})
			}
			continue
		}
		for _, r := range resp.Responses {
			if r.StatusCode >= 200 && r.StatusCode < 300 {
				result.Updated++
				continue
			}
			msgs := lo.Map(r.Errors, func(e ebayError, _ int) string { return e.Message })
			result.Failed = append(result.Failed, integration.SyncFailure{
				Item:    r.SKU,
				Message: strings.Join(msgs, "; "),
			})
		}
	}
	return result, nil
}

var _ integration.Marketplace = (*EBayClient)(nil)
