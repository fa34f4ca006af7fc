package marketplace

import (
	"github.com/stockitup/backend/internal/domain/integration"
	"github.com/stockitup/backend/internal/infrastructure/config"
)

// Registry holds one client per supported marketplace
type Registry struct {
	clients map[integration.MarketplaceCode]integration.Marketplace
}

// NewRegistry builds clients for every marketplace in cfg. Unconfigured
// marketplaces are still registered so the dashboard can list them.
func NewRegistry(cfg config.MarketplacesConfig, opts ...Option) *Registry {
	r := &Registry{clients: make(map[integration.MarketplaceCode]integration.Marketplace)}
	r.Register(NewBolClient(cfg.BolCom, opts...))
	r.Register(NewAmazonClient(cfg.AmazonEU, opts...))
	r.Register(NewEBayClient(cfg.EBay, opts...))
	return r
}

// Register adds or replaces a client
func (r *Registry) Register(m integration.Marketplace) {
	r.clients[m.Code()] = m
}

// Get implements integration.MarketplaceRegistry
func (r *Registry) Get(code integration.MarketplaceCode) (integration.Marketplace, error) {
	m, ok := r.clients[code]
	if !ok {
		return nil, integration.ErrUnknownMarketplace
	}
	return m, nil
}

// List implements integration.MarketplaceRegistry in display order
func (r *Registry) List() []integration.Marketplace {
	out := make([]integration.Marketplace, 0, len(r.clients))
	for _, code := range integration.AllMarketplaces {
		if m, ok := r.clients[code]; ok {
			out = append(out, m)
		}
	}
	return out
}

var _ integration.MarketplaceRegistry = (*Registry)(nil)
