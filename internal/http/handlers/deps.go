package handlers

import (
	"github.com/xxwlkq/ecommerce-system/internal/config"
	"github.com/xxwlkq/ecommerce-system/internal/events"
	"github.com/xxwlkq/ecommerce-system/internal/repos"
	"github.com/xxwlkq/ecommerce-system/internal/services"
)

type Deps struct {
	Auth *services.AuthService

	AuthHandler    *AuthHandler
	ProductHandler *ProductHandler
	CartHandler    *CartHandler
	OrderHandler   *OrderHandler
	AccountHandler *AccountHandler
	AdminHandler   *AdminHandler
}

// NewDeps builds the services over store and the handlers over them. cache
// and pub may be nil.
func NewDeps(store *repos.Store, cfg config.Config, cache services.ProductCache, pub events.Publisher) *Deps {
	actions := services.NewActionLog(store)
	authSvc := services.NewAuthService(store, actions)
	catalogSvc := services.NewCatalogService(store, cache, actions)
	cartSvc := services.NewCartService(store, actions)
	orderSvc := services.NewOrderService(store, actions, cache, pub, cfg.RequireAddress)
	addrSvc := services.NewAddressService(store)

	return &Deps{
		Auth:           authSvc,
		AuthHandler:    &AuthHandler{Auth: authSvc},
		ProductHandler: &ProductHandler{Catalog: catalogSvc},
		CartHandler:    &CartHandler{Cart: cartSvc},
		OrderHandler:   &OrderHandler{Orders: orderSvc},
		AccountHandler: &AccountHandler{Auth: authSvc, Addresses: addrSvc},
		AdminHandler: &AdminHandler{
			Catalog:   catalogSvc,
			Orders:    orderSvc,
			Auth:      authSvc,
			Analytics: services.NewAnalyticsService(store),
			Export:    services.NewExportService(store),
		},
	}
}
