package app

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/backend"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/gateway"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/order"
	"github.com/vladislavdragonenkov/storefront/internal/service/request"
	"github.com/vladislavdragonenkov/storefront/internal/store"
)

// Dependencies содержит все зависимости движка.
type Dependencies struct {
	Store    *store.Store
	Ledger   *store.Ledger
	Gateway  *gateway.Gateway
	Backend  domain.Backend
	Orders   *order.Coordinator
	Requests *request.Coordinator
	Catalog  *catalog.Coordinator
	Logger   *log.Entry
}

// NewDependencies создаёт и связывает все зависимости движка.
func NewDependencies(cfg Config, logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	gw := gateway.New(cfg.APIBaseURL,
		gateway.WithLogger(logger.WithField("component", "gateway")),
		gateway.WithTTL(cfg.CacheTTL),
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		gateway.WithMetrics(metrics.NewGatewayMetrics()),
	)

	st := store.New()
	ledger := store.NewLedger(st)
	client := backend.New(gw, func() string { return cfg.InitData }, logger.WithField("component", "backend"))
	notifier := NewLogNotifier(logger.WithField("component", "notifier"))

	return &Dependencies{
		Store:    st,
		Ledger:   ledger,
		Gateway:  gw,
		Backend:  client,
		Orders:   order.NewCoordinator(st, ledger, client, notifier, logger.WithField("component", "order-coordinator")),
		Requests: request.NewCoordinator(st, client, notifier, logger.WithField("component", "request-coordinator")),
		Catalog:  catalog.NewCoordinator(st, client, notifier, logger.WithField("component", "catalog-coordinator")),
		Logger:   logger,
	}
}
