package catalog

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/gateway"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/store"
)

const (
	defaultCategory    = "General"
	defaultDescription = "No description"
)

// Coordinator — административные операции над каталогом с той же
// оптимистичной дисциплиной: мгновенная локальная мутация, сетевой вызов,
// коммит или симметричный откат.
type Coordinator struct {
	store    *store.Store
	backend  domain.Backend
	notifier domain.Notifier
	logger   *log.Entry
	metrics  *metrics.CoordinatorMetrics
}

// NewCoordinator создаёт координатор каталога.
func NewCoordinator(st *store.Store, backend domain.Backend, notifier domain.Notifier, logger *log.Entry) *Coordinator {
	if logger == nil {
		logger = log.WithField("component", "catalog-coordinator")
	}
	if notifier == nil {
		notifier = domain.NopNotifier{}
	}
	return &Coordinator{
		store:    st,
		backend:  backend,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics.NewCoordinatorMetrics(),
	}
}

// NewCoordinatorWithoutMetrics создаёт координатор без метрик (для тестов).
func NewCoordinatorWithoutMetrics(st *store.Store, backend domain.Backend, notifier domain.Notifier, logger *log.Entry) *Coordinator {
	c := NewCoordinator(st, backend, notifier, logger)
	c.metrics = nil
	return c
}

// AddProduct заводит новый товар. Пустые категория и описание получают
// значения по умолчанию; валидация происходит до каких-либо мутаций.
func (c *Coordinator) AddProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if !c.store.User().IsAdmin {
		c.record("add_product", metrics.OperationRejected)
		return domain.Product{}, domain.ErrAdminOnly
	}
	if product.Category == "" {
		product.Category = defaultCategory
	}
	if product.Description == "" {
		product.Description = defaultDescription
	}
	if errs := product.Validate(); len(errs) > 0 {
		c.record("add_product", metrics.OperationRejected)
		return domain.Product{}, errs[0]
	}

	optimistic := product
	optimistic.ID = domain.NewTempID()
	c.store.PrependProduct(optimistic)

	created, err := c.backend.CreateProduct(ctx, product)
	if err != nil {
		c.store.RemoveProduct(optimistic.ID)

		c.record("add_product", metrics.OperationRolledBack)
		if !gateway.IsAborted(err) {
			c.logger.WithError(err).WithField("name", product.Name).Warn("add product failed, rolled back")
			c.notifier.Notify(domain.NoticeError, "Failed to add product")
		}
		return domain.Product{}, err
	}

	c.store.PatchProduct(optimistic.ID, func(p *domain.Product) {
		*p = created
	})

	c.record("add_product", metrics.OperationCommitted)
	c.logger.WithFields(log.Fields{
		"product_id": created.ID,
		"name":       created.Name,
	}).Info("product added")
	c.notifier.Notify(domain.NoticeSuccess, "Item added")
	return created, nil
}

// UpdateProduct частично обновляет товар; на отказе восстанавливается
// сохранённый снимок.
func (c *Coordinator) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) error {
	if !c.store.User().IsAdmin {
		c.record("update_product", metrics.OperationRejected)
		return domain.ErrAdminOnly
	}
	prior, ok := c.store.Product(id)
	if !ok {
		c.record("update_product", metrics.OperationRejected)
		return domain.ErrProductNotFound
	}
	if patch.PriceMinor != nil && *patch.PriceMinor <= 0 {
		c.record("update_product", metrics.OperationRejected)
		return domain.ErrPriceInvalid
	}
	if patch.AvailableQty != nil && *patch.AvailableQty < 0 {
		c.record("update_product", metrics.OperationRejected)
		return domain.ErrQtyInvalid
	}

	c.store.PatchProduct(id, func(p *domain.Product) {
		applyPatch(p, patch)
	})

	if _, err := c.backend.UpdateProduct(ctx, id, patch); err != nil {
		c.store.PatchProduct(id, func(p *domain.Product) {
			*p = prior
		})

		c.record("update_product", metrics.OperationRolledBack)
		if !gateway.IsAborted(err) {
			c.logger.WithError(err).WithField("product_id", id).Warn("update product failed, rolled back")
			c.notifier.Notify(domain.NoticeError, "Failed to update product")
		}
		return err
	}

	c.record("update_product", metrics.OperationCommitted)
	c.logger.WithField("product_id", id).Info("product updated")
	return nil
}

// DeleteProduct убирает товар из каталога; на отказе товар возвращается.
func (c *Coordinator) DeleteProduct(ctx context.Context, id string) error {
	if !c.store.User().IsAdmin {
		c.record("delete_product", metrics.OperationRejected)
		return domain.ErrAdminOnly
	}
	prior, ok := c.store.Product(id)
	if !ok {
		c.record("delete_product", metrics.OperationRejected)
		return domain.ErrProductNotFound
	}

	c.store.RemoveProduct(id)

	if err := c.backend.DeleteProduct(ctx, id); err != nil {
		c.store.PrependProduct(prior)

		c.record("delete_product", metrics.OperationRolledBack)
		if !gateway.IsAborted(err) {
			c.logger.WithError(err).WithField("product_id", id).Warn("delete product failed, rolled back")
			c.notifier.Notify(domain.NoticeError, "Failed to delete product")
		}
		return err
	}

	c.record("delete_product", metrics.OperationCommitted)
	c.logger.WithField("product_id", id).Info("product deleted")
	return nil
}

func applyPatch(p *domain.Product, patch domain.ProductPatch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.PriceMinor != nil {
		p.PriceMinor = *patch.PriceMinor
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.AvailableQty != nil {
		p.AvailableQty = *patch.AvailableQty
	}
}

func (c *Coordinator) record(operation, result string) {
	if c.metrics != nil {
		c.metrics.RecordOperation(operation, result)
	}
}
