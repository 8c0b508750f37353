package request

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/gateway"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/store"
)

// Значения по умолчанию для товара, заводимого из одобренной заявки.
const (
	defaultCategory    = "General"
	defaultDescription = "No description"
)

// Coordinator управляет оптимистичным жизненным циклом заявок на товары:
// отправка покупателем и решение администратора.
type Coordinator struct {
	store    *store.Store
	backend  domain.Backend
	notifier domain.Notifier
	logger   *log.Entry
	metrics  *metrics.CoordinatorMetrics
}

// NewCoordinator создаёт рабочий координатор заявок.
func NewCoordinator(st *store.Store, backend domain.Backend, notifier domain.Notifier, logger *log.Entry) *Coordinator {
	if logger == nil {
		logger = log.WithField("component", "request-coordinator")
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

// RequestProduct отправляет заявку на товар, которого нет в каталоге.
// Уведомление показывается сразу, пока POST в полёте; повторная отправка до
// завершения первой вытесняет её через шлюз — на сервере останется одна
// заявка. Вытесненный вызов завершается тихо, без ошибки пользователю.
func (c *Coordinator) RequestProduct(ctx context.Context, name string, qty int32, image string) error {
	user := c.store.User()
	req := domain.ProductRequest{
		UserID:      user.ID,
		Username:    user.Username,
		ProductName: name,
		Qty:         qty,
		Image:       image,
		Status:      domain.RequestStatusPending,
	}
	if errs := req.Validate(); len(errs) > 0 {
		// Ничего не изменилось — откат не нужен.
		c.record("request_product", metrics.OperationRejected)
		return errs[0]
	}

	c.notifier.Notify(domain.NoticeSuccess, "Request sent")

	created, err := c.backend.CreateProductRequest(ctx, req)
	if err != nil {
		if gateway.IsAborted(err) {
			c.logger.WithField("product_name", name).Debug("product request superseded")
			return err
		}
		c.record("request_product", metrics.OperationRolledBack)
		c.logger.WithError(err).WithField("product_name", name).Warn("product request failed")
		c.notifier.Notify(domain.NoticeError, "Failed to request product")
		return err
	}

	c.record("request_product", metrics.OperationCommitted)
	c.logger.WithFields(log.Fields{
		"request_id":   created.ID,
		"product_name": created.ProductName,
		"qty":          created.Qty,
	}).Info("product requested")

	// Подтянуть свежий список заявок; кэш уже инвалидирован создающим вызовом.
	if fresh, err := c.backend.ListUserProductRequests(ctx, user.ID); err == nil {
		c.store.MergeProductRequests(fresh)
	}
	return nil
}

// ProcessRequest — решение администратора по заявке. Одобрение обязано
// сопровождаться созданием товара по цене, которую администратор задаёт
// отдельно: сам флип статуса инвентарь не создаёт. Составная операция
// «одобрить + создать товар» не атомарна между двумя сетевыми вызовами;
// частичное завершение отдаётся как ErrPartialApproval с рекомендацией
// повторить, а не маскируется.
func (c *Coordinator) ProcessRequest(ctx context.Context, requestID string, approved bool, priceMinor int64) error {
	user := c.store.User()
	if !user.IsAdmin {
		c.record("process_request", metrics.OperationRejected)
		return domain.ErrAdminOnly
	}

	prior, ok := c.store.ProductRequest(requestID)
	if !ok {
		c.record("process_request", metrics.OperationRejected)
		return domain.ErrRequestNotFound
	}
	if prior.Status != domain.RequestStatusPending {
		c.record("process_request", metrics.OperationRejected)
		return domain.ErrRequestNotPending
	}
	if approved && priceMinor <= 0 {
		c.record("process_request", metrics.OperationRejected)
		return domain.ErrPriceInvalid
	}

	status := domain.RequestStatusRejected
	if approved {
		status = domain.RequestStatusApproved
	}

	c.store.PatchProductRequest(requestID, func(r *domain.ProductRequest) {
		r.Status = status
	})

	if err := c.backend.UpdateProductRequest(ctx, requestID, status); err != nil {
		c.store.PatchProductRequest(requestID, func(r *domain.ProductRequest) {
			*r = prior
		})

		c.record("process_request", metrics.OperationRolledBack)
		if !gateway.IsAborted(err) {
			c.logger.WithError(err).WithField("request_id", requestID).Warn("process request failed, rolled back")
			c.notifier.Notify(domain.NoticeError, "Failed to process request")
		}
		return err
	}

	if !approved {
		c.record("process_request", metrics.OperationCommitted)
		c.logger.WithField("request_id", requestID).Info("product request rejected")
		c.notifier.Notify(domain.NoticeError, "Request rejected")
		return nil
	}

	product := domain.Product{
		Name:         prior.ProductName,
		PriceMinor:   priceMinor,
		Category:     defaultCategory,
		Description:  defaultDescription,
		Image:        prior.Image,
		AvailableQty: prior.Qty,
	}
	created, err := c.backend.CreateProduct(ctx, product)
	if err != nil {
		// Статус уже одобрен на сервере, а товара нет: состояние
		// неконсистентно, но восстановимо повторным созданием товара.
		c.record("process_request", metrics.OperationRolledBack)
		c.logger.WithError(err).WithField("request_id", requestID).Error("request approved but product creation failed")
		c.notifier.Notify(domain.NoticeError, "Request approved, but product creation failed — retry creating the product")
		return fmt.Errorf("%w: %v", domain.ErrPartialApproval, err)
	}

	c.store.PrependProduct(created)

	c.record("process_request", metrics.OperationCommitted)
	c.logger.WithFields(log.Fields{
		"request_id": requestID,
		"product_id": created.ID,
		"qty":        created.AvailableQty,
	}).Info("product request approved")
	c.notifier.Notify(domain.NoticeSuccess, "Request approved")
	return nil
}

func (c *Coordinator) record(operation, result string) {
	if c.metrics != nil {
		c.metrics.RecordOperation(operation, result)
	}
}
