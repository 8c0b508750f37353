package order

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/gateway"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/store"
)

// Coordinator управляет оптимистичным жизненным циклом заказов:
// снимок → оптимистичное применение → сетевой вызов → коммит или откат.
// Каждая оптимистичная мутация несёт явный симметричный откат.
type Coordinator struct {
	store    *store.Store
	ledger   *store.Ledger
	backend  domain.Backend
	notifier domain.Notifier
	logger   *log.Entry
	metrics  *metrics.CoordinatorMetrics
}

// NewCoordinator создаёт рабочий координатор заказов.
func NewCoordinator(st *store.Store, ledger *store.Ledger, backend domain.Backend, notifier domain.Notifier, logger *log.Entry) *Coordinator {
	if logger == nil {
		logger = log.WithField("component", "order-coordinator")
	}
	if notifier == nil {
		notifier = domain.NopNotifier{}
	}
	return &Coordinator{
		store:    st,
		ledger:   ledger,
		backend:  backend,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics.NewCoordinatorMetrics(),
	}
}

// NewCoordinatorWithoutMetrics создаёт координатор без метрик (для тестов).
func NewCoordinatorWithoutMetrics(st *store.Store, ledger *store.Ledger, backend domain.Backend, notifier domain.Notifier, logger *log.Entry) *Coordinator {
	c := NewCoordinator(st, ledger, backend, notifier, logger)
	c.metrics = nil
	return c
}

// PlaceOrder оформляет заказ из текущей корзины. UI видит заказ мгновенно:
// оптимистичная запись с временным id встаёт в начало списка, корзина
// очищается, остатки списываются. Подтверждение сервера заменяет временные
// id и дату; отказ полностью восстанавливает корзину, каталог и список
// заказов, а ошибка отдаётся вызывающему — UI должен суметь среагировать.
func (c *Coordinator) PlaceOrder(ctx context.Context) (domain.Order, error) {
	start := time.Now()

	user := c.store.User()
	if !user.Known() {
		c.record("place_order", metrics.OperationRejected)
		return domain.Order{}, domain.ErrUserRequired
	}
	cart := c.store.Cart()
	if len(cart) == 0 {
		c.record("place_order", metrics.OperationRejected)
		return domain.Order{}, domain.ErrCartEmpty
	}

	optimistic := domain.Order{
		ID:         domain.NewTempID(),
		UserID:     user.ID,
		Username:   user.Username,
		Items:      cart,
		TotalMinor: domain.CartTotalMinor(cart),
		Status:     domain.OrderStatusPending,
		CreatedAt:  time.Now().UTC(),
	}

	c.store.PrependOrder(optimistic)
	c.store.SetCart(nil)
	c.ledger.ApplyPlacement(cart)

	created, err := c.backend.CreateOrder(ctx, optimistic)
	if err != nil {
		// Симметричный откат: заказ убирается, резерв возвращается,
		// корзина восстанавливается в точности до вызова.
		c.store.RemoveOrder(optimistic.ID)
		c.ledger.Revert(cart)
		c.store.SetCart(cart)

		c.record("place_order", metrics.OperationRolledBack)
		if gateway.IsAborted(err) {
			c.logger.WithField("order_id", optimistic.ID).Debug("place order aborted")
		} else {
			c.logger.WithError(err).WithField("order_id", optimistic.ID).Warn("place order failed, rolled back")
			c.notifier.Notify(domain.NoticeError, "Failed to place order")
		}
		return domain.Order{}, err
	}

	// Коммит: серверные id и дата, остальные поля не меняются. Если опрос
	// уже слил серверную копию заказа, временная запись убирается вместо
	// переименования — иначе в списке окажутся два заказа с одним id.
	c.store.CommitOrder(optimistic.ID, created.ID, created.CreatedAt)

	c.record("place_order", metrics.OperationCommitted)
	c.recordDuration("place_order", time.Since(start))
	c.logger.WithFields(log.Fields{
		"order_id": created.ID,
		"total":    optimistic.TotalMinor,
		"items":    len(optimistic.Items),
	}).Info("order placed")
	c.notifier.Notify(domain.NoticeSuccess, "Order placed")

	committed := optimistic
	committed.ID = created.ID
	committed.CreatedAt = created.CreatedAt
	return committed, nil
}

// CancelOrder отменяет заказ покупателя. Допустима только для PENDING:
// клиент пре-валидирует статус как UX-удобство, финальный арбитр — сервер.
// Остатки локально не трогаются: сервер возвращает товары в продажу сам,
// и ближайший опрос синхронизатора сведёт каталог.
func (c *Coordinator) CancelOrder(ctx context.Context, orderID string) error {
	prior, ok := c.store.Order(orderID)
	if !ok {
		c.record("cancel_order", metrics.OperationRejected)
		return domain.ErrOrderNotFound
	}
	if prior.Status != domain.OrderStatusPending {
		c.record("cancel_order", metrics.OperationRejected)
		return domain.ErrOrderNotPending
	}

	c.store.PatchOrder(orderID, func(o *domain.Order) {
		o.Status = domain.OrderStatusCanceled
	})

	if err := c.backend.UpdateOrderStatus(ctx, orderID, domain.OrderStatusCanceled); err != nil {
		// Восстанавливаем сохранённый снимок, а не реконструкцию.
		c.store.PatchOrder(orderID, func(o *domain.Order) {
			*o = prior
		})

		c.record("cancel_order", metrics.OperationRolledBack)
		if !gateway.IsAborted(err) {
			c.logger.WithError(err).WithField("order_id", orderID).Warn("cancel order failed, rolled back")
			c.notifier.Notify(domain.NoticeError, "Failed to cancel order")
		}
		return err
	}

	c.record("cancel_order", metrics.OperationCommitted)
	c.logger.WithField("order_id", orderID).Info("order canceled")
	c.notifier.Notify(domain.NoticeSuccess, "Order canceled")
	return nil
}

// ProcessOrder — решение администратора по заказу. Отклонение возвращает
// товары в каталог из снимка заказа; подтверждение оставляет их списанными
// навсегда. При сетевой ошибке восстанавливается прежний статус заказа, а
// уже выполненное возвращение товаров откатывается обратно — двойной откат.
func (c *Coordinator) ProcessOrder(ctx context.Context, orderID string, approved bool) error {
	user := c.store.User()
	if !user.IsAdmin {
		c.record("process_order", metrics.OperationRejected)
		return domain.ErrAdminOnly
	}

	prior, ok := c.store.Order(orderID)
	if !ok {
		c.record("process_order", metrics.OperationRejected)
		return domain.ErrOrderNotFound
	}
	if prior.Status != domain.OrderStatusPending {
		c.record("process_order", metrics.OperationRejected)
		return domain.ErrOrderNotPending
	}

	status := domain.OrderStatusCanceled
	if approved {
		status = domain.OrderStatusConfirmed
	}

	c.store.PatchOrder(orderID, func(o *domain.Order) {
		o.Status = status
	})
	restituted := false
	if !approved {
		c.ledger.Revert(prior.Items)
		restituted = true
	}

	if err := c.backend.UpdateOrderStatus(ctx, orderID, status); err != nil {
		c.store.PatchOrder(orderID, func(o *domain.Order) {
			*o = prior
		})
		if restituted {
			// Товары уже вернулись в каталог — забираем их обратно.
			c.ledger.ApplyPlacement(prior.Items)
		}

		c.record("process_order", metrics.OperationRolledBack)
		if !gateway.IsAborted(err) {
			c.logger.WithError(err).WithFields(log.Fields{
				"order_id": orderID,
				"approved": approved,
			}).Warn("process order failed, rolled back")
			c.notifier.Notify(domain.NoticeError, "Failed to process order")
		}
		return err
	}

	c.record("process_order", metrics.OperationCommitted)
	c.logger.WithFields(log.Fields{
		"order_id": orderID,
		"status":   status,
	}).Info("order processed")
	if approved {
		c.notifier.Notify(domain.NoticeSuccess, "Order confirmed")
	} else {
		c.notifier.Notify(domain.NoticeError, "Order rejected")
	}
	return nil
}

func (c *Coordinator) record(operation, result string) {
	if c.metrics != nil {
		c.metrics.RecordOperation(operation, result)
	}
}

func (c *Coordinator) recordDuration(operation string, d time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordOperationDuration(operation, d)
	}
}
