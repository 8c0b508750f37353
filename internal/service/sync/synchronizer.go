package sync

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/store"
)

const (
	defaultFastInterval = 10 * time.Second
	defaultSlowInterval = 30 * time.Second
)

// Options задаёт параметры синхронизатора.
type Options struct {
	Logger       *log.Entry
	FastInterval time.Duration
	SlowInterval time.Duration
	Metrics      *metrics.SyncMetrics
	OnSuccess    func()
}

// Option настраивает Synchronizer.
type Option func(*Options)

// WithLogger задаёт logger для синхронизатора.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithFastInterval задаёт интервал опроса при наличии локальной
// незавершённой активности.
func WithFastInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.FastInterval = interval
	}
}

// WithSlowInterval задаёт интервал опроса в спокойном состоянии.
func WithSlowInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.SlowInterval = interval
	}
}

// WithMetrics задаёт метрики синхронизатора.
func WithMetrics(m *metrics.SyncMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithOnSuccess задаёт callback, вызываемый после каждого успешного цикла.
func WithOnSuccess(fn func()) Option {
	return func(opts *Options) {
		opts.OnSuccess = fn
	}
}

// Synchronizer периодически подтягивает состояние сервера и сливает его
// с локальным, не затирая оптимистичные сущности с временными id.
type Synchronizer struct {
	store        *store.Store
	backend      domain.Backend
	logger       *log.Entry
	fastInterval time.Duration
	slowInterval time.Duration
	metrics      *metrics.SyncMetrics
	onSuccess    func()
}

// NewSynchronizer создаёт синхронизатор.
func NewSynchronizer(st *store.Store, backend domain.Backend, options ...Option) *Synchronizer {
	opts := Options{
		FastInterval: defaultFastInterval,
		SlowInterval: defaultSlowInterval,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "synchronizer")
	}

	if opts.FastInterval <= 0 {
		opts.FastInterval = defaultFastInterval
	}
	if opts.SlowInterval < opts.FastInterval {
		opts.SlowInterval = opts.FastInterval
	}

	return &Synchronizer{
		store:        st,
		backend:      backend,
		logger:       logger,
		fastInterval: opts.FastInterval,
		slowInterval: opts.SlowInterval,
		metrics:      opts.Metrics,
		onSuccess:    opts.OnSuccess,
	}
}

// Run запускает периодическую синхронизацию до отмены ctx. Интервал
// подстраивается под активность: пока есть неподтверждённые локальные
// сущности, опрос идёт чаще.
func (s *Synchronizer) Run(ctx context.Context) {
	if s.backend == nil {
		s.logger.Warn("synchronizer is disabled: backend is nil")
		return
	}

	interval := s.interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.SyncOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncOnce(ctx)

			if next := s.interval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// SyncOnce выполняет один цикл синхронизации: товары, заказы и заявки
// подтягиваются параллельно и сливаются в store.
func (s *Synchronizer) SyncOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	user := s.store.User()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		products, err := s.backend.ListProducts(gctx)
		if err != nil {
			return err
		}
		s.store.MergeProducts(products)
		return nil
	})

	g.Go(func() error {
		orders, err := s.fetchOrders(gctx, user)
		if err != nil {
			return err
		}
		s.store.MergeOrders(orders)
		return nil
	})

	g.Go(func() error {
		requests, err := s.fetchProductRequests(gctx, user)
		if err != nil {
			return err
		}
		s.store.MergeProductRequests(requests)
		return nil
	})

	if err := g.Wait(); err != nil {
		s.recordRun(metrics.SyncResultFailed)
		s.logger.WithError(err).Warn("sync cycle failed")
		return
	}

	s.recordRun(metrics.SyncResultOK)
	if s.onSuccess != nil {
		s.onSuccess()
	}
}

func (s *Synchronizer) fetchOrders(ctx context.Context, user domain.User) ([]domain.Order, error) {
	if user.IsAdmin {
		return s.backend.ListOrders(ctx)
	}
	return s.backend.ListUserOrders(ctx, user.ID)
}

func (s *Synchronizer) fetchProductRequests(ctx context.Context, user domain.User) ([]domain.ProductRequest, error) {
	if user.IsAdmin {
		return s.backend.ListProductRequests(ctx)
	}
	return s.backend.ListUserProductRequests(ctx, user.ID)
}

func (s *Synchronizer) interval() time.Duration {
	interval := s.slowInterval
	if s.store.HasPendingActivity() {
		interval = s.fastInterval
	}
	if s.metrics != nil {
		s.metrics.SetInterval(interval)
	}
	return interval
}

func (s *Synchronizer) recordRun(result string) {
	if s.metrics != nil {
		s.metrics.RecordRun(result)
	}
}
