package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	syncsvc "github.com/vladislavdragonenkov/storefront/internal/service/sync"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Config описывает настройки запуска клиентского движка.
type Config struct {
	APIBaseURL       string
	MetricsAddr      string
	CacheTTL         time.Duration
	HTTPTimeout      time.Duration
	FastPollInterval time.Duration
	SlowPollInterval time.Duration
	TelegramID       int64
	Username         string
	InitData         string
}

// DefaultConfig возвращает базовые настройки движка.
func DefaultConfig() Config {
	return Config{
		APIBaseURL:       "http://localhost:8000",
		MetricsAddr:      ":9090",
		CacheTTL:         10 * time.Second,
		HTTPTimeout:      15 * time.Second,
		FastPollInterval: 10 * time.Second,
		SlowPollInterval: 30 * time.Second,
	}
}

// Run собирает движок и работает до отмены ctx: шлюз с TTL-кэшем, store с
// резервами, координаторы и фоновый синхронизатор, плюс HTTP-сервер метрик
// и health-проверок.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps := NewDependencies(cfg, logger)

	// Свежесть локального состояния: degraded, если синхронизация давно
	// не проходила.
	staleness := healthcheck.NewStalenessChecker("sync", 3*cfg.SlowPollInterval)

	synchronizer := syncsvc.NewSynchronizer(deps.Store, deps.Backend,
		syncsvc.WithLogger(logger.WithField("component", "synchronizer")),
		syncsvc.WithFastInterval(cfg.FastPollInterval),
		syncsvc.WithSlowInterval(cfg.SlowPollInterval),
		syncsvc.WithMetrics(metrics.NewSyncMetrics()),
		syncsvc.WithOnSuccess(staleness.MarkSynced),
	)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("sync", staleness)
	healthHandler.RegisterChecker("session", healthcheck.NewSimpleChecker("session", func() error {
		if !deps.Store.User().Known() {
			return errors.New("session is not established")
		}
		return nil
	}))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	go deps.Gateway.Run(ctx)

	// Сессия: сервер заводит или находит пользователя по telegram id.
	user, err := deps.Backend.GetOrCreateUser(ctx, cfg.TelegramID, cfg.Username)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return err
	}
	deps.Store.SetUser(user)
	logger.WithFields(log.Fields{
		"user_id":  user.ID,
		"username": user.Username,
		"is_admin": user.IsAdmin,
	}).Info("session established")

	synchronizer.Run(ctx)

	logger.Info("получен сигнал остановки, останавливаем движок")
	deps.Gateway.CancelAll()
	shutdownHTTP(metricsSrv, logger)
	return ctx.Err()
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
