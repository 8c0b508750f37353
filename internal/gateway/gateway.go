package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	defaultTTL         = 10 * time.Second
	defaultHTTPTimeout = 15 * time.Second
)

// Options задаёт параметры шлюза.
type Options struct {
	Logger  *log.Entry
	TTL     time.Duration
	Client  *http.Client
	Metrics *metrics.GatewayMetrics
}

// Option настраивает Gateway.
type Option func(*Options)

// WithLogger задаёт logger для шлюза.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithTTL задаёт время жизни кэшируемых ответов.
func WithTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.TTL = ttl
	}
}

// WithHTTPClient задаёт http-клиент (для тестов и кастомных таймаутов).
func WithHTTPClient(client *http.Client) Option {
	return func(opts *Options) {
		opts.Client = client
	}
}

// WithMetrics задаёт метрики шлюза; nil отключает их.
func WithMetrics(m *metrics.GatewayMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// Request описывает один исходящий вызов через шлюз.
type Request struct {
	Method string
	Path   string
	// Body сериализуется в JSON, если не nil.
	Body any
	// Header — дополнительные заголовки (identity assertion и т.п.).
	Header http.Header
	// Cacheable помечает идемпотентный read: попадание в кэш в пределах TTL
	// возвращается без сетевого вызова, а ожидающие вызовы с тем же ключом
	// разделяют один in-flight запрос.
	Cacheable bool
	// CacheKey — явный ключ; по умолчанию ключ выводится из метода, пути и хэша тела.
	CacheKey string
	// Supersede — новый запрос с этим ключом сначала отменяет более ранний
	// незавершённый запрос: побеждает последний пишущий.
	Supersede bool
}

// key возвращает ключ дедупликации: метод + путь + хэш тела.
func (r Request) key(payload []byte) string {
	if r.CacheKey != "" {
		return r.CacheKey
	}
	return fmt.Sprintf("%s:%s:%x", r.Method, r.Path, sha256.Sum256(payload))
}

type cacheEntry struct {
	data     []byte
	storedAt time.Time
}

// flight — один незавершённый сетевой запрос, разделяемый всеми ожидающими.
type flight struct {
	done   chan struct{}
	cancel context.CancelFunc
	data   []byte
	err    error
}

// Gateway оборачивает исходящие вызовы кэшированием по ключу,
// дедупликацией in-flight запросов и отменой-вытеснением.
type Gateway struct {
	baseURL string
	client  *http.Client
	logger  *log.Entry
	ttl     time.Duration
	metrics *metrics.GatewayMetrics

	mu       sync.Mutex
	cache    map[string]cacheEntry
	inflight map[string]*flight
}

// New создаёт шлюз поверх REST-бэкенда по адресу baseURL.
func New(baseURL string, options ...Option) *Gateway {
	opts := Options{
		TTL: defaultTTL,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "gateway")
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &Gateway{
		baseURL:  baseURL,
		client:   client,
		logger:   logger,
		ttl:      opts.TTL,
		metrics:  opts.Metrics,
		cache:    make(map[string]cacheEntry),
		inflight: make(map[string]*flight),
	}
}

// TTL возвращает время жизни кэшируемых ответов.
func (g *Gateway) TTL() time.Duration {
	return g.ttl
}

// Do выполняет запрос с учётом кэша, дедупликации и вытеснения.
// Ответы не-2xx приходят как *StatusError; вытесненный или отменённый
// запрос завершается ErrAborted и не должен показываться пользователю.
func (g *Gateway) Do(ctx context.Context, req Request) ([]byte, error) {
	var payload []byte
	if req.Body != nil {
		var err error
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}
	key := req.key(payload)

	g.mu.Lock()
	if req.Cacheable {
		if entry, ok := g.cache[key]; ok && time.Since(entry.storedAt) < g.ttl {
			g.mu.Unlock()
			g.record(metrics.GatewayResultCacheHit)
			return entry.data, nil
		}
	}
	if existing, ok := g.inflight[key]; ok {
		if req.Supersede {
			// Последний пишущий побеждает: более ранний запрос обрывается,
			// его ожидающие получают ErrAborted.
			existing.cancel()
			delete(g.inflight, key)
			g.record(metrics.GatewayResultSuperseded)
		} else {
			g.mu.Unlock()
			g.record(metrics.GatewayResultDedup)
			return g.wait(ctx, existing)
		}
	}

	// Время жизни запроса не привязано к ctx одного вызывающего: присоединившиеся
	// через дедупликацию ждут тот же результат. Обрыв — только через вытеснение,
	// Cancel или CancelAll.
	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	fl := &flight{done: make(chan struct{}), cancel: cancel}
	g.inflight[key] = fl
	g.mu.Unlock()

	if g.metrics != nil {
		g.metrics.RecordFlightStarted()
	}
	start := time.Now()
	data, err := g.send(fctx, req.Method, req.Path, payload, req.Header)
	if g.metrics != nil {
		g.metrics.RecordDuration(time.Since(start))
		g.metrics.RecordFlightFinished()
	}
	if err != nil && fctx.Err() != nil {
		err = ErrAborted
	}

	fl.data, fl.err = data, err
	close(fl.done)
	cancel()

	g.mu.Lock()
	// Вытеснивший запрос мог уже занять ключ — сверяем по указателю.
	if g.inflight[key] == fl {
		delete(g.inflight, key)
	}
	if err == nil && req.Cacheable {
		g.cache[key] = cacheEntry{data: data, storedAt: time.Now()}
	}
	cacheSize := len(g.cache)
	g.mu.Unlock()

	if g.metrics != nil {
		g.metrics.SetCacheEntries(cacheSize)
	}
	switch {
	case err == nil:
		g.record(metrics.GatewayResultSent)
	case IsAborted(err):
		g.record(metrics.GatewayResultAborted)
	default:
		g.record(metrics.GatewayResultFailed)
	}

	return data, err
}

// wait присоединяет вызывающего к чужому in-flight запросу.
func (g *Gateway) wait(ctx context.Context, fl *flight) ([]byte, error) {
	select {
	case <-fl.done:
		return fl.data, fl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Gateway) send(ctx context.Context, method, path string, payload []byte, header http.Header) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for name, values := range header {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}

	return data, nil
}

// Invalidate удаляет кэш-запись; мутации зовут его для ключей, чьи данные устарели.
func (g *Gateway) Invalidate(key string) {
	g.mu.Lock()
	delete(g.cache, key)
	size := len(g.cache)
	g.mu.Unlock()

	if g.metrics != nil {
		g.metrics.SetCacheEntries(size)
	}
}

// InvalidatePrefix удаляет все кэш-записи, чьи ключи начинаются с prefix.
// Нужен мутациям, делающим устаревшим целое семейство ключей: например, смена
// статуса заказа инвалидирует пользовательские списки заказов, не зная id
// пользователя. Возвращает количество удалённых записей.
func (g *Gateway) InvalidatePrefix(prefix string) int {
	g.mu.Lock()
	removed := 0
	for key := range g.cache {
		if strings.HasPrefix(key, prefix) {
			delete(g.cache, key)
			removed++
		}
	}
	size := len(g.cache)
	g.mu.Unlock()

	if g.metrics != nil {
		g.metrics.SetCacheEntries(size)
	}
	return removed
}

// Cancel обрывает незавершённый запрос по ключу; его ожидающие получают ErrAborted.
func (g *Gateway) Cancel(key string) {
	g.mu.Lock()
	if fl, ok := g.inflight[key]; ok {
		fl.cancel()
		delete(g.inflight, key)
	}
	g.mu.Unlock()
}

// CancelAll обрывает все незавершённые запросы (остановка приложения, закрытие формы).
func (g *Gateway) CancelAll() {
	g.mu.Lock()
	for key, fl := range g.inflight {
		fl.cancel()
		delete(g.inflight, key)
	}
	g.mu.Unlock()
}

// Run запускает фоновую зачистку просроченного кэша с шагом TTL/2 до отмены ctx.
func (g *Gateway) Run(ctx context.Context) {
	ticker := time.NewTicker(g.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.CancelAll()
			return
		case <-ticker.C:
			g.SweepOnce(time.Now())
		}
	}
}

// SweepOnce удаляет записи старше TTL и возвращает их количество.
func (g *Gateway) SweepOnce(now time.Time) int {
	g.mu.Lock()
	removed := 0
	for key, entry := range g.cache {
		if now.Sub(entry.storedAt) >= g.ttl {
			delete(g.cache, key)
			removed++
		}
	}
	size := len(g.cache)
	g.mu.Unlock()

	if g.metrics != nil {
		g.metrics.SetCacheEntries(size)
	}
	if removed > 0 {
		g.logger.WithField("removed", removed).Debug("expired cache entries swept")
	}
	return removed
}

func (g *Gateway) record(result string) {
	if g.metrics != nil {
		g.metrics.RecordRequest(result)
	}
}
