package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/storefront/internal/backend"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/gateway"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/order"
	"github.com/vladislavdragonenkov/storefront/internal/service/request"
	syncsvc "github.com/vladislavdragonenkov/storefront/internal/service/sync"
	"github.com/vladislavdragonenkov/storefront/internal/store"
)

// fakeServer — REST-бэкенд витрины в памяти: назначает id, ведёт остатки
// и списки заказов и заявок.
type fakeServer struct {
	mu       sync.Mutex
	nextID   int
	products map[string]map[string]any
	orders   map[string]map[string]any
	requests map[string]map[string]any
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		products: map[string]map[string]any{},
		orders:   map[string]map[string]any{},
		requests: map[string]map[string]any{},
	}
}

func (f *fakeServer) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeServer) seedProduct(name string, price int64, qty int32) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.id("p")
	f.products[id] = map[string]any{
		"id": id, "name": name, "price": price,
		"category": "General", "description": "", "image": "",
		"quantity": qty,
	}
	return id
}

func (f *fakeServer) productQty(id string) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.products[id]
	if !ok {
		return -1
	}
	return toInt32(p["quantity"])
}

func toInt32(v any) int32 {
	switch n := v.(type) {
	case int32:
		return n
	case float64:
		return int32(n)
	default:
		return 0
	}
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && path == "/users":
		writeJSON(w, map[string]any{
			"id": body["telegram_id"], "username": body["username"], "is_admin": true,
		})

	case r.Method == http.MethodGet && path == "/products":
		writeJSON(w, values(f.products))

	case r.Method == http.MethodPost && path == "/products":
		id := f.id("p")
		product := map[string]any{
			"id": id, "name": body["name"], "price": body["price"],
			"category": body["category"], "description": body["description"],
			"image": body["image"], "quantity": body["quantity"],
		}
		f.products[id] = product
		writeJSON(w, product)

	case r.Method == http.MethodPatch && strings.HasPrefix(path, "/products/"):
		id := strings.TrimPrefix(path, "/products/")
		p, ok := f.products[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		for _, field := range []string{"name", "price", "category", "description", "image", "quantity"} {
			if v, ok := body[field]; ok {
				p[field] = v
			}
		}
		writeJSON(w, p)

	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/products/"):
		id := strings.TrimPrefix(path, "/products/")
		if _, ok := f.products[id]; !ok {
			http.NotFound(w, r)
			return
		}
		delete(f.products, id)
		writeJSON(w, map[string]any{"deleted": id})

	case r.Method == http.MethodPost && path == "/orders":
		// Списываем остатки; нехватка — конфликт.
		items, _ := body["items"].([]any)
		for _, raw := range items {
			item, _ := raw.(map[string]any)
			productID, _ := item["product_id"].(string)
			p, ok := f.products[productID]
			if !ok || toInt32(p["quantity"]) < toInt32(item["quantity"]) {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte("insufficient stock"))
				return
			}
		}
		for _, raw := range items {
			item, _ := raw.(map[string]any)
			productID, _ := item["product_id"].(string)
			p := f.products[productID]
			p["quantity"] = toInt32(p["quantity"]) - toInt32(item["quantity"])
		}

		id := f.id("order")
		orderBody := map[string]any{
			"id": id, "user_id": body["user_id"], "username": body["username"],
			"items": body["items"], "total_amount": body["total_amount"],
			"status":     "PENDING",
			"created_at": time.Now().UTC().Format(time.RFC3339Nano),
		}
		f.orders[id] = orderBody
		writeJSON(w, orderBody)

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/orders"):
		writeJSON(w, values(f.orders))

	case r.Method == http.MethodPatch && strings.HasPrefix(path, "/orders/"):
		id := strings.TrimPrefix(path, "/orders/")
		o, ok := f.orders[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		prevStatus, _ := o["status"].(string)
		status, _ := body["status"].(string)
		o["status"] = status
		// Отклонённый заказ возвращает товары в продажу.
		if status == "CANCELED" && prevStatus == "PENDING" {
			items, _ := o["items"].([]any)
			for _, raw := range items {
				item, _ := raw.(map[string]any)
				productID, _ := item["product_id"].(string)
				if p, ok := f.products[productID]; ok {
					p["quantity"] = toInt32(p["quantity"]) + toInt32(item["quantity"])
				}
			}
		}
		writeJSON(w, o)

	case r.Method == http.MethodPost && path == "/product-requests":
		id := f.id("req")
		reqBody := map[string]any{
			"id": id, "user_id": body["user_id"], "username": body["username"],
			"product_name": body["product_name"], "quantity": body["quantity"],
			"image": body["image"], "status": "pending",
		}
		f.requests[id] = reqBody
		writeJSON(w, reqBody)

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/product-requests"):
		writeJSON(w, values(f.requests))

	case r.Method == http.MethodPatch && strings.HasPrefix(path, "/product-requests/"):
		id := strings.TrimPrefix(path, "/product-requests/")
		req, ok := f.requests[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		req["status"] = body["status"]
		writeJSON(w, req)

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func values(m map[string]map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

// StorefrontFlowTestSuite прогоняет движок целиком против fake-бэкенда.
type StorefrontFlowTestSuite struct {
	suite.Suite

	server   *fakeServer
	httpSrv  *httptest.Server
	store    *store.Store
	ledger   *store.Ledger
	client   *backend.Client
	orders   *order.Coordinator
	requests *request.Coordinator
	catalog  *catalog.Coordinator
	sync     *syncsvc.Synchronizer
}

func (s *StorefrontFlowTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)
	logger := baseLogger.WithField("component", "integration-test")

	s.server = newFakeServer()
	s.httpSrv = httptest.NewServer(s.server)

	gw := gateway.New(s.httpSrv.URL,
		gateway.WithLogger(logger),
		gateway.WithHTTPClient(s.httpSrv.Client()),
		gateway.WithTTL(50*time.Millisecond),
	)
	s.store = store.New()
	s.ledger = store.NewLedger(s.store)
	s.client = backend.New(gw, func() string { return "test-init-data" }, logger)
	s.orders = order.NewCoordinatorWithoutMetrics(s.store, s.ledger, s.client, nil, logger)
	s.requests = request.NewCoordinatorWithoutMetrics(s.store, s.client, nil, logger)
	s.catalog = catalog.NewCoordinatorWithoutMetrics(s.store, s.client, nil, logger)
	s.sync = syncsvc.NewSynchronizer(s.store, s.client, syncsvc.WithLogger(logger))
}

func (s *StorefrontFlowTestSuite) TearDownTest() {
	s.httpSrv.Close()
}

func (s *StorefrontFlowTestSuite) bootstrap() {
	user, err := s.client.GetOrCreateUser(context.Background(), 42, "alice")
	require.NoError(s.T(), err)
	s.store.SetUser(user)
	s.sync.SyncOnce(context.Background())
}

func (s *StorefrontFlowTestSuite) TestPurchaseLifecycle() {
	productID := s.server.seedProduct("Кофе", 500, 10)
	s.bootstrap()

	require.NoError(s.T(), s.ledger.AddToCart(productID, 3))

	placed, err := s.orders.PlaceOrder(context.Background())
	require.NoError(s.T(), err)
	require.False(s.T(), domain.IsTempID(placed.ID), "committed order should carry the server id")
	require.Equal(s.T(), int64(1500), placed.TotalMinor)

	// Остатки согласованы: и локально, и на сервере 7.
	local, ok := s.store.Product(productID)
	require.True(s.T(), ok)
	require.Equal(s.T(), int32(7), local.AvailableQty)
	require.Equal(s.T(), int32(7), s.server.productQty(productID))

	// Решение администратора: подтверждение оставляет списание в силе.
	require.NoError(s.T(), s.orders.ProcessOrder(context.Background(), placed.ID, true))
	got, _ := s.store.Order(placed.ID)
	require.Equal(s.T(), domain.OrderStatusConfirmed, got.Status)
	require.Equal(s.T(), int32(7), s.server.productQty(productID))
}

func (s *StorefrontFlowTestSuite) TestRejectionRestoresStock() {
	productID := s.server.seedProduct("Чай", 300, 5)
	s.bootstrap()

	require.NoError(s.T(), s.ledger.AddToCart(productID, 2))
	placed, err := s.orders.PlaceOrder(context.Background())
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.orders.ProcessOrder(context.Background(), placed.ID, false))

	// Локальный каталог восстановлен сразу, серверный — на отклонении.
	local, _ := s.store.Product(productID)
	require.Equal(s.T(), int32(5), local.AvailableQty)
	require.Equal(s.T(), int32(5), s.server.productQty(productID))
}

func (s *StorefrontFlowTestSuite) TestPlacementConflictRollsBack() {
	productID := s.server.seedProduct("Дрель", 4500, 3)
	s.bootstrap()

	require.NoError(s.T(), s.ledger.AddToCart(productID, 3))

	// Конкурент успел купить всё на сервере, пока наш заказ собирался.
	s.server.mu.Lock()
	s.server.products[productID]["quantity"] = int32(0)
	s.server.mu.Unlock()

	_, err := s.orders.PlaceOrder(context.Background())
	require.Error(s.T(), err)

	statusErr, ok := gateway.AsStatus(err)
	require.True(s.T(), ok)
	require.Equal(s.T(), http.StatusConflict, statusErr.Code)

	// Откат: корзина и локальный резерв на месте.
	require.Len(s.T(), s.store.Cart(), 1)
	local, ok := s.store.Product(productID)
	require.True(s.T(), ok)
	require.Equal(s.T(), int32(3), local.AvailableQty)
}

func (s *StorefrontFlowTestSuite) TestCompositeApprovalCreatesProduct() {
	s.bootstrap()

	require.NoError(s.T(), s.requests.RequestProduct(context.Background(), "Дрель", 3, ""))

	requests := s.store.ProductRequests()
	require.Len(s.T(), requests, 1)
	requestID := requests[0].ID

	require.NoError(s.T(), s.requests.ProcessRequest(context.Background(), requestID, true, 4500))

	// Товар появился и в каталоге, и у заявки конечный статус.
	products := s.store.Products()
	require.Len(s.T(), products, 1)
	require.Equal(s.T(), "Дрель", products[0].Name)
	require.Equal(s.T(), int64(4500), products[0].PriceMinor)
	require.Equal(s.T(), int32(3), products[0].AvailableQty)

	got, _ := s.store.ProductRequest(requestID)
	require.Equal(s.T(), domain.RequestStatusApproved, got.Status)
}

func (s *StorefrontFlowTestSuite) TestAdminCatalogFlow() {
	s.bootstrap()

	created, err := s.catalog.AddProduct(context.Background(), domain.Product{
		Name: "Кофе", PriceMinor: 500, AvailableQty: 10,
	})
	require.NoError(s.T(), err)
	require.False(s.T(), domain.IsTempID(created.ID))

	price := int64(600)
	require.NoError(s.T(), s.catalog.UpdateProduct(context.Background(), created.ID, domain.ProductPatch{
		PriceMinor: &price,
	}))

	got, _ := s.store.Product(created.ID)
	require.Equal(s.T(), int64(600), got.PriceMinor)

	require.NoError(s.T(), s.catalog.DeleteProduct(context.Background(), created.ID))
	_, ok := s.store.Product(created.ID)
	require.False(s.T(), ok)
}

func (s *StorefrontFlowTestSuite) TestCancelNotRevertedByCachedPoll() {
	productID := s.server.seedProduct("Кофе", 500, 10)
	s.bootstrap()
	// Обычный покупатель: его опрос ходит по кэшируемому списку заказов.
	s.store.SetUser(domain.User{ID: 42, Username: "alice"})

	require.NoError(s.T(), s.ledger.AddToCart(productID, 1))
	placed, err := s.orders.PlaceOrder(context.Background())
	require.NoError(s.T(), err)

	// Опрос кладёт PENDING-список заказов в кэш шлюза.
	s.sync.SyncOnce(context.Background())

	require.NoError(s.T(), s.orders.CancelOrder(context.Background(), placed.ID))

	// Опрос в пределах TTL обязан увидеть отмену, а не кэшированный
	// PENDING-список, откатывающий её локально.
	s.sync.SyncOnce(context.Background())

	got, ok := s.store.Order(placed.ID)
	require.True(s.T(), ok)
	require.Equal(s.T(), domain.OrderStatusCanceled, got.Status)
}

func (s *StorefrontFlowTestSuite) TestPollingConvergesAfterExternalChange() {
	productID := s.server.seedProduct("Кофе", 500, 10)
	s.bootstrap()

	// Состояние каталога поменялось вне нашего клиента.
	s.server.mu.Lock()
	s.server.products[productID]["quantity"] = int32(4)
	s.server.mu.Unlock()

	// Кэш каталога ещё жив, поэтому ждём истечения TTL.
	time.Sleep(80 * time.Millisecond)
	s.sync.SyncOnce(context.Background())

	local, _ := s.store.Product(productID)
	require.Equal(s.T(), int32(4), local.AvailableQty)
}

func TestStorefrontFlowTestSuite(t *testing.T) {
	suite.Run(t, new(StorefrontFlowTestSuite))
}
