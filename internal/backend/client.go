package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/gateway"
)

// Ключи кэша и вытеснения; мутации инвалидируют ключи, чьи данные они устаревают.
const (
	productsCacheKey      = "products:list"
	userOrdersCacheKey    = "orders:user:%d"
	userOrdersCachePrefix = "orders:user:"
	userRequestsKey       = "product-requests:user:%d"
	createRequestKey      = "product-requests:create:%d"

	initDataHeader = "X-Telegram-Init-Data"
)

// Client — типизированный REST-клиент бэкенда поверх Gateway.
// Каждый мутирующий вызов несёт identity assertion (initData) как есть;
// клиент её не интерпретирует и не проверяет — это забота бэкенда.
type Client struct {
	gw       *gateway.Gateway
	initData func() string
	logger   *log.Entry
}

// New создаёт клиент. initData поставляет подписанный Telegram payload.
func New(gw *gateway.Gateway, initData func() string, logger *log.Entry) *Client {
	if logger == nil {
		logger = log.WithField("component", "backend")
	}
	if initData == nil {
		initData = func() string { return "" }
	}
	return &Client{gw: gw, initData: initData, logger: logger}
}

func (c *Client) authHeader() http.Header {
	return http.Header{initDataHeader: []string{c.initData()}}
}

func (c *Client) decode(data []byte, into any, what string) error {
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	return nil
}

// GetOrCreateUser регистрирует или возвращает пользователя по telegram id.
func (c *Client) GetOrCreateUser(ctx context.Context, telegramID int64, username string) (domain.User, error) {
	data, err := c.gw.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/users",
		Body: map[string]any{
			"telegram_id": telegramID,
			"username":    username,
			"init_data":   c.initData(),
		},
	})
	if err != nil {
		return domain.User{}, err
	}

	var dto userDTO
	if err := c.decode(data, &dto, "user"); err != nil {
		return domain.User{}, err
	}
	return dto.toDomain(), nil
}

// ListProducts возвращает каталог; кэшируется на TTL шлюза.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	data, err := c.gw.Do(ctx, gateway.Request{
		Method:    http.MethodGet,
		Path:      "/products",
		Cacheable: true,
		CacheKey:  productsCacheKey,
	})
	if err != nil {
		return nil, err
	}

	var dtos []productDTO
	if err := c.decode(data, &dtos, "products"); err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(dtos))
	for _, dto := range dtos {
		products = append(products, dto.toDomain())
	}
	return products, nil
}

// CreateProduct заводит товар и инвалидирует кэш каталога.
func (c *Client) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	dto := productToDTO(product)
	data, err := c.gw.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/products",
		Body: map[string]any{
			"name":        dto.Name,
			"price":       dto.Price,
			"category":    dto.Category,
			"description": dto.Description,
			"image":       dto.Image,
			"quantity":    dto.Quantity,
			"init_data":   c.initData(),
		},
	})
	if err != nil {
		return domain.Product{}, err
	}
	c.gw.Invalidate(productsCacheKey)

	var created productDTO
	if err := c.decode(data, &created, "product"); err != nil {
		return domain.Product{}, err
	}
	return created.toDomain(), nil
}

// UpdateProduct частично обновляет товар и инвалидирует кэш каталога.
func (c *Client) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	body := map[string]any{"init_data": c.initData()}
	if patch.Name != nil {
		body["name"] = *patch.Name
	}
	if patch.PriceMinor != nil {
		body["price"] = *patch.PriceMinor
	}
	if patch.Category != nil {
		body["category"] = *patch.Category
	}
	if patch.Description != nil {
		body["description"] = *patch.Description
	}
	if patch.Image != nil {
		body["image"] = *patch.Image
	}
	if patch.AvailableQty != nil {
		body["quantity"] = *patch.AvailableQty
	}

	data, err := c.gw.Do(ctx, gateway.Request{
		Method: http.MethodPatch,
		Path:   "/products/" + id,
		Body:   body,
	})
	if err != nil {
		return domain.Product{}, err
	}
	c.gw.Invalidate(productsCacheKey)

	var updated productDTO
	if err := c.decode(data, &updated, "product"); err != nil {
		return domain.Product{}, err
	}
	return updated.toDomain(), nil
}

// DeleteProduct удаляет товар и инвалидирует кэш каталога.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	_, err := c.gw.Do(ctx, gateway.Request{
		Method: http.MethodDelete,
		Path:   "/products/" + id,
		Body:   map[string]any{"init_data": c.initData()},
	})
	if err != nil {
		return err
	}
	c.gw.Invalidate(productsCacheKey)
	return nil
}

// ListOrders возвращает все заказы (админ); не кэшируется.
func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	data, err := c.gw.Do(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/orders",
		Header: c.authHeader(),
	})
	if err != nil {
		return nil, err
	}
	return c.decodeOrders(data)
}

// ListUserOrders возвращает заказы пользователя; кэшируется на TTL шлюза.
func (c *Client) ListUserOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	data, err := c.gw.Do(ctx, gateway.Request{
		Method:    http.MethodGet,
		Path:      fmt.Sprintf("/orders/user/%d", userID),
		Header:    c.authHeader(),
		Cacheable: true,
		CacheKey:  fmt.Sprintf(userOrdersCacheKey, userID),
	})
	if err != nil {
		return nil, err
	}
	return c.decodeOrders(data)
}

func (c *Client) decodeOrders(data []byte) ([]domain.Order, error) {
	var dtos []orderDTO
	if err := c.decode(data, &dtos, "orders"); err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(dtos))
	for _, dto := range dtos {
		orders = append(orders, dto.toDomain())
	}
	return orders, nil
}

// CreateOrder создаёт заказ; сервер назначает id и дату. Инвалидирует кэш
// каталога и заказов пользователя: их данные этот вызов делает устаревшими.
func (c *Client) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	data, err := c.gw.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/orders",
		Body: map[string]any{
			"user_id":      order.UserID,
			"username":     order.Username,
			"items":        cartItemsToDTO(order.Items),
			"total_amount": order.TotalMinor,
			"init_data":    c.initData(),
		},
	})
	if err != nil {
		return domain.Order{}, err
	}
	c.gw.Invalidate(productsCacheKey)
	c.gw.Invalidate(fmt.Sprintf(userOrdersCacheKey, order.UserID))

	var created orderDTO
	if err := c.decode(data, &created, "order"); err != nil {
		return domain.Order{}, err
	}
	return created.toDomain(), nil
}

// UpdateOrderStatus меняет статус заказа. Отклонение возвращает товары в
// продажу на сервере, поэтому кэш каталога инвалидируется; кэшированные
// списки заказов тоже устаревают — иначе опрос внутри TTL вернёт прежний
// статус и локально откатит уже закоммиченную смену. Id пользователя в этой
// точке неизвестен, поэтому инвалидируются все пользовательские списки.
func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	_, err := c.gw.Do(ctx, gateway.Request{
		Method: http.MethodPatch,
		Path:   "/orders/" + id,
		Body: map[string]any{
			"status":    string(status),
			"init_data": c.initData(),
		},
	})
	if err != nil {
		return err
	}
	c.gw.Invalidate(productsCacheKey)
	c.gw.InvalidatePrefix(userOrdersCachePrefix)
	return nil
}

// CreateProductRequest отправляет заявку на товар. Повторная отправка тем же
// пользователем до завершения первой вытесняет её: на сервере останется один
// запрос, а первый вызов завершится как оборванный, не как ошибка.
func (c *Client) CreateProductRequest(ctx context.Context, request domain.ProductRequest) (domain.ProductRequest, error) {
	data, err := c.gw.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/product-requests",
		Body: map[string]any{
			"user_id":      request.UserID,
			"username":     request.Username,
			"product_name": request.ProductName,
			"quantity":     request.Qty,
			"image":        request.Image,
			"init_data":    c.initData(),
		},
		CacheKey:  fmt.Sprintf(createRequestKey, request.UserID),
		Supersede: true,
	})
	if err != nil {
		return domain.ProductRequest{}, err
	}
	c.gw.Invalidate(fmt.Sprintf(userRequestsKey, request.UserID))

	var created requestDTO
	if err := c.decode(data, &created, "product request"); err != nil {
		return domain.ProductRequest{}, err
	}
	return created.toDomain(), nil
}

// ListProductRequests возвращает все заявки (админ); не кэшируется.
func (c *Client) ListProductRequests(ctx context.Context) ([]domain.ProductRequest, error) {
	data, err := c.gw.Do(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/product-requests",
		Header: c.authHeader(),
	})
	if err != nil {
		return nil, err
	}
	return c.decodeRequests(data)
}

// ListUserProductRequests возвращает заявки пользователя; кэшируется на TTL шлюза.
func (c *Client) ListUserProductRequests(ctx context.Context, userID int64) ([]domain.ProductRequest, error) {
	data, err := c.gw.Do(ctx, gateway.Request{
		Method:    http.MethodGet,
		Path:      fmt.Sprintf("/product-requests/user/%d", userID),
		Header:    c.authHeader(),
		Cacheable: true,
		CacheKey:  fmt.Sprintf(userRequestsKey, userID),
	})
	if err != nil {
		return nil, err
	}
	return c.decodeRequests(data)
}

func (c *Client) decodeRequests(data []byte) ([]domain.ProductRequest, error) {
	var dtos []requestDTO
	if err := c.decode(data, &dtos, "product requests"); err != nil {
		return nil, err
	}
	requests := make([]domain.ProductRequest, 0, len(dtos))
	for _, dto := range dtos {
		requests = append(requests, dto.toDomain())
	}
	return requests, nil
}

// UpdateProductRequest меняет статус заявки (админ).
func (c *Client) UpdateProductRequest(ctx context.Context, id string, status domain.RequestStatus) error {
	_, err := c.gw.Do(ctx, gateway.Request{
		Method: http.MethodPatch,
		Path:   "/product-requests/" + id,
		Body: map[string]any{
			"status":    string(status),
			"init_data": c.initData(),
		},
	})
	return err
}

var _ domain.Backend = (*Client)(nil)
