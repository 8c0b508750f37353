package domain

import "context"

// Backend описывает REST-бэкенд витрины на границе его интерфейса.
// Реализация живёт в internal/backend; бэкенд — внешний коллаборатор,
// единственный авторитетный источник остатков.
type Backend interface {
	// GetOrCreateUser регистрирует или возвращает пользователя по telegram id.
	GetOrCreateUser(ctx context.Context, telegramID int64, username string) (User, error)

	// ListProducts возвращает каталог; кэшируемый идемпотентный read.
	ListProducts(ctx context.Context) ([]Product, error)
	// CreateProduct заводит товар в каталоге (админ).
	CreateProduct(ctx context.Context, product Product) (Product, error)
	// UpdateProduct частично обновляет товар (админ).
	UpdateProduct(ctx context.Context, id string, patch ProductPatch) (Product, error)
	// DeleteProduct удаляет товар из каталога (админ).
	DeleteProduct(ctx context.Context, id string) error

	// ListOrders возвращает все заказы (админ).
	ListOrders(ctx context.Context) ([]Order, error)
	// ListUserOrders возвращает заказы пользователя.
	ListUserOrders(ctx context.Context, userID int64) ([]Order, error)
	// CreateOrder создаёт заказ; сервер назначает id и дату.
	CreateOrder(ctx context.Context, order Order) (Order, error)
	// UpdateOrderStatus меняет статус заказа.
	UpdateOrderStatus(ctx context.Context, id string, status OrderStatus) error

	// CreateProductRequest отправляет заявку на товар; повторная отправка
	// тем же пользователем вытесняет предыдущий незавершённый запрос.
	CreateProductRequest(ctx context.Context, request ProductRequest) (ProductRequest, error)
	// ListProductRequests возвращает все заявки (админ).
	ListProductRequests(ctx context.Context) ([]ProductRequest, error)
	// ListUserProductRequests возвращает заявки пользователя.
	ListUserProductRequests(ctx context.Context, userID int64) ([]ProductRequest, error)
	// UpdateProductRequest меняет статус заявки (админ).
	UpdateProductRequest(ctx context.Context, id string, status RequestStatus) error
}

// ProductPatch описывает частичное обновление товара; nil-поля не трогаются.
type ProductPatch struct {
	Name         *string
	PriceMinor   *int64
	Category     *string
	Description  *string
	Image        *string
	AvailableQty *int32
}

// NoticeLevel задаёт вид транзиентного уведомления для UI.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notifier публикует транзиентные уведомления пользователю.
// Ошибки вида «запрос вытеснен» сюда не попадают никогда.
type Notifier interface {
	Notify(level NoticeLevel, message string)
}

// NopNotifier — заглушка Notifier по умолчанию.
type NopNotifier struct{}

func (NopNotifier) Notify(NoticeLevel, string) {}

var _ Notifier = NopNotifier{}
