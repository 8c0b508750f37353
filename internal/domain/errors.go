package domain

import "errors"

var (
	// Ошибка операции, требующей загруженной сессии пользователя.
	ErrUserRequired = errors.New("user is required")
	// Ошибка операции, доступной только администратору.
	ErrAdminOnly = errors.New("only admin can perform this operation")
	// Ошибка оформления заказа из пустой корзины.
	ErrCartEmpty = errors.New("cart is empty")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отсутствующего названия товара или заявки.
	ErrNameRequired = errors.New("name is required")
	// Ошибка некорректной цены (<= 0 при создании, < 0 в снимках).
	ErrPriceInvalid = errors.New("price must be positive")
	// Ошибка некорректного количества (<= 0).
	ErrQtyInvalid = errors.New("qty must be greater than zero")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrTotalMismatch = errors.New("order total does not match items sum")
	// ErrProductNotFound возвращается, если товара нет в локальном каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock — локальный резерв не позволяет добавить столько единиц.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrOrderNotFound возвращается, если заказ не найден в локальном снимке.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNotPending — операция допустима только для заказа в статусе PENDING.
	ErrOrderNotPending = errors.New("order is not pending")
	// ErrRequestNotFound возвращается, если заявка не найдена в локальном снимке.
	ErrRequestNotFound = errors.New("product request not found")
	// ErrRequestNotPending — операция допустима только для заявки в статусе pending.
	ErrRequestNotPending = errors.New("product request is not pending")
	// ErrPartialApproval — составная операция «одобрить заявку + создать товар»
	// завершилась частично; состояние восстановимо повторной попыткой.
	ErrPartialApproval = errors.New("request approval completed partially")
)

// IsPartialApproval проверяет, является ли ошибка частичным завершением
// составной операции одобрения заявки.
func IsPartialApproval(err error) bool {
	return errors.Is(err, ErrPartialApproval)
}
