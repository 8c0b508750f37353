package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus описывает жизненный цикл заказа в витрине.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан и ждёт решения администратора.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusConfirmed — заказ подтверждён, товары проданы.
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	// OrderStatusCanceled — заказ отклонён администратором или отменён покупателем.
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// CartItem представляет одну позицию корзины: снимок товара плюс количество.
// Снимок несёт достаточно данных, чтобы восстановить товар в каталоге при откате.
type CartItem struct {
	// ProductID — идентификатор товара в каталоге.
	ProductID string
	// Name — название товара на момент добавления в корзину.
	Name string
	// PriceMinor — цена за единицу на момент добавления (снимок, не живая цена каталога).
	PriceMinor int64
	// Category — категория товара из снимка.
	Category string
	// Image — URL изображения из снимка.
	Image string
	// Qty — количество единиц в позиции.
	Qty int32
}

// Order агрегирует состояние заказа и снимок его позиций на момент оформления.
type Order struct {
	ID         string
	UserID     int64
	Username   string
	Items      []CartItem
	TotalMinor int64
	Status     OrderStatus
	CreatedAt  time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == 0 {
		errs = append(errs, ErrUserRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}

	// Сверяем сумму заказа с суммой позиций: qty * price из снимка, а не из живого каталога.
	var calc int64
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrPriceInvalid)
		}
		calc += int64(item.Qty) * item.PriceMinor
	}
	if calc != o.TotalMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}

// Terminal сообщает, достиг ли заказ конечного статуса.
func (o *Order) Terminal() bool {
	return o.Status == OrderStatusConfirmed || o.Status == OrderStatusCanceled
}

// TempIDPrefix помечает идентификаторы, синтезированные клиентом до ответа сервера.
const TempIDPrefix = "tmp-"

// NewTempID синтезирует временный идентификатор для оптимистичной записи.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID сообщает, является ли идентификатор временным (клиентским).
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// CartTotalMinor считает сумму позиций корзины по ценам-снимкам.
func CartTotalMinor(items []CartItem) int64 {
	var total int64
	for _, item := range items {
		total += int64(item.Qty) * item.PriceMinor
	}
	return total
}
