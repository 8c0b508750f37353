package store

import (
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Ledger ведёт локальный учёт «сколько товара X ещё можно добавить в корзину»,
// не дожидаясь сервера. Живёт в одном пакете со Store и работает под его
// замком, поэтому многопозиционные проходы резервирования и отката атомарны
// относительно остальных мутаций.
type Ledger struct {
	store *Store
}

// NewLedger создаёт леджер поверх store.
func NewLedger(s *Store) *Ledger {
	return &Ledger{store: s}
}

// CanReserve сообщает, помещаются ли ещё additional единиц товара в корзину:
// уже лежащее в корзине количество плюс additional не должно превышать остаток.
func (l *Ledger) CanReserve(productID string, additional int32) bool {
	s := l.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var available int32 = -1
	for _, p := range s.products {
		if p.ID == productID {
			available = p.AvailableQty
			break
		}
	}
	if available < 0 {
		return false
	}

	var inCart int32
	for _, item := range s.cart {
		if item.ProductID == productID {
			inCart = item.Qty
			break
		}
	}

	return inCart+additional <= available
}

// AddToCart резервирует qty единиц товара в корзину: проверка лимита и
// добавление снимка происходят атомарно под одним замком.
func (l *Ledger) AddToCart(productID string, qty int32) error {
	if qty <= 0 {
		return domain.ErrQtyInvalid
	}

	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var product *domain.Product
	for i := range s.products {
		if s.products[i].ID == productID {
			product = &s.products[i]
			break
		}
	}
	if product == nil {
		return domain.ErrProductNotFound
	}

	var inCart int32
	for _, item := range s.cart {
		if item.ProductID == productID {
			inCart = item.Qty
			break
		}
	}
	if inCart+qty > product.AvailableQty {
		return domain.ErrInsufficientStock
	}

	s.addCartItemLocked(product.Snapshot(qty))
	s.notifyLocked()
	return nil
}

// SetCartQuantity выставляет количество позиции корзины с проверкой остатка:
// qty сверх AvailableQty отклоняется целиком, позиция не меняется.
// qty <= 0 убирает позицию. Сырой мутатор Store.SetCartItemQty остаётся для
// слияний и откатов, где лимит уже учтён.
func (l *Ledger) SetCartQuantity(productID string, qty int32) error {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if qty <= 0 {
		for i := range s.cart {
			if s.cart[i].ProductID == productID {
				s.cart = append(s.cart[:i], s.cart[i+1:]...)
				s.notifyLocked()
				break
			}
		}
		return nil
	}

	var product *domain.Product
	for i := range s.products {
		if s.products[i].ID == productID {
			product = &s.products[i]
			break
		}
	}
	if product == nil {
		return domain.ErrProductNotFound
	}
	if qty > product.AvailableQty {
		return domain.ErrInsufficientStock
	}

	for i := range s.cart {
		if s.cart[i].ProductID == productID {
			s.cart[i].Qty = qty
			s.notifyLocked()
			return nil
		}
	}
	s.cart = append(s.cart, product.Snapshot(qty))
	s.notifyLocked()
	return nil
}

// ApplyPlacement списывает заказанные количества с остатков каталога.
// Позиция, ушедшая в ноль, убирается из видимого каталога как распроданная;
// остаток никогда не уводится в минус.
func (l *Ledger) ApplyPlacement(items []domain.CartItem) {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		for i := range s.products {
			if s.products[i].ID != item.ProductID {
				continue
			}
			if s.products[i].AvailableQty <= item.Qty {
				s.products = append(s.products[:i], s.products[i+1:]...)
			} else {
				s.products[i].AvailableQty -= item.Qty
			}
			break
		}
	}
	s.notifyLocked()
}

// Revert возвращает количества в каталог: аддитивное восстановление.
// Если товар ещё существует, количество прибавляется к его текущему остатку —
// конкурентное обновление каталога не перезаписывается, а корректируется.
// Полностью убранный товар восстанавливается из снимка позиции.
func (l *Ledger) Revert(items []domain.CartItem) {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		found := false
		for i := range s.products {
			if s.products[i].ID == item.ProductID {
				s.products[i].AvailableQty += item.Qty
				found = true
				break
			}
		}
		if !found {
			s.products = append(s.products, domain.Product{
				ID:           item.ProductID,
				Name:         item.Name,
				PriceMinor:   item.PriceMinor,
				Category:     item.Category,
				Image:        item.Image,
				AvailableQty: item.Qty,
			})
		}
	}
	s.notifyLocked()
}
