package store

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Store держит канонический локальный снимок каталога, корзины, заказов и
// заявок. Все коллекции меняются только через мутаторы под одним замком:
// конкурентные оптимистичные операции переплетаются на одних и тех же
// коллекциях, и read-modify-write в обход мутаторов недопустим.
// Мутаторы не возвращают ошибок.
type Store struct {
	mu       sync.RWMutex
	user     domain.User
	products []domain.Product
	cart     []domain.CartItem
	orders   []domain.Order
	requests []domain.ProductRequest

	subs []chan struct{}
}

// New возвращает пустой store.
func New() *Store {
	return &Store{}
}

// Subscribe возвращает канал, в который приходит сигнал после каждой мутации.
// Сигналы коалесцируются: медленный подписчик получит один сигнал на серию.
func (s *Store) Subscribe() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{}, 1)
	s.subs = append(s.subs, ch)
	return ch
}

// notifyLocked сигналит подписчикам; вызывается только под s.mu.
func (s *Store) notifyLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// SetUser сохраняет текущую сессию.
func (s *Store) SetUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = user
	s.notifyLocked()
}

// User возвращает текущую сессию.
func (s *Store) User() domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.user
}

// SetProducts заменяет каталог целиком.
func (s *Store) SetProducts(products []domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = append([]domain.Product(nil), products...)
	s.notifyLocked()
}

// Products возвращает копию каталога.
func (s *Store) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Product(nil), s.products...)
}

// Product возвращает товар по id.
func (s *Store) Product(id string) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// PatchProduct атомарно меняет товар через mut; false, если товара нет.
func (s *Store) PatchProduct(id string, mut func(*domain.Product)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.products {
		if s.products[i].ID == id {
			mut(&s.products[i])
			s.notifyLocked()
			return true
		}
	}
	return false
}

// PrependProduct вставляет товар в начало каталога.
func (s *Store) PrependProduct(product domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = append([]domain.Product{product}, s.products...)
	s.notifyLocked()
}

// RemoveProduct удаляет товар из каталога; false, если товара нет.
func (s *Store) RemoveProduct(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.products {
		if s.products[i].ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			s.notifyLocked()
			return true
		}
	}
	return false
}

// SetCart заменяет корзину целиком.
func (s *Store) SetCart(items []domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = append([]domain.CartItem(nil), items...)
	s.notifyLocked()
}

// Cart возвращает копию корзины.
func (s *Store) Cart() []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.CartItem(nil), s.cart...)
}

// AddCartItem добавляет позицию; существующая позиция того же товара
// увеличивает количество, снимок цены при этом не пересчитывается.
func (s *Store) AddCartItem(item domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addCartItemLocked(item)
	s.notifyLocked()
}

func (s *Store) addCartItemLocked(item domain.CartItem) {
	for i := range s.cart {
		if s.cart[i].ProductID == item.ProductID {
			s.cart[i].Qty += item.Qty
			return
		}
	}
	s.cart = append(s.cart, item)
}

// RemoveCartItem убирает позицию товара из корзины.
func (s *Store) RemoveCartItem(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cart {
		if s.cart[i].ProductID == productID {
			s.cart = append(s.cart[:i], s.cart[i+1:]...)
			s.notifyLocked()
			return
		}
	}
}

// SetCartItemQty выставляет количество позиции без проверки остатка;
// qty <= 0 удаляет её. Пользовательский путь — Ledger.SetCartQuantity.
func (s *Store) SetCartItemQty(productID string, qty int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cart {
		if s.cart[i].ProductID == productID {
			if qty <= 0 {
				s.cart = append(s.cart[:i], s.cart[i+1:]...)
			} else {
				s.cart[i].Qty = qty
			}
			s.notifyLocked()
			return
		}
	}
}

// SetOrders заменяет список заказов целиком.
func (s *Store) SetOrders(orders []domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = copyOrders(orders)
	s.notifyLocked()
}

// Orders возвращает копию списка заказов.
func (s *Store) Orders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyOrders(s.orders)
}

// Order возвращает заказ по id.
func (s *Store) Order(id string) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if o.ID == id {
			return copyOrder(o), true
		}
	}
	return domain.Order{}, false
}

// PrependOrder вставляет заказ в начало списка.
func (s *Store) PrependOrder(order domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = append([]domain.Order{copyOrder(order)}, s.orders...)
	s.notifyLocked()
}

// PatchOrder атомарно меняет заказ через mut; false, если заказа нет.
// Восстановление сохранённого снимка делается через mut вида *o = prior.
func (s *Store) PatchOrder(id string, mut func(*domain.Order)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.orders {
		if s.orders[i].ID == id {
			mut(&s.orders[i])
			s.notifyLocked()
			return true
		}
	}
	return false
}

// CommitOrder заменяет временный id заказа серверным id и датой. Если заказ
// с серверным id уже лежит в списке (опрос успел слить серверную копию между
// созданием и коммитом), временная запись просто убирается — дубликата с
// одним id не возникает. false, если временного заказа нет.
func (s *Store) CommitOrder(tempID, serverID string, createdAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tempIdx, serverIdx := -1, -1
	for i := range s.orders {
		switch s.orders[i].ID {
		case tempID:
			tempIdx = i
		case serverID:
			serverIdx = i
		}
	}
	if tempIdx < 0 {
		return false
	}
	if serverIdx >= 0 {
		s.orders = append(s.orders[:tempIdx], s.orders[tempIdx+1:]...)
	} else {
		s.orders[tempIdx].ID = serverID
		s.orders[tempIdx].CreatedAt = createdAt
	}
	s.notifyLocked()
	return true
}

// RemoveOrder удаляет заказ; false, если заказа нет.
func (s *Store) RemoveOrder(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			s.notifyLocked()
			return true
		}
	}
	return false
}

// MergeOrders заменяет список заказов серверными данными, сохраняя локальные
// оптимистичные записи с временными id: сервер про них ещё не знает, и слепая
// перезапись стёрла бы их до подтверждения.
func (s *Store) MergeOrders(fetched []domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]domain.Order, 0, len(fetched)+1)
	for _, o := range s.orders {
		if domain.IsTempID(o.ID) {
			merged = append(merged, o)
		}
	}
	merged = append(merged, copyOrders(fetched)...)
	s.orders = merged
	s.notifyLocked()
}

// SetProductRequests заменяет список заявок целиком.
func (s *Store) SetProductRequests(requests []domain.ProductRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append([]domain.ProductRequest(nil), requests...)
	s.notifyLocked()
}

// ProductRequests возвращает копию списка заявок.
func (s *Store) ProductRequests() []domain.ProductRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.ProductRequest(nil), s.requests...)
}

// ProductRequest возвращает заявку по id.
func (s *Store) ProductRequest(id string) (domain.ProductRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.requests {
		if r.ID == id {
			return r, true
		}
	}
	return domain.ProductRequest{}, false
}

// PatchProductRequest атомарно меняет заявку через mut; false, если заявки нет.
func (s *Store) PatchProductRequest(id string, mut func(*domain.ProductRequest)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.requests {
		if s.requests[i].ID == id {
			mut(&s.requests[i])
			s.notifyLocked()
			return true
		}
	}
	return false
}

// MergeProductRequests заменяет заявки серверными данными, сохраняя локальные
// записи с временными id по той же причине, что и MergeOrders.
func (s *Store) MergeProductRequests(fetched []domain.ProductRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]domain.ProductRequest, 0, len(fetched)+1)
	for _, r := range s.requests {
		if domain.IsTempID(r.ID) {
			merged = append(merged, r)
		}
	}
	merged = append(merged, fetched...)
	s.requests = merged
	s.notifyLocked()
}

// MergeProducts заменяет каталог серверными данными, вычитая количества,
// зарезервированные локальными PENDING-заказами с временными id: сервер этих
// заказов ещё не видел, и его снимок остатков не учитывает наш резерв.
// Позиции, ушедшие в ноль, скрываются из каталога.
func (s *Store) MergeProducts(fetched []domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reserved := make(map[string]int32)
	for _, o := range s.orders {
		if !domain.IsTempID(o.ID) || o.Status != domain.OrderStatusPending {
			continue
		}
		for _, item := range o.Items {
			reserved[item.ProductID] += item.Qty
		}
	}

	merged := make([]domain.Product, 0, len(fetched))
	for _, p := range fetched {
		p.AvailableQty -= reserved[p.ID]
		if p.AvailableQty <= 0 && reserved[p.ID] > 0 {
			continue
		}
		if p.AvailableQty < 0 {
			p.AvailableQty = 0
		}
		merged = append(merged, p)
	}
	s.products = merged
	s.notifyLocked()
}

// HasPendingActivity сообщает, есть ли заказы или заявки в нетерминальном
// статусе; синхронизатор опрашивает чаще, пока они есть.
func (s *Store) HasPendingActivity() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if !o.Terminal() {
			return true
		}
	}
	for _, r := range s.requests {
		if !r.Terminal() {
			return true
		}
	}
	return false
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.CartItem(nil), o.Items...)
	return o
}

func copyOrders(orders []domain.Order) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, copyOrder(o))
	}
	return out
}
