package domain

// Product описывает позицию каталога витрины.
type Product struct {
	ID   string
	Name string
	// PriceMinor — цена за единицу в минимальных денежных единицах (например, копейки).
	PriceMinor  int64
	Category    string
	Description string
	// Image — непрозрачный URL картинки у внешнего хостинга.
	Image string
	// AvailableQty — сколько единиц осталось доступно для резервирования. Инвариант: >= 0.
	AvailableQty int32
}

// Validate проверяет, корректно ли заполнены ключевые поля товара
// перед отправкой на бэкенд. Ошибки валидации не требуют отката:
// ни локальное состояние, ни сеть ещё не затронуты.
func (p *Product) Validate() []error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, ErrNameRequired)
	}
	if p.PriceMinor <= 0 {
		errs = append(errs, ErrPriceInvalid)
	}
	if p.AvailableQty <= 0 {
		errs = append(errs, ErrQtyInvalid)
	}

	return errs
}

// Snapshot строит позицию корзины из текущего состояния товара.
func (p *Product) Snapshot(qty int32) CartItem {
	return CartItem{
		ProductID:  p.ID,
		Name:       p.Name,
		PriceMinor: p.PriceMinor,
		Category:   p.Category,
		Image:      p.Image,
		Qty:        qty,
	}
}
