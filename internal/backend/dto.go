package backend

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Wire-форматы REST-бэкенда. Денежные поля — в минимальных единицах.
// Декодирование в доменные типы происходит только здесь, на границе шлюза;
// координаторы работают с типизированными сущностями.

type userDTO struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

func (d userDTO) toDomain() domain.User {
	return domain.User{ID: d.ID, Username: d.Username, IsAdmin: d.IsAdmin}
}

type productDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Quantity    int32  `json:"quantity"`
}

func (d productDTO) toDomain() domain.Product {
	return domain.Product{
		ID:           d.ID,
		Name:         d.Name,
		PriceMinor:   d.Price,
		Category:     d.Category,
		Description:  d.Description,
		Image:        d.Image,
		AvailableQty: d.Quantity,
	}
}

func productToDTO(p domain.Product) productDTO {
	return productDTO{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.PriceMinor,
		Category:    p.Category,
		Description: p.Description,
		Image:       p.Image,
		Quantity:    p.AvailableQty,
	}
}

type cartItemDTO struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Category  string `json:"category"`
	Image     string `json:"image"`
	Quantity  int32  `json:"quantity"`
}

func (d cartItemDTO) toDomain() domain.CartItem {
	return domain.CartItem{
		ProductID:  d.ProductID,
		Name:       d.Name,
		PriceMinor: d.Price,
		Category:   d.Category,
		Image:      d.Image,
		Qty:        d.Quantity,
	}
}

func cartItemsToDTO(items []domain.CartItem) []cartItemDTO {
	out := make([]cartItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, cartItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.PriceMinor,
			Category:  item.Category,
			Image:     item.Image,
			Quantity:  item.Qty,
		})
	}
	return out
}

type orderDTO struct {
	ID          string        `json:"id"`
	UserID      int64         `json:"user_id"`
	Username    string        `json:"username"`
	Items       []cartItemDTO `json:"items"`
	TotalAmount int64         `json:"total_amount"`
	Status      string        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

func (d orderDTO) toDomain() domain.Order {
	items := make([]domain.CartItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, item.toDomain())
	}
	return domain.Order{
		ID:         d.ID,
		UserID:     d.UserID,
		Username:   d.Username,
		Items:      items,
		TotalMinor: d.TotalAmount,
		Status:     domain.OrderStatus(d.Status),
		CreatedAt:  d.CreatedAt,
	}
}

type requestDTO struct {
	ID          string `json:"id"`
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
	Image       string `json:"image,omitempty"`
	Status      string `json:"status"`
}

func (d requestDTO) toDomain() domain.ProductRequest {
	return domain.ProductRequest{
		ID:          d.ID,
		UserID:      d.UserID,
		Username:    d.Username,
		ProductName: d.ProductName,
		Qty:         d.Quantity,
		Image:       d.Image,
		Status:      domain.RequestStatus(d.Status),
	}
}
