package domain

// RequestStatus отражает статус заявки на товар, которого нет в каталоге.
type RequestStatus string

const (
	// RequestStatusPending — заявка отправлена, ожидаем решение администратора.
	RequestStatusPending RequestStatus = "pending"
	// RequestStatusApproved — администратор одобрил заявку и заводит товар в каталог.
	RequestStatusApproved RequestStatus = "approved"
	// RequestStatusRejected — администратор отклонил заявку.
	RequestStatusRejected RequestStatus = "rejected"
)

// ProductRequest описывает заявку покупателя на товар под заказ.
type ProductRequest struct {
	ID          string
	UserID      int64
	Username    string
	ProductName string
	Qty         int32
	// Image — необязательный URL фото желаемого товара.
	Image  string
	Status RequestStatus
}

// Validate проверяет заполненность заявки до каких-либо мутаций и сетевых вызовов.
func (r *ProductRequest) Validate() []error {
	var errs []error

	if r.UserID == 0 {
		errs = append(errs, ErrUserRequired)
	}
	if r.ProductName == "" {
		errs = append(errs, ErrNameRequired)
	}
	if r.Qty <= 0 {
		errs = append(errs, ErrQtyInvalid)
	}

	return errs
}

// Terminal сообщает, достигла ли заявка конечного статуса.
func (r *ProductRequest) Terminal() bool {
	return r.Status == RequestStatusApproved || r.Status == RequestStatusRejected
}
