package domain

// OrderItem represents a line item in an order.
type OrderItem struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Size      string `json:"size,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

// LineTotal returns the total price for this line item.
func (i *OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}
