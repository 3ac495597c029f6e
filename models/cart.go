package models

import "time"

type Cart struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartLine is a reservation against Product.Stock: Quantity units are already
// subtracted from the product's available stock while the line exists.
// UnitPrice is the price snapshot taken when the line was first reserved.
type CartLine struct {
	CartID     int       `json:"cart_id"`
	ProductID  int       `json:"product_id"`
	Quantity   int       `json:"quantity"`
	UnitPrice  int       `json:"unit_price"`
	ReservedAt time.Time `json:"reserved_at"`
}

type CartLineView struct {
	ProductID   int       `json:"product_id"`
	ProductName string    `json:"product_name"`
	ImageURL    string    `json:"image_url,omitempty"`
	Quantity    int       `json:"quantity"`
	UnitPrice   int       `json:"unit_price"`
	Subtotal    int       `json:"subtotal"`
	ReservedAt  time.Time `json:"reserved_at"`
}
