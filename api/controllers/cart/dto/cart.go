package cartdto

import "time"

// AddItemRequest adds a catalog product to the caller's cart.
type AddItemRequest struct {
	Product  string `json:"product" validate:"required,max=128"`
	Size     string `json:"size" validate:"max=32"`
	Color    string `json:"color" validate:"max=32"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=999"`
}

// UpdateItemRequest sets the quantity of an existing line. A quantity of
// zero or less removes the line.
type UpdateItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity" validate:"max=999"`
}

// RemoveItemRequest names the line to remove.
type RemoveItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type CartItem struct {
	ProductID   string  `json:"product_id"`
	ProductSlug string  `json:"product_slug,omitempty"`
	Name        string  `json:"name"`
	Price       string  `json:"price"`
	SalePrice   *string `json:"sale_price,omitempty"`
	UnitPrice   string  `json:"unit_price"`
	LineTotal   string  `json:"line_total"`
	Image       string  `json:"image,omitempty"`
	Size        string  `json:"size"`
	Color       string  `json:"color"`
	Quantity    int     `json:"quantity"`
}

type CartTotals struct {
	Subtotal string `json:"subtotal"`
	Shipping string `json:"shipping"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

type Cart struct {
	CartID       string     `json:"cart_id"`
	Items        []CartItem `json:"items"`
	Totals       CartTotals `json:"totals"`
	Count        int        `json:"count"`
	LastModified *time.Time `json:"last_modified,omitempty"`
}

type CartCount struct {
	Count int `json:"count"`
}
