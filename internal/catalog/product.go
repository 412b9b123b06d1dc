package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
)

// Product is the read model handed to the cart and the HTTP layer.
type Product struct {
	ID          uuid.UUID        `json:"id"`
	Slug        string           `json:"slug"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Price       decimal.Decimal  `json:"price"`
	SalePrice   *decimal.Decimal `json:"sale_price,omitempty"`
	Image       string           `json:"image"`
	Sizes       []string         `json:"sizes"`
	Colors      []string         `json:"colors"`
	CreatedAt   time.Time        `json:"created_at"`
}

// AcceptsSize reports whether size is offered. Products without declared
// sizes accept any value.
func (p Product) AcceptsSize(size string) bool {
	return acceptsOption(p.Sizes, size)
}

// AcceptsColor reports whether color is offered. Products without declared
// colors accept any value.
func (p Product) AcceptsColor(color string) bool {
	return acceptsOption(p.Colors, color)
}

func acceptsOption(options []string, value string) bool {
	if len(options) == 0 {
		return true
	}
	return dbtypes.StringList(options).Contains(value)
}

// FromModel maps a products row onto the read model.
func FromModel(m models.Product) Product {
	out := Product{
		ID:          m.ID,
		Slug:        m.Slug,
		Name:        m.Name,
		Description: m.Description,
		Category:    m.Category,
		Price:       m.Price,
		Image:       m.MainImage,
		Sizes:       append([]string{}, m.AvailableSizes...),
		Colors:      append([]string{}, m.Colors...),
		CreatedAt:   m.CreatedAt,
	}
	if m.SalePrice.Valid {
		sale := m.SalePrice.Decimal
		out.SalePrice = &sale
	}
	return out
}
