package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
)

// Product is a catalog listing. The storefront only reads this table.
type Product struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Slug           string              `gorm:"column:slug;not null;uniqueIndex:products_slug_key"`
	Name           string              `gorm:"column:name;not null"`
	Description    string              `gorm:"column:description;not null;default:''"`
	Category       string              `gorm:"column:category;not null;index:products_category_idx"`
	Price          decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	SalePrice      decimal.NullDecimal `gorm:"column:sale_price;type:numeric(12,2)"`
	MainImage      string              `gorm:"column:main_image;not null;default:''"`
	AvailableSizes dbtypes.StringList  `gorm:"column:available_sizes;type:jsonb;not null"`
	Colors         dbtypes.StringList  `gorm:"column:colors;type:jsonb;not null"`
	IsActive       bool                `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
