package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository reads active products.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type listProductsParams struct {
	Category string
	Query    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Color    string
	Size     string
	Limit    int
	Cursor   *pagination.Cursor
}

// effectivePrice is what the buyer pays: the sale price when set.
const effectivePrice = "COALESCE(sale_price, price)"

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// FindByID returns gorm.ErrRecordNotFound for unknown or inactive products.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySlug returns gorm.ErrRecordNotFound for unknown or inactive products.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Where("slug = ? AND is_active = ?", strings.ToLower(slug), true).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) List(ctx context.Context, params listProductsParams) ([]models.Product, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true)
	if params.Category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(params.Category))
	}
	if params.Query != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(params.Query)) + "%"
		query = query.Where(
			`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern,
		)
	}
	if params.MinPrice != nil {
		query = query.Where(effectivePrice+" >= CAST(? AS NUMERIC)", params.MinPrice.String())
	}
	if params.MaxPrice != nil {
		query = query.Where(effectivePrice+" <= CAST(? AS NUMERIC)", params.MaxPrice.String())
	}
	if params.Color != "" {
		query = query.Where(r.optionMatch("colors"), strings.ToLower(params.Color))
	}
	if params.Size != "" {
		query = query.Where(r.optionMatch("available_sizes"), strings.ToLower(params.Size))
	}

	var rows []models.Product
	if err := query.Scopes(pagination.Keyset(params.Cursor, params.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, params.Limit, func(m models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return page, next, nil
}

// optionMatch builds a case-insensitive membership test against a JSON array
// column. column must be a trusted identifier.
func (r *Repository) optionMatch(column string) string {
	if r.db.Dialector.Name() == "sqlite" {
		return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(products.%s) WHERE LOWER(json_each.value) = ?)", column)
	}
	return fmt.Sprintf("EXISTS (SELECT 1 FROM jsonb_array_elements_text(products.%s) AS opt(value) WHERE LOWER(opt.value) = ?)", column)
}
