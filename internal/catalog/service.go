package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	List(ctx context.Context, params listProductsParams) ([]models.Product, *pagination.Cursor, error)
}

// Service is the read-only product catalog.
type Service interface {
	Lookup(ctx context.Context, ref string) (*Product, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
}

// ListInput filters the browse endpoint. Query matches name, description and
// category; the price bounds apply to the sale price when one is set.
type ListInput struct {
	Category   string
	Query      string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Color      string
	Size       string
	Pagination pagination.Params
}

// ListResult is one page of products.
type ListResult struct {
	Products []Product `json:"products"`
	Cursor   string    `json:"cursor,omitempty"`
}

type service struct {
	repo productReader
}

func NewService(repo productReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

// Lookup resolves ref as a product id when it parses as a UUID, otherwise as a slug.
func (s *service) Lookup(ctx context.Context, ref string) (*Product, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product reference is required")
	}

	var (
		row *models.Product
		err error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		row, err = s.repo.FindByID(ctx, id)
	} else {
		row, err = s.repo.FindBySlug(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	product := FromModel(*row)
	return &product, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	if input.MinPrice != nil && input.MaxPrice != nil && input.MinPrice.GreaterThan(*input.MaxPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_price cannot exceed max_price")
	}
	params := listProductsParams{
		Category: strings.TrimSpace(input.Category),
		Query:    strings.TrimSpace(input.Query),
		MinPrice: input.MinPrice,
		MaxPrice: input.MaxPrice,
		Color:    strings.TrimSpace(input.Color),
		Size:     strings.TrimSpace(input.Size),
		Limit:    input.Pagination.Limit,
	}
	if input.Pagination.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, FromModel(row))
	}
	result := &ListResult{Products: products}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}
