package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubProductReader struct {
	byID     map[uuid.UUID]models.Product
	bySlug   map[string]models.Product
	err      error
	idCalls  int
	slugCall int
	listed   listProductsParams
}

func (s *stubProductReader) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	s.idCalls++
	if s.err != nil {
		return nil, s.err
	}
	row, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (s *stubProductReader) FindBySlug(_ context.Context, slug string) (*models.Product, error) {
	s.slugCall++
	if s.err != nil {
		return nil, s.err
	}
	row, ok := s.bySlug[slug]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (s *stubProductReader) List(_ context.Context, params listProductsParams) ([]models.Product, *pagination.Cursor, error) {
	s.listed = params
	if s.err != nil {
		return nil, nil, s.err
	}
	rows := make([]models.Product, 0, len(s.byID))
	for _, row := range s.byID {
		rows = append(rows, row)
	}
	return rows, nil, nil
}

func testProduct() models.Product {
	return models.Product{
		ID:             uuid.New(),
		Slug:           "classic-hoodie",
		Name:           "Classic Hoodie",
		Category:       "hoodies",
		Price:          decimal.NewFromInt(80),
		SalePrice:      decimal.NewNullDecimal(decimal.NewFromInt(60)),
		MainImage:      "https://cdn.example.com/hoodie.jpg",
		AvailableSizes: dbtypes.StringList{"M", "L"},
		Colors:         dbtypes.StringList{"Grey"},
		IsActive:       true,
	}
}

func TestLookupResolvesIDOrSlug(t *testing.T) {
	row := testProduct()
	repo := &stubProductReader{
		byID:   map[uuid.UUID]models.Product{row.ID: row},
		bySlug: map[string]models.Product{row.Slug: row},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	byID, err := svc.Lookup(context.Background(), row.ID.String())
	if err != nil {
		t.Fatalf("lookup by id: %v", err)
	}
	if repo.idCalls != 1 || repo.slugCall != 0 {
		t.Fatalf("expected id lookup, got id=%d slug=%d", repo.idCalls, repo.slugCall)
	}
	if byID.SalePrice == nil || !byID.SalePrice.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected sale price 60, got %v", byID.SalePrice)
	}

	bySlug, err := svc.Lookup(context.Background(), " classic-hoodie ")
	if err != nil {
		t.Fatalf("lookup by slug: %v", err)
	}
	if bySlug.ID != row.ID || repo.slugCall != 1 {
		t.Fatalf("expected slug lookup to resolve %s", row.ID)
	}
	if !bySlug.AcceptsSize("l") || bySlug.AcceptsSize("XS") {
		t.Fatalf("unexpected size acceptance for %v", bySlug.Sizes)
	}
}

func TestLookupMapsErrors(t *testing.T) {
	svc, _ := NewService(&stubProductReader{})

	if _, err := svc.Lookup(context.Background(), "missing"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Lookup(context.Background(), "  "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	failing, _ := NewService(&stubProductReader{err: errors.New("connection reset")})
	if _, err := failing.Lookup(context.Background(), "anything"); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestListRejectsBadCursor(t *testing.T) {
	svc, _ := NewService(&stubProductReader{})
	_, err := svc.List(context.Background(), ListInput{Pagination: pagination.Params{Cursor: "%%%"}})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListPassesFilters(t *testing.T) {
	row := testProduct()
	repo := &stubProductReader{byID: map[uuid.UUID]models.Product{row.ID: row}}
	svc, _ := NewService(repo)

	result, err := svc.List(context.Background(), ListInput{Category: " hoodies ", Pagination: pagination.Params{Limit: 5}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.listed.Category != "hoodies" || repo.listed.Limit != 5 {
		t.Fatalf("unexpected params %+v", repo.listed)
	}
	if len(result.Products) != 1 || result.Cursor != "" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestListForwardsSearchFilters(t *testing.T) {
	repo := &stubProductReader{}
	svc, _ := NewService(repo)
	low, high := decimal.NewFromInt(20), decimal.NewFromInt(90)

	_, err := svc.List(context.Background(), ListInput{Query: " hood ", MinPrice: &low, MaxPrice: &high, Color: " Grey ", Size: "L"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := repo.listed
	if got.Query != "hood" || got.Color != "Grey" || got.Size != "L" {
		t.Fatalf("unexpected params %+v", got)
	}
	if !got.MinPrice.Equal(low) || !got.MaxPrice.Equal(high) {
		t.Fatalf("unexpected price bounds %v %v", got.MinPrice, got.MaxPrice)
	}
}

func TestListRejectsInvertedPriceRange(t *testing.T) {
	repo := &stubProductReader{}
	svc, _ := NewService(repo)
	low, high := decimal.NewFromInt(90), decimal.NewFromInt(20)

	_, err := svc.List(context.Background(), ListInput{MinPrice: &low, MaxPrice: &high})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.listed.MinPrice != nil {
		t.Fatalf("repository should not be queried")
	}
}

func TestProductWithoutOptionsAcceptsAnything(t *testing.T) {
	p := Product{}
	if !p.AcceptsSize("XL") || !p.AcceptsColor("Red") {
		t.Fatalf("expected products without declared options to accept any value")
	}
}
