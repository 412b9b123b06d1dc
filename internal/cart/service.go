package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	opAdd    = "add"
	opUpdate = "update"
	opRemove = "remove"
	opClear  = "clear"
)

type productLookup interface {
	Lookup(ctx context.Context, ref string) (*catalog.Product, error)
}

type mutationRecorder interface {
	IncCartMutation(operation string)
}

// Service exposes cart operations addressed by cart id.
type Service interface {
	Snapshot(ctx context.Context, cartID string) (*Snapshot, error)
	AddProduct(ctx context.Context, cartID string, input AddProductInput) (*Snapshot, error)
	UpdateQuantity(ctx context.Context, cartID string, input UpdateQuantityInput) (*Snapshot, error)
	Remove(ctx context.Context, cartID string, key Key) (*Snapshot, error)
	Clear(ctx context.Context, cartID string) error
}

// AddProductInput references a catalog product by id or slug.
type AddProductInput struct {
	ProductRef string
	Size       string
	Color      string
	Quantity   int
}

// UpdateQuantityInput sets the absolute quantity of a line.
type UpdateQuantityInput struct {
	Key      Key
	Quantity int
}

// Snapshot is the read view of a cart with derived totals.
type Snapshot struct {
	CartID       string
	Items        []LineItem
	Totals       Totals
	Count        int
	LastModified time.Time
}

// ServiceParams wires the cart service collaborators.
type ServiceParams struct {
	Storage Storage
	Catalog productLookup
	Policy  PricingPolicy
	Metrics mutationRecorder
	Logger  *logger.Logger
	Clock   func() time.Time
}

type service struct {
	storage Storage
	catalog productLookup
	policy  PricingPolicy
	metrics mutationRecorder
	logg    *logger.Logger
	clock   func() time.Time
}

// NewService builds a cart service backed by the provided storage and catalog.
func NewService(params ServiceParams) (Service, error) {
	if params.Storage == nil {
		return nil, fmt.Errorf("cart storage required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		storage: params.Storage,
		catalog: params.Catalog,
		policy:  params.Policy,
		metrics: params.Metrics,
		logg:    params.Logger,
		clock:   clock,
	}, nil
}

func (s *service) Snapshot(ctx context.Context, cartID string) (*Snapshot, error) {
	engine, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return snapshotOf(engine), nil
}

// AddProduct captures the product's current name, price and image into a
// line item and merges it into the cart.
func (s *service) AddProduct(ctx context.Context, cartID string, input AddProductInput) (*Snapshot, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	size := strings.TrimSpace(input.Size)
	color := strings.TrimSpace(input.Color)

	product, err := s.catalog.Lookup(ctx, input.ProductRef)
	if err != nil {
		return nil, err
	}
	if !product.AcceptsSize(size) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size is not available for this product").
			WithDetails(map[string]any{"size": size, "available": product.Sizes})
	}
	if !product.AcceptsColor(color) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "color is not available for this product").
			WithDetails(map[string]any{"color": color, "available": product.Colors})
	}

	engine, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	item := LineItem{
		ProductID:   product.ID.String(),
		ProductSlug: product.Slug,
		Name:        product.Name,
		Price:       product.Price,
		SalePrice:   product.SalePrice,
		Image:       product.Image,
		Size:        size,
		Color:       color,
		Quantity:    input.Quantity,
	}
	if err := engine.Add(ctx, item); err != nil {
		return nil, s.persistError(err, "add cart item")
	}
	s.record(opAdd)
	return snapshotOf(engine), nil
}

// UpdateQuantity is a no-op for lines that are not in the cart.
func (s *service) UpdateQuantity(ctx context.Context, cartID string, input UpdateQuantityInput) (*Snapshot, error) {
	engine, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	changed, err := engine.UpdateQuantity(ctx, input.Key, input.Quantity)
	if err != nil {
		return nil, s.persistError(err, "update cart item")
	}
	if changed {
		s.record(opUpdate)
	}
	return snapshotOf(engine), nil
}

// Remove is a no-op for lines that are not in the cart.
func (s *service) Remove(ctx context.Context, cartID string, key Key) (*Snapshot, error) {
	engine, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	changed, err := engine.Remove(ctx, key)
	if err != nil {
		return nil, s.persistError(err, "remove cart item")
	}
	if changed {
		s.record(opRemove)
	}
	return snapshotOf(engine), nil
}

func (s *service) Clear(ctx context.Context, cartID string) error {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	if err := s.storage.Clear(ctx, cartID); err != nil {
		return s.persistError(err, "clear cart")
	}
	s.record(opClear)
	return nil
}

func (s *service) load(ctx context.Context, cartID string) (*Engine, error) {
	if strings.TrimSpace(cartID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	engine, err := Load(ctx, s.storage, cartID, s.policy, WithClock(s.clock))
	if err != nil {
		return nil, s.persistError(err, "load cart")
	}
	if recovered := engine.Recovered(); recovered != nil && s.logg != nil {
		logCtx := s.logg.WithCartID(ctx, engine.ID())
		logCtx = s.logg.WithField(logCtx, "reason", recovered.Error())
		s.logg.Warn(logCtx, "discarded corrupt cart")
	}
	return engine, nil
}

func (s *service) persistError(err error, msg string) error {
	switch {
	case errors.Is(err, errInvalidQuantity), errors.Is(err, errMissingProductID), errors.Is(err, errNegativePrice):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	case pkgerrors.As(err) != nil:
		return err
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	}
}

func (s *service) record(op string) {
	if s.metrics != nil {
		s.metrics.IncCartMutation(op)
	}
}

func snapshotOf(engine *Engine) *Snapshot {
	return &Snapshot{
		CartID:       engine.ID(),
		Items:        engine.Items(),
		Totals:       engine.Totals(),
		Count:        engine.Count(),
		LastModified: engine.LastModified(),
	}
}
