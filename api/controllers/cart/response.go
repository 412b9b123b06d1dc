package cart

import (
	cartdto "github.com/angelmondragon/storefront-backend/api/controllers/cart/dto"
	"github.com/angelmondragon/storefront-backend/internal/cart"
)

const moneyPlaces = 2

func newCart(snapshot *cart.Snapshot) cartdto.Cart {
	items := make([]cartdto.CartItem, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		view := cartdto.CartItem{
			ProductID:   item.ProductID,
			ProductSlug: item.ProductSlug,
			Name:        item.Name,
			Price:       item.Price.StringFixed(moneyPlaces),
			UnitPrice:   item.UnitPrice().StringFixed(moneyPlaces),
			LineTotal:   item.LineTotal().StringFixed(moneyPlaces),
			Image:       item.Image,
			Size:        item.Size,
			Color:       item.Color,
			Quantity:    item.Quantity,
		}
		if item.SalePrice != nil {
			sale := item.SalePrice.StringFixed(moneyPlaces)
			view.SalePrice = &sale
		}
		items = append(items, view)
	}

	out := cartdto.Cart{
		CartID: snapshot.CartID,
		Items:  items,
		Totals: cartdto.CartTotals{
			Subtotal: snapshot.Totals.Subtotal.StringFixed(moneyPlaces),
			Shipping: snapshot.Totals.Shipping.StringFixed(moneyPlaces),
			Tax:      snapshot.Totals.Tax.StringFixed(moneyPlaces),
			Total:    snapshot.Totals.Total.StringFixed(moneyPlaces),
		},
		Count: snapshot.Count,
	}
	if !snapshot.LastModified.IsZero() {
		modified := snapshot.LastModified.UTC()
		out.LastModified = &modified
	}
	return out
}
