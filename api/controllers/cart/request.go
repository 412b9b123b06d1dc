package cart

import (
	cartdto "github.com/angelmondragon/storefront-backend/api/controllers/cart/dto"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
)

const optionMaxLen = 32

func toAddProductInput(payload cartdto.AddItemRequest) cart.AddProductInput {
	return cart.AddProductInput{
		ProductRef: validators.SanitizeString(payload.Product, 128),
		Size:       validators.SanitizeString(payload.Size, optionMaxLen),
		Color:      validators.SanitizeString(payload.Color, optionMaxLen),
		Quantity:   payload.Quantity,
	}
}

func toUpdateInput(payload cartdto.UpdateItemRequest) cart.UpdateQuantityInput {
	return cart.UpdateQuantityInput{
		Key:      lineKey(payload.ProductID, payload.Size, payload.Color),
		Quantity: payload.Quantity,
	}
}

func lineKey(productID, size, color string) cart.Key {
	return cart.Key{
		ProductID: validators.SanitizeString(productID, 64),
		Size:      validators.SanitizeString(size, optionMaxLen),
		Color:     validators.SanitizeString(color, optionMaxLen),
	}
}
