package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const storageVersion = 1

// ErrCorrupt marks a stored cart that cannot be trusted.
var ErrCorrupt = errors.New("cart: corrupt stored payload")

// Cart is the ordered set of line items owned by one shopper.
type Cart struct {
	Items        []LineItem
	LastModified time.Time
}

type storedCart struct {
	Version      int        `json:"version"`
	Items        []LineItem `json:"items"`
	LastModified time.Time  `json:"lastModified"`
}

// Encode serializes the cart into its versioned storage form.
func Encode(c Cart) ([]byte, error) {
	items := c.Items
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(storedCart{
		Version:      storageVersion,
		Items:        items,
		LastModified: c.LastModified.UTC(),
	})
}

// Decode parses a stored cart. Any payload that breaks cart invariants is
// reported as ErrCorrupt.
func Decode(raw []byte) (Cart, error) {
	var stored storedCart
	if err := json.Unmarshal(raw, &stored); err != nil {
		return Cart{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if stored.Version != storageVersion {
		return Cart{}, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, stored.Version)
	}

	seen := make(map[Key]struct{}, len(stored.Items))
	items := make([]LineItem, 0, len(stored.Items))
	for idx, item := range stored.Items {
		if err := item.Validate(); err != nil {
			return Cart{}, fmt.Errorf("%w: item %d: %v", ErrCorrupt, idx, err)
		}
		key := item.Key()
		if _, dup := seen[key]; dup {
			return Cart{}, fmt.Errorf("%w: item %d duplicates %s/%s/%s", ErrCorrupt, idx, key.ProductID, key.Size, key.Color)
		}
		seen[key] = struct{}{}
		items = append(items, item)
	}
	return Cart{Items: items, LastModified: stored.LastModified}, nil
}
