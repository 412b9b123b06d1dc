package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// LineSnapshot is a purchased line frozen at checkout time.
type LineSnapshot struct {
	ProductID string          `json:"productId"`
	Slug      string          `json:"slug"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
}

// LineTotal is price times quantity.
func (l LineSnapshot) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineSnapshots stores purchased lines as a JSON array.
type LineSnapshots []LineSnapshot

// Subtotal sums every line total.
func (l LineSnapshots) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range l {
		total = total.Add(line.LineTotal())
	}
	return total
}

// Value serializes the lines to JSON.
func (l LineSnapshots) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]LineSnapshot(l))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan decodes a JSON array into the lines.
func (l *LineSnapshots) Scan(value interface{}) error {
	if value == nil {
		*l = LineSnapshots{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return fmt.Errorf("line snapshots: %w", err)
	}
	var decoded []LineSnapshot
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*l = LineSnapshots(decoded)
	return nil
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
