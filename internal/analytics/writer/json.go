package writer

import (
	"bytes"
	"encoding/json"
	"fmt"

	cbigquery "cloud.google.com/go/bigquery"
)

// EncodeJSON renders payload for the BigQuery JSON column. Raw messages are
// stored as given; nil, empty and JSON null all become NULL.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	raw, ok := payload.(json.RawMessage)
	if !ok && payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
		}
		raw = encoded
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return cbigquery.NullJSON{}, nil
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(raw)}, nil
}
