package bigquery

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestNormalizeSpecs(t *testing.T) {
	specs, err := normalizeSpecs([]TableSpec{{Name: " order_events ", PartitionField: "occurred_at"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if specs[0].Name != "order_events" {
		t.Fatalf("expected trimmed name, got %q", specs[0].Name)
	}

	if _, err := normalizeSpecs(nil); !errors.Is(err, errTableNameRequired) {
		t.Fatalf("expected table required error, got %v", err)
	}
	if _, err := normalizeSpecs([]TableSpec{{Name: "  "}}); !errors.Is(err, errTableNameRequired) {
		t.Fatalf("expected blank name to be rejected, got %v", err)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.BigQueryConfig{Dataset: "d"}, nil, TableSpec{Name: "t"}); !errors.Is(err, errProjectIDRequired) {
		t.Fatalf("expected project error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{}, nil, TableSpec{Name: "t"}); !errors.Is(err, errDatasetRequired) {
		t.Fatalf("expected dataset error, got %v", err)
	}
}

func TestTableMetadataPartitioning(t *testing.T) {
	schema := bigquery.Schema{{Name: "occurred_at", Type: bigquery.TimestampFieldType}}
	meta := tableMetadata(TableSpec{Name: "order_events", Schema: schema, PartitionField: "occurred_at"})
	if meta.TimePartitioning == nil || meta.TimePartitioning.Field != "occurred_at" {
		t.Fatalf("expected day partitioning on occurred_at, got %+v", meta.TimePartitioning)
	}
	if plain := tableMetadata(TableSpec{Name: "x", Schema: schema}); plain.TimePartitioning != nil {
		t.Fatalf("expected no partitioning without a field")
	}
}

func TestInsertRowsRequiresClient(t *testing.T) {
	var nilClient *Client
	if err := nilClient.InsertRows(context.Background(), "order_events", []any{1}); err == nil {
		t.Fatal("expected error for nil client")
	}
	if err := nilClient.Close(); err != nil {
		t.Fatalf("close on nil client should be a no-op, got %v", err)
	}
}

func TestClientOptions(t *testing.T) {
	both := config.GCPConfig{CredentialsJSON: `{"dummy": "value"}`, ApplicationCredentials: "/tmp/creds"}
	if opts := clientOptions(both); len(opts) != 1 {
		t.Fatalf("expected 1 option, got %d", len(opts))
	}
	if opts := clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/creds"}); len(opts) != 1 {
		t.Fatalf("expected 1 option for credentials file, got %d", len(opts))
	}
	if opts := clientOptions(config.GCPConfig{}); len(opts) != 0 {
		t.Fatalf("expected ADC with no options, got %d", len(opts))
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(&googleapi.Error{Code: http.StatusNotFound}) {
		t.Fatal("expected 404 to be not found")
	}
	if isNotFound(&googleapi.Error{Code: http.StatusForbidden}) || isNotFound(errors.New("x")) {
		t.Fatal("expected other errors not to be not found")
	}
}
