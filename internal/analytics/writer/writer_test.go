package writer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
)

func TestNewRequiresClientAndTable(t *testing.T) {
	_, err := New(nil, Config{OrderEventsTable: "order_events"})
	require.Error(t, err)
	_, err = New(&recordingInserter{}, Config{OrderEventsTable: " "})
	require.Error(t, err)
}

func TestEncodeJSON(t *testing.T) {
	cases := []struct {
		name  string
		in    any
		valid bool
		want  string
	}{
		{name: "nil", in: nil},
		{name: "json null", in: json.RawMessage(" null ")},
		{name: "empty raw", in: json.RawMessage(nil)},
		{name: "raw passes through", in: json.RawMessage(`{"foo":"baz"}`), valid: true, want: `{"foo":"baz"}`},
		{name: "struct is marshalled", in: struct {
			Total string `json:"total"`
		}{"53.20"}, valid: true, want: `{"total":"53.20"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EncodeJSON(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.valid, got.Valid)
			assert.Equal(t, tc.want, got.JSONVal)
		})
	}

	_, err := EncodeJSON(func() {})
	assert.Error(t, err)
}

func TestInsertRetries(t *testing.T) {
	unavailable := status.Error(codes.Unavailable, "down")
	cases := []struct {
		name      string
		responses []error
		wantErr   bool
		wantCalls int
	}{
		{name: "first try", responses: []error{nil}, wantCalls: 1},
		{name: "transient then ok", responses: []error{&googleapi.Error{Code: http.StatusServiceUnavailable}, nil}, wantCalls: 2},
		{name: "permanent stops at once", responses: []error{&googleapi.Error{Code: http.StatusBadRequest}}, wantErr: true, wantCalls: 1},
		{name: "gives up after max attempts", responses: []error{unavailable, unavailable, unavailable, nil}, wantErr: true, wantCalls: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, inserter := newTestWriter(t, 1)
			inserter.responses = tc.responses

			err := w.InsertOrderEvent(context.Background(), types.OrderEventRow{EventID: "evt-1"})
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Len(t, inserter.calls, tc.wantCalls)
			for _, call := range inserter.calls {
				assert.Equal(t, "order_events", call.table)
			}
			assert.Empty(t, w.buffer, "rows leave the buffer whether or not the insert succeeded")
		})
	}
}

func TestInsertBatchesAndUsesEventIDsAsInsertIDs(t *testing.T) {
	w, inserter := newTestWriter(t, 2)
	ctx := context.Background()

	require.NoError(t, w.InsertOrderEvent(ctx, types.OrderEventRow{EventID: "evt-1"}))
	assert.Empty(t, inserter.calls, "no insert before the batch fills")

	require.NoError(t, w.InsertOrderEvent(ctx, types.OrderEventRow{EventID: "evt-2"}))
	require.Len(t, inserter.calls, 1)
	assert.Equal(t, []string{"evt-1", "evt-2"}, inserter.calls[0].insertIDs)
}

func TestFlushDrainsPartialBatch(t *testing.T) {
	w, inserter := newTestWriter(t, 10)
	ctx := context.Background()

	require.NoError(t, w.InsertOrderEvent(ctx, types.OrderEventRow{EventID: "evt-1"}))
	require.NoError(t, w.Flush(ctx))
	require.NoError(t, w.Flush(ctx))
	assert.Len(t, inserter.calls, 1, "an empty flush does not call BigQuery")
}

func TestIsRetryableBigQueryError(t *testing.T) {
	badGateway := &googleapi.Error{Code: http.StatusBadGateway}
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":              {nil, false},
		"plain":            {errors.New("boom"), false},
		"http 429":         {&googleapi.Error{Code: http.StatusTooManyRequests}, true},
		"http 404":         {&googleapi.Error{Code: http.StatusNotFound}, false},
		"grpc unavailable": {status.Error(codes.Unavailable, "x"), true},
		"grpc invalid":     {status.Error(codes.InvalidArgument, "x"), false},
		"empty multi":      {&cbigquery.MultiError{}, false},
		"retryable multi":  {&cbigquery.MultiError{badGateway}, true},
		"mixed multi":      {&cbigquery.MultiError{badGateway, &googleapi.Error{Code: http.StatusBadRequest}}, false},
		"row errors":       {cbigquery.PutMultiError{{InsertID: "a", Errors: cbigquery.MultiError{status.Error(codes.Unavailable, "x")}}}, true},
		"wrapped":          {errors.Join(errors.New("insert"), badGateway), true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, isRetryableBigQueryError(tc.err))
		})
	}
}

type insertCall struct {
	table     string
	insertIDs []string
}

// recordingInserter answers each call with the next queued error.
type recordingInserter struct {
	responses []error
	calls     []insertCall
}

func (r *recordingInserter) InsertRows(_ context.Context, table string, rows []any) error {
	call := insertCall{table: table}
	for _, row := range rows {
		if saver, ok := row.(*cbigquery.StructSaver); ok {
			call.insertIDs = append(call.insertIDs, saver.InsertID)
		}
	}
	r.calls = append(r.calls, call)
	if len(r.responses) == 0 {
		return nil
	}
	err := r.responses[0]
	r.responses = r.responses[1:]
	return err
}

func newTestWriter(t *testing.T, batch int) (*BigQueryWriter, *recordingInserter) {
	t.Helper()
	inserter := &recordingInserter{}
	w, err := New(inserter, Config{
		OrderEventsTable: "order_events",
		BatchSize:        batch,
		RetryPolicy:      RetryPolicy{InitialBackoff: time.Millisecond, MaximumBackoff: 2 * time.Millisecond},
	})
	require.NoError(t, err)
	return w, inserter
}
