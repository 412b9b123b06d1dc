package writer

import (
	"errors"
	"net/http"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// isRetryableBigQueryError reports whether every underlying failure in err
// is transient. Multi-row errors are retried only when all rows failed for
// a transient reason.
func isRetryableBigQueryError(err error) bool {
	leaves := leafErrors(err)
	if len(leaves) == 0 {
		return false
	}
	for _, leaf := range leaves {
		if !transient(leaf) {
			return false
		}
	}
	return true
}

// leafErrors flattens the BigQuery multi-error types, which the client
// returns both by value and by pointer.
func leafErrors(err error) []error {
	if err == nil {
		return nil
	}
	var (
		multi       cbigquery.MultiError
		multiPtr    *cbigquery.MultiError
		putMulti    cbigquery.PutMultiError
		putMultiPtr *cbigquery.PutMultiError
		rowErr      *cbigquery.RowInsertionError
	)
	switch {
	case errors.As(err, &multiPtr) && multiPtr != nil:
		return flatten(*multiPtr)
	case errors.As(err, &multi):
		return flatten(multi)
	case errors.As(err, &putMultiPtr) && putMultiPtr != nil:
		return rowLeaves(*putMultiPtr)
	case errors.As(err, &putMulti):
		return rowLeaves(putMulti)
	case errors.As(err, &rowErr) && rowErr != nil:
		return flatten(rowErr.Errors)
	}
	return []error{err}
}

func rowLeaves(rows cbigquery.PutMultiError) []error {
	var out []error
	for _, row := range rows {
		out = append(out, flatten(row.Errors)...)
	}
	return out
}

func flatten(errs cbigquery.MultiError) []error {
	var out []error
	for _, e := range errs {
		out = append(out, leafErrors(e)...)
	}
	return out
}

func transient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusRequestTimeout,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Aborted, codes.DeadlineExceeded, codes.Internal, codes.ResourceExhausted, codes.Unavailable:
			return true
		}
	}
	return false
}
