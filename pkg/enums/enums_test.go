package enums

import "testing"

func TestPaymentStatusSettled(t *testing.T) {
	cases := map[PaymentStatus]bool{
		PaymentStatusPaid:              true,
		PaymentStatusNoPaymentRequired: true,
		PaymentStatusUnpaid:            false,
	}
	for status, want := range cases {
		if got := status.IsSettled(); got != want {
			t.Errorf("%s: expected settled=%v", status, want)
		}
	}
}

func TestParseRejectsUnknownValues(t *testing.T) {
	if _, err := ParseOrderStatus("Lost"); err == nil {
		t.Fatalf("expected error for unknown order status")
	}
	if _, err := ParseCheckoutSessionStatus("pending"); err == nil {
		t.Fatalf("expected error for unknown session status")
	}
	if _, err := ParseOutboxEventType("order_shipped"); err == nil {
		t.Fatalf("expected error for unknown event type")
	}
	if got, err := ParseOutboxAggregateType("order"); err != nil || got != AggregateOrder {
		t.Fatalf("expected order aggregate, got %q err=%v", got, err)
	}
	if OutboxDLQErrorReason("timeout").IsValid() {
		t.Fatalf("unexpected valid dlq reason")
	}
}

func TestParseErrorNamesKind(t *testing.T) {
	_, err := ParsePaymentStatus("refunded")
	if err == nil || err.Error() != `invalid payment status "refunded"` {
		t.Fatalf("unexpected error %v", err)
	}
	if !OutboxDLQReasonNonRetryable.IsValid() || !OrderStatusShipped.IsValid() {
		t.Fatalf("known values must be valid")
	}
}
