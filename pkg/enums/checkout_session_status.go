package enums

// CheckoutSessionStatus tracks a hosted checkout from creation to resolution.
type CheckoutSessionStatus string

const (
	CheckoutSessionOpen      CheckoutSessionStatus = "open"
	CheckoutSessionCompleted CheckoutSessionStatus = "completed"
	CheckoutSessionExpired   CheckoutSessionStatus = "expired"
)

var checkoutSessionStatuses = []CheckoutSessionStatus{
	CheckoutSessionOpen,
	CheckoutSessionCompleted,
	CheckoutSessionExpired,
}

func (s CheckoutSessionStatus) String() string { return string(s) }

func (s CheckoutSessionStatus) IsValid() bool { return valid(checkoutSessionStatuses, s) }

func ParseCheckoutSessionStatus(value string) (CheckoutSessionStatus, error) {
	return parse("checkout session status", checkoutSessionStatuses, value)
}
