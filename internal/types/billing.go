package types

// PriceKey is a small, closed-set client-facing label selecting a pricing
// tier (e.g. "5", "9", "13", "17.67"). The key never carries an amount;
// the amount charged is always read from Stripe's Price object at request
// time, never computed or trusted from client input.
type PriceKey string

// DefaultPriceKey is the tier used when the storefront omits the price field
// entirely. A present-but-unknown key is rejected, never silently remapped.
const DefaultPriceKey PriceKey = "5"

// ResolvedPrice is the authoritative result of a live price lookup: the
// Stripe price identifier plus the amount and currency Stripe currently
// reports for it.
type ResolvedPrice struct {
	Key        PriceKey
	PriceID    string
	UnitAmount int64 // minor units (cents)
	Currency   string
}

// Customer references a Stripe customer record. PayGate never stores
// customers locally; this is a projection of the remote resource.
type Customer struct {
	ID    string
	Email string
	Name  string
}

// PaymentIntent references a Stripe payment intent. Only the client secret
// is ever returned to the storefront.
type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// Subscription references a Stripe subscription. Status is relayed verbatim
// (e.g. "trialing", "active", "incomplete"); PayGate does not branch on it.
type Subscription struct {
	ID     string
	Status string
}

// AttachOutcome is the explicit result of attaching a payment method to a
// customer. "Already attached" is a first-class success variant rather than
// an error-code string inspected at the call site.
type AttachOutcome int

const (
	// AttachOutcomeAttached means the payment method was newly attached.
	AttachOutcomeAttached AttachOutcome = iota
	// AttachOutcomeAlreadyAttached means Stripe reported the method was
	// already attached to this customer; the operation is idempotent and
	// this outcome is success.
	AttachOutcomeAlreadyAttached
)

// String returns a human-readable name for logging.
func (o AttachOutcome) String() string {
	switch o {
	case AttachOutcomeAttached:
		return "attached"
	case AttachOutcomeAlreadyAttached:
		return "already_attached"
	default:
		return "unknown"
	}
}

// CreateIntentInput carries the storefront's request to create a one-off
// charge. Name and Arch are recorded as opaque metadata for reconciliation
// and never participate in control flow.
type CreateIntentInput struct {
	Email    string
	Name     string
	Arch     string
	PriceKey PriceKey
}

// CreateSubscriptionInput carries the storefront's request to start a
// recurring subscription.
type CreateSubscriptionInput struct {
	Email           string
	PaymentMethodID string
	Name            string
	Arch            string
	PriceKey        PriceKey
}
