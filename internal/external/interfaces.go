package external

import (
	"context"

	"paygate/internal/types"
)

// Processor abstracts the payment processor operations PayGate needs. The
// production implementation is StripeClient; tests substitute mocks.
type Processor interface {
	// GetPrice retrieves the live price object for the given Stripe price ID.
	// The returned amount and currency reflect what Stripe currently reports;
	// cached or client-supplied amounts are never used.
	GetPrice(ctx context.Context, priceID string) (*types.ResolvedPrice, error)

	// FindCustomerByEmail looks up an existing customer by exact email.
	// Returns (nil, nil) when no customer matches.
	FindCustomerByEmail(ctx context.Context, email string) (*types.Customer, error)

	// CreateCustomer creates a new customer record.
	CreateCustomer(ctx context.Context, email, name string) (*types.Customer, error)

	// AttachPaymentMethod attaches the payment method to the customer.
	// Attaching an already-attached method reports AttachOutcomeAlreadyAttached
	// and is not an error.
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (types.AttachOutcome, error)

	// SetDefaultPaymentMethod sets the customer's default payment method for
	// invoices. Must be called only after a successful attach.
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	// CreatePaymentIntent creates a one-off payment intent for the resolved
	// price, tagged with the given metadata.
	CreatePaymentIntent(ctx context.Context, price *types.ResolvedPrice, metadata map[string]string, setupFutureUsage bool) (*types.PaymentIntent, error)

	// CreateSubscription creates a recurring subscription for the customer on
	// the given price, billed against defaultPaymentMethod, with an optional
	// trial period in days.
	CreateSubscription(ctx context.Context, customerID, priceID, defaultPaymentMethod string, trialDays int, metadata map[string]string) (*types.Subscription, error)
}

// WebhookVerifier authenticates incoming webhook payloads.
type WebhookVerifier interface {
	// Verify checks the payload against the signature header and signing
	// secret. A nil return means the payload is authentic.
	Verify(payload []byte, header string, secret string) error
}

// Webhook event types relayed by the processor. Events outside this set are
// acknowledged but ignored.
const (
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
	EventInvoicePaid            = "invoice.paid"
	EventInvoicePaymentFailed   = "invoice.payment_failed"
	EventCustomerSubCreated     = "customer.subscription.created"
	EventCustomerSubDeleted     = "customer.subscription.deleted"
)
