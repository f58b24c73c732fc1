package billing

import (
	"context"
	"log/slog"

	"paygate/internal/external"
	"paygate/internal/types"
)

// SubscriptionService starts recurring subscriptions: it upserts the Stripe
// customer by email, attaches the supplied payment method, and creates the
// subscription on the configured subscription price.
type SubscriptionService struct {
	processor external.Processor
	priceID   string
	trialDays int
	logger    *slog.Logger
}

// NewSubscriptionService creates a SubscriptionService. priceID is the
// Stripe price backing all subscriptions; an empty value surfaces as a
// configuration error at request time, not at startup.
func NewSubscriptionService(
	processor external.Processor,
	priceID string,
	trialDays int,
	logger *slog.Logger,
) *SubscriptionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionService{
		processor: processor,
		priceID:   priceID,
		trialDays: trialDays,
		logger:    logger,
	}
}

// CreateSubscription runs the full subscription flow:
//
//  1. Validate input; no Stripe call is made on validation failure.
//  2. Find the customer by email, or create one.
//  3. Attach the payment method. "Already attached to this customer" is an
//     idempotent success, not an error.
//  4. Strictly after a successful attach, set the method as the customer's
//     invoice default.
//  5. Create the subscription with the configured trial period.
//
// The returned status is Stripe's verbatim (trialing, active, incomplete,
// ...); callers relay it without branching.
func (s *SubscriptionService) CreateSubscription(ctx context.Context, in types.CreateSubscriptionInput) (*types.Subscription, error) {
	if in.Email == "" {
		return nil, types.NewAppError(
			types.ErrCodeValidationMissingEmail,
			"email is required",
			nil,
		)
	}
	if in.PaymentMethodID == "" {
		return nil, types.NewAppError(
			types.ErrCodeValidationMissingPaymentMethod,
			"paymentMethodId is required",
			nil,
		)
	}
	if s.priceID == "" {
		return nil, types.NewAppError(
			types.ErrCodeConfigPriceUnset,
			"no subscription price configured",
			nil,
		)
	}

	customer, err := s.processor.FindCustomerByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		customer, err = s.processor.CreateCustomer(ctx, in.Email, in.Name)
		if err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "customer created",
			slog.String("customer_id", customer.ID),
		)
	}

	outcome, err := s.processor.AttachPaymentMethod(ctx, customer.ID, in.PaymentMethodID)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "payment method attach",
		slog.String("customer_id", customer.ID),
		slog.String("outcome", outcome.String()),
	)

	if err := s.processor.SetDefaultPaymentMethod(ctx, customer.ID, in.PaymentMethodID); err != nil {
		return nil, err
	}

	key := in.PriceKey
	if key == "" {
		key = types.DefaultPriceKey
	}
	metadata := map[string]string{
		"selected_price": string(key),
	}
	if in.Arch != "" {
		metadata["arch"] = in.Arch
	}

	sub, err := s.processor.CreateSubscription(ctx, customer.ID, s.priceID, in.PaymentMethodID, s.trialDays, metadata)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "subscription created",
		slog.String("subscription_id", sub.ID),
		slog.String("customer_id", customer.ID),
		slog.String("status", sub.Status),
	)

	return sub, nil
}
