package billing

import (
	"context"
	"log/slog"

	"paygate/internal/external"
	"paygate/internal/types"
)

// IntentService creates one-off charges. It validates input, resolves the
// requested price tier, and creates a Stripe payment intent whose amount is
// the live price amount.
type IntentService struct {
	resolver         *Resolver
	processor        external.Processor
	setupFutureUsage bool
	logger           *slog.Logger
}

// NewIntentService creates an IntentService. setupFutureUsage controls
// whether created intents permit later off-session reuse of the payment
// method.
func NewIntentService(
	resolver *Resolver,
	processor external.Processor,
	setupFutureUsage bool,
	logger *slog.Logger,
) *IntentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntentService{
		resolver:         resolver,
		processor:        processor,
		setupFutureUsage: setupFutureUsage,
		logger:           logger,
	}
}

// CreateIntent resolves the price tier and creates a payment intent.
// Validation failures are detected before any Stripe call is made.
func (s *IntentService) CreateIntent(ctx context.Context, in types.CreateIntentInput) (*types.PaymentIntent, error) {
	if in.Email == "" {
		return nil, types.NewAppError(
			types.ErrCodeValidationMissingEmail,
			"email is required",
			nil,
		)
	}

	price, err := s.resolver.Resolve(ctx, in.PriceKey)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		"email":          in.Email,
		"selected_price": string(price.Key),
	}
	if in.Name != "" {
		metadata["name"] = in.Name
	}
	if in.Arch != "" {
		metadata["arch"] = in.Arch
	}

	intent, err := s.processor.CreatePaymentIntent(ctx, price, metadata, s.setupFutureUsage)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment intent created",
		slog.String("intent_id", intent.ID),
		slog.String("price_key", string(price.Key)),
		slog.Int64("amount", price.UnitAmount),
		slog.String("currency", price.Currency),
	)

	return intent, nil
}
