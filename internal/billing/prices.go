// Package billing implements the checkout domain logic: resolving price
// tiers, creating one-off charges, and starting subscriptions. All monetary
// amounts come from live Stripe price lookups; client input only ever selects
// which configured price to use.
package billing

import (
	"context"
	"fmt"

	"paygate/internal/external"
	"paygate/internal/types"
)

// Resolver translates a client-supplied price key into an authoritative
// ResolvedPrice. The key selects an entry in the configured key-to-price-ID
// map; the amount is then read live from Stripe.
type Resolver struct {
	priceIDs  map[string]string
	processor external.Processor
}

// NewResolver creates a Resolver over the configured price ID map.
func NewResolver(priceIDs map[string]string, processor external.Processor) *Resolver {
	return &Resolver{
		priceIDs:  priceIDs,
		processor: processor,
	}
}

// Resolve maps the price key to its configured Stripe price ID and fetches
// the live price.
//
// An empty key falls back to the default tier. A present-but-unknown key is
// rejected with a validation error; it is never silently remapped to the
// default. A known key whose price ID is not configured is a server-side
// configuration error, not a client error.
func (r *Resolver) Resolve(ctx context.Context, key types.PriceKey) (*types.ResolvedPrice, error) {
	if key == "" {
		key = types.DefaultPriceKey
	}

	priceID, ok := r.priceIDs[string(key)]
	if !ok {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeValidationUnknownPriceKey,
			fmt.Sprintf("unknown price key %q", key),
			nil,
			map[string]any{"price_key": string(key)},
		)
	}
	if priceID == "" {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeConfigPriceUnset,
			fmt.Sprintf("no Stripe price configured for key %q", key),
			nil,
			map[string]any{"price_key": string(key)},
		)
	}

	price, err := r.processor.GetPrice(ctx, priceID)
	if err != nil {
		return nil, err
	}

	price.Key = key
	return price, nil
}
