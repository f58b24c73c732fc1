// Package handlers contains the HTTP handler implementations for the PayGate
// API: the checkout endpoints called by the storefront and the Stripe webhook
// receiver.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paygate/internal/config"
	"paygate/internal/core"
	"paygate/internal/types"
)

// --- Service Interfaces ---
//
// Defined locally so the handler depends on the contract, not the concrete
// billing services, and tests can substitute mocks.

// IntentCreator creates one-off payment intents.
type IntentCreator interface {
	CreateIntent(ctx context.Context, in types.CreateIntentInput) (*types.PaymentIntent, error)
}

// SubscriptionCreator runs the full subscription flow.
type SubscriptionCreator interface {
	CreateSubscription(ctx context.Context, in types.CreateSubscriptionInput) (*types.Subscription, error)
}

// --- Request/Response Models ---

// createIntentRequest is the body for POST /create-payment-intent.
// The price field selects a configured tier; it never carries an amount.
type createIntentRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"required"`
	Arch  string `json:"arch"`
	Price string `json:"price"`
}

// createIntentResponse is the success body for POST /create-payment-intent.
// The shape is fixed by the storefront contract.
type createIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// createSubscriptionRequest is the body for POST /create-subscription.
type createSubscriptionRequest struct {
	PaymentMethodID string `json:"paymentMethodId" validate:"required"`
	Name            string `json:"name"`
	Email           string `json:"email" validate:"required"`
	Arch            string `json:"arch"`
	Price           string `json:"price"`
}

// createSubscriptionResponse is the success body for POST /create-subscription.
type createSubscriptionResponse struct {
	SubscriptionID string `json:"subscriptionId"`
	Status         string `json:"status"`
}

// configResponse is the success body for GET /config.
type configResponse struct {
	PublishableKey string `json:"publishableKey"`
}

// --- Handler ---

// CheckoutHandler serves the storefront-facing checkout endpoints.
type CheckoutHandler struct {
	intents       IntentCreator
	subscriptions SubscriptionCreator
	stripeCfg     config.StripeConfig
	validator     *core.Validator
	logger        *slog.Logger
}

// NewCheckoutHandler creates a CheckoutHandler with the provided dependencies.
func NewCheckoutHandler(
	intents IntentCreator,
	subscriptions SubscriptionCreator,
	stripeCfg config.StripeConfig,
	validator *core.Validator,
	logger *slog.Logger,
) *CheckoutHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutHandler{
		intents:       intents,
		subscriptions: subscriptions,
		stripeCfg:     stripeCfg,
		validator:     validator,
		logger:        logger,
	}
}

// RegisterRoutes mounts the checkout endpoints. All routes are public; the
// storefront calls them without authentication.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Get("/config", h.HandleConfig)
	r.Post("/create-payment-intent", h.HandleCreateIntent)
	r.Post("/create-subscription", h.HandleCreateSubscription)
}

// HandleConfig returns the Stripe publishable key the storefront needs to
// initialize Stripe.js. An unconfigured key is a server-side error, never an
// empty success.
func (h *CheckoutHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if h.stripeCfg.PublishableKey == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeConfigMissingSecret,
			"publishable key is not configured",
			nil,
		))
		return
	}

	core.JSON(w, r, http.StatusOK, configResponse{
		PublishableKey: h.stripeCfg.PublishableKey,
	})
}

// HandleCreateIntent creates a one-off payment intent and returns only its
// client secret.
func (h *CheckoutHandler) HandleCreateIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	intent, err := h.intents.CreateIntent(r.Context(), types.CreateIntentInput{
		Email:    req.Email,
		Name:     req.Name,
		Arch:     req.Arch,
		PriceKey: types.PriceKey(req.Price),
	})
	if err != nil {
		h.logError(r, "create payment intent failed", err)
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, createIntentResponse{
		ClientSecret: intent.ClientSecret,
	})
}

// HandleCreateSubscription runs the subscription flow and returns the
// subscription ID with Stripe's status verbatim.
func (h *CheckoutHandler) HandleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	sub, err := h.subscriptions.CreateSubscription(r.Context(), types.CreateSubscriptionInput{
		Email:           req.Email,
		PaymentMethodID: req.PaymentMethodID,
		Name:            req.Name,
		Arch:            req.Arch,
		PriceKey:        types.PriceKey(req.Price),
	})
	if err != nil {
		h.logError(r, "create subscription failed", err)
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, createSubscriptionResponse{
		SubscriptionID: sub.ID,
		Status:         sub.Status,
	})
}

// logError records the full error chain server-side; the client only ever
// sees the mapped code and message.
func (h *CheckoutHandler) logError(r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
}
