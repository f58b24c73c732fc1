package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paygate/internal/core"
	"paygate/internal/external"
	"paygate/internal/types"
)

// maxWebhookBodySize caps Stripe webhook payloads (64 KB). Stripe payloads
// are small; this limit protects against abuse.
const maxWebhookBodySize = 64 * 1024

// WebhookHandler receives asynchronous events from Stripe. It is
// unauthenticated (Stripe calls it directly); security comes from verifying
// the Stripe-Signature header over the raw request bytes.
//
// Event handlers are log-only: PayGate holds no local state to mutate, so the
// webhook's job is to authenticate, record, and acknowledge. Once a payload
// verifies, the response is always 200 so Stripe does not redeliver.
type WebhookHandler struct {
	verifier external.WebhookVerifier
	secret   types.SecretString
	logger   *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler with the provided dependencies.
func NewWebhookHandler(verifier external.WebhookVerifier, secret types.SecretString, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		verifier: verifier,
		secret:   secret,
		logger:   logger,
	}
}

// RegisterRoutes mounts the webhook endpoint. The route performs no body
// decoding before verification; the handler reads the raw bytes itself.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook", h.Handle)
}

// webhookEvent is the minimal slice of a Stripe event the handler inspects.
// The full payload is logged only by ID and type, never verbatim.
type webhookEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    json.RawMessage `json:"data"`
}

// Handle processes an incoming Stripe webhook event.
//
//  1. A missing signing secret is a server configuration error, checked
//     before any verification attempt.
//  2. The raw body is read with a size cap; no middleware has parsed it.
//  3. A missing or invalid Stripe-Signature header is rejected with 400.
//  4. After verification, the event is dispatched by type and the response
//     is always 200 {"received":true}.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if !h.secret.IsSet() {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeConfigMissingSecret,
			"webhook signing secret is not configured",
			nil,
		))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WarnContext(r.Context(), "failed to read webhook body",
			slog.Any("error", err),
		)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeSignatureInvalid,
			"failed to read webhook payload",
			err,
		))
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeSignatureMissing,
			"missing Stripe-Signature header",
			nil,
		))
		return
	}

	if err := h.verifier.Verify(payload, sigHeader, h.secret.Unmask()); err != nil {
		h.logger.WarnContext(r.Context(), "webhook signature verification failed",
			slog.Any("error", err),
		)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeSignatureInvalid,
			"webhook signature verification failed",
			err,
		))
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		// Authenticated but unparseable. Acknowledge so Stripe does not
		// redeliver a payload we will never be able to process.
		h.logger.ErrorContext(r.Context(), "failed to parse verified webhook payload",
			slog.Any("error", err),
		)
		core.JSON(w, r, http.StatusOK, map[string]bool{"received": true})
		return
	}

	h.dispatch(r, &event)

	core.JSON(w, r, http.StatusOK, map[string]bool{"received": true})
}

// dispatch routes the verified event to its log-only handler.
func (h *WebhookHandler) dispatch(r *http.Request, event *webhookEvent) {
	ctx := r.Context()
	attrs := []any{
		slog.String("event_id", event.ID),
		slog.String("event_type", event.Type),
		slog.Int64("created", event.Created),
	}

	switch event.Type {
	case external.EventPaymentIntentSucceeded:
		h.logger.InfoContext(ctx, "payment succeeded", attrs...)
	case external.EventPaymentIntentFailed:
		h.logger.WarnContext(ctx, "payment failed", attrs...)
	case external.EventInvoicePaid:
		h.logger.InfoContext(ctx, "invoice paid", attrs...)
	case external.EventInvoicePaymentFailed:
		h.logger.WarnContext(ctx, "invoice payment failed", attrs...)
	case external.EventCustomerSubCreated:
		h.logger.InfoContext(ctx, "subscription created", attrs...)
	case external.EventCustomerSubDeleted:
		h.logger.InfoContext(ctx, "subscription deleted", attrs...)
	default:
		h.logger.InfoContext(ctx, "unhandled webhook event", attrs...)
	}
}
