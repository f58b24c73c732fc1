package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"paygate/internal/types"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v82"
)

// stripeAPIBase is the default Stripe API base URL.
// Overridable in tests via StripeClientConfig.BaseURL.
const stripeAPIBase = "https://api.stripe.com"

// StripeClientConfig holds the configuration for creating a StripeClient.
type StripeClientConfig struct {
	SecretKey string
	BaseURL   string // Override for testing; defaults to stripeAPIBase
	Logger    *slog.Logger
}

// StripeClient implements Processor by making direct HTTP calls to the
// Stripe REST API through BaseClient. This approach routes all requests
// through the resilience infrastructure (circuit breaker, retries, error
// mapping) and makes testing with httptest straightforward.
type StripeClient struct {
	base      *BaseClient
	secretKey string
	baseURL   string
	logger    *slog.Logger
}

// NewStripeClient creates a new StripeClient. The httpClient timeout bounds
// each outbound call and should come from StripeConfig.Timeout.
func NewStripeClient(httpClient *http.Client, cfg StripeClientConfig) *StripeClient {
	base := NewBaseClient(
		httpClient,
		"stripe",
		DefaultRetryPolicy(),
		"PayGate/1.0",
	)

	return newStripeClient(base, cfg)
}

// NewStripeClientWithBase creates a StripeClient with a pre-configured
// BaseClient. This is useful for testing when you want to control the
// BaseClient configuration.
func NewStripeClientWithBase(base *BaseClient, cfg StripeClientConfig) *StripeClient {
	return newStripeClient(base, cfg)
}

func newStripeClient(base *BaseClient, cfg StripeClientConfig) *StripeClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = stripeAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &StripeClient{
		base:      base,
		secretKey: cfg.SecretKey,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    logger,
	}
}

// ---------------------------------------------------------------------------
// Processor Implementation
// ---------------------------------------------------------------------------

// GetPrice retrieves the price object from Stripe. A price with a null
// unit_amount (metered or tiered pricing) cannot back a plain charge and is
// reported as a configuration error.
func (s *StripeClient) GetPrice(ctx context.Context, priceID string) (*types.ResolvedPrice, error) {
	resp, err := s.doGet(ctx, "/v1/prices/"+url.PathEscape(priceID), nil)
	if err != nil {
		return nil, s.wrapStripeError("GetPrice", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.handleErrorResponse(resp, "GetPrice")
	}

	var price stripePrice
	if err := json.NewDecoder(resp.Body).Decode(&price); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Stripe price response",
			err,
		)
	}

	if price.UnitAmount == nil {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeConfigInvalidPrice,
			"Stripe price has no fixed unit amount",
			nil,
			map[string]any{"price_id": priceID},
		)
	}

	return &types.ResolvedPrice{
		PriceID:    price.ID,
		UnitAmount: *price.UnitAmount,
		Currency:   price.Currency,
	}, nil
}

// FindCustomerByEmail looks up a customer by exact email match. Stripe's
// list endpoint with an email filter returns exact matches only. Returns
// (nil, nil) when no customer exists for the email.
func (s *StripeClient) FindCustomerByEmail(ctx context.Context, email string) (*types.Customer, error) {
	params := url.Values{}
	params.Set("email", email)
	params.Set("limit", "1")

	resp, err := s.doGet(ctx, "/v1/customers", params)
	if err != nil {
		return nil, s.wrapStripeError("FindCustomerByEmail", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.handleErrorResponse(resp, "FindCustomerByEmail")
	}

	var list stripeCustomerList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Stripe customer list response",
			err,
		)
	}

	if len(list.Data) == 0 {
		return nil, nil
	}

	c := list.Data[0]
	return &types.Customer{ID: c.ID, Email: c.Email, Name: c.Name}, nil
}

// CreateCustomer creates a new Stripe customer.
func (s *StripeClient) CreateCustomer(ctx context.Context, email, name string) (*types.Customer, error) {
	params := url.Values{}
	params.Set("email", email)
	if name != "" {
		params.Set("name", name)
	}

	resp, err := s.doPost(ctx, "/v1/customers", params)
	if err != nil {
		return nil, s.wrapStripeError("CreateCustomer", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.handleErrorResponse(resp, "CreateCustomer")
	}

	var c stripeCustomer
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Stripe customer creation response",
			err,
		)
	}

	return &types.Customer{ID: c.ID, Email: c.Email, Name: c.Name}, nil
}

// AttachPaymentMethod attaches the payment method to the customer. Stripe
// rejects a second attach of the same method with an error; that case is
// mapped to AttachOutcomeAlreadyAttached and treated as success so that
// storefront retries are idempotent.
func (s *StripeClient) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (types.AttachOutcome, error) {
	params := url.Values{}
	params.Set("customer", customerID)

	path := "/v1/payment_methods/" + url.PathEscape(paymentMethodID) + "/attach"
	resp, err := s.doPost(ctx, path, params)
	if err != nil {
		return 0, s.wrapStripeError("AttachPaymentMethod", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return types.AttachOutcomeAttached, nil
	}

	appErr := s.handleErrorResponse(resp, "AttachPaymentMethod")
	if isAlreadyAttachedError(appErr) {
		return types.AttachOutcomeAlreadyAttached, nil
	}
	return 0, appErr
}

// SetDefaultPaymentMethod sets the customer's default payment method for
// invoice settlement.
func (s *StripeClient) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := url.Values{}
	params.Set("invoice_settings[default_payment_method]", paymentMethodID)

	resp, err := s.doPost(ctx, "/v1/customers/"+url.PathEscape(customerID), params)
	if err != nil {
		return s.wrapStripeError("SetDefaultPaymentMethod", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return s.handleErrorResponse(resp, "SetDefaultPaymentMethod")
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}

// CreatePaymentIntent creates a one-off payment intent for the resolved
// price. The amount and currency come from the live price lookup, never from
// client input.
func (s *StripeClient) CreatePaymentIntent(
	ctx context.Context,
	price *types.ResolvedPrice,
	metadata map[string]string,
	setupFutureUsage bool,
) (*types.PaymentIntent, error) {
	params := url.Values{}
	params.Set("amount", strconv.FormatInt(price.UnitAmount, 10))
	params.Set("currency", price.Currency)
	params.Set("automatic_payment_methods[enabled]", "true")
	if setupFutureUsage {
		params.Set("setup_future_usage", "off_session")
	}
	for k, v := range metadata {
		params.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	resp, err := s.doPost(ctx, "/v1/payment_intents", params)
	if err != nil {
		return nil, s.wrapStripeError("CreatePaymentIntent", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.handleErrorResponse(resp, "CreatePaymentIntent")
	}

	var pi stripePaymentIntent
	if err := json.NewDecoder(resp.Body).Decode(&pi); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Stripe payment intent response",
			err,
		)
	}

	return &types.PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// CreateSubscription creates a subscription on the given price. A positive
// trialDays delays the first charge; zero starts billing immediately. The
// default incomplete-payment behavior is kept so a failed first charge
// surfaces through webhooks rather than blocking the API call.
func (s *StripeClient) CreateSubscription(
	ctx context.Context,
	customerID, priceID, defaultPaymentMethod string,
	trialDays int,
	metadata map[string]string,
) (*types.Subscription, error) {
	params := url.Values{}
	params.Set("customer", customerID)
	params.Set("items[0][price]", priceID)
	if defaultPaymentMethod != "" {
		params.Set("default_payment_method", defaultPaymentMethod)
	}
	if trialDays > 0 {
		params.Set("trial_period_days", strconv.Itoa(trialDays))
	}
	for k, v := range metadata {
		params.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	resp, err := s.doPost(ctx, "/v1/subscriptions", params)
	if err != nil {
		return nil, s.wrapStripeError("CreateSubscription", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.handleErrorResponse(resp, "CreateSubscription")
	}

	var sub stripeSubscription
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Stripe subscription response",
			err,
		)
	}

	return &types.Subscription{ID: sub.ID, Status: sub.Status}, nil
}

// ---------------------------------------------------------------------------
// HTTP Helpers
// ---------------------------------------------------------------------------

// doGet performs an authenticated GET request to the Stripe API.
func (s *StripeClient) doGet(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := s.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	s.setAuthHeaders(req)

	return s.base.Do(req)
}

// doPost performs an authenticated POST request to the Stripe API with a
// form-encoded body. Every POST carries a fresh Idempotency-Key so that
// BaseClient retries cannot double-create resources.
func (s *StripeClient) doPost(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := s.baseURL + path
	body := params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", uuid.NewString())
	s.setAuthHeaders(req)

	return s.base.Do(req)
}

// setAuthHeaders sets the Stripe API authentication and version headers.
func (s *StripeClient) setAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Stripe-Version", stripe.APIVersion)
}

// ---------------------------------------------------------------------------
// Error Handling
// ---------------------------------------------------------------------------

// stripeErrorResponse represents the JSON error body returned by the Stripe API.
type stripeErrorResponse struct {
	Error stripeErrorBody `json:"error"`
}

type stripeErrorBody struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	DeclineCode string `json:"decline_code"`
	Message     string `json:"message"`
	Param       string `json:"param"`
}

// handleErrorResponse reads a Stripe error response and maps it to a types.AppError.
func (s *StripeClient) handleErrorResponse(resp *http.Response, operation string) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamStripe,
			fmt.Sprintf("%s: Stripe returned status %d and response body was unreadable", operation, resp.StatusCode),
			readErr,
		)
	}

	var stripeErr stripeErrorResponse
	if jsonErr := json.Unmarshal(body, &stripeErr); jsonErr != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamStripe,
			fmt.Sprintf("%s: Stripe returned status %d with non-JSON body", operation, resp.StatusCode),
			jsonErr,
		)
	}

	return s.mapStripeError(operation, resp.StatusCode, &stripeErr.Error)
}

// mapStripeError translates a Stripe error into a types.AppError.
func (s *StripeClient) mapStripeError(operation string, statusCode int, stripeErr *stripeErrorBody) error {
	if stripeErr.Code == "card_declined" || stripeErr.DeclineCode != "" {
		return types.NewAppErrorWithDetails(
			types.ErrCodePaymentDeclined,
			fmt.Sprintf("%s: payment declined: %s", operation, stripeErr.Message),
			nil,
			map[string]any{
				"decline_code": stripeErr.DeclineCode,
				"stripe_code":  stripeErr.Code,
			},
		)
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return types.NewAppError(
			types.ErrCodeUpstreamRateLimited,
			fmt.Sprintf("%s: Stripe rate limit exceeded", operation),
			nil,
		)
	case statusCode >= 500:
		return types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("%s: Stripe server error: %s", operation, stripeErr.Message),
			nil,
		)
	default:
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamStripe,
			fmt.Sprintf("%s: Stripe error (%d): %s", operation, statusCode, stripeErr.Message),
			nil,
			map[string]any{
				"stripe_code": stripeErr.Code,
				"stripe_type": stripeErr.Type,
			},
		)
	}
}

// isAlreadyAttachedError reports whether the mapped Stripe error indicates
// the payment method is already attached to the customer. Stripe signals
// this either with the resource_already_exists code or with a message
// stating the method is already attached.
func isAlreadyAttachedError(err error) bool {
	appErr, ok := err.(*types.AppError)
	if !ok || appErr.Code != types.ErrCodeUpstreamStripe {
		return false
	}
	if code, _ := appErr.Details["stripe_code"].(string); code == "resource_already_exists" {
		return true
	}
	return strings.Contains(strings.ToLower(appErr.Message), "already been attached")
}

// wrapStripeError wraps a BaseClient transport error with context.
func (s *StripeClient) wrapStripeError(operation string, err error) error {
	// If it's already an AppError from BaseClient (circuit breaker, retries
	// exhausted, timeout), return it as-is since it already has the right
	// error code.
	if _, ok := err.(*types.AppError); ok {
		return err
	}
	return types.NewAppError(
		types.ErrCodeUpstreamStripe,
		fmt.Sprintf("%s: Stripe request failed: %v", operation, err),
		err,
	)
}

// ---------------------------------------------------------------------------
// Stripe Response Types (for JSON deserialization)
// ---------------------------------------------------------------------------

type stripeCustomer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type stripeCustomerList struct {
	Data    []stripeCustomer `json:"data"`
	HasMore bool             `json:"has_more"`
}

// stripePrice uses a pointer for unit_amount so a JSON null (metered or
// tiered pricing) is distinguishable from a zero amount.
type stripePrice struct {
	ID         string `json:"id"`
	UnitAmount *int64 `json:"unit_amount"`
	Currency   string `json:"currency"`
	Active     bool   `json:"active"`
}

type stripePaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type stripeSubscription struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
