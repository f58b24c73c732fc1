package external

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"paygate/internal/types"
)

// newTestStripeClient points a StripeClient at an httptest server with
// retries disabled for deterministic behavior.
func newTestStripeClient(t *testing.T, serverURL string) *StripeClient {
	t.Helper()
	base := NewBaseClient(
		&http.Client{Timeout: 5 * time.Second},
		"test-stripe",
		RetryPolicy{
			MaxRetries: 0,
			MinWait:    1 * time.Millisecond,
			MaxWait:    10 * time.Millisecond,
		},
		"PayGate-Test/1.0",
		WithSleepFunc(noopSleep),
	)

	return NewStripeClientWithBase(base, StripeClientConfig{
		SecretKey: "sk_test_secret",
		BaseURL:   serverURL,
	})
}

func writeStripeError(w http.ResponseWriter, status int, code, declineCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"type":         "card_error",
			"code":         code,
			"decline_code": declineCode,
			"message":      message,
		},
	})
}

// ---------------------------------------------------------------------------
// GetPrice
// ---------------------------------------------------------------------------

func TestGetPrice_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/prices/price_123" {
			t.Errorf("expected path /v1/prices/price_123, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk_test_secret" {
			t.Errorf("expected Bearer sk_test_secret, got %s", auth)
		}
		if ver := r.Header.Get("Stripe-Version"); ver == "" {
			t.Error("expected Stripe-Version header to be set")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "price_123",
			"unit_amount": 500,
			"currency":    "usd",
			"active":      true,
		})
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)
	price, err := client.GetPrice(context.Background(), "price_123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price.PriceID != "price_123" {
		t.Errorf("expected price_123, got %s", price.PriceID)
	}
	if price.UnitAmount != 500 {
		t.Errorf("expected amount 500, got %d", price.UnitAmount)
	}
	if price.Currency != "usd" {
		t.Errorf("expected usd, got %s", price.Currency)
	}
}

func TestGetPrice_NullUnitAmount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"price_metered","unit_amount":null,"currency":"usd"}`))
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)
	_, err := client.GetPrice(context.Background(), "price_metered")

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != types.ErrCodeConfigInvalidPrice {
		t.Errorf("expected %s, got %s", types.ErrCodeConfigInvalidPrice, appErr.Code)
	}
}

// ---------------------------------------------------------------------------
// Customers
// ---------------------------------------------------------------------------

func TestFindCustomerByEmail_Found(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/customers" {
			t.Errorf("expected path /v1/customers, got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("email"); got != "buyer@example.com" {
			t.Errorf("expected email filter buyer@example.com, got %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "cus_42", "email": "buyer@example.com", "name": "Buyer"},
			},
			"has_more": false,
		})
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)
	cust, err := client.FindCustomerByEmail(context.Background(), "buyer@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cust == nil || cust.ID != "cus_42" {
		t.Fatalf("expected cus_42, got %+v", cust)
	}
}

func TestFindCustomerByEmail_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[],"has_more":false}`))
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)
	cust, err := client.FindCustomerByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cust != nil {
		t.Errorf("expected nil customer, got %+v", cust)
	}
}

func TestCreateCustomer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if key := r.Header.Get("Idempotency-Key"); key == "" {
			t.Error("expected Idempotency-Key header on POST")
		}
		r.ParseForm()
		if got := r.PostForm.Get("email"); got != "buyer@example.com" {
			t.Errorf("expected email buyer@example.com, got %s", got)
		}
		if got := r.PostForm.Get("name"); got != "Buyer" {
			t.Errorf("expected name Buyer, got %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id": "cus_new", "email": "buyer@example.com", "name": "Buyer",
		})
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)
	cust, err := client.CreateCustomer(context.Background(), "buyer@example.com", "Buyer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cust.ID != "cus_new" {
		t.Errorf("expected cus_new, got %s", cust.ID)
	}
}

// ---------------------------------------------------------------------------
// Payment Methods
// ---------------------------------------------------------------------------

func TestAttachPaymentMethod_Attached(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_methods/pm_1/attach" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		r.ParseForm()
		if got := r.PostForm.Get("customer"); got != "cus_42" {
			t.Errorf("expected customer cus_42, got %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pm_1"}`))
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)
	outcome, err := client.AttachPaymentMethod(context.Background(), "cus_42", "pm_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != types.AttachOutcomeAttached {
		t.Errorf("expected attached, got %s", outcome)
	}
}

func TestAttachPaymentMethod_AlreadyAttached(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeStripeError(w, http.StatusBadRequest, "resource_already_exists", "",
			"The payment method you provided has already been attached to a customer.")
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)
	outcome, err := client.AttachPaymentMethod(context.Background(), "cus_42", "pm_1")
	if err != nil {
		t.Fatalf("expected already-attached to be success, got error: %v", err)
	}
	if outcome != types.AttachOutcomeAlreadyAttached {
		t.Errorf("expected already_attached, got %s", outcome)
	}
}

func TestAttachPaymentMethod_OtherErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeStripeError(w, http.StatusBadRequest, "invalid_request_error", "", "No such payment method")
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)
	_, err := client.AttachPaymentMethod(context.Background(), "cus_42", "pm_missing")

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != types.ErrCodeUpstreamStripe {
		t.Errorf("expected %s, got %s", types.ErrCodeUpstreamStripe, appErr.Code)
	}
}

func TestSetDefaultPaymentMethod(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/customers/cus_42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		r.ParseForm()
		if got := r.PostForm.Get("invoice_settings[default_payment_method]"); got != "pm_1" {
			t.Errorf("expected pm_1, got %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cus_42"}`))
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)
	if err := client.SetDefaultPaymentMethod(context.Background(), "cus_42", "pm_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Payment Intents
// ---------------------------------------------------------------------------

func TestCreatePaymentIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		r.ParseForm()
		if got := r.PostForm.Get("amount"); got != "500" {
			t.Errorf("expected amount 500, got %s", got)
		}
		if got := r.PostForm.Get("currency"); got != "usd" {
			t.Errorf("expected usd, got %s", got)
		}
		if got := r.PostForm.Get("automatic_payment_methods[enabled]"); got != "true" {
			t.Errorf("expected automatic payment methods enabled, got %s", got)
		}
		if got := r.PostForm.Get("setup_future_usage"); got != "off_session" {
			t.Errorf("expected setup_future_usage off_session, got %s", got)
		}
		if got := r.PostForm.Get("metadata[email]"); got != "buyer@example.com" {
			t.Errorf("expected metadata email, got %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":            "pi_1",
			"client_secret": "pi_1_secret_xyz",
			"status":        "requires_payment_method",
		})
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)
	price := &types.ResolvedPrice{Key: "5", PriceID: "price_123", UnitAmount: 500, Currency: "usd"}
	intent, err := client.CreatePaymentIntent(context.Background(), price,
		map[string]string{"email": "buyer@example.com"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.ClientSecret != "pi_1_secret_xyz" {
		t.Errorf("expected client secret, got %s", intent.ClientSecret)
	}
}

func TestCreatePaymentIntent_CardDeclined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeStripeError(w, http.StatusPaymentRequired, "card_declined", "insufficient_funds", "Your card was declined.")
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)
	price := &types.ResolvedPrice{PriceID: "price_123", UnitAmount: 500, Currency: "usd"}
	_, err := client.CreatePaymentIntent(context.Background(), price, nil, false)

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != types.ErrCodePaymentDeclined {
		t.Errorf("expected %s, got %s", types.ErrCodePaymentDeclined, appErr.Code)
	}
	if appErr.Details["decline_code"] != "insufficient_funds" {
		t.Errorf("expected decline_code detail, got %v", appErr.Details)
	}
}

// ---------------------------------------------------------------------------
// Subscriptions
// ---------------------------------------------------------------------------

func TestCreateSubscription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/subscriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		r.ParseForm()
		if got := r.PostForm.Get("customer"); got != "cus_42" {
			t.Errorf("expected customer cus_42, got %s", got)
		}
		if got := r.PostForm.Get("items[0][price]"); got != "price_sub" {
			t.Errorf("expected price_sub, got %s", got)
		}
		if got := r.PostForm.Get("trial_period_days"); got != "7" {
			t.Errorf("expected trial 7, got %s", got)
		}
		if got := r.PostForm.Get("default_payment_method"); got != "pm_1" {
			t.Errorf("expected default_payment_method pm_1, got %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id": "sub_1", "status": "trialing",
		})
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)
	sub, err := client.CreateSubscription(context.Background(), "cus_42", "price_sub", "pm_1", 7,
		map[string]string{"arch": "amd64"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.ID != "sub_1" || sub.Status != "trialing" {
		t.Errorf("unexpected subscription %+v", sub)
	}
}

func TestCreateSubscription_NoTrialOmitsParam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Has("trial_period_days") {
			t.Error("expected trial_period_days to be omitted when zero")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"sub_2","status":"incomplete"}`))
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)
	if _, err := client.CreateSubscription(context.Background(), "cus_42", "price_sub", "pm_1", 0, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func TestMapStripeError_NonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("<html>nope</html>"))
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)
	_, err := client.GetPrice(context.Background(), "price_123")

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != types.ErrCodeUpstreamStripe {
		t.Errorf("expected %s, got %s", types.ErrCodeUpstreamStripe, appErr.Code)
	}
	if !strings.Contains(appErr.Message, "non-JSON") {
		t.Errorf("expected non-JSON message, got %s", appErr.Message)
	}
}
