package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-checkout/internal/domain/checkout"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, AccessToken: "token-1"})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestCreateCart(t *testing.T) {
	var gotToken string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/carts.json", r.URL.Path)
		gotToken = r.Header.Get("X-Access-Token")

		var req cartRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Cart.Lines, 1)
		assert.Equal(t, "gid://platform/ProductVariant/111", req.Cart.Lines[0].MerchandiseID)

		_ = json.NewEncoder(w).Encode(cartResponse{Cart: cartWire{
			ID:            "cart-1",
			SubtotalPrice: "45.00",
			Currency:      "EUR",
		}})
	}))

	cart, err := client.CreateCart(context.Background(), []checkout.CartLine{
		{MerchandiseID: "gid://platform/ProductVariant/111", Quantity: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, "token-1", gotToken)
	assert.Equal(t, "cart-1", cart.ID)
	assert.True(t, decimal.RequireFromString("45.00").Equal(cart.Subtotal))
	assert.Equal(t, "EUR", cart.Currency)
}

func TestCreateCart_UserError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(cartResponse{Cart: cartWire{
			UserErrors: []userError{{Field: "lines", Message: "Widget is sold out"}},
		}})
	}))

	_, err := client.CreateCart(context.Background(), []checkout.CartLine{{MerchandiseID: "1", Quantity: 1}})

	var rej *checkout.GatewayRejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "Widget is sold out", rej.Message)
}

func TestCreateDraftOrder_SendsIdempotencyKey(t *testing.T) {
	var gotKey string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		_ = json.NewEncoder(w).Encode(draftOrderResponse{DraftOrder: draftOrderWire{
			ID:            101,
			SubtotalPrice: "45.00",
			TotalPrice:    "50.99",
			Currency:      "EUR",
			InvoiceURL:    "https://shop.example/invoices/101",
			LineItems:     []lineItemWire{{VariantID: 111, Quantity: 2}},
		}})
	}))

	draft, err := client.CreateDraftOrder(context.Background(), checkout.DraftOrderInput{
		Lines:          []checkout.DraftOrderLine{{VariantID: 111, Quantity: 2}},
		Shipping:       checkout.ShippingLine{Title: "Standard Shipping", Price: decimal.RequireFromString("5.99")},
		Currency:       "EUR",
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "key-1", gotKey)
	assert.Equal(t, "101", draft.ID)
	assert.True(t, decimal.RequireFromString("50.99").Equal(draft.Total))
	assert.Equal(t, []int64{111}, draft.VariantIDs)
	assert.Empty(t, draft.OrderID)
}

func TestGetDraftOrder_NotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(errorResponse{Errors: "Not Found"})
	}))

	_, err := client.GetDraftOrder(context.Background(), "999")
	require.ErrorIs(t, err, checkout.ErrOrderNotFound)
}

func TestCompleteDraftOrder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/draft_orders/101/complete.json", r.URL.Path)

		var req completeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "paypal", req.Payment.Gateway)
		assert.Equal(t, "PP-1", req.Payment.TransactionID)

		_ = json.NewEncoder(w).Encode(draftOrderResponse{DraftOrder: draftOrderWire{
			ID:            101,
			SubtotalPrice: "45.00",
			TotalPrice:    "50.99",
			Currency:      "EUR",
			OrderID:       9001,
			Status:        "completed",
		}})
	}))

	ref, err := client.CompleteDraftOrder(context.Background(), "101", "paypal", "PP-1", "paid")
	require.NoError(t, err)

	assert.Equal(t, "9001", ref.OrderID)
	assert.Equal(t, "completed", ref.Status)
	assert.True(t, decimal.RequireFromString("50.99").Equal(ref.Total))
}

func TestCompleteDraftOrder_AlreadyCompleted(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(errorResponse{Errors: "draft order has already been completed"})
	}))

	_, err := client.CompleteDraftOrder(context.Background(), "101", "paypal", "PP-1", "paid")
	require.ErrorIs(t, err, checkout.ErrAlreadyCompleted)
}

func TestCompleteDraftOrder_Conflict(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	_, err := client.CompleteDraftOrder(context.Background(), "101", "manual", "t-1", "paid")
	require.ErrorIs(t, err, checkout.ErrAlreadyCompleted)
}

func TestGetOrder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders/9001.json", r.URL.Path)
		_ = json.NewEncoder(w).Encode(orderResponse{Order: orderWire{
			ID:              9001,
			Name:            "#1001",
			FinancialStatus: "paid",
			TotalPrice:      "50.99",
			Currency:        "EUR",
		}})
	}))

	ref, err := client.GetOrder(context.Background(), "9001")
	require.NoError(t, err)

	assert.Equal(t, "9001", ref.OrderID)
	assert.Equal(t, "#1001", ref.OrderNumber)
	assert.Equal(t, "paid", ref.Status)
}

func TestFindCustomerByEmail(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "email:ada@example.com", r.URL.Query().Get("query"))
		_ = json.NewEncoder(w).Encode(customerSearchResponse{Customers: []customerWire{
			{ID: 7, Email: "ada@example.com"},
		}})
	}))

	cust, err := client.FindCustomerByEmail(context.Background(), "Ada@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "7", cust.ID)
}

func TestFindCustomerByEmail_NotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(customerSearchResponse{})
	}))

	_, err := client.FindCustomerByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, checkout.ErrCustomerNotFound)
}

func TestServerError_TranslatedMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(errorResponse{Errors: "variant 111 is invalid"})
	}))

	_, err := client.CreateCart(context.Background(), []checkout.CartLine{{MerchandiseID: "111", Quantity: 1}})

	var rej *checkout.GatewayRejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "One of the items in your cart could not be found.", rej.Message)
	assert.Contains(t, rej.Cause.Error(), "variant 111 is invalid")
}
