package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imrishuroy/fishly-storefront/internal/bg"
	"github.com/imrishuroy/fishly-storefront/internal/catalog"
	"github.com/imrishuroy/fishly-storefront/internal/checkout"
	"github.com/imrishuroy/fishly-storefront/internal/middleware"
	"github.com/imrishuroy/fishly-storefront/internal/orders"
	"github.com/imrishuroy/fishly-storefront/internal/session"
	"github.com/imrishuroy/fishly-storefront/internal/storefront"
	"github.com/imrishuroy/fishly-storefront/internal/validation"
)

const testCatalog = `
products:
  - id: "1"
    name: CATLA
    price: "10.00"
    quantity: 500g
  - id: "2"
    name: MURREL
    price: "8.00"
    quantity: 300g
  - id: "3"
    name: ROHU
    price: "15.00"
    quantity: 1kg
`

// tokenVerifier accepts only the "good" token.
type tokenVerifier struct {
	mu    sync.Mutex
	calls int
	gate  chan struct{} // when set, each call waits on it
}

func (v *tokenVerifier) Verify(ctx context.Context, c session.Credential) error {
	v.mu.Lock()
	v.calls++
	gate := v.gate
	v.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if c.Token != "good" {
		return session.ErrRejected
	}
	return nil
}

// orderBook is an in-memory submitter and order reader.
type orderBook struct {
	mu       sync.Mutex
	byKey    map[string]*orders.Receipt
	byID     map[string]*orders.Order
	sequence int
}

func newOrderBook() *orderBook {
	return &orderBook{byKey: map[string]*orders.Receipt{}, byID: map[string]*orders.Order{}}
}

func (b *orderBook) Submit(ctx context.Context, key, subjectID string, d checkout.OrderDraft) (*orders.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.byKey[key]; ok {
		replay := *r
		replay.Replayed = true
		return &replay, nil
	}
	if len(d.Items) == 0 {
		return nil, orders.ErrEmptyOrder
	}
	b.sequence++
	id := "order-" + string(rune('0'+b.sequence))
	o := orders.NewOrder(id, subjectID, key, d, time.Now())
	b.byID[id] = &o
	r := &orders.Receipt{OrderID: id, Status: o.Status, Total: o.Total, PaymentMethod: o.PaymentMethod}
	b.byKey[key] = r
	return r, nil
}

func (b *orderBook) Get(ctx context.Context, orderID string) (*orders.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.byID[orderID], nil
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	book   *orderBook
}

func newTestServer(t *testing.T, verifier session.Verifier, runner bg.Runner) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)

	book := newOrderBook()
	registry := storefront.NewRegistry(storefront.Config{
		Verifier:  verifier,
		Submitter: book,
		Runner:    runner,
		Logger:    zap.NewNop(),
	})

	r := gin.New()
	r.Use(middleware.BrowsingSession(middleware.NewSessionStore("0123456789abcdef0123456789abcdef", time.Hour, false), zap.NewNop()))
	RegisterRoutes(r, HandlerConfig{
		Registry:  registry,
		Catalog:   cat,
		Orders:    book,
		Validator: validation.New(),
		Logger:    zap.NewNop(),
	})
	return &testServer{t: t, router: r, book: book}
}

// shopper is one browser: it keeps its session cookie between requests.
type shopper struct {
	srv    *testServer
	cookie *http.Cookie
}

func (s *testServer) shopper() *shopper { return &shopper{srv: s} }

func (b *shopper) do(method, path, body string, headers ...string) (*httptest.ResponseRecorder, map[string]interface{}) {
	b.srv.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}

	w := httptest.NewRecorder()
	b.srv.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionName {
			b.cookie = c
		}
	}

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func (b *shopper) signIn(token string) {
	w, _ := b.do(http.MethodPost, "/session", `{"subject_id":"u-1","token":"`+token+`"}`)
	require.Equal(b.srv.t, http.StatusNoContent, w.Code)
}

func TestCart_AddIncrementDecrementRemove(t *testing.T) {
	srv := newTestServer(t, &tokenVerifier{}, bg.Sync{})
	b := srv.shopper()

	w, body := b.do(http.MethodPost, "/cart/items", `{"product_id":"1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	b.do(http.MethodPost, "/cart/items", `{"product_id":"1"}`)
	b.do(http.MethodPost, "/cart/items", `{"product_id":"2"}`)

	w, body = b.do(http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "28.00", body["total"])
	assert.EqualValues(t, 3, body["total_count"])
	assert.EqualValues(t, 3, body["badge"])
	assert.Len(t, body["lines"], 2)

	w, body = b.do(http.MethodPost, "/cart/items/1/decrement", "")
	require.Equal(t, http.StatusOK, w.Code)
	w, body = b.do(http.MethodPost, "/cart/items/1/decrement", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["total_count"], "decrement floors at 1")

	w, body = b.do(http.MethodPost, "/cart/items/2/increment", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "26.00", body["total"])

	w, _ = b.do(http.MethodPost, "/cart/items/9/increment", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = b.do(http.MethodDelete, "/cart/items/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["lines"], 1)
}

func TestCart_UnknownProductAndBadBody(t *testing.T) {
	srv := newTestServer(t, &tokenVerifier{}, bg.Sync{})
	b := srv.shopper()

	w, body := b.do(http.MethodPost, "/cart/items", `{"product_id":"42"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unknown_product", body["error"])

	w, body = b.do(http.MethodPost, "/cart/items", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_failed", body["error"])
}

func TestCart_OnePerBrowsingSession(t *testing.T) {
	srv := newTestServer(t, &tokenVerifier{}, bg.Sync{})
	alice, bob := srv.shopper(), srv.shopper()

	alice.do(http.MethodPost, "/cart/items", `{"product_id":"1"}`)

	_, body := bob.do(http.MethodGet, "/cart", "")
	assert.Empty(t, body["lines"])
	_, body = alice.do(http.MethodGet, "/cart", "")
	assert.Len(t, body["lines"], 1)
}

func TestProceed_WithoutCredentialGoesToLogin(t *testing.T) {
	v := &tokenVerifier{}
	srv := newTestServer(t, v, bg.Sync{})
	b := srv.shopper()

	w, body := b.do(http.MethodPost, "/checkout/proceed", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "login", body["route"])
	assert.Zero(t, v.calls)
}

func TestProceed_RejectedTokenClearsCredentialKeepsCart(t *testing.T) {
	v := &tokenVerifier{}
	srv := newTestServer(t, v, bg.Sync{})
	b := srv.shopper()
	b.do(http.MethodPost, "/cart/items", `{"product_id":"3"}`)
	b.signIn("expired")

	w, body := b.do(http.MethodPost, "/checkout/proceed", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "login", body["route"])
	assert.Equal(t, 1, v.calls)

	// the credential is gone: the next attempt does not reach the remote authority
	b.do(http.MethodPost, "/checkout/proceed", "")
	assert.Equal(t, 1, v.calls)

	_, body = b.do(http.MethodGet, "/cart", "")
	assert.Equal(t, "15.00", body["total"])

	w, _ = b.do(http.MethodGet, "/checkout", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProceed_SecondClickWhileVerifyingConflicts(t *testing.T) {
	v := &tokenVerifier{gate: make(chan struct{})}
	srv := newTestServer(t, v, bg.Async{})
	b := srv.shopper()
	b.signIn("good")

	first := make(chan int, 1)
	go func() {
		w, _ := b.do(http.MethodPost, "/checkout/proceed", "")
		first <- w.Code
	}()
	require.Eventually(t, func() bool {
		v.mu.Lock()
		defer v.mu.Unlock()
		return v.calls == 1
	}, time.Second, 5*time.Millisecond)

	w, body := b.do(http.MethodPost, "/checkout/proceed", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "verification_in_flight", body["error"])

	close(v.gate)
	select {
	case code := <-first:
		assert.Equal(t, http.StatusOK, code)
	case <-time.After(2 * time.Second):
		t.Fatal("first proceed did not complete")
	}
}

func TestCheckout_FullFlow(t *testing.T) {
	srv := newTestServer(t, &tokenVerifier{}, bg.Sync{})
	b := srv.shopper()
	b.do(http.MethodPost, "/cart/items", `{"product_id":"1"}`)
	b.do(http.MethodPost, "/cart/items", `{"product_id":"1"}`)
	b.do(http.MethodPost, "/cart/items", `{"product_id":"3"}`)
	b.signIn("good")

	w, body := b.do(http.MethodPost, "/checkout/proceed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "checkout", body["route"])
	co := body["checkout"].(map[string]interface{})
	assert.Equal(t, false, co["ready"])
	assert.Equal(t, true, co["show_address_form"])
	assert.Equal(t, "Place Order", co["submit_label"])

	w, _ = b.do(http.MethodPost, "/checkout/submit", "", "Idempotency-Key", "key-1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, body = b.do(http.MethodPut, "/checkout/address",
		`{"street":"12 Bay Rd","area":"Harbor","city":"Porttown","pincode":"500001","landmark":""}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ready"])
	draft := body["draft"].(map[string]interface{})
	assert.Equal(t, "12 Bay Rd Harbor Porttown 500001", draft["formatted_address"])
	assert.Equal(t, "CATLA x 2, ROHU x 1", draft["products_summary"])

	w, body = b.do(http.MethodPut, "/checkout/service", `{"service":"pre_booking","date":"2024-06-01"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["ready"])
	assert.NotEmpty(t, body["missing"])

	w, body = b.do(http.MethodPut, "/checkout/service", `{"service":"pre_booking","date":"2024-06-01","time":"09:00"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ready"])
	assert.Equal(t, "Pre-booking (2024-06-01 09:00)", body["draft"].(map[string]interface{})["cutting_method"])

	w, body = b.do(http.MethodPut, "/checkout/payment", `{"method":"pay_online"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Proceed to Pay", body["submit_label"])

	w, _ = b.do(http.MethodPost, "/checkout/submit", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = b.do(http.MethodPost, "/checkout/submit", "", "Idempotency-Key", "key-1")
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := body["order_id"].(string)
	assert.Equal(t, "/orders/"+orderID, w.Header().Get("Location"))
	assert.Equal(t, "35.00", body["total"])

	// double click on the same key
	w, body = b.do(http.MethodPost, "/checkout/submit", "", "Idempotency-Key", "key-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, orderID, body["order_id"])
	assert.Equal(t, true, body["replayed"])

	_, body = b.do(http.MethodGet, "/cart", "")
	assert.Empty(t, body["lines"])
	assert.EqualValues(t, 0, body["badge"])

	w, body = b.do(http.MethodGet, "/orders/"+orderID, "")
	require.Equal(t, http.StatusOK, w.Code)
	tracking := body["tracking"].([]interface{})
	require.Len(t, tracking, 4)
	assert.Equal(t, true, tracking[0].(map[string]interface{})["reached"])
	assert.Equal(t, false, tracking[1].(map[string]interface{})["reached"])

	// someone else's browser cannot read it
	other := srv.shopper()
	w, _ = other.do(http.MethodGet, "/orders/"+orderID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckout_RequiresAuthorizedGate(t *testing.T) {
	srv := newTestServer(t, &tokenVerifier{}, bg.Sync{})
	b := srv.shopper()
	b.signIn("good")

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/checkout", ""},
		{http.MethodPut, "/checkout/address", `{"street":"x"}`},
		{http.MethodPut, "/checkout/payment", `{"method":"pay_online"}`},
		{http.MethodPost, "/checkout/submit", ""},
	} {
		w, body := b.do(tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusForbidden, w.Code, tc.path)
		assert.Equal(t, "cart", body["route"], tc.path)
	}
}

func TestCheckout_LeaveAndUnknownOptions(t *testing.T) {
	srv := newTestServer(t, &tokenVerifier{}, bg.Sync{})
	b := srv.shopper()
	b.signIn("good")
	w, _ := b.do(http.MethodPost, "/checkout/proceed", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = b.do(http.MethodPut, "/checkout/service", `{"service":"deep_fry"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = b.do(http.MethodPut, "/checkout/payment", `{"method":"barter"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = b.do(http.MethodDelete, "/checkout", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = b.do(http.MethodGet, "/checkout", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogout(t *testing.T) {
	v := &tokenVerifier{}
	srv := newTestServer(t, v, bg.Sync{})
	b := srv.shopper()
	b.signIn("good")

	w, _ := b.do(http.MethodDelete, "/session", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = b.do(http.MethodPost, "/checkout/proceed", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, v.calls)
}

func TestListProducts(t *testing.T) {
	srv := newTestServer(t, &tokenVerifier{}, bg.Sync{})

	w, body := srv.shopper().do(http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["products"], 3)
}
