package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/mobirepair-storefront/internal/app"
	"github.com/ariefcatur/mobirepair-storefront/internal/config"
	"github.com/ariefcatur/mobirepair-storefront/internal/kvstore"
)

type upstream struct {
	orders   atomic.Int32
	products atomic.Bool // fail when set
	sms      atomic.Int32
}

func adminAuthed(w http.ResponseWriter, req *http.Request) bool {
	if req.Header.Get("Authorization") != "Bearer admin-jwt" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"Not authorized"}`))
		return false
	}
	return true
}

func (u *upstream) handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, req *http.Request) {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body.Password != "Secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"token":"jwt-1","user":{"id":"u1","name":"Asha","email":"asha@example.com"}}`))
	})
	r.Post("/api/admin/login", func(w http.ResponseWriter, req *http.Request) {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body.Email != "admin@mobirepair.com" || body.Password != "admin123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"Invalid admin credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"token":"admin-jwt","user":{"id":"a1","name":"Owner","role":"admin"}}`))
	})
	r.Get("/api/admin/dashboard", func(w http.ResponseWriter, req *http.Request) {
		if adminAuthed(w, req) {
			_, _ = w.Write([]byte(`{"success":true,"stats":{"totalBookings":3,"pendingBookings":1}}`))
		}
	})
	r.Get("/api/admin/bookings", func(w http.ResponseWriter, req *http.Request) {
		if adminAuthed(w, req) {
			_, _ = w.Write([]byte(`{"success":true,"bookings":[{"_id":"bk1","status":"pending"}]}`))
		}
	})
	r.Post("/api/admin/send-sms", func(w http.ResponseWriter, req *http.Request) {
		if adminAuthed(w, req) {
			u.sms.Add(1)
			_, _ = w.Write([]byte(`{"success":true}`))
		}
	})
	r.Post("/api/repairs", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"booking":{"_id":"bk1","status":"pending"}}`))
	})
	r.Post("/api/orders", func(w http.ResponseWriter, _ *http.Request) {
		u.orders.Add(1)
		_, _ = w.Write([]byte(`{"success":true,"order":{"_id":"o1","orderNumber":"GF1"}}`))
	})
	r.Get("/api/products", func(w http.ResponseWriter, _ *http.Request) {
		if u.products.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"products":[{"_id":"p1","name":"Case","price":499}]}`))
	})
	return r
}

type harness struct {
	srv *httptest.Server
	up  *upstream
}

func setup(t *testing.T) *harness {
	t.Helper()
	up := &upstream{}
	api := httptest.NewServer(up.handler())
	t.Cleanup(api.Close)

	cfg := config.Config{APIBaseURL: api.URL + "/api", StoreBackend: "memory", ServiceName: "test"}
	a, err := app.New(context.Background(), cfg, nil, app.Deps{Backend: kvstore.NewMemory()})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	r := NewRouter(nil)
	(&StorefrontHandler{App: a}).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &harness{srv: srv, up: up}
}

func (h *harness) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res.StatusCode, out
}

func (h *harness) notices(t *testing.T) []string {
	t.Helper()
	_, body := h.do(t, http.MethodGet, "/notices", nil)
	var out []string
	for _, n := range body["notices"].([]any) {
		out = append(out, n.(map[string]any)["message"].(string))
	}
	return out
}

func TestHealthz(t *testing.T) {
	h := setup(t)
	res, err := http.Get(h.srv.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestCartRoutes(t *testing.T) {
	h := setup(t)
	product := map[string]any{"_id": "p1", "name": "Case", "price": 499}

	code, body := h.do(t, http.MethodPost, "/cart/items", map[string]any{"product": product, "quantity": 2})
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["itemCount"])
	assert.Equal(t, "998", body["subtotal"])

	code, body = h.do(t, http.MethodPut, "/cart/items/p1", map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 3, body["itemCount"])
	quote := body["quote"].(map[string]any)
	assert.Equal(t, "0", quote["shipping"])

	code, body = h.do(t, http.MethodDelete, "/cart/items/p1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["itemCount"])

	code, _ = h.do(t, http.MethodPost, "/cart/items", map[string]any{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, code)

	assert.Equal(t, []string{"Case added to cart!", "Item removed from cart"}, h.notices(t))
}

func TestSessionRoutes(t *testing.T) {
	h := setup(t)

	code, body := h.do(t, http.MethodPost, "/session/login", map[string]string{"email": "not-an-email", "password": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "Please enter a valid email address", body["error"])

	code, body = h.do(t, http.MethodPost, "/session/login", map[string]string{"email": "asha@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid credentials", body["error"])

	code, body = h.do(t, http.MethodPost, "/session/login", map[string]string{"email": "Asha@Example.com", "password": "Secret1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "authenticated", body["status"])
	assert.NotContains(t, body, "token")

	_, body = h.do(t, http.MethodGet, "/session", nil)
	assert.Equal(t, "authenticated", body["status"])

	code, body = h.do(t, http.MethodDelete, "/session", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "unauthenticated", body["status"])
}

func TestLoginRateLimited(t *testing.T) {
	h := setup(t)
	for i := 0; i < 5; i++ {
		code, _ := h.do(t, http.MethodPost, "/session/login", map[string]string{"email": "bad", "password": "x"})
		require.Equal(t, http.StatusUnprocessableEntity, code)
	}
	code, body := h.do(t, http.MethodPost, "/session/login", map[string]string{"email": "bad", "password": "x"})
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate limit exceeded", body["error"])
}

func TestCheckoutRoute(t *testing.T) {
	h := setup(t)
	addr := map[string]any{"shippingAddress": map[string]string{
		"name": "Asha", "phone": "9876543210", "street": "1 MG Road", "city": "Kolkata", "state": "WB", "pincode": "700001",
	}}

	code, body := h.do(t, http.MethodPost, "/checkout", addr)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "checkout requires a signed-in user", body["error"])

	code, _ = h.do(t, http.MethodPost, "/session/login", map[string]string{"email": "asha@example.com", "password": "Secret1"})
	require.Equal(t, http.StatusOK, code)

	code, _ = h.do(t, http.MethodPost, "/checkout", addr)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	h.do(t, http.MethodPost, "/cart/items", map[string]any{"product": map[string]any{"_id": "p1", "name": "Case", "price": 499}})
	code, body = h.do(t, http.MethodPost, "/checkout", addr)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "GF1", body["order"].(map[string]any)["orderNumber"])
	assert.EqualValues(t, 1, h.up.orders.Load())

	_, body = h.do(t, http.MethodGet, "/cart", nil)
	assert.EqualValues(t, 0, body["itemCount"])
}

func TestBookingRoutes(t *testing.T) {
	h := setup(t)
	draft := map[string]string{
		"name": "Asha", "phone": "12345", "deviceBrand": "Samsung", "issueType": "Battery Problems", "issueDescription": "Drains by noon",
		"address": "1 MG Road", "preferredDate": "2026-11-01", "preferredTime": "10:00 AM - 12:00 PM",
	}

	code, body := h.do(t, http.MethodPost, "/booking", draft)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "Please enter a valid 10-digit phone number", body["error"])

	code, _ = h.do(t, http.MethodPost, "/booking/draft", draft)
	require.Equal(t, http.StatusNoContent, code)
	code, body = h.do(t, http.MethodGet, "/booking/draft", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Samsung", body["deviceBrand"])
	code, _ = h.do(t, http.MethodGet, "/booking/draft", nil)
	assert.Equal(t, http.StatusNoContent, code)

	draft["phone"] = "9876543210"
	code, body = h.do(t, http.MethodPost, "/booking", draft)
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "api", body["acknowledged"])
	assert.Equal(t, "signup-prompt", body["next"])
}

func TestProductsUpstreamFailure(t *testing.T) {
	h := setup(t)

	code, body := h.do(t, http.MethodGet, "/products?sort=price_low", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["products"], 1)

	h.up.products.Store(true)
	code, _ = h.do(t, http.MethodGet, "/products", nil)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, h.notices(t), "Failed to load products")
}

func TestAdminRoutes(t *testing.T) {
	h := setup(t)

	code, _ := h.do(t, http.MethodGet, "/admin/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = h.do(t, http.MethodGet, "/admin/session", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := h.do(t, http.MethodPost, "/admin/session", map[string]string{"email": "admin@mobirepair.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid admin credentials", body["error"])

	code, _ = h.do(t, http.MethodPost, "/admin/session", map[string]string{"email": "not-an-email", "password": "admin123"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, body = h.do(t, http.MethodPost, "/admin/session", map[string]string{"email": "Admin@MobiRepair.com", "password": "admin123"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Owner", body["user"].(map[string]any)["name"])

	code, body = h.do(t, http.MethodGet, "/admin/session", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "admin", body["user"].(map[string]any)["role"])

	code, body = h.do(t, http.MethodGet, "/admin/dashboard?limit=5", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 3, body["stats"].(map[string]any)["totalBookings"])
	assert.Len(t, body["bookings"], 1)

	code, _ = h.do(t, http.MethodPost, "/admin/sms", map[string]string{"phone": "9876543210"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = h.do(t, http.MethodPost, "/admin/sms", map[string]string{
		"phone": "9876543210", "customerName": "Asha", "message": "Your phone is ready",
	})
	require.Equal(t, http.StatusNoContent, code)
	assert.EqualValues(t, 1, h.up.sms.Load())

	code, _ = h.do(t, http.MethodDelete, "/admin/session", nil)
	require.Equal(t, http.StatusNoContent, code)
	code, _ = h.do(t, http.MethodPost, "/admin/sms", map[string]string{"phone": "9876543210", "message": "again"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.EqualValues(t, 1, h.up.sms.Load())

	assert.Equal(t, []string{
		"Invalid admin credentials",
		"Please enter a valid email address",
		"Admin login successful!",
		"SMS sent successfully!",
		"Logged out successfully",
	}, h.notices(t))
}
