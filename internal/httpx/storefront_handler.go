package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/mobirepair-storefront/internal/admin"
	"github.com/ariefcatur/mobirepair-storefront/internal/apiclient"
	"github.com/ariefcatur/mobirepair-storefront/internal/app"
	"github.com/ariefcatur/mobirepair-storefront/internal/auth"
	"github.com/ariefcatur/mobirepair-storefront/internal/booking"
	"github.com/ariefcatur/mobirepair-storefront/internal/cart"
	"github.com/ariefcatur/mobirepair-storefront/internal/catalog"
	"github.com/ariefcatur/mobirepair-storefront/internal/checkout"
	"github.com/ariefcatur/mobirepair-storefront/internal/security"
	"github.com/ariefcatur/mobirepair-storefront/internal/storefront"
)

// StorefrontHandler exposes the app container to a front end.
type StorefrontHandler struct {
	App *app.App
}

func (h *StorefrontHandler) Register(r chi.Router) {
	r.Get("/cart", h.getCart)
	r.Post("/cart/items", h.addItem)
	r.Put("/cart/items/{id}", h.updateItem)
	r.Delete("/cart/items/{id}", h.removeItem)
	r.Delete("/cart", h.clearCart)

	r.Get("/session", h.getSession)
	r.Post("/session/login", h.login)
	r.Post("/session/register", h.register)
	r.Delete("/session", h.logout)

	r.Get("/booking/draft", h.resumeDraft)
	r.Post("/booking/draft", h.suspendDraft)
	r.Post("/booking", h.submitBooking)

	r.Post("/checkout", h.placeOrder)
	r.Get("/products", h.listProducts)
	r.Get("/products/categories", h.listCategories)
	r.Get("/products/brands", h.listBrands)
	r.Get("/account", h.getAccount)

	r.Post("/admin/session", h.adminLogin)
	r.Get("/admin/session", h.adminSession)
	r.Delete("/admin/session", h.adminLogout)
	r.Get("/admin/dashboard", h.adminDashboard)
	r.Put("/admin/bookings/{id}", h.adminUpdateBooking)
	r.Delete("/admin/bookings/{id}", h.adminDeleteBooking)
	r.Post("/admin/sms", h.adminSendSMS)

	r.Get("/notices", h.drainNotices)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": messageFor(err)})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, security.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrInvalidPassword),
		errors.Is(err, booking.ErrValidation),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidAddress),
		errors.Is(err, storefront.ErrInvalidStatus),
		errors.Is(err, admin.ErrInvalidCredentials):
		return http.StatusUnprocessableEntity
	case errors.Is(err, checkout.ErrNotAuthenticated), errors.Is(err, admin.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, booking.ErrInFlight), errors.Is(err, auth.ErrSuperseded):
		return http.StatusConflict
	}
	if code := apiclient.StatusCode(err); code >= 400 && code < 500 {
		return code
	}
	return http.StatusBadGateway
}

func messageFor(err error) string {
	var ve *booking.ValidationError
	if errors.As(err, &ve) {
		return ve.Notice
	}
	var pe *auth.PasswordError
	if errors.As(err, &pe) {
		return strings.Join(pe.Problems, ". ")
	}
	return apiclient.Message(err, err.Error())
}

type cartView struct {
	Lines     []cart.Line     `json:"lines"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Quote     checkout.Quote  `json:"quote"`
}

func viewCart(s cart.State) cartView {
	return cartView{Lines: s.Lines(), ItemCount: s.ItemCount(), Subtotal: s.Subtotal(), Quote: checkout.QuoteFor(s.Subtotal())}
}

func (h *StorefrontHandler) getCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewCart(h.App.Cart.Snapshot()))
}

func (h *StorefrontHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Product  storefront.Product `json:"product"`
		Quantity int                `json:"quantity"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Product.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing product id"})
		return
	}
	writeJSON(w, http.StatusOK, viewCart(h.App.Cart.AddItem(r.Context(), req.Product, req.Quantity)))
}

func (h *StorefrontHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, viewCart(h.App.Cart.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), req.Quantity)))
}

func (h *StorefrontHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewCart(h.App.Cart.RemoveItem(r.Context(), chi.URLParam(r, "id"))))
}

func (h *StorefrontHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewCart(h.App.Cart.Clear(r.Context())))
}

func (h *StorefrontHandler) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.App.Auth.Session())
}

func (h *StorefrontHandler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	s, err := h.App.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *StorefrontHandler) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	s, err := h.App.Auth.Register(r.Context(), req.Name, req.Email, req.Phone, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *StorefrontHandler) logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.App.Auth.Logout(r.Context()))
}

func (h *StorefrontHandler) resumeDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := h.App.Booking.Resume()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *StorefrontHandler) suspendDraft(w http.ResponseWriter, r *http.Request) {
	var d booking.Draft
	if !decode(w, r, &d) {
		return
	}
	if err := h.App.Booking.Suspend(d); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StorefrontHandler) submitBooking(w http.ResponseWriter, r *http.Request) {
	var d booking.Draft
	if !decode(w, r, &d) {
		return
	}
	out, err := h.App.Booking.Submit(r.Context(), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, out)
}

func (h *StorefrontHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShippingAddress checkout.ShippingAddress `json:"shippingAddress"`
	}
	if !decode(w, r, &req) {
		return
	}
	o, err := h.App.Checkout.PlaceOrder(r.Context(), req.ShippingAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"order": o})
}

func (h *StorefrontHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.App.Catalog.List(r.Context(), catalog.ParseFilters(r.URL.Query()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": ps})
}

func (h *StorefrontHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": h.App.Catalog.Categories(r.Context())})
}

func (h *StorefrontHandler) listBrands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"brands": h.App.Catalog.Brands(r.Context())})
}

func (h *StorefrontHandler) getAccount(w http.ResponseWriter, r *http.Request) {
	if !h.App.Auth.IsAuthenticated() {
		writeError(w, checkout.ErrNotAuthenticated)
		return
	}
	d, err := h.App.Account.Load(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": d.Bookings, "orders": d.Orders, "stats": d.Stats()})
}

func (h *StorefrontHandler) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	u, err := h.App.Admin.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *StorefrontHandler) adminSession(w http.ResponseWriter, r *http.Request) {
	u, ok := h.App.Admin.User()
	if !ok {
		writeError(w, admin.ErrSessionExpired)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *StorefrontHandler) adminLogout(w http.ResponseWriter, r *http.Request) {
	h.App.Admin.Logout()
	w.WriteHeader(http.StatusNoContent)
}

func (h *StorefrontHandler) adminSendSMS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone        string `json:"phone"`
		CustomerName string `json:"customerName"`
		Message      string `json:"message"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Phone) == "" || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "phone and message are required"})
		return
	}
	if err := h.App.Admin.SendSMS(r.Context(), req.Phone, req.CustomerName, req.Message); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StorefrontHandler) adminDashboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	d, err := h.App.Admin.Fetch(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *StorefrontHandler) adminUpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.App.Admin.UpdateBookingStatus(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StorefrontHandler) adminDeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.App.Admin.DeleteBooking(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StorefrontHandler) drainNotices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"notices": h.App.Notices.Drain()})
}
