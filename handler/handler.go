package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"shopping-cart/model"
	"shopping-cart/service"
	"shopping-cart/store"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// SessionCookie carries the opaque token the caller's cart is bound to.
const SessionCookie = "cart_session"

const (
	msgProductNotFound = "Product not found"
	msgNotInCart       = "Product not found in cart"
	msgBadQuantity     = "Quantity must be greater than 0"
	msgQuantityTooBig  = "Quantity is too large"
	msgCartAbandoned   = "Cart has been abandoned"
)

// Handler is the HTTP layer that talks to service.CartService
type Handler struct {
	svc service.CartService
	log *slog.Logger
}

func NewHandler(s service.CartService, log *slog.Logger) *Handler {
	return &Handler{svc: s, log: log}
}

// RegisterRoutes registers all routes on the provided router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(LoggingMiddleware(h.log))

	// Cart
	r.HandleFunc("/cart", h.ShowCart).Methods("GET")
	r.HandleFunc("/cart", h.CreateCart).Methods("POST")
	r.HandleFunc("/cart/add_item", h.AddItem).Methods("POST")
	r.HandleFunc("/cart/{product_id}", h.UpdateItem).Methods("PATCH")
	r.HandleFunc("/cart/{product_id}", h.RemoveProduct).Methods("DELETE")

	// Products
	r.HandleFunc("/products", h.CreateProduct).Methods("POST")
	r.HandleFunc("/products/list", h.ListProducts).Methods("GET")

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }).Methods("GET")
}

// --- request / response shapes ---
type itemReq struct {
	ProductID int64    `json:"product_id"`
	Quantity  quantity `json:"quantity"`
}

type quantityReq struct {
	Quantity quantity `json:"quantity"`
}

type createProductReq struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type cartProduct struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

type cartResponse struct {
	ID         int64         `json:"id"`
	Products   []cartProduct `json:"products"`
	TotalPrice float64       `json:"total_price"`
}

type productResponse struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func toCartResponse(c model.Cart) cartResponse {
	out := cartResponse{
		ID:         c.ID,
		Products:   make([]cartProduct, 0, len(c.Items)),
		TotalPrice: c.TotalPrice.InexactFloat64(),
	}
	for _, it := range c.Items {
		out.Products = append(out.Products, cartProduct{
			ID:         it.Product.ID,
			Name:       it.Product.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.Product.Price.InexactFloat64(),
			TotalPrice: it.LineTotal().InexactFloat64(),
		})
	}
	return out
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// fail maps service and store errors to status codes.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrProductNotFound):
		writeErr(w, http.StatusNotFound, msgProductNotFound)
	case errors.Is(err, service.ErrProductNotInCart):
		writeErr(w, http.StatusNotFound, msgNotInCart)
	case errors.Is(err, model.ErrInvalidQuantity):
		writeErr(w, http.StatusUnprocessableEntity, msgBadQuantity)
	case errors.Is(err, model.ErrQuantityTooLarge):
		writeErr(w, http.StatusUnprocessableEntity, msgQuantityTooBig)
	case errors.Is(err, store.ErrCartAbandoned):
		writeErr(w, http.StatusConflict, msgCartAbandoned)
	default:
		h.log.Error("request failed", slog.String("path", r.URL.Path), slog.Any("err", err))
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}

// sessionToken returns the caller's session token, issuing a new one in a
// cookie when the request carries none.
func sessionToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	token := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

func (h *Handler) currentCart(w http.ResponseWriter, r *http.Request) (model.Cart, bool) {
	cart, err := h.svc.GetOrCreate(r.Context(), sessionToken(w, r))
	if err != nil {
		h.fail(w, r, err)
		return model.Cart{}, false
	}
	return cart, true
}

// withCart runs op against the session's cart. When the sweeper abandons the
// cart between lookup and update, op runs once more on the replacement cart.
func (h *Handler) withCart(w http.ResponseWriter, r *http.Request, op func(cartID int64) (model.Cart, error)) (model.Cart, bool) {
	token := sessionToken(w, r)
	for attempt := 0; ; attempt++ {
		cart, err := h.svc.GetOrCreate(r.Context(), token)
		if err == nil {
			cart, err = op(cart.ID)
		}
		if errors.Is(err, store.ErrCartAbandoned) && attempt == 0 {
			continue
		}
		if err != nil {
			h.fail(w, r, err)
			return model.Cart{}, false
		}
		return cart, true
	}
}

func productIDFromPath(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["product_id"], 10, 64)
	return id, err == nil
}

// --- Handler ---

// ShowCart handles GET /cart
func (h *Handler) ShowCart(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.currentCart(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

// CreateCart handles POST /cart
// body: { "product_id": 1, "quantity": 2 }
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	h.addItem(w, r, http.StatusCreated)
}

// AddItem handles POST /cart/add_item
// body: { "product_id": 1, "quantity": 2 }
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	h.addItem(w, r, http.StatusOK)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request, code int) {
	var req itemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	// a rejected item must not create or bind a cart
	if _, err := h.svc.CheckItem(r.Context(), req.ProductID, int(req.Quantity)); err != nil {
		h.fail(w, r, err)
		return
	}
	cart, ok := h.withCart(w, r, func(cartID int64) (model.Cart, error) {
		return h.svc.AddProduct(r.Context(), cartID, req.ProductID, int(req.Quantity))
	})
	if !ok {
		return
	}
	writeJSON(w, code, toCartResponse(cart))
}

// UpdateItem handles PATCH /cart/{product_id}
// body: { "quantity": 3 }; a quantity <= 0 removes the product
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDFromPath(r)
	if !ok {
		writeErr(w, http.StatusNotFound, msgProductNotFound)
		return
	}
	var req quantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	cart, ok := h.withCart(w, r, func(cartID int64) (model.Cart, error) {
		cart, updated, err := h.svc.UpdateQuantity(r.Context(), cartID, productID, int(req.Quantity))
		if err == nil && !updated {
			err = service.ErrProductNotInCart
		}
		return cart, err
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

// RemoveProduct handles DELETE /cart/{product_id}
func (h *Handler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDFromPath(r)
	if !ok {
		writeErr(w, http.StatusNotFound, msgProductNotFound)
		return
	}
	cart, ok := h.withCart(w, r, func(cartID int64) (model.Cart, error) {
		cart, removed, err := h.svc.RemoveProduct(r.Context(), cartID, productID)
		if err == nil && !removed {
			err = service.ErrProductNotInCart
		}
		return cart, err
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

// CreateProduct handles POST /products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" {
		writeErr(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Price.IsNegative() {
		writeErr(w, http.StatusBadRequest, "price must be >= 0")
		return
	}

	id, err := h.svc.CreateProduct(r.Context(), req.Name, req.Price)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// ListProducts handles GET /products/list
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.ListProducts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]productResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, productResponse{ID: p.ID, Name: p.Name, Price: p.Price.InexactFloat64()})
	}
	writeJSON(w, http.StatusOK, out)
}
