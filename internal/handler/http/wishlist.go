package http

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// Route failure messages returned to clients.
const (
	MsgProductsFailed = "Falha ao buscar produtos"
	MsgAddFailed      = "Falha ao adicionar produto à wishlist"
	MsgCheckFailed    = "Falha ao verificar wishlist"
	MsgListFailed     = "Falha ao buscar produtos filtrados da wishlist"
	MsgRemoveFailed   = "Falha ao remover produto da wishlist"
)

// Success messages.
const (
	MsgAdded   = "Produto adicionado à wishlist"
	MsgRemoved = "Produto removido da wishlist"
)

// WishlistHandler handles the product and wishlist endpoints.
type WishlistHandler struct {
	service *service.WishlistService
	logger  *slog.Logger
}

// NewWishlistHandler creates a new wishlist HTTP handler.
func NewWishlistHandler(svc *service.WishlistService, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request / response DTOs ---

// ProductIDRequest is the body of add and remove requests.
type ProductIDRequest struct {
	ProductID string `json:"productId" validate:"notblank,max=256"`
}

// AddResponse is returned by POST /api/wishlist/add.
type AddResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// CheckResponse is returned by GET /api/wishlist/check/{productId}.
type CheckResponse struct {
	IsInWishlist bool `json:"isInWishlist"`
}

// RemoveResponse is returned by DELETE /api/wishlist/remove.
type RemoveResponse struct {
	Message   string `json:"message"`
	ProductID string `json:"productId"`
	Removed   int    `json:"removed"`
}

// --- Handlers ---

// ListProducts handles GET /api/products. The feed response is relayed as
// received.
func (h *WishlistHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	cat, err := h.service.Products(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, MsgProductsFailed, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(cat.Body)
}

// AddToWishlist handles POST /api/wishlist/add.
func (h *WishlistHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	var req ProductIDRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, MsgAddFailed, h.logger)
		return
	}

	id, err := h.service.AddToWishlist(r.Context(), req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, MsgAddFailed, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, AddResponse{Message: MsgAdded, ID: id})
}

// CheckWishlist handles GET /api/wishlist/check/{productId}.
func (h *WishlistHandler) CheckWishlist(w http.ResponseWriter, r *http.Request) {
	productID, err := pathParam(r, "productId")
	if err != nil {
		httputil.WriteError(w, r, err, MsgCheckFailed, h.logger)
		return
	}

	found, err := h.service.IsInWishlist(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, MsgCheckFailed, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, CheckResponse{IsInWishlist: found})
}

// GetWishlist handles GET /api/wishlist and returns the wishlisted catalog
// products. An empty wishlist is written as [].
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.EnrichedWishlist(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, MsgListFailed, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, products)
}

// RemoveFromWishlist handles DELETE /api/wishlist/remove.
func (h *WishlistHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	var req ProductIDRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, MsgRemoveFailed, h.logger)
		return
	}

	removed, err := h.service.RemoveFromWishlist(r.Context(), req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, MsgRemoveFailed, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, RemoveResponse{
		Message:   MsgRemoved,
		ProductID: req.ProductID,
		Removed:   removed,
	})
}

// pathParam returns the decoded route parameter. chi matches on RawPath when
// the request carries escaped characters such as %2F, so the value is only
// unescaped in that case.
func pathParam(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v, nil
	}
	decoded, err := url.PathUnescape(v)
	if err != nil {
		return "", apperrors.InvalidInput("invalid " + name + " path segment")
	}
	return decoded, nil
}
