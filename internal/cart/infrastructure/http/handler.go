package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Pickle-Storefront/internal/cart/application"
	"github.com/dmehra2102/Pickle-Storefront/internal/cart/domain"
	"github.com/dmehra2102/Pickle-Storefront/internal/middleware"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("cart-http"),
	}
}

type addItemReq struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	Quantity      int              `json:"quantity"`
	Image         string           `json:"image"`
	Weight        string           `json:"weight"`
}

type updateQuantityReq struct {
	Quantity *int `json:"quantity"`
}

// Routes expects the Session middleware to run first.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Put("/items/{id}", h.updateQuantity)
	r.Delete("/items/{id}", h.removeItem)
	return r
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetCart")
	defer span.End()

	view, err := h.service.Get(ctx, middleware.GetSessionID(ctx))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddCartItem")
	defer span.End()

	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	span.SetAttributes(attribute.String("item.id", req.ID), attribute.Int("item.quantity", req.Quantity))

	item := domain.LineItem{
		ID:                req.ID,
		Name:              req.Name,
		UnitPrice:         req.Price,
		OriginalUnitPrice: req.OriginalPrice,
		ImageRef:          req.Image,
		WeightLabel:       req.Weight,
	}
	view, err := h.service.AddItem(ctx, middleware.GetSessionID(ctx), item, req.Quantity)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateCartQuantity")
	defer span.End()

	var req updateQuantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}
	view, err := h.service.UpdateQuantity(ctx, middleware.GetSessionID(ctx), chi.URLParam(r, "id"), *req.Quantity)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveCartItem")
	defer span.End()

	view, err := h.service.RemoveItem(ctx, middleware.GetSessionID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ClearCart")
	defer span.End()

	if err := h.service.Clear(ctx, middleware.GetSessionID(ctx)); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrInvalidItem):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, application.ErrCheckoutInFlight):
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	h.log.Error("cart request failed", "err", err)
	writeError(w, http.StatusInternalServerError, "cart unavailable")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
