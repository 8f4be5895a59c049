package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Pickle-Storefront/internal/middleware"
	"github.com/dmehra2102/Pickle-Storefront/internal/order/application"
	"github.com/dmehra2102/Pickle-Storefront/internal/order/domain"
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
		tracer:  otel.Tracer("order-http"),
	}
}

type checkoutReq struct {
	DeliveryAddress string `json:"deliveryAddress"`
	Phone           string `json:"phone"`
	PaymentMethod   string `json:"paymentMethod"`
}

type checkoutResp struct {
	OrderID  string          `json:"orderId"`
	Status   domain.Status   `json:"status"`
	State    string          `json:"state"`
	Notified bool            `json:"notified"`
	Total    decimal.Decimal `json:"total"`
	PlacedAt time.Time       `json:"placedAt"`
}

type statusReq struct {
	Status string `json:"status"`
}

type errorResp struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Routes expects Session and Identify to run first.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity)
		r.Post("/checkout", h.checkout)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Patch("/admin/orders/{id}/status", h.updateStatus)
	})
	return r
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Checkout")
	defer span.End()

	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "invalid body"})
		return
	}

	id, _ := middleware.GetIdentity(ctx)
	customer := domain.Customer{
		ExternalID:  id.ID,
		Email:       id.Email,
		DisplayName: id.Name,
		Phone:       id.Phone,
	}
	details := domain.DeliveryDetails{
		Address:       req.DeliveryAddress,
		Phone:         req.Phone,
		PaymentMethod: req.PaymentMethod,
	}

	receipt, err := h.service.PlaceOrder(ctx, middleware.GetSessionID(ctx), customer, details)
	if err != nil {
		h.fail(w, err)
		return
	}
	span.SetAttributes(attribute.String("order_id", receipt.OrderID), attribute.Bool("notified", receipt.Notified()))

	writeJSON(w, http.StatusCreated, checkoutResp{
		OrderID:  receipt.OrderID,
		Status:   receipt.Order.Status,
		State:    string(receipt.State),
		Notified: receipt.Notified(),
		Total:    receipt.Order.TotalAmount,
		PlacedAt: receipt.Order.CreatedAt,
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	id, _ := middleware.GetIdentity(ctx)
	orders, err := h.service.ListCustomerOrders(ctx, id.ID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	id, _ := middleware.GetIdentity(ctx)
	o, err := h.service.GetCustomerOrder(ctx, id.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "invalid body"})
		return
	}
	o, err := h.service.UpdateStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	var serr *application.StoreError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResp{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, application.ErrSubmissionInFlight):
		writeJSON(w, http.StatusConflict, errorResp{Error: err.Error()})
	case errors.Is(err, application.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, errorResp{Error: "order not found"})
	case errors.Is(err, application.ErrIllegalTransition):
		writeJSON(w, http.StatusConflict, errorResp{Error: err.Error(), Field: "status"})
	case errors.Is(err, application.ErrUnknownStatus):
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error(), Field: "status"})
	case errors.As(err, &serr):
		writeJSON(w, http.StatusBadGateway, errorResp{Error: "could not save your order, please try again"})
	default:
		h.log.Error("order request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResp{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
