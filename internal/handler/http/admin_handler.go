package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/littletreat/internal/order"
)

const setupPath = "/admin/setup"

// Dashboard is the admin order list the handler drives.
type Dashboard interface {
	Refresh(ctx context.Context) error
	RefreshedAt() time.Time
	Orders(q order.Query) []order.Order
	Summary() order.Summary
	Workflow() order.Workflow
	CycleStatus(ctx context.Context, orderID string, current order.Status) (order.Status, error)
	SetStatus(ctx context.Context, orderID string, status order.Status) error
}

// EndpointSetup reports and changes where the order store lives.
type EndpointSetup interface {
	Configured() bool
	Override(rawURL string) error
}

type CycleStatusRequest struct {
	Current string `json:"current" validate:"max=32"`
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required,max=32"`
}

type SetupRequest struct {
	URL string `json:"url" validate:"required,http_url"`
}

type OrdersResponse struct {
	Orders      []order.Order  `json:"orders"`
	Count       int            `json:"count"`
	Statuses    []order.Status `json:"statuses"`
	Cycle       bool           `json:"cycle"`
	RefreshedAt time.Time      `json:"refreshedAt"`
}

type StatusResponse struct {
	OrderID string       `json:"orderId"`
	Status  order.Status `json:"status"`
}

type SetupResponse struct {
	Configured bool `json:"configured"`
}

type setupRequiredResponse struct {
	Error string `json:"error"`
	Setup string `json:"setup"`
}

type AdminHandler struct {
	dashboard Dashboard
	endpoint  EndpointSetup
	auth      func(http.Handler) http.Handler
	validate  *validator.Validate
}

// NewAdminHandler builds the admin API. auth wraps every admin route; pass
// nil to leave them open.
func NewAdminHandler(dashboard Dashboard, endpoint EndpointSetup, auth func(http.Handler) http.Handler) *AdminHandler {
	return &AdminHandler{
		dashboard: dashboard,
		endpoint:  endpoint,
		auth:      auth,
		validate:  validator.New(),
	}
}

func (h *AdminHandler) RegisterRoutes(router chi.Router) {
	router.Route("/admin", func(r chi.Router) {
		if h.auth != nil {
			r.Use(h.auth)
		}
		r.Get("/setup", h.handleGetSetup)
		r.Put("/setup", h.handlePutSetup)

		r.Group(func(r chi.Router) {
			r.Use(h.requireEndpoint)
			r.Get("/orders", h.handleListOrders)
			r.Post("/orders/refresh", h.handleRefresh)
			r.Get("/summary", h.handleSummary)
			r.Post("/orders/{id}/cycle", h.handleCycleStatus)
			r.Put("/orders/{id}/status", h.handleSetStatus)
		})
	})
}

func (h *AdminHandler) requireEndpoint(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.endpoint.Configured() {
			respondWithJSON(w, http.StatusServiceUnavailable, setupRequiredResponse{
				Error: "Order store is not configured",
				Setup: setupPath,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AdminHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	// The first visit loads the list, like opening the dashboard page.
	if h.dashboard.RefreshedAt().IsZero() {
		if err := h.dashboard.Refresh(r.Context()); err != nil {
			h.respondWithRefreshError(w, err)
			return
		}
	}

	q := r.URL.Query()
	status := q.Get("status")
	if status == "" {
		status = order.StatusAll
	}
	orders := h.dashboard.Orders(order.Query{
		Status: status,
		Search: q.Get("q"),
		Sort:   order.ParseSortKey(q.Get("sort")),
	})
	h.respondWithOrders(w, orders)
}

func (h *AdminHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.dashboard.Refresh(r.Context()); err != nil {
		h.respondWithRefreshError(w, err)
		return
	}
	h.respondWithOrders(w, h.dashboard.Orders(order.Query{Status: order.StatusAll}))
}

func (h *AdminHandler) respondWithOrders(w http.ResponseWriter, orders []order.Order) {
	if orders == nil {
		orders = []order.Order{}
	}
	workflow := h.dashboard.Workflow()
	respondWithJSON(w, http.StatusOK, OrdersResponse{
		Orders:      orders,
		Count:       len(orders),
		Statuses:    workflow.Statuses,
		Cycle:       workflow.Cycle,
		RefreshedAt: h.dashboard.RefreshedAt(),
	})
}

func (h *AdminHandler) respondWithRefreshError(w http.ResponseWriter, err error) {
	statusCode := mapErrorToStatusCode(err)
	if statusCode == http.StatusServiceUnavailable {
		respondWithJSON(w, statusCode, setupRequiredResponse{
			Error: "Order store is not configured",
			Setup: setupPath,
		})
		return
	}
	respondWithError(w, statusCode, "Failed to load orders")
}

func (h *AdminHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.dashboard.Summary())
}

func (h *AdminHandler) handleCycleStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var requestPayload CycleStatusRequest
	if err := decodeJSON(w, r, &requestPayload); err != nil && !errors.Is(err, io.EOF) {
		log.Warn().Err(err).Msg("handler: failed to decode cycle status body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	next, err := h.dashboard.CycleStatus(r.Context(), orderID, order.Status(requestPayload.Current))
	if err != nil {
		h.respondWithStatusError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{OrderID: orderID, Status: next})
}

func (h *AdminHandler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var requestPayload SetStatusRequest
	if err := decodeJSON(w, r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("handler: failed to decode set status body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	status := order.Status(requestPayload.Status)
	if err := h.dashboard.SetStatus(r.Context(), orderID, status); err != nil {
		h.respondWithStatusError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{OrderID: orderID, Status: status})
}

func (h *AdminHandler) respondWithStatusError(w http.ResponseWriter, err error) {
	statusCode := mapErrorToStatusCode(err)

	var clientMessage string
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		clientMessage = "Order not found"
	case errors.Is(err, order.ErrInvalidStatus):
		clientMessage = "Invalid status"
	default:
		log.Error().Err(err).Msg("handler: failed to change order status")
		clientMessage = "Failed to update status"
	}
	respondWithError(w, statusCode, clientMessage)
}

func (h *AdminHandler) handleGetSetup(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, SetupResponse{Configured: h.endpoint.Configured()})
}

func (h *AdminHandler) handlePutSetup(w http.ResponseWriter, r *http.Request) {
	var requestPayload SetupRequest
	if err := decodeJSON(w, r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("handler: failed to decode setup body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	if err := h.endpoint.Override(requestPayload.URL); err != nil {
		statusCode := mapErrorToStatusCode(err)
		if statusCode >= http.StatusInternalServerError {
			log.Error().Err(err).Msg("handler: failed to save order store endpoint")
		}
		respondWithError(w, statusCode, "Failed to save order store URL")
		return
	}
	log.Info().Msg("handler: order store endpoint updated")

	if err := h.dashboard.Refresh(r.Context()); err != nil {
		log.Warn().Err(err).Msg("handler: refresh after setup failed")
	}
	respondWithJSON(w, http.StatusOK, SetupResponse{Configured: true})
}

// orderIDParam reads the {id} path segment. Order ids start with '#', so
// clients send it percent-encoded.
func orderIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "id")
	orderID, err := url.PathUnescape(raw)
	if err != nil || orderID == "" {
		log.Warn().Str("order_id", raw).Msg("handler: invalid order id in path")
		respondWithError(w, http.StatusBadRequest, "Invalid order id")
		return "", false
	}
	return orderID, true
}
