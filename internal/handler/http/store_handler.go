package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/littletreat/internal/order"
	"github.com/vasiliy-maslov/littletreat/internal/sheets"
	"github.com/vasiliy-maslov/littletreat/internal/store"
)

// storePostRequest is any POST the order store accepts: an append when
// Action is empty, otherwise the named action.
type storePostRequest struct {
	sheets.AppendRequest
	Action string `json:"action"`
}

// StoreHandler serves the order store over the same contract the
// spreadsheet web app exposed, so storefronts can point at either.
type StoreHandler struct {
	service store.Service
}

func NewStoreHandler(service store.Service) *StoreHandler {
	return &StoreHandler{service: service}
}

func (h *StoreHandler) RegisterRoutes(router chi.Router) {
	for _, path := range []string{"/", "/exec"} {
		router.Get(path, h.handleGet)
		router.Post(path, h.handlePost)
	}
	router.Get("/export.xlsx", h.handleExport)
}

func (h *StoreHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	switch action := r.URL.Query().Get("action"); action {
	case "":
		respondWithJSON(w, http.StatusOK, sheets.Envelope{Status: sheets.StatusSuccess, Message: "Order store is running"})
	case sheets.ActionGetOrders:
		h.listOrders(w, r, r.URL.Query().Get("sheet"))
	default:
		log.Warn().Str("action", action).Msg("handler: unknown store action")
		respondWithEnvelopeError(w, http.StatusBadRequest, sheets.CodeInvalidRequest, "Unknown action: "+action)
	}
}

func (h *StoreHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	var payload storePostRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		log.Warn().Err(err).Msg("handler: failed to decode store request body")
		respondWithEnvelopeError(w, http.StatusBadRequest, sheets.CodeInvalidRequest, "Invalid request payload")
		return
	}

	switch payload.Action {
	case "":
		h.appendOrder(w, r, payload.AppendRequest)
	case sheets.ActionGetOrders:
		h.listOrders(w, r, payload.SheetName)
	case sheets.ActionUpdateStatus:
		h.updateStatus(w, r, order.SheetFood, payload.OrderID, payload.Status)
	case sheets.ActionUpdateChocolateStatus:
		h.updateStatus(w, r, order.SheetChocolate, payload.OrderID, payload.Status)
	default:
		log.Warn().Str("action", payload.Action).Msg("handler: unknown store action")
		respondWithEnvelopeError(w, http.StatusBadRequest, sheets.CodeInvalidRequest, "Unknown action: "+payload.Action)
	}
}

func (h *StoreHandler) appendOrder(w http.ResponseWriter, r *http.Request, req sheets.AppendRequest) {
	row, inserted, err := h.service.Append(r.Context(), store.AppendInput{
		SheetName:     req.SheetName,
		OrderID:       req.OrderID,
		Date:          req.Date,
		Time:          req.Time,
		CustomerName:  req.CustomerName,
		Phone:         req.Phone,
		FlatNumber:    req.FlatNumber,
		ApartmentName: req.ApartmentName,
		Items:         req.Items,
		Total:         req.Total,
		Status:        req.Status,
		Timestamp:     req.Timestamp,
		SubmissionID:  req.SubmissionID,
	})
	if err != nil {
		h.respondWithStoreError(w, err, "Failed to add order")
		return
	}

	message := "Order added successfully"
	if !inserted {
		message = "Order already recorded"
	}
	respondWithJSON(w, http.StatusOK, sheets.Envelope{
		Status:    sheets.StatusSuccess,
		Success:   boolPtr(true),
		Message:   message,
		SheetUsed: row.Sheet,
	})
}

func (h *StoreHandler) updateStatus(w http.ResponseWriter, r *http.Request, sheet, orderID, status string) {
	if err := h.service.UpdateStatus(r.Context(), sheet, orderID, order.Status(status)); err != nil {
		h.respondWithStoreError(w, err, "Failed to update status")
		return
	}
	respondWithJSON(w, http.StatusOK, sheets.Envelope{
		Status:    sheets.StatusSuccess,
		Success:   boolPtr(true),
		Message:   "Status updated successfully",
		SheetUsed: sheet,
	})
}

func (h *StoreHandler) listOrders(w http.ResponseWriter, r *http.Request, requested string) {
	sheet, rows, err := h.service.List(r.Context(), requested)
	if err != nil {
		h.respondWithStoreError(w, err, "Failed to read orders")
		return
	}

	orders := make([]sheets.WireOrder, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, toWireOrder(sheet, row))
	}
	count := len(orders)
	respondWithJSON(w, http.StatusOK, sheets.Envelope{
		Status:    sheets.StatusSuccess,
		Orders:    orders,
		Count:     &count,
		SheetUsed: sheet,
	})
}

func (h *StoreHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	sheet, rows, err := h.service.List(r.Context(), r.URL.Query().Get("sheet"))
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to read orders for export")
		respondWithError(w, http.StatusInternalServerError, "Failed to export orders")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+sheet+".xlsx")
	w.Header().Set("Cache-Control", "no-store")
	if err := store.WriteWorkbook(w, sheet, rows); err != nil {
		log.Error().Err(err).Str("sheet", sheet).Msg("handler: failed to write export")
	}
}

func (h *StoreHandler) respondWithStoreError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrInvalidRequest), errors.Is(err, order.ErrInvalidStatus):
		log.Warn().Err(err).Msg("handler: rejected store request")
		respondWithEnvelopeError(w, http.StatusBadRequest, sheets.CodeInvalidRequest, err.Error())
	case errors.Is(err, order.ErrDuplicateOrderID):
		log.Warn().Err(err).Msg("handler: duplicate order id")
		respondWithEnvelopeError(w, http.StatusConflict, sheets.CodeDuplicateOrderID, "Order ID already exists")
	case errors.Is(err, order.ErrOrderNotFound):
		log.Warn().Err(err).Msg("handler: order not found")
		respondWithEnvelopeError(w, http.StatusNotFound, sheets.CodeNotFound, "Order not found")
	case errors.Is(err, store.ErrLockUnavailable):
		log.Warn().Err(err).Msg("handler: sheet is busy")
		respondWithEnvelopeError(w, http.StatusServiceUnavailable, sheets.CodeLockUnavailable, "Sheet is busy, try again")
	default:
		log.Error().Err(err).Msg("handler: order store failure")
		respondWithEnvelopeError(w, http.StatusInternalServerError, "", fallback)
	}
}

func respondWithEnvelopeError(w http.ResponseWriter, status int, code, message string) {
	respondWithJSON(w, status, sheets.Envelope{
		Status:  sheets.StatusError,
		Success: boolPtr(false),
		Error:   message,
		Message: message,
		Code:    code,
	})
}

func toWireOrder(sheet string, row store.Row) sheets.WireOrder {
	wire := sheets.WireOrder{
		OrderID:   sheets.Text(row.OrderID),
		Items:     sheets.Text(row.Items),
		Total:     sheets.Text(row.Total),
		Status:    sheets.Text(row.Status),
		Timestamp: sheets.Text(row.CreatedAt.UTC().Format(time.RFC3339)),
		RowIndex:  row.RowIndex,
	}
	if sheet == order.SheetChocolate {
		wire.FlatNumber = sheets.Text(row.Flat)
		wire.ApartmentName = sheets.Text(row.Apartment)
		return wire
	}
	wire.DeliveryDate = sheets.Text(row.DeliveryDate)
	wire.DeliveryTime = sheets.Text(row.DeliveryTime)
	wire.Flat = sheets.Text(row.Flat)
	wire.Apartment = sheets.Text(row.Apartment)
	return wire
}

func boolPtr(b bool) *bool {
	return &b
}
