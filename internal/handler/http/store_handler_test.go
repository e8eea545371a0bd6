package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"github.com/vasiliy-maslov/littletreat/internal/order"
	"github.com/vasiliy-maslov/littletreat/internal/sheets"
	"github.com/vasiliy-maslov/littletreat/internal/store"
)

type mockStoreService struct {
	AppendFunc       func(ctx context.Context, in store.AppendInput) (*store.Row, bool, error)
	UpdateStatusFunc func(ctx context.Context, sheet, orderID string, status order.Status) error
	ListFunc         func(ctx context.Context, requested string) (string, []store.Row, error)
}

func (m *mockStoreService) Append(ctx context.Context, in store.AppendInput) (*store.Row, bool, error) {
	return m.AppendFunc(ctx, in)
}

func (m *mockStoreService) UpdateStatus(ctx context.Context, sheet, orderID string, status order.Status) error {
	return m.UpdateStatusFunc(ctx, sheet, orderID, status)
}

func (m *mockStoreService) List(ctx context.Context, requested string) (string, []store.Row, error) {
	return m.ListFunc(ctx, requested)
}

func newStoreRouter(svc store.Service) chi.Router {
	router := chi.NewRouter()
	NewStoreHandler(svc).RegisterRoutes(router)
	return router
}

func decodeEnvelope(t *testing.T, body io.Reader) sheets.Envelope {
	t.Helper()
	var env sheets.Envelope
	require.NoError(t, json.NewDecoder(body).Decode(&env))
	return env
}

var createdAt = time.Date(2026, 10, 15, 6, 30, 0, 0, time.UTC)

func TestStoreHandler_GetOrders(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		requested string
		sheet     string
		wantJSON  string
	}{
		{
			name:      "food",
			query:     "?action=getOrders&sheet=Orders",
			requested: "Orders",
			sheet:     order.SheetFood,
			wantJSON:  `{"orderId":"#LT1","deliveryDate":"Sunday, 19 October","deliveryTime":"12:30 PM","flat":"4B","apartment":"Green","items":"Samosa (4 pcs)","total":"₹80","status":"Pending","timestamp":"2026-10-15T06:30:00Z","rowIndex":2}`,
		},
		{
			name:      "chocolate",
			query:     "?action=getOrders&sheet=chocolates_orders",
			requested: "chocolates_orders",
			sheet:     order.SheetChocolate,
			wantJSON:  `{"orderId":"#LT1","flatNumber":"4B","apartmentName":"Green","items":"Samosa (4 pcs)","total":"₹80","status":"Pending","timestamp":"2026-10-15T06:30:00Z","rowIndex":2}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockStoreService{
				ListFunc: func(ctx context.Context, requested string) (string, []store.Row, error) {
					assert.Equal(t, tt.requested, requested)
					return tt.sheet, []store.Row{{
						OrderID:      "#LT1",
						DeliveryDate: "Sunday, 19 October",
						DeliveryTime: "12:30 PM",
						Flat:         "4B",
						Apartment:    "Green",
						Items:        "Samosa (4 pcs)",
						Total:        "₹80",
						Status:       "Pending",
						CreatedAt:    createdAt,
						RowIndex:     2,
					}}, nil
				},
			}

			req := httptest.NewRequest(http.MethodGet, "/exec"+tt.query, nil)
			rr := httptest.NewRecorder()
			newStoreRouter(svc).ServeHTTP(rr, req)

			require.Equal(t, http.StatusOK, rr.Code)
			var raw struct {
				Status    string            `json:"status"`
				Count     int               `json:"count"`
				SheetUsed string            `json:"sheetUsed"`
				Orders    []json.RawMessage `json:"orders"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
			assert.Equal(t, "success", raw.Status)
			assert.Equal(t, 1, raw.Count)
			assert.Equal(t, tt.sheet, raw.SheetUsed)
			require.Len(t, raw.Orders, 1)
			assert.JSONEq(t, tt.wantJSON, string(raw.Orders[0]))
		})
	}
}

func TestStoreHandler_GetStatusAndUnknownAction(t *testing.T) {
	router := newStoreRouter(&mockStoreService{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, sheets.StatusSuccess, decodeEnvelope(t, rr.Body).Status)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/?action=deleteOrder", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	env := decodeEnvelope(t, rr.Body)
	assert.Equal(t, sheets.StatusError, env.Status)
	assert.Equal(t, sheets.CodeInvalidRequest, env.Code)
}

func TestStoreHandler_Append(t *testing.T) {
	var got store.AppendInput
	svc := &mockStoreService{
		AppendFunc: func(ctx context.Context, in store.AppendInput) (*store.Row, bool, error) {
			got = in
			return &store.Row{Sheet: order.SheetFood, OrderID: in.OrderID}, true, nil
		},
	}
	body := `{"sheetName":"Orders","orderId":"#LT1","date":"Sunday, 19 October","time":"12:30 PM",
		"customerName":"","phone":"","flatNumber":"4B","apartmentName":"Green","items":"Samosa (4 pcs)",
		"total":"₹80","status":"Pending","timestamp":"2026-10-15T06:30:00Z",
		"submissionId":"6ba7b810-9dad-11d1-80b4-00c04fd430c8"}`

	rr := httptest.NewRecorder()
	newStoreRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/exec", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr.Body)
	assert.Equal(t, sheets.StatusSuccess, env.Status)
	assert.Equal(t, "Order added successfully", env.Message)
	assert.Equal(t, order.SheetFood, env.SheetUsed)

	assert.Equal(t, store.AppendInput{
		SheetName:     "Orders",
		OrderID:       "#LT1",
		Date:          "Sunday, 19 October",
		Time:          "12:30 PM",
		FlatNumber:    "4B",
		ApartmentName: "Green",
		Items:         "Samosa (4 pcs)",
		Total:         "₹80",
		Status:        "Pending",
		Timestamp:     "2026-10-15T06:30:00Z",
		SubmissionID:  "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
	}, got)
}

func TestStoreHandler_AppendErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "invalid", err: store.ErrInvalidRequest, wantStatus: http.StatusBadRequest, wantCode: sheets.CodeInvalidRequest},
		{name: "duplicate", err: order.ErrDuplicateOrderID, wantStatus: http.StatusConflict, wantCode: sheets.CodeDuplicateOrderID},
		{name: "locked", err: store.ErrLockUnavailable, wantStatus: http.StatusServiceUnavailable, wantCode: sheets.CodeLockUnavailable},
		{name: "internal", err: fmt.Errorf("boom"), wantStatus: http.StatusInternalServerError, wantCode: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockStoreService{
				AppendFunc: func(ctx context.Context, in store.AppendInput) (*store.Row, bool, error) {
					return nil, false, fmt.Errorf("service: %w", tt.err)
				},
			}

			rr := httptest.NewRecorder()
			newStoreRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"orderId":"#LT1"}`)))

			assert.Equal(t, tt.wantStatus, rr.Code)
			env := decodeEnvelope(t, rr.Body)
			assert.Equal(t, sheets.StatusError, env.Status)
			require.NotNil(t, env.Success)
			assert.False(t, *env.Success)
			assert.Equal(t, tt.wantCode, env.Code)
		})
	}
}

func TestStoreHandler_UpdateStatus(t *testing.T) {
	tests := []struct {
		name   string
		action string
		sheet  string
	}{
		{name: "food", action: sheets.ActionUpdateStatus, sheet: order.SheetFood},
		{name: "chocolate", action: sheets.ActionUpdateChocolateStatus, sheet: order.SheetChocolate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockStoreService{
				UpdateStatusFunc: func(ctx context.Context, sheet, orderID string, status order.Status) error {
					called = true
					assert.Equal(t, tt.sheet, sheet)
					assert.Equal(t, "#X1", orderID)
					assert.Equal(t, order.StatusDelivered, status)
					return nil
				},
			}
			body := fmt.Sprintf(`{"action":%q,"orderId":"#X1","status":"Delivered"}`, tt.action)

			rr := httptest.NewRecorder()
			newStoreRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/exec", bytes.NewBufferString(body)))

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.True(t, called)
			assert.Equal(t, sheets.StatusSuccess, decodeEnvelope(t, rr.Body).Status)
		})
	}
}

func TestStoreHandler_UpdateStatusNotFound(t *testing.T) {
	svc := &mockStoreService{
		UpdateStatusFunc: func(ctx context.Context, sheet, orderID string, status order.Status) error {
			return fmt.Errorf("service: %w", order.ErrOrderNotFound)
		},
	}

	rr := httptest.NewRecorder()
	newStoreRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/exec",
		bytes.NewBufferString(`{"action":"updateStatus","orderId":"#X1","status":"Delivered"}`)))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	env := decodeEnvelope(t, rr.Body)
	assert.Equal(t, sheets.CodeNotFound, env.Code)
	assert.Equal(t, "Order not found", env.Message)
}

func TestStoreHandler_MalformedBody(t *testing.T) {
	rr := httptest.NewRecorder()
	newStoreRouter(&mockStoreService{}).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/exec", bytes.NewBufferString("{")))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, sheets.CodeInvalidRequest, decodeEnvelope(t, rr.Body).Code)
}

func TestStoreHandler_Export(t *testing.T) {
	svc := &mockStoreService{
		ListFunc: func(ctx context.Context, requested string) (string, []store.Row, error) {
			assert.Equal(t, "chocolates_orders", requested)
			return order.SheetChocolate, []store.Row{{OrderID: "#CHO1", Status: "Pending", CreatedAt: createdAt}}, nil
		},
	}

	rr := httptest.NewRecorder()
	newStoreRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/export.xlsx?sheet=chocolates_orders", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rr.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=chocolates_orders.xlsx", rr.Header().Get("Content-Disposition"))

	file, err := xlsx.OpenBinary(rr.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets[0].Rows, 2)
	assert.Equal(t, "#CHO1", file.Sheets[0].Rows[1].Cells[0].String())
}

// The sheets client and the store handler must agree on the wire format.
func TestStoreHandler_RoundTripWithClient(t *testing.T) {
	svc := &mockStoreService{
		ListFunc: func(ctx context.Context, requested string) (string, []store.Row, error) {
			return order.SheetChocolate, []store.Row{{
				OrderID:   "#CHO1",
				Flat:      "12",
				Apartment: "Lake View",
				Items:     "Truffle (6 pcs)",
				Total:     "₹540",
				Status:    "In Progress",
				CreatedAt: createdAt,
				RowIndex:  2,
			}}, nil
		},
		UpdateStatusFunc: func(ctx context.Context, sheet, orderID string, status order.Status) error {
			if orderID != "#CHO1" {
				return order.ErrOrderNotFound
			}
			return nil
		},
	}
	server := httptest.NewServer(newStoreRouter(svc))
	defer server.Close()

	client := sheets.NewClient(sheets.StaticURL(server.URL+"/exec"), 5*time.Second, sheets.RetryPolicy{Attempts: 1})

	orders, err := client.FetchOrders(context.Background(), order.SheetChocolate, order.KindChocolate)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.Address{Flat: "12", Apartment: "Lake View"}, orders[0].Address)
	assert.Equal(t, order.StatusInProgress, orders[0].Status)
	assert.True(t, orders[0].Timestamp.Equal(createdAt))

	require.NoError(t, client.UpdateStatus(context.Background(), order.KindChocolate, "#CHO1", order.StatusDispatched))
	err = client.UpdateStatus(context.Background(), order.KindChocolate, "#CHO9", order.StatusDispatched)
	require.ErrorIs(t, err, order.ErrOrderNotFound)
}
