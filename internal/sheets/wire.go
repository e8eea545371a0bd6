package sheets

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/littletreat/internal/order"
)

// Actions understood by the order store on POST.
const (
	ActionGetOrders             = "getOrders"
	ActionUpdateStatus          = "updateStatus"
	ActionUpdateChocolateStatus = "updateChocolateStatus"
)

// Error codes carried in the "code" field of an error envelope.
const (
	CodeDuplicateOrderID = "duplicate_order_id"
	CodeNotFound         = "not_found"
	CodeLockUnavailable  = "lock_unavailable"
	CodeInvalidRequest   = "invalid_request"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the response body of every store call.
type Envelope struct {
	Status    string      `json:"status"`
	Success   *bool       `json:"success,omitempty"`
	Message   string      `json:"message,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"`
	Orders    []WireOrder `json:"orders,omitempty"`
	Count     *int        `json:"count,omitempty"`
	SheetUsed string      `json:"sheetUsed,omitempty"`
}

// WireOrder is the union of the food and chocolate row schemas.
type WireOrder struct {
	OrderID       Text `json:"orderId"`
	DeliveryDate  Text `json:"deliveryDate,omitempty"`
	DeliveryTime  Text `json:"deliveryTime,omitempty"`
	Flat          Text `json:"flat,omitempty"`
	Apartment     Text `json:"apartment,omitempty"`
	FlatNumber    Text `json:"flatNumber,omitempty"`
	ApartmentName Text `json:"apartmentName,omitempty"`
	Items         Text `json:"items"`
	Total         Text `json:"total"`
	Status        Text `json:"status"`
	Timestamp     Text `json:"timestamp"`
	RowIndex      int  `json:"rowIndex"`
}

// AppendRequest is the POST body that adds a row to a sheet.
type AppendRequest struct {
	SheetName     string `json:"sheetName"`
	OrderID       string `json:"orderId"`
	Date          string `json:"date,omitempty"`
	Time          string `json:"time,omitempty"`
	CustomerName  string `json:"customerName"`
	Phone         string `json:"phone"`
	FlatNumber    string `json:"flatNumber"`
	ApartmentName string `json:"apartmentName"`
	Items         string `json:"items"`
	Total         string `json:"total"`
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	SubmissionID  string `json:"submissionId,omitempty"`
}

type UpdateStatusRequest struct {
	Action    string `json:"action"`
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	SheetName string `json:"sheetName,omitempty"`
}

// Text decodes a JSON string, number or boolean into a string. Spreadsheet
// cells come back typed, so a total may arrive as 380 instead of "₹380".
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*t = Text(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	*t = Text(strconv.FormatBool(b))
	return nil
}

func (t Text) String() string {
	return string(t)
}

// toOrder maps a row in kind's schema onto the domain order. Rows written in
// the other storefront's schema are still mapped but logged.
func (w WireOrder) toOrder(kind order.Kind) order.Order {
	o := order.Order{
		OrderID:      w.OrderID.String(),
		DeliveryDate: order.FormatDeliveryDate(w.DeliveryDate.String()),
		DeliveryTime: order.FormatDeliveryTime(w.DeliveryTime.String()),
		Items:        w.Items.String(),
		Total:        w.Total.String(),
		Status:       order.Status(w.Status),
		RowIndex:     w.RowIndex,
	}
	if o.Status == "" {
		o.Status = order.StatusPending
	}

	flat, apartment := w.Flat, w.Apartment
	if kind == order.KindChocolate {
		flat, apartment = w.FlatNumber, w.ApartmentName
		// Chocolate rows carry no delivery slot.
		o.DeliveryDate, o.DeliveryTime = "", ""
	}
	if flat == "" && apartment == "" {
		alternateFlat, alternateApartment := w.FlatNumber, w.ApartmentName
		if kind == order.KindChocolate {
			alternateFlat, alternateApartment = w.Flat, w.Apartment
		}
		if alternateFlat != "" || alternateApartment != "" {
			log.Warn().Str("order_id", o.OrderID).Stringer("kind", kind).Msg("sheets: order row uses the other storefront's schema")
			flat, apartment = alternateFlat, alternateApartment
		}
	}
	o.Address = order.Address{Flat: flat.String(), Apartment: apartment.String()}

	if ts := w.Timestamp.String(); ts != "" {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			log.Warn().Err(err).Str("order_id", o.OrderID).Str("timestamp", ts).Msg("sheets: unparseable order timestamp")
		} else {
			o.Timestamp = parsed
		}
	}
	return o
}

func newAppendRequest(sheet string, o order.Order, submissionID string) AppendRequest {
	req := AppendRequest{
		SheetName:     sheet,
		OrderID:       o.OrderID,
		FlatNumber:    o.Address.Flat,
		ApartmentName: o.Address.Apartment,
		Items:         o.Items,
		Total:         o.Total,
		Status:        o.Status.String(),
		Timestamp:     o.Timestamp.UTC().Format(time.RFC3339Nano),
		SubmissionID:  submissionID,
	}
	if o.DeliveryDate != "" || o.DeliveryTime != "" {
		req.Date = o.DeliveryDate
		req.Time = o.DeliveryTime
		if req.Date == "" {
			req.Date = "N/A"
		}
	}
	return req
}
