package store

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/littletreat/internal/order"
)

var (
	ErrLockUnavailable = errors.New("sheet is locked by another writer")
	ErrInvalidRequest  = errors.New("invalid request")
)

// Row is one stored order line of a sheet.
type Row struct {
	ID           int64
	Sheet        string
	OrderID      string
	SubmissionID uuid.NullUUID
	DeliveryDate string
	DeliveryTime string
	CustomerName string
	Phone        string
	Flat         string
	Apartment    string
	Items        string
	Total        string
	Status       string
	CreatedAt    time.Time
	// RowIndex mirrors the spreadsheet row number: 1-based, after the header.
	RowIndex int
}

// ReadSheet resolves the sheet a read request targets. Only the chocolate
// sheet is honoured by name; anything else reads the food sheet.
func ReadSheet(requested string) string {
	if requested == order.SheetChocolate {
		return order.SheetChocolate
	}
	return order.SheetFood
}

// WriteSheet resolves the sheet an append targets. Unknown names are kept so
// a new storefront gets its own sheet on first write.
func WriteSheet(requested string) string {
	if requested == "" {
		return order.SheetFood
	}
	return requested
}

func isChocolateSheet(sheet string) bool {
	return sheet == order.SheetChocolate
}
