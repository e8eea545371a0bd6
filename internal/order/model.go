package order

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusDispatched Status = "Dispatched"
	StatusDelivered  Status = "Delivered"
)

func (s Status) String() string {
	return string(s)
}

// Kind selects the storefront variant: wire schema, workflow and id prefix.
type Kind string

const (
	KindFood      Kind = "food"
	KindChocolate Kind = "chocolate"
)

func (k Kind) String() string {
	return string(k)
}

// Sheet names used by the order store for each storefront.
const (
	SheetFood      = "Orders"
	SheetChocolate = "chocolates_orders"
)

// DefaultSheet returns the sheet a storefront writes to when none is configured.
func (k Kind) DefaultSheet() string {
	if k == KindChocolate {
		return SheetChocolate
	}
	return SheetFood
}

// DefaultPrefix returns the order id prefix used by the storefront.
func (k Kind) DefaultPrefix() string {
	if k == KindChocolate {
		return "CHO"
	}
	return "LT"
}

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindFood, KindChocolate:
		return Kind(s), nil
	default:
		return "", ErrUnknownKind
	}
}

var (
	ErrUnknownKind   = errors.New("unknown storefront kind")
	ErrInvalidStatus = errors.New("status is not part of the workflow")
	ErrOrderNotFound = errors.New("order not found")

	// ErrDuplicateOrderID is returned by the order store when the id is
	// already taken in the target sheet.
	ErrDuplicateOrderID = errors.New("order id already exists")
)

type Address struct {
	Flat      string `json:"flat"`
	Apartment string `json:"apartment"`
}

// Order is a submitted cart plus delivery metadata. Items and Total are the
// human readable strings stored by the order store.
type Order struct {
	OrderID      string    `json:"orderId"`
	DeliveryDate string    `json:"deliveryDate,omitempty"`
	DeliveryTime string    `json:"deliveryTime,omitempty"`
	Address      Address   `json:"address"`
	Items        string    `json:"items"`
	Total        string    `json:"total"`
	Status       Status    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	RowIndex     int       `json:"rowIndex,omitempty"`
}
