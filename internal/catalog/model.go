package catalog

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type Unit string

const (
	UnitPiece Unit = "piece"
	UnitKg    Unit = "kg"
	UnitPlate Unit = "plate"
	UnitDozen Unit = "dozen"
)

var (
	ErrUnknownItem   = errors.New("item is not in the catalog")
	ErrDuplicateItem = errors.New("duplicate item id in catalog")
	ErrInvalidMenu   = errors.New("invalid menu")
	ErrInvalidWindow = errors.New("invalid delivery window")
)

// MenuItem is immutable once the catalog is loaded.
type MenuItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Unit        Unit            `json:"unit"`
	CategoryID  string          `json:"category,omitempty"`
	Display     *int            `json:"display,omitempty"`
	Emoji       string          `json:"emoji,omitempty"`
	Icon        string          `json:"icon,omitempty"`
	Image       string          `json:"image,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Visible reports whether the item should be offered. Items without a
// display flag are shown.
func (m MenuItem) Visible() bool {
	return m.Display == nil || *m.Display == 1
}

type Category struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Items       []MenuItem `json:"items"`
}

// UnitLabel returns the short unit shown next to a quantity.
func UnitLabel(unit Unit, quantity int) string {
	switch Unit(strings.ToLower(string(unit))) {
	case UnitPiece:
		if quantity > 1 {
			return "pcs"
		}
		return "pc"
	case UnitKg:
		return "Kg"
	case UnitPlate:
		if quantity > 1 {
			return "plates"
		}
		return "plate"
	case UnitDozen:
		return "dozen"
	default:
		return string(unit)
	}
}
