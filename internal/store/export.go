package store

import (
	"fmt"
	"io"
	"time"

	"github.com/tealeg/xlsx"
)

var (
	foodHeader      = []string{"Order ID", "Delivery Date", "Delivery Time", "Flat", "Apartment", "Items", "Total", "Status", "Ordered At"}
	chocolateHeader = []string{"Order ID", "Flat Number", "Apartment Name", "Items", "Total", "Status", "Timestamp"}
)

// WriteWorkbook renders rows as a single-sheet workbook laid out like the
// spreadsheet the storefront used to write to.
func WriteWorkbook(w io.Writer, sheet string, rows []Row) error {
	file := xlsx.NewFile()
	ws, err := file.AddSheet(sheet)
	if err != nil {
		return fmt.Errorf("export: failed to add sheet %s: %w", sheet, err)
	}

	header := foodHeader
	if isChocolateSheet(sheet) {
		header = chocolateHeader
	}
	headerRow := ws.AddRow()
	for _, h := range header {
		headerRow.AddCell().SetString(h)
	}

	for _, r := range rows {
		var values []string
		ts := r.CreatedAt.UTC().Format(time.RFC3339)
		if isChocolateSheet(sheet) {
			values = []string{r.OrderID, r.Flat, r.Apartment, r.Items, r.Total, r.Status, ts}
		} else {
			values = []string{r.OrderID, r.DeliveryDate, r.DeliveryTime, r.Flat, r.Apartment, r.Items, r.Total, r.Status, ts}
		}
		xr := ws.AddRow()
		for _, v := range values {
			xr.AddCell().SetString(v)
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("export: failed to write workbook: %w", err)
	}
	return nil
}
