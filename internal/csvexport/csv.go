// Package csvexport writes operation listings as CSV.
package csvexport

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/nurpe/haulops/internal/model"
)

var header = []string{
	"reference",
	"status",
	"client",
	"pickup_address",
	"delivery_address",
	"pickup_at",
	"delivery_at",
	"driver",
	"vehicle",
	"subcontractor",
	"sale_price",
	"purchase_price",
	"driver_pay",
	"invoiced",
	"created_at",
}

type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Operations(report model.OperationReport) ([]byte, error) {
	var buf bytes.Buffer
	out := csv.NewWriter(&buf)

	if err := out.Write(header); err != nil {
		return nil, err
	}
	for _, row := range report.Rows {
		record := []string{
			row.Reference,
			string(row.Status),
			row.ClientName,
			row.PickupAddress,
			row.DeliveryAddress,
			formatTime(row.PickupAt),
			formatTime(row.DeliveryAt),
			row.DriverName,
			row.VehiclePlate,
			row.SubcontractorName,
			formatAmount(row.SalePrice),
			formatAmount(row.PurchasePrice),
			formatAmount(row.DriverPay),
			strconv.FormatBool(row.IsInvoiced()),
			row.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := out.Write(record); err != nil {
			return nil, err
		}
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// formatAmount leaves missing prices empty rather than writing zero.
func formatAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
