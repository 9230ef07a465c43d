package csvexport

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/haulops/internal/model"
)

func TestWriter_Operations(t *testing.T) {
	sale := 120.5
	invoice := uuid.New()
	created := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	content, err := NewWriter().Operations(model.OperationReport{
		Rows: []model.OperationRow{
			{
				Operation: model.Operation{
					Reference:     "OP-1",
					Status:        model.OperationStatusDelivered,
					PickupAddress: "Dock 1, \"North\"",
					SalePrice:     &sale,
					InvoiceID:     &invoice,
					CreatedAt:     created,
				},
				ClientName: "Acme",
			},
			{Operation: model.Operation{Reference: "OP-2", Status: model.OperationStatusPlanned, CreatedAt: created}},
		},
	})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, header, records[0])
	assert.Equal(t, "Dock 1, \"North\"", records[1][3])
	assert.Equal(t, "120.50", records[1][10])
	assert.Equal(t, "", records[1][11], "missing price stays empty")
	assert.Equal(t, "true", records[1][13])
	assert.Equal(t, "2026-02-03T04:05:06Z", records[1][14])
	assert.Equal(t, "false", records[2][13])
}
