package excel

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/haulops/internal/model"
)

func price(v float64) *float64 { return &v }

func TestGenerator_Operations(t *testing.T) {
	acme, globex := uuid.New(), uuid.New()
	report := model.OperationReport{
		Company:     model.Company{Name: "Haulers"},
		GeneratedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Rows: []model.OperationRow{
			{Operation: model.Operation{Reference: "OP-1", ClientCompanyID: &acme, Status: model.OperationStatusDelivered, SalePrice: price(100), PurchasePrice: price(60)}, ClientName: "Acme", DriverName: "Ann Lee"},
			{Operation: model.Operation{Reference: "OP-2", ClientCompanyID: &globex, Status: model.OperationStatusPlanned, SalePrice: price(200)}, ClientName: "Globex"},
			{Operation: model.Operation{Reference: "OP-3", ClientCompanyID: &acme, Status: model.OperationStatusPlanned}, ClientName: "Acme"},
		},
	}

	content, err := NewGenerator().Operations(report)
	require.NoError(t, err)

	file, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer file.Close()

	assert.Equal(t, []string{"Summary", "Acme", "Globex"}, file.GetSheetList())

	revenue, err := file.GetCellValue("Summary", "B6")
	require.NoError(t, err)
	assert.Equal(t, "300.00", revenue)

	margin, err := file.GetCellValue("Summary", "B8")
	require.NoError(t, err)
	assert.Equal(t, "40.00", margin)

	rows, err := file.GetRows("Acme")
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "OP-1", rows[4][0])
	assert.Equal(t, "Ann Lee", rows[4][6])
}

func TestBuildSheetName(t *testing.T) {
	used := map[string]struct{}{"Summary": {}}
	id := uuid.New()

	first := buildSheetName("A/B:C", id, used)
	assert.Equal(t, "A-B-C", first)
	used[first] = struct{}{}

	assert.Equal(t, "A-B-C-2", buildSheetName("A/B:C", id, used))
	assert.Equal(t, strings.Repeat("x", 31), buildSheetName(strings.Repeat("x", 40), id, used))
	assert.Equal(t, id.String()[:31], buildSheetName("  ", id, used))
}
