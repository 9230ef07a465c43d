package excel

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/haulops/internal/finance"
	"github.com/nurpe/haulops/internal/model"
)

const summarySheet = "Summary"

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Operations writes a summary sheet followed by one sheet per client.
func (g *Generator) Operations(report model.OperationReport) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	groups := groupByClient(report.Rows)
	if err := g.writeSummary(file, report, groups); err != nil {
		return nil, err
	}

	usedNames := map[string]struct{}{summarySheet: {}}
	for _, group := range groups {
		sheetName := buildSheetName(group.name, group.id, usedNames)
		usedNames[sheetName] = struct{}{}

		if _, err := file.NewSheet(sheetName); err != nil {
			return nil, err
		}
		if err := g.writeDetail(file, sheetName, group); err != nil {
			return nil, err
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type clientGroup struct {
	id   uuid.UUID
	name string
	rows []model.OperationRow
}

func groupByClient(rows []model.OperationRow) []clientGroup {
	index := make(map[uuid.UUID]int)
	var groups []clientGroup
	for _, row := range rows {
		id := uuid.Nil
		if row.ClientCompanyID != nil {
			id = *row.ClientCompanyID
		}
		pos, ok := index[id]
		if !ok {
			name := row.ClientName
			if id == uuid.Nil {
				name = "No client"
			}
			groups = append(groups, clientGroup{id: id, name: name})
			pos = len(groups) - 1
			index[id] = pos
		}
		groups[pos].rows = append(groups[pos].rows, row)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].name < groups[j].name })
	return groups
}

func (g *Generator) writeSummary(file *excelize.File, report model.OperationReport, groups []clientGroup) error {
	ops := report.Operations()
	margin := finance.Margins(ops)

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(summarySheet, cell, value)
	}

	set("A1", "Company")
	set("B1", report.Company.Name)
	set("A2", "Generated at")
	set("B2", formatDateTime(report.GeneratedAt))
	set("A3", "Period start")
	set("B3", formatDatePtr(report.From))
	set("A4", "Period end")
	set("B4", formatDatePtr(report.To))
	set("A5", "Operations")
	set("B5", len(ops))
	set("A6", "Revenue")
	set("B6", formatMoney(finance.TotalRevenue(ops)))
	set("A7", "Uninvoiced")
	set("B7", formatMoney(finance.TotalUninvoiced(ops)))
	set("A8", "Margin")
	set("B8", formatMoney(margin.Total))

	tableRow := 10
	set(fmt.Sprintf("A%d", tableRow), "Client")
	set(fmt.Sprintf("B%d", tableRow), "Operations")
	set(fmt.Sprintf("C%d", tableRow), "Revenue")

	for i, group := range groups {
		row := tableRow + 1 + i
		groupOps := make([]model.Operation, len(group.rows))
		for j, r := range group.rows {
			groupOps[j] = r.Operation
		}
		set(fmt.Sprintf("A%d", row), group.name)
		set(fmt.Sprintf("B%d", row), len(group.rows))
		set(fmt.Sprintf("C%d", row), formatMoney(finance.TotalRevenue(groupOps)))
	}

	_ = file.SetColWidth(summarySheet, "A", "A", 40)
	_ = file.SetColWidth(summarySheet, "B", "C", 18)
	return nil
}

var detailHeaders = []string{
	"Reference",
	"Status",
	"Pickup",
	"Delivery",
	"Pickup at",
	"Delivery at",
	"Driver",
	"Vehicle",
	"Subcontractor",
	"Sale price",
	"Purchase price",
	"Invoiced",
}

func (g *Generator) writeDetail(file *excelize.File, sheet string, group clientGroup) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Client")
	set("B1", group.name)
	set("A2", "Operations")
	set("B2", len(group.rows))

	tableRow := 4
	for i, header := range detailHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, op := range group.rows {
		values := []interface{}{
			op.Reference,
			string(op.Status),
			op.PickupAddress,
			op.DeliveryAddress,
			formatDateTimePtr(op.PickupAt),
			formatDateTimePtr(op.DeliveryAt),
			op.DriverName,
			op.VehiclePlate,
			op.SubcontractorName,
			formatFloat(op.SalePrice),
			formatFloat(op.PurchasePrice),
			yesNo(op.IsInvoiced()),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, tableRow+1+i)
			set(cell, value)
		}
	}

	_ = file.SetColWidth(sheet, "A", "B", 16)
	_ = file.SetColWidth(sheet, "C", "D", 32)
	_ = file.SetColWidth(sheet, "E", "F", 20)
	_ = file.SetColWidth(sheet, "G", "I", 24)
	_ = file.SetColWidth(sheet, "J", "L", 14)
	return nil
}

func buildSheetName(name string, id uuid.UUID, used map[string]struct{}) string {
	base := strings.TrimSpace(name)
	if base == "" {
		base = id.String()
	}
	base = sanitizeSheetName(base)

	if len(base) > 31 {
		base = base[:31]
	}

	nameCandidate := base
	counter := 2
	for {
		if _, exists := used[nameCandidate]; !exists {
			return nameCandidate
		}
		suffix := fmt.Sprintf("-%d", counter)
		trimmed := base
		if len(trimmed)+len(suffix) > 31 {
			trimmed = trimmed[:31-len(suffix)]
		}
		nameCandidate = trimmed + suffix
		counter++
	}
}

func sanitizeSheetName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Sheet"
	}

	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
	)
	value = strings.TrimSpace(replacer.Replace(value))
	if value == "" {
		return "Sheet"
	}
	return value
}

func formatDatePtr(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatDateTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDateTime(*t)
}

func formatFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return formatMoney(*value)
}

func formatMoney(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
