// Package finance reduces pre-fetched operations, invoices and payments into
// dashboard figures. Nothing here performs I/O.
//
// Operations without a price are skipped, never counted as zero.
package finance

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/haulops/internal/model"
)

func sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

func dec(v *float64) (decimal.Decimal, bool) {
	if v == nil {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(*v), true
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func revenue(ops []model.Operation, keep func(model.Operation) bool) decimal.Decimal {
	total := decimal.Zero
	for _, op := range ops {
		if keep != nil && !keep(op) {
			continue
		}
		if price, ok := dec(op.SalePrice); ok {
			total = total.Add(price)
		}
	}
	return total
}

// TotalRevenue sums sale prices of priced operations.
func TotalRevenue(ops []model.Operation) float64 {
	return toFloat(revenue(ops, nil))
}

// TotalInvoiced sums invoice totals. Cancelled invoices no longer bill anything.
func TotalInvoiced(invoices []model.Invoice) float64 {
	amounts := make([]decimal.Decimal, 0, len(invoices))
	for _, inv := range invoices {
		if inv.Status == model.InvoiceStatusCancelled {
			continue
		}
		amounts = append(amounts, decimal.NewFromFloat(inv.TotalAmount))
	}
	return toFloat(sum(amounts))
}

// TotalUninvoiced is revenue restricted to operations not linked to an invoice.
func TotalUninvoiced(ops []model.Operation) float64 {
	return toFloat(revenue(ops, func(op model.Operation) bool { return !op.IsInvoiced() }))
}

type Margin struct {
	Total      float64
	Average    float64
	Percentage float64
	Count      int
}

// Margins computes margin figures over operations carrying both prices.
// Percentage is a fraction of total revenue across all priced operations.
func Margins(ops []model.Operation) Margin {
	total := decimal.Zero
	count := 0
	for _, op := range ops {
		sale, okSale := dec(op.SalePrice)
		purchase, okPurchase := dec(op.PurchasePrice)
		if !okSale || !okPurchase {
			continue
		}
		total = total.Add(sale.Sub(purchase))
		count++
	}

	m := Margin{Total: toFloat(total), Count: count}
	if count > 0 {
		m.Average = toFloat(total.Div(decimal.NewFromInt(int64(count))))
	}
	if rev := revenue(ops, nil); !rev.IsZero() {
		m.Percentage, _ = total.Div(rev).Float64()
	}
	return m
}

// TotalOwedToSubcontractors sums purchase prices of subcontracted operations
// that have not been settled yet.
func TotalOwedToSubcontractors(ops []model.Operation) float64 {
	total := decimal.Zero
	for _, op := range ops {
		if !op.IsSubcontracted || op.SubcontractorPaid {
			continue
		}
		if price, ok := dec(op.PurchasePrice); ok {
			total = total.Add(price)
		}
	}
	return toFloat(total)
}

// RealTimeProfit is a cash view: money received on paid invoices minus money
// paid out to subcontractors. It is not an accrual profit.
func RealTimeProfit(invoices []model.Invoice, payments []model.SubcontractorPayment) float64 {
	in := decimal.Zero
	for _, inv := range invoices {
		if inv.Status == model.InvoiceStatusPaid {
			in = in.Add(decimal.NewFromFloat(inv.TotalAmount))
		}
	}
	out := decimal.Zero
	for _, p := range payments {
		out = out.Add(decimal.NewFromFloat(p.Amount))
	}
	return toFloat(in.Sub(out))
}

func Summarize(ops []model.Operation, invoices []model.Invoice, payments []model.SubcontractorPayment) model.FinanceSummary {
	margin := Margins(ops)
	return model.FinanceSummary{
		OperationCount:            len(ops),
		TotalRevenue:              TotalRevenue(ops),
		TotalInvoiced:             TotalInvoiced(invoices),
		TotalUninvoiced:           TotalUninvoiced(ops),
		TotalMargin:               margin.Total,
		AverageMargin:             margin.Average,
		MarginPercentage:          margin.Percentage,
		TotalOwedToSubcontractors: TotalOwedToSubcontractors(ops),
		RealTimeProfit:            RealTimeProfit(invoices, payments),
	}
}

// Payroll groups driver pay by driver. Operations without a driver are
// ignored; operations without driver pay still count towards the total of
// jobs driven.
func Payroll(ops []model.Operation, drivers []model.Driver) []model.DriverPayroll {
	names := make(map[uuid.UUID]string, len(drivers))
	for _, d := range drivers {
		names[d.ID] = d.FullName()
	}

	type acc struct {
		count int
		pay   decimal.Decimal
	}
	byDriver := make(map[uuid.UUID]*acc)
	for _, op := range ops {
		if op.DriverID == nil {
			continue
		}
		a, ok := byDriver[*op.DriverID]
		if !ok {
			a = &acc{pay: decimal.Zero}
			byDriver[*op.DriverID] = a
		}
		a.count++
		if pay, ok := dec(op.DriverPay); ok {
			a.pay = a.pay.Add(pay)
		}
	}

	result := make([]model.DriverPayroll, 0, len(byDriver))
	for id, a := range byDriver {
		result = append(result, model.DriverPayroll{
			DriverID:       id,
			DriverName:     names[id],
			OperationCount: a.count,
			TotalPay:       toFloat(a.pay),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DriverName != result[j].DriverName {
			return result[i].DriverName < result[j].DriverName
		}
		return result[i].DriverID.String() < result[j].DriverID.String()
	})
	return result
}
