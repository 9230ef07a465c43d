package finance

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/nurpe/haulops/internal/model"
)

func price(v float64) *float64 { return &v }

func TestMargins_ExcludesMissingPrices(t *testing.T) {
	ops := []model.Operation{
		{SalePrice: price(100), PurchasePrice: price(60)},
		{SalePrice: price(200)},
	}

	m := Margins(ops)
	assert.Equal(t, 40.0, m.Total)
	assert.Equal(t, 40.0, m.Average)
	assert.Equal(t, 1, m.Count)
	assert.InDelta(t, 40.0/300.0, m.Percentage, 1e-9)
	assert.Equal(t, 300.0, TotalRevenue(ops))
}

func TestMargins_Empty(t *testing.T) {
	m := Margins(nil)
	assert.Zero(t, m.Total)
	assert.Zero(t, m.Average)
	assert.Zero(t, m.Percentage)
}

func TestRevenue(t *testing.T) {
	invoiceID := uuid.New()
	ops := []model.Operation{
		{SalePrice: price(100.10), InvoiceID: &invoiceID},
		{SalePrice: price(200.20)},
		{SalePrice: nil},
	}

	assert.Equal(t, 300.30, TotalRevenue(ops))
	assert.Equal(t, 200.20, TotalUninvoiced(ops))
}

func TestTotalInvoiced_SkipsCancelled(t *testing.T) {
	invoices := []model.Invoice{
		{Status: model.InvoiceStatusPending, TotalAmount: 120},
		{Status: model.InvoiceStatusPaid, TotalAmount: 240},
		{Status: model.InvoiceStatusCancelled, TotalAmount: 1000},
	}
	assert.Equal(t, 360.0, TotalInvoiced(invoices))
}

func TestTotalOwedToSubcontractors(t *testing.T) {
	ops := []model.Operation{
		{IsSubcontracted: true, PurchasePrice: price(80)},
		{IsSubcontracted: true, SubcontractorPaid: true, PurchasePrice: price(50)},
		{IsSubcontracted: true},
		{IsSubcontracted: false, PurchasePrice: price(30)},
	}
	assert.Equal(t, 80.0, TotalOwedToSubcontractors(ops))
}

func TestRealTimeProfit(t *testing.T) {
	invoices := []model.Invoice{
		{Status: model.InvoiceStatusPaid, TotalAmount: 1200},
		{Status: model.InvoiceStatusSent, TotalAmount: 600},
	}
	payments := []model.SubcontractorPayment{{Amount: 300}, {Amount: 150.5}}
	assert.Equal(t, 749.5, RealTimeProfit(invoices, payments))
}

func TestSummarize(t *testing.T) {
	invoiceID := uuid.New()
	ops := []model.Operation{
		{SalePrice: price(100), PurchasePrice: price(60), InvoiceID: &invoiceID, IsSubcontracted: true, SubcontractorPaid: true},
		{SalePrice: price(200), PurchasePrice: price(150), IsSubcontracted: true},
	}
	invoices := []model.Invoice{{Status: model.InvoiceStatusPaid, TotalAmount: 120}}
	payments := []model.SubcontractorPayment{{Amount: 60}}

	s := Summarize(ops, invoices, payments)
	assert.Equal(t, 2, s.OperationCount)
	assert.Equal(t, 300.0, s.TotalRevenue)
	assert.Equal(t, 120.0, s.TotalInvoiced)
	assert.Equal(t, 200.0, s.TotalUninvoiced)
	assert.Equal(t, 90.0, s.TotalMargin)
	assert.Equal(t, 45.0, s.AverageMargin)
	assert.InDelta(t, 0.3, s.MarginPercentage, 1e-9)
	assert.Equal(t, 150.0, s.TotalOwedToSubcontractors)
	assert.Equal(t, 60.0, s.RealTimeProfit)
}

func TestPayroll(t *testing.T) {
	alice := model.Driver{ID: uuid.New(), FirstName: "Alice", LastName: "Martin"}
	bob := model.Driver{ID: uuid.New(), FirstName: "Bob", LastName: "Durand"}
	ops := []model.Operation{
		{DriverID: &alice.ID, DriverPay: price(100)},
		{DriverID: &alice.ID, DriverPay: price(50.25)},
		{DriverID: &bob.ID},
		{DriverPay: price(999)},
	}

	rows := Payroll(ops, []model.Driver{alice, bob})
	if assert.Len(t, rows, 2) {
		assert.Equal(t, "Alice Martin", rows[0].DriverName)
		assert.Equal(t, 2, rows[0].OperationCount)
		assert.Equal(t, 150.25, rows[0].TotalPay)
		assert.Equal(t, "Bob Durand", rows[1].DriverName)
		assert.Equal(t, 1, rows[1].OperationCount)
		assert.Zero(t, rows[1].TotalPay)
	}
}
