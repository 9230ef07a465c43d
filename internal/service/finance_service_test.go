package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/haulops/internal/model"
)

func TestFinanceService_Summary(t *testing.T) {
	s := newStack(t)
	w := s.world()
	sub, err := s.subcontractors.Create(s.ctx, w.carrier.admin, SubcontractorInput{Name: "Sub"})
	require.NoError(t, err)
	d := s.driver(w.carrier.admin, "Marat", nil)

	s.operation(w.carrier.admin, w.client.company.ID, 1000, func(in *OperationInput) {
		in.SubcontractorID = &sub.ID
		in.PurchasePrice = ptr(600.0)
	})
	own := s.operation(w.carrier.admin, w.client.company.ID, 500, func(in *OperationInput) {
		in.DriverID = &d.ID
		in.DriverPay = ptr(50.0)
	})
	cancelled := s.operation(w.carrier.admin, w.client.company.ID, 300)
	_, err = s.operations.UpdateStatus(s.ctx, w.carrier.admin, cancelled.ID, model.OperationStatusCancelled)
	require.NoError(t, err)

	summary, err := s.finance.Summary(s.ctx, w.carrier.admin, Period{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.OperationCount)
	assert.Equal(t, 1500.0, summary.TotalRevenue)
	assert.Equal(t, 1500.0, summary.TotalUninvoiced)
	assert.Equal(t, 400.0, summary.TotalMargin)
	assert.InDelta(t, 0.2667, summary.MarginPercentage, 0.0001)
	assert.Equal(t, 600.0, summary.TotalOwedToSubcontractors)
	assert.Zero(t, summary.RealTimeProfit)

	invoice, err := s.billing.GenerateInvoice(s.ctx, w.carrier.admin, GenerateInvoiceInput{
		ClientCompanyID: w.client.company.ID,
		OperationIDs:    operationIDsOf(own),
	})
	require.NoError(t, err)
	for _, status := range []model.InvoiceStatus{model.InvoiceStatusSent, model.InvoiceStatusPaid} {
		_, err = s.billing.UpdateInvoiceStatus(s.ctx, w.carrier.admin, invoice.Invoice.ID, status)
		require.NoError(t, err)
	}
	_, err = s.billing.GeneratePayment(s.ctx, w.carrier.admin, GeneratePaymentInput{SubcontractorID: sub.ID})
	require.NoError(t, err)

	summary, err = s.finance.Summary(s.ctx, w.carrier.admin, Period{})
	require.NoError(t, err)
	assert.Equal(t, 600.0, summary.TotalInvoiced)
	assert.Equal(t, 1000.0, summary.TotalUninvoiced)
	assert.Zero(t, summary.TotalOwedToSubcontractors)
	assert.Zero(t, summary.RealTimeProfit)

	payroll, err := s.finance.Payroll(s.ctx, w.carrier.admin, Period{})
	require.NoError(t, err)
	require.Len(t, payroll, 1)
	assert.Equal(t, "Marat Driver", payroll[0].DriverName)
	assert.Equal(t, 50.0, payroll[0].TotalPay)
}

func TestFinanceService_Access(t *testing.T) {
	s := newStack(t)
	w := s.world()
	operator := s.user(w.carrier.company, model.RoleOperator)

	_, err := s.finance.Summary(s.ctx, operator, Period{})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = s.finance.Summary(s.ctx, w.client.admin, Period{})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err = s.finance.Payroll(s.ctx, w.carrier.admin, Period{From: &from, To: &from})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func operationIDsOf(ops ...*model.Operation) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(ops))
	for _, op := range ops {
		ids = append(ids, op.ID)
	}
	return ids
}
