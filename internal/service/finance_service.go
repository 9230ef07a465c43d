package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nurpe/haulops/internal/finance"
	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/policy"
	"github.com/nurpe/haulops/internal/repository"
)

type FinanceService struct {
	operations *repository.OperationRepository
	invoices   *repository.InvoiceRepository
	payments   *repository.PaymentRepository
	drivers    *repository.DriverRepository
}

func NewFinanceService(
	operations *repository.OperationRepository,
	invoices *repository.InvoiceRepository,
	payments *repository.PaymentRepository,
	drivers *repository.DriverRepository,
) *FinanceService {
	return &FinanceService{operations: operations, invoices: invoices, payments: payments, drivers: drivers}
}

type Period struct {
	From *time.Time
	To   *time.Time
}

// Summary fetches the tenant's operations, invoices and payments in
// parallel and reduces them to dashboard figures.
func (s *FinanceService) Summary(ctx context.Context, p model.Principal, period Period) (*model.FinanceSummary, error) {
	if err := authorize(p, policy.ActionViewFinance); err != nil {
		return nil, err
	}
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	tenant := p.Tenant()

	var (
		ops      []model.Operation
		invoices []model.Invoice
		payments []model.SubcontractorPayment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ops, err = s.operations.ListForTenant(gctx, tenant, period.From, period.To)
		return err
	})
	g.Go(func() error {
		var err error
		invoices, err = s.invoices.ListForTenant(gctx, tenant, period.From, period.To)
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = s.payments.ListForTenant(gctx, tenant, period.From, period.To)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := finance.Summarize(ops, invoices, payments)
	return &summary, nil
}

// Payroll sums driver pay per driver over the period.
func (s *FinanceService) Payroll(ctx context.Context, p model.Principal, period Period) ([]model.DriverPayroll, error) {
	if err := authorize(p, policy.ActionViewFinance); err != nil {
		return nil, err
	}
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	ops, err := s.operations.ListForTenant(ctx, p.Tenant(), period.From, period.To)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, op := range ops {
		if op.DriverID != nil {
			ids = append(ids, *op.DriverID)
		}
	}
	drivers, err := s.drivers.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return finance.Payroll(ops, drivers), nil
}

func checkPeriod(p Period) error {
	return period(p.From, p.To)
}
