package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/haulops/internal/config"
	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/policy"
	"github.com/nurpe/haulops/internal/repository"
)

// DocumentRenderer turns billing documents into PDFs.
type DocumentRenderer interface {
	Invoice(doc model.InvoiceDocument) ([]byte, error)
	Payment(doc model.PaymentDocument) ([]byte, error)
}

// BillingMetrics counts generated documents.
type BillingMetrics interface {
	InvoiceGenerated()
	PaymentGenerated()
}

type BillingService struct {
	companies  *repository.CompanyRepository
	subs       *repository.SubcontractorRepository
	operations *repository.OperationRepository
	invoices   *repository.InvoiceRepository
	payments   *repository.PaymentRepository
	renderer   DocumentRenderer
	metrics    BillingMetrics
	billing    config.BillingConfig
	log        zerolog.Logger
	now        func() time.Time
}

func NewBillingService(
	companies *repository.CompanyRepository,
	subs *repository.SubcontractorRepository,
	operations *repository.OperationRepository,
	invoices *repository.InvoiceRepository,
	payments *repository.PaymentRepository,
	renderer DocumentRenderer,
	metrics BillingMetrics,
	cfg *config.Config,
	log zerolog.Logger,
) *BillingService {
	return &BillingService{
		companies:  companies,
		subs:       subs,
		operations: operations,
		invoices:   invoices,
		payments:   payments,
		renderer:   renderer,
		metrics:    metrics,
		billing:    cfg.Billing,
		log:        log,
		now:        time.Now,
	}
}

type GenerateInvoiceInput struct {
	ClientCompanyID uuid.UUID
	OperationIDs    []uuid.UUID
	From            *time.Time
	To              *time.Time
}

type InvoiceDetail struct {
	Invoice    model.Invoice     `json:"invoice"`
	Operations []model.Operation `json:"operations"`
}

// GenerateInvoice bills the selected operations of one client in a single
// transaction. Overlapping concurrent requests yield one invoice and one
// conflict.
func (s *BillingService) GenerateInvoice(ctx context.Context, p model.Principal, input GenerateInvoiceInput) (*InvoiceDetail, error) {
	if err := authorize(p, policy.ActionManageInvoices); err != nil {
		return nil, err
	}
	if input.ClientCompanyID == uuid.Nil {
		return nil, invalidf("client_company_id is required")
	}
	if err := period(input.From, input.To); err != nil {
		return nil, err
	}
	tenant := p.Tenant()
	visible, err := s.companies.IsClientVisible(ctx, tenant, input.ClientCompanyID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrNotFound
	}

	now := s.now().UTC()
	issue := dateOnly(now)
	sel := repository.InvoiceSelection{
		TransportCompanyID: tenant,
		ClientCompanyID:    input.ClientCompanyID,
		OperationIDs:       input.OperationIDs,
		From:               input.From,
		To:                 input.To,
		NumberPrefix:       numberPrefix(s.billing.InvoicePrefix, now),
	}
	invoice, ops, err := s.invoices.Generate(ctx, sel, func(ops []model.Operation) (*model.Invoice, error) {
		totals := invoiceTotals(ops, s.billing.TaxRate)
		return &model.Invoice{
			Status:          model.InvoiceStatusPending,
			IssueDate:       issue,
			DueDate:         issue.AddDate(0, 0, s.billing.PaymentTermsDays),
			AmountExclTax:   totals.net,
			TaxRate:         s.billing.TaxRate,
			TaxAmount:       totals.tax,
			TotalAmount:     totals.total,
			CreatedByUserID: p.UserID,
		}, nil
	})
	if err != nil {
		return nil, translate(err)
	}

	s.metrics.InvoiceGenerated()
	s.log.Info().
		Str("invoice_id", invoice.ID.String()).
		Str("number", invoice.Number).
		Int("operations", len(ops)).
		Msg("invoice generated")
	return &InvoiceDetail{Invoice: *invoice, Operations: ops}, nil
}

type totals struct {
	net, tax, total float64
}

// invoiceTotals sums sale prices and applies the tax rate, rounding to cents.
func invoiceTotals(ops []model.Operation, taxRate float64) totals {
	net := decimal.Zero
	for _, op := range ops {
		if op.SalePrice != nil {
			net = net.Add(decimal.NewFromFloat(*op.SalePrice))
		}
	}
	net = net.Round(2)
	tax := net.Mul(decimal.NewFromFloat(taxRate)).Div(decimal.NewFromInt(100)).Round(2)
	return totals{
		net:   net.InexactFloat64(),
		tax:   tax.InexactFloat64(),
		total: net.Add(tax).InexactFloat64(),
	}
}

func numberPrefix(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d-", prefix, now.Year())
}

// invoiceScope picks the side of the invoice the caller sits on.
func invoiceScope(p model.Principal) (policy.RowScope, error) {
	if !policy.Allowed(p, policy.ActionViewInvoices) {
		return policy.RowScope{}, ErrPermissionDenied
	}
	tenant := p.Tenant()
	if p.CompanyType == model.CompanyTypeClient {
		return policy.RowScope{ClientCompanyID: &tenant}, nil
	}
	return policy.RowScope{TransportCompanyID: &tenant}, nil
}

func (s *BillingService) ListInvoices(ctx context.Context, p model.Principal, status *model.InvoiceStatus) ([]model.Invoice, error) {
	scope, err := invoiceScope(p)
	if err != nil {
		return nil, err
	}
	if status != nil && !status.Valid() {
		return nil, invalidf("invalid status")
	}
	return s.invoices.List(ctx, scope, status)
}

func (s *BillingService) GetInvoice(ctx context.Context, p model.Principal, id uuid.UUID) (*InvoiceDetail, error) {
	scope, err := invoiceScope(p)
	if err != nil {
		return nil, err
	}
	invoice, err := s.invoices.Get(ctx, scope, id)
	if err != nil {
		return nil, translate(err)
	}
	ops, err := s.operations.ListByInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range ops {
		redact(p, &ops[i])
	}
	return &InvoiceDetail{Invoice: *invoice, Operations: ops}, nil
}

// UpdateInvoiceStatus follows PENDING -> SENT -> PAID with CANCELLED
// reachable from PENDING and SENT.
func (s *BillingService) UpdateInvoiceStatus(ctx context.Context, p model.Principal, id uuid.UUID, next model.InvoiceStatus) (*model.Invoice, error) {
	if err := authorize(p, policy.ActionManageInvoices); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, invalidf("invalid status")
	}
	tenant := p.Tenant()
	invoice, err := s.invoices.Get(ctx, policy.RowScope{TransportCompanyID: &tenant}, id)
	if err != nil {
		return nil, translate(err)
	}
	if !invoice.Status.CanTransitionTo(next) {
		return nil, conflictf("cannot move invoice from %s to %s", invoice.Status, next)
	}

	now := s.now().UTC()
	if err := s.invoices.UpdateStatus(ctx, tenant, id, invoice.Status, next, now); err != nil {
		return nil, translate(err)
	}
	invoice.Status = next
	invoice.UpdatedAt = now
	if next == model.InvoiceStatusPaid {
		invoice.PaidAt = &now
	}
	return invoice, nil
}

func (s *BillingService) InvoicePDF(ctx context.Context, p model.Principal, id uuid.UUID) (*FileResult, error) {
	detail, err := s.GetInvoice(ctx, p, id)
	if err != nil {
		return nil, err
	}
	issuer, err := s.companies.GetByID(ctx, detail.Invoice.TransportCompanyID)
	if err != nil {
		return nil, translate(err)
	}
	client, err := s.companies.GetByID(ctx, detail.Invoice.ClientCompanyID)
	if err != nil {
		return nil, translate(err)
	}
	content, err := s.renderer.Invoice(model.InvoiceDocument{
		Invoice:    detail.Invoice,
		Issuer:     *issuer,
		Client:     *client,
		Operations: detail.Operations,
	})
	if err != nil {
		return nil, err
	}
	return &FileResult{
		FileName:    fmt.Sprintf("invoice-%s.pdf", sanitizeFileName(detail.Invoice.Number)),
		ContentType: "application/pdf",
		Content:     content,
	}, nil
}

// Subcontractor payments

type GeneratePaymentInput struct {
	SubcontractorID uuid.UUID
	OperationIDs    []uuid.UUID
	From            *time.Time
	To              *time.Time
	Note            string
}

type PaymentDetail struct {
	Payment    model.SubcontractorPayment `json:"payment"`
	Operations []model.Operation          `json:"operations"`
}

func (s *BillingService) GeneratePayment(ctx context.Context, p model.Principal, input GeneratePaymentInput) (*PaymentDetail, error) {
	if err := authorize(p, policy.ActionManagePayments); err != nil {
		return nil, err
	}
	if input.SubcontractorID == uuid.Nil {
		return nil, invalidf("subcontractor_id is required")
	}
	if err := period(input.From, input.To); err != nil {
		return nil, err
	}
	tenant := p.Tenant()
	if _, err := s.subs.Get(ctx, tenant, input.SubcontractorID); err != nil {
		return nil, translate(err)
	}

	now := s.now().UTC()
	sel := repository.PaymentSelection{
		TransportCompanyID: tenant,
		SubcontractorID:    input.SubcontractorID,
		OperationIDs:       input.OperationIDs,
		From:               input.From,
		To:                 input.To,
		NumberPrefix:       numberPrefix(s.billing.PaymentPrefix, now),
	}
	payment, ops, err := s.payments.Generate(ctx, sel, func(ops []model.Operation) (*model.SubcontractorPayment, error) {
		amount := decimal.Zero
		for _, op := range ops {
			amount = amount.Add(decimal.NewFromFloat(*op.PurchasePrice))
		}
		return &model.SubcontractorPayment{
			Amount:          amount.Round(2).InexactFloat64(),
			PaidAt:          now,
			Note:            input.Note,
			CreatedByUserID: p.UserID,
		}, nil
	})
	if err != nil {
		return nil, translate(err)
	}

	s.metrics.PaymentGenerated()
	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("number", payment.Number).
		Int("operations", len(ops)).
		Msg("subcontractor payment generated")
	return &PaymentDetail{Payment: *payment, Operations: ops}, nil
}

func (s *BillingService) ListPayments(ctx context.Context, p model.Principal, subcontractorID *uuid.UUID) ([]model.SubcontractorPayment, error) {
	if err := authorize(p, policy.ActionManagePayments); err != nil {
		return nil, err
	}
	return s.payments.List(ctx, p.Tenant(), subcontractorID)
}

func (s *BillingService) GetPayment(ctx context.Context, p model.Principal, id uuid.UUID) (*PaymentDetail, error) {
	if err := authorize(p, policy.ActionManagePayments); err != nil {
		return nil, err
	}
	payment, err := s.payments.Get(ctx, p.Tenant(), id)
	if err != nil {
		return nil, translate(err)
	}
	ops, err := s.operations.ListByPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PaymentDetail{Payment: *payment, Operations: ops}, nil
}

func (s *BillingService) PaymentPDF(ctx context.Context, p model.Principal, id uuid.UUID) (*FileResult, error) {
	detail, err := s.GetPayment(ctx, p, id)
	if err != nil {
		return nil, err
	}
	issuer, err := s.companies.GetByID(ctx, detail.Payment.TransportCompanyID)
	if err != nil {
		return nil, translate(err)
	}
	sub, err := s.subs.Get(ctx, detail.Payment.TransportCompanyID, detail.Payment.SubcontractorID)
	if err != nil {
		return nil, translate(err)
	}
	content, err := s.renderer.Payment(model.PaymentDocument{
		Payment:       detail.Payment,
		Issuer:        *issuer,
		Subcontractor: *sub,
		Operations:    detail.Operations,
	})
	if err != nil {
		return nil, err
	}
	return &FileResult{
		FileName:    fmt.Sprintf("payment-%s.pdf", sanitizeFileName(detail.Payment.Number)),
		ContentType: "application/pdf",
		Content:     content,
	}, nil
}
