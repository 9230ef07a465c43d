package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/policy"
)

// InvoiceSelection describes which operations an invoice should claim.
// With OperationIDs empty every eligible operation in the period is taken.
type InvoiceSelection struct {
	TransportCompanyID uuid.UUID
	ClientCompanyID    uuid.UUID
	OperationIDs       []uuid.UUID
	From               *time.Time
	To                 *time.Time
	// NumberPrefix is the per-year prefix, e.g. "INV-2026-".
	NumberPrefix string
}

// InvoiceBuilder computes the invoice for the claimed operations. The
// repository assigns the number and persists it.
type InvoiceBuilder func(ops []model.Operation) (*model.Invoice, error)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Generate selects, numbers, inserts and links in one transaction. When a
// concurrent call linked any of the selected operations first, nothing is
// written and ErrAlreadyClaimed is returned.
func (r *InvoiceRepository) Generate(ctx context.Context, sel InvoiceSelection, build InvoiceBuilder) (*model.Invoice, []model.Operation, error) {
	var (
		invoice *model.Invoice
		ops     []model.Operation
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ops, err = selectInvoiceable(tx, sel)
		if err != nil {
			return err
		}

		invoice, err = build(ops)
		if err != nil {
			return err
		}
		number, err := nextNumber(tx, &model.Invoice{}, numberKindInvoice, sel.TransportCompanyID, sel.NumberPrefix)
		if err != nil {
			return err
		}
		invoice.Number = number
		invoice.TransportCompanyID = sel.TransportCompanyID
		invoice.ClientCompanyID = sel.ClientCompanyID
		if err := tx.Create(invoice).Error; err != nil {
			return err
		}

		ids := operationIDs(ops)
		res := tx.Model(&model.Operation{}).
			Where("id IN ? AND invoice_id IS NULL", ids).
			Updates(map[string]interface{}{"invoice_id": invoice.ID, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return ErrAlreadyClaimed
		}
		for i := range ops {
			ops[i].InvoiceID = &invoice.ID
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return invoice, ops, nil
}

func selectInvoiceable(tx *gorm.DB, sel InvoiceSelection) ([]model.Operation, error) {
	var ops []model.Operation
	if len(sel.OperationIDs) > 0 {
		ids := uniqueIDs(sel.OperationIDs)
		err := lockRows(tx).
			Scopes(transportTenant(sel.TransportCompanyID)).
			Where("id IN ?", ids).
			Order("created_at ASC").
			Find(&ops).Error
		if err != nil {
			return nil, err
		}
		if len(ops) != len(ids) {
			return nil, fmt.Errorf("%w: unknown operation", ErrIneligible)
		}
		for _, op := range ops {
			if op.InvoiceID != nil {
				return nil, ErrAlreadyClaimed
			}
			if err := invoiceable(op, sel.ClientCompanyID); err != nil {
				return nil, err
			}
		}
		return ops, nil
	}

	err := lockRows(tx).
		Scopes(transportTenant(sel.TransportCompanyID), operationFilter(model.OperationFilter{From: sel.From, To: sel.To})).
		Where("client_company_id = ? AND invoice_id IS NULL AND sale_price IS NOT NULL AND status <> ?",
			sel.ClientCompanyID, model.OperationStatusCancelled).
		Order("created_at ASC").
		Find(&ops).Error
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, ErrNothingToClaim
	}
	return ops, nil
}

func invoiceable(op model.Operation, clientID uuid.UUID) error {
	switch {
	case op.ClientCompanyID == nil || *op.ClientCompanyID != clientID:
		return fmt.Errorf("%w: operation %s belongs to another client", ErrIneligible, op.Reference)
	case op.SalePrice == nil:
		return fmt.Errorf("%w: operation %s has no sale price", ErrIneligible, op.Reference)
	case op.Status == model.OperationStatusCancelled:
		return fmt.Errorf("%w: operation %s is cancelled", ErrIneligible, op.Reference)
	}
	return nil
}

func (r *InvoiceRepository) Get(ctx context.Context, scope policy.RowScope, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	err := r.db.WithContext(ctx).Scopes(billingRows(scope)).Where("id = ?", id).First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *InvoiceRepository) List(ctx context.Context, scope policy.RowScope, status *model.InvoiceStatus) ([]model.Invoice, error) {
	query := r.db.WithContext(ctx).Scopes(billingRows(scope)).Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var invoices []model.Invoice
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// ListForTenant returns the invoices of a transport company issued in [from, to).
func (r *InvoiceRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID, from, to *time.Time) ([]model.Invoice, error) {
	query := r.db.WithContext(ctx).Scopes(transportTenant(tenantID)).Order("issue_date ASC")
	if from != nil {
		query = query.Where("issue_date >= ?", *from)
	}
	if to != nil {
		query = query.Where("issue_date < ?", *to)
	}
	var invoices []model.Invoice
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// UpdateStatus moves an invoice from one status to the next only if it is
// still in the expected one. Cancelling releases the linked operations.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, from, to model.InvoiceStatus, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": to, "updated_at": at}
		if to == model.InvoiceStatusPaid {
			updates["paid_at"] = at
		}
		res := tx.Model(&model.Invoice{}).
			Scopes(transportTenant(tenantID)).
			Where("id = ? AND status = ?", id, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStateChanged
		}
		if to != model.InvoiceStatusCancelled {
			return nil
		}
		return tx.Model(&model.Operation{}).
			Where("invoice_id = ?", id).
			Updates(map[string]interface{}{"invoice_id": nil, "updated_at": at}).Error
	})
}

// billingRows applies the tenant part of a row scope to invoices or payments.
func billingRows(scope policy.RowScope) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if scope.TransportCompanyID == nil && scope.ClientCompanyID == nil {
			return db.Where("1 = 0")
		}
		if scope.TransportCompanyID != nil {
			db = db.Where("transport_company_id = ?", *scope.TransportCompanyID)
		}
		if scope.ClientCompanyID != nil {
			db = db.Where("client_company_id = ?", *scope.ClientCompanyID)
		}
		return db
	}
}

// Document kinds numbered by nextNumber.
const (
	numberKindInvoice = "invoice"
	numberKindPayment = "payment"
)

// nextNumber returns prefix followed by the next four digit sequence for the
// tenant. The sequence row is created on first use, seeded from numbers
// already issued, and incremented under a row lock so concurrent generations
// of one tenant serialise on it instead of colliding on the unique number.
func nextNumber(tx *gorm.DB, table interface{}, kind string, tenantID uuid.UUID, prefix string) (string, error) {
	key := "transport_company_id = ? AND kind = ? AND prefix = ?"

	var issued int64
	err := tx.Model(table).
		Where("transport_company_id = ? AND number LIKE ?", tenantID, prefix+"%").
		Count(&issued).Error
	if err != nil {
		return "", err
	}
	seed := model.NumberSequence{TransportCompanyID: tenantID, Kind: kind, Prefix: prefix, LastNumber: issued}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return "", err
	}

	res := tx.Model(&model.NumberSequence{}).
		Where(key, tenantID, kind, prefix).
		Update("last_number", gorm.Expr("last_number + 1"))
	if res.Error != nil {
		return "", res.Error
	}
	var seq model.NumberSequence
	if err := tx.Where(key, tenantID, kind, prefix).First(&seq).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, seq.LastNumber), nil
}

func operationIDs(ops []model.Operation) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(ops))
	for _, op := range ops {
		ids = append(ids, op.ID)
	}
	return ids
}
