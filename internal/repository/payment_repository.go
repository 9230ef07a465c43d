package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/haulops/internal/model"
)

// PaymentSelection describes which subcontracted operations a payment settles.
type PaymentSelection struct {
	TransportCompanyID uuid.UUID
	SubcontractorID    uuid.UUID
	OperationIDs       []uuid.UUID
	From               *time.Time
	To                 *time.Time
	NumberPrefix       string
}

type PaymentBuilder func(ops []model.Operation) (*model.SubcontractorPayment, error)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Generate creates the payment and flips the selected operations to paid
// in one transaction.
func (r *PaymentRepository) Generate(ctx context.Context, sel PaymentSelection, build PaymentBuilder) (*model.SubcontractorPayment, []model.Operation, error) {
	var (
		payment *model.SubcontractorPayment
		ops     []model.Operation
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ops, err = selectPayable(tx, sel)
		if err != nil {
			return err
		}

		payment, err = build(ops)
		if err != nil {
			return err
		}
		number, err := nextNumber(tx, &model.SubcontractorPayment{}, numberKindPayment, sel.TransportCompanyID, sel.NumberPrefix)
		if err != nil {
			return err
		}
		payment.Number = number
		payment.TransportCompanyID = sel.TransportCompanyID
		payment.SubcontractorID = sel.SubcontractorID
		payment.OperationCount = len(ops)
		if err := tx.Create(payment).Error; err != nil {
			return err
		}

		ids := operationIDs(ops)
		res := tx.Model(&model.Operation{}).
			Where("id IN ? AND subcontractor_paid = ?", ids, false).
			Updates(map[string]interface{}{
				"subcontractor_paid":       true,
				"subcontractor_payment_id": payment.ID,
				"updated_at":               time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return ErrAlreadyClaimed
		}
		for i := range ops {
			ops[i].SubcontractorPaid = true
			ops[i].SubcontractorPaymentID = &payment.ID
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return payment, ops, nil
}

func selectPayable(tx *gorm.DB, sel PaymentSelection) ([]model.Operation, error) {
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
			if op.SubcontractorPaid {
				return nil, ErrAlreadyClaimed
			}
			if err := payable(op, sel.SubcontractorID); err != nil {
				return nil, err
			}
		}
		return ops, nil
	}

	err := lockRows(tx).
		Scopes(transportTenant(sel.TransportCompanyID), operationFilter(model.OperationFilter{From: sel.From, To: sel.To})).
		Where("subcontractor_id = ? AND is_subcontracted = ? AND subcontractor_paid = ? AND purchase_price IS NOT NULL AND status <> ?",
			sel.SubcontractorID, true, false, model.OperationStatusCancelled).
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

func payable(op model.Operation, subcontractorID uuid.UUID) error {
	switch {
	case !op.IsSubcontracted || op.SubcontractorID == nil || *op.SubcontractorID != subcontractorID:
		return fmt.Errorf("%w: operation %s is not subcontracted to this subcontractor", ErrIneligible, op.Reference)
	case op.PurchasePrice == nil:
		return fmt.Errorf("%w: operation %s has no purchase price", ErrIneligible, op.Reference)
	case op.Status == model.OperationStatusCancelled:
		return fmt.Errorf("%w: operation %s is cancelled", ErrIneligible, op.Reference)
	}
	return nil
}

func (r *PaymentRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.SubcontractorPayment, error) {
	var payment model.SubcontractorPayment
	err := r.db.WithContext(ctx).Scopes(transportTenant(tenantID)).Where("id = ?", id).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) List(ctx context.Context, tenantID uuid.UUID, subcontractorID *uuid.UUID) ([]model.SubcontractorPayment, error) {
	query := r.db.WithContext(ctx).Scopes(transportTenant(tenantID)).Order("paid_at DESC")
	if subcontractorID != nil {
		query = query.Where("subcontractor_id = ?", *subcontractorID)
	}
	var payments []model.SubcontractorPayment
	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *PaymentRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID, from, to *time.Time) ([]model.SubcontractorPayment, error) {
	query := r.db.WithContext(ctx).Scopes(transportTenant(tenantID)).Order("paid_at ASC")
	if from != nil {
		query = query.Where("paid_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("paid_at < ?", *to)
	}
	var payments []model.SubcontractorPayment
	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
