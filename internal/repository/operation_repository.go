package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/policy"
)

// Columns of operations that point at other entities. Used by delete checks.
const (
	RefClient        = "client_company_id"
	RefDriver        = "driver_id"
	RefVehicle       = "vehicle_id"
	RefSubcontractor = "subcontractor_id"
	RefInvoice       = "invoice_id"
	RefCreator       = "created_by_user_id"
)

var referenceColumns = map[string]bool{
	RefClient:        true,
	RefDriver:        true,
	RefVehicle:       true,
	RefSubcontractor: true,
	RefInvoice:       true,
	RefCreator:       true,
}

type OperationRepository struct {
	db *gorm.DB
}

func NewOperationRepository(db *gorm.DB) *OperationRepository {
	return &OperationRepository{db: db}
}

func (r *OperationRepository) Create(ctx context.Context, op *model.Operation) error {
	return r.db.WithContext(ctx).Create(op).Error
}

// Get returns the operation only when it falls inside scope.
func (r *OperationRepository) Get(ctx context.Context, scope policy.RowScope, id uuid.UUID) (*model.Operation, error) {
	var op model.Operation
	err := r.db.WithContext(ctx).
		Scopes(operationRows(scope)).
		Where("operations.id = ?", id).
		First(&op).Error
	if err != nil {
		return nil, err
	}
	return &op, nil
}

func (r *OperationRepository) List(ctx context.Context, scope policy.RowScope, filter model.OperationFilter) ([]model.Operation, error) {
	var ops []model.Operation
	err := r.db.WithContext(ctx).
		Scopes(operationRows(scope), operationFilter(filter)).
		Order("operations.created_at DESC").
		Find(&ops).Error
	if err != nil {
		return nil, err
	}
	return ops, nil
}

// ListForTenant returns every non-cancelled operation of a transport company
// created in [from, to). Either bound may be nil.
func (r *OperationRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID, from, to *time.Time) ([]model.Operation, error) {
	filter := model.OperationFilter{From: from, To: to}
	var ops []model.Operation
	err := r.db.WithContext(ctx).
		Scopes(transportTenant(tenantID), operationFilter(filter)).
		Where("status <> ?", model.OperationStatusCancelled).
		Order("created_at ASC").
		Find(&ops).Error
	if err != nil {
		return nil, err
	}
	return ops, nil
}

func (r *OperationRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.Operation, error) {
	var ops []model.Operation
	err := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Order("created_at ASC").Find(&ops).Error
	if err != nil {
		return nil, err
	}
	return ops, nil
}

func (r *OperationRepository) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]model.Operation, error) {
	var ops []model.Operation
	err := r.db.WithContext(ctx).Where("subcontractor_payment_id = ?", paymentID).Order("created_at ASC").Find(&ops).Error
	if err != nil {
		return nil, err
	}
	return ops, nil
}

// editableColumns are the operation columns a PATCH may write. Billing
// links and settlement flags belong to invoice and payment generation.
var editableColumns = []string{
	"reference",
	"client_company_id",
	"driver_id",
	"vehicle_id",
	"subcontractor_id",
	"is_subcontracted",
	"pickup_address",
	"delivery_address",
	"pickup_at",
	"delivery_at",
	"sale_price",
	"purchase_price",
	"driver_pay",
	"notes",
	"updated_at",
}

// UpdateGuard conditions an update on the billing state the caller read.
type UpdateGuard struct {
	// Uninvoiced requires that no invoice links the operation.
	Uninvoiced bool
	// Unsettled requires that no subcontractor payment covers it.
	Unsettled bool
}

// Update writes the editable columns of op. ErrStateChanged is returned when
// the guard no longer holds.
func (r *OperationRepository) Update(ctx context.Context, op *model.Operation, guard UpdateGuard) error {
	query := r.db.WithContext(ctx).Model(op).Select(editableColumns)
	if guard.Uninvoiced {
		query = query.Where("invoice_id IS NULL")
	}
	if guard.Unsettled {
		query = query.Where("subcontractor_paid = ?", false)
	}
	res := query.Updates(op)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStateChanged
	}
	return nil
}

// UpdateStatus moves an operation from one status to another. Cancelling
// also requires that the operation is neither invoiced nor settled.
func (r *OperationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OperationStatus) error {
	query := r.db.WithContext(ctx).Model(&model.Operation{}).Where("id = ? AND status = ?", id, from)
	if to == model.OperationStatusCancelled {
		query = query.Where("invoice_id IS NULL AND subcontractor_payment_id IS NULL")
	}
	res := query.Updates(map[string]interface{}{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStateChanged
	}
	return nil
}

// Delete removes an operation with its documents. Invoiced operations are
// kept; ErrStateChanged is returned when the row was invoiced meanwhile.
func (r *OperationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND invoice_id IS NULL AND subcontractor_payment_id IS NULL", id).Delete(&model.Operation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStateChanged
		}
		return tx.Where("operation_id = ?", id).Delete(&model.OperationDocument{}).Error
	})
}

// CountReferencing counts operations whose column points at id.
func (r *OperationRepository) CountReferencing(ctx context.Context, column string, id uuid.UUID) (int64, error) {
	if !referenceColumns[column] {
		return 0, fmt.Errorf("unknown reference column %q", column)
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Operation{}).Where(column+" = ?", id).Count(&count).Error
	return count, err
}

func (r *OperationRepository) AddDocument(ctx context.Context, doc *model.OperationDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *OperationRepository) ListDocuments(ctx context.Context, operationID uuid.UUID) ([]model.OperationDocument, error) {
	var docs []model.OperationDocument
	err := r.db.WithContext(ctx).Where("operation_id = ?", operationID).Order("created_at ASC").Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func operationFilter(f model.OperationFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.Status != nil {
			db = db.Where("operations.status = ?", *f.Status)
		}
		if f.ClientCompanyID != nil {
			db = db.Where("operations.client_company_id = ?", *f.ClientCompanyID)
		}
		if f.DriverID != nil {
			db = db.Where("operations.driver_id = ?", *f.DriverID)
		}
		if f.SubcontractorID != nil {
			db = db.Where("operations.subcontractor_id = ?", *f.SubcontractorID)
		}
		if f.Invoiced != nil {
			if *f.Invoiced {
				db = db.Where("operations.invoice_id IS NOT NULL")
			} else {
				db = db.Where("operations.invoice_id IS NULL")
			}
		}
		if f.From != nil {
			db = db.Where("operations.created_at >= ?", *f.From)
		}
		if f.To != nil {
			db = db.Where("operations.created_at < ?", *f.To)
		}
		return db
	}
}
