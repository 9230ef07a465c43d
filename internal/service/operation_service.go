package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/haulops/internal/config"
	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/policy"
	"github.com/nurpe/haulops/internal/repository"
)

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// OperationExporter renders an operation report into a file body.
type OperationExporter interface {
	Operations(report model.OperationReport) ([]byte, error)
}

type OperationService struct {
	scopes     tenantScopes
	companies  *repository.CompanyRepository
	subs       *repository.SubcontractorRepository
	drivers    *repository.DriverRepository
	vehicles   *repository.VehicleRepository
	operations *repository.OperationRepository
	files      FileStore
	exporters  map[ExportFormat]OperationExporter
	maxUpload  int64
	log        zerolog.Logger
	now        func() time.Time
}

func NewOperationService(
	companies *repository.CompanyRepository,
	subs *repository.SubcontractorRepository,
	drivers *repository.DriverRepository,
	vehicles *repository.VehicleRepository,
	operations *repository.OperationRepository,
	files FileStore,
	csv OperationExporter,
	xlsx OperationExporter,
	cfg *config.Config,
	log zerolog.Logger,
) *OperationService {
	return &OperationService{
		scopes:     tenantScopes{companies: companies, subs: subs},
		companies:  companies,
		subs:       subs,
		drivers:    drivers,
		vehicles:   vehicles,
		operations: operations,
		files:      files,
		exporters:  map[ExportFormat]OperationExporter{ExportCSV: csv, ExportXLSX: xlsx},
		maxUpload:  cfg.Storage.MaxUploadBytes,
		log:        log,
		now:        time.Now,
	}
}

func (s *OperationService) scope(p model.Principal) (policy.RowScope, error) {
	scope, ok := policy.OperationScope(p)
	if !ok {
		return policy.RowScope{}, ErrPermissionDenied
	}
	return scope, nil
}

func (s *OperationService) List(ctx context.Context, p model.Principal, filter model.OperationFilter) ([]model.Operation, error) {
	scope, err := s.scope(p)
	if err != nil {
		return nil, err
	}
	if err := period(filter.From, filter.To); err != nil {
		return nil, err
	}
	ops, err := s.operations.List(ctx, scope, filter)
	if err != nil {
		return nil, err
	}
	for i := range ops {
		redact(p, &ops[i])
	}
	return ops, nil
}

func (s *OperationService) Get(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Operation, error) {
	op, err := s.get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	redact(p, op)
	return op, nil
}

func (s *OperationService) get(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Operation, error) {
	scope, err := s.scope(p)
	if err != nil {
		return nil, err
	}
	op, err := s.operations.Get(ctx, scope, id)
	return op, translate(err)
}

// OperationInput carries create and update fields. On update nil means
// unchanged and a zero uuid clears a reference.
type OperationInput struct {
	Reference       *string
	ClientCompanyID *uuid.UUID
	DriverID        *uuid.UUID
	VehicleID       *uuid.UUID
	SubcontractorID *uuid.UUID
	Status          *model.OperationStatus
	PickupAddress   *string
	DeliveryAddress *string
	PickupAt        *time.Time
	DeliveryAt      *time.Time
	SalePrice       *float64
	PurchasePrice   *float64
	DriverPay       *float64
	Notes           *string
}

func (s *OperationService) Create(ctx context.Context, p model.Principal, input OperationInput) (*model.Operation, error) {
	if err := authorize(p, policy.ActionManageOperations); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	op := &model.Operation{
		TransportCompanyID: p.Tenant(),
		CreatedByUserID:    p.UserID,
		Status:             model.OperationStatusPlanned,
		Reference:          fmt.Sprintf("OP-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.NewString()[:6])),
	}
	if input.Reference != nil && strings.TrimSpace(*input.Reference) != "" {
		op.Reference = strings.TrimSpace(*input.Reference)
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, invalidf("invalid status")
		}
		op.Status = *input.Status
	}
	if err := s.apply(ctx, p, op, input); err != nil {
		return nil, err
	}
	if err := s.operations.Create(ctx, op); err != nil {
		return nil, translate(err)
	}

	s.log.Debug().
		Str("operation_id", op.ID.String()).
		Str("company_id", op.TransportCompanyID.String()).
		Msg("operation created")
	return op, nil
}

func (s *OperationService) Update(ctx context.Context, p model.Principal, id uuid.UUID, input OperationInput) (*model.Operation, error) {
	op, err := s.modifiable(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if op.IsInvoiced() && (input.SalePrice != nil || input.ClientCompanyID != nil) {
		return nil, conflictf("operation is invoiced")
	}
	if op.SubcontractorPaid && (input.PurchasePrice != nil || input.SubcontractorID != nil) {
		return nil, conflictf("subcontractor already paid for this operation")
	}
	if input.Reference != nil {
		if op.Reference, err = requireText("reference", *input.Reference); err != nil {
			return nil, err
		}
	}
	if input.Status != nil {
		return nil, invalidf("use the status endpoint to change status")
	}
	if err := s.apply(ctx, p, op, input); err != nil {
		return nil, err
	}
	guard := repository.UpdateGuard{
		Uninvoiced: input.SalePrice != nil || input.ClientCompanyID != nil,
		Unsettled:  input.PurchasePrice != nil || input.SubcontractorID != nil,
	}
	if err := s.operations.Update(ctx, op, guard); err != nil {
		return nil, translate(err)
	}
	return op, nil
}

// UpdateStatus lets assigned drivers move their operations forward while
// managers may set any status. Cancelled is final.
func (s *OperationService) UpdateStatus(ctx context.Context, p model.Principal, id uuid.UUID, status model.OperationStatus) (*model.Operation, error) {
	if !status.Valid() {
		return nil, invalidf("invalid status")
	}
	op, err := s.get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	switch {
	case p.IsDriver():
		if status != model.OperationStatusInProgress && status != model.OperationStatusDelivered {
			return nil, ErrPermissionDenied
		}
	case !policy.CanModifyOperation(p, *op):
		return nil, ErrPermissionDenied
	}
	if op.Status == status {
		return op, nil
	}
	if op.Status == model.OperationStatusCancelled {
		return nil, conflictf("operation is cancelled")
	}
	if status == model.OperationStatusCancelled && (op.IsInvoiced() || op.SubcontractorPaid) {
		return nil, conflictf("operation is invoiced or settled")
	}
	if err := s.operations.UpdateStatus(ctx, id, op.Status, status); err != nil {
		return nil, translate(err)
	}
	op.Status = status
	redact(p, op)
	return op, nil
}

func (s *OperationService) Delete(ctx context.Context, p model.Principal, id uuid.UUID) error {
	op, err := s.modifiable(ctx, p, id)
	if err != nil {
		return err
	}
	if op.IsInvoiced() || op.SubcontractorPaymentID != nil {
		return conflictf("operation is invoiced or settled")
	}
	return translate(s.operations.Delete(ctx, id))
}

func (s *OperationService) modifiable(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Operation, error) {
	if err := authorize(p, policy.ActionManageOperations); err != nil {
		return nil, err
	}
	op, err := s.get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanModifyOperation(p, *op) {
		return nil, ErrPermissionDenied
	}
	return op, nil
}

// apply validates and copies input onto op. References must be reachable
// from the caller's tenant.
func (s *OperationService) apply(ctx context.Context, p model.Principal, op *model.Operation, input OperationInput) error {
	tenant := p.Tenant()
	for field, v := range map[string]*float64{
		"sale_price":     input.SalePrice,
		"purchase_price": input.PurchasePrice,
		"driver_pay":     input.DriverPay,
	} {
		if err := nonNegative(field, v); err != nil {
			return err
		}
	}
	if input.PickupAt != nil && input.DeliveryAt != nil && input.DeliveryAt.Before(*input.PickupAt) {
		return invalidf("delivery_at must not be before pickup_at")
	}

	if input.ClientCompanyID != nil {
		op.ClientCompanyID = nil
		if *input.ClientCompanyID != uuid.Nil {
			ok, err := s.companies.IsClientVisible(ctx, tenant, *input.ClientCompanyID)
			if err != nil {
				return err
			}
			if !ok {
				return invalidf("unknown client")
			}
			op.ClientCompanyID = input.ClientCompanyID
		}
	}

	if input.DriverID != nil || input.VehicleID != nil {
		visible, err := s.scopes.visible(ctx, tenant)
		if err != nil {
			return err
		}
		if input.DriverID != nil {
			op.DriverID = nil
			if *input.DriverID != uuid.Nil {
				if _, err := s.drivers.Get(ctx, visible, *input.DriverID); err != nil {
					return unknownReference("driver", err)
				}
				op.DriverID = input.DriverID
			}
		}
		if input.VehicleID != nil {
			op.VehicleID = nil
			if *input.VehicleID != uuid.Nil {
				if _, err := s.vehicles.Get(ctx, visible, *input.VehicleID); err != nil {
					return unknownReference("vehicle", err)
				}
				op.VehicleID = input.VehicleID
			}
		}
	}

	if input.SubcontractorID != nil {
		op.SubcontractorID = nil
		if *input.SubcontractorID != uuid.Nil {
			sub, err := s.subs.Get(ctx, tenant, *input.SubcontractorID)
			if err != nil {
				return unknownReference("subcontractor", err)
			}
			if sub.Status != model.LinkStatusActive {
				return invalidf("subcontractor link is not confirmed")
			}
			op.SubcontractorID = &sub.ID
		}
		op.IsSubcontracted = op.SubcontractorID != nil
	}

	applyText(&op.PickupAddress, input.PickupAddress)
	applyText(&op.DeliveryAddress, input.DeliveryAddress)
	applyText(&op.Notes, input.Notes)
	if input.PickupAt != nil {
		op.PickupAt = input.PickupAt
	}
	if input.DeliveryAt != nil {
		op.DeliveryAt = input.DeliveryAt
	}
	if input.SalePrice != nil {
		op.SalePrice = input.SalePrice
	}
	if input.PurchasePrice != nil {
		op.PurchasePrice = input.PurchasePrice
	}
	if input.DriverPay != nil {
		op.DriverPay = input.DriverPay
	}
	return nil
}

func unknownReference(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invalidf("unknown %s", what)
	}
	return err
}

// redact hides the carrier's cost side from client viewers.
func redact(p model.Principal, op *model.Operation) {
	if p.CompanyType != model.CompanyTypeClient {
		return
	}
	op.PurchasePrice = nil
	op.DriverPay = nil
	op.SubcontractorID = nil
	op.SubcontractorPaymentID = nil
	op.IsSubcontracted = false
	op.SubcontractorPaid = false
	op.Notes = ""
}

// Documents

func (s *OperationService) ListDocuments(ctx context.Context, p model.Principal, id uuid.UUID) ([]model.OperationDocument, error) {
	if _, err := s.get(ctx, p, id); err != nil {
		return nil, err
	}
	return s.operations.ListDocuments(ctx, id)
}

// AddDocument attaches a file. Assigned drivers may upload delivery proof.
func (s *OperationService) AddDocument(ctx context.Context, p model.Principal, id uuid.UUID, upload Upload) (*model.OperationDocument, error) {
	op, err := s.get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !p.IsDriver() && !policy.CanModifyOperation(p, *op) {
		return nil, ErrPermissionDenied
	}
	if len(upload.Data) == 0 {
		return nil, invalidf("file is empty")
	}
	if s.maxUpload > 0 && int64(len(upload.Data)) > s.maxUpload {
		return nil, invalidf("file exceeds %d bytes", s.maxUpload)
	}

	url, err := s.files.Put(ctx, uploadKey("operations", op.ID, upload.FileName), upload.ContentType, upload.Data)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(upload.FileName)
	if name == "" {
		name = "document"
	}
	doc := &model.OperationDocument{
		OperationID:      op.ID,
		Name:             name,
		URL:              url,
		ContentType:      upload.ContentType,
		SizeBytes:        int64(len(upload.Data)),
		UploadedByUserID: p.UserID,
	}
	if err := s.operations.AddDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Export

func (s *OperationService) Export(ctx context.Context, p model.Principal, filter model.OperationFilter, format ExportFormat) (*FileResult, error) {
	exporter, ok := s.exporters[format]
	if !ok || exporter == nil {
		return nil, invalidf("format must be csv or xlsx")
	}
	ops, err := s.List(ctx, p, filter)
	if err != nil {
		return nil, err
	}
	company, err := s.companies.GetByID(ctx, p.Tenant())
	if err != nil {
		return nil, translate(err)
	}
	rows, err := s.rows(ctx, ops)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	content, err := exporter.Operations(model.OperationReport{
		Company:     *company,
		GeneratedAt: now,
		From:        filter.From,
		To:          filter.To,
		Rows:        rows,
	})
	if err != nil {
		return nil, err
	}

	result := &FileResult{
		FileName: fmt.Sprintf("operations-%s-%s.%s", sanitizeFileName(company.Name), now.Format("20060102"), format),
		Content:  content,
	}
	switch format {
	case ExportCSV:
		result.ContentType = "text/csv; charset=utf-8"
	case ExportXLSX:
		result.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return result, nil
}

// rows joins the display names exports show next to each operation.
func (s *OperationService) rows(ctx context.Context, ops []model.Operation) ([]model.OperationRow, error) {
	var clientIDs, driverIDs, vehicleIDs, subIDs []uuid.UUID
	for _, op := range ops {
		if op.ClientCompanyID != nil {
			clientIDs = append(clientIDs, *op.ClientCompanyID)
		}
		if op.DriverID != nil {
			driverIDs = append(driverIDs, *op.DriverID)
		}
		if op.VehicleID != nil {
			vehicleIDs = append(vehicleIDs, *op.VehicleID)
		}
		if op.SubcontractorID != nil {
			subIDs = append(subIDs, *op.SubcontractorID)
		}
	}

	clients, err := s.companies.ListByIDs(ctx, clientIDs)
	if err != nil {
		return nil, err
	}
	drivers, err := s.drivers.ListByIDs(ctx, driverIDs)
	if err != nil {
		return nil, err
	}
	vehicles, err := s.vehicles.ListByIDs(ctx, vehicleIDs)
	if err != nil {
		return nil, err
	}
	subs, err := s.subs.ListByIDs(ctx, subIDs)
	if err != nil {
		return nil, err
	}

	clientNames := make(map[uuid.UUID]string, len(clients))
	for _, c := range clients {
		clientNames[c.ID] = c.Name
	}
	driverNames := make(map[uuid.UUID]string, len(drivers))
	for _, d := range drivers {
		driverNames[d.ID] = d.FullName()
	}
	plates := make(map[uuid.UUID]string, len(vehicles))
	for _, v := range vehicles {
		plates[v.ID] = v.PlateNumber
	}
	subNames := make(map[uuid.UUID]string, len(subs))
	for _, sub := range subs {
		subNames[sub.ID] = sub.Name
	}

	rows := make([]model.OperationRow, len(ops))
	for i, op := range ops {
		rows[i] = model.OperationRow{Operation: op}
		if op.ClientCompanyID != nil {
			rows[i].ClientName = clientNames[*op.ClientCompanyID]
		}
		if op.DriverID != nil {
			rows[i].DriverName = driverNames[*op.DriverID]
		}
		if op.VehicleID != nil {
			rows[i].VehiclePlate = plates[*op.VehicleID]
		}
		if op.SubcontractorID != nil {
			rows[i].SubcontractorName = subNames[*op.SubcontractorID]
		}
	}
	return rows, nil
}
