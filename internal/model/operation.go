package model

import (
	"time"

	"github.com/google/uuid"
)

type OperationStatus string

const (
	OperationStatusPlanned    OperationStatus = "PLANNED"
	OperationStatusInProgress OperationStatus = "IN_PROGRESS"
	OperationStatusDelivered  OperationStatus = "DELIVERED"
	OperationStatusCancelled  OperationStatus = "CANCELLED"
)

func (s OperationStatus) Valid() bool {
	switch s {
	case OperationStatusPlanned, OperationStatusInProgress, OperationStatusDelivered, OperationStatusCancelled:
		return true
	}
	return false
}

type Operation struct {
	ID                     uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Reference              string          `gorm:"type:varchar(64);not null" json:"reference"`
	TransportCompanyID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"transport_company_id"`
	ClientCompanyID        *uuid.UUID      `gorm:"type:uuid;index" json:"client_company_id,omitempty"`
	CreatedByUserID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"created_by_user_id"`
	DriverID               *uuid.UUID      `gorm:"type:uuid;index" json:"driver_id,omitempty"`
	VehicleID              *uuid.UUID      `gorm:"type:uuid;index" json:"vehicle_id,omitempty"`
	SubcontractorID        *uuid.UUID      `gorm:"type:uuid;index" json:"subcontractor_id,omitempty"`
	IsSubcontracted        bool            `gorm:"not null;default:false" json:"is_subcontracted"`
	SubcontractorPaid      bool            `gorm:"not null;default:false" json:"subcontractor_paid"`
	SubcontractorPaymentID *uuid.UUID      `gorm:"type:uuid;index" json:"subcontractor_payment_id,omitempty"`
	InvoiceID              *uuid.UUID      `gorm:"type:uuid;index" json:"invoice_id,omitempty"`
	Status                 OperationStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	PickupAddress          string          `gorm:"type:text" json:"pickup_address"`
	DeliveryAddress        string          `gorm:"type:text" json:"delivery_address"`
	PickupAt               *time.Time      `json:"pickup_at,omitempty"`
	DeliveryAt             *time.Time      `json:"delivery_at,omitempty"`
	SalePrice              *float64        `json:"sale_price,omitempty"`
	PurchasePrice          *float64        `json:"purchase_price,omitempty"`
	DriverPay              *float64        `json:"driver_pay,omitempty"`
	Notes                  string          `gorm:"type:text" json:"notes"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

func (o Operation) IsInvoiced() bool {
	return o.InvoiceID != nil
}

type OperationDocument struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OperationID      uuid.UUID `gorm:"type:uuid;not null;index" json:"operation_id"`
	Name             string    `gorm:"type:varchar(255);not null" json:"name"`
	URL              string    `gorm:"type:text;not null" json:"url"`
	ContentType      string    `gorm:"type:varchar(128)" json:"content_type"`
	SizeBytes        int64     `json:"size_bytes"`
	UploadedByUserID uuid.UUID `gorm:"type:uuid;not null" json:"uploaded_by_user_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// OperationFilter narrows operation listings. Zero values mean "no filter".
type OperationFilter struct {
	Status          *OperationStatus
	ClientCompanyID *uuid.UUID
	DriverID        *uuid.UUID
	SubcontractorID *uuid.UUID
	Invoiced        *bool
	From            *time.Time
	To              *time.Time
}
