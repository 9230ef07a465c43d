package model

import (
	"time"

	"github.com/google/uuid"
)

type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusSent      InvoiceStatus = "SENT"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusPending: {InvoiceStatusSent, InvoiceStatusCancelled},
	InvoiceStatusSent:    {InvoiceStatusPaid, InvoiceStatusCancelled},
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Invoice struct {
	ID                 uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Number             string        `gorm:"type:varchar(64);not null;uniqueIndex:uq_invoice_number" json:"number"`
	TransportCompanyID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:uq_invoice_number;index" json:"transport_company_id"`
	ClientCompanyID    uuid.UUID     `gorm:"type:uuid;not null;index" json:"client_company_id"`
	Status             InvoiceStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	IssueDate          time.Time     `json:"issue_date"`
	DueDate            time.Time     `json:"due_date"`
	PaidAt             *time.Time    `json:"paid_at,omitempty"`
	AmountExclTax      float64       `gorm:"type:numeric(14,2);not null" json:"amount_excl_tax"`
	TaxRate            float64       `gorm:"type:numeric(5,2);not null" json:"tax_rate"`
	TaxAmount          float64       `gorm:"type:numeric(14,2);not null" json:"tax_amount"`
	TotalAmount        float64       `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	CreatedByUserID    uuid.UUID     `gorm:"type:uuid;not null" json:"created_by_user_id"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

type SubcontractorPayment struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Number             string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_payment_number" json:"number"`
	TransportCompanyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_payment_number;index" json:"transport_company_id"`
	SubcontractorID    uuid.UUID `gorm:"type:uuid;not null;index" json:"subcontractor_id"`
	Amount             float64   `gorm:"type:numeric(14,2);not null" json:"amount"`
	OperationCount     int       `gorm:"not null" json:"operation_count"`
	PaidAt             time.Time `json:"paid_at"`
	Note               string    `gorm:"type:text" json:"note"`
	CreatedByUserID    uuid.UUID `gorm:"type:uuid;not null" json:"created_by_user_id"`
	CreatedAt          time.Time `json:"created_at"`
}

// NumberSequence holds the last number handed out per tenant, document kind
// and prefix. Invoice and payment generation bump it inside their transaction.
type NumberSequence struct {
	TransportCompanyID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind               string    `gorm:"type:varchar(16);primaryKey"`
	Prefix             string    `gorm:"type:varchar(64);primaryKey"`
	LastNumber         int64     `gorm:"not null;default:0"`
}

// InvoiceDocument is everything the PDF renderer needs for one invoice.
type InvoiceDocument struct {
	Invoice    Invoice
	Issuer     Company
	Client     Company
	Operations []Operation
}

// PaymentDocument is everything the PDF renderer needs for one payment statement.
type PaymentDocument struct {
	Payment       SubcontractorPayment
	Issuer        Company
	Subcontractor Subcontractor
	Operations    []Operation
}
