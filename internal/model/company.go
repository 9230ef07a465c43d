package model

import (
	"time"

	"github.com/google/uuid"
)

type CompanyType string

const (
	CompanyTypeTransport CompanyType = "TRANSPORT"
	CompanyTypeClient    CompanyType = "CLIENT"
)

func (t CompanyType) Valid() bool {
	return t == CompanyTypeTransport || t == CompanyTypeClient
}

type Company struct {
	ID                 uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Name               string      `gorm:"type:varchar(255);not null" json:"name"`
	Type               CompanyType `gorm:"type:varchar(16);not null;index" json:"type"`
	Email              string      `gorm:"type:varchar(255)" json:"email"`
	Phone              string      `gorm:"type:varchar(64)" json:"phone"`
	Address            string      `gorm:"type:text" json:"address"`
	RegistrationNumber string      `gorm:"type:varchar(64)" json:"registration_number"`
	ValidatedAt        *time.Time  `json:"validated_at,omitempty"`
	TrialEndsAt        *time.Time  `json:"trial_ends_at,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

func (c Company) IsValidated() bool {
	return c.ValidatedAt != nil
}

// ClientLink is the explicit form of a transporter's linked-clients list.
type ClientLink struct {
	TransportCompanyID uuid.UUID `gorm:"type:uuid;primaryKey"`
	ClientCompanyID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt          time.Time
}

type LinkStatus string

const (
	LinkStatusPending LinkStatus = "PENDING"
	LinkStatusActive  LinkStatus = "ACTIVE"
)

// PartnerLink connects two companies once the target confirms the request.
type PartnerLink struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RequesterCompanyID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_partner_pair" json:"requester_company_id"`
	TargetCompanyID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_partner_pair;index" json:"target_company_id"`
	Status             LinkStatus `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
}

// Other returns the company on the opposite side of the link from companyID.
func (l PartnerLink) Other(companyID uuid.UUID) uuid.UUID {
	if l.RequesterCompanyID == companyID {
		return l.TargetCompanyID
	}
	return l.RequesterCompanyID
}
