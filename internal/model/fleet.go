package model

import (
	"time"

	"github.com/google/uuid"
)

// Driver and Vehicle belong to exactly one of a company or a subcontractor.

type Driver struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID       *uuid.UUID `gorm:"type:uuid;index" json:"company_id,omitempty"`
	SubcontractorID *uuid.UUID `gorm:"type:uuid;index" json:"subcontractor_id,omitempty"`
	UserID          *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	FirstName       string     `gorm:"type:varchar(128);not null" json:"first_name"`
	LastName        string     `gorm:"type:varchar(128);not null" json:"last_name"`
	Phone           string     `gorm:"type:varchar(64)" json:"phone"`
	LicenseNumber   string     `gorm:"type:varchar(64)" json:"license_number"`
	Active          bool       `gorm:"not null" json:"active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (d Driver) FullName() string {
	return d.FirstName + " " + d.LastName
}

type Vehicle struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID       *uuid.UUID `gorm:"type:uuid;index" json:"company_id,omitempty"`
	SubcontractorID *uuid.UUID `gorm:"type:uuid;index" json:"subcontractor_id,omitempty"`
	PlateNumber     string     `gorm:"type:varchar(32);not null" json:"plate_number"`
	Kind            string     `gorm:"type:varchar(64)" json:"kind"`
	Brand           string     `gorm:"type:varchar(64)" json:"brand"`
	Model           string     `gorm:"type:varchar(64)" json:"model"`
	CapacityKg      *float64   `json:"capacity_kg,omitempty"`
	Active          bool       `gorm:"not null" json:"active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Owner identifies who a driver or vehicle belongs to. Exactly one field is set.
type Owner struct {
	CompanyID       *uuid.UUID
	SubcontractorID *uuid.UUID
}

func CompanyOwner(id uuid.UUID) Owner {
	return Owner{CompanyID: &id}
}

func SubcontractorOwner(id uuid.UUID) Owner {
	return Owner{SubcontractorID: &id}
}

func (d *Driver) SetOwner(o Owner) {
	d.CompanyID, d.SubcontractorID = o.CompanyID, o.SubcontractorID
}

func (v *Vehicle) SetOwner(o Owner) {
	v.CompanyID, v.SubcontractorID = o.CompanyID, o.SubcontractorID
}
