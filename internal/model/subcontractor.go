package model

import (
	"time"

	"github.com/google/uuid"
)

type Subcontractor struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TransportCompanyID uuid.UUID  `gorm:"type:uuid;not null;index" json:"transport_company_id"`
	LinkedCompanyID    *uuid.UUID `gorm:"type:uuid;index" json:"linked_company_id,omitempty"`
	Name               string     `gorm:"type:varchar(255);not null" json:"name"`
	Email              string     `gorm:"type:varchar(255)" json:"email"`
	Phone              string     `gorm:"type:varchar(64)" json:"phone"`
	Status             LinkStatus `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
