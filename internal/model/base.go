package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID fills an empty primary key before insert.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (c *Company) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}

func (l *PartnerLink) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}

func (s *Subcontractor) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

func (d *Driver) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}

func (v *Vehicle) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}

func (o *Operation) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

func (d *OperationDocument) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

func (p *SubcontractorPayment) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
