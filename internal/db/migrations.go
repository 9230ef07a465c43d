package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/nurpe/haulops/internal/model"
)

var models = []interface{}{
	&model.Company{},
	&model.User{},
	&model.ClientLink{},
	&model.PartnerLink{},
	&model.Subcontractor{},
	&model.Driver{},
	&model.Vehicle{},
	&model.Operation{},
	&model.OperationDocument{},
	&model.Invoice{},
	&model.SubcontractorPayment{},
	&model.NumberSequence{},
}

// Statements GORM's AutoMigrate cannot express. Postgres only.
var postgresStatements = []string{
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_drivers_single_owner') THEN
			ALTER TABLE drivers ADD CONSTRAINT chk_drivers_single_owner
				CHECK ((company_id IS NULL) <> (subcontractor_id IS NULL));
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_vehicles_single_owner') THEN
			ALTER TABLE vehicles ADD CONSTRAINT chk_vehicles_single_owner
				CHECK ((company_id IS NULL) <> (subcontractor_id IS NULL));
		END IF;
	END
	$$;`,
	`CREATE INDEX IF NOT EXISTS idx_operations_uninvoiced
		ON operations (transport_company_id, client_company_id)
		WHERE invoice_id IS NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_operations_unpaid_subcontracted
		ON operations (transport_company_id, subcontractor_id)
		WHERE is_subcontracted AND NOT subcontractor_paid;`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_users_email_lower ON users (LOWER(email));`,
}

func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if database.Dialector.Name() != "postgres" {
		return nil
	}
	for i, stmt := range postgresStatements {
		if err := database.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
