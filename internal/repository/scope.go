package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nurpe/haulops/internal/policy"
)

// Visibility lists the owners whose drivers and vehicles a tenant may read.
type Visibility struct {
	CompanyIDs       []uuid.UUID
	SubcontractorIDs []uuid.UUID
}

func (v Visibility) empty() bool {
	return len(v.CompanyIDs) == 0 && len(v.SubcontractorIDs) == 0
}

// ownedBy matches rows owned by any company or subcontractor in v.
func ownedBy(v Visibility) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case v.empty():
			return db.Where("1 = 0")
		case len(v.SubcontractorIDs) == 0:
			return db.Where("company_id IN ?", v.CompanyIDs)
		case len(v.CompanyIDs) == 0:
			return db.Where("subcontractor_id IN ?", v.SubcontractorIDs)
		default:
			return db.Where("(company_id IN ? OR subcontractor_id IN ?)", v.CompanyIDs, v.SubcontractorIDs)
		}
	}
}

func transportTenant(tenantID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("transport_company_id = ?", tenantID)
	}
}

// operationRows applies a policy row scope to an operations query.
func operationRows(scope policy.RowScope) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if scope.TransportCompanyID == nil && scope.ClientCompanyID == nil {
			return db.Where("1 = 0")
		}
		if scope.TransportCompanyID != nil {
			db = db.Where("operations.transport_company_id = ?", *scope.TransportCompanyID)
		}
		if scope.ClientCompanyID != nil {
			db = db.Where("operations.client_company_id = ?", *scope.ClientCompanyID)
		}
		if scope.CreatedBy != nil {
			db = db.Where("operations.created_by_user_id = ?", *scope.CreatedBy)
		}
		if scope.DriverUserID != nil {
			db = db.Where("operations.driver_id IN (SELECT id FROM drivers WHERE user_id = ?)", *scope.DriverUserID)
		}
		return db
	}
}

// lockRows adds FOR UPDATE where the dialect supports it.
func lockRows(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// mergeByID concatenates result sets reached through different paths,
// keeping the first occurrence of every id.
func mergeByID[T any](id func(T) uuid.UUID, sets ...[]T) []T {
	total := 0
	for _, s := range sets {
		total += len(s)
	}
	result := make([]T, 0, total)
	index := make(map[uuid.UUID]struct{}, total)
	for _, set := range sets {
		for _, item := range set {
			key := id(item)
			if _, ok := index[key]; ok {
				continue
			}
			index[key] = struct{}{}
			result = append(result, item)
		}
	}
	return result
}
