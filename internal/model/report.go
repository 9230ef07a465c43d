package model

import "time"

// OperationRow is an operation with the display names exports need.
type OperationRow struct {
	Operation
	ClientName        string
	DriverName        string
	VehiclePlate      string
	SubcontractorName string
}

type OperationReport struct {
	Company     Company
	GeneratedAt time.Time
	From        *time.Time
	To          *time.Time
	Rows        []OperationRow
}

// Operations returns the bare operations of the report.
func (r OperationReport) Operations() []Operation {
	ops := make([]Operation, len(r.Rows))
	for i, row := range r.Rows {
		ops[i] = row.Operation
	}
	return ops
}
