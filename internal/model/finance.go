package model

import "github.com/google/uuid"

type FinanceSummary struct {
	OperationCount            int     `json:"operation_count"`
	TotalRevenue              float64 `json:"total_revenue"`
	TotalInvoiced             float64 `json:"total_invoiced"`
	TotalUninvoiced           float64 `json:"total_uninvoiced"`
	TotalMargin               float64 `json:"total_margin"`
	AverageMargin             float64 `json:"average_margin"`
	MarginPercentage          float64 `json:"margin_percentage"`
	TotalOwedToSubcontractors float64 `json:"total_owed_to_subcontractors"`
	RealTimeProfit            float64 `json:"real_time_profit"`
}

type DriverPayroll struct {
	DriverID       uuid.UUID `json:"driver_id"`
	DriverName     string    `json:"driver_name"`
	OperationCount int       `json:"operation_count"`
	TotalPay       float64   `json:"total_pay"`
}
