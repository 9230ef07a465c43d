package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/service"
)

type generateInvoiceRequest struct {
	ClientCompanyID uuid.UUID   `json:"client_company_id" binding:"required"`
	OperationIDs    []uuid.UUID `json:"operation_ids"`
	From            string      `json:"from"`
	To              string      `json:"to"`
}

// bodyPeriod parses optional from/to strings of a request body.
func bodyPeriod(c *gin.Context, from, to string) (*time.Time, *time.Time, bool) {
	var result [2]*time.Time
	for i, raw := range []string{from, to} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		parsed, err := parseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period"})
			return nil, nil, false
		}
		result[i] = &parsed
	}
	return result[0], result[1], true
}

func (h *Handler) generateInvoice(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req generateInvoiceRequest
	if !bind(c, &req) {
		return
	}
	from, to, ok := bodyPeriod(c, req.From, req.To)
	if !ok {
		return
	}
	detail, err := h.svc.Billing.GenerateInvoice(c.Request.Context(), principal, service.GenerateInvoiceInput{
		ClientCompanyID: req.ClientCompanyID,
		OperationIDs:    req.OperationIDs,
		From:            from,
		To:              to,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (h *Handler) listInvoices(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var status *model.InvoiceStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		s := model.InvoiceStatus(strings.ToUpper(raw))
		status = &s
	}
	invoices, err := h.svc.Billing.ListInvoices(c.Request.Context(), principal, status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoices})
}

func (h *Handler) getInvoice(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	detail, err := h.svc.Billing.GetInvoice(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) updateInvoiceStatus(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req statusRequest
	if !bind(c, &req) {
		return
	}
	status := model.InvoiceStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	invoice, err := h.svc.Billing.UpdateInvoiceStatus(c.Request.Context(), principal, id, status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *Handler) invoicePDF(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	result, err := h.svc.Billing.InvoicePDF(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, result)
}

// Payments

type generatePaymentRequest struct {
	SubcontractorID uuid.UUID   `json:"subcontractor_id" binding:"required"`
	OperationIDs    []uuid.UUID `json:"operation_ids"`
	From            string      `json:"from"`
	To              string      `json:"to"`
	Note            string      `json:"note"`
}

func (h *Handler) generatePayment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req generatePaymentRequest
	if !bind(c, &req) {
		return
	}
	from, to, ok := bodyPeriod(c, req.From, req.To)
	if !ok {
		return
	}
	detail, err := h.svc.Billing.GeneratePayment(c.Request.Context(), principal, service.GeneratePaymentInput{
		SubcontractorID: req.SubcontractorID,
		OperationIDs:    req.OperationIDs,
		From:            from,
		To:              to,
		Note:            req.Note,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (h *Handler) listPayments(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	subID, ok := queryID(c, "subcontractor_id")
	if !ok {
		return
	}
	payments, err := h.svc.Billing.ListPayments(c.Request.Context(), principal, subID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payments})
}

func (h *Handler) getPayment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	detail, err := h.svc.Billing.GetPayment(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) paymentPDF(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	result, err := h.svc.Billing.PaymentPDF(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, result)
}

// Dashboard

func (h *Handler) dashboardSummary(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	period, ok := queryPeriod(c)
	if !ok {
		return
	}
	summary, err := h.svc.Finance.Summary(c.Request.Context(), principal, period)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) dashboardPayroll(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	period, ok := queryPeriod(c)
	if !ok {
		return
	}
	payroll, err := h.svc.Finance.Payroll(c.Request.Context(), principal, period)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payroll})
}
