package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/service"
)

type operationRequest struct {
	Reference       *string                `json:"reference"`
	ClientCompanyID *uuid.UUID             `json:"client_company_id"`
	DriverID        *uuid.UUID             `json:"driver_id"`
	VehicleID       *uuid.UUID             `json:"vehicle_id"`
	SubcontractorID *uuid.UUID             `json:"subcontractor_id"`
	Status          *model.OperationStatus `json:"status"`
	PickupAddress   *string                `json:"pickup_address"`
	DeliveryAddress *string                `json:"delivery_address"`
	PickupAt        *time.Time             `json:"pickup_at"`
	DeliveryAt      *time.Time             `json:"delivery_at"`
	SalePrice       *float64               `json:"sale_price"`
	PurchasePrice   *float64               `json:"purchase_price"`
	DriverPay       *float64               `json:"driver_pay"`
	Notes           *string                `json:"notes"`
}

// operationFilter reads the listing filters shared by list and export.
func operationFilter(c *gin.Context) (model.OperationFilter, bool) {
	var filter model.OperationFilter
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := model.OperationStatus(strings.ToUpper(raw))
		filter.Status = &status
	}
	var ok bool
	if filter.ClientCompanyID, ok = queryID(c, "client_id"); !ok {
		return filter, false
	}
	if filter.DriverID, ok = queryID(c, "driver_id"); !ok {
		return filter, false
	}
	if filter.SubcontractorID, ok = queryID(c, "subcontractor_id"); !ok {
		return filter, false
	}
	if raw := strings.TrimSpace(c.Query("invoiced")); raw != "" {
		invoiced, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoiced"})
			return filter, false
		}
		filter.Invoiced = &invoiced
	}
	if filter.From, ok = queryDate(c, "from"); !ok {
		return filter, false
	}
	if filter.To, ok = queryDate(c, "to"); !ok {
		return filter, false
	}
	return filter, true
}

func (h *Handler) listOperations(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	filter, ok := operationFilter(c)
	if !ok {
		return
	}
	ops, err := h.svc.Operations.List(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ops})
}

func (h *Handler) getOperation(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	op, err := h.svc.Operations.Get(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, op)
}

func (h *Handler) createOperation(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req operationRequest
	if !bind(c, &req) {
		return
	}
	op, err := h.svc.Operations.Create(c.Request.Context(), principal, service.OperationInput(req))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, op)
}

func (h *Handler) updateOperation(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req operationRequest
	if !bind(c, &req) {
		return
	}
	op, err := h.svc.Operations.Update(c.Request.Context(), principal, id, service.OperationInput(req))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, op)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) updateOperationStatus(c *gin.Context) {
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
	status := model.OperationStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	op, err := h.svc.Operations.UpdateStatus(c.Request.Context(), principal, id, status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, op)
}

func (h *Handler) deleteOperation(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Operations.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) exportOperations(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	filter, ok := operationFilter(c)
	if !ok {
		return
	}
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(service.ExportCSV))))
	result, err := h.svc.Operations.Export(c.Request.Context(), principal, filter, format)
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, result)
}

func (h *Handler) listDocuments(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	docs, err := h.svc.Operations.ListDocuments(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": docs})
}

func (h *Handler) addDocument(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	upload, ok := readUpload(c, h.maxUpload)
	if !ok {
		return
	}
	doc, err := h.svc.Operations.AddDocument(c.Request.Context(), principal, id, upload)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}
