package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/haulops/internal/service"
)

// Subcontractors

func (h *Handler) listSubcontractors(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	subs, err := h.svc.Subcontractors.List(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": subs})
}

func (h *Handler) getSubcontractor(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	sub, err := h.svc.Subcontractors.Get(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

type createSubcontractorRequest struct {
	Name            string     `json:"name" binding:"required"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	LinkedCompanyID *uuid.UUID `json:"linked_company_id"`
}

func (h *Handler) createSubcontractor(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req createSubcontractorRequest
	if !bind(c, &req) {
		return
	}
	sub, err := h.svc.Subcontractors.Create(c.Request.Context(), principal, service.SubcontractorInput(req))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

type updateSubcontractorRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

func (h *Handler) updateSubcontractor(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateSubcontractorRequest
	if !bind(c, &req) {
		return
	}
	sub, err := h.svc.Subcontractors.Update(c.Request.Context(), principal, id, service.UpdateSubcontractorInput(req))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *Handler) deleteSubcontractor(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Subcontractors.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) subcontractorRequests(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	requests, err := h.svc.Subcontractors.Requests(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": requests})
}

func (h *Handler) confirmSubcontractor(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	sub, err := h.svc.Subcontractors.Confirm(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Drivers

type driverRequest struct {
	FirstName       *string    `json:"first_name"`
	LastName        *string    `json:"last_name"`
	Phone           *string    `json:"phone"`
	LicenseNumber   *string    `json:"license_number"`
	Active          *bool      `json:"active"`
	UserID          *uuid.UUID `json:"user_id"`
	SubcontractorID *uuid.UUID `json:"subcontractor_id"`
}

func (h *Handler) listDrivers(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	drivers, err := h.svc.Fleet.ListDrivers(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": drivers})
}

func (h *Handler) getDriver(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	driver, err := h.svc.Fleet.GetDriver(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, driver)
}

func (h *Handler) createDriver(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req driverRequest
	if !bind(c, &req) {
		return
	}
	driver, err := h.svc.Fleet.CreateDriver(c.Request.Context(), principal, service.DriverInput(req))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, driver)
}

func (h *Handler) updateDriver(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req driverRequest
	if !bind(c, &req) {
		return
	}
	driver, err := h.svc.Fleet.UpdateDriver(c.Request.Context(), principal, id, service.DriverInput(req))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, driver)
}

func (h *Handler) deleteDriver(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Fleet.DeleteDriver(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Vehicles

type vehicleRequest struct {
	PlateNumber     *string    `json:"plate_number"`
	Kind            *string    `json:"kind"`
	Brand           *string    `json:"brand"`
	Model           *string    `json:"model"`
	CapacityKg      *float64   `json:"capacity_kg"`
	Active          *bool      `json:"active"`
	SubcontractorID *uuid.UUID `json:"subcontractor_id"`
}

func (h *Handler) listVehicles(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	vehicles, err := h.svc.Fleet.ListVehicles(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": vehicles})
}

func (h *Handler) getVehicle(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	vehicle, err := h.svc.Fleet.GetVehicle(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

func (h *Handler) createVehicle(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req vehicleRequest
	if !bind(c, &req) {
		return
	}
	vehicle, err := h.svc.Fleet.CreateVehicle(c.Request.Context(), principal, service.VehicleInput(req))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, vehicle)
}

func (h *Handler) updateVehicle(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req vehicleRequest
	if !bind(c, &req) {
		return
	}
	vehicle, err := h.svc.Fleet.UpdateVehicle(c.Request.Context(), principal, id, service.VehicleInput(req))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

func (h *Handler) deleteVehicle(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Fleet.DeleteVehicle(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
