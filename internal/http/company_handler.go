package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/service"
)

func (h *Handler) listCompanies(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var companyType *model.CompanyType
	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		t := model.CompanyType(strings.ToUpper(raw))
		companyType = &t
	}
	companies, err := h.svc.Companies.List(c.Request.Context(), principal, companyType)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": companies})
}

func (h *Handler) getOwnCompany(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	company, err := h.svc.Companies.GetOwn(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

type updateCompanyRequest struct {
	Name               *string `json:"name"`
	Email              *string `json:"email"`
	Phone              *string `json:"phone"`
	Address            *string `json:"address"`
	RegistrationNumber *string `json:"registration_number"`
}

func (h *Handler) updateOwnCompany(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req updateCompanyRequest
	if !bind(c, &req) {
		return
	}
	company, err := h.svc.Companies.UpdateOwn(c.Request.Context(), principal, service.UpdateCompanyInput(req))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func (h *Handler) validateCompany(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	company, err := h.svc.Companies.Validate(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

type extendTrialRequest struct {
	Days int `json:"days" binding:"required"`
}

func (h *Handler) extendTrial(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req extendTrialRequest
	if !bind(c, &req) {
		return
	}
	company, err := h.svc.Companies.ExtendTrial(c.Request.Context(), principal, id, req.Days)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

// Clients

func (h *Handler) listClients(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	clients, err := h.svc.Companies.ListClients(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": clients})
}

type createClientRequest struct {
	Name               string `json:"name" binding:"required"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Address            string `json:"address"`
	RegistrationNumber string `json:"registration_number"`
}

func (h *Handler) createClient(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req createClientRequest
	if !bind(c, &req) {
		return
	}
	client, err := h.svc.Companies.CreateClient(c.Request.Context(), principal, service.CreateClientInput(req))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (h *Handler) linkClient(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	client, err := h.svc.Companies.LinkClient(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *Handler) unlinkClient(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Companies.UnlinkClient(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Partners

func (h *Handler) listPartners(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	links, err := h.svc.Companies.ListPartners(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": links})
}

type partnerRequest struct {
	CompanyID uuid.UUID `json:"company_id" binding:"required"`
}

func (h *Handler) requestPartner(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req partnerRequest
	if !bind(c, &req) {
		return
	}
	link, err := h.svc.Companies.RequestPartner(c.Request.Context(), principal, req.CompanyID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

func (h *Handler) confirmPartner(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	link, err := h.svc.Companies.ConfirmPartner(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h *Handler) removePartner(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Companies.RemovePartner(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
