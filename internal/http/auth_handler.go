package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/service"
)

type registerRequest struct {
	CompanyName        string `json:"company_name" binding:"required"`
	CompanyType        string `json:"company_type" binding:"required"`
	RegistrationNumber string `json:"registration_number"`
	Phone              string `json:"phone"`
	Address            string `json:"address"`
	Email              string `json:"email" binding:"required"`
	Password           string `json:"password" binding:"required"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}
	session, err := h.svc.Auth.Register(c.Request.Context(), service.RegisterInput{
		CompanyName:        req.CompanyName,
		CompanyType:        model.CompanyType(req.CompanyType),
		RegistrationNumber: req.RegistrationNumber,
		Phone:              req.Phone,
		Address:            req.Address,
		Email:              req.Email,
		Password:           req.Password,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	session, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) me(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	profile, err := h.svc.Auth.Me(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
