package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/service"
)

func (h *Handler) listUsers(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	users, err := h.svc.Users.List(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

type createUserRequest struct {
	Email     string     `json:"email" binding:"required"`
	Password  string     `json:"password" binding:"required"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Role      model.Role `json:"role" binding:"required"`
}

func (h *Handler) createUser(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req createUserRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.svc.Users.Create(c.Request.Context(), principal, service.CreateUserInput(req))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

type updateUserRequest struct {
	FirstName *string     `json:"first_name"`
	LastName  *string     `json:"last_name"`
	Role      *model.Role `json:"role"`
	Password  *string     `json:"password"`
}

func (h *Handler) updateUser(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.svc.Users.Update(c.Request.Context(), principal, id, service.UpdateUserInput(req))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) deleteUser(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Users.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) setAvatar(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	upload, ok := readUpload(c, h.maxUpload)
	if !ok {
		return
	}
	user, err := h.svc.Users.SetAvatar(c.Request.Context(), principal, upload)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
