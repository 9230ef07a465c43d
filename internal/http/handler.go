package http

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/haulops/internal/http/middleware"
	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/service"
)

// Services groups everything the handlers call into.
type Services struct {
	Auth           *service.AuthService
	Companies      *service.CompanyService
	Users          *service.UserService
	Subcontractors *service.SubcontractorService
	Fleet          *service.FleetService
	Operations     *service.OperationService
	Billing        *service.BillingService
	Finance        *service.FinanceService
}

type Handler struct {
	svc       Services
	maxUpload int64
	log       zerolog.Logger
}

func NewHandler(svc Services, maxUpload int64, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, maxUpload: maxUpload, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	router.POST("/auth/register", h.register)
	router.POST("/auth/login", h.login)

	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.GET("/auth/me", h.me)

	protected.GET("/companies", h.listCompanies)
	protected.GET("/companies/me", h.getOwnCompany)
	protected.PATCH("/companies/me", h.updateOwnCompany)
	protected.POST("/companies/:id/validate", h.validateCompany)
	protected.POST("/companies/:id/extend-trial", h.extendTrial)

	protected.GET("/users", h.listUsers)
	protected.POST("/users", h.createUser)
	protected.PUT("/users/me/avatar", h.setAvatar)
	protected.PATCH("/users/:id", h.updateUser)
	protected.DELETE("/users/:id", h.deleteUser)

	protected.GET("/clients", h.listClients)
	protected.POST("/clients", h.createClient)
	protected.POST("/clients/:id/link", h.linkClient)
	protected.DELETE("/clients/:id", h.unlinkClient)

	protected.GET("/partners", h.listPartners)
	protected.POST("/partners", h.requestPartner)
	protected.POST("/partners/:id/confirm", h.confirmPartner)
	protected.DELETE("/partners/:id", h.removePartner)

	protected.GET("/subcontractors", h.listSubcontractors)
	protected.POST("/subcontractors", h.createSubcontractor)
	protected.GET("/subcontractors/requests", h.subcontractorRequests)
	protected.GET("/subcontractors/:id", h.getSubcontractor)
	protected.PATCH("/subcontractors/:id", h.updateSubcontractor)
	protected.DELETE("/subcontractors/:id", h.deleteSubcontractor)
	protected.POST("/subcontractors/:id/confirm", h.confirmSubcontractor)

	protected.GET("/drivers", h.listDrivers)
	protected.POST("/drivers", h.createDriver)
	protected.GET("/drivers/:id", h.getDriver)
	protected.PATCH("/drivers/:id", h.updateDriver)
	protected.DELETE("/drivers/:id", h.deleteDriver)

	protected.GET("/vehicles", h.listVehicles)
	protected.POST("/vehicles", h.createVehicle)
	protected.GET("/vehicles/:id", h.getVehicle)
	protected.PATCH("/vehicles/:id", h.updateVehicle)
	protected.DELETE("/vehicles/:id", h.deleteVehicle)

	protected.GET("/operations", h.listOperations)
	protected.POST("/operations", h.createOperation)
	protected.GET("/operations/export", h.exportOperations)
	protected.GET("/operations/:id", h.getOperation)
	protected.PATCH("/operations/:id", h.updateOperation)
	protected.DELETE("/operations/:id", h.deleteOperation)
	protected.PATCH("/operations/:id/status", h.updateOperationStatus)
	protected.GET("/operations/:id/documents", h.listDocuments)
	protected.POST("/operations/:id/documents", h.addDocument)

	protected.GET("/invoices", h.listInvoices)
	protected.POST("/invoices", h.generateInvoice)
	protected.GET("/invoices/:id", h.getInvoice)
	protected.PATCH("/invoices/:id/status", h.updateInvoiceStatus)
	protected.GET("/invoices/:id/pdf", h.invoicePDF)

	protected.GET("/payments", h.listPayments)
	protected.POST("/payments", h.generatePayment)
	protected.GET("/payments/:id", h.getPayment)
	protected.GET("/payments/:id/pdf", h.paymentPDF)

	protected.GET("/dashboard/summary", h.dashboardSummary)
	protected.GET("/dashboard/payroll", h.dashboardPayroll)
}

func (h *Handler) principal(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
	}
	return principal, ok
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// bind decodes the JSON body and answers 400 on failure.
func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

// queryID parses an optional uuid query parameter.
func queryID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &id, true
}

// queryDate parses an optional date query parameter.
func queryDate(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	parsed, err := parseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &parsed, true
}

func queryPeriod(c *gin.Context) (service.Period, bool) {
	from, ok := queryDate(c, "from")
	if !ok {
		return service.Period{}, false
	}
	to, ok := queryDate(c, "to")
	if !ok {
		return service.Period{}, false
	}
	return service.Period{From: from, To: to}, true
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}

// readUpload reads the multipart "file" field.
func readUpload(c *gin.Context, limit int64) (service.Upload, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return service.Upload{}, false
	}
	if limit > 0 && header.Size > limit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is too large"})
		return service.Upload{}, false
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return service.Upload{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return service.Upload{}, false
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return service.Upload{FileName: header.Filename, ContentType: contentType, Data: data}, true
}

func sendFile(c *gin.Context, result *service.FileResult) {
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
