package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/haulops/internal/auth"
	"github.com/nurpe/haulops/internal/config"
	"github.com/nurpe/haulops/internal/csvexport"
	"github.com/nurpe/haulops/internal/db"
	"github.com/nurpe/haulops/internal/db/dbtest"
	"github.com/nurpe/haulops/internal/excel"
	"github.com/nurpe/haulops/internal/http/middleware"
	"github.com/nurpe/haulops/internal/metrics"
	"github.com/nurpe/haulops/internal/pdf"
	"github.com/nurpe/haulops/internal/repository"
	"github.com/nurpe/haulops/internal/service"
	"github.com/nurpe/haulops/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type api struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	database := dbtest.New(t)
	log := zerolog.Nop()
	cfg := &config.Config{
		Environment: "test",
		Auth:        config.AuthConfig{AccessSecret: "secret", AccessTTL: time.Hour, Issuer: "haulops", TrialDays: 14},
		Billing:     config.BillingConfig{TaxRate: 20, PaymentTermsDays: 30, InvoicePrefix: "INV", PaymentPrefix: "PAY"},
		Storage:     config.StorageConfig{Driver: config.StorageDriverLocal, LocalDir: t.TempDir(), PublicURL: "/files", MaxUploadBytes: 1 << 20},
	}

	files, err := storage.NewLocal(cfg.Storage.LocalDir, cfg.Storage.PublicURL)
	require.NoError(t, err)

	companies := repository.NewCompanyRepository(database)
	users := repository.NewUserRepository(database)
	subs := repository.NewSubcontractorRepository(database)
	drivers := repository.NewDriverRepository(database)
	vehicles := repository.NewVehicleRepository(database)
	operations := repository.NewOperationRepository(database)
	invoices := repository.NewInvoiceRepository(database)
	payments := repository.NewPaymentRepository(database)
	m := metrics.New()

	handler := NewHandler(Services{
		Auth:           service.NewAuthService(companies, users, auth.NewIssuer(cfg.Auth.AccessSecret, cfg.Auth.Issuer, cfg.Auth.AccessTTL), cfg, log),
		Companies:      service.NewCompanyService(companies, operations, log),
		Users:          service.NewUserService(users, drivers, operations, files),
		Subcontractors: service.NewSubcontractorService(subs, companies, drivers, vehicles, operations),
		Fleet:          service.NewFleetService(companies, subs, users, drivers, vehicles, operations),
		Operations: service.NewOperationService(companies, subs, drivers, vehicles, operations, files,
			csvexport.NewWriter(), excel.NewGenerator(), cfg, log),
		Billing: service.NewBillingService(companies, subs, operations, invoices, payments,
			pdf.NewGenerator(), m, cfg, log),
		Finance: service.NewFinanceService(operations, invoices, payments, drivers),
	}, cfg.Storage.MaxUploadBytes, log)

	router := NewRouter(handler, middleware.Auth(auth.NewParser(cfg.Auth.AccessSecret, cfg.Auth.Issuer)), RouterOptions{
		Environment: cfg.Environment,
		Metrics:     m,
		Health:      func(ctx context.Context) error { return db.Ping(ctx, database) },
		FilesDir:    files.Root(),
		FilesURL:    cfg.Storage.PublicURL,
		Log:         log,
	})
	return &api{t: t, router: router}
}

func (a *api) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *api) register(name, companyType, email string) service.Session {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/auth/register", "", gin.H{
		"company_name": name,
		"company_type": companyType,
		"email":        email,
		"password":     "password123",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[service.Session](a.t, rec)
}

type idResponse struct {
	ID string `json:"id"`
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = a.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "haulops_http_requests_total")
}

func TestRouter_RequiresToken(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/operations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(http.MethodGet, "/operations", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AuthFlow(t *testing.T) {
	a := newAPI(t)
	session := a.register("Carrier", "TRANSPORT", "boss@example.com")

	rec := a.do(http.MethodPost, "/auth/login", "", gin.H{"email": "boss@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/auth/login", "", gin.H{"email": "boss@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/auth/me", session.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[service.Profile](t, rec)
	assert.Equal(t, "boss@example.com", profile.User.Email)

	rec = a.do(http.MethodPost, "/auth/register", "", gin.H{"company_name": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_ErrorMapping(t *testing.T) {
	a := newAPI(t)
	carrier := a.register("Carrier", "TRANSPORT", "carrier@example.com")
	client := a.register("Client", "CLIENT", "client@example.com")

	rec := a.do(http.MethodGet, "/companies", carrier.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodGet, "/drivers/not-a-uuid", carrier.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/drivers/"+carrier.User.ID.String(), carrier.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodPost, "/operations", client.Token, gin.H{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/partners", carrier.Token, gin.H{"company_id": carrier.Company.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestRouter_OperationToInvoice(t *testing.T) {
	a := newAPI(t)
	carrier := a.register("Carrier", "TRANSPORT", "carrier@example.com")
	client := a.register("Client", "CLIENT", "client@example.com")

	rec := a.do(http.MethodPost, fmt.Sprintf("/clients/%s/link", client.Company.ID), carrier.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/operations", carrier.Token, gin.H{
		"client_company_id": client.Company.ID,
		"pickup_address":    "Almaty",
		"delivery_address":  "Shymkent",
		"sale_price":        1000,
		"purchase_price":    700,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	op := decode[idResponse](t, rec)

	rec = a.do(http.MethodPatch, "/operations/"+op.ID+"/status", carrier.Token, gin.H{"status": "in_progress"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"IN_PROGRESS"`)

	rec = a.do(http.MethodGet, "/operations/"+op.ID, client.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "purchase_price")

	rec = a.do(http.MethodPost, "/invoices", carrier.Token, gin.H{"client_company_id": client.Company.ID, "operation_ids": []string{op.ID}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	detail := decode[service.InvoiceDetail](t, rec)
	assert.Equal(t, 1200.0, detail.Invoice.TotalAmount)

	rec = a.do(http.MethodPost, "/invoices", carrier.Token, gin.H{"client_company_id": client.Company.ID, "operation_ids": []string{op.ID}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/invoices/"+detail.Invoice.ID.String()+"/pdf", client.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))

	rec = a.do(http.MethodPatch, "/invoices/"+detail.Invoice.ID.String()+"/status", carrier.Token, gin.H{"status": "PAID"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/dashboard/summary", carrier.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[map[string]float64](t, rec)
	assert.Equal(t, 1000.0, summary["total_revenue"])
	assert.Equal(t, 300.0, summary["total_margin"])
	assert.Equal(t, 1200.0, summary["total_invoiced"])

	rec = a.do(http.MethodGet, "/operations/export?format=csv", carrier.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
}

func TestRouter_DocumentUpload(t *testing.T) {
	a := newAPI(t)
	carrier := a.register("Carrier", "TRANSPORT", "carrier@example.com")

	rec := a.do(http.MethodPost, "/operations", carrier.Token, gin.H{"pickup_address": "A"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	op := decode[idResponse](t, rec)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "cmr.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("consignment note"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/operations/"+op.ID+"/documents", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+carrier.Token)
	upload := httptest.NewRecorder()
	a.router.ServeHTTP(upload, req)
	require.Equal(t, http.StatusCreated, upload.Code, upload.Body.String())

	var doc struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(upload.Body.Bytes(), &doc))
	require.True(t, strings.HasPrefix(doc.URL, "/files/operations/"))

	rec = a.do(http.MethodGet, doc.URL, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "consignment note", rec.Body.String())

	rec = a.do(http.MethodPost, "/operations/"+op.ID+"/documents", carrier.Token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_HealthFailure(t *testing.T) {
	handler := NewHandler(Services{}, 0, zerolog.Nop())
	router := NewRouter(handler, func(c *gin.Context) { c.Next() }, RouterOptions{
		Health: func(context.Context) error { return errors.New("db down") },
		Log:    zerolog.Nop(),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
