package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nurpe/haulops/internal/auth"
	"github.com/nurpe/haulops/internal/config"
	"github.com/nurpe/haulops/internal/csvexport"
	"github.com/nurpe/haulops/internal/db/dbtest"
	"github.com/nurpe/haulops/internal/excel"
	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/pdf"
	"github.com/nurpe/haulops/internal/repository"
)

type memoryFiles struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memoryFiles) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[key] = data
	return "/files/" + key, nil
}

type countingMetrics struct {
	mu       sync.Mutex
	invoices int
	payments int
}

func (c *countingMetrics) InvoiceGenerated() {
	c.mu.Lock()
	c.invoices++
	c.mu.Unlock()
}

func (c *countingMetrics) PaymentGenerated() {
	c.mu.Lock()
	c.payments++
	c.mu.Unlock()
}

type stack struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB
	cfg *config.Config

	files   *memoryFiles
	metrics *countingMetrics

	auth           *AuthService
	companies      *CompanyService
	users          *UserService
	subcontractors *SubcontractorService
	fleet          *FleetService
	operations     *OperationService
	billing        *BillingService
	finance        *FinanceService
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Auth: config.AuthConfig{
			AccessSecret: "test-secret",
			AccessTTL:    time.Hour,
			Issuer:       "haulops-test",
			TrialDays:    14,
		},
		Billing: config.BillingConfig{
			TaxRate:          20,
			PaymentTermsDays: 30,
			InvoicePrefix:    "INV",
			PaymentPrefix:    "PAY",
		},
		Storage: config.StorageConfig{MaxUploadBytes: 1024},
	}
}

func newStack(t *testing.T) *stack {
	t.Helper()
	database := dbtest.New(t)
	cfg := testConfig()
	log := zerolog.Nop()

	companies := repository.NewCompanyRepository(database)
	users := repository.NewUserRepository(database)
	subs := repository.NewSubcontractorRepository(database)
	drivers := repository.NewDriverRepository(database)
	vehicles := repository.NewVehicleRepository(database)
	operations := repository.NewOperationRepository(database)
	invoices := repository.NewInvoiceRepository(database)
	payments := repository.NewPaymentRepository(database)

	files := &memoryFiles{}
	metrics := &countingMetrics{}
	issuer := auth.NewIssuer(cfg.Auth.AccessSecret, cfg.Auth.Issuer, cfg.Auth.AccessTTL)

	return &stack{
		t:       t,
		ctx:     context.Background(),
		db:      database,
		cfg:     cfg,
		files:   files,
		metrics: metrics,

		auth:           NewAuthService(companies, users, issuer, cfg, log),
		companies:      NewCompanyService(companies, operations, log),
		users:          NewUserService(users, drivers, operations, files),
		subcontractors: NewSubcontractorService(subs, companies, drivers, vehicles, operations),
		fleet:          NewFleetService(companies, subs, users, drivers, vehicles, operations),
		operations: NewOperationService(companies, subs, drivers, vehicles, operations, files,
			csvexport.NewWriter(), excel.NewGenerator(), cfg, log),
		billing: NewBillingService(companies, subs, operations, invoices, payments,
			pdf.NewGenerator(), metrics, cfg, log),
		finance: NewFinanceService(operations, invoices, payments, drivers),
	}
}

// tenant is a company with one admin principal.
type tenant struct {
	company model.Company
	admin   model.Principal
}

func (s *stack) tenant(name string, typ model.CompanyType) tenant {
	s.t.Helper()
	c := model.Company{Name: name, Type: typ}
	require.NoError(s.t, s.db.Create(&c).Error)
	u := s.user(c, model.RoleCompanyAdmin)
	return tenant{company: c, admin: u}
}

func (s *stack) user(c model.Company, role model.Role) model.Principal {
	s.t.Helper()
	u := model.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Role:         role,
		CompanyID:    &c.ID,
	}
	require.NoError(s.t, s.db.Create(&u).Error)
	return principalOf(u, c)
}

func principalOf(u model.User, c model.Company) model.Principal {
	return model.Principal{UserID: u.ID, Role: u.Role, CompanyID: u.CompanyID, CompanyType: c.Type}
}

func platformAdmin() model.Principal {
	return model.Principal{UserID: uuid.New(), Role: model.RoleAdmin}
}

// linkClient puts client in the carrier's linked-clients list.
func (s *stack) linkClient(carrier, client tenant) {
	s.t.Helper()
	_, err := s.companies.LinkClient(s.ctx, carrier.admin, client.company.ID)
	require.NoError(s.t, err)
}

func (s *stack) operation(p model.Principal, client uuid.UUID, sale float64, mutate ...func(*OperationInput)) *model.Operation {
	s.t.Helper()
	input := OperationInput{
		ClientCompanyID: &client,
		PickupAddress:   ptr("Almaty"),
		DeliveryAddress: ptr("Astana"),
		SalePrice:       &sale,
	}
	for _, m := range mutate {
		m(&input)
	}
	op, err := s.operations.Create(s.ctx, p, input)
	require.NoError(s.t, err)
	return op
}

func ptr[T any](v T) *T {
	return &v
}
