package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/apperr"
	"github.com/lalith-99/bikers/internal/auth"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/lalith-99/bikers/internal/repository"
	"github.com/lalith-99/bikers/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testPassword = "secret123"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []models.Announcement
}

func (p *recordingPublisher) Publish(_ context.Context, a models.Announcement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, a)
	return nil
}

type fixture struct {
	svc       *Services
	store     *repository.Store
	issuer    *auth.Issuer
	clock     *fakeClock
	publisher *recordingPublisher

	acme  *models.Company
	admin *models.User
}

func newFixture(t *testing.T, blockSuspended bool) *fixture {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := memory.New(memory.WithClock(clock.Now))
	issuer := auth.NewIssuer("test-secret", time.Hour)
	publisher := &recordingPublisher{}

	svc := New(Deps{
		Store:                   store,
		Issuer:                  issuer,
		Logger:                  zaptest.NewLogger(t),
		Publisher:               publisher,
		Clock:                   clock.Now,
		BlockSuspendedCompanies: blockSuspended,
	})

	f := &fixture{svc: svc, store: store, issuer: issuer, clock: clock, publisher: publisher}
	f.acme = f.company(t, "Acme")
	f.admin = f.user(t, "admin@acme.com", models.RoleAdmin, &f.acme.ID)
	return f
}

func (f *fixture) company(t *testing.T, name string) *models.Company {
	t.Helper()
	c, err := f.store.Companies.Create(context.Background(), name, nil)
	require.NoError(t, err)
	return c
}

func (f *fixture) user(t *testing.T, email string, role models.Role, companyID *uuid.UUID) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	u, err := f.store.Users.Create(context.Background(), models.NewUser{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CompanyID:    companyID,
	})
	require.NoError(t, err)
	return u
}

func identity(u *models.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Role: u.Role, CompanyID: u.CompanyID}
}

func price(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func (f *fixture) bike(t *testing.T, who *models.User, regNo string, bought int64) *BikeView {
	t.Helper()
	b, err := f.svc.Inventory.Create(context.Background(), identity(who), *who.CompanyID, CreateBikeInput{
		Name:                 "CBR600",
		RegNo:                regNo,
		PreviousOwnerAadhaar: "111122223333",
		BoughtPrice:          price(bought),
	})
	require.NoError(t, err)
	return b
}

func buyer(aadhaar string) CustomerInput {
	return CustomerInput{Name: "Ravi", Phone: "9999999999", AadhaarNumber: aadhaar, Address: "12 Main Road"}
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
}

// ---------------------------------------------------------------
// Auth
// ---------------------------------------------------------------

func TestLoginScopesTokenToStoredCompany(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	res, err := f.svc.Auth.Login(ctx, LoginInput{Email: " ADMIN@acme.com ", Password: testPassword, CompanyID: &f.acme.ID})
	require.NoError(t, err)
	require.NotNil(t, res.Company)
	assert.Equal(t, f.acme.ID, res.Company.ID)
	assert.Equal(t, int64(3600), res.ExpiresIn)

	claims, err := f.issuer.Parse(res.Token)
	require.NoError(t, err)
	require.NotNil(t, claims.CompanyID)
	assert.Equal(t, f.acme.ID, *claims.CompanyID)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.False(t, claims.Impersonated)

	// Omitting company_id still scopes to the stored company.
	res, err = f.svc.Auth.Login(ctx, LoginInput{Email: "admin@acme.com", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, f.acme.ID, res.Company.ID)
}

func TestLoginRejections(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	other := f.company(t, "SpeedWheel")

	_, err := f.svc.Auth.Login(ctx, LoginInput{Email: "admin@acme.com", Password: "wrong"})
	assertKind(t, err, apperr.KindUnauthenticated)

	_, err = f.svc.Auth.Login(ctx, LoginInput{Email: "nobody@acme.com", Password: testPassword})
	assertKind(t, err, apperr.KindUnauthenticated)

	_, err = f.svc.Auth.Login(ctx, LoginInput{Email: "admin@acme.com", Password: testPassword, CompanyID: &other.ID})
	assertKind(t, err, apperr.KindForbidden)

	_, err = f.svc.Auth.Login(ctx, LoginInput{Email: "not-an-email", Password: testPassword})
	assertKind(t, err, apperr.KindValidationFailed)
}

func TestLoginSuspendedCompany(t *testing.T) {
	for _, block := range []bool{true, false} {
		t.Run(map[bool]string{true: "blocked", false: "allowed"}[block], func(t *testing.T) {
			f := newFixture(t, block)
			ctx := context.Background()

			_, err := f.svc.Companies.SetActive(ctx, f.acme.ID, false)
			require.NoError(t, err)

			res, err := f.svc.Auth.Login(ctx, LoginInput{Email: "admin@acme.com", Password: testPassword, CompanyID: &f.acme.ID})
			if block {
				assertKind(t, err, apperr.KindForbidden)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, f.acme.ID, res.Company.ID)
		})
	}
}

func TestSuperadminLoginAndImpersonation(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	root := f.user(t, "root@platform.io", models.RoleSuperadmin, nil)

	res, err := f.svc.Auth.Login(ctx, LoginInput{Email: "root@platform.io", Password: testPassword})
	require.NoError(t, err)
	assert.Nil(t, res.Company)
	claims, err := f.issuer.Parse(res.Token)
	require.NoError(t, err)
	assert.Nil(t, claims.CompanyID)

	// Login with company_id overrides the scope.
	res, err = f.svc.Auth.Login(ctx, LoginInput{Email: "root@platform.io", Password: testPassword, CompanyID: &f.acme.ID})
	require.NoError(t, err)
	claims, err = f.issuer.Parse(res.Token)
	require.NoError(t, err)
	require.NotNil(t, claims.CompanyID)
	assert.Equal(t, f.acme.ID, *claims.CompanyID)
	assert.True(t, claims.Impersonated)

	missing := uuid.New()
	_, err = f.svc.Auth.Login(ctx, LoginInput{Email: "root@platform.io", Password: testPassword, CompanyID: &missing})
	assertKind(t, err, apperr.KindNotFound)

	// Suspended companies can still be impersonated.
	_, err = f.svc.Companies.SetActive(ctx, f.acme.ID, false)
	require.NoError(t, err)
	imp, err := f.svc.Auth.Impersonate(ctx, identity(root), f.acme.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), imp.ExpiresIn)

	_, err = f.svc.Auth.Impersonate(ctx, identity(f.admin), f.acme.ID)
	assertKind(t, err, apperr.KindForbidden)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	who := identity(f.admin)

	err := f.svc.Auth.ChangePassword(ctx, who, ChangePasswordInput{CurrentPassword: "wrong", NewPassword: "another1"})
	assertKind(t, err, apperr.KindUnauthenticated)

	err = f.svc.Auth.ChangePassword(ctx, who, ChangePasswordInput{CurrentPassword: testPassword, NewPassword: "short"})
	assertKind(t, err, apperr.KindValidationFailed)

	require.NoError(t, f.svc.Auth.ChangePassword(ctx, who, ChangePasswordInput{CurrentPassword: testPassword, NewPassword: "another1"}))

	_, err = f.svc.Auth.Login(ctx, LoginInput{Email: "admin@acme.com", Password: "another1"})
	require.NoError(t, err)
}

func TestBootstrapCreatesSuperadminOnce(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.svc.Auth.Bootstrap(ctx, "Root@Platform.io", "bootstrap1"))
	require.NoError(t, f.svc.Auth.Bootstrap(ctx, "other@platform.io", "bootstrap2"))

	u, err := f.store.Users.GetByEmail(ctx, "root@platform.io")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, models.RoleSuperadmin, u.Role)

	u, err = f.store.Users.GetByEmail(ctx, "other@platform.io")
	require.NoError(t, err)
	assert.Nil(t, u)
}

// ---------------------------------------------------------------
// Users
// ---------------------------------------------------------------

func TestCreateUserRules(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	root := f.user(t, "root@platform.io", models.RoleSuperadmin, nil)
	worker := f.user(t, "worker@acme.com", models.RoleWorker, &f.acme.ID)
	other := f.company(t, "SpeedWheel")

	// Admin creates a worker in their own company; company_id is implied.
	u, err := f.svc.Users.Create(ctx, identity(f.admin), CreateUserInput{Email: "w2@acme.com", Password: "secret1", Role: "WORKER"})
	require.NoError(t, err)
	require.NotNil(t, u.CompanyID)
	assert.Equal(t, f.acme.ID, *u.CompanyID)

	_, err = f.svc.Users.Create(ctx, identity(f.admin), CreateUserInput{Email: "x@acme.com", Password: "secret1", Role: "WORKER", CompanyID: &other.ID})
	assertKind(t, err, apperr.KindForbidden)

	_, err = f.svc.Users.Create(ctx, identity(f.admin), CreateUserInput{Email: "x@acme.com", Password: "secret1", Role: "SUPERADMIN"})
	assertKind(t, err, apperr.KindForbidden)

	_, err = f.svc.Users.Create(ctx, identity(worker), CreateUserInput{Email: "x@acme.com", Password: "secret1", Role: "WORKER"})
	assertKind(t, err, apperr.KindForbidden)

	_, err = f.svc.Users.Create(ctx, identity(root), CreateUserInput{Email: "x@acme.com", Password: "secret1", Role: "ADMIN"})
	assertKind(t, err, apperr.KindValidationFailed)

	missing := uuid.New()
	_, err = f.svc.Users.Create(ctx, identity(root), CreateUserInput{Email: "x@acme.com", Password: "secret1", Role: "ADMIN", CompanyID: &missing})
	assertKind(t, err, apperr.KindValidationFailed)

	_, err = f.svc.Users.Create(ctx, identity(root), CreateUserInput{Email: "ADMIN@acme.com", Password: "secret1", Role: "ADMIN", CompanyID: &f.acme.ID})
	assertKind(t, err, apperr.KindConflict)

	_, err = f.svc.Users.Create(ctx, identity(root), CreateUserInput{Email: "x@acme.com", Password: "secret1", Role: "OWNER", CompanyID: &f.acme.ID})
	assertKind(t, err, apperr.KindValidationFailed)
}

func TestListCompanyUsersCountsBikes(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.bike(t, f.admin, "A-1", 100)
	f.bike(t, f.admin, "A-2", 100)

	users, err := f.svc.Users.ListCompany(ctx, f.acme.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 2, users[0].BikesAdded)

	all, err := f.svc.Users.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].CompanyName)
	assert.Equal(t, "Acme", *all[0].CompanyName)
}

// ---------------------------------------------------------------
// Companies
// ---------------------------------------------------------------

func TestCompanyLifecycle(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	c, err := f.svc.Companies.Create(ctx, CreateCompanyInput{Name: "  Thunder Motors  "})
	require.NoError(t, err)
	assert.Equal(t, "Thunder Motors", c.Name)
	assert.True(t, c.IsActive)

	_, err = f.svc.Companies.Create(ctx, CreateCompanyInput{Name: "thunder motors"})
	assertKind(t, err, apperr.KindConflict)

	_, err = f.svc.Companies.Create(ctx, CreateCompanyInput{Name: "X"})
	assertKind(t, err, apperr.KindValidationFailed)

	bad := "not a url"
	_, err = f.svc.Companies.Create(ctx, CreateCompanyInput{Name: "Logo Co", Logo: &bad})
	assertKind(t, err, apperr.KindValidationFailed)

	_, err = f.svc.Companies.SetActive(ctx, c.ID, false)
	require.NoError(t, err)
	active, err := f.svc.Companies.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Acme", active[0].Name)

	// Acme has a user: delete is refused.
	assertKind(t, f.svc.Companies.Delete(ctx, f.acme.ID), apperr.KindConflict)
	require.NoError(t, f.svc.Companies.Delete(ctx, c.ID))
	assertKind(t, f.svc.Companies.Delete(ctx, c.ID), apperr.KindNotFound)

	_, err = f.svc.Companies.SetActive(ctx, uuid.New(), true)
	assertKind(t, err, apperr.KindNotFound)
}

func TestCompanyListAndStats(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.user(t, "worker@acme.com", models.RoleWorker, &f.acme.ID)
	b := f.bike(t, f.admin, "A-1", 1000)
	f.bike(t, f.admin, "A-2", 500)
	_, err := f.svc.Inventory.MarkSold(ctx, identity(f.admin), f.acme.ID, b.ID, MarkSoldInput{SoldPrice: price(1500), Customer: buyer("123456789012")})
	require.NoError(t, err)

	list, err := f.svc.Companies.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].UserCount)
	assert.Equal(t, 2, list[0].BikeCount)
	assert.Equal(t, 1, list[0].SoldCount)

	stats, err := f.svc.Companies.Stats(ctx, f.acme.ID)
	require.NoError(t, err)
	assert.Equal(t, UserCounts{Total: 2, Admins: 1, Workers: 1}, stats.Users)
	assert.True(t, stats.Totals.Profit.Equal(decimal.NewFromInt(500)))
	assert.True(t, stats.Totals.ProfitMargin.Equal(decimal.RequireFromString("33.33")))

	_, err = f.svc.Companies.Stats(ctx, uuid.New())
	assertKind(t, err, apperr.KindNotFound)
}

// ---------------------------------------------------------------
// Inventory
// ---------------------------------------------------------------

func TestCreateBikeNormalizesAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	who := identity(f.admin)

	b := f.bike(t, f.admin, " abc-1 ", 8500)
	assert.Equal(t, "ABC-1", b.RegNo)
	assert.False(t, b.IsSold)
	assert.Nil(t, b.SoldPrice)
	assert.Nil(t, b.CustomerID)

	_, err := f.svc.Inventory.Create(ctx, who, f.acme.ID, CreateBikeInput{
		Name: "Other", RegNo: "Abc-1", PreviousOwnerAadhaar: "111122223333", BoughtPrice: price(1),
	})
	assertKind(t, err, apperr.KindConflict)

	// Another company may reuse the number.
	other := f.company(t, "SpeedWheel")
	otherAdmin := f.user(t, "admin@speedwheel.com", models.RoleAdmin, &other.ID)
	f.bike(t, otherAdmin, "ABC-1", 100)
}

func TestCreateBikeValidation(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.Inventory.Create(ctx, identity(f.admin), f.acme.ID, CreateBikeInput{
		Name: " ", RegNo: "R-1", PreviousOwnerAadhaar: "12345", BoughtPrice: price(0),
	})
	assertKind(t, err, apperr.KindValidationFailed)

	fields := apperr.As(err).Fields
	names := make([]string, 0, len(fields))
	for _, fe := range fields {
		names = append(names, fe.Field)
	}
	assert.ElementsMatch(t, []string{"name", "previous_owner_aadhaar", "bought_price"}, names)
}

func TestCreateBikeRejectsShortNameAndRegNo(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.Inventory.Create(ctx, identity(f.admin), f.acme.ID, CreateBikeInput{
		Name: "C", RegNo: " r ", PreviousOwnerAadhaar: "111122223333", BoughtPrice: price(100),
	})
	assertKind(t, err, apperr.KindValidationFailed)

	fields := apperr.As(err).Fields
	names := make([]string, 0, len(fields))
	for _, fe := range fields {
		names = append(names, fe.Field)
	}
	assert.ElementsMatch(t, []string{"name", "reg_no"}, names)

	b := f.bike(t, f.admin, "R1", 100)
	short := "X"
	_, err = f.svc.Inventory.Update(ctx, identity(f.admin), f.acme.ID, b.ID, UpdateBikeInput{Name: &short})
	assertKind(t, err, apperr.KindValidationFailed)
	assert.Equal(t, "name", apperr.As(err).Fields[0].Field)

	_, err = f.svc.Inventory.Update(ctx, identity(f.admin), f.acme.ID, b.ID, UpdateBikeInput{RegNo: &short})
	assertKind(t, err, apperr.KindValidationFailed)
	assert.Equal(t, "reg_no", apperr.As(err).Fields[0].Field)
}

func TestPricesMustFitTheColumn(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	who := identity(f.admin)
	b := f.bike(t, f.admin, "R-1", 1000)

	tests := []struct {
		name  string
		price string
	}{
		{"Fraction of a paisa", "0.001"},
		{"Three decimal places", "99.999"},
		{"Eleven integer digits", "100000000000"},
		{"Just past the column maximum", "10000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := decimal.RequireFromString(tt.price)

			_, err := f.svc.Inventory.Create(ctx, who, f.acme.ID, CreateBikeInput{
				Name: "CBR600", RegNo: "P-1", PreviousOwnerAadhaar: "111122223333", BoughtPrice: &p,
			})
			assertKind(t, err, apperr.KindValidationFailed)
			assert.Equal(t, "bought_price", apperr.As(err).Fields[0].Field)

			_, err = f.svc.Inventory.Update(ctx, who, f.acme.ID, b.ID, UpdateBikeInput{BoughtPrice: &p})
			assertKind(t, err, apperr.KindValidationFailed)
			assert.Equal(t, "bought_price", apperr.As(err).Fields[0].Field)

			_, err = f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, b.ID, MarkSoldInput{SoldPrice: &p, Customer: buyer("123456789012")})
			assertKind(t, err, apperr.KindValidationFailed)
			assert.Equal(t, "sold_price", apperr.As(err).Fields[0].Field)
		})
	}

	stored, err := f.store.Bikes.GetByID(ctx, f.acme.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsSold)
	assert.True(t, stored.BoughtPrice.Equal(decimal.NewFromInt(1000)))

	// Trailing zeros and the column maximum are fine.
	exact := decimal.RequireFromString("1500.500")
	_, err = f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, b.ID, MarkSoldInput{SoldPrice: &exact, Customer: buyer("123456789012")})
	require.NoError(t, err)

	top := decimal.RequireFromString("9999999999.99")
	_, err = f.svc.Inventory.Create(ctx, who, f.acme.ID, CreateBikeInput{
		Name: "CBR600", RegNo: "P-2", PreviousOwnerAadhaar: "111122223333", BoughtPrice: &top,
	})
	require.NoError(t, err)
}

func TestMarkSoldAndReports(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	who := identity(f.admin)
	b := f.bike(t, f.admin, "abc-1", 8500)

	sale, err := f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, b.ID, MarkSoldInput{SoldPrice: price(9000), Customer: buyer("123456789012")})
	require.NoError(t, err)
	assert.True(t, sale.Profit.Equal(decimal.NewFromInt(500)))
	require.NotNil(t, sale.Customer)
	assert.Equal(t, "123456789012", sale.Customer.AadhaarNumber)

	stored, err := f.store.Bikes.GetByID(ctx, f.acme.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsSold)
	require.NotNil(t, stored.SoldPrice)
	assert.True(t, stored.SoldPrice.Equal(decimal.NewFromInt(9000)))
	require.NotNil(t, stored.CustomerID)

	customer, err := f.store.Customers.GetByAadhaar(ctx, "123456789012")
	require.NoError(t, err)
	require.NotNil(t, customer)
	assert.Equal(t, customer.ID, *stored.CustomerID)

	profit, err := f.svc.Reports.Profit(ctx, f.acme.ID)
	require.NoError(t, err)
	assert.True(t, profit.TotalProfit.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 1, profit.Count)

	// Second sale of the same bike.
	_, err = f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, b.ID, MarkSoldInput{SoldPrice: price(9000), Customer: buyer("123456789012")})
	assertKind(t, err, apperr.KindNotFound)

	// Already sold wins over bad input.
	_, err = f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, b.ID, MarkSoldInput{})
	assertKind(t, err, apperr.KindNotFound)

	// Sold bikes are frozen.
	name := "Renamed"
	_, err = f.svc.Inventory.Update(ctx, who, f.acme.ID, b.ID, UpdateBikeInput{Name: &name})
	assertKind(t, err, apperr.KindConflict)
	assertKind(t, f.svc.Inventory.Delete(ctx, f.acme.ID, b.ID), apperr.KindConflict)
}

func TestMarkSoldValidationOrder(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	who := identity(f.admin)
	b := f.bike(t, f.admin, "R-1", 1000)

	_, err := f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, uuid.New(), MarkSoldInput{})
	assertKind(t, err, apperr.KindNotFound)

	_, err = f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, b.ID, MarkSoldInput{Customer: buyer("123456789012")})
	assertKind(t, err, apperr.KindValidationFailed)
	assert.Equal(t, "sold_price", apperr.As(err).Fields[0].Field)

	_, err = f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, b.ID, MarkSoldInput{SoldPrice: price(-5), Customer: buyer("123456789012")})
	assertKind(t, err, apperr.KindValidationFailed)

	_, err = f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, b.ID, MarkSoldInput{SoldPrice: price(1200), Customer: CustomerInput{
		Name: "  ", Phone: "1", AadhaarNumber: "123456789012", Address: "x",
	}})
	assertKind(t, err, apperr.KindValidationFailed)
	assert.Equal(t, "customer.name", apperr.As(err).Fields[0].Field)

	_, err = f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, b.ID, MarkSoldInput{SoldPrice: price(1200), Customer: buyer("12345678901A")})
	assertKind(t, err, apperr.KindValidationFailed)
	assert.Equal(t, "customer.aadhaar_number", apperr.As(err).Fields[0].Field)

	// Below the purchase price.
	_, err = f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, b.ID, MarkSoldInput{SoldPrice: price(999), Customer: buyer("123456789012")})
	assertKind(t, err, apperr.KindValidationFailed)

	// Nothing was written by the failures above.
	stored, err := f.store.Bikes.GetByID(ctx, f.acme.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsSold)
	customers, err := f.store.Customers.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, customers)

	// Selling at cost is allowed.
	_, err = f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, b.ID, MarkSoldInput{SoldPrice: price(1000), Customer: buyer("123456789012")})
	require.NoError(t, err)
}

func TestMarkSoldUpdatesReturningCustomer(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	who := identity(f.admin)
	first := f.bike(t, f.admin, "R-1", 100)
	second := f.bike(t, f.admin, "R-2", 100)

	_, err := f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, first.ID, MarkSoldInput{SoldPrice: price(200), Customer: buyer("123456789012")})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	moved := buyer("123456789012")
	moved.Address = "45 New Street"
	_, err = f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, second.ID, MarkSoldInput{SoldPrice: price(300), Customer: moved})
	require.NoError(t, err)

	customers, err := f.store.Customers.List(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "45 New Street", customers[0].Address)

	stats, err := f.svc.Customers.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCustomers)
	assert.Equal(t, 1, stats.NewThisMonth)
	assert.Equal(t, 1, stats.RepeatCustomers)
	assert.True(t, stats.AverageSpent.Equal(decimal.NewFromInt(500)))

	list, err := f.svc.Customers.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].TotalPurchases)
	assert.True(t, list[0].TotalSpent.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "R-2", list[0].Bikes[0].RegNo)
	assert.Equal(t, "Acme", list[0].Bikes[0].CompanyName)
}

func TestTenantIsolation(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	b := f.bike(t, f.admin, "ABC-1", 8500)

	speed := f.company(t, "SpeedWheel")
	worker := f.user(t, "worker@speedwheel.com", models.RoleWorker, &speed.ID)
	who := identity(worker)

	_, err := f.svc.Inventory.Get(ctx, who, speed.ID, b.ID)
	assertKind(t, err, apperr.KindNotFound)

	name := "Stolen"
	_, err = f.svc.Inventory.Update(ctx, who, speed.ID, b.ID, UpdateBikeInput{Name: &name})
	assertKind(t, err, apperr.KindNotFound)

	assertKind(t, f.svc.Inventory.Delete(ctx, speed.ID, b.ID), apperr.KindNotFound)

	_, err = f.svc.Inventory.MarkSold(ctx, who, speed.ID, b.ID, MarkSoldInput{SoldPrice: price(9000), Customer: buyer("123456789012")})
	assertKind(t, err, apperr.KindNotFound)

	_, err = f.svc.Inventory.Receipt(ctx, speed.ID, b.ID)
	assertKind(t, err, apperr.KindNotFound)

	list, err := f.svc.Inventory.List(ctx, who, speed.ID, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWorkerSeesMaskedIdentityNumbers(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	worker := f.user(t, "worker@acme.com", models.RoleWorker, &f.acme.ID)
	b := f.bike(t, f.admin, "R-1", 100)
	_, err := f.svc.Inventory.MarkSold(ctx, identity(f.admin), f.acme.ID, b.ID, MarkSoldInput{SoldPrice: price(200), Customer: buyer("123456789012")})
	require.NoError(t, err)

	detail, err := f.svc.Inventory.Get(ctx, identity(worker), f.acme.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "XXXXXXXX3333", detail.PreviousOwnerAadhaar)
	assert.Equal(t, "XXXXXXXX3333", detail.Supplier.AadhaarNumber)
	require.NotNil(t, detail.Sale)
	assert.Equal(t, "XXXXXXXX9012", detail.Sale.Customer.AadhaarNumber)

	detail, err = f.svc.Inventory.Get(ctx, identity(f.admin), f.acme.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "111122223333", detail.PreviousOwnerAadhaar)
	assert.Equal(t, "admin@acme.com", detail.AddedByEmail)
	assert.Equal(t, "Acme", detail.CompanyName)
}

func TestUpdateAndDeleteBike(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	who := identity(f.admin)
	a := f.bike(t, f.admin, "R-1", 100)
	b := f.bike(t, f.admin, "R-2", 100)

	taken := "r-1"
	_, err := f.svc.Inventory.Update(ctx, who, f.acme.ID, b.ID, UpdateBikeInput{RegNo: &taken})
	assertKind(t, err, apperr.KindConflict)

	regNo := " r-3 "
	newPrice := price(150)
	updated, err := f.svc.Inventory.Update(ctx, who, f.acme.ID, b.ID, UpdateBikeInput{RegNo: &regNo, BoughtPrice: newPrice})
	require.NoError(t, err)
	assert.Equal(t, "R-3", updated.RegNo)
	assert.True(t, updated.BoughtPrice.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, "CBR600", updated.Name)

	_, err = f.svc.Inventory.Update(ctx, who, f.acme.ID, b.ID, UpdateBikeInput{BoughtPrice: price(0)})
	assertKind(t, err, apperr.KindValidationFailed)

	require.NoError(t, f.svc.Inventory.Delete(ctx, f.acme.ID, a.ID))
	assertKind(t, f.svc.Inventory.Delete(ctx, f.acme.ID, a.ID), apperr.KindNotFound)
}

func TestListBikesByStatus(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	who := identity(f.admin)
	sold := f.bike(t, f.admin, "R-1", 100)
	f.bike(t, f.admin, "R-2", 100)
	_, err := f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, sold.ID, MarkSoldInput{SoldPrice: price(200), Customer: buyer("123456789012")})
	require.NoError(t, err)

	all, err := f.svc.Inventory.List(ctx, who, f.acme.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "R-2", all[0].RegNo, "newest first")

	available, err := f.svc.Inventory.List(ctx, who, f.acme.ID, "available")
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "R-2", available[0].RegNo)

	soldOnly, err := f.svc.Inventory.List(ctx, who, f.acme.ID, "SOLD")
	require.NoError(t, err)
	require.Len(t, soldOnly, 1)
	assert.Equal(t, "admin@acme.com", soldOnly[0].AddedByEmail)

	_, err = f.svc.Inventory.List(ctx, who, f.acme.ID, "stolen")
	assertKind(t, err, apperr.KindValidationFailed)

	other := f.company(t, "SpeedWheel")
	cross, err := f.svc.Inventory.ListAll(ctx, &other.ID, "")
	require.NoError(t, err)
	assert.Empty(t, cross)
	cross, err = f.svc.Inventory.ListAll(ctx, nil, "")
	require.NoError(t, err)
	require.Len(t, cross, 2)
	assert.Equal(t, "Acme", cross[0].CompanyName)
}

func TestReceiptRequiresSale(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	b := f.bike(t, f.admin, "R-1", 100)

	_, err := f.svc.Inventory.Receipt(ctx, f.acme.ID, b.ID)
	assertKind(t, err, apperr.KindNotFound)

	_, err = f.svc.Inventory.MarkSold(ctx, identity(f.admin), f.acme.ID, b.ID, MarkSoldInput{SoldPrice: price(200), Customer: buyer("123456789012")})
	require.NoError(t, err)

	data, err := f.svc.Inventory.Receipt(ctx, f.acme.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", data.Company.Name)
	assert.Equal(t, "Ravi", data.Customer.Name)
	assert.Equal(t, "admin@acme.com", data.SoldBy)
}

// ---------------------------------------------------------------
// Reports
// ---------------------------------------------------------------

func TestDashboard(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	who := identity(f.admin)

	old := f.bike(t, f.admin, "OLD-1", 100)
	f.clock.Advance(31 * 24 * time.Hour)
	fresh := f.bike(t, f.admin, "NEW-1", 1000)
	_ = old

	_, err := f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, fresh.ID, MarkSoldInput{SoldPrice: price(1250), Customer: buyer("123456789012")})
	require.NoError(t, err)

	other := f.company(t, "SpeedWheel")
	for _, target := range []*uuid.UUID{nil, &f.acme.ID, &other.ID} {
		_, err := f.svc.Broadcasts.Create(ctx, CreateBroadcastInput{Message: "hello", TargetCompanyID: target})
		require.NoError(t, err)
	}

	d, err := f.svc.Reports.Dashboard(ctx, who, f.acme.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, d.TotalBikes)
	assert.Equal(t, 1, d.SoldBikes)
	assert.Equal(t, 1, d.AvailableBikes)
	assert.Equal(t, 1, d.AgingInventory)
	assert.True(t, d.Revenue.Equal(decimal.NewFromInt(1250)))
	assert.True(t, d.Profit.Equal(decimal.NewFromInt(250)))
	assert.True(t, d.ProfitMargin.Equal(decimal.NewFromInt(20)))
	require.Len(t, d.RecentSales, 1)
	assert.Len(t, d.Announcements, 2)
}

func TestDashboardZeroRevenueMargin(t *testing.T) {
	f := newFixture(t, true)
	f.bike(t, f.admin, "R-1", 100)

	d, err := f.svc.Reports.Dashboard(context.Background(), identity(f.admin), f.acme.ID)
	require.NoError(t, err)
	assert.True(t, d.ProfitMargin.IsZero())
	assert.Empty(t, d.RecentSales)
	assert.NotNil(t, d.Announcements)
}

func TestSalesReportNewestFirst(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	who := identity(f.admin)
	a := f.bike(t, f.admin, "R-1", 100)
	b := f.bike(t, f.admin, "R-2", 100)

	_, err := f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, a.ID, MarkSoldInput{SoldPrice: price(150), Customer: buyer("123456789012")})
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.svc.Inventory.MarkSold(ctx, who, f.acme.ID, b.ID, MarkSoldInput{SoldPrice: price(300), Customer: buyer("210987654321")})
	require.NoError(t, err)

	r, err := f.svc.Reports.Sales(ctx, who, f.acme.ID)
	require.NoError(t, err)
	require.Len(t, r.Sales, 2)
	assert.Equal(t, "R-2", r.Sales[0].RegNo)
	assert.True(t, r.Profit.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, "Ravi", r.Sales[1].Customer.Name)
}

func TestRankingsTrendsAndSystemStats(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	speed := f.company(t, "SpeedWheel")
	speedAdmin := f.user(t, "admin@speedwheel.com", models.RoleAdmin, &speed.ID)
	f.user(t, "root@platform.io", models.RoleSuperadmin, nil)

	a := f.bike(t, f.admin, "R-1", 100)
	s := f.bike(t, speedAdmin, "R-1", 100)
	_, err := f.svc.Inventory.MarkSold(ctx, identity(f.admin), f.acme.ID, a.ID, MarkSoldInput{SoldPrice: price(200), Customer: buyer("123456789012")})
	require.NoError(t, err)
	f.clock.Advance(24 * time.Hour)
	_, err = f.svc.Inventory.MarkSold(ctx, identity(speedAdmin), speed.ID, s.ID, MarkSoldInput{SoldPrice: price(500), Customer: buyer("210987654321")})
	require.NoError(t, err)

	rank, err := f.svc.Reports.Rankings(ctx, 7)
	require.NoError(t, err)
	require.Len(t, rank.Rankings, 2)
	assert.Equal(t, "SpeedWheel", rank.Rankings[0].CompanyName)
	assert.Equal(t, 7, rank.PeriodDays)

	trends, err := f.svc.Reports.Trends(ctx, 30)
	require.NoError(t, err)
	require.Len(t, trends.Trends, 2)
	assert.Equal(t, "2026-03-01", trends.Trends[0].Date)
	assert.Equal(t, "2026-03-02", trends.Trends[1].Date)

	stats, err := f.svc.Reports.SystemStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Overview.TotalCompanies)
	assert.Equal(t, 3, stats.Overview.TotalUsers)
	assert.Equal(t, 2, stats.Overview.TotalCustomers)
	assert.Equal(t, RoleCounts{Superadmins: 1, Admins: 2}, stats.Users)
	assert.True(t, stats.Financial.Profit.Equal(decimal.NewFromInt(500)))

	h := f.svc.Reports.Health(ctx, true)
	assert.Equal(t, "maintenance", h.Status)
	assert.Equal(t, "ok", h.Database)
	require.NotNil(t, h.Stats)
}

// ---------------------------------------------------------------
// Broadcasts
// ---------------------------------------------------------------

func TestBroadcasts(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	missing := uuid.New()
	_, err := f.svc.Broadcasts.Create(ctx, CreateBroadcastInput{Message: "hi", TargetCompanyID: &missing})
	assertKind(t, err, apperr.KindNotFound)

	_, err = f.svc.Broadcasts.Create(ctx, CreateBroadcastInput{Message: "   "})
	assertKind(t, err, apperr.KindValidationFailed)

	a, err := f.svc.Broadcasts.Create(ctx, CreateBroadcastInput{Message: " Closed Sunday ", TargetCompanyID: &f.acme.ID})
	require.NoError(t, err)
	assert.Equal(t, "Closed Sunday", a.Message)

	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, a.ID, f.publisher.published[0].ID)

	list, err := f.svc.Broadcasts.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].TargetCompanyName)
	assert.Equal(t, "Acme", *list[0].TargetCompanyName)
}
