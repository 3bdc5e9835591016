package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/auth"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/lalith-99/bikers/internal/report"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReportService assembles report projections. Nothing is cached: every call
// reads the current rows and recomputes.
type ReportService struct {
	deps       Deps
	broadcasts *BroadcastService
}

const (
	dashboardRecentSales   = 5
	dashboardAnnouncements = 3
)

type Dashboard struct {
	report.Totals
	AgingInventory int                   `json:"aging_inventory"`
	RecentSales    []SaleView            `json:"recent_sales"`
	Announcements  []models.Announcement `json:"announcements"`
}

func (s *ReportService) Dashboard(ctx context.Context, who auth.Identity, companyID uuid.UUID) (*Dashboard, error) {
	bikes, err := s.deps.Store.Bikes.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, internal("list bikes", err)
	}

	recent, err := s.sales(ctx, who, report.RecentSales(bikes, dashboardRecentSales))
	if err != nil {
		return nil, err
	}

	announcements, err := s.broadcasts.Visible(ctx, companyID, dashboardAnnouncements)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Totals:         report.Summarize(bikes),
		AgingInventory: report.AgingCount(bikes, s.deps.now()),
		RecentSales:    recent,
		Announcements:  announcements,
	}, nil
}

// sales turns sold bikes into SaleViews, loading each buyer once.
func (s *ReportService) sales(ctx context.Context, who auth.Identity, sold []models.Bike) ([]SaleView, error) {
	customers := make(map[uuid.UUID]*models.Customer)
	out := make([]SaleView, 0, len(sold))
	for _, b := range sold {
		var customer *models.Customer
		if b.CustomerID != nil {
			c, ok := customers[*b.CustomerID]
			if !ok {
				var err error
				c, err = s.deps.Store.Customers.GetByID(ctx, *b.CustomerID)
				if err != nil {
					return nil, internal("get customer", err)
				}
				customers[*b.CustomerID] = c
			}
			customer = c
		}
		out = append(out, saleView(b, customer, who.Role))
	}
	return out, nil
}

type SalesReport struct {
	report.Totals
	Sales []SaleView `json:"sales"`
}

// Sales lists every sale of the company, newest first, with totals.
func (s *ReportService) Sales(ctx context.Context, who auth.Identity, companyID uuid.UUID) (*SalesReport, error) {
	bikes, err := s.deps.Store.Bikes.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, internal("list bikes", err)
	}
	rows, err := s.sales(ctx, who, report.RecentSales(bikes, 0))
	if err != nil {
		return nil, err
	}
	return &SalesReport{Totals: report.Summarize(bikes), Sales: rows}, nil
}

type ProfitSummary struct {
	TotalProfit decimal.Decimal `json:"total_profit"`
	Count       int             `json:"count"`
}

// Profit is total profit and the number of sales behind it.
func (s *ReportService) Profit(ctx context.Context, companyID uuid.UUID) (*ProfitSummary, error) {
	bikes, err := s.deps.Store.Bikes.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, internal("list bikes", err)
	}
	t := report.Summarize(bikes)
	return &ProfitSummary{TotalProfit: t.Profit, Count: t.SoldBikes}, nil
}

type PlatformOverview struct {
	TotalCompanies     int `json:"total_companies"`
	ActiveCompanies    int `json:"active_companies"`
	SuspendedCompanies int `json:"suspended_companies"`
	TotalUsers         int `json:"total_users"`
	TotalBikes         int `json:"total_bikes"`
	TotalCustomers     int `json:"total_customers"`
}

type InventoryStats struct {
	Sold      int `json:"sold"`
	Available int `json:"available"`
	Aging     int `json:"aging"`
}

type FinancialStats struct {
	Revenue      decimal.Decimal `json:"total_revenue"`
	Cost         decimal.Decimal `json:"total_cost"`
	Profit       decimal.Decimal `json:"total_profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
}

type RoleCounts struct {
	Superadmins int `json:"superadmins"`
	Admins      int `json:"admins"`
	Workers     int `json:"workers"`
}

type SystemStats struct {
	Overview  PlatformOverview `json:"overview"`
	Inventory InventoryStats   `json:"inventory"`
	Financial FinancialStats   `json:"financial"`
	Users     RoleCounts       `json:"users"`
}

// SystemStats is the platform-wide picture for the superadmin.
func (s *ReportService) SystemStats(ctx context.Context) (*SystemStats, error) {
	companies, err := s.deps.Store.Companies.List(ctx)
	if err != nil {
		return nil, internal("list companies", err)
	}
	users, err := s.deps.Store.Users.List(ctx)
	if err != nil {
		return nil, internal("list users", err)
	}
	bikes, err := s.deps.Store.Bikes.ListAll(ctx)
	if err != nil {
		return nil, internal("list bikes", err)
	}
	customers, err := s.deps.Store.Customers.List(ctx)
	if err != nil {
		return nil, internal("list customers", err)
	}

	stats := &SystemStats{}
	stats.Overview.TotalCompanies = len(companies)
	for _, c := range companies {
		if c.IsActive {
			stats.Overview.ActiveCompanies++
		}
	}
	stats.Overview.SuspendedCompanies = len(companies) - stats.Overview.ActiveCompanies
	stats.Overview.TotalUsers = len(users)
	stats.Overview.TotalBikes = len(bikes)
	stats.Overview.TotalCustomers = len(customers)

	for _, u := range users {
		switch u.Role {
		case models.RoleSuperadmin:
			stats.Users.Superadmins++
		case models.RoleAdmin:
			stats.Users.Admins++
		case models.RoleWorker:
			stats.Users.Workers++
		}
	}

	t := report.Summarize(bikes)
	stats.Inventory = InventoryStats{
		Sold:      t.SoldBikes,
		Available: t.AvailableBikes,
		Aging:     report.AgingCount(bikes, s.deps.now()),
	}
	stats.Financial = FinancialStats{
		Revenue:      t.Revenue,
		Cost:         t.Cost,
		Profit:       t.Profit,
		ProfitMargin: t.ProfitMargin,
	}
	return stats, nil
}

type Window struct {
	PeriodDays int       `json:"period_days"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
}

type RankingsReport struct {
	Window
	Rankings []report.Ranking `json:"rankings"`
}

// Rankings orders every company by revenue over the last days days.
func (s *ReportService) Rankings(ctx context.Context, days int) (*RankingsReport, error) {
	companies, err := s.deps.Store.Companies.List(ctx)
	if err != nil {
		return nil, internal("list companies", err)
	}
	bikes, err := s.deps.Store.Bikes.ListAll(ctx)
	if err != nil {
		return nil, internal("list bikes", err)
	}

	from, to := report.Window(s.deps.now(), days)
	return &RankingsReport{
		Window:   Window{PeriodDays: days, From: from, To: to},
		Rankings: report.Rank(companies, bikes, from, to),
	}, nil
}

type TrendsReport struct {
	Window
	Trends []report.TrendPoint `json:"trends"`
}

// Trends buckets platform sales by day over the last days days.
func (s *ReportService) Trends(ctx context.Context, days int) (*TrendsReport, error) {
	bikes, err := s.deps.Store.Bikes.ListAll(ctx)
	if err != nil {
		return nil, internal("list bikes", err)
	}

	from, to := report.Window(s.deps.now(), days)
	return &TrendsReport{
		Window: Window{PeriodDays: days, From: from, To: to},
		Trends: report.DailyTrends(bikes, from, to),
	}, nil
}

type HealthReport struct {
	Status          string       `json:"status"`
	Database        string       `json:"database"`
	MaintenanceMode bool         `json:"maintenance_mode"`
	Stats           *SystemStats `json:"stats,omitempty"`
	CheckedAt       time.Time    `json:"checked_at"`
}

// Health pings the store and, if it answers, attaches system stats.
// A failed ping is reported in the body, not as an error.
func (s *ReportService) Health(ctx context.Context, maintenance bool) *HealthReport {
	h := &HealthReport{
		Status:          "healthy",
		Database:        "ok",
		MaintenanceMode: maintenance,
		CheckedAt:       s.deps.now(),
	}

	if s.deps.Store.Health != nil {
		if err := s.deps.Store.Health.Health(ctx); err != nil {
			s.deps.Logger.Warn("health check: database ping failed", zap.Error(err))
			h.Status = "degraded"
			h.Database = "unreachable"
			return h
		}
	}

	stats, err := s.SystemStats(ctx)
	if err != nil {
		s.deps.Logger.Warn("health check: system stats failed", zap.Error(err))
		h.Status = "degraded"
		return h
	}
	h.Stats = stats
	if maintenance {
		h.Status = "maintenance"
	}
	return h
}
