// Package report derives read-only figures from bike records. Nothing here
// is stored; every function recomputes from the rows it is given.
package report

import (
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/shopspring/decimal"
)

// AgingThreshold is how long an unsold bike may sit before it counts as
// aging inventory.
const AgingThreshold = 30 * 24 * time.Hour

// DefaultPeriodDays is used when a window is not supplied.
const DefaultPeriodDays = 30

// MaxPeriodDays caps custom windows.
const MaxPeriodDays = 3650

var hundred = decimal.NewFromInt(100)

// Totals is the inventory and money summary over a set of bikes.
type Totals struct {
	TotalBikes     int             `json:"total_bikes"`
	SoldBikes      int             `json:"sold_bikes"`
	AvailableBikes int             `json:"available_bikes"`
	Revenue        decimal.Decimal `json:"total_revenue"`
	Cost           decimal.Decimal `json:"total_cost"`
	Profit         decimal.Decimal `json:"total_profit"`
	ProfitMargin   decimal.Decimal `json:"profit_margin"`
}

// Summarize counts bikes and sums money over the sold ones.
// Cost only includes bought prices of sold bikes.
func Summarize(bikes []models.Bike) Totals {
	t := Totals{
		TotalBikes: len(bikes),
		Revenue:    decimal.Zero,
		Cost:       decimal.Zero,
	}
	for i := range bikes {
		b := &bikes[i]
		if !b.IsSold || b.SoldPrice == nil {
			t.AvailableBikes++
			continue
		}
		t.SoldBikes++
		t.Revenue = t.Revenue.Add(*b.SoldPrice)
		t.Cost = t.Cost.Add(b.BoughtPrice)
	}
	t.Profit = t.Revenue.Sub(t.Cost)
	t.ProfitMargin = Margin(t.Profit, t.Revenue)
	return t
}

// Margin is profit as a percentage of revenue, rounded to two places.
// Zero revenue gives a zero margin.
func Margin(profit, revenue decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return profit.Div(revenue).Mul(hundred).Round(2)
}

// AgingCount counts unsold bikes created before now - AgingThreshold.
func AgingCount(bikes []models.Bike, now time.Time) int {
	cutoff := now.Add(-AgingThreshold)
	n := 0
	for i := range bikes {
		if !bikes[i].IsSold && bikes[i].CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n
}

// SoldBetween keeps sold bikes whose sale time falls in [from, to].
func SoldBetween(bikes []models.Bike, from, to time.Time) []models.Bike {
	out := make([]models.Bike, 0)
	for _, b := range bikes {
		if !b.IsSold || b.SoldAt == nil {
			continue
		}
		if b.SoldAt.Before(from) || b.SoldAt.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// RecentSales returns up to n sold bikes, most recent sale first.
func RecentSales(bikes []models.Bike, n int) []models.Bike {
	sold := make([]models.Bike, 0)
	for _, b := range bikes {
		if b.IsSold && b.SoldAt != nil {
			sold = append(sold, b)
		}
	}
	sort.SliceStable(sold, func(i, j int) bool { return sold[i].SoldAt.After(*sold[j].SoldAt) })
	if n > 0 && len(sold) > n {
		sold = sold[:n]
	}
	return sold
}

// TrendPoint is one calendar day (UTC) with at least one sale.
type TrendPoint struct {
	Date    string          `json:"date"`
	Sales   int             `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

// DailyTrends buckets sales in [from, to] by UTC day, oldest day first.
// Days without sales are omitted.
func DailyTrends(bikes []models.Bike, from, to time.Time) []TrendPoint {
	byDay := make(map[string]*TrendPoint)
	for _, b := range SoldBetween(bikes, from, to) {
		day := b.SoldAt.UTC().Format(time.DateOnly)
		p, ok := byDay[day]
		if !ok {
			p = &TrendPoint{Date: day, Revenue: decimal.Zero, Profit: decimal.Zero}
			byDay[day] = p
		}
		profit, _ := b.Profit()
		p.Sales++
		p.Revenue = p.Revenue.Add(*b.SoldPrice)
		p.Profit = p.Profit.Add(profit)
	}

	out := make([]TrendPoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Ranking is one company's performance inside a window.
type Ranking struct {
	CompanyID   uuid.UUID       `json:"company_id"`
	CompanyName string          `json:"company_name"`
	IsActive    bool            `json:"is_active"`
	Sales       int             `json:"sales"`
	Revenue     decimal.Decimal `json:"revenue"`
	Profit      decimal.Decimal `json:"profit"`
}

// Rank orders every company by revenue in [from, to], highest first.
// Ties break on company id so the output is reproducible. Companies without
// sales are included with zero figures.
func Rank(companies []models.Company, bikes []models.Bike, from, to time.Time) []Ranking {
	byCompany := make(map[uuid.UUID]*Ranking, len(companies))
	out := make([]*Ranking, 0, len(companies))
	for _, c := range companies {
		r := &Ranking{
			CompanyID:   c.ID,
			CompanyName: c.Name,
			IsActive:    c.IsActive,
			Revenue:     decimal.Zero,
			Profit:      decimal.Zero,
		}
		byCompany[c.ID] = r
		out = append(out, r)
	}

	for _, b := range SoldBetween(bikes, from, to) {
		r, ok := byCompany[b.CompanyID]
		if !ok {
			continue
		}
		profit, _ := b.Profit()
		r.Sales++
		r.Revenue = r.Revenue.Add(*b.SoldPrice)
		r.Profit = r.Profit.Add(profit)
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].CompanyID.String() < out[j].CompanyID.String()
	})

	rankings := make([]Ranking, len(out))
	for i, r := range out {
		rankings[i] = *r
	}
	return rankings
}

var ErrInvalidPeriod = errors.New("period must be a whole number of days between 1 and 3650")

// ParsePeriod reads a lookback window in days. The presets are 7, 30, 90
// and 365; any other whole number in range is accepted as a custom window.
// An empty value gives DefaultPeriodDays.
func ParsePeriod(raw string) (int, error) {
	if raw == "" {
		return DefaultPeriodDays, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > MaxPeriodDays {
		return 0, ErrInvalidPeriod
	}
	return days, nil
}

// Window returns [now - days, now].
func Window(now time.Time, days int) (time.Time, time.Time) {
	return now.AddDate(0, 0, -days), now
}
