package report

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func soldBike(company uuid.UUID, bought, sold string, soldAt time.Time) models.Bike {
	price := d(sold)
	cust := uuid.New()
	at := soldAt
	return models.Bike{
		ID:          uuid.New(),
		CompanyID:   company,
		BoughtPrice: d(bought),
		IsSold:      true,
		SoldPrice:   &price,
		CustomerID:  &cust,
		SoldAt:      &at,
		CreatedAt:   soldAt.Add(-48 * time.Hour),
	}
}

func unsoldBike(company uuid.UUID, bought string, created time.Time) models.Bike {
	return models.Bike{ID: uuid.New(), CompanyID: company, BoughtPrice: d(bought), CreatedAt: created}
}

func TestSummarizeScenarioC(t *testing.T) {
	acme := uuid.New()
	bikes := []models.Bike{soldBike(acme, "8500", "9000", now)}

	got := Summarize(bikes)
	assert.Equal(t, 1, got.SoldBikes)
	assert.True(t, got.Profit.Equal(d("500")), got.Profit.String())
	assert.True(t, got.ProfitMargin.Equal(d("5.56")), got.ProfitMargin.String())
}

func TestSummarizeEmptyHasZeroMargin(t *testing.T) {
	got := Summarize(nil)
	assert.Equal(t, 0, got.TotalBikes)
	assert.True(t, got.ProfitMargin.IsZero())

	onlyUnsold := Summarize([]models.Bike{unsoldBike(uuid.New(), "100", now)})
	assert.Equal(t, 1, onlyUnsold.AvailableBikes)
	assert.True(t, onlyUnsold.Cost.IsZero(), "cost counts sold bikes only")
	assert.True(t, onlyUnsold.ProfitMargin.IsZero())
}

func TestProfitIsAssociative(t *testing.T) {
	acme := uuid.New()
	bikes := []models.Bike{
		soldBike(acme, "0.10", "0.30", now),
		soldBike(acme, "0.20", "0.70", now),
		soldBike(acme, "1000.01", "999.99", now),
		soldBike(acme, "12.34", "56.78", now),
	}

	perBike := decimal.Zero
	for _, b := range bikes {
		p, ok := b.Profit()
		require.True(t, ok)
		perBike = perBike.Add(p)
	}

	totals := Summarize(bikes)
	assert.True(t, perBike.Equal(totals.Profit), "%s vs %s", perBike, totals.Profit)
	assert.True(t, totals.Revenue.Sub(totals.Cost).Equal(totals.Profit))
}

func TestMarginNegativeProfit(t *testing.T) {
	assert.True(t, Margin(d("-50"), d("200")).Equal(d("-25")))
}

func TestAgingCount(t *testing.T) {
	acme := uuid.New()
	bikes := []models.Bike{
		unsoldBike(acme, "1", now.Add(-31*24*time.Hour)),
		unsoldBike(acme, "1", now.Add(-29*24*time.Hour)),
		soldBike(acme, "1", "2", now.Add(-40*24*time.Hour)),
	}
	assert.Equal(t, 1, AgingCount(bikes, now))
}

func TestDailyTrends(t *testing.T) {
	acme := uuid.New()
	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 12, 23, 59, 0, 0, time.UTC)
	bikes := []models.Bike{
		soldBike(acme, "100", "150", day2),
		soldBike(acme, "100", "120", day1),
		soldBike(acme, "100", "130", day1.Add(time.Hour)),
		soldBike(acme, "100", "999", now.AddDate(0, 0, -60)),
		unsoldBike(acme, "100", day1),
	}

	from, to := Window(now, 30)
	trends := DailyTrends(bikes, from, to)

	require.Len(t, trends, 2)
	assert.Equal(t, "2026-03-10", trends[0].Date)
	assert.Equal(t, 2, trends[0].Sales)
	assert.True(t, trends[0].Revenue.Equal(d("250")))
	assert.True(t, trends[0].Profit.Equal(d("50")))
	assert.Equal(t, "2026-03-12", trends[1].Date)
}

func TestRankOrdersByRevenueThenID(t *testing.T) {
	a := models.Company{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Name: "A"}
	b := models.Company{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), Name: "B"}
	c := models.Company{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000c"), Name: "C"}

	bikes := []models.Bike{
		soldBike(b.ID, "10", "100", now.Add(-time.Hour)),
		soldBike(c.ID, "10", "500", now.Add(-time.Hour)),
		soldBike(a.ID, "10", "100", now.Add(-time.Hour)),
		soldBike(a.ID, "10", "10000", now.AddDate(0, 0, -10)),
	}

	from, to := Window(now, 7)
	ranks := Rank([]models.Company{b, c, a}, bikes, from, to)

	require.Len(t, ranks, 3)
	assert.Equal(t, c.ID, ranks[0].CompanyID)
	assert.Equal(t, a.ID, ranks[1].CompanyID, "tie on revenue breaks on id")
	assert.Equal(t, b.ID, ranks[2].CompanyID)
	assert.Equal(t, 1, ranks[1].Sales, "sale outside the window is ignored")
}

func TestRecentSales(t *testing.T) {
	acme := uuid.New()
	var bikes []models.Bike
	for i := 0; i < 7; i++ {
		bikes = append(bikes, soldBike(acme, "1", "2", now.Add(time.Duration(i)*time.Minute)))
	}
	bikes = append(bikes, unsoldBike(acme, "1", now))

	recent := RecentSales(bikes, 5)
	require.Len(t, recent, 5)
	assert.True(t, recent[0].SoldAt.Equal(now.Add(6*time.Minute)))
}

func TestParsePeriod(t *testing.T) {
	for raw, want := range map[string]int{"": 30, "7": 7, "30": 30, "90": 90, "365": 365, "14": 14} {
		got, err := ParsePeriod(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}
	for _, raw := range []string{"0", "-1", "abc", "99999"} {
		_, err := ParsePeriod(raw)
		assert.ErrorIs(t, err, ErrInvalidPeriod, raw)
	}
}
