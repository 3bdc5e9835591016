package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/shopspring/decimal"
)

// CustomerService is the superadmin's platform-wide view of buyers.
type CustomerService struct {
	deps Deps
}

type PurchasedBike struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	RegNo        string          `json:"reg_no"`
	Price        decimal.Decimal `json:"price"`
	PurchaseDate time.Time       `json:"purchase_date"`
	CompanyName  string          `json:"company_name"`
}

type CustomerOverview struct {
	models.Customer
	TotalPurchases   int             `json:"total_purchases"`
	TotalSpent       decimal.Decimal `json:"total_spent"`
	LastPurchaseDate *time.Time      `json:"last_purchase_date"`
	Bikes            []PurchasedBike `json:"bikes"`
}

// List returns every customer with their purchases across all companies,
// newest customer first. Bikes are ordered most recent purchase first.
func (s *CustomerService) List(ctx context.Context) ([]CustomerOverview, error) {
	customers, err := s.deps.Store.Customers.List(ctx)
	if err != nil {
		return nil, internal("list customers", err)
	}
	purchases, err := s.purchases(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]CustomerOverview, 0, len(customers))
	for _, c := range customers {
		bikes := purchases[c.ID]
		if bikes == nil {
			bikes = make([]PurchasedBike, 0)
		}
		sort.SliceStable(bikes, func(i, j int) bool { return bikes[i].PurchaseDate.After(bikes[j].PurchaseDate) })

		v := CustomerOverview{
			Customer:       c,
			TotalPurchases: len(bikes),
			TotalSpent:     decimal.Zero,
			Bikes:          bikes,
		}
		for _, b := range bikes {
			v.TotalSpent = v.TotalSpent.Add(b.Price)
		}
		if len(bikes) > 0 {
			last := bikes[0].PurchaseDate
			v.LastPurchaseDate = &last
		}
		out = append(out, v)
	}
	return out, nil
}

// purchases groups sold bikes by buyer.
func (s *CustomerService) purchases(ctx context.Context) (map[uuid.UUID][]PurchasedBike, error) {
	bikes, err := s.deps.Store.Bikes.ListAll(ctx)
	if err != nil {
		return nil, internal("list bikes", err)
	}
	companies, err := s.deps.Store.Companies.List(ctx)
	if err != nil {
		return nil, internal("list companies", err)
	}
	names := make(map[uuid.UUID]string, len(companies))
	for _, c := range companies {
		names[c.ID] = c.Name
	}

	byCustomer := make(map[uuid.UUID][]PurchasedBike)
	for _, b := range bikes {
		if !b.IsSold || b.CustomerID == nil || b.SoldPrice == nil || b.SoldAt == nil {
			continue
		}
		byCustomer[*b.CustomerID] = append(byCustomer[*b.CustomerID], PurchasedBike{
			ID:           b.ID,
			Name:         b.Name,
			RegNo:        b.RegNo,
			Price:        *b.SoldPrice,
			PurchaseDate: *b.SoldAt,
			CompanyName:  names[b.CompanyID],
		})
	}
	return byCustomer, nil
}

type CustomerStats struct {
	TotalCustomers  int             `json:"total_customers"`
	NewThisMonth    int             `json:"new_this_month"`
	AverageSpent    decimal.Decimal `json:"average_spent"`
	RepeatCustomers int             `json:"repeat_customers"`
}

// Stats counts customers, those created in the last month and those with
// more than one purchase. AverageSpent is total spend over all customers,
// rounded to two places.
func (s *CustomerService) Stats(ctx context.Context) (*CustomerStats, error) {
	customers, err := s.deps.Store.Customers.List(ctx)
	if err != nil {
		return nil, internal("list customers", err)
	}
	purchases, err := s.purchases(ctx)
	if err != nil {
		return nil, err
	}

	monthAgo := s.deps.now().AddDate(0, -1, 0)
	stats := &CustomerStats{TotalCustomers: len(customers), AverageSpent: decimal.Zero}
	total := decimal.Zero
	for _, c := range customers {
		if !c.CreatedAt.Before(monthAgo) {
			stats.NewThisMonth++
		}
		bikes := purchases[c.ID]
		if len(bikes) > 1 {
			stats.RepeatCustomers++
		}
		for _, b := range bikes {
			total = total.Add(b.Price)
		}
	}
	if len(customers) > 0 {
		stats.AverageSpent = total.Div(decimal.NewFromInt(int64(len(customers)))).Round(2)
	}
	return stats, nil
}
