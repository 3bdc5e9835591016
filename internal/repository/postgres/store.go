package postgres

import (
	"github.com/lalith-99/bikers/internal/db"
	"github.com/lalith-99/bikers/internal/repository"
)

// Compile-time interface checks.
var (
	_ repository.CompanyRepository      = (*CompanyStore)(nil)
	_ repository.UserRepository         = (*UserStore)(nil)
	_ repository.BikeRepository         = (*BikeStore)(nil)
	_ repository.CustomerRepository     = (*CustomerStore)(nil)
	_ repository.AnnouncementRepository = (*AnnouncementStore)(nil)
)

// NewStore wires every Postgres repository onto one pool.
func NewStore(database *db.DB) *repository.Store {
	pool := database.Pool()
	return &repository.Store{
		Companies:     NewCompanyStore(pool),
		Users:         NewUserStore(pool),
		Bikes:         NewBikeStore(pool),
		Customers:     NewCustomerStore(pool),
		Announcements: NewAnnouncementStore(pool),
		Health:        database,
	}
}
