package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/service-booking/internal/booking"
	"github.com/iliyamo/service-booking/internal/model"
)

// ServiceRepo reads the service catalog.  Catalog writes belong to the
// catalog service; this repository never modifies the table.
type ServiceRepo struct{ DB *sql.DB }

func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{DB: db} }

// GetService fetches a service by id, including its current price.
func (r *ServiceRepo) GetService(ctx context.Context, id uint64) (model.Service, error) {
	var (
		s     model.Service
		avail string
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,provider_id,title,price,availability_status,created_at FROM services WHERE id=? LIMIT 1",
		id).Scan(&s.ID, &s.ProviderID, &s.Title, &s.Price, &avail, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Service{}, booking.Wrap(booking.KindNotFound, "services.GetService", ErrNotFound, fmt.Sprintf("service %d not found", id))
	}
	if err != nil {
		return model.Service{}, classify("services.GetService", err)
	}
	s.Available = avail == "AVAILABLE"
	return s, nil
}
