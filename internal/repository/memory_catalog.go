package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/service-booking/internal/booking"
	"github.com/iliyamo/service-booking/internal/model"
)

// MemoryCatalog stands in for the service catalog, the user directory and
// the review store when the server runs without MySQL.  It implements
// booking.ServiceLookup, booking.UserLookup and booking.RatingLookup.
type MemoryCatalog struct {
	mu       sync.RWMutex
	services map[uint64]model.Service
	users    map[uint64]model.User
	ratings  map[uint64][]int
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		services: make(map[uint64]model.Service),
		users:    make(map[uint64]model.User),
		ratings:  make(map[uint64][]int),
	}
}

// NewDemoCatalog returns a catalog seeded with one admin, two providers,
// two customers and three services, enough to exercise every endpoint.
func NewDemoCatalog() *MemoryCatalog {
	c := NewMemoryCatalog()
	c.PutUser(model.User{ID: 1, FullName: "Admin", Email: "admin@example.com", Role: model.RoleAdmin})
	c.PutUser(model.User{ID: 2, FullName: "Sparks Electric", Email: "sparks@example.com", Role: model.RoleProvider})
	c.PutUser(model.User{ID: 3, FullName: "Pipe Pros", Email: "pipes@example.com", Role: model.RoleProvider})
	c.PutUser(model.User{ID: 4, FullName: "Dana Customer", Email: "dana@example.com", Role: model.RoleCustomer})
	c.PutUser(model.User{ID: 5, FullName: "Lee Customer", Email: "lee@example.com", Role: model.RoleCustomer})
	c.PutService(model.Service{ID: 1, ProviderID: 2, Title: "Wiring inspection", Price: decimal.RequireFromString("50.00"), Available: true})
	c.PutService(model.Service{ID: 2, ProviderID: 2, Title: "Panel upgrade", Price: decimal.RequireFromString("400.00"), Available: true})
	c.PutService(model.Service{ID: 3, ProviderID: 3, Title: "Leak repair", Price: decimal.RequireFromString("75.50"), Available: true})
	return c
}

func (c *MemoryCatalog) PutService(s model.Service) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[s.ID] = s
}

func (c *MemoryCatalog) PutUser(u model.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[u.ID] = u
}

// AddRating records one review rating for a provider.
func (c *MemoryCatalog) AddRating(providerID uint64, rating int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ratings[providerID] = append(c.ratings[providerID], rating)
}

func (c *MemoryCatalog) GetService(_ context.Context, id uint64) (model.Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.services[id]
	if !ok {
		return model.Service{}, booking.Wrap(booking.KindNotFound, "services.GetService", ErrNotFound, fmt.Sprintf("service %d not found", id))
	}
	return s, nil
}

func (c *MemoryCatalog) GetUser(_ context.Context, id uint64) (model.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[id]
	if !ok {
		return model.User{}, booking.Wrap(booking.KindNotFound, "users.GetUser", ErrNotFound, fmt.Sprintf("user %d not found", id))
	}
	return u, nil
}

func (c *MemoryCatalog) AverageRatings(_ context.Context, providerIDs []uint64) (map[uint64]float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[uint64]float64, len(providerIDs))
	for _, id := range providerIDs {
		rs := c.ratings[id]
		if len(rs) == 0 {
			continue
		}
		sum := 0
		for _, r := range rs {
			sum += r
		}
		out[id] = float64(sum) / float64(len(rs))
	}
	return out, nil
}
