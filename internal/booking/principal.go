package booking

import "github.com/iliyamo/service-booking/internal/model"

// Principal is the authenticated caller as resolved by the identity
// collaborator.  The engine trusts it and never looks credentials up.
type Principal struct {
	ID   uint64
	Role model.Role
}

func (p Principal) IsCustomer() bool { return p.Role == model.RoleCustomer }
func (p Principal) IsProvider() bool { return p.Role == model.RoleProvider }
func (p Principal) IsAdmin() bool    { return p.Role == model.RoleAdmin }

// OwnsAsCustomer reports whether p placed b.
func (p Principal) OwnsAsCustomer(b model.Booking) bool {
	return p.IsCustomer() && p.ID == b.CustomerID
}

// OwnsAsProvider reports whether p owns the service b was placed on.
func (p Principal) OwnsAsProvider(b model.Booking) bool {
	return p.IsProvider() && p.ID == b.ProviderID
}

// CanView reports whether p may read b.  Administrators see bookings only
// through the admin listing.
func (p Principal) CanView(b model.Booking) bool {
	return p.OwnsAsCustomer(b) || p.OwnsAsProvider(b)
}
