package model

// Role is the authorization class of a user.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleProvider Role = "PROVIDER"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleProvider || r == RoleAdmin
}

// User represents an application user record as stored in the `users`
// table.  Registration and credentials live in the identity service; the
// booking engine needs only the identity, role and a display name.
//
// Fields:
//
//	ID       – primary key identifier of the user.
//	FullName – display name used in reports.
//	Email    – unique email address.
//	Role     – CUSTOMER, PROVIDER or ADMIN.
type User struct {
	ID       uint64 // users.id
	FullName string // users.full_name
	Email    string // users.email
	Role     Role   // users.role
}
