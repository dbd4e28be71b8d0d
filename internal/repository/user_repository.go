package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/service-booking/internal/booking"
	"github.com/iliyamo/service-booking/internal/model"
)

// UserRepo reads the users table owned by the identity service.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,full_name,email,role FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.FullName, &u.Email, &u.Role)
	if err == sql.ErrNoRows {
		return model.User{}, booking.Wrap(booking.KindNotFound, "users.GetUser", ErrNotFound, fmt.Sprintf("user %d not found", id))
	}
	if err != nil {
		return model.User{}, classify("users.GetUser", err)
	}
	return u, nil
}
