package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables the booking engine reads and writes.  The
// services, users and reviews tables belong to collaborating services;
// they are created here only so a fresh database can serve requests.
//
// active_slot is 1 while a booking occupies its slot and NULL otherwise.
// MySQL allows any number of NULLs in a UNIQUE key, so the key below
// admits one active booking per (service, instant) and unlimited
// completed or cancelled ones.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		full_name VARCHAR(120) NOT NULL DEFAULT '',
		email VARCHAR(190) NOT NULL,
		role ENUM('CUSTOMER','PROVIDER','ADMIN') NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS services (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		provider_id BIGINT UNSIGNED NOT NULL,
		title VARCHAR(200) NOT NULL,
		price DECIMAL(10,2) NOT NULL,
		availability_status ENUM('AVAILABLE','UNAVAILABLE') NOT NULL DEFAULT 'AVAILABLE',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_services_provider (provider_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		provider_id BIGINT UNSIGNED NOT NULL,
		customer_id BIGINT UNSIGNED NOT NULL,
		rating TINYINT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_reviews_provider (provider_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		seq BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		id CHAR(36) NOT NULL PRIMARY KEY,
		customer_id BIGINT UNSIGNED NOT NULL,
		service_id BIGINT UNSIGNED NOT NULL,
		provider_id BIGINT UNSIGNED NOT NULL,
		requested_at DATETIME NOT NULL,
		special_requests VARCHAR(500) NOT NULL DEFAULT '',
		address VARCHAR(200) NOT NULL DEFAULT '',
		phone VARCHAR(20) NOT NULL DEFAULT '',
		total_amount DECIMAL(10,2) NOT NULL,
		status ENUM('PENDING','CONFIRMED','IN_PROGRESS','COMPLETED','CANCELLED') NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		revision BIGINT NOT NULL DEFAULT 1,
		active_slot TINYINT GENERATED ALWAYS AS
			(IF(status IN ('PENDING','CONFIRMED','IN_PROGRESS'), 1, NULL)) STORED,
		UNIQUE KEY uq_bookings_seq (seq),
		UNIQUE KEY uq_bookings_active_slot (service_id, requested_at, active_slot),
		KEY idx_bookings_customer (customer_id, created_at),
		KEY idx_bookings_provider (provider_id, created_at),
		KEY idx_bookings_requested (requested_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema.  Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
