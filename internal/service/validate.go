package service

import (
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/service-booking/internal/booking"
)

// Field limits match the column sizes of the bookings table.
const (
	maxSpecialRequests = 500
	maxAddress         = 200
	maxPhone           = 20
	maxNotes           = 500
)

var phonePattern = regexp.MustCompile(`^[+]?[0-9\s\-()]+$`)

func validateRequestedAt(op string, at, now time.Time) error {
	if at.IsZero() {
		return booking.E(booking.KindValidation, op, "requested time is required")
	}
	if !at.After(now) {
		return booking.E(booking.KindValidation, op, "requested time must be in the future")
	}
	return nil
}

func validateText(op, field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return booking.Ef(booking.KindValidation, op, "%s must be at most %d characters", field, limit)
	}
	return nil
}

func validatePhone(op, phone string) error {
	if phone == "" {
		return nil
	}
	if err := validateText(op, "phone", phone, maxPhone); err != nil {
		return err
	}
	if !phonePattern.MatchString(phone) {
		return booking.E(booking.KindValidation, op, "phone number has an invalid format")
	}
	return nil
}

func validateContact(op, specialRequests, address, phone string) error {
	if err := validateText(op, "special requests", specialRequests, maxSpecialRequests); err != nil {
		return err
	}
	if err := validateText(op, "address", address, maxAddress); err != nil {
		return err
	}
	return validatePhone(op, phone)
}
