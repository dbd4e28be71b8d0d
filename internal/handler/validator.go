package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RequestValidator adapts go-playground/validator to echo.Validator so
// handlers can call c.Validate on bound request bodies.
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{v: v}
}

// Validate implements echo.Validator.  The returned error message names the
// first failing field.
func (r *RequestValidator) Validate(i interface{}) error {
	err := r.v.Struct(i)
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		f := fields[0]
		switch f.Tag() {
		case "required":
			return fmt.Errorf("%s is required", f.Field())
		case "max":
			return fmt.Errorf("%s must be at most %s characters", f.Field(), f.Param())
		case "gt", "min":
			return fmt.Errorf("%s must be positive", f.Field())
		case "oneof":
			return fmt.Errorf("%s must be one of %s", f.Field(), f.Param())
		}
		return fmt.Errorf("%s is invalid", f.Field())
	}
	return err
}
