// Package validator validates structs using go-playground/validator and
// reports field level violations.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Validator is a struct that provides methods for struct validation using the underlying validator library.
type Validator struct {
	cli *validator.Validate
	now func() time.Time
}

// ValidationError represents an error encountered during validation of a struct field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// An Option configures a Validator.
type Option func(*Validator)

// WithClock sets the clock used by the notfuture rule.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

func (v *Validator) formatError(err error) []ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationError{{Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return out
}

// message renders fe for humans. Field reports the JSON name; messages use the
// Go field name.
func message(fe validator.FieldError) string {
	field := fe.StructField()
	if field == "" {
		field = "Value"
	}
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required.", field)
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters.", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s.", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s.", field, fe.Param())
	case "between":
		lo, hi, _ := strings.Cut(fe.Param(), " ")
		return fmt.Sprintf("%s must be between %s and %s.", field, lo, hi)
	case "notfuture":
		return fmt.Sprintf("%s cannot be in the future.", field)
	}
	return fmt.Sprintf("%s failed the %s rule.", field, fe.Tag())
}

// ValidateStruct validates the provided struct using the underlying validator and returns a slice of validation errors.
func (v *Validator) ValidateStruct(s interface{}) []ValidationError {
	err := v.cli.Struct(s)
	if err != nil {
		return v.formatError(err)
	}
	return nil
}

// Validate checks the provided value against the specified validation tags and returns a slice of validation errors.
func (v *Validator) Validate(value interface{}, tag string) []ValidationError {
	err := v.cli.Var(value, tag)
	if err != nil {
		return v.formatError(err)
	}
	return nil
}

func (v *Validator) notFuture(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return !t.After(v.now())
}

// between checks that an integer lies in the inclusive range given as
// "lo hi".
func between(fl validator.FieldLevel) bool {
	lo, hi, err := bounds(fl.Param())
	if err != nil {
		panic(err)
	}

	switch f := fl.Field(); f.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return f.Int() >= lo && f.Int() <= hi
	}
	return false
}

func bounds(param string) (lo, hi int64, err error) {
	l, h, ok := strings.Cut(param, " ")
	if !ok {
		return 0, 0, fmt.Errorf("between: bad param %q", param)
	}
	if lo, err = strconv.ParseInt(l, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("between: bad param %q: %w", param, err)
	}
	if hi, err = strconv.ParseInt(h, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("between: bad param %q: %w", param, err)
	}
	return lo, hi, nil
}

// New initializes and returns a new instance of the Validator
func New(opts ...Option) *Validator {
	v := &Validator{
		cli: validator.New(validator.WithRequiredStructEnabled()),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}

	v.cli.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	rules := map[string]validator.Func{
		"notfuture": v.notFuture,
		"notblank":  validators.NotBlank,
		"between":   between,
	}
	for tag, fn := range rules {
		if err := v.cli.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	return v
}
