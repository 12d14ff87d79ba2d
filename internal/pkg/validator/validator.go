// Package validator checks user input before it reaches the backend.
package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/domain/settings"
)

// E.164: optional plus, no leading zero, at most 15 digits
var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// Validator wraps go-playground validator with the dashboard's rules
type Validator struct {
	validate *validator.Validate
}

// ValidationError is one rejected field
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// Errors is returned when a struct fails validation. It is raised before
// any network call is made.
type Errors []ValidationError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, v := range e {
		msgs = append(msgs, v.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Fields returns the names of the rejected fields
func (e Errors) Fields() []string {
	out := make([]string, len(e))
	for i, v := range e {
		out[i] = v.Field
	}
	return out
}

// New creates a validator that reports json field names and knows the
// phone, severity, severity_filter, alert_status and scan_interval tags
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
		return alert.Severity(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("severity_filter", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "all" || alert.Severity(s).Valid()
	})
	_ = v.RegisterValidation("alert_status", func(fl validator.FieldLevel) bool {
		return alert.Status(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("scan_interval", func(fl validator.FieldLevel) bool {
		return slices.Contains(settings.ValidIntervals, int(fl.Field().Int()))
	})

	return &Validator{
		validate: v,
	}
}

// Validate validates a struct
func (v *Validator) Validate(i interface{}) []ValidationError {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Message: err.Error()}}
	}
	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Value:   fmt.Sprintf("%v", fe.Value()),
			Message: msgForTag(fe),
		})
	}
	return out
}

// Check validates a struct and returns Errors, or nil when it is valid.
func (v *Validator) Check(i interface{}) error {
	if errs := v.Validate(i); len(errs) > 0 {
		return Errors(errs)
	}
	return nil
}

func msgForTag(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Please enter a valid email address"
	case "phone":
		return "Please enter a valid phone number"
	case "severity":
		return fmt.Sprintf("%s must be critical, high, medium or low", field)
	case "severity_filter":
		return fmt.Sprintf("%s must be all, critical, high, medium or low", field)
	case "alert_status":
		return fmt.Sprintf("%s must be new, acknowledged or resolved", field)
	case "scan_interval":
		return fmt.Sprintf("%s must be one of %v hours", field, settings.ValidIntervals)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation for tag: %s", field, fe.Tag())
	}
}

var (
	global     *Validator
	globalOnce sync.Once
)

func shared() *Validator {
	globalOnce.Do(func() { global = New() })
	return global
}

// Validate validates a struct using the shared validator
func Validate(i interface{}) []ValidationError {
	return shared().Validate(i)
}

// Check validates a struct using the shared validator
func Check(i interface{}) error {
	return shared().Check(i)
}
