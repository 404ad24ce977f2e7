// Package validation checks request and schedule structs with go-playground/validator and
// reports the first failure as a model.ValidationError named after the json field.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		_, err := model.ParseCalendarDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := model.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	return v
}

var tagMessages = map[string]string{
	"required":      "is required",
	"required_if":   "is required",
	"calendar_date": "must be a date in YYYY-MM-DD format",
	"clock":         "must be a time in HH:MM format",
	"url":           "must be a valid URL",
	"uuid":          "must be a valid UUID",
	"oneof":         "must be one of ONLINE, IN_PERSON",
}

// Struct validates v. The error, if any, unwraps to model.ErrInvalidInput.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return translate(err, "request")
	}
	return nil
}

// Var validates a single value reported under field.
func Var(field string, value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return translate(err, field)
	}
	return nil
}

func translate(err error, field string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.Invalid(field, "is invalid")
	}
	first := verrs[0]
	if name := first.Field(); name != "" {
		field = name
	}
	return model.Invalid(field, message(first))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "max", "gte", "lte":
		switch fe.Kind() {
		case reflect.String, reflect.Slice, reflect.Map:
			if fe.Tag() == "min" || fe.Tag() == "gte" {
				return "is too short"
			}
			return "is too long"
		default:
			return "is out of range"
		}
	}
	if msg, ok := tagMessages[fe.Tag()]; ok {
		return msg
	}
	return "is invalid"
}
