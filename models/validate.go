// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/danielhkuo/tally/errs"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// Report json names so messages match what clients sent.
	validate.RegisterTagNameFunc(jsonFieldName)
}

// Validate checks v's struct tags and returns errs.ValidationErrors on failure.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(errs.ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, errs.ValidationError{
			Field:   fieldPath(fe.Namespace()),
			Message: describe(fe),
		})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "unique":
		return "must not contain duplicates"
	case "datetime":
		return "must be a date formatted " + fe.Param()
	default:
		return fmt.Sprintf("failed rule %q", fe.Tag())
	}
}

// fieldPath drops the root struct name: "Election.contests[0].kind" -> "contests[0].kind".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}
