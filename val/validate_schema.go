package val

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/code19m/errx"
	"github.com/go-playground/validator/v10"
)

const (
	CodeValidationFailed = "VALIDATION_FAILED"
)

// ValidateSchema validates schema against its `validate` tags. Failures come
// back as one T_Validation error whose fields map each field to a description.
func ValidateSchema(schema any) error {
	err := getValidator().Struct(schema)

	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(errx.M)

		for _, fieldErr := range validationErrors {
			field := fieldErr.Field()
			fields[field] = getFieldErrDescription(fieldErr)
		}

		return errx.New(
			"Validation failed. See fields for details.",
			errx.WithCode(CodeValidationFailed),
			errx.WithType(errx.T_Validation),
			errx.WithFields(fields),
		)
	}
	return errx.New(
		fmt.Sprintf("Unknown validation error: %s", err.Error()),
		errx.WithCode(CodeValidationFailed),
		errx.WithType(errx.T_Validation),
	)
}

func getFieldErrDescription(fieldErr validator.FieldError) string {
	param := fieldErr.Param()
	tag := fieldErr.Tag()

	if desc := getBasicValidationDesc(tag, param, fieldErr); desc != "" {
		return desc
	}

	if desc := getCustomValidationDesc(tag); desc != "" {
		return desc
	}

	return fmt.Sprintf("Failed validation: %s", tag)
}

func getBasicValidationDesc(tag, param string, fieldErr validator.FieldError) string {
	if desc := getCoreValidationDesc(tag, param, fieldErr); desc != "" {
		return desc
	}

	if desc := getStringValidationDesc(tag, param); desc != "" {
		return desc
	}

	if desc := getFieldComparisonDesc(tag, param); desc != "" {
		return desc
	}

	return ""
}

func getCoreValidationDesc(tag, param string, fieldErr validator.FieldError) string {
	switch tag {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if fieldErr.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters", param)
		}
		return fmt.Sprintf("Must be at least %s", param)
	case "max":
		if fieldErr.Kind() == reflect.String {
			return fmt.Sprintf("Must be at most %s characters", param)
		}
		return fmt.Sprintf("Must be at most %s", param)
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", param)
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", param)
	case "gt":
		return fmt.Sprintf("Must be greater than %s", param)
	case "lt":
		return fmt.Sprintf("Must be less than %s", param)
	case "len":
		if fieldErr.Kind() == reflect.String {
			return fmt.Sprintf("Must be exactly %s characters", param)
		}
		return fmt.Sprintf("Must have exactly %s items", param)
	case "alpha":
		return "Must contain only alphabetic characters"
	case "alphanum":
		return "Must contain only alphanumeric characters"
	case "numeric":
		return "Must be a valid number"
	}
	return ""
}

func getStringValidationDesc(tag, param string) string {
	switch tag {
	case "oneof":
		options := strings.ReplaceAll(param, " ", ", ")
		return fmt.Sprintf("Must be one of: %s", options)
	case "containsany":
		return fmt.Sprintf("Must contain at least one of: %s", param)
	case "excludes":
		return fmt.Sprintf("Must not contain: %s", param)
	case "excludesall":
		return fmt.Sprintf("Must not contain any of: %s", param)
	case "startswith":
		return fmt.Sprintf("Must start with: %s", param)
	case "endswith":
		return fmt.Sprintf("Must end with: %s", param)
	case "datetime":
		return fmt.Sprintf("Must be a valid datetime in format: %s", param)
	}
	return ""
}

func getFieldComparisonDesc(tag, param string) string {
	switch tag {
	case "eqfield":
		return fmt.Sprintf("Must be equal to %s", param)
	case "nefield":
		return fmt.Sprintf("Must not be equal to %s", param)
	case "gtfield":
		return fmt.Sprintf("Must be greater than %s", param)
	case "ltfield":
		return fmt.Sprintf("Must be less than %s", param)
	}
	return ""
}

func getCustomValidationDesc(tag string) string {
	switch tag {
	case "queue_name":
		return "Must be 1 to 255 letters, digits, dots, dashes or underscores"
	case "duration":
		return "Must be a duration such as 500ms, 5s or 1m30s"
	}
	return ""
}
