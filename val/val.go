// Package val validates request schemas and reports failures as errx fields.
package val

import (
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

//nolint:gochecknoglobals // validator caches struct metadata and is safe for concurrent use
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var queueNameRe = regexp.MustCompile(`^[A-Za-z0-9._-]{1,255}$`)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(getTagName)
		_ = validate.RegisterValidation("queue_name", isQueueName)
		_ = validate.RegisterValidation("duration", isDuration)
	})
	return validate
}

// Validator returns the shared validator with the custom tags registered.
func Validator() *validator.Validate {
	return getValidator()
}

// IsQueueName reports whether s can name a queue.
func IsQueueName(s string) bool {
	return queueNameRe.MatchString(s)
}

func isQueueName(fl validator.FieldLevel) bool {
	return IsQueueName(fl.Field().String())
}

// isDuration accepts an empty string or anything time.ParseDuration accepts.
func isDuration(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := time.ParseDuration(s)
	return err == nil
}

// getTagName names a field after its json, query or params tag, falling back
// to the Go field name.
func getTagName(fld reflect.StructField) string {
	for _, tagName := range []string{"json", "query", "params"} {
		name := strings.SplitN(fld.Tag.Get(tagName), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return fld.Name
}
