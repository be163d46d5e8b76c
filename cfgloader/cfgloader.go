// Package cfgloader loads, defaults and validates the service configuration
// from a YAML file picked by the ENVIRONMENT variable.
package cfgloader

import (
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/code19m/errx"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rise-and-shine/docqueue/observability/logger"
	"github.com/rise-and-shine/docqueue/val"
	"gopkg.in/yaml.v3"
)

const (
	EnvProduction = "production"
	EnvStaging    = "staging"
	EnvDev        = "dev"
	EnvLocal      = "local"
	EnvTest       = "test"
)

// CodeInvalidConfig is set on every error returned by Load.
const CodeInvalidConfig = "INVALID_CONFIG"

// MustLoad is Load that logs the error and exits the process on failure.
func MustLoad[T any](opts ...Option) T {
	config, err := Load[T](opts...)
	if err != nil {
		logger.Fatalx(err)
	}
	return config
}

// Load reads ./config/${ENVIRONMENT}.yaml, or the file given with WithPath,
// expands ${VAR} references from the environment (a .env file is loaded first
// when present), applies `default` tags and validates `validate` tags, including
// the custom tags registered by package val.
//
// Example:
//
//	type Config struct {
//	    Host string `yaml:"host" validate:"required"`
//	    Port int    `yaml:"port" default:"8080"`
//	}
func Load[T any](opts ...Option) (T, error) {
	var config T

	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}

	if reflect.ValueOf(config).Kind() == reflect.Ptr {
		return config, newInvalidConfig("type parameter must not be a pointer", errx.D{})
	}

	_ = godotenv.Load()

	path := o.Path
	if path == "" {
		env, err := defineEnvironment()
		if err != nil {
			return config, errx.Wrap(err)
		}
		path = fmt.Sprintf("./config/%s.yaml", env)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, errx.Wrap(err,
			errx.WithCode(CodeInvalidConfig),
			errx.WithDetails(errx.D{"path": path}),
		)
	}

	err = yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config)
	if err != nil {
		return config, errx.Wrap(err,
			errx.WithCode(CodeInvalidConfig),
			errx.WithDetails(errx.D{"path": path}),
		)
	}

	err = defaults.Set(&config)
	if err != nil {
		return config, errx.Wrap(err, errx.WithCode(CodeInvalidConfig))
	}

	err = validateConfig(&config, path)
	if err != nil {
		return config, errx.Wrap(err)
	}

	if !o.Silent {
		printConfig(config)
	}

	return config, nil
}

func defineEnvironment() (string, error) {
	env := os.Getenv("ENVIRONMENT")
	choices := []string{EnvProduction, EnvStaging, EnvDev, EnvLocal, EnvTest}
	if !slices.Contains(choices, env) {
		return "", newInvalidConfig("ENVIRONMENT env variable is not set or invalid", errx.D{
			"environment": env,
			"choices":     strings.Join(choices, ", "),
		})
	}
	return env, nil
}

func validateConfig(config any, path string) error {
	err := val.Validator().Struct(config)

	failedFields := make([]string, 0)
	if errs, ok := err.(validator.ValidationErrors); ok { //nolint: errorlint // Using type assertion for validator errors handling
		for _, err := range errs {
			tagErr := err.Tag()
			if err.Param() != "" {
				tagErr += fmt.Sprintf("=%s", err.Param())
			}
			failedFields = append(failedFields, fmt.Sprintf("%s: %s", err.Namespace(), tagErr))
		}
	}

	if len(failedFields) > 0 {
		return newInvalidConfig("invalid config fields", errx.D{
			"path":   path,
			"fields": strings.Join(failedFields, ", "),
		})
	}
	return nil
}

func newInvalidConfig(msg string, details errx.D) error {
	return errx.New("[cfgloader]: "+msg,
		errx.WithCode(CodeInvalidConfig),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(details),
	)
}
