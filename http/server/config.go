package server

import (
	"fmt"
	"time"
)

// Config configures the admin HTTP listener.
type Config struct {
	// HideErrorDetails drops trace and details from error responses.
	HideErrorDetails bool `yaml:"hide_error_details"`

	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required"`

	// BasePath prefixes every admin route.
	BasePath string `yaml:"base_path" default:"/admin" validate:"startswith=/"`

	ReadTimeout  time.Duration `yaml:"read_timeout"  default:"5s"   validate:"gt=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"   validate:"gt=0"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"  default:"120s" validate:"gt=0"`

	// HandleTimeout bounds a single request, store calls included.
	HandleTimeout time.Duration `yaml:"handle_timeout" default:"10s" validate:"gt=0"`

	// BodyLimit caps enqueue request bodies, in bytes.
	BodyLimit int `yaml:"body_limit" default:"4194304" validate:"gt=0"`
}

// Address returns the listen address as "host:port".
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
