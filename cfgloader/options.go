package cfgloader

// Options holds configuration options for Load.
type Options struct {
	// Path overrides ./config/${ENVIRONMENT}.yaml.
	Path string

	// Silent disables logging of the loaded config.
	Silent bool
}

// Option is a functional option for configuring Load.
type Option func(*Options)

// WithPath loads the given file instead of the per-environment one.
func WithPath(path string) Option {
	return func(o *Options) {
		o.Path = path
	}
}

// WithSilent disables config logging.
func WithSilent() Option {
	return func(o *Options) {
		o.Silent = true
	}
}
