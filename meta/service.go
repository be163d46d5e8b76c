package meta

import "sync"

//nolint:gochecknoglobals // process-wide service identity
var (
	serviceName    string
	serviceVersion string
	once           sync.Once
)

// SetServiceInfo records the service name and version. Only the first call has effect.
func SetServiceInfo(name, version string) {
	once.Do(func() {
		serviceName = name
		serviceVersion = version
	})
}

// GetServiceName returns the recorded service name.
func GetServiceName() string {
	return serviceName
}

// GetServiceVersion returns the recorded service version.
func GetServiceVersion() string {
	return serviceVersion
}
