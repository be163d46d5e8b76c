package pg

import (
	"fmt"
	"time"
)

// Config describes the PostgreSQL server holding the queue tables and the pool used to reach it.
type Config struct {
	// Debug logs every query through the "pg" logger.
	Debug bool `yaml:"debug" default:"false"`

	Host     string `yaml:"host"     validate:"required"`
	Port     int    `yaml:"port"     validate:"required"`
	User     string `yaml:"user"     validate:"required"`
	Password string `yaml:"password" validate:"required" mask:"true"`
	Database string `yaml:"database" validate:"required"`

	SSLMode        string        `yaml:"sslmode"         default:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"10s"`

	// ApplicationName shows up in pg_stat_activity. Defaults to the service name.
	ApplicationName string `yaml:"application_name"`

	// PoolMaxConns should cover the processor parallelism plus the admin API.
	PoolMaxConns        int32         `yaml:"pool_max_conns"          default:"8"`
	PoolMinConns        int32         `yaml:"pool_min_conns"          default:"1"`
	PoolMaxConnLifetime time.Duration `yaml:"pool_max_conn_lifetime"  default:"1h"`
	PoolMaxConnIdleTime time.Duration `yaml:"pool_max_conn_idle_time" default:"30m"`

	// SlowQueryThreshold makes the debug hook warn about slower queries. Zero disables it.
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold" default:"100ms"`
}

func (c Config) dsn(appName string) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d application_name=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
		int(c.ConnectTimeout.Seconds()), appName,
	)
}
