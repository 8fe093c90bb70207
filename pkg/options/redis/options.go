// Package redis provides Redis configuration options.
package redis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/docchat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// redactedPassword replaces real passwords in serialized output.
const redactedPassword = "[REDACTED]"

// Options defines configuration options for Redis.
type Options struct {
	// Enabled controls whether Redis-backed caching is used at all.
	// When disabled, the service runs without answer/embedding caches.
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	Host         string        `json:"host" mapstructure:"host"`
	Port         int           `json:"port" mapstructure:"port"`
	Password     string        `json:"-" mapstructure:"password"`
	Database     int           `json:"database" mapstructure:"database"`
	MaxRetries   int           `json:"max-retries" mapstructure:"max-retries"`
	PoolSize     int           `json:"pool-size" mapstructure:"pool-size"`
	MinIdleConns int           `json:"min-idle-conns" mapstructure:"min-idle-conns"`
	DialTimeout  time.Duration `json:"dial-timeout" mapstructure:"dial-timeout"`
	ReadTimeout  time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	PoolTimeout  time.Duration `json:"pool-timeout" mapstructure:"pool-timeout"`
}

// NewOptions creates an Options object with the go-redis client defaults.
func NewOptions() *Options {
	return &Options{
		Enabled:      true,
		Host:         "127.0.0.1",
		Port:         6379,
		MaxRetries:   3,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	}
}

// MarshalJSON redacts the password so options dumps stay safe to log.
func (o *Options) MarshalJSON() ([]byte, error) {
	type plain Options
	password := ""
	if o.Password != "" {
		password = redactedPassword
	}
	return json.Marshal(struct {
		*plain
		Password string `json:"password"`
	}{plain: (*plain)(o), Password: password})
}

// String renders the options with the password redacted.
func (o *Options) String() string {
	password := ""
	if o.Password != "" {
		password = redactedPassword
	}
	return fmt.Sprintf("Redis{enabled=%t, addr=%s:%d, password=%s, database=%d}",
		o.Enabled, o.Host, o.Port, password, o.Database)
}

// Validate checks the options. The password falls back to the REDIS_PASSWORD
// environment variable; passing it on the command line draws a warning since
// flags leak into process listings.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	if o.Password == "" {
		o.Password = os.Getenv("REDIS_PASSWORD")
	} else if os.Getenv("REDIS_PASSWORD") == "" {
		fmt.Fprintln(os.Stderr, "WARNING: Passing Redis password via CLI is insecure. Use REDIS_PASSWORD environment variable instead.")
	}

	var errs []error
	if o.Enabled {
		if o.Host == "" {
			errs = append(errs, fmt.Errorf("redis.host cannot be empty"))
		}
		if o.Port <= 0 || o.Port > 65535 {
			errs = append(errs, fmt.Errorf("redis.port must be between 1 and 65535, got %d", o.Port))
		}
	}
	return errs
}

// AddFlags adds flags for Redis options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	join := options.Join(prefixes...)
	fs.BoolVar(&o.Enabled, join+"redis.enabled", o.Enabled, "Enable Redis-backed caching.")
	fs.StringVar(&o.Host, join+"redis.host", o.Host, "Redis host.")
	fs.IntVar(&o.Port, join+"redis.port", o.Port, "Redis port.")
	fs.StringVar(&o.Password, join+"redis.password", o.Password, "Redis password (DEPRECATED: use REDIS_PASSWORD env var instead).")
	fs.IntVar(&o.Database, join+"redis.database", o.Database, "Redis database.")
	fs.IntVar(&o.MaxRetries, join+"redis.max-retries", o.MaxRetries, "Redis max retries.")
	fs.IntVar(&o.PoolSize, join+"redis.pool-size", o.PoolSize, "Redis pool size.")
	fs.IntVar(&o.MinIdleConns, join+"redis.min-idle-conns", o.MinIdleConns, "Redis min idle connections.")
	fs.DurationVar(&o.DialTimeout, join+"redis.dial-timeout", o.DialTimeout, "Redis dial timeout.")
	fs.DurationVar(&o.ReadTimeout, join+"redis.read-timeout", o.ReadTimeout, "Redis read timeout.")
	fs.DurationVar(&o.WriteTimeout, join+"redis.write-timeout", o.WriteTimeout, "Redis write timeout.")
	fs.DurationVar(&o.PoolTimeout, join+"redis.pool-timeout", o.PoolTimeout, "Redis pool timeout.")
}
