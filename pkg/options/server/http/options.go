// Package http provides HTTP server configuration options.
package http

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/docchat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains HTTP server configuration.
type Options struct {
	// Addr is the address to listen on.
	Addr string `json:"addr" mapstructure:"addr"`
	// Mode is the gin mode (debug|release|test).
	Mode string `json:"mode" mapstructure:"mode"`
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout time.Duration `json:"idle-timeout" mapstructure:"idle-timeout"`
	// MaxMultipartMemory caps the memory used when parsing multipart uploads.
	MaxMultipartMemory int64 `json:"max-multipart-memory" mapstructure:"max-multipart-memory"`
}

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{
		Addr:               ":8300",
		Mode:               "release",
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       120 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxMultipartMemory: 32 << 20, // 32 MiB
	}
}

// AddFlags adds flags for HTTP options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	join := options.Join(prefixes...)
	fs.StringVar(&o.Addr, join+"http.addr", o.Addr, "Specify the HTTP server bind address and port.")
	fs.StringVar(&o.Mode, join+"http.mode", o.Mode, "Gin server mode (debug|release|test).")
	fs.DurationVar(&o.ReadTimeout, join+"http.read-timeout", o.ReadTimeout, "Timeout for reading the entire request.")
	fs.DurationVar(&o.WriteTimeout, join+"http.write-timeout", o.WriteTimeout, "Timeout before timing out writes of the response.")
	fs.DurationVar(&o.IdleTimeout, join+"http.idle-timeout", o.IdleTimeout, "Maximum amount of time to wait for the next request.")
	fs.Int64Var(&o.MaxMultipartMemory, join+"http.max-multipart-memory", o.MaxMultipartMemory, "Maximum memory in bytes for parsing multipart forms.")
}

// Validate validates the HTTP options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error

	if o.Addr == "" {
		errs = append(errs, fmt.Errorf("http.addr cannot be empty"))
	}
	switch o.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("http.mode must be one of debug|release|test, got %q", o.Mode))
	}
	if o.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.read-timeout must be positive"))
	}
	if o.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.write-timeout must be positive"))
	}

	return errs
}
