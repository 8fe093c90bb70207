// Package logger exposes the structured logging configuration of the
// service.
package logger

import (
	"github.com/kart-io/logger"
	"github.com/kart-io/logger/option"
	"github.com/spf13/pflag"

	"github.com/kart-io/docchat/pkg/options"
)

// Options embeds the kart-io logger options and binds them to flags.
type Options struct {
	*option.LogOption
}

// NewOptions creates Options with the library defaults.
func NewOptions() *Options {
	return &Options{LogOption: option.DefaultLogOption()}
}

// Validate checks the embedded logger options.
func (o *Options) Validate() []error {
	if err := o.LogOption.Validate(); err != nil {
		return []error{err}
	}
	return nil
}

// AddInitialField attaches a field to every log entry, such as the service
// name and version.
func (o *Options) AddInitialField(key string, value interface{}) {
	o.LogOption.WithInitialFields(map[string]interface{}{key: value})
}

// Init builds the configured logger and installs it as the global logger.
func (o *Options) Init() error {
	log, err := logger.New(o.LogOption)
	if err != nil {
		return err
	}
	logger.SetGlobal(log)
	return nil
}

// AddFlags adds flags for logger options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	join := options.Join(prefixes...)
	fs.StringVar(&o.Engine, join+"log.engine", o.Engine, "Logging engine (zap|slog).")
	fs.StringVar(&o.Level, join+"log.level", o.Level, "Log level (DEBUG|INFO|WARN|ERROR|FATAL).")
	fs.StringVar(&o.Format, join+"log.format", o.Format, "Log format (json|console).")
	fs.StringSliceVar(&o.OutputPaths, join+"log.output-paths", o.OutputPaths, "Output paths for logs.")
	fs.BoolVar(&o.Development, join+"log.development", o.Development, "Enable development mode.")
	fs.BoolVar(&o.DisableCaller, join+"log.disable-caller", o.DisableCaller, "Disable caller detection.")
	fs.BoolVar(&o.DisableStacktrace, join+"log.disable-stacktrace", o.DisableStacktrace, "Disable stacktrace capture.")

	if o.Rotation == nil {
		o.Rotation = &option.RotationOption{}
	}
	fs.IntVar(&o.Rotation.MaxSize, join+"log.rotation.max-size", 100, "Maximum size in MB of a log file before rotation.")
	fs.IntVar(&o.Rotation.MaxAge, join+"log.rotation.max-age", 15, "Maximum number of days to retain old log files.")
	fs.IntVar(&o.Rotation.MaxBackups, join+"log.rotation.max-backups", 30, "Maximum number of old log files to retain.")
	fs.BoolVar(&o.Rotation.Compress, join+"log.rotation.compress", true, "Compress rotated log files using gzip.")
}
