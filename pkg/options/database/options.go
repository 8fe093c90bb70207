// Package database provides relational database configuration options.
package database

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/docchat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Supported database engines.
const (
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
	EngineMySQL    = "mysql"
)

// Options defines configuration options for the relational store.
// SQLite is the default engine; Host/Port/Username/Password apply to the
// server-based engines only.
type Options struct {
	Engine                string        `json:"engine" mapstructure:"engine"`
	Path                  string        `json:"path" mapstructure:"path"` // SQLite file path, or ":memory:"
	Host                  string        `json:"host" mapstructure:"host"`
	Port                  int           `json:"port" mapstructure:"port"`
	Username              string        `json:"username" mapstructure:"username"`
	Password              string        `json:"-" mapstructure:"password"` // Excluded from JSON serialization
	Database              string        `json:"database" mapstructure:"database"`
	MaxIdleConnections    int           `json:"max-idle-connections" mapstructure:"max-idle-connections"`
	MaxOpenConnections    int           `json:"max-open-connections" mapstructure:"max-open-connections"`
	MaxConnectionLifeTime time.Duration `json:"max-connection-life-time" mapstructure:"max-connection-life-time"`
	LogLevel              int           `json:"log-level" mapstructure:"log-level"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Engine:                EngineSQLite,
		Path:                  "./data/docchat.db",
		Host:                  "127.0.0.1",
		Port:                  5432,
		Username:              "docchat",
		Password:              "",
		Database:              "docchat",
		MaxIdleConnections:    10,
		MaxOpenConnections:    100,
		MaxConnectionLifeTime: 10 * time.Second,
		LogLevel:              1, // Silent
	}
}

// String returns a string representation with password redacted.
func (o *Options) String() string {
	if o.Engine == EngineSQLite {
		return fmt.Sprintf("Database{engine=%s, path=%s}", o.Engine, o.Path)
	}
	return fmt.Sprintf("Database{engine=%s, host=%s, port=%d, database=%s}",
		o.Engine, o.Host, o.Port, o.Database)
}

// AddFlags adds flags for database options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	join := options.Join(prefixes...)
	fs.StringVar(&o.Engine, join+"db.engine", o.Engine, "Database engine (sqlite|postgres|mysql).")
	fs.StringVar(&o.Path, join+"db.path", o.Path, "SQLite database file path.")
	fs.StringVar(&o.Host, join+"db.host", o.Host, "Database server host.")
	fs.IntVar(&o.Port, join+"db.port", o.Port, "Database server port.")
	fs.StringVar(&o.Username, join+"db.username", o.Username, "Database username.")
	fs.StringVar(&o.Password, join+"db.password", o.Password, "Database password (DEPRECATED: use DOCCHAT_DB_PASSWORD env var instead).")
	fs.StringVar(&o.Database, join+"db.database", o.Database, "Database name.")
	fs.IntVar(&o.MaxIdleConnections, join+"db.max-idle-connections", o.MaxIdleConnections, "Maximum idle connections.")
	fs.IntVar(&o.MaxOpenConnections, join+"db.max-open-connections", o.MaxOpenConnections, "Maximum open connections.")
	fs.DurationVar(&o.MaxConnectionLifeTime, join+"db.max-connection-life-time", o.MaxConnectionLifeTime, "Maximum connection life time.")
	fs.IntVar(&o.LogLevel, join+"db.log-level", o.LogLevel, "GORM log level (1=silent 2=error 3=warn 4=info).")
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	// If the CLI parameter is empty, read from the environment variable.
	if o.Password == "" {
		o.Password = os.Getenv("DOCCHAT_DB_PASSWORD")
	}
	if o.Password != "" && os.Getenv("DOCCHAT_DB_PASSWORD") == "" {
		fmt.Fprintf(os.Stderr, "WARNING: Passing the database password via CLI is insecure. Use DOCCHAT_DB_PASSWORD environment variable instead.\n")
	}

	var errs []error
	switch o.Engine {
	case EngineSQLite:
		if o.Path == "" {
			errs = append(errs, fmt.Errorf("db.path is required for the sqlite engine"))
		}
	case EnginePostgres, EngineMySQL:
		if o.Host == "" {
			errs = append(errs, fmt.Errorf("db.host is required for the %s engine", o.Engine))
		}
		if o.Database == "" {
			errs = append(errs, fmt.Errorf("db.database is required for the %s engine", o.Engine))
		}
	default:
		errs = append(errs, fmt.Errorf("db.engine must be one of sqlite|postgres|mysql, got %q", o.Engine))
	}
	return errs
}
