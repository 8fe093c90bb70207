package postgres

import (
	"fmt"
	"strings"
)

// BuildDSN creates a PostgreSQL DSN in key=value form. Values containing
// spaces, quotes or backslashes are quoted and escaped so they cannot break
// DSN parsing.
func BuildDSN(opts *Options) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		opts.Host,
		opts.Port,
		opts.Username,
		escapeValue(opts.Password),
		opts.Database,
		opts.SSLMode,
	)
}

func escapeValue(value string) string {
	if value == "" {
		return "''"
	}
	if !strings.ContainsAny(value, " '\\") {
		return value
	}

	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return "'" + escaped + "'"
}
