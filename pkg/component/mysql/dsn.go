package mysql

import (
	"fmt"
	"net/url"
)

// BuildDSN creates a MySQL Data Source Name from the provided options.
// The password is escaped so special characters cannot break DSN parsing.
func BuildDSN(opts *Options) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		opts.Username,
		url.QueryEscape(opts.Password),
		opts.Host,
		opts.Port,
		opts.Database,
	)
}
