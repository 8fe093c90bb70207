// Package id provides lexicographically sortable unique identifiers for
// documents, sessions, and messages.
package id

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces monotonic ULIDs. IDs generated within the same
// millisecond remain strictly ordered, which keeps message ordering stable
// even under bursts.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Option is a functional option for Generator.
type Option func(*Generator)

// WithEntropyReader sets a custom random source, used by tests for
// deterministic output.
func WithEntropyReader(r io.Reader) Option {
	return func(g *Generator) {
		g.entropy = ulid.Monotonic(r, 0)
	}
}

// NewGenerator creates a new ULID generator backed by crypto/rand.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// New returns a new ULID string (26 characters, Crockford base32).
func (g *Generator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// NewN returns n fresh ULID strings in generation order.
func (g *Generator) NewN(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = g.New()
	}
	return ids
}

var defaultGenerator = NewGenerator()

// New returns a ULID from the package-default generator.
func New() string {
	return defaultGenerator.New()
}

// IsValid reports whether s parses as a ULID.
func IsValid(s string) bool {
	_, err := ulid.ParseStrict(strings.ToUpper(s))
	return err == nil
}

// Timestamp extracts the embedded creation time from a ULID string.
func Timestamp(s string) (time.Time, error) {
	u, err := ulid.ParseStrict(strings.ToUpper(s))
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(int64(u.Time())), nil
}
