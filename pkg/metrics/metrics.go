// Package metrics provides lock-free metric primitives and a registry that
// renders them in Prometheus text exposition format. It backs the /metrics
// endpoint without pulling in a full metrics client.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Metric is the common surface of every registered metric.
type Metric interface {
	Name() string
	Help() string
	// Describe renders the metric, including its HELP and TYPE header lines,
	// in Prometheus text format.
	Describe() string
}

// Counter is a monotonically increasing value.
type Counter interface {
	Metric
	Inc()
	Add(float64)
	Get() float64
}

// Gauge is a value that can go up and down.
type Gauge interface {
	Metric
	Set(float64)
	Get() float64
}

// CounterVec is a counter family partitioned by labels.
type CounterVec interface {
	Metric
	With(labels map[string]string) Counter
}

// atomicFloat holds a float64 in uint64 bits so it can be updated with CAS.
type atomicFloat struct {
	bits uint64
}

func (f *atomicFloat) add(v float64) {
	for {
		old := atomic.LoadUint64(&f.bits)
		next := math.Float64bits(math.Float64frombits(old) + v)
		if atomic.CompareAndSwapUint64(&f.bits, old, next) {
			return
		}
	}
}

func (f *atomicFloat) store(v float64) {
	atomic.StoreUint64(&f.bits, math.Float64bits(v))
}

func (f *atomicFloat) load() float64 {
	return math.Float64frombits(atomic.LoadUint64(&f.bits))
}

type counter struct {
	name string
	help string
	val  atomicFloat
}

// NewCounter creates a counter with the given name and help text.
func NewCounter(name, help string) Counter {
	return &counter{name: name, help: help}
}

func (c *counter) Name() string { return c.name }
func (c *counter) Help() string { return c.help }

func (c *counter) Inc() { c.Add(1) }

func (c *counter) Add(v float64) {
	if v < 0 {
		return
	}
	c.val.add(v)
}

func (c *counter) Get() float64 { return c.val.load() }

func (c *counter) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# HELP %s %s\n", c.name, c.help)
	fmt.Fprintf(&sb, "# TYPE %s counter\n", c.name)
	fmt.Fprintf(&sb, "%s %.6f\n", c.name, c.Get())
	return sb.String()
}

type gauge struct {
	name string
	help string
	val  atomicFloat
}

// NewGauge creates a gauge with the given name and help text.
func NewGauge(name, help string) Gauge {
	return &gauge{name: name, help: help}
}

func (g *gauge) Name() string { return g.name }
func (g *gauge) Help() string { return g.help }

func (g *gauge) Set(v float64) { g.val.store(v) }

func (g *gauge) Get() float64 { return g.val.load() }

func (g *gauge) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# HELP %s %s\n", g.name, g.help)
	fmt.Fprintf(&sb, "# TYPE %s gauge\n", g.name)
	fmt.Fprintf(&sb, "%s %.6f\n", g.name, g.Get())
	return sb.String()
}

type counterVec struct {
	name     string
	help     string
	children sync.Map // series name with labels -> *counter
}

// NewCounterVec creates a labeled counter family with the given name and
// help text.
func NewCounterVec(name, help string) CounterVec {
	return &counterVec{name: name, help: help}
}

func (v *counterVec) Name() string { return v.name }
func (v *counterVec) Help() string { return v.help }

// With returns the child counter for the given label set, creating it on
// first use.
func (v *counterVec) With(labels map[string]string) Counter {
	key := seriesName(v.name, labels)
	if child, ok := v.children.Load(key); ok {
		return child.(*counter)
	}
	child, _ := v.children.LoadOrStore(key, &counter{name: key, help: v.help})
	return child.(*counter)
}

func (v *counterVec) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# HELP %s %s\n", v.name, v.help)
	fmt.Fprintf(&sb, "# TYPE %s counter\n", v.name)

	var keys []string
	v.children.Range(func(key, _ interface{}) bool {
		keys = append(keys, key.(string))
		return true
	})
	sort.Strings(keys)

	for _, key := range keys {
		if child, ok := v.children.Load(key); ok {
			fmt.Fprintf(&sb, "%s %.6f\n", key, child.(*counter).Get())
		}
	}
	return sb.String()
}

// seriesName formats name{k="v",...} with labels in sorted order so the same
// label set always maps to the same series.
func seriesName(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, fmt.Sprintf("%s=%q", k, v))
	}
	sort.Strings(pairs)
	return name + "{" + strings.Join(pairs, ",") + "}"
}

// Registry holds a set of metrics and renders them together.
type Registry struct {
	metrics sync.Map // name -> Metric
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a metric to the registry. Registering the same name again
// replaces the previous metric.
func (r *Registry) Register(m Metric) {
	r.metrics.Store(m.Name(), m)
}

// Export renders every registered metric in Prometheus text format, sorted
// by metric name for stable output.
func (r *Registry) Export() string {
	var names []string
	r.metrics.Range(func(key, _ interface{}) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		if m, ok := r.metrics.Load(name); ok {
			sb.WriteString(m.(Metric).Describe())
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
