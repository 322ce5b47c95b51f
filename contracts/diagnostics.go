package contracts

import (
	"fmt"
	"sync"
)

// Diagnostic records a parameter that was ignored or overridden.
type Diagnostic struct {
	Field  string
	Reason string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Field, d.Reason)
}

// DiagnosticsSink receives downgrade diagnostics. Emit must not fail.
type DiagnosticsSink interface {
	Emit(Diagnostic)
}

// Collector keeps diagnostics in memory.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

func (c *Collector) Emit(d Diagnostic) {
	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()
}

func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Diagnostic(nil), c.items...)
}

// Fields returns the field names in emission order.
func (c *Collector) Fields() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	fields := make([]string, len(c.items))
	for i, d := range c.items {
		fields[i] = d.Field
	}
	return fields
}

type discard struct{}

func (discard) Emit(Diagnostic) {}

// Discard drops every diagnostic.
var Discard DiagnosticsSink = discard{}
