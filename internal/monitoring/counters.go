package monitoring

import (
	"sort"
	"sync"
)

// Counters tallies named events such as skipped comparisons or rejected
// fits. The zero value is ready to use and safe for concurrent callers.
type Counters struct {
	mu     sync.Mutex
	counts map[string]int
}

// Add increments name by n.
func (c *Counters) Add(name string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[name] += n
}

// Inc increments name by one.
func (c *Counters) Inc(name string) {
	c.Add(name, 1)
}

// Get returns the current count for name.
func (c *Counters) Get(name string) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[name]
}

// Snapshot returns a copy of all counts.
func (c *Counters) Snapshot() map[string]int {
	out := make(map[string]int)
	if c == nil {
		return out
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Names returns the counter names in sorted order.
func (c *Counters) Names() []string {
	snap := c.Snapshot()
	names := make([]string, 0, len(snap))
	for k := range snap {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
