package pipeline

import (
	"sort"
	"sync"
)

// Dataset names.
const (
	DatasetAll     = "all"
	DatasetToday   = "today"
	DatasetTonight = "tonight"
)

// DatasetNames lists the datasets in display order.
var DatasetNames = []string{DatasetAll, DatasetToday, DatasetTonight}

// Datasets stores the latest Result per dataset. Safe for concurrent use:
// the browser reads while a rebuild writes.
type Datasets struct {
	mu      sync.RWMutex
	results map[string]*Result
}

// NewDatasets creates an empty store.
func NewDatasets() *Datasets {
	return &Datasets{results: make(map[string]*Result)}
}

// Set stores res under name, replacing any previous result.
func (d *Datasets) Set(name string, res *Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results[name] = res
}

// SetAll stores every result in m.
func (d *Datasets) SetAll(m map[string]*Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name, res := range m {
		d.results[name] = res
	}
}

// Get returns the result stored under name.
func (d *Datasets) Get(name string) (*Result, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	res, ok := d.results[name]
	return res, ok
}

// Names returns the stored dataset names, known datasets first.
func (d *Datasets) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.results))
	for _, n := range DatasetNames {
		if _, ok := d.results[n]; ok {
			names = append(names, n)
		}
	}
	var extra []string
	for n := range d.results {
		if !isKnownDataset(n) {
			extra = append(extra, n)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// Snapshot returns a shallow copy of the store.
func (d *Datasets) Snapshot() map[string]*Result {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]*Result, len(d.results))
	for n, r := range d.results {
		out[n] = r
	}
	return out
}

func isKnownDataset(name string) bool {
	for _, n := range DatasetNames {
		if n == name {
			return true
		}
	}
	return false
}
