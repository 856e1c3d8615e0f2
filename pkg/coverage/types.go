// Package coverage merges per-worker coverage result sets from a distributed
// test run into one combined result set.
//
// Each worker writes a result set keyed by process name. Process names are
// only unique within a worker, so the combined set is keyed by
// "worker:process". Payloads are moved verbatim and never interpreted.
package coverage

import (
	"encoding/json"
	"sort"
	"time"
)

// DefaultFilename is the result-set file written by each worker.
const DefaultFilename = ".resultset.json"

// Payload is an opaque coverage payload (line hits and metadata for one
// process). It is relocated as raw JSON, never merged field by field.
type Payload = json.RawMessage

// ResultSet is one worker's coverage report, keyed by process name.
type ResultSet map[string]Payload

// CoverageFile is a discovered result file. Path is slash-separated and
// relative to the aggregation root.
type CoverageFile struct {
	Path   string
	Worker string
}

// CompositeKey identifies a payload in the combined result set.
type CompositeKey struct {
	Worker  string
	Process string
}

func (k CompositeKey) String() string {
	return k.Worker + ":" + k.Process
}

// Collision records two files resolving to the same composite key.
// Current is the file whose payload was kept under last-write-wins.
type Collision struct {
	Key      string `json:"key"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// CollisionPolicy decides what happens when a composite key repeats.
type CollisionPolicy string

const (
	// PolicyOverwrite keeps the payload from the file ingested last.
	PolicyOverwrite CollisionPolicy = "overwrite"
	// PolicyError aborts the run on the first repeated key.
	PolicyError CollisionPolicy = "error"
)

// Combined is the union of all ingested result sets. It lives for a single
// aggregation run and has one writer.
type Combined struct {
	entries map[string]Payload
	sources map[string]string
}

// NewCombined returns an empty combined result set.
func NewCombined() *Combined {
	return &Combined{
		entries: make(map[string]Payload),
		sources: make(map[string]string),
	}
}

// Insert stores payload under key. When the key is already present the
// previous payload is replaced and the collision is returned with ok=true.
func (c *Combined) Insert(key CompositeKey, payload Payload, source string) (Collision, bool) {
	k := key.String()
	prev, exists := c.sources[k]
	c.entries[k] = payload
	c.sources[k] = source
	if !exists {
		return Collision{}, false
	}
	return Collision{Key: k, Previous: prev, Current: source}, true
}

// Lookup returns the payload stored under a "worker:process" key.
func (c *Combined) Lookup(key string) (Payload, bool) {
	p, ok := c.entries[key]
	return p, ok
}

// Source returns the file that supplied the payload for key.
func (c *Combined) Source(key string) string {
	return c.sources[key]
}

// Len returns the number of composite keys.
func (c *Combined) Len() int { return len(c.entries) }

// Keys returns all composite keys in sorted order.
func (c *Combined) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Skipped is a result file left out under the skip-malformed policy.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Report describes one completed aggregation run.
type Report struct {
	Strategy   string
	Files      []CoverageFile
	Keys       int
	PerWorker  map[string]int
	Collisions []Collision
	Skipped    []Skipped
	Output     string
	Bytes      int64
	Elapsed    time.Duration
}
