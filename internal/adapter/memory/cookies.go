package memory

import (
	"errors"
	"maps"
	"sync"
	"time"

	"fintrack/internal/domain"
)

// CookieJar is a domain.CookieStore kept in a map. It stands in for a
// browser in tests and tools.
type CookieJar struct {
	mu        sync.Mutex
	values    map[string]string
	lifetimes map[string]time.Duration
}

var _ domain.CookieStore = (*CookieJar)(nil)

// NewCookieJar creates an empty jar.
func NewCookieJar() *CookieJar {
	return &CookieJar{values: make(map[string]string), lifetimes: make(map[string]time.Duration)}
}

// Get returns the value of name.
func (j *CookieJar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	v, ok := j.values[name]
	return v, ok
}

// SetAll stores every value, or none when any name is empty.
func (j *CookieJar) SetAll(values ...domain.CookieValue) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, v := range values {
		if v.Name == "" {
			return errors.New("cookie name is required")
		}
	}
	for _, v := range values {
		j.values[v.Name] = v.Value
		j.lifetimes[v.Name] = v.MaxAge
	}
	return nil
}

// Delete removes names.
func (j *CookieJar) Delete(names ...string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, n := range names {
		delete(j.values, n)
		delete(j.lifetimes, n)
	}
}

// MaxAge returns the lifetime name was last written with.
func (j *CookieJar) MaxAge(name string) time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lifetimes[name]
}

// Set overwrites a single value, bypassing validation. Tests use it to
// simulate a tampering client.
func (j *CookieJar) Set(name, value string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.values[name] = value
}

// Snapshot returns a copy of the jar's contents.
func (j *CookieJar) Snapshot() map[string]string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return maps.Clone(j.values)
}
