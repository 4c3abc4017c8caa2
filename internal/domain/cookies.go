package domain

import "time"

// CookieValue is one named value written to the client.
type CookieValue struct {
	Name  string
	Value string
	// MaxAge is the client-side lifetime. Zero means the store's default.
	MaxAge time.Duration
}

// CookieStore is the transport holding session state on the client.
// SetAll writes every value or none of them. Delete never fails and is safe
// to call for names that are not set.
type CookieStore interface {
	Get(name string) (string, bool)
	SetAll(values ...CookieValue) error
	Delete(names ...string)
}
