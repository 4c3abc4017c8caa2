package adapthttp

import (
	"fmt"
	"net/http"
	"time"

	"fintrack/internal/domain"
)

// cookieStore adapts one request/response pair to domain.CookieStore. Writes
// made during the request are visible to later reads.
type cookieStore struct {
	w       http.ResponseWriter
	r       *http.Request
	secure  bool
	maxAge  time.Duration
	written map[string]*string
}

var _ domain.CookieStore = (*cookieStore)(nil)

func (s *Server) cookies(w http.ResponseWriter, r *http.Request) *cookieStore {
	return &cookieStore{
		w:       w,
		r:       r,
		secure:  s.opts.Production,
		maxAge:  s.auth.Sessions().MaxAge(),
		written: make(map[string]*string),
	}
}

func (c *cookieStore) Get(name string) (string, bool) {
	if v, ok := c.written[name]; ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}
	ck, err := c.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return ck.Value, true
}

// SetAll validates every cookie before writing any of them.
func (c *cookieStore) SetAll(values ...domain.CookieValue) error {
	cookies := make([]*http.Cookie, 0, len(values))
	for _, v := range values {
		ck := c.cookie(v.Name, v.Value)
		ck.MaxAge = maxAgeSeconds(v.MaxAge, c.maxAge)
		if err := ck.Valid(); err != nil {
			return fmt.Errorf("cookie %s: %w", v.Name, err)
		}
		cookies = append(cookies, ck)
	}
	for _, ck := range cookies {
		http.SetCookie(c.w, ck)
		value := ck.Value
		c.written[ck.Name] = &value
	}
	return nil
}

func (c *cookieStore) Delete(names ...string) {
	for _, name := range names {
		ck := c.cookie(name, "")
		ck.MaxAge = -1
		http.SetCookie(c.w, ck)
		c.written[name] = nil
	}
}

// maxAgeSeconds converts a cookie lifetime to whole seconds, falling back to
// def for zero. Positive lifetimes never round down to a session cookie.
func maxAgeSeconds(d, def time.Duration) int {
	if d <= 0 {
		d = def
	}
	return max(int(d/time.Second), 1)
}

func (c *cookieStore) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
