package adapthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	adapthttp "fintrack/internal/adapter/http"
	"fintrack/internal/adapter/memory"
	"fintrack/internal/app"
	"fintrack/internal/domain"
	"fintrack/internal/logging"
	"fintrack/internal/session"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

// ---------------------------------------------------------------------------
// Test-server helper
// ---------------------------------------------------------------------------

type testEnv struct {
	ts     *httptest.Server
	db     *memory.DB
	client *http.Client
}

func newTestServer(t *testing.T, opts adapthttp.Options) *testEnv {
	t.Helper()
	ctx := context.Background()

	db := memory.New()
	for _, a := range []domain.Account{
		{ID: "acc-1", Name: "Household", Currency: "EUR"},
		{ID: "acc-2", Name: "Holiday", Currency: "EUR"},
		{ID: "acc-3", Name: "Someone else's", Currency: "USD"},
	} {
		if err := db.PutAccount(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateUser(ctx, "a@example.com", string(hash), "acc-1", "acc-2"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateUser(ctx, "loner@example.com", string(hash)); err != nil {
		t.Fatal(err)
	}

	sessions, err := app.NewSessionManager(app.SessionConfig{Secret: "test-secret"}, db, db, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	authSvc := app.NewAuthService(db, db, sessions, logging.Nop())

	if opts.WebDir == "" {
		opts.WebDir = t.TempDir()
		if err := os.WriteFile(filepath.Join(opts.WebDir, "index.html"), []byte("<html></html>"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	srv := adapthttp.New(authSvc, app.NewTransactionService(db), app.NewSummaryService(db), opts, logging.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{ts: ts, db: db, client: client}
}

func (e *testEnv) do(t *testing.T, method, path string, payload any) *http.Response {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, e.ts.URL+path, &body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) login(t *testing.T, email, password, accountID string) *http.Response {
	t.Helper()
	return e.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": password, "accountId": accountID,
	})
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return m
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode)
	}
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	env := newTestServer(t, adapthttp.Options{})

	resp := env.do(t, http.MethodGet, "/api/health", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["ok"] != true {
		t.Fatalf("expected ok=true, got %v", body["ok"])
	}
	if got := resp.Header.Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestLoginSetsSessionCookies(t *testing.T) {
	env := newTestServer(t, adapthttp.Options{})

	resp := env.login(t, "A@Example.com", "secret", "acc-2")
	expectStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	if body["userEmail"] != "a@example.com" || body["accountId"] != "acc-2" {
		t.Fatalf("unexpected claim: %v", body)
	}

	for _, name := range session.CookieNames {
		c := findCookie(resp, name)
		if c == nil {
			t.Fatalf("cookie %s not set", name)
		}
		if !c.HttpOnly || c.Path != "/" || c.SameSite != http.SameSiteLaxMode || c.Secure {
			t.Errorf("cookie %s has unexpected attributes: %+v", name, c)
		}
		if c.MaxAge != 30*24*60*60 {
			t.Errorf("cookie %s MaxAge = %d", name, c.MaxAge)
		}
	}
	if c := findCookie(resp, session.CookieToken); len(c.Value) != 64 {
		t.Errorf("token length = %d", len(c.Value))
	}
}

func TestLoginProductionCookiesAreSecure(t *testing.T) {
	env := newTestServer(t, adapthttp.Options{Production: true})

	resp := env.login(t, "a@example.com", "secret", "")
	expectStatus(t, resp, http.StatusOK)
	for _, name := range session.CookieNames {
		if c := findCookie(resp, name); c == nil || !c.Secure {
			t.Errorf("cookie %s should be Secure", name)
		}
	}
}

func TestLoginRejected(t *testing.T) {
	tests := []struct {
		name       string
		payload    any
		wantStatus int
	}{
		{"wrong password", map[string]string{"email": "a@example.com", "password": "nope"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"email": "x@example.com", "password": "secret"}, http.StatusUnauthorized},
		{"empty credentials", map[string]string{"email": "", "password": ""}, http.StatusUnauthorized},
		{"unknown field", map[string]string{"username": "a"}, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestServer(t, adapthttp.Options{})
			resp := env.do(t, http.MethodPost, "/api/auth/login", tc.payload)
			expectStatus(t, resp, tc.wantStatus)
			if len(resp.Cookies()) != 0 {
				t.Errorf("rejected login set cookies: %v", resp.Cookies())
			}
			if tc.wantStatus == http.StatusUnauthorized {
				if body := decodeBody(t, resp); body["error"] != "invalid credentials" {
					t.Errorf("error = %v", body["error"])
				}
			}
		})
	}
}

func TestSessionEndpoint(t *testing.T) {
	env := newTestServer(t, adapthttp.Options{})

	resp := env.do(t, http.MethodGet, "/api/auth/session", nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	if body := decodeBody(t, resp); body["error"] != "Unauthenticated" {
		t.Fatalf("error = %v", body["error"])
	}

	expectStatus(t, env.login(t, "a@example.com", "secret", ""), http.StatusOK)

	resp = env.do(t, http.MethodGet, "/api/auth/session", nil)
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	if body["userEmail"] != "a@example.com" || body["accountId"] != "acc-1" {
		t.Fatalf("unexpected claim: %v", body)
	}
}

func TestTamperedSessionRejected(t *testing.T) {
	env := newTestServer(t, adapthttp.Options{})
	resp := env.login(t, "a@example.com", "secret", "")
	expectStatus(t, resp, http.StatusOK)

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/auth/session", nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieEmail {
			c.Value = "loner@example.com"
		}
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	forged, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer forged.Body.Close() //nolint:errcheck
	expectStatus(t, forged, http.StatusUnauthorized)
}

func TestPrivilegedRoutesRequireSession(t *testing.T) {
	env := newTestServer(t, adapthttp.Options{})

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/accounts"},
		{http.MethodGet, "/api/transactions/recent"},
		{http.MethodPost, "/api/transactions"},
		{http.MethodPost, "/api/transactions/undo-last"},
		{http.MethodGet, "/api/summary/daily"},
	}
	for _, rt := range routes {
		resp := env.do(t, rt.method, rt.path, nil)
		expectStatus(t, resp, http.StatusUnauthorized)
		if body := decodeBody(t, resp); body["error"] != "Unauthenticated" {
			t.Errorf("%s: error = %v", rt.path, body["error"])
		}
	}
}

func TestSwitchAccount(t *testing.T) {
	env := newTestServer(t, adapthttp.Options{})
	expectStatus(t, env.login(t, "a@example.com", "secret", ""), http.StatusOK)

	resp := env.do(t, http.MethodPost, "/api/auth/account", map[string]string{"accountId": "acc-2"})
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["success"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
	for _, c := range resp.Cookies() {
		if c.Name != session.CookieAccount {
			t.Errorf("switch rewrote cookie %s", c.Name)
		}
		if c.MaxAge <= 0 || c.MaxAge > 30*24*60*60 {
			t.Errorf("account cookie MaxAge = %d", c.MaxAge)
		}
	}

	resp = env.do(t, http.MethodGet, "/api/auth/session", nil)
	if body := decodeBody(t, resp); body["accountId"] != "acc-2" {
		t.Fatalf("accountId = %v", body["accountId"])
	}

	resp = env.do(t, http.MethodPost, "/api/auth/account", map[string]string{"accountId": "acc-3"})
	expectStatus(t, resp, http.StatusForbidden)
	body := decodeBody(t, resp)
	errObj, _ := body["error"].(map[string]any)
	general, _ := errObj["general"].([]any)
	if len(general) != 1 || general[0] != app.MsgAccountNotAvailable {
		t.Fatalf("unexpected error body: %v", body)
	}

	resp = env.do(t, http.MethodPost, "/api/auth/account", map[string]string{"accountId": "acc-404"})
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestSwitchAccountWithoutSession(t *testing.T) {
	env := newTestServer(t, adapthttp.Options{})

	resp := env.do(t, http.MethodPost, "/api/auth/account", map[string]string{"accountId": "acc-1"})
	expectStatus(t, resp, http.StatusUnauthorized)
	if len(resp.Cookies()) != 0 {
		t.Errorf("failed switch set cookies: %v", resp.Cookies())
	}
	body := decodeBody(t, resp)
	errObj, _ := body["error"].(map[string]any)
	general, _ := errObj["general"].([]any)
	if len(general) != 1 || general[0] != app.MsgNoActiveSession {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestLogout(t *testing.T) {
	env := newTestServer(t, adapthttp.Options{})
	expectStatus(t, env.login(t, "a@example.com", "secret", ""), http.StatusOK)

	resp := env.do(t, http.MethodPost, "/api/auth/logout", nil)
	expectStatus(t, resp, http.StatusOK)
	for _, name := range session.CookieNames {
		if c := findCookie(resp, name); c == nil || c.MaxAge >= 0 {
			t.Errorf("cookie %s not cleared", name)
		}
	}

	expectStatus(t, env.do(t, http.MethodGet, "/api/auth/session", nil), http.StatusUnauthorized)
	expectStatus(t, env.do(t, http.MethodPost, "/api/auth/logout", nil), http.StatusOK)
}

func TestAccountsList(t *testing.T) {
	env := newTestServer(t, adapthttp.Options{})
	expectStatus(t, env.login(t, "a@example.com", "secret", ""), http.StatusOK)

	resp := env.do(t, http.MethodGet, "/api/accounts", nil)
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	items, _ := body["items"].([]any)
	if len(items) != 2 || body["current"] != "acc-1" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestTransactionsFlow(t *testing.T) {
	env := newTestServer(t, adapthttp.Options{})
	expectStatus(t, env.login(t, "a@example.com", "secret", ""), http.StatusOK)

	resp := env.do(t, http.MethodPost, "/api/transactions", map[string]string{"amount": "-12.34", "description": "groceries"})
	expectStatus(t, resp, http.StatusOK)
	created := decodeBody(t, resp)
	if created["amount"] != "-12.34" || created["accountId"] != "acc-1" {
		t.Fatalf("unexpected transaction: %v", created)
	}

	resp = env.do(t, http.MethodPost, "/api/transactions", map[string]string{"amount": "abc"})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = env.do(t, http.MethodGet, "/api/transactions/recent?limit=5", nil)
	expectStatus(t, resp, http.StatusOK)
	if items, _ := decodeBody(t, resp)["items"].([]any); len(items) != 1 {
		t.Fatalf("expected 1 item, got %v", items)
	}

	resp = env.do(t, http.MethodGet, "/api/summary/daily?days=7", nil)
	expectStatus(t, resp, http.StatusOK)
	summary := decodeBody(t, resp)
	if summary["total"] != "-12.34" {
		t.Fatalf("total = %v", summary["total"])
	}
	if items, _ := summary["items"].([]any); len(items) != 7 {
		t.Fatalf("expected 7 days, got %d", len(items))
	}

	resp = env.do(t, http.MethodPost, "/api/transactions/undo-last", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["undone"] != true || body["id"] != created["id"] {
		t.Fatalf("unexpected undo: %v", body)
	}

	resp = env.do(t, http.MethodPost, "/api/transactions/undo-last", nil)
	if body := decodeBody(t, resp); body["undone"] != false {
		t.Fatalf("expected nothing to undo: %v", body)
	}
}

func TestTransactionsRequireAccount(t *testing.T) {
	env := newTestServer(t, adapthttp.Options{})
	expectStatus(t, env.login(t, "loner@example.com", "secret", ""), http.StatusOK)

	resp := env.do(t, http.MethodGet, "/api/transactions/recent", nil)
	expectStatus(t, resp, http.StatusConflict)
	if body := decodeBody(t, resp); body["error"] != "no account selected" {
		t.Fatalf("error = %v", body["error"])
	}
	expectStatus(t, env.do(t, http.MethodGet, "/api/summary/daily", nil), http.StatusConflict)
}

func TestConfigAndSSO(t *testing.T) {
	env := newTestServer(t, adapthttp.Options{})
	resp := env.do(t, http.MethodGet, "/api/auth/config", nil)
	if body := decodeBody(t, resp); body["sso_enabled"] != false {
		t.Fatalf("sso_enabled = %v", body["sso_enabled"])
	}
	expectStatus(t, env.do(t, http.MethodGet, "/api/auth/sso/login", nil), http.StatusNotFound)
	expectStatus(t, env.do(t, http.MethodGet, "/api/auth/sso/callback", nil), http.StatusNotFound)

	sso := newTestServer(t, adapthttp.Options{OIDC: &adapthttp.OIDCConfig{
		Enabled: true,
		OAuth2Config: oauth2.Config{
			ClientID: "fintrack",
			Endpoint: oauth2.Endpoint{AuthURL: "https://idp.example.com/auth", TokenURL: "https://idp.example.com/token"},
		},
	}})
	resp = sso.do(t, http.MethodGet, "/api/auth/config", nil)
	if body := decodeBody(t, resp); body["sso_enabled"] != true {
		t.Fatalf("sso_enabled = %v", body["sso_enabled"])
	}

	resp = sso.do(t, http.MethodGet, "/api/auth/sso/login", nil)
	expectStatus(t, resp, http.StatusFound)
	state := findCookie(resp, "oauth_state")
	if state == nil || state.Value == "" {
		t.Fatal("state cookie not set")
	}
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, "https://idp.example.com/auth?") || !strings.Contains(loc, "state=") {
		t.Fatalf("unexpected redirect: %s", loc)
	}

	resp = sso.do(t, http.MethodGet, "/api/auth/sso/callback?state=forged&code=x", nil)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestSSOCallbackClearsStateCookie(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	t.Cleanup(idp.Close)

	env := newTestServer(t, adapthttp.Options{Production: true, OIDC: &adapthttp.OIDCConfig{
		Enabled: true,
		OAuth2Config: oauth2.Config{
			ClientID: "fintrack",
			Endpoint: oauth2.Endpoint{AuthURL: idp.URL + "/auth", TokenURL: idp.URL + "/token"},
		},
	}})

	resp := env.do(t, http.MethodGet, "/api/auth/sso/login", nil)
	expectStatus(t, resp, http.StatusFound)
	state := findCookie(resp, "oauth_state")
	if state == nil {
		t.Fatal("state cookie not set")
	}

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/auth/sso/callback?code=x&state="+state.Value, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.AddCookie(&http.Cookie{Name: state.Name, Value: state.Value})
	cb, err := env.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer cb.Body.Close() //nolint:errcheck
	expectStatus(t, cb, http.StatusBadGateway)

	cleared := findCookie(cb, "oauth_state")
	if cleared == nil {
		t.Fatal("state cookie not cleared")
	}
	if cleared.MaxAge >= 0 || cleared.Value != "" {
		t.Errorf("state cookie not expired: %+v", cleared)
	}
	if cleared.Path != "/" || !cleared.HttpOnly || !cleared.Secure || cleared.SameSite != http.SameSiteLaxMode {
		t.Errorf("cleared state cookie attributes differ from the one set: %+v", cleared)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestServer(t, adapthttp.Options{})
	expectStatus(t, env.login(t, "a@example.com", "secret", ""), http.StatusOK)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/login"},
		{http.MethodGet, "/api/auth/logout"},
		{http.MethodPost, "/api/auth/session"},
		{http.MethodGet, "/api/auth/account"},
		{http.MethodPost, "/api/accounts"},
		{http.MethodGet, "/api/transactions"},
		{http.MethodPost, "/api/transactions/recent"},
		{http.MethodGet, "/api/transactions/undo-last"},
		{http.MethodPost, "/api/summary/daily"},
	}
	for _, tc := range tests {
		expectStatus(t, env.do(t, tc.method, tc.path, nil), http.StatusMethodNotAllowed)
	}
}

func TestStaticFallback(t *testing.T) {
	env := newTestServer(t, adapthttp.Options{})
	resp := env.do(t, http.MethodGet, "/some/client/route", nil)
	expectStatus(t, resp, http.StatusOK)
}
