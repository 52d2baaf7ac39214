package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/notify"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/memory"
	"github.com/dmitrijs2005/gatekeeper/internal/server/resets"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/stretchr/testify/require"
)

var testParams = cryptox.Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32}

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mailbox struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (m *mailbox) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	m.msgs = append(m.msgs, msg)
	m.mu.Unlock()
	return nil
}

// link returns the token of the latest mailed link under path.
func (m *mailbox) link(t *testing.T, path string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	re := regexp.MustCompile(regexp.QuoteMeta(path) + `([^"<\s]+)`)
	for i := len(m.msgs) - 1; i >= 0; i-- {
		if sub := re.FindStringSubmatch(m.msgs[i].HTML); sub != nil {
			return sub[1]
		}
	}
	t.Fatalf("no mailed link under %q", path)
	return ""
}

type testServer struct {
	srv   *HTTPServer
	svc   *services.AccountService
	mail  *mailbox
	clock *fakeClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.PublicBaseURL = "https://app.example"

	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	mem := memory.NewManager(clock.Now)
	mail := &mailbox{}

	svc := services.NewAccountService(
		mem,
		auth.NewIssuer([]byte("test-secret"), clock.Now),
		resets.NewStore(mem, cfg.ResetTokenValidityDuration, clock.Now),
		notify.NewComposer(cfg.PublicBaseURL, cfg.AdminEmail),
		mail,
		nopLogger{},
		cfg,
		services.WithPasswordParams(testParams),
	)
	cookies := auth.NewCookieManager(cfg.SessionTokenValidityDuration, true)

	return &testServer{
		srv:   NewHTTPServer("127.0.0.1:0", nopLogger{}, svc, cookies, cfg.AllowedOrigins),
		svc:   svc,
		mail:  mail,
		clock: clock,
	}
}

type response struct {
	status int
	body   []byte
	cookie *http.Cookie
}

func (r response) json(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(r.body, &m), string(r.body))
	return m
}

// do sends a request with an optional JSON body and session cookie.
func (ts *testServer) do(t *testing.T, method, path, body string, session *http.Cookie) response {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != nil {
		req.AddCookie(session)
	}

	resp, err := ts.srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := response{status: resp.StatusCode, body: readAll(t, resp)}
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			out.cookie = c
		}
	}
	return out
}

func readAll(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return data
}

// adminSession bootstraps an administrator and returns its session cookie.
func (ts *testServer) adminSession(t *testing.T) *http.Cookie {
	t.Helper()
	_, err := ts.svc.CreateAdmin(context.Background(), services.RegisterInput{
		Name: "Root", Email: "root@x.com", Password: "rootpass",
	})
	require.NoError(t, err)

	r := ts.do(t, http.MethodPost, "/login", `{"email":"root@x.com","password":"rootpass"}`, nil)
	require.Equal(t, http.StatusOK, r.status, string(r.body))
	require.NotNil(t, r.cookie)
	return r.cookie
}

// activate registers email and walks it through approval and confirmation.
func (ts *testServer) activate(t *testing.T, admin *http.Cookie, email, password string) {
	t.Helper()
	r := ts.do(t, http.MethodPost, "/register", `{"name":"Ann","email":"`+email+`","password":"`+password+`"}`, nil)
	require.Equal(t, http.StatusCreated, r.status, string(r.body))

	r = ts.do(t, http.MethodPut, "/approve/"+ts.mail.link(t, "/approve-user/"), "", admin)
	require.Equal(t, http.StatusOK, r.status, string(r.body))

	r = ts.do(t, http.MethodGet, "/completeRegistration/"+ts.mail.link(t, "/complete-registration/"), "", nil)
	require.Equal(t, http.StatusOK, r.status, string(r.body))
}
