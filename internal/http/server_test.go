package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finance/internal/auth"
	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/middleware/ratelimit"
	"finance/internal/services"
	"finance/internal/store/memory"
)

var refNow = time.Date(2024, 8, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	srv   *Server
	store *memory.Store
	now   time.Time
}

func newTestEnv(t *testing.T, writeLimit int) *testEnv {
	t.Helper()
	st, err := memory.NewSeeded()
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	logger := log.New(log.Config{Output: io.Discard})
	issuer := auth.NewIssuer("test-secret-0123456789", time.Hour)

	loginCfg := ratelimit.LoginConfig()
	loginCfg.Logger = logger.Logger
	loginStore := ratelimit.NewMemoryStore(time.Minute)
	writeStore := ratelimit.NewMemoryStore(time.Minute)
	t.Cleanup(func() {
		loginStore.Close()
		writeStore.Close()
	})

	env := &testEnv{store: st, now: refNow}
	clock := func() time.Time { return env.now }

	budgets := services.NewBudgetService(st, st, nil, logger)
	svc := Services{
		Auth:         services.NewAuthService(st, issuer, ratelimit.NewLimiter(loginStore, loginCfg), nil, logger),
		Budgets:      budgets,
		Pots:         services.NewPotService(st, nil, logger),
		Transactions: services.NewTransactionService(st, budgets, nil, logger),
		Bills:        services.NewBillService(st, clock, logger),
		Overview:     services.NewOverviewService(st, core.Money{}, clock, logger),
	}

	writeLimiter := ratelimit.NewLimiter(writeStore, ratelimit.Config{Limit: writeLimit, Window: time.Minute, Prefix: "writes", Logger: logger.Logger})
	srv := NewServer(Config{Addr: ":0", Ready: st.Ping}, svc, issuer, writeLimiter, logger)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	env.srv = srv
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

// login registers a user and returns a session token.
func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/auth/register", `{"name":"Jo","email":"jo@example.com","password":"supersecret"}`, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status=%d body=%s", rr.Code, rr.Body)
	}
	rr = e.do(t, http.MethodPost, "/auth/login", `{"email":"JO@example.com","password":"supersecret"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", rr.Code, rr.Body)
	}
	var session struct {
		Token string `json:"token"`
	}
	decode(t, rr, &session)
	return session.Token
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	decode(t, rr, &body)
	return body.Error
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, 60)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(t, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	env.srv.ready = func(context.Context) error { return errors.New("db down") }
	rr := env.do(t, http.MethodGet, "/readyz", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing store status=%d", rr.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, 60)
	for _, path := range []string{"/budgets", "/transactions", "/bills", "/pots", "/overview", "/auth/me"} {
		rr := env.do(t, http.MethodGet, path, "", "")
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s status=%d, want 401", path, rr.Code)
		}
	}
	rr := env.do(t, http.MethodGet, "/budgets", "", "not-a-jwt")
	if rr.Code != http.StatusUnauthorized || errorMessage(t, rr) != "unauthorized" {
		t.Errorf("bad token status=%d body=%s", rr.Code, rr.Body)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, 60)
	token := env.login(t)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"duplicate email", "/auth/register", `{"name":"Jo","email":"jo@example.com","password":"supersecret"}`, http.StatusUnprocessableEntity},
		{"malformed json", "/auth/register", `{"name":`, http.StatusBadRequest},
		{"missing password", "/auth/register", `{"name":"A","email":"a@example.com"}`, http.StatusBadRequest},
		{"weak password", "/auth/register", `{"name":"A","email":"a@example.com","password":"short"}`, http.StatusUnprocessableEntity},
		{"unknown email", "/auth/login", `{"email":"nobody@example.com","password":"supersecret"}`, http.StatusNotFound},
		{"wrong password", "/auth/login", `{"email":"jo@example.com","password":"wrongwrong"}`, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, tt.path, tt.body, "")
			if rr.Code != tt.want {
				t.Fatalf("status=%d want=%d body=%s", rr.Code, tt.want, rr.Body)
			}
		})
	}

	rr := env.do(t, http.MethodGet, "/auth/me", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("me status=%d", rr.Code)
	}
	var me userResponse
	decode(t, rr, &me)
	if me.User.Email != "jo@example.com" {
		t.Errorf("me email=%q", me.User.Email)
	}
	if strings.Contains(rr.Body.String(), "supersecret") || strings.Contains(rr.Body.String(), "$2a$") {
		t.Error("response leaks password material")
	}
}

func TestLoginSetsCookieAndLogoutClears(t *testing.T) {
	env := newTestEnv(t, 60)
	env.login(t)

	rr := env.do(t, http.MethodPost, "/auth/login", `{"email":"jo@example.com","password":"supersecret"}`, "")
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != auth.CookieName || !cookies[0].HttpOnly {
		t.Fatalf("login cookies=%v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/budgets", nil)
	req.AddCookie(cookies[0])
	got := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(got, req)
	if got.Code != http.StatusOK {
		t.Fatalf("cookie auth status=%d", got.Code)
	}

	rr = env.do(t, http.MethodPost, "/auth/logout", "", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("logout status=%d", rr.Code)
	}
	if c := rr.Result().Cookies(); len(c) != 1 || c[0].MaxAge >= 0 {
		t.Errorf("logout cookie=%v", c)
	}
}

func TestLoginRateLimit(t *testing.T) {
	env := newTestEnv(t, 60)
	env.login(t) // first attempt

	body := `{"email":"jo@example.com","password":"wrongwrong"}`
	for i := 2; i <= 4; i++ {
		if rr := env.do(t, http.MethodPost, "/auth/login", body, ""); rr.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status=%d", i, rr.Code)
		}
	}
	rr := env.do(t, http.MethodPost, "/auth/login", `{"email":"jo@example.com","password":"supersecret"}`, "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("5th attempt status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestBudgetsCRUD(t *testing.T) {
	env := newTestEnv(t, 60)
	token := env.login(t)

	rr := env.do(t, http.MethodGet, "/budgets", "", token)
	var view services.BudgetsView
	decode(t, rr, &view)
	if len(view.Budgets) != 4 {
		t.Fatalf("seeded budgets=%d", len(view.Budgets))
	}

	rr = env.do(t, http.MethodPost, "/budgets", `{"category":"groceries","maximum":"250.50","theme":"#82C9D7"}`, token)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body)
	}
	var created core.Budget
	decode(t, rr, &created)
	if created.Category != core.Groceries || created.Maximum.Cents != 25050 {
		t.Errorf("created=%+v", created)
	}
	if created.Remaining.Cents != created.Maximum.Cents-created.Spent.Cents {
		t.Errorf("remaining=%d, want maximum-spent", created.Remaining.Cents)
	}

	// the cached list must see the new budget
	rr = env.do(t, http.MethodGet, "/budgets", "", token)
	decode(t, rr, &view)
	if len(view.Budgets) != 5 {
		t.Errorf("budgets after create=%d, want 5", len(view.Budgets))
	}

	cases := []struct {
		name, method, path, body string
		want                     int
	}{
		{"duplicate", http.MethodPost, "/budgets", `{"category":"Groceries","maximum":10,"theme":"#82C9D7"}`, http.StatusUnprocessableEntity},
		{"invalid amount", http.MethodPost, "/budgets", `{"category":"Shopping","maximum":"abc","theme":"#82C9D7"}`, http.StatusUnprocessableEntity},
		{"zero maximum", http.MethodPost, "/budgets", `{"category":"Shopping","maximum":0,"theme":"#82C9D7"}`, http.StatusUnprocessableEntity},
		{"missing maximum", http.MethodPost, "/budgets", `{"category":"Shopping","theme":"#82C9D7"}`, http.StatusBadRequest},
		{"bad theme", http.MethodPost, "/budgets", `{"category":"Shopping","maximum":5,"theme":"red"}`, http.StatusUnprocessableEntity},
		{"get by category", http.MethodGet, "/budgets/Dining%20Out", "", http.StatusOK},
		{"unknown category", http.MethodGet, "/budgets/Rent", "", http.StatusNotFound},
		{"update", http.MethodPut, "/budgets/Groceries", `{"category":"Groceries","maximum":300,"theme":"#82C9D7"}`, http.StatusOK},
		{"update missing", http.MethodPut, "/budgets/Shopping", `{"category":"Shopping","maximum":300,"theme":"#82C9D7"}`, http.StatusNotFound},
		{"delete", http.MethodDelete, "/budgets/Groceries", "", http.StatusNoContent},
		{"get deleted", http.MethodGet, "/budgets/Groceries", "", http.StatusNotFound},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, tt.method, tt.path, tt.body, token)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want=%d body=%s", rr.Code, tt.want, rr.Body)
			}
			if rr.Code >= 400 && errorMessage(t, rr) == "" {
				t.Error("error response without message")
			}
		})
	}
}

func TestTransactionsListAndImport(t *testing.T) {
	env := newTestEnv(t, 60)
	token := env.login(t)

	rr := env.do(t, http.MethodGet, "/transactions?page=2&sort=Oldest", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	var page transactionsResponse
	decode(t, rr, &page)
	if page.Total != 44 || page.Page != 2 || page.PageSize != 10 || page.TotalPages != 5 || len(page.Transactions) != 10 {
		t.Errorf("page=%+v", page)
	}

	body := `[{"name":"Corner Shop","category":"Groceries","date":"2024-08-20T10:00:00Z","amount":-12.34},
	          {"name":"Refund","category":"Shopping","date":"2024-08-21T10:00:00Z","amount":"5"}]`
	rr = env.do(t, http.MethodPost, "/transactions", body, token)
	if rr.Code != http.StatusCreated {
		t.Fatalf("import status=%d body=%s", rr.Code, rr.Body)
	}
	var imported importResponse
	decode(t, rr, &imported)
	if imported.Inserted != 2 {
		t.Errorf("inserted=%d", imported.Inserted)
	}

	rr = env.do(t, http.MethodGet, "/transactions?search=corner", "", token)
	decode(t, rr, &page)
	if page.Total != 1 || page.Transactions[0].ID == "" {
		t.Errorf("search after import=%+v", page)
	}

	// one bad record rejects the whole batch
	bad := `[{"name":"Ok","category":"Groceries","date":"2024-08-20T10:00:00Z","amount":-1},
	         {"name":"Bad","category":"Rent","date":"2024-08-20T10:00:00Z","amount":-1}]`
	rr = env.do(t, http.MethodPost, "/transactions", bad, token)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad import status=%d", rr.Code)
	}
	rr = env.do(t, http.MethodGet, "/transactions", "", token)
	decode(t, rr, &page)
	if page.Total != 46 {
		t.Errorf("total after rejected batch=%d, want 46", page.Total)
	}
}

func TestBillsIncludeSummary(t *testing.T) {
	env := newTestEnv(t, 60)
	token := env.login(t)

	rr := env.do(t, http.MethodGet, "/bills?sort=Latest", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("bills status=%d", rr.Code)
	}
	var bills billsResponse
	decode(t, rr, &bills)
	if bills.Total == 0 || len(bills.Bills) == 0 {
		t.Fatalf("no bills in %s", rr.Body)
	}
	for _, b := range bills.Bills {
		if !b.Recurring {
			t.Errorf("non recurring bill %s", b.ID)
		}
	}
	if bills.Summary.DueSoon.Count > bills.Summary.Upcoming.Count {
		t.Errorf("dueSoon %d exceeds upcoming %d", bills.Summary.DueSoon.Count, bills.Summary.Upcoming.Count)
	}
}

func TestPotsMoneyMovement(t *testing.T) {
	env := newTestEnv(t, 60)
	token := env.login(t)

	rr := env.do(t, http.MethodPost, "/pots/pot-gift/add", `{"amount":10}`, token)
	if rr.Code != http.StatusOK {
		t.Fatalf("add status=%d body=%s", rr.Code, rr.Body)
	}
	var p core.Pot
	decode(t, rr, &p)
	if p.Total.Cents != 5000 {
		t.Errorf("total after add=%d, want 5000", p.Total.Cents)
	}

	rr = env.do(t, http.MethodPost, "/pots/pot-gift/withdraw", `{"amount":"50.01"}`, token)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("overdraw status=%d", rr.Code)
	}
	rr = env.do(t, http.MethodGet, "/pots/pot-gift", "", token)
	decode(t, rr, &p)
	if p.Total.Cents != 5000 {
		t.Errorf("total after failed withdraw=%d, want 5000", p.Total.Cents)
	}

	for _, tt := range []struct {
		path, body string
		want       int
	}{
		{"/pots/pot-gift/add", `{"amount":-5}`, http.StatusUnprocessableEntity},
		{"/pots/pot-gift/add", `{}`, http.StatusBadRequest},
		{"/pots/missing/add", `{"amount":5}`, http.StatusNotFound},
		{"/pots", `{"name":"Savings","target":10,"theme":"#277C78"}`, http.StatusUnprocessableEntity},
		{"/pots", `{"name":"Car","target":10,"theme":"#277C78"}`, http.StatusCreated},
	} {
		if rr := env.do(t, http.MethodPost, tt.path, tt.body, token); rr.Code != tt.want {
			t.Errorf("POST %s %s status=%d want=%d", tt.path, tt.body, rr.Code, tt.want)
		}
	}
}

func TestOverviewCacheInvalidatedByWrites(t *testing.T) {
	env := newTestEnv(t, 60)
	token := env.login(t)

	var before, after services.Overview
	decode(t, env.do(t, http.MethodGet, "/overview", "", token), &before)
	if len(before.Transactions) != services.LatestTransactionsCount {
		t.Errorf("latest transactions=%d", len(before.Transactions))
	}

	if rr := env.do(t, http.MethodPost, "/pots/pot-savings/add", `{"amount":1}`, token); rr.Code != http.StatusOK {
		t.Fatalf("add status=%d", rr.Code)
	}
	decode(t, env.do(t, http.MethodGet, "/overview", "", token), &after)
	if after.Pots.TotalSaved.Cents != before.Pots.TotalSaved.Cents+100 {
		t.Errorf("totalSaved %d -> %d, want +100", before.Pots.TotalSaved.Cents, after.Pots.TotalSaved.Cents)
	}
}

func TestOverviewBillSummaryFollowsClock(t *testing.T) {
	env := newTestEnv(t, 60)
	token := env.login(t)

	var before, after services.Overview
	decode(t, env.do(t, http.MethodGet, "/overview", "", token), &before)

	// a year on every seeded bill is paid; no write touches the cache
	env.now = refNow.AddDate(1, 0, 0)
	decode(t, env.do(t, http.MethodGet, "/overview", "", token), &after)

	var bills struct {
		Summary core.BillSummary `json:"summary"`
	}
	decode(t, env.do(t, http.MethodGet, "/bills", "", token), &bills)
	if after.RecurringBills != bills.Summary {
		t.Errorf("overview bills=%+v, /bills summary=%+v", after.RecurringBills, bills.Summary)
	}
	if after.RecurringBills.Upcoming.Count != 0 {
		t.Errorf("upcoming count=%d after a year, want 0", after.RecurringBills.Upcoming.Count)
	}
	if before.RecurringBills.Upcoming.Count == 0 {
		t.Error("seed has no upcoming bills at the reference time")
	}
}

func TestWriteRateLimit(t *testing.T) {
	env := newTestEnv(t, 3)
	token := env.login(t) // register + login use 2 writes

	if rr := env.do(t, http.MethodPost, "/pots/pot-gift/add", `{"amount":1}`, token); rr.Code != http.StatusOK {
		t.Fatalf("3rd write status=%d", rr.Code)
	}
	rr := env.do(t, http.MethodPost, "/pots/pot-gift/add", `{"amount":1}`, token)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("4th write status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	// reads are not limited
	if rr := env.do(t, http.MethodGet, "/pots", "", token); rr.Code != http.StatusOK {
		t.Errorf("read after limit status=%d", rr.Code)
	}
}

func TestMiddlewareChain(t *testing.T) {
	env := newTestEnv(t, 60)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID=%q", got)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}

	rr = env.do(t, "TRACE", "/healthz", "", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("TRACE status=%d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/metrics", "", "")
	if !strings.Contains(rr.Body.String(), "http_requests_total") || !strings.Contains(rr.Body.String(), "suspicious_requests_total 1") {
		t.Errorf("metrics body=%s", rr.Body)
	}
}

func TestFinancialData(t *testing.T) {
	env := newTestEnv(t, 60)
	rr := env.do(t, http.MethodGet, "/financialData", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var data services.FinancialData
	decode(t, rr, &data)
	if len(data.Transactions) != 44 || len(data.Pots) != 5 || len(data.Bills) == 0 {
		t.Errorf("financialData transactions=%d pots=%d bills=%d", len(data.Transactions), len(data.Pots), len(data.Bills))
	}
}
