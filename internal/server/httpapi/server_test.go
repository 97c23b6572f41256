package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akarpov87/authkeeper/internal/common"
	"github.com/akarpov87/authkeeper/internal/dbx"
	"github.com/akarpov87/authkeeper/internal/logging"
	"github.com/akarpov87/authkeeper/internal/server/config"
	"github.com/akarpov87/authkeeper/internal/server/models"
	accountsrepo "github.com/akarpov87/authkeeper/internal/server/repositories/accounts"
	logineventsrepo "github.com/akarpov87/authkeeper/internal/server/repositories/loginevents"
	revokedrepo "github.com/akarpov87/authkeeper/internal/server/repositories/revokedtokens"
	"github.com/akarpov87/authkeeper/internal/server/services"

	_ "modernc.org/sqlite"
)

// In-memory repositories back the full request flow so the handlers are
// exercised against a live SessionService.

type memAccounts struct {
	nextID int64
	byMail map[string]*models.Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{nextID: 1, byMail: make(map[string]*models.Account)}
}

func (m *memAccounts) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if _, ok := m.byMail[a.Email]; ok {
		return nil, common.ErrEmailTaken
	}
	a.ID = m.nextID
	m.nextID++
	a.CreatedAt = time.Now()
	m.byMail[a.Email] = a
	return a, nil
}

func (m *memAccounts) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	a, ok := m.byMail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

func (m *memAccounts) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	a, ok := m.byMail[email]
	if !ok {
		return common.ErrorNotFound
	}
	a.PasswordHash = hash
	return nil
}

type memLoginEvents struct {
	events []models.LoginEvent
}

func (m *memLoginEvents) Create(ctx context.Context, accountID int64, clientDescriptor string) error {
	m.events = append(m.events, models.LoginEvent{
		ID:               int64(len(m.events) + 1),
		AccountID:        accountID,
		ClientDescriptor: clientDescriptor,
		OccurredAt:       time.Now(),
	})
	return nil
}

func (m *memLoginEvents) ListByAccount(ctx context.Context, accountID int64) ([]models.LoginEvent, error) {
	var out []models.LoginEvent
	for _, e := range m.events {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memRevoked struct {
	revoked map[string]bool
}

func (m *memRevoked) Record(ctx context.Context, token string, accountID int64, expires time.Time) error {
	m.revoked[token] = true
	return nil
}

func (m *memRevoked) IsRevoked(ctx context.Context, token string) (bool, error) {
	return m.revoked[token], nil
}

type memRepoManager struct {
	accounts *memAccounts
	events   *memLoginEvents
	revoked  *memRevoked
}

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error     { return nil }
func (m *memRepoManager) Accounts(dbx.DBTX) accountsrepo.Repository       { return m.accounts }
func (m *memRepoManager) LoginEvents(dbx.DBTX) logineventsrepo.Repository { return m.events }
func (m *memRepoManager) RevokedTokens(dbx.DBTX) revokedrepo.Repository   { return m.revoked }

type plainHasher struct{}

func (plainHasher) Hash(plaintext []byte) ([]byte, error) { return append([]byte("h:"), plaintext...), nil }
func (plainHasher) Compare(hash, plaintext []byte) error {
	if string(hash) == "h:"+string(plaintext) {
		return nil
	}
	return errors.New("mismatch")
}

func newTestServer(t *testing.T) (*httptest.Server, *memRepoManager) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	rm := &memRepoManager{
		accounts: newMemAccounts(),
		events:   &memLoginEvents{},
		revoked:  &memRevoked{revoked: make(map[string]bool)},
	}
	cfg := &config.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	sessions := services.NewSessionService(db, rm, nil, plainHasher{}, cfg)
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	srv := NewServer("", logger, sessions, cfg.SecretKey)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, rm
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s error: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode error: %v", err)
	}
}

func register(t *testing.T, base, email, password string) registerResponse {
	t.Helper()
	resp := postJSON(t, base+"/api/register", map[string]string{"email": email, "password": password})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: want 201, got %d", resp.StatusCode)
	}
	var out registerResponse
	decodeBody(t, resp, &out)
	return out
}

func login(t *testing.T, base, email, password string) tokenPairResponse {
	t.Helper()
	resp := postJSON(t, base+"/api/login", map[string]string{"email": email, "password": password})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: want 200, got %d", resp.StatusCode)
	}
	var out tokenPairResponse
	decodeBody(t, resp, &out)
	return out
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("missing X-Request-Id header")
	}
}

func TestRegister(t *testing.T) {
	ts, _ := newTestServer(t)

	out := register(t, ts.URL, "alice@example.com", "pw")
	if out.Email != "alice@example.com" || out.ID == 0 || out.AccessToken == "" {
		t.Fatalf("unexpected response: %+v", out)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	ts, _ := newTestServer(t)
	register(t, ts.URL, "alice@example.com", "pw")

	resp := postJSON(t, ts.URL+"/api/register", map[string]string{"email": "alice@example.com", "password": "other"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", resp.StatusCode)
	}
}

func TestRegisterInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing email", map[string]string{"password": "pw"}},
		{"missing password", map[string]string{"email": "a@b.com"}},
		{"malformed email", map[string]string{"email": "not-an-email", "password": "pw"}},
	}

	ts, _ := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/register", tt.body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("want 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestLoginAndHistory(t *testing.T) {
	ts, _ := newTestServer(t)
	register(t, ts.URL, "alice@example.com", "pw")

	pair := login(t, ts.URL, "alice@example.com", "pw")
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("incomplete token pair: %+v", pair)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/user/history", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET history error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history: want 200, got %d", resp.StatusCode)
	}
	var events []loginEventResponse
	decodeBody(t, resp, &events)
	if len(events) != 1 {
		t.Fatalf("want 1 login event, got %d", len(events))
	}
}

func TestLoginBadCredentials(t *testing.T) {
	ts, _ := newTestServer(t)
	register(t, ts.URL, "alice@example.com", "pw")

	for _, body := range []map[string]string{
		{"email": "alice@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "pw"},
	} {
		resp := postJSON(t, ts.URL+"/api/login", body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("want 401, got %d for %v", resp.StatusCode, body)
		}
	}
}

func TestRefreshSingleUse(t *testing.T) {
	ts, _ := newTestServer(t)
	register(t, ts.URL, "alice@example.com", "pw")
	pair := login(t, ts.URL, "alice@example.com", "pw")

	resp := postJSON(t, ts.URL+"/api/refresh", map[string]string{"refresh_token": pair.RefreshToken})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first refresh: want 200, got %d", resp.StatusCode)
	}
	var out tokenPairResponse
	decodeBody(t, resp, &out)
	if out.AccessToken == "" {
		t.Fatalf("missing access token")
	}

	resp = postJSON(t, ts.URL+"/api/refresh", map[string]string{"refresh_token": pair.RefreshToken})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("second refresh: want 401, got %d", resp.StatusCode)
	}
}

func TestLogoutBlocksRefresh(t *testing.T) {
	ts, _ := newTestServer(t)
	register(t, ts.URL, "alice@example.com", "pw")
	pair := login(t, ts.URL, "alice@example.com", "pw")

	resp := postJSON(t, ts.URL+"/api/logout", map[string]string{"refresh_token": pair.RefreshToken})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: want 200, got %d", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/api/refresh", map[string]string{"refresh_token": pair.RefreshToken})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: want 401, got %d", resp.StatusCode)
	}
}

func TestUpdatePassword(t *testing.T) {
	ts, _ := newTestServer(t)
	register(t, ts.URL, "alice@example.com", "pw")
	pair := login(t, ts.URL, "alice@example.com", "pw")

	body, _ := json.Marshal(map[string]string{"new_password": "rotated"})
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/user/password", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT password error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update password: want 200, got %d", resp.StatusCode)
	}

	// Old password stops working, new one logs in.
	resp = postJSON(t, ts.URL+"/api/login", map[string]string{"email": "alice@example.com", "password": "pw"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("old password: want 401, got %d", resp.StatusCode)
	}
	login(t, ts.URL, "alice@example.com", "rotated")
}

func TestProtectedRoutesRequireAccessToken(t *testing.T) {
	ts, _ := newTestServer(t)
	register(t, ts.URL, "alice@example.com", "pw")
	pair := login(t, ts.URL, "alice@example.com", "pw")

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage", "garbage"},
		{"refresh token in place of access", pair.RefreshToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/user/history", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request error: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("want 401, got %d", resp.StatusCode)
			}
		})
	}
}

func TestRequestIDEchoed(t *testing.T) {
	ts, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set("X-Request-Id", "req-42")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("want echoed request id, got %q", got)
	}
}
