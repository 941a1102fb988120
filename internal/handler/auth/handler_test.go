package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	authhandler "github.com/zhouzirui/projecthub/backend/internal/handler/auth"
	"github.com/zhouzirui/projecthub/backend/internal/middleware"
	"github.com/zhouzirui/projecthub/backend/internal/model/reset"
	"github.com/zhouzirui/projecthub/backend/internal/model/user"
	authservice "github.com/zhouzirui/projecthub/backend/internal/service/auth"
)

// captureMailer records the last code instead of sending it.
type captureMailer struct {
	mu    sync.Mutex
	email string
	code  string
}

func (m *captureMailer) SendResetCode(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.email = email
	m.code = code
	return nil
}

func (m *captureMailer) last() (string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.email, m.code
}

func newServer(t *testing.T) (*httptest.Server, *captureMailer) {
	t.Helper()

	mailer := &captureMailer{}
	svc := authservice.NewService(
		user.NewMemoryStore(),
		reset.NewMemoryCodeStore(),
		reset.NewMemoryRequestStore(),
		mailer,
		[]byte("test-secret"),
		30*time.Minute,
	)

	h := authhandler.New(svc)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	r.Group(func(protected chi.Router) {
		protected.Use(middleware.Authenticator(svc))
		h.RegisterProtected(protected)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, mailer
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

type tokenBody struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user"`
}

func register(t *testing.T, srv *httptest.Server, username, email, password string) tokenBody {
	t.Helper()
	resp := postJSON(t, srv.URL+"/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status = %d, want 200", resp.StatusCode)
	}
	var body tokenBody
	decode(t, resp, &body)
	return body
}

func TestRegisterIssuesToken(t *testing.T) {
	srv, _ := newServer(t)

	body := register(t, srv, "alice", "alice@example.com", "secret123")
	if body.AccessToken == "" || body.TokenType != "bearer" {
		t.Fatalf("token response = %+v", body)
	}
	if body.User.Username != "alice" || body.User.Role != user.RoleUser {
		t.Fatalf("user payload = %+v", body.User)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	srv, _ := newServer(t)
	register(t, srv, "alice", "alice@example.com", "secret123")

	resp := postJSON(t, srv.URL+"/auth/register", map[string]string{
		"username": "alice",
		"password": "other456",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate username status = %d, want 400", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/auth/register", map[string]string{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "other456",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate email status = %d, want 400", resp.StatusCode)
	}
}

func TestLogin(t *testing.T) {
	srv, _ := newServer(t)
	register(t, srv, "alice", "", "secret123")

	resp := postJSON(t, srv.URL+"/auth/login", map[string]string{
		"username": "alice",
		"password": "secret123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	var body tokenBody
	decode(t, resp, &body)
	if body.AccessToken == "" {
		t.Fatal("login returned no token")
	}

	resp = postJSON(t, srv.URL+"/auth/login", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", resp.StatusCode)
	}
}

func TestMe(t *testing.T) {
	srv, _ := newServer(t)
	body := register(t, srv, "alice", "", "secret123")

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+body.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /auth/me: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d, want 200", resp.StatusCode)
	}
	var me struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	decode(t, resp, &me)
	if me.ID != body.User.ID || me.Username != "alice" {
		t.Fatalf("me = %+v, want the registered account", me)
	}
}

func TestPasswordResetByEmail(t *testing.T) {
	srv, mailer := newServer(t)
	register(t, srv, "alice", "alice@example.com", "secret123")

	resp := postJSON(t, srv.URL+"/auth/password-reset-request", map[string]string{
		"username_or_email": "alice@example.com",
	})
	var reqBody struct {
		HasEmail  bool `json:"has_email"`
		EmailSent bool `json:"email_sent"`
	}
	decode(t, resp, &reqBody)
	if !reqBody.HasEmail || !reqBody.EmailSent {
		t.Fatalf("reset request body = %+v", reqBody)
	}

	email, code := mailer.last()
	if email != "alice@example.com" || code == "" {
		t.Fatalf("mailer captured email=%q code=%q", email, code)
	}

	resp = postJSON(t, srv.URL+"/auth/password-reset", map[string]string{
		"username_or_email": "alice",
		"reset_code":        code,
		"new_password":      "fresh456",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status = %d, want 200", resp.StatusCode)
	}

	// New password works, old one does not.
	resp = postJSON(t, srv.URL+"/auth/login", map[string]string{"username": "alice", "password": "fresh456"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login with new password status = %d, want 200", resp.StatusCode)
	}
	resp = postJSON(t, srv.URL+"/auth/login", map[string]string{"username": "alice", "password": "secret123"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("login with old password status = %d, want 401", resp.StatusCode)
	}

	// The code is single-use.
	resp = postJSON(t, srv.URL+"/auth/password-reset", map[string]string{
		"username_or_email": "alice",
		"reset_code":        code,
		"new_password":      "again789",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("reused code status = %d, want 400", resp.StatusCode)
	}
}

func TestPasswordResetWithoutEmail(t *testing.T) {
	srv, _ := newServer(t)
	register(t, srv, "bob", "", "secret123")

	resp := postJSON(t, srv.URL+"/auth/password-reset-request", map[string]string{
		"username_or_email": "bob",
	})
	var body struct {
		HasEmail bool   `json:"has_email"`
		Message  string `json:"message"`
	}
	decode(t, resp, &body)
	if body.HasEmail {
		t.Fatal("account without email reported has_email=true")
	}
	if body.Message != "Reset request sent to administrator" {
		t.Fatalf("message = %q", body.Message)
	}
}

func TestPasswordResetUnknownUser(t *testing.T) {
	srv, _ := newServer(t)

	resp := postJSON(t, srv.URL+"/auth/password-reset-request", map[string]string{
		"username_or_email": "ghost",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown user status = %d, want 404", resp.StatusCode)
	}
}

func TestPasswordResetInvalidCode(t *testing.T) {
	srv, _ := newServer(t)
	register(t, srv, "alice", "alice@example.com", "secret123")

	resp := postJSON(t, srv.URL+"/auth/password-reset", map[string]string{
		"username_or_email": "alice",
		"reset_code":        "000000",
		"new_password":      "fresh456",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid code status = %d, want 400", resp.StatusCode)
	}
}
