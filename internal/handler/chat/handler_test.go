package chat_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chathandler "github.com/zhouzirui/projecthub/backend/internal/handler/chat"
	chatmodel "github.com/zhouzirui/projecthub/backend/internal/model/chat"
	"github.com/zhouzirui/projecthub/backend/internal/model/reset"
	"github.com/zhouzirui/projecthub/backend/internal/model/user"
	authservice "github.com/zhouzirui/projecthub/backend/internal/service/auth"
	chatservice "github.com/zhouzirui/projecthub/backend/internal/service/chat"
	"github.com/zhouzirui/projecthub/backend/internal/service/mail"
)

type testEnv struct {
	srv      *httptest.Server
	auth     *authservice.Service
	messages *chatmodel.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	messages := chatmodel.NewMemoryStore()
	authSvc := authservice.NewService(
		user.NewMemoryStore(),
		reset.NewMemoryCodeStore(),
		reset.NewMemoryRequestStore(),
		mail.NewLogMailer(),
		[]byte("test-secret"),
		30*time.Minute,
	)
	room := chatservice.NewRoom(chatservice.NewRegistry(), messages, 50)

	r := chi.NewRouter()
	chathandler.New(authSvc, room).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, auth: authSvc, messages: messages}
}

func (e *testEnv) registerUser(t *testing.T, username string) string {
	t.Helper()
	_, token, err := e.auth.Register(context.Background(), username, "", "secret123")
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return token
}

func (e *testEnv) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws/chat?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// wireEvent is loose enough to decode every event type on the wire.
type wireEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Messages []struct {
		Username string `json:"username"`
		Message  string `json:"message"`
	} `json:"messages"`
	Data struct {
		Username string `json:"username"`
		Message  string `json:"message"`
	} `json:"data"`
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev wireEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func TestRejectsInvalidToken(t *testing.T) {
	env := newTestEnv(t)

	conn := env.dial(t, "not-a-token")
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("read after bad token: err = %v, want close 1008", err)
	}
}

func TestHistoryIsFirstFrame(t *testing.T) {
	env := newTestEnv(t)

	for _, text := range []string{"first", "second", "third"} {
		err := env.messages.Append(context.Background(), chatmodel.Message{
			ID:        text,
			UserID:    "u1",
			Username:  "earlier",
			Message:   text,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	conn := env.dial(t, env.registerUser(t, "alice"))

	ev := readEvent(t, conn)
	if ev.Type != "history" {
		t.Fatalf("first frame type = %q, want history", ev.Type)
	}
	if len(ev.Messages) != 3 {
		t.Fatalf("history has %d messages, want 3", len(ev.Messages))
	}
	// Chronological replay, oldest first.
	for i, want := range []string{"first", "second", "third"} {
		if ev.Messages[i].Message != want {
			t.Fatalf("history[%d] = %q, want %q", i, ev.Messages[i].Message, want)
		}
	}
}

func TestJoinSendLeaveScenario(t *testing.T) {
	env := newTestEnv(t)

	alice := env.dial(t, env.registerUser(t, "alice"))
	if ev := readEvent(t, alice); ev.Type != "history" {
		t.Fatalf("alice first frame = %q, want history", ev.Type)
	}
	if ev := readEvent(t, alice); ev.Type != "user_joined" || ev.Username != "alice" {
		t.Fatalf("alice joined frame = %+v", ev)
	}

	bob := env.dial(t, env.registerUser(t, "bob"))
	if ev := readEvent(t, bob); ev.Type != "history" {
		t.Fatalf("bob first frame = %q, want history", ev.Type)
	}
	if ev := readEvent(t, bob); ev.Type != "user_joined" || ev.Username != "bob" {
		t.Fatalf("bob joined frame = %+v", ev)
	}
	if ev := readEvent(t, alice); ev.Type != "user_joined" || ev.Username != "bob" {
		t.Fatalf("alice saw %+v, want bob join", ev)
	}

	if err := bob.WriteJSON(map[string]string{"message": "hi there"}); err != nil {
		t.Fatalf("bob send: %v", err)
	}
	for name, conn := range map[string]*websocket.Conn{"alice": alice, "bob": bob} {
		ev := readEvent(t, conn)
		if ev.Type != "message" || ev.Data.Username != "bob" || ev.Data.Message != "hi there" {
			t.Fatalf("%s saw %+v, want bob's message", name, ev)
		}
	}

	// Blank frames are dropped without a broadcast.
	if err := bob.WriteJSON(map[string]string{"message": "   "}); err != nil {
		t.Fatalf("bob send blank: %v", err)
	}

	bob.Close()
	if ev := readEvent(t, alice); ev.Type != "user_left" || ev.Username != "bob" {
		t.Fatalf("alice saw %+v, want bob leave", ev)
	}

	// The posted message is persisted for later replay.
	recent, err := env.messages.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 || recent[0].Message != "hi there" {
		t.Fatalf("persisted history = %+v", recent)
	}
}
