package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/synkr/synkr/internal/auth"
	"github.com/synkr/synkr/internal/domain"
	"github.com/synkr/synkr/internal/hub"
	"github.com/synkr/synkr/internal/testutil"
)

type fixture struct {
	api      *API
	store    *testutil.MockStore
	hub      *hub.Hub
	resolver *auth.Resolver
	mux      *http.ServeMux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := testutil.NewMockStore()
	h := hub.New(zap.NewNop())
	resolver := auth.NewResolver("test-secret", time.Hour)
	api := NewAPI(st, h, resolver, 50, zap.NewNop())

	mux := http.NewServeMux()
	mux.HandleFunc("/health", Health())
	api.Routes(mux)

	return &fixture{api: api, store: st, hub: h, resolver: resolver, mux: mux}
}

func (f *fixture) addUser(t *testing.T, id, username, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := f.store.CreateUser(domain.User{ID: id, Username: username, PasswordHash: string(hash)}); err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func (f *fixture) request(t *testing.T, method, path, asUser string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	if asUser != "" {
		token, err := f.resolver.Issue(asUser)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		r.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	w := f.request(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestSignupThenLogin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.request(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "alice",
		"password": "secret",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = f.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "secret",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[map[string]any](t, w)
	if resp["token"] == "" {
		t.Error("expected a session token in the response")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addUser(t, "u1", "alice", "secret")

	w := f.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestUsersRequiresAuth(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	w := f.request(t, http.MethodGet, "/api/users", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestUsersExcludesCaller(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addUser(t, "u1", "alice", "x")
	f.addUser(t, "u2", "bob", "x")

	w := f.request(t, http.MethodGet, "/api/users", "u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	users := decodeBody[[]domain.User](t, w)
	if len(users) != 1 || users[0].ID != "u2" {
		t.Errorf("expected only u2, got %+v", users)
	}
}

func TestCreateGroupAddsCreator(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addUser(t, "u1", "alice", "x")
	f.addUser(t, "u2", "bob", "x")

	w := f.request(t, http.MethodPost, "/api/groups", "u1", map[string]any{
		"name":    "team",
		"members": []string{"u2"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	g := decodeBody[domain.Group](t, w)
	if g.AdminID != "u1" {
		t.Errorf("expected admin u1, got %s", g.AdminID)
	}
	if len(g.Members) != 2 {
		t.Errorf("expected creator auto-added, members: %v", g.Members)
	}
}

func TestAddMemberAdminOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addUser(t, "u1", "alice", "x")
	f.addUser(t, "u2", "bob", "x")
	f.addUser(t, "u3", "carol", "x")
	f.store.CreateGroup(domain.Group{ID: "g1", Name: "team", AdminID: "u1", Members: []string{"u1", "u2"}})

	w := f.request(t, http.MethodPost, "/api/groups/g1/members", "u2", map[string]string{"userId": "u3"})
	if w.Code != http.StatusForbidden {
		t.Errorf("non-admin add: expected 403, got %d", w.Code)
	}

	w = f.request(t, http.MethodPost, "/api/groups/g1/members", "u1", map[string]string{"userId": "u3"})
	if w.Code != http.StatusOK {
		t.Errorf("admin add: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = f.request(t, http.MethodPost, "/api/groups/g1/members", "u1", map[string]string{"userId": "u3"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("duplicate add: expected 400, got %d", w.Code)
	}
}

func TestSendDirectMessageDelivers(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addUser(t, "u1", "alice", "x")
	f.addUser(t, "u2", "bob", "x")

	bobConn := testutil.NewMockConn("bob-conn")
	f.hub.OnConnectionOpen("u2", bobConn)

	w := f.request(t, http.MethodPost, "/api/messages", "u1", map[string]string{
		"recipientId": "u2",
		"text":        "hello bob",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[struct {
		Message   domain.Message `json:"message"`
		Delivered int            `json:"delivered"`
	}](t, w)
	if resp.Delivered != 1 {
		t.Errorf("expected delivered 1, got %d", resp.Delivered)
	}
	if resp.Message.ID == "" {
		t.Error("expected a generated message id")
	}

	if len(f.store.Messages()) != 1 {
		t.Error("message should be persisted")
	}

	var env domain.Envelope
	if err := json.Unmarshal(bobConn.LastFrame(), &env); err != nil {
		t.Fatalf("unmarshal delivered frame: %v", err)
	}
	if env.Event != domain.EventDirectMessage {
		t.Errorf("expected directMessage event, got %s", env.Event)
	}
}

func TestSendDirectMessageOfflineRecipient(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addUser(t, "u1", "alice", "x")

	w := f.request(t, http.MethodPost, "/api/messages", "u1", map[string]string{
		"recipientId": "nobody",
		"text":        "into the void",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 even when offline, got %d", w.Code)
	}
	resp := decodeBody[map[string]any](t, w)
	if resp["delivered"].(float64) != 0 {
		t.Errorf("expected delivered 0, got %v", resp["delivered"])
	}
	if len(f.store.Messages()) != 1 {
		t.Error("message should still be persisted for later retrieval")
	}
}

func TestSendGroupMessageRequiresMembership(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addUser(t, "u1", "alice", "x")
	f.store.CreateGroup(domain.Group{ID: "g1", Name: "team", AdminID: "u9", Members: []string{"u9"}})

	w := f.request(t, http.MethodPost, "/api/messages", "u1", map[string]string{
		"groupId": "g1",
		"text":    "let me in",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
	if len(f.store.Messages()) != 0 {
		t.Error("rejected message must not be persisted")
	}
}

func TestSendMessageValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addUser(t, "u1", "alice", "x")

	// Both targets set.
	w := f.request(t, http.MethodPost, "/api/messages", "u1", map[string]string{
		"recipientId": "u2",
		"groupId":     "g1",
		"text":        "hi",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("both targets: expected 400, got %d", w.Code)
	}

	// No content.
	w = f.request(t, http.MethodPost, "/api/messages", "u1", map[string]string{
		"recipientId": "u2",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty message: expected 400, got %d", w.Code)
	}
}

func TestGroupHistoryMembersOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addUser(t, "u1", "alice", "x")
	f.addUser(t, "u2", "bob", "x")
	f.store.CreateGroup(domain.Group{ID: "g1", Name: "team", AdminID: "u1", Members: []string{"u1"}})
	f.store.SaveMessage(domain.Message{ID: "m1", SenderID: "u1", GroupID: "g1", Text: "hi"})

	w := f.request(t, http.MethodGet, "/api/groups/g1/messages", "u2", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("outsider: expected 403, got %d", w.Code)
	}

	w = f.request(t, http.MethodGet, "/api/groups/g1/messages", "u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("member: expected 200, got %d", w.Code)
	}
	msgs := decodeBody[[]domain.Message](t, w)
	if len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Errorf("expected [m1], got %+v", msgs)
	}
}

func TestDirectHistory(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addUser(t, "u1", "alice", "x")
	f.addUser(t, "u2", "bob", "x")
	f.store.SaveMessage(domain.Message{ID: "m1", SenderID: "u1", RecipientID: "u2", Text: "hi"})
	f.store.SaveMessage(domain.Message{ID: "m2", SenderID: "u2", RecipientID: "u1", Text: "hey"})
	f.store.SaveMessage(domain.Message{ID: "m3", SenderID: "u1", RecipientID: "u3", Text: "other"})

	w := f.request(t, http.MethodGet, "/api/messages/u2", "u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	msgs := decodeBody[[]domain.Message](t, w)
	if len(msgs) != 2 {
		t.Errorf("expected 2 messages, got %d", len(msgs))
	}
}
