package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/synkr/synkr/internal/auth"
	"github.com/synkr/synkr/internal/domain"
	"github.com/synkr/synkr/internal/hub"
	"github.com/synkr/synkr/internal/store"
)

// API exposes the REST surface: auth, users, groups, and message history.
// Message sends are persisted first, then handed to the hub for real-time
// delivery.
type API struct {
	store        store.Store
	hub          *hub.Hub
	resolver     *auth.Resolver
	historyLimit int
	log          *zap.Logger
}

// NewAPI creates the REST handler set.
func NewAPI(st store.Store, h *hub.Hub, resolver *auth.Resolver, historyLimit int, log *zap.Logger) *API {
	return &API{
		store:        st,
		hub:          h,
		resolver:     resolver,
		historyLimit: historyLimit,
		log:          log,
	}
}

// Routes registers all API endpoints on a mux.
func (a *API) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/signup", a.Signup)
	mux.HandleFunc("/api/auth/login", a.Login)
	mux.HandleFunc("/api/auth/me", a.Me)
	mux.HandleFunc("/api/users", a.Users)
	mux.HandleFunc("/api/groups", a.Groups)
	mux.HandleFunc("/api/groups/", a.GroupSubresource)
	mux.HandleFunc("/api/messages", a.SendMessage)
	mux.HandleFunc("/api/messages/", a.DirectHistory)
}

// Health returns a simple health check handler.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Signup creates an account and starts a session.
func (a *API) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Username string `json:"username"`
		FullName string `json:"fullName"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}
	if _, err := a.store.UserByUsername(req.Username); err == nil {
		writeError(w, http.StatusConflict, "username taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	u := domain.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		FullName:     req.FullName,
		PasswordHash: string(hash),
	}
	if err := a.store.CreateUser(u); err != nil {
		a.log.Error("create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	a.startSession(w, u, http.StatusCreated)
}

// Login validates credentials and starts a session.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := a.store.UserByUsername(req.Username)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	a.startSession(w, u, http.StatusOK)
}

func (a *API) startSession(w http.ResponseWriter, u domain.User, status int) {
	token, err := a.resolver.Issue(u.ID)
	if err != nil {
		a.log.Error("issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, status, map[string]any{"user": u, "token": token})
}

// Me returns the authenticated caller's account.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.identify(w, r)
	if !ok {
		return
	}
	u, err := a.store.UserByID(userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Users lists every user except the caller.
func (a *API) Users(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.identify(w, r)
	if !ok {
		return
	}
	users, err := a.store.Users(userID)
	if err != nil {
		a.log.Error("list users", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// Groups lists the caller's groups (GET) or creates one (POST).
func (a *API) Groups(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.identify(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		groups, err := a.store.GroupsFor(userID)
		if err != nil {
			a.log.Error("list groups", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if groups == nil {
			groups = []domain.Group{}
		}
		writeJSON(w, http.StatusOK, groups)

	case http.MethodPost:
		var req struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Members     []string `json:"members"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			writeError(w, http.StatusBadRequest, "group name required")
			return
		}
		members := req.Members
		if !slices.Contains(members, userID) {
			members = append(members, userID)
		}
		g := domain.Group{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Description: req.Description,
			AdminID:     userID,
			Members:     members,
		}
		if err := a.store.CreateGroup(g); err != nil {
			a.log.Error("create group", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusCreated, g)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// GroupSubresource dispatches /api/groups/{id}/members and
// /api/groups/{id}/messages.
func (a *API) GroupSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/groups/")
	groupID, sub, _ := strings.Cut(rest, "/")
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "group id required")
		return
	}

	switch sub {
	case "members":
		a.addMember(w, r, groupID)
	case "messages":
		a.groupHistory(w, r, groupID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (a *API) addMember(w http.ResponseWriter, r *http.Request, groupID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := a.identify(w, r)
	if !ok {
		return
	}

	g, err := a.store.GroupByID(groupID)
	if err != nil {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	if g.AdminID != userID {
		writeError(w, http.StatusForbidden, "only admin can add members")
		return
	}

	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	if _, err := a.store.UserByID(req.UserID); err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err := a.store.AddMember(groupID, req.UserID); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "user is already a member")
			return
		}
		a.log.Error("add member", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g, err = a.store.GroupByID(groupID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (a *API) groupHistory(w http.ResponseWriter, r *http.Request, groupID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := a.identify(w, r)
	if !ok {
		return
	}

	if _, err := a.store.GroupByID(groupID); err != nil {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	member, err := a.store.IsMember(groupID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !member {
		writeError(w, http.StatusForbidden, "not a member of this group")
		return
	}

	msgs, err := a.store.GroupHistory(groupID, a.historyLimit)
	if err != nil {
		a.log.Error("group history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// SendMessage persists a direct or group message, then routes it to live
// connections. The response reports how many handles it reached; zero means
// every target was offline, which is not an error.
func (a *API) SendMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := a.identify(w, r)
	if !ok {
		return
	}

	var req struct {
		RecipientID string `json:"recipientId"`
		GroupID     string `json:"groupId"`
		Text        string `json:"text"`
		ImageURL    string `json:"imageUrl"`
		VideoURL    string `json:"videoUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if (req.RecipientID == "") == (req.GroupID == "") {
		writeError(w, http.StatusBadRequest, "exactly one of recipientId and groupId required")
		return
	}
	if req.Text == "" && req.ImageURL == "" && req.VideoURL == "" {
		writeError(w, http.StatusBadRequest, "message content required")
		return
	}

	if req.GroupID != "" {
		if _, err := a.store.GroupByID(req.GroupID); err != nil {
			writeError(w, http.StatusNotFound, "group not found")
			return
		}
		member, err := a.store.IsMember(req.GroupID, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if !member {
			writeError(w, http.StatusForbidden, "not a member of this group")
			return
		}
	}

	msg := domain.Message{
		ID:          uuid.NewString(),
		SenderID:    userID,
		RecipientID: req.RecipientID,
		GroupID:     req.GroupID,
		Text:        req.Text,
		ImageURL:    req.ImageURL,
		VideoURL:    req.VideoURL,
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.store.SaveMessage(msg); err != nil {
		a.log.Error("save message", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	payload, err := domain.Encode(msg)
	if err != nil {
		a.log.Error("encode message payload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	delivered := a.hub.Deliver(domain.OutboundMessage{
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		GroupID:     msg.GroupID,
		Payload:     payload,
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":   msg,
		"delivered": delivered,
	})
}

// DirectHistory returns the two-party conversation between the caller and
// /api/messages/{userID}.
func (a *API) DirectHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := a.identify(w, r)
	if !ok {
		return
	}

	otherID := strings.TrimPrefix(r.URL.Path, "/api/messages/")
	if otherID == "" || strings.Contains(otherID, "/") {
		writeError(w, http.StatusBadRequest, "user id required")
		return
	}

	msgs, err := a.store.DirectHistory(userID, otherID, a.historyLimit)
	if err != nil {
		a.log.Error("direct history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (a *API) identify(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := a.resolver.ResolveIdentity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
