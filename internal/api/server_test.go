package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eyamastour/backend-BrightMind/internal/audit"
	"github.com/eyamastour/backend-BrightMind/internal/auth"
	"github.com/eyamastour/backend-BrightMind/internal/device"
	"github.com/eyamastour/backend-BrightMind/internal/infrastructure/config"
	"github.com/eyamastour/backend-BrightMind/internal/infrastructure/database"
	"github.com/eyamastour/backend-BrightMind/internal/infrastructure/logging"
	"github.com/eyamastour/backend-BrightMind/internal/installation"
	_ "github.com/eyamastour/backend-BrightMind/migrations"
)

// testEnv bundles a fully wired server with direct repository access for
// seeding test data.
type testEnv struct {
	srv           *Server
	router        http.Handler
	users         auth.UserRepository
	access        auth.AccessRepository
	installations installation.Repository
	rooms         installation.RoomRepository
	devices       device.Repository
	history       device.HistoryRepository
	svc           *device.Service
	audit         audit.Repository
}

// newTestEnv creates a server backed by a migrated temp SQLite database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}

	log := logging.New(config.Logging{Level: "error", Format: "text", Output: "stdout"}, "test")

	users := auth.NewUserRepository(db.DB)
	access := auth.NewAccessRepository(db.DB)
	installations := installation.NewRepository(db.DB)
	rooms := installation.NewRoomRepository(db.DB)
	devices := device.NewRepository(db.DB)
	history := device.NewHistoryRepository(db.DB)
	svc := device.NewService(devices, history, nil, nil, log)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	srv, err := New(Deps{
		Config: config.API{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.Timeouts{Read: 5, Write: 5, Idle: 5},
		},
		WS: config.WebSocket{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security: config.Security{
			JWT: config.JWT{
				Secret:         "test-secret-key-at-least-32-characters-long",
				AccessTokenTTL: 15,
			},
			TokenTTLHours: 24,
		},
		Logger:        log,
		Users:         users,
		Access:        access,
		Installations: installations,
		Rooms:         rooms,
		Devices:       devices,
		History:       history,
		DeviceService: svc,
		Audit:         auditRepo,
		Version:       "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	srv.hub = NewHub(srv.wsCfg, log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.hub.Run(ctx)
	go srv.drainAuditLog(ctx)

	return &testEnv{
		srv:           srv,
		router:        srv.buildRouter(),
		users:         users,
		access:        access,
		installations: installations,
		rooms:         rooms,
		devices:       devices,
		history:       history,
		svc:           svc,
		audit:         auditRepo,
	}
}

// seedUser creates a verified account directly in the database.
func (e *testEnv) seedUser(t *testing.T, username string, role auth.Role) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword("test-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user := &auth.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         role,
		Verified:     true,
	}
	if err := e.users.Create(context.Background(), user); err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}
	return user
}

// tokenFor returns a signed access token for the given account.
func (e *testEnv) tokenFor(t *testing.T, user *auth.User) string {
	t.Helper()

	token, err := auth.GenerateAccessToken(user, e.srv.secCfg.JWT.Secret, e.srv.secCfg.JWT.AccessTokenTTL)
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}
	return token
}

// seedInstallation creates an installation owned by the given user.
func (e *testEnv) seedInstallation(t *testing.T, name, ownerID string) *installation.Installation {
	t.Helper()

	ins := &installation.Installation{Name: name, UserID: ownerID}
	if err := e.installations.Create(context.Background(), ins); err != nil {
		t.Fatalf("creating installation %s: %v", name, err)
	}
	return ins
}

// do executes a request against the router. token may be empty; body may be
// an empty string for bodyless requests.
func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// decode unmarshals a response body into v.
func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal response %q: %v", w.Body.String(), err)
	}
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	decode(t, w, &resp)

	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

func TestAuth_MissingToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/installations", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/installations", "not-a-jwt", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuth_BlockedAccountRejected(t *testing.T) {
	env := newTestEnv(t)

	user := env.seedUser(t, "blocked-user", auth.RoleUser)
	token := env.tokenFor(t, user)

	// Token works before blocking
	w := env.do(t, http.MethodGet, "/api/v1/auth/me", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("pre-block status = %d, want %d", w.Code, http.StatusOK)
	}

	if err := env.users.SetBlocked(context.Background(), user.ID, true); err != nil {
		t.Fatalf("SetBlocked: %v", err)
	}

	// The same still-valid token must now be rejected
	w = env.do(t, http.MethodGet, "/api/v1/auth/me", token, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("post-block status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestAuth_DeletedAccountRejected(t *testing.T) {
	env := newTestEnv(t)

	user := env.seedUser(t, "ghost", auth.RoleUser)
	token := env.tokenFor(t, user)

	if err := env.users.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	w := env.do(t, http.MethodGet, "/api/v1/auth/me", token, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestNotFoundRoute(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/nonexistent", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── WebSocket Ticket Tests ────────────────────────────────────────

func TestWSTicket_SingleUse(t *testing.T) {
	env := newTestEnv(t)

	user := env.seedUser(t, "ws-user", auth.RoleUser)
	token := env.tokenFor(t, user)

	w := env.do(t, http.MethodPost, "/api/v1/auth/ws-ticket", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp map[string]any
	decode(t, w, &resp)

	ticket, ok := resp["ticket"].(string)
	if !ok || ticket == "" {
		t.Fatal("expected ticket to be a non-empty string")
	}

	entry, ok := validateTicket(ticket)
	if !ok {
		t.Fatal("ticket should be valid on first use")
	}
	if entry.userID != user.ID {
		t.Errorf("ticket userID = %q, want %q", entry.userID, user.ID)
	}
	if entry.admin {
		t.Error("user ticket should not carry admin")
	}

	if _, ok := validateTicket(ticket); ok {
		t.Error("ticket should not be valid on second use")
	}
}

func TestWSTicket_CarriesAccessSnapshot(t *testing.T) {
	env := newTestEnv(t)

	owner := env.seedUser(t, "ticket-owner", auth.RoleUser)
	ins := env.seedInstallation(t, "Ticket Site", owner.ID)
	token := env.tokenFor(t, owner)

	w := env.do(t, http.MethodPost, "/api/v1/auth/ws-ticket", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	decode(t, w, &resp)

	entry, ok := validateTicket(resp["ticket"].(string))
	if !ok {
		t.Fatal("ticket should be valid")
	}
	found := false
	for _, id := range entry.accessible {
		if id == ins.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("ticket accessible = %v, want to contain %s", entry.accessible, ins.ID)
	}
}

func TestWSTicket_Expiry(t *testing.T) {
	ticket := generateTicket()
	wsTickets.mu.Lock()
	wsTickets.tickets[ticket] = ticketEntry{
		expiresAt: time.Now().Add(-1 * time.Second),
	}
	wsTickets.mu.Unlock()

	if _, ok := validateTicket(ticket); ok {
		t.Error("expired ticket should not be valid")
	}
}

func TestWebSocketRoute_NoBearerRequired(t *testing.T) {
	env := newTestEnv(t)

	// Browser WebSocket clients cannot set an Authorization header; the
	// route must let the handler judge the ticket instead of the auth
	// middleware rejecting the request first.
	w := env.do(t, http.MethodGet, "/api/v1/ws", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	var resp struct {
		Message string `json:"message"`
	}
	decode(t, w, &resp)
	if !strings.Contains(resp.Message, "ticket") {
		t.Errorf("message = %q, want the ticket requirement, not a bearer-token error", resp.Message)
	}

	w = env.do(t, http.MethodGet, "/api/v1/ws?ticket=bogus", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bogus ticket status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// ─── WebSocket Hub Tests ───────────────────────────────────────────

func testHub(t *testing.T) *Hub {
	t.Helper()

	log := logging.New(config.Logging{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocket{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHub_BroadcastToSubscribedAdmin(t *testing.T) {
	hub := testHub(t)

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{ChannelDeviceUpdated: {}},
		admin:         true,
	}
	hub.Register(client)

	hub.BroadcastDevice("ins-11111111", map[string]any{"id": "dev-1"})

	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.EventType != ChannelDeviceUpdated {
			t.Errorf("event_type = %q, want %q", wsMsg.EventType, ChannelDeviceUpdated)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for broadcast message")
	}
}

func TestHub_BroadcastFiltersByAccess(t *testing.T) {
	hub := testHub(t)

	granted := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{ChannelDeviceUpdated: {}},
		accessible:    map[string]struct{}{"ins-aaaaaaaa": {}},
	}
	outsider := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{ChannelDeviceUpdated: {}},
		accessible:    map[string]struct{}{"ins-bbbbbbbb": {}},
	}
	hub.Register(granted)
	hub.Register(outsider)

	hub.BroadcastDevice("ins-aaaaaaaa", map[string]any{"id": "dev-1"})

	select {
	case <-granted.send:
	case <-time.After(time.Second):
		t.Error("granted client should receive the broadcast")
	}

	select {
	case <-outsider.send:
		t.Error("client without access should not receive the broadcast")
	case <-time.After(100 * time.Millisecond):
		// OK
	}
}

func TestHub_UnplacedDeviceOnlyReachesAdmins(t *testing.T) {
	hub := testHub(t)

	admin := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{ChannelDeviceUpdated: {}},
		admin:         true,
	}
	user := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{ChannelDeviceUpdated: {}},
		accessible:    map[string]struct{}{"ins-aaaaaaaa": {}},
	}
	hub.Register(admin)
	hub.Register(user)

	hub.BroadcastDevice("", map[string]any{"id": "dev-unplaced"})

	select {
	case <-admin.send:
	case <-time.After(time.Second):
		t.Error("admin should receive updates for unplaced devices")
	}

	select {
	case <-user.send:
		t.Error("user should not receive updates for unplaced devices")
	case <-time.After(100 * time.Millisecond):
		// OK
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	hub := testHub(t)

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
		admin:         true,
	}
	hub.Register(client)

	hub.BroadcastDevice("ins-11111111", map[string]any{"id": "dev-1"})

	select {
	case <-client.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
		// OK
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := testHub(t)

	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}
}
