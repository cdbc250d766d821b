package server

import (
	"bytes"
	contextpkg "context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/quillworks/quill/backend/internal/auth"
	"github.com/quillworks/quill/backend/internal/categories"
	"github.com/quillworks/quill/backend/internal/database"
	"github.com/quillworks/quill/backend/internal/identifier"
	"github.com/quillworks/quill/backend/internal/notes"
	"github.com/quillworks/quill/backend/internal/users"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuthorizeRequestRejectsMissingBearerHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/notes", http.NoBody)

	handler := &httpHandler{
		tokens: stubTokenManager{},
		logger: zap.NewNop(),
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
}

func TestAuthorizeRequestLogsExpiredTokenAtInfoLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/notes", http.NoBody)
	request.Header.Set("Authorization", "Bearer expired-token")
	ctx.Request = request

	core, logs := observer.New(zapcore.DebugLevel)
	handler := &httpHandler{
		tokens: stubTokenManager{validateErr: jwt.ErrTokenExpired},
		logger: zap.New(core),
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("expected info level for expired token, got %s", entries[0].Level)
	}
	if entries[0].Message != "token validation failed" {
		t.Fatalf("unexpected log message: %q", entries[0].Message)
	}
}

func TestAuthorizeRequestLogsUnexpectedTokenErrorAtWarnLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/notes", http.NoBody)
	request.Header.Set("Authorization", "Bearer invalid-token")
	ctx.Request = request

	core, logs := observer.New(zapcore.DebugLevel)
	handler := &httpHandler{
		tokens: stubTokenManager{validateErr: errors.New("signature mismatch")},
		logger: zap.New(core),
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level for unexpected error, got %s", entries[0].Level)
	}
}

func TestRegisterLoginAndCurrentUserFlow(t *testing.T) {
	harness := newRouterHarness(t)

	registered := harness.mustRegister(t, "alice", "alice@example.com", "correct horse battery")
	if registered.ID == "" {
		t.Fatalf("expected registered user to carry an id")
	}
	if registered.Username != "alice" {
		t.Fatalf("unexpected username: %q", registered.Username)
	}

	token := harness.mustLogin(t, "alice", "correct horse battery")

	recorder := harness.do(t, http.MethodGet, "/users/me", "", token)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}
	var me userPayload
	if err := json.Unmarshal(recorder.Body.Bytes(), &me); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if me.ID != registered.ID {
		t.Fatalf("expected current user %q, got %q", registered.ID, me.ID)
	}
	if !me.IsActive {
		t.Fatalf("expected registered account to be active")
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	harness := newRouterHarness(t)
	harness.mustRegister(t, "alice", "alice@example.com", "correct horse battery")

	recorder := harness.do(t, http.MethodPost, "/auth/register",
		`{"username":"alice","email":"other@example.com","password":"correct horse battery"}`, "")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
	expected := `{"error":"duplicate_username"}`
	if recorder.Body.String() != expected {
		t.Fatalf("unexpected response body: %s", recorder.Body.String())
	}
}

func TestRegisterRejectsOversizePassword(t *testing.T) {
	harness := newRouterHarness(t)

	oversize := strings.Repeat("a", 73)
	recorder := harness.do(t, http.MethodPost, "/auth/register",
		fmt.Sprintf(`{"username":"alice","email":"alice@example.com","password":"%s"}`, oversize), "")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
	expected := `{"error":"invalid_password"}`
	if recorder.Body.String() != expected {
		t.Fatalf("unexpected response body: %s", recorder.Body.String())
	}
}

func TestLoginFailsUniformlyForUnknownUserAndBadPassword(t *testing.T) {
	harness := newRouterHarness(t)
	harness.mustRegister(t, "alice", "alice@example.com", "correct horse battery")

	badPassword := harness.do(t, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"wrong"}`, "")
	unknownUser := harness.do(t, http.MethodPost, "/auth/login",
		`{"username":"mallory","password":"wrong"}`, "")

	if badPassword.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d for bad password, got %d", http.StatusUnauthorized, badPassword.Code)
	}
	if unknownUser.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d for unknown user, got %d", http.StatusUnauthorized, unknownUser.Code)
	}
	if badPassword.Body.String() != unknownUser.Body.String() {
		t.Fatalf("expected identical failure bodies, got %s vs %s",
			badPassword.Body.String(), unknownUser.Body.String())
	}
}

func TestAuthorizeRequestRejectsTokenForVanishedUser(t *testing.T) {
	harness := newRouterHarness(t)

	token, _, err := harness.issuer.IssueToken(contextpkg.Background(), "ghost")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	recorder := harness.do(t, http.MethodGet, "/users/me", "", token)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, recorder.Code)
	}
}

type stubTokenManager struct {
	subject     string
	validateErr error
}

func (s stubTokenManager) IssueToken(contextpkg.Context, string) (string, int64, error) {
	return "", 0, errors.New("not implemented")
}

func (s stubTokenManager) ValidateToken(string) (string, error) {
	return s.subject, s.validateErr
}

type routerHarness struct {
	handler http.Handler
	issuer  *auth.TokenIssuer
	deps    Dependencies
}

func newRouterHarness(t *testing.T) *routerHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.OpenSQLite(dsn, database.OpenOptions{}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	idProvider := identifier.NewUUIDProvider()

	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
	})
	if err != nil {
		t.Fatalf("failed to build users service: %v", err)
	}
	categoriesService, err := categories.NewService(categories.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
	})
	if err != nil {
		t.Fatalf("failed to build categories service: %v", err)
	}
	notesService, err := notes.NewService(notes.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		PageLimit:  100,
		MaxLimit:   1000,
	})
	if err != nil {
		t.Fatalf("failed to build notes service: %v", err)
	}

	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("router-test-secret"),
		Issuer:        "quill-auth",
		Audience:      "quill-api",
		TokenTTL:      time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to build token issuer: %v", err)
	}

	deps := Dependencies{
		Users:      usersService,
		Categories: categoriesService,
		Notes:      notesService,
		Tokens:     issuer,
		Logger:     zap.NewNop(),
	}
	handler, err := NewHTTPHandler(deps)
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}

	return &routerHarness{handler: handler, issuer: issuer, deps: deps}
}

func (h *routerHarness) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	request := httptest.NewRequest(method, path, reader)
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	h.handler.ServeHTTP(recorder, request)
	return recorder
}

func (h *routerHarness) mustRegister(t *testing.T, username, email, password string) userPayload {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"email":%q,"password":%q}`, username, email, password)
	recorder := h.do(t, http.MethodPost, "/auth/register", body, "")
	if recorder.Code != http.StatusCreated {
		t.Fatalf("register failed with status %d: %s", recorder.Code, recorder.Body.String())
	}
	var payload userPayload
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode register response: %v", err)
	}
	return payload
}

func (h *routerHarness) mustLogin(t *testing.T, username, password string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)
	recorder := h.do(t, http.MethodPost, "/auth/login", body, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", recorder.Code, recorder.Body.String())
	}
	var payload tokenResponsePayload
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if payload.TokenType != "bearer" {
		t.Fatalf("unexpected token type: %q", payload.TokenType)
	}
	return payload.AccessToken
}
