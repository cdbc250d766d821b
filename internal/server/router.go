package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/quillworks/quill/backend/internal/auth"
	"github.com/quillworks/quill/backend/internal/categories"
	"github.com/quillworks/quill/backend/internal/metrics"
	"github.com/quillworks/quill/backend/internal/notes"
	"github.com/quillworks/quill/backend/internal/ratelimit"
	"github.com/quillworks/quill/backend/internal/users"
	"go.uber.org/zap"
)

const (
	userIDContextKey   = "quill_user_id"
	usernameContextKey = "quill_username"

	authRateWindow = time.Minute
)

var (
	errMissingTokenManager      = errors.New("token manager dependency required")
	errMissingUsersService      = errors.New("users service dependency required")
	errMissingNotesService      = errors.New("notes service dependency required")
	errMissingCategoriesService = errors.New("categories service dependency required")
	errInvalidAuthorization     = errors.New("authorization header missing or invalid")
)

// TokenManager issues and validates bearer tokens.
type TokenManager interface {
	IssueToken(ctx context.Context, subject string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies collects everything the HTTP surface needs. All services are
// constructed once at process start and injected here.
type Dependencies struct {
	Users         *users.Service
	Categories    *categories.Service
	Notes         *notes.Service
	Tokens        TokenManager
	Limiter       *ratelimit.Limiter
	Metrics       *metrics.Metrics
	CORSOrigins   []string
	AuthRateLimit int
	Logger        *zap.Logger
}

// NewHTTPHandler assembles the gin router serving the full API surface.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Tokens == nil {
		return nil, errMissingTokenManager
	}
	if deps.Users == nil {
		return nil, errMissingUsersService
	}
	if deps.Notes == nil {
		return nil, errMissingNotesService
	}
	if deps.Categories == nil {
		return nil, errMissingCategoriesService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}
	router.Use(corsMiddleware(deps.CORSOrigins))

	handler := &httpHandler{
		users:      deps.Users,
		categories: deps.Categories,
		notes:      deps.Notes,
		tokens:     deps.Tokens,
		logger:     logger,
	}

	registerRoute := gin.HandlerFunc(handler.handleRegister)
	loginRoute := gin.HandlerFunc(handler.handleLogin)
	if deps.Limiter != nil && deps.AuthRateLimit > 0 {
		router.POST("/auth/register", deps.Limiter.Middleware("auth_register", deps.AuthRateLimit, authRateWindow), registerRoute)
		router.POST("/auth/login", deps.Limiter.Middleware("auth_login", deps.AuthRateLimit, authRateWindow), loginRoute)
	} else {
		router.POST("/auth/register", registerRoute)
		router.POST("/auth/login", loginRoute)
	}

	router.GET("/", handler.handleRoot)
	router.GET("/health", handler.handleHealth)
	if deps.Metrics != nil {
		router.GET("/metrics", deps.Metrics.Handler())
	}

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/users/me", handler.handleCurrentUser)

	protected.GET("/categories", handler.handleListCategories)
	protected.POST("/categories", handler.handleCreateCategory)
	protected.GET("/categories/:id", handler.handleGetCategory)
	protected.PUT("/categories/:id", handler.handleUpdateCategory)
	protected.DELETE("/categories/:id", handler.handleDeleteCategory)

	protected.GET("/notes", handler.handleListNotes)
	protected.POST("/notes", handler.handleCreateNote)
	protected.GET("/notes/search", handler.handleSearchNotes)
	protected.GET("/notes/:id", handler.handleGetNote)
	protected.PUT("/notes/:id", handler.handleUpdateNote)
	protected.DELETE("/notes/:id", handler.handleDeleteNote)

	protected.POST("/notes/:id/shares", handler.handleCreateShare)
	protected.GET("/notes/:id/shares", handler.handleListShares)
	protected.DELETE("/notes/:id/shares/:shareID", handler.handleDeleteShare)

	return router, nil
}

type httpHandler struct {
	users      *users.Service
	categories *categories.Service
	notes      *notes.Service
	tokens     TokenManager
	logger     *zap.Logger
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// authorizeRequest resolves the bearer token to an account and stores the
// caller identity on the request context.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}

	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.users.GetByUsername(c.Request.Context(), subject)
	if err != nil {
		// Token subject no longer resolves to an account.
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.Set(userIDContextKey, user.ID)
	c.Set(usernameContextKey, user.Username)
	c.Next()
}

func (h *httpHandler) currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(userIDContextKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userID, true
}

// respondError maps domain errors onto the HTTP taxonomy. Infrastructure
// failures surface as a generic 500 carrying the service error code; the
// original error is only logged server-side.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, notes.ErrNotFound), errors.Is(err, categories.ErrNotFound), errors.Is(err, users.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, notes.ErrShareNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "share_not_found"})
	case errors.Is(err, users.ErrDuplicateUsername):
		c.JSON(http.StatusBadRequest, gin.H{"error": "duplicate_username"})
	case errors.Is(err, users.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "duplicate_email"})
	case errors.Is(err, users.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
	case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_password"})
	case errors.Is(err, notes.ErrInvalidPermission):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_permission"})
	case errors.Is(err, notes.ErrInvalidInput), errors.Is(err, categories.ErrInvalidInput), errors.Is(err, users.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
	default:
		h.logger.Error("request failed", zap.Error(err))
		var serviceErr *notes.ServiceError
		if errors.As(err, &serviceErr) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "code": serviceErr.Code()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
