package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/quillworks/quill/backend/internal/auth"
	"github.com/quillworks/quill/backend/internal/identifier"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrDuplicateUsername indicates the username is already registered.
	ErrDuplicateUsername = errors.New("users: username already registered")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("users: email already registered")
	// ErrInvalidCredentials covers unknown usernames and wrong passwords
	// alike so login failures do not reveal account existence.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	// ErrNotFound indicates no user matches the lookup.
	ErrNotFound = errors.New("users: not found")
	// ErrInvalidInput indicates a missing or malformed registration field.
	ErrInvalidInput = errors.New("users: invalid input")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
)

// ServiceConfig describes the dependencies for account management.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider identifier.Provider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service manages account registration, credential checks, and lookups.
type Service struct {
	db         *gorm.DB
	idProvider identifier.Provider
	clock      func() time.Time
	logger     *zap.Logger
}

// NewService constructs the user service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:         cfg.Database,
		idProvider: cfg.IDProvider,
		clock:      clock,
		logger:     logger,
	}, nil
}

// RegisterRequest carries the fields required to create an account.
type RegisterRequest struct {
	Username string
	Email    string
	Password string
}

// Register creates a new account, failing with the duplicate taxonomy when
// the username or email is already taken. The unique indexes remain the
// backstop for concurrent registrations.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if username == "" || email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidInput
	}

	var existing User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&existing).Error
	if err == nil {
		return nil, ErrDuplicateUsername
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("username lookup failed", zap.Error(err))
		return nil, err
	}

	err = s.db.WithContext(ctx).Where("email = ?", email).Take(&existing).Error
	if err == nil {
		return nil, ErrDuplicateEmail
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("email lookup failed", zap.Error(err))
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	userID, err := s.idProvider.NewID()
	if err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	user := User{
		ID:           userID,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		s.logger.Error("user insert failed", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", username))
	return &user, nil
}

// Authenticate verifies the submitted credentials and returns the account.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		s.logger.Error("login lookup failed", zap.Error(err))
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GetByUsername returns the account registered under the username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID returns the account with the given identifier.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
