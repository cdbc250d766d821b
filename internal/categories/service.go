package categories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/quillworks/quill/backend/internal/identifier"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound covers both missing categories and categories owned by
	// another user, so handlers cannot leak existence.
	ErrNotFound = errors.New("categories: not found")
	// ErrInvalidInput indicates a missing or malformed field.
	ErrInvalidInput = errors.New("categories: invalid input")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
)

const (
	fallbackPageLimit = 100
	fallbackMaxLimit  = 1000
)

// ServiceConfig describes the dependencies for category management.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider identifier.Provider
	Clock      func() time.Time
	Logger     *zap.Logger
	PageLimit  int
	MaxLimit   int
}

// Service provides owner-scoped category CRUD.
type Service struct {
	db         *gorm.DB
	idProvider identifier.Provider
	clock      func() time.Time
	logger     *zap.Logger
	pageLimit  int
	maxLimit   int
}

// NewService constructs the category service.
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
	pageLimit := cfg.PageLimit
	if pageLimit <= 0 {
		pageLimit = fallbackPageLimit
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < pageLimit {
		maxLimit = fallbackMaxLimit
	}
	return &Service{
		db:         cfg.Database,
		idProvider: cfg.IDProvider,
		clock:      clock,
		logger:     logger,
		pageLimit:  pageLimit,
		maxLimit:   maxLimit,
	}, nil
}

// owned is the single ownership predicate: it resolves a category only when
// the caller owns it, reading foreign rows as not found.
func (s *Service) owned(ctx context.Context, userID, categoryID string) (*Category, error) {
	var category Category
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", categoryID, userID).
		Take(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.Error("category lookup failed", zap.String("category_id", categoryID), zap.Error(err))
		return nil, err
	}
	return &category, nil
}

func (s *Service) clampPage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = s.pageLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return skip, limit
}

// List returns the caller's categories ordered by id.
func (s *Service) List(ctx context.Context, userID string, skip, limit int) ([]Category, error) {
	skip, limit = s.clampPage(skip, limit)
	var result []Category
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Offset(skip).
		Limit(limit).
		Find(&result).Error
	if err != nil {
		s.logger.Error("category list failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return result, nil
}

// Get returns one of the caller's categories by id.
func (s *Service) Get(ctx context.Context, userID, categoryID string) (*Category, error) {
	return s.owned(ctx, userID, categoryID)
}

// CreateRequest carries the fields for a new category.
type CreateRequest struct {
	Name        string
	Description string
}

// Create stores a new category owned by the caller.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidInput
	}

	categoryID, err := s.idProvider.NewID()
	if err != nil {
		return nil, err
	}

	category := Category{
		ID:          categoryID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		UserID:      userID,
		CreatedAt:   s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		s.logger.Error("category insert failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return &category, nil
}

// UpdateRequest carries partial-update fields; nil fields keep their stored value.
type UpdateRequest struct {
	Name        *string
	Description *string
}

// Update applies the provided fields to one of the caller's categories.
func (s *Service) Update(ctx context.Context, userID, categoryID string, req UpdateRequest) (*Category, error) {
	category, err := s.owned(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrInvalidInput
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if len(updates) == 0 {
		return category, nil
	}

	if err := s.db.WithContext(ctx).Model(category).Updates(updates).Error; err != nil {
		s.logger.Error("category update failed", zap.String("category_id", categoryID), zap.Error(err))
		return nil, err
	}
	return s.owned(ctx, userID, categoryID)
}

// Delete removes one of the caller's categories.
func (s *Service) Delete(ctx context.Context, userID, categoryID string) error {
	category, err := s.owned(ctx, userID, categoryID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(category).Error; err != nil {
		s.logger.Error("category delete failed", zap.String("category_id", categoryID), zap.Error(err))
		return err
	}
	return nil
}
