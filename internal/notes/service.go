package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quillworks/quill/backend/internal/cache"
	"github.com/quillworks/quill/backend/internal/identifier"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound covers both missing notes and notes owned by another
	// user, so handlers cannot leak existence.
	ErrNotFound = errors.New("notes: not found")
	// ErrShareNotFound indicates the share grant does not exist on the note.
	ErrShareNotFound = errors.New("notes: share not found")
	// ErrInvalidInput indicates a missing or malformed field.
	ErrInvalidInput = errors.New("notes: invalid input")
	// ErrInvalidPermission indicates an unknown share permission level.
	ErrInvalidPermission = errors.New("notes: invalid share permission")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
)

const (
	fallbackPageLimit = 100
	fallbackMaxLimit  = 1000
)

const (
	opList        = "notes.list"
	opGet         = "notes.get"
	opCreate      = "notes.create"
	opUpdate      = "notes.update"
	opDelete      = "notes.delete"
	opSearch      = "notes.search"
	opCreateShare = "notes.create_share"
	opListShares  = "notes.list_shares"
	opDeleteShare = "notes.delete_share"
)

// ServiceError tags an infrastructure failure with a dotted
// operation.reason code that handlers surface on 500 responses.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the dotted operation.reason code.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// ServiceConfig describes the dependencies for note management.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider identifier.Provider
	Clock      func() time.Time
	Logger     *zap.Logger
	Cache      cache.Store
	CacheTTL   time.Duration
	PageLimit  int
	MaxLimit   int
}

// Service provides owner-scoped note CRUD, search, and share bookkeeping.
type Service struct {
	db         *gorm.DB
	idProvider identifier.Provider
	clock      func() time.Time
	logger     *zap.Logger
	cache      cache.Store
	cacheTTL   time.Duration
	pageLimit  int
	maxLimit   int
}

// NewService constructs the note service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError("notes.service.new", "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError("notes.service.new", "missing_id_provider", errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
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
		cache:      cfg.Cache,
		cacheTTL:   cacheTTL,
		pageLimit:  pageLimit,
		maxLimit:   maxLimit,
	}, nil
}

// owned is the single ownership predicate: it resolves a note only when the
// caller owns it, reading foreign rows as not found. Share grants are never
// consulted here.
func (s *Service) owned(ctx context.Context, userID, noteID string) (*Note, error) {
	var note Note
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", noteID, userID).
		Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logError(opGet, "lookup_failed", err, zap.String("note_id", noteID))
		return nil, newServiceError(opGet, "lookup_failed", err)
	}
	return &note, nil
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

// List returns the caller's notes ordered by id.
func (s *Service) List(ctx context.Context, userID string, skip, limit int) ([]Note, error) {
	skip, limit = s.clampPage(skip, limit)
	var result []Note
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Offset(skip).
		Limit(limit).
		Find(&result).Error
	if err != nil {
		s.logError(opList, "query_failed", err, zap.String("user_id", userID))
		return nil, newServiceError(opList, "query_failed", err)
	}
	return result, nil
}

// Get returns one of the caller's notes by id, serving repeat reads from
// the cache when one is configured.
func (s *Service) Get(ctx context.Context, userID, noteID string) (*Note, error) {
	key := noteCacheKey(userID, noteID)
	if s.cache != nil {
		if cached, found, err := s.cache.Get(ctx, key); err == nil && found {
			var note Note
			if err := json.Unmarshal([]byte(cached), &note); err == nil {
				return &note, nil
			}
		}
	}

	note, err := s.owned(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(note); err == nil {
			if err := s.cache.Set(ctx, key, string(encoded), s.cacheTTL); err != nil {
				s.logger.Debug("note cache set failed", zap.Error(err))
			}
		}
	}
	return note, nil
}

// CreateRequest carries the fields for a new note.
type CreateRequest struct {
	Title      string
	Content    string
	CategoryID *string
	IsPublic   bool
	Tags       []string
}

// Create stores a new note owned by the caller.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Note, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrInvalidInput
	}

	noteID, err := s.idProvider.NewID()
	if err != nil {
		return nil, newServiceError(opCreate, "id_generation_failed", err)
	}

	now := s.clock().UTC()
	note := Note{
		ID:         noteID,
		Title:      title,
		Content:    req.Content,
		UserID:     userID,
		CategoryID: req.CategoryID,
		IsPublic:   req.IsPublic,
		Tags:       NewTagSet(req.Tags),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("user_id", userID))
		return nil, newServiceError(opCreate, "insert_failed", err)
	}
	return &note, nil
}

// UpdateRequest carries partial-update fields; nil fields keep their stored
// value.
type UpdateRequest struct {
	Title      *string
	Content    *string
	CategoryID *string
	IsPublic   *bool
	Tags       []string
}

// Update applies the provided fields to one of the caller's notes.
func (s *Service) Update(ctx context.Context, userID, noteID string, req UpdateRequest) (*Note, error) {
	note, err := s.owned(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, ErrInvalidInput
		}
		updates["title"] = title
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.IsPublic != nil {
		updates["is_public"] = *req.IsPublic
	}
	if req.Tags != nil {
		updates["tags"] = NewTagSet(req.Tags)
	}
	if len(updates) == 0 {
		return note, nil
	}
	updates["updated_at"] = s.clock().UTC()

	if err := s.db.WithContext(ctx).Model(note).Updates(updates).Error; err != nil {
		s.logError(opUpdate, "update_failed", err, zap.String("note_id", noteID))
		return nil, newServiceError(opUpdate, "update_failed", err)
	}
	s.invalidate(ctx, userID, noteID)
	return s.owned(ctx, userID, noteID)
}

// Delete removes one of the caller's notes together with its share grants.
func (s *Service) Delete(ctx context.Context, userID, noteID string) error {
	note, err := s.owned(ctx, userID, noteID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("note_id = ?", note.ID).Delete(&NoteShare{}).Error; err != nil {
			return err
		}
		return tx.Delete(note).Error
	})
	if err != nil {
		s.logError(opDelete, "delete_failed", err, zap.String("note_id", noteID))
		return newServiceError(opDelete, "delete_failed", err)
	}
	s.invalidate(ctx, userID, noteID)
	return nil
}

// Search returns the caller's notes whose title or content contains the
// query as a case-sensitive substring, with the same pagination contract as
// List. sqlite's LIKE is case-insensitive for ASCII, hence instr.
func (s *Service) Search(ctx context.Context, userID, query string, skip, limit int) ([]Note, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidInput
	}
	skip, limit = s.clampPage(skip, limit)

	var result []Note
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND (instr(title, ?) > 0 OR instr(content, ?) > 0)", userID, query, query).
		Order("id").
		Offset(skip).
		Limit(limit).
		Find(&result).Error
	if err != nil {
		s.logError(opSearch, "query_failed", err, zap.String("user_id", userID))
		return nil, newServiceError(opSearch, "query_failed", err)
	}
	return result, nil
}

// CreateShare records a grant on one of the caller's notes. The grant is
// bookkeeping only and does not open the note to the target user.
func (s *Service) CreateShare(ctx context.Context, userID, noteID, targetUserID string, permission SharePermission) (*NoteShare, error) {
	if strings.TrimSpace(targetUserID) == "" {
		return nil, ErrInvalidInput
	}
	if !permission.valid() {
		return nil, ErrInvalidPermission
	}

	note, err := s.owned(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}

	shareID, err := s.idProvider.NewID()
	if err != nil {
		return nil, newServiceError(opCreateShare, "id_generation_failed", err)
	}

	share := NoteShare{
		ID:               shareID,
		NoteID:           note.ID,
		SharedWithUserID: targetUserID,
		Permission:       permission,
		CreatedAt:        s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&share).Error; err != nil {
		s.logError(opCreateShare, "insert_failed", err, zap.String("note_id", noteID))
		return nil, newServiceError(opCreateShare, "insert_failed", err)
	}
	return &share, nil
}

// ListShares returns the grants recorded on one of the caller's notes.
func (s *Service) ListShares(ctx context.Context, userID, noteID string) ([]NoteShare, error) {
	note, err := s.owned(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}

	var shares []NoteShare
	err = s.db.WithContext(ctx).
		Where("note_id = ?", note.ID).
		Order("id").
		Find(&shares).Error
	if err != nil {
		s.logError(opListShares, "query_failed", err, zap.String("note_id", noteID))
		return nil, newServiceError(opListShares, "query_failed", err)
	}
	return shares, nil
}

// DeleteShare revokes a grant on one of the caller's notes.
func (s *Service) DeleteShare(ctx context.Context, userID, noteID, shareID string) error {
	note, err := s.owned(ctx, userID, noteID)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("id = ? AND note_id = ?", shareID, note.ID).
		Delete(&NoteShare{})
	if result.Error != nil {
		s.logError(opDeleteShare, "delete_failed", result.Error, zap.String("share_id", shareID))
		return newServiceError(opDeleteShare, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrShareNotFound
	}
	return nil
}

func noteCacheKey(userID, noteID string) string {
	return fmt.Sprintf("note:%s:%s", userID, noteID)
}

func (s *Service) invalidate(ctx context.Context, userID, noteID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, noteCacheKey(userID, noteID)); err != nil {
		s.logger.Debug("note cache invalidation failed", zap.Error(err))
	}
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("notes service error", attrs...)
}
