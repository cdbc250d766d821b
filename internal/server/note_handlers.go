package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillworks/quill/backend/internal/notes"
)

type notePayload struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	UserID     string    `json:"user_id"`
	CategoryID *string   `json:"category_id,omitempty"`
	IsPublic   bool      `json:"is_public"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toNotePayload(note *notes.Note) notePayload {
	tags := note.Tags
	if tags == nil {
		tags = notes.TagSet{}
	}
	return notePayload{
		ID:         note.ID,
		Title:      note.Title,
		Content:    note.Content,
		UserID:     note.UserID,
		CategoryID: note.CategoryID,
		IsPublic:   note.IsPublic,
		Tags:       tags,
		CreatedAt:  note.CreatedAt,
		UpdatedAt:  note.UpdatedAt,
	}
}

func toNotePayloads(result []notes.Note) []notePayload {
	payload := make([]notePayload, 0, len(result))
	for i := range result {
		payload = append(payload, toNotePayload(&result[i]))
	}
	return payload
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	skip, limit := pageParams(c)

	result, err := h.notes.List(c.Request.Context(), userID, skip, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toNotePayloads(result))
}

type noteCreatePayload struct {
	Title      string   `json:"title" binding:"required"`
	Content    string   `json:"content"`
	CategoryID *string  `json:"category_id"`
	IsPublic   bool     `json:"is_public"`
	Tags       []string `json:"tags"`
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var request noteCreatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.notes.Create(c.Request.Context(), userID, notes.CreateRequest{
		Title:      request.Title,
		Content:    request.Content,
		CategoryID: request.CategoryID,
		IsPublic:   request.IsPublic,
		Tags:       request.Tags,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toNotePayload(note))
}

func (h *httpHandler) handleGetNote(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	note, err := h.notes.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toNotePayload(note))
}

type noteUpdatePayload struct {
	Title      *string  `json:"title"`
	Content    *string  `json:"content"`
	CategoryID *string  `json:"category_id"`
	IsPublic   *bool    `json:"is_public"`
	Tags       []string `json:"tags"`
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var request noteUpdatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.notes.Update(c.Request.Context(), userID, c.Param("id"), notes.UpdateRequest{
		Title:      request.Title,
		Content:    request.Content,
		CategoryID: request.CategoryID,
		IsPublic:   request.IsPublic,
		Tags:       request.Tags,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toNotePayload(note))
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.notes.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Note deleted successfully"})
}

func (h *httpHandler) handleSearchNotes(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	query := c.Query("q")
	skip, limit := pageParams(c)

	result, err := h.notes.Search(c.Request.Context(), userID, query, skip, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toNotePayloads(result))
}

type sharePayload struct {
	ID               string    `json:"id"`
	NoteID           string    `json:"note_id"`
	SharedWithUserID string    `json:"shared_with_user_id"`
	Permission       string    `json:"permission_level"`
	CreatedAt        time.Time `json:"created_at"`
}

func toSharePayload(share *notes.NoteShare) sharePayload {
	return sharePayload{
		ID:               share.ID,
		NoteID:           share.NoteID,
		SharedWithUserID: share.SharedWithUserID,
		Permission:       string(share.Permission),
		CreatedAt:        share.CreatedAt,
	}
}

type shareCreatePayload struct {
	SharedWithUserID string `json:"shared_with_user_id" binding:"required"`
	Permission       string `json:"permission_level" binding:"required"`
}

func (h *httpHandler) handleCreateShare(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var request shareCreatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	share, err := h.notes.CreateShare(
		c.Request.Context(),
		userID,
		c.Param("id"),
		request.SharedWithUserID,
		notes.SharePermission(request.Permission),
	)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSharePayload(share))
}

func (h *httpHandler) handleListShares(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	shares, err := h.notes.ListShares(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	payload := make([]sharePayload, 0, len(shares))
	for i := range shares {
		payload = append(payload, toSharePayload(&shares[i]))
	}
	c.JSON(http.StatusOK, payload)
}

func (h *httpHandler) handleDeleteShare(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.notes.DeleteShare(c.Request.Context(), userID, c.Param("id"), c.Param("shareID")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Share revoked successfully"})
}
