package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillworks/quill/backend/internal/categories"
)

type categoryPayload struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func toCategoryPayload(category *categories.Category) categoryPayload {
	return categoryPayload{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		UserID:      category.UserID,
		CreatedAt:   category.CreatedAt,
	}
}

// pageParams parses skip/limit query parameters; malformed values read as
// unset and the services apply defaulting and clamping.
func pageParams(c *gin.Context) (int, int) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil {
		skip = 0
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		limit = 0
	}
	return skip, limit
}

func (h *httpHandler) handleListCategories(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	skip, limit := pageParams(c)

	result, err := h.categories.List(c.Request.Context(), userID, skip, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	payload := make([]categoryPayload, 0, len(result))
	for i := range result {
		payload = append(payload, toCategoryPayload(&result[i]))
	}
	c.JSON(http.StatusOK, payload)
}

type categoryCreatePayload struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *httpHandler) handleCreateCategory(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var request categoryCreatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	category, err := h.categories.Create(c.Request.Context(), userID, categories.CreateRequest{
		Name:        request.Name,
		Description: request.Description,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toCategoryPayload(category))
}

func (h *httpHandler) handleGetCategory(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	category, err := h.categories.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCategoryPayload(category))
}

type categoryUpdatePayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *httpHandler) handleUpdateCategory(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var request categoryUpdatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	category, err := h.categories.Update(c.Request.Context(), userID, c.Param("id"), categories.UpdateRequest{
		Name:        request.Name,
		Description: request.Description,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCategoryPayload(category))
}

func (h *httpHandler) handleDeleteCategory(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.categories.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
