package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createCategoryRequest struct {
	Name  string `json:"name" binding:"required,max=255"`
	Color string `json:"color" binding:"omitempty,hexcolor"`
}

// GET /categories
func (s *Server) handleListCategories(c *gin.Context) {
	categories, err := s.categories.List(c.Request.Context(), currentUser(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// POST /categories
func (s *Server) handleCreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	category, err := s.categories.Create(c.Request.Context(), currentUser(c), req.Name, req.Color)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// DELETE /categories/:id — tasks referencing the category keep
// existing, uncategorized.
func (s *Server) handleDeleteCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := s.categories.Delete(c.Request.Context(), currentUser(c), categoryID); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
