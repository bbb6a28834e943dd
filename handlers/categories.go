package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wanjiru/duka-backend/models"
	"github.com/wanjiru/duka-backend/policy"
)

// categoryTreeMaxDepth bounds the recursive tree rendering; past it a
// summary node (id and name only) is emitted instead of recursing.
const categoryTreeMaxDepth = 3

type categoryInput struct {
	Name     string `json:"name" binding:"required"`
	ParentID *uint  `json:"parent_id"`
}

type categoryNode struct {
	ID       uint           `json:"id"`
	Code     string         `json:"category_code,omitempty"`
	Name     string         `json:"name"`
	ParentID *uint          `json:"parent_id,omitempty"`
	Children []categoryNode `json:"children,omitempty"`
}

func (s *Server) ListCategories(c *gin.Context) {
	var categories []models.Category
	if err := s.DB.Order("name").Find(&categories).Error; err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (s *Server) GetCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		detail(c, http.StatusNotFound, "category not found")
		return
	}

	var category models.Category
	if err := s.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail(c, http.StatusNotFound, "category not found")
			return
		}
		s.writeErr(c, err)
		return
	}

	node, err := s.categoryTree(&category, 0)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

// categoryTree renders a category and its children recursively, down to
// categoryTreeMaxDepth levels.
func (s *Server) categoryTree(category *models.Category, depth int) (categoryNode, error) {
	if depth >= categoryTreeMaxDepth {
		return categoryNode{ID: category.ID, Name: category.Name}, nil
	}

	node := categoryNode{
		ID:       category.ID,
		Code:     category.Code,
		Name:     category.Name,
		ParentID: category.ParentID,
	}

	var children []models.Category
	if err := s.DB.Where("parent_id = ?", category.ID).Order("name").Find(&children).Error; err != nil {
		return categoryNode{}, err
	}
	for i := range children {
		child, err := s.categoryTree(&children[i], depth+1)
		if err != nil {
			return categoryNode{}, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func (s *Server) CreateCategory(c *gin.Context) {
	if !s.authorize(c, policy.ActionCreate, policy.Resource{Kind: policy.KindCategory}) {
		return
	}

	var in categoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	if in.ParentID != nil {
		var parent models.Category
		if err := s.DB.First(&parent, *in.ParentID).Error; err != nil {
			detail(c, http.StatusBadRequest, "parent category not found")
			return
		}
	}

	var category models.Category
	err := createWithCode(s.DB, models.CategoryCodePrefix, func(tx *gorm.DB, code string) error {
		category = models.Category{Code: code, Name: in.Name, ParentID: in.ParentID}
		return tx.Create(&category).Error
	})
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (s *Server) UpdateCategory(c *gin.Context) {
	if !s.authorize(c, policy.ActionUpdate, policy.Resource{Kind: policy.KindCategory}) {
		return
	}

	id, ok := parseID(c)
	if !ok {
		detail(c, http.StatusNotFound, "category not found")
		return
	}
	var category models.Category
	if err := s.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail(c, http.StatusNotFound, "category not found")
			return
		}
		s.writeErr(c, err)
		return
	}

	var in struct {
		Name     *string `json:"name"`
		ParentID *uint   `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	if in.Name != nil {
		category.Name = *in.Name
	}
	if in.ParentID != nil {
		if err := s.validateParent(&category, *in.ParentID); err != nil {
			s.writeErr(c, err)
			return
		}
		category.ParentID = in.ParentID
	}

	if err := s.DB.Save(&category).Error; err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// validateParent rejects parent assignments that would make the
// category its own ancestor.
func (s *Server) validateParent(category *models.Category, parentID uint) error {
	if parentID == category.ID {
		return apiError{http.StatusBadRequest, "a category cannot be its own parent"}
	}

	var parent models.Category
	if err := s.DB.First(&parent, parentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apiError{http.StatusBadRequest, "parent category not found"}
		}
		return err
	}

	ids, err := descendantIDs(s.DB, category.ID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == parentID {
			return apiError{http.StatusBadRequest, "a category cannot be moved under its own descendant"}
		}
	}
	return nil
}

func (s *Server) DeleteCategory(c *gin.Context) {
	if !s.authorize(c, policy.ActionDelete, policy.Resource{Kind: policy.KindCategory}) {
		return
	}

	id, ok := parseID(c)
	if !ok {
		detail(c, http.StatusNotFound, "category not found")
		return
	}
	var category models.Category
	if err := s.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail(c, http.StatusNotFound, "category not found")
			return
		}
		s.writeErr(c, err)
		return
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		ids, err := descendantIDs(tx, category.ID)
		if err != nil {
			return err
		}

		var dependents int64
		if err := tx.Model(&models.Product{}).Where("category_id IN ?", ids).Count(&dependents).Error; err != nil {
			return err
		}
		if dependents > 0 {
			return apiError{http.StatusBadRequest, "Cannot delete category: products depend on it"}
		}

		return tx.Where("id IN ?", ids).Delete(&models.Category{}).Error
	})
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// descendantIDs walks the child edges from categoryID and returns the
// descendant-or-self id set. Termination is guaranteed by the acyclic
// parent invariant enforced on writes.
func descendantIDs(db *gorm.DB, categoryID uint) ([]uint, error) {
	ids := []uint{categoryID}
	frontier := []uint{categoryID}

	for len(frontier) > 0 {
		var children []uint
		if err := db.Model(&models.Category{}).
			Where("parent_id IN ?", frontier).
			Pluck("id", &children).Error; err != nil {
			return nil, err
		}
		ids = append(ids, children...)
		frontier = children
	}
	return ids, nil
}
