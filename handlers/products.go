package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wanjiru/duka-backend/models"
	"github.com/wanjiru/duka-backend/policy"
)

type productInput struct {
	Name       string          `json:"name" binding:"required"`
	Price      decimal.Decimal `json:"price"`
	CategoryID uint            `json:"category_id" binding:"required"`
}

func (s *Server) ListProducts(c *gin.Context) {
	var products []models.Product
	if err := s.DB.Order("id").Find(&products).Error; err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (s *Server) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		detail(c, http.StatusNotFound, "product not found")
		return
	}
	var product models.Product
	if err := s.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail(c, http.StatusNotFound, "product not found")
			return
		}
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) CreateProduct(c *gin.Context) {
	if !s.authorize(c, policy.ActionCreate, policy.Resource{Kind: policy.KindProduct}) {
		return
	}

	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	if in.Price.IsNegative() {
		detail(c, http.StatusBadRequest, "price must not be negative")
		return
	}

	var category models.Category
	if err := s.DB.First(&category, in.CategoryID).Error; err != nil {
		detail(c, http.StatusBadRequest, "category not found")
		return
	}

	var product models.Product
	err := createWithCode(s.DB, models.ProductCodePrefix, func(tx *gorm.DB, code string) error {
		product = models.Product{
			Code:       code,
			Name:       in.Name,
			Price:      in.Price.Round(2),
			CategoryID: in.CategoryID,
		}
		return tx.Create(&product).Error
	})
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (s *Server) UpdateProduct(c *gin.Context) {
	if !s.authorize(c, policy.ActionUpdate, policy.Resource{Kind: policy.KindProduct}) {
		return
	}

	id, ok := parseID(c)
	if !ok {
		detail(c, http.StatusNotFound, "product not found")
		return
	}
	var product models.Product
	if err := s.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail(c, http.StatusNotFound, "product not found")
			return
		}
		s.writeErr(c, err)
		return
	}

	var in struct {
		Name       *string          `json:"name"`
		Price      *decimal.Decimal `json:"price"`
		CategoryID *uint            `json:"category_id"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	if in.Name != nil {
		product.Name = *in.Name
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			detail(c, http.StatusBadRequest, "price must not be negative")
			return
		}
		product.Price = in.Price.Round(2)
	}
	if in.CategoryID != nil {
		var category models.Category
		if err := s.DB.First(&category, *in.CategoryID).Error; err != nil {
			detail(c, http.StatusBadRequest, "category not found")
			return
		}
		product.CategoryID = *in.CategoryID
	}

	if err := s.DB.Save(&product).Error; err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) DeleteProduct(c *gin.Context) {
	if !s.authorize(c, policy.ActionDelete, policy.Resource{Kind: policy.KindProduct}) {
		return
	}

	id, ok := parseID(c)
	if !ok {
		detail(c, http.StatusNotFound, "product not found")
		return
	}
	var product models.Product
	if err := s.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail(c, http.StatusNotFound, "product not found")
			return
		}
		s.writeErr(c, err)
		return
	}

	if err := s.DB.Delete(&product).Error; err != nil {
		s.writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AveragePrice reports the arithmetic mean of product prices over a
// category's descendant-or-self set. No matching products yields zero
// rather than an error.
func (s *Server) AveragePrice(c *gin.Context) {
	raw := c.Query("category_id")
	if raw == "" {
		detail(c, http.StatusBadRequest, "category_id required")
		return
	}
	categoryID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		detail(c, http.StatusBadRequest, "category_id must be an integer")
		return
	}

	var category models.Category
	if err := s.DB.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail(c, http.StatusNotFound, "category not found")
			return
		}
		s.writeErr(c, err)
		return
	}

	ids, err := descendantIDs(s.DB, category.ID)
	if err != nil {
		s.writeErr(c, err)
		return
	}

	var products []models.Product
	if err := s.DB.Where("category_id IN ?", ids).Find(&products).Error; err != nil {
		s.writeErr(c, err)
		return
	}

	average := decimal.Zero
	if len(products) > 0 {
		sum := decimal.Zero
		for _, p := range products {
			sum = sum.Add(p.Price)
		}
		average = sum.Div(decimal.NewFromInt(int64(len(products)))).Round(2)
	}

	c.JSON(http.StatusOK, gin.H{
		"category":      category.Name,
		"average_price": average,
	})
}
