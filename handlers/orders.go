package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wanjiru/duka-backend/auth"
	"github.com/wanjiru/duka-backend/models"
	"github.com/wanjiru/duka-backend/policy"
)

type orderItemInput struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

type orderInput struct {
	Items []orderItemInput `json:"items" binding:"dive"`
}

// CreateOrder places an order for the authenticated customer. Pricing,
// code assignment, and persistence of the order with its lines happen in
// one transaction; the notification fires only after commit and is
// best-effort.
func (s *Server) CreateOrder(c *gin.Context) {
	if !s.authorize(c, policy.ActionCreate, policy.Resource{Kind: policy.KindOrder}) {
		return
	}
	customer := auth.CurrentUser(c)

	var in orderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	if len(in.Items) == 0 {
		detail(c, http.StatusBadRequest, "order must contain at least one item")
		return
	}

	var order models.Order
	err := createWithCode(s.DB, models.OrderCodePrefix, func(tx *gorm.DB, code string) error {
		lines := make([]models.OrderLine, 0, len(in.Items))
		total := decimal.Zero
		for _, item := range in.Items {
			var product models.Product
			if err := tx.First(&product, item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apiError{http.StatusNotFound, fmt.Sprintf("product %d not found", item.ProductID)}
				}
				return err
			}
			// unit price is snapshotted here; later catalog changes
			// must not reprice this line
			lines = append(lines, models.OrderLine{
				ProductID: product.ID,
				Price:     product.Price,
				Quantity:  item.Quantity,
			})
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		order = models.Order{
			Code:       code,
			Status:     models.StatusPending,
			CustomerID: customer.ID,
			Total:      total,
			Lines:      lines,
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		s.writeErr(c, err)
		return
	}

	if err := s.DB.Preload("Customer").Preload("Lines.Product").First(&order, order.ID).Error; err != nil {
		s.writeErr(c, err)
		return
	}
	s.Notifier.OrderPlaced(&order)

	c.JSON(http.StatusCreated, order)
}

func (s *Server) ListOrders(c *gin.Context) {
	if !s.authorize(c, policy.ActionList, policy.Resource{Kind: policy.KindOrder}) {
		return
	}
	actor := auth.CurrentUser(c)

	q := s.DB.Preload("Lines").Order("id")
	if !actor.IsAdmin() {
		q = q.Where("customer_id = ?", actor.ID)
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) GetOrder(c *gin.Context) {
	order, ok := s.findOrder(c)
	if !ok {
		return
	}
	if !s.authorize(c, policy.ActionRead, policy.Resource{Kind: policy.KindOrder, OwnerID: order.CustomerID}) {
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrder changes an order's status. Admins may set any status; the
// owning customer may only cancel an order that is still pending.
func (s *Server) UpdateOrder(c *gin.Context) {
	order, ok := s.findOrder(c)
	if !ok {
		return
	}
	if !s.authorize(c, policy.ActionUpdate, policy.Resource{Kind: policy.KindOrder, OwnerID: order.CustomerID}) {
		return
	}
	actor := auth.CurrentUser(c)

	var in struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	if !models.ValidStatus(in.Status) {
		detail(c, http.StatusBadRequest, "invalid order status")
		return
	}

	if !actor.IsAdmin() {
		if in.Status != models.StatusCanceled {
			detail(c, http.StatusForbidden, "You do not have permission to perform this action.")
			return
		}
		if order.Status != models.StatusPending {
			detail(c, http.StatusBadRequest, "only pending orders can be canceled")
			return
		}
	}

	order.Status = in.Status
	if err := s.DB.Model(order).Update("status", in.Status).Error; err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// DeleteOrder removes an order. Admin deletion is permanent and takes
// the lines with it; a customer deleting their own order only hides it.
func (s *Server) DeleteOrder(c *gin.Context) {
	order, ok := s.findOrder(c)
	if !ok {
		return
	}
	if !s.authorize(c, policy.ActionDelete, policy.Resource{Kind: policy.KindOrder, OwnerID: order.CustomerID}) {
		return
	}
	actor := auth.CurrentUser(c)

	var err error
	if actor.IsAdmin() {
		err = s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderLine{}).Error; err != nil {
				return err
			}
			return tx.Unscoped().Delete(order).Error
		})
	} else {
		err = s.DB.Delete(order).Error
	}
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) findOrder(c *gin.Context) (*models.Order, bool) {
	id, ok := parseID(c)
	if !ok {
		detail(c, http.StatusNotFound, "order not found")
		return nil, false
	}
	var order models.Order
	if err := s.DB.Preload("Lines").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail(c, http.StatusNotFound, "order not found")
			return nil, false
		}
		s.writeErr(c, err)
		return nil, false
	}
	return &order, true
}
