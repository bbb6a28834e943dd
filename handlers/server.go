package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wanjiru/duka-backend/auth"
	"github.com/wanjiru/duka-backend/models"
	"github.com/wanjiru/duka-backend/policy"
	"github.com/wanjiru/duka-backend/services"
)

// Server bundles the shared dependencies every handler needs. Tests
// build one around an in-memory database, a static token resolver, and
// a recording dispatcher; main wires the real collaborators.
type Server struct {
	DB        *gorm.DB
	Log       *zap.Logger
	Resolver  auth.Resolver
	Notifier  services.Dispatcher
	Exchanger *auth.GoogleExchanger
}

func SetupRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.Log))
	r.Use(auth.Middleware(s.DB, s.Resolver))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/categories", s.ListCategories)
	r.POST("/categories", s.CreateCategory)
	r.GET("/categories/:id", s.GetCategory)
	r.PUT("/categories/:id", s.UpdateCategory)
	r.PATCH("/categories/:id", s.UpdateCategory)
	r.DELETE("/categories/:id", s.DeleteCategory)

	r.GET("/products", s.ListProducts)
	r.POST("/products", s.CreateProduct)
	r.GET("/products/average-price", s.AveragePrice)
	r.GET("/products/:id", s.GetProduct)
	r.PUT("/products/:id", s.UpdateProduct)
	r.PATCH("/products/:id", s.UpdateProduct)
	r.DELETE("/products/:id", s.DeleteProduct)

	r.GET("/orders", s.ListOrders)
	r.POST("/orders", s.CreateOrder)
	r.GET("/orders/:id", s.GetOrder)
	r.PUT("/orders/:id", s.UpdateOrder)
	r.PATCH("/orders/:id", s.UpdateOrder)
	r.DELETE("/orders/:id", s.DeleteOrder)

	r.GET("/users", s.ListUsers)
	r.POST("/users", s.CreateUser)
	r.POST("/users/register", s.RegisterUser)
	r.POST("/users/token", s.LoginWithGoogle)
	r.GET("/users/me", s.GetMe)
	r.PUT("/users/me", s.UpdateMe)
	r.PATCH("/users/me", s.UpdateMe)
	r.GET("/users/:id", s.GetUser)
	r.PUT("/users/:id", s.UpdateUser)
	r.PATCH("/users/:id", s.UpdateUser)
	r.DELETE("/users/:id", s.DeleteUser)

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Header("X-Request-ID", requestID)

		c.Next()

		log.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// detail writes the DRF-shaped error body every endpoint uses.
func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

// authorize runs the policy check and writes the 403 itself when the
// caller is denied.
func (s *Server) authorize(c *gin.Context, action policy.Action, res policy.Resource) bool {
	actor := auth.CurrentUser(c)
	if policy.Allow(actor, action, res) {
		return true
	}
	if actor == nil {
		detail(c, http.StatusForbidden, "Authentication credentials were not provided.")
	} else {
		detail(c, http.StatusForbidden, "You do not have permission to perform this action.")
	}
	return false
}

// apiError lets transactional helpers carry an HTTP status out of the
// transaction closure.
type apiError struct {
	status int
	msg    string
}

func (e apiError) Error() string { return e.msg }

// writeErr maps an error from a workflow to a response: apiErrors keep
// their status, duplicate keys conflict, everything else is a 500.
func (s *Server) writeErr(c *gin.Context, err error) {
	var apiErr apiError
	switch {
	case errors.As(err, &apiErr):
		detail(c, apiErr.status, apiErr.msg)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		detail(c, http.StatusConflict, "a record with conflicting unique fields already exists")
	default:
		s.Log.Error("internal error", zap.Error(err))
		detail(c, http.StatusInternalServerError, "internal server error")
	}
}

// createWithCode runs fn in a transaction with a freshly assigned
// sequential code. A duplicate-key failure gets one retry: the unique
// index on the code column is the backstop for two same-day creations
// racing past the counter.
func createWithCode(db *gorm.DB, prefix string, fn func(tx *gorm.DB, code string) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = db.Transaction(func(tx *gorm.DB) error {
			code, cerr := models.NextCode(tx, prefix, time.Now())
			if cerr != nil {
				return cerr
			}
			return fn(tx, code)
		})
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}
	return err
}

func parseID(c *gin.Context) (uint, bool) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(n), true
}
