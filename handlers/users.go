package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wanjiru/duka-backend/auth"
	"github.com/wanjiru/duka-backend/models"
	"github.com/wanjiru/duka-backend/policy"
)

type userInput struct {
	Email     string       `json:"email" binding:"required,email"`
	Phone     *string      `json:"phone"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Role      *models.Role `json:"role"`
	IsActive  *bool        `json:"is_active"`
	IsStaff   *bool        `json:"is_staff"`
}

// userJSON gates the representation on the viewer: staff flags are only
// visible to staff, mirroring what non-staff callers may write.
func userJSON(u *models.User, viewer *models.User) gin.H {
	h := gin.H{
		"id":         u.ID,
		"email":      u.Email,
		"phone":      u.Phone,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"role":       u.Role,
	}
	if staffViewer(viewer) {
		h["is_active"] = u.IsActive
		h["is_staff"] = u.IsStaff
	}
	return h
}

func staffViewer(viewer *models.User) bool {
	return viewer != nil && (viewer.IsStaff || viewer.IsAdmin())
}

func (s *Server) ListUsers(c *gin.Context) {
	if !s.authorize(c, policy.ActionList, policy.Resource{Kind: policy.KindUser}) {
		return
	}
	viewer := auth.CurrentUser(c)

	var users []models.User
	if err := s.DB.Order("id").Find(&users).Error; err != nil {
		s.writeErr(c, err)
		return
	}

	out := make([]gin.H, 0, len(users))
	for i := range users {
		out = append(out, userJSON(&users[i], viewer))
	}
	c.JSON(http.StatusOK, out)
}

// RegisterUser provisions a local account. Registrants always start as
// BUYER regardless of what the request claims.
func (s *Server) RegisterUser(c *gin.Context) {
	var in userInput
	if err := c.ShouldBindJSON(&in); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	user := models.User{
		Email:     in.Email,
		Phone:     in.Phone,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      models.RoleBuyer,
		IsActive:  true,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			detail(c, http.StatusConflict, "a user with this email or phone already exists")
			return
		}
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, userJSON(&user, auth.CurrentUser(c)))
}

// CreateUser is the collection create. Open like registration, but a
// staff caller may set role and flags.
func (s *Server) CreateUser(c *gin.Context) {
	var in userInput
	if err := c.ShouldBindJSON(&in); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	viewer := auth.CurrentUser(c)

	user := models.User{
		Email:     in.Email,
		Phone:     in.Phone,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      models.RoleBuyer,
		IsActive:  true,
	}
	if staffViewer(viewer) {
		if in.Role != nil {
			user.Role = *in.Role
		}
		if in.IsActive != nil {
			user.IsActive = *in.IsActive
		}
		if in.IsStaff != nil {
			user.IsStaff = *in.IsStaff
		}
	}

	if err := s.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			detail(c, http.StatusConflict, "a user with this email or phone already exists")
			return
		}
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, userJSON(&user, viewer))
}

func (s *Server) GetMe(c *gin.Context) {
	actor := auth.CurrentUser(c)
	if actor == nil {
		detail(c, http.StatusForbidden, "Authentication credentials were not provided.")
		return
	}
	c.JSON(http.StatusOK, userJSON(actor, actor))
}

func (s *Server) UpdateMe(c *gin.Context) {
	actor := auth.CurrentUser(c)
	if actor == nil {
		detail(c, http.StatusForbidden, "Authentication credentials were not provided.")
		return
	}
	s.applyUserUpdate(c, actor, actor)
}

func (s *Server) GetUser(c *gin.Context) {
	user, ok := s.findUser(c)
	if !ok {
		return
	}
	if !s.authorize(c, policy.ActionRead, policy.Resource{Kind: policy.KindUser, OwnerID: user.ID}) {
		return
	}
	c.JSON(http.StatusOK, userJSON(user, auth.CurrentUser(c)))
}

func (s *Server) UpdateUser(c *gin.Context) {
	user, ok := s.findUser(c)
	if !ok {
		return
	}
	if !s.authorize(c, policy.ActionUpdate, policy.Resource{Kind: policy.KindUser, OwnerID: user.ID}) {
		return
	}
	s.applyUserUpdate(c, user, auth.CurrentUser(c))
}

// applyUserUpdate writes the permitted subset of fields: anyone may
// change their contact details, only staff may touch role and flags.
func (s *Server) applyUserUpdate(c *gin.Context, user, viewer *models.User) {
	var in struct {
		Email     *string      `json:"email"`
		Phone     *string      `json:"phone"`
		FirstName *string      `json:"first_name"`
		LastName  *string      `json:"last_name"`
		Role      *models.Role `json:"role"`
		IsActive  *bool        `json:"is_active"`
		IsStaff   *bool        `json:"is_staff"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Phone != nil {
		user.Phone = in.Phone
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if staffViewer(viewer) {
		if in.Role != nil {
			user.Role = *in.Role
		}
		if in.IsActive != nil {
			user.IsActive = *in.IsActive
		}
		if in.IsStaff != nil {
			user.IsStaff = *in.IsStaff
		}
	}

	if err := s.DB.Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			detail(c, http.StatusConflict, "a user with this email or phone already exists")
			return
		}
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, userJSON(user, viewer))
}

func (s *Server) DeleteUser(c *gin.Context) {
	user, ok := s.findUser(c)
	if !ok {
		return
	}
	if !s.authorize(c, policy.ActionDelete, policy.Resource{Kind: policy.KindUser, OwnerID: user.ID}) {
		return
	}

	if err := s.DB.Delete(user).Error; err != nil {
		s.writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LoginWithGoogle trades a Google authorization code for tokens and
// provisions the user the id_token describes.
func (s *Server) LoginWithGoogle(c *gin.Context) {
	if s.Exchanger == nil {
		detail(c, http.StatusServiceUnavailable, "login is not configured")
		return
	}

	var in struct {
		Code        string `json:"code"`
		RedirectURI string `json:"redirect_uri"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Code == "" {
		detail(c, http.StatusBadRequest, "Authorization code required")
		return
	}

	tokens, identity, err := s.Exchanger.Exchange(c.Request.Context(), in.Code, in.RedirectURI)
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := auth.GetOrCreateUser(s.DB, identity); err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (s *Server) findUser(c *gin.Context) (*models.User, bool) {
	id, ok := parseID(c)
	if !ok {
		detail(c, http.StatusNotFound, "user not found")
		return nil, false
	}
	var user models.User
	if err := s.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail(c, http.StatusNotFound, "user not found")
			return nil, false
		}
		s.writeErr(c, err)
		return nil, false
	}
	return &user, true
}
