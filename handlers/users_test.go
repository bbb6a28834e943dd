package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanjiru/duka-backend/models"
)

func TestRegisterUser(t *testing.T) {
	_, router, _ := newTestServer(t)

	w := doJSON(router, http.MethodPost, "/users/register", map[string]any{
		"email":      "june@duka.test",
		"phone":      "0712345678",
		"first_name": "June",
		"last_name":  "Jun",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "june@duka.test", body["email"])
	assert.Equal(t, "BUYER", body["role"])
	assert.NotContains(t, body, "is_staff", "staff flags hidden from non-staff viewers")
}

func TestRegisterIgnoresClaimedRole(t *testing.T) {
	s, router, _ := newTestServer(t)

	w := doJSON(router, http.MethodPost, "/users/register", map[string]any{
		"email": "sneaky@duka.test",
		"phone": "0712300000",
		"role":  "ADMIN",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	var user models.User
	require.NoError(t, s.DB.Where("email = ?", "sneaky@duka.test").First(&user).Error)
	assert.Equal(t, models.RoleBuyer, user.Role)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	_, router, _ := newTestServer(t)

	payload := map[string]any{"email": "june@duka.test", "phone": "0712345678"}
	w := doJSON(router, http.MethodPost, "/users/register", payload, "")
	require.Equal(t, http.StatusCreated, w.Code)

	payload["phone"] = "0712345679"
	w = doJSON(router, http.MethodPost, "/users/register", payload, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMe(t *testing.T) {
	_, router, _ := newTestServer(t)

	w := doJSON(router, http.MethodGet, "/users/me", nil, buyerToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "buyer@duka.test", decodeBody(t, w)["email"])

	w = doJSON(router, http.MethodGet, "/users/me", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUserDetailAccess(t *testing.T) {
	s, router, _ := newTestServer(t)
	seedAdmin(t, s.DB)

	// provision the two buyers through the middleware
	require.Equal(t, http.StatusOK, doJSON(router, http.MethodGet, "/users/me", nil, buyerToken).Code)
	var buyer models.User
	require.NoError(t, s.DB.Where("email = ?", "buyer@duka.test").First(&buyer).Error)
	path := fmt.Sprintf("/users/%d", buyer.ID)

	w := doJSON(router, http.MethodGet, path, nil, otherToken)
	assert.Equal(t, http.StatusForbidden, w.Code, "another user's detail is forbidden")

	w = doJSON(router, http.MethodGet, path, nil, buyerToken)
	assert.Equal(t, http.StatusOK, w.Code, "own detail succeeds")

	w = doJSON(router, http.MethodGet, path, nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code, "admin succeeds")
	assert.Contains(t, decodeBody(t, w), "is_staff", "staff viewer sees flags")
}

func TestListUsersAdminOnly(t *testing.T) {
	s, router, _ := newTestServer(t)
	seedAdmin(t, s.DB)

	w := doJSON(router, http.MethodGet, "/users", nil, buyerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(router, http.MethodGet, "/users", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(router, http.MethodGet, "/users", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeList(t, w))
}

func TestNonStaffCannotEscalate(t *testing.T) {
	s, router, _ := newTestServer(t)

	w := doJSON(router, http.MethodPatch, "/users/me", map[string]any{
		"first_name": "Brian",
		"role":       "ADMIN",
		"is_staff":   true,
	}, buyerToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var user models.User
	require.NoError(t, s.DB.Where("email = ?", "buyer@duka.test").First(&user).Error)
	assert.Equal(t, models.RoleBuyer, user.Role)
	assert.False(t, user.IsStaff)
	assert.Equal(t, "Brian", user.FirstName)
}

func TestAdminPromotesUser(t *testing.T) {
	s, router, _ := newTestServer(t)
	seedAdmin(t, s.DB)

	require.Equal(t, http.StatusOK, doJSON(router, http.MethodGet, "/users/me", nil, buyerToken).Code)
	var buyer models.User
	require.NoError(t, s.DB.Where("email = ?", "buyer@duka.test").First(&buyer).Error)

	w := doJSON(router, http.MethodPatch, fmt.Sprintf("/users/%d", buyer.ID),
		map[string]any{"role": "SELLER"}, adminToken)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, s.DB.First(&buyer, buyer.ID).Error)
	assert.Equal(t, models.RoleSeller, buyer.Role)
}

func TestUpdateAnotherUserForbidden(t *testing.T) {
	s, router, _ := newTestServer(t)

	require.Equal(t, http.StatusOK, doJSON(router, http.MethodGet, "/users/me", nil, buyerToken).Code)
	var buyer models.User
	require.NoError(t, s.DB.Where("email = ?", "buyer@duka.test").First(&buyer).Error)

	w := doJSON(router, http.MethodPatch, fmt.Sprintf("/users/%d", buyer.ID),
		map[string]any{"first_name": "Hijacked"}, otherToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLoginUnavailableWithoutExchanger(t *testing.T) {
	_, router, _ := newTestServer(t)

	w := doJSON(router, http.MethodPost, "/users/token", map[string]any{}, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestOIDCFirstLoginProvisionsBuyer(t *testing.T) {
	s, router, _ := newTestServer(t)

	w := doJSON(router, http.MethodGet, "/users/me", nil, otherToken)
	require.Equal(t, http.StatusOK, w.Code)

	var user models.User
	require.NoError(t, s.DB.Where("email = ?", "other@duka.test").First(&user).Error)
	assert.Equal(t, models.RoleBuyer, user.Role)
	assert.Equal(t, "Otis", user.FirstName)
}
