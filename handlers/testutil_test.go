package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wanjiru/duka-backend/auth"
	"github.com/wanjiru/duka-backend/models"
)

// Test bearer tokens understood by the static resolver.
const (
	adminToken = "admin-token"
	buyerToken = "buyer-token"
	otherToken = "other-token"
)

var testIdentities = map[string]*auth.Identity{
	adminToken: {Email: "admin@duka.test", GivenName: "Amina", FamilyName: "Admin"},
	buyerToken: {Email: "buyer@duka.test", GivenName: "Brian", FamilyName: "Buyer"},
	otherToken: {Email: "other@duka.test", GivenName: "Otis", FamilyName: "Other"},
}

type staticResolver struct{}

func (staticResolver) Resolve(_ context.Context, token string) (*auth.Identity, error) {
	if id, ok := testIdentities[token]; ok {
		return id, nil
	}
	return nil, auth.ErrInvalidToken
}

type recordingDispatcher struct {
	placed []string
}

func (d *recordingDispatcher) OrderPlaced(order *models.Order) {
	d.placed = append(d.placed, order.Code)
}

// newTestServer builds the same router the binary serves, against an
// in-memory sqlite database scoped to the test.
func newTestServer(t *testing.T) (*Server, *gin.Engine, *recordingDispatcher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	dispatcher := &recordingDispatcher{}
	s := &Server{
		DB:       db,
		Log:      zap.NewNop(),
		Resolver: staticResolver{},
		Notifier: dispatcher,
	}
	return s, SetupRouter(s), dispatcher
}

func strptr(s string) *string { return &s }

// seedAdmin provisions the user behind adminToken with the ADMIN role.
// The middleware would otherwise create it as a BUYER on first request.
func seedAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	admin := models.User{
		Email:     "admin@duka.test",
		Phone:     strptr("0700000001"),
		FirstName: "Amina",
		Role:      models.RoleAdmin,
		IsActive:  true,
		IsStaff:   true,
	}
	require.NoError(t, db.Create(&admin).Error)
	return &admin
}

func seedCategory(t *testing.T, db *gorm.DB, name string, parentID *uint) *models.Category {
	t.Helper()
	code, err := nextTestCode(db, models.CategoryCodePrefix)
	require.NoError(t, err)
	cat := models.Category{Code: code, Name: name, ParentID: parentID}
	require.NoError(t, db.Create(&cat).Error)
	return &cat
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price float64, categoryID uint) *models.Product {
	t.Helper()
	code, err := nextTestCode(db, models.ProductCodePrefix)
	require.NoError(t, err)
	p := models.Product{Code: code, Name: name, Price: decimal.NewFromFloat(price), CategoryID: categoryID}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

func nextTestCode(db *gorm.DB, prefix string) (string, error) {
	var code string
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		code, err = models.NextCode(tx, prefix, time.Now())
		return err
	})
	return code, err
}

// doJSON performs a request against the router, attaching the bearer
// token when one is given.
func doJSON(router *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var body []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}
