package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"course_commerce/internal/config"
	"course_commerce/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, model.Migrate(db))
	return db
}

// newTestRouter wires the routes against an unreachable redis; the
// rate limiter fails open so handlers stay testable without one.
func newTestRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rdb := rd.NewClient(&rd.Options{
		Addr:        "localhost:1",
		DialTimeout: 10 * time.Millisecond,
		MaxRetries:  -1,
	})
	cfg := config.AppConfig{
		SupportedCurrencies: []string{"SAR"},
		ManualOrderPrefix:   "MANUAL-ENTRY-",
		PurchaseRateLimit:   100,
		PurchaseRateWindow:  time.Minute,
	}

	r := gin.New()
	Setup(r, db, rdb, cfg)
	return r
}

func seedPurchasable(t *testing.T, db *gorm.DB) {
	t.Helper()
	site := model.Site{Domain: "shop.example.com", Name: "Example Shop"}
	require.NoError(t, db.Create(&site).Error)
	partner := model.Partner{Name: "Example Partner", ShortCode: "EXMP", DefaultSiteID: site.ID}
	require.NoError(t, db.Create(&partner).Error)
	product := model.Product{
		Structure: model.ProductStandalone, ProductClass: model.ProductClassSeat,
		CourseID: "course-v1:Org+Course+Run", Title: "Seat in Example Course",
	}
	require.NoError(t, db.Create(&product).Error)
	require.NoError(t, db.Create(&model.StockRecord{
		ProductID: product.ID, PartnerID: partner.ID, PartnerSKU: "ABC123",
		PriceCurrency: "SAR", Price: decimal.NewFromInt(100),
		PriceRetail: decimal.NullDecimal{Valid: true, Decimal: decimal.NewFromInt(100)},
	}).Error)
	require.NoError(t, db.Create(&model.User{
		Username: "jdoe", Email: "jdoe@example.com", LMSUserID: 42,
	}).Error)
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	r := newTestRouter(t, newTestDB(t))
	w := doJSON(r, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetOrderNotFound(t *testing.T) {
	r := newTestRouter(t, newTestDB(t))
	w := doJSON(r, http.MethodGet, "/api/orders/EXMP-999999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStockRecord(t *testing.T) {
	db := newTestDB(t)
	seedPurchasable(t, db)
	r := newTestRouter(t, db)

	w := doJSON(r, http.MethodGet, "/api/stockrecords/ABC123", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ABC123")

	w = doJSON(r, http.MethodGet, "/api/stockrecords/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/api/stockrecords/ABC123?partner=NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreatePurchaseDryRun(t *testing.T) {
	db := newTestDB(t)
	seedPurchasable(t, db)
	r := newTestRouter(t, db)

	w := doJSON(r, http.MethodPost, "/api/purchases", gin.H{
		"site_domain": "shop.example.com",
		"course_id":   "course-v1:Org+Course+Run",
		"sku":         "ABC123",
		"lms_user_id": 42,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			OrderNumber string `json:"order_number"`
			DryRun      bool   `json:"dry_run"`
			Currency    string `json:"currency"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.DryRun)
	assert.Equal(t, "SAR", resp.Data.Currency)
	assert.True(t, strings.HasPrefix(resp.Data.OrderNumber, "MANUAL-ENTRY-"))

	var n int64
	require.NoError(t, db.Model(&model.Order{}).Count(&n).Error)
	assert.EqualValues(t, 0, n)
}

func TestCreatePurchaseCommitFlow(t *testing.T) {
	db := newTestDB(t)
	seedPurchasable(t, db)
	r := newTestRouter(t, db)

	// Commit without the confirm flag is refused outright.
	w := doJSON(r, http.MethodPost, "/api/purchases", gin.H{
		"site_domain": "shop.example.com",
		"course_id":   "course-v1:Org+Course+Run",
		"sku":         "ABC123",
		"lms_user_id": 42,
		"commit":      true,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/purchases", gin.H{
		"site_domain": "shop.example.com",
		"course_id":   "course-v1:Org+Course+Run",
		"sku":         "ABC123",
		"lms_user_id": 42,
		"commit":      true,
		"confirm":     true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var order model.Order
	require.NoError(t, db.First(&order).Error)

	w = doJSON(r, http.MethodGet, "/api/orders/"+order.Number, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), order.Number)

	// Replaying the commit trips the idempotency guard.
	w = doJSON(r, http.MethodPost, "/api/purchases", gin.H{
		"site_domain": "shop.example.com",
		"course_id":   "course-v1:Org+Course+Run",
		"sku":         "ABC123",
		"lms_user_id": 42,
		"commit":      true,
		"confirm":     true,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "order already exists")
}

func TestCreatePurchaseDomainErrors(t *testing.T) {
	db := newTestDB(t)
	seedPurchasable(t, db)
	r := newTestRouter(t, db)

	w := doJSON(r, http.MethodPost, "/api/purchases", gin.H{
		"site_domain": "nowhere.example.com",
		"course_id":   "course-v1:Org+Course+Run",
		"sku":         "ABC123",
		"lms_user_id": 42,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "site with domain")

	// Missing required fields never reach the orchestrator.
	w = doJSON(r, http.MethodPost, "/api/purchases", gin.H{"sku": "ABC123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
