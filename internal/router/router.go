package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"course_commerce/internal/config"
	"course_commerce/internal/middleware"
	"course_commerce/internal/model"
	"course_commerce/internal/purchase"
)

// Setup registers all HTTP routes of the admin API.
func Setup(r *gin.Engine, db *gorm.DB, rdb *rd.Client, cfg config.AppConfig) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})
	r.GET("/api/orders/:number", getOrder(db))
	r.GET("/api/stockrecords/:sku", getStockRecord(db))
	r.POST("/api/purchases",
		middleware.PurchaseRateLimit(rdb, cfg.PurchaseRateLimit, cfg.PurchaseRateWindow),
		createPurchase(db, cfg))
}

// getOrder looks an order up by number, lines included.
func getOrder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		number := c.Param("number")
		var order model.Order
		err := db.Preload("Lines").Where("number = ?", number).First(&order).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": order})
	}
}

// getStockRecord looks a stock record up by SKU, optionally scoped to
// a partner short code.
func getStockRecord(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sku := c.Param("sku")
		q := db.Where("partner_sku = ?", sku)
		if shortCode := c.Query("partner"); shortCode != "" {
			var partner model.Partner
			if err := db.Where("short_code = ?", shortCode).First(&partner).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "partner not found"})
					return
				}
				c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
				return
			}
			q = q.Where("partner_id = ?", partner.ID)
		}

		var record model.StockRecord
		if err := q.First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "stock record not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": record})
	}
}

// createPurchase runs the manual purchase orchestrator. The API's
// confirmation gate is the confirm flag: commit requests without it
// are rejected before anything is looked up.
func createPurchase(db *gorm.DB, cfg config.AppConfig) gin.HandlerFunc {
	orc := purchase.New(db, purchase.Options{
		SupportedCurrencies: cfg.SupportedCurrencies,
		ManualOrderPrefix:   cfg.ManualOrderPrefix,
		// The confirm flag was already checked; approve unconditionally.
		Confirm: func(string) (bool, error) { return true, nil },
	})

	return func(c *gin.Context) {
		var req struct {
			SiteDomain string `json:"site_domain" binding:"required"`
			CourseID   string `json:"course_id" binding:"required"`
			SKU        string `json:"sku" binding:"required"`
			LMSUserID  int64  `json:"lms_user_id" binding:"required,min=1"`
			Amount     string `json:"amount"`
			Note       string `json:"note"`
			SubmitDate string `json:"submit_date"`
			Commit     bool   `json:"commit"`
			Confirm    bool   `json:"confirm"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		if req.Commit && !req.Confirm {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "commit requires confirm=true"})
			return
		}

		result, err := orc.Run(purchase.Request{
			SiteDomain: req.SiteDomain,
			CourseID:   req.CourseID,
			SKU:        req.SKU,
			LMSUserID:  req.LMSUserID,
			Amount:     req.Amount,
			Note:       req.Note,
			SubmitDate: req.SubmitDate,
			Commit:     req.Commit,
			CreatedBy:  "admin api",
		})
		if err != nil {
			if purchase.IsDomain(err) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"code": 422, "msg": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"code": 0,
			"data": gin.H{
				"order_number": result.OrderNumber,
				"amount":       result.Amount,
				"currency":     result.Currency,
				"dry_run":      result.DryRun,
			},
		})
	}
}
