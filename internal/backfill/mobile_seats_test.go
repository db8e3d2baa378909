package backfill

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"course_commerce/internal/catalog"
	"course_commerce/internal/model"
	"course_commerce/internal/notify"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, model.Migrate(db))
	return db
}

type fakeCatalog struct {
	parentByRun map[string]string
	runsByKey   map[string][]string
	failRuns    map[string]bool
	calls       int
}

func (f *fakeCatalog) CourseRunDetail(_ context.Context, courseRunID string) (*catalog.CourseRunDetail, error) {
	f.calls++
	if f.failRuns[courseRunID] {
		return nil, fmt.Errorf("catalog unavailable")
	}
	return &catalog.CourseRunDetail{Course: f.parentByRun[courseRunID]}, nil
}

func (f *fakeCatalog) CourseDetail(_ context.Context, courseKey string) (*catalog.CourseDetail, error) {
	return &catalog.CourseDetail{CourseRunKeys: f.runsByKey[courseKey]}, nil
}

type fakeNotifier struct {
	sent []notify.Alert
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, alert notify.Alert) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, alert)
	return nil
}

// seedCoursePair creates an expired run with a mobile SKU and a fresh
// sibling run that has only a web SKU, sharing one partner.
func seedCoursePair(t *testing.T, db *gorm.DB, now time.Time) (expired, fresh model.Course) {
	t.Helper()

	site := model.Site{Domain: "shop.example.com", Name: "Example Shop"}
	require.NoError(t, db.Create(&site).Error)
	partner := model.Partner{Name: "Example Partner", ShortCode: "EXMP", DefaultSiteID: site.ID}
	require.NoError(t, db.Create(&partner).Error)

	expired = model.Course{ID: "course-v1:Org+Course+Old", Name: "Old Run"}
	fresh = model.Course{ID: "course-v1:Org+Course+New", Name: "New Run"}
	require.NoError(t, db.Create(&expired).Error)
	require.NoError(t, db.Create(&fresh).Error)

	pastExpiry := now.Add(-10 * 24 * time.Hour)
	futureExpiry := now.Add(60 * 24 * time.Hour)

	// Expired run: parent seat with a verified child sold through mobile.
	oldParent := model.Product{
		Structure: model.ProductParent, ProductClass: model.ProductClassSeat,
		CourseID: expired.ID, Title: "Seat in Old Run",
	}
	require.NoError(t, db.Create(&oldParent).Error)
	oldChild := model.Product{
		Structure: model.ProductChild, ParentID: &oldParent.ID,
		CourseID: expired.ID, Title: "Seat in Old Run",
		CertificateType: model.CertificateTypeVerified, Expires: &pastExpiry,
	}
	require.NoError(t, db.Create(&oldChild).Error)
	require.NoError(t, db.Create(&model.StockRecord{
		ProductID: oldChild.ID, PartnerID: partner.ID,
		PartnerSKU: "mobile.ios.oldsku", PriceCurrency: "SAR",
		Price: decimal.NewFromInt(100),
	}).Error)

	// Fresh run: parent seat whose verified child only has a web SKU.
	newParent := model.Product{
		Structure: model.ProductParent, ProductClass: model.ProductClassSeat,
		CourseID: fresh.ID, Title: "Seat in New Run",
	}
	require.NoError(t, db.Create(&newParent).Error)
	newChild := model.Product{
		Structure: model.ProductChild, ParentID: &newParent.ID,
		CourseID: fresh.ID, Title: "Seat in New Run",
		CertificateType: model.CertificateTypeVerified, Expires: &futureExpiry,
	}
	require.NoError(t, db.Create(&newChild).Error)
	require.NoError(t, db.Create(&model.StockRecord{
		ProductID: newChild.ID, PartnerID: partner.ID,
		PartnerSKU: "NEWSKU", PriceCurrency: "SAR",
		Price:       decimal.NewFromInt(150),
		PriceRetail: decimal.NullDecimal{Valid: true, Decimal: decimal.NewFromInt(150)},
	}).Error)

	return expired, fresh
}

func TestRunCreatesMissingMobileSKUs(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	expired, fresh := seedCoursePair(t, db, now)

	cat := &fakeCatalog{
		parentByRun: map[string]string{expired.ID: "Org+Course"},
		runsByKey:   map[string][]string{"Org+Course": {expired.ID, fresh.ID}},
	}
	notifier := &fakeNotifier{}
	job := New(db, Options{
		Catalog: cat, Notifier: notifier, OpsMailbox: "mobile-team@example.com",
		Now: func() time.Time { return now }, Sleep: func(time.Duration) {},
	})

	stats, err := job.Run(context.Background(), 1000, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ExpiredCourses)
	assert.Equal(t, 2, stats.SKUsCreated)
	assert.True(t, stats.Alerted)

	var records []model.StockRecord
	require.NoError(t, db.Where("partner_sku LIKE ?", "mobile.%.newsku").Order("partner_sku").Find(&records).Error)
	require.Len(t, records, 2)
	assert.Equal(t, "mobile.android.newsku", records[0].PartnerSKU)
	assert.Equal(t, "mobile.ios.newsku", records[1].PartnerSKU)
	for _, r := range records {
		assert.True(t, r.Price.Equal(decimal.NewFromInt(150)))
		assert.Equal(t, "SAR", r.PriceCurrency)
	}

	require.Len(t, notifier.sent, 1)
	alert := notifier.sent[0]
	assert.Equal(t, "mobile-team@example.com", alert.Recipient)
	assert.Equal(t, "Expired Courses with mobile SKUS alert", alert.Subject)
	assert.Contains(t, alert.Body, expired.ID)
}

func TestRunIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	expired, fresh := seedCoursePair(t, db, now)

	cat := &fakeCatalog{
		parentByRun: map[string]string{expired.ID: "Org+Course"},
		runsByKey:   map[string][]string{"Org+Course": {expired.ID, fresh.ID}},
	}
	job := New(db, Options{
		Catalog: cat, Notifier: &fakeNotifier{}, OpsMailbox: "mobile-team@example.com",
		Now: func() time.Time { return now }, Sleep: func(time.Duration) {},
	})

	_, err := job.Run(context.Background(), 1000, 0)
	require.NoError(t, err)
	stats, err := job.Run(context.Background(), 1000, 0)
	require.NoError(t, err)

	// Second pass finds the mobile SKUs already present.
	assert.Equal(t, 0, stats.SKUsCreated)
	var n int64
	require.NoError(t, db.Model(&model.StockRecord{}).
		Where("partner_sku LIKE ?", "mobile.%.newsku").Count(&n).Error)
	assert.EqualValues(t, 2, n)
}

func TestNoMailboxSkipsAlert(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	expired, fresh := seedCoursePair(t, db, now)

	cat := &fakeCatalog{
		parentByRun: map[string]string{expired.ID: "Org+Course"},
		runsByKey:   map[string][]string{"Org+Course": {expired.ID, fresh.ID}},
	}
	notifier := &fakeNotifier{}
	job := New(db, Options{
		Catalog: cat, Notifier: notifier,
		Now: func() time.Time { return now }, Sleep: func(time.Duration) {},
	})

	stats, err := job.Run(context.Background(), 1000, 0)
	require.NoError(t, err)
	assert.False(t, stats.Alerted)
	assert.Empty(t, notifier.sent)
	// The backfill itself still happens.
	assert.Equal(t, 2, stats.SKUsCreated)
}

func TestCatalogFailureSkipsCourse(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	expired, _ := seedCoursePair(t, db, now)

	cat := &fakeCatalog{
		parentByRun: map[string]string{},
		runsByKey:   map[string][]string{},
		failRuns:    map[string]bool{expired.ID: true},
	}
	job := New(db, Options{
		Catalog: cat, Notifier: &fakeNotifier{}, OpsMailbox: "mobile-team@example.com",
		Now: func() time.Time { return now }, Sleep: func(time.Duration) {},
	})

	stats, err := job.Run(context.Background(), 1000, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ExpiredCourses)
	assert.Equal(t, 0, stats.SKUsCreated)
}

func TestThrottleSleepsAfterEveryBatch(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	expired, fresh := seedCoursePair(t, db, now)

	var pauses []time.Duration
	cat := &fakeCatalog{
		parentByRun: map[string]string{expired.ID: "Org+Course"},
		runsByKey:   map[string][]string{"Org+Course": {expired.ID, fresh.ID}},
	}
	job := New(db, Options{
		Catalog: cat, Notifier: &fakeNotifier{}, OpsMailbox: "mobile-team@example.com",
		Now:   func() time.Time { return now },
		Sleep: func(d time.Duration) { pauses = append(pauses, d) },
	})

	_, err := job.Run(context.Background(), 1, 7*time.Second)
	require.NoError(t, err)
	require.Len(t, pauses, 1)
	assert.Equal(t, 7*time.Second, pauses[0])
}
