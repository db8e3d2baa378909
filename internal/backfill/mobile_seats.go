package backfill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"course_commerce/internal/catalog"
	"course_commerce/internal/model"
	"course_commerce/internal/notify"
	"course_commerce/internal/storage"
)

// MobileSKUToken marks a stock record as belonging to the mobile sales
// channel.
const MobileSKUToken = "mobile"

// MobilePlatforms are the channels a mobile seat is created for.
var MobilePlatforms = []string{"ios", "android"}

// expiredWindow is how far back the scan looks for expired mobile seats.
const expiredWindow = 30 * 24 * time.Hour

// CatalogAPI is the slice of the catalog client the job needs.
type CatalogAPI interface {
	CourseRunDetail(ctx context.Context, courseRunID string) (*catalog.CourseRunDetail, error)
	CourseDetail(ctx context.Context, courseKey string) (*catalog.CourseDetail, error)
}

// Job scans for recently expired mobile seats, alerts the ops mailbox,
// and creates missing mobile SKUs for sibling course runs.
type Job struct {
	db         *gorm.DB
	catalog    CatalogAPI
	notifier   notify.Notifier
	opsMailbox string
	now        func() time.Time
	sleep      func(time.Duration)
	log        *zerolog.Logger
}

// Options wires a Job's collaborators.
type Options struct {
	Catalog    CatalogAPI
	Notifier   notify.Notifier
	OpsMailbox string
	// Now supplies the clock; nil means time.Now.
	Now func() time.Time
	// Sleep lets tests skip the throttle pauses; nil means time.Sleep.
	Sleep func(time.Duration)
	Log   *zerolog.Logger
}

// Stats summarizes one run for the operator.
type Stats struct {
	ExpiredCourses int
	SKUsCreated    int
	Alerted        bool
}

// New builds a backfill job.
func New(db *gorm.DB, opts Options) *Job {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.Log == nil {
		nop := zerolog.Nop()
		opts.Log = &nop
	}
	return &Job{
		db:         db,
		catalog:    opts.Catalog,
		notifier:   opts.Notifier,
		opsMailbox: opts.OpsMailbox,
		now:        opts.Now,
		sleep:      opts.Sleep,
		log:        opts.Log,
	}
}

// Run processes every recently expired mobile course. After batchSize
// courses it sleeps sleepTime — a fixed-count pause to go easy on the
// catalog service, not real backpressure.
func (j *Job) Run(ctx context.Context, batchSize int, sleepTime time.Duration) (*Stats, error) {
	stats := &Stats{}

	courses, err := j.expiredMobileCourses()
	if err != nil {
		return nil, fmt.Errorf("scan expired mobile courses: %w", err)
	}
	stats.ExpiredCourses = len(courses)
	if len(courses) == 0 {
		j.log.Info().Msg("no expired mobile courses found")
		return stats, nil
	}

	stats.Alerted = j.alertExpiredCourses(ctx, courses)

	batchCounter := 0
	for _, course := range courses {
		created, err := j.processCourse(ctx, course)
		if err != nil {
			// Catalog hiccups skip the course, they never kill the run.
			j.log.Error().Err(err).Str("course_id", course.ID).Msg("backfill course skipped")
			continue
		}
		stats.SKUsCreated += created

		batchCounter++
		if batchCounter >= batchSize {
			j.log.Info().Dur("sleep", sleepTime).Msg("batch limit reached, throttling")
			j.sleep(sleepTime)
			batchCounter = 0
		}
	}
	return stats, nil
}

// expiredMobileCourses finds courses whose verified mobile seats
// expired within the scan window.
func (j *Job) expiredMobileCourses() ([]model.Course, error) {
	now := j.now()

	var courseIDs []string
	err := j.db.Model(&model.Product{}).
		Distinct().
		Joins("JOIN products AS parents ON parents.id = products.parent_id").
		Joins("JOIN stock_records ON stock_records.product_id = products.id").
		Where("products.certificate_type = ?", model.CertificateTypeVerified).
		Where("parents.product_class = ?", model.ProductClassSeat).
		Where("stock_records.partner_sku LIKE ?", "%"+MobileSKUToken+"%").
		Where("products.expires < ? AND products.expires > ?", now, now.Add(-expiredWindow)).
		Pluck("products.course_id", &courseIDs).Error
	if err != nil {
		return nil, err
	}
	if len(courseIDs) == 0 {
		return nil, nil
	}

	var courses []model.Course
	if err := j.db.Where("id IN ?", courseIDs).Order("id").Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

// alertExpiredCourses mails the ops team the expired course list. A
// missing mailbox just logs; the backfill still runs.
func (j *Job) alertExpiredCourses(ctx context.Context, courses []model.Course) bool {
	if j.opsMailbox == "" {
		j.log.Info().Msg("no ops mailbox configured, skipping expired courses alert")
		return false
	}

	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	alert := notify.Alert{
		ID:        uuid.New().String(),
		Recipient: j.opsMailbox,
		Subject:   "Expired Courses with mobile SKUS alert",
		Body:      strings.Join(ids, "\n"),
		CreatedAt: j.now(),
	}
	if err := j.notifier.Send(ctx, alert); err != nil {
		j.log.Error().Err(err).Msg("expired courses alert failed")
		return false
	}
	j.log.Info().Str("recipient", j.opsMailbox).Int("courses", len(ids)).
		Msg("sent expired courses alert")
	return true
}

// processCourse resolves the course's parent in the catalog, collects
// all sibling run keys, and creates mobile SKUs where they are missing.
func (j *Job) processCourse(ctx context.Context, course model.Course) (int, error) {
	runDetail, err := j.catalog.CourseRunDetail(ctx, course.ID)
	if err != nil {
		return 0, fmt.Errorf("fetch parent course from catalog: %w", err)
	}
	if runDetail.Course == "" {
		return 0, fmt.Errorf("catalog returned no parent course for %s", course.ID)
	}

	courseDetail, err := j.catalog.CourseDetail(ctx, runDetail.Course)
	if err != nil {
		return 0, fmt.Errorf("fetch course runs from catalog: %w", err)
	}
	if len(courseDetail.CourseRunKeys) == 0 {
		return 0, nil
	}

	parents, err := j.parentsNeedingMobileSKUs(courseDetail.CourseRunKeys)
	if err != nil {
		return 0, fmt.Errorf("select parents needing mobile SKUs: %w", err)
	}

	created := 0
	for _, parent := range parents {
		n, err := j.createMobileChildren(parent)
		if err != nil {
			return created, fmt.Errorf("create mobile children for product %d: %w", parent.ID, err)
		}
		created += n
	}
	return created, nil
}

// parentsNeedingMobileSKUs selects parent seats among the given runs
// that have a verified, unexpired web child with a stock record but no
// mobile SKU yet.
func (j *Job) parentsNeedingMobileSKUs(runKeys []string) ([]model.Product, error) {
	now := j.now()

	var parents []model.Product
	err := j.db.
		Where("structure = ? AND product_class = ?", model.ProductParent, model.ProductClassSeat).
		Where("course_id IN ?", runKeys).
		Where(`EXISTS (
			SELECT 1 FROM products c
			JOIN stock_records sr ON sr.product_id = c.id
			WHERE c.parent_id = products.id
			  AND c.deleted_at IS NULL
			  AND c.certificate_type = ?
			  AND c.expires > ?)`, model.CertificateTypeVerified, now).
		Where(`NOT EXISTS (
			SELECT 1 FROM products c
			JOIN stock_records sr ON sr.product_id = c.id
			WHERE c.parent_id = products.id
			  AND c.deleted_at IS NULL
			  AND sr.partner_sku LIKE ?)`, "%"+MobileSKUToken+"%").
		Order("id").
		Find(&parents).Error
	return parents, err
}

// createMobileChildren clones the parent's verified web child into one
// mobile child per platform, copying price, currency and expiry.
func (j *Job) createMobileChildren(parent model.Product) (int, error) {
	now := j.now()

	var webChild model.Product
	err := j.db.
		Where("parent_id = ? AND certificate_type = ?", parent.ID, model.CertificateTypeVerified).
		Where("expires > ?", now).
		Where(`EXISTS (SELECT 1 FROM stock_records sr WHERE sr.product_id = products.id AND sr.partner_sku NOT LIKE ?)`,
			"%"+MobileSKUToken+"%").
		First(&webChild).Error
	if err != nil {
		return 0, fmt.Errorf("find web child: %w", err)
	}

	var webRecord model.StockRecord
	err = j.db.
		Where("product_id = ? AND partner_sku NOT LIKE ?", webChild.ID, "%"+MobileSKUToken+"%").
		First(&webRecord).Error
	if err != nil {
		return 0, fmt.Errorf("find web stock record: %w", err)
	}

	created := 0
	err = storage.Atomic(j.db, false, func(tx *gorm.DB) error {
		for _, platform := range MobilePlatforms {
			child := model.Product{
				Structure:       model.ProductChild,
				ParentID:        &parent.ID,
				CourseID:        webChild.CourseID,
				Title:           webChild.Title,
				CertificateType: model.CertificateTypeVerified,
				Expires:         webChild.Expires,
				IsPublic:        false,
			}
			if err := tx.Create(&child).Error; err != nil {
				return err
			}
			record := model.StockRecord{
				ProductID:     child.ID,
				PartnerID:     webRecord.PartnerID,
				PartnerSKU:    MobileSKU(platform, webRecord.PartnerSKU),
				PriceCurrency: webRecord.PriceCurrency,
				Price:         webRecord.Price,
				PriceRetail:   webRecord.PriceRetail,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	j.log.Info().Str("course_id", webChild.CourseID).Int("skus", created).
		Msg("created mobile SKUs")
	return created, nil
}

// MobileSKU derives a mobile-channel SKU from the web SKU.
func MobileSKU(platform, webSKU string) string {
	return fmt.Sprintf("%s.%s.%s", MobileSKUToken, platform, strings.ToLower(webSKU))
}
