package purchase

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"course_commerce/internal/model"
	"course_commerce/internal/ordernum"
	"course_commerce/internal/storage"
)

// ProcessorName tags every payment record written by this workflow so
// manually created purchases stay distinguishable from gateway ones.
const ProcessorName = "manual_order"

// SubmitDateLayout is the accepted format of the submit-date input.
const SubmitDateLayout = "2006-01-02"

// ConfirmFunc shows the operator a summary of everything about to be
// written and returns whether they approved it.
type ConfirmFunc func(summary string) (bool, error)

// Request carries the identifying inputs of a manual purchase.
type Request struct {
	SiteDomain string
	CourseID   string
	SKU        string
	LMSUserID  int64
	// Amount overrides the stock record retail price when non-empty.
	Amount string
	Note   string
	// SubmitDate backdates the purchase (YYYY-MM-DD); empty means now.
	SubmitDate string
	Commit     bool
	// CreatedBy identifies the invoking surface in the audit record.
	CreatedBy string
}

// Result describes a finished run. DryRun means every write was rolled
// back after succeeding.
type Result struct {
	OrderNumber string
	Amount      decimal.Decimal
	Currency    string
	DryRun      bool
}

// Orchestrator synthesizes the database state a real checkout would
// produce: a submitted basket, a completed order and payment records.
// All collaborators are injected at construction; nothing is resolved
// from globals.
type Orchestrator struct {
	db                  *gorm.DB
	supportedCurrencies []string
	manualPrefix        string
	now                 func() time.Time
	confirm             ConfirmFunc
	out                 io.Writer
	log                 *zerolog.Logger
}

// Options tunes an Orchestrator beyond its storage handle.
type Options struct {
	SupportedCurrencies []string
	ManualOrderPrefix   string
	// Now supplies the clock; nil means time.Now.
	Now func() time.Time
	// Confirm gates commit runs; nil rejects every commit.
	Confirm ConfirmFunc
	// Trace receives the operator progress trace; nil discards it.
	Trace io.Writer
	Log   *zerolog.Logger
}

// New builds an orchestrator over the given database handle.
func New(db *gorm.DB, opts Options) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Confirm == nil {
		opts.Confirm = func(string) (bool, error) { return false, nil }
	}
	if opts.Trace == nil {
		opts.Trace = io.Discard
	}
	if opts.Log == nil {
		nop := zerolog.Nop()
		opts.Log = &nop
	}
	if opts.ManualOrderPrefix == "" {
		opts.ManualOrderPrefix = "MANUAL-ENTRY-"
	}
	return &Orchestrator{
		db:                  db,
		supportedCurrencies: opts.SupportedCurrencies,
		manualPrefix:        opts.ManualOrderPrefix,
		now:                 opts.Now,
		confirm:             opts.Confirm,
		out:                 opts.Trace,
		log:                 opts.Log,
	}
}

// resolved holds every looked-up entity and derived value the write
// phase needs, so validation happens exactly once, up front.
type resolved struct {
	site        model.Site
	partner     model.Partner
	product     model.Product
	stockRecord model.StockRecord
	user        model.User
	currency    string
	amount      decimal.Decimal
	submitDate  time.Time
}

// Run executes the full workflow: validate, check for an existing
// order, confirm, then write everything inside one transaction that is
// discarded unless the request commits.
func (o *Orchestrator) Run(req Request) (*Result, error) {
	o.tracef("Parsing options...")
	res, err := o.resolve(req)
	if err != nil {
		return nil, err
	}
	o.tracef("Options parsed successfully.")

	o.tracef("Verifying that no previous order already exists...")
	details, found, err := o.existingOrder(res)
	if err != nil {
		o.log.Error().Err(err).Msg("existing order lookup failed")
		return nil, err
	}
	if found {
		return nil, Errorf("order already exists: %s", details)
	}
	o.tracef("Great, no order exists.")

	if req.Commit {
		ok, err := o.confirm(o.confirmationMessage(req, res))
		if err != nil {
			return nil, fmt.Errorf("confirmation prompt: %w", err)
		}
		if !ok {
			return nil, Errorf("operation canceled by operator, nothing changed")
		}
	}

	var order model.Order
	err = storage.Atomic(o.db, !req.Commit, func(tx *gorm.DB) error {
		o.tracef("Creating basket...")
		basket, err := o.createBasket(tx, res)
		if err != nil {
			return err
		}
		o.tracef("Creating order...")
		order, err = o.createOrder(tx, req, res, basket)
		if err != nil {
			return err
		}
		o.tracef("Creating payment...")
		return o.createPayment(tx, req, res, order, basket)
	})
	if err != nil {
		if !IsDomain(err) {
			o.log.Error().Err(err).Str("course_id", req.CourseID).Msg("purchase write phase failed")
		}
		return nil, err
	}

	if req.Commit {
		o.tracef("Purchase created successfully!")
		o.tracef("Order number: %s", order.Number)
	} else {
		o.tracef("Dry run completed successfully!")
	}

	return &Result{
		OrderNumber: order.Number,
		Amount:      res.amount,
		Currency:    res.currency,
		DryRun:      !req.Commit,
	}, nil
}

// resolve performs the fail-fast validation chain, one distinct error
// per field.
func (o *Orchestrator) resolve(req Request) (*resolved, error) {
	res := &resolved{}

	if err := o.db.Where("domain = ?", req.SiteDomain).First(&res.site).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errorf("site with domain %s does not exist", req.SiteDomain)
		}
		return nil, err
	}

	if err := o.db.Where("default_site_id = ?", res.site.ID).First(&res.partner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errorf("partner with default site ID %d does not exist", res.site.ID)
		}
		return nil, err
	}

	product, err := o.seatProduct(req.CourseID)
	if err != nil {
		return nil, err
	}
	res.product = *product

	err = o.db.Where("product_id = ? AND partner_id = ? AND partner_sku = ?",
		res.product.ID, res.partner.ID, req.SKU).First(&res.stockRecord).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errorf("stock record for product %d with SKU %s does not exist", res.product.ID, req.SKU)
		}
		return nil, err
	}

	res.currency = res.stockRecord.PriceCurrency
	if !o.currencySupported(res.currency) {
		return nil, Errorf("currency %s of stock record %d is not supported", res.currency, res.stockRecord.ID)
	}

	res.amount, err = o.resolveAmount(req, res.stockRecord)
	if err != nil {
		return nil, err
	}

	res.user, err = o.lookupUser(req.LMSUserID)
	if err != nil {
		return nil, err
	}

	if req.SubmitDate != "" {
		res.submitDate, err = time.Parse(SubmitDateLayout, req.SubmitDate)
		if err != nil {
			return nil, Errorf("invalid submit date format, use YYYY-MM-DD")
		}
	} else {
		res.submitDate = o.now()
	}

	return res, nil
}

// seatProduct finds the purchasable seat for a course. When the seat
// has exactly one child variant the variant is the sale target; more
// than one is ambiguous and refused.
func (o *Orchestrator) seatProduct(courseID string) (*model.Product, error) {
	var products []model.Product
	err := o.db.Where("course_id = ? AND product_class = ?", courseID, model.ProductClassSeat).
		Limit(2).Find(&products).Error
	if err != nil {
		return nil, err
	}
	switch len(products) {
	case 0:
		return nil, Errorf("course with ID %s does not exist in products", courseID)
	case 1:
	default:
		return nil, Errorf("multiple products with ID %s exist", courseID)
	}
	product := products[0]

	var children []model.Product
	err = o.db.Where("course_id = ? AND parent_id = ?", courseID, product.ID).
		Limit(2).Find(&children).Error
	if err != nil {
		return nil, err
	}
	if len(children) > 1 {
		return nil, Errorf("too many product options for the course with ID %s", courseID)
	}
	if len(children) == 1 {
		return &children[0], nil
	}
	return &product, nil
}

func (o *Orchestrator) currencySupported(currency string) bool {
	for _, c := range o.supportedCurrencies {
		if c == currency {
			return true
		}
	}
	return false
}

// resolveAmount takes the operator override when given, otherwise the
// stock record's retail price. Either way the amount must be positive.
func (o *Orchestrator) resolveAmount(req Request, sr model.StockRecord) (decimal.Decimal, error) {
	var amount decimal.Decimal
	if req.Amount != "" {
		parsed, err := decimal.NewFromString(req.Amount)
		if err != nil {
			return decimal.Zero, Errorf("invalid amount format, use a number")
		}
		amount = parsed
	} else {
		if !sr.PriceRetail.Valid {
			return decimal.Zero, Errorf(
				"price for stock record %d is not set, fill it or pass an amount", sr.ID)
		}
		amount = sr.PriceRetail.Decimal
	}
	if !amount.IsPositive() {
		return decimal.Zero, Errorf("amount must be greater than 0")
	}
	return amount, nil
}

// lookupUser resolves the purchaser by LMS id. Zero or multiple rows
// are both errors, never a silent pick.
func (o *Orchestrator) lookupUser(lmsUserID int64) (model.User, error) {
	var users []model.User
	if err := o.db.Where("lms_user_id = ?", lmsUserID).Limit(2).Find(&users).Error; err != nil {
		return model.User{}, err
	}
	switch len(users) {
	case 0:
		return model.User{}, Errorf("user with LMS ID %d does not exist", lmsUserID)
	case 1:
		return users[0], nil
	default:
		return model.User{}, Errorf("multiple users with LMS ID %d exist", lmsUserID)
	}
}

// existingOrder is the advisory idempotency guard: at most one
// synthetic purchase per (user, course) through this path. Concurrent
// invocations can still race past it; callers run the command serially.
func (o *Orchestrator) existingOrder(res *resolved) (string, bool, error) {
	var existing model.Order
	err := o.db.Model(&model.Order{}).
		Select("orders.*").
		Joins("JOIN order_lines ON order_lines.order_id = orders.id").
		Joins("JOIN products ON products.id = order_lines.product_id").
		Where("orders.user_id = ? AND orders.site_id = ?", res.user.ID, res.site.ID).
		Where("order_lines.partner_id = ?", res.partner.ID).
		Where("products.course_id = ?", res.product.CourseID).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	details := fmt.Sprintf("id=%d number=%s date_placed=%s total_incl_tax=%s",
		existing.ID, existing.Number, existing.DatePlaced.Format(time.RFC3339), existing.TotalInclTax)
	return details, true, nil
}

// confirmationMessage lists every field about to be written so the
// operator approves exactly what will land in the database.
func (o *Orchestrator) confirmationMessage(req Request, res *resolved) string {
	return fmt.Sprintf(
		"You are about to manually create a purchase order with its payment. Here are the details:\n\n"+
			"user ID in LMS: %d\n"+
			"user ID in ecommerce: %d\n"+
			"username in ecommerce: %s\n"+
			"user email in ecommerce: %s\n"+
			"course id: %s\n"+
			"site: %s\n"+
			"SKU: %s\n"+
			"price: %s\n"+
			"currency: %s\n"+
			"invoice date: %s\n"+
			"admin note: %s\n\n"+
			"Would you like to create the purchase? (yes/No): ",
		req.LMSUserID, res.user.ID, res.user.Username, res.user.Email,
		res.product.CourseID, res.site.Domain, req.SKU,
		res.amount, res.currency, res.submitDate.Format(SubmitDateLayout), req.Note)
}

// createBasket writes the basket, its email opt-in attribute and its
// single line, then flips it straight to submitted. The normal
// open -> submitted lifecycle is skipped on purpose.
func (o *Orchestrator) createBasket(tx *gorm.DB, res *resolved) (model.Basket, error) {
	basket := model.Basket{
		Status:        model.BasketOpen,
		OwnerID:       res.user.ID,
		SiteID:        res.site.ID,
		DateSubmitted: &res.submitDate,
	}
	if err := tx.Create(&basket).Error; err != nil {
		return model.Basket{}, fmt.Errorf("create basket: %w", err)
	}

	var attrType model.BasketAttributeType
	if err := tx.Where("name = ?", model.BasketAttributeEmailOptIn).First(&attrType).Error; err != nil {
		return model.Basket{}, fmt.Errorf("lookup basket attribute type: %w", err)
	}
	attr := model.BasketAttribute{
		BasketID:        basket.ID,
		AttributeTypeID: attrType.ID,
		ValueText:       "false",
	}
	if err := tx.Create(&attr).Error; err != nil {
		return model.Basket{}, fmt.Errorf("create basket attribute: %w", err)
	}

	line := model.BasketLine{
		BasketID:      basket.ID,
		LineReference: fmt.Sprintf("%d-%d", res.product.ID, res.stockRecord.ID),
		ProductID:     res.product.ID,
		StockRecordID: res.stockRecord.ID,
		Quantity:      1,
		PriceCurrency: res.currency,
		PriceExclTax:  res.amount,
		PriceInclTax:  res.amount,
	}
	if err := tx.Create(&line).Error; err != nil {
		return model.Basket{}, fmt.Errorf("create basket line: %w", err)
	}

	basket.Status = model.BasketSubmitted
	if err := tx.Save(&basket).Error; err != nil {
		return model.Basket{}, fmt.Errorf("submit basket: %w", err)
	}
	return basket, nil
}

// createOrder writes the completed order with its line and line price.
// Committed runs use the real numbering scheme; dry runs draw from the
// manual-entry sequence so rolled-back numbers never shadow real ones.
func (o *Orchestrator) createOrder(tx *gorm.DB, req Request, res *resolved, basket model.Basket) (model.Order, error) {
	var number string
	if req.Commit {
		number = ordernum.FromBasket(res.partner.ShortCode, basket.ID)
	} else {
		var err error
		number, err = ordernum.NextManual(tx, o.manualPrefix)
		if err != nil {
			return model.Order{}, fmt.Errorf("manual order number: %w", err)
		}
	}

	order := model.Order{
		Number:       number,
		BasketID:     basket.ID,
		SiteID:       res.site.ID,
		UserID:       res.user.ID,
		Currency:     res.currency,
		TotalExclTax: res.amount,
		TotalInclTax: res.amount,
		DatePlaced:   res.submitDate,
		Status:       model.OrderComplete,
	}
	if err := tx.Create(&order).Error; err != nil {
		return model.Order{}, fmt.Errorf("create order: %w", err)
	}

	line := model.OrderLine{
		OrderID:       order.ID,
		PartnerID:     res.partner.ID,
		PartnerName:   res.partner.Name,
		PartnerSKU:    res.stockRecord.PartnerSKU,
		ProductID:     res.product.ID,
		StockRecordID: res.stockRecord.ID,
		Title:         res.product.Title,
		Quantity:      1,

		LinePriceExclTax:                res.amount,
		LinePriceInclTax:                res.amount,
		LinePriceBeforeDiscountsExclTax: res.amount,
		LinePriceBeforeDiscountsInclTax: res.amount,
		UnitPriceExclTax:                res.amount,
		UnitPriceInclTax:                res.amount,
		Status:                          model.OrderComplete,
	}
	if err := tx.Create(&line).Error; err != nil {
		return model.Order{}, fmt.Errorf("create order line: %w", err)
	}

	price := model.OrderLinePrice{
		OrderID:      order.ID,
		LineID:       line.ID,
		Quantity:     1,
		PriceExclTax: res.amount,
		PriceInclTax: res.amount,
	}
	if err := tx.Create(&price).Error; err != nil {
		return model.Order{}, fmt.Errorf("create order line price: %w", err)
	}

	order.Lines = []model.OrderLine{line}
	return order, nil
}

// createPayment writes the paid event, the line quantity, the audit
// processor response and the fully allocated manual payment source.
func (o *Orchestrator) createPayment(tx *gorm.DB, req Request, res *resolved, order model.Order, basket model.Basket) error {
	var eventType model.PaymentEventType
	if err := tx.Where("code = ?", model.PaymentEventPaid).First(&eventType).Error; err != nil {
		return fmt.Errorf("lookup payment event type: %w", err)
	}
	event := model.PaymentEvent{
		OrderID:       order.ID,
		EventTypeID:   eventType.ID,
		Amount:        res.amount,
		Reference:     order.Number,
		ProcessorName: ProcessorName,
	}
	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("create payment event: %w", err)
	}

	quantity := model.PaymentEventQuantity{
		EventID:  event.ID,
		LineID:   order.Lines[0].ID,
		Quantity: 1,
	}
	if err := tx.Create(&quantity).Error; err != nil {
		return fmt.Errorf("create payment event quantity: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"run_id":                 uuid.New().String(),
		"created_by":             req.CreatedBy,
		"created_on":             o.now().Format(time.RFC3339),
		"command_options":        req,
		"user_note":              req.Note,
		"admin_confirmation_msg": o.confirmationMessage(req, res),
	})
	if err != nil {
		return fmt.Errorf("marshal processor response: %w", err)
	}
	response := model.PaymentProcessorResponse{
		ProcessorName: ProcessorName,
		TransactionID: order.Number,
		BasketID:      basket.ID,
		Response:      datatypes.JSON(payload),
	}
	if err := tx.Create(&response).Error; err != nil {
		return fmt.Errorf("create processor response: %w", err)
	}

	var sourceType model.PaymentSourceType
	if err := tx.Where("code = ?", model.PaymentSourceManual).First(&sourceType).Error; err != nil {
		return fmt.Errorf("lookup payment source type: %w", err)
	}
	source := model.PaymentSource{
		OrderID:         order.ID,
		SourceTypeID:    sourceType.ID,
		Currency:        res.currency,
		AmountAllocated: res.amount,
		AmountDebited:   res.amount,
		AmountRefunded:  decimal.Zero,
		Reference:       order.Number,
		Label:           "Manual Payment",
		CardType:        "manual",
	}
	if err := tx.Create(&source).Error; err != nil {
		return fmt.Errorf("create payment source: %w", err)
	}
	return nil
}

func (o *Orchestrator) tracef(format string, args ...any) {
	fmt.Fprintf(o.out, format+"\n", args...)
}
