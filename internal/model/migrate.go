package model

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates the schema and seeds the reference rows the purchase
// workflow depends on (basket attribute, payment event and source types).
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Site{},
		&Partner{},
		&Course{},
		&Product{},
		&StockRecord{},
		&User{},
		&Basket{},
		&BasketAttributeType{},
		&BasketAttribute{},
		&BasketLine{},
		&Order{},
		&OrderLine{},
		&OrderLinePrice{},
		&PaymentEventType{},
		&PaymentEvent{},
		&PaymentEventQuantity{},
		&PaymentSourceType{},
		&PaymentSource{},
		&PaymentProcessorResponse{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := db.Where(BasketAttributeType{Name: BasketAttributeEmailOptIn}).
		FirstOrCreate(&BasketAttributeType{Name: BasketAttributeEmailOptIn}).Error; err != nil {
		return fmt.Errorf("seed basket attribute type: %w", err)
	}
	if err := db.Where(PaymentEventType{Code: PaymentEventPaid}).
		FirstOrCreate(&PaymentEventType{Code: PaymentEventPaid, Name: "Paid"}).Error; err != nil {
		return fmt.Errorf("seed payment event type: %w", err)
	}
	if err := db.Where(PaymentSourceType{Code: PaymentSourceManual}).
		FirstOrCreate(&PaymentSourceType{Code: PaymentSourceManual, Name: "Manual"}).Error; err != nil {
		return fmt.Errorf("seed payment source type: %w", err)
	}
	return nil
}
