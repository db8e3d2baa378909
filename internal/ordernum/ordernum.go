package ordernum

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"course_commerce/internal/model"
)

// Offset keeps real order numbers from ever equalling a raw basket id.
const Offset = 100000

// ManualDigits is the zero-padded width of manual-entry numbers.
const ManualDigits = 6

// FromBasket derives the production order number for a basket:
// partner short code, dash, offset basket id.
func FromBasket(partnerShortCode string, basketID uint) string {
	return fmt.Sprintf("%s-%d", strings.ToUpper(partnerShortCode), uint64(basketID)+Offset)
}

// NextManual returns the next number in the manual-entry sequence by
// scanning the highest existing one. Dry runs use this sequence so
// their numbers never collide with real orders.
func NextManual(db *gorm.DB, prefix string) (string, error) {
	var last int

	var order model.Order
	err := db.Where("number LIKE ?", prefix+"%").Order("number DESC").First(&order).Error
	switch {
	case err == nil:
		n, convErr := strconv.Atoi(strings.TrimPrefix(order.Number, prefix))
		if convErr != nil {
			return "", fmt.Errorf("malformed manual order number %q: %w", order.Number, convErr)
		}
		last = n
	case errors.Is(err, gorm.ErrRecordNotFound):
		last = 0
	default:
		return "", err
	}

	return fmt.Sprintf("%s%0*d", prefix, ManualDigits, last+1), nil
}
