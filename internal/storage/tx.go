package storage

import "gorm.io/gorm"

// Atomic runs fn inside one transaction. When discard is true the
// transaction is rolled back even after fn succeeds, so a dry run
// exercises the exact write path of a real run without persisting
// anything. Any error from fn rolls back and is returned unchanged.
func Atomic(db *gorm.DB, discard bool, fn func(tx *gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if discard {
		return tx.Rollback().Error
	}
	return tx.Commit().Error
}
