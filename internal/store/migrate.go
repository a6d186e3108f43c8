package store

import (
	"context"

	"gorm.io/gorm"
)

// Migrate runs gorm auto-migration for every model in the domain.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(
		&Course{},
		&Payment{},
		&Coupon{},
		&CouponUsage{},
		&CourseAssignment{},
		&CommissionRecord{},
		&TeacherCommission{},
		&PayoutTransaction{},
	)
}
