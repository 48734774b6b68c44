package repository

import "gorm.io/gorm"

// Migrate creates/updates the core tables. The mains call it on startup;
// tests call it against a throwaway sqlite file.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&academyModel{},
		&bookingModel{},
		&jobModel{},
		&auditEventModel{},
		&payoutAccountModel{},
		&deviceTokenModel{},
		&userContactModel{},
	)
}
