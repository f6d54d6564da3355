package scope

import "gorm.io/gorm"

func OrderByCreatedDesc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

func OrderByWindowStartAsc(db *gorm.DB) *gorm.DB {
	return db.Order("window_start ASC")
}

func OrderByCapturedAsc(db *gorm.DB) *gorm.DB {
	return db.Order("captured_at ASC")
}
