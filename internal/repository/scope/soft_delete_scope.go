package scope

import "gorm.io/gorm"

// WithSoftDelete includes soft deleted records. The retention sweep uses
// this to find sessions that are past the hard-delete cutoff.
func WithSoftDelete(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

// ExcludeSoftDelete is effectively the default behavior but made explicit
func ExcludeSoftDelete(db *gorm.DB) *gorm.DB {
	return db.Where("deleted_at IS NULL")
}
