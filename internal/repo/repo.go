package repo

import "gorm.io/gorm"

// GormRepo is the single data-access point for users, the refresh-token
// revocation ledger and place coordinates.
type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}
