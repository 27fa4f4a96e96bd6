package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ktarasov/placehub/internal/models"
)

// ErrLedgerDuplicate signals the jti was already recorded in the ledger.
var ErrLedgerDuplicate = errors.New("jti already in revocation ledger")

func (r *GormRepo) LedgerContains(ctx context.Context, jti string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.BlockedRefreshToken{}).
		Where("jti = ?", jti).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// LedgerInsert records a consumed jti. The unique index on jti makes this the
// atomic check-and-consume step: of two concurrent inserts for the same jti
// exactly one succeeds, the other gets ErrLedgerDuplicate.
func (r *GormRepo) LedgerInsert(ctx context.Context, jti string) error {
	record := models.BlockedRefreshToken{JTI: jti}
	if err := r.DB.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrLedgerDuplicate
		}
		return err
	}
	return nil
}
