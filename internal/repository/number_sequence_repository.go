package repository

import (
	"context"
	"errors"

	"github.com/vantage-media/quote-api/internal/domain"
	"gorm.io/gorm"
)

type NumberSequenceRepository struct {
	db *gorm.DB
}

func NewNumberSequenceRepository(db *gorm.DB) *NumberSequenceRepository {
	return &NumberSequenceRepository{db: db}
}

// GetNextNumber atomically increments and returns the counter for a
// company/year. The increment runs as a single UPDATE so concurrent callers
// never observe the same value.
func (r *NumberSequenceRepository) GetNextNumber(ctx context.Context, companyID domain.CompanyID, year int) (int, error) {
	var next int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.NumberSequence{}).
			Where("company_id = ? AND year = ?", companyID, year).
			UpdateColumn("last_number", gorm.Expr("last_number + 1"))
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			seq := domain.NumberSequence{CompanyID: companyID, Year: year, LastNumber: 1}
			if err := tx.Create(&seq).Error; err != nil {
				// Lost the race to create the row, retry the increment
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					res = tx.Model(&domain.NumberSequence{}).
						Where("company_id = ? AND year = ?", companyID, year).
						UpdateColumn("last_number", gorm.Expr("last_number + 1"))
					if res.Error != nil {
						return res.Error
					}
				} else {
					return err
				}
			} else {
				next = 1
				return nil
			}
		}

		var seq domain.NumberSequence
		if err := tx.Where("company_id = ? AND year = ?", companyID, year).First(&seq).Error; err != nil {
			return err
		}
		next = seq.LastNumber
		return nil
	})
	if err != nil {
		return 0, err
	}

	return next, nil
}
