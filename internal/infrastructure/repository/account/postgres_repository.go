package account

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/recava/recava-server/internal/domain/billing"
	"github.com/recava/recava-server/internal/infrastructure/database/entities"
)

// PostgresRepository persists user credit balances via PostgreSQL using GORM.
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository creates a repository backed by the provided DB.
func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var _ domain.Repository = (*PostgresRepository)(nil)

// IncrementCredits adds delta to the balance in a single upsert, creating
// the account row with the starting balance when it does not exist.
func (r *PostgresRepository) IncrementCredits(ctx context.Context, uid string, delta int64) error {
	row := entities.UserAccount{UID: uid, Credits: delta}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "uid"}},
			DoUpdates: clause.Assignments(map[string]any{
				"credits": gorm.Expr("user_accounts.credits + ?", delta),
			}),
		}).
		Create(&row).Error
}

// DeductCredit removes one credit inside a transaction, failing with
// ErrInsufficientCredits when the balance is zero or the account is missing.
func (r *PostgresRepository) DeductCredit(ctx context.Context, uid string) (int64, error) {
	var remaining int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row entities.UserAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("uid = ?", uid).
			First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrInsufficientCredits
			}
			return err
		}
		if row.Credits <= 0 {
			return domain.ErrInsufficientCredits
		}
		remaining = row.Credits - 1
		return tx.Model(&entities.UserAccount{}).
			Where("uid = ?", uid).
			Update("credits", remaining).Error
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// Credits returns the current balance; missing accounts report zero.
func (r *PostgresRepository) Credits(ctx context.Context, uid string) (int64, error) {
	var row entities.UserAccount
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.Credits, nil
}
