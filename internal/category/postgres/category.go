package postgres

import (
	"context"
	"errors"

	appErrors "github.com/frahmantamala/pocket-ledger/internal"
	"github.com/frahmantamala/pocket-ledger/internal/category"
	categoryDatamodel "github.com/frahmantamala/pocket-ledger/internal/core/datamodel/category"
	transactionDatamodel "github.com/frahmantamala/pocket-ledger/internal/core/datamodel/transaction"
	"gorm.io/gorm"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) category.RepositoryAPI {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) GetAll(ctx context.Context) ([]*categoryDatamodel.Category, error) {
	var categories []*categoryDatamodel.Category
	err := r.db.WithContext(ctx).Order("id ASC").Find(&categories).Error
	return categories, err
}

func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*categoryDatamodel.Category, error) {
	var cat categoryDatamodel.Category
	err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&cat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cat, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*categoryDatamodel.Category, error) {
	var cat categoryDatamodel.Category
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&cat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cat, nil
}

func (r *CategoryRepository) Create(ctx context.Context, cat *categoryDatamodel.Category) error {
	return r.db.WithContext(ctx).Create(cat).Error
}

func (r *CategoryRepository) Update(ctx context.Context, cat *categoryDatamodel.Category) error {
	return r.db.WithContext(ctx).Save(cat).Error
}

// Delete checks for referencing transactions and removes the row in one
// storage transaction. The FK restriction backs up the check.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&transactionDatamodel.Transaction{}).
			Where("category_id = ?", id).
			Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return appErrors.ErrCategoryInUse
		}

		result := tx.Where("id = ?", id).Delete(&categoryDatamodel.Category{})
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrForeignKeyViolated) {
				return appErrors.ErrCategoryInUse
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return appErrors.ErrCategoryNotFound
		}
		return nil
	})
}
