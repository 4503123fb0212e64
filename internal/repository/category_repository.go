package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/gekymedia/blacktask/internal/model"
	"github.com/gekymedia/blacktask/internal/service"
)

// CategoryRepository manages task categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) error {
	if category.Color == "" {
		category.Color = model.DefaultCategoryColor
	}
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// FindByIDAndOwner looks a category up scoped to its owner, so a
// foreign category id behaves exactly like a missing one.
func (r *CategoryRepository) FindByIDAndOwner(ctx context.Context, userID, categoryID uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, categoryID).
		First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &category, nil
}

func (r *CategoryRepository) ListByUser(ctx context.Context, userID uint) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, userID, categoryID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, categoryID).
		Delete(&model.Category{})
	if res.Error != nil {
		return false, fmt.Errorf("delete category: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
