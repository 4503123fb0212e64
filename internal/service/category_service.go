package service

import (
	"context"
	"strings"

	"github.com/gekymedia/blacktask/internal/model"
)

// CategoryService manages the user's category labels.
type CategoryService struct {
	categories CategoryStore
	tasks      TaskStore
}

func NewCategoryService(categories CategoryStore, tasks TaskStore) *CategoryService {
	return &CategoryService{categories: categories, tasks: tasks}
}

func (s *CategoryService) List(ctx context.Context, user *model.User) ([]model.Category, error) {
	return s.categories.ListByUser(ctx, user.ID)
}

// Create validates and persists a new category for the user. Color
// falls back to the default when absent.
func (s *CategoryService) Create(ctx context.Context, user *model.User, name, color string) (*model.Category, error) {
	var verrs ValidationErrors
	name = strings.TrimSpace(name)
	if name == "" {
		verrs.add("name", "name is required")
	} else if len(name) > 255 {
		verrs.add("name", "name cannot exceed 255 characters")
	}
	if err := verrs.orNil(); err != nil {
		return nil, err
	}

	category := &model.Category{
		UserID: user.ID,
		Name:   name,
		Color:  color,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// Delete removes the user's category and nulls the reference on any
// task pointing at it, in one transaction. Tasks survive the deletion
// uncategorized.
func (s *CategoryService) Delete(ctx context.Context, user *model.User, categoryID uint) error {
	return s.tasks.Transact(ctx, func(tasks TaskStore, categories CategoryStore) error {
		if _, err := categories.FindByIDAndOwner(ctx, user.ID, categoryID); err != nil {
			return err
		}
		if err := tasks.ClearCategory(ctx, categoryID); err != nil {
			return err
		}
		deleted, err := categories.Delete(ctx, user.ID, categoryID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrNotFound
		}
		return nil
	})
}
