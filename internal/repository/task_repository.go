package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gekymedia/blacktask/internal/model"
	"github.com/gekymedia/blacktask/internal/service"
)

// TaskRepository handles persistence for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Preload("Category").
		Where("user_id = ? AND id = ?", userID, taskID).
		First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

func (r *TaskRepository) ListAll(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Preload("Category").
		Where("user_id = ?", userID).
		Order("task_date ASC, priority DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListByDate returns the user's tasks with task_date in [from, to),
// highest priority first, newest first within equal priority.
func (r *TaskRepository) ListByDate(ctx context.Context, userID uint, from, to time.Time) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Preload("Category").
		Where("user_id = ? AND task_date >= ? AND task_date < ?", userID, from, to).
		Order("priority DESC").
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks by date: %w", err)
	}
	return tasks, nil
}

// ListOverdue returns pending tasks dated before the given day, oldest first.
func (r *TaskRepository) ListOverdue(ctx context.Context, userID uint, before time.Time) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Preload("Category").
		Where("user_id = ? AND is_done = ? AND task_date < ?", userID, false, before).
		Order("task_date ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list overdue tasks: %w", err)
	}
	return tasks, nil
}

// ListUpcoming returns pending tasks with task_date in [from, until), soonest first.
func (r *TaskRepository) ListUpcoming(ctx context.Context, userID uint, from, until time.Time) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Preload("Category").
		Where("user_id = ? AND is_done = ? AND task_date >= ? AND task_date < ?", userID, false, from, until).
		Order("task_date ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list upcoming tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Delete(ctx context.Context, userID, taskID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, taskID).
		Delete(&model.Task{})
	if res.Error != nil {
		return false, fmt.Errorf("delete task: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SetDone flips is_done with a conditional update so that two racing
// togglers cannot both observe the same transition. Exactly one of
// them sees a row change.
func (r *TaskRepository) SetDone(ctx context.Context, userID, taskID uint, from, to bool) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ? AND is_done = ?", userID, taskID, from).
		Update("is_done", to)
	if res.Error != nil {
		return false, fmt.Errorf("set task done: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Counts returns total and completed task counts, optionally bounded
// by an inclusive task_date range.
func (r *TaskRepository) Counts(ctx context.Context, userID uint, start, end *time.Time) (int64, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Task{}).Where("user_id = ?", userID)
	if start != nil {
		query = query.Where("task_date >= ?", *start)
	}
	if end != nil {
		query = query.Where("task_date <= ?", *end)
	}
	// Reusable session: the completed count adds its own condition
	// without polluting the total count.
	query = query.Session(&gorm.Session{})

	var total, completed int64
	if err := query.Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("count tasks: %w", err)
	}
	if err := query.Where("is_done = ?", true).Count(&completed).Error; err != nil {
		return 0, 0, fmt.Errorf("count completed tasks: %w", err)
	}
	return total, completed, nil
}

// CategoryBreakdown returns task counts grouped by category. Tasks
// without a category come back with a nil CategoryID and empty name.
func (r *TaskRepository) CategoryBreakdown(ctx context.Context, userID uint) ([]model.CategoryCount, error) {
	var counts []model.CategoryCount
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("tasks.category_id AS category_id, COALESCE(categories.name, '') AS name, COUNT(*) AS count").
		Joins("LEFT JOIN categories ON categories.id = tasks.category_id").
		Where("tasks.user_id = ?", userID).
		Group("tasks.category_id, categories.name").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	return counts, nil
}

// ListDueReminders returns pending tasks whose reminder is due and not
// yet sent.
func (r *TaskRepository) ListDueReminders(ctx context.Context, now time.Time) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("reminder_at IS NOT NULL AND reminder_at <= ? AND reminded_at IS NULL AND is_done = ?", now, false).
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) MarkReminded(ctx context.Context, taskID uint, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", taskID).
		Update("reminded_at", at).Error; err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	return nil
}

// ClearCategory nulls the category reference on every task pointing at
// the given category. Used when a category is deleted.
func (r *TaskRepository) ClearCategory(ctx context.Context, categoryID uint) error {
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("category_id = ?", categoryID).
		Update("category_id", nil).Error; err != nil {
		return fmt.Errorf("clear category: %w", err)
	}
	return nil
}

// Transact runs fn in one database transaction with transaction-bound
// stores.
func (r *TaskRepository) Transact(ctx context.Context, fn func(tasks service.TaskStore, categories service.CategoryStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewTaskRepository(tx), NewCategoryRepository(tx))
	})
}
