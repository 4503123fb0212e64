package service

import (
	"context"
	"time"

	"github.com/gekymedia/blacktask/internal/model"
)

// TaskStore is the persistence capability set the task engine needs.
// Any storage backend implementing it is acceptable; the gorm-backed
// implementation lives in internal/repository.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	Save(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error)
	ListAll(ctx context.Context, userID uint) ([]model.Task, error)
	ListByDate(ctx context.Context, userID uint, from, to time.Time) ([]model.Task, error)
	ListOverdue(ctx context.Context, userID uint, before time.Time) ([]model.Task, error)
	ListUpcoming(ctx context.Context, userID uint, from, until time.Time) ([]model.Task, error)
	Delete(ctx context.Context, userID, taskID uint) (bool, error)

	// SetDone flips is_done from one value to the other in a single
	// conditional update and reports whether a row actually changed.
	// A false return means another writer got there first.
	SetDone(ctx context.Context, userID, taskID uint, from, to bool) (bool, error)

	Counts(ctx context.Context, userID uint, start, end *time.Time) (total, completed int64, err error)
	CategoryBreakdown(ctx context.Context, userID uint) ([]model.CategoryCount, error)

	ListDueReminders(ctx context.Context, now time.Time) ([]model.Task, error)
	MarkReminded(ctx context.Context, taskID uint, at time.Time) error
	ClearCategory(ctx context.Context, categoryID uint) error

	// Transact runs fn inside one storage transaction; the stores
	// passed to fn are bound to that transaction.
	Transact(ctx context.Context, fn func(tasks TaskStore, categories CategoryStore) error) error
}

// CategoryStore is the persistence capability set for categories.
type CategoryStore interface {
	Create(ctx context.Context, category *model.Category) error
	FindByIDAndOwner(ctx context.Context, userID, categoryID uint) (*model.Category, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Category, error)
	Delete(ctx context.Context, userID, categoryID uint) (bool, error)
}

// UserStore resolves and updates users. User creation and
// authentication belong to the surrounding system.
type UserStore interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
	Save(ctx context.Context, user *model.User) error
	ListAll(ctx context.Context) ([]model.User, error)
}
