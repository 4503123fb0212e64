package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gekymedia/blacktask/internal/clock"
	"github.com/gekymedia/blacktask/internal/model"
)

// DefaultUpcomingDays is the horizon of GetUpcomingTasks when the
// caller does not pick one.
const DefaultUpcomingDays = 7

// TaskInput carries the fields for creating a task. Pointer fields are
// optional; defaults are documented per field.
type TaskInput struct {
	Title       string
	Description string
	// TaskDate defaults to today.
	TaskDate *time.Time
	// Priority defaults to medium.
	Priority   *model.Priority
	CategoryID *uint
	// ReminderAt must be in the future when set.
	ReminderAt *time.Time
	// Recurrence requires RecurrenceEndsAt, which must fall after the
	// task date.
	Recurrence       model.Recurrence
	RecurrenceEndsAt *time.Time
}

// TaskPatch carries a partial update. Nil pointers leave the field
// untouched; the Clear flags reset nullable fields.
type TaskPatch struct {
	Title            *string
	Description      *string
	TaskDate         *time.Time
	Priority         *model.Priority
	IsDone           *bool
	CategoryID       *uint
	ClearCategory    bool
	ReminderAt       *time.Time
	ClearReminder    bool
	Recurrence       *model.Recurrence
	RecurrenceEndsAt *time.Time
}

// Statistics summarizes a user's tasks, optionally over a date range.
type Statistics struct {
	Total          int64   `json:"total"`
	Completed      int64   `json:"completed"`
	Pending        int64   `json:"pending"`
	CompletionRate float64 `json:"completion_rate"`
}

// TaskService is the task lifecycle engine: creation, partial update,
// completion toggling with recurrence spawning, rescheduling, deletion
// and the date-scoped queries.
type TaskService struct {
	tasks      TaskStore
	categories CategoryStore
	clock      clock.Clock
	log        *logrus.Logger
}

func NewTaskService(tasks TaskStore, categories CategoryStore, clk clock.Clock, log *logrus.Logger) *TaskService {
	return &TaskService{tasks: tasks, categories: categories, clock: clk, log: log}
}

// GetTasksForDate returns the user's tasks scheduled on the given day,
// including their category, highest priority first and newest first
// within equal priority.
func (s *TaskService) GetTasksForDate(ctx context.Context, user *model.User, date time.Time) ([]model.Task, error) {
	day := s.dateOf(date)
	return s.tasks.ListByDate(ctx, user.ID, day, day.AddDate(0, 0, 1))
}

// GetTodaysTasks returns the user's tasks scheduled for today.
func (s *TaskService) GetTodaysTasks(ctx context.Context, user *model.User) ([]model.Task, error) {
	return s.GetTasksForDate(ctx, user, s.clock.Today())
}

// GetOverdueTasks returns pending tasks dated before today, oldest first.
func (s *TaskService) GetOverdueTasks(ctx context.Context, user *model.User) ([]model.Task, error) {
	return s.tasks.ListOverdue(ctx, user.ID, s.clock.Today())
}

// GetUpcomingTasks returns pending tasks dated within (today, today+days],
// soonest first. A non-positive days falls back to DefaultUpcomingDays.
func (s *TaskService) GetUpcomingTasks(ctx context.Context, user *model.User, days int) ([]model.Task, error) {
	if days <= 0 {
		days = DefaultUpcomingDays
	}
	today := s.clock.Today()
	from := today.AddDate(0, 0, 1)
	until := today.AddDate(0, 0, days+1)
	return s.tasks.ListUpcoming(ctx, user.ID, from, until)
}

// CreateTask validates input, applies defaults (task date today,
// medium priority) and persists a new task owned by user. The category
// ownership check runs inside the same transaction as the insert.
func (s *TaskService) CreateTask(ctx context.Context, user *model.User, input TaskInput) (*model.Task, error) {
	task, err := s.buildTask(user, input)
	if err != nil {
		return nil, err
	}

	err = s.tasks.Transact(ctx, func(tasks TaskStore, categories CategoryStore) error {
		if task.CategoryID != nil {
			if err := checkCategoryOwnership(ctx, categories, user.ID, *task.CategoryID); err != nil {
				return err
			}
		}
		return tasks.Create(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	return s.tasks.FindByID(ctx, user.ID, task.ID)
}

func (s *TaskService) buildTask(user *model.User, input TaskInput) (*model.Task, error) {
	var verrs ValidationErrors

	title := strings.TrimSpace(input.Title)
	if title == "" {
		verrs.add("title", "title is required")
	} else if len(title) > 255 {
		verrs.add("title", "title cannot exceed 255 characters")
	}

	today := s.clock.Today()
	taskDate := today
	if input.TaskDate != nil {
		taskDate = s.dateOf(*input.TaskDate)
		// Creation-time policy only; tasks may age into the past later.
		if taskDate.Before(today) {
			verrs.add("task_date", "task date cannot be in the past")
		}
	}

	priority := model.PriorityMedium
	if input.Priority != nil {
		priority = *input.Priority
		if !priority.Valid() {
			verrs.add("priority", "priority must be between 0 (low) and 2 (high)")
		}
	}

	if input.ReminderAt != nil && !input.ReminderAt.After(s.clock.Now()) {
		verrs.add("reminder_at", "reminder must be set in the future")
	}

	if !input.Recurrence.Valid() {
		verrs.add("recurrence", "recurrence must be one of: daily, weekly, monthly, yearly")
	}
	if input.Recurrence != model.RecurrenceNone {
		if input.RecurrenceEndsAt == nil {
			verrs.add("recurrence_ends_at", "recurrence end date is required when recurrence is set")
		} else if !s.dateOf(*input.RecurrenceEndsAt).After(taskDate) {
			verrs.add("recurrence_ends_at", "recurrence end date must be after the task date")
		}
	} else if input.RecurrenceEndsAt != nil {
		verrs.add("recurrence_ends_at", "recurrence end date requires a recurrence rule")
	}

	if err := verrs.orNil(); err != nil {
		return nil, err
	}

	task := &model.Task{
		UserID:      user.ID,
		CategoryID:  input.CategoryID,
		Title:       title,
		Description: input.Description,
		TaskDate:    taskDate,
		Priority:    priority,
		ReminderAt:  input.ReminderAt,
		Recurrence:  input.Recurrence,
	}
	if input.RecurrenceEndsAt != nil {
		ends := s.dateOf(*input.RecurrenceEndsAt)
		task.RecurrenceEndsAt = &ends
	}
	return task, nil
}

// UpdateTask applies a partial update to the user's task. Only fields
// present in the patch change. Category ownership is re-validated in
// the same transaction as the write. Setting is_done through a patch
// never spawns a recurrence; only ToggleTask does.
func (s *TaskService) UpdateTask(ctx context.Context, user *model.User, taskID uint, patch TaskPatch) (*model.Task, error) {
	err := s.tasks.Transact(ctx, func(tasks TaskStore, categories CategoryStore) error {
		task, err := tasks.FindByID(ctx, user.ID, taskID)
		if err != nil {
			return err
		}
		if err := s.applyPatch(task, patch); err != nil {
			return err
		}
		if patch.CategoryID != nil {
			if err := checkCategoryOwnership(ctx, categories, user.ID, *patch.CategoryID); err != nil {
				return err
			}
		}
		return tasks.Save(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return s.tasks.FindByID(ctx, user.ID, taskID)
}

func (s *TaskService) applyPatch(task *model.Task, patch TaskPatch) error {
	var verrs ValidationErrors

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		switch {
		case title == "":
			verrs.add("title", "title cannot be empty")
		case len(title) > 255:
			verrs.add("title", "title cannot exceed 255 characters")
		default:
			task.Title = title
		}
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.TaskDate != nil {
		task.TaskDate = s.dateOf(*patch.TaskDate)
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			verrs.add("priority", "priority must be between 0 (low) and 2 (high)")
		} else {
			task.Priority = *patch.Priority
		}
	}
	if patch.IsDone != nil {
		task.IsDone = *patch.IsDone
	}
	if patch.ClearCategory {
		task.CategoryID = nil
		task.Category = nil
	} else if patch.CategoryID != nil {
		task.CategoryID = patch.CategoryID
		task.Category = nil
	}
	if patch.ClearReminder {
		task.ReminderAt = nil
		task.RemindedAt = nil
	} else if patch.ReminderAt != nil {
		task.ReminderAt = patch.ReminderAt
	}
	if patch.Recurrence != nil {
		if !patch.Recurrence.Valid() {
			verrs.add("recurrence", "recurrence must be one of: daily, weekly, monthly, yearly")
		} else {
			task.Recurrence = *patch.Recurrence
			if task.Recurrence == model.RecurrenceNone {
				task.RecurrenceEndsAt = nil
			}
		}
	}
	if patch.RecurrenceEndsAt != nil {
		ends := s.dateOf(*patch.RecurrenceEndsAt)
		task.RecurrenceEndsAt = &ends
	}

	if task.Recurrence != model.RecurrenceNone {
		if task.RecurrenceEndsAt == nil {
			verrs.add("recurrence_ends_at", "recurrence end date is required when recurrence is set")
		} else if !task.RecurrenceEndsAt.After(task.TaskDate) {
			verrs.add("recurrence_ends_at", "recurrence end date must be after the task date")
		}
	} else if task.RecurrenceEndsAt != nil {
		verrs.add("recurrence_ends_at", "recurrence end date requires a recurrence rule")
	}

	return verrs.orNil()
}

// ToggleTask flips the completion state of the user's task. When a
// pending recurring task is completed, the next occurrence is created
// in the same transaction as the flip, as an independent task with a
// fresh identity; once the next date would pass recurrence_ends_at, no
// task is spawned. Un-completing never spawns. The conditional flip in
// SetDone serializes racing togglers, so one completion event spawns
// at most one occurrence.
func (s *TaskService) ToggleTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	var raced bool
	err := s.tasks.Transact(ctx, func(tasks TaskStore, _ CategoryStore) error {
		task, err := tasks.FindByID(ctx, user.ID, taskID)
		if err != nil {
			return err
		}

		flipped, err := tasks.SetDone(ctx, user.ID, taskID, task.IsDone, !task.IsDone)
		if err != nil {
			return err
		}
		if !flipped {
			// Another writer transitioned the task between our read and
			// the flip. Their transition owns any spawn; report state as-is.
			raced = true
			return nil
		}

		completing := !task.IsDone
		if completing && task.Recurrence != model.RecurrenceNone {
			if next, ok := task.NextOccurrence(); ok {
				if err := tasks.Create(ctx, next); err != nil {
					return err
				}
				s.log.WithFields(logrus.Fields{
					"user_id":   user.ID,
					"task_id":   task.ID,
					"next_id":   next.ID,
					"next_date": next.TaskDate.Format("2006-01-02"),
				}).Info("spawned next occurrence")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if raced {
		s.log.WithFields(logrus.Fields{"user_id": user.ID, "task_id": taskID}).
			Warn("concurrent toggle detected, returning current state")
	}
	return s.tasks.FindByID(ctx, user.ID, taskID)
}

// RescheduleTask moves the task to a new date. No past-date check:
// rescheduling is an explicit override.
func (s *TaskService) RescheduleTask(ctx context.Context, user *model.User, taskID uint, newDate time.Time) (*model.Task, error) {
	err := s.tasks.Transact(ctx, func(tasks TaskStore, _ CategoryStore) error {
		task, err := tasks.FindByID(ctx, user.ID, taskID)
		if err != nil {
			return err
		}
		task.TaskDate = s.dateOf(newDate)
		return tasks.Save(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return s.tasks.FindByID(ctx, user.ID, taskID)
}

// RescheduleToTomorrow moves the task to tomorrow.
func (s *TaskService) RescheduleToTomorrow(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	return s.RescheduleTask(ctx, user, taskID, s.clock.Today().AddDate(0, 0, 1))
}

// DeleteTask removes the user's task. Hard delete, no side effects.
func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, taskID uint) error {
	deleted, err := s.tasks.Delete(ctx, user.ID, taskID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// GetTaskStatistics counts the user's tasks, optionally bounded by an
// inclusive task_date range, and derives the completion rate rounded
// to two decimals. An empty range yields a zero rate, not a division
// by zero.
func (s *TaskService) GetTaskStatistics(ctx context.Context, user *model.User, start, end *time.Time) (Statistics, error) {
	total, completed, err := s.tasks.Counts(ctx, user.ID, s.normalizeDate(start), s.normalizeDate(end))
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{
		Total:     total,
		Completed: completed,
		Pending:   total - completed,
	}
	if total > 0 {
		stats.CompletionRate = math.Round(float64(completed)/float64(total)*100*100) / 100
	}
	return stats, nil
}

// GetCategoryBreakdown returns the user's task distribution by category.
func (s *TaskService) GetCategoryBreakdown(ctx context.Context, user *model.User) ([]model.CategoryCount, error) {
	return s.tasks.CategoryBreakdown(ctx, user.ID)
}

// GetAllTasks returns every task the user owns, for the calendar feed.
func (s *TaskService) GetAllTasks(ctx context.Context, user *model.User) ([]model.Task, error) {
	return s.tasks.ListAll(ctx, user.ID)
}

func checkCategoryOwnership(ctx context.Context, categories CategoryStore, userID, categoryID uint) error {
	if _, err := categories.FindByIDAndOwner(ctx, userID, categoryID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidOwnership
		}
		return err
	}
	return nil
}

// dateOf rebuilds a date at midnight in the clock's location. Dates
// parsed from requests arrive in UTC; without this, mixed offsets in
// task_date break the range comparisons.
func (s *TaskService) dateOf(t time.Time) time.Time {
	return clock.DateIn(t, s.clock.Location())
}

func (s *TaskService) normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	day := s.dateOf(*t)
	return &day
}
