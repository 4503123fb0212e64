package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gekymedia/blacktask/internal/clock"
	"github.com/gekymedia/blacktask/internal/model"
	"github.com/gekymedia/blacktask/internal/repository"
	"github.com/gekymedia/blacktask/internal/service"
)

// testEnv wires a TaskService against a throwaway in-memory database
// with the clock pinned to 2025-03-10 12:00 UTC.
type testEnv struct {
	db         *gorm.DB
	tasks      *repository.TaskRepository
	categories *repository.CategoryRepository
	users      *repository.UserRepository
	svc        *service.TaskService
	clock      clock.Fixed
	user       *model.User
	other      *model.User
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvAt(t, time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC))
}

func newTestEnvAt(t *testing.T, instant time.Time) *testEnv {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repository.NewDB(dsn, log)
	require.NoError(t, err)

	fixed := clock.Fixed{Instant: instant}

	env := &testEnv{
		db:         db,
		tasks:      repository.NewTaskRepository(db),
		categories: repository.NewCategoryRepository(db),
		users:      repository.NewUserRepository(db),
		clock:      fixed,
	}
	env.svc = service.NewTaskService(env.tasks, env.categories, fixed, log)

	env.user = &model.User{Name: "Ada", Email: "ada@example.com"}
	env.other = &model.User{Name: "Bob", Email: "bob@example.com"}
	require.NoError(t, db.Create(env.user).Error)
	require.NoError(t, db.Create(env.other).Error)

	return env
}

func (e *testEnv) today() time.Time {
	return e.clock.Today()
}

func (e *testEnv) taskCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&model.Task{}).Count(&count).Error)
	return count
}

// seedTask inserts a task directly, bypassing creation-time policy.
func (e *testEnv) seedTask(t *testing.T, task *model.Task) *model.Task {
	t.Helper()
	if task.UserID == 0 {
		task.UserID = e.user.ID
	}
	require.NoError(t, e.db.Create(task).Error)
	return task
}

func ptr[T any](v T) *T { return &v }

func TestCreateTaskDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task, err := env.svc.CreateTask(ctx, env.user, service.TaskInput{Title: "  Buy milk  "})
	require.NoError(t, err)

	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, env.user.ID, task.UserID)
	assert.False(t, task.IsDone)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.True(t, task.TaskDate.Equal(env.today()), "task_date should default to today")
	assert.Nil(t, task.CategoryID)
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input service.TaskInput
		field string
	}{
		{"missing title", service.TaskInput{}, "title"},
		{"blank title", service.TaskInput{Title: "   "}, "title"},
		{"past date", service.TaskInput{Title: "x", TaskDate: ptr(env.today().AddDate(0, 0, -1))}, "task_date"},
		{"bad priority", service.TaskInput{Title: "x", Priority: ptr(model.Priority(5))}, "priority"},
		{"reminder in the past", service.TaskInput{Title: "x", ReminderAt: ptr(env.clock.Now().Add(-time.Hour))}, "reminder_at"},
		{"unknown recurrence", service.TaskInput{Title: "x", Recurrence: "hourly"}, "recurrence"},
		{"recurrence without end", service.TaskInput{Title: "x", Recurrence: model.RecurrenceDaily}, "recurrence_ends_at"},
		{"end before task date", service.TaskInput{
			Title:            "x",
			Recurrence:       model.RecurrenceDaily,
			RecurrenceEndsAt: ptr(env.today()),
		}, "recurrence_ends_at"},
		{"end without recurrence", service.TaskInput{
			Title:            "x",
			RecurrenceEndsAt: ptr(env.today().AddDate(0, 0, 3)),
		}, "recurrence_ends_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.CreateTask(ctx, env.user, tt.input)
			verrs, ok := service.AsValidationErrors(err)
			require.True(t, ok, "expected validation errors, got %v", err)
			fields := make([]string, len(verrs))
			for i, v := range verrs {
				fields[i] = v.Field
			}
			assert.Contains(t, fields, tt.field)
		})
	}

	assert.EqualValues(t, 0, env.taskCount(t), "rejected creates must persist nothing")
}

func TestCreateTaskForeignCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	foreign := &model.Category{UserID: env.other.ID, Name: "Work"}
	require.NoError(t, env.db.Create(foreign).Error)

	_, err := env.svc.CreateTask(ctx, env.user, service.TaskInput{
		Title:      "Steal a category",
		CategoryID: &foreign.ID,
	})
	assert.ErrorIs(t, err, service.ErrInvalidOwnership)
	assert.EqualValues(t, 0, env.taskCount(t))
}

func TestCreateTaskWithOwnCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	category := &model.Category{UserID: env.user.ID, Name: "Home", Color: "#ff0000"}
	require.NoError(t, env.db.Create(category).Error)

	task, err := env.svc.CreateTask(ctx, env.user, service.TaskInput{
		Title:      "Vacuum",
		CategoryID: &category.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, task.Category)
	assert.Equal(t, "Home", task.Category.Name)
}

func TestCreateTaskNormalizesParsedDates(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	env := newTestEnvAt(t, time.Date(2025, time.March, 10, 12, 0, 0, 0, loc))
	ctx := context.Background()

	// Dates from the HTTP layer come out of time.Parse carrying UTC.
	parsed, err := time.Parse("2006-01-02", "2025-03-10")
	require.NoError(t, err)

	task, err := env.svc.CreateTask(ctx, env.user, service.TaskInput{Title: "Call dentist", TaskDate: &parsed})
	require.NoError(t, err)
	assert.True(t, task.TaskDate.Equal(env.today()), "parsed date must land on the clock's midnight, got %v", task.TaskDate)

	tasks, err := env.svc.GetTodaysTasks(ctx, env.user)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Call dentist", tasks[0].Title)
}

func TestToggleNonRecurringKeepsCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.seedTask(t, &model.Task{Title: "One-off", TaskDate: env.today()})

	toggled, err := env.svc.ToggleTask(ctx, env.user, task.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsDone)
	assert.EqualValues(t, 1, env.taskCount(t))

	toggled, err = env.svc.ToggleTask(ctx, env.user, task.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsDone)
	assert.EqualValues(t, 1, env.taskCount(t))
}

func TestToggleRecurringSpawnsNextOccurrence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		recurrence model.Recurrence
		wantNext   time.Time
	}{
		{model.RecurrenceDaily, env.today().AddDate(0, 0, 1)},
		{model.RecurrenceWeekly, env.today().AddDate(0, 0, 7)},
		{model.RecurrenceMonthly, env.today().AddDate(0, 1, 0)},
		{model.RecurrenceYearly, env.today().AddDate(1, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(string(tt.recurrence), func(t *testing.T) {
			before := env.taskCount(t)

			// No end date: the rule runs forever.
			task := env.seedTask(t, &model.Task{
				Title:      "Recurring " + string(tt.recurrence),
				TaskDate:   env.today(),
				Priority:   model.PriorityHigh,
				Recurrence: tt.recurrence,
			})

			_, err := env.svc.ToggleTask(ctx, env.user, task.ID)
			require.NoError(t, err)
			assert.EqualValues(t, before+2, env.taskCount(t), "completion should spawn exactly one task")

			var spawned model.Task
			require.NoError(t, env.db.Where("id <> ? AND title = ?", task.ID, task.Title).First(&spawned).Error)
			assert.False(t, spawned.IsDone)
			assert.True(t, spawned.TaskDate.Equal(tt.wantNext), "want %v, got %v", tt.wantNext, spawned.TaskDate)
			assert.Equal(t, model.PriorityHigh, spawned.Priority)
			assert.Equal(t, tt.recurrence, spawned.Recurrence)
		})
	}
}

func TestToggleMonthlyFromJan31(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ends := time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)
	task := env.seedTask(t, &model.Task{
		Title:            "Pay rent",
		TaskDate:         time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
		Recurrence:       model.RecurrenceMonthly,
		RecurrenceEndsAt: &ends,
	})

	_, err := env.svc.ToggleTask(ctx, env.user, task.ID)
	require.NoError(t, err)

	// time.AddDate normalizes Jan 31 + 1 month to Mar 3 in a non-leap year.
	var spawned model.Task
	require.NoError(t, env.db.Where("id <> ?", task.ID).First(&spawned).Error)
	assert.True(t, spawned.TaskDate.Equal(time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)),
		"got %v", spawned.TaskDate)
	assert.False(t, spawned.IsDone)
}

func TestToggleRecurringStopsAtEndDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ends := env.today().AddDate(0, 0, 1)
	task := env.seedTask(t, &model.Task{
		Title:            "Short run",
		TaskDate:         env.today(),
		Recurrence:       model.RecurrenceDaily,
		RecurrenceEndsAt: &ends,
	})

	// First completion: next date equals the end date, spawn happens.
	_, err := env.svc.ToggleTask(ctx, env.user, task.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, env.taskCount(t))

	var spawned model.Task
	require.NoError(t, env.db.Where("id <> ?", task.ID).First(&spawned).Error)
	assert.True(t, spawned.TaskDate.Equal(ends))

	// Completing the spawned occurrence would land past the end date:
	// no further spawn.
	_, err = env.svc.ToggleTask(ctx, env.user, spawned.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, env.taskCount(t))
}

func TestUntoggleNeverSpawns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.seedTask(t, &model.Task{
		Title:      "Already done",
		TaskDate:   env.today(),
		IsDone:     true,
		Recurrence: model.RecurrenceDaily,
	})

	toggled, err := env.svc.ToggleTask(ctx, env.user, task.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsDone)
	assert.EqualValues(t, 1, env.taskCount(t))
}

func TestToggleTwiceLeavesSpawnedOccurrence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.seedTask(t, &model.Task{
		Title:      "Recurring",
		TaskDate:   env.today(),
		Recurrence: model.RecurrenceDaily,
	})

	_, err := env.svc.ToggleTask(ctx, env.user, task.ID)
	require.NoError(t, err)
	_, err = env.svc.ToggleTask(ctx, env.user, task.ID)
	require.NoError(t, err)

	// The spawn from the first toggle is not undone by the second.
	assert.EqualValues(t, 2, env.taskCount(t))
}

func TestToggleUnknownTask(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.ToggleTask(context.Background(), env.user, 999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestToggleForeignTask(t *testing.T) {
	env := newTestEnv(t)
	task := env.seedTask(t, &model.Task{UserID: env.other.ID, Title: "Theirs", TaskDate: env.today()})

	_, err := env.svc.ToggleTask(context.Background(), env.user, task.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestUpdateTaskPartial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.seedTask(t, &model.Task{
		Title:    "Original",
		TaskDate: env.today(),
		Priority: model.PriorityLow,
	})

	updated, err := env.svc.UpdateTask(ctx, env.user, task.ID, service.TaskPatch{
		Title: ptr("Renamed"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, model.PriorityLow, updated.Priority, "untouched fields must not change")
	assert.True(t, updated.TaskDate.Equal(env.today()))
}

func TestUpdateTaskForeignCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	foreign := &model.Category{UserID: env.other.ID, Name: "Theirs"}
	require.NoError(t, env.db.Create(foreign).Error)
	task := env.seedTask(t, &model.Task{Title: "Mine", TaskDate: env.today()})

	_, err := env.svc.UpdateTask(ctx, env.user, task.ID, service.TaskPatch{CategoryID: &foreign.ID})
	assert.ErrorIs(t, err, service.ErrInvalidOwnership)

	fresh, err := env.tasks.FindByID(ctx, env.user.ID, task.ID)
	require.NoError(t, err)
	assert.Nil(t, fresh.CategoryID, "failed update must not be partially applied")
}

func TestUpdateTaskEndDateRequiresRecurrence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.seedTask(t, &model.Task{Title: "One-off", TaskDate: env.today()})

	_, err := env.svc.UpdateTask(ctx, env.user, task.ID, service.TaskPatch{
		RecurrenceEndsAt: ptr(env.today().AddDate(0, 0, 5)),
	})
	verrs, ok := service.AsValidationErrors(err)
	require.True(t, ok, "expected validation errors, got %v", err)
	require.Len(t, verrs, 1)
	assert.Equal(t, "recurrence_ends_at", verrs[0].Field)

	fresh, err := env.tasks.FindByID(ctx, env.user.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RecurrenceNone, fresh.Recurrence)
	assert.Nil(t, fresh.RecurrenceEndsAt, "rejected patch must not persist")
}

func TestUpdateTaskDoneViaPatchDoesNotSpawn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ends := env.today().AddDate(0, 0, 30)
	task := env.seedTask(t, &model.Task{
		Title:            "Recurring",
		TaskDate:         env.today(),
		Recurrence:       model.RecurrenceDaily,
		RecurrenceEndsAt: &ends,
	})

	updated, err := env.svc.UpdateTask(ctx, env.user, task.ID, service.TaskPatch{IsDone: ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.IsDone)
	assert.EqualValues(t, 1, env.taskCount(t), "only ToggleTask spawns occurrences")
}

func TestRescheduleTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.seedTask(t, &model.Task{Title: "Movable", TaskDate: env.today()})

	// Explicit reschedule may land in the past.
	past := env.today().AddDate(0, 0, -10)
	moved, err := env.svc.RescheduleTask(ctx, env.user, task.ID, past)
	require.NoError(t, err)
	assert.True(t, moved.TaskDate.Equal(past))

	moved, err = env.svc.RescheduleToTomorrow(ctx, env.user, task.ID)
	require.NoError(t, err)
	assert.True(t, moved.TaskDate.Equal(env.today().AddDate(0, 0, 1)))
}

func TestDeleteTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.seedTask(t, &model.Task{Title: "Doomed", TaskDate: env.today()})

	require.NoError(t, env.svc.DeleteTask(ctx, env.user, task.ID))
	assert.EqualValues(t, 0, env.taskCount(t))

	assert.ErrorIs(t, env.svc.DeleteTask(ctx, env.user, task.ID), service.ErrNotFound)
}

func TestGetTasksForDateOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := env.clock.Now().Add(-time.Hour)
	env.seedTask(t, &model.Task{Title: "low", TaskDate: env.today(), Priority: model.PriorityLow, CreatedAt: base})
	env.seedTask(t, &model.Task{Title: "high-old", TaskDate: env.today(), Priority: model.PriorityHigh, CreatedAt: base.Add(time.Minute)})
	env.seedTask(t, &model.Task{Title: "high-new", TaskDate: env.today(), Priority: model.PriorityHigh, CreatedAt: base.Add(2 * time.Minute)})
	env.seedTask(t, &model.Task{Title: "tomorrow", TaskDate: env.today().AddDate(0, 0, 1), Priority: model.PriorityHigh})
	env.seedTask(t, &model.Task{UserID: env.other.ID, Title: "not mine", TaskDate: env.today()})

	tasks, err := env.svc.GetTodaysTasks(ctx, env.user)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "high-new", tasks[0].Title)
	assert.Equal(t, "high-old", tasks[1].Title)
	assert.Equal(t, "low", tasks[2].Title)
}

func TestGetOverdueTasks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedTask(t, &model.Task{Title: "old pending", TaskDate: env.today().AddDate(0, 0, -3)})
	env.seedTask(t, &model.Task{Title: "older pending", TaskDate: env.today().AddDate(0, 0, -5)})
	env.seedTask(t, &model.Task{Title: "old done", TaskDate: env.today().AddDate(0, 0, -2), IsDone: true})
	env.seedTask(t, &model.Task{Title: "today", TaskDate: env.today()})
	env.seedTask(t, &model.Task{Title: "future", TaskDate: env.today().AddDate(0, 0, 2)})

	tasks, err := env.svc.GetOverdueTasks(ctx, env.user)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "older pending", tasks[0].Title, "oldest first")
	for _, task := range tasks {
		assert.False(t, task.IsDone)
		assert.True(t, task.TaskDate.Before(env.today()))
	}
}

func TestGetUpcomingTasks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedTask(t, &model.Task{Title: "today", TaskDate: env.today()})
	env.seedTask(t, &model.Task{Title: "tomorrow", TaskDate: env.today().AddDate(0, 0, 1)})
	env.seedTask(t, &model.Task{Title: "day seven", TaskDate: env.today().AddDate(0, 0, 7)})
	env.seedTask(t, &model.Task{Title: "day eight", TaskDate: env.today().AddDate(0, 0, 8)})
	env.seedTask(t, &model.Task{Title: "done tomorrow", TaskDate: env.today().AddDate(0, 0, 1), IsDone: true})

	tasks, err := env.svc.GetUpcomingTasks(ctx, env.user, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 2, "window is (today, today+7] and excludes completed")
	assert.Equal(t, "tomorrow", tasks[0].Title)
	assert.Equal(t, "day seven", tasks[1].Title)
}

func TestGetTaskStatistics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedTask(t, &model.Task{Title: "a", TaskDate: env.today(), IsDone: true})
	env.seedTask(t, &model.Task{Title: "b", TaskDate: env.today(), IsDone: true})
	env.seedTask(t, &model.Task{Title: "c", TaskDate: env.today(), IsDone: true})
	env.seedTask(t, &model.Task{Title: "d", TaskDate: env.today()})

	stats, err := env.svc.GetTaskStatistics(ctx, env.user, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, service.Statistics{Total: 4, Completed: 3, Pending: 1, CompletionRate: 75.0}, stats)
}

func TestGetTaskStatisticsEmpty(t *testing.T) {
	env := newTestEnv(t)

	stats, err := env.svc.GetTaskStatistics(context.Background(), env.user, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, service.Statistics{}, stats, "no tasks means zero rate, not a division by zero")
}

func TestGetTaskStatisticsDateRange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedTask(t, &model.Task{Title: "in range done", TaskDate: env.today(), IsDone: true})
	env.seedTask(t, &model.Task{Title: "in range pending", TaskDate: env.today().AddDate(0, 0, 1)})
	env.seedTask(t, &model.Task{Title: "before range", TaskDate: env.today().AddDate(0, 0, -10), IsDone: true})
	env.seedTask(t, &model.Task{Title: "after range", TaskDate: env.today().AddDate(0, 0, 10)})

	start := env.today()
	end := env.today().AddDate(0, 0, 5)
	stats, err := env.svc.GetTaskStatistics(ctx, env.user, &start, &end)
	require.NoError(t, err)
	assert.Equal(t, service.Statistics{Total: 2, Completed: 1, Pending: 1, CompletionRate: 50.0}, stats)
}

func TestStatisticsInvariantTotalEqualsCompletedPlusPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		env.seedTask(t, &model.Task{
			Title:    fmt.Sprintf("t%d", i),
			TaskDate: env.today(),
			IsDone:   i%3 == 0,
		})
	}

	stats, err := env.svc.GetTaskStatistics(ctx, env.user, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, stats.Total, stats.Completed+stats.Pending)
}

func TestCategoryDeleteNullsTaskReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	category := &model.Category{UserID: env.user.ID, Name: "Doomed"}
	require.NoError(t, env.db.Create(category).Error)
	task := env.seedTask(t, &model.Task{Title: "Keeps living", TaskDate: env.today(), CategoryID: &category.ID})

	categorySvc := service.NewCategoryService(env.categories, env.tasks)
	require.NoError(t, categorySvc.Delete(ctx, env.user, category.ID))

	fresh, err := env.tasks.FindByID(ctx, env.user.ID, task.ID)
	require.NoError(t, err)
	assert.Nil(t, fresh.CategoryID)
	assert.EqualValues(t, 1, env.taskCount(t))
}

func TestCategoryDeleteForeign(t *testing.T) {
	env := newTestEnv(t)

	category := &model.Category{UserID: env.other.ID, Name: "Theirs"}
	require.NoError(t, env.db.Create(category).Error)

	categorySvc := service.NewCategoryService(env.categories, env.tasks)
	err := categorySvc.Delete(context.Background(), env.user, category.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}
