package model

import "time"

// Priority ranks a task. Stored as a small integer.
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityMedium Priority = 1
	PriorityHigh   Priority = 2
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "medium"
	}
}

// Recurrence is the repeat rule of a task. Empty means one-off.
type Recurrence string

const (
	RecurrenceNone    Recurrence = ""
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceYearly  Recurrence = "yearly"
)

// Valid reports whether r is a known recurrence rule (empty included).
func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

// NextAfter returns the next occurrence date after the given one.
// Month and year steps use time.AddDate, which normalizes instead of
// clamping: Jan 31 + 1 month lands on Mar 2 or Mar 3.
func (r Recurrence) NextAfter(date time.Time) (time.Time, bool) {
	switch r {
	case RecurrenceDaily:
		return date.AddDate(0, 0, 1), true
	case RecurrenceWeekly:
		return date.AddDate(0, 0, 7), true
	case RecurrenceMonthly:
		return date.AddDate(0, 1, 0), true
	case RecurrenceYearly:
		return date.AddDate(1, 0, 0), true
	default:
		return time.Time{}, false
	}
}

// Task represents a single dated to-do item.
type Task struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"index;index:idx_user_date;index:idx_user_done_date" json:"user_id"`
	CategoryID       *uint      `gorm:"index" json:"category_id"`
	Category         *Category  `gorm:"constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Title            string     `gorm:"size:255" json:"title"`
	Description      string     `json:"description,omitempty"`
	IsDone           bool       `gorm:"default:false;index:idx_user_done_date" json:"is_done"`
	TaskDate         time.Time  `gorm:"index;index:idx_user_date;index:idx_user_done_date" json:"task_date"`
	Priority         Priority   `gorm:"default:1" json:"priority"`
	ReminderAt       *time.Time `json:"reminder_at,omitempty"`
	RemindedAt       *time.Time `json:"reminded_at,omitempty"`
	Recurrence       Recurrence `json:"recurrence,omitempty"`
	RecurrenceEndsAt *time.Time `json:"recurrence_ends_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NextOccurrence builds the follow-up task spawned when a recurring
// task is completed. It is a fresh value, not a mutated copy: only the
// schedule fields carry over, identity and timestamps start over. The
// second return is false when the task does not recur or the next date
// falls past the recurrence end.
func (t *Task) NextOccurrence() (*Task, bool) {
	next, ok := t.Recurrence.NextAfter(t.TaskDate)
	if !ok {
		return nil, false
	}
	if t.RecurrenceEndsAt != nil && next.After(*t.RecurrenceEndsAt) {
		return nil, false
	}
	return &Task{
		UserID:           t.UserID,
		CategoryID:       t.CategoryID,
		Title:            t.Title,
		Description:      t.Description,
		IsDone:           false,
		TaskDate:         next,
		Priority:         t.Priority,
		Recurrence:       t.Recurrence,
		RecurrenceEndsAt: t.RecurrenceEndsAt,
	}, true
}

// CategoryCount is a read model for per-category task distribution.
type CategoryCount struct {
	CategoryID *uint  `json:"category_id"`
	Name       string `json:"name"`
	Count      int64  `json:"count"`
}
