package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gekymedia/blacktask/internal/model"
	"github.com/gekymedia/blacktask/internal/service"
)

const dateLayout = "2006-01-02"

type createTaskRequest struct {
	Title            string     `json:"title" binding:"required,max=255"`
	Description      string     `json:"description"`
	TaskDate         string     `json:"task_date" binding:"omitempty,datetime=2006-01-02"`
	CategoryID       *uint      `json:"category_id"`
	Priority         *int       `json:"priority" binding:"omitempty,min=0,max=2"`
	ReminderAt       *time.Time `json:"reminder_at"`
	Recurrence       string     `json:"recurrence" binding:"omitempty,oneof=daily weekly monthly yearly"`
	RecurrenceEndsAt string     `json:"recurrence_ends_at" binding:"omitempty,datetime=2006-01-02"`
}

type updateTaskRequest struct {
	Title            *string    `json:"title" binding:"omitempty,max=255"`
	Description      *string    `json:"description"`
	TaskDate         *string    `json:"task_date" binding:"omitempty,datetime=2006-01-02"`
	CategoryID       *uint      `json:"category_id"`
	ClearCategory    bool       `json:"clear_category"`
	Priority         *int       `json:"priority" binding:"omitempty,min=0,max=2"`
	IsDone           *bool      `json:"is_done"`
	ReminderAt       *time.Time `json:"reminder_at"`
	ClearReminder    bool       `json:"clear_reminder"`
	Recurrence       *string    `json:"recurrence" binding:"omitempty,oneof=daily weekly monthly yearly"`
	RecurrenceEndsAt *string    `json:"recurrence_ends_at" binding:"omitempty,datetime=2006-01-02"`
}

type rescheduleTaskRequest struct {
	// Empty date means tomorrow.
	Date string `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

// handleListTasks returns the tasks for one day, today by default.
// GET /tasks?date=2006-01-02
func (s *Server) handleListTasks(c *gin.Context) {
	user := currentUser(c)

	date, ok := parseDateQuery(c, "date")
	if !ok {
		return
	}

	var (
		tasks []model.Task
		err   error
	)
	if date != nil {
		tasks, err = s.tasks.GetTasksForDate(c.Request.Context(), user, *date)
	} else {
		tasks, err = s.tasks.GetTodaysTasks(c.Request.Context(), user)
	}
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// GET /tasks/overdue
func (s *Server) handleOverdueTasks(c *gin.Context) {
	tasks, err := s.tasks.GetOverdueTasks(c.Request.Context(), currentUser(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// GET /tasks/upcoming?days=7
func (s *Server) handleUpcomingTasks(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = parsed
	}

	tasks, err := s.tasks.GetUpcomingTasks(c.Request.Context(), currentUser(c), days)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// POST /tasks
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	input := service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		ReminderAt:  req.ReminderAt,
		Recurrence:  model.Recurrence(req.Recurrence),
	}
	if req.TaskDate != "" {
		date, _ := time.Parse(dateLayout, req.TaskDate)
		input.TaskDate = &date
	}
	if req.Priority != nil {
		priority := model.Priority(*req.Priority)
		input.Priority = &priority
	}
	if req.RecurrenceEndsAt != "" {
		ends, _ := time.Parse(dateLayout, req.RecurrenceEndsAt)
		input.RecurrenceEndsAt = &ends
	}

	task, err := s.tasks.CreateTask(c.Request.Context(), currentUser(c), input)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// PATCH /tasks/:id
func (s *Server) handleUpdateTask(c *gin.Context) {
	taskID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	patch := service.TaskPatch{
		Title:         req.Title,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		ClearCategory: req.ClearCategory,
		IsDone:        req.IsDone,
		ReminderAt:    req.ReminderAt,
		ClearReminder: req.ClearReminder,
	}
	if req.TaskDate != nil {
		date, _ := time.Parse(dateLayout, *req.TaskDate)
		patch.TaskDate = &date
	}
	if req.Priority != nil {
		priority := model.Priority(*req.Priority)
		patch.Priority = &priority
	}
	if req.Recurrence != nil {
		recurrence := model.Recurrence(*req.Recurrence)
		patch.Recurrence = &recurrence
	}
	if req.RecurrenceEndsAt != nil {
		ends, _ := time.Parse(dateLayout, *req.RecurrenceEndsAt)
		patch.RecurrenceEndsAt = &ends
	}

	task, err := s.tasks.UpdateTask(c.Request.Context(), currentUser(c), taskID, patch)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// PATCH /tasks/:id/toggle
func (s *Server) handleToggleTask(c *gin.Context) {
	taskID, ok := parseIDParam(c)
	if !ok {
		return
	}

	task, err := s.tasks.ToggleTask(c.Request.Context(), currentUser(c), taskID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

// POST /tasks/:id/reschedule
func (s *Server) handleRescheduleTask(c *gin.Context) {
	taskID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req rescheduleTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
	}

	var (
		task *model.Task
		err  error
	)
	if req.Date != "" {
		date, _ := time.Parse(dateLayout, req.Date)
		task, err = s.tasks.RescheduleTask(c.Request.Context(), currentUser(c), taskID, date)
	} else {
		task, err = s.tasks.RescheduleToTomorrow(c.Request.Context(), currentUser(c), taskID)
	}
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

// DELETE /tasks/:id
func (s *Server) handleDeleteTask(c *gin.Context) {
	taskID, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := s.tasks.DeleteTask(c.Request.Context(), currentUser(c), taskID); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task deleted successfully."})
}

// GET /stats?start=2006-01-02&end=2006-01-02
func (s *Server) handleStatistics(c *gin.Context) {
	start, ok := parseDateQuery(c, "start")
	if !ok {
		return
	}
	end, ok := parseDateQuery(c, "end")
	if !ok {
		return
	}

	stats, err := s.tasks.GetTaskStatistics(c.Request.Context(), currentUser(c), start, end)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /analytics/categories
func (s *Server) handleCategoryBreakdown(c *gin.Context) {
	breakdown, err := s.tasks.GetCategoryBreakdown(c.Request.Context(), currentUser(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": breakdown})
}

type calendarEvent struct {
	ID            uint           `json:"id"`
	Title         string         `json:"title"`
	Start         string         `json:"start"`
	Color         string         `json:"color"`
	ExtendedProps map[string]any `json:"extendedProps"`
}

// handleCalendarEvents feeds the calendar view: every task as an event
// colored by its category.
// GET /calendar/events
func (s *Server) handleCalendarEvents(c *gin.Context) {
	tasks, err := s.tasks.GetAllTasks(c.Request.Context(), currentUser(c))
	if err != nil {
		s.renderError(c, err)
		return
	}

	events := make([]calendarEvent, 0, len(tasks))
	for _, task := range tasks {
		color := model.DefaultCategoryColor
		if task.Category != nil && task.Category.Color != "" {
			color = task.Category.Color
		}
		events = append(events, calendarEvent{
			ID:    task.ID,
			Title: task.Title,
			Start: task.TaskDate.Format(dateLayout),
			Color: color,
			ExtendedProps: map[string]any{
				"priority": task.Priority,
				"is_done":  task.IsDone,
			},
		})
	}
	c.JSON(http.StatusOK, events)
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// parseDateQuery reads an optional YYYY-MM-DD query parameter. The
// bool is false when the value was present but malformed (a response
// has already been written).
func parseDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be formatted as YYYY-MM-DD"})
		return nil, false
	}
	return &date, true
}
