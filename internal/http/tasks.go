package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookcards/internal/ingest"
	"github.com/mrlokans/bookcards/internal/tasks"
)

// TasksController handles task queue management endpoints.
type TasksController struct {
	queue    TaskQueue
	schedule Schedule
}

// NewTasksController creates a new TasksController. schedule may be nil.
func NewTasksController(queue TaskQueue, schedule Schedule) *TasksController {
	return &TasksController{queue: queue, schedule: schedule}
}

// TaskTypeInfo describes an available task type.
type TaskTypeInfo struct {
	Type        string     `json:"type"`
	Description string     `json:"description"`
	NextRun     *time.Time `json:"next_run,omitempty"`
}

var taskTypes = []TaskTypeInfo{
	{Type: tasks.QueueIngest, Description: "Generate flashcards for a title (requires title)"},
	{Type: tasks.QueueBackfillBooks, Description: "Recompute book identities and link legacy flashcards"},
	{Type: tasks.QueueCleanupAuditEvents, Description: "Delete old audit events and completion dumps"},
}

// ListTaskTypes handles GET /api/tasks/types
// Types with a cron schedule carry their next run time.
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	types := make([]TaskTypeInfo, len(taskTypes))
	copy(types, taskTypes)
	if tc.schedule != nil {
		for i := range types {
			types[i].NextRun = tc.schedule.NextRunTime(types[i].Type)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"task_types": types,
	})
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": tasks.StatusName(status),
	})
}

// RunTaskRequest is the request body for running a task.
type RunTaskRequest struct {
	// Title is required for the ingest task
	Title any `json:"title,omitempty"`
	// RetentionDays overrides the audit retention for cleanup_audit_events
	RetentionDays int `json:"retention_days,omitempty"`
}

// RunTask handles POST /api/tasks/:type/run
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var req RunTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}

	var task backlite.Task
	switch taskType {
	case tasks.QueueIngest:
		title, err := ingest.ValidateTitle(req.Title)
		if err != nil {
			respondIngestError(c, err)
			return
		}
		task = tasks.IngestTask{Title: title}

	case tasks.QueueBackfillBooks:
		task = tasks.BackfillBooksTask{Trigger: "manual"}

	case tasks.QueueCleanupAuditEvents:
		task = tasks.CleanupAuditEventsTask{RetentionDays: req.RetentionDays}

	default:
		respondBadRequest(c, fmt.Sprintf("unknown task type: %s", taskType))
		return
	}

	id, err := tc.queue.Enqueue(c.Request.Context(), task)
	if err != nil {
		respondInternalError(c, err, "enqueue "+taskType)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task_id": id,
		"type":    taskType,
		"message": "task enqueued",
	})
}
