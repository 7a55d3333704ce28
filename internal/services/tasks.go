package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/proplink/crm-client/internal/apiclient"
	"github.com/proplink/crm-client/internal/domain"
	"github.com/proplink/crm-client/pkg/logger"
)

// TaskService wraps the /tasks namespace (follow-ups live under
// /followups, which shares the same non-fatal 401 treatment as notes).
type TaskService struct {
	api *apiclient.Client
	log *logger.Logger
}

// List fetches tasks assigned to a user.
func (s *TaskService) List(ctx context.Context, assigneeID int64) Result[[]domain.Task] {
	var tasks []domain.Task
	if err := s.api.Get(ctx, "/tasks?assigneeId="+strconv.FormatInt(assigneeID, 10), &tasks); err != nil {
		return Fail[[]domain.Task](err, "Failed to load tasks")
	}
	return Ok(tasks)
}

// Create adds a task.
func (s *TaskService) Create(ctx context.Context, task domain.Task) Result[domain.Task] {
	if task.Title == "" {
		return FailLocal[domain.Task]("task title is required")
	}
	var created domain.Task
	if err := s.api.Post(ctx, "/tasks", task, &created); err != nil {
		return Fail[domain.Task](err, "Failed to create task")
	}
	return Ok(created)
}

// Complete marks a task done.
func (s *TaskService) Complete(ctx context.Context, id int64) Result[domain.Task] {
	var updated domain.Task
	if err := s.api.Put(ctx, fmt.Sprintf("/tasks/%d/complete", id), nil, &updated); err != nil {
		return Fail[domain.Task](err, "Failed to complete task")
	}
	return Ok(updated)
}

// PendingCount returns the open task count for a user.
func (s *TaskService) PendingCount(ctx context.Context, assigneeID int64) Result[int] {
	var resp countResponse
	path := "/tasks/count?done=false&assigneeId=" + strconv.FormatInt(assigneeID, 10)
	if err := s.api.Get(ctx, path, &resp); err != nil {
		return Fail[int](err, "Failed to count tasks")
	}
	return Ok(resp.Count)
}

// Today fetches the follow-up tasks due today for a user.
func (s *TaskService) Today(ctx context.Context, assigneeID int64) Result[[]domain.Task] {
	var tasks []domain.Task
	path := "/followups/today?assigneeId=" + strconv.FormatInt(assigneeID, 10)
	if err := s.api.Get(ctx, path, &tasks); err != nil {
		return Fail[[]domain.Task](err, "Failed to load today's follow-ups")
	}
	return Ok(tasks)
}
