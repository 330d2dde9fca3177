package board

import (
	"context"
	"fmt"

	"github.com/funnelhq/funnel/pkg/api"
	"github.com/funnelhq/funnel/pkg/apierror"
	"github.com/funnelhq/funnel/pkg/provider"
)

// DefaultStages is the kanban column order used when none is configured
var DefaultStages = []string{"todo", "in_progress", "review", "done"}

// Column is one kanban lane; task order inside a column follows the server's
// list order
type Column struct {
	Stage string
	Tasks []api.Task
}

// Board is the grouped view of all tasks
type Board struct {
	Columns []Column
	Total   int
}

// Service builds board views and applies stage/assignee moves through the
// data provider
type Service struct {
	provider *provider.Provider
	stages   []string
}

// NewService creates a board service; nil stages selects DefaultStages
func NewService(p *provider.Provider, stages []string) *Service {
	if len(stages) == 0 {
		stages = DefaultStages
	}
	return &Service{provider: p, stages: stages}
}

// Load fetches every task and groups them into stage columns. Configured
// stages come first in order; stages the server invents are appended in
// first-seen order so no task is ever dropped from the board.
func (s *Service) Load(ctx context.Context) (*Board, error) {
	result, err := s.provider.List(ctx, "task", provider.ListParams{
		Pagination: provider.Pagination{Mode: provider.PaginationOff},
	})
	if err != nil {
		return nil, err
	}
	tasks, err := api.DecodeAll[api.Task](result.Data)
	if err != nil {
		return nil, fmt.Errorf("malformed task records: %w", err)
	}

	index := make(map[string]int, len(s.stages))
	b := &Board{Total: result.Total}
	for _, stage := range s.stages {
		index[stage] = len(b.Columns)
		b.Columns = append(b.Columns, Column{Stage: stage})
	}
	for _, task := range tasks {
		i, ok := index[task.Stage]
		if !ok {
			i = len(b.Columns)
			index[task.Stage] = i
			b.Columns = append(b.Columns, Column{Stage: task.Stage})
		}
		b.Columns[i].Tasks = append(b.Columns[i].Tasks, task)
	}
	return b, nil
}

// Move drops a task into another stage column. Unknown stages are rejected
// client-side before any request is made.
func (s *Service) Move(ctx context.Context, taskID, stage string) (api.Task, error) {
	if !s.validStage(stage) {
		return api.Task{}, &apierror.Error{
			Kind:    apierror.KindValidation,
			Message: fmt.Sprintf("unknown stage %q", stage),
		}
	}
	return s.update(ctx, taskID, map[string]string{"stage": stage})
}

// Assign reassigns a task to another user
func (s *Service) Assign(ctx context.Context, taskID, userID string) (api.Task, error) {
	return s.update(ctx, taskID, map[string]string{"assigned_user_id": userID})
}

func (s *Service) update(ctx context.Context, taskID string, variables map[string]string) (api.Task, error) {
	record, err := s.provider.Update(ctx, "task", taskID, variables)
	if err != nil {
		return api.Task{}, err
	}
	task, err := api.Decode[api.Task](record)
	if err != nil {
		return api.Task{}, fmt.Errorf("malformed task record: %w", err)
	}
	return task, nil
}

func (s *Service) validStage(stage string) bool {
	for _, known := range s.stages {
		if known == stage {
			return true
		}
	}
	return false
}
