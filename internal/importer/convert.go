package importer

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkowalczyk/gantry/internal/domain"
	"github.com/mkowalczyk/gantry/internal/progress"
)

// GeneratedProject holds the converted domain objects ready for
// persistence.
type GeneratedProject struct {
	Project      *domain.Project
	Tasks        []*domain.Task
	Dependencies []domain.Dependency
}

// Convert transforms a validated ImportSchema into domain objects.
// Call ValidateImportSchema first; Convert assumes the schema is valid.
func Convert(schema *ImportSchema, now time.Time) (*GeneratedProject, error) {
	startDate, err := time.Parse(dateLayout, schema.Project.StartDate)
	if err != nil {
		return nil, fmt.Errorf("parsing start_date: %w", err)
	}
	targetDate, err := parseOptionalDate(schema.Project.TargetDate)
	if err != nil {
		return nil, fmt.Errorf("parsing target_date: %w", err)
	}

	project := &domain.Project{
		ID:         uuid.New().String(),
		Name:       schema.Project.Name,
		StartDate:  startDate,
		TargetDate: targetDate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	refMap := make(map[string]string, len(schema.Tasks))
	// Order indexes count up per sibling group, in file order.
	siblingCount := make(map[string]int)

	tasks := make([]*domain.Task, 0, len(schema.Tasks))
	for _, t := range schema.Tasks {
		realID := uuid.New().String()
		refMap[t.Ref] = realID

		var parentID *string
		groupKey := ""
		if t.ParentRef != nil && *t.ParentRef != "" {
			pid, ok := refMap[*t.ParentRef]
			if !ok {
				return nil, fmt.Errorf("parent_ref %q not found for task %q", *t.ParentRef, t.Ref)
			}
			parentID = &pid
			groupKey = pid
		}

		status := t.Status
		if status == "" {
			status = string(domain.TaskTodo)
		}
		estimateUnit := t.EstimateUnit
		if estimateUnit == "" {
			estimateUnit = string(domain.EstimateHours)
		}
		estimate := 0.0
		if t.EstimateValue != nil {
			estimate = *t.EstimateValue
		}
		pct := 0
		if t.Progress != nil {
			pct = *t.Progress
		}

		start, err := parseOptionalDate(t.StartDate)
		if err != nil {
			return nil, fmt.Errorf("task %q start_date: %w", t.Ref, err)
		}
		due, err := parseOptionalDate(t.DueDate)
		if err != nil {
			return nil, fmt.Errorf("task %q due_date: %w", t.Ref, err)
		}

		tasks = append(tasks, &domain.Task{
			ID:            realID,
			ProjectID:     project.ID,
			ParentTaskID:  parentID,
			Title:         t.Title,
			Status:        domain.TaskStatus(status),
			EstimateValue: estimate,
			EstimateUnit:  domain.EstimateUnit(estimateUnit),
			StartDate:     start,
			DueDate:       due,
			Progress:      pct,
			OrderIndex:    siblingCount[groupKey],
			Version:       1,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		siblingCount[groupKey]++
	}

	// Parents carry the weighted aggregate of their children from the
	// first committed state. Children appear after their parent in the
	// file, so a reverse walk aggregates bottom-up.
	childrenOf := make(map[string][]*domain.Task)
	for _, task := range tasks {
		if task.ParentTaskID != nil {
			childrenOf[*task.ParentTaskID] = append(childrenOf[*task.ParentTaskID], task)
		}
	}
	for i := len(tasks) - 1; i >= 0; i-- {
		if children := childrenOf[tasks[i].ID]; len(children) > 0 {
			tasks[i].Progress = progress.WeightedAverage(children)
		}
	}

	deps := make([]domain.Dependency, 0, len(schema.Dependencies))
	for _, d := range schema.Dependencies {
		depType := d.Type
		if depType == "" {
			depType = string(domain.FinishStart)
		}
		lagUnit := d.LagUnit
		if lagUnit == "" {
			lagUnit = string(domain.LagDays)
		}
		deps = append(deps, domain.Dependency{
			ID:            uuid.New().String(),
			ProjectID:     project.ID,
			PredecessorID: refMap[d.PredecessorRef],
			SuccessorID:   refMap[d.SuccessorRef],
			Type:          domain.DependencyType(depType),
			Lag:           d.Lag,
			LagUnit:       domain.LagUnit(lagUnit),
			CreatedAt:     now,
		})
	}

	return &GeneratedProject{Project: project, Tasks: tasks, Dependencies: deps}, nil
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
