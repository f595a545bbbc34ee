package importer

import (
	"fmt"
	"time"

	"github.com/mkowalczyk/gantry/internal/domain"
)

const dateLayout = "2006-01-02"

// ValidateImportSchema checks the import schema before conversion and
// returns every error found, not just the first.
func ValidateImportSchema(schema *ImportSchema, maxDepth int) []error {
	var errs []error

	errs = append(errs, validateProject(&schema.Project)...)

	taskRefs := make(map[string]bool)
	errs = append(errs, validateTasks(schema.Tasks, taskRefs, maxDepth)...)
	errs = append(errs, validateDependencies(schema.Dependencies, taskRefs)...)

	return errs
}

func validateProject(p *ProjectImport) []error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, fmt.Errorf("project.name is required"))
	}
	if p.StartDate == "" {
		errs = append(errs, fmt.Errorf("project.start_date is required"))
	} else if _, err := time.Parse(dateLayout, p.StartDate); err != nil {
		errs = append(errs, fmt.Errorf("project.start_date: invalid date %q (expected YYYY-MM-DD)", p.StartDate))
	}
	if p.TargetDate != nil {
		target, err := time.Parse(dateLayout, *p.TargetDate)
		if err != nil {
			errs = append(errs, fmt.Errorf("project.target_date: invalid date %q (expected YYYY-MM-DD)", *p.TargetDate))
		} else if start, serr := time.Parse(dateLayout, p.StartDate); serr == nil && !target.After(start) {
			errs = append(errs, fmt.Errorf("project.target_date %q must be after start_date %q", *p.TargetDate, p.StartDate))
		}
	}
	return errs
}

func validateTasks(tasks []TaskImport, taskRefs map[string]bool, maxDepth int) []error {
	var errs []error

	if len(tasks) == 0 {
		errs = append(errs, fmt.Errorf("at least one task is required"))
	}

	parentRefs := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t.ParentRef != nil && *t.ParentRef != "" {
			parentRefs[*t.ParentRef] = true
		}
	}

	levels := make(map[string]int, len(tasks))
	for i, t := range tasks {
		prefix := fmt.Sprintf("tasks[%d]", i)

		if t.Ref == "" {
			errs = append(errs, fmt.Errorf("%s.ref is required", prefix))
		} else if taskRefs[t.Ref] {
			errs = append(errs, fmt.Errorf("%s.ref %q is duplicated", prefix, t.Ref))
		}
		if t.Title == "" {
			errs = append(errs, fmt.Errorf("%s.title is required", prefix))
		}
		if t.Status != "" && !domain.ValidTaskStatuses[t.Status] {
			errs = append(errs, fmt.Errorf("%s.status: invalid value %q", prefix, t.Status))
		}
		if t.EstimateValue != nil && *t.EstimateValue < 0 {
			errs = append(errs, fmt.Errorf("%s.estimate must not be negative", prefix))
		}
		if t.EstimateUnit != "" && t.EstimateUnit != string(domain.EstimateHours) && t.EstimateUnit != string(domain.EstimateDays) {
			errs = append(errs, fmt.Errorf("%s.estimate_unit: invalid value %q", prefix, t.EstimateUnit))
		}
		if t.Progress != nil && (*t.Progress < 0 || *t.Progress > 100) {
			errs = append(errs, fmt.Errorf("%s.progress must be in [0,100]", prefix))
		}
		if t.Progress != nil && parentRefs[t.Ref] {
			errs = append(errs, fmt.Errorf("%s.progress: task %q has children, parent progress is computed", prefix, t.Ref))
		}
		for _, d := range []struct {
			name  string
			value *string
		}{{"start_date", t.StartDate}, {"due_date", t.DueDate}} {
			if d.value != nil {
				if _, err := time.Parse(dateLayout, *d.value); err != nil {
					errs = append(errs, fmt.Errorf("%s.%s: invalid date %q (expected YYYY-MM-DD)", prefix, d.name, *d.value))
				}
			}
		}

		level := 0
		if t.ParentRef != nil && *t.ParentRef != "" {
			if *t.ParentRef == t.Ref {
				errs = append(errs, fmt.Errorf("%s.parent_ref: task cannot be its own parent", prefix))
			} else if !taskRefs[*t.ParentRef] {
				errs = append(errs, fmt.Errorf("%s.parent_ref: unknown ref %q (parents must appear before children)", prefix, *t.ParentRef))
			} else {
				level = levels[*t.ParentRef] + 1
				if level >= maxDepth {
					errs = append(errs, fmt.Errorf("%s: task sits at level %d, limit %d", prefix, level, maxDepth))
				}
			}
		}

		if t.Ref != "" {
			taskRefs[t.Ref] = true
			levels[t.Ref] = level
		}
	}
	return errs
}

func validateDependencies(deps []DependencyImport, taskRefs map[string]bool) []error {
	var errs []error

	seen := make(map[string]bool, len(deps))
	for i, d := range deps {
		prefix := fmt.Sprintf("dependencies[%d]", i)

		if d.PredecessorRef == "" {
			errs = append(errs, fmt.Errorf("%s.predecessor_ref is required", prefix))
		} else if !taskRefs[d.PredecessorRef] {
			errs = append(errs, fmt.Errorf("%s.predecessor_ref: unknown ref %q", prefix, d.PredecessorRef))
		}
		if d.SuccessorRef == "" {
			errs = append(errs, fmt.Errorf("%s.successor_ref is required", prefix))
		} else if !taskRefs[d.SuccessorRef] {
			errs = append(errs, fmt.Errorf("%s.successor_ref: unknown ref %q", prefix, d.SuccessorRef))
		}
		if d.PredecessorRef != "" && d.PredecessorRef == d.SuccessorRef {
			errs = append(errs, fmt.Errorf("%s: task cannot depend on itself", prefix))
		}
		if d.Type != "" && !domain.ValidDependencyTypes[d.Type] {
			errs = append(errs, fmt.Errorf("%s.type: invalid value %q", prefix, d.Type))
		}
		if d.LagUnit != "" && d.LagUnit != string(domain.LagHours) && d.LagUnit != string(domain.LagDays) {
			errs = append(errs, fmt.Errorf("%s.lag_unit: invalid value %q", prefix, d.LagUnit))
		}

		depType := d.Type
		if depType == "" {
			depType = string(domain.FinishStart)
		}
		key := d.PredecessorRef + "\x00" + d.SuccessorRef + "\x00" + depType
		if seen[key] {
			errs = append(errs, fmt.Errorf("%s: duplicate edge %s->%s (%s)", prefix, d.PredecessorRef, d.SuccessorRef, depType))
		}
		seen[key] = true
	}
	return errs
}
