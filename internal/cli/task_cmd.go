package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkowalczyk/gantry/internal/cli/formatter"
	"github.com/mkowalczyk/gantry/internal/domain"
	"github.com/mkowalczyk/gantry/internal/hierarchy"
	"github.com/mkowalczyk/gantry/internal/service"
)

func newTaskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	cmd.AddCommand(
		newTaskAddCmd(app),
		newTaskListCmd(app),
		newTaskShowCmd(app),
		newTaskSetCmd(app),
		newTaskRemoveCmd(app),
		newTaskMoveCmd(app),
		newTaskReorderCmd(app),
		newTaskTreeCmd(app),
		newTaskProgressCmd(app),
	)

	return cmd
}

func newTaskAddCmd(app *App) *cobra.Command {
	var project, parent, title, estimate, due string
	var interactive bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			projectID, err := resolveProjectID(ctx, app, project)
			if err != nil {
				return err
			}

			var parentID *string
			if parent != "" {
				id, err := resolveTaskID(ctx, app, projectID, parent)
				if err != nil {
					return err
				}
				parentID = &id
			}

			if interactive {
				if !app.Interactive {
					return fmt.Errorf("interactive mode needs a terminal")
				}
				if err := taskAddForm(&title, &estimate, &due).Run(); err != nil {
					return err
				}
			}
			if title == "" {
				return fmt.Errorf("task title is required (use --title or --interactive)")
			}

			task, err := app.Tasks.Create(ctx, projectID, parentID, title, app.Actor)
			if err != nil {
				return err
			}

			// Estimate and due date go through a follow-up update so the
			// create path stays minimal.
			patch := service.TaskPatch{}
			touched := false
			if estimate != "" {
				v, err := strconv.ParseFloat(estimate, 64)
				if err != nil {
					return fmt.Errorf("invalid estimate %q: %w", estimate, err)
				}
				patch.EstimateValue = &v
				touched = true
			}
			if due != "" {
				d, err := time.Parse("2006-01-02", due)
				if err != nil {
					return fmt.Errorf("invalid due date %q: %w", due, err)
				}
				dp := &d
				patch.DueDate = &dp
				touched = true
			}
			if touched {
				token := domain.FormatVersionToken(task.Version, task.UpdatedAt)
				if task, err = app.Tasks.Update(ctx, task.ID, patch, token, app.Actor); err != nil {
					return err
				}
			}

			fmt.Printf("Created task %s [%s]\n", task.Title, formatter.TruncID(task.ID))
			fmt.Printf("Token: %s\n", domain.FormatVersionToken(task.Version, task.UpdatedAt))
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Project ID or name")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent task ID")
	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().StringVar(&estimate, "estimate", "", "Estimate in hours")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Fill in fields via a form")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func newTaskListCmd(app *App) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			projectID, err := resolveProjectID(ctx, app, project)
			if err != nil {
				return err
			}
			tasks, err := app.Tasks.ListByProject(ctx, projectID)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Println("No tasks found.")
				return nil
			}
			fmt.Printf("%s\n", formatter.FormatTaskList(tasks))
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Project ID or name")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func newTaskShowCmd(app *App) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show task details including its version token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			taskID := args[0]
			if project != "" {
				projectID, err := resolveProjectID(ctx, app, project)
				if err != nil {
					return err
				}
				if taskID, err = resolveTaskID(ctx, app, projectID, args[0]); err != nil {
					return err
				}
			}
			task, err := app.Tasks.GetByID(ctx, taskID)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", formatter.FormatTaskDetail(task))
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Project ID or name (enables ID prefixes)")

	return cmd
}

func newTaskSetCmd(app *App) *cobra.Command {
	var token, title, status, estimate, unit, start, due string

	cmd := &cobra.Command{
		Use:   "set ID",
		Short: "Update task fields under an expected-version token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := service.TaskPatch{}
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("status") {
				s := domain.TaskStatus(status)
				patch.Status = &s
			}
			if cmd.Flags().Changed("estimate") {
				v, err := strconv.ParseFloat(estimate, 64)
				if err != nil {
					return fmt.Errorf("invalid estimate %q: %w", estimate, err)
				}
				patch.EstimateValue = &v
			}
			if cmd.Flags().Changed("unit") {
				u := domain.EstimateUnit(unit)
				patch.EstimateUnit = &u
			}
			if cmd.Flags().Changed("start") {
				d, err := parseClearableDate(start)
				if err != nil {
					return err
				}
				patch.StartDate = &d
			}
			if cmd.Flags().Changed("due") {
				d, err := parseClearableDate(due)
				if err != nil {
					return err
				}
				patch.DueDate = &d
			}

			task, err := app.Tasks.Update(context.Background(), args[0], patch, token, app.Actor)
			if err != nil {
				return err
			}
			fmt.Printf("Updated task %s\n", formatter.TruncID(task.ID))
			fmt.Printf("Token: %s\n", domain.FormatVersionToken(task.Version, task.UpdatedAt))
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Version token from the last read")
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&status, "status", "", "New status (todo|doing|blocked|review|done)")
	cmd.Flags().StringVar(&estimate, "estimate", "", "New estimate value")
	cmd.Flags().StringVar(&unit, "unit", "", "Estimate unit (hours|days)")
	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD, empty to clear)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD, empty to clear)")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

// parseClearableDate maps "" to a nil date (clearing the field).
func parseClearableDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return &d, nil
}

func newTaskRemoveCmd(app *App) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "rm ID",
		Short: "Soft-delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Tasks.Delete(context.Background(), args[0], token, app.Actor); err != nil {
				return err
			}
			fmt.Printf("Removed task %s\n", formatter.TruncID(args[0]))
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Version token from the last read")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func newTaskMoveCmd(app *App) *cobra.Command {
	var token, parent string
	var toRoot bool

	cmd := &cobra.Command{
		Use:   "move ID",
		Short: "Move a task under a new parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (parent == "") == !toRoot {
				return fmt.Errorf("exactly one of --parent or --root is required")
			}
			var parentID *string
			if parent != "" {
				parentID = &parent
			}
			result, err := app.Tasks.Reparent(context.Background(), args[0], parentID, token, app.Actor)
			if err != nil {
				return err
			}
			fmt.Printf("Moved task %s to level %d (position %d)\n",
				formatter.TruncID(result.TaskID), result.NewLevel, result.OrderIndex)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Version token from the last read")
	cmd.Flags().StringVar(&parent, "parent", "", "New parent task ID")
	cmd.Flags().BoolVar(&toRoot, "root", false, "Move to the root level")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func newTaskReorderCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reorder ID=INDEX [ID=INDEX...]",
		Short: "Reorder siblings in one atomic batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs := make([]hierarchy.OrderPair, 0, len(args))
			for _, arg := range args {
				id, idxStr, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf("expected ID=INDEX, got %q", arg)
				}
				idx, err := strconv.Atoi(idxStr)
				if err != nil {
					return fmt.Errorf("invalid index in %q: %w", arg, err)
				}
				pairs = append(pairs, hierarchy.OrderPair{TaskID: id, OrderIndex: idx})
			}

			updated, err := app.Tasks.ReorderSiblings(context.Background(), pairs, app.Actor)
			if err != nil {
				return err
			}
			fmt.Printf("Reordered %d tasks\n", updated)
			return nil
		},
	}

	return cmd
}

func newTaskTreeCmd(app *App) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the project's work breakdown tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			projectID, err := resolveProjectID(ctx, app, project)
			if err != nil {
				return err
			}
			roots, childMap, err := loadTree(ctx, app, projectID)
			if err != nil {
				return err
			}
			if len(roots) == 0 {
				fmt.Println("No tasks found.")
				return nil
			}
			fmt.Printf("%s\n", formatter.FormatTaskTree(roots, childMap))
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Project ID or name")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

// loadTree groups a project's live tasks by parent, ordered by order
// index within each group.
func loadTree(ctx context.Context, app *App, projectID string) ([]*domain.Task, map[string][]*domain.Task, error) {
	roots, err := app.Tasks.ListChildren(ctx, projectID, nil)
	if err != nil {
		return nil, nil, err
	}
	all, err := app.Tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	childMap := make(map[string][]*domain.Task)
	for _, t := range all {
		if t.ParentTaskID != nil {
			childMap[*t.ParentTaskID] = append(childMap[*t.ParentTaskID], t)
		}
	}
	return roots, childMap, nil
}

func newTaskProgressCmd(app *App) *cobra.Command {
	var token string
	var items []string
	var atomic bool

	cmd := &cobra.Command{
		Use:   "progress [ID PCT]",
		Short: "Set leaf progress, singly or in a batch",
		Long: "Set progress on one leaf task (gantry task progress ID PCT --token T)\n" +
			"or on many with repeated --item ID=PCT=TOKEN flags. Batches are\n" +
			"best-effort unless --atomic is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if len(items) > 0 {
				if len(args) != 0 {
					return fmt.Errorf("positional arguments and --item are mutually exclusive")
				}
				batch := make([]service.ProgressItem, 0, len(items))
				for _, raw := range items {
					parts := strings.SplitN(raw, "=", 3)
					if len(parts) != 3 {
						return fmt.Errorf("expected ID=PCT=TOKEN, got %q", raw)
					}
					pct, err := strconv.Atoi(parts[1])
					if err != nil {
						return fmt.Errorf("invalid progress in %q: %w", raw, err)
					}
					batch = append(batch, service.ProgressItem{TaskID: parts[0], Progress: pct, Token: parts[2]})
				}
				mode := service.BatchNonAtomic
				if atomic {
					mode = service.BatchAtomic
				}
				result, err := app.Tasks.BatchSetProgress(ctx, batch, mode, app.Actor)
				if err != nil {
					return err
				}
				fmt.Printf("Applied %d/%d updates\n", result.SuccessCount, len(batch))
				for _, e := range result.Errors {
					fmt.Printf("  %s: %v\n", formatter.TruncID(e.TaskID), e.Err)
				}
				return nil
			}

			if len(args) != 2 {
				return fmt.Errorf("expected ID and PCT (or --item flags)")
			}
			pct, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid progress %q: %w", args[1], err)
			}
			task, err := app.Tasks.SetProgress(ctx, args[0], pct, token, app.Actor)
			if err != nil {
				return err
			}
			fmt.Printf("Progress of %s is now %d%%\n", formatter.TruncID(task.ID), task.Progress)
			fmt.Printf("Token: %s\n", domain.FormatVersionToken(task.Version, task.UpdatedAt))
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Version token from the last read")
	cmd.Flags().StringArrayVar(&items, "item", nil, "Batch item as ID=PCT=TOKEN (repeatable)")
	cmd.Flags().BoolVar(&atomic, "atomic", false, "Roll the whole batch back on any failure")

	return cmd
}
