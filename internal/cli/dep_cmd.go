package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkowalczyk/gantry/internal/cli/formatter"
	"github.com/mkowalczyk/gantry/internal/domain"
)

func newDepCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Manage precedence dependencies",
	}

	cmd.AddCommand(
		newDepAddCmd(app),
		newDepRemoveCmd(app),
		newDepListCmd(app),
	)

	return cmd
}

func newDepAddCmd(app *App) *cobra.Command {
	var project, depType, lagUnit string
	var lag float64

	cmd := &cobra.Command{
		Use:   "add PREDECESSOR SUCCESSOR",
		Short: "Add a dependency edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			projectID, err := resolveProjectID(ctx, app, project)
			if err != nil {
				return err
			}
			predID, err := resolveTaskID(ctx, app, projectID, args[0])
			if err != nil {
				return err
			}
			succID, err := resolveTaskID(ctx, app, projectID, args[1])
			if err != nil {
				return err
			}

			dep, err := app.Dependencies.Create(ctx, projectID, predID, succID,
				domain.DependencyType(depType), lag, domain.LagUnit(lagUnit), app.Actor)
			if err != nil {
				return err
			}
			fmt.Printf("Added %s %s→%s\n", dep.Type,
				formatter.TruncID(dep.PredecessorID), formatter.TruncID(dep.SuccessorID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Project ID or name")
	cmd.Flags().StringVar(&depType, "type", "FS", "Dependency type (FS|SS|FF|SF)")
	cmd.Flags().Float64Var(&lag, "lag", 0, "Lag amount")
	cmd.Flags().StringVar(&lagUnit, "lag-unit", "days", "Lag unit (hours|days)")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func newDepRemoveCmd(app *App) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "rm PREDECESSOR SUCCESSOR",
		Short: "Remove every edge between two tasks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			projectID, err := resolveProjectID(ctx, app, project)
			if err != nil {
				return err
			}
			predID, err := resolveTaskID(ctx, app, projectID, args[0])
			if err != nil {
				return err
			}
			succID, err := resolveTaskID(ctx, app, projectID, args[1])
			if err != nil {
				return err
			}

			if err := app.Dependencies.Delete(ctx, projectID, predID, succID, app.Actor); err != nil {
				return err
			}
			fmt.Printf("Removed dependency %s→%s\n",
				formatter.TruncID(predID), formatter.TruncID(succID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Project ID or name")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func newDepListCmd(app *App) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			projectID, err := resolveProjectID(ctx, app, project)
			if err != nil {
				return err
			}
			deps, err := app.Dependencies.ListForProject(ctx, projectID)
			if err != nil {
				return err
			}
			if len(deps) == 0 {
				fmt.Println("No dependencies found.")
				return nil
			}
			titles, err := taskTitles(ctx, app, projectID)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", formatter.FormatDependencyList(deps, titles))
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Project ID or name")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func taskTitles(ctx context.Context, app *App, projectID string) (map[string]string, error) {
	tasks, err := app.Tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(tasks))
	for _, t := range tasks {
		titles[t.ID] = t.Title
	}
	return titles, nil
}
