package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkowalczyk/gantry/internal/cli/formatter"
)

func newScheduleCmd(app *App) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute the project's critical-path schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			projectID, err := resolveProjectID(ctx, app, project)
			if err != nil {
				return err
			}
			result, err := app.Schedule.Get(ctx, projectID)
			if err != nil {
				return err
			}
			if len(result.Order) == 0 {
				fmt.Println("No tasks to schedule.")
				return nil
			}
			titles, err := taskTitles(ctx, app, projectID)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", formatter.FormatSchedule(result, titles))
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Project ID or name")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}
