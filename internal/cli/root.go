// Package cli wires the gantry command tree to the service layer.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mkowalczyk/gantry/internal/service"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Projects     service.ProjectService
	Tasks        service.TaskService
	Dependencies service.DependencyService
	Schedule     service.ScheduleService
	Import       service.ImportService

	// Actor is recorded on every mutation in the activity log.
	Actor string

	// Interactive is true when stdout is a TTY; forms and the browser
	// are disabled otherwise.
	Interactive bool
}

// NewRootCmd creates the top-level "gantry" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "gantry",
		Short:         "Work breakdown and critical path planner",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Accept underscore variants of multi-word flags (--lag_unit).
	root.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	root.AddCommand(
		newProjectCmd(app),
		newTaskCmd(app),
		newDepCmd(app),
		newScheduleCmd(app),
		newBrowseCmd(app),
	)

	return root
}
