package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/mkowalczyk/gantry/internal/activity"
	"github.com/mkowalczyk/gantry/internal/cli"
	"github.com/mkowalczyk/gantry/internal/clock"
	"github.com/mkowalczyk/gantry/internal/config"
	"github.com/mkowalczyk/gantry/internal/db"
	"github.com/mkowalczyk/gantry/internal/depgraph"
	"github.com/mkowalczyk/gantry/internal/hierarchy"
	"github.com/mkowalczyk/gantry/internal/progress"
	"github.com/mkowalczyk/gantry/internal/repository"
	"github.com/mkowalczyk/gantry/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	dbPath, err := env.ResolveDBPath()
	if err != nil {
		return err
	}

	database, err := db.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	clk := clock.System{}

	// Repositories and unit of work
	projectRepo := repository.NewSQLiteProjectRepo(database)
	taskRepo := repository.NewSQLiteTaskRepo(database)
	depRepo := repository.NewSQLiteDependencyRepo(database)
	activityRepo := repository.NewSQLiteActivityRepo(database)
	uow := db.NewSQLiteUnitOfWork(database)

	// Activity sink: the durable log, plus stderr logging when enabled.
	var sink activity.Sink = activity.NewRepoSink(activityRepo, nil)
	var observer service.UseCaseObserver
	if env.Log {
		sink = activity.Fanout{sink, activity.NewLogSink(os.Stderr, env.SlogLevel())}
		observer = service.NewLogUseCaseObserver(os.Stderr, env.SlogLevel())
	}

	// Domain managers
	hier := hierarchy.NewManager(taskRepo, uow, clk, sink, env.MaxDepth)
	agg := progress.NewAggregator(taskRepo, uow, clk, sink, env.MaxDepth)
	graph := depgraph.NewManager(depRepo, taskRepo, uow, clk, sink)

	// Services
	sched := service.NewScheduleService(taskRepo, depRepo)
	locks := service.NewLockRegistry()

	app := &cli.App{
		Projects:     service.NewProjectService(projectRepo, clk, sink),
		Tasks:        service.NewTaskService(taskRepo, uow, clk, sink, hier, agg, sched, locks, observer),
		Dependencies: service.NewDependencyService(graph, sched, locks),
		Schedule:     sched,
		Import:       service.NewImportService(uow, clk, sink, env.MaxDepth),
		Actor:        actorName(),
		Interactive:  isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}

	return cli.NewRootCmd(app).Execute()
}

func actorName() string {
	if v := os.Getenv("GANTRY_ACTOR"); v != "" {
		return v
	}
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	return "unknown"
}
