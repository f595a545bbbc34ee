package domain

type TaskStatus string

const (
	TaskTodo    TaskStatus = "todo"
	TaskDoing   TaskStatus = "doing"
	TaskBlocked TaskStatus = "blocked"
	TaskReview  TaskStatus = "review"
	TaskDone    TaskStatus = "done"
)

// ValidTaskStatuses is the canonical set of accepted status strings.
var ValidTaskStatuses = map[string]bool{
	"todo": true, "doing": true, "blocked": true, "review": true, "done": true,
}

// DependencyType encodes which endpoints of the two tasks the
// precedence constraint ties together.
type DependencyType string

const (
	FinishStart  DependencyType = "FS"
	StartStart   DependencyType = "SS"
	FinishFinish DependencyType = "FF"
	StartFinish  DependencyType = "SF"
)

// ValidDependencyTypes is the canonical set of accepted edge types.
var ValidDependencyTypes = map[string]bool{
	"FS": true, "SS": true, "FF": true, "SF": true,
}

type EstimateUnit string

const (
	EstimateHours EstimateUnit = "hours"
	EstimateDays  EstimateUnit = "days"
)

type LagUnit string

const (
	LagHours LagUnit = "hours"
	LagDays  LagUnit = "days"
)
