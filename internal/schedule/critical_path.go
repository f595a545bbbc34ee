// Package schedule derives a critical-path schedule from the
// precedence graph: a forward and backward pass over the dependency
// edges yields earliest/latest start and finish offsets and total
// float per task.
//
// All offsets are fractional days relative to the project start date.
package schedule

import (
	"fmt"
	"math"
	"sort"

	"github.com/mkowalczyk/gantry/internal/domain"
)

// floatEpsilon absorbs floating-point noise from lag arithmetic when
// classifying zero-float tasks.
const floatEpsilon = 1e-9

// TaskSchedule holds the computed schedule for one task.
type TaskSchedule struct {
	TaskID         string
	Duration       float64
	EarliestStart  float64
	EarliestFinish float64
	LatestStart    float64
	LatestFinish   float64
	TotalFloat     float64
	Critical       bool
}

// Result is a full project schedule.
type Result struct {
	Tasks map[string]*TaskSchedule

	// Order is the topological order the passes used; stable for
	// rendering.
	Order []string

	// CriticalPath is the maximal chain of zero-float tasks connected
	// by dependency edges, in precedence order.
	CriticalPath []string

	// ProjectLength is the earliest possible project length in days
	// (the maximum earliest finish).
	ProjectLength float64
}

// Compute runs the critical path method over the given tasks and
// edges. Soft-deleted tasks and edges touching unknown tasks are
// ignored. It fails with domain.ErrCycle if no topological order
// exists; the dependency manager prevents that, so hitting it means
// stored data is corrupt.
func Compute(tasks []*domain.Task, deps []domain.Dependency) (*Result, error) {
	nodes := make(map[string]*domain.Task, len(tasks))
	for _, t := range tasks {
		if t.IsDeleted() {
			continue
		}
		nodes[t.ID] = t
	}

	var edges []domain.Dependency
	for _, d := range deps {
		if nodes[d.PredecessorID] == nil || nodes[d.SuccessorID] == nil {
			continue
		}
		edges = append(edges, d)
	}

	order, err := topologicalOrder(nodes, edges)
	if err != nil {
		return nil, err
	}

	incoming := make(map[string][]domain.Dependency)
	outgoing := make(map[string][]domain.Dependency)
	for _, e := range edges {
		incoming[e.SuccessorID] = append(incoming[e.SuccessorID], e)
		outgoing[e.PredecessorID] = append(outgoing[e.PredecessorID], e)
	}

	result := &Result{Tasks: make(map[string]*TaskSchedule, len(nodes)), Order: order}

	// Forward pass: earliest start is the tightest lower bound over all
	// incoming constraints; tasks without predecessors start at 0.
	for _, id := range order {
		duration := nodes[id].DurationDays()
		es := 0.0
		for _, e := range incoming[id] {
			pred := result.Tasks[e.PredecessorID]
			lag := e.LagDays()
			var bound float64
			switch e.Type {
			case domain.FinishStart:
				bound = pred.EarliestFinish + lag
			case domain.StartStart:
				bound = pred.EarliestStart + lag
			case domain.FinishFinish:
				bound = pred.EarliestFinish + lag - duration
			case domain.StartFinish:
				bound = pred.EarliestStart + lag - duration
			}
			es = math.Max(es, bound)
		}
		result.Tasks[id] = &TaskSchedule{
			TaskID:         id,
			Duration:       duration,
			EarliestStart:  es,
			EarliestFinish: es + duration,
		}
	}

	projectEnd := 0.0
	for _, ts := range result.Tasks {
		projectEnd = math.Max(projectEnd, ts.EarliestFinish)
	}
	result.ProjectLength = projectEnd

	// Backward pass: latest finish is the tightest upper bound over all
	// outgoing constraints from the fixed project end.
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		ts := result.Tasks[id]
		lf := projectEnd
		for _, e := range outgoing[id] {
			succ := result.Tasks[e.SuccessorID]
			lag := e.LagDays()
			var bound float64
			switch e.Type {
			case domain.FinishStart:
				bound = succ.LatestStart - lag
			case domain.StartStart:
				bound = succ.LatestStart - lag + ts.Duration
			case domain.FinishFinish:
				bound = succ.LatestFinish - lag
			case domain.StartFinish:
				bound = succ.LatestFinish - lag + ts.Duration
			}
			lf = math.Min(lf, bound)
		}
		ts.LatestFinish = lf
		ts.LatestStart = lf - ts.Duration
		ts.TotalFloat = ts.LatestStart - ts.EarliestStart
		ts.Critical = math.Abs(ts.TotalFloat) < floatEpsilon
	}

	result.CriticalPath = criticalChain(result, incoming)
	return result, nil
}

// topologicalOrder runs Kahn's algorithm. Ties break on task ID so the
// order is deterministic.
func topologicalOrder(nodes map[string]*domain.Task, edges []domain.Dependency) ([]string, error) {
	inDegree := make(map[string]int, len(nodes))
	successors := make(map[string][]string)
	for id := range nodes {
		inDegree[id] = 0
	}
	for _, e := range edges {
		successors[e.PredecessorID] = append(successors[e.PredecessorID], e.SuccessorID)
		inDegree[e.SuccessorID]++
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		released := false
		for _, succ := range successors[id] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				ready = append(ready, succ)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}

	if len(order) != len(nodes) {
		return nil, fmt.Errorf("dependency graph has no topological order: %w", domain.ErrCycle)
	}
	return order, nil
}

// criticalChain finds the longest chain of zero-float tasks connected
// by dependency edges, walking the topological order with a
// longest-path DP restricted to critical nodes.
func criticalChain(result *Result, incoming map[string][]domain.Dependency) []string {
	chainLen := make(map[string]int)
	chainPrev := make(map[string]string)

	bestEnd := ""
	bestLen := 0
	for _, id := range result.Order {
		if !result.Tasks[id].Critical {
			continue
		}
		chainLen[id] = 1
		for _, e := range incoming[id] {
			pred := e.PredecessorID
			if !result.Tasks[pred].Critical {
				continue
			}
			if chainLen[pred]+1 > chainLen[id] {
				chainLen[id] = chainLen[pred] + 1
				chainPrev[id] = pred
			}
		}
		if chainLen[id] > bestLen {
			bestLen = chainLen[id]
			bestEnd = id
		}
	}
	if bestEnd == "" {
		return nil
	}

	chain := make([]string, 0, bestLen)
	for id := bestEnd; id != ""; id = chainPrev[id] {
		chain = append(chain, id)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
