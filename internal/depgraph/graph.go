package depgraph

import "github.com/mkowalczyk/gantry/internal/domain"

// HasCycle reports whether the full edge set contains a cycle. Used on
// bulk loads, where edges arrive as a set rather than one at a time.
func HasCycle(edges []domain.Dependency) bool {
	successors := make(map[string][]string, len(edges))
	for _, d := range edges {
		successors[d.PredecessorID] = append(successors[d.PredecessorID], d.SuccessorID)
	}

	type frame struct {
		node string
		next int
	}
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	for start := range successors {
		if visited[start] {
			continue
		}
		stack := []frame{{node: start}}
		visited[start] = true
		onStack[start] = true

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			outgoing := successors[top.node]

			if top.next >= len(outgoing) {
				onStack[top.node] = false
				stack = stack[:len(stack)-1]
				continue
			}

			next := outgoing[top.next]
			top.next++

			if onStack[next] {
				return true
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			onStack[next] = true
			stack = append(stack, frame{node: next})
		}
	}
	return false
}

// wouldCreateCycle reports whether adding candidate to the project's
// existing edges closes a cycle. It builds the successor adjacency list
// from all edges plus the candidate and runs an iterative depth-first
// search from the candidate's successor, keeping a visited set and an
// on-stack set; an edge back to a node on the stack is a cycle.
func wouldCreateCycle(existing []domain.Dependency, candidate domain.Dependency) bool {
	successors := make(map[string][]string, len(existing)+1)
	for _, d := range existing {
		successors[d.PredecessorID] = append(successors[d.PredecessorID], d.SuccessorID)
	}
	successors[candidate.PredecessorID] = append(successors[candidate.PredecessorID], candidate.SuccessorID)

	type frame struct {
		node string
		next int
	}
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	stack := []frame{{node: candidate.SuccessorID}}
	visited[candidate.SuccessorID] = true
	onStack[candidate.SuccessorID] = true

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		outgoing := successors[top.node]

		if top.next >= len(outgoing) {
			onStack[top.node] = false
			stack = stack[:len(stack)-1]
			continue
		}

		next := outgoing[top.next]
		top.next++

		if onStack[next] {
			return true
		}
		if visited[next] {
			continue
		}
		visited[next] = true
		onStack[next] = true
		stack = append(stack, frame{node: next})
	}
	return false
}
