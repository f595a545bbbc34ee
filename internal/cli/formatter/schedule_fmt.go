package formatter

import (
	"fmt"
	"strings"

	"github.com/mkowalczyk/gantry/internal/domain"
	"github.com/mkowalczyk/gantry/internal/schedule"
)

// FormatSchedule renders the critical-path table plus a summary line.
// titles maps task IDs to display titles.
func FormatSchedule(result *schedule.Result, titles map[string]string) string {
	headers := []string{"", "TASK", "DUR", "ES", "EF", "LS", "LF", "FLOAT"}
	rows := make([][]string, 0, len(result.Order))

	for _, id := range result.Order {
		ts := result.Tasks[id]
		title := titles[id]
		if title == "" {
			title = TruncID(id)
		}
		if ts.Critical {
			title = StyleRed.Render(title)
		} else {
			title = StyleFg.Render(title)
		}
		rows = append(rows, []string{
			CriticalIndicator(ts.Critical),
			title,
			FormatDays(ts.Duration),
			FormatDays(ts.EarliestStart),
			FormatDays(ts.EarliestFinish),
			FormatDays(ts.LatestStart),
			FormatDays(ts.LatestFinish),
			FormatDays(ts.TotalFloat),
		})
	}

	var b strings.Builder
	b.WriteString(RenderTable(headers, rows))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s days\n",
		StyleDim.Render("Project length:"), Bold(FormatDays(result.ProjectLength))))

	if len(result.CriticalPath) > 0 {
		names := make([]string, 0, len(result.CriticalPath))
		for _, id := range result.CriticalPath {
			name := titles[id]
			if name == "" {
				name = TruncID(id)
			}
			names = append(names, name)
		}
		b.WriteString(fmt.Sprintf("%s %s\n",
			StyleDim.Render("Critical path: "), StyleRed.Render(strings.Join(names, " → "))))
	}

	return RenderBox("Schedule", b.String())
}

// FormatDependencyList renders the project's precedence edges.
func FormatDependencyList(deps []domain.Dependency, titles map[string]string) string {
	headers := []string{"PREDECESSOR", "TYPE", "SUCCESSOR", "LAG"}
	rows := make([][]string, 0, len(deps))

	for _, d := range deps {
		pred := titles[d.PredecessorID]
		if pred == "" {
			pred = TruncID(d.PredecessorID)
		}
		succ := titles[d.SuccessorID]
		if succ == "" {
			succ = TruncID(d.SuccessorID)
		}
		lag := Dim("--")
		if d.Lag != 0 {
			suffix := "d"
			if d.LagUnit == domain.LagHours {
				suffix = "h"
			}
			lag = StyleFg.Render(fmt.Sprintf("%s%s", FormatDays(d.Lag), suffix))
		}
		rows = append(rows, []string{
			StyleFg.Render(pred),
			StylePurple.Render(string(d.Type)),
			StyleFg.Render(succ),
			lag,
		})
	}

	return RenderBox("Dependencies", RenderTable(headers, rows))
}
