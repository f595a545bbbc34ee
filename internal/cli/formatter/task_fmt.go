package formatter

import (
	"fmt"
	"strings"

	"github.com/mkowalczyk/gantry/internal/domain"
)

// FormatTaskList renders tasks as a flat table.
func FormatTaskList(tasks []*domain.Task) string {
	headers := []string{"ID", "TITLE", "STATUS", "EST", "PROGRESS", "VERSION"}
	rows := make([][]string, 0, len(tasks))

	for _, t := range tasks {
		rows = append(rows, []string{
			TruncID(t.ID),
			Bold(t.Title),
			StatusPill(t.Status),
			FormatEstimate(t.EstimateValue, t.EstimateUnit),
			RenderProgress(t.Progress, 10),
			Dim(domain.FormatVersionToken(t.Version, t.UpdatedAt)),
		})
	}

	return RenderBox("Tasks", RenderTable(headers, rows))
}

// FormatTaskDetail renders a single task card. The version token is
// shown so it can be passed back on the next mutation.
func FormatTaskDetail(t *domain.Task) string {
	var b strings.Builder

	b.WriteString(StyleBold.Render(t.Title) + "\n\n")
	b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("STATUS  "), StatusPill(t.Status)))
	b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("ID      "), Dim(t.ID)))
	if t.ParentTaskID != nil {
		b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("PARENT  "), Dim(TruncID(*t.ParentTaskID))))
	}
	b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("ESTIMATE"), FormatEstimate(t.EstimateValue, t.EstimateUnit)))
	b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("PROGRESS"), RenderProgress(t.Progress, 20)))
	if t.StartDate != nil {
		b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("START   "), StyleFg.Render(HumanDate(*t.StartDate))))
	}
	if t.DueDate != nil {
		b.WriteString(fmt.Sprintf("%s  %s %s\n", StyleDim.Render("DUE     "),
			RelativeDateStyled(*t.DueDate), Dim("("+HumanDate(*t.DueDate)+")")))
	}
	b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("TOKEN   "),
		StylePurple.Render(domain.FormatVersionToken(t.Version, t.UpdatedAt))))

	return RenderBox("", b.String())
}

// FormatTaskTree renders the containment tree of a project. Children
// come pre-grouped by parent and ordered by order index.
func FormatTaskTree(roots []*domain.Task, childMap map[string][]*domain.Task) string {
	var items []TreeItem

	var walk func(tasks []*domain.Task, level int)
	walk = func(tasks []*domain.Task, level int) {
		for i, t := range tasks {
			items = append(items, TreeItem{
				Title:    t.Title,
				Level:    level,
				IsLast:   i == len(tasks)-1,
				Status:   string(t.Status),
				Progress: t.Progress,
			})
			walk(childMap[t.ID], level+1)
		}
	}
	walk(roots, 0)

	return RenderBox("Work Breakdown", RenderTree(items))
}
