package formatter

import (
	"github.com/mkowalczyk/gantry/internal/domain"
)

// FormatProjectList renders a styled project list inside a bordered box.
func FormatProjectList(projects []*domain.Project) string {
	headers := []string{"ID", "NAME", "START", "TARGET"}
	rows := make([][]string, 0, len(projects))

	for _, p := range projects {
		target := Dim("--")
		if p.TargetDate != nil {
			target = RelativeDateStyled(*p.TargetDate)
		}
		rows = append(rows, []string{
			TruncID(p.ID),
			Bold(p.Name),
			StyleFg.Render(HumanDate(p.StartDate)),
			target,
		})
	}

	return RenderBox("Projects", RenderTable(headers, rows))
}
