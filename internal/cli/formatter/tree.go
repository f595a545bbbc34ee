package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TreeItem represents a single task in a tree display.
type TreeItem struct {
	Title    string
	Level    int
	IsLast   bool
	Status   string
	Progress int
	Detail   string
}

const (
	treeBranch = "├─ "
	treeCorner = "└─ "
	treePipe   = "│  "
)

// RenderTree renders TreeItems as an indented tree using box-drawing
// connectors. Done tasks get a green ✔ prefix, in-flight tasks an amber
// ▶ prefix; detail badges are right-aligned past the widest line.
func RenderTree(items []TreeItem) string {
	if len(items) == 0 {
		return ""
	}

	type lineInfo struct {
		content string
		badge   string
	}

	lines := make([]lineInfo, len(items))
	maxContentWidth := 0

	for idx, item := range items {
		var prefix string
		if item.Level > 0 {
			for i := 1; i < item.Level; i++ {
				prefix += treePipe
			}
			if item.IsLast {
				prefix += treeCorner
			} else {
				prefix += treeBranch
			}
		}

		title := item.Title
		statusPrefix := ""
		switch {
		case strings.EqualFold(item.Status, "done"):
			statusPrefix = StyleGreen.Render("✔ ")
			title = Dim(title)
		case strings.EqualFold(item.Status, "doing"):
			statusPrefix = StyleYellowBold.Render("▶ ")
			title = StyleYellowBold.Render(title)
		case strings.EqualFold(item.Status, "blocked"):
			statusPrefix = StyleRed.Render("✖ ")
		}

		content := prefix + statusPrefix + title
		lines[idx].content = content

		badge := item.Detail
		if badge == "" && item.Progress > 0 {
			badge = fmt.Sprintf("%d%%", item.Progress)
		}
		if badge != "" {
			lines[idx].badge = StyleBlue.Render(fmt.Sprintf("[ %s ]", badge))
		}

		if w := lipgloss.Width(content); w > maxContentWidth {
			maxContentWidth = w
		}
	}

	var b strings.Builder
	for _, li := range lines {
		if li.badge != "" {
			pad := maxContentWidth - lipgloss.Width(li.content)
			if pad < 0 {
				pad = 0
			}
			b.WriteString(li.content + strings.Repeat(" ", pad) + "  " + li.badge + "\n")
		} else {
			b.WriteString(li.content + "\n")
		}
	}
	return b.String()
}
