package report

import (
	"fmt"
	"io"
	"strings"

	"pairsched/internal/sched"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor  = lipgloss.Color("#7C3AED")
	coreColor     = lipgloss.Color("#10B981")
	overflowColor = lipgloss.Color("#F59E0B")
	mutedColor    = lipgloss.Color("#6B7280")

	frameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 1)

	clusterStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7aa2f7"))

	coreStyle = lipgloss.NewStyle().
			Foreground(coreColor)

	overflowStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(overflowColor)

	dimStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// Text prints every frame as a cluster tree.
type Text struct {
	w io.Writer
}

func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

func (t *Text) ReportFrame(fr sched.FrameReport) error {
	var b strings.Builder

	b.WriteString(frameStyle.Render(fmt.Sprintf("Frame %d", fr.Index)))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  t=%d  length=%d  clusters=%d", fr.Start, fr.Length, len(fr.Clusters))))
	b.WriteString("\n")

	for i, c := range fr.Clusters {
		prefix := "├─"
		if i == len(fr.Clusters)-1 {
			prefix = "└─"
		}
		b.WriteString(fmt.Sprintf("%s %s %s\n", prefix,
			clusterStyle.Render("Cluster "+c.Key.String()),
			dimStyle.Render(fmt.Sprintf("spare %.3f, tasks %s", c.SpareCapacity, formatIDs(c.TaskIDs)))))

		for _, core := range c.Key.Cores() {
			b.WriteString(fmt.Sprintf("     %s ", coreStyle.Render(fmt.Sprintf("core %d:", core))))
			var parts []string
			for _, p := range fr.Schedule.Tasks(core) {
				s := fmt.Sprintf("%d (%.3f)", p.TaskID, p.Share)
				if p.Overflow {
					s = overflowStyle.Render(s + " overflow")
				}
				parts = append(parts, s)
			}
			if len(parts) == 0 {
				parts = append(parts, dimStyle.Render("idle"))
			}
			b.WriteString(strings.Join(parts, ", "))
			b.WriteString(dimStyle.Render(fmt.Sprintf("  [remaining %.3f]", fr.Schedule.Remaining(core))))
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(t.w, b.String())
	return err
}

func formatIDs(ids []sched.TaskID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
