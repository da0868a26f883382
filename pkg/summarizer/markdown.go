package summarizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/user/frame2prompt/pkg/stages/write"
)

// MarkdownFormatter renders a Summary as a Markdown analysis log.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", l10n.T("Analysis Log"))
	row(&b, l10n.T("Generated"), s.GeneratedAt.Format(time.RFC3339))
	row(&b, l10n.T("Run ID"), s.RunID)
	row(&b, l10n.T("Trial"), s.Trial)
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", l10n.T("Video"))
	row(&b, l10n.T("Source"), s.Video.SourcePath)
	if s.Video.ConvertedPath != "" {
		row(&b, l10n.T("Re-encoded"), s.Video.ConvertedPath)
	}
	row(&b, l10n.T("Resolution"), fmt.Sprintf("%dx%d", s.Video.Width, s.Video.Height))
	row(&b, l10n.T("Frame rate"), fmt.Sprintf("%.2f fps", s.Video.FrameRate))
	row(&b, l10n.T("Frames"), fmt.Sprintf("%d", s.Video.FrameCount))
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", l10n.T("Sampling"))
	row(&b, l10n.T("Interval"), write.FormatInterval(s.Sampling.IntervalSeconds)+" s")
	row(&b, l10n.T("Stride"), fmt.Sprintf("%d", s.Sampling.Stride))
	row(&b, l10n.T("Output directory"), s.Sampling.OutputDir)
	row(&b, l10n.T("Frames requested"), fmt.Sprintf("%d", s.Sampling.Requested))
	row(&b, l10n.T("Frames produced"), fmt.Sprintf("%d", s.Sampling.Produced))
	row(&b, l10n.T("Frames written"), fmt.Sprintf("%d", s.Sampling.Written))
	if s.Sampling.Files != s.Sampling.Written {
		row(&b, l10n.T("Distinct files"), fmt.Sprintf("%d", s.Sampling.Files))
	}
	if s.Sampling.Gap != "" {
		row(&b, l10n.T("Stopped early"), s.Sampling.Gap)
	}
	if s.Sampling.Interrupted {
		row(&b, l10n.T("Interrupted"), l10n.T("yes"))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", l10n.T("Annotation"))
	if !s.Annotation.Enabled {
		row(&b, l10n.T("Detection"), l10n.T("disabled"))
	} else {
		row(&b, l10n.T("Overlay mode"), s.Annotation.Mode)
		row(&b, l10n.T("Classes"), formatClasses(s.Annotation.Classes))
		row(&b, l10n.T("Detections"), fmt.Sprintf("%d", s.Annotation.Detections))
	}

	if c := s.Conversation; c != nil {
		fmt.Fprintf(&b, "\n## %s\n\n", l10n.T("Conversation"))
		row(&b, l10n.T("Model"), c.Model)
		row(&b, l10n.T("Group size"), fmt.Sprintf("%d", c.GroupSize))
		row(&b, l10n.T("Prompt"), c.Prompt)

		for _, g := range c.Groups {
			fmt.Fprintf(&b, "\n### %s\n\n", l10n.F("Group %d", g.Index))
			fmt.Fprintf(&b, "%s: %s\n\n", l10n.T("Images"), strings.Join(g.Images, ", "))
			b.WriteString(g.Reply)
			b.WriteString("\n")
		}

		if c.FollowUp != "" {
			fmt.Fprintf(&b, "\n## %s\n\n", l10n.T("Follow-up"))
			fmt.Fprintf(&b, "> %s\n\n", c.FollowUp)
			b.WriteString(c.FinalAnswer)
			b.WriteString("\n")
		}
	}

	return b.String()
}

func row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "- **%s**: %s\n", label, value)
}

func formatClasses(ids []int) string {
	if len(ids) == 0 {
		return l10n.T("all")
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}
