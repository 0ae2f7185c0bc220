package export

import (
	"fmt"
	"io"
	"time"

	"github.com/FILM6912/Agent-UI-sub001/internal/app"
)

// MarkdownExporter exports sessions in Markdown format
type MarkdownExporter struct{}

// Export exports a session to Markdown format
func (e *MarkdownExporter) Export(session *app.ChatSession, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# %s\n\n", session.Title)
	_, _ = fmt.Fprintf(w, "**Session:** %s  \n", session.ID)
	_, _ = fmt.Fprintf(w, "**Updated:** %s  \n", session.UpdatedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(session.Messages))

	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range session.Messages {
		label := msg.Role
		if len(msg.Versions) > 1 {
			label = fmt.Sprintf("%s (version %d/%d)", msg.Role, msg.CurrentVersionIndex+1, len(msg.Versions))
		}
		_, _ = fmt.Fprintf(w, "**%s:**\n\n%s\n\n", label, msg.Content)

		for _, att := range msg.Attachments {
			_, _ = fmt.Fprintf(w, "> attachment: %s\n\n", att.Name)
		}
		for _, step := range msg.Steps {
			_, _ = fmt.Fprintf(w, "> %s: %s\n\n", step.Kind, step.Title)
		}

		if i < len(session.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}
	return nil
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
