package export

import (
	"fmt"
	"io"

	"github.com/FILM6912/Agent-UI-sub001/internal/app"
)

// Exporter writes one session transcript in a given format. Only the
// active version of each message is exported.
type Exporter interface {
	Export(session *app.ChatSession, w io.Writer) error
	Extension() string
}

// NewExporter creates an exporter for the named format.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return &JSONExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, yaml, md)", format)
	}
}
