package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/FILM6912/Agent-UI-sub001/internal/app"
)

const maxInlineAttachment = 64 * 1024

// queueAttachment loads a file and parks it for the next send. Oversized
// files are attached by reference instead of inline.
func (m *Model) queueAttachment(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("usage: /attach <path>")
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	att := app.Attachment{Name: filepath.Base(path)}
	if info.Size() <= maxInlineAttachment {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		att.Content = string(data)
	} else {
		att.Ref = path
	}
	m.pending = append(m.pending, att)
	return nil
}

func (m *Model) takePendingAttachments() []app.Attachment {
	atts := m.pending
	m.pending = nil
	return atts
}

// handleSlashCommand intercepts /attach and /clear before a prompt is sent.
// Reports whether the input was consumed.
func (m *Model) handleSlashCommand(val string) bool {
	switch {
	case strings.HasPrefix(val, "/attach"):
		if err := m.queueAttachment(strings.TrimPrefix(val, "/attach")); err != nil {
			m.statusText = fmt.Sprintf("✗ %v", err)
		} else {
			m.statusText = fmt.Sprintf("%d attachment(s) queued", len(m.pending))
		}
		return true
	case val == "/clear":
		m.pending = nil
		m.statusText = "Attachments cleared"
		return true
	}
	return false
}
