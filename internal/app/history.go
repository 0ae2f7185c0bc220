package app

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const promptHistoryLimit = 200

// PromptHistory is the on-disk shape of the recall buffer behind the input
// field: oldest first, adjacent duplicates collapsed.
type PromptHistory struct {
	Entries   []string  `json:"entries"`
	UpdatedAt time.Time `json:"updated_at"`
}

func promptHistoryPath(root string) string {
	if strings.TrimSpace(root) == "" {
		root = DefaultStorageRoot()
	}
	return filepath.Join(filepath.Clean(root), "prompt_history.json")
}

// LoadPromptHistory reads the stored prompts for a storage root. A missing
// file yields an empty history.
func LoadPromptHistory(root string) ([]string, error) {
	b, err := os.ReadFile(promptHistoryPath(root))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	var payload PromptHistory
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, err
	}
	return normalizePromptHistory(payload.Entries, promptHistoryLimit), nil
}

// SavePromptHistory writes the prompts back, trimmed and capped.
func SavePromptHistory(root string, entries []string) error {
	path := promptHistoryPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload := PromptHistory{
		Entries:   normalizePromptHistory(entries, promptHistoryLimit),
		UpdatedAt: time.Now().UTC(),
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func normalizePromptHistory(entries []string, max int) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1] == entry {
			continue
		}
		out = append(out, entry)
	}
	if max > 0 && len(out) > max {
		out = out[len(out)-max:]
	}
	return out
}
