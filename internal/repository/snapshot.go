package repository

import (
	"encoding/json"
	"fmt"
)

// Snapshot keys used when no override is configured.
const (
	DefaultKnowledgeKey = "kb.json"
	DefaultChatsKey     = "chats.json"
)

// encodeSnapshot renders records as indented JSON so snapshots stay readable.
func encodeSnapshot(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}
