// Package moderation implements the message censorship pipeline: the word
// list, the censorship engine, and the abuse escalation state machine that
// blocks repeat offenders.
package moderation

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// wordListFile matches the on-disk format: {"words": ["...", ...]}.
type wordListFile struct {
	Words []string `json:"words"`
}

// LoadWordList reads the prohibited-word file and returns the normalized
// (lower-cased, deduplicated) word forms.
func LoadWordList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read word list %s: %w", path, err)
	}

	var file wordListFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse word list %s: %w", path, err)
	}
	if len(file.Words) == 0 {
		return nil, fmt.Errorf("word list %s contains no words", path)
	}

	seen := make(map[string]struct{}, len(file.Words))
	words := make([]string, 0, len(file.Words))
	for _, w := range file.Words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return words, nil
}
