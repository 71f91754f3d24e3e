package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Similarity serves embedding-derived lookups: similar items for browsing and
// substitutes for out-of-stock style swaps. Both tables are loaded once.
type Similarity struct {
	similarities map[string][]string
	substitutes  map[string][]string
}

// NewSimilarity loads both tables. Missing files leave the corresponding
// table empty; malformed files are errors.
func NewSimilarity(similaritiesPath, substitutesPath string, logger *zap.Logger) (*Similarity, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Similarity{
		similarities: make(map[string][]string),
		substitutes:  make(map[string][]string),
	}

	var err error
	s.similarities, err = loadNameTable(similaritiesPath, "item similarities", logger)
	if err != nil {
		return nil, err
	}
	s.substitutes, err = loadNameTable(substitutesPath, "substitutes", logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetSimilar returns up to topK items similar to the given one.
func (s *Similarity) GetSimilar(itemName string, topK int) []string {
	key := strings.ToLower(strings.TrimSpace(itemName))
	names := s.similarities[key]
	if len(names) > topK {
		names = names[:topK]
	}
	return names
}

// GetSubstitutes returns up to topK substitutes for the given item.
func (s *Similarity) GetSubstitutes(itemName string, topK int) []string {
	key := strings.ToLower(strings.TrimSpace(itemName))
	names := s.substitutes[key]
	if len(names) > topK {
		names = names[:topK]
	}
	return names
}

// loadNameTable reads one item-to-names JSON table from disk.
func loadNameTable(path, label string, logger *zap.Logger) (map[string][]string, error) {
	table := make(map[string][]string)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("table not found", zap.String("table", label), zap.String("path", path))
		return table, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", label, err)
	}

	var raw map[string][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", label, err)
	}
	for key, entries := range raw {
		table[strings.ToLower(key)] = decodeNameList(entries)
	}

	logger.Info("table loaded", zap.String("table", label), zap.Int("entries", len(table)))
	return table, nil
}
