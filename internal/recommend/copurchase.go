package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// CoPurchase serves pre-computed association-rule lookups. Rules map a
// normalized item name to the items most often bought together with it.
type CoPurchase struct {
	rules map[string][]string
}

// NewCoPurchase loads rules from path. A missing file leaves the recommender
// empty; a malformed file is an error.
func NewCoPurchase(path string, logger *zap.Logger) (*CoPurchase, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &CoPurchase{rules: make(map[string][]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("co-purchase rules not found", zap.String("path", path))
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read co-purchase rules: %w", err)
	}

	var raw map[string][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse co-purchase rules: %w", err)
	}
	for key, entries := range raw {
		c.rules[strings.ToLower(key)] = decodeNameList(entries)
	}

	logger.Info("co-purchase rules loaded", zap.Int("rules", len(c.rules)))
	return c, nil
}

// Get returns up to topK co-purchase suggestions for an item. Unknown items
// yield an empty list.
func (c *CoPurchase) Get(itemName string, topK int) []string {
	key := strings.ToLower(strings.TrimSpace(itemName))
	names := c.rules[key]
	if len(names) > topK {
		names = names[:topK]
	}
	return names
}

// decodeNameList accepts entries that are plain strings or objects carrying
// one of the known name keys. Rule files produced by different exporters mix
// both shapes.
func decodeNameList(raw []json.RawMessage) []string {
	var names []string
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			if s != "" {
				names = append(names, s)
			}
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal(r, &obj); err != nil {
			continue
		}
		for _, key := range []string{"name", "item", "consequent"} {
			if v, ok := obj[key].(string); ok && v != "" {
				names = append(names, v)
				break
			}
		}
	}
	return names
}
