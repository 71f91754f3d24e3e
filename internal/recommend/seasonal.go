package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// monthNames maps spelled-out month keys to their numbers. Data files use
// either form.
var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// Seasonal returns the items in season for a given month.
type Seasonal struct {
	byMonth map[time.Month][]string
}

// NewSeasonal loads the month table from path. Keys may be month numbers
// ("1") or names ("january"); unparseable keys are skipped.
func NewSeasonal(path string, logger *zap.Logger) (*Seasonal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Seasonal{byMonth: make(map[time.Month][]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("seasonal items not found", zap.String("path", path))
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seasonal items: %w", err)
	}

	var raw map[string][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse seasonal items: %w", err)
	}
	for key, entries := range raw {
		month, ok := parseMonthKey(key)
		if !ok {
			logger.Warn("skipping unrecognized month key", zap.String("key", key))
			continue
		}
		s.byMonth[month] = decodeNameList(entries)
	}

	logger.Info("seasonal items loaded", zap.Int("months", len(s.byMonth)))
	return s, nil
}

// Current returns up to topK items in season this month (UTC).
func (s *Seasonal) Current(topK int) []string {
	return s.ForMonth(time.Now().UTC().Month(), topK)
}

// ForMonth returns up to topK items in season for the given month.
func (s *Seasonal) ForMonth(month time.Month, topK int) []string {
	names := s.byMonth[month]
	if len(names) > topK {
		names = names[:topK]
	}
	return names
}

func parseMonthKey(key string) (time.Month, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	if n, err := strconv.Atoi(key); err == nil {
		if n >= 1 && n <= 12 {
			return time.Month(n), true
		}
		return 0, false
	}
	month, ok := monthNames[key]
	return month, ok
}
