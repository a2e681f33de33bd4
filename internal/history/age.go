package history

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseAge parses a record age for pruning. On top of the standard Go
// duration syntax it accepts day and week suffixes (48h, 7d, 2w).
// "0" and the empty string mean no age limit.
func ParseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if s == "" || s == "0" {
		return 0, nil
	}

	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid age: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid age: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}
