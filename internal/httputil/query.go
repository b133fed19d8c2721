package httputil

import (
	"fmt"
	"strconv"
)

// ParseLimit parses and validates a limit query parameter.
// Returns def when the parameter is empty; caps at max.
func ParseLimit(limitStr string, def, max int) (int, error) {
	if limitStr == "" {
		return def, nil
	}

	n, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: must be an integer")
	}
	if n < 1 || n > max {
		return 0, fmt.Errorf("limit must be between 1 and %d", max)
	}
	return n, nil
}

// ParseDays parses and validates a days query parameter for analytics
// windows. Returns def when the parameter is empty; caps at 365.
func ParseDays(daysStr string, def int) (int, error) {
	if daysStr == "" {
		return def, nil
	}

	n, err := strconv.Atoi(daysStr)
	if err != nil {
		return 0, fmt.Errorf("invalid days parameter: must be an integer")
	}
	if n < 1 || n > 365 {
		return 0, fmt.Errorf("days must be between 1 and 365")
	}
	return n, nil
}
