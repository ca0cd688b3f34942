package validation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/iwvelando/installment-calc/pkg/constants"
)

// ParseSize converts a human-friendly byte string (e.g., "64K", "1M") into
// bytes. An empty string yields the default request body limit.
func ParseSize(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.DefaultMaxBodyBytes, nil
	}

	upper := strings.ToUpper(trimmed)
	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}

	n, err := strconv.ParseInt(strings.TrimSpace(upper[:idx]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	var multiplier int64
	switch unit := strings.TrimSpace(upper[idx:]); unit {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported size unit %q", unit)
	}

	result := n * multiplier
	if result <= 0 {
		return 0, fmt.Errorf("size must be positive, got %s", value)
	}
	return result, nil
}
