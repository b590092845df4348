package clix

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// ParseLimit reads --limit, falling back to def when unset or non-positive
// and clamping to max when max > 0.
func ParseLimit(flags *pflag.FlagSet, def, max int) int {
	limit, err := flags.GetInt("limit")
	if err != nil || limit <= 0 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}

// ParseFormat reads --format, lower-cased and without a leading dot.
func ParseFormat(flags *pflag.FlagSet) (string, error) {
	format, _ := flags.GetString("format")
	format = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
	if format == "" {
		return "", fmt.Errorf("--format is required")
	}
	return format, nil
}
