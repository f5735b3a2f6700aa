package cache

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Key derives a deterministic cache key from an operation name and its
// ordered parameters. Parameters are normalized by type so identical logical
// queries always map to the same key regardless of caller formatting.
func Key(operation string, params ...any) string {
	if len(params) == 0 {
		return operation
	}

	parts := make([]string, 0, len(params)+1)
	parts = append(parts, operation)
	for _, p := range params {
		parts = append(parts, normalize(p))
	}
	return strings.Join(parts, ":")
}

func normalize(p any) string {
	switch v := p.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}
