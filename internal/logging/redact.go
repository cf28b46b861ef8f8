package logging

import (
	"strconv"

	"go.uber.org/zap"
)

// RedactedString creates a zap field carrying only the value's length.
// Used for API keys and other credentials that must never reach logs.
func RedactedString(key, val string) zap.Field {
	if val == "" {
		return zap.String(key, "[UNSET]")
	}
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val))+"]")
}
