package store

import "time"

// disconnectAction is a deferred write waiting for its session to drop.
type disconnectAction struct {
	Path   string `json:"path"`
	Fields Fields `json:"fields"`
}

// resolveServerValues replaces ServerTimestamp placeholders with the actual
// write time in milliseconds.
func resolveServerValues(fields Fields, now time.Time) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok && s == ServerTimestamp {
			out[k] = now.UnixMilli()
			continue
		}
		out[k] = v
	}
	return out
}
