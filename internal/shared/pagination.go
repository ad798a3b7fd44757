package shared

const (
	// DefaultListLimit caps list queries when the caller passes no limit.
	DefaultListLimit = 100
	// MaxListLimit is the hard ceiling for any list query.
	MaxListLimit = 500
)

// ClampLimit normalises a requested page size.
func ClampLimit(limit, def int) int {
	if def <= 0 {
		def = DefaultListLimit
	}
	if limit <= 0 {
		return def
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
