package repository

// History window sizes, in days.
const (
	DefaultWindowDays = 7
	MaxWindowDays     = 30
)

// NormalizeWindowDays clamps a requested history window to the supported
// range; non-positive values fall back to the default.
func NormalizeWindowDays(days int) int {
	if days <= 0 {
		return DefaultWindowDays
	}
	if days > MaxWindowDays {
		return MaxWindowDays
	}
	return days
}
