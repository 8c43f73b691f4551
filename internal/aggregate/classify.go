package aggregate

// Severity buckets a student's question count against the class mode.
// Purely presentational; the views map buckets to row colors.
type Severity string

const (
	// SeverityNone marks a student with no questions at all.
	SeverityNone Severity = "none"
	// SeverityBelow marks a count under the mode.
	SeverityBelow Severity = "below"
	// SeverityTypical marks a count equal to the mode.
	SeverityTypical Severity = "typical"
	// SeverityAbove marks a count over the mode.
	SeverityAbove Severity = "above"
)

// Classify maps a question count against the mode. Total for all
// count, mode >= 0: a zero count is always SeverityNone, and a zero mode
// makes any positive count SeverityAbove.
func Classify(count, mode int) Severity {
	switch {
	case count == 0:
		return SeverityNone
	case count > mode:
		return SeverityAbove
	case count == mode:
		return SeverityTypical
	default:
		return SeverityBelow
	}
}
