package classify

// MaxExplanationLength is the hard ceiling for explanation text.
const MaxExplanationLength = 150

const ellipsis = "..."

// EnforceExplanation guarantees the returned explanation never exceeds
// MaxExplanationLength characters. Inputs at or under the limit pass through
// unchanged, so the function is idempotent. Longer inputs keep their first
// 147 characters and end with an ellipsis marker, yielding exactly 150.
func EnforceExplanation(explanation string) string {
	runes := []rune(explanation)
	if len(runes) <= MaxExplanationLength {
		return explanation
	}
	return string(runes[:MaxExplanationLength-len(ellipsis)]) + ellipsis
}
