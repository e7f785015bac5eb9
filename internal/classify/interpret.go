package classify

import (
	"fmt"
	"strings"
)

// Interpretation is the decomposed model response before length enforcement.
type Interpretation struct {
	Category    string
	Explanation string
}

// InterpretError flags model output that cannot be used as a classification.
type InterpretError struct {
	Reason string
}

func (e *InterpretError) Error() string {
	return "interpret model response: " + e.Reason
}

const (
	categoryPrefix    = "Category:"
	explanationPrefix = "Explanation:"
)

// Interpret extracts the category and explanation from raw model output.
// The response is expected to carry "Category:" and "Explanation:" lines;
// a single pipe-delimited "category|explanation" line is also accepted.
// A missing field, a token outside the fixed label set, or a blank
// explanation is an interpretation failure rather than a guess.
func Interpret(raw string) (Interpretation, error) {
	var categoryToken, explanation string
	var sawCategory, sawExplanation bool

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, categoryPrefix):
			categoryToken = strings.TrimSpace(strings.TrimPrefix(line, categoryPrefix))
			sawCategory = true
		case strings.HasPrefix(line, explanationPrefix):
			explanation = strings.TrimSpace(strings.TrimPrefix(line, explanationPrefix))
			sawExplanation = true
		}
	}

	if !sawCategory || !sawExplanation {
		if parsed, ok := interpretDelimited(raw); ok {
			categoryToken, explanation = parsed[0], parsed[1]
		} else {
			return Interpretation{}, &InterpretError{Reason: "response is missing Category or Explanation line"}
		}
	}

	category, ok := ParseCategory(categoryToken)
	if !ok {
		return Interpretation{}, &InterpretError{Reason: fmt.Sprintf("category %q is not one of: %s", categoryToken, CategoryList())}
	}
	if explanation == "" {
		return Interpretation{}, &InterpretError{Reason: "explanation is empty"}
	}

	return Interpretation{Category: category, Explanation: explanation}, nil
}

// interpretDelimited handles the compact "category|explanation" response
// shape some models emit despite the labeled-line instruction.
func interpretDelimited(raw string) ([2]string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.Contains(trimmed, "\n") {
		return [2]string{}, false
	}
	token, rest, found := strings.Cut(trimmed, "|")
	if !found {
		return [2]string{}, false
	}
	if _, ok := ParseCategory(token); !ok {
		return [2]string{}, false
	}
	return [2]string{strings.TrimSpace(token), strings.TrimSpace(rest)}, true
}
