package classify

import "fmt"

// SystemPrompt returns the instruction framing sent with every classification
// request.
func SystemPrompt() string {
	return "You are an expert software categorization system. " +
		"Classify software licenses into exact categories. " +
		"Provide explanations in EXACTLY 140-145 characters to allow for safety margin. " +
		"Be concise and precise. Focus on the primary function of the software."
}

// BuildPrompt constructs the per-license classification prompt. The output is
// deterministic for a given license name.
func BuildPrompt(licenseName string) string {
	return fmt.Sprintf(`Classify this software license into ONE category from: %s

Software License: %s

Rules:
1. Choose the MOST appropriate single category
2. Explanation MUST be 140-145 characters (strictly enforced)
3. Focus on primary software function

Respond EXACTLY in this format:
Category: [category name]
Explanation: [your 140-145 character explanation]

Do not include any other text.`, CategoryList(), licenseName)
}
