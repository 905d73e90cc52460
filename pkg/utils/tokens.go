package utils

// EstimateTokensFromBytes estimates token count from byte length.
// ~4.7 bytes per token on average; this is not a tokenizer.
func EstimateTokensFromBytes(byteCount int) int {
	if byteCount <= 0 {
		return 0
	}
	return (byteCount * 10) / 47
}

// EstimateTokensFromString estimates token count from string content.
func EstimateTokensFromString(s string) int {
	return EstimateTokensFromBytes(len(s))
}

// EstimatePromptTokens estimates the tokens of a system and user prompt pair.
func EstimatePromptTokens(systemPrompt, userPrompt string) int {
	return EstimateTokensFromBytes(len(systemPrompt) + len(userPrompt))
}

// ReportedOrEstimated returns the provider-reported count when present and
// the estimate for text otherwise. The second result is false for estimates.
func ReportedOrEstimated(reported *int, text string) (int, bool) {
	if reported != nil {
		return *reported, true
	}
	return EstimateTokensFromString(text), false
}
