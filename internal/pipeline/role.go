package pipeline

import (
	"regexp"
	"strings"
)

// Heuristics for messages whose metadata never said who wrote them.
// Assistant-leaning patterns are tested first; the fallback classifies
// long text as assistant.
var (
	reAssistantOpener = regexp.MustCompile(`(?i)^(i'll|i will|i've|i have|i can|let me|here's|here is|sure[,.!]|certainly|of course|looking at|based on)`)
	reAnswerOpener    = regexp.MustCompile(`(?i)^(yes|no)[,.!:\s]`)
	reNumberedBold    = regexp.MustCompile(`(?m)^\d+\.\s+\*\*`)
	reUserOpener      = regexp.MustCompile(`(?i)^(fix|add|create|update|change|make|remove|delete|refactor|rename|implement|write|run|try|check|show|explain|help|please|can you|could you|why|how|what|where|when)\b`)
)

const longTextThreshold = 500

// InferRole classifies message text as "user" or "assistant". It is pure
// and total: the same input always yields the same role.
func InferRole(text string) string {
	trimmed := strings.TrimSpace(text)

	// Assistant-leaning signals first.
	switch {
	case reAssistantOpener.MatchString(trimmed):
		return "assistant"
	case strings.Contains(trimmed, "```"):
		return "assistant"
	case reAnswerOpener.MatchString(trimmed):
		return "assistant"
	case strings.Contains(trimmed, "**"):
		return "assistant"
	case reNumberedBold.MatchString(trimmed):
		return "assistant"
	}

	// User-leaning signals.
	switch {
	case strings.HasSuffix(trimmed, "?"):
		return "user"
	case reUserOpener.MatchString(trimmed):
		return "user"
	case strings.HasPrefix(trimmed, "@"):
		return "user"
	}

	if len(trimmed) > longTextThreshold {
		return "assistant"
	}
	return "user"
}
