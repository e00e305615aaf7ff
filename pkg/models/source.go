package models

import "strings"

// Source labels the provenance of a prompt: which capture channel it came
// through, as reported or inferred.
type Source string

const (
	SourceClaudeDesktop Source = "Claude Desktop"
	SourceWebBrowser    Source = "Web Browser"
	SourceUnknown       Source = "Unknown"
)

// sourceRule pairs a predicate with the source it implies. Rules are
// evaluated in order and the first match wins; several rules can match the
// same record, so the ordering is load-bearing and must not be reshuffled.
type sourceRule struct {
	match  func(llm, desc string) bool
	source Source
}

// sourceRules encodes the provenance heuristic. Inputs arrive lowercased.
// Claude with no other signal defaults to the desktop app rather than
// Unknown; desktop capture is the dominant Claude channel and the rule list
// keeps that bias on purpose.
var sourceRules = []sourceRule{
	{
		match:  func(_, desc string) bool { return strings.Contains(desc, "auto-recorded from claude desktop") },
		source: SourceClaudeDesktop,
	},
	{
		match:  func(_, desc string) bool { return strings.Contains(desc, "claude desktop") },
		source: SourceClaudeDesktop,
	},
	{
		match: func(llm, desc string) bool {
			return llm == "claude" && (strings.Contains(desc, "via") || strings.Contains(desc, "proxy"))
		},
		source: SourceWebBrowser,
	},
	{
		match:  func(llm, _ string) bool { return strings.Contains(llm, "chatgpt") },
		source: SourceWebBrowser,
	},
	{
		match: func(llm, desc string) bool {
			return llm == "claude" && containsAny(desc, "mcp", "auto-recorded", "claude desktop")
		},
		source: SourceClaudeDesktop,
	},
	{
		match: func(llm, desc string) bool {
			return llm == "claude" && containsAny(desc, "web", "proxy", "browser", "captured", "via", "claude.ai")
		},
		source: SourceWebBrowser,
	},
	{
		match:  func(llm, _ string) bool { return llm == "claude" },
		source: SourceClaudeDesktop,
	},
	{
		match:  func(_, _ string) bool { return true },
		source: SourceWebBrowser,
	},
}

// InferSource derives a provenance label from the weak textual signals in
// llm_used and description. It is a heuristic, not a classifier.
func InferSource(llmUsed, description string) Source {
	llm := strings.ToLower(strings.TrimSpace(llmUsed))
	desc := strings.ToLower(description)
	for _, rule := range sourceRules {
		if rule.match(llm, desc) {
			return rule.source
		}
	}
	return SourceUnknown // unreachable: the final rule always matches
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
