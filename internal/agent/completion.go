package agent

import "strings"

// completionPhrases are the fragments that mark an oracle response as a
// completion signal even when the tool field says otherwise. The match
// is a fuzzy heuristic coupled to oracle phrasing; keep it here, in one
// place, so it can be swapped out wholesale.
var completionPhrases = []string{
	"task complete",
	"task is complete",
	"subtask complete",
	"subtask is complete",
	"goal achieved",
	"goal has been achieved",
	"successfully completed",
	"objective achieved",
}

// SignalsCompletion reports whether any of the given free-text fields
// contains a completion phrase. Case-insensitive.
func SignalsCompletion(fields ...string) bool {
	for _, field := range fields {
		lower := strings.ToLower(field)
		for _, phrase := range completionPhrases {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
	}
	return false
}
