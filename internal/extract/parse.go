package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// wrappedTasks is the object shape some models emit instead of a bare
// array: {"tasks": [...]}.
type wrappedTasks struct {
	Tasks []Candidate `json:"tasks"`
}

// parseCandidates normalizes a raw model response into a candidate list.
//
// Three response shapes are accepted:
//  1. a bare JSON array of task objects
//  2. the array wrapped in a fenced code block, with or without a
//     language tag
//  3. a top-level object containing a "tasks" array
//
// Anything else is a parse failure. There is no speculative recovery:
// a response that cannot be normalized yields an error and no
// candidates, never a partial guess.
func parseCandidates(content string) ([]Candidate, error) {
	content = stripCodeFence(content)
	if content == "" {
		return nil, fmt.Errorf("empty extraction response")
	}

	var candidates []Candidate
	if err := json.Unmarshal([]byte(content), &candidates); err == nil {
		return candidates, nil
	}

	var wrapped wrappedTasks
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil && wrapped.Tasks != nil {
		return wrapped.Tasks, nil
	}

	return nil, fmt.Errorf("extraction response is not a task list: %s", snippet(content))
}

// stripCodeFence removes a surrounding markdown code fence, if any.
// Models sometimes wrap JSON in ```json ... ``` despite instructions.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	// Drop a language tag like "json" on the opening fence line.
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		first := strings.TrimSpace(content[:idx])
		if first != "" && !strings.ContainsAny(first, "[{") {
			content = content[idx+1:]
		}
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// snippet truncates content for error messages.
func snippet(content string) string {
	if len(content) > 120 {
		return content[:120] + "..."
	}
	return content
}
