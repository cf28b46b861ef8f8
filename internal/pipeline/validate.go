package pipeline

import (
	"strings"

	"github.com/fyrsmithlabs/taskd/internal/extract"
)

// ValidateCandidates filters and deduplicates extracted candidates.
// Processing order matches extraction order. A candidate is dropped
// when its confidence is below the threshold, its trimmed title is
// empty, or its case-insensitive title was already accepted earlier in
// the same run. The function is pure and idempotent: running it on its
// own output returns the same result.
func ValidateCandidates(candidates []extract.Candidate, threshold float64) []extract.Candidate {
	validated := make([]extract.Candidate, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		if c.Confidence < threshold {
			continue
		}

		title := strings.TrimSpace(c.Title)
		if title == "" {
			continue
		}

		key := strings.ToLower(title)
		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}
		validated = append(validated, c)
	}

	return validated
}
