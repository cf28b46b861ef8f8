package extract

import (
	"fmt"
	"time"
)

// extractPrompt is the system prompt for task extraction. The model is
// instructed to emit one atomic action per task and to return only a
// JSON array, though responses are still normalized defensively.
const extractPrompt = `You are a task inference assistant. Analyze the provided text and extract ALL actionable tasks.

For each task, extract:
- title: Clear, concise task title (imperative form, e.g., "Send Q4 report")
- description: Detailed description with context
- due_date: If mentioned, convert to ISO format (YYYY-MM-DD). Parse relative dates like "tomorrow", "next week", "EOD"
- priority: 1 (urgent) to 5 (low priority). Base on urgency indicators.
- confidence: How confident you are this is a real task (0-100)
- context: Short provenance note quoting the source phrase

Important rules:
- Each task should be ONE specific action
- Split compound tasks into separate tasks
- Include implicit commitments (e.g., "I'll send the report" -> task: "Send report")
- Include requests to the user (e.g., "Can you review my PR?" -> task: "Review PR")
- Ignore greetings, acknowledgments, pure questions
- Return ONLY a valid JSON array of tasks, no additional text`

// userPrompt builds the per-request prompt, anchoring relative dates.
func userPrompt(text string, refDate time.Time) string {
	return fmt.Sprintf("Analyze this text and extract all actionable tasks:\n\n%s\n\nToday's date: %s\n\nReturn JSON array of tasks:",
		text, refDate.Format("2006-01-02"))
}
