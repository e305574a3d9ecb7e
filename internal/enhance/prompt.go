package enhance

import "fmt"

const systemPrompt = "You are a professional task description writer. " +
	"Output only the rewritten description, with no preamble or explanation."

func buildPrompt(title, description string) string {
	return fmt.Sprintf(`Rewrite this task description to be concise, professional, and actionable using bullet points.

Task Title: %s
Current Description: %s

Enhanced Description (write ONLY 3-5 bullet points, each starting with - , keep it brief and clear):`, title, description)
}
