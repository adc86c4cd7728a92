package llm

import "fmt"

// BuildPrompt assembles the final prompt sent to the model. When context is
// empty the query is passed through without a context section.
func BuildPrompt(contextBlock, query string) string {
	if contextBlock == "" {
		return fmt.Sprintf("User: %s\nAI:", query)
	}
	return fmt.Sprintf("Context:\n%s\n\nUser: %s\nAI:", contextBlock, query)
}
