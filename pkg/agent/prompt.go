package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/golemcli/golem/pkg/tool"
)

const fallbackPrompt = "You are a helpful AI assistant with access to tools. Use tools when needed and provide clear responses."

// BuildSystemPrompt renders the system instructions from the registered
// tools, grouped by category. Tools are listed in registration order within
// each category; categories are sorted for stable output.
func BuildSystemPrompt(registry *tool.Registry) string {
	if registry == nil || registry.Len() == 0 {
		return fallbackPrompt
	}

	groups := registry.ByCategory()
	categories := make([]string, 0, len(groups))
	for category := range groups {
		categories = append(categories, string(category))
	}
	sort.Strings(categories)

	var sections []string
	for _, category := range categories {
		title := titleCase(strings.ReplaceAll(category, "_", " "))
		var lines []string
		for _, spec := range groups[tool.Category(category)] {
			lines = append(lines, fmt.Sprintf("  - %s: %s", spec.Name, spec.Description))
		}
		sections = append(sections, fmt.Sprintf("**%s Tools:**\n%s", title, strings.Join(lines, "\n")))
	}

	return fmt.Sprintf(`You are an AI assistant with access to tools organized by category:

%s

CORE PRINCIPLES:
- When users request actions that require tools, select and use the appropriate tools
- Tool results are the source of truth - never fabricate information
- If a tool fails, explain the error clearly to the user
- Maintain conversation context and topic awareness

TOOL SELECTION STRATEGY:
- Use the most appropriate tool for each task
- Prefer combined tools for multi-step operations
- Use specific tools for focused tasks

OPERATION GUIDELINES:
- **Single operations**: Use individual tools for simple tasks
- **Multiple operations**: Prefer combined tools when available (more reliable)
- **File operations**: Use current directory '.' when path not specified
- **Content handling**: Use exact content from tool results when saving files

RESPONSE STYLE:
- Interpret tool outputs clearly in natural language
- Summarize what was accomplished
- Suggest logical next steps when appropriate
- Be concise and friendly
- Format responses suitable for CLI output unless specified otherwise

Choose tools based on what the user actually requests, not assumptions.`, strings.Join(sections, "\n\n"))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
