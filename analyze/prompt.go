package analyze

import (
	"fmt"
	"strings"
)

const ANALYSIS_PROMPT_INSTRUCTIONS = `You are an expert web developer and technical analyst with extensive knowledge in website design, web frameworks, and modern web tools. Your task is to generate an extremely detailed, sentence-like analysis of the website's HTML structure and design. Include details on design elements such as the location and styling of the brand logo, menu items (and their names if discernible), interactive effects (e.g., spinning image effects, carousels, sliding sections), layout details (e.g., divisions with two columns, grid structures), and any web frameworks or tools in use (e.g., Bootstrap, React, Angular, etc.). Focus on clarity and precision in your descriptions.`

const CONTENT_PROMPT = `Examine the following website's HTML content and provide a detailed sentence-like analysis. Your analysis should mention specific design elements such as:
- The presence and location of a brand logo (for example, top left).
- Menu items and their names (for example, top right navigation).
- Any interactive visual effects (for example, a spinning image effect, carousels, sliding sections).
- Layout details (for example, a division with two columns, grid layout, etc.).
- Identification of any web frameworks, tools, or libraries in use.

Here is the website's HTML:
%s`

// CreateContentPrompt wraps sanitized markup in the analysis request.
func CreateContentPrompt(markup string) string {
	return fmt.Sprintf(CONTENT_PROMPT, markup)
}

// FormatPrompt combines the system instructions and the content prompt into a
// single instruction-framed prompt.
func FormatPrompt(system, content string) string {
	return fmt.Sprintf("\n[INST]\n%s\n\nContent to process:\n%s\n[/INST]\n", system, content)
}

// EstimateTokens approximates a token count by splitting on whitespace. It is
// only used for diagnostic logging, not billing or truncation.
func EstimateTokens(text string) int {
	return len(strings.Fields(text))
}
