package answer

import (
	"strings"

	"github.com/poiesic/chatrag/core"
)

// DefaultDomain is the specialty the assistant is told it has.
const DefaultDomain = "Looker System Activity analysis"

// CannotFind is the sentence the model is told to use when the context does
// not answer the question.
const CannotFind = "I cannot find specific information about this in the available messages"

// Template renders completion prompts.
type Template struct {
	Domain string
}

// DefaultTemplate uses DefaultDomain.
var DefaultTemplate = Template{Domain: DefaultDomain}

// BuildPrompt renders the default template.
func BuildPrompt(context, question string) string {
	return DefaultTemplate.Build(context, question)
}

// Build renders the prompt for context and question.
func (t Template) Build(context, question string) string {
	domain := t.Domain
	if domain == "" {
		domain = DefaultDomain
	}

	var b strings.Builder
	b.WriteString("You are an AI assistant specialized in " + domain + ".\n")
	b.WriteString("IMPORTANT INSTRUCTIONS:\n")
	b.WriteString("1. ONLY use the provided context to answer the question\n")
	b.WriteString(`2. If the context doesn't contain relevant information, say "` + CannotFind + `"` + "\n")
	b.WriteString("3. Cite specific parts of the context in your answer\n")
	b.WriteString("4. Do not make assumptions or inferences beyond what's explicitly stated in the context\n")
	b.WriteString("5. Format your response as follows:\n")
	b.WriteString("    - Answer: [your response based strictly on context]\n")
	b.WriteString("    - Source Messages: [quote relevant parts of context]\n")
	b.WriteString("Context from chat messages:\n")
	b.WriteString(context + "\n")
	b.WriteString("Question: " + question + "\n")
	b.WriteString("Response (remember to only use information from the context above):")
	return b.String()
}

// FormatContext joins the bundle's items nearest first, separated by a
// blank line. Items with a URI get a "(source: <uri>)" line.
func FormatContext(bundle core.ContextBundle) string {
	parts := make([]string, 0, len(bundle.Items))
	for _, item := range bundle.Items {
		if item.URI != "" {
			parts = append(parts, item.Content+"\n(source: "+item.URI+")")
			continue
		}
		parts = append(parts, item.Content)
	}
	return strings.Join(parts, "\n\n")
}
