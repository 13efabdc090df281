// Package mapping holds the deterministic parts of the mapping engine: the
// prompt sent for one entity pair, parsing of the free-text reply, and
// aggregation of per-pair outcomes into a MappingResult.
package mapping

import (
	"fmt"
	"strings"

	"github.com/abdidvp/apiweave/internal/domain"
)

const replyFormat = `{
  "sourceEntity": "<source entity name>",
  "targetEntity": "<target entity name>",
  "confidence": <number between 0 and 1 that the two entities represent the same thing>,
  "reasoning": "<one sentence>",
  "fieldMappings": [
    {"sourceField": "<field of the source entity>", "targetField": "<field of the target entity>", "confidence": <0..1>, "transformation": "<conversion needed, omit when values copy directly>"}
  ]
}`

// BuildPrompt describes both entities' fields and asks for one JSON
// candidate. Fields appear in normalized order so identical views produce
// identical prompts.
func BuildPrompt(source, target domain.Entity) string {
	var b strings.Builder
	b.WriteString("You are an API integration expert. Decide whether these two entities from different APIs ")
	b.WriteString("represent the same concept and map their fields.\n\n")
	writeEntity(&b, "API A", source)
	b.WriteString("\n")
	writeEntity(&b, "API B", target)
	b.WriteString("\nRules:\n")
	b.WriteString("- Only use field names listed above.\n")
	b.WriteString("- Map each source field at most once; leave out fields with no counterpart.\n")
	b.WriteString("- Describe type or format conversions in \"transformation\".\n")
	b.WriteString("- Use confidence 0 when the entities are unrelated.\n\n")
	b.WriteString("Respond with ONLY this JSON object, no other text:\n")
	b.WriteString(replyFormat)
	b.WriteString("\n")
	return b.String()
}

func writeEntity(b *strings.Builder, api string, e domain.Entity) {
	fmt.Fprintf(b, "%s entity %q:\n", api, e.Name)
	if len(e.Fields) == 0 {
		b.WriteString("  (no fields)\n")
		return
	}
	for _, f := range e.Fields {
		req := "optional"
		if f.Required {
			req = "required"
		}
		fmt.Fprintf(b, "  - %s: %s (%s)", f.Name, f.Type, req)
		if f.Format != "" {
			fmt.Fprintf(b, " format=%s", f.Format)
		}
		if f.Example != nil {
			fmt.Fprintf(b, " example=%v", f.Example)
		}
		b.WriteString("\n")
		if f.Description != "" {
			fmt.Fprintf(b, "      %s\n", f.Description)
		}
	}
}
