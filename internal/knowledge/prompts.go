package knowledge

import (
	"fmt"
	"strings"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/vectordb"
)

const answerSystemPrompt = `You are the knowledge assistant for a community coordination bot.
Answer questions using ONLY the provided excerpts from ingested documents.
If the excerpts do not contain the answer, say you don't know.
Do not invent facts, document names, or numbers. Keep answers concise.`

// buildGroundingPrompt lays out the retrieved chunks, best match first,
// followed by the question.
func buildGroundingPrompt(question string, hits []vectordb.Hit) string {
	var b strings.Builder
	b.WriteString("Excerpts from ingested documents, most relevant first:\n\n")
	for i, h := range hits {
		text := strings.TrimSpace(h.Record.Text)
		if text == "" {
			continue
		}
		label := sourceLabel(h.Record.Metadata)
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, label, text)
	}
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}
