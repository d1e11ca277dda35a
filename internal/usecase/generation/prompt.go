package generation

import (
	"fmt"
	"strings"

	"github.com/futig/nelson-backend/internal/entity"
)

const systemPromptTemplate = `You are a pediatric clinical reference assistant. You answer questions using ONLY the excerpts from the %[1]s (%[2]s) supplied in the context.

Rules:
1. Use only the supplied context. Do not add facts from memory.
2. Always cite the chapter, section and page of every statement, for example "(%[3]s, Chapter: Asthma, Section: Management, p. 1234)".
3. If the context does not contain the information needed, say so explicitly instead of speculating.
4. End with a short assessment of how confident you are that the context fully answers the question.
5. Consider age-specific factors (neonate, infant, child, adolescent), including weight-based dosing, when relevant.
6. Do not give personal medical advice; recommend consulting a qualified healthcare provider for individual cases.`

// SystemPrompt renders the fixed instruction for the corpus.
func SystemPrompt(corpus entity.Corpus) string {
	return fmt.Sprintf(systemPromptTemplate, corpus.Name, corpus.Edition, corpus.ShortName)
}

// BuildMessages lays out the conversation as system instruction, the most
// recent window turns of history and one user turn with context and query.
func BuildMessages(system, contextBlock, query string, history []entity.Turn, window int) []entity.ChatMessage {
	history = recentTurns(history, window)

	msgs := make([]entity.ChatMessage, 0, len(history)+2)
	msgs = append(msgs, entity.ChatMessage{Role: entity.ChatRoleSystem, Content: system})
	for _, t := range history {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		role := entity.ChatRoleUser
		if t.Role == entity.RoleAssistant {
			role = entity.ChatRoleAssistant
		}
		msgs = append(msgs, entity.ChatMessage{Role: role, Content: t.Content})
	}
	msgs = append(msgs, entity.ChatMessage{
		Role:    entity.ChatRoleUser,
		Content: userTurn(contextBlock, query),
	})
	return msgs
}

func userTurn(contextBlock, query string) string {
	var b strings.Builder
	b.WriteString("Context:\n\n")
	b.WriteString(contextBlock)
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}

func recentTurns(history []entity.Turn, window int) []entity.Turn {
	if window <= 0 {
		return nil
	}
	if len(history) > window {
		return history[len(history)-window:]
	}
	return history
}
