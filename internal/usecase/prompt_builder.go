package usecase

import (
	"fmt"

	"book-orchestrator/internal/domain"
)

// systemPrompt enforces strict grounding: the model may use only the supplied
// context and must refuse with the fixed phrase when it cannot.
const systemPrompt = `You are a helpful AI assistant that answers questions based ONLY on the provided book content.

CRITICAL RULES:
1. You MUST answer questions using ONLY the retrieved book passages provided in the context
2. Every answer MUST include citations to specific book passages
3. If the retrieved passages do not contain information to answer the question, respond with: "` + domain.RefusalAnswer + `"
4. DO NOT use any outside knowledge or information not present in the retrieved passages
5. DO NOT make up or hallucinate information

Response Format:
- Provide a clear, direct answer to the question
- Include citations in format: [Chapter Name](source) or [Section Name](source)
- If multiple passages are relevant, synthesize information from all of them

Remember: Your goal is to be accurate and helpful while staying strictly grounded in the provided book content.`

// BuildAnswerMessages composes the chat-completion conversation for one
// grounded answer: the grounding system instruction plus a user message
// carrying the assembled context and the question.
func BuildAnswerMessages(contextBlock, query string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Content: systemPrompt},
		{Role: domain.ChatRoleUser, Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, query)},
	}
}
