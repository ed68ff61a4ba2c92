package qa

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/askpdf-go/internal/rag"
)

// systemPrompt instructs the model to answer only from the retrieved context.
// The context block is appended after the "Context:" line.
const systemPrompt = `You are a helpful assistant that answers questions about documents the user uploaded.
Use the following pieces of context to answer the question at the end.
If the answer is not in the context, say "I don't know based on the provided document."
Do not make up facts that are not supported by the context.
Keep the answer concise.

Context:
`

// Generator produces an answer to question grounded in contextBlock.
// Implementations must be safe to call from multiple goroutines.
type Generator interface {
	Generate(ctx context.Context, question, contextBlock string) (string, error)
}

// buildMessages returns the system + user message pair sent to the model.
func buildMessages(question, contextBlock string) []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage(systemPrompt + contextBlock),
		schema.UserMessage("Question: " + question),
	}
}

// ChatGenerator implements Generator on top of an eino chat model.
type ChatGenerator struct {
	// model is the LLM backend constructed by the provider factory.
	model model.BaseChatModel
}

// NewChatGenerator wraps m.
func NewChatGenerator(m model.BaseChatModel) (*ChatGenerator, error) {
	if m == nil {
		return nil, fmt.Errorf("qa: chat model must not be nil")
	}
	return &ChatGenerator{model: m}, nil
}

// Generate sends the prompt and returns the model's reply verbatim. Model
// failures and empty replies are reported as rag.ErrAnswerGeneration.
func (g *ChatGenerator) Generate(ctx context.Context, question, contextBlock string) (string, error) {
	msg, err := g.model.Generate(ctx, buildMessages(question, contextBlock))
	if err != nil {
		return "", fmt.Errorf("qa: %w: %w", rag.ErrAnswerGeneration, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("qa: %w: model returned an empty reply", rag.ErrAnswerGeneration)
	}
	return msg.Content, nil
}
