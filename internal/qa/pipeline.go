// Package qa implements the query pipeline: it retrieves the chunks most
// similar to a question, assembles them into a context block and asks the
// answer-generation model to respond from that context only.
package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/54b3r/askpdf-go/internal/budget"
	"github.com/54b3r/askpdf-go/internal/logging"
	"github.com/54b3r/askpdf-go/internal/rag"
	"github.com/54b3r/askpdf-go/internal/store"
)

// NoInformationAnswer is returned without calling the model when retrieval
// finds nothing.
const NoInformationAnswer = "I couldn't find any relevant information in the uploaded document."

// ContextSeparator is placed between retrieved chunks in the context block.
const ContextSeparator = "\n\n---\n\n"

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = errors.New("question is required")

// Config holds the dependencies required to construct a Pipeline.
type Config struct {
	// Retriever finds the chunks relevant to a question.
	Retriever rag.Retriever

	// Generator produces the final answer.
	Generator Generator

	// History is the optional store the question and answer are appended to.
	History store.ConversationStore

	// TopK is the number of chunks retrieved per question.
	// Defaults to 3 if zero.
	TopK int

	// MaxContextTokens is the estimated token budget for the prompt. Lower
	// ranked chunks are dropped to fit. Defaults to
	// budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int
}

// Source describes one chunk that contributed to an answer.
type Source struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"documentId,omitempty"`
	Score      float32 `json:"score"`
}

// Response is the outcome of one question.
type Response struct {
	// Answer is the generated text, or NoInformationAnswer.
	Answer string `json:"answer"`
	// Sources lists the chunks placed in the context block, best first.
	Sources []Source `json:"sources"`
}

// Pipeline answers questions over the indexed documents. It never writes to
// the vector store.
type Pipeline struct {
	retriever        rag.Retriever
	generator        Generator
	history          store.ConversationStore
	topK             int
	maxContextTokens int
}

// New constructs a Pipeline from the provided Config.
func New(cfg *Config) (*Pipeline, error) {
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("qa: retriever must not be nil")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("qa: generator must not be nil")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}
	return &Pipeline{
		retriever:        cfg.Retriever,
		generator:        cfg.Generator,
		history:          cfg.History,
		topK:             topK,
		maxContextTokens: maxCtx,
	}, nil
}

// Answer returns the answer text for question, optionally scoped to one
// document.
func (p *Pipeline) Answer(ctx context.Context, question, documentID string) (string, error) {
	resp, err := p.Ask(ctx, question, documentID)
	if err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// Ask embeds the question, retrieves up to TopK chunks and generates an
// answer from them. When nothing is retrieved it returns NoInformationAnswer
// without calling the generator. Only generated answers enter the history.
func (p *Pipeline) Ask(ctx context.Context, question, documentID string) (*Response, error) {
	log := logging.FromContext(ctx)

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	hits, err := p.retriever.Retrieve(ctx, question, p.topK, documentID)
	if err != nil {
		return nil, fmt.Errorf("qa: retrieval failed: %w", err)
	}

	if hits.Len() == 0 {
		log.Info("qa: no relevant chunks found",
			slog.String("document_id", documentID),
		)
		return &Response{Answer: NoInformationAnswer, Sources: []Source{}}, nil
	}

	chunks := budget.TrimChunks(buildMessages(question, ""), hits.Documents, p.maxContextTokens)
	if dropped := hits.Len() - len(chunks); dropped > 0 {
		log.Warn("budget: dropped retrieved chunks to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(chunks)),
			slog.Int("max_tokens", p.maxContextTokens),
		)
	}

	sources := make([]Source, len(chunks))
	for i := range chunks {
		sources[i] = Source{
			ID:         hits.IDs[i],
			DocumentID: hits.Metadatas[i].DocumentID,
			Score:      hits.Scores[i],
		}
	}

	answer, err := p.generator.Generate(ctx, question, strings.Join(chunks, ContextSeparator))
	if err != nil {
		return nil, err
	}

	log.Debug("qa: answer generated",
		slog.String("document_id", documentID),
		slog.Int("chunks", len(chunks)),
	)
	p.remember(ctx, documentID, question, answer)
	return &Response{Answer: answer, Sources: sources}, nil
}

// remember appends the turn to the conversation store (non-fatal on error).
func (p *Pipeline) remember(ctx context.Context, documentID, question, answer string) {
	if p.history == nil {
		return
	}
	if err := p.history.Append(ctx, documentID, store.RoleUser, question); err != nil {
		logging.FromContext(ctx).Warn("history: failed to persist question", slog.Any("error", err))
		return
	}
	if err := p.history.Append(ctx, documentID, store.RoleAssistant, answer); err != nil {
		logging.FromContext(ctx).Warn("history: failed to persist answer", slog.Any("error", err))
	}
}
