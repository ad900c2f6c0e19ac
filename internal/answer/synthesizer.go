// Package answer composes a natural-language answer from retrieved chunks by
// prompting a chat model with all of them at once.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/pdfqa-go/internal/budget"
	"github.com/54b3r/pdfqa-go/internal/logging"
	"github.com/54b3r/pdfqa-go/internal/rag"
)

// DefaultInstructions is the system prompt. {context} receives the retrieved
// chunk texts.
const DefaultInstructions = `Use the following pieces of context to answer the user's question.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
----------------
{context}`

// contextSeparator joins chunk texts inside the prompt.
const contextSeparator = "\n\n"

// errEmptyAnswer is wrapped when the model returns no usable content.
var errEmptyAnswer = errors.New("model returned an empty answer")

// Options configures a Synthesizer.
type Options struct {
	// Temperature is passed on every Generate call. Zero keeps answers
	// deterministic where the backend allows it.
	Temperature float32
	// MaxPromptTokens is the estimated prompt size above which a warning is
	// logged. Zero selects budget.DefaultMaxPromptTokens; negative disables it.
	MaxPromptTokens int
	// Instructions overrides DefaultInstructions. It must contain {context}.
	Instructions string
}

// Synthesizer turns a question and its retrieved chunks into an answer.
// It is safe for concurrent use when the underlying chat model is.
type Synthesizer struct {
	chat     model.BaseChatModel
	template prompt.ChatTemplate
	temp     float32
	maxTok   int
}

// New constructs a Synthesizer for chat.
func New(chat model.BaseChatModel, opts Options) (*Synthesizer, error) {
	if chat == nil {
		return nil, fmt.Errorf("answer: chat model must not be nil")
	}
	instructions := opts.Instructions
	if instructions == "" {
		instructions = DefaultInstructions
	}
	if !strings.Contains(instructions, "{context}") {
		return nil, fmt.Errorf("answer: instructions must contain {context}")
	}
	maxTok := opts.MaxPromptTokens
	if maxTok == 0 {
		maxTok = budget.DefaultMaxPromptTokens
	}

	return &Synthesizer{
		chat: chat,
		template: prompt.FromMessages(schema.FString,
			schema.SystemMessage(instructions),
			schema.UserMessage("{question}"),
		),
		temp:   opts.Temperature,
		maxTok: maxTok,
	}, nil
}

// Synthesize asks the chat model to answer question from chunks. The chunks
// are placed in the prompt in the order given. An empty chunk list still
// reaches the model, which is instructed to say it does not know.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, chunks []rag.Chunk) (string, error) {
	log := logging.FromContext(ctx)

	msgs, err := s.Messages(ctx, question, chunks)
	if err != nil {
		return "", rag.SynthesisError("", err)
	}

	report := budget.Check(msgs, s.maxTok)
	log.Debug("answer: prompt built",
		slog.Int("chunks", len(chunks)),
		slog.Int("estimated_tokens", report.Tokens),
	)
	if report.Over() {
		log.Warn("answer: prompt exceeds token budget",
			slog.Int("estimated_tokens", report.Tokens),
			slog.Int("max_tokens", report.Limit),
		)
	}

	resp, err := s.chat.Generate(ctx, msgs, model.WithTemperature(s.temp))
	if err != nil {
		return "", rag.SynthesisError("generate", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", rag.SynthesisError("generate", errEmptyAnswer)
	}
	return strings.TrimSpace(resp.Content), nil
}

// Messages renders the prompt for question and chunks without calling the
// model.
func (s *Synthesizer) Messages(ctx context.Context, question string, chunks []rag.Chunk) ([]*schema.Message, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	msgs, err := s.template.Format(ctx, map[string]any{
		"context":  strings.Join(texts, contextSeparator),
		"question": question,
	})
	if err != nil {
		return nil, fmt.Errorf("answer: format prompt: %w", err)
	}
	return msgs, nil
}
